package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirphl/Susanoo/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdSetPlacements lists where an ad set's content runs, e.g. "fb_feed", "instagram_reels".
// Stored as {"platforms": [...]}; a bare JSON array is accepted on read.
type AdSetPlacements struct {
	Platforms []string `json:"platforms"`
}

// Value implements the driver.Valuer interface for AdSetPlacements
func (p AdSetPlacements) Value() (driver.Value, error) {
	if p.Platforms == nil {
		p.Platforms = []string{}
	}
	return json.Marshal(p)
}

// Scan implements the sql.Scanner interface for AdSetPlacements
func (p *AdSetPlacements) Scan(value any) error {
	if value == nil {
		*p = AdSetPlacements{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into AdSetPlacements", value)
	}

	var list []string
	if err := json.Unmarshal(bytes, &list); err == nil {
		*p = AdSetPlacements{Platforms: list}
		return nil
	}

	var out AdSetPlacements
	if err := json.Unmarshal(bytes, &out); err != nil {
		return err
	}
	*p = out
	return nil
}

// AdSet is the unit that receives generated content and carries quota
type AdSet struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CampaignID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_ad_sets_campaign_id" json:"campaign_id"`
	InitiativeID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_ad_sets_initiative_id" json:"initiative_id"`
	Name           string          `gorm:"type:varchar(255);not null" json:"name"`
	Objective      *string         `gorm:"type:varchar(100)" json:"objective,omitempty"`
	Status         *EntityStatus   `gorm:"type:varchar(50)" json:"status,omitempty"`
	IsActive       *bool           `json:"is_active,omitempty"`
	StartTime      *time.Time      `json:"start_time,omitempty"`
	EndTime        *time.Time      `json:"end_time,omitempty"`
	Placements     AdSetPlacements `gorm:"type:jsonb" json:"placements"`
	CreativeBrief  JSONMap         `gorm:"type:jsonb" json:"creative_brief,omitempty"`
	TargetAudience JSONMap         `gorm:"type:jsonb" json:"target_audience,omitempty"`
	PostVolume     *int            `json:"post_volume,omitempty"`
	PostFrequency  *int            `json:"post_frequency,omitempty"`
	MetaAdSetID    *string         `gorm:"type:varchar(64)" json:"meta_ad_set_id,omitempty"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (AdSet) TableName() string {
	return "ad_sets"
}

func (a *AdSet) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = utils.UTCNow()
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// Active reports whether the ad set should receive content at now
func (a AdSet) Active(now time.Time) bool {
	return IsEntityActive(a.Status, a.IsActive, a.StartTime, a.EndTime, now)
}

// AdSetFilter represents filter criteria for ad set queries
type AdSetFilter struct {
	ID           *uuid.UUID    `json:"id,omitempty"`
	CampaignID   *uuid.UUID    `json:"campaign_id,omitempty"`
	InitiativeID *uuid.UUID    `json:"initiative_id,omitempty"`
	Status       *EntityStatus `json:"status,omitempty"`
}
