package models

import (
	"time"

	"github.com/amirphl/Susanoo/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Campaign groups ad sets under one objective
type Campaign struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	InitiativeID   uuid.UUID     `gorm:"type:uuid;not null;index:idx_campaigns_initiative_id" json:"initiative_id"`
	Name           string        `gorm:"type:varchar(255);not null" json:"name"`
	Objective      string        `gorm:"type:varchar(100);not null" json:"objective"`
	Description    *string       `gorm:"type:text" json:"description,omitempty"`
	Status         *EntityStatus `gorm:"type:varchar(50)" json:"status,omitempty"`
	IsActive       *bool         `json:"is_active,omitempty"`
	StartDate      *time.Time    `json:"start_date,omitempty"`
	EndDate        *time.Time    `json:"end_date,omitempty"`
	MetaCampaignID *string       `gorm:"type:varchar(64)" json:"meta_campaign_id,omitempty"`
	CreatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName returns the table name for the model
func (Campaign) TableName() string {
	return "campaigns"
}

// BeforeCreate is called before creating a new record
func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// Active reports whether the campaign should receive content at now
func (c Campaign) Active(now time.Time) bool {
	return IsEntityActive(c.Status, c.IsActive, c.StartDate, c.EndDate, now)
}

// CampaignFilter represents filter criteria for campaign queries
type CampaignFilter struct {
	ID           *uuid.UUID    `json:"id,omitempty"`
	InitiativeID *uuid.UUID    `json:"initiative_id,omitempty"`
	Status       *EntityStatus `json:"status,omitempty"`
	IsActive     *bool         `json:"is_active,omitempty"`
}
