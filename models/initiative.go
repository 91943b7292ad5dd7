package models

import (
	"time"

	"github.com/amirphl/Susanoo/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Initiative is the brand presence that owns campaigns and platform accounts
type Initiative struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID           uuid.UUID `gorm:"type:uuid;not null;index:idx_initiatives_tenant_id" json:"tenant_id"`
	Name               string    `gorm:"type:varchar(255);not null" json:"name"`
	Description        *string   `gorm:"type:text" json:"description,omitempty"`
	Category           *string   `gorm:"type:varchar(100)" json:"category,omitempty"`
	FacebookPageID     *string   `gorm:"type:varchar(64)" json:"facebook_page_id,omitempty"`
	FacebookPageName   *string   `gorm:"type:varchar(255)" json:"facebook_page_name,omitempty"`
	InstagramUsername  *string   `gorm:"type:varchar(255)" json:"instagram_username,omitempty"`
	InstagramAccountID *string   `gorm:"type:varchar(64)" json:"instagram_account_id,omitempty"`
	Objectives         JSONMap   `gorm:"type:jsonb" json:"objectives,omitempty"`
	BrandAssets        JSONMap   `gorm:"type:jsonb" json:"brand_assets,omitempty"`
	IsActive           bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Initiative) TableName() string { return "initiatives" }

func (i *Initiative) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = utils.UTCNow()
	}
	if i.UpdatedAt.IsZero() {
		i.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// InitiativeFilter represents filter criteria for initiative queries
type InitiativeFilter struct {
	ID       *uuid.UUID `json:"id,omitempty"`
	TenantID *uuid.UUID `json:"tenant_id,omitempty"`
	IsActive *bool      `json:"is_active,omitempty"`
}
