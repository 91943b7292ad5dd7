package models

import (
	"time"

	"github.com/amirphl/Susanoo/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InitiativeToken holds the encrypted platform credentials of an initiative
type InitiativeToken struct {
	ID                         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	InitiativeID               uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_initiative_tokens_initiative_id" json:"initiative_id"`
	FBPageID                   *string    `gorm:"column:fb_page_id;type:varchar(64)" json:"fb_page_id,omitempty"`
	FBPageName                 *string    `gorm:"column:fb_page_name;type:varchar(255)" json:"fb_page_name,omitempty"`
	FBPageAccessTokenEncrypted *string    `gorm:"column:fb_page_access_token_encrypted;type:text" json:"-"`
	InstaBusinessID            *string    `gorm:"column:insta_business_id;type:varchar(64)" json:"insta_business_id,omitempty"`
	InstaUsername              *string    `gorm:"column:insta_username;type:varchar(255)" json:"insta_username,omitempty"`
	InstaAccessTokenEncrypted  *string    `gorm:"column:insta_access_token_encrypted;type:text" json:"-"`
	TokensExpireAt             *time.Time `json:"tokens_expire_at,omitempty"`
	TokensLastValidated        *time.Time `json:"tokens_last_validated,omitempty"`
	CreatedBy                  *string    `gorm:"type:varchar(255)" json:"created_by,omitempty"`
	CreatedAt                  time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt                  time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (InitiativeToken) TableName() string { return "initiative_tokens" }

func (t *InitiativeToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = utils.UTCNow()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = utils.UTCNow()
	}
	return nil
}

type InitiativeTokenFilter struct {
	InitiativeID *uuid.UUID `json:"initiative_id,omitempty"`
}
