package models

import (
	"time"

	"github.com/amirphl/Susanoo/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MediaFileType distinguishes generated assets
type MediaFileType string

const (
	MediaFileTypeImage MediaFileType = "image"
	MediaFileTypeVideo MediaFileType = "video"
	MediaFileTypeReel  MediaFileType = "reel"
)

// MediaFile represents a generated image or video stored on disk and served publicly.
type MediaFile struct {
	ID              uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	InitiativeID    uuid.UUID     `gorm:"type:uuid;not null;index:idx_media_files_initiative_id" json:"initiative_id"`
	FileType        MediaFileType `gorm:"type:varchar(20);not null;index" json:"file_type"`
	StoragePath     string        `gorm:"type:text;not null" json:"storage_path"`
	PublicURL       string        `gorm:"type:text;not null" json:"public_url"`
	MimeType        string        `gorm:"type:varchar(100);not null" json:"mime_type"`
	FileSizeBytes   int64         `gorm:"type:bigint;not null" json:"file_size_bytes"`
	Width           *int          `json:"width,omitempty"`
	Height          *int          `json:"height,omitempty"`
	DurationSeconds *int          `json:"duration_seconds,omitempty"`
	PromptUsed      *string       `gorm:"type:text" json:"prompt_used,omitempty"`
	Metadata        JSONMap       `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt       time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (MediaFile) TableName() string { return "media_files" }

// BeforeCreate ensures ID and timestamps are set.
func (m *MediaFile) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = utils.UTCNow()
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// MediaFileFilter represents filter criteria for media file queries.
type MediaFileFilter struct {
	ID            *uuid.UUID     `json:"id,omitempty"`
	InitiativeID  *uuid.UUID     `json:"initiative_id,omitempty"`
	FileType      *MediaFileType `json:"file_type,omitempty"`
	CreatedAfter  *time.Time     `json:"created_after,omitempty"`
	CreatedBefore *time.Time     `json:"created_before,omitempty"`
}
