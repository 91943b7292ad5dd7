package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/amirphl/Susanoo/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// PostType is the content format of a post
type PostType string

const (
	PostTypeImage    PostType = "image"
	PostTypeVideo    PostType = "video"
	PostTypeCarousel PostType = "carousel"
	PostTypeReel     PostType = "reel"
	PostTypeStory    PostType = "story"
	PostTypeText     PostType = "text"
	PostTypeLink     PostType = "link"
)

func (t PostType) String() string {
	return string(t)
}

// Valid checks if the type is one the executors understand
func (t PostType) Valid() bool {
	switch t {
	case PostTypeImage, PostTypeVideo, PostTypeCarousel, PostTypeReel,
		PostTypeStory, PostTypeText, PostTypeLink:
		return true
	default:
		return false
	}
}

// PostStatus represents the lifecycle of a stored post
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusPublished PostStatus = "published"
	PostStatusFailed    PostStatus = "failed"
)

func (s PostStatus) String() string {
	return string(s)
}

func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusDraft, PostStatusScheduled, PostStatusPublished, PostStatusFailed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for PostStatus
func (s *PostStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = PostStatus(v)
	case []byte:
		*s = PostStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into PostStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for PostStatus
func (s PostStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid PostStatus: %s", s)
	}
	return string(s), nil
}

// Post is a stored piece of content, drafted before publishing
type Post struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	InitiativeID       uuid.UUID      `gorm:"type:uuid;not null;index:idx_posts_initiative_id" json:"initiative_id"`
	AdSetID            uuid.UUID      `gorm:"type:uuid;not null;index:idx_posts_ad_set_id" json:"ad_set_id"`
	PostType           PostType       `gorm:"type:varchar(20);not null" json:"post_type"`
	TextContent        *string        `gorm:"type:text" json:"text_content,omitempty"`
	Hashtags           pq.StringArray `gorm:"type:text[]" json:"hashtags"`
	Links              pq.StringArray `gorm:"type:text[]" json:"links"`
	MediaURLs          pq.StringArray `gorm:"column:media_urls;type:text[]" json:"media_urls"`
	MediaMetadata      JSONMap        `gorm:"type:jsonb" json:"media_metadata,omitempty"`
	ScheduledTime      *time.Time     `json:"scheduled_time,omitempty"`
	PublishedTime      *time.Time     `json:"published_time,omitempty"`
	FacebookPostID     *string        `gorm:"type:varchar(128)" json:"facebook_post_id,omitempty"`
	InstagramPostID    *string        `gorm:"type:varchar(128)" json:"instagram_post_id,omitempty"`
	FacebookPostURL    *string        `gorm:"type:text" json:"facebook_post_url,omitempty"`
	InstagramPostURL   *string        `gorm:"type:text" json:"instagram_post_url,omitempty"`
	Status             PostStatus     `gorm:"type:varchar(20);not null;default:'draft';index:idx_posts_status" json:"status"`
	IsPublished        bool           `gorm:"not null;default:false" json:"is_published"`
	GenerationMetadata JSONMap        `gorm:"type:jsonb" json:"generation_metadata,omitempty"`
	CreatedAt          time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Post) TableName() string {
	return "posts"
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = PostStatusDraft
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = utils.UTCNow()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// PostFilter represents filter criteria for post queries
type PostFilter struct {
	ID           *uuid.UUID  `json:"id,omitempty"`
	InitiativeID *uuid.UUID  `json:"initiative_id,omitempty"`
	AdSetID      *uuid.UUID  `json:"ad_set_id,omitempty"`
	PostType     *PostType   `json:"post_type,omitempty"`
	Status       *PostStatus `json:"status,omitempty"`
	IsPublished  *bool       `json:"is_published,omitempty"`
}

// PostPublication is what a platform returned for one published post
type PostPublication struct {
	Platform       Platform
	PlatformPostID string
	PlatformURL    string
	MediaURLs      []string
	PublishedAt    time.Time
}

// AdSetContentCounts aggregates what an ad set has already consumed
type AdSetContentCounts struct {
	AdSetID        uuid.UUID `json:"ad_set_id"`
	FacebookPosts  int       `json:"facebook_posts"`
	InstagramPosts int       `json:"instagram_posts"`
	Photos         int       `json:"photos"`
	Videos         int       `json:"videos"`
	Drafts         int       `json:"drafts"`
	Published      int       `json:"published"`
}
