package models

import (
	"strings"
	"time"
)

// Platform identifies a publishing destination
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
)

func (p Platform) String() string {
	return string(p)
}

// PostingStatus is the outcome state of one publish attempt
type PostingStatus string

const (
	PostingStatusPending    PostingStatus = "pending"
	PostingStatusProcessing PostingStatus = "processing"
	PostingStatusPublished  PostingStatus = "published"
	PostingStatusFailed     PostingStatus = "failed"
)

// MediaSpec describes one media item of a post. Source is a generation
// prompt or an already hosted URL.
type MediaSpec struct {
	Source          string `json:"url" validate:"required,max=2000"`
	Format          string `json:"format,omitempty" validate:"omitempty,max=10"`
	DurationSeconds *int   `json:"duration_seconds,omitempty" validate:"omitempty,min=1,max=90"`
}

// IsVideoFormat reports whether the declared format is a video container
func (m MediaSpec) IsVideoFormat() bool {
	switch strings.ToLower(strings.TrimPrefix(m.Format, ".")) {
	case "mp4", "mov":
		return true
	default:
		return false
	}
}

// PostContent is the textual part of a generated post
type PostContent struct {
	Caption  string   `json:"caption" validate:"max=2200"`
	Hashtags []string `json:"hashtags" validate:"max=30,dive,max=100"`
	Links    []string `json:"links" validate:"dive,url"`
}

// GeneratedPost is a candidate post produced by the content generator.
// It is treated as immutable once handed to the posting pipeline.
type GeneratedPost struct {
	PostID       string      `json:"post_id"`
	InitiativeID string      `json:"initiative_id"`
	CampaignID   string      `json:"campaign_id"`
	AdSetID      string      `json:"ad_set_id"`
	Type         PostType    `json:"type" validate:"required,oneof=image video carousel reel story text link"`
	Content      PostContent `json:"content"`
	Media        []MediaSpec `json:"media" validate:"dive"`
}

// PostingResult is the outcome of publishing one post to one platform
type PostingResult struct {
	Success        bool          `json:"success"`
	PostID         string        `json:"post_id"`
	PlatformPostID *string       `json:"platform_post_id,omitempty"`
	PlatformURL    *string       `json:"platform_url,omitempty"`
	Platform       Platform      `json:"platform"`
	Status         PostingStatus `json:"status"`
	ErrorMessage   *string       `json:"error_message,omitempty"`
	MediaURLs      []string      `json:"media_urls,omitempty"`
	ExecutionTime  time.Duration `json:"execution_time"`
}

// ErrorText returns the error message or an empty string
func (r PostingResult) ErrorText() string {
	if r.ErrorMessage == nil {
		return ""
	}
	return *r.ErrorMessage
}
