package dto

import "time"

// RunPipelineRequest is the optional body of a run trigger
type RunPipelineRequest struct {
	InitiativeID string `json:"-" validate:"required,uuid"`
	// TimeoutSeconds bounds the run; zero uses the server default
	TimeoutSeconds int `json:"timeout_seconds,omitempty" validate:"omitempty,gte=30,lte=7200"`
}

// PostingResultResponse is one publish attempt
type PostingResultResponse struct {
	PostID          string  `json:"post_id"`
	Platform        string  `json:"platform"`
	Success         bool    `json:"success"`
	Status          string  `json:"status"`
	PlatformPostID  *string `json:"platform_post_id,omitempty"`
	PlatformURL     *string `json:"platform_url,omitempty"`
	Error           *string `json:"error,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// AdSetRunResponse groups the attempts of one ad set
type AdSetRunResponse struct {
	CampaignID   string                  `json:"campaign_id"`
	CampaignName string                  `json:"campaign_name"`
	AdSetID      string                  `json:"ad_set_id"`
	AdSetName    string                  `json:"ad_set_name"`
	Drafted      int                     `json:"drafted"`
	Error        string                  `json:"error,omitempty"`
	Results      []PostingResultResponse `json:"results"`
}

// QuotaCountsResponse holds one number per quota kind
type QuotaCountsResponse struct {
	FacebookPosts  int `json:"facebook_posts"`
	InstagramPosts int `json:"instagram_posts"`
	Photos         int `json:"photos"`
	Videos         int `json:"videos"`
}

// AdSetQuotaResponse is the quota state of one ad set
type AdSetQuotaResponse struct {
	AdSetID   string              `json:"ad_set_id"`
	Baseline  QuotaCountsResponse `json:"baseline"`
	Session   QuotaCountsResponse `json:"session"`
	Remaining QuotaCountsResponse `json:"remaining"`
}

// RunPipelineResponse summarizes a finished run
type RunPipelineResponse struct {
	InitiativeID    string               `json:"initiative_id"`
	StartedAt       time.Time            `json:"started_at"`
	FinishedAt      time.Time            `json:"finished_at"`
	DurationSeconds float64              `json:"duration_seconds"`
	PostsDrafted    int                  `json:"posts_drafted"`
	Attempts        int                  `json:"attempts"`
	Successes       int                  `json:"successes"`
	Failures        int                  `json:"failures"`
	Errors          []string             `json:"errors"`
	ReportPath      string               `json:"report_path,omitempty"`
	AdSets          []AdSetRunResponse   `json:"ad_sets"`
	Quota           []AdSetQuotaResponse `json:"quota"`
}

// QuotaLimitsResponse lists the configured ceilings
type QuotaLimitsResponse struct {
	QuotaCountsResponse
	PhotosPerPost int `json:"photos_per_post"`
	VideosPerPost int `json:"videos_per_post"`
}

// QuotaPreviewResponse reports remaining capacity for every active ad set
type QuotaPreviewResponse struct {
	InitiativeID string               `json:"initiative_id"`
	Limits       QuotaLimitsResponse  `json:"limits"`
	AdSets       []AdSetQuotaResponse `json:"ad_sets"`
	Tokens       TokenStatusResponse  `json:"tokens"`
}

// TokenStatusResponse tells which platforms have credentials stored
type TokenStatusResponse struct {
	Facebook  bool `json:"facebook"`
	Instagram bool `json:"instagram"`
}

// ListAdSetPostsRequest is read from the path and query string
type ListAdSetPostsRequest struct {
	AdSetID string `json:"-" validate:"required,uuid"`
	Limit   int    `query:"limit" validate:"omitempty,gte=1,lte=100"`
	Offset  int    `query:"offset" validate:"omitempty,gte=0"`
}

// PostResponse is a stored post
type PostResponse struct {
	ID               string     `json:"id"`
	AdSetID          string     `json:"ad_set_id"`
	PostType         string     `json:"post_type"`
	Status           string     `json:"status"`
	Caption          *string    `json:"caption,omitempty"`
	Hashtags         []string   `json:"hashtags"`
	Links            []string   `json:"links"`
	MediaURLs        []string   `json:"media_urls"`
	FacebookPostID   *string    `json:"facebook_post_id,omitempty"`
	FacebookPostURL  *string    `json:"facebook_post_url,omitempty"`
	InstagramPostID  *string    `json:"instagram_post_id,omitempty"`
	InstagramPostURL *string    `json:"instagram_post_url,omitempty"`
	PublishedTime    *time.Time `json:"published_time,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// ListAdSetPostsResponse is one page of posts
type ListAdSetPostsResponse struct {
	Posts  []PostResponse `json:"posts"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}
