package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/utils"
	"go.uber.org/zap"
)

// PlatformExecutor publishes one generated post to one platform. Execute
// never panics on its own account and never returns an error: every failure
// is reported through a failed PostingResult.
type PlatformExecutor interface {
	Platform() models.Platform
	Execute(ctx context.Context, post models.GeneratedPost) models.PostingResult
}

// MediaGenerator turns prompts into publicly reachable media URLs.
// An empty result means generation failed.
type MediaGenerator interface {
	GenerateImages(ctx context.Context, initiativeID string, prompts []string) ([]string, error)
	GenerateVideo(ctx context.Context, initiativeID, prompt string, durationSeconds int) (string, error)
}

var (
	ErrImageGenerationFailed = errors.New("Failed to generate images")
	ErrNoVideoMedia          = errors.New("No video media specified")
	ErrNoReelMedia           = errors.New("No video media specified for Reel")

	ErrVideoGenerationTimeout = errors.New("Video generation timeout after 5 minutes")
	ErrVideoGenerationFailed  = errors.New("Video generation failed")
	ErrReelGenerationTimeout  = errors.New("Reel generation timeout after 5 minutes")
	ErrReelGenerationFailed   = errors.New("Reel video generation failed")
	ErrStoryMediaFailed       = errors.New("Failed to generate story media")
	ErrStoryGenerationTimeout = errors.New("Story generation timeout after 5 minutes")

	ErrReelUploadFailed  = errors.New("Reel upload failed with ERROR status")
	ErrReelUploadTimeout = errors.New("Reel upload timeout after 5 minutes")
)

// FormatCaption appends the hashtags, each prefixed with '#' once, after a blank line
func FormatCaption(caption string, hashtags []string) string {
	if len(hashtags) == 0 {
		return caption
	}
	tags := make([]string, 0, len(hashtags))
	for _, tag := range hashtags {
		if strings.HasPrefix(tag, "#") {
			tags = append(tags, tag)
		} else {
			tags = append(tags, "#"+tag)
		}
	}
	return caption + "\n\n" + strings.Join(tags, " ")
}

// mediaPrompts returns the source of every media spec in order
func mediaPrompts(specs []models.MediaSpec) []string {
	prompts := make([]string, 0, len(specs))
	for _, spec := range specs {
		prompts = append(prompts, spec.Source)
	}
	return prompts
}

// specDuration returns the spec's duration or def when unset
func specDuration(spec models.MediaSpec, def int) int {
	if spec.DurationSeconds == nil || *spec.DurationSeconds <= 0 {
		return def
	}
	return *spec.DurationSeconds
}

// execution tracks one executor branch from entry to result
type execution struct {
	platform models.Platform
	post     models.GeneratedPost
	branch   string
	started  time.Time
	logger   *zap.Logger
}

func startExecution(logger *zap.Logger, platform models.Platform, branch string, post models.GeneratedPost, fields ...zap.Field) *execution {
	e := &execution{
		platform: platform,
		post:     post,
		branch:   branch,
		started:  time.Now(),
		logger:   logger,
	}
	fields = append([]zap.Field{
		zap.String("branch", branch),
		zap.String("post_id", post.PostID),
		zap.String("ad_set_id", post.AdSetID),
	}, fields...)
	logger.Info("Publishing started", fields...)
	return e
}

func (e *execution) fail(err error) models.PostingResult {
	elapsed := time.Since(e.started)
	e.logger.Error("Publishing failed",
		zap.String("branch", e.branch),
		zap.String("post_id", e.post.PostID),
		zap.Duration("execution_time", elapsed),
		zap.Error(err),
	)
	return models.PostingResult{
		Success:       false,
		PostID:        e.post.PostID,
		Platform:      e.platform,
		Status:        models.PostingStatusFailed,
		ErrorMessage:  utils.ToPtr(err.Error()),
		ExecutionTime: elapsed,
	}
}

func (e *execution) succeed(platformPostID, platformURL string, mediaURLs []string) models.PostingResult {
	elapsed := time.Since(e.started)
	e.logger.Info("Publishing finished",
		zap.String("branch", e.branch),
		zap.String("post_id", e.post.PostID),
		zap.String("platform_post_id", platformPostID),
		zap.Duration("execution_time", elapsed),
	)
	return models.PostingResult{
		Success:        true,
		PostID:         e.post.PostID,
		PlatformPostID: utils.ToPtr(platformPostID),
		PlatformURL:    utils.ToPtr(platformURL),
		Platform:       e.platform,
		Status:         models.PostingStatusPublished,
		MediaURLs:      mediaURLs,
		ExecutionTime:  elapsed,
	}
}

// rejectPost builds a failure result for a post refused before any I/O
func rejectPost(platform models.Platform, post models.GeneratedPost, msg string) models.PostingResult {
	return models.PostingResult{
		Success:      false,
		PostID:       post.PostID,
		Platform:     platform,
		Status:       models.PostingStatusFailed,
		ErrorMessage: utils.ToPtr(msg),
	}
}

// awaitVideo runs video generation under the poll budget. An empty URL maps
// to emptyErr and an exhausted budget to timeoutErr.
func awaitVideo(ctx context.Context, p Poller, media MediaGenerator, initiativeID, prompt string, duration int, timeoutErr, emptyErr error) (string, error) {
	url, err := Await(ctx, p, func(ctx context.Context) (string, error) {
		return media.GenerateVideo(ctx, initiativeID, prompt, duration)
	}, timeoutErr)
	if err != nil {
		if errors.Is(err, timeoutErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", emptyErr
	}
	if url == "" {
		return "", emptyErr
	}
	return url, nil
}
