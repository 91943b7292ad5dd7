package businessflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/Susanoo/app/services"
	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/utils"
	"go.uber.org/zap"
)

// PostingOrchestrator publishes batches of generated posts to their target
// platforms, gating every publish on the quota tracker bound for that ad set.
// One orchestrator serves concurrent runs: bindings are keyed by ad set, so a
// batch is only ever charged to its own ad set's tracker.
type PostingOrchestrator struct {
	executors map[models.Platform]services.PlatformExecutor
	logger    *zap.Logger

	mu       sync.RWMutex
	trackers map[string]*QuotaTracker
}

// NewPostingOrchestrator creates an orchestrator over the given executors
func NewPostingOrchestrator(executors []services.PlatformExecutor, logger *zap.Logger) *PostingOrchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	byPlatform := make(map[models.Platform]services.PlatformExecutor, len(executors))
	for _, exec := range executors {
		byPlatform[exec.Platform()] = exec
	}
	return &PostingOrchestrator{
		executors: byPlatform,
		logger:    logger.Named("posting"),
		trackers:  make(map[string]*QuotaTracker),
	}
}

// BindTracker swaps in the tracker of the ad set about to be published,
// replacing any earlier binding for the same ad set
func (o *PostingOrchestrator) BindTracker(tracker *QuotaTracker) {
	if tracker == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.trackers[tracker.AdSetID()] = tracker
}

// ReleaseTracker drops the binding if it still points at tracker
func (o *PostingOrchestrator) ReleaseTracker(tracker *QuotaTracker) {
	if tracker == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.trackers[tracker.AdSetID()] == tracker {
		delete(o.trackers, tracker.AdSetID())
	}
}

func (o *PostingOrchestrator) boundTracker(adSetID string) *QuotaTracker {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.trackers[adSetID]
}

// DeterminePlatforms resolves the target platforms of a post. Hints, when
// present, are authoritative; otherwise the post type decides.
func DeterminePlatforms(post models.GeneratedPost, hints []string) []models.Platform {
	platforms := make([]models.Platform, 0, 2)

	if len(hints) > 0 {
		var facebook, instagram bool
		for _, hint := range hints {
			h := strings.ToLower(hint)
			facebook = facebook || strings.Contains(h, "facebook")
			instagram = instagram || strings.Contains(h, "instagram")
		}
		if facebook {
			platforms = append(platforms, models.PlatformFacebook)
		}
		if instagram {
			platforms = append(platforms, models.PlatformInstagram)
		}
		return platforms
	}

	switch post.Type {
	case models.PostTypeReel, models.PostTypeStory:
		return append(platforms, models.PlatformInstagram)
	case models.PostTypeText, models.PostTypeLink:
		return append(platforms, models.PlatformFacebook)
	default:
		return append(platforms, models.PlatformFacebook, models.PlatformInstagram)
	}
}

// mediaReservation returns the media quota a post consumes, or zero count when none.
// Story media is charged for the current run only: the next run's baseline
// counts media of image, carousel, video and reel posts, not stories.
func mediaReservation(post models.GeneratedPost) (QuotaKind, int) {
	switch post.Type {
	case models.PostTypeImage, models.PostTypeCarousel:
		return QuotaPhotos, len(post.Media)
	case models.PostTypeVideo, models.PostTypeReel:
		return QuotaVideos, 1
	case models.PostTypeStory:
		if len(post.Media) == 0 {
			return QuotaPhotos, 0
		}
		if post.Media[0].IsVideoFormat() {
			return QuotaVideos, 1
		}
		return QuotaPhotos, len(post.Media)
	}
	return QuotaPhotos, 0
}

func platformQuotaKind(platform models.Platform) QuotaKind {
	if platform == models.PlatformInstagram {
		return QuotaInstagramPosts
	}
	return QuotaFacebookPosts
}

// ExecuteBatch publishes posts in list order and returns one result per
// (post, platform) pair. It never returns early and never panics.
func (o *PostingOrchestrator) ExecuteBatch(ctx context.Context, posts []models.GeneratedPost, adSetID string, hints []string) []models.PostingResult {
	tracker := o.boundTracker(adSetID)
	if tracker == nil {
		o.logger.Warn("No quota tracker bound, publishing without quota checks", zap.String("ad_set_id", adSetID))
	}

	o.logger.Info("Executing posting batch",
		zap.String("ad_set_id", adSetID),
		zap.Int("posts", len(posts)),
		zap.Strings("placements", hints),
	)

	results := make([]models.PostingResult, 0, len(posts)*2)
	for _, post := range posts {
		results = append(results, o.executePost(ctx, tracker, post, hints)...)
	}

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	o.logger.Info("Posting batch complete",
		zap.String("ad_set_id", adSetID),
		zap.Int("attempts", len(results)),
		zap.Int("successful", succeeded),
		zap.Int("failed", len(results)-succeeded),
	)
	for _, r := range results {
		if !r.Success {
			o.logger.Error("Post failed",
				zap.String("post_id", r.PostID),
				zap.String("platform", r.Platform.String()),
				zap.String("error", r.ErrorText()),
			)
		}
	}
	return results
}

func (o *PostingOrchestrator) executePost(ctx context.Context, tracker *QuotaTracker, post models.GeneratedPost, hints []string) []models.PostingResult {
	platforms := DeterminePlatforms(post, hints)
	if len(platforms) == 0 {
		o.logger.Warn("No target platform for post", zap.String("post_id", post.PostID), zap.Strings("placements", hints))
		return nil
	}

	mediaKind, mediaCount := mediaReservation(post)
	if tracker != nil && mediaCount > 0 {
		if err := tracker.TryReserve(mediaKind, mediaCount, true); err != nil {
			quotaRejectionsTotal.WithLabelValues(string(mediaKind)).Inc()
			results := make([]models.PostingResult, 0, len(platforms))
			for _, platform := range platforms {
				results = append(results, quotaFailure(post, platform, err))
			}
			return results
		}
	}

	results := make([]models.PostingResult, 0, len(platforms))
	anySucceeded := false
	for _, platform := range platforms {
		kind := platformQuotaKind(platform)
		if tracker != nil {
			if err := tracker.TryReserve(kind, 1, false); err != nil {
				quotaRejectionsTotal.WithLabelValues(string(kind)).Inc()
				results = append(results, quotaFailure(post, platform, err))
				continue
			}
		}

		result := o.dispatch(ctx, platform, post)
		postingAttemptsTotal.WithLabelValues(platform.String(), post.Type.String(), string(result.Status)).Inc()
		postingDuration.WithLabelValues(platform.String()).Observe(result.ExecutionTime.Seconds())

		if result.Success {
			anySucceeded = true
		} else if tracker != nil {
			tracker.Rollback(kind, 1)
		}
		results = append(results, result)
	}

	if tracker != nil && mediaCount > 0 && !anySucceeded {
		tracker.Rollback(mediaKind, mediaCount)
	}
	return results
}

// dispatch runs one executor and turns a panic into a failure result
func (o *PostingOrchestrator) dispatch(ctx context.Context, platform models.Platform, post models.GeneratedPost) (result models.PostingResult) {
	start := time.Now()
	exec, ok := o.executors[platform]
	if !ok {
		return failureResult(post, platform, fmt.Sprintf("No executor configured for %s", platform), time.Since(start))
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Platform executor panicked",
				zap.String("platform", platform.String()),
				zap.String("post_id", post.PostID),
				zap.Any("panic", r),
			)
			result = failureResult(post, platform, fmt.Sprintf("%s executor panicked: %v", platform, r), time.Since(start))
		}
	}()

	result = exec.Execute(ctx, post)
	result.Platform = platform
	if result.PostID == "" {
		result.PostID = post.PostID
	}
	return result
}

func quotaFailure(post models.GeneratedPost, platform models.Platform, err error) models.PostingResult {
	return failureResult(post, platform, err.Error(), 0)
}

func failureResult(post models.GeneratedPost, platform models.Platform, msg string, elapsed time.Duration) models.PostingResult {
	return models.PostingResult{
		Success:       false,
		PostID:        post.PostID,
		Platform:      platform,
		Status:        models.PostingStatusFailed,
		ErrorMessage:  utils.ToPtr(msg),
		ExecutionTime: elapsed,
	}
}
