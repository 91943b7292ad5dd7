package businessflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/Susanoo/app/services"
	"github.com/amirphl/Susanoo/config"
	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/repository"
	"github.com/amirphl/Susanoo/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const maxSummaryErrors = 5

// AdSetRun is the outcome of one ad set within a run
type AdSetRun struct {
	CampaignID   string                 `json:"campaign_id"`
	CampaignName string                 `json:"campaign_name"`
	AdSetID      string                 `json:"ad_set_id"`
	AdSetName    string                 `json:"ad_set_name"`
	Drafted      int                    `json:"drafted"`
	Results      []models.PostingResult `json:"results"`
	Error        string                 `json:"error,omitempty"`
}

// RunSummary reports what a pipeline run did
type RunSummary struct {
	InitiativeID   string                   `json:"initiative_id"`
	StartedAt      time.Time                `json:"started_at"`
	FinishedAt     time.Time                `json:"finished_at"`
	AdSets         []AdSetRun               `json:"ad_sets"`
	PostsDrafted   int                      `json:"posts_drafted"`
	Attempts       int                      `json:"attempts"`
	Successes      int                      `json:"successes"`
	Failures       int                      `json:"failures"`
	Errors         []string                 `json:"errors"`
	QuotaSnapshots map[string]QuotaSnapshot `json:"quota_snapshots"`
	ReportPath     string                   `json:"report_path,omitempty"`
}

func (s *RunSummary) addError(msg string) {
	if len(s.Errors) < maxSummaryErrors {
		s.Errors = append(s.Errors, msg)
	}
}

// QuotaPreview shows the limits and current consumption of an initiative's ad sets
type QuotaPreview struct {
	InitiativeID string                   `json:"initiative_id"`
	Limits       QuotaLimits              `json:"limits"`
	AdSets       map[string]QuotaSnapshot `json:"ad_sets"`
	Tokens       services.TokenStatus     `json:"tokens"`
}

// TokenStatusProvider reports which platforms an initiative has credentials for
type TokenStatusProvider interface {
	Status(ctx context.Context, initiativeID string) services.TokenStatus
}

// ContentPipelineFlow runs generation and publishing for one initiative
type ContentPipelineFlow interface {
	Run(ctx context.Context, initiativeID string) (*RunSummary, error)
	QuotaPreview(ctx context.Context, initiativeID string) (*QuotaPreview, error)
	ListAdSetPosts(ctx context.Context, adSetID string, limit, offset int) ([]*models.Post, error)
}

// RunReporter persists a finished run summary and returns where it went
type RunReporter interface {
	Write(summary *RunSummary) (string, error)
}

// ContentPipelineFlowImpl implements ContentPipelineFlow
type ContentPipelineFlowImpl struct {
	loader       InitiativeLoader
	generator    services.ContentGenerator
	orchestrator *PostingOrchestrator
	postRepo     repository.PostRepository
	limits       QuotaLimits
	cfg          config.PipelineConfig
	rc           *redis.Client
	cacheConfig  *config.CacheConfig
	reporter     RunReporter
	tokens       TokenStatusProvider
	logger       *zap.Logger
}

// NewContentPipelineFlow creates the pipeline. rc, reporter and tokens may be
// nil: without Redis runs are not locked, without a reporter no file is written
// and quota previews leave token status empty.
func NewContentPipelineFlow(
	loader InitiativeLoader,
	generator services.ContentGenerator,
	orchestrator *PostingOrchestrator,
	postRepo repository.PostRepository,
	limits QuotaLimits,
	cfg config.PipelineConfig,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
	reporter RunReporter,
	tokens TokenStatusProvider,
	logger *zap.Logger,
) *ContentPipelineFlowImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.GenerationAttempts <= 0 {
		cfg.GenerationAttempts = 1
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Hour
	}
	if cacheConfig == nil {
		cacheConfig = &config.CacheConfig{}
	}
	return &ContentPipelineFlowImpl{
		loader:       loader,
		generator:    generator,
		orchestrator: orchestrator,
		postRepo:     postRepo,
		limits:       limits,
		cfg:          cfg,
		rc:           rc,
		cacheConfig:  cacheConfig,
		reporter:     reporter,
		tokens:       tokens,
		logger:       logger.Named("pipeline"),
	}
}

func redisKey(cacheConfig config.CacheConfig, key string) string {
	return cacheConfig.RedisPrefix + key
}

// Run executes one full pass over the initiative's active ad sets. Per ad set
// failures are recorded in the summary; only lock and load failures are returned.
func (p *ContentPipelineFlowImpl) Run(ctx context.Context, initiativeID string) (summary *RunSummary, err error) {
	outcome := "error"
	defer func() {
		pipelineRunsTotal.WithLabelValues(outcome).Inc()
	}()

	release, err := p.acquireLock(ctx, initiativeID)
	if err != nil {
		if IsPipelineAlreadyRunning(err) {
			outcome = "locked"
		}
		return nil, err
	}
	defer release()

	summary = &RunSummary{
		InitiativeID: initiativeID,
		StartedAt:    utils.UTCNow(),
		Errors:       []string{},
	}
	p.logger.Info("Starting content pipeline run", zap.String("initiative_id", initiativeID))

	ictx, err := p.loader.Load(ctx, initiativeID)
	if err != nil {
		return nil, err
	}

	registry := NewQuotaRegistry(initiativeID, ictx.Baselines(), p.limits)
	for _, adSetID := range registry.AdSetIDs() {
		p.logger.Info("Quota baseline",
			zap.String("ad_set_id", adSetID),
			zap.String("counts", describeCounts(registry.Get(adSetID).Snapshot().Baseline)),
		)
	}

campaigns:
	for _, cc := range ictx.Campaigns {
		if len(cc.AdSets) == 0 {
			p.logger.Info("Skipping campaign without active ad sets",
				zap.String("campaign_id", cc.Campaign.ID.String()),
				zap.String("campaign_name", cc.Campaign.Name),
			)
			continue
		}
		for _, adSet := range cc.AdSets {
			if err := ctx.Err(); err != nil {
				summary.addError(fmt.Sprintf("run cancelled: %v", err))
				outcome = "cancelled"
				break campaigns
			}
			run := p.processAdSet(ctx, initiativeID, cc.Campaign, adSet, registry)
			summary.AdSets = append(summary.AdSets, run)
			summary.PostsDrafted += run.Drafted
			if run.Error != "" {
				summary.addError(run.Error)
			}
			for _, r := range run.Results {
				summary.Attempts++
				if r.Success {
					summary.Successes++
				} else {
					summary.Failures++
					summary.addError(fmt.Sprintf("%s on %s: %s", r.PostID, r.Platform, r.ErrorText()))
				}
			}
		}
	}

	summary.QuotaSnapshots = registry.ExportAll()
	summary.FinishedAt = utils.UTCNow()

	if p.reporter != nil {
		path, err := p.reporter.Write(summary)
		if err != nil {
			p.logger.Error("Failed to write run report", zap.String("initiative_id", initiativeID), zap.Error(err))
		} else {
			summary.ReportPath = path
		}
	}

	if outcome != "cancelled" {
		outcome = "completed"
	}
	p.logger.Info("Content pipeline run complete",
		zap.String("initiative_id", initiativeID),
		zap.Int("ad_sets", len(summary.AdSets)),
		zap.Int("posts_drafted", summary.PostsDrafted),
		zap.Int("attempts", summary.Attempts),
		zap.Int("successes", summary.Successes),
		zap.Int("failures", summary.Failures),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	return summary, nil
}

// QuotaPreview loads the initiative and reports remaining capacity without running anything
func (p *ContentPipelineFlowImpl) QuotaPreview(ctx context.Context, initiativeID string) (*QuotaPreview, error) {
	ictx, err := p.loader.Load(ctx, initiativeID)
	if err != nil {
		return nil, err
	}
	registry := NewQuotaRegistry(initiativeID, ictx.Baselines(), p.limits)
	preview := &QuotaPreview{
		InitiativeID: initiativeID,
		Limits:       p.limits,
		AdSets:       registry.ExportAll(),
	}
	if p.tokens != nil {
		preview.Tokens = p.tokens.Status(ctx, initiativeID)
	}
	return preview, nil
}

// ListAdSetPosts returns stored posts of an ad set, newest first
func (p *ContentPipelineFlowImpl) ListAdSetPosts(ctx context.Context, adSetID string, limit, offset int) ([]*models.Post, error) {
	id, err := utils.ParseUUID(adSetID)
	if err != nil {
		return nil, NewBusinessError("INVALID_AD_SET_ID", "Invalid ad set id", ErrInvalidAdSetID)
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	posts, err := p.postRepo.ListByAdSet(ctx, id, limit, offset)
	if err != nil {
		return nil, NewBusinessError("LIST_POSTS_FAILED", "Failed to list posts", err)
	}
	return posts, nil
}

func (p *ContentPipelineFlowImpl) acquireLock(ctx context.Context, initiativeID string) (func(), error) {
	if p.rc == nil {
		p.logger.Warn("Redis not configured, running without pipeline lock", zap.String("initiative_id", initiativeID))
		return func() {}, nil
	}

	lockKey := redisKey(*p.cacheConfig, "pipeline:lock:"+initiativeID)
	ok, err := p.rc.SetNX(ctx, lockKey, utils.UTCNow().Format(time.RFC3339), p.cfg.LockTTL).Result()
	if err != nil {
		return nil, NewBusinessError("PIPELINE_LOCK_FAILED", "Failed to acquire pipeline lock", err)
	}
	if !ok {
		return nil, NewBusinessError("PIPELINE_ALREADY_RUNNING", "Another run is in progress for this initiative", ErrPipelineAlreadyRunning)
	}
	return func() {
		_ = p.rc.Del(context.Background(), lockKey).Err()
	}, nil
}

// processAdSet generates, drafts and publishes one ad set. It never panics.
func (p *ContentPipelineFlowImpl) processAdSet(ctx context.Context, initiativeID string, campaign *models.Campaign, adSet *models.AdSet, registry *QuotaRegistry) (run AdSetRun) {
	run = AdSetRun{
		CampaignID:   campaign.ID.String(),
		CampaignName: campaign.Name,
		AdSetID:      adSet.ID.String(),
		AdSetName:    adSet.Name,
	}
	logger := p.logger.With(zap.String("ad_set_id", run.AdSetID), zap.String("ad_set_name", adSet.Name))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Ad set processing panicked", zap.Any("panic", r))
			run.Error = fmt.Sprintf("ad set %s: panic: %v", run.AdSetID, r)
		}
	}()

	tracker := registry.Get(run.AdSetID)
	if tracker == nil {
		run.Error = fmt.Sprintf("ad set %s: no quota tracker", run.AdSetID)
		return run
	}

	posts, err := p.generate(ctx, initiativeID, campaign, adSet, tracker, logger)
	if err != nil {
		run.Error = fmt.Sprintf("ad set %s: content generation failed: %v", run.AdSetID, err)
		return run
	}
	if len(posts) == 0 {
		logger.Warn("No posts generated")
		return run
	}

	drafted := p.saveDrafts(ctx, campaign, posts, logger)
	run.Drafted = len(drafted)

	p.orchestrator.BindTracker(tracker)
	defer p.orchestrator.ReleaseTracker(tracker)
	run.Results = p.orchestrator.ExecuteBatch(ctx, posts, run.AdSetID, adSet.Placements.Platforms)

	p.recordResults(ctx, drafted, run.Results, logger)
	return run
}

func (p *ContentPipelineFlowImpl) generate(ctx context.Context, initiativeID string, campaign *models.Campaign, adSet *models.AdSet, tracker *QuotaTracker, logger *zap.Logger) ([]models.GeneratedPost, error) {
	volume := p.cfg.PostsPerAdSet
	if adSet.PostVolume != nil && *adSet.PostVolume > 0 {
		volume = *adSet.PostVolume
	}
	remaining := tracker.Snapshot().Remaining
	// every post needs at least one platform slot
	if headroom := remaining.FacebookPosts + remaining.InstagramPosts; volume > headroom {
		volume = headroom
	}
	if volume <= 0 {
		logger.Info("No posting headroom left, skipping generation")
		return nil, nil
	}
	req := services.GenerationRequest{
		InitiativeID: initiativeID,
		Campaign:     campaign,
		AdSet:        adSet,
		PostVolume:   volume,
		Headroom: services.QuotaHeadroom{
			FacebookPosts:  remaining.FacebookPosts,
			InstagramPosts: remaining.InstagramPosts,
			Photos:         remaining.Photos,
			Videos:         remaining.Videos,
		},
	}

	var lastErr error
	for attempt := 1; attempt <= p.cfg.GenerationAttempts; attempt++ {
		posts, err := p.generator.GeneratePosts(ctx, req)
		if err == nil && len(posts) > 0 {
			logger.Info("Generated posts", zap.Int("count", len(posts)), zap.Int("attempt", attempt))
			return posts, nil
		}
		if err == nil {
			err = errors.New("generator returned no posts")
		}
		lastErr = err
		logger.Warn("Content generation attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

// saveDrafts persists posts as drafts and returns the ids that were stored.
// Storage errors are logged and do not stop publishing.
func (p *ContentPipelineFlowImpl) saveDrafts(ctx context.Context, campaign *models.Campaign, posts []models.GeneratedPost, logger *zap.Logger) map[string]uuid.UUID {
	stored := make(map[string]uuid.UUID, len(posts))
	for _, gp := range posts {
		draft, err := draftFromGenerated(gp, campaign)
		if err != nil {
			logger.Error("Cannot build draft", zap.String("post_id", gp.PostID), zap.Error(err))
			continue
		}
		if err := p.postRepo.Save(ctx, draft); err != nil {
			logger.Error("Failed to save draft", zap.String("post_id", gp.PostID), zap.Error(err))
			continue
		}
		stored[gp.PostID] = draft.ID
	}
	return stored
}

func draftFromGenerated(gp models.GeneratedPost, campaign *models.Campaign) (*models.Post, error) {
	id, err := uuid.Parse(gp.PostID)
	if err != nil {
		return nil, fmt.Errorf("invalid post id: %w", err)
	}
	initiativeID, err := uuid.Parse(gp.InitiativeID)
	if err != nil {
		return nil, fmt.Errorf("invalid initiative id: %w", err)
	}
	adSetID, err := uuid.Parse(gp.AdSetID)
	if err != nil {
		return nil, fmt.Errorf("invalid ad set id: %w", err)
	}

	media := make([]any, 0, len(gp.Media))
	for _, m := range gp.Media {
		spec := map[string]any{"source": m.Source, "format": m.Format}
		if m.DurationSeconds != nil {
			spec["duration_seconds"] = *m.DurationSeconds
		}
		media = append(media, spec)
	}

	return &models.Post{
		ID:            id,
		InitiativeID:  initiativeID,
		AdSetID:       adSetID,
		PostType:      gp.Type,
		TextContent:   utils.ToPtr(gp.Content.Caption),
		Hashtags:      pq.StringArray(gp.Content.Hashtags),
		Links:         pq.StringArray(gp.Content.Links),
		MediaMetadata: models.JSONMap{"media": media},
		Status:        models.PostStatusDraft,
		GenerationMetadata: models.JSONMap{
			"campaign_id":   campaign.ID.String(),
			"campaign_name": campaign.Name,
			"generated_at":  utils.UTCNow().Format(time.RFC3339),
		},
	}, nil
}

// recordResults writes platform ids back onto drafts and marks posts whose every attempt failed
func (p *ContentPipelineFlowImpl) recordResults(ctx context.Context, drafted map[string]uuid.UUID, results []models.PostingResult, logger *zap.Logger) {
	published := make(map[string]bool, len(drafted))
	attempted := make(map[string]bool, len(drafted))

	for _, r := range results {
		attempted[r.PostID] = true
		id, ok := drafted[r.PostID]
		if !ok || !r.Success {
			continue
		}
		published[r.PostID] = true

		pub := models.PostPublication{
			Platform:    r.Platform,
			MediaURLs:   r.MediaURLs,
			PublishedAt: utils.UTCNow(),
		}
		if r.PlatformPostID != nil {
			pub.PlatformPostID = *r.PlatformPostID
		}
		if r.PlatformURL != nil {
			pub.PlatformURL = *r.PlatformURL
		}
		if err := p.postRepo.MarkPublished(ctx, id, pub); err != nil {
			logger.Error("Failed to mark post published",
				zap.String("post_id", r.PostID),
				zap.String("platform", r.Platform.String()),
				zap.Error(err),
			)
		}
	}

	for postID, id := range drafted {
		if !attempted[postID] || published[postID] {
			continue
		}
		if err := p.postRepo.UpdateStatus(ctx, id, models.PostStatusFailed); err != nil {
			logger.Error("Failed to mark post failed", zap.String("post_id", postID), zap.Error(err))
		}
	}
}
