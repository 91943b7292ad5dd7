package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/repository"
	"github.com/amirphl/Susanoo/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CampaignContext is an active campaign with its active ad sets
type CampaignContext struct {
	Campaign *models.Campaign
	AdSets   []*models.AdSet
}

// InitiativeContext is everything a pipeline run needs to know up front
type InitiativeContext struct {
	Initiative *models.Initiative
	Campaigns  []CampaignContext
	Counts     map[string]models.AdSetContentCounts
	LoadedAt   time.Time
}

// ActiveAdSets returns the number of active ad sets across campaigns
func (c *InitiativeContext) ActiveAdSets() int {
	n := 0
	for _, campaign := range c.Campaigns {
		n += len(campaign.AdSets)
	}
	return n
}

// Baselines returns the quota baseline of every active ad set. Ad sets
// without stored content get a zero baseline.
func (c *InitiativeContext) Baselines() map[string]QuotaCounts {
	out := make(map[string]QuotaCounts, c.ActiveAdSets())
	for _, campaign := range c.Campaigns {
		for _, adSet := range campaign.AdSets {
			id := adSet.ID.String()
			counts := c.Counts[id]
			out[id] = QuotaCounts{
				FacebookPosts:  counts.FacebookPosts,
				InstagramPosts: counts.InstagramPosts,
				Photos:         counts.Photos,
				Videos:         counts.Videos,
			}
		}
	}
	return out
}

// InitiativeLoader loads the run context of an initiative
type InitiativeLoader interface {
	Load(ctx context.Context, initiativeID string) (*InitiativeContext, error)
}

// InitiativeLoaderImpl reads initiatives, campaigns, ad sets and content counts from the database
type InitiativeLoaderImpl struct {
	initiativeRepo repository.InitiativeRepository
	campaignRepo   repository.CampaignRepository
	adSetRepo      repository.AdSetRepository
	postRepo       repository.PostRepository
	now            func() time.Time
	logger         *zap.Logger
}

// NewInitiativeLoader creates a database backed loader
func NewInitiativeLoader(
	initiativeRepo repository.InitiativeRepository,
	campaignRepo repository.CampaignRepository,
	adSetRepo repository.AdSetRepository,
	postRepo repository.PostRepository,
	logger *zap.Logger,
) *InitiativeLoaderImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InitiativeLoaderImpl{
		initiativeRepo: initiativeRepo,
		campaignRepo:   campaignRepo,
		adSetRepo:      adSetRepo,
		postRepo:       postRepo,
		now:            utils.UTCNow,
		logger:         logger.Named("initiative_loader"),
	}
}

func (l *InitiativeLoaderImpl) Load(ctx context.Context, initiativeID string) (*InitiativeContext, error) {
	id, err := uuid.Parse(initiativeID)
	if err != nil {
		return nil, NewBusinessError("INVALID_INITIATIVE_ID", "Invalid initiative id", ErrInvalidInitiativeID)
	}

	initiative, err := l.initiativeRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("LOAD_INITIATIVE_FAILED", "Failed to load initiative", err)
	}
	if initiative == nil {
		return nil, NewBusinessError("INITIATIVE_NOT_FOUND", "Initiative not found", ErrInitiativeNotFound)
	}

	campaigns, err := l.campaignRepo.ListByInitiative(ctx, id)
	if err != nil {
		return nil, NewBusinessError("LOAD_CAMPAIGNS_FAILED", "Failed to load campaigns", err)
	}
	adSets, err := l.adSetRepo.ListByInitiative(ctx, id)
	if err != nil {
		return nil, NewBusinessError("LOAD_AD_SETS_FAILED", "Failed to load ad sets", err)
	}
	counts, err := l.postRepo.ContentCountsByInitiative(ctx, id)
	if err != nil {
		return nil, NewBusinessError("LOAD_CONTENT_COUNTS_FAILED", "Failed to load content counts", err)
	}

	now := l.now()
	adSetsByCampaign := make(map[uuid.UUID][]*models.AdSet)
	for _, adSet := range adSets {
		if !adSet.Active(now) {
			continue
		}
		adSetsByCampaign[adSet.CampaignID] = append(adSetsByCampaign[adSet.CampaignID], adSet)
	}

	out := &InitiativeContext{
		Initiative: initiative,
		Counts:     make(map[string]models.AdSetContentCounts, len(counts)),
		LoadedAt:   now,
	}
	for adSetID, c := range counts {
		out.Counts[adSetID.String()] = c
	}

	inactive := 0
	for _, campaign := range campaigns {
		if !campaign.Active(now) {
			inactive++
			continue
		}
		out.Campaigns = append(out.Campaigns, CampaignContext{
			Campaign: campaign,
			AdSets:   adSetsByCampaign[campaign.ID],
		})
	}

	l.logger.Info("Initiative context loaded",
		zap.String("initiative_id", initiativeID),
		zap.String("initiative_name", initiative.Name),
		zap.Int("active_campaigns", len(out.Campaigns)),
		zap.Int("inactive_campaigns", inactive),
		zap.Int("active_ad_sets", out.ActiveAdSets()),
	)
	return out, nil
}

// describeCounts renders counts for log lines
func describeCounts(c QuotaCounts) string {
	return fmt.Sprintf("FB posts=%d, IG posts=%d, photos=%d, videos=%d", c.FacebookPosts, c.InstagramPosts, c.Photos, c.Videos)
}
