package repository

import (
	"context"

	"github.com/amirphl/Susanoo/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdSetRepositoryImpl implements AdSetRepository interface
type AdSetRepositoryImpl struct {
	*BaseRepository[models.AdSet, models.AdSetFilter]
}

// NewAdSetRepository creates a new ad set repository
func NewAdSetRepository(db *gorm.DB) AdSetRepository {
	return &AdSetRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AdSet, models.AdSetFilter](db),
	}
}

// ListByInitiative returns every ad set of an initiative, oldest first
func (r *AdSetRepositoryImpl) ListByInitiative(ctx context.Context, initiativeID uuid.UUID) ([]*models.AdSet, error) {
	return r.ByFilter(ctx, models.AdSetFilter{InitiativeID: &initiativeID}, "created_at ASC", 0, 0)
}

func (r *AdSetRepositoryImpl) applyFilter(query *gorm.DB, filter models.AdSetFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.CampaignID != nil {
		query = query.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.InitiativeID != nil {
		query = query.Where("initiative_id = ?", *filter.InitiativeID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	return query
}

// ByFilter retrieves ad sets based on filter criteria
func (r *AdSetRepositoryImpl) ByFilter(ctx context.Context, filter models.AdSetFilter, orderBy string, limit, offset int) ([]*models.AdSet, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.AdSet{}), filter)
	query = applyPaging(query, orderBy, "created_at DESC", limit, offset)

	var rows []*models.AdSet
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AdSetRepositoryImpl) Count(ctx context.Context, filter models.AdSetFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.getDB(ctx).Model(&models.AdSet{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *AdSetRepositoryImpl) Exists(ctx context.Context, filter models.AdSetFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
