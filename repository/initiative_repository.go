package repository

import (
	"context"

	"github.com/amirphl/Susanoo/models"
	"gorm.io/gorm"
)

// InitiativeRepositoryImpl implements InitiativeRepository interface
type InitiativeRepositoryImpl struct {
	*BaseRepository[models.Initiative, models.InitiativeFilter]
}

// NewInitiativeRepository creates a new initiative repository
func NewInitiativeRepository(db *gorm.DB) InitiativeRepository {
	return &InitiativeRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Initiative, models.InitiativeFilter](db),
	}
}

func (r *InitiativeRepositoryImpl) applyFilter(query *gorm.DB, filter models.InitiativeFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	return query
}

// ByFilter retrieves initiatives based on filter criteria
func (r *InitiativeRepositoryImpl) ByFilter(ctx context.Context, filter models.InitiativeFilter, orderBy string, limit, offset int) ([]*models.Initiative, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.Initiative{}), filter)
	query = applyPaging(query, orderBy, "created_at DESC", limit, offset)

	var rows []*models.Initiative
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *InitiativeRepositoryImpl) Count(ctx context.Context, filter models.InitiativeFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.getDB(ctx).Model(&models.Initiative{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *InitiativeRepositoryImpl) Exists(ctx context.Context, filter models.InitiativeFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
