package repository

import (
	"context"

	"github.com/amirphl/Susanoo/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InitiativeTokenRepositoryImpl implements InitiativeTokenRepository interface
type InitiativeTokenRepositoryImpl struct {
	*BaseRepository[models.InitiativeToken, models.InitiativeTokenFilter]
}

// NewInitiativeTokenRepository creates a new initiative token repository
func NewInitiativeTokenRepository(db *gorm.DB) InitiativeTokenRepository {
	return &InitiativeTokenRepositoryImpl{
		BaseRepository: NewBaseRepository[models.InitiativeToken, models.InitiativeTokenFilter](db),
	}
}

// ByInitiativeID returns nil, nil when the initiative has no credentials row
func (r *InitiativeTokenRepositoryImpl) ByInitiativeID(ctx context.Context, initiativeID uuid.UUID) (*models.InitiativeToken, error) {
	rows, err := r.ByFilter(ctx, models.InitiativeTokenFilter{InitiativeID: &initiativeID}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *InitiativeTokenRepositoryImpl) applyFilter(query *gorm.DB, filter models.InitiativeTokenFilter) *gorm.DB {
	if filter.InitiativeID != nil {
		query = query.Where("initiative_id = ?", *filter.InitiativeID)
	}
	return query
}

func (r *InitiativeTokenRepositoryImpl) ByFilter(ctx context.Context, filter models.InitiativeTokenFilter, orderBy string, limit, offset int) ([]*models.InitiativeToken, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.InitiativeToken{}), filter)
	query = applyPaging(query, orderBy, "updated_at DESC", limit, offset)

	var rows []*models.InitiativeToken
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *InitiativeTokenRepositoryImpl) Count(ctx context.Context, filter models.InitiativeTokenFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.getDB(ctx).Model(&models.InitiativeToken{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *InitiativeTokenRepositoryImpl) Exists(ctx context.Context, filter models.InitiativeTokenFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
