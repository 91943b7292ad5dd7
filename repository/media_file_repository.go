package repository

import (
	"context"

	"github.com/amirphl/Susanoo/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MediaFileRepositoryImpl implements MediaFileRepository interface.
type MediaFileRepositoryImpl struct {
	*BaseRepository[models.MediaFile, models.MediaFileFilter]
}

// NewMediaFileRepository creates a new media file repository.
func NewMediaFileRepository(db *gorm.DB) MediaFileRepository {
	return &MediaFileRepositoryImpl{
		BaseRepository: NewBaseRepository[models.MediaFile, models.MediaFileFilter](db),
	}
}

// ByInitiativeID retrieves media files generated for an initiative.
func (r *MediaFileRepositoryImpl) ByInitiativeID(ctx context.Context, initiativeID uuid.UUID, limit, offset int) ([]*models.MediaFile, error) {
	return r.ByFilter(ctx, models.MediaFileFilter{InitiativeID: &initiativeID}, "created_at DESC", limit, offset)
}

// applyFilter applies filter criteria to a GORM query.
func (r *MediaFileRepositoryImpl) applyFilter(query *gorm.DB, filter models.MediaFileFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.InitiativeID != nil {
		query = query.Where("initiative_id = ?", *filter.InitiativeID)
	}
	if filter.FileType != nil {
		query = query.Where("file_type = ?", *filter.FileType)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves media files based on filter criteria.
func (r *MediaFileRepositoryImpl) ByFilter(ctx context.Context, filter models.MediaFileFilter, orderBy string, limit, offset int) ([]*models.MediaFile, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.MediaFile{}), filter)
	query = applyPaging(query, orderBy, "created_at DESC", limit, offset)

	var rows []*models.MediaFile
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of media files matching filter.
func (r *MediaFileRepositoryImpl) Count(ctx context.Context, filter models.MediaFileFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.getDB(ctx).Model(&models.MediaFile{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any media file matches the filter.
func (r *MediaFileRepositoryImpl) Exists(ctx context.Context, filter models.MediaFileFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
