// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/amirphl/Susanoo/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uuid.UUID) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// InitiativeRepository defines operations for initiatives
type InitiativeRepository interface {
	Repository[models.Initiative, models.InitiativeFilter]
}

// CampaignRepository defines operations for campaigns
type CampaignRepository interface {
	Repository[models.Campaign, models.CampaignFilter]
	ListByInitiative(ctx context.Context, initiativeID uuid.UUID) ([]*models.Campaign, error)
}

// AdSetRepository defines operations for ad sets
type AdSetRepository interface {
	Repository[models.AdSet, models.AdSetFilter]
	ListByInitiative(ctx context.Context, initiativeID uuid.UUID) ([]*models.AdSet, error)
}

// PostRepository defines operations for posts
type PostRepository interface {
	Repository[models.Post, models.PostFilter]
	ListByAdSet(ctx context.Context, adSetID uuid.UUID, limit, offset int) ([]*models.Post, error)
	MarkPublished(ctx context.Context, postID uuid.UUID, pub models.PostPublication) error
	UpdateStatus(ctx context.Context, postID uuid.UUID, status models.PostStatus) error
	ContentCountsByInitiative(ctx context.Context, initiativeID uuid.UUID) (map[uuid.UUID]models.AdSetContentCounts, error)
}

// InitiativeTokenRepository defines operations for encrypted platform credentials
type InitiativeTokenRepository interface {
	Repository[models.InitiativeToken, models.InitiativeTokenFilter]
	ByInitiativeID(ctx context.Context, initiativeID uuid.UUID) (*models.InitiativeToken, error)
}

// MediaFileRepository defines operations for generated media files
type MediaFileRepository interface {
	Repository[models.MediaFile, models.MediaFileFilter]
	ByInitiativeID(ctx context.Context, initiativeID uuid.UUID, limit, offset int) ([]*models.MediaFile, error)
}
