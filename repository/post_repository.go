package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/Susanoo/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// PostRepositoryImpl implements PostRepository interface
type PostRepositoryImpl struct {
	*BaseRepository[models.Post, models.PostFilter]
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &PostRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Post, models.PostFilter](db),
	}
}

// ListByAdSet returns the newest posts of an ad set first
func (r *PostRepositoryImpl) ListByAdSet(ctx context.Context, adSetID uuid.UUID, limit, offset int) ([]*models.Post, error) {
	return r.ByFilter(ctx, models.PostFilter{AdSetID: &adSetID}, "created_at DESC", limit, offset)
}

// MarkPublished records the platform id and URL of a published post. A post
// published to both platforms keeps both ids; media URLs are written once.
func (r *PostRepositoryImpl) MarkPublished(ctx context.Context, postID uuid.UUID, pub models.PostPublication) error {
	fields := map[string]any{
		"status":         models.PostStatusPublished,
		"is_published":   true,
		"published_time": pub.PublishedAt,
		"updated_at":     pub.PublishedAt,
	}
	switch pub.Platform {
	case models.PlatformFacebook:
		fields["facebook_post_id"] = pub.PlatformPostID
		fields["facebook_post_url"] = pub.PlatformURL
	case models.PlatformInstagram:
		fields["instagram_post_id"] = pub.PlatformPostID
		fields["instagram_post_url"] = pub.PlatformURL
	default:
		return fmt.Errorf("unknown platform %q", pub.Platform)
	}
	if len(pub.MediaURLs) > 0 {
		fields["media_urls"] = gorm.Expr("CASE WHEN cardinality(media_urls) > 0 THEN media_urls ELSE ? END", pq.StringArray(pub.MediaURLs))
	}
	return r.UpdateFields(ctx, postID, fields)
}

// UpdateStatus sets the lifecycle status of a post
func (r *PostRepositoryImpl) UpdateStatus(ctx context.Context, postID uuid.UUID, status models.PostStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid PostStatus: %s", status)
	}
	return r.UpdateFields(ctx, postID, map[string]any{
		"status":     status,
		"updated_at": time.Now().UTC(),
	})
}

type contentCountRow struct {
	AdSetID        uuid.UUID
	FacebookPosts  int
	InstagramPosts int
	Photos         int
	Videos         int
	Drafts         int
	Published      int
}

// ContentCountsByInitiative aggregates what each ad set of an initiative has
// already consumed. Photos and videos count stored media URLs by post type;
// story media is left out, so stories only weigh on the run that posts them.
func (r *PostRepositoryImpl) ContentCountsByInitiative(ctx context.Context, initiativeID uuid.UUID) (map[uuid.UUID]models.AdSetContentCounts, error) {
	const query = `
SELECT
	ad_set_id,
	COUNT(*) FILTER (WHERE COALESCE(facebook_post_id, '') <> '') AS facebook_posts,
	COUNT(*) FILTER (WHERE COALESCE(instagram_post_id, '') <> '') AS instagram_posts,
	COALESCE(SUM(COALESCE(cardinality(media_urls), 0)) FILTER (WHERE post_type IN ('image', 'carousel')), 0) AS photos,
	COALESCE(SUM(COALESCE(cardinality(media_urls), 0)) FILTER (WHERE post_type IN ('video', 'reel')), 0) AS videos,
	COUNT(*) FILTER (WHERE status = 'draft') AS drafts,
	COUNT(*) FILTER (WHERE is_published) AS published
FROM posts
WHERE initiative_id = ?
GROUP BY ad_set_id`

	var rows []contentCountRow
	if err := r.getDB(ctx).Raw(query, initiativeID).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count content for initiative %s: %w", initiativeID, err)
	}

	out := make(map[uuid.UUID]models.AdSetContentCounts, len(rows))
	for _, row := range rows {
		out[row.AdSetID] = models.AdSetContentCounts{
			AdSetID:        row.AdSetID,
			FacebookPosts:  row.FacebookPosts,
			InstagramPosts: row.InstagramPosts,
			Photos:         row.Photos,
			Videos:         row.Videos,
			Drafts:         row.Drafts,
			Published:      row.Published,
		}
	}
	return out, nil
}

func (r *PostRepositoryImpl) applyFilter(query *gorm.DB, filter models.PostFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.InitiativeID != nil {
		query = query.Where("initiative_id = ?", *filter.InitiativeID)
	}
	if filter.AdSetID != nil {
		query = query.Where("ad_set_id = ?", *filter.AdSetID)
	}
	if filter.PostType != nil {
		query = query.Where("post_type = ?", *filter.PostType)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.IsPublished != nil {
		query = query.Where("is_published = ?", *filter.IsPublished)
	}
	return query
}

// ByFilter retrieves posts based on filter criteria
func (r *PostRepositoryImpl) ByFilter(ctx context.Context, filter models.PostFilter, orderBy string, limit, offset int) ([]*models.Post, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.Post{}), filter)
	query = applyPaging(query, orderBy, "created_at DESC", limit, offset)

	var rows []*models.Post
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *PostRepositoryImpl) Count(ctx context.Context, filter models.PostFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.getDB(ctx).Model(&models.Post{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostRepositoryImpl) Exists(ctx context.Context, filter models.PostFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
