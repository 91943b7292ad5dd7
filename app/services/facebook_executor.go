package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/utils"
	"go.uber.org/zap"
)

// FacebookExecutor publishes posts to a Facebook page
type FacebookExecutor struct {
	graph  *GraphClient
	creds  CredentialProvider
	media  MediaGenerator
	poller Poller
	logger *zap.Logger
}

// NewFacebookExecutor creates a Facebook executor
func NewFacebookExecutor(graph *GraphClient, creds CredentialProvider, media MediaGenerator, poller Poller, logger *zap.Logger) *FacebookExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FacebookExecutor{
		graph:  graph,
		creds:  creds,
		media:  media,
		poller: poller,
		logger: logger.Named("facebook_executor"),
	}
}

func (e *FacebookExecutor) Platform() models.Platform {
	return models.PlatformFacebook
}

func (e *FacebookExecutor) Execute(ctx context.Context, post models.GeneratedPost) models.PostingResult {
	switch post.Type {
	case models.PostTypeImage, models.PostTypeCarousel:
		return e.executeImagePost(ctx, post)
	case models.PostTypeVideo:
		return e.executeVideoPost(ctx, post)
	case models.PostTypeText, models.PostTypeLink:
		return e.executeTextPost(ctx, post)
	default:
		return rejectPost(models.PlatformFacebook, post, fmt.Sprintf("Unsupported post type for Facebook: %s", post.Type))
	}
}

func (e *FacebookExecutor) executeImagePost(ctx context.Context, post models.GeneratedPost) models.PostingResult {
	run := startExecution(e.logger, models.PlatformFacebook, "image", post, zap.Int("media_count", len(post.Media)))

	creds, err := e.creds.FacebookCredentials(ctx, post.InitiativeID)
	if err != nil {
		return run.fail(err)
	}

	urls, err := e.media.GenerateImages(ctx, post.InitiativeID, mediaPrompts(post.Media))
	if err != nil {
		e.logger.Error("Image generation failed", zap.String("post_id", post.PostID), zap.Error(err))
		return run.fail(ErrImageGenerationFailed)
	}
	if len(urls) == 0 {
		return run.fail(ErrImageGenerationFailed)
	}

	caption := FormatCaption(post.Content.Caption, post.Content.Hashtags)

	var resp GraphResponse
	if len(urls) > 1 {
		resp, err = e.createAlbum(ctx, creds, urls, caption)
	} else {
		resp, err = e.graph.Post(ctx, creds.PageID+"/photos", creds.AccessToken, map[string]any{
			"url":     urls[0],
			"caption": caption,
		})
	}
	if err != nil {
		return run.fail(err)
	}

	return run.succeed(resp.ID(), "https://www.facebook.com/"+resp.ID(), urls)
}

// createAlbum uploads every image unpublished, then attaches all of them to one feed
// post. A failed upload abandons the album before the feed call.
func (e *FacebookExecutor) createAlbum(ctx context.Context, creds FacebookCredentials, urls []string, caption string) (GraphResponse, error) {
	attached := make([]map[string]string, 0, len(urls))
	for i, u := range urls {
		childCaption := ""
		if i == 0 {
			childCaption = caption
		}
		resp, err := e.graph.Post(ctx, creds.PageID+"/photos", creds.AccessToken, map[string]any{
			"url":       u,
			"published": false,
			"caption":   childCaption,
		})
		if err != nil {
			return nil, err
		}
		attached = append(attached, map[string]string{"media_fbid": resp.ID()})
	}

	raw, err := json.Marshal(attached)
	if err != nil {
		return nil, fmt.Errorf("failed to encode attached media: %w", err)
	}
	return e.graph.Post(ctx, creds.PageID+"/feed", creds.AccessToken, map[string]any{
		"message":        caption,
		"attached_media": string(raw),
	})
}

func (e *FacebookExecutor) executeVideoPost(ctx context.Context, post models.GeneratedPost) models.PostingResult {
	if len(post.Media) == 0 {
		return rejectPost(models.PlatformFacebook, post, ErrNoVideoMedia.Error())
	}

	spec := post.Media[0]
	duration := specDuration(spec, utils.DefaultFacebookVideoSeconds)
	run := startExecution(e.logger, models.PlatformFacebook, "video", post, zap.Int("duration_seconds", duration))

	creds, err := e.creds.FacebookCredentials(ctx, post.InitiativeID)
	if err != nil {
		return run.fail(err)
	}

	videoURL, err := awaitVideo(ctx, e.poller, e.media, post.InitiativeID, spec.Source, duration, ErrVideoGenerationTimeout, ErrVideoGenerationFailed)
	if err != nil {
		return run.fail(err)
	}

	resp, err := e.graph.Post(ctx, creds.PageID+"/videos", creds.AccessToken, map[string]any{
		"file_url":    videoURL,
		"description": FormatCaption(post.Content.Caption, post.Content.Hashtags),
	})
	if err != nil {
		return run.fail(err)
	}

	return run.succeed(resp.ID(), fmt.Sprintf("https://www.facebook.com/%s/videos/%s", creds.PageID, resp.ID()), []string{videoURL})
}

func (e *FacebookExecutor) executeTextPost(ctx context.Context, post models.GeneratedPost) models.PostingResult {
	run := startExecution(e.logger, models.PlatformFacebook, "text", post)

	creds, err := e.creds.FacebookCredentials(ctx, post.InitiativeID)
	if err != nil {
		return run.fail(err)
	}

	fields := map[string]any{
		"message": FormatCaption(post.Content.Caption, post.Content.Hashtags),
	}
	if len(post.Content.Links) > 0 {
		fields["link"] = post.Content.Links[0]
	}

	resp, err := e.graph.Post(ctx, creds.PageID+"/feed", creds.AccessToken, fields)
	if err != nil {
		return run.fail(err)
	}

	return run.succeed(resp.ID(), "https://www.facebook.com/"+resp.ID(), nil)
}
