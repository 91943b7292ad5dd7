package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/utils"
	"go.uber.org/zap"
)

// Container status codes reported by the Instagram Graph API
const (
	containerStatusFinished = "FINISHED"
	containerStatusError    = "ERROR"
)

// InstagramExecutor publishes posts to an Instagram business account
type InstagramExecutor struct {
	graph  *GraphClient
	creds  CredentialProvider
	media  MediaGenerator
	poller Poller
	logger *zap.Logger
}

// NewInstagramExecutor creates an Instagram executor
func NewInstagramExecutor(graph *GraphClient, creds CredentialProvider, media MediaGenerator, poller Poller, logger *zap.Logger) *InstagramExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstagramExecutor{
		graph:  graph,
		creds:  creds,
		media:  media,
		poller: poller,
		logger: logger.Named("instagram_executor"),
	}
}

func (e *InstagramExecutor) Platform() models.Platform {
	return models.PlatformInstagram
}

func (e *InstagramExecutor) Execute(ctx context.Context, post models.GeneratedPost) models.PostingResult {
	switch post.Type {
	case models.PostTypeImage, models.PostTypeCarousel:
		return e.executeImagePost(ctx, post)
	case models.PostTypeVideo, models.PostTypeReel:
		return e.executeReelPost(ctx, post)
	case models.PostTypeStory:
		return e.executeStoryPost(ctx, post)
	default:
		return rejectPost(models.PlatformInstagram, post, fmt.Sprintf("Unsupported post type for Instagram: %s", post.Type))
	}
}

func (e *InstagramExecutor) executeImagePost(ctx context.Context, post models.GeneratedPost) models.PostingResult {
	run := startExecution(e.logger, models.PlatformInstagram, "image", post, zap.Int("media_count", len(post.Media)))

	creds, err := e.creds.InstagramCredentials(ctx, post.InitiativeID)
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

	var containerID string
	if len(urls) > 1 {
		containerID, err = e.createCarouselContainer(ctx, creds, urls, caption)
	} else {
		containerID, err = e.createContainer(ctx, creds, map[string]any{
			"image_url": urls[0],
			"caption":   caption,
		})
	}
	if err != nil {
		return run.fail(err)
	}

	mediaID, err := e.publish(ctx, creds, containerID)
	if err != nil {
		return run.fail(err)
	}

	return run.succeed(mediaID, fmt.Sprintf("https://www.instagram.com/p/%s/", mediaID), urls)
}

// createCarouselContainer creates one child container per image and a parent
// referencing them. Any failed child abandons the carousel.
func (e *InstagramExecutor) createCarouselContainer(ctx context.Context, creds InstagramCredentials, urls []string, caption string) (string, error) {
	children := make([]string, 0, len(urls))
	for _, u := range urls {
		id, err := e.createContainer(ctx, creds, map[string]any{
			"image_url":        u,
			"is_carousel_item": true,
		})
		if err != nil {
			return "", err
		}
		children = append(children, id)
	}

	return e.createContainer(ctx, creds, map[string]any{
		"media_type": "CAROUSEL",
		"children":   strings.Join(children, ","),
		"caption":    caption,
	})
}

func (e *InstagramExecutor) executeReelPost(ctx context.Context, post models.GeneratedPost) models.PostingResult {
	if len(post.Media) == 0 {
		return rejectPost(models.PlatformInstagram, post, ErrNoReelMedia.Error())
	}

	spec := post.Media[0]
	duration := specDuration(spec, utils.DefaultReelSeconds)
	run := startExecution(e.logger, models.PlatformInstagram, "reel", post, zap.Int("duration_seconds", duration))

	creds, err := e.creds.InstagramCredentials(ctx, post.InitiativeID)
	if err != nil {
		return run.fail(err)
	}

	videoURL, err := awaitVideo(ctx, e.poller, e.media, post.InitiativeID, spec.Source, duration, ErrReelGenerationTimeout, ErrReelGenerationFailed)
	if err != nil {
		return run.fail(err)
	}

	containerID, err := e.createContainer(ctx, creds, map[string]any{
		"media_type": "REELS",
		"video_url":  videoURL,
		"caption":    FormatCaption(post.Content.Caption, post.Content.Hashtags),
	})
	if err != nil {
		return run.fail(err)
	}

	if err := e.waitForContainer(ctx, creds, containerID); err != nil {
		return run.fail(err)
	}

	mediaID, err := e.publish(ctx, creds, containerID)
	if err != nil {
		return run.fail(err)
	}

	return run.succeed(mediaID, fmt.Sprintf("https://www.instagram.com/reel/%s/", mediaID), []string{videoURL})
}

func (e *InstagramExecutor) executeStoryPost(ctx context.Context, post models.GeneratedPost) models.PostingResult {
	run := startExecution(e.logger, models.PlatformInstagram, "story", post)

	creds, err := e.creds.InstagramCredentials(ctx, post.InitiativeID)
	if err != nil {
		return run.fail(err)
	}
	if len(post.Media) == 0 {
		return run.fail(ErrStoryMediaFailed)
	}

	spec := post.Media[0]
	isVideo := spec.IsVideoFormat()

	var mediaURL string
	if isVideo {
		duration := min(specDuration(spec, utils.MaxStorySeconds), utils.MaxStorySeconds)
		mediaURL, err = awaitVideo(ctx, e.poller, e.media, post.InitiativeID, spec.Source, duration, ErrStoryGenerationTimeout, ErrStoryMediaFailed)
		if err != nil {
			return run.fail(err)
		}
	} else {
		urls, err := e.media.GenerateImages(ctx, post.InitiativeID, []string{spec.Source})
		if err != nil {
			e.logger.Error("Story image generation failed", zap.String("post_id", post.PostID), zap.Error(err))
		}
		if len(urls) == 0 || urls[0] == "" {
			return run.fail(ErrStoryMediaFailed)
		}
		mediaURL = urls[0]
	}

	fields := map[string]any{"media_type": "STORIES"}
	if isVideo {
		fields["video_url"] = mediaURL
	} else {
		fields["image_url"] = mediaURL
	}

	containerID, err := e.createContainer(ctx, creds, fields)
	if err != nil {
		return run.fail(err)
	}

	if isVideo {
		if err := e.waitForContainer(ctx, creds, containerID); err != nil {
			return run.fail(err)
		}
	}

	mediaID, err := e.publish(ctx, creds, containerID)
	if err != nil {
		return run.fail(err)
	}

	return run.succeed(mediaID, "https://www.instagram.com/stories/", []string{mediaURL})
}

func (e *InstagramExecutor) createContainer(ctx context.Context, creds InstagramCredentials, fields map[string]any) (string, error) {
	resp, err := e.graph.Post(ctx, creds.BusinessID+"/media", creds.AccessToken, fields)
	if err != nil {
		return "", err
	}
	return resp.ID(), nil
}

func (e *InstagramExecutor) publish(ctx context.Context, creds InstagramCredentials, containerID string) (string, error) {
	resp, err := e.graph.Post(ctx, creds.BusinessID+"/media_publish", creds.AccessToken, map[string]any{
		"creation_id": containerID,
	})
	if err != nil {
		return "", err
	}
	return resp.ID(), nil
}

// waitForContainer polls a video container until the upload is processed
func (e *InstagramExecutor) waitForContainer(ctx context.Context, creds InstagramCredentials, containerID string) error {
	query := url.Values{"fields": []string{"status_code"}}
	return e.poller.Poll(ctx, func(ctx context.Context, attempt int) (bool, error) {
		resp, err := e.graph.Get(ctx, containerID, creds.AccessToken, query)
		if err != nil {
			return false, err
		}
		status := resp.String("status_code")
		e.logger.Debug("Container status",
			zap.String("container_id", containerID),
			zap.String("status_code", status),
			zap.Int("poll", attempt),
			zap.Int("max_polls", e.poller.MaxPolls),
		)
		switch status {
		case containerStatusFinished:
			return true, nil
		case containerStatusError:
			return false, ErrReelUploadFailed
		default:
			return false, nil
		}
	}, ErrReelUploadTimeout)
}
