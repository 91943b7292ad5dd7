package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/repository"
	"github.com/amirphl/Susanoo/utils"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

var ErrEmptyGeneration = errors.New("model returned no media")

// GeneratedAsset is raw media returned by a generation backend
type GeneratedAsset struct {
	Data     []byte
	MIMEType string
}

// MediaBackend produces raw media bytes from prompts
type MediaBackend interface {
	GenerateImage(ctx context.Context, prompt string) (*GeneratedAsset, error)
	GenerateVideo(ctx context.Context, prompt string, durationSeconds int, aspectRatio string) (*GeneratedAsset, error)
}

// GenAIBackend generates images with Imagen and videos with Veo
type GenAIBackend struct {
	client     *genai.Client
	imageModel string
	videoModel string
	poller     Poller
}

// NewGenAIBackend creates a Gemini API backend
func NewGenAIBackend(ctx context.Context, apiKey, imageModel, videoModel string, poller Poller) (*GenAIBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAIBackend{
		client:     client,
		imageModel: imageModel,
		videoModel: videoModel,
		poller:     poller,
	}, nil
}

func (b *GenAIBackend) GenerateImage(ctx context.Context, prompt string) (*GeneratedAsset, error) {
	resp, err := b.client.Models.GenerateImages(ctx, b.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    "1:1",
		OutputMIMEType: "image/png",
	})
	if err != nil {
		return nil, fmt.Errorf("GenAI image generation failed: %w", err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil || len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
		return nil, ErrEmptyGeneration
	}
	img := resp.GeneratedImages[0].Image
	return &GeneratedAsset{Data: img.ImageBytes, MIMEType: img.MIMEType}, nil
}

// GenerateVideo starts a Veo operation and polls it to completion
func (b *GenAIBackend) GenerateVideo(ctx context.Context, prompt string, durationSeconds int, aspectRatio string) (*GeneratedAsset, error) {
	duration := int32(durationSeconds)
	op, err := b.client.Models.GenerateVideos(ctx, b.videoModel, prompt, nil, &genai.GenerateVideosConfig{
		NumberOfVideos:  1,
		DurationSeconds: &duration,
		AspectRatio:     aspectRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("GenAI video generation failed: %w", err)
	}

	err = b.poller.Poll(ctx, func(ctx context.Context, attempt int) (bool, error) {
		if op.Done {
			return true, nil
		}
		next, err := b.client.Operations.GetVideosOperation(ctx, op, nil)
		if err != nil {
			return false, fmt.Errorf("failed to poll video operation: %w", err)
		}
		op = next
		return op.Done, nil
	}, ErrVideoGenerationTimeout)
	if err != nil {
		return nil, err
	}

	if len(op.Error) > 0 {
		return nil, fmt.Errorf("video operation %s failed: %v", op.Name, op.Error["message"])
	}
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 || op.Response.GeneratedVideos[0].Video == nil {
		return nil, ErrEmptyGeneration
	}

	generated := op.Response.GeneratedVideos[0]
	video := generated.Video
	if len(video.VideoBytes) == 0 {
		data, err := b.client.Files.Download(ctx, genai.NewDownloadURIFromGeneratedVideo(generated), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to download generated video: %w", err)
		}
		return &GeneratedAsset{Data: data, MIMEType: video.MIMEType}, nil
	}
	return &GeneratedAsset{Data: video.VideoBytes, MIMEType: video.MIMEType}, nil
}

// MediaService implements MediaGenerator on top of a backend, local storage
// and the media_files table.
type MediaService struct {
	backend     MediaBackend
	storage     *MediaStorage
	files       repository.MediaFileRepository
	placeholder bool
	logger      *zap.Logger
}

// NewMediaService creates a media service; files may be nil to skip bookkeeping
func NewMediaService(backend MediaBackend, storage *MediaStorage, files repository.MediaFileRepository, placeholderFallback bool, logger *zap.Logger) *MediaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaService{
		backend:     backend,
		storage:     storage,
		files:       files,
		placeholder: placeholderFallback,
		logger:      logger.Named("media"),
	}
}

// GenerateImages generates one image per prompt. Failed prompts are skipped,
// so the result may be shorter than prompts.
func (s *MediaService) GenerateImages(ctx context.Context, initiativeID string, prompts []string) ([]string, error) {
	urls := make([]string, 0, len(prompts))
	for _, prompt := range prompts {
		if err := ctx.Err(); err != nil {
			return urls, err
		}

		asset, err := s.backend.GenerateImage(ctx, prompt)
		if err != nil || asset == nil || len(asset.Data) == 0 {
			s.logger.Error("Failed to generate image", zap.String("prompt", prompt), zap.Error(err))
			if !s.placeholder {
				continue
			}
			s.logger.Warn("Using placeholder image", zap.String("prompt", prompt))
			asset = &GeneratedAsset{Data: placeholderImage(1024), MIMEType: "image/png"}
		}

		stored, err := s.storage.SaveImage(initiativeID, asset.Data, asset.MIMEType)
		if err != nil {
			s.logger.Error("Failed to store image", zap.String("initiative_id", initiativeID), zap.Error(err))
			continue
		}
		s.record(ctx, initiativeID, models.MediaFileTypeImage, prompt, stored, nil)
		urls = append(urls, stored.PublicURL)
	}
	return urls, nil
}

// GenerateVideo generates one video and returns its public URL. An empty URL
// with a nil error means the backend produced nothing.
func (s *MediaService) GenerateVideo(ctx context.Context, initiativeID, prompt string, durationSeconds int) (string, error) {
	duration := max(utils.MinVideoSeconds, min(utils.MaxVideoSeconds, durationSeconds))
	aspectRatio, fileType := "16:9", models.MediaFileTypeVideo
	if duration <= utils.MaxStorySeconds {
		aspectRatio, fileType = "9:16", models.MediaFileTypeReel
	}

	asset, err := s.backend.GenerateVideo(ctx, prompt, duration, aspectRatio)
	if err != nil {
		if errors.Is(err, ErrEmptyGeneration) {
			return "", nil
		}
		return "", err
	}
	if asset == nil || len(asset.Data) == 0 {
		return "", nil
	}

	stored, err := s.storage.SaveVideo(initiativeID, asset.Data, asset.MIMEType)
	if err != nil {
		return "", err
	}
	s.record(ctx, initiativeID, fileType, prompt, stored, &duration)
	return stored.PublicURL, nil
}

func (s *MediaService) record(ctx context.Context, initiativeID string, fileType models.MediaFileType, prompt string, stored *StoredMedia, duration *int) {
	if s.files == nil {
		return
	}
	id, err := utils.ParseUUID(initiativeID)
	if err != nil {
		s.logger.Warn("Skipping media file record for invalid initiative id", zap.String("initiative_id", initiativeID))
		return
	}

	file := &models.MediaFile{
		InitiativeID:    id,
		FileType:        fileType,
		StoragePath:     stored.StoragePath,
		PublicURL:       stored.PublicURL,
		MimeType:        stored.MimeType,
		FileSizeBytes:   stored.SizeBytes,
		Width:           stored.Width,
		Height:          stored.Height,
		DurationSeconds: duration,
		PromptUsed:      utils.ToPtr(prompt),
	}
	if err := s.files.Save(ctx, file); err != nil {
		s.logger.Error("Failed to record media file", zap.String("public_url", stored.PublicURL), zap.Error(err))
	}
}
