package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/utils"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

var ErrNoPostsGenerated = errors.New("no valid posts generated")

// QuotaHeadroom is the remaining per ad set capacity shown to the model
type QuotaHeadroom struct {
	FacebookPosts  int `json:"facebook_posts"`
	InstagramPosts int `json:"instagram_posts"`
	Photos         int `json:"photos"`
	Videos         int `json:"videos"`
}

// GenerationRequest carries everything the generator knows about one ad set
type GenerationRequest struct {
	InitiativeID string
	Campaign     *models.Campaign
	AdSet        *models.AdSet
	PostVolume   int
	Headroom     QuotaHeadroom
}

// ContentGenerator produces candidate posts for an ad set
type ContentGenerator interface {
	GeneratePosts(ctx context.Context, req GenerationRequest) ([]models.GeneratedPost, error)
}

// TextModel returns a JSON document for a system and user prompt
type TextModel interface {
	GenerateJSON(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// GenAITextModel is a Gemini JSON-mode text model
type GenAITextModel struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGenAITextModel creates a Gemini text model client
func NewGenAITextModel(ctx context.Context, apiKey, model string) (*GenAITextModel, error) {
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
	return &GenAITextModel{client: client, model: model, temperature: 0.8}, nil
}

func (m *GenAITextModel) GenerateJSON(ctx context.Context, systemPrompt, prompt string) (string, error) {
	resp, err := m.client.Models.GenerateContent(ctx, m.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			ResponseMIMEType:  "application/json",
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
			Temperature:       &m.temperature,
		},
	)
	if err != nil {
		return "", fmt.Errorf("GenAI content generation failed: %w", err)
	}
	return resp.Text(), nil
}

// PostGenerator asks a text model for posts and keeps only the valid ones
type PostGenerator struct {
	model         TextModel
	validate      *validator.Validate
	maxHashtags   int
	maxPostLength int
	logger        *zap.Logger
}

// NewPostGenerator creates a post generator
func NewPostGenerator(model TextModel, maxHashtags, maxPostLength int, logger *zap.Logger) *PostGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxHashtags <= 0 {
		maxHashtags = utils.MaxHashtags
	}
	if maxPostLength <= 0 {
		maxPostLength = utils.MaxPostLength
	}
	return &PostGenerator{
		model:         model,
		validate:      NewPostValidator(),
		maxHashtags:   maxHashtags,
		maxPostLength: maxPostLength,
		logger:        logger.Named("content_generator"),
	}
}

// NewPostValidator returns a validator that also enforces media counts per post type
func NewPostValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(validateMediaCount, models.GeneratedPost{})
	return v
}

func validateMediaCount(sl validator.StructLevel) {
	post := sl.Current().Interface().(models.GeneratedPost)
	n := len(post.Media)

	switch post.Type {
	case models.PostTypeCarousel:
		if n < utils.MinCarouselItems || n > utils.MaxCarouselItems {
			sl.ReportError(post.Media, "media", "Media", "carousel_media", fmt.Sprintf("%d-%d", utils.MinCarouselItems, utils.MaxCarouselItems))
		}
	case models.PostTypeImage, models.PostTypeVideo, models.PostTypeReel, models.PostTypeStory:
		if n != 1 {
			sl.ReportError(post.Media, "media", "Media", "single_media", "1")
		}
	}
}

const contentSystemPrompt = `You are a social media content creator. You write posts for Facebook pages and Instagram business accounts.
Answer with a single JSON object of the form {"posts": [...]} and nothing else.`

type generatedPayload struct {
	Posts []models.GeneratedPost `json:"posts"`
}

func (g *PostGenerator) GeneratePosts(ctx context.Context, req GenerationRequest) ([]models.GeneratedPost, error) {
	if req.AdSet == nil {
		return nil, fmt.Errorf("ad set is required")
	}
	volume := req.PostVolume
	if volume <= 0 {
		volume = 3
	}

	raw, err := g.model.GenerateJSON(ctx, contentSystemPrompt, g.buildPrompt(req, volume))
	if err != nil {
		return nil, err
	}

	var payload generatedPayload
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode generated posts: %w", err)
	}

	campaignID := req.AdSet.CampaignID.String()
	posts := make([]models.GeneratedPost, 0, len(payload.Posts))
	for i, post := range payload.Posts {
		post = g.normalize(post)
		post.InitiativeID = req.InitiativeID
		post.CampaignID = campaignID
		post.AdSetID = req.AdSet.ID.String()
		if _, err := uuid.Parse(post.PostID); err != nil {
			post.PostID = uuid.NewString()
		}

		if err := g.validate.Struct(post); err != nil {
			g.logger.Warn("Dropping invalid generated post",
				zap.Int("index", i),
				zap.String("ad_set_id", post.AdSetID),
				zap.String("type", post.Type.String()),
				zap.Error(err),
			)
			continue
		}
		posts = append(posts, post)
		if len(posts) == volume {
			break
		}
	}

	if len(posts) == 0 {
		return nil, ErrNoPostsGenerated
	}
	return posts, nil
}

// normalize trims what the model tends to overshoot: caption length and hashtag count
func (g *PostGenerator) normalize(post models.GeneratedPost) models.GeneratedPost {
	post.Type = models.PostType(strings.ToLower(strings.TrimSpace(string(post.Type))))
	if runes := []rune(post.Content.Caption); len(runes) > g.maxPostLength {
		post.Content.Caption = string(runes[:g.maxPostLength])
	}
	post.Content.Hashtags = utils.FirstN(post.Content.Hashtags, g.maxHashtags)
	return post
}

func (g *PostGenerator) buildPrompt(req GenerationRequest, volume int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Create %d social media posts.\n\n", volume)
	if req.Campaign != nil {
		fmt.Fprintf(&b, "Campaign Name: %s\nCampaign Objective: %s\n", req.Campaign.Name, req.Campaign.Objective)
	}
	fmt.Fprintf(&b, "Ad Set: %s\n", req.AdSet.Name)
	if len(req.AdSet.Placements.Platforms) > 0 {
		fmt.Fprintf(&b, "Placements: %s\n", strings.Join(req.AdSet.Placements.Platforms, ", "))
	}

	brief := req.AdSet.CreativeBrief
	fmt.Fprintf(&b, "\nCreative Brief:\n- Theme: %s\n- Tone: %s\n- Format: %s\n- Target Audience: %s\n",
		orDefault(brief.String("theme"), "General"),
		orDefault(brief.String("tone"), "Professional"),
		orDefault(brief.String("format"), "Mixed"),
		orDefault(brief.String("target_audience"), "General"),
	)
	if links, ok := brief["links"]; ok {
		if encoded, err := json.Marshal(links); err == nil {
			fmt.Fprintf(&b, "- Links: %s\n", encoded)
		}
	}

	h := req.Headroom
	fmt.Fprintf(&b, "\nRemaining capacity: %d Facebook posts, %d Instagram posts, %d photos, %d videos. Do not plan more media than this.\n",
		h.FacebookPosts, h.InstagramPosts, h.Photos, h.Videos)

	fmt.Fprintf(&b, `
Rules:
- type is one of image, video, carousel, reel, story, text, link
- carousel posts have between %d and %d media items; image, video, reel and story posts have exactly one
- caption is at most %d characters; at most %d hashtags
- media[].url is a detailed prompt describing the visual; media[].format is png, jpg, mp4 or mov; video media may set duration_seconds

Structure:
{"posts": [{"type": "image", "content": {"caption": "...", "hashtags": ["..."], "links": []}, "media": [{"url": "...", "format": "png"}]}]}
`, utils.MinCarouselItems, utils.MaxCarouselItems, g.maxPostLength, g.maxHashtags)

	return b.String()
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
