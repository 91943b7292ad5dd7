package handlers

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/amirphl/Susanoo/app/dto"
	businessflow "github.com/amirphl/Susanoo/business_flow"
	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// PipelineHandlerInterface defines the contract for pipeline handlers
type PipelineHandlerInterface interface {
	TriggerRun(c fiber.Ctx) error
	QuotaPreview(c fiber.Ctx) error
	ListAdSetPosts(c fiber.Ctx) error
}

// PipelineHandler exposes the content pipeline to operators
type PipelineHandler struct {
	flow       businessflow.ContentPipelineFlow
	validator  *validator.Validate
	runTimeout time.Duration
	logger     *zap.Logger
}

// NewPipelineHandler creates a new pipeline handler. runTimeout bounds a
// synchronous run when the request does not ask for its own timeout.
func NewPipelineHandler(flow businessflow.ContentPipelineFlow, runTimeout time.Duration, logger *zap.Logger) *PipelineHandler {
	if runTimeout <= 0 {
		runTimeout = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PipelineHandler{
		flow:       flow,
		validator:  validator.New(),
		runTimeout: runTimeout,
		logger:     logger.Named("pipeline_handler"),
	}
}

func (h *PipelineHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *PipelineHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// TriggerRun runs the pipeline for an initiative and returns the summary
// @Router /api/v1/initiatives/{id}/runs [post]
func (h *PipelineHandler) TriggerRun(c fiber.Ctx) error {
	var req dto.RunPipelineRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
	}
	req.InitiativeID = c.Params("id")
	if err := h.validator.Struct(&req); err != nil {
		return h.validationError(c, err)
	}

	timeout := h.runTimeout
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}
	ctx, cancel := h.createRequestContextWithTimeout(c, "/api/v1/initiatives/:id/runs", timeout)
	defer cancel()

	summary, err := h.flow.Run(ctx, req.InitiativeID)
	if err != nil {
		return h.flowError(c, err, "Pipeline run failed")
	}

	h.logger.Info("Operator triggered run finished",
		zap.String("initiative_id", req.InitiativeID),
		zap.Any("operator_id", c.Locals("operator_id")),
		zap.Int("successes", summary.Successes),
		zap.Int("failures", summary.Failures),
	)
	return h.SuccessResponse(c, fiber.StatusOK, "Pipeline run completed", toRunResponse(summary))
}

// QuotaPreview reports the remaining capacity of every active ad set of an initiative
// @Router /api/v1/initiatives/{id}/quota [get]
func (h *PipelineHandler) QuotaPreview(c fiber.Ctx) error {
	id := c.Params("id")
	if err := h.validator.Var(id, "required,uuid"); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid initiative id", "INVALID_INITIATIVE_ID", nil)
	}

	ctx, cancel := h.createRequestContextWithTimeout(c, "/api/v1/initiatives/:id/quota", 30*time.Second)
	defer cancel()

	preview, err := h.flow.QuotaPreview(ctx, id)
	if err != nil {
		return h.flowError(c, err, "Failed to load quota")
	}

	limits := preview.Limits
	return h.SuccessResponse(c, fiber.StatusOK, "Quota retrieved successfully", dto.QuotaPreviewResponse{
		InitiativeID: preview.InitiativeID,
		Limits: dto.QuotaLimitsResponse{
			QuotaCountsResponse: toCountsResponse(limits.QuotaCounts),
			PhotosPerPost:       limits.PhotosPerPost,
			VideosPerPost:       limits.VideosPerPost,
		},
		AdSets: toQuotaResponses(preview.AdSets),
		Tokens: dto.TokenStatusResponse{
			Facebook:  preview.Tokens.Facebook,
			Instagram: preview.Tokens.Instagram,
		},
	})
}

// ListAdSetPosts returns stored posts of an ad set
// @Router /api/v1/ad-sets/{id}/posts [get]
func (h *PipelineHandler) ListAdSetPosts(c fiber.Ctx) error {
	var req dto.ListAdSetPostsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	req.AdSetID = c.Params("id")
	if err := h.validator.Struct(&req); err != nil {
		return h.validationError(c, err)
	}
	if req.Limit == 0 {
		req.Limit = 20
	}

	ctx, cancel := h.createRequestContextWithTimeout(c, "/api/v1/ad-sets/:id/posts", 30*time.Second)
	defer cancel()

	posts, err := h.flow.ListAdSetPosts(ctx, req.AdSetID, req.Limit, req.Offset)
	if err != nil {
		return h.flowError(c, err, "Failed to list posts")
	}

	out := make([]dto.PostResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPostResponse(p))
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Posts retrieved successfully", dto.ListAdSetPostsResponse{
		Posts:  out,
		Limit:  req.Limit,
		Offset: req.Offset,
	})
}

func (h *PipelineHandler) validationError(c fiber.Ctx, err error) error {
	var validationErrors []string
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		for _, fe := range fieldErrors {
			validationErrors = append(validationErrors, getValidationErrorMessage(fe))
		}
	}
	return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
}

func (h *PipelineHandler) flowError(c fiber.Ctx, err error, fallback string) error {
	switch {
	case businessflow.IsPipelineAlreadyRunning(err):
		return h.ErrorResponse(c, fiber.StatusConflict, "A run is already in progress for this initiative", "PIPELINE_ALREADY_RUNNING", nil)
	case businessflow.IsInvalidInitiativeID(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid initiative id", "INVALID_INITIATIVE_ID", nil)
	case businessflow.IsInitiativeNotFound(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, "Initiative not found", "INITIATIVE_NOT_FOUND", nil)
	case businessflow.IsInvalidAdSetID(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid ad set id", "INVALID_AD_SET_ID", nil)
	case errors.Is(err, context.DeadlineExceeded):
		return h.ErrorResponse(c, fiber.StatusGatewayTimeout, "Request timed out", "TIMEOUT", nil)
	}

	h.logger.Error(fallback, zap.String("path", c.Path()), zap.Error(err))
	code := "INTERNAL_ERROR"
	var be *businessflow.BusinessError
	if errors.As(err, &be) {
		code = be.Code
	}
	return h.ErrorResponse(c, fiber.StatusInternalServerError, fallback, code, nil)
}

// createRequestContextWithTimeout detaches the flow from the connection so a
// client disconnect does not abort a half finished run
func (h *PipelineHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	if operatorID, ok := c.Locals("operator_id").(string); ok {
		ctx = context.WithValue(ctx, utils.OperatorIDKey, operatorID)
	}
	return ctx, cancel
}

func toCountsResponse(c businessflow.QuotaCounts) dto.QuotaCountsResponse {
	return dto.QuotaCountsResponse{
		FacebookPosts:  c.FacebookPosts,
		InstagramPosts: c.InstagramPosts,
		Photos:         c.Photos,
		Videos:         c.Videos,
	}
}

func toQuotaResponses(snapshots map[string]businessflow.QuotaSnapshot) []dto.AdSetQuotaResponse {
	ids := make([]string, 0, len(snapshots))
	for id := range snapshots {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]dto.AdSetQuotaResponse, 0, len(ids))
	for _, id := range ids {
		s := snapshots[id]
		out = append(out, dto.AdSetQuotaResponse{
			AdSetID:   id,
			Baseline:  toCountsResponse(s.Baseline),
			Session:   toCountsResponse(s.Session),
			Remaining: toCountsResponse(s.Remaining),
		})
	}
	return out
}

func toRunResponse(s *businessflow.RunSummary) dto.RunPipelineResponse {
	adSets := make([]dto.AdSetRunResponse, 0, len(s.AdSets))
	for _, run := range s.AdSets {
		results := make([]dto.PostingResultResponse, 0, len(run.Results))
		for _, r := range run.Results {
			results = append(results, dto.PostingResultResponse{
				PostID:          r.PostID,
				Platform:        r.Platform.String(),
				Success:         r.Success,
				Status:          string(r.Status),
				PlatformPostID:  r.PlatformPostID,
				PlatformURL:     r.PlatformURL,
				Error:           r.ErrorMessage,
				DurationSeconds: r.ExecutionTime.Seconds(),
			})
		}
		adSets = append(adSets, dto.AdSetRunResponse{
			CampaignID:   run.CampaignID,
			CampaignName: run.CampaignName,
			AdSetID:      run.AdSetID,
			AdSetName:    run.AdSetName,
			Drafted:      run.Drafted,
			Error:        run.Error,
			Results:      results,
		})
	}

	return dto.RunPipelineResponse{
		InitiativeID:    s.InitiativeID,
		StartedAt:       s.StartedAt,
		FinishedAt:      s.FinishedAt,
		DurationSeconds: s.FinishedAt.Sub(s.StartedAt).Seconds(),
		PostsDrafted:    s.PostsDrafted,
		Attempts:        s.Attempts,
		Successes:       s.Successes,
		Failures:        s.Failures,
		Errors:          s.Errors,
		ReportPath:      s.ReportPath,
		AdSets:          adSets,
		Quota:           toQuotaResponses(s.QuotaSnapshots),
	}
}

func toPostResponse(p *models.Post) dto.PostResponse {
	return dto.PostResponse{
		ID:               p.ID.String(),
		AdSetID:          p.AdSetID.String(),
		PostType:         p.PostType.String(),
		Status:           p.Status.String(),
		Caption:          p.TextContent,
		Hashtags:         nonNil(p.Hashtags),
		Links:            nonNil(p.Links),
		MediaURLs:        nonNil(p.MediaURLs),
		FacebookPostID:   p.FacebookPostID,
		FacebookPostURL:  p.FacebookPostURL,
		InstagramPostID:  p.InstagramPostID,
		InstagramPostURL: p.InstagramPostURL,
		PublishedTime:    p.PublishedTime,
		CreatedAt:        p.CreatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
