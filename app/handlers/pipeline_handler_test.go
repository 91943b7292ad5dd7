package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/app/services"
	businessflow "github.com/amirphl/Susanoo/business_flow"
	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFlow struct {
	runErr     error
	previewErr error
	listErr    error
	lastLimit  int
	lastOffset int
	deadline   time.Time
}

func (f *fakeFlow) Run(ctx context.Context, initiativeID string) (*businessflow.RunSummary, error) {
	f.deadline, _ = ctx.Deadline()
	if f.runErr != nil {
		return nil, f.runErr
	}
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	return &businessflow.RunSummary{
		InitiativeID: initiativeID,
		StartedAt:    start,
		FinishedAt:   start.Add(90 * time.Second),
		PostsDrafted: 1,
		Attempts:     2,
		Successes:    1,
		Failures:     1,
		Errors:       []string{"p1 on instagram: Instagram post limit exceeded"},
		AdSets: []businessflow.AdSetRun{{
			AdSetID: "as1",
			Drafted: 1,
			Results: []models.PostingResult{
				{Success: true, PostID: "p1", Platform: models.PlatformFacebook, Status: models.PostingStatusPublished, PlatformPostID: utils.ToPtr("1_2")},
				{PostID: "p1", Platform: models.PlatformInstagram, Status: models.PostingStatusFailed, ErrorMessage: utils.ToPtr("Instagram post limit exceeded")},
			},
		}},
		QuotaSnapshots: map[string]businessflow.QuotaSnapshot{
			"as1": {AdSetID: "as1", Session: businessflow.QuotaCounts{FacebookPosts: 1}},
		},
	}, nil
}

func (f *fakeFlow) QuotaPreview(ctx context.Context, initiativeID string) (*businessflow.QuotaPreview, error) {
	if f.previewErr != nil {
		return nil, f.previewErr
	}
	return &businessflow.QuotaPreview{
		InitiativeID: initiativeID,
		Limits:       businessflow.DefaultQuotaLimits(),
		AdSets: map[string]businessflow.QuotaSnapshot{
			"b": {AdSetID: "b", Remaining: businessflow.QuotaCounts{Photos: 4}},
			"a": {AdSetID: "a", Remaining: businessflow.QuotaCounts{Photos: 10}},
		},
		Tokens: services.TokenStatus{Facebook: true},
	}, nil
}

func (f *fakeFlow) ListAdSetPosts(ctx context.Context, adSetID string, limit, offset int) ([]*models.Post, error) {
	f.lastLimit, f.lastOffset = limit, offset
	if f.listErr != nil {
		return nil, f.listErr
	}
	return []*models.Post{{
		ID:          uuid.New(),
		AdSetID:     uuid.MustParse(adSetID),
		PostType:    models.PostTypeImage,
		Status:      models.PostStatusPublished,
		TextContent: utils.ToPtr("hello"),
	}}, nil
}

func newTestApp(flow businessflow.ContentPipelineFlow) *fiber.App {
	h := NewPipelineHandler(flow, time.Minute, nil)
	app := fiber.New()
	app.Post("/initiatives/:id/runs", h.TriggerRun)
	app.Get("/initiatives/:id/quota", h.QuotaPreview)
	app.Get("/ad-sets/:id/posts", h.ListAdSetPosts)
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) (int, dto.APIResponse, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out dto.APIResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	data, _ := out.Data.(map[string]any)
	return resp.StatusCode, out, data
}

func errorCode(t *testing.T, resp dto.APIResponse) string {
	t.Helper()
	detail, ok := resp.Error.(map[string]any)
	require.True(t, ok)
	code, _ := detail["code"].(string)
	return code
}

func TestTriggerRun(t *testing.T) {
	id := uuid.NewString()

	t.Run("success", func(t *testing.T) {
		flow := &fakeFlow{}
		status, resp, data := doRequest(t, newTestApp(flow), http.MethodPost, "/initiatives/"+id+"/runs", "")
		assert.Equal(t, http.StatusOK, status)
		assert.True(t, resp.Success)
		assert.Equal(t, id, data["initiative_id"])
		assert.EqualValues(t, 90, data["duration_seconds"])
		assert.EqualValues(t, 1, data["successes"])
		adSets := data["ad_sets"].([]any)
		require.Len(t, adSets, 1)
		results := adSets[0].(map[string]any)["results"].([]any)
		assert.Equal(t, "Instagram post limit exceeded", results[1].(map[string]any)["error"])
		assert.WithinDuration(t, time.Now().Add(time.Minute), flow.deadline, 5*time.Second)
	})

	t.Run("custom timeout", func(t *testing.T) {
		flow := &fakeFlow{}
		status, _, _ := doRequest(t, newTestApp(flow), http.MethodPost, "/initiatives/"+id+"/runs", `{"timeout_seconds": 600}`)
		assert.Equal(t, http.StatusOK, status)
		assert.WithinDuration(t, time.Now().Add(10*time.Minute), flow.deadline, 5*time.Second)
	})

	tests := []struct {
		name       string
		path       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "locked", path: id, err: businessflow.NewBusinessError("PIPELINE_ALREADY_RUNNING", "busy", businessflow.ErrPipelineAlreadyRunning), wantStatus: http.StatusConflict, wantCode: "PIPELINE_ALREADY_RUNNING"},
		{name: "not found", path: id, err: businessflow.NewBusinessError("INITIATIVE_NOT_FOUND", "missing", businessflow.ErrInitiativeNotFound), wantStatus: http.StatusNotFound, wantCode: "INITIATIVE_NOT_FOUND"},
		{name: "lock backend down", path: id, err: businessflow.NewBusinessError("PIPELINE_LOCK_FAILED", "lock", errors.New("dial tcp")), wantStatus: http.StatusInternalServerError, wantCode: "PIPELINE_LOCK_FAILED"},
		{name: "bad id", path: "abc", wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
		{name: "timeout too small", path: id, body: `{"timeout_seconds": 5}`, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
		{name: "malformed body", path: id, body: `{`, wantStatus: http.StatusBadRequest, wantCode: "INVALID_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp, _ := doRequest(t, newTestApp(&fakeFlow{runErr: tt.err}), http.MethodPost, "/initiatives/"+tt.path+"/runs", tt.body)
			assert.Equal(t, tt.wantStatus, status)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, errorCode(t, resp))
		})
	}
}

func TestQuotaPreviewHandler(t *testing.T) {
	status, resp, data := doRequest(t, newTestApp(&fakeFlow{}), http.MethodGet, "/initiatives/"+uuid.NewString()+"/quota", "")
	require.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Success)

	limits := data["limits"].(map[string]any)
	assert.EqualValues(t, 4, limits["facebook_posts"])
	assert.EqualValues(t, 10, limits["photos_per_post"])

	adSets := data["ad_sets"].([]any)
	require.Len(t, adSets, 2)
	assert.Equal(t, "a", adSets[0].(map[string]any)["ad_set_id"])
	assert.Equal(t, map[string]any{"facebook": true, "instagram": false}, data["tokens"])

	status, resp, _ = doRequest(t, newTestApp(&fakeFlow{}), http.MethodGet, "/initiatives/nope/quota", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_INITIATIVE_ID", errorCode(t, resp))
}

func TestListAdSetPostsHandler(t *testing.T) {
	adSetID := uuid.NewString()

	flow := &fakeFlow{}
	status, _, data := doRequest(t, newTestApp(flow), http.MethodGet, "/ad-sets/"+adSetID+"/posts?limit=5&offset=10", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 5, flow.lastLimit)
	assert.Equal(t, 10, flow.lastOffset)
	posts := data["posts"].([]any)
	require.Len(t, posts, 1)
	post := posts[0].(map[string]any)
	assert.Equal(t, "hello", post["caption"])
	assert.Equal(t, []any{}, post["hashtags"])

	flow = &fakeFlow{}
	status, _, data = doRequest(t, newTestApp(flow), http.MethodGet, "/ad-sets/"+adSetID+"/posts", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 20, flow.lastLimit)
	assert.EqualValues(t, 20, data["limit"])

	status, resp, _ := doRequest(t, newTestApp(&fakeFlow{}), http.MethodGet, "/ad-sets/"+adSetID+"/posts?limit=500", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, resp))
}
