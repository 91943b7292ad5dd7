package router

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirphl/Susanoo/app/handlers"
	"github.com/amirphl/Susanoo/app/middleware"
	"github.com/amirphl/Susanoo/app/services"
	businessflow "github.com/amirphl/Susanoo/business_flow"
	"github.com/amirphl/Susanoo/config"
	"github.com/amirphl/Susanoo/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFlow struct{}

func (stubFlow) Run(ctx context.Context, initiativeID string) (*businessflow.RunSummary, error) {
	return nil, businessflow.NewBusinessError("PIPELINE_ALREADY_RUNNING", "busy", businessflow.ErrPipelineAlreadyRunning)
}

func (stubFlow) QuotaPreview(ctx context.Context, initiativeID string) (*businessflow.QuotaPreview, error) {
	return &businessflow.QuotaPreview{InitiativeID: initiativeID, AdSets: map[string]businessflow.QuotaSnapshot{}}, nil
}

func (stubFlow) ListAdSetPosts(ctx context.Context, adSetID string, limit, offset int) ([]*models.Post, error) {
	return nil, nil
}

func newTestRouter(t *testing.T) (*FiberRouter, string) {
	t.Helper()
	ts, err := services.NewTokenService(time.Hour, "susanoo", "operators", "router-test-secret", nil, "")
	require.NoError(t, err)
	token, _, err := ts.GenerateOperatorToken("ops")
	require.NoError(t, err)

	cfg := &config.ProductionConfig{Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"}}
	r := NewFiberRouter(handlers.NewPipelineHandler(stubFlow{}, time.Minute, nil), middleware.NewAuthMiddleware(ts), cfg, nil)
	r.SetupRoutes()
	return r, token
}

func TestRoutes(t *testing.T) {
	r, token := newTestRouter(t)
	initiative := uuid.NewString()

	tests := []struct {
		name       string
		method     string
		path       string
		auth       bool
		wantStatus int
		wantBody   string
	}{
		{name: "health is public", method: http.MethodGet, path: "/api/v1/health", wantStatus: http.StatusOK, wantBody: `"status":"ok"`},
		{name: "metrics exposed", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK, wantBody: "http_requests_total"},
		{name: "quota needs token", method: http.MethodGet, path: "/api/v1/initiatives/" + initiative + "/quota", wantStatus: http.StatusUnauthorized, wantBody: "MISSING_AUTHORIZATION_HEADER"},
		{name: "quota with token", method: http.MethodGet, path: "/api/v1/initiatives/" + initiative + "/quota", auth: true, wantStatus: http.StatusOK, wantBody: initiative},
		{name: "locked run is a conflict", method: http.MethodPost, path: "/api/v1/initiatives/" + initiative + "/runs", auth: true, wantStatus: http.StatusConflict, wantBody: "PIPELINE_ALREADY_RUNNING"},
		{name: "unknown route", method: http.MethodGet, path: "/nope", wantStatus: http.StatusNotFound, wantBody: "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			resp, err := r.GetApp().Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode, string(body))
			assert.Contains(t, string(body), tt.wantBody)
			assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
		})
	}
}
