package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/Susanoo/models"
	"github.com/google/uuid"
)

type fakeCredentials struct {
	facebook    FacebookCredentials
	instagram   InstagramCredentials
	err         error
	facebookHit int
	igHit       int
}

func (f *fakeCredentials) FacebookCredentials(ctx context.Context, initiativeID string) (FacebookCredentials, error) {
	f.facebookHit++
	if f.err != nil {
		return FacebookCredentials{}, f.err
	}
	return f.facebook, nil
}

func (f *fakeCredentials) InstagramCredentials(ctx context.Context, initiativeID string) (InstagramCredentials, error) {
	f.igHit++
	if f.err != nil {
		return InstagramCredentials{}, f.err
	}
	return f.instagram, nil
}

func newFakeCredentials() *fakeCredentials {
	return &fakeCredentials{
		facebook:  FacebookCredentials{PageID: "page1", PageName: "Page", AccessToken: "fb-token"},
		instagram: InstagramCredentials{BusinessID: "ig1", Username: "brand", AccessToken: "ig-token"},
	}
}

type fakeMedia struct {
	mu           sync.Mutex
	images       []string
	imageErr     error
	video        string
	videoErr     error
	videoDelay   time.Duration
	prompts      [][]string
	videoCalls   int
	lastDuration int
}

func (f *fakeMedia) GenerateImages(ctx context.Context, initiativeID string, prompts []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompts)
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	if f.images != nil {
		return f.images, nil
	}
	urls := make([]string, 0, len(prompts))
	for i := range prompts {
		urls = append(urls, fmt.Sprintf("https://cdn.example.com/img%d.png", i))
	}
	return urls, nil
}

func (f *fakeMedia) GenerateVideo(ctx context.Context, initiativeID, prompt string, durationSeconds int) (string, error) {
	f.mu.Lock()
	f.videoCalls++
	f.lastDuration = durationSeconds
	delay, video, err := f.videoDelay, f.video, f.videoErr
	f.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return video, err
}

// graphCall is one request received by the fake Graph API
type graphCall struct {
	Method string
	Path   string
	Form   url.Values
	JSON   map[string]any
	Query  url.Values
}

// fakeGraph is an httptest server scripted per path
type fakeGraph struct {
	t      *testing.T
	mu     sync.Mutex
	calls  []graphCall
	server *httptest.Server
	// handle returns status and JSON body for a call
	handle func(call graphCall, n int) (int, any)
}

func newFakeGraph(t *testing.T, handle func(call graphCall, n int) (int, any)) *fakeGraph {
	t.Helper()
	g := &fakeGraph{t: t, handle: handle}
	g.server = httptest.NewServer(http.HandlerFunc(g.serve))
	t.Cleanup(g.server.Close)
	return g
}

func (g *fakeGraph) serve(w http.ResponseWriter, r *http.Request) {
	call := graphCall{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query()}
	body, _ := io.ReadAll(r.Body)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(body, &call.JSON)
	} else if r.Method == http.MethodPost {
		call.Form, _ = url.ParseQuery(string(body))
	}

	g.mu.Lock()
	g.calls = append(g.calls, call)
	n := len(g.calls)
	g.mu.Unlock()

	status, payload := g.handle(call, n)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (g *fakeGraph) Calls() []graphCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]graphCall(nil), g.calls...)
}

func (g *fakeGraph) URL() string {
	return g.server.URL
}

// sequentialIDs answers every call with a numbered id
func sequentialIDs(call graphCall, n int) (int, any) {
	if call.Method == http.MethodGet {
		return http.StatusOK, map[string]any{"status_code": containerStatusFinished}
	}
	return http.StatusOK, map[string]any{"id": fmt.Sprintf("id%d", n)}
}

func testPoller() Poller {
	return Poller{Interval: time.Millisecond, MaxPolls: 200}
}

func samplePost(postType models.PostType, media ...models.MediaSpec) models.GeneratedPost {
	return models.GeneratedPost{
		PostID:       uuid.NewString(),
		InitiativeID: uuid.NewString(),
		CampaignID:   uuid.NewString(),
		AdSetID:      uuid.NewString(),
		Type:         postType,
		Content: models.PostContent{
			Caption:  "Hello",
			Hashtags: []string{"go", "#fast"},
		},
		Media: media,
	}
}

func imageSpecs(n int) []models.MediaSpec {
	specs := make([]models.MediaSpec, 0, n)
	for i := 0; i < n; i++ {
		specs = append(specs, models.MediaSpec{Source: "a product photo", Format: "png"})
	}
	return specs
}

type fakeTokenRepo struct {
	rows  map[uuid.UUID]*models.InitiativeToken
	err   error
	calls int
}

func (f *fakeTokenRepo) ByInitiativeID(ctx context.Context, initiativeID uuid.UUID) (*models.InitiativeToken, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rows[initiativeID], nil
}

func (f *fakeTokenRepo) ByID(ctx context.Context, id uuid.UUID) (*models.InitiativeToken, error) {
	for _, row := range f.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return nil, nil
}

func (f *fakeTokenRepo) ByFilter(ctx context.Context, filter models.InitiativeTokenFilter, orderBy string, limit, offset int) ([]*models.InitiativeToken, error) {
	var out []*models.InitiativeToken
	for _, row := range f.rows {
		if filter.InitiativeID == nil || row.InitiativeID == *filter.InitiativeID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeTokenRepo) Save(ctx context.Context, entity *models.InitiativeToken) error {
	if f.rows == nil {
		f.rows = map[uuid.UUID]*models.InitiativeToken{}
	}
	f.rows[entity.InitiativeID] = entity
	return nil
}

func (f *fakeTokenRepo) SaveBatch(ctx context.Context, entities []*models.InitiativeToken) error {
	for _, e := range entities {
		_ = f.Save(ctx, e)
	}
	return nil
}

func (f *fakeTokenRepo) Count(ctx context.Context, filter models.InitiativeTokenFilter) (int64, error) {
	rows, _ := f.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), nil
}

func (f *fakeTokenRepo) Exists(ctx context.Context, filter models.InitiativeTokenFilter) (bool, error) {
	n, _ := f.Count(ctx, filter)
	return n > 0, nil
}
