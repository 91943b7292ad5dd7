package businessflow

import (
	"context"
	"errors"
	"sync"

	"github.com/amirphl/Susanoo/app/services"
	"github.com/amirphl/Susanoo/models"
	"github.com/google/uuid"
)

// memStore is a map backed Repository used by the flow tests
type memStore[T any, F any] struct {
	mu      sync.Mutex
	idOf    func(*T) uuid.UUID
	items   map[uuid.UUID]*T
	order   []uuid.UUID
	saveErr error
	byIDErr error
}

func newMemStore[T any, F any](idOf func(*T) uuid.UUID) *memStore[T, F] {
	return &memStore[T, F]{idOf: idOf, items: make(map[uuid.UUID]*T)}
}

func (m *memStore[T, F]) ByID(ctx context.Context, id uuid.UUID) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byIDErr != nil {
		return nil, m.byIDErr
	}
	return m.items[id], nil
}

func (m *memStore[T, F]) ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error) {
	return m.all(), nil
}

func (m *memStore[T, F]) Save(ctx context.Context, entity *T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	id := m.idOf(entity)
	if _, ok := m.items[id]; !ok {
		m.order = append(m.order, id)
	}
	m.items[id] = entity
	return nil
}

func (m *memStore[T, F]) SaveBatch(ctx context.Context, entities []*T) error {
	for _, e := range entities {
		if err := m.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore[T, F]) Count(ctx context.Context, filter F) (int64, error) {
	return int64(len(m.all())), nil
}

func (m *memStore[T, F]) Exists(ctx context.Context, filter F) (bool, error) {
	return len(m.all()) > 0, nil
}

func (m *memStore[T, F]) all() []*T {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*T, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.items[id])
	}
	return out
}

type fakeInitiativeRepo struct {
	*memStore[models.Initiative, models.InitiativeFilter]
}

type fakeCampaignRepo struct {
	*memStore[models.Campaign, models.CampaignFilter]
}

func (r *fakeCampaignRepo) ListByInitiative(ctx context.Context, initiativeID uuid.UUID) ([]*models.Campaign, error) {
	var out []*models.Campaign
	for _, c := range r.all() {
		if c.InitiativeID == initiativeID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeAdSetRepo struct {
	*memStore[models.AdSet, models.AdSetFilter]
	listErr error
}

func (r *fakeAdSetRepo) ListByInitiative(ctx context.Context, initiativeID uuid.UUID) ([]*models.AdSet, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*models.AdSet
	for _, a := range r.all() {
		if a.InitiativeID == initiativeID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakePostRepo struct {
	*memStore[models.Post, models.PostFilter]
	counts    map[uuid.UUID]models.AdSetContentCounts
	published map[uuid.UUID][]models.PostPublication
	statuses  map[uuid.UUID]models.PostStatus
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{
		memStore:  newMemStore[models.Post, models.PostFilter](func(p *models.Post) uuid.UUID { return p.ID }),
		counts:    make(map[uuid.UUID]models.AdSetContentCounts),
		published: make(map[uuid.UUID][]models.PostPublication),
		statuses:  make(map[uuid.UUID]models.PostStatus),
	}
}

func (r *fakePostRepo) ListByAdSet(ctx context.Context, adSetID uuid.UUID, limit, offset int) ([]*models.Post, error) {
	var out []*models.Post
	for _, p := range r.all() {
		if p.AdSetID == adSetID {
			out = append(out, p)
		}
	}
	if offset >= len(out) {
		return []*models.Post{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakePostRepo) MarkPublished(ctx context.Context, postID uuid.UUID, pub models.PostPublication) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published[postID] = append(r.published[postID], pub)
	r.statuses[postID] = models.PostStatusPublished
	return nil
}

func (r *fakePostRepo) UpdateStatus(ctx context.Context, postID uuid.UUID, status models.PostStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[postID] = status
	return nil
}

func (r *fakePostRepo) ContentCountsByInitiative(ctx context.Context, initiativeID uuid.UUID) (map[uuid.UUID]models.AdSetContentCounts, error) {
	return r.counts, nil
}

// fixture is one initiative with campaigns and ad sets wired into fake repos
type fixture struct {
	initiative  *models.Initiative
	initiatives *fakeInitiativeRepo
	campaigns   *fakeCampaignRepo
	adSets      *fakeAdSetRepo
	posts       *fakePostRepo
}

func newFixture() *fixture {
	f := &fixture{
		initiative:  &models.Initiative{ID: uuid.New(), Name: "Acme"},
		initiatives: &fakeInitiativeRepo{newMemStore[models.Initiative, models.InitiativeFilter](func(i *models.Initiative) uuid.UUID { return i.ID })},
		campaigns:   &fakeCampaignRepo{newMemStore[models.Campaign, models.CampaignFilter](func(c *models.Campaign) uuid.UUID { return c.ID })},
		adSets:      &fakeAdSetRepo{memStore: newMemStore[models.AdSet, models.AdSetFilter](func(a *models.AdSet) uuid.UUID { return a.ID })},
		posts:       newFakePostRepo(),
	}
	_ = f.initiatives.Save(context.Background(), f.initiative)
	return f
}

func (f *fixture) addCampaign(name string, active bool) *models.Campaign {
	c := &models.Campaign{ID: uuid.New(), InitiativeID: f.initiative.ID, Name: name, Objective: "awareness", IsActive: &active}
	_ = f.campaigns.Save(context.Background(), c)
	return c
}

func (f *fixture) addAdSet(campaign *models.Campaign, name string, active bool, placements ...string) *models.AdSet {
	a := &models.AdSet{
		ID:           uuid.New(),
		CampaignID:   campaign.ID,
		InitiativeID: f.initiative.ID,
		Name:         name,
		IsActive:     &active,
		Placements:   models.AdSetPlacements{Platforms: placements},
	}
	_ = f.adSets.Save(context.Background(), a)
	return a
}

func (f *fixture) loader() *InitiativeLoaderImpl {
	return NewInitiativeLoader(f.initiatives, f.campaigns, f.adSets, f.posts, nil)
}

// fakeGenerator returns canned posts per ad set and records requests
type fakeGenerator struct {
	mu       sync.Mutex
	posts    func(req services.GenerationRequest) []models.GeneratedPost
	failures int
	requests []services.GenerationRequest
}

func (g *fakeGenerator) GeneratePosts(ctx context.Context, req services.GenerationRequest) ([]models.GeneratedPost, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.failures > 0 {
		g.failures--
		return nil, errors.New("model returned invalid JSON")
	}
	if g.posts == nil {
		return nil, services.ErrNoPostsGenerated
	}
	return g.posts(req), nil
}

func generatedFor(req services.GenerationRequest, types ...models.PostType) []models.GeneratedPost {
	out := make([]models.GeneratedPost, 0, len(types))
	for _, t := range types {
		p := post(uuid.NewString(), t, 1)
		if t == models.PostTypeText || t == models.PostTypeLink {
			p.Media = nil
		}
		p.InitiativeID = req.InitiativeID
		p.CampaignID = req.Campaign.ID.String()
		p.AdSetID = req.AdSet.ID.String()
		out = append(out, p)
	}
	return out
}

type fakeTokenStatus services.TokenStatus

func (s fakeTokenStatus) Status(ctx context.Context, initiativeID string) services.TokenStatus {
	return services.TokenStatus(s)
}

type fakeReporter struct {
	summaries []*RunSummary
	err       error
}

func (r *fakeReporter) Write(summary *RunSummary) (string, error) {
	r.summaries = append(r.summaries, summary)
	if r.err != nil {
		return "", r.err
	}
	return "/tmp/report.xlsx", nil
}
