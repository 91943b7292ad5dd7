package businessflow

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/amirphl/Susanoo/config"
)

// QuotaKind names a per ad set counter
type QuotaKind string

const (
	QuotaFacebookPosts  QuotaKind = "facebook_posts"
	QuotaInstagramPosts QuotaKind = "instagram_posts"
	QuotaPhotos         QuotaKind = "photos"
	QuotaVideos         QuotaKind = "videos"
)

// QuotaKinds lists the tracked kinds in report order
var QuotaKinds = []QuotaKind{QuotaFacebookPosts, QuotaInstagramPosts, QuotaPhotos, QuotaVideos}

func (k QuotaKind) label() string {
	switch k {
	case QuotaFacebookPosts:
		return "Facebook post"
	case QuotaInstagramPosts:
		return "Instagram post"
	case QuotaPhotos:
		return "Photo"
	case QuotaVideos:
		return "Video"
	}
	return string(k)
}

// QuotaCounts holds one number per kind
type QuotaCounts struct {
	FacebookPosts  int `json:"facebook_posts"`
	InstagramPosts int `json:"instagram_posts"`
	Photos         int `json:"photos"`
	Videos         int `json:"videos"`
}

// Get returns the count for kind and false for unknown kinds
func (c QuotaCounts) Get(kind QuotaKind) (int, bool) {
	switch kind {
	case QuotaFacebookPosts:
		return c.FacebookPosts, true
	case QuotaInstagramPosts:
		return c.InstagramPosts, true
	case QuotaPhotos:
		return c.Photos, true
	case QuotaVideos:
		return c.Videos, true
	}
	return 0, false
}

func (c *QuotaCounts) add(kind QuotaKind, delta int) {
	switch kind {
	case QuotaFacebookPosts:
		c.FacebookPosts += delta
	case QuotaInstagramPosts:
		c.InstagramPosts += delta
	case QuotaPhotos:
		c.Photos += delta
	case QuotaVideos:
		c.Videos += delta
	}
}

// QuotaLimits are the ad set ceilings plus the per post media ceilings
type QuotaLimits struct {
	QuotaCounts
	PhotosPerPost int `json:"photos_per_post"`
	VideosPerPost int `json:"videos_per_post"`
}

// DefaultQuotaLimits returns the stock ceilings
func DefaultQuotaLimits() QuotaLimits {
	return QuotaLimits{
		QuotaCounts:   QuotaCounts{FacebookPosts: 4, InstagramPosts: 4, Photos: 10, Videos: 2},
		PhotosPerPost: 10,
		VideosPerPost: 1,
	}
}

// QuotaLimitsFromConfig maps the quota config section onto limits
func QuotaLimitsFromConfig(cfg config.QuotaConfig) QuotaLimits {
	return QuotaLimits{
		QuotaCounts: QuotaCounts{
			FacebookPosts:  cfg.MaxFacebookPostsPerAdSet,
			InstagramPosts: cfg.MaxInstagramPostsPerAdSet,
			Photos:         cfg.MaxPhotosPerAdSet,
			Videos:         cfg.MaxVideosPerAdSet,
		},
		PhotosPerPost: cfg.MaxPhotosPerPost,
		VideosPerPost: cfg.MaxVideosPerPost,
	}
}

func (l QuotaLimits) perPost(kind QuotaKind) (int, bool) {
	switch kind {
	case QuotaPhotos:
		return l.PhotosPerPost, true
	case QuotaVideos:
		return l.VideosPerPost, true
	}
	return 0, false
}

// QuotaViolationError is returned when a reservation is refused
type QuotaViolationError struct {
	AdSetID string
	Kind    QuotaKind
	Reason  string
}

func (e *QuotaViolationError) Error() string {
	return e.Reason
}

func (e *QuotaViolationError) Unwrap() error {
	if !slices.Contains(QuotaKinds, e.Kind) {
		return ErrUnknownQuotaKind
	}
	return ErrQuotaExceeded
}

// QuotaSnapshot is a point-in-time copy of a tracker
type QuotaSnapshot struct {
	AdSetID   string      `json:"ad_set_id"`
	Baseline  QuotaCounts `json:"baseline"`
	Session   QuotaCounts `json:"session"`
	Remaining QuotaCounts `json:"remaining"`
}

// QuotaTracker enforces the limits of one ad set for the duration of a run.
// Baseline is what the database already holds; session is what this run reserved.
type QuotaTracker struct {
	adSetID  string
	limits   QuotaLimits
	baseline QuotaCounts

	mu      sync.Mutex
	session QuotaCounts
}

// NewQuotaTracker creates a tracker with an empty session
func NewQuotaTracker(adSetID string, baseline QuotaCounts, limits QuotaLimits) *QuotaTracker {
	return &QuotaTracker{
		adSetID:  adSetID,
		limits:   limits,
		baseline: baseline,
	}
}

// AdSetID returns the tracked ad set
func (t *QuotaTracker) AdSetID() string {
	return t.adSetID
}

// Validate reports whether count more units of kind fit. It does not reserve.
func (t *QuotaTracker) Validate(kind QuotaKind, count int, perPost bool) (bool, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.validateLocked(kind, count, perPost)
}

func (t *QuotaTracker) validateLocked(kind QuotaKind, count int, perPost bool) (bool, string) {
	limit, ok := t.limits.Get(kind)
	if !ok {
		return false, fmt.Sprintf("Unknown quota kind: %s", kind)
	}

	if perPost {
		if ceiling, has := t.limits.perPost(kind); has && count > ceiling {
			noun := "Photos"
			if kind == QuotaVideos {
				noun = "Videos"
			}
			return false, fmt.Sprintf("%s per post limit exceeded. Limit: %d, Requested: %d", noun, ceiling, count)
		}
	}

	base, _ := t.baseline.Get(kind)
	session, _ := t.session.Get(kind)
	current := base + session
	if current+count > limit {
		return false, fmt.Sprintf("%s limit exceeded for ad_set %s. Limit: %d, Current: %d, Requested: %d, Remaining: %d",
			kind.label(), t.adSetID, limit, current, count, max(0, limit-current))
	}
	return true, ""
}

// Reserve adds count to the session without checking limits
func (t *QuotaTracker) Reserve(kind QuotaKind, count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.session.add(kind, count)
}

// TryReserve validates and reserves in one step
func (t *QuotaTracker) TryReserve(kind QuotaKind, count int, perPost bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ok, reason := t.validateLocked(kind, count, perPost); !ok {
		return &QuotaViolationError{AdSetID: t.adSetID, Kind: kind, Reason: reason}
	}
	t.session.add(kind, count)
	return nil
}

// Rollback releases count units of kind; the session never goes negative
func (t *QuotaTracker) Rollback(kind QuotaKind, count int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, ok := t.session.Get(kind)
	if !ok {
		return
	}
	t.session.add(kind, -min(count, current))
}

// Remaining returns the headroom per kind
func (t *QuotaTracker) Remaining() map[QuotaKind]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	remaining := t.remainingLocked()
	out := make(map[QuotaKind]int, len(QuotaKinds))
	for _, kind := range QuotaKinds {
		out[kind], _ = remaining.Get(kind)
	}
	return out
}

func (t *QuotaTracker) remainingLocked() QuotaCounts {
	var out QuotaCounts
	for _, kind := range QuotaKinds {
		limit, _ := t.limits.Get(kind)
		base, _ := t.baseline.Get(kind)
		session, _ := t.session.Get(kind)
		out.add(kind, max(0, limit-(base+session)))
	}
	return out
}

// Snapshot copies the tracker state
func (t *QuotaTracker) Snapshot() QuotaSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return QuotaSnapshot{
		AdSetID:   t.adSetID,
		Baseline:  t.baseline,
		Session:   t.session,
		Remaining: t.remainingLocked(),
	}
}

// QuotaRegistry holds one tracker per ad set of an initiative
type QuotaRegistry struct {
	initiativeID string
	trackers     map[string]*QuotaTracker
}

// NewQuotaRegistry builds trackers for every ad set in baselines, all sharing limits
func NewQuotaRegistry(initiativeID string, baselines map[string]QuotaCounts, limits QuotaLimits) *QuotaRegistry {
	trackers := make(map[string]*QuotaTracker, len(baselines))
	for adSetID, counts := range baselines {
		trackers[adSetID] = NewQuotaTracker(adSetID, counts, limits)
	}
	return &QuotaRegistry{initiativeID: initiativeID, trackers: trackers}
}

// InitiativeID returns the initiative the registry belongs to
func (r *QuotaRegistry) InitiativeID() string {
	return r.initiativeID
}

// Get returns the tracker for adSetID or nil
func (r *QuotaRegistry) Get(adSetID string) *QuotaTracker {
	return r.trackers[adSetID]
}

// AdSetIDs returns the tracked ad set ids in sorted order
func (r *QuotaRegistry) AdSetIDs() []string {
	ids := make([]string, 0, len(r.trackers))
	for id := range r.trackers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ExportAll snapshots every tracker
func (r *QuotaRegistry) ExportAll() map[string]QuotaSnapshot {
	out := make(map[string]QuotaSnapshot, len(r.trackers))
	for id, tracker := range r.trackers {
		out[id] = tracker.Snapshot()
	}
	return out
}
