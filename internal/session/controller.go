// Package session orchestrates one query session: it owns the current
// FacetQuery, triggers catalog lookups when a remote-forwarded facet changes,
// refines the fetched candidate set through the rank engine for local-only
// changes, and exposes consistent snapshots for rendering and URL sync.
package session

import (
	"context"
	"sync"

	"github.com/hyperjump/sumika/internal/analytics"
	"github.com/hyperjump/sumika/internal/catalog"
	"github.com/hyperjump/sumika/internal/facet"
	"github.com/hyperjump/sumika/internal/history"
	"github.com/hyperjump/sumika/internal/models"
	"github.com/hyperjump/sumika/internal/rank"
	"go.uber.org/zap"
)

// State is the controller's lifecycle phase.
type State string

const (
	StateIdle     State = "idle"
	StateFetching State = "fetching"
	StateReady    State = "ready"
	StateError    State = "error"
)

// Snapshot is a consistent view of the session for the presentation layer.
// QueryString is the canonical shareable encoding of the current query.
type Snapshot struct {
	State             State                 `json:"state"`
	QueryString       string                `json:"query_string"`
	Results           []models.RankedResult `json:"results"`
	MatchCount        int                   `json:"match_count"`
	TotalCount        int                   `json:"total_count"`
	ActiveFilterCount int                   `json:"active_filter_count"`
	Error             string                `json:"error,omitempty"`
}

// Controller is the query session state machine. All state is guarded by one
// mutex; lookups run in their own goroutine and re-enter under the lock, so
// callers observe the same interleaving as a single-threaded event loop.
type Controller struct {
	mu         sync.Mutex
	catalog    catalog.Catalog
	tracker    analytics.Tracker
	history    *history.Store
	logger     *zap.Logger
	notify     func()
	baseCtx    context.Context
	query      facet.Query
	state      State
	candidates []*models.PropertyRecord
	total      int
	ranked     []models.RankedResult
	fetched    bool
	inFlight   bool
	lastErr    error
	epoch      uint64
	wg         sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithTracker sets the analytics collaborator.
func WithTracker(t analytics.Tracker) Option {
	return func(c *Controller) { c.tracker = t }
}

// WithHistory sets the history store receiving executed free-text searches.
func WithHistory(h *history.Store) Option {
	return func(c *Controller) { c.history = h }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithNotify sets a hook invoked after every committed state change.
func WithNotify(fn func()) Option {
	return func(c *Controller) { c.notify = fn }
}

// NewController creates an idle controller with the given initial query.
func NewController(cat catalog.Catalog, initial facet.Query, opts ...Option) *Controller {
	c := &Controller{
		catalog: cat,
		tracker: analytics.NopTracker{},
		logger:  zap.NewNop(),
		query:   initial,
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start issues the first lookup. ctx bounds every lookup this controller
// makes; cancel it to stop in-flight work.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseCtx = ctx
	c.beginFetchLocked()
}

// SetQuery replaces the session query. A change to a remote-forwarded facet
// (free text, location, dates, guests) triggers a new lookup and logically
// cancels any in-flight one; anything else re-runs the rank engine against
// the last-fetched candidates without touching the catalog.
func (c *Controller) SetQuery(q facet.Query) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.query
	c.query = q
	if prev.RemoteKey() != q.RemoteKey() || (!c.fetched && !c.inFlight) {
		c.beginFetchLocked()
		return
	}
	if c.inFlight {
		// A lookup for this remote key is already in flight; it refines
		// with the newest query when it lands.
		c.notifyLocked()
		return
	}
	c.refineLocked()
	c.notifyLocked()
}

// Update applies a functional update to the current query.
func (c *Controller) Update(fn func(facet.Query) facet.Query) {
	c.mu.Lock()
	q := fn(c.query)
	c.mu.Unlock()
	c.SetQuery(q)
}

// Query returns the current query.
func (c *Controller) Query() facet.Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// Snapshot returns a consistent view of the session.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		State:             c.state,
		QueryString:       c.query.Encode(),
		Results:           rank.Page(c.ranked, c.query),
		MatchCount:        len(c.ranked),
		TotalCount:        c.total,
		ActiveFilterCount: c.query.ActiveFacetCount(),
	}
	if c.state == StateError && c.lastErr != nil {
		snap.Error = c.lastErr.Error()
	}
	if snap.Results == nil {
		snap.Results = []models.RankedResult{}
	}
	return snap
}

// Wait blocks until no lookup is in flight. Used by tests and shutdown.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// beginFetchLocked bumps the epoch, snapshots the lookup request, and starts
// the fetch. The epoch makes late responses for older queries detectable:
// only the newest lookup may commit.
func (c *Controller) beginFetchLocked() {
	c.epoch++
	epoch := c.epoch
	c.state = StateFetching
	c.inFlight = true
	req := lookupRequest(c.query)
	ctx := c.baseCtx
	if ctx == nil {
		ctx = context.Background()
	}
	c.notifyLocked()
	c.wg.Add(1)
	go c.fetch(ctx, epoch, req)
}

func (c *Controller) fetch(ctx context.Context, epoch uint64, req models.LookupRequest) {
	defer c.wg.Done()
	res, err := c.catalog.Search(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		// A newer lookup superseded this one while it was in flight.
		c.logger.Debug("stale catalog response discarded",
			zap.Uint64("epoch", epoch), zap.Uint64("current", c.epoch))
		return
	}
	c.inFlight = false
	if err != nil {
		c.state = StateError
		c.lastErr = err
		c.candidates = nil
		c.ranked = nil
		c.total = 0
		c.fetched = false
		c.logger.Warn("catalog lookup failed", zap.Error(err))
		c.notifyLocked()
		return
	}

	c.candidates = res.Candidates
	c.total = res.TotalCount
	c.fetched = true
	c.lastErr = nil
	// Refine with the *current* query: it may have gained local-only
	// constraints while the lookup was in flight.
	c.refineLocked()
	c.state = StateReady

	c.tracker.TrackSearch(ctx, analytics.SearchEvent{
		Query:       c.query.FreeText(),
		QueryString: c.query.Encode(),
		ResultCount: len(c.ranked),
	})
	if c.history != nil {
		c.history.RecordSearch(ctx, req.FreeText)
	}
	c.notifyLocked()
}

func (c *Controller) refineLocked() {
	c.ranked = rank.Apply(c.candidates, c.query)
	if c.state == StateError {
		// Local-only edits on an errored session still render something
		// sensible; the error indicator stays until the next lookup.
		return
	}
	c.state = StateReady
}

func (c *Controller) notifyLocked() {
	if c.notify != nil {
		c.notify()
	}
}

// lookupRequest projects the remote-forwarded facets of a query.
func lookupRequest(q facet.Query) models.LookupRequest {
	return models.LookupRequest{
		FreeText: q.FreeText(),
		Location: q.Location(),
		CheckIn:  q.CheckIn(),
		CheckOut: q.CheckOut(),
		Guests:   q.Guests(),
		Page:     1,
		PageSize: 0, // the rank engine pages locally over the full candidate set
		SortHint: string(q.Sort()),
	}
}
