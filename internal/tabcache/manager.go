package tabcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lotas/campaigndesk/internal/applog"
	"github.com/lotas/campaigndesk/internal/types"
)

// Fetcher loads one page of campaigns from the remote listing endpoint.
type Fetcher interface {
	FetchPage(ctx context.Context, req types.PageRequest) (types.Page, error)
}

// Store is the best-effort key-value store the envelope is persisted to.
type Store interface {
	Read(key string) (value string, ok bool, err error)
	Write(key, value string) error
}

// Remover is implemented by stores that can delete a key. Hydrate uses
// it to drop a malformed blob and Reset to drop the persisted envelope.
type Remover interface {
	Remove(key string) error
}

// ErrUnknownTab is carried by an Outcome whose tab is not configured.
var ErrUnknownTab = errors.New("tabcache: unknown tab")

// Request is a load that passed the in-flight guard and must be
// completed with Fetch and Commit.
type Request struct {
	Tab        string
	Page       int
	Background bool
	Filter     string
	PageSize   int

	gen uint64
}

// Result is the response to a Request.
type Result struct {
	Req  Request
	Data types.Page
	Err  error
}

// Outcome describes what a committed Result did to its tab.
type Outcome struct {
	Tab        string
	Page       int
	Background bool
	Skipped    bool  // the load never started, a load for the tab was in flight
	Stale      bool  // committed after Reset and discarded
	Err        error // fetch failure; the tab keeps its items and stops paging
	Appended   int   // items added by a page > 1 merge
	Dropped    int   // duplicates dropped by a page > 1 merge
	Diff       DiffResult
}

// Option configures a Manager.
type Option func(*Manager)

// WithTabs replaces DefaultTabs.
func WithTabs(tabs []Tab) Option {
	return func(m *Manager) { m.tabs = append([]Tab(nil), tabs...) }
}

// WithPageSize sets the page size sent with every request.
func WithPageSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.pageSize = n
		}
	}
}

// WithKey overrides CacheKey.
func WithKey(key string) Option {
	return func(m *Manager) { m.key = key }
}

// WithClock sets the time source used for LastFetchedAt.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager owns the per-tab list state. All methods are safe for
// concurrent use; Begin and Commit are the only state transitions and
// each is applied atomically.
type Manager struct {
	fetcher  Fetcher
	store    Store
	key      string
	pageSize int
	now      func() time.Time
	tabs     []Tab

	mu     sync.Mutex
	state  map[string]*TabState
	active string
	gen    uint64
	saver  *saver
}

// New creates a Manager. store may be nil, in which case nothing is persisted.
func New(fetcher Fetcher, store Store, opts ...Option) *Manager {
	m := &Manager{
		fetcher:  fetcher,
		store:    store,
		key:      CacheKey,
		pageSize: DefaultPageSize,
		now:      time.Now,
		tabs:     append([]Tab(nil), DefaultTabs...),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.state = make(map[string]*TabState, len(m.tabs))
	for _, t := range m.tabs {
		st := defaultState()
		m.state[t.Name] = &st
	}
	if len(m.tabs) > 0 {
		m.active = m.tabs[0].Name
	}
	if store != nil {
		m.saver = newSaver(store, m.key)
	}
	return m
}

// Hydrate merges the persisted envelope over the current defaults.
// A missing, unreadable or malformed blob leaves the defaults in place;
// a malformed one is also removed from the store. Nothing is returned
// because the store is only a warm-start cache.
func (m *Manager) Hydrate() {
	if m.store == nil {
		return
	}
	raw, ok, err := m.store.Read(m.key)
	if err != nil {
		applog.Error("tabcache.hydrate.read", err, "key", m.key)
		return
	}
	if !ok {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	defaults := make(Envelope, len(m.tabs))
	for _, t := range m.tabs {
		defaults[t.Name] = defaultState()
	}
	env, err := Deserialize(raw, defaults)
	if err != nil {
		applog.Warn("tabcache.hydrate.discard", "key", m.key, "reason", err.Error())
		if r, ok := m.store.(Remover); ok {
			if err := r.Remove(m.key); err != nil {
				applog.Error("tabcache.hydrate.remove", err, "key", m.key)
			}
		}
		return
	}

	loaded := 0
	for name, st := range env {
		cur := m.state[name]
		st.fetchInFlight = cur.fetchInFlight
		st.loadingFirst = cur.loadingFirst
		st.revalidating = cur.revalidating
		st.IsFetchingMore = cur.IsFetchingMore
		*cur = st
		if st.IsLoaded {
			loaded++
		}
	}
	applog.Info("tabcache.hydrated", "key", m.key, "loaded_tabs", loaded)
}

// Tabs returns the configured tabs in display order.
func (m *Manager) Tabs() []Tab {
	return append([]Tab(nil), m.tabs...)
}

// Active returns the name of the selected tab.
func (m *Manager) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// SelectTab makes name the active tab and begins a page-1 load: a
// foreground load if the tab has never loaded, a background
// revalidation otherwise. ok is false if name is unknown or a load for
// it is already in flight; the tab is still selected in the latter case.
func (m *Manager) SelectTab(name string) (Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.state[name]
	if !ok {
		return Request{}, false
	}
	m.active = name
	return m.beginLocked(name, 1, st.IsLoaded)
}

// LoadMore begins a load of the next page if the tab has more pages and
// nothing is in flight for it. Repeated calls while a load is pending
// are no-ops.
func (m *Manager) LoadMore(name string) (Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.state[name]
	if !ok || !st.HasMore || st.fetchInFlight {
		return Request{}, false
	}
	return m.beginLocked(name, st.Page+1, false)
}

// Begin sets the per-tab in-flight guard and the matching loading flag.
// It returns false without side effects if the tab is unknown, page is
// not positive, or a load for the tab is already in flight. A page past
// the first is only accepted when it is the next page and the tab still
// has more; after a failure only page 1 can load.
func (m *Manager) Begin(name string, page int, background bool) (Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.beginLocked(name, page, background)
}

func (m *Manager) beginLocked(name string, page int, background bool) (Request, bool) {
	st, ok := m.state[name]
	if !ok || page < 1 {
		return Request{}, false
	}
	if st.fetchInFlight {
		applog.Info("tabcache.skip", "tab", name, "page", page, "bg", background)
		return Request{}, false
	}
	if page > 1 && (!st.HasMore || page != st.Page+1) {
		applog.Info("tabcache.skip", "tab", name, "page", page, "bg", background,
			"has_more", st.HasMore, "last_page", st.Page)
		return Request{}, false
	}

	st.fetchInFlight = true
	switch {
	case page > 1:
		st.IsFetchingMore = true
	case background:
		st.revalidating = true
	default:
		st.loadingFirst = true
	}

	return Request{
		Tab:        name,
		Page:       page,
		Background: background,
		Filter:     m.filterFor(name),
		PageSize:   m.pageSize,
		gen:        m.gen,
	}, true
}

func (m *Manager) filterFor(name string) string {
	for _, t := range m.tabs {
		if t.Name == name {
			return t.Filter
		}
	}
	return ""
}

// Fetch performs the network call for req. It does not touch manager
// state and may run on any goroutine.
func (m *Manager) Fetch(ctx context.Context, req Request) Result {
	applog.Info("tabcache.fetch", "tab", req.Tab, "page", req.Page, "bg", req.Background)
	page, err := m.fetcher.FetchPage(ctx, types.PageRequest{
		Page:     req.Page,
		PageSize: req.PageSize,
		Filter:   req.Filter,
	})
	return Result{Req: req, Data: page, Err: err}
}

// Commit applies res to its tab and clears the in-flight guard.
// On success a page-1 result replaces the items, a later page appends
// the items not yet present, and a persistence write is scheduled.
// On failure the items are kept and paging stops until the next
// successful page-1 load.
func (m *Manager) Commit(res Result) Outcome {
	req := res.Req
	out := Outcome{Tab: req.Tab, Page: req.Page, Background: req.Background}

	m.mu.Lock()
	st, ok := m.state[req.Tab]
	if !ok {
		m.mu.Unlock()
		out.Err = fmt.Errorf("%w: %q", ErrUnknownTab, req.Tab)
		return out
	}
	if req.gen != m.gen {
		m.mu.Unlock()
		out.Stale = true
		return out
	}

	st.fetchInFlight = false
	st.IsFetchingMore = false
	st.loadingFirst = false
	st.revalidating = false

	if res.Err != nil {
		st.HasMore = false
		m.mu.Unlock()
		out.Err = res.Err
		applog.Error("tabcache.fetch", res.Err, "tab", req.Tab, "page", req.Page, "bg", req.Background)
		return out
	}

	if req.Page == 1 {
		prev := st.Items
		wasLoaded := st.IsLoaded
		st.Items = dedupe(res.Data.Items)
		if wasLoaded {
			out.Diff = Diff(prev, st.Items)
		}
	} else {
		before := len(st.Items)
		st.Items, out.Dropped = appendUnique(st.Items, res.Data.Items)
		out.Appended = len(st.Items) - before
	}
	st.Page = req.Page
	st.HasMore = res.Data.HasNextPage
	st.LastFetchedAt = m.now()
	st.IsLoaded = true

	env := m.snapshotLocked()
	m.mu.Unlock()

	applog.Info("tabcache.commit", "tab", req.Tab, "page", req.Page, "items", len(env[req.Tab].Items),
		"has_more", res.Data.HasNextPage, "appended", out.Appended, "dropped", out.Dropped)

	if m.saver != nil && env.anyLoaded() {
		m.saver.schedule(env)
	}
	return out
}

// Load runs Begin, Fetch and Commit in sequence. If the guard rejects
// the load the returned Outcome has Skipped set.
func (m *Manager) Load(ctx context.Context, name string, page int, background bool) Outcome {
	req, ok := m.Begin(name, page, background)
	if !ok {
		return Outcome{Tab: name, Page: page, Background: background, Skipped: true}
	}
	return m.Commit(m.Fetch(ctx, req))
}

// GetFiltered returns the tab's items for which keep returns true.
// A nil keep returns every item. The result is a copy.
func (m *Manager) GetFiltered(name string, keep func(types.Campaign) bool) []types.Campaign {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.state[name]
	if !ok {
		return nil
	}
	out := make([]types.Campaign, 0, len(st.Items))
	for _, c := range st.Items {
		if keep == nil || keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// View returns the read model for a tab. Unknown tabs yield a zero view.
func (m *Manager) View(name string) TabView {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.state[name]
	if !ok {
		return TabView{}
	}
	var tab Tab
	for _, t := range m.tabs {
		if t.Name == name {
			tab = t
		}
	}
	v := TabView{
		Tab:          tab,
		TabState:     *st,
		Loading:      st.loadingFirst,
		Revalidating: st.revalidating,
		FirstLoad:    !st.IsLoaded,
		EndOfList:    st.IsLoaded && !st.HasMore && len(st.Items) > 0,
	}
	v.Items = append([]types.Campaign(nil), st.Items...)
	return v
}

// Snapshot returns a copy of every tab's state.
func (m *Manager) Snapshot() Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Envelope {
	env := make(Envelope, len(m.state))
	for name, st := range m.state {
		cp := *st
		cp.fetchInFlight = false
		cp.loadingFirst = false
		cp.revalidating = false
		cp.IsFetchingMore = false
		env[name] = cp
	}
	return env
}

// Reset returns every tab to its never-loaded default and deletes the
// persisted envelope. Loads still in flight are discarded when they commit.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.gen++
	for _, t := range m.tabs {
		st := defaultState()
		m.state[t.Name] = &st
	}
	m.mu.Unlock()

	// No commit from before the reset can schedule a write any more;
	// wait out the ones already queued so they cannot resurrect the blob.
	if m.saver != nil {
		m.saver.flush()
	}
	if r, ok := m.store.(Remover); ok {
		if err := r.Remove(m.key); err != nil {
			applog.Error("tabcache.reset.remove", err, "key", m.key)
		}
	}
	applog.Info("tabcache.reset", "key", m.key)
}

// Flush waits for pending persistence writes.
func (m *Manager) Flush() {
	if m.saver != nil {
		m.saver.flush()
	}
}

// Close flushes pending writes and stops the background saver.
func (m *Manager) Close() {
	if m.saver != nil {
		m.saver.close()
	}
}
