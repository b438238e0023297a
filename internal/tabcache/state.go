package tabcache

import (
	"time"

	"github.com/lotas/campaigndesk/internal/types"
)

// CacheKey is the storage key of the persisted envelope. Bump the suffix
// whenever the TabState shape changes; old blobs are then simply ignored.
const CacheKey = "campaign_dashboard_v3"

// DefaultPageSize matches the page size the web dashboard requests.
const DefaultPageSize = 10

// Tab is a named partition of the campaign list.
type Tab struct {
	Name   string
	Label  string
	Filter string // status filter sent to the listing endpoint
}

// DefaultTabs are the dashboard tabs in display order.
var DefaultTabs = []Tab{
	{Name: "all", Label: "All campaigns"},
	{Name: "active", Label: "My campaigns", Filter: "active"},
	{Name: "history", Label: "History", Filter: "history"},
}

// TabState is the paginated list state of one tab.
type TabState struct {
	Items          []types.Campaign `json:"items"`
	Page           int              `json:"page"` // last fetched page, 0 before the first fetch
	HasMore        bool             `json:"hasMore"`
	LastFetchedAt  time.Time        `json:"lastFetchedAt"`
	IsLoaded       bool             `json:"isLoaded"`
	IsFetchingMore bool             `json:"isFetchingMore"`

	// Not persisted.
	fetchInFlight bool
	loadingFirst  bool
	revalidating  bool
}

func defaultState() TabState {
	return TabState{HasMore: true}
}

// Envelope is the persisted snapshot of every tab, keyed by tab name.
type Envelope map[string]TabState

// DefaultEnvelope returns a fresh, never-loaded envelope for tabs.
func DefaultEnvelope(tabs []Tab) Envelope {
	env := make(Envelope, len(tabs))
	for _, t := range tabs {
		env[t.Name] = defaultState()
	}
	return env
}

func (e Envelope) anyLoaded() bool {
	for _, st := range e {
		if st.IsLoaded {
			return true
		}
	}
	return false
}

// TabView is the read model handed to views.
type TabView struct {
	Tab Tab
	TabState

	Loading      bool // foreground first-page load in flight
	Revalidating bool // background page-1 refresh in flight
	FirstLoad    bool // no fetch has ever succeeded for this tab
	EndOfList    bool // loaded, non-empty and no further page
}

// InFlight reports whether any load for the tab is pending.
func (v TabView) InFlight() bool {
	return v.fetchInFlight
}
