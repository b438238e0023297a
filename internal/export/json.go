package export

import (
	"encoding/json"
	"time"

	"github.com/lotas/campaigndesk/internal/types"
)

// Section is one tab's cached list.
type Section struct {
	Tab           string
	Label         string
	LastFetchedAt time.Time
	HasMore       bool
	Items         []types.Campaign
}

type jsonExport struct {
	ExportedAt time.Time `json:"exported_at"`
	Tabs       []jsonTab `json:"tabs"`
}

type jsonTab struct {
	Name          string           `json:"name"`
	Label         string           `json:"label"`
	LastFetchedAt *time.Time       `json:"last_fetched_at,omitempty"`
	Fetched       string           `json:"fetched_pretty,omitempty"`
	HasMore       bool             `json:"has_more"`
	Count         int              `json:"count"`
	Campaigns     []types.Campaign `json:"campaigns"`
}

// JSON formats cached tabs as a JSON document. Campaigns are written
// exactly as the server sent them.
func JSON(sections []Section) (string, error) {
	out := jsonExport{
		ExportedAt: time.Now(),
		Tabs:       make([]jsonTab, 0, len(sections)),
	}

	for _, s := range sections {
		tab := jsonTab{
			Name:      s.Tab,
			Label:     s.Label,
			HasMore:   s.HasMore,
			Count:     len(s.Items),
			Campaigns: s.Items,
		}
		if tab.Campaigns == nil {
			tab.Campaigns = []types.Campaign{}
		}
		if !s.LastFetchedAt.IsZero() {
			t := s.LastFetchedAt
			tab.LastFetchedAt = &t
			tab.Fetched = relativeTime(t)
		}
		out.Tabs = append(out.Tabs, tab)
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}
