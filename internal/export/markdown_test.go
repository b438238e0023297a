package export

import (
	"strings"
	"testing"
	"time"

	"github.com/lotas/campaigndesk/internal/types"
)

func TestMarkdown_Sections(t *testing.T) {
	sections := []Section{
		{
			Tab: "all", Label: "All campaigns", LastFetchedAt: time.Now().Add(-3 * 24 * time.Hour), HasMore: true,
			Items: []types.Campaign{
				mustCampaign(t, `{"id":1,"title":"Summer Skincare","brand_name":"Glow Lab","status":"OPEN","application_deadline":"2026-05-01","brief_url":"https://example.com/b"}`),
				mustCampaign(t, `{"id":2,"title":"","user_status":"WAITING"}`),
			},
		},
		{Tab: "history", Label: "History"},
	}

	result := Markdown(sections)

	for _, want := range []string{
		"# Campaigns",
		"## All campaigns (2 campaigns)",
		"_Fetched 3d ago, more pages on the server._",
		"- [Summer Skincare](https://example.com/b) · Glow Lab · OPEN · apply by 2026-05-01",
		"- #2 · WAITING",
		"## History (0 campaigns)",
		"_Never loaded._",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("missing %q, got:\n%s", want, result)
		}
	}
}

func TestMarkdown_SingularNoun(t *testing.T) {
	result := Markdown([]Section{{
		Tab: "active", LastFetchedAt: time.Now(),
		Items: []types.Campaign{mustCampaign(t, `{"id":9,"title":"Solo"}`)},
	}})
	if !strings.Contains(result, "## active (1 campaign)") {
		t.Errorf("got:\n%s", result)
	}
	if strings.Contains(result, "more pages") {
		t.Errorf("unexpected more-pages note:\n%s", result)
	}
}
