package tabcache

import (
	"strings"

	"github.com/lotas/campaigndesk/internal/types"
)

// MatchQuery returns a GetFiltered predicate doing a case-insensitive
// substring match on title and brand name. An empty query matches all.
func MatchQuery(query string) func(types.Campaign) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	return func(c types.Campaign) bool {
		return strings.Contains(strings.ToLower(c.Title), q) ||
			strings.Contains(strings.ToLower(c.BrandName), q)
	}
}
