package tabcache

import "github.com/lotas/campaigndesk/internal/types"

// appendUnique returns existing followed by every fetched campaign whose
// ID is not already present. The cached copy wins over a later duplicate.
// The result never aliases existing.
func appendUnique(existing, fetched []types.Campaign) (merged []types.Campaign, dropped int) {
	seen := make(map[string]struct{}, len(existing)+len(fetched))
	merged = make([]types.Campaign, 0, len(existing)+len(fetched))
	for _, c := range existing {
		seen[c.ID] = struct{}{}
		merged = append(merged, c)
	}
	for _, c := range fetched {
		if _, dup := seen[c.ID]; dup {
			dropped++
			continue
		}
		seen[c.ID] = struct{}{}
		merged = append(merged, c)
	}
	return merged, dropped
}

// dedupe keeps the first occurrence of every ID.
func dedupe(items []types.Campaign) []types.Campaign {
	out, _ := appendUnique(nil, items)
	return out
}
