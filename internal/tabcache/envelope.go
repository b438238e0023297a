package tabcache

import (
	"encoding/json"
	"fmt"

	"github.com/lotas/campaigndesk/internal/applog"
	"github.com/lotas/campaigndesk/internal/types"
)

// Serialize encodes env as the single blob written to the store.
func Serialize(env Envelope) (string, error) {
	b, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("encode envelope: %w", err)
	}
	return string(b), nil
}

// Deserialize decodes a stored blob over defaults. Each tab in defaults
// that is present in the blob is decoded on top of its default value, so
// fields missing from the blob keep their defaults. Tabs not in defaults
// are ignored. Items without an id are dropped. Any malformed tab makes
// the whole blob malformed.
func Deserialize(data string, defaults Envelope) (Envelope, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	out := make(Envelope, len(defaults))
	for name, def := range defaults {
		st := def
		st.Items = append(st.Items[:0:0], def.Items...)
		if blob, ok := raw[name]; ok {
			if err := json.Unmarshal(blob, &st); err != nil {
				return nil, fmt.Errorf("decode tab %q: %w", name, err)
			}
			items, missing := withIDs(st.Items)
			if missing > 0 {
				applog.Warn("tabcache.hydrate.skipped", "tab", name, "count", missing, "reason", "missing id")
			}
			st.Items = dedupe(items)
			st.IsFetchingMore = false
		}
		out[name] = st
	}
	return out, nil
}

func withIDs(items []types.Campaign) ([]types.Campaign, int) {
	out := items[:0:0]
	for _, c := range items {
		if c.ID != "" {
			out = append(out, c)
		}
	}
	return out, len(items) - len(out)
}
