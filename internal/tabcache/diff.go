package tabcache

import (
	"fmt"
	"strings"

	"github.com/lotas/campaigndesk/internal/types"
)

// DiffResult describes how a page-1 revalidation changed a tab's list.
type DiffResult struct {
	Added   []types.Campaign // in the fresh page but not cached before
	Removed []types.Campaign // cached before but gone after the replace
}

// Empty reports whether nothing changed.
func (d DiffResult) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// Diff compares the cached list before a page-1 replace with the list after it.
// Comparison is by ID; order follows the respective input.
func Diff(before, after []types.Campaign) DiffResult {
	beforeIDs := make(map[string]struct{}, len(before))
	for _, c := range before {
		beforeIDs[c.ID] = struct{}{}
	}
	afterIDs := make(map[string]struct{}, len(after))
	for _, c := range after {
		afterIDs[c.ID] = struct{}{}
	}

	var d DiffResult
	for _, c := range after {
		if _, ok := beforeIDs[c.ID]; !ok {
			d.Added = append(d.Added, c)
		}
	}
	for _, c := range before {
		if _, ok := afterIDs[c.ID]; !ok {
			d.Removed = append(d.Removed, c)
		}
	}
	return d
}

// FormatDiff returns a human-readable summary of d.
func FormatDiff(tab string, d DiffResult) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Refreshed %q\n", tab)
	fmt.Fprintf(&sb, "Added: %d  Removed: %d\n", len(d.Added), len(d.Removed))

	if len(d.Added) > 0 {
		sb.WriteString("\n+ Added:\n")
		for _, c := range d.Added {
			fmt.Fprintf(&sb, "  + %s %s\n", c.ID, c.Title)
		}
	}
	if len(d.Removed) > 0 {
		sb.WriteString("\n- Removed:\n")
		for _, c := range d.Removed {
			fmt.Fprintf(&sb, "  - %s %s\n", c.ID, c.Title)
		}
	}
	if d.Empty() {
		sb.WriteString("\nNo changes.\n")
	}
	return sb.String()
}
