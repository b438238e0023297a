package analyzer

import (
	"fmt"
	"strings"
	"time"

	"github.com/lotas/campaigndesk/internal/types"
)

// SoonDays is how many days ahead a deadline counts as closing soon.
const SoonDays = 3

// Stats counts a list of campaigns by where the user stands with them.
type Stats struct {
	Total       int
	Working     int // approved, in progress
	Waiting     int // submitted, waiting for review
	Completed   int // done, waiting for payment
	Open        int // open and not applied to
	ClosingSoon int // open, not applied, deadline within SoonDays
}

func ComputeStats(items []types.Campaign, now time.Time) Stats {
	stats := Stats{Total: len(items)}
	for _, c := range items {
		switch c.UserStatus {
		case "APPROVED", "WORK_IN_PROGRESS", "SCRIPT_APPROVED", "DRAFT_APPROVED":
			stats.Working++
		case "WAITING", "SUBMITTED_SCRIPT", "SUBMITTED_DRAFT", "SUBMITTED_FINAL":
			stats.Waiting++
		case "COMPLETED":
			stats.Completed++
		case "":
			if c.Status == "OPEN" {
				stats.Open++
				if DeadlineOf(c, now).ClosingSoon(SoonDays) {
					stats.ClosingSoon++
				}
			}
		}
	}
	return stats
}

// String renders the non-zero counts, e.g. "12 campaigns · 2 working · 1 closing soon".
func (s Stats) String() string {
	parts := []string{fmt.Sprintf("%d campaigns", s.Total)}
	for _, p := range []struct {
		n    int
		name string
	}{
		{s.Working, "working"},
		{s.Waiting, "waiting"},
		{s.Completed, "completed"},
		{s.Open, "open"},
		{s.ClosingSoon, "closing soon"},
	} {
		if p.n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", p.n, p.name))
		}
	}
	return strings.Join(parts, " · ")
}
