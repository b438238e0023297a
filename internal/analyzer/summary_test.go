package analyzer

import (
	"testing"
	"time"

	"github.com/lotas/campaigndesk/internal/types"
)

func TestComputeStats(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	items := []types.Campaign{
		{UserStatus: "WORK_IN_PROGRESS"},
		{UserStatus: "APPROVED"},
		{UserStatus: "SUBMITTED_DRAFT"},
		{UserStatus: "COMPLETED"},
		{UserStatus: "REJECTED"},
		{Status: "OPEN", Deadline: "2026-03-11"},
		{Status: "OPEN", Deadline: "2026-04-30"},
		{Status: "OPEN", Deadline: "2026-03-01"},
		{Status: "CLOSED"},
	}

	stats := ComputeStats(items, now)
	want := Stats{Total: 9, Working: 2, Waiting: 1, Completed: 1, Open: 3, ClosingSoon: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
	if got := stats.String(); got != "9 campaigns · 2 working · 1 waiting · 1 completed · 3 open · 1 closing soon" {
		t.Errorf("String() = %q", got)
	}
	if got := (Stats{}).String(); got != "0 campaigns" {
		t.Errorf("empty String() = %q", got)
	}
}
