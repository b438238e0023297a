package analyzer

import (
	"fmt"
	"math"
	"time"

	"github.com/lotas/campaigndesk/internal/types"
)

// Deadline is how far a campaign's application deadline is from now.
type Deadline struct {
	Known    bool
	DaysLeft int // calendar days; negative once passed
}

// DeadlineOf reads c.Deadline as YYYY-MM-DD (a full RFC 3339 timestamp
// also works) and counts calendar days from now in now's location.
func DeadlineOf(c types.Campaign, now time.Time) Deadline {
	if len(c.Deadline) < 10 {
		return Deadline{}
	}
	day, err := time.ParseInLocation("2006-01-02", c.Deadline[:10], now.Location())
	if err != nil {
		return Deadline{}
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	days := int(math.Round(day.Sub(today).Hours() / 24))
	return Deadline{Known: true, DaysLeft: days}
}

func (d Deadline) Passed() bool {
	return d.Known && d.DaysLeft < 0
}

// ClosingSoon reports whether the deadline is today or within days.
func (d Deadline) ClosingSoon(days int) bool {
	return d.Known && d.DaysLeft >= 0 && d.DaysLeft <= days
}

// Label renders d for the list, "" if unknown.
func (d Deadline) Label() string {
	switch {
	case !d.Known:
		return ""
	case d.DaysLeft == 0:
		return "closes today"
	case d.DaysLeft == 1:
		return "closes tomorrow"
	case d.DaysLeft > 1:
		return fmt.Sprintf("closes in %dd", d.DaysLeft)
	case d.DaysLeft == -1:
		return "closed yesterday"
	}
	return fmt.Sprintf("closed %dd ago", -d.DaysLeft)
}
