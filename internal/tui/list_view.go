package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/campaigndesk/internal/analyzer"
	"github.com/lotas/campaigndesk/internal/tabcache"
	"github.com/lotas/campaigndesk/internal/types"
)

// sentinelMargin is how many rows before the end of the list the
// cursor may be before the next page is requested.
const sentinelMargin = 3

// ListView is the scrolling campaign list of the active tab. The last
// row is reserved for the sentinel line.
type ListView struct {
	cursor int
	offset int
	width  int
	height int
}

func (v *ListView) SetSize(w, h int) {
	v.width = w
	v.height = h
	v.adjustOffset()
}

// rows is the number of item rows that fit above the sentinel.
func (v *ListView) rows() int {
	return max(0, v.height-1)
}

// Cursor returns the selected row.
func (v *ListView) Cursor() int {
	return v.cursor
}

// Reset moves the cursor back to the top.
func (v *ListView) Reset() {
	v.cursor = 0
	v.offset = 0
}

// Move moves the cursor by delta within n items.
func (v *ListView) Move(delta, n int) {
	v.cursor += delta
	v.Clamp(n)
}

// MoveTo places the cursor on row i within n items.
func (v *ListView) MoveTo(i, n int) {
	v.cursor = i
	v.Clamp(n)
}

// Clamp keeps the cursor inside a list of n items.
func (v *ListView) Clamp(n int) {
	if v.cursor >= n {
		v.cursor = n - 1
	}
	if v.cursor < 0 {
		v.cursor = 0
	}
	v.adjustOffset()
}

func (v *ListView) adjustOffset() {
	rows := v.rows()
	if rows <= 0 {
		v.offset = 0
		return
	}
	if v.cursor < v.offset {
		v.offset = v.cursor
	}
	if v.cursor >= v.offset+rows {
		v.offset = v.cursor - rows + 1
	}
}

// SentinelVisible reports whether the end of a list of n items is on
// screen: either the whole list fits or the cursor is near its end.
// Before the first resize nothing is visible.
func (v *ListView) SentinelVisible(n int) bool {
	if v.height <= 0 {
		return false
	}
	if n <= v.rows() {
		return true
	}
	return v.cursor >= n-1-sentinelMargin
}

// Render draws the visible rows of items followed by the sentinel line.
func (v *ListView) Render(items []types.Campaign, tv tabcache.TabView, spin, query string) string {
	cursorStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	brandStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	soonStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	now := time.Now()

	var lines []string
	end := min(v.offset+v.rows(), len(items))
	for i := v.offset; i < end; i++ {
		c := items[i]
		prefix := "  "
		if i == v.cursor {
			prefix = cursorStyle.Render("> ")
		}
		badge := statusBadge(c)
		title := truncate(c.Title, v.width-lipgloss.Width(badge)-lipgloss.Width(c.BrandName)-8)
		line := prefix + title
		if c.BrandName != "" {
			line += " " + brandStyle.Render("· "+c.BrandName)
		}
		line += " " + badge
		if d := analyzer.DeadlineOf(c, now); d.Known && c.UserStatus == "" {
			style := dimStyle
			if d.ClosingSoon(analyzer.SoonDays) {
				style = soonStyle
			}
			line += " " + style.Render(d.Label())
		}
		lines = append(lines, line)
	}
	lines = append(lines, sentinelLine(len(items), tv, spin, query))
	return strings.Join(lines, "\n")
}

func sentinelLine(n int, tv tabcache.TabView, spin, query string) string {
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	switch {
	case tv.Loading:
		return "  " + spin + " Loading campaigns…"
	case tv.IsFetchingMore:
		return "  " + spin + " Loading more…"
	case tv.FirstLoad:
		return errStyle.Render("  Could not load this tab. Press r to retry.")
	case n == 0 && query != "":
		return dimStyle.Render(fmt.Sprintf("  No campaigns match %q", query))
	case n == 0 && !tv.HasMore:
		return dimStyle.Render("  No campaigns")
	case tv.EndOfList:
		return dimStyle.Render("  End of list")
	case tv.HasMore:
		return dimStyle.Render("  ↓ more")
	}
	return ""
}

func statusBadge(c types.Campaign) string {
	status := c.UserStatus
	if status == "" {
		status = c.Status
	}
	color := "245"
	switch status {
	case "APPROVED", "WORK_IN_PROGRESS", "SCRIPT_APPROVED", "DRAFT_APPROVED":
		color = "42"
	case "WAITING", "SUBMITTED_SCRIPT", "SUBMITTED_DRAFT", "SUBMITTED_FINAL":
		color = "214"
	case "COMPLETED", "PAYMENT_TRANSFERRED":
		color = "33"
	case "REJECTED", "CLOSED":
		color = "196"
	case "OPEN":
		color = "135"
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(status)
}

func truncate(s string, width int) string {
	if width < 4 {
		width = 4
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
