package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/campaigndesk/internal/tabcache"
)

// ListWidthPct is the percentage of terminal width used for the list
// when the detail pane is open.
const ListWidthPct = 50

func renderNavbar(tabs []tabcache.TabView, active string, right string, width int) string {
	activeStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62")).Underline(true)
	inactiveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	countStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	rightStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	var left string
	for i, tv := range tabs {
		if i > 0 {
			left += inactiveStyle.Render(" │ ")
		}
		countSuffix := ""
		if tv.IsLoaded {
			more := ""
			if tv.HasMore {
				more = "+"
			}
			countSuffix = fmt.Sprintf(" (%d%s)", len(tv.Items), more)
		}
		if tv.Tab.Name == active {
			left += activeStyle.Render(tv.Tab.Label + countSuffix)
		} else {
			left += inactiveStyle.Render(tv.Tab.Label) + countStyle.Render(countSuffix)
		}
	}
	left = " " + left

	r := rightStyle.Render(right)
	gap := width - lipgloss.Width(left) - lipgloss.Width(r) - 2
	if gap < 1 {
		gap = 1
	}
	padding := lipgloss.NewStyle().Width(gap)

	return left + padding.Render("") + r + " "
}
