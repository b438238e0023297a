package tui

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/campaigndesk/internal/analyzer"
	"github.com/lotas/campaigndesk/internal/applog"
	"github.com/lotas/campaigndesk/internal/brief"
	"github.com/lotas/campaigndesk/internal/campaign"
	"github.com/lotas/campaigndesk/internal/live"
	"github.com/lotas/campaigndesk/internal/tabcache"
	"github.com/lotas/campaigndesk/internal/types"
)

// --- Messages ---

type pageLoadedMsg struct {
	res tabcache.Result
}

type liveEventMsg struct {
	ev live.Event
}

type liveClosedMsg struct{}

type briefLoadedMsg struct {
	id    string
	brief brief.Brief
	err   error
}

// BriefFunc fetches a campaign brief.
type BriefFunc func(ctx context.Context, url string) (brief.Brief, error)

// --- Model ---

type Model struct {
	mgr        *tabcache.Manager
	events     <-chan live.Event
	fetchBrief BriefFunc

	keys    KeyMap
	list    ListView
	detail  DetailModel
	search  textinput.Model
	spinner spinner.Model

	briefs     map[string]briefState
	searching  bool
	showDetail bool
	status     string
	statusErr  bool
	width      int
	height     int
}

// NewModel builds the dashboard over mgr. events may be nil when the
// live feed is disabled; fetchBrief defaults to brief.Fetch.
func NewModel(mgr *tabcache.Manager, events <-chan live.Event, fetchBrief BriefFunc) Model {
	if fetchBrief == nil {
		fetchBrief = brief.Fetch
	}
	search := textinput.New()
	search.Placeholder = "Search title or brand..."
	search.Prompt = "/ "
	search.CharLimit = 100

	return Model{
		mgr:        mgr,
		events:     events,
		fetchBrief: fetchBrief,
		keys:       DefaultKeyMap(),
		detail:     NewDetailModel(),
		search:     search,
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		briefs:     make(map[string]briefState),
	}
}

// Init restores the persisted tabs and starts loading the active one.
func (m Model) Init() tea.Cmd {
	m.mgr.Hydrate()
	return tea.Batch(
		m.spinner.Tick,
		m.load(m.mgr.SelectTab(m.mgr.Active())),
		waitForEvent(m.events),
	)
}

// load runs the fetch for a request that passed the in-flight guard.
// The result is committed in Update.
func (m Model) load(req tabcache.Request, ok bool) tea.Cmd {
	if !ok {
		return nil
	}
	mgr := m.mgr
	return func() tea.Msg {
		return pageLoadedMsg{res: mgr.Fetch(context.Background(), req)}
	}
}

func waitForEvent(events <-chan live.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return liveClosedMsg{}
		}
		return liveEventMsg{ev: ev}
	}
}

func (m Model) fetchBriefCmd(c types.Campaign) tea.Cmd {
	fetch := m.fetchBrief
	id, url := c.ID, c.BriefURL
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		b, err := fetch(ctx, url)
		return briefLoadedMsg{id: id, brief: b, err: err}
	}
}

// items returns the active tab's items matching the search query.
func (m Model) items() []types.Campaign {
	return m.mgr.GetFiltered(m.mgr.Active(), tabcache.MatchQuery(m.search.Value()))
}

func (m Model) selected() (types.Campaign, bool) {
	items := m.items()
	i := m.list.Cursor()
	if i < 0 || i >= len(items) {
		return types.Campaign{}, false
	}
	return items[i], true
}

// maybeLoadMore requests the next page once the sentinel is on screen.
func (m Model) maybeLoadMore() tea.Cmd {
	active := m.mgr.Active()
	tv := m.mgr.View(active)
	if !tv.IsLoaded || !tv.HasMore || tv.InFlight() {
		return nil
	}
	if !m.list.SentinelVisible(len(m.items())) {
		return nil
	}
	return m.load(m.mgr.LoadMore(active))
}

// revalidate refreshes page 1 of tab in the background, or of every
// tab when tab is empty. Tabs that never loaded are left alone.
func (m Model) revalidate(tab string) []tea.Cmd {
	var cmds []tea.Cmd
	for _, t := range m.mgr.Tabs() {
		if tab != "" && t.Name != tab {
			continue
		}
		if !m.mgr.View(t.Name).IsLoaded {
			continue
		}
		if cmd := m.load(m.mgr.Begin(t.Name, 1, true)); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return cmds
}

func (m *Model) switchTab(name string) tea.Cmd {
	if name == m.mgr.Active() {
		return nil
	}
	m.list.Reset()
	cmd := m.load(m.mgr.SelectTab(name))
	m.refreshDetail()
	return tea.Batch(cmd, m.maybeLoadMore())
}

func (m *Model) tabOffset(delta int) string {
	tabs := m.mgr.Tabs()
	if len(tabs) == 0 {
		return ""
	}
	active := m.mgr.Active()
	for i, t := range tabs {
		if t.Name == active {
			return tabs[(i+delta+len(tabs))%len(tabs)].Name
		}
	}
	return tabs[0].Name
}

func (m *Model) noteOutcome(out tabcache.Outcome) {
	if out.Skipped || out.Stale {
		return
	}
	label := m.mgr.View(out.Tab).Tab.Label
	switch {
	case out.Err != nil:
		m.statusErr = true
		if errors.Is(out.Err, campaign.ErrUnauthorized) {
			m.status = "Not authorized. Check the token in your config."
		} else {
			m.status = fmt.Sprintf("Failed to load %s: %v", label, out.Err)
		}
	case out.Background && !out.Diff.Empty():
		m.statusErr = false
		m.status = fmt.Sprintf("%s: %d new, %d gone", label, len(out.Diff.Added), len(out.Diff.Removed))
	case out.Page == 1 && !out.Background:
		m.statusErr = false
		m.status = ""
	}
}

func (m *Model) refreshDetail() {
	if !m.showDetail {
		return
	}
	c, ok := m.selected()
	if !ok {
		return
	}
	m.detail.Show(c, m.briefs[c.ID])
}

func (m *Model) resize() {
	// navbar, blank line, list, status, help
	listHeight := max(0, m.height-4)
	listWidth := m.width
	if m.showDetail {
		listWidth = m.width * ListWidthPct / 100
		m.detail.SetSize(m.width-listWidth-3, listHeight)
	}
	m.list.SetSize(listWidth, listHeight)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.refreshDetail()
		return m, m.maybeLoadMore()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case pageLoadedMsg:
		out := m.mgr.Commit(msg.res)
		m.noteOutcome(out)
		m.list.Clamp(len(m.items()))
		m.refreshDetail()
		return m, m.maybeLoadMore()

	case liveEventMsg:
		applog.Info("tui.live", "type", msg.ev.Type, "tab", msg.ev.Tab)
		var cmds []tea.Cmd
		if msg.ev.Type == live.TypeCampaignsChanged {
			cmds = m.revalidate(msg.ev.Tab)
		}
		cmds = append(cmds, waitForEvent(m.events))
		return m, tea.Batch(cmds...)

	case liveClosedMsg:
		m.events = nil
		return m, nil

	case briefLoadedMsg:
		bs := briefState{err: msg.err}
		if msg.err == nil {
			b := msg.brief
			bs.brief = &b
		} else {
			applog.Error("tui.brief", msg.err, "campaign", msg.id)
		}
		m.briefs[msg.id] = bs
		m.refreshDetail()
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.handleSearchKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.searching = false
		m.search.SetValue("")
		m.search.Blur()
		m.list.Reset()
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
	default:
		m.search, cmd = m.search.Update(msg)
		m.list.Reset()
	}
	m.refreshDetail()
	return m, tea.Batch(cmd, m.maybeLoadMore())
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.items())
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.NextTab):
		return m, m.switchTab(m.tabOffset(1))
	case key.Matches(msg, m.keys.PrevTab):
		return m, m.switchTab(m.tabOffset(-1))
	case key.Matches(msg, m.keys.Tab1, m.keys.Tab2, m.keys.Tab3):
		tabs := m.mgr.Tabs()
		i := int(msg.String()[0] - '1')
		if i < len(tabs) {
			return m, m.switchTab(tabs[i].Name)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.list.Move(-1, n)
	case key.Matches(msg, m.keys.Down):
		m.list.Move(1, n)
	case key.Matches(msg, m.keys.Home):
		m.list.MoveTo(0, n)
	case key.Matches(msg, m.keys.End):
		m.list.MoveTo(n-1, n)
	case key.Matches(msg, m.keys.PageDown):
		if m.showDetail {
			m.detail.viewport.HalfPageDown()
			return m, nil
		}
		m.list.Move(m.list.rows(), n)
	case key.Matches(msg, m.keys.PageUp):
		if m.showDetail {
			m.detail.viewport.HalfPageUp()
			return m, nil
		}
		m.list.Move(-m.list.rows(), n)

	case key.Matches(msg, m.keys.Detail):
		m.showDetail = !m.showDetail
		m.resize()
	case key.Matches(msg, m.keys.Escape):
		if m.showDetail {
			m.showDetail = false
			m.resize()
		} else if m.search.Value() != "" {
			m.search.SetValue("")
			m.list.Reset()
		}

	case key.Matches(msg, m.keys.Brief):
		c, ok := m.selected()
		if !ok || c.BriefURL == "" || m.briefs[c.ID].loading {
			return m, nil
		}
		m.briefs[c.ID] = briefState{loading: true}
		if !m.showDetail {
			m.showDetail = true
			m.resize()
		}
		m.refreshDetail()
		return m, m.fetchBriefCmd(c)

	case key.Matches(msg, m.keys.Open):
		if c, ok := m.selected(); ok && c.BriefURL != "" {
			return m, openInBrowser(c.BriefURL)
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		active := m.mgr.Active()
		tv := m.mgr.View(active)
		return m, m.load(m.mgr.Begin(active, 1, tv.IsLoaded))

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.search.Focus()
		return m, textinput.Blink
	}

	m.refreshDetail()
	return m, m.maybeLoadMore()
}

func openInBrowser(url string) tea.Cmd {
	return func() tea.Msg {
		var cmd *exec.Cmd
		switch runtime.GOOS {
		case "darwin":
			cmd = exec.Command("open", url)
		case "linux":
			cmd = exec.Command("xdg-open", url)
		default:
			cmd = exec.Command("open", url)
		}
		if err := cmd.Start(); err != nil {
			applog.Error("tui.open", err, "url", url)
		}
		return nil
	}
}

// --- View ---

func (m Model) View() string {
	if m.width == 0 {
		return ""
	}
	active := m.mgr.Active()
	tabs := m.mgr.Tabs()
	views := make([]tabcache.TabView, 0, len(tabs))
	for _, t := range tabs {
		views = append(views, m.mgr.View(t.Name))
	}
	tv := m.mgr.View(active)

	var right string
	switch {
	case tv.Revalidating:
		right = m.spinner.View() + " refreshing"
	case !tv.LastFetchedAt.IsZero():
		right = "updated " + tv.LastFetchedAt.Local().Format("15:04")
	}

	var b strings.Builder
	b.WriteString(renderNavbar(views, active, right, m.width))
	b.WriteString("\n")
	if m.searching || m.search.Value() != "" {
		b.WriteString(m.search.View())
	}
	b.WriteString("\n")

	list := m.list.Render(m.items(), tv, m.spinner.View(), m.search.Value())
	list = lipgloss.NewStyle().Height(m.list.height).MaxHeight(m.list.height).Render(list)
	if m.showDetail {
		sep := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).
			Render(strings.Repeat(" │\n", max(1, m.list.height-1)) + " │")
		left := lipgloss.NewStyle().Width(m.list.width).Render(list)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, sep, " ", m.detail.View()))
	} else {
		b.WriteString(list)
	}
	b.WriteString("\n")

	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	if m.statusErr {
		statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	}
	status := m.status
	if status == "" && tv.IsLoaded {
		status = analyzer.ComputeStats(tv.Items, time.Now()).String()
	}
	b.WriteString(statusStyle.Render(truncate(status, max(4, m.width-1))))
	b.WriteString("\n")
	b.WriteString(m.helpLine())
	return b.String()
}

func (m Model) helpLine() string {
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	var parts []string
	for _, k := range m.keys.ShortHelp() {
		h := k.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return dimStyle.Render(" " + strings.Join(parts, " · "))
}
