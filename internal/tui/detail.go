package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
	"github.com/tidwall/gjson"

	"github.com/lotas/campaigndesk/internal/applog"
	"github.com/lotas/campaigndesk/internal/brief"
	"github.com/lotas/campaigndesk/internal/types"
)

// briefState tracks the on-demand brief fetch for one campaign.
type briefState struct {
	loading bool
	brief   *brief.Brief
	err     error
}

// DetailModel shows the selected campaign rendered as markdown.
type DetailModel struct {
	viewport viewport.Model
	renderer *glamour.TermRenderer
	width    int

	campaignID string
	markdown   string
}

func NewDetailModel() DetailModel {
	return DetailModel{viewport: viewport.New(40, 10)}
}

// SetSize resizes the pane. The renderer is rebuilt for the new wrap width.
func (d *DetailModel) SetSize(w, h int) {
	d.viewport.Width = w
	d.viewport.Height = h
	if w != d.width {
		d.width = w
		d.renderer = nil
		d.render()
	}
}

// Show renders c with its brief state. The scroll position is kept when
// the same campaign is re-rendered.
func (d *DetailModel) Show(c types.Campaign, bs briefState) {
	md := campaignMarkdown(c, bs)
	if c.ID == d.campaignID && md == d.markdown {
		return
	}
	if c.ID != d.campaignID {
		d.viewport.GotoTop()
	}
	d.campaignID = c.ID
	d.markdown = md
	d.render()
}

func (d *DetailModel) render() {
	if d.markdown == "" {
		return
	}
	if d.renderer == nil {
		r, err := glamour.NewTermRenderer(
			glamour.WithStylePath("dark"),
			glamour.WithWordWrap(max(20, d.width-2)),
		)
		if err != nil {
			applog.Error("tui.glamour", err)
			d.viewport.SetContent(d.markdown)
			return
		}
		d.renderer = r
	}
	out, err := d.renderer.Render(d.markdown)
	if err != nil {
		applog.Error("tui.render", err, "campaign", d.campaignID)
		out = d.markdown
	}
	d.viewport.SetContent(strings.TrimRight(out, "\n"))
}

func (d DetailModel) View() string {
	return d.viewport.View()
}

// campaignMarkdown builds the detail document. Fields the list does not
// lift out of the payload are read from the raw JSON.
func campaignMarkdown(c types.Campaign, bs briefState) string {
	raw := gjson.ParseBytes(c.Raw)
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", c.Title)
	if c.BrandName != "" {
		fmt.Fprintf(&sb, "**%s**\n\n", c.BrandName)
	}

	status := c.Status
	if c.UserStatus != "" {
		status += " / " + c.UserStatus
	}
	rows := [][2]string{
		{"Status", status},
		{"Budget", raw.Get("budget").String()},
		{"Apply by", c.Deadline},
		{"Content due", raw.Get("content_deadline").String()},
		{"Location", raw.Get("location").String()},
	}
	if n := raw.Get("followers_required").Int(); n > 0 {
		rows = append(rows, [2]string{"Followers", fmt.Sprintf("%d+", n)})
	}
	for _, r := range rows {
		if r[1] != "" {
			fmt.Fprintf(&sb, "- **%s:** %s\n", r[0], r[1])
		}
	}
	sb.WriteString("\n")

	if desc := raw.Get("description").String(); desc != "" {
		sb.WriteString(desc + "\n\n")
	}
	if req := raw.Get("requirements").String(); req != "" {
		fmt.Fprintf(&sb, "## Requirements\n\n%s\n\n", req)
	}

	switch {
	case c.BriefURL == "":
	case bs.loading:
		sb.WriteString("_Fetching brief…_\n")
	case bs.err != nil:
		fmt.Fprintf(&sb, "_Brief failed: %s. Press b to retry._\n", bs.err)
	case bs.brief != nil:
		sb.WriteString(bs.brief.Markdown())
	default:
		sb.WriteString("_Press b to fetch the brief._\n")
	}
	return sb.String()
}
