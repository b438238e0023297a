package export

import (
	"fmt"
	"strings"
	"time"
)

// Markdown formats cached tabs as a markdown document.
func Markdown(sections []Section) string {
	var b strings.Builder

	b.WriteString("# Campaigns\n")
	fmt.Fprintf(&b, "> Exported %s\n", time.Now().Format("2006-01-02 15:04"))

	for _, s := range sections {
		n := len(s.Items)
		noun := "campaigns"
		if n == 1 {
			noun = "campaign"
		}
		label := s.Label
		if label == "" {
			label = s.Tab
		}
		fmt.Fprintf(&b, "\n## %s (%d %s)\n\n", label, n, noun)
		if s.LastFetchedAt.IsZero() {
			b.WriteString("_Never loaded._\n")
			continue
		}
		fmt.Fprintf(&b, "_Fetched %s", relativeTime(s.LastFetchedAt))
		if s.HasMore {
			b.WriteString(", more pages on the server")
		}
		b.WriteString("._\n\n")

		for _, c := range s.Items {
			title := c.Title
			if title == "" {
				title = "#" + c.ID
			}
			if c.BriefURL != "" {
				title = fmt.Sprintf("[%s](%s)", title, c.BriefURL)
			}
			var meta []string
			if c.BrandName != "" {
				meta = append(meta, c.BrandName)
			}
			if c.UserStatus != "" {
				meta = append(meta, c.UserStatus)
			} else if c.Status != "" {
				meta = append(meta, c.Status)
			}
			if c.Deadline != "" {
				meta = append(meta, "apply by "+c.Deadline)
			}
			if len(meta) > 0 {
				fmt.Fprintf(&b, "- %s · %s\n", title, strings.Join(meta, " · "))
			} else {
				fmt.Fprintf(&b, "- %s\n", title)
			}
		}
	}

	return b.String()
}

func relativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
