package brief

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/lotas/campaigndesk/internal/applog"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Brief is the readable part of a campaign brief page.
type Brief struct {
	URL      string
	Title    string
	Byline   string
	SiteName string
	Excerpt  string
	Text     string
}

var client = &http.Client{Timeout: 15 * time.Second}

// Fetch downloads a campaign's brief_url and extracts its readable text.
// Only http and https URLs are fetched.
func Fetch(ctx context.Context, rawURL string) (Brief, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Brief{}, fmt.Errorf("parse brief url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Brief{}, fmt.Errorf("skipping non-HTTP brief url: %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Brief{}, fmt.Errorf("fetch %s: %w", u, err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return Brief{}, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Brief{}, fmt.Errorf("fetch %s: HTTP %d", u, resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, u)
	if err != nil {
		return Brief{}, fmt.Errorf("extract readable content from %s: %w", u, err)
	}
	applog.Info("brief.fetched", "url", u.String(), "chars", len(article.TextContent))

	return Brief{
		URL:      u.String(),
		Title:    article.Title,
		Byline:   article.Byline,
		SiteName: article.SiteName,
		Excerpt:  article.Excerpt,
		Text:     strings.TrimSpace(article.TextContent),
	}, nil
}

// Markdown renders b as a markdown section for the detail pane.
func (b Brief) Markdown() string {
	var sb strings.Builder
	sb.WriteString("## Brief")
	if b.Title != "" {
		sb.WriteString(": " + b.Title)
	}
	sb.WriteString("\n\n")
	if b.SiteName != "" || b.Byline != "" {
		fmt.Fprintf(&sb, "_%s_\n\n", strings.TrimSpace(b.SiteName+" "+b.Byline))
	}
	for _, para := range strings.Split(b.Text, "\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		sb.WriteString(para + "\n\n")
	}
	fmt.Fprintf(&sb, "[Source](%s)\n", b.URL)
	return sb.String()
}
