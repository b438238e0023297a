package campaign

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/lotas/campaigndesk/internal/applog"
	"github.com/lotas/campaigndesk/internal/types"
)

// ErrUnauthorized is wrapped by the StatusError of a 401 response.
var ErrUnauthorized = errors.New("campaign: unauthorized")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string // first bytes of the response body
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Code)
}

func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// Client talks to the campaign API.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client

	now func() time.Time
}

// NewClient returns a client for the API rooted at baseURL
// (e.g. http://localhost:8000/api/v1).
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

// FetchPage requests one page of the campaign list. The listing endpoint
// takes its filter in a POST body; _t busts intermediary caches.
func (c *Client) FetchPage(ctx context.Context, req types.PageRequest) (types.Page, error) {
	q := url.Values{}
	if req.Page > 0 {
		q.Set("page", strconv.Itoa(req.Page))
	}
	if req.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(req.PageSize))
	}
	endpoint := c.BaseURL + "/campaigns/?" + q.Encode()

	body := map[string]any{"_t": c.now().UnixMilli()}
	if req.Filter != "" {
		body["status"] = req.Filter
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return types.Page{}, fmt.Errorf("encode request: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return types.Page{}, err
	}
	page, skipped, err := ParsePage(data)
	if err != nil {
		return types.Page{}, err
	}
	if skipped > 0 {
		applog.Warn("campaign.list.skipped", "page", req.Page, "filter", req.Filter, "count", skipped, "reason", "missing id")
	}
	return page, nil
}

// Get fetches a single campaign by id or uuid.
func (c *Client) Get(ctx context.Context, id string) (types.Campaign, error) {
	endpoint := c.BaseURL + "/campaigns/" + url.PathEscape(id) + "/"
	data, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return types.Campaign{}, err
	}
	cmp, err := types.CampaignFromJSON(data)
	if err != nil {
		return types.Campaign{}, fmt.Errorf("decode campaign %s: %w", id, err)
	}
	return cmp, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	applog.Info("campaign.http", "method", method, "url", endpoint, "status", resp.StatusCode, "ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(data)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &StatusError{Method: method, URL: endpoint, Code: resp.StatusCode, Body: snippet}
	}
	return data, nil
}

// ParsePage decodes a listing response. Both a paginated object
// ({count, next, previous, results}) and a bare array are accepted.
// Items without an id are dropped and counted in skipped.
func ParsePage(data []byte) (page types.Page, skipped int, err error) {
	if !gjson.ValidBytes(data) {
		return types.Page{}, 0, errors.New("decode campaign list: invalid json")
	}
	root := gjson.ParseBytes(data)

	var items gjson.Result
	switch {
	case root.IsArray():
		items = root
	case root.IsObject() && root.Get("results").IsArray():
		items = root.Get("results")
		next := root.Get("next")
		page.HasNextPage = next.Exists() && next.Type != gjson.Null && next.String() != ""
	default:
		return types.Page{}, 0, errors.New("decode campaign list: unexpected shape")
	}

	page.Items = make([]types.Campaign, 0, len(items.Array()))
	for _, it := range items.Array() {
		id := it.Get("id")
		if !id.Exists() || id.Type == gjson.Null || id.String() == "" {
			skipped++
			continue
		}
		cmp, err := types.CampaignFromJSON([]byte(it.Raw))
		if err != nil {
			skipped++
			continue
		}
		page.Items = append(page.Items, cmp)
	}
	return page, skipped, nil
}
