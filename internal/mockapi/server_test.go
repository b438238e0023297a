package mockapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lotas/campaigndesk/internal/campaign"
	"github.com/lotas/campaigndesk/internal/live"
	"github.com/lotas/campaigndesk/internal/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, token string) (*Server, *Store, *gin.Engine) {
	t.Helper()
	store := NewStore()
	srv := NewServer("", token, store, live.NewHub())
	return srv, store, srv.Router()
}

type listBody struct {
	Count    int              `json:"count"`
	Next     *string          `json:"next"`
	Previous *string          `json:"previous"`
	Results  []map[string]any `json:"results"`
}

func doList(t *testing.T, r *gin.Engine, query, body string) (int, listBody) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns/?"+query, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var lb listBody
	if w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), &lb); err != nil {
			t.Fatalf("unmarshal list: %v", err)
		}
	}
	return w.Code, lb
}

func titles(lb listBody) []string {
	var out []string
	for _, r := range lb.Results {
		out = append(out, r["title"].(string))
	}
	return out
}

func TestListPriorityOrder(t *testing.T) {
	_, store, r := newTestServer(t, "")
	store.Add(Campaign{Title: "closed", Status: "CLOSED", ApplicationDeadline: "2026-01-01"})
	store.Add(Campaign{Title: "open-late", Status: "OPEN", ApplicationDeadline: "2026-03-01"})
	store.Add(Campaign{Title: "open-early", Status: "OPEN", ApplicationDeadline: "2026-02-01"})
	store.Add(Campaign{Title: "completed", Status: "IN_PROGRESS", UserStatus: "COMPLETED"})
	store.Add(Campaign{Title: "waiting", Status: "OPEN", UserStatus: "SUBMITTED_DRAFT"})
	store.Add(Campaign{Title: "working", Status: "IN_PROGRESS", UserStatus: "WORK_IN_PROGRESS"})
	store.Add(Campaign{Title: "draft", Status: "DRAFT"})
	store.Add(Campaign{Title: "rejected", Status: "OPEN", UserStatus: "REJECTED", ApplicationDeadline: "2026-01-15"})

	code, lb := doList(t, r, "page=1&page_size=20", `{}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	want := []string{"working", "waiting", "completed", "open-early", "open-late", "closed", "rejected"}
	if got := titles(lb); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", got, want)
	}
	if lb.Count != 7 {
		t.Errorf("count = %d, want 7 (drafts excluded)", lb.Count)
	}
}

func TestListStatusFilter(t *testing.T) {
	_, store, r := newTestServer(t, "")
	store.Add(Campaign{Title: "open"})
	store.Add(Campaign{Title: "approved", UserStatus: "APPROVED"})
	store.Add(Campaign{Title: "waiting", UserStatus: "WAITING"})
	store.Add(Campaign{Title: "completed", UserStatus: "COMPLETED"})
	store.Add(Campaign{Title: "paid", UserStatus: "PAYMENT_TRANSFERRED"})
	store.Add(Campaign{Title: "rejected", UserStatus: "REJECTED"})

	tests := []struct {
		name  string
		query string
		body  string
		want  int
	}{
		{"all", "", `{"_t":1}`, 6},
		{"active in body", "", `{"status":"active","_t":1}`, 3},
		{"history in body", "", `{"status":"history"}`, 2},
		{"history in query", "status=history", ``, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, lb := doList(t, r, tt.query, tt.body)
			if code != http.StatusOK {
				t.Fatalf("status = %d", code)
			}
			if lb.Count != tt.want {
				t.Errorf("count = %d, want %d: %v", lb.Count, tt.want, titles(lb))
			}
		})
	}
}

func TestListPagination(t *testing.T) {
	_, store, r := newTestServer(t, "")
	for i := 0; i < 25; i++ {
		store.Add(Campaign{Title: "c"})
	}

	code, lb := doList(t, r, "page=1&page_size=10", `{}`)
	if code != http.StatusOK || len(lb.Results) != 10 || lb.Next == nil || lb.Previous != nil {
		t.Fatalf("page 1: code %d results %d next %v prev %v", code, len(lb.Results), lb.Next, lb.Previous)
	}
	if !strings.Contains(*lb.Next, "page=2") {
		t.Errorf("next = %q", *lb.Next)
	}

	_, lb = doList(t, r, "page=3&page_size=10", `{}`)
	if len(lb.Results) != 5 || lb.Next != nil || lb.Previous == nil {
		t.Errorf("page 3: results %d next %v prev %v", len(lb.Results), lb.Next, lb.Previous)
	}

	for _, q := range []string{"page=4&page_size=10", "page=0", "page=abc"} {
		if code, _ := doList(t, r, q, `{}`); code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", q, code)
		}
	}
}

func TestListEmptyFirstPage(t *testing.T) {
	_, _, r := newTestServer(t, "")
	code, lb := doList(t, r, "page=1", `{}`)
	if code != http.StatusOK || lb.Count != 0 || lb.Next != nil {
		t.Errorf("code %d count %d next %v", code, lb.Count, lb.Next)
	}
}

func TestDetailByIDOrUUID(t *testing.T) {
	_, store, r := newTestServer(t, "")
	c := store.Add(Campaign{Title: "detail"})
	store.Add(Campaign{Title: "hidden", Status: "DRAFT"})

	for _, key := range []string{"1", c.UUID} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns/"+key+"/", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"title":"detail"`) {
			t.Errorf("GET %s: %d %s", key, w.Code, w.Body.String())
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns/2/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("draft detail status = %d, want 404", w.Code)
	}
}

func TestRequireToken(t *testing.T) {
	_, _, r := newTestServer(t, "sekret")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status without token = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/campaigns/", nil)
	req.Header.Set("Authorization", "Bearer sekret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status with token = %d, want 200", w.Code)
	}
}

func TestMutationsBroadcast(t *testing.T) {
	srv, store, r := newTestServer(t, "")
	ts := httptest.NewServer(r)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	events := live.Subscribe(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws")
	for srv.hub.Clients() == 0 {
		if ctx.Err() != nil {
			t.Fatal("subscriber never connected")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.Post(ts.URL+"/_mock/campaigns", "application/json", bytes.NewBufferString(`{"title":"New one","brand_name":"Glow Lab"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add status = %d", resp.StatusCode)
	}

	select {
	case ev := <-events:
		if ev.Type != live.TypeCampaignsChanged || ev.Tab != "all" || ev.ID != "1" {
			t.Errorf("event = %+v", ev)
		}
	case <-ctx.Done():
		t.Fatal("no event after add")
	}

	req, _ := http.NewRequest(http.MethodPatch, ts.URL+"/_mock/campaigns/1", strings.NewReader(`{"user_status":"approved"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if c, _ := store.Get("1"); c.UserStatus != "APPROVED" {
		t.Errorf("user status = %q", c.UserStatus)
	}
	select {
	case ev := <-events:
		if ev.Tab != "" {
			t.Errorf("move event tab = %q, want every tab", ev.Tab)
		}
	case <-ctx.Done():
		t.Fatal("no event after patch")
	}

	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/_mock/campaigns/1", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent || store.Len() != 0 {
		t.Errorf("delete: status %d, len %d", resp.StatusCode, store.Len())
	}
	select {
	case <-events:
	case <-ctx.Done():
		t.Fatal("no event after delete")
	}
}

func TestAddRequiresTitle(t *testing.T) {
	_, _, r := newTestServer(t, "")
	req := httptest.NewRequest(http.MethodPost, "/_mock/campaigns", strings.NewReader(`{"brand_name":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// The campaign client pages through the mock until HasNextPage is false.
func TestClientAgainstMock(t *testing.T) {
	_, store, r := newTestServer(t, "tok")
	store.Seed(37, 7)
	ts := httptest.NewServer(r)
	defer ts.Close()

	client := campaign.NewClient(ts.URL+"/api/v1", "tok", time.Second)
	seen := map[string]bool{}
	page := 1
	for {
		p, err := client.FetchPage(context.Background(), types.PageRequest{Page: page, PageSize: 10})
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		for _, c := range p.Items {
			if seen[c.ID] {
				t.Errorf("duplicate id %s", c.ID)
			}
			seen[c.ID] = true
		}
		if !p.HasNextPage {
			break
		}
		page++
	}
	if want := len(store.List("")); len(seen) != want {
		t.Errorf("fetched %d campaigns, want %d", len(seen), want)
	}

	if _, err := client.FetchPage(context.Background(), types.PageRequest{Page: page + 1, PageSize: 10}); err == nil {
		t.Error("out-of-range page should fail")
	}
}

func TestSeedIsDeterministic(t *testing.T) {
	a, b := NewStore(), NewStore()
	a.Seed(5, 42)
	b.Seed(5, 42)
	la, lb := a.List(""), b.List("")
	if len(la) != len(lb) {
		t.Fatalf("len %d != %d", len(la), len(lb))
	}
	for i := range la {
		if la[i] != lb[i] {
			t.Errorf("campaign %d differs: %+v vs %+v", i, la[i], lb[i])
		}
	}
}

func TestChurnAnnouncesChanges(t *testing.T) {
	srv, store, r := newTestServer(t, "")
	store.Seed(10, 3)
	ts := httptest.NewServer(r)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	events := live.Subscribe(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws")
	for srv.hub.Clients() == 0 {
		if ctx.Err() != nil {
			t.Fatal("subscriber never connected")
		}
		time.Sleep(10 * time.Millisecond)
	}

	done := make(chan error, 1)
	churnCtx, stop := context.WithCancel(ctx)
	go func() { done <- srv.Churn(churnCtx, 20*time.Millisecond, 1) }()

	select {
	case ev := <-events:
		if ev.Type != live.TypeCampaignsChanged || ev.ID == "" {
			t.Errorf("event = %+v", ev)
		}
	case <-ctx.Done():
		t.Fatal("no event from churn")
	}

	stop()
	if err := <-done; err != nil {
		t.Errorf("Churn returned %v", err)
	}
}
