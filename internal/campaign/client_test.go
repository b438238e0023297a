package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lotas/campaigndesk/internal/types"
)

func TestFetchPageRequestShape(t *testing.T) {
	var (
		gotMethod, gotPath, gotAuth, gotQuery string
		gotBody                               map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		json.Unmarshal(b, &gotBody)
		w.Write([]byte(`{"count":25,"next":"http://x/campaigns/?page=3","previous":null,"results":[{"id":1,"title":"A"},{"id":2,"title":"B"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret", time.Second)
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }

	page, err := c.FetchPage(context.Background(), types.PageRequest{Page: 2, PageSize: 10, Filter: "active"})
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/campaigns/" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
	if gotQuery != "page=2&page_size=10" {
		t.Errorf("query = %q", gotQuery)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("auth = %q", gotAuth)
	}
	if gotBody["status"] != "active" || gotBody["_t"] != float64(1700000000000) {
		t.Errorf("body = %v", gotBody)
	}
	if len(page.Items) != 2 || !page.HasNextPage {
		t.Errorf("page = %d items, hasNext %v", len(page.Items), page.HasNextPage)
	}
}

func TestFetchPageAllTabOmitsStatus(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	if _, err := c.FetchPage(context.Background(), types.PageRequest{Page: 1, PageSize: 10}); err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if _, ok := gotBody["status"]; ok {
		t.Errorf("body has status: %v", gotBody)
	}
}

func TestParsePage(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantIDs     []string
		wantNext    bool
		wantSkipped int
		wantErr     bool
	}{
		{"paginated with next", `{"next":"u","results":[{"id":1},{"id":2}]}`, []string{"1", "2"}, true, 0, false},
		{"paginated last page", `{"next":null,"results":[{"id":3}]}`, []string{"3"}, false, 0, false},
		{"missing next", `{"results":[]}`, nil, false, 0, false},
		{"bare array", `[{"id":"a"},{"id":"b"}]`, []string{"a", "b"}, false, 0, false},
		{"skips items without id", `[{"id":1},{"title":"x"},{"id":null},"str"]`, []string{"1"}, false, 3, false},
		{"object without results", `{"detail":"x"}`, nil, false, 0, true},
		{"invalid", `{`, nil, false, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, skipped, err := ParsePage([]byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			var ids []string
			for _, c := range page.Items {
				ids = append(ids, c.ID)
			}
			if len(ids) != len(tt.wantIDs) {
				t.Fatalf("ids = %v, want %v", ids, tt.wantIDs)
			}
			for i := range ids {
				if ids[i] != tt.wantIDs[i] {
					t.Errorf("ids = %v, want %v", ids, tt.wantIDs)
				}
			}
			if page.HasNextPage != tt.wantNext {
				t.Errorf("HasNextPage = %v, want %v", page.HasNextPage, tt.wantNext)
			}
			if skipped != tt.wantSkipped {
				t.Errorf("skipped = %d, want %d", skipped, tt.wantSkipped)
			}
		})
	}
}

func TestStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.Error(w, `{"detail":"Invalid page."}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).FetchPage(context.Background(), types.PageRequest{Page: 1})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}

	_, err = NewClient(srv.URL, "tok", time.Second).FetchPage(context.Background(), types.PageRequest{Page: 9})
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("err = %v, want 404 StatusError", err)
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Error("404 should not match ErrUnauthorized")
	}
}

func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/campaigns/42/" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"id":42,"title":"Detail","brief_url":"https://example.com/b"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "t", time.Second).Get(context.Background(), "42")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if c.ID != "42" || c.Title != "Detail" || c.BriefURL != "https://example.com/b" {
		t.Errorf("got %+v", c)
	}
}

func TestFetchPageTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	if _, err := NewClient(srv.URL, "", time.Second).FetchPage(context.Background(), types.PageRequest{Page: 1}); err == nil {
		t.Error("expected error from closed server")
	}
}
