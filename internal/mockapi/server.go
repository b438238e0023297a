package mockapi

import (
	"context"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lotas/campaigndesk/internal/applog"
	"github.com/lotas/campaigndesk/internal/live"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Server is a local stand-in for the campaign API: the listing and
// detail endpoints, a websocket change feed and a few endpoints to
// mutate the data by hand.
type Server struct {
	addr   string
	token  string // required bearer token; empty accepts any request
	store  *Store
	hub    *live.Hub
	server *http.Server
}

// NewServer creates a mock API server on addr.
func NewServer(addr, token string, store *Store, hub *live.Hub) *Server {
	if addr == "" {
		addr = "127.0.0.1:8000"
	}
	return &Server{addr: addr, token: token, store: store, hub: hub}
}

// Router builds the gin engine. Exposed for tests.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.handleHealth)
	r.GET("/ws", gin.WrapH(s.hub.Handler()))

	api := r.Group("/api/v1", s.requireToken)
	api.GET("/campaigns/", s.handleList)
	api.POST("/campaigns/", s.handleList)
	api.GET("/campaigns/:id/", s.handleDetail)

	mock := r.Group("/_mock")
	mock.POST("/campaigns", s.handleAdd)
	mock.PATCH("/campaigns/:id", s.handleSetUserStatus)
	mock.DELETE("/campaigns/:id", s.handleDelete)
	return r
}

// ListenAndServe serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	s.server = &http.Server{
		Handler:           s.Router(),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	applog.Info("mockapi.start", "addr", listener.Addr().String(), "campaigns", s.store.Len())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) requireToken(c *gin.Context) {
	if s.token == "" {
		return
	}
	if c.GetHeader("Authorization") != "Bearer "+s.token {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"campaigns": s.store.Len(),
		"clients":   s.hub.Clients(),
	})
}

func (s *Server) handleList(c *gin.Context) {
	var body struct {
		Status string `json:"status"`
	}
	if c.Request.Method == http.MethodPost && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid JSON body"})
			return
		}
	}
	filter := body.Status
	if filter == "" {
		filter = c.Query("status")
	}

	pageSize := defaultPageSize
	if v := c.Query("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			pageSize = min(n, maxPageSize)
		}
	}
	page := 1
	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Invalid page."})
			return
		}
		page = n
	}

	all := s.store.List(filter)
	numPages := max(1, (len(all)+pageSize-1)/pageSize)
	if page > numPages {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Invalid page."})
		return
	}

	start := (page - 1) * pageSize
	end := min(start+pageSize, len(all))
	results := make([]gin.H, 0, end-start)
	for _, cmp := range all[start:end] {
		results = append(results, campaignJSON(cmp))
	}

	var next, previous any
	if page < numPages {
		next = pageLink(c, page+1, pageSize)
	}
	if page > 1 {
		previous = pageLink(c, page-1, pageSize)
	}

	applog.Info("mockapi.list", "filter", filter, "page", page, "page_size", pageSize, "count", len(all))
	c.JSON(http.StatusOK, gin.H{
		"count":    len(all),
		"next":     next,
		"previous": previous,
		"results":  results,
	})
}

// pageLink builds the absolute URL of another page, like DRF does.
func pageLink(c *gin.Context, page, pageSize int) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))
	u := url.URL{Scheme: scheme, Host: c.Request.Host, Path: c.Request.URL.Path, RawQuery: q.Encode()}
	return u.String()
}

func (s *Server) handleDetail(c *gin.Context) {
	cmp, ok := s.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	c.JSON(http.StatusOK, campaignJSON(cmp))
}

func (s *Server) handleAdd(c *gin.Context) {
	var in Campaign
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing title"})
		return
	}
	cmp := s.store.Add(in)
	s.notify(cmp)
	c.JSON(http.StatusCreated, campaignJSON(cmp))
}

func (s *Server) handleSetUserStatus(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be numeric"})
		return
	}
	var in struct {
		UserStatus string `json:"user_status"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	before, ok := s.store.Get(c.Param("id"))
	cmp, found := s.store.SetUserStatus(id, strings.ToUpper(in.UserStatus))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	if ok {
		s.announce(before, cmp)
	} else {
		s.notify(cmp)
	}
	c.JSON(http.StatusOK, campaignJSON(cmp))
}

func (s *Server) handleDelete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be numeric"})
		return
	}
	cmp, ok := s.store.Delete(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	s.notify(cmp)
	c.Status(http.StatusNoContent)
}

// notify tells subscribers which listing cmp changed. A campaign in a
// filtered listing also changes the unfiltered one, so those go out
// without a tab.
func (s *Server) notify(cmp Campaign) {
	ev := live.Event{Type: live.TypeCampaignsChanged, ID: strconv.Itoa(cmp.ID)}
	if tabFor(cmp) == "" {
		ev.Tab = "all"
	}
	s.hub.Broadcast(ev)
}

// announce tells subscribers about a user status change. A campaign
// that moved between filtered listings changes both, so the event goes
// out without a tab.
func (s *Server) announce(before, after Campaign) {
	if tabFor(before) != tabFor(after) {
		s.hub.Broadcast(live.Event{Type: live.TypeCampaignsChanged, ID: strconv.Itoa(after.ID)})
		return
	}
	s.notify(after)
}

// Churn changes the user status of a random listed campaign on every
// tick and announces it, until ctx is done.
func (s *Server) Churn(ctx context.Context, every time.Duration, seed int64) error {
	rng := rand.New(rand.NewSource(seed))
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		list := s.store.List("")
		if len(list) == 0 {
			continue
		}
		before := list[rng.Intn(len(list))]
		after, ok := s.store.SetUserStatus(before.ID, seedUser[rng.Intn(len(seedUser))])
		if !ok {
			continue
		}
		applog.Info("mockapi.churn", "id", after.ID, "from", before.UserStatus, "to", after.UserStatus)
		s.announce(before, after)
	}
}

func campaignJSON(c Campaign) gin.H {
	var userStatus any
	if c.UserStatus != "" {
		userStatus = c.UserStatus
	}
	var brief any
	if c.BriefURL != "" {
		brief = c.BriefURL
	}
	return gin.H{
		"id":                   c.ID,
		"uuid":                 c.UUID,
		"title":                c.Title,
		"brand_name":           c.BrandName,
		"description":          c.Description,
		"budget":               c.Budget,
		"application_deadline": c.ApplicationDeadline,
		"content_deadline":     c.ContentDeadline,
		"status":               c.Status,
		"user_status":          userStatus,
		"priority":             Priority(c),
		"requirements":         c.Requirements,
		"location":             c.Location,
		"followers_required":   c.FollowersRequired,
		"brief_url":            brief,
	}
}
