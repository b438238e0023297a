package mockapi

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Application statuses grouped the way the listing endpoint ranks them.
var (
	workingStatuses   = []string{"APPROVED", "WORK_IN_PROGRESS", "SCRIPT_APPROVED", "DRAFT_APPROVED"}
	waitingStatuses   = []string{"WAITING", "SUBMITTED_SCRIPT", "SUBMITTED_DRAFT", "SUBMITTED_FINAL"}
	completedStatuses = []string{"COMPLETED"}
	historyStatuses   = []string{"PAYMENT_TRANSFERRED", "REJECTED"}
)

// Campaign is a campaign as the mock backend stores it. UserStatus is
// the current user's application status, "" when not applied.
type Campaign struct {
	ID                  int    `json:"id"`
	UUID                string `json:"uuid"`
	Title               string `json:"title" binding:"required"`
	BrandName           string `json:"brand_name"`
	Description         string `json:"description"`
	Budget              string `json:"budget"`
	ApplicationDeadline string `json:"application_deadline"` // YYYY-MM-DD
	ContentDeadline     string `json:"content_deadline"`
	Status              string `json:"status"` // DRAFT, OPEN, IN_PROGRESS, CLOSED
	UserStatus          string `json:"user_status"`
	Requirements        string `json:"requirements"`
	Location            string `json:"location"`
	FollowersRequired   int    `json:"followers_required"`
	BriefURL            string `json:"brief_url"`
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Priority ranks c in the listing: 1 working, 2 waiting for review,
// 3 waiting for payment, 4 open and not applied, 5 everything else.
func Priority(c Campaign) int {
	switch {
	case contains(workingStatuses, c.UserStatus):
		return 1
	case contains(waitingStatuses, c.UserStatus):
		return 2
	case contains(completedStatuses, c.UserStatus):
		return 3
	case c.UserStatus == "" && c.Status == "OPEN":
		return 4
	}
	return 5
}

// matchesFilter reports whether c belongs to the listing for filter
// ("active", "history", or "" for everything).
func matchesFilter(c Campaign, filter string) bool {
	switch filter {
	case "active":
		return contains(workingStatuses, c.UserStatus) ||
			contains(waitingStatuses, c.UserStatus) ||
			contains(completedStatuses, c.UserStatus)
	case "history":
		return contains(historyStatuses, c.UserStatus)
	}
	return true
}

// tabFor names the one filtered listing that c appears in besides the
// unfiltered one, or "" if none.
func tabFor(c Campaign) string {
	switch {
	case matchesFilter(c, "active"):
		return "active"
	case matchesFilter(c, "history"):
		return "history"
	}
	return ""
}

// Store is the in-memory campaign table.
type Store struct {
	mu        sync.Mutex
	campaigns []Campaign
	nextID    int
}

func NewStore() *Store {
	return &Store{nextID: 1}
}

// List returns the campaigns for filter in listing order. Drafts are
// never listed.
func (s *Store) List(filter string) []Campaign {
	s.mu.Lock()
	var out []Campaign
	for _, c := range s.campaigns {
		if c.Status != "DRAFT" && matchesFilter(c, filter) {
			out = append(out, c)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := Priority(out[i]), Priority(out[j])
		if pi != pj {
			return pi < pj
		}
		di, dj := out[i].ApplicationDeadline, out[j].ApplicationDeadline
		if di != dj {
			// Missing deadlines sort last.
			if di == "" || dj == "" {
				return dj == ""
			}
			return di < dj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Get finds a non-draft campaign by numeric id or uuid.
func (s *Store) Get(key string) (Campaign, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.campaigns {
		if c.Status == "DRAFT" {
			continue
		}
		if c.UUID == key || fmt.Sprint(c.ID) == key {
			return c, true
		}
	}
	return Campaign{}, false
}

// Add stores c with a fresh id and, if missing, a uuid.
func (s *Store) Add(c Campaign) Campaign {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.nextID
	s.nextID++
	if c.UUID == "" {
		c.UUID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = "OPEN"
	}
	s.campaigns = append(s.campaigns, c)
	return c
}

// SetUserStatus changes the user's application status of campaign id.
func (s *Store) SetUserStatus(id int, status string) (Campaign, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.campaigns {
		if s.campaigns[i].ID == id {
			s.campaigns[i].UserStatus = status
			return s.campaigns[i], true
		}
	}
	return Campaign{}, false
}

// Delete removes campaign id.
func (s *Store) Delete(id int) (Campaign, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.campaigns {
		if c.ID == id {
			s.campaigns = append(s.campaigns[:i], s.campaigns[i+1:]...)
			return c, true
		}
	}
	return Campaign{}, false
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.campaigns)
}

var (
	seedBrands = []string{"Glow Lab", "Bean Co", "Siam Sneakers", "Mango Mobile", "Green Bowl", "Nara Travel", "Pixel Pets", "Chao Phraya Tea"}
	seedTopics = []string{"Summer Skincare", "Morning Coffee", "Street Style", "Unboxing", "Healthy Lunch", "Weekend Trip", "Pet Care Tips", "Tea Ceremony"}
	seedUser   = []string{"", "", "", "", "WAITING", "APPROVED", "WORK_IN_PROGRESS", "SUBMITTED_DRAFT", "COMPLETED", "PAYMENT_TRANSFERRED", "REJECTED", "SCRIPT_APPROVED"}
	seedStatus = []string{"OPEN", "OPEN", "OPEN", "IN_PROGRESS", "CLOSED", "DRAFT"}
)

// Seed adds n generated campaigns. The same seed always yields the
// same campaigns, uuids included.
func (s *Store) Seed(n int, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		brand := seedBrands[rng.Intn(len(seedBrands))]
		topic := seedTopics[rng.Intn(len(seedTopics))]
		id, err := uuid.NewRandomFromReader(rng)
		if err != nil {
			id = uuid.New()
		}
		deadline := base.AddDate(0, 0, rng.Intn(120))
		s.Add(Campaign{
			UUID:                id.String(),
			Title:               fmt.Sprintf("%s #%d", topic, i+1),
			BrandName:           brand,
			Description:         fmt.Sprintf("%s is looking for creators for a %s campaign.", brand, topic),
			Budget:              fmt.Sprintf("%d.00", (rng.Intn(20)+1)*500),
			ApplicationDeadline: deadline.Format("2006-01-02"),
			ContentDeadline:     deadline.AddDate(0, 0, 14).Format("2006-01-02"),
			Status:              seedStatus[rng.Intn(len(seedStatus))],
			UserStatus:          seedUser[rng.Intn(len(seedUser))],
			Requirements:        "TikTok or Instagram, public account",
			Location:            "Bangkok",
			FollowersRequired:   (rng.Intn(10) + 1) * 1000,
		})
	}
}
