package draft

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lotas/campaigndesk/internal/storage"
)

type countingStore struct {
	*storage.MemoryKV
	mu     sync.Mutex
	writes int
	fail   error
}

func (s *countingStore) Write(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.writes++
	return s.MemoryKV.Write(key, value)
}

func (s *countingStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func newStore() *countingStore {
	return &countingStore{MemoryKV: storage.NewMemoryKV()}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func fastOptions() Options {
	return Options{Debounce: 20 * time.Millisecond, SavedFor: 40 * time.Millisecond}
}

func TestOpenWithoutStoredDraft(t *testing.T) {
	a := Open(newStore(), fastOptions())
	defer a.Close()

	d := a.Draft()
	if d.Step != 1 || d.LastUpdated != nil || len(d.Data.Interests) != 0 {
		t.Errorf("draft = %+v, want defaults", d)
	}
	if a.Status() != StatusIdle {
		t.Errorf("status = %s", a.Status())
	}
}

func TestDebouncedSave(t *testing.T) {
	store := newStore()
	a := Open(store, fastOptions())
	defer a.Close()

	a.SetStep(2)
	a.UpdateInterests([]string{"beauty", "food"})
	a.UpdatePersonalInfo(func(p *PersonalInfo) { p.Phone = "0812345678" })
	if a.Status() != StatusSaving {
		t.Errorf("status after change = %s, want saving", a.Status())
	}

	waitFor(t, "saved", func() bool { return a.Status() == StatusSaved })
	if n := store.writeCount(); n != 1 {
		t.Errorf("writes = %d, want 1 for a burst of changes", n)
	}
	waitFor(t, "idle", func() bool { return a.Status() == StatusIdle })

	raw, ok, _ := store.Read(Key)
	if !ok {
		t.Fatal("draft not stored")
	}
	d, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if d.Step != 2 || d.Data.PersonalInfo.Phone != "0812345678" || len(d.Data.Interests) != 2 {
		t.Errorf("stored draft = %+v", d)
	}
	if d.LastUpdated == nil {
		t.Error("lastUpdated not stamped")
	}
}

func TestReopenRestoresDraft(t *testing.T) {
	store := newStore()
	a := Open(store, fastOptions())
	a.UpdateWorkConditions(func(w *WorkConditions) {
		w.BoostPrice = "500"
		w.SocialAccounts = append(w.SocialAccounts, SocialAccount{Platform: "tiktok", Username: "somchai"})
	})
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b := Open(store, fastOptions())
	defer b.Close()
	wc := b.Draft().Data.WorkConditions
	if wc.BoostPrice != "500" || len(wc.SocialAccounts) != 1 || wc.SocialAccounts[0].Username != "somchai" {
		t.Errorf("work conditions = %+v", wc)
	}
}

func TestMalformedDraftFallsBackToDefaults(t *testing.T) {
	store := newStore()
	store.MemoryKV.Write(Key, `{"step":`)
	a := Open(store, fastOptions())
	defer a.Close()
	if a.Draft().Step != 1 {
		t.Errorf("draft = %+v", a.Draft())
	}
}

func TestPartialDraftMergesOverDefaults(t *testing.T) {
	d, err := Decode(`{"step":3}`)
	if err != nil {
		t.Fatal(err)
	}
	if d.Step != 3 || d.Data.Interests == nil || d.Data.WorkConditions.SocialAccounts == nil {
		t.Errorf("draft = %+v", d)
	}
}

func TestWriteFailureKeepsSaving(t *testing.T) {
	store := newStore()
	store.fail = errors.New("quota exceeded")
	a := Open(store, fastOptions())
	defer a.Close()

	a.SetStep(4)
	if err := a.Flush(); err == nil {
		t.Error("Flush should report the write error")
	}
	if a.Status() != StatusSaving {
		t.Errorf("status = %s, want saving", a.Status())
	}

	store.mu.Lock()
	store.fail = nil
	store.mu.Unlock()
	if err := a.Flush(); err != nil {
		t.Errorf("retry Flush: %v", err)
	}
	if a.Status() != StatusSaved {
		t.Errorf("status = %s, want saved", a.Status())
	}
}

func TestClear(t *testing.T) {
	store := newStore()
	a := Open(store, fastOptions())
	defer a.Close()

	a.SetStep(3)
	a.Flush()
	if err := a.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := store.Read(Key); ok {
		t.Error("stored draft not removed")
	}
	if a.Draft().Step != 1 {
		t.Error("draft not reset")
	}

	// Nothing pending after Clear, so nothing is written back.
	time.Sleep(50 * time.Millisecond)
	if _, ok, _ := store.Read(Key); ok {
		t.Error("cleared draft was written again")
	}
}

func TestFlushWithoutChangesWritesNothing(t *testing.T) {
	store := newStore()
	a := Open(store, fastOptions())
	a.Close()
	if store.writeCount() != 0 {
		t.Errorf("writes = %d", store.writeCount())
	}
}

func TestSetPersonalField(t *testing.T) {
	fn, err := SetPersonalField("sub-district", "Lumphini")
	if err != nil {
		t.Fatal(err)
	}
	var p PersonalInfo
	fn(&p)
	if p.SubDistrict != "Lumphini" {
		t.Errorf("SubDistrict = %q", p.SubDistrict)
	}
	if _, err := SetPersonalField("shoe-size", "42"); err == nil || !strings.Contains(err.Error(), "shoe-size") {
		t.Errorf("err = %v", err)
	}
}
