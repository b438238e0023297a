package draft

import (
	"sync"
	"time"

	"github.com/lotas/campaigndesk/internal/applog"
)

// Status is the save indicator shown next to the form.
type Status string

const (
	StatusIdle   Status = "idle"
	StatusSaving Status = "saving"
	StatusSaved  Status = "saved"
)

// Store is where the draft is kept.
type Store interface {
	Read(key string) (string, bool, error)
	Write(key, value string) error
	Remove(key string) error
}

type Options struct {
	Debounce time.Duration // delay after the last change before writing; default 1s
	SavedFor time.Duration // how long StatusSaved is shown; default 2s
	Now      func() time.Time
}

// Autosaver holds a draft in memory and writes it to the store once
// changes have settled.
type Autosaver struct {
	store Store
	opts  Options

	mu        sync.Mutex
	draft     Draft
	status    Status
	seq       uint64 // bumped on every change
	savedSeq  uint64
	timer     *time.Timer
	idleTimer *time.Timer
	closed    bool
}

// Open loads the stored draft. A missing, unreadable or malformed draft
// yields Default.
func Open(store Store, opts Options) *Autosaver {
	if opts.Debounce <= 0 {
		opts.Debounce = time.Second
	}
	if opts.SavedFor <= 0 {
		opts.SavedFor = 2 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	a := &Autosaver{store: store, opts: opts, draft: Default(), status: StatusIdle}

	raw, ok, err := store.Read(Key)
	switch {
	case err != nil:
		applog.Error("draft.load", err)
	case ok:
		d, err := Decode(raw)
		if err != nil {
			applog.Warn("draft.load.discard", "reason", err.Error())
		} else {
			a.draft = d
		}
	}
	return a
}

// Draft returns a copy of the current draft.
func (a *Autosaver) Draft() Draft {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.draft.clone()
}

func (a *Autosaver) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

func (a *Autosaver) SetStep(step int) {
	a.update(func(d *Draft) { d.Step = step })
}

func (a *Autosaver) UpdateInterests(interests []string) {
	a.update(func(d *Draft) { d.Data.Interests = append([]string{}, interests...) })
}

// UpdateWorkConditions applies fn to the work conditions.
func (a *Autosaver) UpdateWorkConditions(fn func(*WorkConditions)) {
	a.update(func(d *Draft) { fn(&d.Data.WorkConditions) })
}

// UpdatePersonalInfo applies fn to the personal info.
func (a *Autosaver) UpdatePersonalInfo(fn func(*PersonalInfo)) {
	a.update(func(d *Draft) { fn(&d.Data.PersonalInfo) })
}

func (a *Autosaver) update(fn func(*Draft)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	fn(&a.draft)
	now := a.opts.Now().UTC()
	a.draft.LastUpdated = &now
	a.seq++
	a.status = StatusSaving
	if a.idleTimer != nil {
		a.idleTimer.Stop()
	}

	if a.timer != nil {
		a.timer.Stop()
	}
	seq := a.seq
	a.timer = time.AfterFunc(a.opts.Debounce, func() { a.fire(seq) })
}

func (a *Autosaver) fire(seq uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || seq != a.seq {
		return
	}
	a.saveLocked()
}

// saveLocked writes the draft if it has unsaved changes.
func (a *Autosaver) saveLocked() error {
	if a.savedSeq == a.seq || a.draft.LastUpdated == nil {
		return nil
	}
	data, err := Encode(a.draft)
	if err == nil {
		err = a.store.Write(Key, data)
	}
	if err != nil {
		applog.Error("draft.save", err)
		return err
	}
	a.savedSeq = a.seq
	a.status = StatusSaved
	applog.Info("draft.saved", "step", a.draft.Step, "bytes", len(data))

	if a.idleTimer != nil {
		a.idleTimer.Stop()
	}
	seq := a.seq
	a.idleTimer = time.AfterFunc(a.opts.SavedFor, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.seq == seq && a.status == StatusSaved {
			a.status = StatusIdle
		}
	})
	return nil
}

// Flush writes any pending change now.
func (a *Autosaver) Flush() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
	}
	return a.saveLocked()
}

// Clear removes the stored draft and resets to Default.
func (a *Autosaver) Clear() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
	}
	if a.idleTimer != nil {
		a.idleTimer.Stop()
	}
	a.draft = Default()
	a.seq++
	a.savedSeq = a.seq
	a.status = StatusIdle
	if err := a.store.Remove(Key); err != nil {
		applog.Error("draft.clear", err)
		return err
	}
	return nil
}

// Close flushes pending changes and stops all timers.
func (a *Autosaver) Close() error {
	err := a.Flush()
	a.mu.Lock()
	a.closed = true
	if a.idleTimer != nil {
		a.idleTimer.Stop()
	}
	a.mu.Unlock()
	return err
}
