package tabcache

import (
	"sync"

	"github.com/lotas/campaigndesk/internal/applog"
)

// saver writes envelopes to the store on its own goroutine. Scheduling
// never blocks; only the newest pending envelope is written.
type saver struct {
	store Store
	key   string

	mu      sync.Mutex
	cond    *sync.Cond
	pending bool
	value   Envelope
	writing bool
	closed  bool
	done    chan struct{}
}

func newSaver(store Store, key string) *saver {
	s := &saver{store: store, key: key, done: make(chan struct{})}
	s.cond = sync.NewCond(&s.mu)
	go s.loop()
	return s
}

func (s *saver) schedule(env Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.value = env
	s.pending = true
	s.cond.Broadcast()
}

// flush blocks until every scheduled envelope has been written.
func (s *saver) flush() {
	s.mu.Lock()
	for s.pending || s.writing {
		s.cond.Wait()
	}
	s.mu.Unlock()
}

func (s *saver) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()
	<-s.done
}

func (s *saver) loop() {
	defer close(s.done)
	for {
		s.mu.Lock()
		for !s.pending && !s.closed {
			s.cond.Wait()
		}
		if !s.pending {
			s.mu.Unlock()
			return
		}
		env := s.value
		s.value = nil
		s.pending = false
		s.writing = true
		s.mu.Unlock()

		s.write(env)

		s.mu.Lock()
		s.writing = false
		s.cond.Broadcast()
		s.mu.Unlock()
	}
}

func (s *saver) write(env Envelope) {
	data, err := Serialize(env)
	if err != nil {
		applog.Error("tabcache.persist.encode", err)
		return
	}
	if err := s.store.Write(s.key, data); err != nil {
		applog.Error("tabcache.persist", err, "key", s.key)
		return
	}
	applog.Info("tabcache.persisted", "key", s.key, "bytes", len(data))
}
