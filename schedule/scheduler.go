package schedule

import (
	"sync"
	"time"
)

// Scheduler arms one single-shot deferred invocation per key. Scheduling a
// key that already has a timer outstanding replaces it atomically, which is
// exactly the cancel-and-replace debounce the refund queue needs: at most one
// delayed task per owner, always reflecting the latest request time.
type Scheduler struct {
	mu     sync.Mutex
	run    func(key string)
	timers map[string]*time.Timer
	closed bool
}

// New creates a scheduler that invokes run when a key's delay elapses. The
// callback fires on a timer goroutine; the callee owns its own locking.
func New(run func(key string)) *Scheduler {
	return &Scheduler{
		run:    run,
		timers: make(map[string]*time.Timer),
	}
}

// Schedule arms (or re-arms) the timer for key. A previously outstanding
// timer for the same key is cancelled first.
func (s *Scheduler) Schedule(key string, delay time.Duration) {
	if s == nil || s.run == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if timer, ok := s.timers[key]; ok {
		timer.Stop()
	}
	s.timers[key] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, key)
		closed := s.closed
		s.mu.Unlock()
		if !closed {
			s.run(key)
		}
	})
}

// Cancel stops and forgets any outstanding timer for key.
func (s *Scheduler) Cancel(key string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[key]; ok {
		timer.Stop()
		delete(s.timers, key)
	}
}

// Pending reports whether key currently has a timer outstanding.
func (s *Scheduler) Pending(key string) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[key]
	return ok
}

// Close cancels every outstanding timer and rejects further scheduling.
func (s *Scheduler) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
	}
}
