package schedule

import (
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu   sync.Mutex
	keys []string
	ch   chan string
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan string, 16)}
}

func (r *recorder) run(key string) {
	r.mu.Lock()
	r.keys = append(r.keys, key)
	r.mu.Unlock()
	r.ch <- key
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}

func waitFor(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("fired for %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timer for %q never fired", want)
	}
}

func TestScheduleFires(t *testing.T) {
	rec := newRecorder()
	s := New(rec.run)
	defer s.Close()

	s.Schedule("alice", 10*time.Millisecond)
	waitFor(t, rec.ch, "alice")
	if s.Pending("alice") {
		t.Fatal("timer should be forgotten after firing")
	}
}

func TestScheduleReplaces(t *testing.T) {
	rec := newRecorder()
	s := New(rec.run)
	defer s.Close()

	s.Schedule("alice", time.Hour)
	s.Schedule("alice", 10*time.Millisecond)
	waitFor(t, rec.ch, "alice")

	// Let any stray duplicate fire before counting.
	time.Sleep(50 * time.Millisecond)
	if got := rec.count(); got != 1 {
		t.Fatalf("fired %d times, want 1 (re-arm must replace)", got)
	}
}

func TestCancel(t *testing.T) {
	rec := newRecorder()
	s := New(rec.run)
	defer s.Close()

	s.Schedule("alice", 20*time.Millisecond)
	s.Cancel("alice")
	if s.Pending("alice") {
		t.Fatal("cancelled key should not be pending")
	}
	time.Sleep(80 * time.Millisecond)
	if rec.count() != 0 {
		t.Fatal("cancelled timer must not fire")
	}
}

func TestCloseStopsEverything(t *testing.T) {
	rec := newRecorder()
	s := New(rec.run)

	s.Schedule("alice", 20*time.Millisecond)
	s.Schedule("bob", 20*time.Millisecond)
	s.Close()

	time.Sleep(80 * time.Millisecond)
	if rec.count() != 0 {
		t.Fatal("timers must not fire after close")
	}
	s.Schedule("carol", time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	if rec.count() != 0 {
		t.Fatal("scheduling after close must be a no-op")
	}
}

func TestIndependentKeys(t *testing.T) {
	rec := newRecorder()
	s := New(rec.run)
	defer s.Close()

	s.Schedule("alice", 10*time.Millisecond)
	s.Schedule("bob", 10*time.Millisecond)

	fired := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case key := <-rec.ch:
			fired[key] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timers never fired")
		}
	}
	if !fired["alice"] || !fired["bob"] {
		t.Fatalf("fired = %v", fired)
	}
}
