package pipeline

import (
	"sync"
	"time"
)

// InferenceScheduler decides, each loop tick, whether a new detection cycle
// may launch. It enforces a minimum spacing between launches and at most one
// cycle in flight at any time.
type InferenceScheduler struct {
	interval   time.Duration
	mu         sync.Mutex
	inFlight   bool
	lastLaunch time.Time
}

// NewInferenceScheduler creates a scheduler with the given minimum spacing
// between detection cycle launches.
func NewInferenceScheduler(interval time.Duration) *InferenceScheduler {
	if interval <= 0 {
		interval = time.Second // Default inference spacing
	}
	return &InferenceScheduler{
		interval: interval,
	}
}

// TryLaunch reports whether a detection cycle may start at now. On true it
// atomically takes the in-flight slot and records the launch time; the owning
// cycle must call Release exactly once when it finishes, success or failure.
func (s *InferenceScheduler) TryLaunch(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight {
		return false
	}
	if now.Sub(s.lastLaunch) < s.interval {
		return false
	}
	s.inFlight = true
	s.lastLaunch = now
	return true
}

// Release frees the in-flight slot taken by TryLaunch.
func (s *InferenceScheduler) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
}

// InFlight reports whether a detection cycle is currently running.
func (s *InferenceScheduler) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// SetInterval updates the minimum spacing between launches.
func (s *InferenceScheduler) SetInterval(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if interval > 0 {
		s.interval = interval
	}
}
