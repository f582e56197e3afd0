package services

import (
	"sync"
	"time"
)

// slidingWindow bounds outbound translation calls to at most max per rolling
// window. A saturated window rejects immediately; there is no queuing and no
// backoff.
type slidingWindow struct {
	mu       sync.Mutex
	requests []time.Time
	max      int
	window   time.Duration
}

func newSlidingWindow(max int, window time.Duration) *slidingWindow {
	return &slidingWindow{max: max, window: window}
}

// Allow records the call and returns true, or returns false without
// recording anything when the window is saturated.
func (l *slidingWindow) Allow(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.requests[:0]
	for _, t := range l.requests {
		if now.Sub(t) < l.window {
			kept = append(kept, t)
		}
	}
	l.requests = kept
	if len(l.requests) >= l.max {
		return false
	}
	l.requests = append(l.requests, now)
	return true
}
