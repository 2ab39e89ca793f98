package geo

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const trackerIdleTTL = 30 * time.Minute

// Trackers keeps one Tracker per user while they edit their profile.
type Trackers struct {
	geocoder Geocoder
	delay    time.Duration
	log      *zap.Logger

	mu       sync.Mutex
	trackers map[string]*Tracker
}

func NewTrackers(geocoder Geocoder, delay time.Duration, log *zap.Logger) *Trackers {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Trackers{
		geocoder: geocoder,
		delay:    delay,
		log:      log,
		trackers: make(map[string]*Tracker),
	}
}

func (ts *Trackers) Get(userID string) *Tracker {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.evictIdle(time.Now())
	t, ok := ts.trackers[userID]
	if !ok {
		t = NewTracker(ts.geocoder, ts.delay, ts.log)
		ts.trackers[userID] = t
	}
	return t
}

// Peek returns the user's tracker without creating one.
func (ts *Trackers) Peek(userID string) (*Tracker, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t, ok := ts.trackers[userID]
	return t, ok
}

func (ts *Trackers) Close() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for id, t := range ts.trackers {
		t.Stop()
		delete(ts.trackers, id)
	}
}

// Callers hold ts.mu.
func (ts *Trackers) evictIdle(now time.Time) {
	for id, t := range ts.trackers {
		if now.Sub(t.idleSince()) > trackerIdleTTL {
			t.Stop()
			delete(ts.trackers, id)
		}
	}
}
