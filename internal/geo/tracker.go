package geo

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/fjod/butchershop/internal/domain"
)

const (
	DefaultDebounce = time.Second
	// MinAddressLength is the shortest address worth geocoding; shorter input is never looked up.
	MinAddressLength = 11
	lookupTimeout    = 10 * time.Second
)

const (
	StatusIdle     = "IDLE"
	StatusPending  = "PENDING"
	StatusOK       = "OK"
	StatusNotFound = "ZERO_RESULTS"
	StatusError    = "ERROR"
)

// MapState is what the address map shows.
type MapState struct {
	Center     domain.Location  `json:"center"`
	Marker     *domain.Location `json:"marker,omitempty"`
	Address    string           `json:"address"`
	Status     string           `json:"status"`
	Generation uint64           `json:"generation"`
}

// Tracker debounces address edits and geocodes the settled address. Every edit takes a new
// generation and a lookup result is applied only if no newer edit happened meanwhile.
// A failed lookup keeps the previous position.
type Tracker struct {
	geocoder Geocoder
	delay    time.Duration
	log      *zap.Logger

	mu        sync.Mutex
	gen       uint64
	timer     *time.Timer
	state     MapState
	touchedAt time.Time
}

func NewTracker(geocoder Geocoder, delay time.Duration, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{
		geocoder: geocoder,
		delay:    delay,
		log:      log,
		state: MapState{
			Center: domain.DefaultMapCenter,
			Status: StatusIdle,
		},
		touchedAt: time.Now(),
	}
}

// Update records an address edit. The lookup runs once the address has been stable for the
// debounce delay.
func (t *Tracker) Update(address string) {
	address = strings.TrimSpace(address)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.gen++
	gen := t.gen
	t.touchedAt = time.Now()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.state.Address = address

	if utf8.RuneCountInString(address) < MinAddressLength {
		t.state.Status = StatusIdle
		return
	}
	t.state.Status = StatusPending
	t.timer = time.AfterFunc(t.delay, func() { t.lookup(gen, address) })
}

func (t *Tracker) State() MapState {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.state
	s.Generation = t.gen
	if s.Marker != nil {
		m := *s.Marker
		s.Marker = &m
	}
	return s
}

func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Tracker) lookup(gen uint64, address string) {
	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	loc, err := t.geocoder.Geocode(ctx, address)

	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.gen {
		t.log.Debug("discarding superseded geocode result", zap.Uint64("generation", gen), zap.Uint64("latest", t.gen))
		return
	}

	switch {
	case err == nil:
		t.state.Center = loc
		t.state.Marker = &loc
		t.state.Status = StatusOK
	case errors.Is(err, ErrNoResults):
		t.state.Status = StatusNotFound
	default:
		t.log.Warn("geocode failed", zap.Error(err))
		t.state.Status = StatusError
	}
}

func (t *Tracker) idleSince() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.touchedAt
}
