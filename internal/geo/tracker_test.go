package geo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/butchershop/internal/domain"
)

type fakeGeocoder struct {
	mu      sync.Mutex
	calls   []string
	results map[string]domain.Location
	err     error
	// gate, when set, blocks lookups for the given address until closed.
	gate map[string]chan struct{}
}

func newFakeGeocoder() *fakeGeocoder {
	return &fakeGeocoder{
		results: make(map[string]domain.Location),
		gate:    make(map[string]chan struct{}),
	}
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (domain.Location, error) {
	f.mu.Lock()
	f.calls = append(f.calls, address)
	gate := f.gate[address]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.Location{}, f.err
	}
	loc, ok := f.results[address]
	if !ok {
		return domain.Location{}, ErrNoResults
	}
	return loc, nil
}

func (f *fakeGeocoder) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

const testDelay = 10 * time.Millisecond

func TestTracker_StartsAtDefaultCenter(t *testing.T) {
	tr := NewTracker(newFakeGeocoder(), testDelay, nil)

	s := tr.State()
	assert.Equal(t, domain.DefaultMapCenter, s.Center)
	assert.Nil(t, s.Marker)
	assert.Equal(t, StatusIdle, s.Status)
}

func TestTracker_ShortAddressNeverGeocoded(t *testing.T) {
	g := newFakeGeocoder()
	tr := NewTracker(g, testDelay, nil)

	tr.Update("12 MG Road")
	time.Sleep(5 * testDelay)

	assert.Empty(t, g.Calls())
	assert.Equal(t, domain.DefaultMapCenter, tr.State().Center)
}

func TestTracker_ShortAddressCountsCharacters(t *testing.T) {
	g := newFakeGeocoder()
	tr := NewTracker(g, testDelay, nil)

	// ten characters, more than ten bytes
	tr.Update("गांधीधाम 1")
	time.Sleep(5 * testDelay)

	assert.Empty(t, g.Calls())
	assert.Equal(t, StatusIdle, tr.State().Status)
}

func TestTracker_ShorteningPendingAddressGoesIdle(t *testing.T) {
	g := newFakeGeocoder()
	tr := NewTracker(g, time.Hour, nil)

	tr.Update("12 Sector 8 Gandhidham")
	assert.Equal(t, StatusPending, tr.State().Status)

	tr.Update("12 Sector")
	assert.Equal(t, StatusIdle, tr.State().Status)
	assert.Empty(t, g.Calls())
}

func TestTracker_DebouncesEdits(t *testing.T) {
	g := newFakeGeocoder()
	want := domain.Location{Lat: 23.07, Lng: 70.13}
	g.results["12 Sector 8 Gandhidham 370201"] = want
	tr := NewTracker(g, 50*time.Millisecond, nil)

	tr.Update("12 Sector 8")
	tr.Update("12 Sector 8 Gandhidham")
	tr.Update("12 Sector 8 Gandhidham 370201")

	require.Eventually(t, func() bool {
		return tr.State().Status == StatusOK
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"12 Sector 8 Gandhidham 370201"}, g.Calls())
	s := tr.State()
	assert.Equal(t, want, s.Center)
	require.NotNil(t, s.Marker)
	assert.Equal(t, want, *s.Marker)
}

func TestTracker_DiscardsSupersededResponse(t *testing.T) {
	g := newFakeGeocoder()
	first := "1 Old Street Gandhidham"
	second := "2 New Street Gandhidham"
	g.results[first] = domain.Location{Lat: 1, Lng: 1}
	g.results[second] = domain.Location{Lat: 2, Lng: 2}
	release := make(chan struct{})
	g.gate[first] = release

	tr := NewTracker(g, testDelay, nil)
	tr.Update(first)
	require.Eventually(t, func() bool { return len(g.Calls()) == 1 }, time.Second, time.Millisecond)

	tr.Update(second)
	require.Eventually(t, func() bool { return tr.State().Status == StatusOK }, time.Second, time.Millisecond)

	// the slow first lookup resolves after the newer one
	close(release)
	time.Sleep(5 * testDelay)

	s := tr.State()
	assert.Equal(t, domain.Location{Lat: 2, Lng: 2}, s.Center)
	assert.Equal(t, second, s.Address)
}

func TestTracker_FailureKeepsPreviousPosition(t *testing.T) {
	g := newFakeGeocoder()
	addr := "12 Sector 8 Gandhidham"
	g.results[addr] = domain.Location{Lat: 23.07, Lng: 70.13}
	tr := NewTracker(g, testDelay, nil)

	tr.Update(addr)
	require.Eventually(t, func() bool { return tr.State().Status == StatusOK }, time.Second, time.Millisecond)

	g.mu.Lock()
	g.err = errors.New("quota exceeded")
	g.mu.Unlock()

	tr.Update(addr + " 370201")
	require.Eventually(t, func() bool { return tr.State().Status == StatusError }, time.Second, time.Millisecond)

	assert.Equal(t, domain.Location{Lat: 23.07, Lng: 70.13}, tr.State().Center)
}

func TestTracker_NoResultsRecordsStatus(t *testing.T) {
	tr := NewTracker(newFakeGeocoder(), testDelay, nil)

	tr.Update("nowhere in particular")
	require.Eventually(t, func() bool { return tr.State().Status == StatusNotFound }, time.Second, time.Millisecond)
	assert.Equal(t, domain.DefaultMapCenter, tr.State().Center)
}

func TestTrackers_OnePerUser(t *testing.T) {
	ts := NewTrackers(newFakeGeocoder(), testDelay, nil)
	defer ts.Close()

	a := ts.Get("u1")
	assert.Same(t, a, ts.Get("u1"))
	assert.NotSame(t, a, ts.Get("u2"))

	_, ok := ts.Peek("u3")
	assert.False(t, ok)
}
