package search

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"transferbook/internal/domain"
	"transferbook/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped atomic.Bool
}

func (t *manualTimer) Stop() bool {
	return !t.stopped.Swap(true)
}

// fire runs the callback once, as an expired timer would.
func (t *manualTimer) fire() {
	t.stopped.Store(true)
	t.f()
}

// manualClock records scheduled callbacks and fires them on demand.
type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (c *manualClock) After(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) armed() []*manualTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*manualTimer
	for _, t := range c.timers {
		if !t.stopped.Load() {
			out = append(out, t)
		}
	}
	return out
}

type recordingGeocoder struct {
	mu      sync.Mutex
	queries []string
	reply   func(q string) ([]models.SearchResult, error)
}

func (g *recordingGeocoder) Lookup(_ context.Context, q string) ([]models.SearchResult, error) {
	g.mu.Lock()
	g.queries = append(g.queries, q)
	reply := g.reply
	g.mu.Unlock()
	if reply == nil {
		return []models.SearchResult{address(q)}, nil
	}
	return reply(q)
}

func (g *recordingGeocoder) calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string{}, g.queries...)
}

func address(label string) models.SearchResult {
	return models.SearchResult{
		ID:          "addr-" + label,
		Label:       label,
		Coordinates: &models.Coordinates{Lat: 51.5, Lng: -0.1},
		Category:    models.CategoryAddress,
	}
}

func newTestEngine(geo Geocoder, target func(models.Location)) (*Engine, *manualClock) {
	clock := &manualClock{}
	e := NewEngine(geo, nil, DefaultConfig(), EngineOptions{After: clock.After, Target: target})
	return e, clock
}

func TestEngine_ShortQueryClearsWithoutLookup(t *testing.T) {
	geo := &recordingGeocoder{}
	e, clock := newTestEngine(geo, nil)

	e.Query("Lo")

	assert.Empty(t, clock.armed())
	assert.Empty(t, geo.calls())
	st := e.State()
	assert.Equal(t, "Lo", st.Query)
	assert.Empty(t, st.Results)
	assert.False(t, st.Loading)
}

func TestEngine_DebounceIssuesOneLookup(t *testing.T) {
	geo := &recordingGeocoder{}
	e, clock := newTestEngine(geo, nil)

	for _, q := range []string{"Lon", "Lond", "Londo", "London"} {
		e.Query(q)
	}

	armed := clock.armed()
	require.Len(t, armed, 1)
	assert.Equal(t, 300*time.Millisecond, armed[0].d)
	armed[0].fire()

	assert.Equal(t, []string{"London"}, geo.calls())
	st := e.State()
	require.Len(t, st.Results, 1)
	assert.Equal(t, "London", st.Results[0].Label)
	assert.False(t, st.Loading)
}

func TestEngine_ShortQueryCancelsPendingLookup(t *testing.T) {
	geo := &recordingGeocoder{}
	e, clock := newTestEngine(geo, nil)

	e.Query("London")
	e.Query("Lo")

	assert.Empty(t, clock.armed())
	assert.Empty(t, geo.calls())
}

func TestEngine_OnlyNewestLookupPopulatesResults(t *testing.T) {
	started := make(chan string, 2)
	release := map[string]chan struct{}{
		"Heath": make(chan struct{}),
		"Gatw":  make(chan struct{}),
	}
	geo := &recordingGeocoder{reply: func(q string) ([]models.SearchResult, error) {
		started <- q
		<-release[q]
		return []models.SearchResult{address(q + " result")}, nil
	}}
	e, clock := newTestEngine(geo, nil)

	e.Query("Heath")
	first := clock.armed()[0]
	done := make(chan struct{})
	go func() {
		defer close(done)
		first.fire()
	}()
	require.Equal(t, "Heath", <-started)

	e.Query("Gatw")
	second := clock.armed()
	require.Len(t, second, 1)
	go second[0].fire()
	require.Equal(t, "Gatw", <-started)

	close(release["Gatw"])
	require.Eventually(t, func() bool {
		st := e.State()
		return len(st.Results) == 1 && st.Results[0].Label == "Gatw result"
	}, time.Second, time.Millisecond)

	close(release["Heath"])
	<-done
	st := e.State()
	require.Len(t, st.Results, 1)
	assert.Equal(t, "Gatw result", st.Results[0].Label)
}

func TestEngine_LookupFailureSetsError(t *testing.T) {
	geo := &recordingGeocoder{reply: func(string) ([]models.SearchResult, error) {
		return nil, domain.NetworkError{Op: "geocode", Msg: "Address search is unavailable"}
	}}
	e, clock := newTestEngine(geo, nil)

	e.Query("Baker Street")
	clock.armed()[0].fire()

	st := e.State()
	assert.Equal(t, "Address search is unavailable", st.Error)
	assert.Empty(t, st.Results)
}

func TestEngine_ClearResultsDiscardsInFlight(t *testing.T) {
	release := make(chan struct{})
	geo := &recordingGeocoder{reply: func(q string) ([]models.SearchResult, error) {
		<-release
		return []models.SearchResult{address(q)}, nil
	}}
	e, clock := newTestEngine(geo, nil)

	e.Query("Paddington")
	timer := clock.armed()[0]
	done := make(chan struct{})
	go func() {
		defer close(done)
		timer.fire()
	}()
	require.Eventually(t, func() bool { return len(geo.calls()) == 1 }, time.Second, time.Millisecond)

	e.ClearResults()
	close(release)
	<-done

	st := e.State()
	assert.Empty(t, st.Query)
	assert.Empty(t, st.Results)
}

func TestEngine_SelectFillsTargetAndClears(t *testing.T) {
	var got models.Location
	geo := &recordingGeocoder{}
	e, clock := newTestEngine(geo, func(l models.Location) { got = l })

	e.Query("221B Baker Street")
	clock.armed()[0].fire()
	res := e.State().Results[0]

	loc, err := e.Select(context.Background(), res)
	require.NoError(t, err)
	assert.Equal(t, "221B Baker Street", loc.Address)
	assert.Equal(t, loc, got)
	assert.Empty(t, e.State().Results)
	assert.Empty(t, e.State().Query)
}

func TestEngine_HeaderIsNotSelectable(t *testing.T) {
	called := false
	e, _ := newTestEngine(&recordingGeocoder{}, func(models.Location) { called = true })

	_, err := e.Select(context.Background(), header(models.CategoryAirport))
	assert.True(t, domain.IsValidation(err))
	assert.False(t, called)
}

func TestEngine_CurrentLocation(t *testing.T) {
	var got models.Location
	e, _ := newTestEngine(&recordingGeocoder{}, func(l models.Location) { got = l })
	suggestion := e.CurrentLocationSuggestion()
	assert.Equal(t, models.CategoryCurrentLocation, suggestion.Category)
	assert.Empty(t, e.State().Results)

	fix := ReportedLocator{Position: &models.Position{Latitude: 51.501364, Longitude: -0.14189, Accuracy: 12}}
	loc, err := e.SelectUsing(context.Background(), suggestion, fix)
	require.NoError(t, err)
	assert.Equal(t, "Current Location (51.50136, -0.14189)", loc.Address)
	assert.InDelta(t, 51.501364, got.Latitude, 1e-9)
}

func TestEngine_CurrentLocationDenied(t *testing.T) {
	called := false
	e, _ := newTestEngine(&recordingGeocoder{}, func(models.Location) { called = true })

	_, err := e.SelectUsing(context.Background(), e.CurrentLocationSuggestion(), ReportedLocator{Reason: "permission_denied"})
	require.Error(t, err)

	var geoErr domain.GeolocationError
	require.True(t, errors.As(err, &geoErr))
	assert.Equal(t, domain.GeolocationDenied, geoErr.Reason)
	assert.False(t, called)

	_, err = e.Select(context.Background(), e.CurrentLocationSuggestion())
	assert.True(t, domain.IsGeolocation(err), "no locator configured")
}
