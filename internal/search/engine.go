package search

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"transferbook/internal/domain"
	"transferbook/internal/domain/models"

	"go.uber.org/zap"
)

// Geocoder turns free text into ranked suggestions.
type Geocoder interface {
	Lookup(ctx context.Context, query string) ([]models.SearchResult, error)
}

// Locator reports the device position.
type Locator interface {
	Locate(ctx context.Context) (models.Position, error)
}

// Timer is the part of *time.Timer the engine needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it through
// RealAfterFunc; tests substitute a manual clock.
type AfterFunc func(d time.Duration, f func()) Timer

func RealAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type Config struct {
	MinChars      int
	Debounce      time.Duration
	LookupTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinChars:      3,
		Debounce:      300 * time.Millisecond,
		LookupTimeout: 5 * time.Second,
	}
}

// State is what a search field shows.
type State struct {
	Query   string                `json:"query"`
	Results []models.SearchResult `json:"results"`
	Loading bool                  `json:"loading"`
	Error   string                `json:"error,omitempty"`
}

type EngineOptions struct {
	After  AfterFunc
	Logger *zap.Logger
	// Target receives the confirmed location of a selection.
	Target func(models.Location)
	// OnChange is called outside the engine lock after every state change.
	OnChange func(State)
}

const CurrentLocationID = "current-location"

// Engine drives one address field: debounced lookups, newest-wins results
// and the current-location shortcut.
type Engine struct {
	mu      sync.Mutex
	cfg     Config
	geo     Geocoder
	locator Locator
	opts    EngineOptions
	log     *zap.Logger

	query   string
	results []models.SearchResult
	loading bool
	errMsg  string
	issued  uint64
	timer   Timer
}

func NewEngine(geo Geocoder, locator Locator, cfg Config, opts EngineOptions) *Engine {
	def := DefaultConfig()
	if cfg.MinChars <= 0 {
		cfg.MinChars = def.MinChars
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = def.Debounce
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = def.LookupTimeout
	}
	if opts.After == nil {
		opts.After = RealAfterFunc
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, geo: geo, locator: locator, opts: opts, log: opts.Logger}
}

func (e *Engine) stateLocked() State {
	return State{
		Query:   e.query,
		Results: append([]models.SearchResult{}, e.results...),
		Loading: e.loading,
		Error:   e.errMsg,
	}
}

func (e *Engine) emit(st State) {
	if e.opts.OnChange != nil {
		e.opts.OnChange(st)
	}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *Engine) stopTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// Query records a keystroke. Short queries clear the suggestions at once;
// longer ones restart the debounce timer.
func (e *Engine) Query(text string) {
	e.mu.Lock()
	e.issued++
	id := e.issued
	e.query = text
	e.stopTimerLocked()

	q := strings.TrimSpace(text)
	if utf8.RuneCountInString(q) < e.cfg.MinChars {
		e.results = nil
		e.loading = false
		e.errMsg = ""
		st := e.stateLocked()
		e.mu.Unlock()
		e.emit(st)
		return
	}
	e.timer = e.opts.After(e.cfg.Debounce, func() { e.lookup(id, q) })
	e.mu.Unlock()
}

func (e *Engine) lookup(id uint64, q string) {
	e.mu.Lock()
	if id != e.issued {
		e.mu.Unlock()
		return
	}
	e.timer = nil
	e.loading = true
	st := e.stateLocked()
	e.mu.Unlock()
	e.emit(st)

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.LookupTimeout)
	results, err := e.geo.Lookup(ctx, q)
	cancel()

	e.mu.Lock()
	if id != e.issued {
		e.mu.Unlock()
		e.log.Debug("search response discarded", zap.String("query", q))
		return
	}
	e.loading = false
	if err != nil {
		e.errMsg = domain.UserMessage(err)
		e.results = nil
		e.log.Warn("address lookup failed", zap.String("query", q), zap.Error(err))
	} else {
		e.errMsg = ""
		e.results = results
	}
	st = e.stateLocked()
	e.mu.Unlock()
	e.emit(st)
}

// CurrentLocationSuggestion is offered next to the results, never inside them.
func (e *Engine) CurrentLocationSuggestion() models.SearchResult {
	return models.SearchResult{
		ID:       CurrentLocationID,
		Label:    "Use current location",
		Category: models.CategoryCurrentLocation,
	}
}

// Select confirms r into the target field and clears the suggestions.
func (e *Engine) Select(ctx context.Context, r models.SearchResult) (models.Location, error) {
	return e.SelectUsing(ctx, r, e.locator)
}

// SelectUsing is Select with a per-call locator, used when the client sends
// its own fix along with the selection.
func (e *Engine) SelectUsing(ctx context.Context, r models.SearchResult, locator Locator) (models.Location, error) {
	if !r.Selectable() {
		return models.Location{}, domain.ValidationError{Field: "result", Msg: "suggestion cannot be selected"}
	}

	var loc models.Location
	if r.Category == models.CategoryCurrentLocation {
		if locator == nil {
			return models.Location{}, domain.GeolocationError{Reason: domain.GeolocationUnavailable}
		}
		pos, err := locator.Locate(ctx)
		if err != nil {
			if !domain.IsGeolocation(err) {
				err = domain.GeolocationError{Reason: domain.GeolocationUnavailable, Err: err}
			}
			e.log.Info("current location unavailable", zap.Error(err))
			return models.Location{}, err
		}
		loc = models.Location{
			Latitude:  pos.Latitude,
			Longitude: pos.Longitude,
			Address:   fmt.Sprintf("Current Location (%.5f, %.5f)", pos.Latitude, pos.Longitude),
			ID:        CurrentLocationID,
		}
	} else {
		loc = r.Location()
	}

	if e.opts.Target != nil {
		e.opts.Target(loc)
	}
	e.ClearResults()
	return loc, nil
}

// ClearResults drops the query buffer and suggestions. Any lookup still in
// flight is discarded when it lands.
func (e *Engine) ClearResults() {
	e.mu.Lock()
	e.issued++
	e.stopTimerLocked()
	e.query = ""
	e.results = nil
	e.loading = false
	e.errMsg = ""
	st := e.stateLocked()
	e.mu.Unlock()
	e.emit(st)
}

// Close stops a pending debounce timer.
func (e *Engine) Close() {
	e.mu.Lock()
	e.issued++
	e.stopTimerLocked()
	e.mu.Unlock()
}
