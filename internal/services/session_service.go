package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"transferbook/internal/domain"
	"transferbook/internal/domain/models"
	"transferbook/internal/messaging"
	"transferbook/internal/repositories"
	"transferbook/internal/search"
	"transferbook/internal/wizard"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionStore persists wizard sessions between requests and restarts.
type SessionStore interface {
	Save(ctx context.Context, rec repositories.SessionRecord) error
	Load(ctx context.Context, id string) (repositories.SessionRecord, error)
	Delete(ctx context.Context, id string) error
}

// Event is pushed to live subscribers of a session.
type Event struct {
	Type    string `json:"type"`
	Field   string `json:"field,omitempty"`
	Payload any    `json:"payload"`
}

const (
	EventState       = "state"
	EventSuggestions = "suggestions"
)

type SessionDeps struct {
	Fares     wizard.FareEstimator
	Bookings  wizard.BookingSubmitter
	Geocoder  search.Geocoder
	Gazetteer *search.Gazetteer
	Store     SessionStore
	Events    messaging.Publisher
	Limits    wizard.Limits
	Search    search.Config
	After     search.AfterFunc
	Logger    *zap.Logger
}

// SessionService owns the live wizard sessions of this process.
type SessionService struct {
	deps SessionDeps
	log  *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionService(deps SessionDeps) *SessionService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Events == nil {
		deps.Events = messaging.NopPublisher{}
	}
	if deps.Gazetteer == nil {
		deps.Gazetteer = search.NewGazetteer(search.DefaultPlaces())
	}
	if deps.Geocoder == nil {
		deps.Geocoder = deps.Gazetteer
	}
	return &SessionService{
		deps:     deps,
		log:      deps.Logger,
		sessions: map[string]*Session{},
	}
}

// Session is one booking wizard plus its address fields.
type Session struct {
	ID     string
	Wizard *wizard.Orchestrator

	svc *SessionService

	mu        sync.Mutex
	engines   map[string]*search.Engine
	receipt   *models.BookingReceipt
	watchers  map[int]func(Event)
	nextWatch int
	saveMu    sync.Mutex
	unsub     func()
}

func (s *SessionService) newSession(id string) *Session {
	sess := &Session{
		ID:       id,
		svc:      s,
		engines:  map[string]*search.Engine{},
		watchers: map[int]func(Event){},
	}
	sess.Wizard = wizard.New(s.deps.Fares, s.deps.Bookings, wizard.Options{
		Limits: s.deps.Limits,
		Logger: s.log.With(zap.String("session_id", id)),
	})
	sess.unsub = sess.Wizard.Subscribe(func(snap wizard.Snapshot) {
		sess.broadcast(Event{Type: EventState, Payload: snap})
		s.persist(context.Background(), sess)
	})
	return sess
}

// Create starts a fresh session and stores it.
func (s *SessionService) Create(ctx context.Context) (*Session, error) {
	sess := s.newSession(uuid.NewString())
	if err := s.save(ctx, sess); err != nil {
		sess.close()
		return nil, err
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	s.log.Info("session created", zap.String("session_id", sess.ID))
	return sess, nil
}

// Get returns a live session, rehydrating it from the store when needed.
func (s *SessionService) Get(ctx context.Context, id string) (*Session, error) {
	id = strings.TrimSpace(id)
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ValidationError{Field: "session_id", Msg: "invalid session id"}
	}

	s.mu.Lock()
	if sess, ok := s.sessions[id]; ok {
		s.mu.Unlock()
		return sess, nil
	}
	s.mu.Unlock()

	if s.deps.Store == nil {
		return nil, domain.NotFoundError{Resource: "session"}
	}
	rec, err := s.deps.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	sess := s.newSession(id)
	sess.receipt = rec.Receipt
	sess.Wizard.Restore(rec.State)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[id]; ok {
		sess.close()
		return existing, nil
	}
	s.sessions[id] = sess
	s.log.Info("session restored", zap.String("session_id", id), zap.Uint64("trip_version", rec.State.Trip.Version))
	return sess, nil
}

// Delete drops the session from memory and the store.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		sess.close()
	}
	if s.deps.Store == nil {
		if !ok {
			return domain.NotFoundError{Resource: "session"}
		}
		return nil
	}
	err := s.deps.Store.Delete(ctx, id)
	if ok && domain.IsNotFound(err) {
		return nil
	}
	return err
}

// Shutdown stops every session's timers and listeners.
func (s *SessionService) Shutdown() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = map[string]*Session{}
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.close()
	}
}

// Search runs a one-off lookup outside any session.
func (s *SessionService) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	q := strings.TrimSpace(query)
	if len([]rune(q)) < s.minChars() {
		return []models.SearchResult{}, nil
	}
	return s.deps.Geocoder.Lookup(ctx, q)
}

func (s *SessionService) minChars() int {
	if s.deps.Search.MinChars > 0 {
		return s.deps.Search.MinChars
	}
	return search.DefaultConfig().MinChars
}

// CreateBooking submits the session's booking and, on success, keeps the
// receipt and announces the booking.
func (s *SessionService) CreateBooking(ctx context.Context, sess *Session, details models.PersonalDetails, agree bool) (*models.BookingReceipt, error) {
	receipt, err := sess.Wizard.CreateBooking(ctx, details, agree)
	if err != nil || receipt == nil {
		return receipt, err
	}

	sess.mu.Lock()
	sess.receipt = receipt
	sess.mu.Unlock()
	s.persist(ctx, sess)

	if receipt.Trip.Pickup != nil {
		s.deps.Gazetteer.Remember(*receipt.Trip.Pickup)
	}
	if receipt.Trip.Dropoff != nil {
		s.deps.Gazetteer.Remember(*receipt.Trip.Dropoff)
	}
	if err := s.deps.Events.PublishBookingCreated(ctx, messaging.NewBookingCreated(sess.ID, *receipt)); err != nil {
		s.log.Warn("booking event not published", zap.String("booking_id", receipt.BookingID), zap.Error(err))
	}
	return receipt, nil
}

// Receipt returns the last confirmed booking of the session.
func (s *SessionService) Receipt(ctx context.Context, id string) (models.BookingReceipt, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return models.BookingReceipt{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.receipt == nil {
		return models.BookingReceipt{}, domain.NotFoundError{Resource: "booking receipt"}
	}
	return *sess.receipt, nil
}

func (s *SessionService) persist(ctx context.Context, sess *Session) {
	if err := s.save(ctx, sess); err != nil {
		s.log.Warn("session not persisted", zap.String("session_id", sess.ID), zap.Error(err))
	}
}

// save writes the latest state; saves of one session are serialized so an
// older snapshot never overwrites a newer one.
func (s *SessionService) save(ctx context.Context, sess *Session) error {
	if s.deps.Store == nil {
		return nil
	}
	sess.saveMu.Lock()
	defer sess.saveMu.Unlock()

	sess.mu.Lock()
	receipt := sess.receipt
	sess.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.deps.Store.Save(ctx, repositories.SessionRecord{
		ID:      sess.ID,
		State:   sess.Wizard.Persisted(),
		Receipt: receipt,
	})
}

// Field names accepted by the address search: pickup, dropoff, stop (a new
// stop) and stop-N (the stop at index N).
func parseField(field string) (kind string, index int, err error) {
	switch field {
	case "pickup", "dropoff", "stop":
		return field, -1, nil
	}
	if rest, ok := strings.CutPrefix(field, "stop-"); ok {
		n, convErr := strconv.Atoi(rest)
		if convErr == nil && n >= 0 {
			return "stop", n, nil
		}
	}
	return "", 0, domain.ValidationError{Field: "field", Msg: fmt.Sprintf("unknown address field %q", field)}
}

func (sess *Session) target(kind string, index int) func(models.Location) {
	return func(loc models.Location) {
		switch kind {
		case "pickup":
			sess.Wizard.SetPickupLocation(&loc)
		case "dropoff":
			sess.Wizard.SetDropoffLocation(&loc)
		case "stop":
			if index < 0 || !sess.Wizard.UpdateStop(index, loc) {
				sess.Wizard.AddStop(loc)
			}
		}
	}
}

// Engine returns the search engine bound to field, creating it on first use.
func (sess *Session) Engine(field string) (*search.Engine, error) {
	kind, index, err := parseField(field)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if e, ok := sess.engines[field]; ok {
		return e, nil
	}
	svc := sess.svc
	e := search.NewEngine(svc.deps.Geocoder, nil, svc.deps.Search, search.EngineOptions{
		After:  svc.deps.After,
		Logger: svc.log.With(zap.String("session_id", sess.ID), zap.String("field", field)),
		Target: sess.target(kind, index),
		OnChange: func(st search.State) {
			sess.broadcast(Event{Type: EventSuggestions, Field: field, Payload: st})
		},
	})
	sess.engines[field] = e
	return e, nil
}

func (sess *Session) Query(field, text string) error {
	e, err := sess.Engine(field)
	if err != nil {
		return err
	}
	e.Query(text)
	return nil
}

func (sess *Session) ClearSuggestions(field string) error {
	e, err := sess.Engine(field)
	if err != nil {
		return err
	}
	e.ClearResults()
	return nil
}

// SelectSuggestion confirms result into field. For the current-location
// suggestion the caller passes the device fix it obtained, or the reason
// it could not.
func (sess *Session) SelectSuggestion(ctx context.Context, field string, result models.SearchResult, fix *models.Position, reason string) (models.Location, error) {
	e, err := sess.Engine(field)
	if err != nil {
		return models.Location{}, err
	}
	return e.SelectUsing(ctx, result, search.ReportedLocator{Position: fix, Reason: reason})
}

func (sess *Session) SearchState(field string) (search.State, error) {
	e, err := sess.Engine(field)
	if err != nil {
		return search.State{}, err
	}
	return e.State(), nil
}

// Watch registers fn for live events and returns its cancel function.
func (sess *Session) Watch(fn func(Event)) func() {
	sess.mu.Lock()
	id := sess.nextWatch
	sess.nextWatch++
	sess.watchers[id] = fn
	sess.mu.Unlock()
	return func() {
		sess.mu.Lock()
		delete(sess.watchers, id)
		sess.mu.Unlock()
	}
}

func (sess *Session) broadcast(ev Event) {
	sess.mu.Lock()
	fns := make([]func(Event), 0, len(sess.watchers))
	for _, fn := range sess.watchers {
		fns = append(fns, fn)
	}
	sess.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (sess *Session) close() {
	if sess.unsub != nil {
		sess.unsub()
	}
	sess.mu.Lock()
	engines := sess.engines
	sess.engines = map[string]*search.Engine{}
	sess.watchers = map[int]func(Event){}
	sess.mu.Unlock()
	for _, e := range engines {
		e.Close()
	}
}
