package wizard

import (
	"context"
	"errors"
	"sync"
	"time"

	"transferbook/internal/domain"
	"transferbook/internal/domain/models"

	"go.uber.org/zap"
)

// FareEstimator prices a trip snapshot.
type FareEstimator interface {
	EstimateFare(ctx context.Context, trip models.TripParameters) (models.FareQuote, error)
}

// BookingSubmitter creates the booking and returns its id.
type BookingSubmitter interface {
	SubmitBooking(ctx context.Context, req models.BookingRequest) (string, error)
}

// Snapshot is a consistent view across the four state domains.
type Snapshot struct {
	Revision   uint64                 `json:"revision"`
	Step       models.WizardStep      `json:"step"`
	StepValid  bool                   `json:"stepValid"`
	Trip       models.TripParameters  `json:"trip"`
	UI         models.UIFlags         `json:"ui"`
	Requests   models.RequestState    `json:"requests"`
	Validation models.ValidationState `json:"validation"`
	QuoteStale bool                   `json:"quoteStale"`
}

// Listener receives a snapshot after every committed transition.
type Listener func(Snapshot)

type Options struct {
	Limits Limits
	Rules  map[string][]Rule
	Logger *zap.Logger
	Now    func() time.Time
}

// Orchestrator is the only entry point to a booking wizard. Every operation
// runs under one mutex so no caller sees a half-applied transition; network
// calls happen outside the lock and are reconciled by token on return.
type Orchestrator struct {
	mu       sync.Mutex
	trip     *TripStore
	nav      *Navigator
	req      *RequestStore
	val      *ValidationStore
	fares    FareEstimator
	bookings BookingSubmitter
	log      *zap.Logger
	now      func() time.Time

	revision  uint64
	nextSubID int
	listeners map[int]Listener
}

type fareCall struct {
	token uint64
	trip  models.TripParameters
}

func New(fares FareEstimator, bookings BookingSubmitter, opts Options) *Orchestrator {
	if opts.Limits == (Limits{}) {
		opts.Limits = DefaultLimits()
	}
	if opts.Rules == nil {
		opts.Rules = DetailsRules()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		trip:      NewTripStore(opts.Limits),
		nav:       NewNavigator(),
		req:       NewRequestStore(),
		val:       NewValidationStore(opts.Rules),
		fares:     fares,
		bookings:  bookings,
		log:       opts.Logger,
		now:       opts.Now,
		listeners: map[int]Listener{},
	}
}

// Subscribe registers l and returns a function that removes it.
func (o *Orchestrator) Subscribe(l Listener) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextSubID
	o.nextSubID++
	o.listeners[id] = l
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.listeners, id)
	}
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	trip := o.trip.Snapshot()
	valid := o.val.IsValid()
	return Snapshot{
		Revision:   o.revision,
		Step:       o.nav.Step(),
		StepValid:  o.nav.IsCurrentStepValid(trip, valid),
		Trip:       trip,
		UI:         o.nav.Flags(),
		Requests:   o.req.State(),
		Validation: o.val.State(),
		QuoteStale: o.req.IsQuoteStale(trip.Version),
	}
}

func (o *Orchestrator) publishLocked() (Snapshot, []Listener) {
	o.revision++
	ls := make([]Listener, 0, len(o.listeners))
	for _, l := range o.listeners {
		ls = append(ls, l)
	}
	return o.snapshotLocked(), ls
}

func notify(snap Snapshot, ls []Listener) {
	for _, l := range ls {
		l(snap)
	}
}

// apply runs fn as one transition; nothing is published when fn fails.
func (o *Orchestrator) apply(fn func() error) error {
	o.mu.Lock()
	if err := fn(); err != nil {
		o.mu.Unlock()
		return err
	}
	snap, ls := o.publishLocked()
	o.mu.Unlock()
	notify(snap, ls)
	return nil
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) IsCurrentStepValid() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.nav.IsCurrentStepValid(o.trip.Snapshot(), o.val.IsValid())
}

func (o *Orchestrator) SetPickupLocation(loc *models.Location) {
	_ = o.apply(func() error {
		o.trip.SetPickupLocation(loc)
		return nil
	})
}

func (o *Orchestrator) SetDropoffLocation(loc *models.Location) {
	_ = o.apply(func() error {
		o.trip.SetDropoffLocation(loc)
		return nil
	})
}

func (o *Orchestrator) AddStop(loc models.Location) {
	_ = o.apply(func() error {
		o.trip.AddStop(loc)
		return nil
	})
}

func (o *Orchestrator) RemoveStop(index int) bool {
	removed := false
	_ = o.apply(func() error {
		removed = o.trip.RemoveStop(index)
		return nil
	})
	return removed
}

func (o *Orchestrator) UpdateStop(index int, loc models.Location) bool {
	updated := false
	_ = o.apply(func() error {
		updated = o.trip.UpdateStop(index, loc)
		return nil
	})
	return updated
}

// SetSchedule sets date and time in one transition.
func (o *Orchestrator) SetSchedule(date, t string) {
	_ = o.apply(func() error {
		o.trip.SetDate(date)
		o.trip.SetTime(t)
		return nil
	})
}

func (o *Orchestrator) SetDate(date string) {
	_ = o.apply(func() error {
		o.trip.SetDate(date)
		return nil
	})
}

func (o *Orchestrator) SetTime(t string) {
	_ = o.apply(func() error {
		o.trip.SetTime(t)
		return nil
	})
}

// Counts carries passenger and luggage figures; nil fields are left alone.
type Counts struct {
	Passengers     *int
	CheckedLuggage *int
	HandLuggage    *int
}

// SetCounts applies every non-nil count in one transition.
func (o *Orchestrator) SetCounts(c Counts) {
	_ = o.apply(func() error {
		if c.Passengers != nil {
			o.trip.SetPassengers(*c.Passengers)
		}
		if c.CheckedLuggage != nil {
			o.trip.SetCheckedLuggage(*c.CheckedLuggage)
		}
		if c.HandLuggage != nil {
			o.trip.SetHandLuggage(*c.HandLuggage)
		}
		return nil
	})
}

func (o *Orchestrator) SetPassengers(n int) int {
	var got int
	_ = o.apply(func() error {
		got = o.trip.SetPassengers(n)
		return nil
	})
	return got
}

// SelectVehicle accepts only an option of the current quote.
func (o *Orchestrator) SelectVehicle(vehicleID string) error {
	return o.apply(func() error {
		q := o.req.Quote()
		if q == nil {
			return domain.ValidationError{Field: "vehicle", Msg: "no fare quote available"}
		}
		v, ok := q.FindVehicle(vehicleID)
		if !ok {
			return domain.ValidationError{Field: "vehicle", Msg: "vehicle is not part of the current quote"}
		}
		o.trip.SetSelectedVehicle(&v)
		return nil
	})
}

func (o *Orchestrator) ValidateField(field, value string) string {
	var msg string
	_ = o.apply(func() error {
		msg = o.val.ValidateField(field, value)
		return nil
	})
	return msg
}

func (o *Orchestrator) ClearFieldError(field string) {
	_ = o.apply(func() error {
		o.val.ClearFieldError(field)
		return nil
	})
}

// Next attempts the forward transition of the active step. Entering the
// vehicle step starts a fare estimate and waits for it; a failed estimate
// is reported through the request state, not the returned error.
func (o *Orchestrator) Next(ctx context.Context) (models.WizardStep, error) {
	var (
		step models.WizardStep
		call *fareCall
	)
	err := o.apply(func() error {
		var err error
		step, err = o.nav.Advance(o.trip.Snapshot(), o.val.IsValid())
		if err != nil {
			return err
		}
		if step == models.StepVehicle {
			c := o.beginFareLocked()
			call = &c
		}
		return nil
	})
	if err != nil {
		return step, err
	}
	o.log.Debug("wizard step advanced", zap.String("step", string(step)))
	if call != nil {
		_ = o.runFare(ctx, *call)
	}
	return step, nil
}

// GoTo moves back to an earlier step.
func (o *Orchestrator) GoTo(step models.WizardStep) error {
	return o.apply(func() error {
		return o.nav.GoTo(step)
	})
}

func (o *Orchestrator) DismissBookingSuccess() {
	_ = o.apply(func() error {
		o.nav.DismissSuccess()
		return nil
	})
}

// GetFareEstimate re-prices the current trip. It returns the collaborator
// error when that failure was applied; superseded responses return nil.
func (o *Orchestrator) GetFareEstimate(ctx context.Context) error {
	var call fareCall
	err := o.apply(func() error {
		if !o.trip.HasRoute() {
			return domain.ValidationError{Field: "route", Msg: "pickup and dropoff are required for a fare estimate"}
		}
		call = o.beginFareLocked()
		return nil
	})
	if err != nil {
		return err
	}
	return o.runFare(ctx, call)
}

func (o *Orchestrator) beginFareLocked() fareCall {
	token := o.req.BeginFare()
	return fareCall{token: token, trip: o.trip.Snapshot()}
}

func (o *Orchestrator) runFare(ctx context.Context, call fareCall) error {
	quote, err := o.fares.EstimateFare(ctx, call.trip)

	o.mu.Lock()
	var applyErr error
	if err != nil {
		applyErr = o.req.RejectFare(call.token, domain.UserMessage(err))
	} else {
		applyErr = o.req.ResolveFare(call.token, quote, call.trip.Version)
		if applyErr == nil {
			o.reconcileVehicleLocked()
		}
	}
	if errors.Is(applyErr, domain.ErrStaleResponse) {
		o.mu.Unlock()
		o.log.Debug("fare response discarded", zap.Uint64("token", call.token))
		return nil
	}
	snap, ls := o.publishLocked()
	o.mu.Unlock()
	notify(snap, ls)

	if err != nil {
		o.log.Warn("fare estimate failed", zap.Uint64("token", call.token), zap.Error(err))
		return err
	}
	o.log.Debug("fare estimate applied",
		zap.Uint64("token", call.token),
		zap.Int("vehicles", len(quote.VehicleOptions)),
	)
	return nil
}

// reconcileVehicleLocked keeps the selection inside the latest quote.
func (o *Orchestrator) reconcileVehicleLocked() {
	sel := o.trip.Snapshot().SelectedVehicle
	if sel == nil {
		return
	}
	q := o.req.Quote()
	if q == nil {
		return
	}
	if v, ok := q.FindVehicle(sel.ID); ok {
		o.trip.SetSelectedVehicle(&v)
		return
	}
	o.trip.SetSelectedVehicle(nil)
}

// CreateBooking submits the trip with details. It does nothing when terms
// are not accepted or another submission is still pending; both cases
// return a nil receipt and nil error.
func (o *Orchestrator) CreateBooking(ctx context.Context, details models.PersonalDetails, agreeToTerms bool) (*models.BookingReceipt, error) {
	if !agreeToTerms {
		return nil, nil
	}

	var (
		epoch   uint64
		req     models.BookingRequest
		skipped bool
	)
	o.mu.Lock()
	if o.req.IsCreatingBooking() {
		o.mu.Unlock()
		return nil, nil
	}
	if o.nav.Step() != models.StepDetails {
		o.mu.Unlock()
		return nil, domain.ConflictError{Resource: "booking", Msg: "booking can only be submitted from the details step"}
	}
	trip := o.trip.Snapshot()
	if trip.SelectedVehicle == nil {
		o.mu.Unlock()
		return nil, domain.ValidationError{Field: "vehicle", Msg: "select a vehicle to continue"}
	}
	var invalid error
	if !o.val.ValidateForm(details.Values()) {
		field, msg, _ := o.val.FirstError()
		invalid = domain.ValidationError{Field: field, Msg: msg}
	} else {
		epoch, _ = o.req.BeginSubmission()
		req = models.BookingRequest{Trip: trip, Details: details}
	}
	snap, ls := o.publishLocked()
	o.mu.Unlock()
	notify(snap, ls)
	if invalid != nil {
		return nil, invalid
	}

	id, err := o.bookings.SubmitBooking(ctx, req)

	o.mu.Lock()
	if err != nil {
		if o.req.RejectSubmission(epoch, domain.UserMessage(err)) != nil {
			skipped = true
		}
	} else if o.req.ResolveSubmission(epoch) != nil {
		skipped = true
	} else {
		o.nav.CompleteBooking(id)
		o.trip.Reset()
		o.req.Reset()
		o.val.Reset()
	}
	if skipped {
		o.mu.Unlock()
		o.log.Info("booking result arrived after reset", zap.String("booking_id", id), zap.Error(err))
		if err != nil {
			return nil, nil
		}
		return &models.BookingReceipt{BookingID: id, Trip: req.Trip, Details: details, CreatedAt: o.now()}, nil
	}
	snap, ls = o.publishLocked()
	o.mu.Unlock()
	notify(snap, ls)

	if err != nil {
		o.log.Warn("booking submission failed", zap.Error(err))
		return nil, err
	}
	o.log.Info("booking created", zap.String("booking_id", id))
	return &models.BookingReceipt{BookingID: id, Trip: req.Trip, Details: details, CreatedAt: o.now()}, nil
}

// ResetBookingState clears all four domains as one transition.
func (o *Orchestrator) ResetBookingState() {
	_ = o.apply(func() error {
		o.trip.Reset()
		o.nav.Reset()
		o.req.Reset()
		o.val.Reset()
		return nil
	})
}

// Persisted returns the state that may be stored between sessions.
func (o *Orchestrator) Persisted() models.PersistedState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return models.PersistedState{
		Trip:      o.trip.Snapshot(),
		FareQuote: o.req.Quote(),
	}
}

// Restore rehydrates persisted state; navigation, validation and request
// flags start from their idle values.
func (o *Orchestrator) Restore(state models.PersistedState) {
	_ = o.apply(func() error {
		o.trip.Restore(state.Trip)
		o.req.Restore(state.FareQuote)
		o.nav.Reset()
		o.val.Reset()
		return nil
	})
}
