package wizard

import (
	"transferbook/internal/domain"
	"transferbook/internal/domain/models"
)

// RequestStore tracks the fare and submission lifecycles. Each fare
// issuance takes a new token and only the latest token may write results;
// submissions are guarded the same way by an epoch.
type RequestStore struct {
	state       models.RequestState
	fareToken   uint64
	submitEpoch uint64
}

func NewRequestStore() *RequestStore {
	return &RequestStore{}
}

// BeginFare issues a new token and marks the fare as pending.
func (s *RequestStore) BeginFare() uint64 {
	s.fareToken++
	s.state.IsFetchingFare = true
	s.state.FetchError = nil
	return s.fareToken
}

// ResolveFare stores quote stamped with the trip version captured at issuance.
func (s *RequestStore) ResolveFare(token uint64, quote models.FareQuote, version uint64) error {
	if token != s.fareToken {
		return domain.ErrStaleResponse
	}
	q := quote.Clone()
	q.Version = version
	s.state.FareQuote = &q
	s.state.FetchError = nil
	s.state.IsFetchingFare = false
	return nil
}

// RejectFare records msg and keeps the last good quote.
func (s *RequestStore) RejectFare(token uint64, msg string) error {
	if token != s.fareToken {
		return domain.ErrStaleResponse
	}
	s.state.FetchError = &msg
	s.state.IsFetchingFare = false
	return nil
}

// BeginSubmission returns false while another submission is pending.
func (s *RequestStore) BeginSubmission() (uint64, bool) {
	if s.state.IsCreatingBooking {
		return 0, false
	}
	s.submitEpoch++
	s.state.IsCreatingBooking = true
	s.state.BookingError = nil
	return s.submitEpoch, true
}

func (s *RequestStore) ResolveSubmission(epoch uint64) error {
	if epoch != s.submitEpoch || !s.state.IsCreatingBooking {
		return domain.ErrStaleResponse
	}
	s.state.IsCreatingBooking = false
	s.state.BookingError = nil
	return nil
}

func (s *RequestStore) RejectSubmission(epoch uint64, msg string) error {
	if epoch != s.submitEpoch || !s.state.IsCreatingBooking {
		return domain.ErrStaleResponse
	}
	s.state.IsCreatingBooking = false
	s.state.BookingError = &msg
	return nil
}

func (s *RequestStore) IsCreatingBooking() bool {
	return s.state.IsCreatingBooking
}

// Quote returns a copy of the last good quote, if any.
func (s *RequestStore) Quote() *models.FareQuote {
	if s.state.FareQuote == nil {
		return nil
	}
	q := s.state.FareQuote.Clone()
	return &q
}

// IsQuoteStale reports whether the quote was priced for another version.
func (s *RequestStore) IsQuoteStale(version uint64) bool {
	return s.state.FareQuote != nil && s.state.FareQuote.Version != version
}

func (s *RequestStore) State() models.RequestState {
	out := s.state
	out.FareQuote = s.Quote()
	if s.state.FetchError != nil {
		msg := *s.state.FetchError
		out.FetchError = &msg
	}
	if s.state.BookingError != nil {
		msg := *s.state.BookingError
		out.BookingError = &msg
	}
	return out
}

// Restore rehydrates a persisted quote; transient fields start idle.
func (s *RequestStore) Restore(quote *models.FareQuote) {
	s.fareToken++
	s.submitEpoch++
	s.state = models.RequestState{}
	if quote != nil {
		q := quote.Clone()
		s.state.FareQuote = &q
	}
}

// Reset returns to idle and advances both epochs so that anything still in
// flight is discarded when it lands.
func (s *RequestStore) Reset() {
	s.fareToken++
	s.submitEpoch++
	s.state = models.RequestState{}
}
