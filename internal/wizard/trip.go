package wizard

import (
	"strings"

	"transferbook/internal/domain/models"
)

// Range is an inclusive clamp window for numeric trip fields.
type Range struct {
	Min int
	Max int
}

func (r Range) Clamp(n int) int {
	if n < r.Min {
		return r.Min
	}
	if n > r.Max {
		return r.Max
	}
	return n
}

type Limits struct {
	Passengers Range
	Luggage    Range
}

func DefaultLimits() Limits {
	return Limits{
		Passengers: Range{Min: 1, Max: 8},
		Luggage:    Range{Min: 0, Max: 8},
	}
}

// TripStore owns the trip parameters. Setters normalize instead of failing,
// and every fare-relevant change bumps the version.
type TripStore struct {
	limits Limits
	params models.TripParameters
}

func NewTripStore(limits Limits) *TripStore {
	s := &TripStore{limits: limits}
	s.params = s.initial()
	return s
}

func (s *TripStore) initial() models.TripParameters {
	return models.TripParameters{
		Stops:          []models.Location{},
		Passengers:     s.limits.Passengers.Clamp(0),
		CheckedLuggage: s.limits.Luggage.Clamp(0),
		HandLuggage:    s.limits.Luggage.Clamp(0),
	}
}

func (s *TripStore) touch() {
	s.params.Version++
}

func copyLocation(loc *models.Location) *models.Location {
	if loc == nil {
		return nil
	}
	c := *loc
	c.Address = strings.TrimSpace(c.Address)
	return &c
}

// SetPickupLocation sets or, with nil, clears the pickup.
func (s *TripStore) SetPickupLocation(loc *models.Location) {
	s.params.Pickup = copyLocation(loc)
	s.touch()
}

func (s *TripStore) SetDropoffLocation(loc *models.Location) {
	s.params.Dropoff = copyLocation(loc)
	s.touch()
}

func (s *TripStore) AddStop(loc models.Location) {
	s.params.Stops = append(s.params.Stops, *copyLocation(&loc))
	s.touch()
}

// RemoveStop deletes the stop at index, keeping the order of the rest.
// Out-of-range indexes are ignored.
func (s *TripStore) RemoveStop(index int) bool {
	if index < 0 || index >= len(s.params.Stops) {
		return false
	}
	stops := make([]models.Location, 0, len(s.params.Stops)-1)
	stops = append(stops, s.params.Stops[:index]...)
	stops = append(stops, s.params.Stops[index+1:]...)
	s.params.Stops = stops
	s.touch()
	return true
}

func (s *TripStore) UpdateStop(index int, loc models.Location) bool {
	if index < 0 || index >= len(s.params.Stops) {
		return false
	}
	s.params.Stops[index] = *copyLocation(&loc)
	s.touch()
	return true
}

func (s *TripStore) SetDate(date string) {
	s.params.Date = strings.TrimSpace(date)
	s.touch()
}

func (s *TripStore) SetTime(t string) {
	s.params.Time = strings.TrimSpace(t)
	s.touch()
}

func (s *TripStore) SetPassengers(n int) int {
	s.params.Passengers = s.limits.Passengers.Clamp(n)
	s.touch()
	return s.params.Passengers
}

func (s *TripStore) SetCheckedLuggage(n int) int {
	s.params.CheckedLuggage = s.limits.Luggage.Clamp(n)
	s.touch()
	return s.params.CheckedLuggage
}

func (s *TripStore) SetHandLuggage(n int) int {
	s.params.HandLuggage = s.limits.Luggage.Clamp(n)
	s.touch()
	return s.params.HandLuggage
}

// SetSelectedVehicle is not fare-relevant and leaves the version alone.
func (s *TripStore) SetSelectedVehicle(v *models.VehicleOption) {
	if v == nil {
		s.params.SelectedVehicle = nil
		return
	}
	c := v.Clone()
	s.params.SelectedVehicle = &c
}

func (s *TripStore) Version() uint64 {
	return s.params.Version
}

func (s *TripStore) HasRoute() bool {
	return s.params.Pickup != nil && s.params.Dropoff != nil
}

// Snapshot returns a deep copy safe to hand to a network call.
func (s *TripStore) Snapshot() models.TripParameters {
	return s.params.Clone()
}

// Restore loads persisted parameters, re-applying the clamps.
func (s *TripStore) Restore(p models.TripParameters) {
	next := p.Clone()
	if next.Stops == nil {
		next.Stops = []models.Location{}
	}
	next.Passengers = s.limits.Passengers.Clamp(next.Passengers)
	next.CheckedLuggage = s.limits.Luggage.Clamp(next.CheckedLuggage)
	next.HandLuggage = s.limits.Luggage.Clamp(next.HandLuggage)
	s.params = next
}

// Reset clears the trip. The version keeps counting so a quote priced for
// the old trip can never match the new one.
func (s *TripStore) Reset() {
	next := s.initial()
	next.Version = s.params.Version + 1
	s.params = next
}
