package models

import "time"

// PersonalDetails is collected on the details step.
type PersonalDetails struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	SpecialRequests string `json:"specialRequests"`
}

// Values exposes the details keyed by the field names the validator knows.
func (p PersonalDetails) Values() map[string]string {
	return map[string]string{
		"fullName":        p.FullName,
		"email":           p.Email,
		"phone":           p.Phone,
		"specialRequests": p.SpecialRequests,
	}
}

// BookingRequest is the combined payload sent to the booking backend.
type BookingRequest struct {
	Trip    TripParameters  `json:"trip"`
	Details PersonalDetails `json:"details"`
}

// BookingReceipt keeps what was booked after the wizard state is cleared.
type BookingReceipt struct {
	BookingID string          `json:"bookingId"`
	Trip      TripParameters  `json:"trip"`
	Details   PersonalDetails `json:"details"`
	CreatedAt time.Time       `json:"createdAt"`
}

// PersistedState is the part of a session that survives restarts.
// Transient request flags and errors are deliberately absent.
type PersistedState struct {
	Trip      TripParameters `json:"trip"`
	FareQuote *FareQuote     `json:"fareQuote,omitempty"`
}
