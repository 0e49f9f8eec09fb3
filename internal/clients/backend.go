package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"transferbook/internal/domain"
	"transferbook/internal/domain/models"
	"transferbook/internal/utils"
)

// Backend talks to the pricing and booking API.
type Backend struct {
	Base string
	HTTP *http.Client
}

func NewBackend(base string, timeout time.Duration) *Backend {
	return &Backend{
		Base: strings.TrimRight(base, "/"),
		HTTP: &http.Client{Timeout: timeout},
	}
}

type wireAddress struct {
	Address     string             `json:"address"`
	Coordinates models.Coordinates `json:"coordinates"`
}

type fareRequest struct {
	Locations struct {
		Pickup          wireAddress   `json:"pickup"`
		Dropoff         wireAddress   `json:"dropoff"`
		AdditionalStops []wireAddress `json:"additionalStops,omitempty"`
	} `json:"locations"`
	Datetime struct {
		Date string `json:"date"`
		Time string `json:"time"`
	} `json:"datetime"`
	Passengers struct {
		Count          int `json:"count"`
		CheckedLuggage int `json:"checkedLuggage"`
		HandLuggage    int `json:"handLuggage"`
	} `json:"passengers"`
}

type fareResponse struct {
	VehicleOptions []models.VehicleOption `json:"vehicleOptions"`
	Journey        models.Journey         `json:"journey"`
	Notifications  []string               `json:"notifications"`
}

type bookingRequest struct {
	models.TripParameters
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	SpecialRequests string `json:"specialRequests"`
}

type bookingResponse struct {
	BookingID string `json:"bookingId"`
}

type errorEnvelope struct {
	Error *struct {
		Message string `json:"message"`
		Details any    `json:"details"`
		Code    string `json:"code"`
	} `json:"error"`
}

func toWire(l models.Location) wireAddress {
	return wireAddress{Address: l.Address, Coordinates: l.Coordinates()}
}

func newFareRequest(trip models.TripParameters) (fareRequest, error) {
	var req fareRequest
	if trip.Pickup == nil || trip.Dropoff == nil {
		return req, domain.ValidationError{Field: "route", Msg: "pickup and dropoff are required"}
	}
	req.Locations.Pickup = toWire(*trip.Pickup)
	req.Locations.Dropoff = toWire(*trip.Dropoff)
	for _, s := range trip.Stops {
		req.Locations.AdditionalStops = append(req.Locations.AdditionalStops, toWire(s))
	}
	req.Datetime.Date = trip.Date
	req.Datetime.Time = trip.Time
	req.Passengers.Count = trip.Passengers
	req.Passengers.CheckedLuggage = trip.CheckedLuggage
	req.Passengers.HandLuggage = trip.HandLuggage
	return req, nil
}

// EstimateFare prices the trip. Failures come back as NetworkError.
func (b *Backend) EstimateFare(ctx context.Context, trip models.TripParameters) (models.FareQuote, error) {
	in, err := newFareRequest(trip)
	if err != nil {
		return models.FareQuote{}, err
	}
	var out fareResponse
	if err := b.post(ctx, "fare estimate", "/api/fare-estimate", in, &out); err != nil {
		return models.FareQuote{}, err
	}
	if out.Notifications == nil {
		out.Notifications = []string{}
	}
	return models.FareQuote{
		VehicleOptions: out.VehicleOptions,
		Journey:        out.Journey,
		Notifications:  out.Notifications,
	}, nil
}

// SubmitBooking creates the booking and returns the backend's id.
func (b *Backend) SubmitBooking(ctx context.Context, req models.BookingRequest) (string, error) {
	in := bookingRequest{
		TripParameters:  req.Trip,
		FullName:        req.Details.FullName,
		Email:           req.Details.Email,
		Phone:           req.Details.Phone,
		SpecialRequests: req.Details.SpecialRequests,
	}
	var out bookingResponse
	if err := b.post(ctx, "create booking", "/api/bookings", in, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.BookingID) == "" {
		return "", domain.NetworkError{Op: "create booking", Msg: "booking service returned no booking id"}
	}
	return out.BookingID, nil
}

func (b *Backend) post(ctx context.Context, op, path string, in, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return domain.InternalError{Msg: "encode " + op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.Base+path, buf)
	if err != nil {
		return domain.InternalError{Msg: "build " + op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return do(b.HTTP, req, op, out)
}

// do runs req and decodes a 2xx body into out. Everything else, including
// transport failures and deadlines, is reported as a NetworkError.
func do(client *http.Client, req *http.Request, op string, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		msg := "Could not reach the server. Please check your connection and try again."
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "The server took too long to respond. Please try again."
		}
		return domain.NetworkError{Op: op, Msg: msg, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.NetworkError{Op: op, Msg: "Could not read the server response.", Err: err}
	}
	if resp.StatusCode/100 != 2 {
		return decodeFailure(op, resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return domain.NetworkError{Op: op, Msg: "The server sent an unexpected response.", Err: err}
	}
	return nil
}

func decodeFailure(op string, status int, body []byte) error {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil && env.Error.Message != "" {
		return domain.NetworkError{
			Op:      op,
			Msg:     env.Error.Message,
			Code:    env.Error.Code,
			Details: env.Error.Details,
			Err:     fmt.Errorf("status %d", status),
		}
	}
	return domain.NetworkError{
		Op:  op,
		Msg: fmt.Sprintf("Request failed (%d %s).", status, http.StatusText(status)),
		Err: fmt.Errorf("status %d: %s", status, utils.Truncate(strings.TrimSpace(string(body)), 200)),
	}
}
