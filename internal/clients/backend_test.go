package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"transferbook/internal/domain"
	"transferbook/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrip() models.TripParameters {
	return models.TripParameters{
		Pickup:         &models.Location{Address: "Heathrow Airport", Latitude: 51.47, Longitude: -0.4543},
		Dropoff:        &models.Location{Address: "King's Cross Station", Latitude: 51.5308, Longitude: -0.1233},
		Stops:          []models.Location{{Address: "Paddington Station", Latitude: 51.5154, Longitude: -0.1755}},
		Date:           "2026-11-02",
		Time:           "08:15",
		Passengers:     3,
		CheckedLuggage: 2,
		HandLuggage:    1,
		Version:        9,
	}
}

func TestBackend_EstimateFare(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/fare-estimate", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		locations := body["locations"].(map[string]any)
		pickup := locations["pickup"].(map[string]any)
		assert.Equal(t, "Heathrow Airport", pickup["address"])
		assert.Equal(t, 51.47, pickup["coordinates"].(map[string]any)["lat"])
		assert.Len(t, locations["additionalStops"], 1)
		assert.Equal(t, 3.0, body["passengers"].(map[string]any)["count"])
		assert.Equal(t, "08:15", body["datetime"].(map[string]any)["time"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"vehicleOptions": [
				{"id":"sedan","name":"Standard Saloon","capacity":{"passengers":4,"luggage":2},"price":{"amount":68.5,"currency":"GBP"}},
				{"id":"mpv","name":"People Carrier","capacity":{"passengers":6,"luggage":5},"price":{"amount":92,"currency":"GBP","breakdown":{"base":80,"stops":12}}}
			],
			"journey": {"distance_miles": 16.2, "duration_minutes": 48}
		}`))
	}))
	defer srv.Close()

	b := NewBackend(srv.URL+"/", time.Second)
	q, err := b.EstimateFare(context.Background(), sampleTrip())
	require.NoError(t, err)

	require.Len(t, q.VehicleOptions, 2)
	assert.Equal(t, 92.0, q.VehicleOptions[1].Price.Amount)
	assert.Equal(t, 12.0, q.VehicleOptions[1].Price.Breakdown["stops"])
	assert.Equal(t, 16.2, q.Journey.DistanceMiles)
	assert.NotNil(t, q.Notifications)
}

func TestBackend_EstimateFareNeedsRoute(t *testing.T) {
	b := NewBackend("http://127.0.0.1:0", time.Second)
	_, err := b.EstimateFare(context.Background(), models.TripParameters{})
	assert.True(t, domain.IsValidation(err))
}

func TestBackend_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":{"message":"No vehicles available for this date","code":"NO_AVAILABILITY","details":{"date":"2026-11-02"}}}`))
	}))
	defer srv.Close()

	_, err := NewBackend(srv.URL, time.Second).EstimateFare(context.Background(), sampleTrip())
	require.Error(t, err)

	var netErr domain.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, "fare estimate", netErr.Op)
	assert.Equal(t, "NO_AVAILABILITY", netErr.Code)
	assert.Equal(t, "No vehicles available for this date", domain.UserMessage(err))
}

func TestBackend_PlainFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewBackend(srv.URL, time.Second).EstimateFare(context.Background(), sampleTrip())
	require.Error(t, err)
	assert.True(t, domain.IsNetwork(err))
	assert.Contains(t, domain.UserMessage(err), "502")
}

func TestBackend_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := NewBackend(srv.URL, time.Second).EstimateFare(ctx, sampleTrip())
	require.Error(t, err)
	assert.True(t, domain.IsNetwork(err))
	assert.Contains(t, domain.UserMessage(err), "too long")
}

func TestBackend_SubmitBooking(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/bookings", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Ann Smith", body["fullName"])
		assert.Equal(t, "Window seat please", body["specialRequests"])
		assert.Equal(t, "sedan", body["selectedVehicle"].(map[string]any)["id"])
		assert.Equal(t, 3.0, body["passengers"])
		_, _ = w.Write([]byte(`{"bookingId":"TB-20261102-0042"}`))
	}))
	defer srv.Close()

	trip := sampleTrip()
	trip.SelectedVehicle = &models.VehicleOption{ID: "sedan", Name: "Standard Saloon"}
	id, err := NewBackend(srv.URL, time.Second).SubmitBooking(context.Background(), models.BookingRequest{
		Trip: trip,
		Details: models.PersonalDetails{
			FullName:        "Ann Smith",
			Email:           "ann@example.com",
			Phone:           "+44 7700 900123",
			SpecialRequests: "Window seat please",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "TB-20261102-0042", id)
}

func TestBackend_SubmitBookingWithoutID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewBackend(srv.URL, time.Second).SubmitBooking(context.Background(), models.BookingRequest{Trip: sampleTrip()})
	assert.True(t, domain.IsNetwork(err))
}
