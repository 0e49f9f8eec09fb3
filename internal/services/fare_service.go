package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"transferbook/internal/domain"
	"transferbook/internal/domain/models"
	"transferbook/internal/utils"

	"github.com/google/uuid"
)

// VehicleClass is one tariff of the offline estimator.
type VehicleClass struct {
	ID         string
	Name       string
	Passengers int
	Luggage    int
	Base       float64
	PerMile    float64
}

var DefaultVehicleClasses = []VehicleClass{
	{ID: "saloon", Name: "Standard Saloon", Passengers: 4, Luggage: 2, Base: 35, PerMile: 2.10},
	{ID: "estate", Name: "Estate", Passengers: 4, Luggage: 4, Base: 42, PerMile: 2.40},
	{ID: "executive", Name: "Executive Saloon", Passengers: 3, Luggage: 2, Base: 65, PerMile: 3.20},
	{ID: "mpv", Name: "People Carrier", Passengers: 6, Luggage: 6, Base: 55, PerMile: 2.80},
	{ID: "minibus", Name: "Minibus", Passengers: 8, Luggage: 8, Base: 80, PerMile: 3.50},
}

const (
	roadFactor      = 1.3
	averageSpeedMPH = 24.0
	minutesPerStop  = 5.0
	perStopCharge   = 7.5
	meetGreetCharge = 10.0
	nightMultiplier = 0.15
	nightStart      = 23 * 60
	nightEnd        = 5 * 60
)

// LocalFareEstimator prices trips from straight-line distance when no
// pricing backend is configured. Classes that cannot carry the party are
// left out of the quote.
type LocalFareEstimator struct {
	Classes  []VehicleClass
	Currency string
}

func NewLocalFareEstimator() LocalFareEstimator {
	return LocalFareEstimator{Classes: DefaultVehicleClasses, Currency: "GBP"}
}

func (e LocalFareEstimator) EstimateFare(ctx context.Context, trip models.TripParameters) (models.FareQuote, error) {
	if err := ctx.Err(); err != nil {
		return models.FareQuote{}, domain.NetworkError{Op: "fare estimate", Msg: "fare estimate cancelled", Err: err}
	}
	if trip.Pickup == nil || trip.Dropoff == nil {
		return models.FareQuote{}, domain.ValidationError{Field: "route", Msg: "pickup and dropoff are required"}
	}

	miles := utils.RouteMiles(trip) * roadFactor
	minutes := miles/averageSpeedMPH*60 + minutesPerStop*float64(len(trip.Stops))
	bags := trip.CheckedLuggage + (trip.HandLuggage+1)/2
	night := isNight(trip.Time)
	airportPickup := strings.Contains(strings.ToLower(trip.Pickup.Address), "airport")

	quote := models.FareQuote{
		VehicleOptions: []models.VehicleOption{},
		Journey: models.Journey{
			DistanceMiles:   math.Round(miles*10) / 10,
			DurationMinutes: math.Round(minutes),
		},
		Notifications: []string{},
	}

	for _, c := range e.classes() {
		if c.Passengers < trip.Passengers || c.Luggage < bags {
			continue
		}
		breakdown := map[string]float64{
			"base":     c.Base,
			"distance": utils.RoundPrice(miles * c.PerMile),
		}
		if n := len(trip.Stops); n > 0 {
			breakdown["stops"] = perStopCharge * float64(n)
		}
		if airportPickup {
			breakdown["meet_greet"] = meetGreetCharge
		}
		subtotal := 0.0
		for _, v := range breakdown {
			subtotal += v
		}
		if night {
			breakdown["night"] = utils.RoundPrice(subtotal * nightMultiplier)
			subtotal += breakdown["night"]
		}
		quote.VehicleOptions = append(quote.VehicleOptions, models.VehicleOption{
			ID:       c.ID,
			Name:     c.Name,
			Capacity: models.Capacity{Passengers: c.Passengers, Luggage: c.Luggage},
			Price: models.Price{
				Amount:    utils.RoundPrice(subtotal),
				Currency:  e.currency(),
				Breakdown: breakdown,
			},
		})
	}

	if len(quote.VehicleOptions) == 0 {
		quote.Notifications = append(quote.Notifications,
			fmt.Sprintf("No single vehicle can carry %d passengers with %d bags. Please contact us for a multi-vehicle quote.", trip.Passengers, bags))
	}
	if night {
		quote.Notifications = append(quote.Notifications, "A night surcharge applies to pickups between 23:00 and 05:00.")
	}
	if airportPickup {
		quote.Notifications = append(quote.Notifications, "Meet and greet is included for airport pickups.")
	}
	return quote, nil
}

func (e LocalFareEstimator) classes() []VehicleClass {
	if len(e.Classes) == 0 {
		return DefaultVehicleClasses
	}
	return e.Classes
}

func (e LocalFareEstimator) currency() string {
	if e.Currency == "" {
		return "GBP"
	}
	return e.Currency
}

func isNight(clock string) bool {
	m, ok := utils.ParseClock(clock)
	if !ok {
		return false
	}
	return m >= nightStart || m < nightEnd
}

// LocalBookingDesk accepts bookings without a backend and hands out
// references of the form TB-XXXXXXXX.
type LocalBookingDesk struct{}

func (LocalBookingDesk) SubmitBooking(ctx context.Context, req models.BookingRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if req.Trip.SelectedVehicle == nil {
		return "", domain.ValidationError{Field: "vehicle", Msg: "select a vehicle to continue"}
	}
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "TB-" + id[:8], nil
}
