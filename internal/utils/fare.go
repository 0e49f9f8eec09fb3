package utils

import (
	"math"

	"transferbook/internal/domain/models"
)

const earthRadiusMiles = 3958.8

// HaversineMiles is the great-circle distance between two points.
func HaversineMiles(a, b models.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMiles * math.Asin(math.Min(1, math.Sqrt(h)))
}

// RouteMiles sums the straight-line legs pickup -> stops -> dropoff.
// It returns 0 when either end is missing.
func RouteMiles(trip models.TripParameters) float64 {
	if trip.Pickup == nil || trip.Dropoff == nil {
		return 0
	}
	points := make([]models.Coordinates, 0, len(trip.Stops)+2)
	points = append(points, trip.Pickup.Coordinates())
	for _, s := range trip.Stops {
		points = append(points, s.Coordinates())
	}
	points = append(points, trip.Dropoff.Coordinates())

	total := 0.0
	for i := 1; i < len(points); i++ {
		total += HaversineMiles(points[i-1], points[i])
	}
	return total
}
