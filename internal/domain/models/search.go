package models

type SearchCategory string

const (
	CategoryCurrentLocation SearchCategory = "current-location"
	CategoryRecent          SearchCategory = "recent"
	CategoryPopular         SearchCategory = "popular"
	CategoryAddress         SearchCategory = "address"
	CategoryHeader          SearchCategory = "category-header"
	CategoryAirport         SearchCategory = "airport"
	CategoryTrainStation    SearchCategory = "train-station"
)

// SearchResult is one address suggestion. Headers carry no coordinates.
type SearchResult struct {
	ID          string         `json:"id"`
	Label       string         `json:"label"`
	Coordinates *Coordinates   `json:"coordinates,omitempty"`
	Category    SearchCategory `json:"category"`
}

// Selectable reports whether choosing r can fill a location field.
func (r SearchResult) Selectable() bool {
	if r.Category == CategoryCurrentLocation {
		return true
	}
	return r.Category != CategoryHeader && r.Coordinates != nil
}

// Location converts a geocoded result into a confirmed location.
func (r SearchResult) Location() Location {
	loc := Location{Address: r.Label, ID: r.ID}
	if r.Coordinates != nil {
		loc.Latitude = r.Coordinates.Lat
		loc.Longitude = r.Coordinates.Lng
	}
	return loc
}

// Position is a device geolocation fix.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}
