package models

// Coordinates is the wire shape used by the pricing and geocoding backends.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is a confirmed point on the route.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
	ID        string  `json:"id,omitempty"`
}

func (l Location) Coordinates() Coordinates {
	return Coordinates{Lat: l.Latitude, Lng: l.Longitude}
}

type Capacity struct {
	Passengers int `json:"passengers"`
	Luggage    int `json:"luggage"`
}

type Price struct {
	Amount    float64            `json:"amount"`
	Currency  string             `json:"currency"`
	Breakdown map[string]float64 `json:"breakdown,omitempty"`
}

// VehicleOption is one priced vehicle class offered by a fare quote.
type VehicleOption struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Capacity Capacity `json:"capacity"`
	Price    Price    `json:"price"`
}

func (v VehicleOption) Clone() VehicleOption {
	out := v
	if v.Price.Breakdown != nil {
		out.Price.Breakdown = make(map[string]float64, len(v.Price.Breakdown))
		for k, amount := range v.Price.Breakdown {
			out.Price.Breakdown[k] = amount
		}
	}
	return out
}

type Journey struct {
	DistanceMiles   float64 `json:"distance_miles"`
	DurationMinutes float64 `json:"duration_minutes"`
}

// FareQuote is bound to the TripParameters version that produced it.
type FareQuote struct {
	VehicleOptions []VehicleOption `json:"vehicleOptions"`
	Journey        Journey         `json:"journey"`
	Notifications  []string        `json:"notifications"`
	Version        uint64          `json:"version"`
}

func (q FareQuote) Clone() FareQuote {
	out := q
	out.VehicleOptions = make([]VehicleOption, len(q.VehicleOptions))
	for i, v := range q.VehicleOptions {
		out.VehicleOptions[i] = v.Clone()
	}
	out.Notifications = append([]string{}, q.Notifications...)
	return out
}

// FindVehicle looks up an option by id.
func (q FareQuote) FindVehicle(id string) (VehicleOption, bool) {
	for _, v := range q.VehicleOptions {
		if v.ID == id {
			return v, true
		}
	}
	return VehicleOption{}, false
}

// TripParameters holds the factual parameters of the trip being booked.
// Version grows on every fare-relevant mutation.
type TripParameters struct {
	Pickup          *Location      `json:"pickup"`
	Dropoff         *Location      `json:"dropoff"`
	Stops           []Location     `json:"stops"`
	Date            string         `json:"date"`
	Time            string         `json:"time"`
	Passengers      int            `json:"passengers"`
	CheckedLuggage  int            `json:"checkedLuggage"`
	HandLuggage     int            `json:"handLuggage"`
	SelectedVehicle *VehicleOption `json:"selectedVehicle"`
	Version         uint64         `json:"version"`
}

// Clone returns a deep copy that shares no memory with t.
func (t TripParameters) Clone() TripParameters {
	out := t
	if t.Pickup != nil {
		p := *t.Pickup
		out.Pickup = &p
	}
	if t.Dropoff != nil {
		d := *t.Dropoff
		out.Dropoff = &d
	}
	out.Stops = append([]Location{}, t.Stops...)
	if t.SelectedVehicle != nil {
		v := t.SelectedVehicle.Clone()
		out.SelectedVehicle = &v
	}
	return out
}
