package models

// WizardStep is one stage of the booking flow.
type WizardStep string

const (
	StepLocation WizardStep = "location"
	StepLuggage  WizardStep = "luggage"
	StepVehicle  WizardStep = "vehicle"
	StepDetails  WizardStep = "details"
)

var stepOrder = []WizardStep{StepLocation, StepLuggage, StepVehicle, StepDetails}

// Index returns the position of s in the flow, or -1 when unknown.
func (s WizardStep) Index() int {
	for i, step := range stepOrder {
		if step == s {
			return i
		}
	}
	return -1
}

func (s WizardStep) Valid() bool { return s.Index() >= 0 }

// Next returns the step after s; Details has no successor.
func (s WizardStep) Next() (WizardStep, bool) {
	i := s.Index()
	if i < 0 || i+1 >= len(stepOrder) {
		return s, false
	}
	return stepOrder[i+1], true
}

type BookingSuccess struct {
	Show      bool   `json:"show"`
	BookingID string `json:"bookingId,omitempty"`
}

type UIFlags struct {
	ShowVehicleOptions bool           `json:"showVehicleOptions"`
	ShowDetailsForm    bool           `json:"showDetailsForm"`
	BookingSuccess     BookingSuccess `json:"bookingSuccess"`
}

type RequestState struct {
	IsFetchingFare    bool       `json:"isFetchingFare"`
	IsCreatingBooking bool       `json:"isCreatingBooking"`
	FetchError        *string    `json:"fetchError"`
	BookingError      *string    `json:"bookingError"`
	FareQuote         *FareQuote `json:"fareQuote"`
}

type ValidationState struct {
	Errors  map[string]string `json:"errors"`
	IsValid bool              `json:"isValid"`
}
