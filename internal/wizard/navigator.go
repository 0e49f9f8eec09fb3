package wizard

import (
	"transferbook/internal/domain"
	"transferbook/internal/domain/models"
)

// Navigator is the step state machine. It starts on Location and cycles
// back there after a successful booking.
type Navigator struct {
	step  models.WizardStep
	flags models.UIFlags
}

func NewNavigator() *Navigator {
	n := &Navigator{}
	n.Reset()
	return n
}

func (n *Navigator) Step() models.WizardStep {
	return n.step
}

func (n *Navigator) Flags() models.UIFlags {
	return n.flags
}

// guard checks the forward condition of step.
func guard(step models.WizardStep, trip models.TripParameters, detailsValid bool) error {
	switch step {
	case models.StepLocation:
		if trip.Pickup == nil {
			return domain.ValidationError{Field: "pickup", Msg: "pickup location is required"}
		}
		if trip.Dropoff == nil {
			return domain.ValidationError{Field: "dropoff", Msg: "dropoff location is required"}
		}
	case models.StepLuggage:
		if trip.Passengers < 1 {
			return domain.ValidationError{Field: "passengers", Msg: "at least one passenger is required"}
		}
	case models.StepVehicle:
		if trip.SelectedVehicle == nil {
			return domain.ValidationError{Field: "vehicle", Msg: "select a vehicle to continue"}
		}
	case models.StepDetails:
		if !detailsValid {
			return domain.ValidationError{Field: "details", Msg: "personal details are incomplete"}
		}
	}
	return nil
}

// IsCurrentStepValid looks only at the active step's guard.
func (n *Navigator) IsCurrentStepValid(trip models.TripParameters, detailsValid bool) bool {
	return guard(n.step, trip, detailsValid) == nil
}

// Advance moves one step forward when the guard holds. Details has no
// forward step; it is left through a successful submission.
func (n *Navigator) Advance(trip models.TripParameters, detailsValid bool) (models.WizardStep, error) {
	next, ok := n.step.Next()
	if !ok {
		return n.step, domain.ConflictError{Resource: "wizard", Msg: "submit the booking to finish the details step"}
	}
	if err := guard(n.step, trip, detailsValid); err != nil {
		return n.step, err
	}

	if n.step == models.StepLocation {
		n.flags.BookingSuccess = models.BookingSuccess{}
	}
	switch next {
	case models.StepVehicle:
		n.flags.ShowVehicleOptions = true
	case models.StepDetails:
		n.flags.ShowDetailsForm = true
	}
	n.step = next
	return n.step, nil
}

// GoTo moves to the current or an earlier step and clears the flags owned
// by the steps being left.
func (n *Navigator) GoTo(step models.WizardStep) error {
	if !step.Valid() {
		return domain.ValidationError{Field: "step", Msg: "unknown step"}
	}
	if step.Index() > n.step.Index() {
		return domain.ConflictError{Resource: "wizard", Msg: "forward steps are reached through next"}
	}
	if step.Index() < models.StepDetails.Index() {
		n.flags.ShowDetailsForm = false
	}
	if step.Index() < models.StepVehicle.Index() {
		n.flags.ShowVehicleOptions = false
	}
	n.step = step
	return nil
}

// CompleteBooking ends the Details step after a successful submission.
func (n *Navigator) CompleteBooking(bookingID string) {
	n.step = models.StepLocation
	n.flags = models.UIFlags{
		BookingSuccess: models.BookingSuccess{Show: true, BookingID: bookingID},
	}
}

func (n *Navigator) DismissSuccess() {
	n.flags.BookingSuccess = models.BookingSuccess{}
}

func (n *Navigator) Reset() {
	n.step = models.StepLocation
	n.flags = models.UIFlags{}
}
