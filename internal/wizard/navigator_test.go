package wizard

import (
	"testing"

	"transferbook/internal/domain"
	"transferbook/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNavigator_LocationValidity(t *testing.T) {
	n := NewNavigator()
	p := loc("Pickup")
	d := loc("Dropoff")

	assert.False(t, n.IsCurrentStepValid(models.TripParameters{}, true))
	assert.False(t, n.IsCurrentStepValid(models.TripParameters{Pickup: &p}, true))
	assert.False(t, n.IsCurrentStepValid(models.TripParameters{Dropoff: &d}, true))
	assert.True(t, n.IsCurrentStepValid(models.TripParameters{Pickup: &p, Dropoff: &d}, true))
}

func TestNavigator_ForwardGuards(t *testing.T) {
	n := NewNavigator()
	p := loc("Pickup")
	d := loc("Dropoff")
	trip := models.TripParameters{Pickup: &p}

	_, err := n.Advance(trip, true)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Equal(t, models.StepLocation, n.Step())

	trip.Dropoff = &d
	step, err := n.Advance(trip, true)
	require.NoError(t, err)
	assert.Equal(t, models.StepLuggage, step)

	_, err = n.Advance(trip, true)
	require.Error(t, err, "passengers below one")

	trip.Passengers = 2
	step, err = n.Advance(trip, true)
	require.NoError(t, err)
	assert.Equal(t, models.StepVehicle, step)
	assert.True(t, n.Flags().ShowVehicleOptions)

	_, err = n.Advance(trip, true)
	require.Error(t, err, "no vehicle selected")

	trip.SelectedVehicle = &models.VehicleOption{ID: "sedan"}
	step, err = n.Advance(trip, true)
	require.NoError(t, err)
	assert.Equal(t, models.StepDetails, step)
	assert.True(t, n.Flags().ShowDetailsForm)

	assert.False(t, n.IsCurrentStepValid(trip, false))
	assert.True(t, n.IsCurrentStepValid(trip, true))

	_, err = n.Advance(trip, true)
	assert.True(t, domain.IsConflict(err))
}

func TestNavigator_BackClearsForwardFlags(t *testing.T) {
	n := NewNavigator()
	n.step = models.StepDetails
	n.flags = models.UIFlags{ShowVehicleOptions: true, ShowDetailsForm: true}

	require.NoError(t, n.GoTo(models.StepVehicle))
	assert.False(t, n.Flags().ShowDetailsForm)
	assert.True(t, n.Flags().ShowVehicleOptions)

	require.NoError(t, n.GoTo(models.StepLocation))
	assert.False(t, n.Flags().ShowVehicleOptions)

	err := n.GoTo(models.StepDetails)
	assert.True(t, domain.IsConflict(err))
	err = n.GoTo(models.WizardStep("payment"))
	assert.True(t, domain.IsValidation(err))
}

func TestNavigator_CompleteBookingCyclesToLocation(t *testing.T) {
	n := NewNavigator()
	n.step = models.StepDetails
	n.flags.ShowDetailsForm = true

	n.CompleteBooking("BK-42")

	assert.Equal(t, models.StepLocation, n.Step())
	assert.False(t, n.Flags().ShowDetailsForm)
	assert.Equal(t, models.BookingSuccess{Show: true, BookingID: "BK-42"}, n.Flags().BookingSuccess)
}
