package cli

import (
	"bytes"
	"context"
	"testing"

	"transferbook/internal/domain"
	"transferbook/internal/search"
	"transferbook/internal/services"
	"transferbook/internal/wizard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	log = zap.NewNop()
}

func TestParseLatLng(t *testing.T) {
	lat, lng, ok := parseLatLng("51.47, -0.4543")
	require.True(t, ok)
	assert.InDelta(t, 51.47, lat, 1e-9)
	assert.InDelta(t, -0.4543, lng, 1e-9)

	for _, in := range []string{"heathrow", "1,2,3", "91,0", "a,b"} {
		_, _, ok := parseLatLng(in)
		assert.False(t, ok, in)
	}
}

func TestRunQuoteOffline(t *testing.T) {
	gaz := search.NewGazetteer(search.DefaultPlaces())
	var out bytes.Buffer

	err := runQuote(context.Background(), &out, gaz, services.NewLocalFareEstimator(), wizard.DefaultLimits(), quoteOptions{
		pickup:     "heathrow",
		dropoff:    "51.5308,-0.1238",
		date:       "2026-11-02",
		clock:      "09:30",
		passengers: 3,
		checked:    2,
	})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Heathrow")
	assert.Contains(t, text, "Mon 02 Nov 2026 09:30")
	assert.Contains(t, text, "saloon")
	assert.Contains(t, text, "£")
}

func TestRunQuoteUnknownAddress(t *testing.T) {
	gaz := search.NewGazetteer(search.DefaultPlaces())
	err := runQuote(context.Background(), &bytes.Buffer{}, gaz, services.NewLocalFareEstimator(), wizard.DefaultLimits(), quoteOptions{
		pickup:  "zzzzqqqq",
		dropoff: "51.5308,-0.1238",
	})
	assert.True(t, domain.IsNotFound(err))
}
