package search

import (
	"context"
	"errors"
	"testing"

	"transferbook/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labels(rs []models.SearchResult) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Label)
	}
	return out
}

func TestGazetteer_GroupsUnderHeaders(t *testing.T) {
	g := NewGazetteer(DefaultPlaces())

	rs, err := g.Lookup(context.Background(), "station")
	require.NoError(t, err)
	require.NotEmpty(t, rs)
	assert.Equal(t, models.CategoryHeader, rs[0].Category)
	assert.Equal(t, "Train stations", rs[0].Label)
	assert.False(t, rs[0].Selectable())
	for _, r := range rs[1:] {
		assert.Equal(t, models.CategoryTrainStation, r.Category)
		assert.True(t, r.Selectable())
	}
}

func TestGazetteer_ToleratesTypos(t *testing.T) {
	g := NewGazetteer(DefaultPlaces())

	rs, err := g.Lookup(context.Background(), "heathrw")
	require.NoError(t, err)
	assert.Contains(t, labels(rs), "Heathrow Airport")

	rs, err = g.Lookup(context.Background(), "zzzzzz")
	require.NoError(t, err)
	assert.Empty(t, rs)
}

func TestGazetteer_PrefixRanksFirst(t *testing.T) {
	g := NewGazetteer(DefaultPlaces())

	rs, err := g.Lookup(context.Background(), "Lon")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rs), 2)
	assert.Equal(t, "Airports", rs[0].Label)
	assert.Equal(t, "London City Airport", rs[1].Label)
}

func TestGazetteer_RecentsComeFirst(t *testing.T) {
	g := NewGazetteer(DefaultPlaces())
	g.Remember(models.Location{ID: "x1", Address: "Heathrow Terminal 5", Latitude: 51.47, Longitude: -0.49})

	rs, err := g.Lookup(context.Background(), "heath")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rs), 4)
	assert.Equal(t, []string{"Recent", "Heathrow Terminal 5", "Airports", "Heathrow Airport"}, labels(rs[:4]))
}

func TestGazetteer_RecentsAreBounded(t *testing.T) {
	g := NewGazetteer(nil)
	for _, a := range []string{"a1 road", "a2 road", "a3 road", "a4 road", "a5 road", "a6 road", "a2 road"} {
		g.Remember(models.Location{Address: a})
	}

	rs, err := g.Lookup(context.Background(), "road")
	require.NoError(t, err)
	assert.Equal(t, []string{"Recent", "a2 road", "a6 road", "a5 road", "a4 road", "a3 road"}, labels(rs))
}

func TestChain_MergesAndDedupes(t *testing.T) {
	remote := &recordingGeocoder{reply: func(string) ([]models.SearchResult, error) {
		return []models.SearchResult{address("Heathrow Airport"), address("Heathfield Road")}, nil
	}}
	c := Chain{Local: NewGazetteer(DefaultPlaces()), Remote: remote}

	rs, err := c.Lookup(context.Background(), "heath")
	require.NoError(t, err)
	assert.Equal(t, []string{"Airports", "Heathrow Airport", "Addresses", "Heathfield Road"}, labels(rs))
}

func TestChain_RemoteFailure(t *testing.T) {
	remote := &recordingGeocoder{reply: func(string) ([]models.SearchResult, error) {
		return nil, errors.New("boom")
	}}
	c := Chain{Local: NewGazetteer(DefaultPlaces()), Remote: remote}

	rs, err := c.Lookup(context.Background(), "gatwick")
	require.NoError(t, err)
	assert.Contains(t, labels(rs), "Gatwick Airport")

	_, err = c.Lookup(context.Background(), "baker street")
	assert.Error(t, err)
}
