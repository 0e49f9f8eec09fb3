package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"transferbook/internal/domain/models"

	"github.com/redis/go-redis/v9"
)

type countingGeocoder struct {
	calls int
	err   error
}

func (g *countingGeocoder) Lookup(_ context.Context, q string) ([]models.SearchResult, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return []models.SearchResult{{ID: "1", Label: q, Category: models.CategoryAddress}}, nil
}

func TestCachedGeocoder_KeyNormalization(t *testing.T) {
	c := NewCachedGeocoder(&countingGeocoder{}, nil, time.Minute, nil)
	if got, want := c.CacheKey("  Baker   Street "), "geocode:baker street"; got != want {
		t.Fatalf("key got %q want %q", got, want)
	}
}

func TestCachedGeocoder_WithoutClientPassesThrough(t *testing.T) {
	next := &countingGeocoder{}
	c := NewCachedGeocoder(next, nil, time.Minute, nil)

	rs, err := c.Lookup(context.Background(), "Baker Street")
	if err != nil {
		t.Fatalf("lookup error: %v", err)
	}
	if len(rs) != 1 || next.calls != 1 {
		t.Fatalf("expected one passthrough result, got %d results / %d calls", len(rs), next.calls)
	}
}

func TestCachedGeocoder_UnreachableRedisFallsThrough(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	next := &countingGeocoder{}
	c := NewCachedGeocoder(next, client, time.Minute, nil)

	rs, err := c.Lookup(context.Background(), "Paddington")
	if err != nil {
		t.Fatalf("lookup should survive cache failure: %v", err)
	}
	if len(rs) != 1 || next.calls != 1 {
		t.Fatalf("expected fallthrough, got %d results / %d calls", len(rs), next.calls)
	}
}

func TestCachedGeocoder_PropagatesLookupError(t *testing.T) {
	boom := errors.New("geocoder down")
	c := NewCachedGeocoder(&countingGeocoder{err: boom}, nil, time.Minute, nil)

	if _, err := c.Lookup(context.Background(), "Euston"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped geocoder error, got %v", err)
	}
}
