package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"transferbook/internal/domain/models"
	"transferbook/internal/search"
	"transferbook/internal/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedGeocoder memoizes lookups in Redis. Cache failures are logged and
// fall through to the wrapped geocoder.
type CachedGeocoder struct {
	Next   search.Geocoder
	Client *redis.Client
	TTL    time.Duration
	Prefix string
	Log    *zap.Logger
}

func NewCachedGeocoder(next search.Geocoder, client *redis.Client, ttl time.Duration, log *zap.Logger) *CachedGeocoder {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedGeocoder{Next: next, Client: client, TTL: ttl, Prefix: "geocode:", Log: log}
}

// CacheKey normalizes case and inner whitespace so "Baker  St" and
// "baker st" share an entry.
func (c *CachedGeocoder) CacheKey(query string) string {
	return c.Prefix + strings.ToLower(utils.NormalizeSpace(query))
}

func (c *CachedGeocoder) Lookup(ctx context.Context, query string) ([]models.SearchResult, error) {
	key := c.CacheKey(query)
	if c.Client != nil {
		raw, err := c.Client.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var cached []models.SearchResult
			if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
				return cached, nil
			}
		case !errors.Is(err, redis.Nil):
			c.Log.Warn("geocode cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	results, err := c.Next.Lookup(ctx, query)
	if err != nil {
		return nil, err
	}
	if c.Client != nil && len(results) > 0 {
		if raw, err := json.Marshal(results); err == nil {
			if err := c.Client.Set(ctx, key, raw, c.TTL).Err(); err != nil {
				c.Log.Warn("geocode cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return results, nil
}
