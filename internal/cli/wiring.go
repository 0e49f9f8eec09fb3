package cli

import (
	"context"
	"time"

	"transferbook/internal/clients"
	"transferbook/internal/config"
	"transferbook/internal/repositories"
	"transferbook/internal/search"
	"transferbook/internal/services"
	"transferbook/internal/wizard"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func limits(e config.Env) wizard.Limits {
	return wizard.Limits{
		Passengers: wizard.Range{Min: e.PassengersMin, Max: e.PassengersMax},
		Luggage:    wizard.Range{Min: e.LuggageMin, Max: e.LuggageMax},
	}
}

// collaborators picks the remote backend or the local estimator and desk.
func collaborators(e config.Env, forceLocal bool) (wizard.FareEstimator, wizard.BookingSubmitter) {
	if forceLocal || e.BackendURL == "" {
		log.Info("using local fare estimator")
		return services.NewLocalFareEstimator(), services.LocalBookingDesk{}
	}
	b := clients.NewBackend(e.BackendURL, e.HTTPTimeout())
	return b, b
}

// geocoder layers the gazetteer over the remote service, with the redis
// cache in between when configured. The returned func releases redis.
func geocoder(ctx context.Context, e config.Env, g *search.Gazetteer) (search.Geocoder, func()) {
	if e.GeocoderURL == "" {
		return g, func() {}
	}
	var remote search.Geocoder = clients.NewGeocoder(e.GeocoderURL, e.HTTPTimeout())
	cleanup := func() {}
	if e.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: e.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis unreachable, geocode cache will fall through", zap.String("addr", e.RedisAddr), zap.Error(err))
		}
		cancel()
		remote = repositories.NewCachedGeocoder(remote, rdb, e.GeocodeCacheTTL(), log)
		cleanup = func() { _ = rdb.Close() }
	}
	return search.Chain{Local: g, Remote: remote}, cleanup
}
