package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transferbook/internal/config"
	api "transferbook/internal/http"
	"transferbook/internal/http/middleware"
	"transferbook/internal/messaging"
	"transferbook/internal/repositories"
	"transferbook/internal/search"
	"transferbook/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the booking wizard HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	var store services.SessionStore
	if env.DBDSN != "" {
		db, err := config.ConnectDB(env.DBDSN)
		if err != nil {
			return err
		}
		defer config.CloseDB()
		repo := repositories.SessionRepository{DB: db}
		if err := repo.EnsureTable(ctx); err != nil {
			return err
		}
		store = repo
	} else {
		log.Warn("DB_DSN empty, sessions live in memory only")
	}

	var events messaging.Publisher = messaging.NopPublisher{}
	if env.AMQPURL != "" {
		pub, err := messaging.DialRabbit(ctx, env.AMQPURL, env.AMQPExchange, 5, log)
		if err != nil {
			return err
		}
		events = pub
	}
	defer events.Close()

	gaz := search.NewGazetteer(search.DefaultPlaces())
	geo, closeGeo := geocoder(ctx, env, gaz)
	defer closeGeo()

	fares, bookings := collaborators(env, offline)
	sessions := services.NewSessionService(services.SessionDeps{
		Fares:     fares,
		Bookings:  bookings,
		Geocoder:  geo,
		Gazetteer: gaz,
		Store:     store,
		Events:    events,
		Limits:    limits(env),
		Search: search.Config{
			MinChars: env.SearchMinChars,
			Debounce: env.SearchDebounce(),
		},
		Logger: log,
	})
	defer sessions.Shutdown()

	auth := middleware.SessionAuth{Secret: []byte(env.JWTSecret), TTL: 24 * time.Hour}
	if !auth.Enabled() {
		log.Warn("JWT_SECRET empty, session endpoints are not protected")
	}

	r := api.NewRouter(env, api.Deps{Sessions: sessions, Auth: auth, Logger: log})

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", env.AppAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-quit:
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
