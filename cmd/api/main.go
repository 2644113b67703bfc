package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/placesearch/internal/adapters/events"
	"github.com/zatekoja/placesearch/internal/adapters/providers/places"
	"github.com/zatekoja/placesearch/internal/api/handlers"
	"github.com/zatekoja/placesearch/internal/api/routes"
	"github.com/zatekoja/placesearch/internal/application/services"
	"github.com/zatekoja/placesearch/internal/domain/entities"
	"github.com/zatekoja/placesearch/internal/domain/providers"
	"github.com/zatekoja/placesearch/internal/infrastructure/clients/redis"
	"github.com/zatekoja/placesearch/internal/infrastructure/observability"
	"github.com/zatekoja/placesearch/pkg/config"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		return err
	}

	provider := newPlacesProvider(cfg, metrics)
	flowCfg := flowConfig(cfg)

	var eventBus providers.EventBus
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.RedisAddr()).Msg("redis unavailable, selection events stay local")
		} else {
			defer redisClient.Close()
			eventBus = events.NewRedisEventBus(redisClient)
			defer eventBus.Close()
			log.Info().Str("addr", redisClient.Addr()).Msg("event bus initialized")
		}
	}

	dispatcher := services.NewSerialDispatcher()
	sessions := services.NewSessionService(provider, services.SessionServiceOptions{
		Flow:        flowCfg,
		Placeholder: cfg.Places.Placeholder,
		EventBus:    eventBus,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
	})
	defer closeSessions(dispatcher, sessions)

	router := routes.NewRouter(
		handlers.NewPlacesHandler(provider, flowCfg),
		handlers.NewSessionHandler(sessions),
		cfg.Server.AllowedOrigins,
		metrics,
	)

	server := &http.Server{
		Addr:        cfg.Server.Addr(),
		Handler:     router.SetupRoutes(),
		ReadTimeout: 15 * time.Second,
		// No write timeout: session streams stay open.
		IdleTimeout: 60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Str("provider", cfg.Places.Provider).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if eventBus != nil {
		g.Go(func() error {
			return logSelections(gctx, eventBus)
		})
	}

	return g.Wait()
}

// closeSessions drains queued flow callbacks before closing the sessions, so
// selections made during shutdown are published before the bus goes away.
func closeSessions(dispatcher *services.SerialDispatcher, sessions *services.SessionService) {
	dispatcher.Close()
	sessions.Close()
}

// newPlacesProvider picks the places backend named in configuration.
func newPlacesProvider(cfg *config.Config, metrics *observability.Metrics) providers.PlacesProvider {
	if cfg.Places.Provider != "google" {
		log.Warn().Str("provider", cfg.Places.Provider).Msg("using mock places provider")
		return places.NewMockProvider()
	}
	return places.NewGoogleProviderWithOptions(cfg.Places.APIKey, places.Options{
		BaseURL:  cfg.Places.BaseURL,
		Timeout:  cfg.Places.HTTPTimeout,
		Observer: places.NewMetricsObserver(metrics),
	})
}

// flowConfig derives the per-session query defaults from configuration.
func flowConfig(cfg *config.Config) services.FlowConfig {
	placeType, err := entities.ParsePlaceType(cfg.Places.PlaceType)
	if err != nil {
		log.Warn().Err(err).Msg("ignoring PLACES_TYPE")
	}

	flow := services.FlowConfig{
		APIKey:    cfg.Places.APIKey,
		Language:  cfg.Places.Language,
		PlaceType: placeType,
		Radius:    cfg.Places.Radius,
		Debounce:  cfg.Places.Debounce,
	}
	if cfg.Places.BiasEnabled {
		flow.LocationBias = entities.NewCoordinate(cfg.Places.BiasLat, cfg.Places.BiasLng)
	}
	return flow
}

// logSelections records every selection published on the bus until ctx ends.
func logSelections(ctx context.Context, bus providers.EventBus) error {
	selections, err := bus.Subscribe(ctx, providers.EventChannelSelections)
	if err != nil {
		log.Warn().Err(err).Msg("failed to subscribe to selections")
		return nil
	}

	for event := range selections {
		log.Info().
			Str("session_id", event.SessionID).
			Str("event_id", event.ID).
			Int("index", event.Index).
			Str("place", event.Result.String()).
			Str("coordinate", event.Result.Coordinate.String()).
			Msg("place selected")
	}
	return nil
}
