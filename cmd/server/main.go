package main

import (
	"context"
	"database/sql"
	"errors"
	"live-navigation-service/internal/adapters/cache"
	"live-navigation-service/internal/adapters/location"
	"live-navigation-service/internal/adapters/repositories"
	"live-navigation-service/internal/adapters/routing"
	"live-navigation-service/internal/api"
	"live-navigation-service/internal/api/handlers"
	"live-navigation-service/internal/config"
	"live-navigation-service/internal/domain"
	"live-navigation-service/internal/platform/db"
	"live-navigation-service/internal/platform/graceful"
	"live-navigation-service/internal/platform/kv"
	"live-navigation-service/internal/ports"
	"live-navigation-service/internal/services"
	"log"
	"net/http"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

// main is the application composition root.
// It wires concrete adapters (Postgres, Redis, ORS, location devices) behind
// ports and starts the HTTP server.
func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := graceful.Context(context.Background())
	defer cancel()

	var sqlDB *sql.DB
	if cfg.DatabaseURL != "" {
		sqlDB, err = db.Open(ctx, cfg.DatabaseURL, db.DefaultPoolOptions())
		if err != nil {
			log.Fatal(err)
		}
		defer sqlDB.Close()

		if err := repositories.InitSchema(ctx, sqlDB); err != nil {
			log.Fatal(err)
		}
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = kv.Open(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal(err)
		}
		defer redisClient.Close()
	}

	var history ports.AddressHistoryRepository
	if sqlDB != nil {
		history = repositories.NewSQLAddressHistoryRepository(sqlDB)
	}

	backend, err := newBackend(cfg, newGeocodeCache(cfg, sqlDB, redisClient), history)
	if err != nil {
		log.Fatal(err)
	}

	device, fixStream, closeDevice := newDevice(ctx, cfg)
	defer closeDevice()

	source := location.NewLiveSource(device, location.LiveSourceOptions{
		Timeout:    cfg.Policy.LocationTimeout,
		MaximumAge: cfg.Policy.FixMaximumAge,
	})

	controller := services.NewNavigationController(backend, source, services.ControllerConfig{
		Policy: services.Policy{
			MetricsInterval:    cfg.Policy.MetricsInterval,
			RerouteMinDistance: cfg.Policy.RerouteMinDistanceMeters,
			RerouteCooldown:    cfg.Policy.RerouteCooldown,
		},
		DemoOrigin:      domain.Coordinate{Lat: cfg.Policy.DemoOrigin.Lat, Lng: cfg.Policy.DemoOrigin.Lng},
		DefaultSpeedMps: cfg.DefaultSpeedMps,
		RequestTimeout:  cfg.RequestTimeout,
	})

	checks := map[string]handlers.HealthCheck{}
	if sqlDB != nil {
		checks["postgres"] = sqlDB.PingContext
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	router := api.NewRouter(controller, fixStream, checks)

	// WriteTimeout covers a cold start: geocode plus directions with retries.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Server listening addr=:%s backend=%s device=%s", cfg.Port, cfg.Backend, cfg.LocationDevice)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()

	controller.Stop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	log.Println("Server stopped")
}

// newGeocodeCache layers Redis over Postgres when both are configured.
func newGeocodeCache(cfg *config.Config, sqlDB *sql.DB, redisClient *redis.Client) ports.GeocodeCache {
	switch {
	case sqlDB != nil && redisClient != nil:
		return cache.NewTieredGeocodeCache(
			cache.NewRedisGeocodeCache(redisClient, cfg.GeocodeCacheTTL),
			cache.NewSQLGeocodeCache(sqlDB),
		)
	case sqlDB != nil:
		return cache.NewSQLGeocodeCache(sqlDB)
	case redisClient != nil:
		return cache.NewRedisGeocodeCache(redisClient, cfg.GeocodeCacheTTL)
	default:
		return nil
	}
}

func newBackend(
	cfg *config.Config,
	geocodeCache ports.GeocodeCache,
	history ports.AddressHistoryRepository,
) (ports.NavigationBackend, error) {
	if cfg.Backend == "mock" {
		mock := routing.NewMockNavigationBackend(nil)
		mock.ResolveUnknown = true
		return mock, nil
	}

	return routing.NewORSNavigationBackend(cfg.ORSAPIKey, routing.ORSOptions{
		BaseURL: cfg.ORSBaseURL,
		Profile: cfg.ORSProfile,
		Country: cfg.GeocodeCountry,
		Timeout: cfg.RequestTimeout,
	}, geocodeCache, history)
}

// newDevice returns the configured location device, the WebSocket handler
// (nil for Kafka) and a cleanup func.
func newDevice(ctx context.Context, cfg *config.Config) (ports.LocationDevice, http.Handler, func()) {
	if cfg.LocationDevice == "kafka" {
		reader := location.NewKafkaReader(cfg.KafkaBrokers, cfg.KafkaFixTopic, cfg.KafkaGroupID)
		device := location.NewKafkaDevice(reader)
		device.Start(ctx)
		return device, nil, func() {
			if err := device.Close(); err != nil {
				log.Printf("kafka device close: %v", err)
			}
		}
	}

	device := location.NewWebSocketDevice()
	return device, device, func() {}
}
