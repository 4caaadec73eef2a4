package cmd

import (
	"context"
	"os"

	"example.com/arogyayaan/replenishment/config"
	"example.com/arogyayaan/replenishment/internal/api/handlers"
	"example.com/arogyayaan/replenishment/internal/cache"
	"example.com/arogyayaan/replenishment/internal/database"
	"example.com/arogyayaan/replenishment/internal/geo"
	"example.com/arogyayaan/replenishment/internal/messaging"
	"example.com/arogyayaan/replenishment/internal/metrics"
	"example.com/arogyayaan/replenishment/internal/repositories"
	"example.com/arogyayaan/replenishment/internal/search"
	"example.com/arogyayaan/replenishment/internal/services"
	"example.com/arogyayaan/replenishment/internal/tracing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// application bundles the wired dependencies shared by every command
type application struct {
	cfg       config.Config
	dbs       *database.Databases
	cache     *cache.RedisCache
	tracer    *tracing.NewRelicTracer
	elastic   *search.ElasticClient
	publisher *messaging.CardPublisher
	metrics   *metrics.Metrics
	transfers *services.TransferService
}

func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	// Configure logging
	if cfg.Environment == "development" || cfg.Logging.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if os.Getenv("LOG_LEVEL") == "" {
		if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil && level != zerolog.NoLevel {
			zerolog.SetGlobalLevel(level)
		}
	}

	return cfg, nil
}

func bootstrap(cfg config.Config) (*application, error) {
	app := &application{
		cfg:     cfg,
		metrics: metrics.NewMetrics(),
	}

	// Initialize database connections
	dbs, err := database.Connect(cfg.DB, app.metrics)
	if err != nil {
		return nil, err
	}
	app.dbs = dbs

	// Initialize cache
	app.cache, err = cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
		app.cache = cache.Disabled()
	}

	// Initialize tracer
	app.tracer, err = tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		app.tracer = tracing.Noop()
	}

	// Initialize Elasticsearch client
	app.elastic, err = search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
		app.elastic = search.Disabled()
	}

	// Initialize Azure Service Bus publisher
	app.publisher, err = messaging.NewCardPublisher(cfg.Azure)
	if err != nil {
		app.Close()
		return nil, err
	}

	// Initialize services
	client := geo.NewHTTPClient(cfg.Providers.Timeout)
	distance := geo.NewDistanceResolver(cfg.Providers.Distance, client, app.cache, cfg.Cache.RouteTTL, app.metrics)
	weather := geo.NewWeatherResolver(cfg.Providers.Weather, client, app.cache, cfg.Cache.WeatherTTL, app.metrics)

	inventory := repositories.NewInventoryRepository(dbs.ReadOnly)
	cards := repositories.NewSolutionCardStore(dbs.Write, dbs.ReadOnly)

	app.transfers = services.NewTransferService(
		services.NewDonorMatcher(inventory, app.metrics),
		services.NewStockRiskScanner(inventory),
		services.NewLogisticsPlanner(inventory, distance, weather, cfg.Replenishment.Workers),
		cards,
		app.elastic,
		app.publisher,
		app.tracer,
		app.metrics,
	)

	return app, nil
}

func (a *application) healthChecks() map[string]handlers.HealthCheck {
	checks := map[string]handlers.HealthCheck{
		"database": func(context.Context) error { return a.dbs.Ping() },
	}
	if a.cache.Enabled() {
		checks["redis"] = a.cache.Ping
	}
	return checks
}

// Close releases every connection the application opened
func (a *application) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Service Bus publisher")
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Redis cache")
		}
	}
	if a.tracer != nil {
		a.tracer.Close()
	}
	if a.dbs != nil {
		if err := a.dbs.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database connections")
		}
	}
}
