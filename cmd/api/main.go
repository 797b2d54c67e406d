package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salonbook/internal/api"
	"salonbook/internal/config"
	"salonbook/internal/database"
	"salonbook/internal/domain"
	"salonbook/internal/events"
	"salonbook/internal/export"
	"salonbook/internal/google"
	"salonbook/internal/logging"
	"salonbook/internal/metrics"
	"salonbook/internal/models"
	"salonbook/internal/repository"
	"salonbook/internal/service"
	"salonbook/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

const elapsedSweepInterval = 10 * time.Minute

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	catalog, err := loadCatalog(&logger)
	if err != nil {
		return err
	}

	db, err := initDatabase(cfg, catalog, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	wizardStore := initWizardStore(cfg, redisClient, &logger)
	sheetsService := initGoogleSheets(cfg, &logger)

	var writer domain.ScheduleWriter
	if sheetsService != nil {
		writer = sheetsService
	}
	scheduleWorker := worker.NewScheduleWorker(db, writer, redisClient, worker.RetryPolicy{}, &logger)

	eventBus := events.NewEventBus()
	subscribeEventLogging(eventBus, &logger)

	reservations := service.NewReservationService(db, eventBus, scheduleWorker, cfg.Booking, &logger)
	exportPath := cfg.Exports.Path
	if exportPath == "" {
		exportPath = "exports"
	}

	httpServer := api.NewHTTPServer(
		cfg.API,
		service.NewCatalogService(db, &logger),
		service.NewAvailabilityService(db, cfg.Booking, &logger),
		service.NewWizardService(wizardStore, reservations, &logger),
		reservations,
		service.NewTimelineService(db, &logger),
		service.NewRatingService(db, eventBus, cfg.App.Environment, cfg.Ratings, &logger),
		export.NewExcelExporter(db, exportPath, &logger),
		&logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go scheduleWorker.Start(ctx)
	go runElapsedSweep(ctx, reservations, &logger)
	startMetrics(ctx, cfg, &logger)

	return startServer(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func loadCatalog(logger *zerolog.Logger) (models.Catalog, error) {
	catalogPath := os.Getenv("CATALOG_PATH")
	if catalogPath == "" {
		catalogPath = "configs/catalog.yaml"
	}
	data, err := os.ReadFile(catalogPath)
	if err != nil {
		logger.Error().Err(err).Str("catalog_path", catalogPath).Msg("read catalog")
		return models.Catalog{}, err
	}

	var catalog models.Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		logger.Error().Err(err).Str("catalog_path", catalogPath).Msg("parse catalog")
		return models.Catalog{}, err
	}
	if err := config.ValidateCatalog(catalog); err != nil {
		return models.Catalog{}, fmt.Errorf("validate catalog: %w", err)
	}

	return catalog, nil
}

func initDatabase(cfg *config.Config, catalog models.Catalog, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	db.SetCatalog(catalog)
	return db, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initWizardStore prefers redis so wizard sessions survive restarts; a
// redis outage degrades to the in-memory store via the failover wrapper.
func initWizardStore(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.WizardRepository {
	ttl := time.Duration(cfg.Booking.WizardTTLSeconds) * time.Second
	memory := repository.NewMemoryWizardRepository(ttl)
	if redisClient == nil {
		return memory
	}

	primary := repository.NewRedisWizardRepository(redisClient, ttl)
	return repository.NewFailoverWizardRepository(primary, memory, logger)
}

func initGoogleSheets(cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.CredentialsFile == "" || cfg.Google.ScheduleSpreadSheetID == "" {
		return nil
	}

	sheetsService, err := google.NewSheetsService(cfg.Google.CredentialsFile, cfg.Google.ScheduleSpreadSheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}

	logger.Info().Msg("google sheets connected")
	return sheetsService
}

func subscribeEventLogging(bus *events.EventBus, logger *zerolog.Logger) {
	handler := func(event *events.Event) error {
		logger.Debug().
			Str("event_type", event.Type).
			RawJSON("payload", event.Payload).
			Msg("domain event")
		return nil
	}

	for _, eventType := range []string{
		events.EventReservationCreated,
		events.EventReservationConfirmed,
		events.EventReservationCancelled,
		events.EventReservationCompleted,
		events.EventReservationRescheduled,
		events.EventRatingSubmitted,
	} {
		bus.Subscribe(eventType, handler)
	}
}

func runElapsedSweep(ctx context.Context, reservations *service.ReservationService, logger *zerolog.Logger) {
	ticker := time.NewTicker(elapsedSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := reservations.CompleteElapsed(ctx); err != nil {
				logger.Error().Err(err).Msg("complete elapsed reservations")
			}
		}
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
