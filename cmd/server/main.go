package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"heritageblade/internal/api"
	"heritageblade/internal/broker"
	"heritageblade/internal/catalog"
	"heritageblade/internal/config"
	"heritageblade/internal/database"
	"heritageblade/internal/domain"
	"heritageblade/internal/events"
	"heritageblade/internal/google"
	"heritageblade/internal/logging"
	"heritageblade/internal/metrics"
	"heritageblade/internal/notify"
	"heritageblade/internal/repository"
	"heritageblade/internal/service"
	"heritageblade/internal/telemetry"
	"heritageblade/internal/web"
	"heritageblade/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Setup(cfg.Monitoring.ServiceName, logger)

	cat, err := loadCatalog(logger)
	if err != nil {
		return err
	}

	stores := database.NewConnector(database.Opener(cfg.Database, logger))
	defer func() { _ = stores.Close() }()

	eventBus := events.NewEventBus()
	dispatcher, closeSinks := initDispatcher(ctx, cfg, logger)
	defer closeSinks()
	dispatcher.Subscribe(eventBus, events.AllTypes...)

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	limiter := initRateLimiter(redisClient, logger)

	bookings := service.NewBookingService(stores, eventBus, logger)
	customers := service.NewCustomerService(stores, eventBus, logger)

	handler := api.NewHandler(bookings, customers, limiter, cfg.RateLimit, logger)
	site, err := web.New(bookings, customers, cat, logger)
	if err != nil {
		return fmt.Errorf("init web pages: %w", err)
	}
	httpServer := api.NewHTTPServer(cfg.HTTP, handler, site.Handler(), stores.Ping, logger)

	var grpcServer *api.GRPCHealthServer
	if cfg.GRPC.Enabled {
		grpcServer, err = api.NewGRPCHealthServer(cfg.GRPC, stores.Ping, logger)
		if err != nil {
			return fmt.Errorf("create grpc health server: %w", err)
		}
	}

	startMetrics(ctx, cfg, logger)
	startBackups(ctx, cfg, stores, logger)
	go dispatcher.Start(ctx)

	err = startServers(ctx, grpcServer, httpServer, cfg, logger)
	stop()
	waitForDispatcher(dispatcher, logger)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if tErr := shutdownTracing(shutdownCtx); tErr != nil {
		logger.Warn().Err(tErr).Msg("tracing shutdown failed")
	}
	return err
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := logging.Component(baseLogger, "server-main")

	return cfg, logger, closer, nil
}

func loadCatalog(logger *zerolog.Logger) (*catalog.Catalog, error) {
	servicesPath := os.Getenv("SERVICES_PATH")
	if servicesPath == "" {
		servicesPath = "configs/services.yaml"
	}

	cat, err := catalog.Load(servicesPath)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn().Str("services_path", servicesPath).Msg("services file not found, using built-in catalog")
		return catalog.Default(), nil
	}
	if err != nil {
		logger.Error().Err(err).Str("services_path", servicesPath).Msg("load services")
		return nil, err
	}
	return cat, nil
}

// initDispatcher wires every configured delivery sink. Sinks that fail to
// start are skipped so bookings keep working without them.
func initDispatcher(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*worker.Dispatcher, func()) {
	var sinks []worker.Sink
	var closers []func() error

	if cfg.Telegram.BotToken != "" && len(cfg.Telegram.StaffChatIDs) > 0 {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			logger.Warn().Err(err).Msg("telegram init failed, staff notifications disabled")
		} else {
			bot.Debug = cfg.Telegram.Debug
			sender := service.NewTelegramService(bot)
			sinks = append(sinks, notify.NewStaffNotifier(sender, cfg.Telegram.StaffChatIDs))
			logger.Info().Str("bot", bot.Self.UserName).Msg("telegram notifications enabled")
		}
	}

	if cfg.Google.BookingsSpreadsheetID != "" {
		sheetsService, err := google.NewSheetsService(ctx, cfg.Google.CredentialsFile, cfg.Google.BookingsSpreadsheetID, cfg.Google.BookingsRange)
		if err == nil {
			err = sheetsService.TestConnection(ctx)
		}
		if err != nil {
			event := logger.Warn().Err(err)
			if email, emailErr := google.ServiceAccountEmail(cfg.Google.CredentialsFile); emailErr == nil {
				event = event.Str("share_with", email)
			}
			event.Msg("google sheets init failed, continuing without sheets")
		} else {
			sinks = append(sinks, sheetsService)
			logger.Info().Msg("google sheets connected")
		}
	}

	if cfg.Broker.URL != "" {
		publisher, err := broker.Dial(cfg.Broker.URL, cfg.Broker.Exchange)
		if err != nil {
			logger.Warn().Err(err).Msg("rabbitmq connection failed, continuing without broker")
		} else {
			sinks = append(sinks, publisher)
			closers = append(closers, publisher.Close)
			logger.Info().Str("exchange", cfg.Broker.Exchange).Msg("rabbitmq connected")
		}
	}

	dispatcherLogger := logging.Component(logger, "dispatcher")
	dispatcher := worker.NewDispatcher(worker.PolicyFromConfig(cfg.Worker), cfg.Worker.QueueSize, dispatcherLogger, sinks...)
	if dispatcher.Sinks() == 0 {
		logger.Warn().Msg("no delivery sinks configured, events are discarded")
	}

	return dispatcher, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn().Err(err).Msg("close sink")
			}
		}
	}
}

// waitForDispatcher blocks until queued events are drained, so sinks are
// closed only after their last delivery.
func waitForDispatcher(dispatcher *worker.Dispatcher, logger *zerolog.Logger) {
	select {
	case <-dispatcher.Done():
	case <-time.After(15 * time.Second):
		logger.Warn().Msg("event dispatcher did not drain in time")
	}
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, using in-memory rate limiting")
		_ = client.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

func initRateLimiter(client *redis.Client, logger *zerolog.Logger) domain.RateLimiter {
	memory := repository.NewMemoryRateLimiter()
	if client == nil {
		return memory
	}
	return repository.NewFailoverRateLimiter(repository.NewRedisRateLimiter(client, "heritage_rate"), memory, logger)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

// startBackups snapshots the SQLite file on a schedule. PostgreSQL relies on
// its own backup tooling.
func startBackups(ctx context.Context, cfg *config.Config, stores *database.Connector, logger *zerolog.Logger) {
	if !cfg.Backup.Enabled || cfg.Database.IsPostgres() {
		return
	}

	store, err := stores.Acquire(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("backups disabled, database unavailable")
		return
	}
	db, ok := store.(*database.DB)
	if !ok {
		return
	}
	go database.NewBackupService(db, cfg.Backup, logging.Component(logger, "backup")).Start(ctx)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCHealthServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	errCh := make(chan error, 1)

	if grpcServer != nil {
		go grpcServer.Watch(ctx)
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc health server stopped")
			}
		}()
	}

	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	event := logger.Info().Int("http_port", cfg.HTTP.Port).Str("transport", cfg.HTTP.Transport)
	if grpcServer != nil {
		event = event.Str("grpc_addr", grpcServer.Addr())
	}
	event.Msg("Heritage Blade server started")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("http server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("Heritage Blade server stopped")
	return runErr
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
