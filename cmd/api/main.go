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

	"stirka/internal/api"
	"stirka/internal/config"
	"stirka/internal/database"
	"stirka/internal/domain"
	"stirka/internal/events"
	"stirka/internal/identity"
	"stirka/internal/logging"
	"stirka/internal/metrics"
	"stirka/internal/models"
	"stirka/internal/notifier"
	"stirka/internal/repository"
	"stirka/internal/service"
	"stirka/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
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
		defer func() { _ = closer.Close() }()
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("init database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := seed(ctx, db, cfg, &logger); err != nil {
		return fmt.Errorf("seed database: %w", err)
	}

	sessions, redisClient := initSessions(cfg, &logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	var verifier domain.TokenVerifier
	if cfg.Google.ClientID != "" {
		verifier = identity.NewGoogleVerifier(cfg.Google)
	}

	bus := events.NewEventBus()

	notifyWorker := worker.NewNotifyWorker(initNotifier(cfg, &logger), worker.RetryPolicy{}, &logger)
	notifyWorker.SubscribeTo(bus)
	go notifyWorker.Start(ctx)

	authService := service.NewAuthService(db, sessions, verifier, cfg.Google.AllowedDomain, &logger)
	bookingService := service.NewBookingService(db, bus, &logger)
	machineService := service.NewMachineService(db, &logger)

	httpServer := api.NewHTTPServer(cfg.API, authService, bookingService, machineService, &logger)

	if cfg.Backup.Enabled {
		backup := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backup.Start(ctx)
	}

	startMetrics(ctx, cfg, &logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown")
	}

	logger.Info().Msg("shutdown complete")
	return nil
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

// seed идемпотентно создает администраторов и стартовый парк машин.
func seed(ctx context.Context, db *database.DB, cfg *config.Config, logger *zerolog.Logger) error {
	for _, admin := range cfg.Admins {
		hash, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
		username := admin.Username
		if username == "" {
			username = "Administrator"
		}
		err = db.EnsureUser(ctx, &models.User{
			StudentID:    admin.AdminID,
			Username:     username,
			PasswordHash: string(hash),
			Role:         models.RoleAdmin,
		})
		if err != nil {
			return err
		}
	}

	for _, name := range cfg.Machines {
		if err := db.EnsureMachine(ctx, name); err != nil {
			return err
		}
	}

	logger.Info().Int("admins", len(cfg.Admins)).Int("machines", len(cfg.Machines)).Msg("seed completed")
	return nil
}

func initSessions(cfg *config.Config, logger *zerolog.Logger) (domain.SessionRepository, *redis.Client) {
	ttl := cfg.API.SessionTTL()
	memory := repository.NewMemorySessionRepository(ttl)

	if !cfg.Redis.Enabled {
		logger.Info().Msg("redis disabled, using in-memory sessions")
		return memory, nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, client); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable at startup, failover will use memory")
	}

	primary := repository.NewRedisSessionRepository(client, ttl)
	return repository.NewFailoverSessionRepository(primary, memory, logger), client
}

func initNotifier(cfg *config.Config, logger *zerolog.Logger) domain.Notifier {
	if cfg.SMTP.Enabled {
		return notifier.NewEmailNotifier(cfg.SMTP, logger)
	}
	logger.Info().Msg("smtp disabled, confirmations go to log only")
	return notifier.NewConsole(logger)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("metrics listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}
