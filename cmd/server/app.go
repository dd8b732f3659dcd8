package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskhub/taskhub-api/internal/config"
	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/notify"
	"github.com/taskhub/taskhub-api/internal/platform/postgres"
	"github.com/taskhub/taskhub-api/internal/policy"
	"github.com/taskhub/taskhub-api/internal/service"
	"github.com/taskhub/taskhub-api/internal/service/auth"
	"github.com/taskhub/taskhub-api/internal/store"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	scheme domain.RoleScheme
	engine *policy.Engine

	userStore store.UserStore
	taskStore store.TaskStore

	jwtService       auth.JWTService
	passwordVerifier *auth.BcryptVerifier
	blacklist        auth.TokenBlacklist
	resetTokens      *auth.ResetTokenService
	notifier         notify.Notifier

	userService service.UserService
	taskService service.TaskService

	redisClient *redis.Client
}

// newApplication creates a new application instance with all dependencies
// initialized.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	scheme, err := domain.SchemeByName(cfg.Roles.Scheme)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve role scheme: %w", err)
	}
	app.scheme = scheme
	app.engine = policy.New(scheme)
	logger.Info("authorization policy initialized", "role_scheme", scheme.Name)

	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.passwordVerifier = auth.NewBcryptVerifier()
	app.resetTokens = auth.NewResetTokenService(cfg.Auth.JWTSecret, time.Hour)

	app.blacklist = setupBlacklist(app)
	app.notifier = setupNotifier(app)

	app.userStore = postgres.NewPostgresUserStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)

	app.userService = service.NewUserService(app.userStore, app.passwordVerifier, app.engine, logger)
	app.taskService = service.NewTaskService(app.taskStore, app.userStore, app.engine, app.notifier, logger)

	logger.Info("application initialized successfully")
	return app, nil
}

// setupBlacklist selects the refresh-token blacklist backend: Redis when an
// address is configured, otherwise the single-node in-memory fallback.
func setupBlacklist(app *application) auth.TokenBlacklist {
	if app.config.Redis.Addr == "" {
		app.logger.Warn("redis not configured, using in-memory token blacklist")
		return auth.NewMemoryBlacklist()
	}

	app.redisClient = redis.NewClient(&redis.Options{
		Addr:     app.config.Redis.Addr,
		Password: app.config.Redis.Password,
		DB:       app.config.Redis.DB,
	})
	app.logger.Info("redis token blacklist initialized", "addr", app.config.Redis.Addr)
	return auth.NewRedisBlacklist(app.redisClient)
}

// setupNotifier selects the notification backend: SMTP when a host is
// configured, otherwise log-only delivery.
func setupNotifier(app *application) notify.Notifier {
	if app.config.Notification.Host == "" {
		app.logger.Info("smtp not configured, notifications will be logged only")
		return notify.NewLogNotifier(app.logger)
	}
	app.logger.Info("smtp notifier initialized", "host", app.config.Notification.Host)
	return notify.NewSMTPNotifier(app.config.Notification, app.logger)
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
