// Package main implements the entry point for the TaskHub API server, a
// task assignment backend with role-based access control and a JWT
// authentication gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"

	"github.com/taskhub/taskhub-api/internal/config"
	"github.com/taskhub/taskhub-api/internal/platform/logger"
)

func main() {
	migrateCmd := flag.String("migrate", "", "run a migration command (up, down, status) and exit")
	createAdminCmd := flag.Bool("create-admin", false, "create an administrator account from TASKHUB_ADMIN_* env vars and exit")
	flag.Parse()

	cfg, appLogger, err := initialize()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	db, err := setupDatabase(cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if *migrateCmd != "" {
		if err := runMigrations(db, *migrateCmd); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		return
	}

	// Schema is brought up to date on every normal start; goose makes this
	// a no-op when nothing is pending.
	if err := runMigrations(db, "up"); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	if *createAdminCmd {
		if err := createAdmin(context.Background(), cfg, appLogger, db); err != nil {
			log.Fatalf("Failed to create admin account: %v", err)
		}
		return
	}

	app, err := newApplication(cfg, appLogger, db)
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// initialize loads configuration and sets up structured logging.
func initialize() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"role_scheme", cfg.Roles.Scheme,
		"token_transport", cfg.Auth.TokenTransport)

	return cfg, appLogger, nil
}
