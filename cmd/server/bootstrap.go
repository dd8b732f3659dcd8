package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/taskhub/taskhub-api/internal/config"
	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/platform/postgres"
	"github.com/taskhub/taskhub-api/internal/service/auth"
	"github.com/taskhub/taskhub-api/internal/store"
)

// createAdmin provisions an administrator account from the
// TASKHUB_ADMIN_USERNAME, TASKHUB_ADMIN_EMAIL and TASKHUB_ADMIN_PASSWORD
// environment variables. The existence check and the insert run in one
// transaction so concurrent invocations cannot race past each other.
func createAdmin(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) error {
	username := os.Getenv("TASKHUB_ADMIN_USERNAME")
	email := os.Getenv("TASKHUB_ADMIN_EMAIL")
	password := os.Getenv("TASKHUB_ADMIN_PASSWORD")
	if username == "" || email == "" || password == "" {
		return errors.New("TASKHUB_ADMIN_USERNAME, TASKHUB_ADMIN_EMAIL and TASKHUB_ADMIN_PASSWORD must be set")
	}

	scheme, err := domain.SchemeByName(cfg.Roles.Scheme)
	if err != nil {
		return err
	}

	user, err := domain.NewUser(scheme, username, email, "", "", password, scheme.Admin)
	if err != nil {
		return err
	}

	hash, err := auth.NewBcryptVerifier().Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.HashedPassword = hash
	user.Password = ""

	users := postgres.NewPostgresUserStore(db, logger)
	err = store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		txUsers := users.WithTx(tx)
		if _, err := txUsers.GetByUsername(ctx, username); err == nil {
			return fmt.Errorf("user %q already exists", username)
		} else if !errors.Is(err, store.ErrUserNotFound) {
			return err
		}
		return txUsers.Create(ctx, user)
	})
	if err != nil {
		return err
	}

	logger.Info("admin account created", "username", username, "role", string(scheme.Admin))
	return nil
}
