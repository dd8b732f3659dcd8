package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/taskhub/taskhub-api/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user to the store. The user must carry a
	// HashedPassword; plaintext hashing is the service layer's job.
	// Returns ErrEmailExists or ErrUsernameExists on unique collisions.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByUsername retrieves a user by their username.
	// Returns ErrUserNotFound if the user does not exist.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// List returns users ordered by creation time, optionally filtered to a
	// single role.
	List(ctx context.Context, role *domain.Role) ([]*domain.User, error)

	// Update modifies an existing user's details. The caller must provide a
	// complete user object including HashedPassword.
	// Returns ErrUserNotFound if the user does not exist, and
	// ErrEmailExists/ErrUsernameExists on unique collisions.
	Update(ctx context.Context, user *domain.User) error

	// Delete removes a user from the store by their ID. Tasks assigned to
	// the user are removed by the schema's cascade; tasks the user created
	// keep a NULL creator.
	// Returns ErrUserNotFound if the user does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a UserStore bound to the provided transaction, so
	// multiple operations can share one atomic unit.
	WithTx(tx *sql.Tx) UserStore
}
