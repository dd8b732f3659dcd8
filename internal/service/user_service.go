package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/policy"
	"github.com/taskhub/taskhub-api/internal/service/auth"
	"github.com/taskhub/taskhub-api/internal/store"
)

// UserProfile carries the mutable profile fields accepted from clients.
// Nil pointers mean "leave unchanged".
type UserProfile struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
	Role      *domain.Role
	IsActive  *bool
}

// UserService provides user directory operations: signup-time creation,
// admin management, and self-service profile updates.
type UserService interface {
	// Register creates an account with the scheme's base role. Used by the
	// public signup flow; no actor required.
	Register(ctx context.Context, username, email, firstName, lastName, password string) (*domain.User, error)

	// Create creates an account with an arbitrary role. Admin only.
	Create(ctx context.Context, actor policy.Actor, username, email, firstName, lastName, password string, role domain.Role) (*domain.User, error)

	// Get retrieves a user visible to the actor: admins and managers see
	// anyone, base users only themselves.
	Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*domain.User, error)

	// List returns all users, optionally filtered by role. Admin or
	// manager only.
	List(ctx context.Context, actor policy.Actor, role *domain.Role) ([]*domain.User, error)

	// ListAssignable returns users holding the base role. Admin only.
	ListAssignable(ctx context.Context, actor policy.Actor) ([]*domain.User, error)

	// Update applies profile changes to the identified user. Role and
	// activation changes require the admin role regardless of whose
	// profile it is.
	Update(ctx context.Context, actor policy.Actor, id uuid.UUID, profile UserProfile) (*domain.User, error)

	// Delete removes a user. Admin only.
	Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error

	// SetRole assigns the given role (admin promote/demote). Admin only.
	SetRole(ctx context.Context, actor policy.Actor, id uuid.UUID, role domain.Role) (*domain.User, error)

	// ChangePassword replaces the user's password after policy validation.
	ChangePassword(ctx context.Context, userID uuid.UUID, newPassword string) error
}

// UserServiceImpl implements the UserService interface.
type UserServiceImpl struct {
	userStore store.UserStore
	hasher    auth.PasswordHasher
	engine    *policy.Engine
	logger    *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(userStore store.UserStore, hasher auth.PasswordHasher, engine *policy.Engine, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		userStore: userStore,
		hasher:    hasher,
		engine:    engine,
		logger:    logger.With("component", "user_service"),
	}
}

var _ UserService = (*UserServiceImpl)(nil)

// Register implements UserService.Register
func (s *UserServiceImpl) Register(ctx context.Context, username, email, firstName, lastName, password string) (*domain.User, error) {
	return s.createUser(ctx, username, email, firstName, lastName, password, s.engine.Scheme().Base)
}

// Create implements UserService.Create
func (s *UserServiceImpl) Create(ctx context.Context, actor policy.Actor, username, email, firstName, lastName, password string, role domain.Role) (*domain.User, error) {
	if !s.engine.IsAdmin(actor) {
		return nil, ErrForbidden
	}
	return s.createUser(ctx, username, email, firstName, lastName, password, role)
}

func (s *UserServiceImpl) createUser(ctx context.Context, username, email, firstName, lastName, password string, role domain.Role) (*domain.User, error) {
	user, err := domain.NewUser(s.engine.Scheme(), username, email, firstName, lastName, password, role)
	if err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.HashedPassword = hashed
	user.Password = ""

	if err := s.userStore.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user created",
		"user_id", user.ID,
		"role", user.Role)
	return user, nil
}

// Get implements UserService.Get
func (s *UserServiceImpl) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*domain.User, error) {
	user, err := s.userStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.engine.Allow(actor, policy.ActionRead, user) {
		return nil, ErrForbidden
	}
	return user, nil
}

// List implements UserService.List
func (s *UserServiceImpl) List(ctx context.Context, actor policy.Actor, role *domain.Role) ([]*domain.User, error) {
	if !s.engine.CanSeeAll(actor) {
		return nil, ErrForbidden
	}
	return s.userStore.List(ctx, role)
}

// ListAssignable implements UserService.ListAssignable
func (s *UserServiceImpl) ListAssignable(ctx context.Context, actor policy.Actor) ([]*domain.User, error) {
	if !s.engine.IsAdmin(actor) {
		return nil, ErrForbidden
	}
	base := s.engine.Scheme().Base
	return s.userStore.List(ctx, &base)
}

// Update implements UserService.Update
func (s *UserServiceImpl) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, profile UserProfile) (*domain.User, error) {
	user, err := s.userStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.engine.Allow(actor, policy.ActionUpdate, user) {
		return nil, ErrForbidden
	}

	if profile.Role != nil && *profile.Role != user.Role {
		// Only admins may change roles, including their own.
		if !s.engine.Allow(actor, policy.ActionChangeRole, user) {
			if actor.ID == user.ID {
				return nil, ErrSelfRoleChange
			}
			return nil, ErrForbidden
		}
		if err := user.SetRole(s.engine.Scheme(), *profile.Role); err != nil {
			return nil, err
		}
	}

	if profile.IsActive != nil && *profile.IsActive != user.IsActive {
		// Activation state is an admin control, like role.
		if !s.engine.IsAdmin(actor) {
			return nil, ErrForbidden
		}
		user.IsActive = *profile.IsActive
	}

	if profile.Username != nil {
		user.Username = *profile.Username
	}
	if profile.Email != nil {
		user.Email = *profile.Email
	}
	if profile.FirstName != nil {
		user.FirstName = *profile.FirstName
	}
	if profile.LastName != nil {
		user.LastName = *profile.LastName
	}

	if err := user.Validate(s.engine.Scheme()); err != nil {
		return nil, err
	}
	if err := s.userStore.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Delete implements UserService.Delete
func (s *UserServiceImpl) Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	if !s.engine.IsAdmin(actor) {
		return ErrForbidden
	}
	if err := s.userStore.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", "user_id", id, "actor_id", actor.ID)
	return nil
}

// SetRole implements UserService.SetRole
func (s *UserServiceImpl) SetRole(ctx context.Context, actor policy.Actor, id uuid.UUID, role domain.Role) (*domain.User, error) {
	if !s.engine.IsAdmin(actor) {
		return nil, ErrForbidden
	}

	user, err := s.userStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := user.SetRole(s.engine.Scheme(), role); err != nil {
		return nil, err
	}
	if err := s.userStore.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user role changed",
		"user_id", id,
		"role", role,
		"actor_id", actor.ID)
	return user, nil
}

// ChangePassword implements UserService.ChangePassword
func (s *UserServiceImpl) ChangePassword(ctx context.Context, userID uuid.UUID, newPassword string) error {
	if err := domain.ValidatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.HashedPassword = hashed

	if err := s.userStore.Update(ctx, user); err != nil {
		// A username/email collision cannot happen here; anything else is
		// unexpected.
		if !errors.Is(err, store.ErrUserNotFound) {
			s.logger.Error("failed to store new password", "error", err, "user_id", userID)
		}
		return err
	}

	return nil
}
