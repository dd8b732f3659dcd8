package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for User.
var (
	ErrEmptyUserID      = errors.New("user ID cannot be empty")
	ErrEmptyUsername    = errors.New("username cannot be empty")
	ErrEmptyEmail       = errors.New("email cannot be empty")
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters long")
	ErrPasswordTooLong  = errors.New("password must be at most 72 characters long")
	ErrEmptyPassword    = errors.New("password cannot be empty")
)

// User represents a registered account. The plaintext Password field is only
// populated transiently during signup or password changes; persistence works
// exclusively with HashedPassword.
type User struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Role           Role      `json:"role"`
	Password       string    `json:"-"`
	HashedPassword string    `json:"-"`
	IsActive       bool      `json:"is_active"`
	IsStaff        bool      `json:"is_staff"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewUser creates a User with the given profile fields and plaintext
// password. The role must belong to the scheme; IsStaff is derived from it.
// The caller is responsible for hashing the password before storage.
func NewUser(scheme RoleScheme, username, email, firstName, lastName, password string, role Role) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:        uuid.New(),
		Username:  username,
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		Role:      role,
		Password:  password,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	user.SyncStaffFlag(scheme)

	if err := user.Validate(scheme); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks that the User holds valid data under the given scheme.
func (u *User) Validate(scheme RoleScheme) error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}
	if u.Username == "" {
		return ErrEmptyUsername
	}
	if u.Email == "" {
		return ErrEmptyEmail
	}
	if !validEmailFormat(u.Email) {
		return ErrInvalidEmail
	}
	if !scheme.Valid(u.Role) {
		return ErrUnknownRole
	}

	if u.Password != "" {
		if err := ValidatePassword(u.Password); err != nil {
			return err
		}
	} else if u.HashedPassword == "" {
		return ErrEmptyPassword
	}

	return nil
}

// OwnerID returns the actor that owns this user record for authorization
// purposes: the user themselves.
func (u *User) OwnerID() uuid.UUID {
	return u.ID
}

// FullName returns the user's display name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// SetRole changes the user's role and recomputes the staff flag.
func (u *User) SetRole(scheme RoleScheme, role Role) error {
	if !scheme.Valid(role) {
		return ErrUnknownRole
	}
	u.Role = role
	u.SyncStaffFlag(scheme)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// SyncStaffFlag recomputes the denormalized IsStaff flag from the role.
// Invariant: IsStaff is true iff the role is the administrative role.
func (u *User) SyncStaffFlag(scheme RoleScheme) {
	u.IsStaff = scheme.IsAdmin(u.Role)
}

// ValidatePassword checks the password strength policy: at least 8
// characters, at most 72 (bcrypt's input limit).
func ValidatePassword(password string) error {
	switch n := len(password); {
	case n == 0:
		return ErrEmptyPassword
	case n < 8:
		return ErrPasswordTooShort
	case n > 72:
		return ErrPasswordTooLong
	}
	return nil
}

// validEmailFormat performs basic structural validation of an email address:
// a local part, one @, and a domain containing an interior dot.
func validEmailFormat(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	dot := strings.IndexByte(domain, '.')
	return dot > 0 && dot < len(domain)-1
}
