package api

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskhub/taskhub-api/internal/domain"
)

// SignupRequest represents the request body for user registration.
type SignupRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=150"`
	Email           string `json:"email" validate:"required,email"`
	FirstName       string `json:"first_name" validate:"max=150"`
	LastName        string `json:"last_name" validate:"max=150"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest represents the request body for token refresh. The
// refresh token may instead arrive via cookie, so the field is optional here.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest carries the refresh token to revoke. Optional under the
// cookie transport.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse represents the response for successful authentication. Under
// the cookie transport the token fields are omitted and delivered as cookies
// instead.
type AuthResponse struct {
	AccessToken  string        `json:"access_token,omitempty"`
	RefreshToken string        `json:"refresh_token,omitempty"`
	TokenType    string        `json:"token_type"`
	User         *UserResponse `json:"user,omitempty"`
}

// UserResponse represents a user in API responses. Password material is
// never included.
type UserResponse struct {
	ID        uuid.UUID   `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Role      domain.Role `json:"role"`
	IsActive  bool        `json:"is_active"`
	IsStaff   bool        `json:"is_staff"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewUserResponse maps a domain user onto its API representation.
func NewUserResponse(u *domain.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		IsActive:  u.IsActive,
		IsStaff:   u.IsStaff,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// ProfileUpdateRequest represents the request body for updating the caller's
// own profile. All fields are optional; absent fields are left unchanged.
type ProfileUpdateRequest struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
}

// AdminUserCreateRequest represents the request body for an administrator
// creating a user directly, with an explicit role.
type AdminUserCreateRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=150"`
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	Role      string `json:"role" validate:"required"`
}

// AdminUserUpdateRequest represents the request body for an administrator
// editing a user, including role and active status.
type AdminUserUpdateRequest struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
	Role      *string `json:"role"`
	IsActive  *bool   `json:"is_active"`
}

// PasswordResetRequest asks for a reset token to be mailed to the given
// address.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirmRequest completes a password reset.
type PasswordResetConfirmRequest struct {
	UserID          uuid.UUID `json:"user_id" validate:"required"`
	Token           string    `json:"token" validate:"required"`
	NewPassword     string    `json:"new_password" validate:"required,min=8,max=72"`
	ConfirmPassword string    `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// TaskCreateRequest represents the request body for creating a task.
type TaskCreateRequest struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description"`
	AssignedTo  uuid.UUID `json:"assigned_to" validate:"required"`
	Deadline    time.Time `json:"deadline" validate:"required"`
}

// TaskUpdateRequest represents the request body for editing a task's fields.
// Status is not editable here; it moves through the dedicated transition
// endpoints.
type TaskUpdateRequest struct {
	Title       *string    `json:"title" validate:"omitempty,max=200"`
	Description *string    `json:"description"`
	AssignedTo  *uuid.UUID `json:"assigned_to"`
	Deadline    *time.Time `json:"deadline"`
}

// StatusUpdateRequest represents the request body for a direct status
// transition.
type StatusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}

// TaskResponse represents a task in API responses, including derived
// presentation fields.
type TaskResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	AssignedTo         uuid.UUID  `json:"assigned_to"`
	AssignedToUsername string     `json:"assigned_to_username,omitempty"`
	CreatedBy          *uuid.UUID `json:"created_by"`
	Status             string     `json:"status"`
	StatusDisplay      string     `json:"status_display"`
	Deadline           time.Time  `json:"deadline"`
	IsOverdue          bool       `json:"is_overdue"`
	TimeRemaining      string     `json:"time_remaining"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// NewTaskResponse maps a domain task onto its API representation. now feeds
// the derived overdue and time-remaining fields so handlers stay
// deterministic under test.
func NewTaskResponse(t *domain.Task, now time.Time) *TaskResponse {
	resp := &TaskResponse{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		AssignedTo:    t.AssignedTo,
		CreatedBy:     t.CreatedBy,
		Status:        string(t.Status),
		StatusDisplay: t.StatusDisplay(),
		Deadline:      t.Deadline,
		IsOverdue:     t.IsOverdue(now),
		TimeRemaining: formatRemaining(t.TimeRemaining(now)),
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
	return resp
}

// formatRemaining renders a duration as "3d 4h 5m" for display. Zero means
// the deadline has passed or the task is done.
func formatRemaining(d time.Duration) string {
	if d <= 0 {
		return "0m"
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// SweepResponse reports the outcome of an overdue sweep.
type SweepResponse struct {
	Message      string      `json:"message"`
	UpdatedCount int         `json:"updated_count"`
	TaskIDs      []uuid.UUID `json:"task_ids,omitempty"`
}

// MessageResponse is a generic detail-free success body.
type MessageResponse struct {
	Message string `json:"message"`
}
