package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/taskhub/taskhub-api/internal/api/shared"
	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/service"
	"github.com/taskhub/taskhub-api/internal/service/auth"
	"github.com/taskhub/taskhub-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrTokenRevoked),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidResetToken):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrSelfRoleChange):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Uniqueness conflicts surface as field validation failures
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusBadRequest

	// Domain validation and lifecycle errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrEmptyTaskTitle),
		errors.Is(err, domain.ErrEmptyAssignee),
		errors.Is(err, domain.ErrInvalidTaskStatus),
		errors.Is(err, domain.ErrEmptyUsername),
		errors.Is(err, domain.ErrEmptyEmail),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrUnknownRole),
		errors.Is(err, domain.ErrEmptyPassword),
		errors.Is(err, domain.ErrPasswordTooShort),
		errors.Is(err, domain.ErrPasswordTooLong),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrTaskAlreadyDone),
		errors.Is(err, domain.ErrTaskNotStartable),
		errors.Is(err, domain.ErrOverdueNotSettable),
		errors.Is(err, domain.ErrDeadlineInPast),
		errors.Is(err, domain.ErrAssigneeNotBase),
		errors.Is(err, service.ErrDeadlineNotFuture),
		errors.Is(err, service.ErrAssigneeNotAssignable),
		errors.Is(err, service.ErrPasswordMismatch),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, store.ErrStatusConflict):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	// Lifecycle errors carry the offending statuses; surface them verbatim
	// with sentence capitalization.
	var startErr *domain.StartError
	if errors.As(err, &startErr) {
		return capitalize(startErr.Error())
	}
	var transErr *domain.TransitionError
	if errors.As(err, &transErr) {
		return capitalize(transErr.Error())
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrTokenRevoked):
		return "Invalid refresh token"

	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid username or password"

	case errors.Is(err, auth.ErrInvalidResetToken):
		return "Invalid or expired reset token"

	case errors.Is(err, service.ErrSelfRoleChange):
		return "You cannot change your own role"

	case errors.Is(err, service.ErrForbidden):
		return "You do not have permission to perform this action"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, store.ErrNotFound):
		return "Not found"

	case errors.Is(err, store.ErrEmailExists):
		return "A user with that email already exists"

	case errors.Is(err, store.ErrUsernameExists):
		return "A user with that username already exists"

	case errors.Is(err, domain.ErrTaskAlreadyDone):
		return "Completed tasks cannot be modified"

	case errors.Is(err, domain.ErrOverdueNotSettable):
		return "Overdue status is set automatically and cannot be assigned"

	case errors.Is(err, domain.ErrDeadlineInPast),
		errors.Is(err, service.ErrDeadlineNotFuture):
		return "Deadline must be in the future"

	case errors.Is(err, domain.ErrAssigneeNotBase),
		errors.Is(err, service.ErrAssigneeNotAssignable):
		return "Tasks can only be assigned to regular users"

	case errors.Is(err, service.ErrPasswordMismatch):
		return "Current password is incorrect"

	case errors.Is(err, store.ErrStatusConflict):
		return "Task status changed concurrently, please retry"

	case errors.Is(err, domain.ErrInvalidTaskStatus):
		return "Invalid status value"

	case errors.Is(err, domain.ErrEmptyTaskTitle),
		errors.Is(err, domain.ErrEmptyAssignee),
		errors.Is(err, domain.ErrEmptyUsername),
		errors.Is(err, domain.ErrEmptyEmail),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrUnknownRole),
		errors.Is(err, domain.ErrEmptyPassword),
		errors.Is(err, domain.ErrPasswordTooShort),
		errors.Is(err, domain.ErrPasswordTooLong):
		return capitalize(err.Error())

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return capitalize(trimValidationPrefix(err.Error()))

	default:
		return "An unexpected error occurred"
	}
}

// FieldErrorsFromValidation converts validator.ValidationErrors into the
// per-field message map the clients expect.
func FieldErrorsFromValidation(err error) shared.FieldErrors {
	fieldErrs := shared.FieldErrors{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fieldErrs["detail"] = []string{"Validation error"}
		return fieldErrs
	}
	for _, fe := range verrs {
		field := jsonFieldName(fe.Field())
		fieldErrs[field] = append(fieldErrs[field], validationMessage(fe))
	}
	return fieldErrs
}

// FieldErrorsFromDuplicate maps uniqueness violations onto the field they
// apply to.
func FieldErrorsFromDuplicate(err error) (shared.FieldErrors, bool) {
	switch {
	case errors.Is(err, store.ErrUsernameExists):
		return shared.FieldErrors{"username": {"A user with that username already exists."}}, true
	case errors.Is(err, store.ErrEmailExists):
		return shared.FieldErrors{"email": {"A user with that email already exists."}}, true
	default:
		return nil, false
	}
}

// validationMessage maps a validation failure onto a user-facing message.
func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "eqfield":
		return "Password fields didn't match."
	case "oneof":
		return "Invalid value."
	default:
		return "Invalid value."
	}
}

// jsonFieldName converts a Go struct field name to its snake_case JSON form.
func jsonFieldName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func trimValidationPrefix(msg string) string {
	return strings.TrimPrefix(msg, "validation failed: ")
}
