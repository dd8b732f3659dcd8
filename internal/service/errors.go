// Package service provides application-level services for managing users and
// tasks. Services enforce authorization through the policy engine, drive the
// task lifecycle, and own the transaction boundaries.
package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// Callers check them with errors.Is(); the API layer maps them to HTTP status
// codes.
var (
	// ErrForbidden indicates the authenticated actor lacks permission for
	// the attempted operation. API layer maps this to HTTP 403.
	ErrForbidden = errors.New("operation not permitted for this role")

	// ErrPasswordMismatch indicates password and confirmation differ.
	// API layer maps this to HTTP 400.
	ErrPasswordMismatch = errors.New("passwords do not match")

	// ErrSelfRoleChange indicates a non-administrative user attempted to
	// change their own role. API layer maps this to HTTP 403.
	ErrSelfRoleChange = errors.New("cannot change your own role")

	// ErrDeadlineNotFuture indicates a create/update carried a deadline
	// that is not strictly in the future. API layer maps this to HTTP 400.
	ErrDeadlineNotFuture = errors.New("deadline must be in the future")

	// ErrAssigneeNotAssignable indicates the chosen assignee does not hold
	// the base role. API layer maps this to HTTP 400.
	ErrAssigneeNotAssignable = errors.New("tasks can only be assigned to base-role users")
)
