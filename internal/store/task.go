package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/taskhub/taskhub-api/internal/domain"
)

// TaskStore defines the interface for task data persistence.
//
// Visibility is the caller's responsibility at the query level: handlers for
// non-administrative actors must use ListByAssignee/the assignee-scoped
// variants so invisible tasks are filtered in SQL, never post-hoc.
type TaskStore interface {
	// Create saves a new task.
	// Returns ErrInvalidEntity if the assignee does not exist.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by ID.
	// Returns ErrTaskNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// List returns all tasks, newest first.
	List(ctx context.Context) ([]*domain.Task, error)

	// ListByAssignee returns tasks assigned to the given user, newest first.
	ListByAssignee(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error)

	// Update persists changes to a task's fields (not its status; use
	// UpdateStatus for lifecycle changes).
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// UpdateStatus atomically moves a task from an expected current status
	// to a new one in a single conditional write. Returns ErrTaskNotFound
	// if the task does not exist and ErrStatusConflict if its status no
	// longer matches the expected value, so two concurrent transitions can
	// never both succeed against a stale read.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.TaskStatus) error

	// MarkOverdue is the sweep: one set-based conditional update that moves
	// every pending or in-progress task whose deadline precedes now to
	// overdue. Returns the affected task IDs. Running it again with no
	// intervening changes affects zero rows.
	MarkOverdue(ctx context.Context, now time.Time) ([]uuid.UUID, error)

	// CountByStatus returns per-status task counts. A non-nil assignee
	// scopes the counts to that user's tasks.
	CountByStatus(ctx context.Context, assignee *uuid.UUID) (map[domain.TaskStatus]int, error)

	// WithTx returns a TaskStore bound to the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}
