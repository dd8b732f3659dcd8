package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

// Possible task status values.
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusOverdue    TaskStatus = "overdue"
)

// Common validation errors for Task.
var (
	ErrEmptyTaskID        = errors.New("task ID cannot be empty")
	ErrEmptyTaskTitle     = errors.New("task title cannot be empty")
	ErrEmptyAssignee      = errors.New("task assignee cannot be empty")
	ErrInvalidTaskStatus  = errors.New("invalid task status")
	ErrDeadlineInPast     = errors.New("deadline must be in the future")
	ErrAssigneeNotBase    = errors.New("tasks can only be assigned to users with the base role")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrTaskAlreadyDone    = errors.New("task is already completed")
	ErrTaskNotStartable   = errors.New("task cannot be started")
	ErrOverdueNotSettable = errors.New("overdue status is assigned by the sweep, not by callers")
)

// validTransitions is the caller-facing status transition table. Overdue is
// absent as a target because only the sweep may assign it.
var validTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusPending:    {TaskStatusInProgress},
	TaskStatusInProgress: {TaskStatusCompleted},
	TaskStatusOverdue:    {TaskStatusCompleted},
	TaskStatusCompleted:  {},
}

// StartError describes a rejected start action, naming the status that made
// starting impossible.
type StartError struct {
	Status TaskStatus
}

func (e *StartError) Error() string {
	return fmt.Sprintf("cannot start task with status '%s'", e.Status)
}

// Unwrap lets errors.Is match StartError against ErrTaskNotStartable.
func (e *StartError) Unwrap() error {
	return ErrTaskNotStartable
}

// TransitionError describes a rejected status transition, naming both the
// current and the requested status.
type TransitionError struct {
	From TaskStatus
	To   TaskStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change status from '%s' to '%s'", e.From, e.To)
}

// Unwrap lets errors.Is match TransitionError against ErrInvalidTransition.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// Task is a unit of work assigned to a base-role user by an administrator.
// CreatedBy is nullable: it survives as NULL when the creating user is
// removed, while removal of the assignee removes the task.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AssignedTo  uuid.UUID  `json:"assigned_to"`
	CreatedBy   *uuid.UUID `json:"created_by,omitempty"`
	Status      TaskStatus `json:"status"`
	Deadline    time.Time  `json:"deadline"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewTask creates a pending Task. The deadline must be strictly in the
// future; assignee role enforcement happens in the service layer where the
// assignee's record is available.
func NewTask(title, description string, assignedTo uuid.UUID, createdBy *uuid.UUID, deadline time.Time) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		AssignedTo:  assignedTo,
		CreatedBy:   createdBy,
		Status:      TaskStatusPending,
		Deadline:    deadline,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}
	if !deadline.After(now) {
		return nil, ErrDeadlineInPast
	}

	return task, nil
}

// Validate checks structural validity of the Task. Deadline/now comparisons
// are intentionally excluded so persisted tasks with elapsed deadlines still
// validate.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}
	if t.Title == "" {
		return ErrEmptyTaskTitle
	}
	if t.AssignedTo == uuid.Nil {
		return ErrEmptyAssignee
	}
	if !isValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}
	return nil
}

// CanTransition reports whether a caller may move the task from its current
// status to the target status.
func (t *Task) CanTransition(to TaskStatus) bool {
	for _, allowed := range validTransitions[t.Status] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition applies a caller-requested status change, enforcing the
// transition table. Overdue is rejected outright since only the sweep
// assigns it.
func (t *Task) Transition(to TaskStatus) error {
	if !isValidTaskStatus(to) {
		return ErrInvalidTaskStatus
	}
	if to == TaskStatusOverdue {
		return ErrOverdueNotSettable
	}
	if !t.CanTransition(to) {
		return &TransitionError{From: t.Status, To: to}
	}
	t.Status = to
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// OwnerID returns the actor that owns this task for authorization
// purposes: the assignee.
func (t *Task) OwnerID() uuid.UUID {
	return t.AssignedTo
}

// IsOverdue reports whether the deadline has passed for an uncompleted task.
// This is the computed truth; the stored overdue status is a denormalization
// refreshed by the sweep.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.Deadline.Before(now) && t.Status != TaskStatusCompleted
}

// TimeRemaining returns the time left until the deadline, or zero if the
// task is completed or the deadline has passed.
func (t *Task) TimeRemaining(now time.Time) time.Duration {
	if t.Status == TaskStatusCompleted {
		return 0
	}
	remaining := t.Deadline.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// StatusDisplay returns a human-readable form of the status.
func (t *Task) StatusDisplay() string {
	switch t.Status {
	case TaskStatusPending:
		return "Pending"
	case TaskStatusInProgress:
		return "In Progress"
	case TaskStatusCompleted:
		return "Completed"
	case TaskStatusOverdue:
		return "Overdue"
	default:
		return string(t.Status)
	}
}

func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusOverdue:
		return true
	default:
		return false
	}
}
