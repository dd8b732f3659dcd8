package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/notify"
	"github.com/taskhub/taskhub-api/internal/policy"
	"github.com/taskhub/taskhub-api/internal/store"
)

// TaskInput carries the fields accepted when creating a task.
type TaskInput struct {
	Title       string
	Description string
	AssignedTo  uuid.UUID
	Deadline    time.Time
}

// TaskUpdate carries the mutable task fields. Nil pointers mean "leave
// unchanged". Status is deliberately absent; lifecycle changes go through
// Start/Complete/UpdateStatus.
type TaskUpdate struct {
	Title       *string
	Description *string
	AssignedTo  *uuid.UUID
	Deadline    *time.Time
}

// Statistics are per-status task counts within the actor's visibility.
type Statistics struct {
	Total      int `json:"total_tasks"`
	Pending    int `json:"pending_tasks"`
	InProgress int `json:"in_progress_tasks"`
	Completed  int `json:"completed_tasks"`
	Overdue    int `json:"overdue_tasks"`
}

// SweepResult reports the outcome of an overdue sweep.
type SweepResult struct {
	UpdatedCount int
	TaskIDs      []uuid.UUID
}

// TaskService is the task lifecycle engine: it enforces the status
// transition table, visibility, and assignment rules, and triggers the
// best-effort assignment notification.
type TaskService interface {
	// Create creates a pending task. Admin only; the assignee must hold
	// the base role and the deadline must be in the future.
	Create(ctx context.Context, actor policy.Actor, input TaskInput) (*domain.Task, error)

	// List returns the tasks visible to the actor: everything for admins
	// and managers, only assigned tasks for base users. Visibility is a
	// query-level filter, never a post-hoc check.
	List(ctx context.Context, actor policy.Actor) ([]*domain.Task, error)

	// ListAll returns every task. Requires all-resource visibility.
	ListAll(ctx context.Context, actor policy.Actor) ([]*domain.Task, error)

	// ListAssigned returns the actor's assigned tasks. Administrative
	// actors are rejected; the endpoint exists for base users.
	ListAssigned(ctx context.Context, actor policy.Actor) ([]*domain.Task, error)

	// Get retrieves a single task. Tasks outside the actor's visibility
	// are reported as not found, never as forbidden, so existence is not
	// leaked.
	Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*domain.Task, error)

	// Update modifies task fields. Admin only. The deadline rule applies
	// unless the task is already completed.
	Update(ctx context.Context, actor policy.Actor, id uuid.UUID, update TaskUpdate) (*domain.Task, error)

	// Delete removes a task. Admin only.
	Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error

	// Start moves a pending task to in_progress. Assignee or admin.
	Start(ctx context.Context, actor policy.Actor, id uuid.UUID) (*domain.Task, error)

	// Complete moves an in_progress or overdue task to completed.
	// Assignee or admin.
	Complete(ctx context.Context, actor policy.Actor, id uuid.UUID) (*domain.Task, error)

	// UpdateStatus applies a caller-chosen status transition, validated
	// against the transition table. Assignee or admin.
	UpdateStatus(ctx context.Context, actor policy.Actor, id uuid.UUID, status domain.TaskStatus) (*domain.Task, error)

	// Sweep reclassifies every pending or in-progress task whose deadline
	// has passed as overdue. Idempotent; one set-based write.
	Sweep(ctx context.Context) (SweepResult, error)

	// Statistics returns per-status counts within the actor's visibility.
	Statistics(ctx context.Context, actor policy.Actor) (Statistics, error)
}

// TaskServiceImpl implements the TaskService interface.
type TaskServiceImpl struct {
	taskStore store.TaskStore
	userStore store.UserStore
	engine    *policy.Engine
	notifier  notify.Notifier
	logger    *slog.Logger
	timeFunc  func() time.Time // Injectable for testing
}

// NewTaskService creates a new TaskService.
func NewTaskService(taskStore store.TaskStore, userStore store.UserStore, engine *policy.Engine, notifier notify.Notifier, logger *slog.Logger) *TaskServiceImpl {
	return &TaskServiceImpl{
		taskStore: taskStore,
		userStore: userStore,
		engine:    engine,
		notifier:  notifier,
		logger:    logger.With("component", "task_service"),
		timeFunc:  time.Now,
	}
}

var _ TaskService = (*TaskServiceImpl)(nil)

// Create implements TaskService.Create
func (s *TaskServiceImpl) Create(ctx context.Context, actor policy.Actor, input TaskInput) (*domain.Task, error) {
	if !s.engine.Allow(actor, policy.ActionCreate, nil) {
		return nil, ErrForbidden
	}

	assignee, err := s.userStore.GetByID(ctx, input.AssignedTo)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrAssigneeNotAssignable
		}
		return nil, err
	}
	if !s.engine.Scheme().IsBase(assignee.Role) {
		return nil, ErrAssigneeNotAssignable
	}
	if !input.Deadline.After(s.timeFunc()) {
		return nil, ErrDeadlineNotFuture
	}

	createdBy := actor.ID
	task, err := domain.NewTask(input.Title, input.Description, input.AssignedTo, &createdBy, input.Deadline)
	if err != nil {
		return nil, err
	}

	if err := s.taskStore.Create(ctx, task); err != nil {
		return nil, err
	}

	s.logger.Info("task created",
		"task_id", task.ID,
		"assigned_to", task.AssignedTo,
		"actor_id", actor.ID)

	// Best-effort notification: failures are logged and swallowed, never
	// surfaced to the caller or allowed to undo the creation.
	if err := s.notifier.TaskAssigned(ctx, assignee, task); err != nil {
		s.logger.Warn("assignment notification failed",
			"error", err,
			"task_id", task.ID,
			"assignee_id", assignee.ID)
	}

	return task, nil
}

// List implements TaskService.List
func (s *TaskServiceImpl) List(ctx context.Context, actor policy.Actor) ([]*domain.Task, error) {
	if s.engine.CanSeeAll(actor) {
		return s.taskStore.List(ctx)
	}
	return s.taskStore.ListByAssignee(ctx, actor.ID)
}

// ListAll implements TaskService.ListAll
func (s *TaskServiceImpl) ListAll(ctx context.Context, actor policy.Actor) ([]*domain.Task, error) {
	if !s.engine.CanSeeAll(actor) {
		return nil, ErrForbidden
	}
	return s.taskStore.List(ctx)
}

// ListAssigned implements TaskService.ListAssigned
func (s *TaskServiceImpl) ListAssigned(ctx context.Context, actor policy.Actor) ([]*domain.Task, error) {
	if s.engine.IsAdmin(actor) {
		return nil, ErrForbidden
	}
	return s.taskStore.ListByAssignee(ctx, actor.ID)
}

// Get implements TaskService.Get
func (s *TaskServiceImpl) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*domain.Task, error) {
	task, err := s.taskStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.engine.Allow(actor, policy.ActionRead, task) {
		// Invisible, not forbidden: don't reveal that the task exists.
		return nil, store.ErrTaskNotFound
	}
	return task, nil
}

// Update implements TaskService.Update
func (s *TaskServiceImpl) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, update TaskUpdate) (*domain.Task, error) {
	if !s.engine.IsAdmin(actor) {
		return nil, ErrForbidden
	}

	task, err := s.taskStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.AssignedTo != nil && *update.AssignedTo != task.AssignedTo {
		assignee, err := s.userStore.GetByID(ctx, *update.AssignedTo)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				return nil, ErrAssigneeNotAssignable
			}
			return nil, err
		}
		if !s.engine.Scheme().IsBase(assignee.Role) {
			return nil, ErrAssigneeNotAssignable
		}
		task.AssignedTo = *update.AssignedTo
	}
	if update.Deadline != nil {
		// Completed tasks may keep or receive past deadlines.
		if task.Status != domain.TaskStatusCompleted && !update.Deadline.After(s.timeFunc()) {
			return nil, ErrDeadlineNotFuture
		}
		task.Deadline = *update.Deadline
	}
	if update.Title != nil {
		task.Title = *update.Title
	}
	if update.Description != nil {
		task.Description = *update.Description
	}
	task.UpdatedAt = s.timeFunc().UTC()

	if err := s.taskStore.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Delete implements TaskService.Delete
func (s *TaskServiceImpl) Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	if !s.engine.IsAdmin(actor) {
		return ErrForbidden
	}
	if err := s.taskStore.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("task deleted", "task_id", id, "actor_id", actor.ID)
	return nil
}

// Start implements TaskService.Start
func (s *TaskServiceImpl) Start(ctx context.Context, actor policy.Actor, id uuid.UUID) (*domain.Task, error) {
	task, err := s.visibleForAction(ctx, actor, id, policy.ActionStart)
	if err != nil {
		return nil, err
	}

	if task.Status != domain.TaskStatusPending {
		return nil, &domain.StartError{Status: task.Status}
	}

	return s.applyTransition(ctx, task, domain.TaskStatusInProgress)
}

// Complete implements TaskService.Complete
func (s *TaskServiceImpl) Complete(ctx context.Context, actor policy.Actor, id uuid.UUID) (*domain.Task, error) {
	task, err := s.visibleForAction(ctx, actor, id, policy.ActionComplete)
	if err != nil {
		return nil, err
	}

	if task.Status == domain.TaskStatusCompleted {
		return nil, domain.ErrTaskAlreadyDone
	}
	if !task.CanTransition(domain.TaskStatusCompleted) {
		return nil, &domain.TransitionError{From: task.Status, To: domain.TaskStatusCompleted}
	}

	return s.applyTransition(ctx, task, domain.TaskStatusCompleted)
}

// UpdateStatus implements TaskService.UpdateStatus
func (s *TaskServiceImpl) UpdateStatus(ctx context.Context, actor policy.Actor, id uuid.UUID, status domain.TaskStatus) (*domain.Task, error) {
	task, err := s.visibleForAction(ctx, actor, id, policy.ActionUpdateStatus)
	if err != nil {
		return nil, err
	}

	// Validate against the transition table before touching the store.
	probe := *task
	if err := probe.Transition(status); err != nil {
		return nil, err
	}

	return s.applyTransition(ctx, task, status)
}

// Sweep implements TaskService.Sweep
func (s *TaskServiceImpl) Sweep(ctx context.Context) (SweepResult, error) {
	ids, err := s.taskStore.MarkOverdue(ctx, s.timeFunc())
	if err != nil {
		return SweepResult{}, err
	}
	return SweepResult{UpdatedCount: len(ids), TaskIDs: ids}, nil
}

// Statistics implements TaskService.Statistics
func (s *TaskServiceImpl) Statistics(ctx context.Context, actor policy.Actor) (Statistics, error) {
	var assignee *uuid.UUID
	if !s.engine.CanSeeAll(actor) {
		assignee = &actor.ID
	}

	counts, err := s.taskStore.CountByStatus(ctx, assignee)
	if err != nil {
		return Statistics{}, err
	}

	stats := Statistics{
		Pending:    counts[domain.TaskStatusPending],
		InProgress: counts[domain.TaskStatusInProgress],
		Completed:  counts[domain.TaskStatusCompleted],
		Overdue:    counts[domain.TaskStatusOverdue],
	}
	stats.Total = stats.Pending + stats.InProgress + stats.Completed + stats.Overdue
	return stats, nil
}

// visibleForAction fetches a task and checks the actor may perform the
// action on it. Invisible tasks surface as not found; visible ones with a
// missing capability surface as forbidden.
func (s *TaskServiceImpl) visibleForAction(ctx context.Context, actor policy.Actor, id uuid.UUID, action policy.Action) (*domain.Task, error) {
	task, err := s.taskStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.engine.Allow(actor, policy.ActionRead, task) {
		return nil, store.ErrTaskNotFound
	}
	if !s.engine.Allow(actor, action, task) {
		return nil, ErrForbidden
	}
	return task, nil
}

// applyTransition performs the atomic conditional status write and refreshes
// the in-memory task. A concurrent change between our read and the write
// surfaces as the state error the fresh status implies.
func (s *TaskServiceImpl) applyTransition(ctx context.Context, task *domain.Task, to domain.TaskStatus) (*domain.Task, error) {
	err := s.taskStore.UpdateStatus(ctx, task.ID, task.Status, to)
	if err != nil {
		if errors.Is(err, store.ErrStatusConflict) {
			current, readErr := s.taskStore.GetByID(ctx, task.ID)
			if readErr != nil {
				return nil, readErr
			}
			s.logger.Debug("status transition lost race",
				"task_id", task.ID,
				"stale", task.Status,
				"current", current.Status,
				"requested", to)
			if to == domain.TaskStatusInProgress {
				return nil, &domain.StartError{Status: current.Status}
			}
			if current.Status == domain.TaskStatusCompleted && to == domain.TaskStatusCompleted {
				return nil, domain.ErrTaskAlreadyDone
			}
			return nil, &domain.TransitionError{From: current.Status, To: to}
		}
		return nil, err
	}

	task.Status = to
	task.UpdatedAt = s.timeFunc().UTC()

	s.logger.Info("task status changed",
		"task_id", task.ID,
		"status", to)
	return task, nil
}
