package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/store"
)

// fakeUserStore is an in-memory store.UserStore for service tests.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uuid.UUID]*domain.User)}
}

var _ store.UserStore = (*fakeUserStore)(nil)

func (s *fakeUserStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == user.Username {
			return store.ErrUsernameExists
		}
		if existing.Email == user.Email {
			return store.ErrEmailExists
		}
	}
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *fakeUserStore) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *fakeUserStore) List(_ context.Context, role *domain.Role) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.User
	for _, user := range s.users {
		if role != nil && user.Role != *role {
			continue
		}
		copied := *user
		out = append(out, &copied)
	}
	return out, nil
}

func (s *fakeUserStore) Update(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return store.ErrUserNotFound
	}
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *fakeUserStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return store.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *fakeUserStore) WithTx(_ *sql.Tx) store.UserStore { return s }

// fakeTaskStore is an in-memory store.TaskStore honoring the conditional
// UpdateStatus contract.
type fakeTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

var _ store.TaskStore = (*fakeTaskStore)(nil)

func (s *fakeTaskStore) Create(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

func (s *fakeTaskStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (s *fakeTaskStore) List(_ context.Context) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Task
	for _, task := range s.tasks {
		copied := *task
		out = append(out, &copied)
	}
	return out, nil
}

func (s *fakeTaskStore) ListByAssignee(_ context.Context, userID uuid.UUID) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Task
	for _, task := range s.tasks {
		if task.AssignedTo == userID {
			copied := *task
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *fakeTaskStore) Update(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tasks[task.ID]
	if !ok {
		return store.ErrTaskNotFound
	}
	copied := *task
	copied.Status = existing.Status // field updates never touch status
	s.tasks[task.ID] = &copied
	return nil
}

func (s *fakeTaskStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *fakeTaskStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to domain.TaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	if task.Status != from {
		return store.ErrStatusConflict
	}
	task.Status = to
	return nil
}

func (s *fakeTaskStore) MarkOverdue(_ context.Context, now time.Time) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uuid.UUID
	for _, task := range s.tasks {
		if task.Deadline.Before(now) &&
			(task.Status == domain.TaskStatusPending || task.Status == domain.TaskStatusInProgress) {
			task.Status = domain.TaskStatusOverdue
			ids = append(ids, task.ID)
		}
	}
	return ids, nil
}

func (s *fakeTaskStore) CountByStatus(_ context.Context, assignee *uuid.UUID) (map[domain.TaskStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[domain.TaskStatus]int)
	for _, task := range s.tasks {
		if assignee != nil && task.AssignedTo != *assignee {
			continue
		}
		counts[task.Status]++
	}
	return counts, nil
}

func (s *fakeTaskStore) WithTx(_ *sql.Tx) store.TaskStore { return s }

// fakeNotifier records notifications.
type fakeNotifier struct {
	mu           sync.Mutex
	assigned     []uuid.UUID
	resets       []uuid.UUID
	failAssigned error
}

func (n *fakeNotifier) TaskAssigned(_ context.Context, assignee *domain.User, _ *domain.Task) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failAssigned != nil {
		return n.failAssigned
	}
	n.assigned = append(n.assigned, assignee.ID)
	return nil
}

func (n *fakeNotifier) PasswordReset(_ context.Context, user *domain.User, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets = append(n.resets, user.ID)
	return nil
}

func (n *fakeNotifier) assignedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.assigned)
}

// fakeHasher avoids bcrypt cost in service tests.
type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }
