package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub-api/internal/api/middleware"
	"github.com/taskhub/taskhub-api/internal/api/shared"
	"github.com/taskhub/taskhub-api/internal/config"
	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/notify"
	"github.com/taskhub/taskhub-api/internal/policy"
	"github.com/taskhub/taskhub-api/internal/service"
	"github.com/taskhub/taskhub-api/internal/service/auth"
	"github.com/taskhub/taskhub-api/internal/store"
)

const testJWTSecret = "test-secret-that-is-long-enough-for-testing"

// memUserStore is an in-memory store.UserStore for handler tests.
type memUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[uuid.UUID]*domain.User)}
}

var _ store.UserStore = (*memUserStore)(nil)

func (s *memUserStore) Create(_ context.Context, user *domain.User) error {
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

func (s *memUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *memUserStore) GetByUsername(_ context.Context, username string) (*domain.User, error) {
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

func (s *memUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
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

func (s *memUserStore) List(_ context.Context, role *domain.Role) ([]*domain.User, error) {
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

func (s *memUserStore) Update(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return store.ErrUserNotFound
	}
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *memUserStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return store.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *memUserStore) WithTx(_ *sql.Tx) store.UserStore { return s }

// memTaskStore is an in-memory store.TaskStore for handler tests.
type memTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

var _ store.TaskStore = (*memTaskStore)(nil)

func (s *memTaskStore) Create(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

func (s *memTaskStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (s *memTaskStore) List(_ context.Context) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Task
	for _, task := range s.tasks {
		copied := *task
		out = append(out, &copied)
	}
	return out, nil
}

func (s *memTaskStore) ListByAssignee(_ context.Context, userID uuid.UUID) ([]*domain.Task, error) {
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

func (s *memTaskStore) Update(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tasks[task.ID]
	if !ok {
		return store.ErrTaskNotFound
	}
	copied := *task
	copied.Status = existing.Status
	s.tasks[task.ID] = &copied
	return nil
}

func (s *memTaskStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *memTaskStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to domain.TaskStatus) error {
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

func (s *memTaskStore) MarkOverdue(_ context.Context, now time.Time) ([]uuid.UUID, error) {
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

func (s *memTaskStore) CountByStatus(_ context.Context, assignee *uuid.UUID) (map[domain.TaskStatus]int, error) {
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

func (s *memTaskStore) WithTx(_ *sql.Tx) store.TaskStore { return s }

// testHasher avoids bcrypt cost in handler tests; it doubles as the
// verifier.
type testHasher struct{}

func (testHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (testHasher) Compare(hashedPassword, password string) error {
	if hashedPassword != "hashed:"+password {
		return auth.ErrInvalidCredentials
	}
	return nil
}

// apiFixture wires handlers with in-memory stores and a deterministic JWT
// service, mirroring the production router layout.
type apiFixture struct {
	router chi.Router

	users     *memUserStore
	tasks     *memTaskStore
	jwt       auth.JWTService
	blacklist auth.TokenBlacklist
	resets    *auth.ResetTokenService
	cfg       config.AuthConfig

	userService service.UserService
	taskService service.TaskService
}

func newAPIFixture(t *testing.T, transport string) *apiFixture {
	t.Helper()

	users := newMemUserStore()
	tasks := newMemTaskStore()
	engine := policy.New(domain.SchemeStandard)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwtSvc := auth.NewTestJWTService(testJWTSecret, 15*time.Minute, 24*time.Hour, time.Now)
	blacklist := auth.NewMemoryBlacklist()
	resets := auth.NewResetTokenService(testJWTSecret, time.Hour)
	notifier := notify.NewLogNotifier(logger)

	cfg := config.AuthConfig{
		JWTSecret:                   testJWTSecret,
		TokenLifetimeMinutes:        15,
		RefreshTokenLifetimeMinutes: 1440,
		TokenTransport:              transport,
	}

	hasher := testHasher{}
	userService := service.NewUserService(users, hasher, engine, logger)
	taskService := service.NewTaskService(tasks, users, engine, notifier, logger)

	authHandler := NewAuthHandler(userService, users, jwtSvc, hasher, blacklist, resets, notifier, cfg)
	taskHandler := NewTaskHandler(taskService, users)
	userHandler := NewUserHandler(userService, domain.SchemeStandard)
	authMW := middleware.NewAuthMiddleware(jwtSvc)

	r := chi.NewRouter()
	r.Post("/signup/", authHandler.Signup)
	r.Post("/login/", authHandler.Login)
	r.Post("/token/refresh/", authHandler.RefreshToken)
	r.Post("/password-reset/", authHandler.RequestPasswordReset)
	r.Post("/password-reset/confirm/", authHandler.ConfirmPasswordReset)
	r.Group(func(r chi.Router) {
		r.Use(authMW.Authenticate)
		r.Post("/logout/", authHandler.Logout)
		r.Get("/me/", authHandler.Me)
		r.Put("/profile/", authHandler.UpdateProfile)
		r.Post("/tasks/", taskHandler.Create)
		r.Get("/tasks/", taskHandler.List)
		r.Get("/tasks/{id}/", taskHandler.Get)
		r.Put("/tasks/{id}/", taskHandler.Update)
		r.Delete("/tasks/{id}/", taskHandler.Delete)
		r.Patch("/tasks/{id}/status/", taskHandler.UpdateStatus)
		r.Post("/tasks/{id}/start/", taskHandler.Start)
		r.Post("/tasks/{id}/complete/", taskHandler.Complete)
		r.Get("/my-tasks/", taskHandler.ListMine)
		r.Get("/all-tasks/", taskHandler.ListAll)
		r.Get("/task-statistics/", taskHandler.Statistics)
		r.Post("/update-overdue-tasks/", taskHandler.Sweep)
		r.Get("/available-users/", userHandler.AvailableUsers)
		r.Route("/admin/users", func(r chi.Router) {
			r.Get("/", userHandler.List)
			r.Post("/", userHandler.Create)
			r.Get("/{id}/", userHandler.Get)
			r.Put("/{id}/", userHandler.Update)
			r.Delete("/{id}/", userHandler.Delete)
			r.Post("/{id}/promote/", userHandler.Promote)
			r.Post("/{id}/demote/", userHandler.Demote)
		})
	})

	return &apiFixture{
		router:      r,
		users:       users,
		tasks:       tasks,
		jwt:         jwtSvc,
		blacklist:   blacklist,
		resets:      resets,
		cfg:         cfg,
		userService: userService,
		taskService: taskService,
	}
}

// addUser creates a user directly in the store and returns it.
func (f *apiFixture) addUser(t *testing.T, username string, role domain.Role) *domain.User {
	t.Helper()
	user, err := domain.NewUser(domain.SchemeStandard, username, username+"@example.com", "", "", "password123", role)
	require.NoError(t, err)
	user.HashedPassword = "hashed:password123"
	user.Password = ""
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

// addTask creates a task directly in the store and returns it.
func (f *apiFixture) addTask(t *testing.T, assignee uuid.UUID, status domain.TaskStatus) *domain.Task {
	t.Helper()
	task, err := domain.NewTask("Write report", "", assignee, nil, time.Now().Add(24*time.Hour))
	require.NoError(t, err)
	task.Status = status
	require.NoError(t, f.tasks.Create(context.Background(), task))
	return task
}

// tokenFor issues a valid access token for the user.
func (f *apiFixture) tokenFor(t *testing.T, user *domain.User) string {
	t.Helper()
	token, err := f.jwt.GenerateToken(context.Background(), user.ID, user.Role)
	require.NoError(t, err)
	return token
}

// do executes a request against the fixture router. A non-empty token is
// sent as a bearer header.
func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func errorDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[shared.ErrorResponse](t, rec).Detail
}
