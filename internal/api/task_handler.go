package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/taskhub/taskhub-api/internal/api/shared"
	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/policy"
	"github.com/taskhub/taskhub-api/internal/service"
	"github.com/taskhub/taskhub-api/internal/store"
)

// TaskHandler handles task-related API requests: CRUD, lifecycle
// transitions, per-actor listings, statistics, and the overdue sweep.
type TaskHandler struct {
	taskService service.TaskService
	userStore   store.UserStore
	timeFunc    func() time.Time // Injectable for testing
}

// NewTaskHandler creates a new TaskHandler with the given dependencies.
func NewTaskHandler(taskService service.TaskService, userStore store.UserStore) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		userStore:   userStore,
		timeFunc:    time.Now,
	}
}

// Create handles POST /tasks/.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}

	var req TaskCreateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.taskService.Create(r.Context(), actor, service.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		Deadline:    req.Deadline,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, h.taskResponse(r, task))
}

// List handles GET /tasks/. The listing is visibility-filtered: admins and
// managers see everything, base users only their assigned tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	h.respondWithListing(w, r, func(actor policy.Actor) ([]*domain.Task, error) {
		return h.taskService.List(r.Context(), actor)
	})
}

// ListMine handles GET /my-tasks/.
func (h *TaskHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	h.respondWithListing(w, r, func(actor policy.Actor) ([]*domain.Task, error) {
		return h.taskService.ListAssigned(r.Context(), actor)
	})
}

// ListAll handles GET /all-tasks/.
func (h *TaskHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	h.respondWithListing(w, r, func(actor policy.Actor) ([]*domain.Task, error) {
		return h.taskService.ListAll(r.Context(), actor)
	})
}

// Get handles GET /tasks/{id}/.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	id, ok := getPathUUID(w, r, "id")
	if !ok {
		return
	}

	task, err := h.taskService.Get(r.Context(), actor, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, h.taskResponse(r, task))
}

// Update handles PUT /tasks/{id}/.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	id, ok := getPathUUID(w, r, "id")
	if !ok {
		return
	}

	var req TaskUpdateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.taskService.Update(r.Context(), actor, id, service.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		Deadline:    req.Deadline,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, h.taskResponse(r, task))
}

// Delete handles DELETE /tasks/{id}/.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	id, ok := getPathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.taskService.Delete(r.Context(), actor, id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusNoContent, nil)
}

// UpdateStatus handles PATCH /tasks/{id}/status/.
func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	id, ok := getPathUUID(w, r, "id")
	if !ok {
		return
	}

	var req StatusUpdateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.taskService.UpdateStatus(r.Context(), actor, id, domain.TaskStatus(req.Status))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, h.taskResponse(r, task))
}

// Start handles POST /tasks/{id}/start/.
func (h *TaskHandler) Start(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	id, ok := getPathUUID(w, r, "id")
	if !ok {
		return
	}

	task, err := h.taskService.Start(r.Context(), actor, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, h.taskResponse(r, task))
}

// Complete handles POST /tasks/{id}/complete/.
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	id, ok := getPathUUID(w, r, "id")
	if !ok {
		return
	}

	task, err := h.taskService.Complete(r.Context(), actor, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, h.taskResponse(r, task))
}

// Statistics handles GET /task-statistics/. Counts are scoped to the
// actor's visibility.
func (h *TaskHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}

	stats, err := h.taskService.Statistics(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}

// Sweep handles POST /update-overdue-tasks/. One set-based write marks
// every task past its deadline as overdue; running it twice is a no-op.
func (h *TaskHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	if _, ok := getActor(w, r); !ok {
		return
	}

	result, err := h.taskService.Sweep(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, SweepResponse{
		Message:      fmt.Sprintf("%d task(s) marked as overdue", result.UpdatedCount),
		UpdatedCount: result.UpdatedCount,
		TaskIDs:      result.TaskIDs,
	})
}

// respondWithListing runs a listing function for the authenticated actor and
// renders the result with usernames resolved.
func (h *TaskHandler) respondWithListing(w http.ResponseWriter, r *http.Request, list func(policy.Actor) ([]*domain.Task, error)) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}

	tasks, err := list(actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, h.taskResponses(r, tasks))
}

// taskResponse renders a single task, resolving the assignee's username.
func (h *TaskHandler) taskResponse(r *http.Request, task *domain.Task) *TaskResponse {
	resp := NewTaskResponse(task, h.timeFunc())
	if assignee, err := h.userStore.GetByID(r.Context(), task.AssignedTo); err == nil {
		resp.AssignedToUsername = assignee.Username
	}
	return resp
}

// taskResponses renders a task list, resolving each distinct assignee's
// username once.
func (h *TaskHandler) taskResponses(r *http.Request, tasks []*domain.Task) []*TaskResponse {
	now := h.timeFunc()
	usernames := make(map[uuid.UUID]string)
	responses := make([]*TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		resp := NewTaskResponse(task, now)
		name, seen := usernames[task.AssignedTo]
		if !seen {
			if assignee, err := h.userStore.GetByID(r.Context(), task.AssignedTo); err == nil {
				name = assignee.Username
			}
			usernames[task.AssignedTo] = name
		}
		resp.AssignedToUsername = name
		responses = append(responses, resp)
	}
	return responses
}
