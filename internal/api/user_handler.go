package api

import (
	"net/http"

	"github.com/taskhub/taskhub-api/internal/api/shared"
	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/service"
)

// UserHandler handles user directory API requests: admin management,
// promotion and demotion, and assignable-user lookups.
type UserHandler struct {
	userService service.UserService
	scheme      domain.RoleScheme
}

// NewUserHandler creates a new UserHandler with the given dependencies.
func NewUserHandler(userService service.UserService, scheme domain.RoleScheme) *UserHandler {
	return &UserHandler{
		userService: userService,
		scheme:      scheme,
	}
}

// List handles GET /admin/users/. An optional role query parameter filters
// the listing to a single role.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}

	var roleFilter *domain.Role
	if raw := r.URL.Query().Get("role"); raw != "" {
		role := domain.Role(raw)
		if !h.scheme.Valid(role) {
			handleServiceError(w, r, domain.ErrUnknownRole)
			return
		}
		roleFilter = &role
	}

	users, err := h.userService.List(r.Context(), actor, roleFilter)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, userResponses(users))
}

// Create handles POST /admin/users/. Unlike signup, the role is chosen by
// the caller.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}

	var req AdminUserCreateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	role := domain.Role(req.Role)
	if !h.scheme.Valid(role) {
		handleServiceError(w, r, domain.ErrUnknownRole)
		return
	}

	user, err := h.userService.Create(r.Context(), actor, req.Username, req.Email, req.FirstName, req.LastName, req.Password, role)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, NewUserResponse(user))
}

// Get handles GET /admin/users/{id}/.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	id, ok := getPathUUID(w, r, "id")
	if !ok {
		return
	}

	user, err := h.userService.Get(r.Context(), actor, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewUserResponse(user))
}

// Update handles PUT /admin/users/{id}/.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	id, ok := getPathUUID(w, r, "id")
	if !ok {
		return
	}

	var req AdminUserUpdateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	profile := service.UserProfile{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsActive:  req.IsActive,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		if !h.scheme.Valid(role) {
			handleServiceError(w, r, domain.ErrUnknownRole)
			return
		}
		if actor.ID == id && role != actor.Role {
			handleServiceError(w, r, service.ErrSelfRoleChange)
			return
		}
		profile.Role = &role
	}

	user, err := h.userService.Update(r.Context(), actor, id, profile)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewUserResponse(user))
}

// Delete handles DELETE /admin/users/{id}/. The schema cascades: tasks
// assigned to the user go with them, tasks they created survive with a
// NULL creator.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	id, ok := getPathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.userService.Delete(r.Context(), actor, id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusNoContent, nil)
}

// Promote handles POST /admin/users/{id}/promote/: one step up the role
// ladder.
func (h *UserHandler) Promote(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.promoteTarget, "User already holds the highest role")
}

// Demote handles POST /admin/users/{id}/demote/: one step down the role
// ladder.
func (h *UserHandler) Demote(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.demoteTarget, "User already holds the lowest role")
}

// AvailableUsers handles GET /available-users/: the base-role users tasks
// may be assigned to.
func (h *UserHandler) AvailableUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}

	users, err := h.userService.ListAssignable(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, userResponses(users))
}

// step applies a one-step role change computed by target.
func (h *UserHandler) step(w http.ResponseWriter, r *http.Request, target func(domain.Role) (domain.Role, bool), atEnd string) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	id, ok := getPathUUID(w, r, "id")
	if !ok {
		return
	}

	if actor.ID == id {
		handleServiceError(w, r, service.ErrSelfRoleChange)
		return
	}

	current, err := h.userService.Get(r.Context(), actor, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	next, ok := target(current.Role)
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, atEnd)
		return
	}

	user, err := h.userService.SetRole(r.Context(), actor, id, next)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewUserResponse(user))
}

// promoteTarget returns the next role up the ladder, if any. Schemes
// without a supervisory role promote straight to administrator.
func (h *UserHandler) promoteTarget(role domain.Role) (domain.Role, bool) {
	switch role {
	case h.scheme.Base:
		if h.scheme.Manager != "" {
			return h.scheme.Manager, true
		}
		return h.scheme.Admin, true
	case h.scheme.Manager:
		return h.scheme.Admin, true
	default:
		return "", false
	}
}

// demoteTarget returns the next role down the ladder, if any.
func (h *UserHandler) demoteTarget(role domain.Role) (domain.Role, bool) {
	switch role {
	case h.scheme.Admin:
		if h.scheme.Manager != "" {
			return h.scheme.Manager, true
		}
		return h.scheme.Base, true
	case h.scheme.Manager:
		return h.scheme.Base, true
	default:
		return "", false
	}
}

func userResponses(users []*domain.User) []*UserResponse {
	responses := make([]*UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, NewUserResponse(u))
	}
	return responses
}
