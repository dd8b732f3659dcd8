package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/taskhub/taskhub-api/internal/api/shared"
	"github.com/taskhub/taskhub-api/internal/policy"
)

// getActor extracts the authenticated actor placed in the request context by
// the authentication middleware. It writes a 401 response if the actor is
// missing, which only happens on a route wiring mistake.
func getActor(w http.ResponseWriter, r *http.Request) (policy.Actor, bool) {
	actor, ok := shared.GetActor(r.Context())
	if !ok || actor.ID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return policy.Actor{}, false
	}
	return actor, true
}

// getPathUUID extracts and parses a UUID path parameter. It writes a 404
// response on a malformed value, since such a URL can never name a resource.
func getPathUUID(w http.ResponseWriter, r *http.Request, paramName string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, paramName)
	id, err := uuid.Parse(raw)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusNotFound, "Not found")
		return uuid.Nil, false
	}
	return id, true
}

// decodeAndValidate parses the JSON request body into v and runs struct
// validation, writing the appropriate error response on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := shared.DecodeJSON(r, v); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return false
	}
	if err := shared.ValidateRequest(v); err != nil {
		shared.RespondWithFieldErrors(w, r, FieldErrorsFromValidation(err))
		return false
	}
	return true
}

// handleServiceError maps a service-layer error onto the right HTTP response:
// uniqueness violations become per-field messages, everything else a
// sanitized detail string.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if fields, ok := FieldErrorsFromDuplicate(err); ok {
		shared.RespondWithFieldErrors(w, r, fields)
		return
	}
	status := MapErrorToStatusCode(err)
	shared.RespondWithErrorAndLog(w, r, status, GetSafeErrorMessage(err), err)
}
