package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/taskhub/taskhub-api/internal/api/shared"
	"github.com/taskhub/taskhub-api/internal/policy"
	"github.com/taskhub/taskhub-api/internal/service/auth"
)

// AccessTokenCookie is the cookie name used by the cookie token transport.
const AccessTokenCookie = "access_token"

// AuthMiddleware provides JWT authentication for routes.
type AuthMiddleware struct {
	jwtService auth.JWTService
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(jwtService auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
	}
}

// Authenticate validates JWT access tokens and adds the actor (user ID plus
// role claim) to the request context. The Authorization header is checked
// first, then the access_token cookie, so both token transports work against
// the same routes.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractToken(r)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := m.jwtService.ValidateToken(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Token expired")
			case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrWrongTokenType),
				errors.Is(err, auth.ErrTokenNotYetValid):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
			default:
				slog.Error("failed to validate token", "error", err)
				shared.RespondWithError(w, r, http.StatusInternalServerError, "Authentication error")
			}
			return
		}

		actor := policy.Actor{ID: claims.UserID, Role: claims.Role}
		next.ServeHTTP(w, r.WithContext(shared.SetActor(r.Context(), actor)))
	})
}

// extractToken pulls the access token from the Authorization header or,
// failing that, the access_token cookie.
func extractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", errors.New("Invalid authorization format")
		}
		return parts[1], nil
	}

	cookie, err := r.Cookie(AccessTokenCookie)
	if err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	return "", errors.New("Authentication credentials were not provided")
}
