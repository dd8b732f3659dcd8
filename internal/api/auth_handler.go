package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/taskhub/taskhub-api/internal/api/shared"
	"github.com/taskhub/taskhub-api/internal/config"
	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/notify"
	"github.com/taskhub/taskhub-api/internal/service"
	"github.com/taskhub/taskhub-api/internal/service/auth"
	"github.com/taskhub/taskhub-api/internal/store"
)

// Cookie names used by the cookie token transport.
const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

// AuthHandler handles authentication-related API requests: signup, login,
// logout, token refresh, the caller's own profile, and password resets.
type AuthHandler struct {
	userService      service.UserService
	userStore        store.UserStore
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	blacklist        auth.TokenBlacklist
	resetTokens      *auth.ResetTokenService
	notifier         notify.Notifier
	authConfig       config.AuthConfig
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(
	userService service.UserService,
	userStore store.UserStore,
	jwtService auth.JWTService,
	passwordVerifier auth.PasswordVerifier,
	blacklist auth.TokenBlacklist,
	resetTokens *auth.ResetTokenService,
	notifier notify.Notifier,
	authConfig config.AuthConfig,
) *AuthHandler {
	return &AuthHandler{
		userService:      userService,
		userStore:        userStore,
		jwtService:       jwtService,
		passwordVerifier: passwordVerifier,
		blacklist:        blacklist,
		resetTokens:      resetTokens,
		notifier:         notifier,
		authConfig:       authConfig,
	}
}

// Signup handles POST /signup/. New accounts always receive the scheme's
// base role; elevated accounts are created through the admin endpoints.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.userService.Register(r.Context(), req.Username, req.Email, req.FirstName, req.LastName, req.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.respondWithTokens(w, r, http.StatusCreated, user)
}

// Login handles POST /login/.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.userStore.GetByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		handleServiceError(w, r, err)
		return
	}

	// Inactive accounts and wrong passwords produce the same response as
	// unknown usernames.
	if !user.IsActive {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if err := h.passwordVerifier.Compare(user.HashedPassword, req.Password); err != nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	h.respondWithTokens(w, r, http.StatusOK, user)
}

// Logout handles POST /logout/. The refresh token is revoked when provided
// and valid; the response is 200 regardless, since logout must always leave
// the client logged out.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := h.refreshTokenFromRequest(r)
	if token != "" {
		h.revokeRefreshToken(r.Context(), token)
	}

	if h.authConfig.TokenTransport == "cookie" {
		h.clearAuthCookies(w)
	}

	shared.RespondWithJSON(w, r, http.StatusOK, MessageResponse{Message: "Successfully logged out"})
}

// RefreshToken handles POST /token/refresh/. The presented refresh token is
// rotated: validated, checked against the blacklist, revoked, and replaced
// with a fresh pair.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token := h.refreshTokenFromRequest(r)
	if token == "" {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Refresh token required")
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(r.Context(), token)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	revoked, err := h.blacklist.IsRevoked(r.Context(), claims.ID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if revoked {
		handleServiceError(w, r, auth.ErrTokenRevoked)
		return
	}

	user, err := h.userStore.GetByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			handleServiceError(w, r, auth.ErrInvalidRefreshToken)
			return
		}
		handleServiceError(w, r, err)
		return
	}
	if !user.IsActive {
		handleServiceError(w, r, auth.ErrInvalidRefreshToken)
		return
	}

	// Rotate: the old refresh token dies with this exchange.
	if err := h.blacklist.Revoke(r.Context(), claims.ID, time.Until(claims.ExpiresAt)); err != nil {
		slog.Error("failed to revoke rotated refresh token", "error", err, "user_id", claims.UserID)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to refresh token")
		return
	}

	h.respondWithTokens(w, r, http.StatusOK, user)
}

// Me handles GET /me/.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}

	user, err := h.userStore.GetByID(r.Context(), actor.ID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewUserResponse(user))
}

// UpdateProfile handles PUT /profile/. Role and active status are not
// accepted here; those move through the admin endpoints.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}

	var req ProfileUpdateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.userService.Update(r.Context(), actor, actor.ID, service.UserProfile{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewUserResponse(user))
}

// RequestPasswordReset handles POST /password-reset/. The response is the
// same whether or not the address matches an account, so the endpoint
// cannot be used to enumerate users.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.userStore.GetByEmail(r.Context(), req.Email)
	if err == nil && user.IsActive {
		token := h.resetTokens.Generate(user)
		if nerr := h.notifier.PasswordReset(r.Context(), user, token); nerr != nil {
			slog.Warn("password reset notification failed", "error", nerr, "user_id", user.ID)
		}
	} else if err != nil && !errors.Is(err, store.ErrUserNotFound) {
		handleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, MessageResponse{
		Message: "If the email address is registered, a reset link has been sent",
	})
}

// ConfirmPasswordReset handles POST /password-reset/confirm/. A successful
// reset changes the password hash, which invalidates every outstanding
// reset token for the account.
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetConfirmRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.userStore.GetByID(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			handleServiceError(w, r, auth.ErrInvalidResetToken)
			return
		}
		handleServiceError(w, r, err)
		return
	}

	if err := h.resetTokens.Verify(user, req.Token); err != nil {
		handleServiceError(w, r, err)
		return
	}

	if err := h.userService.ChangePassword(r.Context(), user.ID, req.NewPassword); err != nil {
		handleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, MessageResponse{Message: "Password has been reset"})
}

// respondWithTokens issues a fresh token pair and delivers it per the
// configured transport: response body for bearer, HttpOnly cookies for
// cookie. The user payload is included either way.
func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, r *http.Request, status int, user *domain.User) {
	accessToken, err := h.jwtService.GenerateToken(r.Context(), user.ID, user.Role)
	if err != nil {
		slog.Error("failed to generate access token", "error", err, "user_id", user.ID)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to generate authentication token")
		return
	}
	refreshToken, err := h.jwtService.GenerateRefreshToken(r.Context(), user.ID, user.Role)
	if err != nil {
		slog.Error("failed to generate refresh token", "error", err, "user_id", user.ID)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to generate authentication token")
		return
	}

	resp := AuthResponse{
		TokenType: "Bearer",
		User:      NewUserResponse(user),
	}

	if h.authConfig.TokenTransport == "cookie" {
		h.setAuthCookie(w, accessTokenCookie, accessToken, h.accessTokenLifetime())
		h.setAuthCookie(w, refreshTokenCookie, refreshToken, h.refreshTokenLifetime())
	} else {
		resp.AccessToken = accessToken
		resp.RefreshToken = refreshToken
	}

	shared.RespondWithJSON(w, r, status, resp)
}

// refreshTokenFromRequest pulls the refresh token from the JSON body or,
// failing that, the refresh_token cookie.
func (h *AuthHandler) refreshTokenFromRequest(r *http.Request) string {
	var req RefreshTokenRequest
	if err := shared.DecodeJSON(r, &req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// revokeRefreshToken validates a refresh token and blacklists its ID for
// the remainder of its lifetime. Invalid tokens are ignored: they cannot be
// replayed anyway.
func (h *AuthHandler) revokeRefreshToken(ctx context.Context, token string) {
	claims, err := h.jwtService.ValidateRefreshToken(ctx, token)
	if err != nil {
		return
	}
	if err := h.blacklist.Revoke(ctx, claims.ID, time.Until(claims.ExpiresAt)); err != nil {
		slog.Warn("failed to revoke refresh token on logout", "error", err, "user_id", claims.UserID)
	}
}

func (h *AuthHandler) setAuthCookie(w http.ResponseWriter, name, value string, lifetime time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(lifetime.Seconds()),
		HttpOnly: true,
		Secure:   h.authConfig.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.authConfig.CookieSecure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

func (h *AuthHandler) accessTokenLifetime() time.Duration {
	return time.Duration(h.authConfig.TokenLifetimeMinutes) * time.Minute
}

func (h *AuthHandler) refreshTokenLifetime() time.Duration {
	return time.Duration(h.authConfig.RefreshTokenLifetimeMinutes) * time.Minute
}
