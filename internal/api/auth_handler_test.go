package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub-api/internal/api/shared"
	"github.com/taskhub/taskhub-api/internal/domain"
)

func TestSignup(t *testing.T) {
	t.Parallel()

	t.Run("creates member and returns tokens", func(t *testing.T) {
		t.Parallel()
		f := newAPIFixture(t, "bearer")

		rec := f.do(t, http.MethodPost, "/signup/", "", SignupRequest{
			Username:        "alice",
			Email:           "alice@example.com",
			FirstName:       "Alice",
			LastName:        "Smith",
			Password:        "password123",
			ConfirmPassword: "password123",
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		resp := decodeBody[AuthResponse](t, rec)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
		assert.Equal(t, "Bearer", resp.TokenType)
		require.NotNil(t, resp.User)
		assert.Equal(t, domain.RoleMember, resp.User.Role, "signup never grants elevated roles")
	})

	t.Run("short password fails per field", func(t *testing.T) {
		t.Parallel()
		f := newAPIFixture(t, "bearer")

		rec := f.do(t, http.MethodPost, "/signup/", "", SignupRequest{
			Username:        "alice",
			Email:           "alice@example.com",
			Password:        "short",
			ConfirmPassword: "short",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		fields := decodeBody[shared.FieldErrors](t, rec)
		require.Contains(t, fields, "password")
		assert.Equal(t, "Ensure this field has at least 8 characters.", fields["password"][0])
	})

	t.Run("password mismatch", func(t *testing.T) {
		t.Parallel()
		f := newAPIFixture(t, "bearer")

		rec := f.do(t, http.MethodPost, "/signup/", "", SignupRequest{
			Username:        "alice",
			Email:           "alice@example.com",
			Password:        "password123",
			ConfirmPassword: "different456",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		fields := decodeBody[shared.FieldErrors](t, rec)
		require.Contains(t, fields, "confirm_password")
		assert.Equal(t, "Password fields didn't match.", fields["confirm_password"][0])
	})

	t.Run("duplicate username maps to its field", func(t *testing.T) {
		t.Parallel()
		f := newAPIFixture(t, "bearer")
		f.addUser(t, "alice", domain.RoleMember)

		rec := f.do(t, http.MethodPost, "/signup/", "", SignupRequest{
			Username:        "alice",
			Email:           "fresh@example.com",
			Password:        "password123",
			ConfirmPassword: "password123",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		fields := decodeBody[shared.FieldErrors](t, rec)
		assert.Contains(t, fields, "username")
	})

	t.Run("cookie transport keeps tokens out of the body", func(t *testing.T) {
		t.Parallel()
		f := newAPIFixture(t, "cookie")

		rec := f.do(t, http.MethodPost, "/signup/", "", SignupRequest{
			Username:        "alice",
			Email:           "alice@example.com",
			Password:        "password123",
			ConfirmPassword: "password123",
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		resp := decodeBody[AuthResponse](t, rec)
		assert.Empty(t, resp.AccessToken)
		assert.Empty(t, resp.RefreshToken)

		cookies := rec.Result().Cookies()
		byName := make(map[string]*http.Cookie)
		for _, c := range cookies {
			byName[c.Name] = c
		}
		require.Contains(t, byName, "access_token")
		require.Contains(t, byName, "refresh_token")
		assert.True(t, byName["access_token"].HttpOnly)
		assert.Equal(t, http.SameSiteStrictMode, byName["access_token"].SameSite)
		assert.NotEmpty(t, byName["access_token"].Value)
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("valid credentials", func(t *testing.T) {
		t.Parallel()
		f := newAPIFixture(t, "bearer")
		f.addUser(t, "alice", domain.RoleMember)

		rec := f.do(t, http.MethodPost, "/login/", "", LoginRequest{Username: "alice", Password: "password123"})
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeBody[AuthResponse](t, rec)
		assert.NotEmpty(t, resp.AccessToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()
		f := newAPIFixture(t, "bearer")
		f.addUser(t, "alice", domain.RoleMember)

		rec := f.do(t, http.MethodPost, "/login/", "", LoginRequest{Username: "alice", Password: "wrongpass1"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid username or password", errorDetail(t, rec))
	})

	t.Run("unknown user gets the same response", func(t *testing.T) {
		t.Parallel()
		f := newAPIFixture(t, "bearer")

		rec := f.do(t, http.MethodPost, "/login/", "", LoginRequest{Username: "ghost", Password: "password123"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid username or password", errorDetail(t, rec))
	})

	t.Run("inactive account rejected", func(t *testing.T) {
		t.Parallel()
		f := newAPIFixture(t, "bearer")
		user := f.addUser(t, "alice", domain.RoleMember)
		user.IsActive = false
		require.NoError(t, f.users.Update(context.Background(), user))

		rec := f.do(t, http.MethodPost, "/login/", "", LoginRequest{Username: "alice", Password: "password123"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRefreshToken(t *testing.T) {
	t.Parallel()

	t.Run("rotation invalidates the old token", func(t *testing.T) {
		t.Parallel()
		f := newAPIFixture(t, "bearer")
		user := f.addUser(t, "alice", domain.RoleMember)

		refresh, err := f.jwt.GenerateRefreshToken(context.Background(), user.ID, user.Role)
		require.NoError(t, err)

		rec := f.do(t, http.MethodPost, "/token/refresh/", "", RefreshTokenRequest{RefreshToken: refresh})
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeBody[AuthResponse](t, rec)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)

		// Replaying the consumed token must fail.
		rec = f.do(t, http.MethodPost, "/token/refresh/", "", RefreshTokenRequest{RefreshToken: refresh})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("access token rejected", func(t *testing.T) {
		t.Parallel()
		f := newAPIFixture(t, "bearer")
		user := f.addUser(t, "alice", domain.RoleMember)

		access := f.tokenFor(t, user)
		rec := f.do(t, http.MethodPost, "/token/refresh/", "", RefreshTokenRequest{RefreshToken: access})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		t.Parallel()
		f := newAPIFixture(t, "bearer")

		rec := f.do(t, http.MethodPost, "/token/refresh/", "", RefreshTokenRequest{})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestLogout(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, "bearer")
	user := f.addUser(t, "alice", domain.RoleMember)
	token := f.tokenFor(t, user)

	refresh, err := f.jwt.GenerateRefreshToken(context.Background(), user.ID, user.Role)
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/logout/", token, LogoutRequest{RefreshToken: refresh})
	require.Equal(t, http.StatusOK, rec.Code)

	// The refresh token must be dead afterwards.
	rec = f.do(t, http.MethodPost, "/token/refresh/", "", RefreshTokenRequest{RefreshToken: refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Logout without a refresh token still succeeds.
	rec = f.do(t, http.MethodPost, "/logout/", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMe(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, "bearer")
	user := f.addUser(t, "alice", domain.RoleMember)

	rec := f.do(t, http.MethodGet, "/me/", f.tokenFor(t, user), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[UserResponse](t, rec)
	assert.Equal(t, user.ID, resp.ID)
	assert.Equal(t, "alice", resp.Username)
}

func TestUpdateProfile(t *testing.T) {
	t.Parallel()

	t.Run("member edits own profile", func(t *testing.T) {
		t.Parallel()
		f := newAPIFixture(t, "bearer")
		user := f.addUser(t, "alice", domain.RoleMember)

		first := "Alicia"
		rec := f.do(t, http.MethodPut, "/profile/", f.tokenFor(t, user), ProfileUpdateRequest{FirstName: &first})
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeBody[UserResponse](t, rec)
		assert.Equal(t, "Alicia", resp.FirstName)
	})

	t.Run("manager edits own profile", func(t *testing.T) {
		t.Parallel()
		f := newAPIFixture(t, "bearer")
		manager := f.addUser(t, "carol", domain.RoleManager)

		last := "Jones"
		rec := f.do(t, http.MethodPut, "/profile/", f.tokenFor(t, manager), ProfileUpdateRequest{LastName: &last})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Jones", decodeBody[UserResponse](t, rec).LastName)
	})
}

func TestAuthMiddlewareTransports(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, "cookie")
	user := f.addUser(t, "alice", domain.RoleMember)
	token := f.tokenFor(t, user)

	t.Run("bearer header", func(t *testing.T) {
		t.Parallel()
		rec := f.do(t, http.MethodGet, "/me/", token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("access token cookie", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/me/", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("no credentials", func(t *testing.T) {
		t.Parallel()
		rec := f.do(t, http.MethodGet, "/me/", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		t.Parallel()
		rec := f.do(t, http.MethodGet, "/me/", "not.a.jwt", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid token", errorDetail(t, rec))
	})

	t.Run("malformed authorization header", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/me/", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestPasswordReset(t *testing.T) {
	t.Parallel()

	t.Run("request is indistinguishable for unknown emails", func(t *testing.T) {
		t.Parallel()
		f := newAPIFixture(t, "bearer")
		f.addUser(t, "alice", domain.RoleMember)

		known := f.do(t, http.MethodPost, "/password-reset/", "", PasswordResetRequest{Email: "alice@example.com"})
		unknown := f.do(t, http.MethodPost, "/password-reset/", "", PasswordResetRequest{Email: "ghost@example.com"})

		assert.Equal(t, http.StatusOK, known.Code)
		assert.Equal(t, http.StatusOK, unknown.Code)
		assert.JSONEq(t, known.Body.String(), unknown.Body.String())
	})

	t.Run("confirm with valid token changes the password", func(t *testing.T) {
		t.Parallel()
		f := newAPIFixture(t, "bearer")
		user := f.addUser(t, "alice", domain.RoleMember)

		token := f.resets.Generate(user)
		rec := f.do(t, http.MethodPost, "/password-reset/confirm/", "", PasswordResetConfirmRequest{
			UserID:          user.ID,
			Token:           token,
			NewPassword:     "newpassword456",
			ConfirmPassword: "newpassword456",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		// Old password no longer works, new one does.
		rec = f.do(t, http.MethodPost, "/login/", "", LoginRequest{Username: "alice", Password: "password123"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		rec = f.do(t, http.MethodPost, "/login/", "", LoginRequest{Username: "alice", Password: "newpassword456"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("token dies with the password change", func(t *testing.T) {
		t.Parallel()
		f := newAPIFixture(t, "bearer")
		user := f.addUser(t, "alice", domain.RoleMember)

		token := f.resets.Generate(user)
		first := f.do(t, http.MethodPost, "/password-reset/confirm/", "", PasswordResetConfirmRequest{
			UserID:          user.ID,
			Token:           token,
			NewPassword:     "newpassword456",
			ConfirmPassword: "newpassword456",
		})
		require.Equal(t, http.StatusOK, first.Code)

		second := f.do(t, http.MethodPost, "/password-reset/confirm/", "", PasswordResetConfirmRequest{
			UserID:          user.ID,
			Token:           token,
			NewPassword:     "anotherpass789",
			ConfirmPassword: "anotherpass789",
		})
		assert.Equal(t, http.StatusUnauthorized, second.Code)
	})

	t.Run("forged token rejected", func(t *testing.T) {
		t.Parallel()
		f := newAPIFixture(t, "bearer")
		user := f.addUser(t, "alice", domain.RoleMember)

		rec := f.do(t, http.MethodPost, "/password-reset/confirm/", "", PasswordResetConfirmRequest{
			UserID:          user.ID,
			Token:           "bogus-token",
			NewPassword:     "newpassword456",
			ConfirmPassword: "newpassword456",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
