package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/taskhub/taskhub-api/internal/domain"
)

// Password reset token errors.
var (
	// ErrInvalidResetToken indicates a malformed or forged reset token, or
	// one invalidated by a password change since issuance.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)

// ResetTokenService issues and verifies single-use password reset tokens.
// The MAC covers the user's current password hash, so completing a reset
// (or any password change) invalidates every outstanding token for that
// user without server-side state.
type ResetTokenService struct {
	secret   []byte
	lifetime time.Duration
	timeFunc func() time.Time
}

// NewResetTokenService creates a ResetTokenService. Tokens are valid for
// the given lifetime.
func NewResetTokenService(secret string, lifetime time.Duration) *ResetTokenService {
	return &ResetTokenService{
		secret:   []byte(secret),
		lifetime: lifetime,
		timeFunc: time.Now,
	}
}

// Generate creates a reset token bound to the user's identity and current
// password hash.
func (s *ResetTokenService) Generate(user *domain.User) string {
	expiry := s.timeFunc().Add(s.lifetime).Unix()
	sig := s.sign(user, expiry)
	raw := fmt.Sprintf("%d.%s", expiry, base64.RawURLEncoding.EncodeToString(sig))
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Verify checks a reset token against the user's current state.
// Returns ErrInvalidResetToken for malformed, expired, forged, or stale
// (post-password-change) tokens.
func (s *ResetTokenService) Verify(user *domain.User, token string) error {
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return ErrInvalidResetToken
	}

	parts := strings.SplitN(string(decoded), ".", 2)
	if len(parts) != 2 {
		return ErrInvalidResetToken
	}

	expiry, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return ErrInvalidResetToken
	}
	if s.timeFunc().Unix() > expiry {
		return ErrInvalidResetToken
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return ErrInvalidResetToken
	}
	if !hmac.Equal(sig, s.sign(user, expiry)) {
		return ErrInvalidResetToken
	}

	return nil
}

func (s *ResetTokenService) sign(user *domain.User, expiry int64) []byte {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s|%d|%s", user.ID, expiry, user.HashedPassword)
	return mac.Sum(nil)
}
