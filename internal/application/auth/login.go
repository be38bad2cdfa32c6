package auth

import (
	"context"
	"strconv"
	"strings"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// Login authenticates a user and issues an access token.
// IMPORTANT: must not leak whether the email exists (avoid user enumeration).
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)

	if email == "" || password == "" {
		return LoginResult{}, domain.ErrInvalidCredentials()
	}

	// no stored email can contain NUL, and Postgres rejects it in text
	// parameters, so answer like any other unknown email
	if strings.ContainsRune(email, 0) {
		s.compareDummy(ctx, password)
		s.audit("login_failed", map[string]string{"reason": "invalid_credentials"})
		return LoginResult{}, domain.ErrInvalidCredentials()
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			s.compareDummy(ctx, password)
			s.audit("login_failed", map[string]string{"reason": "invalid_credentials"})
			return LoginResult{}, domain.ErrInvalidCredentials()
		}
		return LoginResult{}, err
	}

	if err := s.hasher.Compare(ctx, u.PasswordHash, password); err != nil {
		if domain.Is(err, "invalid_credentials") {
			s.audit("login_failed", map[string]string{"reason": "invalid_credentials"})
		}
		return LoginResult{}, err
	}

	now := timeNow()
	tok, err := s.signer.SignAccessToken(u.ID, u.Email, s.tokenTTL)
	if err != nil {
		return LoginResult{}, domain.ErrTokenSignFailed(err)
	}

	s.audit("user_logged_in", map[string]string{
		"user_id": strconv.FormatInt(u.ID, 10),
	})

	return LoginResult{User: u, Token: tok, ExpiresAt: now.Add(s.tokenTTL)}, nil
}
