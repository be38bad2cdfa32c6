package auth

import (
	"context"
	"strconv"
	"strings"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// Register creates a user with a bcrypt-hashed password.
// The existence check up front only short-circuits the common case; two
// concurrent registrations can both pass it, and the store's unique
// constraint decides which insert wins.
func (s *Service) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)

	switch {
	case in.Name == "":
		return RegisterResult{}, domain.ErrMissingField("name")
	case in.Email == "":
		return RegisterResult{}, domain.ErrMissingField("email")
	case in.Password == "":
		return RegisterResult{}, domain.ErrMissingField("password")
	case strings.ContainsRune(in.Name, 0):
		return RegisterResult{}, domain.ErrInvalidField("name", "must not contain NUL characters")
	case strings.ContainsRune(in.Email, 0):
		return RegisterResult{}, domain.ErrInvalidField("email", "must not contain NUL characters")
	}

	_, err := s.users.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		s.audit("register_rejected", map[string]string{"reason": "duplicate_email"})
		return RegisterResult{}, domain.ErrEmailAlreadyExists()
	case !domain.Is(err, "user_not_found"):
		return RegisterResult{}, err
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return RegisterResult{}, err
	}

	created, err := s.users.Create(ctx, domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
	})
	if err != nil {
		if domain.Is(err, "email_already_exists") {
			s.audit("register_rejected", map[string]string{"reason": "duplicate_email_on_insert"})
		}
		return RegisterResult{}, err
	}

	s.audit("user_registered", map[string]string{
		"user_id": strconv.FormatInt(created.ID, 10),
	})
	s.publishRegisteredAsync(ctx, created)

	return RegisterResult{User: created}, nil
}
