package postgres

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

type SeederHasher interface {
	Hash(ctx context.Context, password string) (string, error)
}

type SeederRepo interface {
	Create(ctx context.Context, u domain.User) (domain.User, error)
}

type SeedUser struct {
	Name     string
	Email    string
	Password string
}

// DevSeedUsers are created when the service starts with ENV=dev.
var DevSeedUsers = []SeedUser{
	{Name: "Demo User", Email: "demo@example.com", Password: "demo-password"},
}

// SeedUsers inserts the given users, skipping any that already exist so it
// can run on every start.
func SeedUsers(ctx context.Context, repo SeederRepo, hasher SeederHasher, seeds []SeedUser, lg zerolog.Logger) int {
	created := 0
	for _, s := range seeds {
		hash, err := hasher.Hash(ctx, s.Password)
		if err != nil {
			lg.Warn().Err(err).Str("email", s.Email).Msg("seed hash failed")
			continue
		}

		_, err = repo.Create(ctx, domain.User{
			Name:         s.Name,
			Email:        s.Email,
			PasswordHash: hash,
		})
		if err != nil {
			if domain.Is(err, "email_already_exists") {
				continue
			}
			lg.Warn().Err(err).Str("email", s.Email).Msg("seed create failed")
			continue
		}
		created++
		lg.Info().Str("email", s.Email).Msg("seeded user")
	}
	return created
}
