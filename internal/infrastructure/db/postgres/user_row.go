package postgres

import (
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

type userRow struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

func (ur userRow) toDomain() domain.User {
	return domain.User{
		ID:           ur.ID,
		Name:         ur.Name,
		Email:        ur.Email,
		PasswordHash: ur.PasswordHash,
		CreatedAt:    ur.CreatedAt,
	}
}
