package auth

import (
	"context"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

/*
UserRepo
--------
Persistence port for users.
Only describes WHAT the service needs, not HOW it's stored.

GetByEmail returns domain.ErrUserNotFound when no row matches.
Create must enforce email uniqueness itself and return
domain.ErrEmailAlreadyExists when it is violated; the service's
pre-check is only an optimisation.
*/
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	Create(ctx context.Context, u domain.User) (domain.User, error)
}

/*
PasswordHasher
--------------
Abstracts bcrypt. Compare returns nil on match and
domain.ErrInvalidCredentials on mismatch.
*/
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Compare(ctx context.Context, hash string, password string) error
}

/*
TokenSigner
-----------
Issues and verifies access tokens (JWT).
Used by service + auth middleware.
*/
type TokenClaims struct {
	UserID    int64
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type TokenSigner interface {
	SignAccessToken(userID int64, email string, ttl time.Duration) (string, error)
	VerifyAccessToken(token string) (TokenClaims, error)
}

/*
EventPublisher
--------------
Publishes account lifecycle events to RabbitMQ.
Delivery is best-effort; the service never fails a request on it.
*/
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, evt UserRegisteredEvent) error
}

type UserRegisteredEvent struct {
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
