package memory

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/auth"
)

// NoopPublisher logs events instead of sending them. Used when RABBIT_URL
// is unset.
type NoopPublisher struct {
	lg zerolog.Logger
}

func NewNoopPublisher(lg zerolog.Logger) *NoopPublisher { return &NoopPublisher{lg: lg} }

func (p *NoopPublisher) PublishUserRegistered(ctx context.Context, evt auth.UserRegisteredEvent) error {
	p.lg.Debug().
		Str("component", "noop-pub").
		Int64("user_id", evt.UserID).
		Str("email", evt.Email).
		Msg("user registered")
	return nil
}
