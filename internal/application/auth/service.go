package auth

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

const (
	DefaultTokenTTL = time.Hour

	publishTimeout = 3 * time.Second

	dummyPassword = "account-service/dummy-password"
)

var timeNow = time.Now

type Service struct {
	users  UserRepo
	hasher PasswordHasher
	signer TokenSigner
	pub    EventPublisher

	tokenTTL time.Duration
	audit    func(action string, fields map[string]string)

	// hash of a throwaway password, compared against when the email is
	// unknown so both login failures cost one bcrypt comparison
	dummyMu   sync.Mutex
	dummyHash string

	// in-flight user.registered publishes
	publishing sync.WaitGroup
}

type Config struct {
	TokenTTL time.Duration
}

func NewService(
	users UserRepo,
	hasher PasswordHasher,
	signer TokenSigner,
	pub EventPublisher,
	cfg Config,
) *Service {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Service{
		users:    users,
		hasher:   hasher,
		signer:   signer,
		pub:      pub,
		tokenTTL: ttl,
		audit:    func(string, map[string]string) {},
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type RegisterResult struct {
	User domain.User
}

type LoginResult struct {
	User      domain.User
	Token     string
	ExpiresAt time.Time
}

func (s *Service) WithAudit(fn func(action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

// TokenTTL reports the lifetime of issued access tokens.
func (s *Service) TokenTTL() time.Duration { return s.tokenTTL }

func (s *Service) compareDummy(ctx context.Context, password string) {
	h := s.dummy(ctx)
	if h == "" {
		return
	}
	_ = s.hasher.Compare(ctx, h, password)
}

// dummy returns the throwaway hash, computing it on first use. A failed
// attempt is not remembered, so the next unknown-email login retries.
func (s *Service) dummy(ctx context.Context) string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()

	if s.dummyHash != "" {
		return s.dummyHash
	}
	h, err := s.hasher.Hash(context.WithoutCancel(ctx), dummyPassword)
	if err != nil {
		return ""
	}
	s.dummyHash = h
	return h
}

// WaitPublishes blocks until every in-flight event publish has finished.
func (s *Service) WaitPublishes() { s.publishing.Wait() }

// publishRegisteredAsync publishes off the request goroutine so a slow
// broker never holds up the registration response.
func (s *Service) publishRegisteredAsync(ctx context.Context, u domain.User) {
	if s.pub == nil {
		return
	}
	s.publishing.Add(1)
	go func() {
		defer s.publishing.Done()
		s.publishRegistered(ctx, u)
	}()
}

func (s *Service) publishRegistered(ctx context.Context, u domain.User) {
	if s.pub == nil {
		return
	}

	// detach from the request so a client disconnect does not drop the event
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err := s.pub.PublishUserRegistered(ctx, UserRegisteredEvent{
		UserID:    u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	})
	if err != nil {
		s.audit("event_publish_failed", map[string]string{
			"event":   "user.registered",
			"user_id": strconv.FormatInt(u.ID, 10),
			"error":   err.Error(),
		})
	}
}
