package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

/*
Shared audit capture
*/

type auditEntry struct {
	action string
	fields map[string]string
}

/*
Fakes for ports
*/

type fakeUserRepo struct {
	mu sync.Mutex

	nextID  int64
	byEmail map[string]domain.User

	// injected errors (if set, method returns error)
	getByEmailErr error
	createErr     error

	// when set, GetByEmail always reports "not found" so concurrent callers
	// all reach Create (simulates the check-then-insert race window)
	hideExisting bool

	getCalls    int
	createCalls int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: map[string]domain.User{}}
}

func (f *fakeUserRepo) put(u domain.User) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	u.ID = f.nextID
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Unix(1700000000, 0).UTC()
	}
	f.byEmail[u.Email] = u
	return u
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.getCalls++
	if f.getByEmailErr != nil {
		return domain.User{}, f.getByEmailErr
	}
	u, ok := f.byEmail[email]
	if !ok || f.hideExisting {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.createCalls++
	if f.createErr != nil {
		return domain.User{}, f.createErr
	}
	if _, exists := f.byEmail[u.Email]; exists {
		return domain.User{}, domain.ErrEmailAlreadyExists()
	}
	f.nextID++
	u.ID = f.nextID
	u.CreatedAt = time.Unix(1700000000, 0).UTC()
	f.byEmail[u.Email] = u
	return u, nil
}

type fakeHasher struct {
	mu sync.Mutex

	hashFn    func(pw string) (string, error)
	hashCtxFn func(ctx context.Context)
	compareFn func(hash, pw string) error

	compared []string // hashes passed to Compare
}

func (h *fakeHasher) Hash(ctx context.Context, password string) (string, error) {
	if h.hashCtxFn != nil {
		h.hashCtxFn(ctx)
	}
	if h.hashFn != nil {
		return h.hashFn(password)
	}
	return "hash:" + password, nil
}

func (h *fakeHasher) Compare(ctx context.Context, hash string, password string) error {
	h.mu.Lock()
	h.compared = append(h.compared, hash)
	h.mu.Unlock()

	if h.compareFn != nil {
		return h.compareFn(hash, password)
	}
	if hash == "hash:"+password {
		return nil
	}
	return domain.ErrInvalidCredentials()
}

type fakeSigner struct {
	signFn func(userID int64, email string, ttl time.Duration) (string, error)

	lastTTL time.Duration
}

func (s *fakeSigner) SignAccessToken(userID int64, email string, ttl time.Duration) (string, error) {
	s.lastTTL = ttl
	if s.signFn != nil {
		return s.signFn(userID, email, ttl)
	}
	return fmt.Sprintf("jwt(%d,%s)", userID, email), nil
}

func (s *fakeSigner) VerifyAccessToken(token string) (TokenClaims, error) {
	return TokenClaims{}, errors.New("not used")
}

type fakePublisher struct {
	mu sync.Mutex

	err  error
	evts []UserRegisteredEvent
}

func (p *fakePublisher) PublishUserRegistered(ctx context.Context, evt UserRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.evts = append(p.evts, evt)
	return nil
}

type blockingPublisher struct {
	release <-chan struct{}

	mu sync.Mutex
	n  int
}

func (p *blockingPublisher) PublishUserRegistered(ctx context.Context, evt UserRegisteredEvent) error {
	<-p.release
	p.mu.Lock()
	p.n++
	p.mu.Unlock()
	return nil
}

func (p *blockingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}

/*
Service factory for tests
*/

func newSvcForTest(t *testing.T) (*Service, *fakeUserRepo, *fakeHasher, *fakeSigner, *fakePublisher, *[]auditEntry) {
	t.Helper()

	users := newFakeUserRepo()
	hasher := &fakeHasher{}
	signer := &fakeSigner{}
	pub := &fakePublisher{}

	var mu sync.Mutex
	audits := &[]auditEntry{}

	svc := NewService(users, hasher, signer, pub, Config{TokenTTL: time.Hour}).
		WithAudit(func(action string, fields map[string]string) {
			cp := map[string]string{}
			for k, v := range fields {
				cp[k] = v
			}
			mu.Lock()
			*audits = append(*audits, auditEntry{action: action, fields: cp})
			mu.Unlock()
		})

	if svc == nil {
		t.Fatalf("svc is nil")
	}

	return svc, users, hasher, signer, pub, audits
}

/*
Small assertions
*/

func requireErrCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error code=%q, got nil", code)
	}
	if !domain.Is(err, code) {
		t.Fatalf("expected code=%q, got err=%v", code, err)
	}
}

func lastAudit(audits *[]auditEntry) (auditEntry, bool) {
	if audits == nil || len(*audits) == 0 {
		return auditEntry{}, false
	}
	return (*audits)[len(*audits)-1], true
}

func requireAuditAction(t *testing.T, audits *[]auditEntry, wantAction string) auditEntry {
	t.Helper()
	e, ok := lastAudit(audits)
	if !ok {
		t.Fatalf("expected audit entry, got none")
	}
	if e.action != wantAction {
		t.Fatalf("expected audit action %q, got %q", wantAction, e.action)
	}
	return e
}

func requireAuditField(t *testing.T, e auditEntry, k, want string) {
	t.Helper()
	got := strings.TrimSpace(e.fields[k])
	if got != want {
		t.Fatalf("expected audit field %q=%q, got %q (all=%v)", k, want, got, e.fields)
	}
}
