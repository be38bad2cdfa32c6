package http_handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/memory"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/security"
)

const testSecret = "handler-test-secret"

// mustJSONBody marshals v to JSON and returns an io.Reader for request body.
func mustJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	return bytes.NewReader(b)
}

// mustReadJSON decodes the recorder body into out.
func mustReadJSON(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
		t.Fatalf("decode json failed; body=%s err=%v", rr.Body.String(), err)
	}
}

type testEnv struct {
	h      *AuthHandler
	users  *memory.UserRepo
	signer *security.JWTSigner
}

// newTestEnv wires the real service over the memory store, bcrypt at its
// minimum cost and a JWT signer.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := memory.NewUserRepo()
	hasher := security.NewPoolHasher(security.NewBcryptHasher(4), 4)
	signer := security.NewJWTSigner(testSecret, "account-service")
	svc := auth.NewService(users, hasher, signer, nil, auth.Config{})

	return &testEnv{h: NewAuthHandler(svc), users: users, signer: signer}
}

func (e *testEnv) post(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", mustJSONBody(t, body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func (e *testEnv) postRaw(t *testing.T, handler http.HandlerFunc, raw string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(raw))
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

// pgTextRepo wraps the memory store and fails like Postgres does when a
// text parameter holds 0x00 (SQLSTATE 22021).
type pgTextRepo struct {
	*memory.UserRepo
}

func pgTextErr() error {
	return domain.ErrDBUnavailable(errors.New("ERROR: invalid byte sequence for encoding \"UTF8\": 0x00 (SQLSTATE 22021)"))
}

func (r pgTextRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	if strings.ContainsRune(email, 0) {
		return domain.User{}, pgTextErr()
	}
	return r.UserRepo.GetByEmail(ctx, email)
}

func (r pgTextRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	if strings.ContainsRune(u.Name, 0) || strings.ContainsRune(u.Email, 0) {
		return domain.User{}, pgTextErr()
	}
	return r.UserRepo.Create(ctx, u)
}

// downRepo simulates an unreachable database.
type downRepo struct{}

func (downRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return domain.User{}, domain.ErrDBUnavailable(errors.New("dial tcp 10.0.0.5:5432: connect: connection refused"))
}

func (downRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	return domain.User{}, domain.ErrDBUnavailable(errors.New("dial tcp 10.0.0.5:5432: connect: connection refused"))
}
