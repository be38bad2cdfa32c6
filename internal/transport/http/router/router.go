package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/response"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type AuthHandler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	Me(w http.ResponseWriter, r *http.Request)
}

type Deps struct {
	Health HealthHandler
	Auth   AuthHandler

	AuthMW func(http.Handler) http.Handler

	CORSAllowedOrigins []string

	// Metrics serves /metrics; defaults to promhttp.Handler().
	Metrics http.Handler
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("nil Auth handler")
	}
	if deps.AuthMW == nil {
		return nil, fmt.Errorf("nil Auth middleware")
	}
	if deps.Metrics == nil {
		deps.Metrics = promhttp.Handler()
	}

	r := chi.NewRouter()

	// order matters: request id first so every later log line carries it
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(middleware.Recover(response.WriteError))
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS(deps.CORSAllowedOrigins))
	r.Use(chimw.RequestSize(MaxBodyBytes))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusNotFound, response.ErrorBody{Message: "Not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusMethodNotAllowed, response.ErrorBody{Message: "Method not allowed"})
	})

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	r.Method(http.MethodGet, "/metrics", deps.Metrics)

	r.Post("/register", deps.Auth.Register)
	r.Post("/login", deps.Auth.Login)
	r.With(deps.AuthMW).Get("/me", deps.Auth.Me)

	return r, nil
}

// compile-time guard: the auth middleware reports through the same writer
var _ middleware.WriteErrFunc = response.WriteError

