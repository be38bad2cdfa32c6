package http_handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/dto"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/response"
)

// AccountService is the part of auth.Service the handlers drive.
type AccountService interface {
	Register(ctx context.Context, in auth.RegisterInput) (auth.RegisterResult, error)
	Login(ctx context.Context, email, password string) (auth.LoginResult, error)
}

type AuthHandler struct {
	svc AccountService
}

func NewAuthHandler(svc AccountService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Register handles POST /register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		middleware.RegistrationsTotal.WithLabelValues("invalid").Inc()
		response.WriteError(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		middleware.RegistrationsTotal.WithLabelValues("invalid").Inc()
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Register(r.Context(), auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		middleware.RegistrationsTotal.WithLabelValues(outcome(err, "email_already_exists", "duplicate_email")).Inc()
		response.WriteError(w, r, err)
		return
	}
	middleware.RegistrationsTotal.WithLabelValues("success").Inc()

	logger.WithCtx(r.Context()).Info().
		Int64("user_id", res.User.ID).
		Msg("user_registered")

	response.OK(w, dto.RegisterResponse{
		Success: true,
		Message: dto.MsgRegistered,
		User:    dto.NewUserView(res.User),
	})
}

// Login handles POST /login. Unknown email, wrong password and empty fields
// all produce the same 400 body.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		middleware.LoginAttemptsTotal.WithLabelValues("invalid_request").Inc()
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		middleware.LoginAttemptsTotal.WithLabelValues(outcome(err, "invalid_credentials", "invalid_credentials")).Inc()
		response.WriteError(w, r, err)
		return
	}
	middleware.LoginAttemptsTotal.WithLabelValues("success").Inc()

	logger.WithCtx(r.Context()).Info().
		Int64("user_id", res.User.ID).
		Msg("user_logged_in")

	response.OK(w, dto.LoginResponse{
		Success: true,
		Message: dto.MsgLoggedIn,
		Token:   res.Token,
		User:    dto.NewUserView(res.User),
	})
}

// Me handles GET /me. The identity comes from the verified token alone.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenMissing())
		return
	}
	email, _ := middleware.EmailFromContext(r.Context())

	response.OK(w, dto.MeResponse{
		Success: true,
		User:    dto.MeUser{ID: uid, Email: email},
	})
}

// outcome maps err to a metrics label: label when err carries code,
// "invalid" for other validation errors, "error" otherwise.
func outcome(err error, code, label string) string {
	if domain.Is(err, code) {
		return label
	}
	var de *domain.Error
	if errors.As(err, &de) && de.Kind == domain.KindValidation {
		return "invalid"
	}
	return "error"
}
