package dto

import "github.com/baechuer/real-time-ressys/services/account-service/internal/domain"

const (
	MsgRegistered = "User registered successfully"
	MsgLoggedIn   = "Login successful"
)

// UserView is the public user payload. The password hash never leaves the
// service.
type UserView struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func NewUserView(u domain.User) UserView {
	return UserView{ID: u.ID, Name: u.Name, Email: u.Email}
}

type RegisterResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	User    UserView `json:"user"`
}

type LoginResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Token   string   `json:"token"`
	User    UserView `json:"user"`
}

// MeUser is built from token claims alone.
type MeUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type MeResponse struct {
	Success bool   `json:"success"`
	User    MeUser `json:"user"`
}
