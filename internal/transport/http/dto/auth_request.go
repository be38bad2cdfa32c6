package dto

import "strings"

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,nonul,max=255"`
	Email    string `json:"email" validate:"required,nonul,email,max=255"`
	Password string `json:"password" validate:"required,min=6,maxbytes=72"`
}

// Validate trims name and email, then checks the request against its
// validate tags. Email is not case-folded.
func (r *RegisterRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	return validateStruct(r)
}

// LoginRequest carries no validation: every bad login, empty fields
// included, must fail with the same "Invalid credentials" answer.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
