package inbound

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shandysiswandi/stockmaster/internal/account/entity"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type PasswordResetRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AccountResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toAccountResponse(a *entity.Account) AccountResponse {
	return AccountResponse{
		ID:        strconv.FormatInt(a.ID, 10),
		Email:     a.Email,
		Name:      a.Name,
		Role:      a.Role.String(),
		CreatedAt: a.CreatedAt,
	}
}

type RegisterResponse struct {
	Account AccountResponse `json:"account"`
}

func (RegisterResponse) StatusCode() int { return http.StatusCreated }
func (RegisterResponse) Message() string { return "Account created" }

type PasswordResetResponse struct{}

func (PasswordResetResponse) Message() string { return "Password has been reset" }

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
