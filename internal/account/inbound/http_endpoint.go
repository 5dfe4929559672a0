package inbound

import (
	"github.com/shandysiswandi/stockmaster/internal/account/usecase"
	"github.com/shandysiswandi/stockmaster/internal/pkg/router"
)

// HTTPEndpoint exposes the flows that complete after an OTP was verified.
type HTTPEndpoint struct {
	uc uc
}

// Register creates the account for an email verified with a registration code.
func (h *HTTPEndpoint) Register(r *router.Request) (any, error) {
	var req RegisterRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	acc, err := h.uc.Register(r.Context(), usecase.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}

	return RegisterResponse{Account: toAccountResponse(acc)}, nil
}

func (h *HTTPEndpoint) PasswordReset(r *router.Request) (any, error) {
	var req PasswordResetRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.PasswordReset(r.Context(), usecase.PasswordResetInput{
		Email:    req.Email,
		Password: req.Password,
	}); err != nil {
		return nil, err
	}

	return PasswordResetResponse{}, nil
}

func (h *HTTPEndpoint) Login(r *router.Request) (any, error) {
	var req LoginRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	out, err := h.uc.Login(r.Context(), usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}

	return LoginResponse{AccessToken: out.AccessToken, TokenType: "Bearer"}, nil
}

func (h *HTTPEndpoint) Profile(r *router.Request) (any, error) {
	acc, err := h.uc.Profile(r.Context())
	if err != nil {
		return nil, err
	}

	return toAccountResponse(acc), nil
}
