package inbound

import (
	"context"
	"net/http"

	"github.com/shandysiswandi/stockmaster/internal/account/entity"
	"github.com/shandysiswandi/stockmaster/internal/account/usecase"
	"github.com/shandysiswandi/stockmaster/internal/pkg/router"
)

type uc interface {
	Register(ctx context.Context, in usecase.RegisterInput) (*entity.Account, error)
	PasswordReset(ctx context.Context, in usecase.PasswordResetInput) error
	Login(ctx context.Context, in usecase.LoginInput) (*usecase.LoginOutput, error)
	Profile(ctx context.Context) (*entity.Account, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.Public(http.MethodPost, "/api/v1/account/register")
	r.Public(http.MethodPost, "/api/v1/account/password-reset")
	r.Public(http.MethodPost, "/api/v1/account/login")

	r.POST("/api/v1/account/register", end.Register)
	r.POST("/api/v1/account/password-reset", end.PasswordReset)
	r.POST("/api/v1/account/login", end.Login)

	r.GET("/api/v1/account/profile", end.Profile) // need authenticated
}
