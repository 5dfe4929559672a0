package inbound

import (
	"context"
	"net/http"

	"github.com/shandysiswandi/stockmaster/internal/otp/entity"
	"github.com/shandysiswandi/stockmaster/internal/otp/usecase"
	"github.com/shandysiswandi/stockmaster/internal/pkg/router"
)

type uc interface {
	RequestCode(ctx context.Context, in usecase.RequestCodeInput) (*entity.Outcome, error)
	VerifyCode(ctx context.Context, in usecase.VerifyCodeInput) (*entity.Outcome, error)
	ResendCode(ctx context.Context, in usecase.RequestCodeInput) (*entity.Outcome, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	// anonymous callers prove email ownership here
	for path, h := range map[string]router.Handler{
		"/api/v1/otp/send-code":   end.SendCode,
		"/api/v1/otp/verify-code": end.VerifyCode,
		"/api/v1/otp/resend-code": end.ResendCode,
	} {
		r.Public(http.MethodPost, path)
		r.POST(path, h)
	}
}
