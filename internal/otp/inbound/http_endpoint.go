package inbound

import (
	"github.com/shandysiswandi/stockmaster/internal/otp/usecase"
	"github.com/shandysiswandi/stockmaster/internal/pkg/router"
)

// HTTPEndpoint exposes the OTP lifecycle over HTTP.
type HTTPEndpoint struct {
	uc uc
}

const headerIdempotencyKey = "Idempotency-Key"

// SendCode issues a code to the identifier for the purpose.
func (h *HTTPEndpoint) SendCode(r *router.Request) (any, error) {
	var req SendCodeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	out, err := h.uc.RequestCode(r.Context(), usecase.RequestCodeInput{
		Identifier:     req.Identifier,
		Purpose:        req.Purpose,
		IdempotencyKey: r.GetHeader(headerIdempotencyKey),
	})
	if err != nil {
		return nil, err
	}

	return newOutcomeResponse(out), nil
}

// VerifyCode checks a submitted code.
func (h *HTTPEndpoint) VerifyCode(r *router.Request) (any, error) {
	var req VerifyCodeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	out, err := h.uc.VerifyCode(r.Context(), usecase.VerifyCodeInput{
		Identifier: req.Identifier,
		Purpose:    req.Purpose,
		Code:       req.Code,
	})
	if err != nil {
		return nil, err
	}

	return newOutcomeResponse(out), nil
}

func (h *HTTPEndpoint) ResendCode(r *router.Request) (any, error) {
	var req SendCodeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	out, err := h.uc.ResendCode(r.Context(), usecase.RequestCodeInput{
		Identifier:     req.Identifier,
		Purpose:        req.Purpose,
		IdempotencyKey: r.GetHeader(headerIdempotencyKey),
	})
	if err != nil {
		return nil, err
	}

	return newOutcomeResponse(out), nil
}
