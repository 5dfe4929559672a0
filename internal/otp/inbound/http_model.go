package inbound

import (
	"net/http"

	"github.com/shandysiswandi/stockmaster/internal/otp/entity"
)

type SendCodeRequest struct {
	Identifier string `json:"identifier"`
	Purpose    string `json:"purpose"`
}

type VerifyCodeRequest struct {
	Identifier string `json:"identifier"`
	Purpose    string `json:"purpose"`
	Code       string `json:"code"`
}

// OutcomeResponse is the body for every OTP outcome, success or not.
type OutcomeResponse struct {
	Success             bool   `json:"success"`
	Msg                 string `json:"message"`
	ExpiresInSeconds    int    `json:"expires_in_seconds,omitempty"`
	RetryAfterSeconds   int    `json:"retry_after_seconds,omitempty"`
	AttemptsRemaining   *int   `json:"attempts_remaining,omitempty"`
	Expired             bool   `json:"expired,omitempty"`
	MaxAttemptsExceeded bool   `json:"max_attempts_exceeded,omitempty"`

	kind entity.Kind
}

func newOutcomeResponse(o *entity.Outcome) OutcomeResponse {
	resp := OutcomeResponse{
		Success:             o.Success(),
		Msg:                 o.Message,
		ExpiresInSeconds:    o.ExpiresInSeconds,
		RetryAfterSeconds:   o.RetryAfterSeconds,
		Expired:             o.Expired,
		MaxAttemptsExceeded: o.MaxAttemptsExceeded,
		kind:                o.Kind,
	}
	if o.Kind == entity.KindInvalidCode {
		remaining := o.AttemptsRemaining
		resp.AttemptsRemaining = &remaining
	}

	return resp
}

func (o OutcomeResponse) Message() string { return o.Msg }

func (o OutcomeResponse) StatusCode() int {
	switch o.kind {
	case entity.KindSuccess:
		return http.StatusOK
	case entity.KindRateLimited, entity.KindExhausted:
		return http.StatusTooManyRequests
	case entity.KindDeliveryFailed:
		return http.StatusBadGateway
	case entity.KindNotFound:
		return http.StatusNotFound
	case entity.KindExpired:
		return http.StatusGone
	case entity.KindInvalidCode:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
