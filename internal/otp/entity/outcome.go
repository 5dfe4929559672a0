package entity

import (
	"fmt"
	"math"
	"time"
)

// Kind classifies an OTP operation result. Every kind except KindSuccess is
// an expected failure the caller renders to the user.
type Kind string

const (
	KindSuccess        Kind = "SUCCESS"
	KindRateLimited    Kind = "RATE_LIMITED"
	KindDeliveryFailed Kind = "DELIVERY_FAILED"
	KindNotFound       Kind = "NOT_FOUND"
	KindExpired        Kind = "EXPIRED"
	KindExhausted      Kind = "EXHAUSTED"
	KindInvalidCode    Kind = "INVALID_CODE"
)

// Outcome is the structured result of requestCode, verifyCode and resend.
type Outcome struct {
	Kind    Kind
	Message string

	ExpiresInSeconds    int
	RetryAfterSeconds   int
	AttemptsRemaining   int
	Expired             bool
	MaxAttemptsExceeded bool
	// DeliveryDetail explains a failed send. It is logged, never returned to clients.
	DeliveryDetail string
}

func (o Outcome) Success() bool { return o.Kind == KindSuccess }

func CodeSent(ttl time.Duration) Outcome {
	return Outcome{Kind: KindSuccess, Message: "OTP sent successfully", ExpiresInSeconds: int(ttl / time.Second)}
}

// RateLimited rounds the wait up so clients never retry a second early.
func RateLimited(wait time.Duration) Outcome {
	secs := int(math.Ceil(wait.Seconds()))
	return Outcome{
		Kind:              KindRateLimited,
		Message:           fmt.Sprintf("OTP already sent. Please try again after %d seconds.", secs),
		RetryAfterSeconds: secs,
	}
}

func DeliveryFailed(detail string) Outcome {
	return Outcome{Kind: KindDeliveryFailed, Message: "Failed to send OTP", DeliveryDetail: detail}
}

func CodeVerified() Outcome {
	return Outcome{Kind: KindSuccess, Message: "OTP verified successfully"}
}

func NotFound() Outcome {
	return Outcome{Kind: KindNotFound, Message: "No pending OTP found. Please request a new one."}
}

func Expired() Outcome {
	return Outcome{Kind: KindExpired, Message: "OTP has expired", Expired: true}
}

func Exhausted() Outcome {
	return Outcome{Kind: KindExhausted, Message: "Maximum verification attempts exceeded", MaxAttemptsExceeded: true}
}

func InvalidCode(remaining int) Outcome {
	return Outcome{
		Kind:              KindInvalidCode,
		Message:           fmt.Sprintf("Invalid OTP. %d attempts remaining.", remaining),
		AttemptsRemaining: remaining,
	}
}

// Delivery is what a notifier reports. Ordinary send failures land here
// instead of being returned as errors.
type Delivery struct {
	Delivered bool
	Detail    string
}
