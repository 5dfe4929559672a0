package entity

import "strings"

// Purpose scopes a challenge to the flow that requested it.
type Purpose string

const (
	PurposeUnknown           Purpose = ""
	PurposeRegistration      Purpose = "registration"
	PurposePasswordReset     Purpose = "password-reset"
	PurposeEmailVerification Purpose = "email-verification"
)

var purposeAliases = map[string]Purpose{
	"registration":       PurposeRegistration,
	"password-reset":     PurposePasswordReset,
	"forgot-password":    PurposePasswordReset,
	"email-verification": PurposeEmailVerification,
	"verification":       PurposeEmailVerification,
}

// ParsePurpose accepts canonical names and the legacy aliases
// forgot-password and verification.
func ParsePurpose(s string) Purpose {
	return purposeAliases[strings.ToLower(strings.TrimSpace(s))]
}

func (p Purpose) IsValid() bool {
	return p == PurposeRegistration || p == PurposePasswordReset || p == PurposeEmailVerification
}

func (p Purpose) String() string { return string(p) }

// Label is the human name used in emails.
func (p Purpose) Label() string {
	switch p {
	case PurposeRegistration:
		return "Registration"
	case PurposePasswordReset:
		return "Password Reset"
	case PurposeEmailVerification:
		return "Email Verification"
	default:
		return "Verification"
	}
}
