package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verifyInput struct {
	Identifier  string `validate:"required,email"`
	Code        string `validate:"required,otpcode"`
	NewPassword string `validate:"omitempty,password"`
}

func TestV10Validator(t *testing.T) {
	v, err := NewV10Validator()
	require.NoError(t, err)

	tests := []struct {
		name   string
		in     verifyInput
		fields []string
	}{
		{name: "valid", in: verifyInput{Identifier: "user@x.com", Code: "012345"}},
		{name: "short code", in: verifyInput{Identifier: "user@x.com", Code: "1234"}, fields: []string{"code"}},
		{name: "letters in code", in: verifyInput{Identifier: "user@x.com", Code: "12a456"}, fields: []string{"code"}},
		{name: "bad email", in: verifyInput{Identifier: "nope", Code: "123456"}, fields: []string{"identifier"}},
		{name: "short password", in: verifyInput{Identifier: "user@x.com", Code: "123456", NewPassword: "short"}, fields: []string{"new_password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.in)
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}

			var verr V10ValidationError
			require.ErrorAs(t, err, &verr)
			for _, f := range tt.fields {
				assert.Contains(t, verr.Values(), f)
			}
		})
	}
}

func TestV10ValidationError_Error(t *testing.T) {
	assert.Equal(t, "validation error", V10ValidationError{}.Error())
	assert.JSONEq(t, `{"code":"code must be exactly 6 digits"}`, V10ValidationError{"code": "code must be exactly 6 digits"}.Error())
}
