// Package validator validates request structs with go-playground/validator
// and reports failures as a field to message map keyed in snake_case.
package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shandysiswandi/stockmaster/internal/pkg/strcase"
)

var (
	// NIST 800-63B length bounds; 72 is the bcrypt input limit.
	rePassword = regexp.MustCompile(`^.{8,72}$`)
	reOTPCode  = regexp.MustCompile(`^[0-9]{6}$`)
)

// ErrTranslatorNotFound is returned when the English translator is missing.
var ErrTranslatorNotFound = errors.New("translator not found")

// Validator checks a struct against its `validate` tags.
type Validator interface {
	Validate(data any) error
}

// V10ValidationError maps snake_case field names to messages.
type V10ValidationError map[string]string

func (vs V10ValidationError) Error() string {
	if len(vs) == 0 {
		return "validation error"
	}

	b, err := json.Marshal(map[string]string(vs))
	if err != nil {
		return fmt.Sprintf("validation error (%v)", err)
	}

	return string(b)
}

// Values returns the field messages.
func (vs V10ValidationError) Values() map[string]string {
	return vs
}

// V10Validator implements Validator.
type V10Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewV10Validator builds a validator with English messages and the custom
// "password" and "otpcode" tags.
func NewV10Validator() (*V10Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	enLang := en.New()
	trans, ok := ut.New(enLang, enLang).GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}

	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	if err := registerPattern(validate, trans, "password", rePassword, "{0} must be 8-72 characters"); err != nil {
		return nil, err
	}
	if err := registerPattern(validate, trans, "otpcode", reOTPCode, "{0} must be exactly 6 digits"); err != nil {
		return nil, err
	}

	return &V10Validator{validate: validate, translator: trans}, nil
}

func (v *V10Validator) Validate(data any) error {
	err := v.validate.Struct(data)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(V10ValidationError, len(fieldErrs))
	for _, fe := range fieldErrs {
		out[strcase.ToLowerSnake(fe.Field())] = fe.Translate(v.translator)
	}

	return out
}

func registerPattern(validate *validator.Validate, trans ut.Translator, tag string, re *regexp.Regexp, msg string) error {
	if err := validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && re.MatchString(s)
	}); err != nil {
		return err
	}

	return validate.RegisterTranslation(tag, trans,
		func(t ut.Translator) error {
			return t.Add(tag, msg, false)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			s, err := t.T(fe.Tag(), fe.Field())
			if err != nil {
				slog.Warn("failed to translate validation error", "tag", fe.Tag(), "error", err)
				return fe.Error()
			}
			return s
		},
	)
}
