// Package jwt issues and verifies the HS512 access tokens handed out at login.
package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidSigningMethod = errors.New("invalid JWT signing method")
	ErrSigningKeyTooShort   = errors.New("HS512 signing key must be at least 64 bytes (512 bits)")
	ErrTokenExpired         = errors.New("JWT token has expired")
	ErrInvalidToken         = errors.New("invalid token")
)

// JWT generates and verifies access tokens.
type JWT interface {
	Generate(accountID int64, email, role string) (string, error)
	Verify(tokenStr string) (Claims, error)
}

type clocker interface {
	Now() time.Time
}

type generator interface {
	Generate() string
}

type authKey struct{}

type Config struct {
	// Secret is the HMAC key, at least 64 bytes.
	Secret    []byte
	Issuer    string
	Audiences []string
	TTL       time.Duration
	Clock     clocker
	// UUID generates the jti claim.
	UUID generator
}

// Claims are the registered claims plus the account identity.
type Claims struct {
	jwt.RegisteredClaims
	AccountID int64  `json:"account_id,string"`
	Email     string `json:"email"`
	// Role is the casbin subject used for authorization.
	Role string `json:"role"`
}

// GetAuth returns the claims stored by the authentication middleware, or nil.
func GetAuth(ctx context.Context) *Claims {
	clm, ok := ctx.Value(authKey{}).(Claims)
	if !ok {
		return nil
	}

	return &clm
}

func SetAuth(ctx context.Context, clm Claims) context.Context {
	return context.WithValue(ctx, authKey{}, clm)
}
