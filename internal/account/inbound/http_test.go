package inbound

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/stockmaster/internal/account/entity"
	"github.com/shandysiswandi/stockmaster/internal/account/usecase"
	"github.com/shandysiswandi/stockmaster/internal/pkg/clock"
	"github.com/shandysiswandi/stockmaster/internal/pkg/config"
	"github.com/shandysiswandi/stockmaster/internal/pkg/goerror"
	"github.com/shandysiswandi/stockmaster/internal/pkg/jwt"
	"github.com/shandysiswandi/stockmaster/internal/pkg/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUC struct {
	registerErr error
	profileID   int64
}

func (f *fakeUC) Register(_ context.Context, in usecase.RegisterInput) (*entity.Account, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &entity.Account{ID: 9, Email: in.Email, Name: in.Name, Role: entity.RoleUser}, nil
}

func (f *fakeUC) PasswordReset(context.Context, usecase.PasswordResetInput) error { return nil }

func (f *fakeUC) Login(context.Context, usecase.LoginInput) (*usecase.LoginOutput, error) {
	return &usecase.LoginOutput{AccessToken: "tok"}, nil
}

func (f *fakeUC) Profile(ctx context.Context) (*entity.Account, error) {
	f.profileID = jwt.GetAuth(ctx).AccountID
	return &entity.Account{ID: f.profileID, Email: "a@x.com", Role: entity.RoleUser}, nil
}

type staticID string

func (s staticID) Generate() string { return string(s) }

func setup(t *testing.T, f *fakeUC) (http.Handler, jwt.JWT) {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte("app:\n  name: test\n"))
	require.NoError(t, err)
	j, err := jwt.NewHS512(jwt.Config{
		Secret: []byte(strings.Repeat("s", 64)), Issuer: "t", Audiences: []string{"t"},
		TTL: time.Hour, Clock: clock.New(), UUID: staticID("jti"),
	})
	require.NoError(t, err)

	r := router.NewRouter(router.Config{Config: cfg, UUID: staticID("cid"), JWT: j})
	RegisterHTTPEndpoint(r, f)
	return r, j
}

func do(h http.Handler, method, path, body, token string) (int, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp map[string]any
	//nolint:errcheck // asserted by callers
	json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec.Code, resp
}

func TestRegister(t *testing.T) {
	h, _ := setup(t, &fakeUC{})

	code, resp := do(h, http.MethodPost, "/api/v1/account/register", `{"email":"a@x.com","name":"Ann","password":"secret-pass"}`, "")
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Account created", resp["message"])
	acc := resp["data"].(map[string]any)["account"].(map[string]any)
	assert.Equal(t, "9", acc["id"])
	assert.NotContains(t, acc, "password_hash")

	h, _ = setup(t, &fakeUC{registerErr: goerror.NewBusiness("email not verified", goerror.CodeForbidden)})
	code, resp = do(h, http.MethodPost, "/api/v1/account/register", `{"email":"a@x.com","name":"Ann","password":"secret-pass"}`, "")
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "email not verified", resp["message"])
}

func TestLoginAndProfile(t *testing.T) {
	f := &fakeUC{}
	h, j := setup(t, f)

	code, resp := do(h, http.MethodPost, "/api/v1/account/login", `{"email":"a@x.com","password":"x"}`, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "tok", resp["data"].(map[string]any)["access_token"])

	code, _ = do(h, http.MethodGet, "/api/v1/account/profile", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	tok, err := j.Generate(77, "a@x.com", "user")
	require.NoError(t, err)
	code, resp = do(h, http.MethodGet, "/api/v1/account/profile", "", tok)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(77), f.profileID)
	assert.Equal(t, "77", resp["data"].(map[string]any)["id"])

	code, _ = do(h, http.MethodPost, "/api/v1/account/password-reset", `{"email":"a@x.com","password":"secret-pass"}`, "")
	assert.Equal(t, http.StatusOK, code)
}
