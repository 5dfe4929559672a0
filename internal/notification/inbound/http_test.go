package inbound

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/shandysiswandi/stockmaster/internal/notification/entity"
	"github.com/shandysiswandi/stockmaster/internal/notification/usecase"
	"github.com/shandysiswandi/stockmaster/internal/pkg/clock"
	"github.com/shandysiswandi/stockmaster/internal/pkg/config"
	"github.com/shandysiswandi/stockmaster/internal/pkg/goerror"
	"github.com/shandysiswandi/stockmaster/internal/pkg/jwt"
	"github.com/shandysiswandi/stockmaster/internal/pkg/pgxcasbin"
	"github.com/shandysiswandi/stockmaster/internal/pkg/router"
	"github.com/shandysiswandi/stockmaster/internal/pkg/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUC struct {
	created  *usecase.CreateInput
	markedID int64

	mu         sync.Mutex
	registered []usecase.ConsumeAccountRegisteredInput
	resets     []usecase.ConsumeAccountPasswordResetInput
	consumeErr error
}

func (f *fakeUC) List(context.Context) ([]entity.Notification, error) {
	return []entity.Notification{
		{ID: 2, UserID: 0, Type: entity.TypeSystem, Title: "b", Level: entity.LevelCritical},
		{ID: 1, UserID: 7, Type: entity.TypeStockLow, Title: "a", Level: entity.LevelWarning,
			EntityRef: valueobject.JSONMap{"kind": "item", "id": "sku-1"}},
	}, nil
}

func (f *fakeUC) UnreadCount(context.Context) (int64, error) { return 3, nil }

func (f *fakeUC) MarkRead(_ context.Context, in usecase.MarkReadInput) error {
	if in.ID == 404 {
		return goerror.NewBusiness("notification not found", goerror.CodeNotFound)
	}
	f.markedID = in.ID
	return nil
}

func (f *fakeUC) Create(_ context.Context, in usecase.CreateInput) (*entity.Notification, error) {
	f.created = &in
	return &entity.Notification{ID: 5, UserID: in.UserID, Title: in.Title, Level: entity.Level(in.Level)}, nil
}

func (f *fakeUC) ConsumeAccountRegistered(_ context.Context, in usecase.ConsumeAccountRegisteredInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, in)
	return f.consumeErr
}

func (f *fakeUC) ConsumeAccountPasswordReset(_ context.Context, in usecase.ConsumeAccountPasswordResetInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, in)
	return f.consumeErr
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

	m, err := model.NewModelFromString(pgxcasbin.RBACModel)
	require.NoError(t, err)
	enforcer, err := casbin.NewEnforcer(m)
	require.NoError(t, err)
	_, err = enforcer.AddPolicy("admin", "notifications", "create")
	require.NoError(t, err)

	r := router.NewRouter(router.Config{Config: cfg, UUID: staticID("cid"), JWT: j, Enforcer: enforcer})
	RegisterHTTPEndpoint(r, f)
	return r, j
}

func do(t *testing.T, h http.Handler, method, path, body, token string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestHTTP(t *testing.T) {
	f := &fakeUC{}
	h, j := setup(t, f)

	user, err := j.Generate(7, "u@x.com", "user")
	require.NoError(t, err)
	admin, err := j.Generate(1, "a@x.com", "admin")
	require.NoError(t, err)

	code, _ := do(t, h, http.MethodGet, "/api/v1/notifications", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, resp := do(t, h, http.MethodGet, "/api/v1/notifications", "", user)
	assert.Equal(t, http.StatusOK, code)
	data := resp["data"].([]any)
	require.Len(t, data, 2)
	assert.Equal(t, "2", data[0].(map[string]any)["id"])
	assert.NotContains(t, data[0].(map[string]any), "entity_ref")
	assert.Equal(t, map[string]any{"kind": "item", "id": "sku-1"}, data[1].(map[string]any)["entity_ref"])
	assert.InDelta(t, 2, resp["meta"].(map[string]any)["count"], 0)

	code, resp = do(t, h, http.MethodGet, "/api/v1/notifications/unread-count", "", user)
	assert.Equal(t, http.StatusOK, code)
	assert.InDelta(t, 3, resp["data"].(map[string]any)["unread"], 0)

	code, _ = do(t, h, http.MethodPut, "/api/v1/notifications/9/read", "", user)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(9), f.markedID)

	code, _ = do(t, h, http.MethodPut, "/api/v1/notifications/404/read", "", user)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, h, http.MethodPut, "/api/v1/notifications/abc/read", "", user)
	assert.Equal(t, http.StatusBadRequest, code)

	body := `{"user_id":"7","type":"stock_low","title":"Low stock","message":"SKU-1 below 5","level":"warning","entity_ref":{"kind":"item","id":"sku-1"}}`
	code, _ = do(t, h, http.MethodPost, "/api/v1/notifications", body, user)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Nil(t, f.created)

	code, resp = do(t, h, http.MethodPost, "/api/v1/notifications", body, admin)
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Notification created", resp["message"])
	require.NotNil(t, f.created)
	assert.Equal(t, int64(7), f.created.UserID)
	assert.Equal(t, "sku-1", f.created.EntityRef.String("id"))
}

func (f *fakeUC) counts() (registered, resets int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.registered), len(f.resets)
}
