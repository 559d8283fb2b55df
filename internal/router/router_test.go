package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"menuservice/internal/auth"
	"menuservice/internal/config"
	apperrors "menuservice/internal/errors"
	"menuservice/internal/handler"
	"menuservice/internal/metrics"
	"menuservice/internal/model"
)

const frontend = "http://localhost:3000"

type users map[uint]*model.User

func (u users) FindByID(_ context.Context, id uint) (*model.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, fmt.Errorf("user %d: %w", id, apperrors.ErrNotFound)
}

type noOwners struct{}

func (noOwners) OwnerOf(_ context.Context, id string) (uint, error) {
	return 0, fmt.Errorf("review %s: %w", id, apperrors.ErrNotFound)
}

// newServer registers every route. Handlers carry no services, so only
// requests stopped before the handler may be sent.
func newServer(t *testing.T) (*echo.Echo, *auth.JWTService) {
	t.Helper()
	tokens := auth.NewJWTService("router-secret", time.Hour)
	m := metrics.New()
	guard := auth.NewGuard(auth.GuardConfig{
		Tokens:  tokens,
		Users:   users{2: {ID: 2, Role: model.RoleUser}},
		Metrics: m,
	})

	e := echo.New()
	Register(e, &config.Config{FrontendURL: frontend}, m, guard, noOwners{},
		handler.NewAuthHandler(nil, handler.CookieConfig{TTL: time.Hour}),
		handler.NewMenuHandler(nil),
		handler.NewReviewHandler(nil),
	)
	return e, tokens
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	return body.Message
}

func TestHealthz(t *testing.T) {
	e, _ := newServer(t)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestMetricsEndpoint(t *testing.T) {
	e, _ := newServer(t)
	serve(e, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `menu_http_requests_total{method="GET",path="/healthz",status="200"} 1`)
}

func TestGuardsOnMenuWrites(t *testing.T) {
	e, tokens := newServer(t)
	userToken, _, err := tokens.GenerateAccessToken(2, model.RoleUser)
	require.NoError(t, err)

	tests := []struct {
		name    string
		method  string
		target  string
		token   string
		status  int
		message string
	}{
		{"create without token", http.MethodPost, "/api/menu", "", http.StatusUnauthorized, "Not authorized to access this route. No token provided."},
		{"create as user", http.MethodPost, "/api/menu", userToken, http.StatusForbidden, "You need one of these roles: admin to access this route"},
		{"update as user", http.MethodPut, "/api/menu/abc", userToken, http.StatusForbidden, "You need one of these roles: admin to access this route"},
		{"delete as user", http.MethodDelete, "/api/menu/abc", userToken, http.StatusForbidden, "You need one of these roles: admin to access this route"},
		{"review update on unknown review", http.MethodPut, "/api/reviews/abc", userToken, http.StatusNotFound, "Resource not found"},
		{"me without token", http.MethodGet, "/api/auth/me", "", http.StatusUnauthorized, "Not authorized to access this route. No token provided."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.token != "" {
				req.Header.Set(echo.HeaderAuthorization, "Bearer "+tt.token)
			}
			rec := serve(e, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, message(t, rec))
		})
	}

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `menu_auth_guard_rejections_total{stage="forbidden"} 3`)
}

func TestUnknownRoute(t *testing.T) {
	e, _ := newServer(t)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/nothing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", message(t, rec))
}

func TestCORSAllowsFrontendWithCredentials(t *testing.T) {
	e, _ := newServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/menu", nil)
	req.Header.Set(echo.HeaderOrigin, frontend)
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)

	rec := serve(e, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, frontend, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "true", rec.Header().Get(echo.HeaderAccessControlAllowCredentials))
}

func TestRateLimit(t *testing.T) {
	e, _ := newServer(t)

	for i := 0; i < rateLimitMax; i++ {
		rec := serve(e, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many requests from this IP, please try again later", message(t, rec))
}
