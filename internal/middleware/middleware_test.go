package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"porto/internal/config"
	"porto/internal/domain/model"
	"porto/internal/middleware"
	"porto/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// =====================
// レスポンス確認用
// =====================

type mwErrorResponse struct {
	Message string `json:"message"`
}

type mwOKResponse struct {
	UserID       int64  `json:"user_id"`
	Role         string `json:"role"`
	TokenVersion int    `json:"token_version"`
}

// =====================
// UserRepository モック
// =====================

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepo) FindByIDs(ctx context.Context, ids []int64) (map[int64]model.User, error) {
	panic("not used in middleware tests")
}

func (m *MockUserRepo) AdjustCounter(ctx context.Context, id int64, counter repository.UserCounter, delta int) error {
	panic("not used in middleware tests")
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

// =====================
// helper
// =====================

var jwtCfg = config.JWTConfig{Secret: "test-secret"}

func mustMakeJWT(t *testing.T, secret string, claims jwt.MapClaims, method jwt.SigningMethod) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	return s
}

func claimsFor(sub int64, role string, tv int) jwt.MapClaims {
	return jwt.MapClaims{"sub": sub, "role": role, "tv": tv, "iat": 1, "exp": 9999999999}
}

func runRequest(e *echo.Echo, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func echoContext(c echo.Context) error {
	userID, _ := c.Get(middleware.CtxUserIDKey).(int64)
	role, _ := c.Get(middleware.CtxUserRoleKey).(string)
	tv, _ := c.Get(middleware.CtxTokenVersionKey).(int)
	return c.JSON(http.StatusOK, mwOKResponse{UserID: userID, Role: role, TokenVersion: tv})
}

// =====================
// AuthJWT
// =====================

func TestAuthJWT_Rejects(t *testing.T) {
	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"bad scheme", "Token abc.def.ghi"},
		{"empty token", "Bearer  "},
		{"bad signature", "Bearer " + mustMakeJWT(t, "wrong-secret", claimsFor(1, "USER", 0), jwt.SigningMethodHS256)},
		{"wrong alg", "Bearer " + mustMakeJWT(t, jwtCfg.Secret, claimsFor(1, "USER", 0), jwt.SigningMethodHS512)},
		{"no sub", "Bearer " + mustMakeJWT(t, jwtCfg.Secret, jwt.MapClaims{"role": "USER"}, jwt.SigningMethodHS256)},
		{"negative tv", "Bearer " + mustMakeJWT(t, jwtCfg.Secret, claimsFor(1, "USER", -1), jwt.SigningMethodHS256)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			e.GET("/protected", echoContext, middleware.AuthJWT(jwtCfg))

			rec := runRequest(e, tc.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			var body mwErrorResponse
			_ = json.NewDecoder(rec.Body).Decode(&body)
			assert.Equal(t, "unauthorized", body.Message)
		})
	}
}

func TestAuthJWT_SetsContext(t *testing.T) {
	e := echo.New()
	e.GET("/protected", echoContext, middleware.AuthJWT(jwtCfg))

	raw := mustMakeJWT(t, jwtCfg.Secret, claimsFor(123, "ADMIN", 7), jwt.SigningMethodHS256)
	rec := runRequest(e, "Bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body mwOKResponse
	_ = json.NewDecoder(rec.Body).Decode(&body)
	assert.Equal(t, int64(123), body.UserID)
	assert.Equal(t, "ADMIN", body.Role)
	assert.Equal(t, 7, body.TokenVersion)
}

func TestAuthJWT_StringSubAndDefaults(t *testing.T) {
	e := echo.New()
	e.GET("/protected", echoContext, middleware.AuthJWT(jwtCfg))

	raw := mustMakeJWT(t, jwtCfg.Secret, jwt.MapClaims{"sub": "42"}, jwt.SigningMethodHS256)
	rec := runRequest(e, "Bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body mwOKResponse
	_ = json.NewDecoder(rec.Body).Decode(&body)
	assert.Equal(t, int64(42), body.UserID)
	assert.Equal(t, "USER", body.Role)
	assert.Equal(t, 0, body.TokenVersion)
}

// =====================
// TokenVersionGuard
// =====================

func TestTokenVersionGuard_MissingContext(t *testing.T) {
	e := echo.New()
	e.GET("/protected", echoContext, middleware.TokenVersionGuard(new(MockUserRepo)))

	rec := runRequest(e, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenVersionGuard(t *testing.T) {
	cases := []struct {
		name     string
		user     *model.User
		wantCode int
	}{
		{"version matches", &model.User{ID: 1, Role: model.RoleUser, TokenVersion: 5, IsActive: true}, http.StatusOK},
		{"version mismatch", &model.User{ID: 1, Role: model.RoleUser, TokenVersion: 6, IsActive: true}, http.StatusUnauthorized},
		{"inactive user", &model.User{ID: 1, Role: model.RoleUser, TokenVersion: 5, IsActive: false}, http.StatusForbidden},
		{"unknown user", nil, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			users := new(MockUserRepo)
			users.On("FindByID", mock.Anything, int64(1)).Return(tc.user, nil).Once()

			e := echo.New()
			e.GET("/protected", echoContext, middleware.AuthJWT(jwtCfg), middleware.TokenVersionGuard(users))

			raw := mustMakeJWT(t, jwtCfg.Secret, claimsFor(1, "USER", 5), jwt.SigningMethodHS256)
			rec := runRequest(e, "Bearer "+raw)
			assert.Equal(t, tc.wantCode, rec.Code)
			users.AssertExpectations(t)
		})
	}
}

// トークンのroleよりDBのroleを信じる
func TestTokenVersionGuard_UsesStoredRole(t *testing.T) {
	users := new(MockUserRepo)
	users.On("FindByID", mock.Anything, int64(1)).
		Return(&model.User{ID: 1, Role: model.RoleUser, IsActive: true}, nil).Once()

	e := echo.New()
	e.GET("/protected", echoContext,
		middleware.AuthJWT(jwtCfg), middleware.TokenVersionGuard(users), middleware.AdminRoleGuard())

	raw := mustMakeJWT(t, jwtCfg.Secret, claimsFor(1, "ADMIN", 0), jwt.SigningMethodHS256)
	rec := runRequest(e, "Bearer "+raw)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// =====================
// AdminRoleGuard
// =====================

func TestAdminRoleGuard(t *testing.T) {
	e := echo.New()
	e.GET("/protected", echoContext, middleware.AuthJWT(jwtCfg), middleware.AdminRoleGuard())

	admin := mustMakeJWT(t, jwtCfg.Secret, claimsFor(1, "ADMIN", 0), jwt.SigningMethodHS256)
	user := mustMakeJWT(t, jwtCfg.Secret, claimsFor(2, "USER", 0), jwt.SigningMethodHS256)

	assert.Equal(t, http.StatusOK, runRequest(e, "Bearer "+admin).Code)
	assert.Equal(t, http.StatusForbidden, runRequest(e, "Bearer "+user).Code)
}

// =====================
// RequestLogger
// =====================

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	e := echo.New()
	e.Use(middleware.RequestLogger(zap.New(core)))
	e.GET("/ping", func(c echo.Context) error {
		rid, _ := c.Get(middleware.CtxRequestIDKey).(string)
		return c.String(http.StatusOK, rid)
	})
	e.GET("/boom", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusInternalServerError, "boom")
	})

	t.Run("generates request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		rid := rec.Header().Get(middleware.HeaderRequestID)
		assert.NotEmpty(t, rid)
		assert.Equal(t, rid, rec.Body.String())
	})

	t.Run("keeps incoming request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(middleware.HeaderRequestID, "abc-123")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, "abc-123", rec.Header().Get(middleware.HeaderRequestID))
	})

	t.Run("logs errors at error level", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/boom", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		entries := logs.FilterMessage("request").FilterField(zap.Int("status", 500)).All()
		if assert.Len(t, entries, 1) {
			assert.Equal(t, zap.ErrorLevel, entries[0].Level)
		}
	})
}
