package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/quicktap/seat-booking/internal/middleware"
)

func newAuthServer(t *testing.T) *echo.Echo {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	e := echo.New()
	a := NewAuthHandler("admin@quicktap.local", string(hash), "jwt-test-secret", 30)
	e.POST("/auth/login", a.Login)
	e.GET("/v1/admin/seats/stats",
		func(c echo.Context) error { return c.JSON(http.StatusOK, echo.Map{"ok": true}) },
		middleware.JWTAuth("jwt-test-secret"),
		middleware.RequireRole("ADMIN"),
	)
	return e
}

func authedRequest(method, path, token string) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req, httptest.NewRecorder()
}

func TestLoginIssuesAdminToken(t *testing.T) {
	e := newAuthServer(t)

	rec := request(e, http.MethodPost, "/auth/login",
		`{"email":"admin@quicktap.local","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)

	// the issued token opens the admin surface
	req, rec2 := authedRequest(http.MethodGet, "/v1/admin/seats/stats", token)
	e.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusOK, rec2.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	e := newAuthServer(t)

	rec := request(e, http.MethodPost, "/auth/login",
		`{"email":"admin@quicktap.local","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = request(e, http.MethodPost, "/auth/login",
		`{"email":"intruder@example.com","password":"s3cret"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = request(e, http.MethodPost, "/auth/login", `{"email":"","password":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminSurfaceRequiresToken(t *testing.T) {
	e := newAuthServer(t)

	assert.Equal(t, http.StatusUnauthorized,
		request(e, http.MethodGet, "/v1/admin/seats/stats", "").Code)

	req, rec := authedRequest(http.MethodGet, "/v1/admin/seats/stats", "not-a-jwt")
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
