package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/quicktap/seat-booking/internal/utils"
)

// AuthHandler implements the admin login endpoint.  The service has a
// single privileged identity provisioned through the environment
// (ADMIN_EMAIL / ADMIN_PASSWORD_HASH); customer traffic is anonymous
// and never authenticates.
type AuthHandler struct {
	AdminEmail        string
	AdminPasswordHash string
	JWTSecret         string
	AccessTTLMin      int
}

// NewAuthHandler constructs an AuthHandler from the configured admin
// credential and token settings.
func NewAuthHandler(adminEmail, adminPasswordHash, jwtSecret string, accessTTLMin int) *AuthHandler {
	return &AuthHandler{
		AdminEmail:        adminEmail,
		AdminPasswordHash: adminPasswordHash,
		JWTSecret:         jwtSecret,
		AccessTTLMin:      accessTTLMin,
	}
}

// Login handles POST /auth/login.  On a matching email and password it
// returns a short-lived ADMIN access token for the dashboard.  The
// same generic 401 covers unknown email and wrong password so the
// endpoint does not leak which part failed.
func (h *AuthHandler) Login(c echo.Context) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Email == "" || body.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}
	if body.Email != h.AdminEmail || !utils.VerifyPassword(h.AdminPasswordHash, body.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	tok, err := utils.NewAccessToken(h.JWTSecret, h.AdminEmail, "ADMIN", h.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue token"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token": tok.Token,
		"expires_at":   tok.Exp.Format(time.RFC3339),
	})
}
