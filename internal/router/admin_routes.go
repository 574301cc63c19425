package router

import (
	"github.com/labstack/echo/v4"

	"github.com/quicktap/seat-booking/internal/handler"
	"github.com/quicktap/seat-booking/internal/middleware"
)

// RegisterAdmin registers the admin login endpoint and the ADMIN-scoped
// booking management endpoints under /v1/admin/seats.  All management
// routes require a valid JWT and the ADMIN role.
func RegisterAdmin(e *echo.Echo, a *handler.AuthHandler, h *handler.AdminSeatHandler, jwtSecret string) {
	e.POST("/auth/login", a.Login)

	g := e.Group(
		"/v1/admin/seats",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)
	g.GET("", h.ListBookings)
	g.GET("/stats", h.Stats)
	g.POST("/expire/:orderId", h.ForceExpire)
	g.PATCH("/extend/:orderId", h.Extend)
	g.POST("/complete/:orderId", h.Complete)
}
