package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quicktap/seat-booking/internal/handler"
)

// RegisterRoutes registers routes that do not require authentication
// and are not part of the booking API: the health check probed by load
// balancers and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
