package handler

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health returns a liveness handler for load balancers.  When a DB
// handle is supplied the check also pings the booking ledger so a lost
// database takes the instance out of rotation.
func Health(db *sql.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		if db != nil {
			if err := db.PingContext(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{
					"status": "degraded",
					"error":  "database unreachable",
				})
			}
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	}
}
