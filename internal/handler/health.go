package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is a liveness probe for load balancers and monitoring.  It
// returns a plain text "ok".
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
