package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

const dbTimeout = 5 * time.Second

// dbContext bounds a handler's storage calls.
func dbContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// pathID parses a positive numeric path parameter.  ok is false and a 400
// has been written when it is malformed.
func pathID(c echo.Context, name string) (id uint64, ok bool, err error) {
	id, perr := strconv.ParseUint(c.Param(name), 10, 64)
	if perr != nil || id == 0 {
		return 0, false, badRequest(c, "invalid "+name)
	}
	return id, true, nil
}
