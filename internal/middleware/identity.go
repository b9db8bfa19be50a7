package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/model"
)

const identityKey = "identity"

// Identity is the authenticated caller attached to a request by JWTAuth.
type Identity struct {
	UserID uint64
	Role   model.Role
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool { return i.Role == model.RoleAdmin }

// IdentityFrom returns the caller attached by JWTAuth.  ok is false on
// routes that are not behind JWTAuth.
func IdentityFrom(c echo.Context) (Identity, bool) {
	id, ok := c.Get(identityKey).(Identity)
	return id, ok
}

// SetIdentity attaches id to the request.
func SetIdentity(c echo.Context, id Identity) {
	c.Set(identityKey, id)
}

// callerKey identifies the caller for rate limiting; "anon" when the
// limiter runs ahead of JWTAuth.
func callerKey(c echo.Context) string {
	if id, ok := IdentityFrom(c); ok {
		return strconv.FormatUint(id.UserID, 10)
	}
	return "anon"
}
