package middleware

// identity.go holds the context keys the auth middleware writes and the
// helpers handlers and other middleware use to read them back.

import "github.com/labstack/echo/v4"

const (
	ctxCaller     = "caller"
	ctxAuthMethod = "auth_method"
)

// Authentication methods stored under the auth_method key.
const (
	MethodJWT        = "jwt"
	MethodServiceKey = "service_key"
)

// CallerFrom returns the authenticated caller identity, or "" when the
// request carries none.  JWT callers are identified by email address,
// service-key callers by "service:<name>".
func CallerFrom(c echo.Context) string {
	if s, ok := c.Get(ctxCaller).(string); ok {
		return s
	}
	return ""
}

// AuthMethodFrom returns how the caller authenticated.
func AuthMethodFrom(c echo.Context) string {
	if s, ok := c.Get(ctxAuthMethod).(string); ok {
		return s
	}
	return ""
}

// userID is the caller identity used in rate-limit and cache keys.
func userID(c echo.Context) string {
	if s := CallerFrom(c); s != "" {
		return s
	}
	return "anon"
}
