package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/ailabben/dashboard-api/internal/utils"
)

// ServiceKeyHeader carries machine credentials in the form "<name>.<secret>".
const ServiceKeyHeader = "X-Service-Key"

// Credentials is what Authenticate checks requests against: the HS256
// secret for access tokens and the bcrypt hashes of service key secrets,
// keyed by service name.
type Credentials struct {
	JWTSecret   string
	ServiceKeys map[string]string
}

// Authenticate returns an Echo middleware that requires either a Bearer
// access token or a service key.  On success the caller identity and the
// method used are stored in the context; see CallerFrom.  Protected routes
// such as token issuance and the admin endpoints are wrapped with it.
func Authenticate(creds Credentials) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, method, status, msg := resolve(c, creds)
			if status != 0 {
				return c.JSON(status, echo.Map{"error": msg})
			}
			if caller == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing credentials"})
			}
			c.Set(ctxCaller, caller)
			c.Set(ctxAuthMethod, method)
			return next(c)
		}
	}
}

// OptionalIdentity records the caller when valid credentials are present
// and otherwise lets the request through untouched.  Delivery routes use
// it: the token is the credential, the identity only matters when strict
// binding is switched on.
func OptionalIdentity(creds Credentials) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if caller, method, status, _ := resolve(c, creds); status == 0 && caller != "" {
				c.Set(ctxCaller, caller)
				c.Set(ctxAuthMethod, method)
			}
			return next(c)
		}
	}
}

// resolve inspects the request headers.  A zero status with an empty
// caller means no credentials were offered at all.
func resolve(c echo.Context, creds Credentials) (caller, method string, status int, msg string) {
	h := c.Request().Header
	if auth := h.Get("Authorization"); auth != "" {
		if !strings.HasPrefix(auth, "Bearer ") {
			return "", "", http.StatusUnauthorized, "missing bearer token"
		}
		email, err := utils.ParseAccessToken(creds.JWTSecret, strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			return "", "", http.StatusUnauthorized, "invalid token"
		}
		return email, MethodJWT, 0, ""
	}
	if key := h.Get(ServiceKeyHeader); key != "" {
		name, secret, ok := strings.Cut(key, ".")
		hash, known := creds.ServiceKeys[name]
		if !ok || !known || secret == "" || !utils.VerifySecret(hash, secret) {
			return "", "", http.StatusUnauthorized, "invalid service key"
		}
		return "service:" + name, MethodServiceKey, 0, ""
	}
	return "", "", 0, ""
}
