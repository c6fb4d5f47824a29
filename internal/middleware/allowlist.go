package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireAllowlisted aborts with 403 unless the JWT caller's email is in
// the allow-list.  Service-key callers were admitted by configuration and
// pass.  It assumes Authenticate ran first.
func RequireAllowlisted(emails []string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(emails))
	for _, e := range emails {
		allowed[strings.ToLower(strings.TrimSpace(e))] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if AuthMethodFrom(c) == MethodServiceKey {
				return next(c)
			}
			if !allowed[strings.ToLower(CallerFrom(c))] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
