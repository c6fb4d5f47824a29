package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Health is the liveness probe used by load balancers.  It returns a plain
// text "ok" with 200 as long as the process serves requests.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Ready returns the readiness probe: 200 when the database answers a ping
// within two seconds, 503 otherwise.  A nil pinger (memory driver) is
// always ready.
func Ready(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
			}
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	}
}
