package middleware

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RequestLogger writes one structured access-log line per request.  Only
// the URI path is logged: query strings on delivery routes carry bearer
// tokens.
func RequestLogger() echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogURIPath:   true,
		LogRoutePath: true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			var ev *zerolog.Event
			switch {
			case v.Status >= 500:
				ev = log.Error()
			case v.Status >= 400:
				ev = log.Warn()
			default:
				ev = log.Info()
			}
			if v.Error != nil {
				ev = ev.Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("path", v.URIPath).
				Str("route", v.RoutePath).
				Int("status", v.Status).
				Str("ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Str("caller", CallerFrom(c)).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
