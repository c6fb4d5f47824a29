// Package router registers the HTTP routes and the middleware each group
// of routes runs behind.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/ailabben/dashboard-api/internal/config"
	"github.com/ailabben/dashboard-api/internal/handler"
	"github.com/ailabben/dashboard-api/internal/middleware"
)

// Handlers bundles the endpoint implementations.
type Handlers struct {
	Delivery *handler.DeliveryHandler
	Tokens   *handler.TokenHandler
	Admin    *handler.AdminHandler
	Auth     *handler.AuthHandler
	Ready    echo.HandlerFunc
}

// Options configures the middleware applied to the routes.  Redis may be
// nil, which disables rate limiting and response caching.
type Options struct {
	Credentials middleware.Credentials
	Allowlist   []string
	RateLimit   config.RateLimitConfig
	Cache       config.CacheConfig
	Redis       *redis.Client
}

// Register wires every route onto e.
func Register(e *echo.Echo, h Handlers, o Options) {
	e.GET("/healthz", handler.Health)
	if h.Ready != nil {
		e.GET("/readyz", h.Ready)
	}

	// Delivery is reachable with nothing but the token.  Any method is
	// routed so the handler can answer 405 itself.  /download and
	// /preview are kept as aliases for links mailed out before the /api
	// prefix.
	limit := middleware.NewTokenBucket(o.RateLimit, o.Redis)
	identity := middleware.OptionalIdentity(o.Credentials)
	for _, prefix := range []string{"/api", ""} {
		e.Any(prefix+"/download", h.Delivery.Download, limit, identity)
		e.Any(prefix+"/preview", h.Delivery.Preview, limit, identity)
	}

	authn := middleware.Authenticate(o.Credentials)
	allowed := middleware.RequireAllowlisted(o.Allowlist)

	auth := e.Group("/api/auth")
	auth.POST("/magic-link", h.Auth.RequestMagicLink, limit)
	auth.GET("/callback", h.Auth.Callback, limit)
	auth.GET("/me", h.Auth.Me, authn)

	// Everything below needs a signed-in, allow-listed user or a service key.
	api := e.Group("/api")
	api.POST("/tokens", h.Tokens.Issue, authn, allowed, limit)
	api.POST("/tokens/cleanup", h.Admin.CleanupTokens, authn, allowed)
	api.GET("/downloads/stats", h.Admin.Stats, authn, allowed, middleware.NewRedisCache(o.Cache, o.Redis))
}
