package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/ailabben/dashboard-api/internal/model"
)

// StatsReader aggregates the download log.
type StatsReader interface {
	Stats(ctx context.Context, now time.Time, top int) (model.DownloadStats, error)
}

// TokenSweeper removes tokens past their expiry.
type TokenSweeper interface {
	CountExpired(ctx context.Context, before time.Time) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// AdminHandler serves the dashboard's maintenance endpoints.
type AdminHandler struct {
	Logs   StatsReader
	Tokens TokenSweeper
	Now    func() time.Time
}

func NewAdminHandler(logs StatsReader, tokens TokenSweeper) *AdminHandler {
	return &AdminHandler{Logs: logs, Tokens: tokens, Now: time.Now}
}

// Stats handles GET /api/downloads/stats?top=N (default 10, max 50).
func (h *AdminHandler) Stats(c echo.Context) error {
	top := 10
	if s := c.QueryParam("top"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 50 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "top must be between 1 and 50"})
		}
		top = n
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	stats, err := h.Logs.Stats(ctx, h.Now(), top)
	if err != nil {
		log.Error().Err(err).Msg("admin: stats query failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "stats unavailable"})
	}
	return c.JSON(http.StatusOK, stats)
}

// CleanupTokens handles POST /api/tokens/cleanup.  With ?dry_run=true it
// only reports how many tokens would be removed.
func (h *AdminHandler) CleanupTokens(c echo.Context) error {
	dry, _ := strconv.ParseBool(c.QueryParam("dry_run"))
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	now := h.Now()
	if dry {
		n, err := h.Tokens.CountExpired(ctx, now)
		if err != nil {
			log.Error().Err(err).Msg("admin: count expired tokens failed")
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cleanup failed"})
		}
		return c.JSON(http.StatusOK, echo.Map{"expired": n, "dry_run": true})
	}
	n, err := h.Tokens.DeleteExpired(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("admin: delete expired tokens failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cleanup failed"})
	}
	log.Info().Int64("deleted", n).Msg("admin: expired tokens removed")
	return c.JSON(http.StatusOK, echo.Map{"deleted": n})
}
