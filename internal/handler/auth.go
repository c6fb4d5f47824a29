package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/ailabben/dashboard-api/internal/middleware"
	"github.com/ailabben/dashboard-api/internal/service"
)

// AuthHandler bundles dependencies for the magic-link endpoints.
type AuthHandler struct {
	MagicLinks *service.MagicLinkService
}

func NewAuthHandler(m *service.MagicLinkService) *AuthHandler {
	return &AuthHandler{MagicLinks: m}
}

// ----- DTOs -----

type magicLinkReq struct {
	Email string `json:"email"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type sessionResp struct {
	Email  string    `json:"email"`
	Access tokenPart `json:"access"`
}

// RequestMagicLink handles POST /api/auth/magic-link.
func (h *AuthHandler) RequestMagicLink(c echo.Context) error {
	var req magicLinkReq
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	err := h.MagicLinks.Request(ctx, req.Email)
	switch {
	case err == nil:
		return c.JSON(http.StatusAccepted, echo.Map{"message": "magic link sent"})
	case errors.Is(err, service.ErrNotAllowlisted):
		log.Warn().Str("email", req.Email).Str("ip", c.RealIP()).Msg("auth: sign-in attempt outside allow-list")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	default:
		log.Error().Err(err).Msg("auth: magic link request failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not send magic link"})
	}
}

// Callback handles GET /api/auth/callback?token= and exchanges a login
// token for an access token.
func (h *AuthHandler) Callback(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	at, email, err := h.MagicLinks.Redeem(ctx, c.QueryParam("token"))
	switch {
	case err == nil:
	case errors.Is(err, service.ErrLoginTokenInvalid), errors.Is(err, service.ErrNotAllowlisted):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired link"})
	default:
		log.Error().Err(err).Msg("auth: redeem failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sign-in failed"})
	}
	return c.JSON(http.StatusOK, sessionResp{Email: email, Access: tokenPart{Token: at.Token, Expires: at.Exp}})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"identity":    middleware.CallerFrom(c),
		"auth_method": middleware.AuthMethodFrom(c),
	})
}
