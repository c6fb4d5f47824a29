package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/ailabben/dashboard-api/internal/middleware"
	"github.com/ailabben/dashboard-api/internal/model"
	"github.com/ailabben/dashboard-api/internal/service"
	"github.com/ailabben/dashboard-api/internal/utils"
)

// TokenHandler issues download and preview tokens to signed-in callers.
type TokenHandler struct {
	Issuer *service.TokenIssuer
}

func NewTokenHandler(i *service.TokenIssuer) *TokenHandler {
	return &TokenHandler{Issuer: i}
}

// ----- DTOs -----

type issueReq struct {
	DocumentID       string            `json:"document_id"`
	ActionType       string            `json:"action_type"`        // download | preview, default download
	ExpiresInMinutes int               `json:"expires_in_minutes"` // 0 selects the default for the action
	Metadata         map[string]string `json:"metadata"`
}

type issueResp struct {
	Success     bool      `json:"success"`
	Token       string    `json:"token"`
	DownloadURL string    `json:"download_url,omitempty"`
	PreviewURL  string    `json:"preview_url,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
	ActionType  string    `json:"action_type"`
	// Previewable tells the client whether an inline preview will render
	// or it should offer the download link instead.  Omitted when the
	// document's file name is unknown.
	Previewable *bool `json:"previewable,omitempty"`
}

// Issue handles POST /api/tokens.  The caller identity comes from the
// auth middleware; the issuing IP and user agent are kept as metadata.
func (h *TokenHandler) Issue(c echo.Context) error {
	var req issueReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	meta := map[string]string{}
	for k, v := range req.Metadata {
		meta[k] = v
	}
	meta["ip"] = c.RealIP()
	if ua := c.Request().UserAgent(); ua != "" {
		meta["user_agent"] = ua
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tok, err := h.Issuer.Issue(ctx, service.IssueRequest{
		DocumentID: req.DocumentID,
		Caller:     middleware.CallerFrom(c),
		Action:     model.ActionType(strings.ToLower(strings.TrimSpace(req.ActionType))),
		TTLMinutes: req.ExpiresInMinutes,
		Metadata:   meta,
	})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrAuthentication):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	case errors.Is(err, service.ErrInvalidAction):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "action_type must be download or preview"})
	case errors.Is(err, service.ErrInvalidTTL):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrDocumentNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "document not found"})
	default:
		log.Error().Err(err).Str("document_id", req.DocumentID).Msg("token: issue failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}

	resp := issueResp{Success: true, Token: tok.Token, ExpiresAt: tok.ExpiresAt, ActionType: string(tok.Action)}
	if tok.FileName != "" {
		ok := utils.IsPreviewable(tok.FileName)
		resp.Previewable = &ok
	}
	if tok.Action == model.ActionPreview {
		resp.PreviewURL = tok.URL
	} else {
		resp.DownloadURL = tok.URL
	}
	return c.JSON(http.StatusCreated, resp)
}
