package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/ailabben/dashboard-api/internal/middleware"
	"github.com/ailabben/dashboard-api/internal/model"
	"github.com/ailabben/dashboard-api/internal/service"
	"github.com/ailabben/dashboard-api/internal/storage"
	"github.com/ailabben/dashboard-api/internal/utils"
)

// User-facing error messages.  Specific reasons stay in the server log.
const (
	msgMethodNotAllowed = "Method not allowed"
	msgMissingToken     = "Missing token"
	msgAuthRequired     = "Authentication required"
	msgInvalidToken     = "Invalid or expired token"
	msgFileNotFound     = "File not found"
	msgFileUnavailable  = "File temporarily unavailable"
	msgInternal         = "Internal server error"
)

// DeliveryHandler turns a valid token into the bytes of its document.
// The same flow serves attachments (download) and inline previews; only
// the token type and the response headers differ.
type DeliveryHandler struct {
	Validator      *service.TokenValidator
	Objects        storage.ObjectStore
	Audit          *service.Auditor
	Bucket         string
	FetchTimeout   time.Duration // deadline for the storage read; exceeding it is served as 404
	StrictIdentity bool          // require a caller and bind it to the token's issued_to
}

func NewDeliveryHandler(v *service.TokenValidator, objects storage.ObjectStore, audit *service.Auditor, bucket string, fetchTimeout time.Duration, strict bool) *DeliveryHandler {
	if fetchTimeout <= 0 {
		fetchTimeout = 30 * time.Second
	}
	return &DeliveryHandler{Validator: v, Objects: objects, Audit: audit, Bucket: bucket, FetchTimeout: fetchTimeout, StrictIdentity: strict}
}

// Download serves GET /api/download?token= as an attachment and consumes
// the token.
func (h *DeliveryHandler) Download(c echo.Context) error {
	return h.deliver(c, model.ActionDownload)
}

// Preview serves GET /api/preview?token= inline.  Preview tokens are not
// consumed; they are only good for their short lifetime.
func (h *DeliveryHandler) Preview(c echo.Context) error {
	return h.deliver(c, model.ActionPreview)
}

// deliver runs validate -> fetch -> consume -> audit -> respond.  The
// token is consumed only once the bytes are in hand, so a storage failure
// leaves it redeemable.
func (h *DeliveryHandler) deliver(c echo.Context, action model.ActionType) error {
	if c.Request().Method != http.MethodGet {
		c.Response().Header().Set(echo.HeaderAllow, http.MethodGet)
		return c.JSON(http.StatusMethodNotAllowed, echo.Map{"error": msgMethodNotAllowed})
	}
	token := c.QueryParam("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msgMissingToken})
	}
	caller := ""
	if h.StrictIdentity {
		caller = middleware.CallerFrom(c)
		if caller == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": msgAuthRequired})
		}
	}
	logger := log.With().
		Str("action_type", string(action)).
		Str("token", utils.ShortToken(token)).
		Str("ip", c.RealIP()).
		Logger()

	reqCtx := c.Request().Context()
	ctx, cancel := context.WithTimeout(reqCtx, 5*time.Second)
	res, err := h.Validator.Check(ctx, token, action, caller)
	cancel()
	if err != nil {
		logger.Error().Err(err).Msg("delivery: token lookup failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": msgInternal})
	}
	if !res.Valid {
		logger.Info().Str("reason", string(res.Reason)).Str("document_id", res.DocumentID).Msg("delivery: token rejected")
		h.audit(c, action, res, nil, string(res.Reason))
		if res.Reason.DocumentGone() {
			return c.JSON(http.StatusNotFound, echo.Map{"error": msgFileNotFound})
		}
		return c.JSON(http.StatusForbidden, echo.Map{"error": msgInvalidToken})
	}

	fctx, fcancel := context.WithTimeout(reqCtx, h.FetchTimeout)
	data, err := h.Objects.FetchBytes(fctx, h.Bucket, res.FilePath)
	fcancel()
	if err != nil {
		logger.Warn().Err(err).Str("document_id", res.DocumentID).Str("path", res.FilePath).Msg("delivery: storage fetch failed")
		h.audit(c, action, res, nil, "storage: "+err.Error())
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrUnavailable) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": msgFileNotFound})
		}
		return c.JSON(http.StatusBadGateway, echo.Map{"error": msgFileUnavailable})
	}

	if action.SingleUse() {
		ctx, cancel := context.WithTimeout(reqCtx, 5*time.Second)
		won, err := h.Validator.Consume(ctx, token)
		cancel()
		if err != nil {
			logger.Error().Err(err).Msg("delivery: mark used failed")
			h.audit(c, action, res, nil, "mark used failed")
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": msgInternal})
		}
		if !won {
			logger.Info().Str("reason", string(service.ReasonAlreadyUsed)).Msg("delivery: lost redemption race")
			h.audit(c, action, res, nil, string(service.ReasonAlreadyUsed))
			return c.JSON(http.StatusForbidden, echo.Map{"error": msgInvalidToken})
		}
	}

	size := int64(len(data))
	h.audit(c, action, res, &size, "")
	logger.Info().Str("document_id", res.DocumentID).Int64("bytes", size).Msg("delivery: served")

	name := res.FileName
	if name == "" {
		name = "document" + path.Ext(res.FilePath)
	}
	hdr := c.Response().Header()
	disposition := "attachment"
	hdr.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	if action == model.ActionPreview {
		disposition = "inline"
		hdr.Set("Cache-Control", "private, no-cache, no-store, must-revalidate")
		hdr.Set("X-Content-Type-Options", "nosniff")
		hdr.Set("X-Frame-Options", "SAMEORIGIN")
	}
	hdr.Set("Pragma", "no-cache")
	hdr.Set("Expires", "0")
	hdr.Set(echo.HeaderContentDisposition, disposition+`; filename="`+url.PathEscape(name)+`"`)
	hdr.Set(echo.HeaderContentLength, strconv.FormatInt(size, 10))
	return c.Blob(http.StatusOK, utils.ContentTypeFor(name), data)
}

// audit records the attempt when the token row was resolved.  Attempts
// with unknown tokens have no document to attribute and only reach the
// server log.
func (h *DeliveryHandler) audit(c echo.Context, action model.ActionType, res service.Result, size *int64, failure string) {
	if res.TokenID == "" {
		return
	}
	tokenID := res.TokenID
	user := middleware.CallerFrom(c)
	if user == "" {
		user = res.IssuedTo
	}
	h.Audit.Record(c.Request().Context(), model.DownloadLogEntry{
		TokenID:            &tokenID,
		DocumentID:         res.DocumentID,
		UserID:             user,
		ActionType:         action,
		IPAddress:          c.RealIP(),
		UserAgent:          c.Request().UserAgent(),
		FileSize:           size,
		DownloadSuccessful: failure == "",
		ErrorMessage:       failure,
	})
}
