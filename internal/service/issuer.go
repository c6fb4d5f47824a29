package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ailabben/dashboard-api/internal/model"
	"github.com/ailabben/dashboard-api/internal/repository"
	"github.com/ailabben/dashboard-api/internal/utils"
)

// Lifetime bounds in minutes: a week for download links (they get mailed
// out), an hour for preview tokens.
const (
	MinTTLMinutes         = 1
	MaxDownloadTTLMinutes = 7 * 24 * 60
	MaxPreviewTTLMinutes  = 60
)

// tokenBytes is the entropy of a bearer token before hex encoding.
const tokenBytes = 32

// IssuerConfig carries the values used to build tokens and links.
type IssuerConfig struct {
	BaseURL            string
	DownloadTTLMinutes int
	PreviewTTLMinutes  int
}

// IssueRequest describes a token to mint.  A zero TTLMinutes selects the
// default for the action type; an empty Action means download.
type IssueRequest struct {
	DocumentID string
	Caller     string
	Action     model.ActionType
	TTLMinutes int
	Metadata   map[string]string
}

// IssuedToken is what the caller hands to the browser.
type IssuedToken struct {
	Token     string           `json:"token"`
	URL       string           `json:"url"`
	ExpiresAt time.Time        `json:"expires_at"`
	Action    model.ActionType `json:"action_type"`
	FileName  string           `json:"file_name,omitempty"` // empty when the issuer has no document store
}

// TokenIssuer mints download and preview tokens.
type TokenIssuer struct {
	tokens TokenStore
	docs   DocumentStore
	cfg    IssuerConfig
	now    func() time.Time
}

// NewTokenIssuer returns an issuer.  docs may be nil, in which case the
// document reference is only checked when the token is redeemed.
func NewTokenIssuer(tokens TokenStore, docs DocumentStore, cfg IssuerConfig) *TokenIssuer {
	if cfg.DownloadTTLMinutes <= 0 {
		cfg.DownloadTTLMinutes = 60
	}
	if cfg.PreviewTTLMinutes <= 0 {
		cfg.PreviewTTLMinutes = 5
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &TokenIssuer{tokens: tokens, docs: docs, cfg: cfg, now: time.Now}
}

// WithClock replaces the time source.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	i.now = now
	return i
}

// Issue persists a new token and returns it with its redemption URL.
// TTLMinutes follows the zero-value convention: 0 selects the action's
// default lifetime, while negative values and anything outside
// MinTTLMinutes..Max{Download,Preview}TTLMinutes fail with ErrInvalidTTL.
func (i *TokenIssuer) Issue(ctx context.Context, req IssueRequest) (IssuedToken, error) {
	caller := strings.TrimSpace(req.Caller)
	if caller == "" {
		return IssuedToken{}, ErrAuthentication
	}
	action := req.Action
	if action == "" {
		action = model.ActionDownload
	}
	if !action.Valid() {
		return IssuedToken{}, ErrInvalidAction
	}
	ttl, err := i.resolveTTL(action, req.TTLMinutes)
	if err != nil {
		return IssuedToken{}, err
	}
	docID := strings.TrimSpace(req.DocumentID)
	if docID == "" {
		return IssuedToken{}, ErrDocumentNotFound
	}
	var fileName string
	if i.docs != nil {
		doc, err := i.docs.GetDocumentMeta(ctx, docID)
		if err != nil {
			if errors.Is(err, repository.ErrDocumentNotFound) {
				return IssuedToken{}, ErrDocumentNotFound
			}
			return IssuedToken{}, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		fileName = doc.FileName
	}

	raw, err := utils.NewOpaqueToken(tokenBytes)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("generate token: %w", err)
	}
	now := i.now().UTC()
	row := model.DownloadToken{
		ID:         uuid.NewString(),
		Token:      raw,
		DocumentID: docID,
		IssuedTo:   caller,
		ActionType: action,
		IssuedAt:   now,
		ExpiresAt:  now.Add(time.Duration(ttl) * time.Minute),
		Metadata:   req.Metadata,
	}
	if err := i.tokens.Insert(ctx, row); err != nil {
		return IssuedToken{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return IssuedToken{
		Token:     raw,
		URL:       i.link(action, raw),
		ExpiresAt: row.ExpiresAt,
		Action:    action,
		FileName:  fileName,
	}, nil
}

func (i *TokenIssuer) resolveTTL(action model.ActionType, requested int) (int, error) {
	def, limit := i.cfg.DownloadTTLMinutes, MaxDownloadTTLMinutes
	if action == model.ActionPreview {
		def, limit = i.cfg.PreviewTTLMinutes, MaxPreviewTTLMinutes
	}
	if requested == 0 {
		return def, nil
	}
	if requested < MinTTLMinutes || requested > limit {
		return 0, fmt.Errorf("%w: %d minutes, allowed %d..%d", ErrInvalidTTL, requested, MinTTLMinutes, limit)
	}
	return requested, nil
}

func (i *TokenIssuer) link(action model.ActionType, token string) string {
	return i.cfg.BaseURL + "/api/" + string(action) + "?token=" + url.QueryEscape(token)
}
