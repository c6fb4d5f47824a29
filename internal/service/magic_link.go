package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ailabben/dashboard-api/internal/utils"
)

// MagicLinkConfig configures passwordless sign-in.
type MagicLinkConfig struct {
	Allowlist    []string      // addresses allowed to sign in
	CallbackURL  string        // link target, receives ?token=
	LinkTTL      time.Duration // lifetime of an unredeemed link
	JWTSecret    string
	AccessTTLMin int
}

// MagicLinkService issues and redeems single-use sign-in links.
type MagicLinkService struct {
	store   LoginTokenStore
	mailer  Mailer
	cfg     MagicLinkConfig
	allowed map[string]struct{}
}

// NewMagicLinkService builds the service.  Allow-list entries are compared
// case-insensitively.
func NewMagicLinkService(store LoginTokenStore, mailer Mailer, cfg MagicLinkConfig) *MagicLinkService {
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = 15 * time.Minute
	}
	if cfg.AccessTTLMin <= 0 {
		cfg.AccessTTLMin = 60
	}
	allowed := make(map[string]struct{}, len(cfg.Allowlist))
	for _, e := range cfg.Allowlist {
		if e = normalizeEmail(e); e != "" {
			allowed[e] = struct{}{}
		}
	}
	return &MagicLinkService{store: store, mailer: mailer, cfg: cfg, allowed: allowed}
}

// Allowed reports whether email may sign in.
func (s *MagicLinkService) Allowed(email string) bool {
	_, ok := s.allowed[normalizeEmail(email)]
	return ok
}

// Request stores a fresh login token for email and mails the link.
func (s *MagicLinkService) Request(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if !s.Allowed(email) {
		return ErrNotAllowlisted
	}
	tok, err := utils.NewOpaqueToken(tokenBytes)
	if err != nil {
		return fmt.Errorf("generate login token: %w", err)
	}
	if err := s.store.Save(ctx, tok, email, s.cfg.LinkTTL); err != nil {
		return fmt.Errorf("save login token: %w", err)
	}
	link := s.cfg.CallbackURL + "?token=" + url.QueryEscape(tok)
	if err := s.mailer.SendMagicLink(ctx, email, link); err != nil {
		return fmt.Errorf("send magic link: %w", err)
	}
	log.Info().Str("email", email).Str("token", utils.ShortToken(tok)).Msg("magic link sent")
	return nil
}

// Redeem consumes a login token and returns an access token for its owner.
func (s *MagicLinkService) Redeem(ctx context.Context, token string) (utils.AccessToken, string, error) {
	if strings.TrimSpace(token) == "" {
		return utils.AccessToken{}, "", ErrLoginTokenInvalid
	}
	email, err := s.store.Take(ctx, token)
	if err != nil {
		if errors.Is(err, ErrLoginTokenInvalid) {
			return utils.AccessToken{}, "", err
		}
		return utils.AccessToken{}, "", fmt.Errorf("take login token: %w", err)
	}
	// The allow-list may have shrunk since the link was sent.
	if !s.Allowed(email) {
		return utils.AccessToken{}, "", ErrNotAllowlisted
	}
	at, err := utils.NewAccessToken(s.cfg.JWTSecret, email, s.cfg.AccessTTLMin)
	if err != nil {
		return utils.AccessToken{}, "", fmt.Errorf("sign access token: %w", err)
	}
	return at, email, nil
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
