package service

import (
	"context"
	"time"

	"github.com/ailabben/dashboard-api/internal/model"
)

// TokenStore is the persistence the issuer and validator need.  MarkUsed
// must be atomic: of any number of concurrent calls for one token at most
// one may return true.
type TokenStore interface {
	Insert(ctx context.Context, t model.DownloadToken) error
	FindByToken(ctx context.Context, token string) (model.DownloadToken, error)
	MarkUsed(ctx context.Context, token string, now time.Time) (bool, error)
}

// DocumentStore resolves document metadata.
type DocumentStore interface {
	GetDocumentMeta(ctx context.Context, id string) (model.Document, error)
}

// AuditRecorder persists one delivery attempt.  Implementations may block;
// the Auditor keeps them off the request path.
type AuditRecorder interface {
	Record(ctx context.Context, e model.DownloadLogEntry) error
}

// LoginTokenStore holds pending magic-link tokens.  Take must remove the
// token as it reads it so a link can be redeemed once.
type LoginTokenStore interface {
	Save(ctx context.Context, token, email string, ttl time.Duration) error
	Take(ctx context.Context, token string) (string, error)
}

// Mailer delivers a sign-in link.
type Mailer interface {
	SendMagicLink(ctx context.Context, to, link string) error
}
