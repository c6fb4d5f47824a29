package model

import "time"

// ActionType selects how a token may be redeemed.  A download token is
// single-use and delivered as an attachment; a preview token is served
// inline and may be reused until it expires.
type ActionType string

const (
	ActionDownload ActionType = "download"
	ActionPreview  ActionType = "preview"
)

// Valid reports whether a is one of the known action types.
func (a ActionType) Valid() bool {
	return a == ActionDownload || a == ActionPreview
}

// SingleUse reports whether tokens of this type are consumed on redemption.
func (a ActionType) SingleUse() bool { return a == ActionDownload }

// DownloadToken models a row in the `secure_download_tokens` table.  The
// Token value is the bearer credential: anyone holding it may redeem it
// until ExpiresAt, and for download tokens only until UsedAt is set.
//
// Fields:
//
//	ID         – primary key (UUID).
//	Token      – unguessable random string, unique.
//	DocumentID – document the token grants access to.
//	IssuedTo   – caller identity recorded at issuance (email or service name).
//	ActionType – download or preview.
//	IssuedAt   – creation timestamp.
//	ExpiresAt  – token is invalid at and after this instant.
//	UsedAt     – set once when a download token is redeemed (nullable).
//	Metadata   – side-channel hints such as issuing IP, never interpreted.
type DownloadToken struct {
	ID         string            `json:"id"`
	Token      string            `json:"token"`
	DocumentID string            `json:"document_id"`
	IssuedTo   string            `json:"issued_to"`
	ActionType ActionType        `json:"action_type"`
	IssuedAt   time.Time         `json:"issued_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
	UsedAt     *time.Time        `json:"used_at,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Expired reports whether the token can no longer be redeemed at now.
func (t DownloadToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Used reports whether the single-use transition already happened.
func (t DownloadToken) Used() bool { return t.UsedAt != nil }
