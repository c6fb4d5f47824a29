// Package service implements the token lifecycle behind secure document
// delivery: issuing capability tokens, validating and consuming them,
// recording delivery attempts, and the magic-link sign-in that produces
// the caller identity tokens are issued to.
package service

import "errors"

var (
	// ErrAuthentication is returned when a token is requested without a
	// caller identity.
	ErrAuthentication = errors.New("caller identity required")
	// ErrInvalidAction is returned for an action type other than download or preview.
	ErrInvalidAction = errors.New("invalid action type")
	// ErrInvalidTTL is returned when a requested lifetime is outside the
	// bounds allowed for its action type.
	ErrInvalidTTL = errors.New("invalid token lifetime")
	// ErrDocumentNotFound is returned by the issuer when the document does not exist.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrPersistence wraps failures of the underlying token store.
	ErrPersistence = errors.New("token store failure")

	// ErrNotAllowlisted is returned when a sign-in is requested for an
	// address outside the allow-list.
	ErrNotAllowlisted = errors.New("email not allowed")
	// ErrLoginTokenInvalid is returned when a magic-link token is unknown,
	// expired or already redeemed.
	ErrLoginTokenInvalid = errors.New("invalid or expired login token")
)

// Reason explains why a token failed validation.  It is kept server side;
// clients only ever see a generic message.
type Reason string

const (
	ReasonNotFound         Reason = "not_found"
	ReasonAlreadyUsed      Reason = "already_used"
	ReasonExpired          Reason = "expired"
	ReasonWrongActionType  Reason = "wrong_action_type"
	ReasonIdentityMismatch Reason = "identity_mismatch"
	ReasonDocumentMissing  Reason = "document_missing"
	// ReasonInvalidFilePath means the document row exists but its file_path
	// does not point into the configured bucket.
	ReasonInvalidFilePath Reason = "invalid_file_path"
)

// DocumentGone reports whether the reason means the token was fine but the
// file it points to cannot be located.
func (r Reason) DocumentGone() bool {
	return r == ReasonDocumentMissing || r == ReasonInvalidFilePath
}
