package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ailabben/dashboard-api/internal/model"
	"github.com/ailabben/dashboard-api/internal/repository"
	"github.com/ailabben/dashboard-api/internal/storage"
)

// Result is the outcome of a validation.  Identifying fields are filled in
// as far as the token row could be resolved, also for invalid results, so
// the caller can audit the attempt.
type Result struct {
	Valid      bool
	Reason     Reason
	TokenID    string
	DocumentID string
	IssuedTo   string
	Action     model.ActionType
	FilePath   string // storage key relative to the bucket
	FileName   string
}

// TokenValidator resolves bearer tokens to documents.
type TokenValidator struct {
	tokens TokenStore
	docs   DocumentStore
	bucket string
	now    func() time.Time
}

// NewTokenValidator returns a validator that resolves file paths relative
// to bucket.
func NewTokenValidator(tokens TokenStore, docs DocumentStore, bucket string) *TokenValidator {
	return &TokenValidator{tokens: tokens, docs: docs, bucket: bucket, now: time.Now}
}

// WithClock replaces the time source.
func (v *TokenValidator) WithClock(now func() time.Time) *TokenValidator {
	v.now = now
	return v
}

// Check runs every validation step except the single-use transition and
// does not modify the token.  Expiry is tested before use so a token past
// its lifetime always reports expired.  caller may be empty, which skips the
// identity comparison.  A non-nil error means a store failed, not that the
// token is bad.
func (v *TokenValidator) Check(ctx context.Context, token string, expected model.ActionType, caller string) (Result, error) {
	row, err := v.tokens.FindByToken(ctx, token)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return Result{Reason: ReasonNotFound}, nil
	}
	if err != nil {
		return Result{}, err
	}
	res := Result{
		TokenID:    row.ID,
		DocumentID: row.DocumentID,
		IssuedTo:   row.IssuedTo,
		Action:     row.ActionType,
	}

	switch {
	case row.Expired(v.now()):
		res.Reason = ReasonExpired
		return res, nil
	case row.Used():
		res.Reason = ReasonAlreadyUsed
		return res, nil
	case row.ActionType != expected:
		res.Reason = ReasonWrongActionType
		return res, nil
	case caller != "" && row.IssuedTo != "" && !strings.EqualFold(caller, row.IssuedTo):
		res.Reason = ReasonIdentityMismatch
		return res, nil
	}

	doc, err := v.docs.GetDocumentMeta(ctx, row.DocumentID)
	if errors.Is(err, repository.ErrDocumentNotFound) {
		res.Reason = ReasonDocumentMissing
		return res, nil
	}
	if err != nil {
		return Result{}, err
	}
	key, err := storage.NormalizeFilePath(doc.FilePath, v.bucket)
	if err != nil {
		res.Reason = ReasonInvalidFilePath
		return res, nil
	}
	res.FilePath = key
	res.FileName = doc.FileName
	res.Valid = true
	return res, nil
}

// Consume performs the single-use transition.  It returns false when
// another request consumed the token first or it expired meanwhile.
func (v *TokenValidator) Consume(ctx context.Context, token string) (bool, error) {
	return v.tokens.MarkUsed(ctx, token, v.now())
}

// Validate is Check followed, for single-use action types, by Consume.
// When the token is lost to a concurrent redemption the result carries
// the reason observed afterwards, normally already_used.
func (v *TokenValidator) Validate(ctx context.Context, token string, expected model.ActionType, caller string) (Result, error) {
	res, err := v.Check(ctx, token, expected, caller)
	if err != nil || !res.Valid || !expected.SingleUse() {
		return res, err
	}
	ok, err := v.Consume(ctx, token)
	if err != nil {
		return Result{}, err
	}
	if ok {
		return res, nil
	}
	return v.lost(ctx, token, expected, caller)
}

func (v *TokenValidator) lost(ctx context.Context, token string, expected model.ActionType, caller string) (Result, error) {
	res, err := v.Check(ctx, token, expected, caller)
	if err != nil {
		return Result{}, err
	}
	if res.Valid {
		res.Valid = false
		res.Reason = ReasonAlreadyUsed
	}
	res.FilePath, res.FileName = "", ""
	return res, nil
}
