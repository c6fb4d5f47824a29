package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ailabben/dashboard-api/internal/model"
)

// TokenRepo persists and redeems rows of `secure_download_tokens`.  The
// issuing identity lives in the `user_id` column and the issue time in
// `created_at`, matching the table the dashboard already uses.
type TokenRepo struct {
	db      *sql.DB
	dialect Dialect
}

// NewTokenRepo returns a TokenRepo bound to db.
func NewTokenRepo(db *sql.DB, dialect Dialect) *TokenRepo {
	return &TokenRepo{db: db, dialect: dialect}
}

// Insert stores a freshly issued token.  A duplicate token string is
// reported as ErrConflict.
func (r *TokenRepo) Insert(ctx context.Context, t model.DownloadToken) error {
	meta, err := encodeMetadata(t.Metadata)
	if err != nil {
		return err
	}
	const q = `INSERT INTO secure_download_tokens
		(id, token, document_id, user_id, action_type, created_at, expires_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, r.dialect.Rebind(q),
		t.ID, t.Token, t.DocumentID, t.IssuedTo, string(t.ActionType),
		t.IssuedAt.UTC(), t.ExpiresAt.UTC(), meta)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// FindByToken looks a token up by exact string match.  It does not judge
// validity; expiry and use checks belong to the caller.
func (r *TokenRepo) FindByToken(ctx context.Context, token string) (model.DownloadToken, error) {
	const q = `SELECT id, token, document_id, user_id, action_type, created_at, expires_at, used_at, metadata
		FROM secure_download_tokens WHERE token = ? LIMIT 1`
	var (
		t      model.DownloadToken
		action string
		usedAt sql.NullTime
		meta   sql.NullString
	)
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(q), token).Scan(
		&t.ID, &t.Token, &t.DocumentID, &t.IssuedTo, &action,
		&t.IssuedAt, &t.ExpiresAt, &usedAt, &meta,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DownloadToken{}, ErrTokenNotFound
	}
	if err != nil {
		return model.DownloadToken{}, err
	}
	t.ActionType = model.ActionType(action)
	if usedAt.Valid {
		u := usedAt.Time
		t.UsedAt = &u
	}
	if meta.Valid && meta.String != "" {
		// Metadata is opaque; a malformed blob must not make the token unusable.
		_ = json.Unmarshal([]byte(meta.String), &t.Metadata)
	}
	return t, nil
}

// MarkUsed performs the single-use transition as one conditional UPDATE.
// It returns true only for the caller whose statement flipped used_at from
// NULL; concurrent callers, already-used or expired tokens get false.
func (r *TokenRepo) MarkUsed(ctx context.Context, token string, now time.Time) (bool, error) {
	const q = `UPDATE secure_download_tokens SET used_at = ?
		WHERE token = ? AND used_at IS NULL AND expires_at > ?`
	now = now.UTC()
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(q), now, token, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CountExpired reports how many rows DeleteExpired would remove.
func (r *TokenRepo) CountExpired(ctx context.Context, before time.Time) (int64, error) {
	const q = `SELECT COUNT(*) FROM secure_download_tokens WHERE expires_at <= ?`
	var n int64
	if err := r.db.QueryRowContext(ctx, r.dialect.Rebind(q), before.UTC()).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// DeleteExpired removes tokens that expired at or before the given time and
// returns the number of rows deleted.  download_logs keeps its token_id
// references; the column is nullable for exactly this reason.
func (r *TokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	const q = `DELETE FROM secure_download_tokens WHERE expires_at <= ?`
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(q), before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func encodeMetadata(m map[string]string) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode token metadata: %w", err)
	}
	return string(b), nil
}
