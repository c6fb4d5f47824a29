package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/ailabben/dashboard-api/internal/model"
)

// DownloadLogRepo appends to and summarises the `download_logs` table.
type DownloadLogRepo struct {
	db      *sql.DB
	dialect Dialect
}

func NewDownloadLogRepo(db *sql.DB, dialect Dialect) *DownloadLogRepo {
	return &DownloadLogRepo{db: db, dialect: dialect}
}

// Record inserts one audit entry.  Missing ID and timestamp are filled in.
func (r *DownloadLogRepo) Record(ctx context.Context, e model.DownloadLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.DownloadedAt.IsZero() {
		e.DownloadedAt = time.Now()
	}
	const q = `INSERT INTO download_logs
		(id, token_id, document_id, user_id, action_type, ip_address, user_agent,
		 file_size, download_successful, error_message, downloaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(q),
		e.ID, e.TokenID, e.DocumentID, e.UserID, string(e.ActionType),
		nullString(e.IPAddress), nullString(e.UserAgent), e.FileSize,
		e.DownloadSuccessful, nullString(e.ErrorMessage), e.DownloadedAt.UTC())
	return err
}

// Stats counts successful downloads for all time, today, the last 7 and
// the last 30 days (relative to the start of now's UTC day) and ranks the
// top documents by download count.
func (r *DownloadLogRepo) Stats(ctx context.Context, now time.Time, top int) (model.DownloadStats, error) {
	today, week, month := statsWindows(now)
	const q = `SELECT COUNT(*),
		COALESCE(SUM(CASE WHEN downloaded_at >= ? THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN downloaded_at >= ? THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN downloaded_at >= ? THEN 1 ELSE 0 END), 0)
		FROM download_logs WHERE download_successful = ? AND action_type = ?`
	var s model.DownloadStats
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(q),
		today, week, month, true, string(model.ActionDownload),
	).Scan(&s.TotalDownloads, &s.DownloadsToday, &s.DownloadsThisWeek, &s.DownloadsThisMonth)
	if err != nil {
		return model.DownloadStats{}, err
	}
	s.MostDownloadedDocuments = []model.DocumentDownloadCount{}
	if top <= 0 {
		return s, nil
	}

	const topQ = `SELECT l.document_id, COALESCE(d.file_name, ''), COUNT(*) AS download_count
		FROM download_logs l LEFT JOIN documents d ON d.id = l.document_id
		WHERE l.download_successful = ? AND l.action_type = ?
		GROUP BY l.document_id, d.file_name
		ORDER BY download_count DESC, l.document_id
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(topQ), true, string(model.ActionDownload), top)
	if err != nil {
		return model.DownloadStats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var c model.DocumentDownloadCount
		if err := rows.Scan(&c.DocumentID, &c.FileName, &c.DownloadCount); err != nil {
			return model.DownloadStats{}, err
		}
		s.MostDownloadedDocuments = append(s.MostDownloadedDocuments, c)
	}
	if err := rows.Err(); err != nil {
		return model.DownloadStats{}, err
	}
	return s, nil
}

// statsWindows returns the lower bounds for today, this week and this month.
func statsWindows(now time.Time) (today, week, month time.Time) {
	now = now.UTC()
	today = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today, today.AddDate(0, 0, -7), today.AddDate(0, 0, -30)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
