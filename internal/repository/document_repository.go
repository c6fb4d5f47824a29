package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ailabben/dashboard-api/internal/model"
)

// DocumentRepo reads document metadata.  Documents are owned by the
// dashboard's customer database; this service never writes them.
type DocumentRepo struct {
	db      *sql.DB
	dialect Dialect
}

func NewDocumentRepo(db *sql.DB, dialect Dialect) *DocumentRepo {
	return &DocumentRepo{db: db, dialect: dialect}
}

// GetDocumentMeta returns the storage path and display name of a document.
func (r *DocumentRepo) GetDocumentMeta(ctx context.Context, id string) (model.Document, error) {
	const q = `SELECT id, customer_id, file_name, file_path FROM documents WHERE id = ? LIMIT 1`
	var (
		d          model.Document
		customerID sql.NullString
		fileName   sql.NullString
	)
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(q), id).Scan(&d.ID, &customerID, &fileName, &d.FilePath)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Document{}, ErrDocumentNotFound
	}
	if err != nil {
		return model.Document{}, err
	}
	d.CustomerID = customerID.String
	d.FileName = fileName.String
	return d, nil
}
