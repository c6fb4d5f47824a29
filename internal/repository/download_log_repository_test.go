package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ailabben/dashboard-api/internal/model"
)

func TestDownloadLogRepoRecordNullsEmptyFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo := NewDownloadLogRepo(db, DialectMySQL)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO download_logs")).
		WithArgs(sqlmock.AnyArg(), nil, "doc-1", "system", "preview", nil, nil, nil, true, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Record(context.Background(), model.DownloadLogEntry{
		DocumentID: "doc-1", UserID: "system", ActionType: model.ActionPreview, DownloadSuccessful: true,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestDownloadLogRepoStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo := NewDownloadLogRepo(db, DialectMySQL)

	mock.ExpectQuery(regexp.QuoteMeta("FROM download_logs WHERE download_successful = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"total", "today", "week", "month"}).AddRow(10, 1, 4, 9))
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN documents d")).
		WithArgs(true, "download", 2).
		WillReturnRows(sqlmock.NewRows([]string{"document_id", "file_name", "download_count"}).
			AddRow("doc-1", "Invoice.pdf", 6).
			AddRow("doc-2", "Offer.docx", 3))

	s, err := repo.Stats(context.Background(), time.Now(), 2)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if s.TotalDownloads != 10 || s.DownloadsToday != 1 || s.DownloadsThisWeek != 4 || s.DownloadsThisMonth != 9 {
		t.Fatalf("unexpected counters: %+v", s)
	}
	if len(s.MostDownloadedDocuments) != 2 || s.MostDownloadedDocuments[0].FileName != "Invoice.pdf" {
		t.Fatalf("unexpected ranking: %+v", s.MostDownloadedDocuments)
	}
}

func TestMemoryLogRepoStats(t *testing.T) {
	store := NewMemoryStore()
	store.Documents.Put(model.Document{ID: "doc-1", FileName: "Invoice.pdf"})
	now := time.Date(2026, 10, 16, 15, 0, 0, 0, time.UTC)
	ctx := context.Background()
	rec := func(doc string, at time.Time, ok bool, action model.ActionType) {
		_ = store.Logs.Record(ctx, model.DownloadLogEntry{DocumentID: doc, ActionType: action, DownloadSuccessful: ok, DownloadedAt: at})
	}
	rec("doc-1", now.Add(-time.Hour), true, model.ActionDownload)
	rec("doc-1", now.AddDate(0, 0, -3), true, model.ActionDownload)
	rec("doc-2", now.AddDate(0, 0, -20), true, model.ActionDownload)
	rec("doc-2", now.AddDate(0, 0, -90), true, model.ActionDownload)
	rec("doc-1", now, false, model.ActionDownload)
	rec("doc-1", now, true, model.ActionPreview)

	s, err := store.Logs.Stats(ctx, now, 1)
	if err != nil {
		t.Fatal(err)
	}
	if s.TotalDownloads != 4 || s.DownloadsToday != 1 || s.DownloadsThisWeek != 2 || s.DownloadsThisMonth != 3 {
		t.Fatalf("unexpected counters: %+v", s)
	}
	if len(s.MostDownloadedDocuments) != 1 || s.MostDownloadedDocuments[0].DocumentID != "doc-1" || s.MostDownloadedDocuments[0].FileName != "Invoice.pdf" {
		t.Fatalf("unexpected ranking: %+v", s.MostDownloadedDocuments)
	}
}
