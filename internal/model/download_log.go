package model

import "time"

// DownloadLogEntry is an append-only audit record in `download_logs`.
// TokenID is nullable because the token row may already be gone when the
// entry is written.
type DownloadLogEntry struct {
	ID                 string     `json:"id"`
	TokenID            *string    `json:"token_id,omitempty"`
	DocumentID         string     `json:"document_id"`
	UserID             string     `json:"user_id"`
	ActionType         ActionType `json:"action_type"`
	IPAddress          string     `json:"ip_address,omitempty"`
	UserAgent          string     `json:"user_agent,omitempty"`
	FileSize           *int64     `json:"file_size,omitempty"`
	DownloadSuccessful bool       `json:"download_successful"`
	ErrorMessage       string     `json:"error_message,omitempty"`
	DownloadedAt       time.Time  `json:"downloaded_at"`
}

// DocumentDownloadCount is one row of the "most downloaded" ranking.
type DocumentDownloadCount struct {
	DocumentID    string `json:"document_id"`
	FileName      string `json:"file_name"`
	DownloadCount int64  `json:"download_count"`
}

// DownloadStats summarises successful deliveries for the admin dashboard.
type DownloadStats struct {
	TotalDownloads          int64                   `json:"total_downloads"`
	DownloadsToday          int64                   `json:"downloads_today"`
	DownloadsThisWeek       int64                   `json:"downloads_this_week"`
	DownloadsThisMonth      int64                   `json:"downloads_this_month"`
	MostDownloadedDocuments []DocumentDownloadCount `json:"most_downloaded_documents"`
}
