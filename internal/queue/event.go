// Package queue carries delivery audit entries over RabbitMQ.  With
// AUDIT_SINK=queue the server publishes every attempt to the durable
// document.delivered queue and a consumer writes them to download_logs,
// so a slow database never backs up delivery.
package queue

import (
	"time"

	"github.com/ailabben/dashboard-api/internal/model"
)

// DefaultQueue is the queue delivery events are published to.
const DefaultQueue = "document.delivered"

// eventVersion is bumped when DeliveryEvent changes incompatibly.
const eventVersion = 1

// DeliveryEvent is the message body published for one delivery attempt.
type DeliveryEvent struct {
	Version            int              `json:"v"`
	EntryID            string           `json:"entry_id"`
	TokenID            *string          `json:"token_id,omitempty"`
	DocumentID         string           `json:"document_id"`
	UserID             string           `json:"user_id"`
	ActionType         model.ActionType `json:"action_type"`
	IPAddress          string           `json:"ip_address,omitempty"`
	UserAgent          string           `json:"user_agent,omitempty"`
	FileSize           *int64           `json:"file_size,omitempty"`
	DownloadSuccessful bool             `json:"download_successful"`
	ErrorMessage       string           `json:"error_message,omitempty"`
	DownloadedAt       time.Time        `json:"downloaded_at"`
}

// EventFromEntry converts an audit entry into its wire form.
func EventFromEntry(e model.DownloadLogEntry) DeliveryEvent {
	return DeliveryEvent{
		Version:            eventVersion,
		EntryID:            e.ID,
		TokenID:            e.TokenID,
		DocumentID:         e.DocumentID,
		UserID:             e.UserID,
		ActionType:         e.ActionType,
		IPAddress:          e.IPAddress,
		UserAgent:          e.UserAgent,
		FileSize:           e.FileSize,
		DownloadSuccessful: e.DownloadSuccessful,
		ErrorMessage:       e.ErrorMessage,
		DownloadedAt:       e.DownloadedAt.UTC(),
	}
}

// Entry converts the event back into an audit entry.
func (ev DeliveryEvent) Entry() model.DownloadLogEntry {
	return model.DownloadLogEntry{
		ID:                 ev.EntryID,
		TokenID:            ev.TokenID,
		DocumentID:         ev.DocumentID,
		UserID:             ev.UserID,
		ActionType:         ev.ActionType,
		IPAddress:          ev.IPAddress,
		UserAgent:          ev.UserAgent,
		FileSize:           ev.FileSize,
		DownloadSuccessful: ev.DownloadSuccessful,
		ErrorMessage:       ev.ErrorMessage,
		DownloadedAt:       ev.DownloadedAt,
	}
}
