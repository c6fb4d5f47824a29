package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ailabben/dashboard-api/internal/model"
)

// DefaultAuditTimeout bounds one audit write.
const DefaultAuditTimeout = 5 * time.Second

// Auditor records delivery attempts in the background.  Record never
// blocks on the recorder and never reports its failures to the caller;
// they are logged and dropped.
type Auditor struct {
	rec     AuditRecorder
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAuditor wraps rec.  A non-positive timeout selects DefaultAuditTimeout.
func NewAuditor(rec AuditRecorder, timeout time.Duration) *Auditor {
	if timeout <= 0 {
		timeout = DefaultAuditTimeout
	}
	return &Auditor{rec: rec, timeout: timeout}
}

// Record schedules e for writing.  The write keeps the values of ctx but
// not its cancellation, so a client hanging up does not abort it.
func (a *Auditor) Record(ctx context.Context, e model.DownloadLogEntry) {
	if a == nil || a.rec == nil {
		return
	}
	if e.DownloadedAt.IsZero() {
		e.DownloadedAt = time.Now().UTC()
	}
	base := context.WithoutCancel(ctx)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("document_id", e.DocumentID).Msg("audit: recorder panicked")
			}
		}()
		wctx, cancel := context.WithTimeout(base, a.timeout)
		defer cancel()
		if err := a.rec.Record(wctx, e); err != nil {
			log.Warn().Err(err).
				Str("document_id", e.DocumentID).
				Str("action_type", string(e.ActionType)).
				Bool("successful", e.DownloadSuccessful).
				Msg("audit: record failed")
		}
	}()
}

// Wait blocks until every scheduled write has finished.
func (a *Auditor) Wait() {
	if a == nil {
		return
	}
	a.wg.Wait()
}
