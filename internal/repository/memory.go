package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ailabben/dashboard-api/internal/model"
)

// MemoryStore bundles in-process implementations of the three stores.  It
// backs DB_DRIVER=memory for local runs and is the fake used by tests.
// Every method is safe for concurrent use.
type MemoryStore struct {
	Tokens    *MemoryTokenRepo
	Documents *MemoryDocumentRepo
	Logs      *MemoryLogRepo
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	docs := &MemoryDocumentRepo{byID: map[string]model.Document{}}
	return &MemoryStore{
		Tokens:    &MemoryTokenRepo{byToken: map[string]model.DownloadToken{}},
		Documents: docs,
		Logs:      &MemoryLogRepo{docs: docs},
	}
}

// MemoryTokenRepo mirrors TokenRepo.
type MemoryTokenRepo struct {
	mu      sync.Mutex
	byToken map[string]model.DownloadToken
}

func (r *MemoryTokenRepo) Insert(_ context.Context, t model.DownloadToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byToken[t.Token]; ok {
		return ErrConflict
	}
	r.byToken[t.Token] = t
	return nil
}

func (r *MemoryTokenRepo) FindByToken(_ context.Context, token string) (model.DownloadToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byToken[token]
	if !ok {
		return model.DownloadToken{}, ErrTokenNotFound
	}
	return t, nil
}

// MarkUsed has the same contract as TokenRepo.MarkUsed; the mutex plays
// the role of the conditional UPDATE.
func (r *MemoryTokenRepo) MarkUsed(_ context.Context, token string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byToken[token]
	if !ok || t.Used() || t.Expired(now) {
		return false, nil
	}
	used := now.UTC()
	t.UsedAt = &used
	r.byToken[token] = t
	return true, nil
}

func (r *MemoryTokenRepo) CountExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.byToken {
		if !t.ExpiresAt.After(before) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryTokenRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, t := range r.byToken {
		if !t.ExpiresAt.After(before) {
			delete(r.byToken, k)
			n++
		}
	}
	return n, nil
}

// MemoryDocumentRepo mirrors DocumentRepo and adds Put for seeding.
type MemoryDocumentRepo struct {
	mu   sync.RWMutex
	byID map[string]model.Document
}

// Put inserts or replaces a document.
func (r *MemoryDocumentRepo) Put(d model.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[d.ID] = d
}

func (r *MemoryDocumentRepo) GetDocumentMeta(_ context.Context, id string) (model.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	if !ok {
		return model.Document{}, ErrDocumentNotFound
	}
	return d, nil
}

// MemoryLogRepo mirrors DownloadLogRepo.
type MemoryLogRepo struct {
	mu   sync.Mutex
	rows []model.DownloadLogEntry
	docs *MemoryDocumentRepo
}

func (r *MemoryLogRepo) Record(_ context.Context, e model.DownloadLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.DownloadedAt.IsZero() {
		e.DownloadedAt = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, e)
	return nil
}

// Entries returns a copy of everything recorded so far.
func (r *MemoryLogRepo) Entries() []model.DownloadLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.DownloadLogEntry, len(r.rows))
	copy(out, r.rows)
	return out
}

func (r *MemoryLogRepo) Stats(ctx context.Context, now time.Time, top int) (model.DownloadStats, error) {
	today, week, month := statsWindows(now)
	s := model.DownloadStats{MostDownloadedDocuments: []model.DocumentDownloadCount{}}
	counts := map[string]int64{}
	for _, e := range r.Entries() {
		if !e.DownloadSuccessful || e.ActionType != model.ActionDownload {
			continue
		}
		s.TotalDownloads++
		at := e.DownloadedAt.UTC()
		if !at.Before(today) {
			s.DownloadsToday++
		}
		if !at.Before(week) {
			s.DownloadsThisWeek++
		}
		if !at.Before(month) {
			s.DownloadsThisMonth++
		}
		counts[e.DocumentID]++
	}
	for id, n := range counts {
		c := model.DocumentDownloadCount{DocumentID: id, DownloadCount: n}
		if d, err := r.docs.GetDocumentMeta(ctx, id); err == nil {
			c.FileName = d.FileName
		}
		s.MostDownloadedDocuments = append(s.MostDownloadedDocuments, c)
	}
	sort.Slice(s.MostDownloadedDocuments, func(i, j int) bool {
		a, b := s.MostDownloadedDocuments[i], s.MostDownloadedDocuments[j]
		if a.DownloadCount != b.DownloadCount {
			return a.DownloadCount > b.DownloadCount
		}
		return a.DocumentID < b.DocumentID
	})
	if top < len(s.MostDownloadedDocuments) {
		if top < 0 {
			top = 0
		}
		s.MostDownloadedDocuments = s.MostDownloadedDocuments[:top]
	}
	return s, nil
}
