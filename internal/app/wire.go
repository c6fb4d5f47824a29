// Package app builds the long-lived dependencies shared by cmd/server and
// cmd/docctl from a loaded configuration.
package app

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ailabben/dashboard-api/internal/config"
	"github.com/ailabben/dashboard-api/internal/database"
	"github.com/ailabben/dashboard-api/internal/handler"
	"github.com/ailabben/dashboard-api/internal/queue"
	"github.com/ailabben/dashboard-api/internal/repository"
	"github.com/ailabben/dashboard-api/internal/service"
	"github.com/ailabben/dashboard-api/internal/storage"
)

// TokenRepository is the full token store: redemption plus maintenance.
type TokenRepository interface {
	service.TokenStore
	handler.TokenSweeper
}

// LogRepository is the download log: the audit sink and its statistics.
type LogRepository interface {
	service.AuditRecorder
	handler.StatsReader
}

// Stores groups the three repositories.  DB is nil for the memory driver.
type Stores struct {
	DB        *sql.DB
	Tokens    TokenRepository
	Documents service.DocumentStore
	Logs      LogRepository
	Memory    *repository.MemoryStore // set only for the memory driver
}

// OpenStores connects to the configured database.
func OpenStores(cfg config.Config) (*Stores, error) {
	if cfg.DBDriver == "memory" {
		mem := repository.NewMemoryStore()
		log.Warn().Msg("using in-memory store; tokens and logs are lost on restart")
		return &Stores{Tokens: mem.Tokens, Documents: mem.Documents, Logs: mem.Logs, Memory: mem}, nil
	}
	db, driver, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	d := repository.DialectFor(driver)
	return &Stores{
		DB:        db,
		Tokens:    repository.NewTokenRepo(db, d),
		Documents: repository.NewDocumentRepo(db, d),
		Logs:      repository.NewDownloadLogRepo(db, d),
	}, nil
}

// Close releases the database pool, if any.
func (s *Stores) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// NewObjectStore builds the configured object store.
func NewObjectStore(cfg config.StorageConfig) (storage.ObjectStore, error) {
	switch cfg.Driver {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "s3", "":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("S3_ENDPOINT is required for STORAGE_DRIVER=s3")
		}
		return storage.NewS3Store(storage.S3Config{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Region:    cfg.Region,
			UseSSL:    cfg.UseSSL,
		})
	}
	return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.Driver)
}

// NewAuditRecorder returns the recorder selected by AUDIT_SINK and a
// function releasing its resources.
func NewAuditRecorder(cfg config.AuditConfig, stores *Stores) (service.AuditRecorder, func()) {
	if cfg.Sink == "queue" {
		pub := queue.NewPublisher(cfg.AMQPURL, cfg.Queue)
		return pub, func() { _ = pub.Close() }
	}
	return stores.Logs, func() {}
}
