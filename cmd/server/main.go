package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/ailabben/dashboard-api/internal/app"
	"github.com/ailabben/dashboard-api/internal/config"
	"github.com/ailabben/dashboard-api/internal/handler"
	"github.com/ailabben/dashboard-api/internal/logger"
	"github.com/ailabben/dashboard-api/internal/middleware"
	"github.com/ailabben/dashboard-api/internal/queue"
	"github.com/ailabben/dashboard-api/internal/router"
	"github.com/ailabben/dashboard-api/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.IsDev())

	stores, err := app.OpenStores(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	defer stores.Close()

	objects, err := app.NewObjectStore(cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("object storage")
	}

	rdb := config.NewRedisClient() // nil disables rate limiting and caching
	if rdb != nil {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder, closeRecorder := app.NewAuditRecorder(cfg.Audit, stores)
	defer closeRecorder()
	auditor := service.NewAuditor(recorder, cfg.Audit.Timeout)

	consumerDone := make(chan struct{})
	if cfg.Audit.Sink == "queue" && cfg.Audit.RunConsumer {
		go func() {
			defer close(consumerDone)
			if err := queue.StartDeliveryConsumer(ctx, cfg.Audit.AMQPURL, cfg.Audit.Queue, stores.Logs); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("delivery consumer stopped")
			}
		}()
	} else {
		close(consumerDone)
	}

	issuer := service.NewTokenIssuer(stores.Tokens, stores.Documents, service.IssuerConfig{
		BaseURL:            cfg.Token.PublicBaseURL,
		DownloadTTLMinutes: cfg.Token.DownloadTTLMinutes,
		PreviewTTLMinutes:  cfg.Token.PreviewTTLMinutes,
	})
	validator := service.NewTokenValidator(stores.Tokens, stores.Documents, cfg.Token.StorageBucket)

	var loginStore service.LoginTokenStore = service.NewMemoryLoginStore()
	if rdb != nil {
		loginStore = service.NewRedisLoginStore(rdb)
	}
	var mailer service.Mailer = service.LogMailer{}
	if cfg.Auth.SMTPHost != "" {
		mailer = service.NewSMTPMailer(service.SMTPConfig{
			Host: cfg.Auth.SMTPHost, Port: cfg.Auth.SMTPPort,
			Username: cfg.Auth.SMTPUser, Password: cfg.Auth.SMTPPass, From: cfg.Auth.SMTPFrom,
		})
	}
	magic := service.NewMagicLinkService(loginStore, mailer, service.MagicLinkConfig{
		Allowlist:    cfg.Auth.Allowlist,
		CallbackURL:  cfg.Auth.CallbackURL,
		LinkTTL:      cfg.Auth.MagicLinkTTL,
		JWTSecret:    cfg.JWTSecret,
		AccessTTLMin: cfg.AccessTTLMin,
	})

	// A nil *sql.DB must not reach Ready as a non-nil Pinger.
	var ready echo.HandlerFunc
	if stores.DB != nil {
		ready = handler.Ready(stores.DB)
	} else {
		ready = handler.Ready(nil)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger())

	router.Register(e, router.Handlers{
		Delivery: handler.NewDeliveryHandler(validator, objects, auditor, cfg.Token.StorageBucket, cfg.Storage.Timeout, cfg.StrictIdentity),
		Tokens:   handler.NewTokenHandler(issuer),
		Admin:    handler.NewAdminHandler(stores.Logs, stores.Tokens),
		Auth:     handler.NewAuthHandler(magic),
		Ready:    ready,
	}, router.Options{
		Credentials: middleware.Credentials{JWTSecret: cfg.JWTSecret, ServiceKeys: cfg.ServiceKeys},
		Allowlist:   cfg.Auth.Allowlist,
		RateLimit:   config.LoadRateLimitConfig(),
		Cache:       config.LoadCacheConfig(),
		Redis:       rdb,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Str("db", cfg.DBDriver).Str("audit_sink", cfg.Audit.Sink).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	auditor.Wait() // flush pending audit writes before closing their sink
	<-consumerDone
}
