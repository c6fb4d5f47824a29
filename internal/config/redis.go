package config

// Redis backs delivery rate limiting, the stats response cache and pending
// magic-link tokens.  When it is disabled or unreachable at startup the
// constructor returns nil; rate limiting and caching are then switched off
// and login tokens fall back to process memory.

import (
	"context"
	"crypto/tls"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// NewRedisClient instantiates a Redis client from the environment.
// Supported variables are:
//
//	REDIS_URL – redis:// or rediss:// URL, takes precedence over the rest
//	REDIS_HOST and REDIS_PORT – hostname and port of the Redis server
//	REDIS_ADDR – host:port shorthand
//	REDIS_PASSWORD – optional password
//	REDIS_DB – database number (default 0)
//	REDIS_TLS – enable TLS
//	REDIS_ENABLED – set to false to skip Redis entirely
//
// The returned client is nil if Redis is disabled or does not answer a ping.
func NewRedisClient() *redis.Client {
	if !envBool("REDIS_ENABLED", true) {
		return nil
	}
	var opts *redis.Options
	if raw := os.Getenv("REDIS_URL"); raw != "" {
		o, err := redis.ParseURL(raw)
		if err != nil {
			log.Warn().Err(err).Msg("redis: invalid REDIS_URL, running without redis")
			return nil
		}
		opts = o
	} else {
		addr := envStr("REDIS_ADDR", "localhost:6379")
		if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
			addr = host + ":" + port
		}
		opts = &redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envInt("REDIS_DB", 0),
		}
		if envBool("REDIS_TLS", false) {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", opts.Addr).Msg("redis: ping failed, running without redis")
		_ = client.Close()
		return nil
	}
	return client
}
