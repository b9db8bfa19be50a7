package config

// This file defines a Redis client constructor for the application.  Redis is
// used for distributed rate limiting and HTTP response caching.  If the
// connection fails during startup, the constructor returns nil and callers
// degrade gracefully by disabling caching and falling back to in-memory
// rate limiting.

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection parameters.  Addr takes precedence over
// Host/Port when set.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Host     string `env:"REDIS_HOST"`
	Port     string `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	TLS      bool   `env:"REDIS_TLS" envDefault:"false"`
}

// Configured reports whether any Redis address was supplied.
func (r RedisConfig) Configured() bool {
	return r.Addr != "" || r.Host != ""
}

// NewRedisClient instantiates a Redis client and pings it with a short
// timeout.  The returned client is nil when Redis is not configured or
// cannot be reached.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	if !cfg.Configured() {
		return nil
	}
	addr := cfg.Addr
	if addr == "" {
		addr = cfg.Host + ":" + cfg.Port
	}
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
