package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-booking/internal/config"
)

// bodyRecorder tees the response to the client and keeps up to limit
// bytes of it for the cache.
type bodyRecorder struct {
	http.ResponseWriter
	status   int
	body     bytes.Buffer
	limit    int
	overflow bool
}

func (r *bodyRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	if !r.overflow {
		if r.limit > 0 && r.body.Len()+len(b) > r.limit {
			r.overflow = true
			r.body.Reset()
		} else {
			r.body.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

// cachedResponse is what a cache entry holds.
type cachedResponse struct {
	Status int         `json:"s"`
	Header http.Header `json:"h"`
	Body   []byte      `json:"b"`
}

func decodeCached(bs []byte) (cachedResponse, bool) {
	var cr cachedResponse
	if err := json.Unmarshal(bs, &cr); err != nil || cr.Status == 0 {
		return cachedResponse{}, false
	}
	return cr, true
}

// perRequestHeader reports whether k belongs to one request only and must
// neither be stored nor replayed.
func perRequestHeader(k string) bool {
	k = http.CanonicalHeaderKey(k)
	switch k {
	case "Content-Length", "X-Request-Id", "Vary", "Set-Cookie", "Retry-After", "X-Cache":
		return true
	}
	return strings.HasPrefix(k, "X-Ratelimit-") || strings.HasPrefix(k, "Access-Control-")
}

// cacheableHeader copies h without per-request headers.
func cacheableHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vals := range h {
		if !perRequestHeader(k) {
			out[k] = append([]string(nil), vals...)
		}
	}
	return out
}

func (cr cachedResponse) replay(c echo.Context) error {
	h := c.Response().Header()
	for k, vals := range cr.Header {
		if perRequestHeader(k) {
			continue
		}
		h[http.CanonicalHeaderKey(k)] = vals
	}
	h.Set("X-Cache", "HIT")
	c.Response().WriteHeader(cr.Status)
	_, err := c.Response().Write(cr.Body)
	return err
}

// cacheKeyFrom hashes the request parts named by cfg.KeyStrategy, an
// underscore separated list of method, path and query. The concrete path
// is used, never the route template.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
	strategy := strings.ToLower(cfg.KeyStrategy)
	if strategy == "" {
		strategy = "path_query"
	}
	r := c.Request()
	h := sha1.New()
	for _, part := range strings.Split(strategy, "_") {
		switch part {
		case "method":
			fmt.Fprintf(h, "m=%s;", r.Method)
		case "path":
			fmt.Fprintf(h, "p=%s;", r.URL.Path)
		case "query":
			fmt.Fprintf(h, "q=%s;", r.URL.RawQuery)
		}
	}
	return fmt.Sprintf("%s:%x", cfg.Prefix, h.Sum(nil))
}

// NewRedisCache caches successful responses to the configured methods in
// Redis, headers included, and replays them with X-Cache: HIT.  It is a
// pass-through when caching is disabled or rdb is nil.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Allows(c.Request().Method) {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKeyFrom(cfg, c)

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if cr, ok := decodeCached(bs); ok {
					return cr.replay(c)
				}
			}

			rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil || rec.status != http.StatusOK || rec.overflow {
				return err
			}
			bs, err := json.Marshal(cachedResponse{
				Status: rec.status,
				Header: cacheableHeader(c.Response().Header()),
				Body:   rec.body.Bytes(),
			})
			if err == nil {
				_ = rdb.SetEx(context.WithoutCancel(ctx), key, bs, ttl).Err()
			}
			return nil
		}
	}
}

// CachePurger drops every cached response under a prefix.
type CachePurger struct {
	rdb    *redis.Client
	prefix string
	log    *zap.Logger
}

func NewCachePurger(cfg config.CacheConfig, rdb *redis.Client, log *zap.Logger) *CachePurger {
	return &CachePurger{rdb: rdb, prefix: cfg.Prefix, log: log}
}

// Purge deletes all keys of the cache.  Failures are logged; a stale entry
// expires with its TTL anyway.
func (p *CachePurger) Purge(ctx context.Context) {
	if p == nil || p.rdb == nil {
		return
	}
	iter := p.rdb.Scan(ctx, 0, p.prefix+":*", 200).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		p.log.Warn("cache purge scan failed", zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := p.rdb.Del(ctx, keys...).Err(); err != nil {
		p.log.Warn("cache purge failed", zap.Error(err))
	}
}

// PurgeOnWrite purges the cache after any successful non-GET request.
func PurgeOnWrite(p *CachePurger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			m := c.Request().Method
			if err == nil && m != http.MethodGet && m != http.MethodHead && c.Response().Status < 400 {
				p.Purge(context.WithoutCancel(c.Request().Context()))
			}
			return err
		}
	}
}
