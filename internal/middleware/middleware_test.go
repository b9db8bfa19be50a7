package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-booking/internal/config"
	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/testutil"
	"github.com/iliyamo/movie-booking/internal/utils"
)

const secret = "mw-secret"

func token(t *testing.T, uid uint64, role model.Role) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, uid, string(role), time.Hour)
	require.NoError(t, err)
	return tok.Token
}

func newServer(mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.GET("/who", func(c echo.Context) error {
		id, ok := IdentityFrom(c)
		if !ok {
			return c.String(http.StatusOK, "anonymous")
		}
		return c.JSON(http.StatusOK, echo.Map{"id": id.UserID, "role": id.Role})
	}, mw...)
	return e
}

func do(e *echo.Echo, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := newServer(JWTAuth(secret))

	rec := do(e, http.MethodGet, "/who", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"missing bearer token"}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/who", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, err := utils.NewAccessToken(secret, 1, "user", -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/who", expired.Token).Code)

	unknownRole, err := utils.NewAccessToken(secret, 1, "owner", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/who", unknownRole.Token).Code)

	rec = do(e, http.MethodGet, "/who", token(t, 9, model.RoleAdmin))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":9,"role":"admin"}`, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	e := newServer(JWTAuth(secret), RequireRole(model.RoleAdmin))

	assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/who", token(t, 1, model.RoleUser)).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/who", token(t, 2, model.RoleAdmin)).Code)

	bare := newServer(RequireRole(model.RoleUser))
	assert.Equal(t, http.StatusUnauthorized, do(bare, http.MethodGet, "/who", "").Code)

	assert.True(t, Identity{UserID: 2, Role: model.RoleAdmin}.IsAdmin())
	assert.False(t, Identity{UserID: 1, Role: model.RoleUser}.IsAdmin())
}

func TestCacheKeyUsesConcretePath(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "path_query"}
	e := echo.New()
	key := func(target string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/api/movies/:id")
		return cacheKeyFrom(cfg, c)
	}
	assert.NotEqual(t, key("/api/movies/1"), key("/api/movies/2"))
	assert.NotEqual(t, key("/api/movies/1?a=1"), key("/api/movies/1?a=2"))
	assert.Equal(t, key("/api/movies/1"), key("/api/movies/1"))
	assert.Regexp(t, `^cache:[0-9a-f]{40}$`, key("/api/movies/1"))
}

func TestCachedResponseReplay(t *testing.T) {
	bs, err := json.Marshal(cachedResponse{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": {"application/json"}, "Content-Length": {"11"}},
		Body:   []byte(`{"ok":true}`),
	})
	require.NoError(t, err)

	cr, ok := decodeCached(bs)
	require.True(t, ok)

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, cr.replay(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, `{"ok":true}`, rec.Body.String())

	_, ok = decodeCached([]byte(`{}`))
	assert.False(t, ok)
	_, ok = decodeCached([]byte{0, 1})
	assert.False(t, ok)
}

func TestCachedResponseKeepsLiveRequestHeaders(t *testing.T) {
	cr := cachedResponse{
		Status: http.StatusOK,
		Header: http.Header{
			"Content-Type":          {"application/json"},
			"X-Request-Id":          {"old-id"},
			"X-Ratelimit-Remaining": {"3"},
		},
		Body: []byte(`[]`),
	}

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.Response().Header().Set(echo.HeaderXRequestID, "new-id")
	c.Response().Header().Set("X-RateLimit-Remaining", "59")
	c.Response().Header().Set(echo.HeaderContentType, "text/plain")

	require.NoError(t, cr.replay(c))
	assert.Equal(t, []string{"new-id"}, rec.Header().Values(echo.HeaderXRequestID))
	assert.Equal(t, []string{"59"}, rec.Header().Values("X-RateLimit-Remaining"))
	assert.Equal(t, []string{"application/json"}, rec.Header().Values(echo.HeaderContentType))
}

func TestCacheableHeaderDropsPerRequestValues(t *testing.T) {
	h := http.Header{}
	h.Set(echo.HeaderContentType, "application/json")
	h.Set(echo.HeaderXRequestID, "abc")
	h.Set("X-RateLimit-Limit", "60")
	h.Set("Retry-After", "1")
	h.Set(echo.HeaderVary, "Origin")
	h.Set(echo.HeaderAccessControlAllowOrigin, "http://localhost:3000")
	h.Set("X-Cache", "MISS")

	got := cacheableHeader(h)
	assert.Equal(t, http.Header{"Content-Type": {"application/json"}}, got)
	assert.Equal(t, "abc", h.Get(echo.HeaderXRequestID))
}

func TestBodyRecorderOverflow(t *testing.T) {
	rec := &bodyRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK, limit: 4}
	_, _ = rec.Write([]byte("abc"))
	assert.False(t, rec.overflow)
	_, _ = rec.Write([]byte("de"))
	assert.True(t, rec.overflow)
	assert.Zero(t, rec.body.Len())
}

func TestRedisCacheDisabledWithoutClient(t *testing.T) {
	e := newServer(NewRedisCache(config.CacheConfig{Enabled: true, Methods: []string{"GET"}}, nil))
	rec := do(e, http.MethodGet, "/who", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestMemoryTokenBucket(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Hour,
		KeyStrategy:    "ip",
		Prefix:         "rl",
	}
	e := newServer(NewTokenBucket(cfg, nil, testutil.TestLogger(t)))

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/who", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/who", "").Code)
	rec := do(e, http.MethodGet, "/who", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "3600", rec.Header().Get("Retry-After"))
}

func TestPerUserBucketBehindAuth(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       1,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Hour,
		KeyStrategy:    "ip_route",
		Prefix:         "rl",
	}
	e := newServer(JWTAuth(secret), NewTokenBucket(cfg.PerUser(), nil, testutil.TestLogger(t)))

	alice, bob := token(t, 1, model.RoleUser), token(t, 2, model.RoleUser)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/who", alice).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(e, http.MethodGet, "/who", alice).Code)
	// same address, different caller
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/who", bob).Code)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/movies/3", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/movies/:id")

	cfg := config.RateLimitConfig{Prefix: "rl"}
	assert.Equal(t, "rl:ip:10.0.0.1:route:GET /api/movies/:id", buildRateKey(cfg, c))
	cfg.KeyStrategy = "ip_user"
	assert.Equal(t, "rl:ip:10.0.0.1:user:anon", buildRateKey(cfg, c))

	SetIdentity(c, Identity{UserID: 5, Role: model.RoleUser})
	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:5", buildRateKey(cfg, c))
}

func TestPurgeOnWriteNilPurger(t *testing.T) {
	e := echo.New()
	e.POST("/x", func(c echo.Context) error { return c.NoContent(http.StatusCreated) }, PurgeOnWrite(nil))
	assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/x", "").Code)
}
