package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/lyzr/haystack/common/logger"
	"github.com/lyzr/haystack/common/ratelimit"
)

func newLimitedServer(t *testing.T, limit int64) (*echo.Echo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	rl := ratelimit.NewRateLimiter(rdb, logger.Discard())
	e := echo.New()
	e.POST("/cacheit", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, ClientRateLimitMiddleware(rl, "cacheit", limit, time.Minute))
	return e, mr
}

func post(e *echo.Echo, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/cacheit", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestClientRateLimit_RejectsOverLimit(t *testing.T) {
	e, _ := newLimitedServer(t, 2)

	assert.Equal(t, http.StatusOK, post(e, "10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, post(e, "10.0.0.1:1001").Code)

	rec := post(e, "10.0.0.1:1002")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"error":"rate_limit_exceeded"`)

	assert.Equal(t, http.StatusOK, post(e, "10.0.0.2:1000").Code)
}

func TestClientRateLimit_FailsOpen(t *testing.T) {
	e, mr := newLimitedServer(t, 1)
	mr.Close()

	assert.Equal(t, http.StatusOK, post(e, "10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, post(e, "10.0.0.1:1000").Code)
}
