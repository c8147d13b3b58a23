package httpserver_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avatarctic/kvstore/internal/infrastructure/httpserver"
	"github.com/avatarctic/kvstore/test/mocks"
)

func TestRateLimitMiddleware_Blocks(t *testing.T) {
	limiter := &mocks.RateLimiterServiceMock{
		AllowFn: func(ctx context.Context, client string) (bool, int, int, time.Time, error) {
			return false, 0, 10, time.Now().Add(time.Minute), nil
		},
	}
	ts := newTestServer(t, httpserver.ServerDeps{
		Store:              &mocks.StoreMock{},
		AuthService:        &mocks.AuthServiceMock{},
		RateLimiterService: limiter,
	})

	resp, _ := doRequest(t, http.MethodGet, ts.URL+"/health", nil)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, "10", resp.Header.Get("X-RateLimit-Limit"))
	require.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, resp.Header.Get("X-RateLimit-Reset"))
}

func TestRateLimitMiddleware_AllowsAndSetsHeaders(t *testing.T) {
	limiter := &mocks.RateLimiterServiceMock{
		AllowFn: func(ctx context.Context, client string) (bool, int, int, time.Time, error) {
			return true, 9, 10, time.Now().Add(time.Minute), nil
		},
	}
	ts := newTestServer(t, httpserver.ServerDeps{
		Store:              &mocks.StoreMock{},
		AuthService:        &mocks.AuthServiceMock{},
		RateLimiterService: limiter,
	})

	resp, _ := doRequest(t, http.MethodGet, ts.URL+"/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "9", resp.Header.Get("X-RateLimit-Remaining"))
}

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	limiter := &mocks.RateLimiterServiceMock{
		AllowFn: func(ctx context.Context, client string) (bool, int, int, time.Time, error) {
			return false, 0, 10, time.Now(), fmt.Errorf("redis down")
		},
	}
	ts := newTestServer(t, httpserver.ServerDeps{
		Store:              &mocks.StoreMock{},
		AuthService:        &mocks.AuthServiceMock{},
		RateLimiterService: limiter,
	})

	resp, _ := doRequest(t, http.MethodGet, ts.URL+"/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "limiter errors must not reject requests")
}

func TestRateLimitMiddleware_SkippedWithoutLimiter(t *testing.T) {
	ts := newTestServer(t, httpserver.ServerDeps{Store: &mocks.StoreMock{}, AuthService: &mocks.AuthServiceMock{}})

	resp, _ := doRequest(t, http.MethodGet, ts.URL+"/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthMiddleware_PassThroughWhenDisabled(t *testing.T) {
	// Enabled() is false by default on the mock; protected routes should not
	// require a credential.
	ts := newTestServer(t, httpserver.ServerDeps{Store: &mocks.StoreMock{}, AuthService: &mocks.AuthServiceMock{}})

	resp, _ := doRequest(t, http.MethodGet, ts.URL+"/api/v1/kv/k", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode, "request reached the handler without auth")
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	authSvc := &mocks.AuthServiceMock{EnabledFn: func() bool { return true }}
	ts := newTestServer(t, httpserver.ServerDeps{Store: &mocks.StoreMock{}, AuthService: authSvc})

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/kv/k", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
