package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/kvstore/internal/application/services"
	"github.com/avatarctic/kvstore/test/mocks"
)

func newRateLimiter(repo *mocks.RateLimitRepositoryMock, cfg *services.RateLimiterConfig) *services.RateLimiterService {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return services.NewRateLimiterService(repo, cfg, logger)
}

func TestRateLimiterService_AllowsUnderLimit(t *testing.T) {
	window := time.Minute
	repo := &mocks.RateLimitRepositoryMock{
		IncrementWindowFn: func(ctx context.Context, client string, w time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error) {
			require.Equal(t, window, w)
			require.Equal(t, 2*window, ttl, "counter keys should outlive the window")
			return 5, time.Now().Truncate(w), nil
		},
	}
	svc := newRateLimiter(repo, &services.RateLimiterConfig{DefaultRequestsPerMinute: 10, BurstMultiplier: 2.0, Window: window})

	allowed, remaining, limit, reset, err := svc.Allow(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, 10, limit)
	require.Equal(t, 15, remaining, "burst of 20 minus 5 consumed")
	require.WithinDuration(t, time.Now().Truncate(window).Add(window), reset, time.Second)
}

func TestRateLimiterService_BlocksOverBurst(t *testing.T) {
	repo := &mocks.RateLimitRepositoryMock{
		IncrementWindowFn: func(ctx context.Context, client string, w time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error) {
			return 21, time.Now().Truncate(w), nil
		},
	}
	svc := newRateLimiter(repo, &services.RateLimiterConfig{DefaultRequestsPerMinute: 10, BurstMultiplier: 2.0, Window: time.Minute})

	allowed, remaining, _, _, err := svc.Allow(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	require.False(t, allowed)
	require.Zero(t, remaining)
}

func TestRateLimiterService_FailsOpenOnRepoError(t *testing.T) {
	repo := &mocks.RateLimitRepositoryMock{
		IncrementWindowFn: func(ctx context.Context, client string, w time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error) {
			return 0, time.Now().Truncate(w), fmt.Errorf("redis down")
		},
	}
	svc := newRateLimiter(repo, nil)

	allowed, _, _, _, err := svc.Allow(context.Background(), "1.2.3.4")
	require.Error(t, err)
	require.True(t, allowed, "limiter must fail open when the counter store errors")
}
