package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/kvstore/internal/application/services"
	"github.com/avatarctic/kvstore/internal/core/domain/audit"
	"github.com/avatarctic/kvstore/test/mocks"
)

func TestAuditService_LogActionMapsRequest(t *testing.T) {
	var created *audit.AuditLog
	repo := &mocks.AuditRepositoryMock{
		CreateFn: func(ctx context.Context, log *audit.AuditLog) error {
			created = log
			return nil
		},
	}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	svc := services.NewAuditService(repo, logger)

	key := "some-key"
	err := svc.LogAction(context.Background(), &audit.CreateAuditLogRequest{
		Action:    audit.ActionSet,
		Key:       &key,
		Details:   map[string]any{"ttl_ms": 100},
		IPAddress: "10.0.0.1",
		UserAgent: "kvctl",
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	require.Equal(t, string(audit.ActionSet), created.Action)
	require.Equal(t, &key, created.Key)
	require.Equal(t, "10.0.0.1", created.IPAddress)
	require.Equal(t, "kvctl", created.UserAgent)
	require.WithinDuration(t, time.Now(), created.Timestamp, time.Second)
}

func TestAuditService_LogActionPropagatesRepoError(t *testing.T) {
	repo := &mocks.AuditRepositoryMock{
		CreateFn: func(ctx context.Context, log *audit.AuditLog) error {
			return fmt.Errorf("insert failed")
		},
	}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	svc := services.NewAuditService(repo, logger)

	err := svc.LogAction(context.Background(), &audit.CreateAuditLogRequest{Action: audit.ActionCleanup})
	require.Error(t, err)
}

func TestAuditService_GetAuditLogsCombinesListAndCount(t *testing.T) {
	key := "k"
	logs := []*audit.AuditLog{
		{Action: string(audit.ActionSet), Key: &key},
		{Action: string(audit.ActionDelete), Key: &key},
	}
	var seenFilter *audit.AuditLogFilter
	repo := &mocks.AuditRepositoryMock{
		ListFn: func(ctx context.Context, filter *audit.AuditLogFilter) ([]*audit.AuditLog, error) {
			seenFilter = filter
			return logs, nil
		},
		CountFn: func(ctx context.Context, filter *audit.AuditLogFilter) (int, error) {
			return 42, nil
		},
	}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	svc := services.NewAuditService(repo, logger)

	filter := &audit.AuditLogFilter{Key: &key, Limit: 10}
	got, total, err := svc.GetAuditLogs(context.Background(), filter)
	require.NoError(t, err)
	require.Equal(t, logs, got)
	require.Equal(t, 42, total)
	require.Equal(t, filter, seenFilter)
}

func TestAuditService_GetAuditLogsListError(t *testing.T) {
	repo := &mocks.AuditRepositoryMock{
		ListFn: func(ctx context.Context, filter *audit.AuditLogFilter) ([]*audit.AuditLog, error) {
			return nil, fmt.Errorf("query failed")
		},
	}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	svc := services.NewAuditService(repo, logger)

	_, _, err := svc.GetAuditLogs(context.Background(), nil)
	require.Error(t, err)
}
