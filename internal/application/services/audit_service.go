package services

import (
	"context"
	"time"

	"github.com/avatarctic/kvstore/internal/core/domain/audit"
	"github.com/avatarctic/kvstore/internal/core/ports"
	"github.com/sirupsen/logrus"
)

type AuditService struct {
	repo   ports.AuditRepository
	logger *logrus.Logger
}

func NewAuditService(repo ports.AuditRepository, logger *logrus.Logger) ports.AuditService {
	return &AuditService{
		repo:   repo,
		logger: logger,
	}
}

func (s *AuditService) LogAction(ctx context.Context, req *audit.CreateAuditLogRequest) error {
	auditLog := &audit.AuditLog{
		Action:    string(req.Action),
		Key:       req.Key,
		Details:   req.Details,
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
		Timestamp: time.Now(),
	}

	err := s.repo.Create(ctx, auditLog)
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"action": req.Action, "key": req.Key}).WithError(err).Error("failed to persist audit log")
		}
		return err
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"action": req.Action, "key": req.Key}).Debug("audit log persisted")
	}
	return nil
}

func (s *AuditService) GetAuditLogs(ctx context.Context, filter *audit.AuditLogFilter) ([]*audit.AuditLog, int, error) {
	logs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
