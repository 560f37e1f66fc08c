package service

import (
	"context"

	"stickman_shake/internal/domain"
	"stickman_shake/internal/logger"
)

// AuditSink persists audit entries. *repository.AuditRepository implements it.
type AuditSink interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	GetByUserID(ctx context.Context, userID string, limit int) ([]*domain.AuditLog, error)
}

// AuditService handles audit logging. A nil sink turns it into a no-op.
type AuditService struct {
	repo AuditSink
}

// NewAuditService creates a new audit service
func NewAuditService(repo AuditSink) *AuditService {
	return &AuditService{repo: repo}
}

// Log creates a new audit log entry
func (s *AuditService) Log(ctx context.Context, userID, action, category string, details map[string]interface{}) {
	s.LogWithRequest(ctx, userID, action, category, "", "", details)
}

// LogWithRequest creates an audit log with request info (IP, User-Agent)
func (s *AuditService) LogWithRequest(ctx context.Context, userID, action, category, ip, userAgent string, details map[string]interface{}) {
	if s == nil || s.repo == nil {
		return
	}
	log := &domain.AuditLog{
		UserID:    userID,
		Action:    action,
		Category:  category,
		Details:   details,
		IP:        ip,
		UserAgent: userAgent,
	}

	if err := s.repo.Create(ctx, log); err != nil {
		logger.Error("failed to create audit log", "error", err, "action", action, "user_id", userID)
	}
}

// LogPurchase logs an off-chain shop action
func (s *AuditService) LogPurchase(ctx context.Context, userID, action, itemID string, cost int64) {
	s.Log(ctx, userID, action, domain.AuditCategoryShop, map[string]interface{}{
		"item": itemID,
		"cost": cost,
	})
}

// LogLedger logs a ledger-backed action with its receipt digest
func (s *AuditService) LogLedger(ctx context.Context, userID, action, digest string, details map[string]interface{}) {
	if details == nil {
		details = make(map[string]interface{})
	}
	details["digest"] = digest
	s.Log(ctx, userID, action, domain.AuditCategoryLedger, details)
}

// LogLogin logs a user login
func (s *AuditService) LogLogin(ctx context.Context, userID, provider, ip, userAgent string) {
	s.LogWithRequest(ctx, userID, domain.AuditActionLogin, domain.AuditCategoryAuth, ip, userAgent, map[string]interface{}{
		"provider": provider,
	})
}

// GetUserAuditLogs returns audit logs for a user
func (s *AuditService) GetUserAuditLogs(ctx context.Context, userID string, limit int) ([]*domain.AuditLog, error) {
	if s == nil || s.repo == nil {
		return []*domain.AuditLog{}, nil
	}
	return s.repo.GetByUserID(ctx, userID, limit)
}
