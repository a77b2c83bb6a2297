package usecase

import (
	"context"

	"stockledger/internal/domain/model"
	repo "stockledger/internal/repository"

	"go.uber.org/zap"
)

type AuditUsecase struct {
	auditRepo repo.AuditLogRepository
	logger    *zap.Logger
}

// DI
func NewAuditUsecase(auditRepo repo.AuditLogRepository, logger *zap.Logger) *AuditUsecase {
	return &AuditUsecase{auditRepo: auditRepo, logger: logger}
}

func (u *AuditUsecase) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	if f.Limit < 0 || f.Limit > 200 {
		return nil, validationError("limit must be between 1 and 200")
	}
	if f.Offset < 0 {
		return nil, validationError("offset must be >= 0")
	}
	if f.ResourceID != nil && *f.ResourceID <= 0 {
		return nil, validationError("invalid resourceId")
	}
	switch {
	case f.ResourceType == nil:
	case *f.ResourceType == model.AuditResourceCategory,
		*f.ResourceType == model.AuditResourceMarketplace,
		*f.ResourceType == model.AuditResourceStock:
	default:
		return nil, validationError("invalid resourceType")
	}

	logs, err := u.auditRepo.List(ctx, f)
	if err != nil {
		return nil, storageError(u.logger, "audit.list", err)
	}
	return logs, nil
}
