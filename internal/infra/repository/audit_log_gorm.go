package repository

import (
	"context"

	"stockledger/internal/domain/model"
	repo "stockledger/internal/repository"

	"gorm.io/gorm"
)

const (
	auditDefaultLimit = 50
	auditMaxLimit     = 200
)

type AuditLogGormRepository struct {
	db *gorm.DB
}

func NewAuditLogGormRepository(db *gorm.DB) *AuditLogGormRepository {
	return &AuditLogGormRepository{db: db}
}

// 変更と同じトランザクションで書く前提（TxManagerGorm経由）
func (r *AuditLogGormRepository) Create(ctx context.Context, entry model.AuditLog) error {
	entry.ID = 0
	return r.db.WithContext(ctx).Create(&entry).Error
}

// List は新しい順。limitは1〜200に丸める。
func (r *AuditLogGormRepository) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	limit := f.Limit
	if limit <= 0 || limit > auditMaxLimit {
		limit = auditDefaultLimit
	}

	var out []model.AuditLog
	err := r.db.WithContext(ctx).
		Scopes(auditConditions(f)).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Offset(max(f.Offset, 0)).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func auditConditions(f repo.AuditLogFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		conds := map[string]any{}
		if f.Actor != nil {
			conds["actor"] = *f.Actor
		}
		if f.Action != nil {
			conds["action"] = *f.Action
		}
		if f.ResourceType != nil {
			conds["resource_type"] = *f.ResourceType
		}
		if f.ResourceID != nil {
			conds["resource_id"] = *f.ResourceID
		}
		if len(conds) > 0 {
			q = q.Where(conds)
		}

		//CreatedToは含まない
		if f.CreatedFrom != nil {
			q = q.Where("created_at >= ?", *f.CreatedFrom)
		}
		if f.CreatedTo != nil {
			q = q.Where("created_at < ?", *f.CreatedTo)
		}
		return q
	}
}
