package repository

import (
	"context"
	"errors"
	"strings"

	"stockledger/internal/domain/model"
	repo "stockledger/internal/repository"

	"gorm.io/gorm"
)

type MarketplaceGormRepository struct {
	db *gorm.DB
}

// DI
func NewMarketplaceGormRepository(db *gorm.DB) *MarketplaceGormRepository {
	return &MarketplaceGormRepository{db: db}
}

func (r *MarketplaceGormRepository) List(ctx context.Context) ([]model.Marketplace, error) {
	var ms []model.Marketplace
	if err := r.db.WithContext(ctx).Order("LOWER(name) asc").Order("id asc").Find(&ms).Error; err != nil {
		return nil, err
	}
	return ms, nil
}

func (r *MarketplaceGormRepository) FindByID(ctx context.Context, id int64) (model.Marketplace, error) {
	var m model.Marketplace
	err := r.db.WithContext(ctx).First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Marketplace{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Marketplace{}, err
	}
	return m, nil
}

// 論理削除済みは対象外（同名で作り直せる）
func (r *MarketplaceGormRepository) ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error) {
	q := r.db.WithContext(ctx).Model(&model.Marketplace{}).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name)))
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *MarketplaceGormRepository) Create(ctx context.Context, m model.Marketplace) (model.Marketplace, error) {
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return model.Marketplace{}, err
	}
	return m, nil
}

func (r *MarketplaceGormRepository) Rename(ctx context.Context, id int64, name string) error {
	res := r.db.WithContext(ctx).Model(&model.Marketplace{}).Where("id = ?", id).Update("name", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *MarketplaceGormRepository) SoftDelete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Marketplace{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
