package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"stockledger/internal/domain/model"
	repo "stockledger/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StockGormRepository struct {
	db *gorm.DB
}

// DI
func NewStockGormRepository(db *gorm.DB) *StockGormRepository {
	return &StockGormRepository{db: db}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// カテゴリ・品目名で絞って、品目名順で返す。
func (r *StockGormRepository) List(ctx context.Context, q repo.StockListQuery) ([]model.StockItem, error) {
	tx := r.db.WithContext(ctx).Model(&model.StockItem{})

	if q.CategoryID != nil {
		tx = tx.Where("category_id = ?", *q.CategoryID)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
		tx = tx.Where(`LOWER(model_name) LIKE ? ESCAPE '\'`, like)
	}

	var items []model.StockItem
	if err := tx.Order("LOWER(model_name) asc").Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *StockGormRepository) FindByID(ctx context.Context, id int64) (model.StockItem, error) {
	return r.first(ctx, r.db.WithContext(ctx), id)
}

// postgresでは SELECT ... FOR UPDATE。SQLiteは句を出さない（書き込みが直列なので不要）。
func (r *StockGormRepository) FindByIDForUpdate(ctx context.Context, id int64) (model.StockItem, error) {
	return r.first(ctx, r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *StockGormRepository) first(ctx context.Context, tx *gorm.DB, id int64) (model.StockItem, error) {
	var s model.StockItem
	err := tx.First(&s, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.StockItem{}, repo.ErrNotFound
	}
	if err != nil {
		return model.StockItem{}, err
	}
	return s, nil
}

func (r *StockGormRepository) ExistsByModelName(ctx context.Context, categoryID int64, modelName string, excludeID int64) (bool, error) {
	q := r.db.WithContext(ctx).Model(&model.StockItem{}).
		Where("category_id = ?", categoryID).
		Where("LOWER(model_name) = ?", strings.ToLower(strings.TrimSpace(modelName)))
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *StockGormRepository) CountByCategory(ctx context.Context, categoryID int64) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.StockItem{}).Where("category_id = ?", categoryID).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *StockGormRepository) Create(ctx context.Context, s model.StockItem) (model.StockItem, error) {
	if err := r.db.WithContext(ctx).Create(&s).Error; err != nil {
		return model.StockItem{}, err
	}
	return s, nil
}

func (r *StockGormRepository) UpdateDetails(ctx context.Context, id int64, modelName string, categoryID int64) error {
	res := r.db.WithContext(ctx).Model(&model.StockItem{}).Where("id = ?", id).Updates(map[string]interface{}{
		"model_name":  modelName,
		"category_id": categoryID,
		"updated_at":  time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 残数が期待値のときだけ書き換える（他の書き込みとの取り合いを防ぐ）
func (r *StockGormRepository) UpdateQuantities(ctx context.Context, id int64, expectedAvailable int64, initial int64, available int64) error {
	res := r.db.WithContext(ctx).Model(&model.StockItem{}).
		Where("id = ? AND available_quantity = ?", id, expectedAvailable).
		Updates(map[string]interface{}{
			"initial_quantity":   initial,
			"available_quantity": available,
			"updated_at":         time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		//存在しないのか、先を越されたのか
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return repo.ErrStale
	}
	return nil
}

func (r *StockGormRepository) SoftDelete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.StockItem{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
