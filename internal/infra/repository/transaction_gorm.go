package repository

import (
	"context"

	"stockledger/internal/domain/model"
	repo "stockledger/internal/repository"

	"gorm.io/gorm"
)

// 台帳。数量とスナップショットは一度書いたら変えない。
type TransactionGormRepository struct {
	db *gorm.DB
}

// DI
func NewTransactionGormRepository(db *gorm.DB) *TransactionGormRepository {
	return &TransactionGormRepository{db: db}
}

func (r *TransactionGormRepository) Append(ctx context.Context, tx model.StockTransaction) (model.StockTransaction, error) {
	tx.ID = 0
	if err := r.db.WithContext(ctx).Create(&tx).Error; err != nil {
		return model.StockTransaction{}, err
	}
	return tx, nil
}

func (r *TransactionGormRepository) Query(ctx context.Context, f repo.TransactionFilter) ([]model.StockTransaction, error) {
	q := r.db.WithContext(ctx).
		Model(&model.StockTransaction{}).
		Scopes(transactionConditions(f)).
		Order("date desc").Order("id desc")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var txs []model.StockTransaction
	if err := q.Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *TransactionGormRepository) Aggregate(ctx context.Context, f repo.TransactionFilter) ([]repo.TransactionAggregate, error) {
	var rows []repo.TransactionAggregate
	err := r.db.WithContext(ctx).
		Model(&model.StockTransaction{}).
		Scopes(transactionConditions(f)).
		Select("transaction_type, return_type, COUNT(*) AS count, COALESCE(SUM(quantity), 0) AS quantity").
		Group("transaction_type, return_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// QueryとAggregateで共通の絞り込み
func transactionConditions(f repo.TransactionFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if f.StockID != nil {
			q = q.Where("stock_id = ?", *f.StockID)
		}
		if f.CategoryID != nil {
			q = q.Where("category_id = ?", *f.CategoryID)
		}
		if f.MarketplaceID != nil {
			q = q.Where("marketplace_id = ?", *f.MarketplaceID)
		}
		if f.TransactionType != nil {
			q = q.Where("transaction_type = ?", *f.TransactionType)
		}
		if f.ReturnType != nil {
			q = q.Where("return_type = ?", *f.ReturnType)
		}
		if f.DateFrom != nil {
			q = q.Where("date >= ?", *f.DateFrom)
		}
		if f.DateTo != nil {
			q = q.Where("date < ?", *f.DateTo)
		}
		return q
	}
}

func (r *TransactionGormRepository) ListForReplay(ctx context.Context, stockIDs []int64) ([]model.StockTransaction, error) {
	q := r.db.WithContext(ctx).Model(&model.StockTransaction{})
	if len(stockIDs) > 0 {
		q = q.Where("stock_id IN ?", stockIDs)
	}

	var txs []model.StockTransaction
	if err := q.Order("date asc").Order("created_at asc").Order("id asc").Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *TransactionGormRepository) CountByStock(ctx context.Context, stockID int64) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.StockTransaction{}).Where("stock_id = ?", stockID).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *TransactionGormRepository) MarkStockDeleted(ctx context.Context, stockID int64) error {
	return r.db.WithContext(ctx).Model(&model.StockTransaction{}).
		Where("stock_id = ?", stockID).
		Update("stock_deleted", true).Error
}

// marketplace_idを外し、名前だけ残す
func (r *TransactionGormRepository) MarkMarketplaceDeleted(ctx context.Context, marketplaceID int64) error {
	return r.db.WithContext(ctx).Model(&model.StockTransaction{}).
		Where("marketplace_id = ?", marketplaceID).
		Updates(map[string]interface{}{
			"marketplace_id":      nil,
			"marketplace_deleted": true,
		}).Error
}
