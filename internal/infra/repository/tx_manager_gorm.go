package repository

import (
	"context"

	repo "stockledger/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	categories   repo.CategoryRepository
	marketplaces repo.MarketplaceRepository
	stocks       repo.StockRepository
	transactions repo.TransactionRepository
	auditLogs    repo.AuditLogRepository
}

func (r *txReposGorm) Categories() repo.CategoryRepository { return r.categories }
func (r *txReposGorm) Marketplaces() repo.MarketplaceRepository { return r.marketplaces }
func (r *txReposGorm) Stocks() repo.StockRepository { return r.stocks }
func (r *txReposGorm) Transactions() repo.TransactionRepository { return r.transactions }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository { return r.auditLogs }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

// fnがエラーを返したらrollback
func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			categories:   NewCategoryGormRepository(tx),
			marketplaces: NewMarketplaceGormRepository(tx),
			stocks:       NewStockGormRepository(tx),
			transactions: NewTransactionGormRepository(tx),
			auditLogs:    NewAuditLogGormRepository(tx),
		}
		return fn(r)
	})
}
