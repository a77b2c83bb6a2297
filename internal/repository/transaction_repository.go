package repository

import (
	"context"
	"time"

	"stockledger/internal/domain/model"
)

// 台帳の絞り込み条件。指定されたものはすべてAND。
type TransactionFilter struct {
	StockID         *int64
	CategoryID      *int64
	MarketplaceID   *int64
	TransactionType *model.TransactionType
	ReturnType      *model.ReturnType
	//DateFrom <= date < DateTo
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
}

// 種類ごとの件数と数量の合計（Limitは見ない）
type TransactionAggregate struct {
	TransactionType model.TransactionType
	ReturnType      model.ReturnType
	Count           int64
	Quantity        int64
}

// 台帳（追記のみ）の約束。過去行の数量・スナップショットは更新しない。
type TransactionRepository interface {
	Append(ctx context.Context, tx model.StockTransaction) (model.StockTransaction, error)

	//date降順、同日はid降順
	Query(ctx context.Context, f TransactionFilter) ([]model.StockTransaction, error)

	//Queryと同じ条件で全件を集計する
	Aggregate(ctx context.Context, f TransactionFilter) ([]TransactionAggregate, error)

	//再生用：date, created_at, id の昇順。stockIDsが空なら全件。
	ListForReplay(ctx context.Context, stockIDs []int64) ([]model.StockTransaction, error)

	CountByStock(ctx context.Context, stockID int64) (int64, error)

	//参照先が消えたことだけを記録する（スナップショットは残す）
	MarkStockDeleted(ctx context.Context, stockID int64) error
	MarkMarketplaceDeleted(ctx context.Context, marketplaceID int64) error
}
