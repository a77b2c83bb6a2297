package repository

import (
	"context"

	"stockledger/internal/domain/model"
)

// 一覧検索
type StockListQuery struct {
	CategoryID *int64
	//品目名の部分一致（大文字小文字を区別しない）
	Search string
}

// 在庫品目（現在値）の永続化の約束。
type StockRepository interface {
	List(ctx context.Context, q StockListQuery) ([]model.StockItem, error)
	FindByID(ctx context.Context, id int64) (model.StockItem, error)

	//トランザクション内で行ロックを取って読む
	FindByIDForUpdate(ctx context.Context, id int64) (model.StockItem, error)

	ExistsByModelName(ctx context.Context, categoryID int64, modelName string, excludeID int64) (bool, error)
	CountByCategory(ctx context.Context, categoryID int64) (int64, error)

	Create(ctx context.Context, s model.StockItem) (model.StockItem, error)

	//品目名・カテゴリの更新（数量は触らない）
	UpdateDetails(ctx context.Context, id int64, modelName string, categoryID int64) error

	//残数がexpectedAvailableのときだけ数量を書き換える。違えばErrStale。
	UpdateQuantities(ctx context.Context, id int64, expectedAvailable int64, initial int64, available int64) error

	SoftDelete(ctx context.Context, id int64) error
}
