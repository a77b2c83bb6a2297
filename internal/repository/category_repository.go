package repository

import (
	"context"

	"stockledger/internal/domain/model"
)

// カテゴリの永続化の約束。名前比較は大文字小文字を区別しない。
type CategoryRepository interface {
	List(ctx context.Context) ([]model.Category, error)
	FindByID(ctx context.Context, id int64) (model.Category, error)
	FindByIDs(ctx context.Context, ids []int64) ([]model.Category, error)

	//excludeIDが0なら除外なし
	ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error)

	Create(ctx context.Context, c model.Category) (model.Category, error)
	Rename(ctx context.Context, id int64, name string) error
	Delete(ctx context.Context, id int64) error
}
