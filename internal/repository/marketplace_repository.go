package repository

import (
	"context"

	"stockledger/internal/domain/model"
)

// 販売先の永続化の約束。削除は論理削除。
type MarketplaceRepository interface {
	List(ctx context.Context) ([]model.Marketplace, error)
	FindByID(ctx context.Context, id int64) (model.Marketplace, error)
	ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error)

	Create(ctx context.Context, m model.Marketplace) (model.Marketplace, error)
	Rename(ctx context.Context, id int64, name string) error
	SoftDelete(ctx context.Context, id int64) error
}
