package usecase

import (
	"context"

	"stockledger/internal/domain/model"
	"stockledger/internal/lock"
	repo "stockledger/internal/repository"

	"go.uber.org/zap"
)

type MarketplaceUsecase struct {
	marketplaces repo.MarketplaceRepository
	tx           repo.TransactionManager
	locker       lock.Locker
	clock        Clock
	logger       *zap.Logger
}

// DI
func NewMarketplaceUsecase(
	marketplaces repo.MarketplaceRepository,
	tx repo.TransactionManager,
	locker lock.Locker,
	clock Clock,
	logger *zap.Logger,
) *MarketplaceUsecase {
	return &MarketplaceUsecase{
		marketplaces: marketplaces,
		tx:           tx,
		locker:       locker,
		clock:        clock,
		logger:       logger,
	}
}

func (u *MarketplaceUsecase) List(ctx context.Context) ([]model.Marketplace, error) {
	ms, err := u.marketplaces.List(ctx)
	if err != nil {
		return nil, storageError(u.logger, "marketplace.list", err)
	}
	return ms, nil
}

func (u *MarketplaceUsecase) Get(ctx context.Context, id int64) (model.Marketplace, error) {
	if id <= 0 {
		return model.Marketplace{}, validationError("invalid marketplace id")
	}
	m, err := u.marketplaces.FindByID(ctx, id)
	if err != nil {
		return model.Marketplace{}, lookupError(u.logger, "marketplace.get", "marketplace", err)
	}
	return m, nil
}

func (u *MarketplaceUsecase) Create(ctx context.Context, actor string, name string) (model.Marketplace, error) {
	name, err := normalizeName("name", name)
	if err != nil {
		return model.Marketplace{}, err
	}

	var out model.Marketplace
	err = withLocks(ctx, u.locker, u.logger, []string{lock.MarketplaceNamesKey}, func() error {
		return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			exists, err := r.Marketplaces().ExistsByName(ctx, name, 0)
			if err != nil {
				return storageError(u.logger, "marketplace.create", err)
			}
			if exists {
				return duplicateError("marketplace %q already exists", name)
			}

			out, err = r.Marketplaces().Create(ctx, model.Marketplace{Name: name})
			if err != nil {
				return storageError(u.logger, "marketplace.create", err)
			}
			return writeAudit(ctx, r, u.clock.Now(), actor, model.AuditActionCreate, model.AuditResourceMarketplace, out.ID, nil, out)
		})
	})
	if err != nil {
		return model.Marketplace{}, txError(u.logger, "marketplace.create", err)
	}
	return out, nil
}

// 改名しても過去の台帳の販売先名（スナップショット）は変わらない
func (u *MarketplaceUsecase) Rename(ctx context.Context, actor string, id int64, name string) (model.Marketplace, error) {
	if id <= 0 {
		return model.Marketplace{}, validationError("invalid marketplace id")
	}
	name, err := normalizeName("name", name)
	if err != nil {
		return model.Marketplace{}, err
	}

	var out model.Marketplace
	err = withLocks(ctx, u.locker, u.logger, []string{lock.MarketplaceNamesKey}, func() error {
		return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			before, err := r.Marketplaces().FindByID(ctx, id)
			if err != nil {
				return lookupError(u.logger, "marketplace.rename", "marketplace", err)
			}

			exists, err := r.Marketplaces().ExistsByName(ctx, name, id)
			if err != nil {
				return storageError(u.logger, "marketplace.rename", err)
			}
			if exists {
				return duplicateError("marketplace %q already exists", name)
			}
			if before.Name == name {
				out = before
				return nil
			}

			if err := r.Marketplaces().Rename(ctx, id, name); err != nil {
				return lookupError(u.logger, "marketplace.rename", "marketplace", err)
			}
			out = before
			out.Name = name
			return writeAudit(ctx, r, u.clock.Now(), actor, model.AuditActionUpdate, model.AuditResourceMarketplace, id, before, out)
		})
	})
	if err != nil {
		return model.Marketplace{}, txError(u.logger, "marketplace.rename", err)
	}
	return out, nil
}

// 論理削除。参照している台帳行は削除済み扱いにして名前だけ残す。
func (u *MarketplaceUsecase) Delete(ctx context.Context, actor string, id int64) error {
	if id <= 0 {
		return validationError("invalid marketplace id")
	}

	keys := []string{lock.MarketplaceNamesKey, lock.MarketplaceKey(id)}
	err := withLocks(ctx, u.locker, u.logger, keys, func() error {
		return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			before, err := r.Marketplaces().FindByID(ctx, id)
			if err != nil {
				return lookupError(u.logger, "marketplace.delete", "marketplace", err)
			}
			if err := r.Marketplaces().SoftDelete(ctx, id); err != nil {
				return lookupError(u.logger, "marketplace.delete", "marketplace", err)
			}
			if err := r.Transactions().MarkMarketplaceDeleted(ctx, id); err != nil {
				return storageError(u.logger, "marketplace.delete", err)
			}
			return writeAudit(ctx, r, u.clock.Now(), actor, model.AuditActionDelete, model.AuditResourceMarketplace, id, before, nil)
		})
	})
	return txError(u.logger, "marketplace.delete", err)
}
