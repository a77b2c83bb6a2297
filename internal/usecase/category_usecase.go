package usecase

import (
	"context"
	"strings"
	"unicode/utf8"

	"stockledger/internal/domain/model"
	"stockledger/internal/lock"
	repo "stockledger/internal/repository"

	"go.uber.org/zap"
)

const maxNameLength = 255

type CategoryUsecase struct {
	categories repo.CategoryRepository
	tx         repo.TransactionManager
	locker     lock.Locker
	clock      Clock
	logger     *zap.Logger
}

// DI
func NewCategoryUsecase(
	categories repo.CategoryRepository,
	tx repo.TransactionManager,
	locker lock.Locker,
	clock Clock,
	logger *zap.Logger,
) *CategoryUsecase {
	return &CategoryUsecase{
		categories: categories,
		tx:         tx,
		locker:     locker,
		clock:      clock,
		logger:     logger,
	}
}

// 前後の空白を落として長さを見る
func normalizeName(field string, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", validationError("%s is required", field)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", validationError("%s must be at most %d characters", field, maxNameLength)
	}
	return name, nil
}

func (u *CategoryUsecase) List(ctx context.Context) ([]model.Category, error) {
	cs, err := u.categories.List(ctx)
	if err != nil {
		return nil, storageError(u.logger, "category.list", err)
	}
	return cs, nil
}

func (u *CategoryUsecase) Get(ctx context.Context, id int64) (model.Category, error) {
	if id <= 0 {
		return model.Category{}, validationError("invalid category id")
	}
	c, err := u.categories.FindByID(ctx, id)
	if err != nil {
		return model.Category{}, lookupError(u.logger, "category.get", "category", err)
	}
	return c, nil
}

func (u *CategoryUsecase) Create(ctx context.Context, actor string, name string) (model.Category, error) {
	name, err := normalizeName("name", name)
	if err != nil {
		return model.Category{}, err
	}

	var out model.Category
	err = withLocks(ctx, u.locker, u.logger, []string{lock.CategoryNamesKey}, func() error {
		return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			exists, err := r.Categories().ExistsByName(ctx, name, 0)
			if err != nil {
				return storageError(u.logger, "category.create", err)
			}
			if exists {
				return duplicateError("category %q already exists", name)
			}

			out, err = r.Categories().Create(ctx, model.Category{Name: name})
			if err != nil {
				return storageError(u.logger, "category.create", err)
			}

			if err := writeAudit(ctx, r, u.clock.Now(), actor, model.AuditActionCreate, model.AuditResourceCategory, out.ID, nil, out); err != nil {
				return storageError(u.logger, "category.create", err)
			}
			return nil
		})
	})
	if err != nil {
		return model.Category{}, txError(u.logger, "category.create", err)
	}
	return out, nil
}

func (u *CategoryUsecase) Rename(ctx context.Context, actor string, id int64, name string) (model.Category, error) {
	if id <= 0 {
		return model.Category{}, validationError("invalid category id")
	}
	name, err := normalizeName("name", name)
	if err != nil {
		return model.Category{}, err
	}

	var out model.Category
	err = withLocks(ctx, u.locker, u.logger, []string{lock.CategoryNamesKey}, func() error {
		return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			before, err := r.Categories().FindByID(ctx, id)
			if err != nil {
				return lookupError(u.logger, "category.rename", "category", err)
			}

			exists, err := r.Categories().ExistsByName(ctx, name, id)
			if err != nil {
				return storageError(u.logger, "category.rename", err)
			}
			if exists {
				return duplicateError("category %q already exists", name)
			}

			//同じ名前なら何もしない
			if before.Name == name {
				out = before
				return nil
			}

			if err := r.Categories().Rename(ctx, id, name); err != nil {
				return lookupError(u.logger, "category.rename", "category", err)
			}
			out = before
			out.Name = name

			return writeAudit(ctx, r, u.clock.Now(), actor, model.AuditActionUpdate, model.AuditResourceCategory, id, before, out)
		})
	})
	if err != nil {
		return model.Category{}, txError(u.logger, "category.rename", err)
	}
	return out, nil
}

// 在庫品目から参照されている間は消せない
func (u *CategoryUsecase) Delete(ctx context.Context, actor string, id int64) error {
	if id <= 0 {
		return validationError("invalid category id")
	}

	//同カテゴリへの品目追加と取り合わないよう、品目名のロックも取る
	keys := []string{lock.CategoryNamesKey, lock.StockNamesKey(id)}
	err := withLocks(ctx, u.locker, u.logger, keys, func() error {
		return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			before, err := r.Categories().FindByID(ctx, id)
			if err != nil {
				return lookupError(u.logger, "category.delete", "category", err)
			}

			n, err := r.Stocks().CountByCategory(ctx, id)
			if err != nil {
				return storageError(u.logger, "category.delete", err)
			}
			if n > 0 {
				return conflictError("category is used by %d stock item(s)", n)
			}

			if err := r.Categories().Delete(ctx, id); err != nil {
				return lookupError(u.logger, "category.delete", "category", err)
			}
			return writeAudit(ctx, r, u.clock.Now(), actor, model.AuditActionDelete, model.AuditResourceCategory, id, before, nil)
		})
	})
	return txError(u.logger, "category.delete", err)
}
