package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/model"
	"stockledger/internal/lock"
	repo "stockledger/internal/repository"

	"go.uber.org/zap"
)

// Stock Registry。品目の現在値と、入庫数の変更を受け持つ。
type StockUsecase struct {
	stocks repo.StockRepository
	tx     repo.TransactionManager
	locker lock.Locker
	clock  Clock
	logger *zap.Logger
}

// DI
func NewStockUsecase(
	stocks repo.StockRepository,
	tx repo.TransactionManager,
	locker lock.Locker,
	clock Clock,
	logger *zap.Logger,
) *StockUsecase {
	return &StockUsecase{
		stocks: stocks,
		tx:     tx,
		locker: locker,
		clock:  clock,
		logger: logger,
	}
}

type CreateStockInput struct {
	ModelName  string
	CategoryID int64
	//nilは未指定
	InitialQuantity *int64
	Date            time.Time
}

type UpdateStockInput struct {
	ModelName       string
	CategoryID      int64
	InitialQuantity *int64
	//入庫数を訂正するときの業務日付。nilなら今日
	Date *time.Time
}

type ListStocksInput struct {
	CategoryID *int64
	Search     string
}

func (u *StockUsecase) CreateStock(ctx context.Context, actor string, in CreateStockInput) (model.StockItem, error) {
	modelName, err := normalizeName("modelName", in.ModelName)
	if err != nil {
		return model.StockItem{}, err
	}
	if in.CategoryID <= 0 {
		return model.StockItem{}, validationError("categoryId is required")
	}
	if in.InitialQuantity == nil {
		return model.StockItem{}, validationError("initialQuantity is required")
	}
	if *in.InitialQuantity < 0 {
		return model.StockItem{}, validationError("initialQuantity must be >= 0")
	}
	if in.Date.IsZero() {
		return model.StockItem{}, validationError("date is required")
	}
	initial := *in.InitialQuantity
	date := ledger.NormalizeDate(in.Date)

	var out model.StockItem
	err = withLocks(ctx, u.locker, u.logger, []string{lock.StockNamesKey(in.CategoryID)}, func() error {
		return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			category, err := r.Categories().FindByID(ctx, in.CategoryID)
			if err != nil {
				return lookupError(u.logger, "stock.create", "category", err)
			}

			exists, err := r.Stocks().ExistsByModelName(ctx, in.CategoryID, modelName, 0)
			if err != nil {
				return storageError(u.logger, "stock.create", err)
			}
			if exists {
				return duplicateError("stock %q already exists in category %q", modelName, category.Name)
			}

			out, err = r.Stocks().Create(ctx, model.StockItem{
				ModelName:         modelName,
				CategoryID:        in.CategoryID,
				InitialQuantity:   initial,
				AvailableQuantity: initial,
				Date:              date,
			})
			if err != nil {
				return storageError(u.logger, "stock.create", err)
			}

			//最初の入庫を台帳に残す
			if _, err := r.Transactions().Append(ctx, model.StockTransaction{
				StockID:                   out.ID,
				ModelName:                 out.ModelName,
				InitialQuantity:           initial,
				CategoryID:                category.ID,
				CategoryName:              category.Name,
				TransactionType:           model.TransactionInitial,
				Quantity:                  initial,
				PreviousAvailableQuantity: 0,
				NewAvailableQuantity:      initial,
				Date:                      date,
				CreatedAt:                 u.clock.Now(),
			}); err != nil {
				return storageError(u.logger, "stock.create", err)
			}

			return writeAudit(ctx, r, u.clock.Now(), actor, model.AuditActionCreate, model.AuditResourceStock, out.ID, nil, out)
		})
	})
	if err != nil {
		return model.StockItem{}, txError(u.logger, "stock.create", err)
	}
	return out, nil
}

func (u *StockUsecase) GetStock(ctx context.Context, id int64) (model.StockItem, error) {
	if id <= 0 {
		return model.StockItem{}, validationError("invalid stock id")
	}
	s, err := u.stocks.FindByID(ctx, id)
	if err != nil {
		return model.StockItem{}, lookupError(u.logger, "stock.get", "stock", err)
	}
	return s, nil
}

// 品目名順（同名はid順）
func (u *StockUsecase) ListStocks(ctx context.Context, in ListStocksInput) ([]model.StockItem, error) {
	if in.CategoryID != nil && *in.CategoryID <= 0 {
		return nil, validationError("invalid categoryId")
	}
	if len(in.Search) > maxNameLength {
		return nil, validationError("search too long")
	}
	items, err := u.stocks.List(ctx, repo.StockListQuery{
		CategoryID: in.CategoryID,
		Search:     strings.TrimSpace(in.Search),
	})
	if err != nil {
		return nil, storageError(u.logger, "stock.list", err)
	}
	return items, nil
}

// 入庫数の訂正。販売済み数より小さくはできない。
func (u *StockUsecase) UpdateStockInitialQuantity(ctx context.Context, actor string, id int64, newInitial int64, date *time.Time) (model.StockItem, error) {
	if id <= 0 {
		return model.StockItem{}, validationError("invalid stock id")
	}
	if newInitial < 0 {
		return model.StockItem{}, validationError("initialQuantity must be >= 0")
	}

	var out model.StockItem
	err := withLocks(ctx, u.locker, u.logger, []string{lock.StockKey(id)}, func() error {
		return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			stock, err := r.Stocks().FindByIDForUpdate(ctx, id)
			if err != nil {
				return lookupError(u.logger, "stock.correct_initial", "stock", err)
			}
			category, err := r.Categories().FindByID(ctx, stock.CategoryID)
			if err != nil {
				return lookupError(u.logger, "stock.correct_initial", "category", err)
			}

			out, err = u.correctInitial(ctx, r, actor, stock, category, newInitial, date)
			return err
		})
	})
	if err != nil {
		return model.StockItem{}, txError(u.logger, "stock.correct_initial", err)
	}
	return out, nil
}

// 品目名・カテゴリの変更と入庫数の訂正をまとめて行う
func (u *StockUsecase) UpdateStock(ctx context.Context, actor string, id int64, in UpdateStockInput) (model.StockItem, error) {
	if id <= 0 {
		return model.StockItem{}, validationError("invalid stock id")
	}
	modelName, err := normalizeName("modelName", in.ModelName)
	if err != nil {
		return model.StockItem{}, err
	}
	if in.CategoryID <= 0 {
		return model.StockItem{}, validationError("categoryId is required")
	}
	if in.InitialQuantity != nil && *in.InitialQuantity < 0 {
		return model.StockItem{}, validationError("initialQuantity must be >= 0")
	}

	var out model.StockItem
	err = withLocks(ctx, u.locker, u.logger, []string{lock.StockKey(id)}, func() error {
		current, err := u.stocks.FindByID(ctx, id)
		if err != nil {
			return lookupError(u.logger, "stock.update", "stock", err)
		}

		//移動元と移動先の両カテゴリの品目名を押さえる（id順で取る）
		cats := []int64{current.CategoryID}
		if in.CategoryID != current.CategoryID {
			cats = append(cats, in.CategoryID)
		}
		sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
		keys := make([]string, 0, len(cats))
		for _, c := range cats {
			keys = append(keys, lock.StockNamesKey(c))
		}

		return withLocks(ctx, u.locker, u.logger, keys, func() error {
			return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
				before, err := r.Stocks().FindByIDForUpdate(ctx, id)
				if err != nil {
					return lookupError(u.logger, "stock.update", "stock", err)
				}
				category, err := r.Categories().FindByID(ctx, in.CategoryID)
				if err != nil {
					return lookupError(u.logger, "stock.update", "category", err)
				}

				after := before
				if !strings.EqualFold(before.ModelName, modelName) || before.CategoryID != in.CategoryID {
					exists, err := r.Stocks().ExistsByModelName(ctx, in.CategoryID, modelName, id)
					if err != nil {
						return storageError(u.logger, "stock.update", err)
					}
					if exists {
						return duplicateError("stock %q already exists in category %q", modelName, category.Name)
					}
				}
				if before.ModelName != modelName || before.CategoryID != in.CategoryID {
					if err := r.Stocks().UpdateDetails(ctx, id, modelName, in.CategoryID); err != nil {
						return lookupError(u.logger, "stock.update", "stock", err)
					}
					after.ModelName = modelName
					after.CategoryID = in.CategoryID
					if err := writeAudit(ctx, r, u.clock.Now(), actor, model.AuditActionUpdate, model.AuditResourceStock, id, before, after); err != nil {
						return storageError(u.logger, "stock.update", err)
					}
				}

				if in.InitialQuantity != nil {
					after, err = u.correctInitial(ctx, r, actor, after, category, *in.InitialQuantity, in.Date)
					if err != nil {
						return err
					}
				}
				out = after
				return nil
			})
		})
	})
	if err != nil {
		return model.StockItem{}, txError(u.logger, "stock.update", err)
	}
	return out, nil
}

// correctInitial は入庫数をnewInitialに置き換え、残数を差分だけ動かして訂正行を台帳に足す。
// stockはロック済みであること。
func (u *StockUsecase) correctInitial(ctx context.Context, r repo.TxRepos, actor string, stock model.StockItem, category model.Category, newInitial int64, date *time.Time) (model.StockItem, error) {
	if newInitial == stock.InitialQuantity {
		return stock, nil
	}

	sold := stock.InitialQuantity - stock.AvailableQuantity
	newAvailable := stock.AvailableQuantity + (newInitial - stock.InitialQuantity)
	if newAvailable < 0 {
		return model.StockItem{}, conflictError("cannot set initialQuantity to %d: %d unit(s) are already sold", newInitial, sold)
	}

	now := u.clock.Now()
	day := ledger.NormalizeDate(now)
	if date != nil {
		day = ledger.NormalizeDate(*date)
	}

	//入庫行の順序が崩れると再生結果が変わるので、直前の入庫日より前には置けない
	txs, err := r.Transactions().ListForReplay(ctx, []int64{stock.ID})
	if err != nil {
		return model.StockItem{}, storageError(u.logger, "stock.correct_initial", err)
	}
	for _, tx := range txs {
		if tx.TransactionType == model.TransactionInitial && day.Before(tx.Date.UTC()) {
			return model.StockItem{}, validationError("date must not be before the last entry date %s", tx.Date.UTC().Format(ledger.DateLayout))
		}
	}

	if err := r.Stocks().UpdateQuantities(ctx, stock.ID, stock.AvailableQuantity, newInitial, newAvailable); err != nil {
		return model.StockItem{}, quantityUpdateError(u.logger, "stock.correct_initial", err)
	}

	if _, err := r.Transactions().Append(ctx, model.StockTransaction{
		StockID:                   stock.ID,
		ModelName:                 stock.ModelName,
		InitialQuantity:           newInitial,
		CategoryID:                category.ID,
		CategoryName:              category.Name,
		TransactionType:           model.TransactionInitial,
		Quantity:                  newInitial,
		PreviousAvailableQuantity: stock.AvailableQuantity,
		NewAvailableQuantity:      newAvailable,
		Date:                      day,
		CreatedAt:                 now,
	}); err != nil {
		return model.StockItem{}, storageError(u.logger, "stock.correct_initial", err)
	}

	after := stock
	after.InitialQuantity = newInitial
	after.AvailableQuantity = newAvailable

	type quantities struct {
		InitialQuantity   int64 `json:"initialQuantity"`
		AvailableQuantity int64 `json:"availableQuantity"`
	}
	if err := writeAudit(ctx, r, now, actor, model.AuditActionCorrectInitial, model.AuditResourceStock, stock.ID,
		quantities{stock.InitialQuantity, stock.AvailableQuantity},
		quantities{newInitial, newAvailable},
	); err != nil {
		return model.StockItem{}, storageError(u.logger, "stock.correct_initial", err)
	}
	return after, nil
}

// 論理削除。台帳行は削除済み扱いにしてスナップショットを残す。
func (u *StockUsecase) DeleteStock(ctx context.Context, actor string, id int64) error {
	if id <= 0 {
		return validationError("invalid stock id")
	}

	err := withLocks(ctx, u.locker, u.logger, []string{lock.StockKey(id)}, func() error {
		return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			before, err := r.Stocks().FindByIDForUpdate(ctx, id)
			if err != nil {
				return lookupError(u.logger, "stock.delete", "stock", err)
			}
			if err := r.Stocks().SoftDelete(ctx, id); err != nil {
				return lookupError(u.logger, "stock.delete", "stock", err)
			}
			if err := r.Transactions().MarkStockDeleted(ctx, id); err != nil {
				return storageError(u.logger, "stock.delete", err)
			}
			return writeAudit(ctx, r, u.clock.Now(), actor, model.AuditActionDelete, model.AuditResourceStock, id, before, nil)
		})
	})
	return txError(u.logger, "stock.delete", err)
}

// CASに負けた（ロック外からの書き込み）ならstorage扱いで再試行してもらう
func quantityUpdateError(logger *zap.Logger, op string, err error) error {
	if errors.Is(err, repo.ErrStale) {
		logger.Warn("stock quantity changed concurrently", zap.String("op", op))
		return &AppError{Kind: KindStorage, Message: "stock was modified concurrently, retry", Err: err}
	}
	return lookupError(logger, op, "stock", err)
}
