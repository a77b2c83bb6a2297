package usecase

import (
	"context"
	"errors"
	"time"

	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/model"
	"stockledger/internal/lock"
	repo "stockledger/internal/repository"

	"go.uber.org/zap"
)

// 台帳の一覧で1回に返す上限
const (
	defaultTransactionLimit = 500
	maxTransactionLimit     = 5000
)

// Reconciliation Engine。販売・返品を検証して台帳と在庫を同時に更新し、
// 台帳からレポートと整合チェックを組み立てる。
type InventoryUsecase struct {
	stocks       repo.StockRepository
	categories   repo.CategoryRepository
	transactions repo.TransactionRepository
	tx           repo.TransactionManager
	locker       lock.Locker
	clock        Clock
	logger       *zap.Logger
}

// DI
func NewInventoryUsecase(
	stocks repo.StockRepository,
	categories repo.CategoryRepository,
	transactions repo.TransactionRepository,
	tx repo.TransactionManager,
	locker lock.Locker,
	clock Clock,
	logger *zap.Logger,
) *InventoryUsecase {
	return &InventoryUsecase{
		stocks:       stocks,
		categories:   categories,
		transactions: transactions,
		tx:           tx,
		locker:       locker,
		clock:        clock,
		logger:       logger,
	}
}

type SellInput struct {
	StockID       int64
	Quantity      int64
	MarketplaceID int64
	//ゼロ値なら今日
	Date time.Time
}

type ReturnInput struct {
	StockID       int64
	Quantity      int64
	ReturnType    model.ReturnType
	MarketplaceID int64
	Date          time.Time
}

// 単一エンドポイント用（transactionTypeで振り分け）
type RecordTransactionInput struct {
	StockID         int64
	TransactionType model.TransactionType
	ReturnType      model.ReturnType
	Quantity        int64
	MarketplaceID   int64
	Date            time.Time
}

type TransactionResult struct {
	Transaction model.StockTransaction `json:"transaction"`
	Stock       model.StockItem        `json:"stock"`
}

func (u *InventoryUsecase) RecordSell(ctx context.Context, in SellInput) (TransactionResult, error) {
	if in.StockID <= 0 {
		return TransactionResult{}, validationError("stockId is required")
	}
	if in.Quantity <= 0 {
		return TransactionResult{}, validationError("quantity must be > 0")
	}
	if in.MarketplaceID <= 0 {
		return TransactionResult{}, validationError("marketplaceId is required")
	}

	return u.record(ctx, in.StockID, in.MarketplaceID, "inventory.sell", func(stock model.StockItem) (model.StockTransaction, error) {
		newAvailable := stock.AvailableQuantity - in.Quantity
		if newAvailable < 0 {
			return model.StockTransaction{}, &AppError{
				Kind:    KindInsufficientStock,
				Message: "insufficient stock",
				Err:     errors.New("requested quantity exceeds available quantity"),
			}
		}
		return model.StockTransaction{
			TransactionType:      model.TransactionSell,
			Quantity:             in.Quantity,
			NewAvailableQuantity: newAvailable,
			Date:                 in.Date,
		}, nil
	})
}

func (u *InventoryUsecase) RecordReturn(ctx context.Context, in ReturnInput) (TransactionResult, error) {
	if in.StockID <= 0 {
		return TransactionResult{}, validationError("stockId is required")
	}
	if in.Quantity <= 0 {
		return TransactionResult{}, validationError("quantity must be > 0")
	}
	if !in.ReturnType.Valid() {
		return TransactionResult{}, validationError("returnType must be customer or courier")
	}
	if in.MarketplaceID <= 0 {
		return TransactionResult{}, validationError("marketplaceId is required")
	}

	return u.record(ctx, in.StockID, in.MarketplaceID, "inventory.return", func(stock model.StockItem) (model.StockTransaction, error) {
		//足し算はあふれるので、戻せる余地と比べる
		if in.Quantity > stock.InitialQuantity-stock.AvailableQuantity {
			return model.StockTransaction{}, &AppError{
				Kind:    KindExceedsInitialStock,
				Message: "return quantity exceeds initial stock quantity",
			}
		}
		newAvailable := stock.AvailableQuantity + in.Quantity
		return model.StockTransaction{
			TransactionType:      model.TransactionReturn,
			ReturnType:           in.ReturnType,
			Quantity:             in.Quantity,
			NewAvailableQuantity: newAvailable,
			Date:                 in.Date,
		}, nil
	})
}

func (u *InventoryUsecase) RecordTransaction(ctx context.Context, in RecordTransactionInput) (TransactionResult, error) {
	switch in.TransactionType {
	case model.TransactionSell:
		if in.ReturnType != "" {
			return TransactionResult{}, validationError("returnType is only allowed for return")
		}
		return u.RecordSell(ctx, SellInput{
			StockID:       in.StockID,
			Quantity:      in.Quantity,
			MarketplaceID: in.MarketplaceID,
			Date:          in.Date,
		})
	case model.TransactionReturn:
		return u.RecordReturn(ctx, ReturnInput{
			StockID:       in.StockID,
			Quantity:      in.Quantity,
			ReturnType:    in.ReturnType,
			MarketplaceID: in.MarketplaceID,
			Date:          in.Date,
		})
	case model.TransactionInitial:
		return TransactionResult{}, validationError("initial entries are recorded by creating or correcting a stock item")
	default:
		return TransactionResult{}, validationError("transactionType must be sell or return")
	}
}

// record は1品目をロックして、build で作った行を台帳に足し、在庫を更新する。
// 手順: 品目取得 → 数量チェック（build） → 販売先取得 → 追記 → 更新。
func (u *InventoryUsecase) record(
	ctx context.Context,
	stockID int64,
	marketplaceID int64,
	op string,
	build func(stock model.StockItem) (model.StockTransaction, error),
) (TransactionResult, error) {
	var out TransactionResult

	keys := []string{lock.StockKey(stockID), lock.MarketplaceKey(marketplaceID)}
	err := withLocks(ctx, u.locker, u.logger, keys, func() error {
		return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			stock, err := r.Stocks().FindByIDForUpdate(ctx, stockID)
			if err != nil {
				return lookupError(u.logger, op, "stock", err)
			}

			tx, err := build(stock)
			if err != nil {
				return err
			}

			marketplace, err := r.Marketplaces().FindByID(ctx, marketplaceID)
			if err != nil {
				return lookupError(u.logger, op, "marketplace", err)
			}

			categoryName := ledger.UncategorizedName
			category, err := r.Categories().FindByID(ctx, stock.CategoryID)
			switch {
			case err == nil:
				categoryName = category.Name
			case !errors.Is(err, repo.ErrNotFound):
				return storageError(u.logger, op, err)
			}

			now := u.clock.Now()
			if tx.Date.IsZero() {
				tx.Date = now
			}
			tx.Date = ledger.NormalizeDate(tx.Date)
			tx.StockID = stock.ID
			tx.ModelName = stock.ModelName
			tx.InitialQuantity = stock.InitialQuantity
			tx.CategoryID = stock.CategoryID
			tx.CategoryName = categoryName
			mid := marketplace.ID
			tx.MarketplaceID = &mid
			tx.MarketplaceName = marketplace.Name
			tx.PreviousAvailableQuantity = stock.AvailableQuantity
			tx.CreatedAt = now

			appended, err := r.Transactions().Append(ctx, tx)
			if err != nil {
				return storageError(u.logger, op, err)
			}

			if err := r.Stocks().UpdateQuantities(ctx, stock.ID, stock.AvailableQuantity, stock.InitialQuantity, tx.NewAvailableQuantity); err != nil {
				return quantityUpdateError(u.logger, op, err)
			}

			stock.AvailableQuantity = tx.NewAvailableQuantity
			out = TransactionResult{Transaction: appended, Stock: stock}
			return nil
		})
	})
	if err != nil {
		return TransactionResult{}, txError(u.logger, op, err)
	}

	u.logger.Info("transaction recorded",
		zap.String("op", op),
		zap.Int64("stock_id", out.Stock.ID),
		zap.Int64("transaction_id", out.Transaction.ID),
		zap.Int64("quantity", out.Transaction.Quantity),
		zap.Int64("available", out.Stock.AvailableQuantity),
	)
	return out, nil
}

// 台帳一覧の条件。日付は暦日で、DateToもその日を含む。
type ListTransactionsInput struct {
	StockID         *int64
	CategoryID      *int64
	MarketplaceID   *int64
	TransactionType *model.TransactionType
	ReturnType      *model.ReturnType
	DateFrom        *time.Time
	DateTo          *time.Time
	Limit           int
}

// 表示用。参照先が削除済みかどうかを含める。
type TransactionView struct {
	model.StockTransaction
	Stock       model.Reference  `json:"stock"`
	Marketplace *model.Reference `json:"marketplace,omitempty"`
}

type TransactionSummary struct {
	Count         int   `json:"count"`
	TotalQuantity int64 `json:"totalQuantity"`
	ledger.Totals
	//date が今日の件数
	TodayCount int `json:"todayCount"`
}

type TransactionListOutput struct {
	Items   []TransactionView  `json:"items"`
	Summary TransactionSummary `json:"summary"`
	//Itemsがlimitで切られ、Summaryより少ない
	Truncated bool `json:"truncated"`
}

func (u *InventoryUsecase) ListTransactions(ctx context.Context, in ListTransactionsInput) (TransactionListOutput, error) {
	if in.TransactionType != nil && !in.TransactionType.Valid() {
		return TransactionListOutput{}, validationError("invalid transactionType")
	}
	if in.ReturnType != nil && !in.ReturnType.Valid() {
		return TransactionListOutput{}, validationError("invalid returnType")
	}
	if in.DateFrom != nil && in.DateTo != nil && in.DateTo.Before(*in.DateFrom) {
		return TransactionListOutput{}, validationError("endDate must not be before startDate")
	}
	limit := in.Limit
	if limit < 0 || limit > maxTransactionLimit {
		return TransactionListOutput{}, validationError("limit must be between 1 and %d", maxTransactionLimit)
	}
	if limit == 0 {
		limit = defaultTransactionLimit
	}

	from, to := ledger.DayRange(in.DateFrom, in.DateTo)
	filter := repo.TransactionFilter{
		StockID:         in.StockID,
		CategoryID:      in.CategoryID,
		MarketplaceID:   in.MarketplaceID,
		TransactionType: in.TransactionType,
		ReturnType:      in.ReturnType,
		DateFrom:        from,
		DateTo:          to,
		Limit:           limit,
	}
	txs, err := u.transactions.Query(ctx, filter)
	if err != nil {
		return TransactionListOutput{}, storageError(u.logger, "inventory.list_transactions", err)
	}

	out := TransactionListOutput{Items: make([]TransactionView, 0, len(txs))}
	for _, tx := range txs {
		out.Items = append(out.Items, TransactionView{
			StockTransaction: tx,
			Stock:            tx.StockRef(),
			Marketplace:      tx.MarketplaceRef(),
		})
	}

	//集計は件数制限なしで条件に合う全件
	out.Summary, err = u.summarize(ctx, filter)
	if err != nil {
		return TransactionListOutput{}, err
	}
	out.Truncated = out.Summary.Count > len(out.Items)
	return out, nil
}

func (u *InventoryUsecase) summarize(ctx context.Context, f repo.TransactionFilter) (TransactionSummary, error) {
	f.Limit = 0
	rows, err := u.transactions.Aggregate(ctx, f)
	if err != nil {
		return TransactionSummary{}, storageError(u.logger, "inventory.summarize_transactions", err)
	}

	var sum TransactionSummary
	for _, r := range rows {
		sum.Count += int(r.Count)
		sum.TotalQuantity += r.Quantity
		sum.Totals.Add(r.TransactionType, r.ReturnType, r.Quantity)
	}

	//今日が範囲外なら0のまま
	today := ledger.NormalizeDate(u.clock.Now())
	if (f.DateFrom != nil && today.Before(*f.DateFrom)) || (f.DateTo != nil && !today.Before(*f.DateTo)) {
		return sum, nil
	}
	tomorrow := today.AddDate(0, 0, 1)
	f.DateFrom, f.DateTo = &today, &tomorrow
	rows, err = u.transactions.Aggregate(ctx, f)
	if err != nil {
		return TransactionSummary{}, storageError(u.logger, "inventory.summarize_transactions", err)
	}
	for _, r := range rows {
		sum.TodayCount += int(r.Count)
	}
	return sum, nil
}

// 品目ごとの純販売レポート。品目名順。
func (u *InventoryUsecase) NetReport(ctx context.Context, categoryID *int64) ([]ledger.NetReportRow, error) {
	if categoryID != nil && *categoryID <= 0 {
		return nil, validationError("invalid categoryId")
	}

	stocks, err := u.stocks.List(ctx, repo.StockListQuery{CategoryID: categoryID})
	if err != nil {
		return nil, storageError(u.logger, "inventory.net_report", err)
	}
	if len(stocks) == 0 {
		return []ledger.NetReportRow{}, nil
	}

	stockIDs := make([]int64, 0, len(stocks))
	catSet := make(map[int64]struct{})
	for _, s := range stocks {
		stockIDs = append(stockIDs, s.ID)
		catSet[s.CategoryID] = struct{}{}
	}
	catIDs := make([]int64, 0, len(catSet))
	for id := range catSet {
		catIDs = append(catIDs, id)
	}

	categories, err := u.categories.FindByIDs(ctx, catIDs)
	if err != nil {
		return nil, storageError(u.logger, "inventory.net_report", err)
	}
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	txs, err := u.transactions.ListForReplay(ctx, stockIDs)
	if err != nil {
		return nil, storageError(u.logger, "inventory.net_report", err)
	}

	return ledger.BuildNetReport(stocks, names, txs), nil
}

type ReconcileReport struct {
	Checked int            `json:"checked"`
	Drifts  []ledger.Drift `json:"drifts"`
}

// Reconcile は台帳を再生して在庫の現在値と突き合わせる（書き込みはしない）。
// stockIDがnilなら全品目。
func (u *InventoryUsecase) Reconcile(ctx context.Context, stockID *int64) (ReconcileReport, error) {
	var stocks []model.StockItem
	if stockID != nil {
		if *stockID <= 0 {
			return ReconcileReport{}, validationError("invalid stockId")
		}
		s, err := u.stocks.FindByID(ctx, *stockID)
		if err != nil {
			return ReconcileReport{}, lookupError(u.logger, "inventory.reconcile", "stock", err)
		}
		stocks = []model.StockItem{s}
	} else {
		var err error
		stocks, err = u.stocks.List(ctx, repo.StockListQuery{})
		if err != nil {
			return ReconcileReport{}, storageError(u.logger, "inventory.reconcile", err)
		}
	}

	out := ReconcileReport{Drifts: []ledger.Drift{}}
	if len(stocks) == 0 {
		return out, nil
	}

	ids := make([]int64, 0, len(stocks))
	for _, s := range stocks {
		ids = append(ids, s.ID)
	}
	txs, err := u.transactions.ListForReplay(ctx, ids)
	if err != nil {
		return ReconcileReport{}, storageError(u.logger, "inventory.reconcile", err)
	}
	byStock := make(map[int64][]model.StockTransaction, len(stocks))
	for _, tx := range txs {
		byStock[tx.StockID] = append(byStock[tx.StockID], tx)
	}

	for _, s := range stocks {
		out.Checked++
		if d, drifted := ledger.Check(s, byStock[s.ID]); drifted {
			u.logger.Warn("ledger drift detected",
				zap.Int64("stock_id", s.ID),
				zap.Int64("recorded_available", d.Recorded.Available),
				zap.Int64("replayed_available", d.Replayed.Available),
				zap.String("error", d.Error),
			)
			out.Drifts = append(out.Drifts, d)
		}
	}
	return out, nil
}

// RebuildAvailable は台帳の再生結果で在庫の入庫数・残数を書き直す。
// 一致していれば何もしない（fixed=false）。台帳が再生できないときはConflict。
func (u *InventoryUsecase) RebuildAvailable(ctx context.Context, actor string, stockID int64) (ledger.Drift, bool, error) {
	if stockID <= 0 {
		return ledger.Drift{}, false, validationError("invalid stockId")
	}

	var (
		drift ledger.Drift
		fixed bool
	)
	err := withLocks(ctx, u.locker, u.logger, []string{lock.StockKey(stockID)}, func() error {
		return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			stock, err := r.Stocks().FindByIDForUpdate(ctx, stockID)
			if err != nil {
				return lookupError(u.logger, "inventory.rebuild", "stock", err)
			}
			txs, err := r.Transactions().ListForReplay(ctx, []int64{stockID})
			if err != nil {
				return storageError(u.logger, "inventory.rebuild", err)
			}

			d, drifted := ledger.Check(stock, txs)
			if !drifted {
				return nil
			}
			drift = d
			if d.Error != "" {
				return conflictError("ledger for stock %d cannot be replayed: %s", stockID, d.Error)
			}

			if err := r.Stocks().UpdateQuantities(ctx, stockID, stock.AvailableQuantity, d.Replayed.Initial, d.Replayed.Available); err != nil {
				return quantityUpdateError(u.logger, "inventory.rebuild", err)
			}
			if err := writeAudit(ctx, r, u.clock.Now(), actor, model.AuditActionRebuildStock, model.AuditResourceStock, stockID, d.Recorded, d.Replayed); err != nil {
				return storageError(u.logger, "inventory.rebuild", err)
			}
			fixed = true
			return nil
		})
	})
	if err != nil {
		return drift, false, txError(u.logger, "inventory.rebuild", err)
	}
	if fixed {
		u.logger.Info("stock rebuilt from ledger",
			zap.Int64("stock_id", stockID),
			zap.Int64("available", drift.Replayed.Available),
			zap.Int64("initial", drift.Replayed.Initial),
		)
	}
	return drift, fixed, nil
}
