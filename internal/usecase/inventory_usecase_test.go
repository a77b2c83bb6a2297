package usecase_test

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"testing"

	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/model"
	"stockledger/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSell_CreateFiftySellTwenty(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.category(t, "Phones")
	m := h.market(t, "Shopee")
	s := h.stock(t, c.ID, "X1", 50)

	res, err := h.inventory.RecordSell(ctx, usecase.SellInput{StockID: s.ID, Quantity: 20, MarketplaceID: m.ID, Date: baseDay})
	require.NoError(t, err)
	assert.Equal(t, int64(30), res.Stock.AvailableQuantity)
	assert.Equal(t, int64(50), res.Transaction.PreviousAvailableQuantity)
	assert.Equal(t, int64(30), res.Transaction.NewAvailableQuantity)
	assert.Equal(t, "Shopee", res.Transaction.MarketplaceName)
	assert.Equal(t, "Phones", res.Transaction.CategoryName)

	got, err := h.stocks.GetStock(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), got.AvailableQuantity)

	txs := h.ledgerOf(t, s.ID)
	require.Len(t, txs, 2)
	assert.Equal(t, model.TransactionInitial, txs[0].TransactionType)
	assert.Equal(t, int64(50), txs[0].Quantity)
	assert.Equal(t, model.TransactionSell, txs[1].TransactionType)
	assert.Equal(t, int64(20), txs[1].Quantity)
}

func TestRecordSell_InsufficientLeavesStateUnchanged(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.category(t, "Phones")
	m := h.market(t, "Shopee")
	s := h.stock(t, c.ID, "X1", 5)

	_, err := h.inventory.RecordSell(ctx, usecase.SellInput{StockID: s.ID, Quantity: 6, MarketplaceID: m.ID})
	requireKind(t, err, usecase.KindInsufficientStock)

	got, err := h.stocks.GetStock(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.AvailableQuantity)
	assert.Len(t, h.ledgerOf(t, s.ID), 1)
}

func TestRecordSell_StockCheckedBeforeMarketplace(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.category(t, "Phones")
	s := h.stock(t, c.ID, "X1", 5)

	//品目が無ければ販売先より先にNotFound
	_, err := h.inventory.RecordSell(ctx, usecase.SellInput{StockID: 999, Quantity: 1, MarketplaceID: 999})
	requireKind(t, err, usecase.KindNotFound)
	assert.Contains(t, err.Error(), "stock")

	//数量不足は販売先チェックより先
	_, err = h.inventory.RecordSell(ctx, usecase.SellInput{StockID: s.ID, Quantity: 10, MarketplaceID: 999})
	requireKind(t, err, usecase.KindInsufficientStock)

	_, err = h.inventory.RecordSell(ctx, usecase.SellInput{StockID: s.ID, Quantity: 1, MarketplaceID: 999})
	requireKind(t, err, usecase.KindNotFound)
	assert.Contains(t, err.Error(), "marketplace")

	got, err := h.stocks.GetStock(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.AvailableQuantity)
}

func TestRecordReturn_ExceedsInitial(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.category(t, "Phones")
	m := h.market(t, "Shopee")
	s := h.stock(t, c.ID, "X1", 10)

	_, err := h.inventory.RecordSell(ctx, usecase.SellInput{StockID: s.ID, Quantity: 3, MarketplaceID: m.ID})
	require.NoError(t, err)

	_, err = h.inventory.RecordReturn(ctx, usecase.ReturnInput{StockID: s.ID, Quantity: 4, ReturnType: model.ReturnCourier, MarketplaceID: m.ID})
	requireKind(t, err, usecase.KindExceedsInitialStock)

	got, err := h.stocks.GetStock(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.AvailableQuantity)

	res, err := h.inventory.RecordReturn(ctx, usecase.ReturnInput{StockID: s.ID, Quantity: 3, ReturnType: model.ReturnCustomer, MarketplaceID: m.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.Stock.AvailableQuantity)
	assert.Equal(t, model.ReturnCustomer, res.Transaction.ReturnType)
}

func TestRecordReturn_HugeQuantityDoesNotWrap(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.category(t, "Phones")
	m := h.market(t, "Shopee")
	s := h.stock(t, c.ID, "X1", 50)

	_, err := h.inventory.RecordSell(ctx, usecase.SellInput{StockID: s.ID, Quantity: 20, MarketplaceID: m.ID})
	require.NoError(t, err)

	_, err = h.inventory.RecordReturn(ctx, usecase.ReturnInput{StockID: s.ID, Quantity: math.MaxInt64, ReturnType: model.ReturnCustomer, MarketplaceID: m.ID})
	requireKind(t, err, usecase.KindExceedsInitialStock)

	got, err := h.stocks.GetStock(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), got.AvailableQuantity)
	assert.True(t, got.WithinBounds())
	assert.Len(t, h.ledgerOf(t, s.ID), 2)
}

func TestRecordTransaction_Dispatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.category(t, "Phones")
	m := h.market(t, "Shopee")
	s := h.stock(t, c.ID, "X1", 10)

	res, err := h.inventory.RecordTransaction(ctx, usecase.RecordTransactionInput{
		StockID: s.ID, TransactionType: model.TransactionSell, Quantity: 4, MarketplaceID: m.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6), res.Stock.AvailableQuantity)
	//日付未指定は今日
	assert.Equal(t, baseDay, res.Transaction.Date.UTC())

	res, err = h.inventory.RecordTransaction(ctx, usecase.RecordTransactionInput{
		StockID: s.ID, TransactionType: model.TransactionReturn, ReturnType: model.ReturnCourier, Quantity: 1, MarketplaceID: m.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.Stock.AvailableQuantity)

	_, err = h.inventory.RecordTransaction(ctx, usecase.RecordTransactionInput{StockID: s.ID, TransactionType: model.TransactionInitial, Quantity: 1})
	requireKind(t, err, usecase.KindValidation)

	_, err = h.inventory.RecordTransaction(ctx, usecase.RecordTransactionInput{StockID: s.ID, TransactionType: "gift", Quantity: 1})
	requireKind(t, err, usecase.KindValidation)

	_, err = h.inventory.RecordTransaction(ctx, usecase.RecordTransactionInput{
		StockID: s.ID, TransactionType: model.TransactionReturn, ReturnType: "lost", Quantity: 1, MarketplaceID: m.ID,
	})
	requireKind(t, err, usecase.KindValidation)
}

func TestRecordSell_ConcurrentSellsDoNotOversell(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.category(t, "Phones")
	m := h.market(t, "Shopee")
	s := h.stock(t, c.ID, "X1", 40)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.inventory.RecordSell(ctx, usecase.SellInput{StockID: s.ID, Quantity: 30, MarketplaceID: m.ID})
		}(i)
	}
	wg.Wait()

	ok, insufficient := 0, 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		if usecase.IsKind(err, usecase.KindInsufficientStock) {
			insufficient++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)

	got, err := h.stocks.GetStock(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.AvailableQuantity)
	assert.Len(t, h.ledgerOf(t, s.ID), 2)
}

func TestRecordSell_ManyConcurrentWritersKeepInvariant(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.category(t, "Phones")
	m := h.market(t, "Shopee")
	s := h.stock(t, c.ID, "X1", 25)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.inventory.RecordSell(ctx, usecase.SellInput{StockID: s.ID, Quantity: 1, MarketplaceID: m.ID})
		}()
	}
	wg.Wait()

	got, err := h.stocks.GetStock(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.AvailableQuantity)
	assert.Len(t, h.ledgerOf(t, s.ID), 26)
}

// ランダムな操作列の後でも、範囲と台帳との一致が崩れない
func TestInventory_RandomOperationsKeepLedgerEquivalence(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.category(t, "Phones")
	m := h.market(t, "Shopee")
	s := h.stock(t, c.ID, "X1", 30)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 120; i++ {
		q := int64(rng.Intn(8) + 1)
		day := baseDay.AddDate(0, 0, rng.Intn(20))
		var err error
		switch rng.Intn(5) {
		case 0, 1:
			_, err = h.inventory.RecordSell(ctx, usecase.SellInput{StockID: s.ID, Quantity: q, MarketplaceID: m.ID, Date: day})
		case 2:
			_, err = h.inventory.RecordReturn(ctx, usecase.ReturnInput{StockID: s.ID, Quantity: q, ReturnType: model.ReturnCourier, MarketplaceID: m.ID, Date: day})
		case 3:
			_, err = h.inventory.RecordReturn(ctx, usecase.ReturnInput{StockID: s.ID, Quantity: q, ReturnType: model.ReturnCustomer, MarketplaceID: m.ID, Date: day})
		case 4:
			cur, gerr := h.stocks.GetStock(ctx, s.ID)
			require.NoError(t, gerr)
			next := cur.InitialQuantity + int64(rng.Intn(11)-5)
			when := baseDay.AddDate(0, 1, i)
			_, err = h.stocks.UpdateStockInitialQuantity(ctx, "admin", s.ID, next, &when)
		}
		if err != nil {
			ae, ok := usecase.AsAppError(err)
			require.True(t, ok)
			require.NotEqual(t, usecase.KindStorage, ae.Kind, err.Error())
		}

		cur, err := h.stocks.GetStock(ctx, s.ID)
		require.NoError(t, err)
		require.True(t, cur.WithinBounds(), "step %d: %+v", i, cur)

		totals := ledger.Summarize(h.ledgerOf(t, s.ID))
		require.Equal(t, cur.InitialQuantity-cur.AvailableQuantity, totals.NetSell, "step %d", i)
	}

	report, err := h.inventory.Reconcile(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	assert.Empty(t, report.Drifts)
}

func TestNetReport_TotalsAndOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	phones := h.category(t, "Phones")
	cases := h.category(t, "Cases")
	m := h.market(t, "Shopee")

	b := h.stock(t, phones.ID, "beta", 20)
	a := h.stock(t, cases.ID, "Alpha", 10)

	_, err := h.inventory.RecordSell(ctx, usecase.SellInput{StockID: b.ID, Quantity: 8, MarketplaceID: m.ID})
	require.NoError(t, err)
	_, err = h.inventory.RecordReturn(ctx, usecase.ReturnInput{StockID: b.ID, Quantity: 2, ReturnType: model.ReturnCourier, MarketplaceID: m.ID})
	require.NoError(t, err)
	_, err = h.inventory.RecordReturn(ctx, usecase.ReturnInput{StockID: b.ID, Quantity: 1, ReturnType: model.ReturnCustomer, MarketplaceID: m.ID})
	require.NoError(t, err)

	rows, err := h.inventory.NetReport(ctx, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, a.ID, rows[0].StockID)
	assert.Equal(t, "Cases", rows[0].CategoryName)
	assert.Zero(t, rows[0].NetSell)

	assert.Equal(t, "beta", rows[1].ModelName)
	assert.Equal(t, int64(8), rows[1].TotalSell)
	assert.Equal(t, int64(2), rows[1].CourierReturn)
	assert.Equal(t, int64(1), rows[1].CustomerReturn)
	assert.Equal(t, int64(3), rows[1].TotalReturn)
	assert.Equal(t, int64(5), rows[1].NetSell)
	assert.Equal(t, int64(15), rows[1].AvailableStock)
	assert.True(t, rows[1].Consistent)

	onlyPhones, err := h.inventory.NetReport(ctx, &phones.ID)
	require.NoError(t, err)
	assert.Len(t, onlyPhones, 1)

	empty := h.category(t, "Empty")
	none, err := h.inventory.NetReport(ctx, &empty.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListTransactions_FiltersAndSummary(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.category(t, "Phones")
	m1 := h.market(t, "Shopee")
	m2 := h.market(t, "Lazada")
	s := h.stock(t, c.ID, "X1", 100)

	yesterday := baseDay.AddDate(0, 0, -1)
	_, err := h.inventory.RecordSell(ctx, usecase.SellInput{StockID: s.ID, Quantity: 5, MarketplaceID: m1.ID, Date: yesterday})
	require.NoError(t, err)
	_, err = h.inventory.RecordSell(ctx, usecase.SellInput{StockID: s.ID, Quantity: 7, MarketplaceID: m2.ID, Date: baseDay})
	require.NoError(t, err)
	_, err = h.inventory.RecordReturn(ctx, usecase.ReturnInput{StockID: s.ID, Quantity: 2, ReturnType: model.ReturnCourier, MarketplaceID: m2.ID, Date: baseDay})
	require.NoError(t, err)

	all, err := h.inventory.ListTransactions(ctx, usecase.ListTransactionsInput{})
	require.NoError(t, err)
	assert.Equal(t, 4, all.Summary.Count)
	//入庫(今日) + 販売 + 返品
	assert.Equal(t, 3, all.Summary.TodayCount)
	assert.Equal(t, int64(12), all.Summary.TotalSell)
	assert.Equal(t, int64(2), all.Summary.CourierReturn)
	assert.Equal(t, int64(10), all.Summary.NetSell)

	sell := model.TransactionSell
	sells, err := h.inventory.ListTransactions(ctx, usecase.ListTransactionsInput{TransactionType: &sell, MarketplaceID: &m2.ID})
	require.NoError(t, err)
	require.Len(t, sells.Items, 1)
	assert.Equal(t, int64(7), sells.Items[0].Quantity)
	require.NotNil(t, sells.Items[0].Marketplace)
	assert.Equal(t, "Lazada", sells.Items[0].Marketplace.Name)

	//終了日はその日を含む
	onlyYesterday, err := h.inventory.ListTransactions(ctx, usecase.ListTransactionsInput{DateFrom: &yesterday, DateTo: &yesterday})
	require.NoError(t, err)
	require.Len(t, onlyYesterday.Items, 1)
	assert.Equal(t, int64(5), onlyYesterday.Items[0].Quantity)

	_, err = h.inventory.ListTransactions(ctx, usecase.ListTransactionsInput{DateFrom: &baseDay, DateTo: &yesterday})
	requireKind(t, err, usecase.KindValidation)
}

func TestListTransactions_SummaryCoversRowsBeyondLimit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.category(t, "Phones")
	m := h.market(t, "Shopee")
	s := h.stock(t, c.ID, "X1", 100)

	for i := 0; i < 6; i++ {
		_, err := h.inventory.RecordSell(ctx, usecase.SellInput{StockID: s.ID, Quantity: 1, MarketplaceID: m.ID, Date: baseDay.AddDate(0, 0, -i)})
		require.NoError(t, err)
	}
	_, err := h.inventory.RecordReturn(ctx, usecase.ReturnInput{StockID: s.ID, Quantity: 2, ReturnType: model.ReturnCustomer, MarketplaceID: m.ID, Date: baseDay})
	require.NoError(t, err)

	page, err := h.inventory.ListTransactions(ctx, usecase.ListTransactionsInput{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.True(t, page.Truncated)
	//入庫1 + 販売6 + 返品1
	assert.Equal(t, 8, page.Summary.Count)
	assert.Equal(t, int64(6), page.Summary.TotalSell)
	assert.Equal(t, int64(2), page.Summary.CustomerReturn)
	assert.Equal(t, int64(4), page.Summary.NetSell)
	assert.Equal(t, int64(108), page.Summary.TotalQuantity)
	assert.Equal(t, 3, page.Summary.TodayCount)

	sell := model.TransactionSell
	sells, err := h.inventory.ListTransactions(ctx, usecase.ListTransactionsInput{TransactionType: &sell, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 6, sells.Summary.Count)
	assert.Equal(t, int64(6), sells.Summary.TotalSell)

	past := baseDay.AddDate(0, 0, -5)
	old, err := h.inventory.ListTransactions(ctx, usecase.ListTransactionsInput{DateTo: &past})
	require.NoError(t, err)
	assert.False(t, old.Truncated)
	assert.Equal(t, 1, old.Summary.Count)
	assert.Equal(t, 0, old.Summary.TodayCount)
}

func TestReconcileAndRebuild(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.category(t, "Phones")
	m := h.market(t, "Shopee")
	s := h.stock(t, c.ID, "X1", 10)
	_, err := h.inventory.RecordSell(ctx, usecase.SellInput{StockID: s.ID, Quantity: 4, MarketplaceID: m.ID})
	require.NoError(t, err)

	//台帳を通さずに在庫を書き換えてずれを作る
	require.NoError(t, h.db.Model(&model.StockItem{}).Where("id = ?", s.ID).Update("available_quantity", 9).Error)

	report, err := h.inventory.Reconcile(ctx, &s.ID)
	require.NoError(t, err)
	require.Len(t, report.Drifts, 1)
	assert.Equal(t, int64(9), report.Drifts[0].Recorded.Available)
	assert.Equal(t, int64(6), report.Drifts[0].Replayed.Available)

	drift, fixed, err := h.inventory.RebuildAvailable(ctx, usecase.SystemActor, s.ID)
	require.NoError(t, err)
	assert.True(t, fixed)
	assert.Equal(t, int64(6), drift.Replayed.Available)

	got, err := h.stocks.GetStock(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), got.AvailableQuantity)

	_, fixed, err = h.inventory.RebuildAvailable(ctx, usecase.SystemActor, s.ID)
	require.NoError(t, err)
	assert.False(t, fixed)

	logs, err := h.audit.List(ctx, auditFilterFor(model.AuditActionRebuildStock))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, usecase.SystemActor, logs[0].Actor)
}
