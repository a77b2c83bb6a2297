package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"stockledger/internal/domain/model"
	"stockledger/internal/infra/db/dbtest"
	infra "stockledger/internal/infra/repository"
	"stockledger/internal/lock"
	"stockledger/internal/usecase"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 呼ぶたびに1秒進む時計
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

var baseDay = time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

type harness struct {
	db          *gorm.DB
	clock       *stepClock
	categories  *usecase.CategoryUsecase
	marketplace *usecase.MarketplaceUsecase
	stocks      *usecase.StockUsecase
	inventory   *usecase.InventoryUsecase
	audit       *usecase.AuditUsecase
	txRepo      *infra.TransactionGormRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gdb := dbtest.New(t)

	categoryRepo := infra.NewCategoryGormRepository(gdb)
	marketplaceRepo := infra.NewMarketplaceGormRepository(gdb)
	stockRepo := infra.NewStockGormRepository(gdb)
	txRepo := infra.NewTransactionGormRepository(gdb)
	auditRepo := infra.NewAuditLogGormRepository(gdb)
	tm := infra.NewTxManagerGorm(gdb)
	locker := lock.NewLocalLocker()
	clock := &stepClock{t: baseDay.Add(9 * time.Hour)}
	logger := zap.NewNop()

	return &harness{
		db:          gdb,
		clock:       clock,
		categories:  usecase.NewCategoryUsecase(categoryRepo, tm, locker, clock, logger),
		marketplace: usecase.NewMarketplaceUsecase(marketplaceRepo, tm, locker, clock, logger),
		stocks:      usecase.NewStockUsecase(stockRepo, tm, locker, clock, logger),
		inventory:   usecase.NewInventoryUsecase(stockRepo, categoryRepo, txRepo, tm, locker, clock, logger),
		audit:       usecase.NewAuditUsecase(auditRepo, logger),
		txRepo:      txRepo,
	}
}

func qty(v int64) *int64 { return &v }

func (h *harness) category(t *testing.T, name string) model.Category {
	t.Helper()
	c, err := h.categories.Create(context.Background(), "admin", name)
	require.NoError(t, err)
	return c
}

func (h *harness) market(t *testing.T, name string) model.Marketplace {
	t.Helper()
	m, err := h.marketplace.Create(context.Background(), "admin", name)
	require.NoError(t, err)
	return m
}

func (h *harness) stock(t *testing.T, categoryID int64, name string, initial int64) model.StockItem {
	t.Helper()
	s, err := h.stocks.CreateStock(context.Background(), "admin", usecase.CreateStockInput{
		ModelName:       name,
		CategoryID:      categoryID,
		InitialQuantity: qty(initial),
		Date:            baseDay,
	})
	require.NoError(t, err)
	return s
}

func (h *harness) ledgerOf(t *testing.T, stockID int64) []model.StockTransaction {
	t.Helper()
	txs, err := h.txRepo.ListForReplay(context.Background(), []int64{stockID})
	require.NoError(t, err)
	return txs
}

func requireKind(t *testing.T, err error, kind usecase.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	ae, ok := usecase.AsAppError(err)
	require.True(t, ok, "expected AppError, got %T: %v", err, err)
	require.Equal(t, kind, ae.Kind, ae.Message)
}
