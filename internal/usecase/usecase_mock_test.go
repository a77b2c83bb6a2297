package usecase_test

import (
	"context"
	"errors"
	"testing"

	"stockledger/internal/domain/model"
	"stockledger/internal/lock"
	repo "stockledger/internal/repository"
	"stockledger/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =====================
// mocks
// =====================

type TxManagerMock struct{ mock.Mock }

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type StockRepoMock struct {
	mock.Mock
	repo.StockRepository
}

func (m *StockRepoMock) FindByID(ctx context.Context, id int64) (model.StockItem, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(model.StockItem)
	return s, args.Error(1)
}

func (m *StockRepoMock) List(ctx context.Context, q repo.StockListQuery) ([]model.StockItem, error) {
	args := m.Called(ctx, q)
	items, _ := args.Get(0).([]model.StockItem)
	return items, args.Error(1)
}

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	panic("not used")
}

func (m *AuditRepoMock) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, f)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}

// いつもbusyを返すロック
type busyLocker struct{}

func (busyLocker) Lock(ctx context.Context, key string) (func(), error) {
	return nil, lock.ErrBusy
}

func newMockInventory(stocks *StockRepoMock, tm *TxManagerMock, locker lock.Locker) *usecase.InventoryUsecase {
	return usecase.NewInventoryUsecase(stocks, nil, nil, tm, locker, usecase.SystemClock{}, zap.NewNop())
}

// =====================
// tests
// =====================

func TestRecordSell_ValidationDoesNotTouchStorage(t *testing.T) {
	stocks := &StockRepoMock{}
	tm := &TxManagerMock{}
	uc := newMockInventory(stocks, tm, lock.NewLocalLocker())
	ctx := context.Background()

	cases := []usecase.SellInput{
		{StockID: 0, Quantity: 1, MarketplaceID: 1},
		{StockID: 1, Quantity: 0, MarketplaceID: 1},
		{StockID: 1, Quantity: -3, MarketplaceID: 1},
		{StockID: 1, Quantity: 1, MarketplaceID: 0},
	}
	for _, in := range cases {
		_, err := uc.RecordSell(ctx, in)
		assert.True(t, usecase.IsKind(err, usecase.KindValidation), "%+v: %v", in, err)
	}

	tm.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestRecordSell_CommitFailureBecomesStorageError(t *testing.T) {
	stocks := &StockRepoMock{}
	tm := &TxManagerMock{}
	boom := errors.New("connection reset")
	tm.On("WithinTx", mock.Anything).Return(boom).Once()

	uc := newMockInventory(stocks, tm, lock.NewLocalLocker())
	_, err := uc.RecordSell(context.Background(), usecase.SellInput{StockID: 1, Quantity: 1, MarketplaceID: 1})

	requireKind(t, err, usecase.KindStorage)
	assert.ErrorIs(t, err, boom)
	tm.AssertExpectations(t)
}

func TestRecordSell_LockBusyBecomesStorageError(t *testing.T) {
	tm := &TxManagerMock{}
	uc := newMockInventory(&StockRepoMock{}, tm, busyLocker{})

	_, err := uc.RecordSell(context.Background(), usecase.SellInput{StockID: 1, Quantity: 1, MarketplaceID: 1})
	requireKind(t, err, usecase.KindStorage)
	assert.ErrorIs(t, err, lock.ErrBusy)
	tm.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestGetStock_NotFoundAndStorage(t *testing.T) {
	stocks := &StockRepoMock{}
	stocks.On("FindByID", mock.Anything, int64(1)).Return(model.StockItem{}, repo.ErrNotFound).Once()
	stocks.On("FindByID", mock.Anything, int64(2)).Return(model.StockItem{}, errors.New("db down")).Once()

	uc := usecase.NewStockUsecase(stocks, &TxManagerMock{}, lock.NewLocalLocker(), usecase.SystemClock{}, zap.NewNop())

	_, err := uc.GetStock(context.Background(), 1)
	requireKind(t, err, usecase.KindNotFound)

	_, err = uc.GetStock(context.Background(), 2)
	requireKind(t, err, usecase.KindStorage)

	_, err = uc.GetStock(context.Background(), 0)
	requireKind(t, err, usecase.KindValidation)
	stocks.AssertExpectations(t)
}

func TestNetReport_StorageError(t *testing.T) {
	stocks := &StockRepoMock{}
	stocks.On("List", mock.Anything, mock.Anything).Return(nil, errors.New("db down")).Once()

	_, err := newMockInventory(stocks, &TxManagerMock{}, lock.NewLocalLocker()).NetReport(context.Background(), nil)
	requireKind(t, err, usecase.KindStorage)
}

func TestAuditList_Validation(t *testing.T) {
	audits := &AuditRepoMock{}
	uc := usecase.NewAuditUsecase(audits, zap.NewNop())
	ctx := context.Background()

	_, err := uc.List(ctx, repo.AuditLogFilter{Limit: 500})
	requireKind(t, err, usecase.KindValidation)

	bad := model.AuditResourceType("order")
	_, err = uc.List(ctx, repo.AuditLogFilter{ResourceType: &bad})
	requireKind(t, err, usecase.KindValidation)

	audits.On("List", mock.Anything, mock.Anything).Return([]model.AuditLog{{ID: 1}}, nil).Once()
	logs, err := uc.List(ctx, repo.AuditLogFilter{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestAppError_Format(t *testing.T) {
	err := usecase.NewAppError(usecase.KindConflict, "busy")
	assert.Equal(t, "conflict: busy", err.Error())
	assert.True(t, usecase.IsKind(err, usecase.KindConflict))
	assert.False(t, usecase.IsKind(errors.New("plain"), usecase.KindConflict))
}
