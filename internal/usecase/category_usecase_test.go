package usecase_test

import (
	"context"
	"testing"

	"stockledger/internal/domain/model"
	"stockledger/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategory_CreateRenameDuplicate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c, err := h.categories.Create(ctx, "admin", "  Phones ")
	require.NoError(t, err)
	assert.Equal(t, "Phones", c.Name)

	_, err = h.categories.Create(ctx, "admin", "PHONES")
	requireKind(t, err, usecase.KindDuplicate)

	_, err = h.categories.Create(ctx, "admin", "   ")
	requireKind(t, err, usecase.KindValidation)

	other := h.category(t, "Cases")
	_, err = h.categories.Rename(ctx, "admin", other.ID, "phones")
	requireKind(t, err, usecase.KindDuplicate)

	renamed, err := h.categories.Rename(ctx, "admin", c.ID, "Mobiles")
	require.NoError(t, err)
	assert.Equal(t, "Mobiles", renamed.Name)

	_, err = h.categories.Rename(ctx, "admin", 999, "x")
	requireKind(t, err, usecase.KindNotFound)
}

func TestCategory_DeleteBlockedWhileReferenced(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	unused := h.category(t, "Unused")
	require.NoError(t, h.categories.Delete(ctx, "admin", unused.ID))

	used := h.category(t, "Used")
	s := h.stock(t, used.ID, "X1", 1)

	err := h.categories.Delete(ctx, "admin", used.ID)
	requireKind(t, err, usecase.KindConflict)

	//品目を消せば削除できる
	require.NoError(t, h.stocks.DeleteStock(ctx, "admin", s.ID))
	require.NoError(t, h.categories.Delete(ctx, "admin", used.ID))

	err = h.categories.Delete(ctx, "admin", used.ID)
	requireKind(t, err, usecase.KindNotFound)

	logs, err := h.audit.List(ctx, auditFilterFor(model.AuditActionDelete))
	require.NoError(t, err)
	assert.Len(t, logs, 3)
}

func TestMarketplace_DeleteTombstonesTransactions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.category(t, "Phones")
	m := h.market(t, "Shopee")
	s := h.stock(t, c.ID, "X1", 10)

	_, err := h.inventory.RecordSell(ctx, usecase.SellInput{StockID: s.ID, Quantity: 3, MarketplaceID: m.ID})
	require.NoError(t, err)

	_, err = h.marketplace.Create(ctx, "admin", "shopee")
	requireKind(t, err, usecase.KindDuplicate)

	require.NoError(t, h.marketplace.Delete(ctx, "admin", m.ID))

	_, err = h.marketplace.Get(ctx, m.ID)
	requireKind(t, err, usecase.KindNotFound)

	_, err = h.inventory.RecordSell(ctx, usecase.SellInput{StockID: s.ID, Quantity: 1, MarketplaceID: m.ID})
	requireKind(t, err, usecase.KindNotFound)

	sell := model.TransactionSell
	out, err := h.inventory.ListTransactions(ctx, usecase.ListTransactionsInput{TransactionType: &sell})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	ref := out.Items[0].Marketplace
	require.NotNil(t, ref)
	assert.True(t, ref.Deleted)
	assert.Nil(t, ref.ID)
	assert.Equal(t, "Shopee", ref.Name)

	//論理削除後は同名で作り直せる
	again, err := h.marketplace.Create(ctx, "admin", "Shopee")
	require.NoError(t, err)
	assert.NotEqual(t, m.ID, again.ID)

	//改名しても過去の販売先名は変わらない
	renamed, err := h.marketplace.Rename(ctx, "admin", again.ID, "Shopee Mall")
	require.NoError(t, err)
	assert.Equal(t, "Shopee Mall", renamed.Name)
}
