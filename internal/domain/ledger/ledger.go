package ledger

import (
	"errors"
	"fmt"
	"sort"

	"stockledger/internal/domain/model"
)

var ErrOutOfBounds = errors.New("ledger replay out of bounds")

// 在庫の状態（入庫数, 残数）
type State struct {
	Initial   int64 `json:"initial"`
	Available int64 `json:"available"`
}

// Apply は1件分の変化を適用する。
// initialは入庫数の絶対値として扱い、差分だけ残数を動かす。
func Apply(s State, tx model.StockTransaction) (State, error) {
	switch tx.TransactionType {
	case model.TransactionInitial:
		s.Available += tx.Quantity - s.Initial
		s.Initial = tx.Quantity
	case model.TransactionSell:
		s.Available -= tx.Quantity
	case model.TransactionReturn:
		s.Available += tx.Quantity
	default:
		return s, fmt.Errorf("unknown transaction type %q", tx.TransactionType)
	}
	return s, nil
}

// 0 <= available <= initial
func (s State) WithinBounds() bool {
	return s.Available >= 0 && s.Available <= s.Initial
}

// SortForReplay は date → createdAt → id の昇順に並べる。
func SortForReplay(txs []model.StockTransaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// Replay は台帳を頭から適用して現在の状態を再現する。入力は変更しない。
func Replay(txs []model.StockTransaction) (State, error) {
	ordered := make([]model.StockTransaction, len(txs))
	copy(ordered, txs)
	SortForReplay(ordered)

	var s State
	for _, tx := range ordered {
		next, err := Apply(s, tx)
		if err != nil {
			return next, err
		}
		s = next
	}
	//日付を遡って記録された行があると途中経過は範囲外になりうるので、最終状態だけ見る
	if !s.WithinBounds() {
		return s, fmt.Errorf("%w: available=%d initial=%d", ErrOutOfBounds, s.Available, s.Initial)
	}
	return s, nil
}

// 販売・返品の集計
type Totals struct {
	TotalSell      int64 `json:"totalSell"`
	CourierReturn  int64 `json:"courierReturn"`
	CustomerReturn int64 `json:"customerReturn"`
	TotalReturn    int64 `json:"totalReturn"`
	NetSell        int64 `json:"netSell"`
}

// Add は1件、または同じ種類の合計を加える。
func (t *Totals) Add(tt model.TransactionType, rt model.ReturnType, qty int64) {
	switch tt {
	case model.TransactionSell:
		t.TotalSell += qty
	case model.TransactionReturn:
		switch rt {
		case model.ReturnCourier:
			t.CourierReturn += qty
		case model.ReturnCustomer:
			t.CustomerReturn += qty
		default:
			return
		}
		t.TotalReturn += qty
	default:
		return
	}
	t.NetSell = t.TotalSell - t.TotalReturn
}

// Summarize は順序に依存しない集計。
func Summarize(txs []model.StockTransaction) Totals {
	var t Totals
	for _, tx := range txs {
		t.Add(tx.TransactionType, tx.ReturnType, tx.Quantity)
	}
	return t
}
