package ledger

import (
	"sort"
	"strings"

	"stockledger/internal/domain/model"
)

const UncategorizedName = "Uncategorized"

// 純販売レポートの1行
type NetReportRow struct {
	StockID        int64  `json:"stockId"`
	ModelName      string `json:"modelName"`
	CategoryID     int64  `json:"categoryId"`
	CategoryName   string `json:"categoryName"`
	EntryStock     int64  `json:"entryStock"`
	AvailableStock int64  `json:"availableStock"`
	Totals
	//入庫数-残数 == 純販売数 が成り立つか
	Consistent bool `json:"consistent"`
}

// BuildNetReport は品目ごとに台帳を集計する。並びは品目名の昇順。
func BuildNetReport(stocks []model.StockItem, categoryNames map[int64]string, txs []model.StockTransaction) []NetReportRow {
	byStock := make(map[int64][]model.StockTransaction, len(stocks))
	for _, tx := range txs {
		byStock[tx.StockID] = append(byStock[tx.StockID], tx)
	}

	rows := make([]NetReportRow, 0, len(stocks))
	for _, s := range stocks {
		totals := Summarize(byStock[s.ID])
		name, ok := categoryNames[s.CategoryID]
		if !ok || name == "" {
			name = UncategorizedName
		}
		rows = append(rows, NetReportRow{
			StockID:        s.ID,
			ModelName:      s.ModelName,
			CategoryID:     s.CategoryID,
			CategoryName:   name,
			EntryStock:     s.InitialQuantity,
			AvailableStock: s.AvailableQuantity,
			Totals:         totals,
			Consistent:     s.InitialQuantity-s.AvailableQuantity == totals.NetSell,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := strings.ToLower(rows[i].ModelName), strings.ToLower(rows[j].ModelName)
		if a != b {
			return a < b
		}
		return rows[i].StockID < rows[j].StockID
	})
	return rows
}

// 台帳と在庫の食い違い
type Drift struct {
	StockID   int64  `json:"stockId"`
	ModelName string `json:"modelName"`
	Recorded  State  `json:"recorded"`
	Replayed  State  `json:"replayed"`
	Error     string `json:"error,omitempty"`
}

// Check は1品目分の台帳を再生し、在庫と一致しなければDriftを返す。
func Check(stock model.StockItem, txs []model.StockTransaction) (Drift, bool) {
	recorded := State{Initial: stock.InitialQuantity, Available: stock.AvailableQuantity}
	replayed, err := Replay(txs)

	d := Drift{
		StockID:   stock.ID,
		ModelName: stock.ModelName,
		Recorded:  recorded,
		Replayed:  replayed,
	}
	if err != nil {
		d.Error = err.Error()
		return d, true
	}
	if replayed != recorded {
		return d, true
	}
	return Drift{}, false
}
