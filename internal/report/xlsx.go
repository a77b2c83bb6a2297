package report

import (
	"io"

	"stockledger/internal/domain/ledger"

	"github.com/xuri/excelize/v2"
)

const (
	NetReportSheet  = "NetReport"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var netReportHeadings = []string{
	"StockID", "ModelName", "Category", "EntryStock", "AvailableStock",
	"TotalSell", "CourierReturn", "CustomerReturn", "TotalReturn", "NetSell", "Consistent",
}

// WriteNetReport は純在庫レポートを1シートのxlsxとしてwへ書き出す。
// 最終行に合計を入れる。
func WriteNetReport(w io.Writer, rows []ledger.NetReportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(NetReportSheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	for i, h := range netReportHeadings {
		if err := setCell(f, i+1, 1, h); err != nil {
			return err
		}
	}

	var total ledger.Totals
	var entry, available int64
	for i, r := range rows {
		values := []any{
			r.StockID, r.ModelName, r.CategoryName, r.EntryStock, r.AvailableStock,
			r.TotalSell, r.CourierReturn, r.CustomerReturn, r.TotalReturn, r.NetSell, r.Consistent,
		}
		for col, v := range values {
			if err := setCell(f, col+1, i+2, v); err != nil {
				return err
			}
		}
		entry += r.EntryStock
		available += r.AvailableStock
		total.TotalSell += r.TotalSell
		total.CourierReturn += r.CourierReturn
		total.CustomerReturn += r.CustomerReturn
		total.TotalReturn += r.TotalReturn
		total.NetSell += r.NetSell
	}

	//合計行
	last := len(rows) + 2
	totals := []any{"", "Total", "", entry, available, total.TotalSell, total.CourierReturn, total.CustomerReturn, total.TotalReturn, total.NetSell}
	for col, v := range totals {
		if err := setCell(f, col+1, last, v); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func setCell(f *excelize.File, col, row int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(NetReportSheet, cell, v)
}
