package report_test

import (
	"bytes"
	"testing"

	"stockledger/internal/domain/ledger"
	"stockledger/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteNetReport(t *testing.T) {
	rows := []ledger.NetReportRow{
		{
			StockID: 1, ModelName: "A-100", CategoryID: 1, CategoryName: "Phones",
			EntryStock: 50, AvailableStock: 32, Consistent: true,
			Totals: ledger.Totals{TotalSell: 20, CustomerReturn: 2, TotalReturn: 2, NetSell: 18},
		},
		{
			StockID: 2, ModelName: "B-200", CategoryID: 1, CategoryName: "Phones",
			EntryStock: 10, AvailableStock: 7, Consistent: true,
			Totals: ledger.Totals{TotalSell: 4, CourierReturn: 1, TotalReturn: 1, NetSell: 3},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, report.WriteNetReport(&buf, rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{report.NetReportSheet}, f.GetSheetList())

	got, err := f.GetRows(report.NetReportSheet)
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, "ModelName", got[0][1])
	assert.Equal(t, []string{"1", "A-100", "Phones", "50", "32", "20", "0", "2", "2", "18", "TRUE"}, got[1])
	assert.Equal(t, "B-200", got[2][1])
	//合計行
	assert.Equal(t, []string{"", "Total", "", "60", "39", "24", "1", "2", "3", "21"}, got[3])
}

func TestWriteNetReport_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.WriteNetReport(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(report.NetReportSheet)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Total", got[1][1])
}
