package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"shopstock/internal/core/types"
	"shopstock/internal/domain/reports"
)

func TestWriteDailyXLSX(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	report := &reports.DailyReport{
		Policy: reports.CostRecorded,
		Days: []reports.DaySummary{{
			Date:        day,
			TotalItems:  3,
			TotalIncome: types.MustMoney("30"),
			TotalProfit: types.MustMoney("12"),
		}},
		Totals: reports.Totals{
			Days:        1,
			TotalItems:  3,
			TotalIncome: types.MustMoney("30"),
			TotalProfit: types.MustMoney("12"),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteDailyXLSX(&buf, report))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(dailySheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Date", rows[0][0])
	assert.Equal(t, "2024-05-01", rows[1][0])
	assert.Equal(t, "3", rows[1][1])
	assert.Equal(t, "Total", rows[2][0])

	policy, err := f.GetCellValue(dailySheet, "H1")
	require.NoError(t, err)
	assert.Equal(t, "recorded", policy)
}

func TestWriteBrandsXLSX_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBrandsXLSX(&buf, &reports.BrandReport{Policy: reports.CostStrict}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(brandSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Brand", rows[0][0])
}
