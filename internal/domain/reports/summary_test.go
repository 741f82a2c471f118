package reports

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopstock/internal/core/id"
	"shopstock/internal/core/types"
	"shopstock/internal/domain/sales"
	"shopstock/internal/domain/stock"
)

func date(d int) time.Time { return time.Date(2024, 6, d, 14, 30, 0, 0, time.UTC) }

func sale(brand, model string, qty types.Quantity, price string, d int) *sales.Sale {
	p := types.MustMoney(price)
	return &sales.Sale{ID: id.New(), Brand: brand, Model: model, Quantity: qty, UnitPrice: p, Total: types.Mul(p, qty), Date: date(d)}
}

func batchOf(brand, model, cost string) *stock.Batch {
	return &stock.Batch{ID: id.New(), Brand: brand, Model: model, InitialQuantity: 10, RemainingQuantity: 10, UnitCost: types.MustMoney(cost)}
}

func money(t *testing.T, want string, got types.Money) {
	t.Helper()
	assert.True(t, got.Equal(types.MustMoney(want)), "want %s, got %s", want, got)
}

func TestDailySummary_SingleSaleProfit(t *testing.T) {
	s := sale("Acme", "X1", 4, "8", 1)
	in := Input{
		Sales:   []*sales.Sale{s},
		Batches: []*stock.Batch{batchOf("Acme", "X1", "5")},
	}

	for _, policy := range []CostPolicy{CostRecorded, CostFirstMatch} {
		days := slices.Collect(DailySummary(in, DateRange{}, policy))
		require.Len(t, days, 1)
		assert.Equal(t, types.Quantity(4), days[0].TotalItems)
		money(t, "32", days[0].TotalIncome)
		money(t, "12", days[0].TotalProfit)
	}
}

func TestDailySummary_GroupsAndSortsByDay(t *testing.T) {
	in := Input{
		Sales: []*sales.Sale{
			sale("Acme", "X1", 1, "10", 3),
			sale("Acme", "X1", 2, "10", 1),
			sale("Beta", "B", 1, "7", 3),
		},
	}

	days := slices.Collect(DailySummary(in, DateRange{}, CostFirstMatch))
	require.Len(t, days, 2)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), days[0].Date)
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), days[1].Date)
	assert.Equal(t, types.Quantity(2), days[1].TotalItems)
	money(t, "17", days[1].TotalIncome)
	money(t, "17", days[1].TotalProfit) // no batches: cost basis 0
}

func TestDailySummary_InclusiveCalendarBounds(t *testing.T) {
	in := Input{Sales: []*sales.Sale{
		sale("Acme", "X1", 1, "1", 1),
		sale("Acme", "X1", 1, "1", 2),
		sale("Acme", "X1", 1, "1", 3),
	}}

	from := time.Date(2024, 6, 2, 23, 59, 0, 0, time.UTC)
	to := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	days := slices.Collect(DailySummary(in, DateRange{From: &from, To: &to}, CostRecorded))
	require.Len(t, days, 2)

	days = slices.Collect(DailySummary(in, DateRange{To: &to}, CostRecorded))
	assert.Len(t, days, 3, "absent bound is open")
}

func TestDailySummary_Restartable(t *testing.T) {
	in := Input{Sales: []*sales.Sale{sale("Acme", "X1", 1, "1", 1), sale("Acme", "X1", 1, "1", 2)}}
	seq := DailySummary(in, DateRange{}, CostRecorded)

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)

	for range seq {
		break
	}
	assert.Len(t, slices.Collect(seq), 2)
}

func TestDailySummary_CostPolicies(t *testing.T) {
	older := batchOf("Acme", "X1", "2")
	newer := batchOf("Acme", "X1", "6")

	recorded := sale("Acme", "X1", 4, "10", 1)
	unrecorded := sale("Acme", "X1", 1, "10", 1)

	in := Input{
		Sales:   []*sales.Sale{recorded, unrecorded},
		Batches: []*stock.Batch{older, newer},
		Records: map[id.ID][]sales.AllocationRecord{
			recorded.ID: {
				{SaleID: recorded.ID, Seq: 1, BatchID: newer.ID, Quantity: 3, UnitCost: types.MustMoney("6")},
				{SaleID: recorded.ID, Seq: 2, BatchID: older.ID, Quantity: 1, UnitCost: types.MustMoney("2")},
			},
		},
	}

	tests := []struct {
		policy       CostPolicy
		profit       string
		unattributed int
	}{
		// (10-6)*3 + (10-2)*1 = 20, plus unrecorded at first match (10-2)*1 = 8
		{policy: CostRecorded, profit: "28", unattributed: 1},
		{policy: CostStrict, profit: "20", unattributed: 1},
		// (10-2)*4 + (10-2)*1
		{policy: CostFirstMatch, profit: "40", unattributed: 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			days := slices.Collect(DailySummary(in, DateRange{}, tt.policy))
			require.Len(t, days, 1)
			money(t, tt.profit, days[0].TotalProfit)
			money(t, "50", days[0].TotalIncome)
			assert.Equal(t, tt.unattributed, days[0].Unattributed)
		})
	}
}

func TestBrandSummaryAndSum(t *testing.T) {
	in := Input{Sales: []*sales.Sale{
		sale("Zeta", "Z", 1, "5", 1),
		sale("Acme", "X1", 2, "3", 1),
		sale("Acme", "X2", 1, "4", 2),
	}}

	brands := slices.Collect(ByBrand(in, DateRange{}, CostFirstMatch))
	require.Len(t, brands, 2)
	assert.Equal(t, "Acme", brands[0].Brand)
	assert.Equal(t, types.Quantity(3), brands[0].TotalItems)
	money(t, "10", brands[0].TotalIncome)

	totals := Sum(DailySummary(in, DateRange{}, CostFirstMatch))
	assert.Equal(t, 2, totals.Days)
	assert.Equal(t, types.Quantity(4), totals.TotalItems)
	money(t, "15", totals.TotalIncome)
}

func TestParseCostPolicy(t *testing.T) {
	p, err := ParseCostPolicy("")
	require.NoError(t, err)
	assert.Equal(t, CostRecorded, p)

	_, err = ParseCostPolicy("fifo")
	assert.Error(t, err)
}

func TestDateRange_Validate(t *testing.T) {
	from, to := date(5), date(4)
	assert.Error(t, DateRange{From: &from, To: &to}.Validate())
	assert.NoError(t, DateRange{From: &to, To: &from}.Validate())
}
