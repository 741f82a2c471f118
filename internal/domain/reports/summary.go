package reports

import (
	"iter"
	"maps"
	"slices"
	"strings"
	"time"

	"shopstock/internal/core/types"
	"shopstock/internal/domain/sales"
	"shopstock/internal/domain/stock"
)

// DailySummary groups sales in r by calendar day, ascending. The sequence
// is recomputed on every iteration and never changes its input.
func DailySummary(in Input, r DateRange, policy CostPolicy) iter.Seq[DaySummary] {
	return func(yield func(DaySummary) bool) {
		days := make(map[time.Time]*DaySummary)
		costs := firstMatchCosts(in.Batches)

		for _, s := range in.Sales {
			if !r.Contains(s.Date) {
				continue
			}
			date := sales.DateOf(s.Date)
			d, ok := days[date]
			if !ok {
				d = &DaySummary{Date: date, TotalIncome: types.Zero(), TotalProfit: types.Zero()}
				days[date] = d
			}

			profit, attributed := profitOf(s, in.Records[s.ID], costs, policy)
			d.TotalItems = d.TotalItems.Add(s.Quantity)
			d.TotalIncome = d.TotalIncome.Add(s.Total)
			d.TotalProfit = d.TotalProfit.Add(profit)
			if !attributed {
				d.Unattributed++
			}
		}

		for _, date := range slices.SortedFunc(maps.Keys(days), time.Time.Compare) {
			if !yield(*days[date]) {
				return
			}
		}
	}
}

// ByBrand groups sales in r by brand, sorted by brand name.
func ByBrand(in Input, r DateRange, policy CostPolicy) iter.Seq[BrandSummary] {
	return func(yield func(BrandSummary) bool) {
		brands := make(map[string]*BrandSummary)
		costs := firstMatchCosts(in.Batches)

		for _, s := range in.Sales {
			if !r.Contains(s.Date) {
				continue
			}
			b, ok := brands[s.Brand]
			if !ok {
				b = &BrandSummary{Brand: s.Brand, TotalIncome: types.Zero(), TotalProfit: types.Zero()}
				brands[s.Brand] = b
			}

			profit, attributed := profitOf(s, in.Records[s.ID], costs, policy)
			b.TotalItems = b.TotalItems.Add(s.Quantity)
			b.TotalIncome = b.TotalIncome.Add(s.Total)
			b.TotalProfit = b.TotalProfit.Add(profit)
			if !attributed {
				b.Unattributed++
			}
		}

		for _, name := range slices.SortedFunc(maps.Keys(brands), strings.Compare) {
			if !yield(*brands[name]) {
				return
			}
		}
	}
}

// Sum folds a daily sequence into totals.
func Sum(days iter.Seq[DaySummary]) Totals {
	t := Totals{TotalIncome: types.Zero(), TotalProfit: types.Zero()}
	for d := range days {
		t.Days++
		t.TotalItems = t.TotalItems.Add(d.TotalItems)
		t.TotalIncome = t.TotalIncome.Add(d.TotalIncome)
		t.TotalProfit = t.TotalProfit.Add(d.TotalProfit)
		t.Unattributed += d.Unattributed
	}
	return t
}

// profitOf returns a sale's profit and whether it came from allocation
// records.
func profitOf(s *sales.Sale, records []sales.AllocationRecord, costs map[stock.ProductKey]types.Money, policy CostPolicy) (types.Money, bool) {
	if policy != CostFirstMatch && len(records) > 0 {
		profit := types.Zero()
		for _, rec := range records {
			profit = profit.Add(types.Mul(s.UnitPrice.Sub(rec.UnitCost), rec.Quantity))
		}
		return profit, true
	}

	switch policy {
	case CostStrict:
		return types.Zero(), false
	case CostFirstMatch:
		return firstMatchProfit(s, costs), true
	default:
		return firstMatchProfit(s, costs), false
	}
}

func firstMatchProfit(s *sales.Sale, costs map[stock.ProductKey]types.Money) types.Money {
	cost, ok := costs[s.Key()]
	if !ok {
		cost = types.Zero()
	}
	return types.Mul(s.UnitPrice.Sub(cost), s.Quantity)
}

// firstMatchCosts maps each product to the unit cost of its first batch.
func firstMatchCosts(batches []*stock.Batch) map[stock.ProductKey]types.Money {
	costs := make(map[stock.ProductKey]types.Money)
	for _, b := range batches {
		if _, ok := costs[b.Key()]; !ok {
			costs[b.Key()] = b.UnitCost
		}
	}
	return costs
}
