package allocation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopstock/internal/core/id"
	"shopstock/internal/core/types"
	"shopstock/internal/domain/sales"
	"shopstock/internal/domain/stock"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func batch(initial, remaining types.Quantity, age time.Duration) *stock.Batch {
	return &stock.Batch{
		ID:                id.New(),
		Brand:             "Acme",
		Model:             "X1",
		InitialQuantity:   initial,
		RemainingQuantity: remaining,
		UnitCost:          types.MustMoney("5"),
		CreatedAt:         t0.Add(age),
	}
}

func TestOrderForAllocation_NewestFirst(t *testing.T) {
	older := batch(10, 10, 0)
	newer := batch(10, 3, time.Hour)

	ordered := OrderForAllocation([]*stock.Batch{older, newer})
	assert.Equal(t, []*stock.Batch{newer, older}, ordered)

	reversed := OrderForReversal([]*stock.Batch{newer, older})
	assert.Equal(t, []*stock.Batch{older, newer}, reversed)
}

func TestOrder_TieBrokenByID(t *testing.T) {
	first := batch(1, 1, 0)
	second := batch(1, 1, 0)
	require.Equal(t, -1, id.Compare(first.ID, second.ID), "uuidv7 ids are created in order")

	assert.Equal(t, []*stock.Batch{second, first}, OrderForAllocation([]*stock.Batch{first, second}))
	assert.Equal(t, []*stock.Batch{first, second}, OrderForReversal([]*stock.Batch{second, first}))
}

func TestOrder_DoesNotMutateInput(t *testing.T) {
	a, b := batch(1, 1, 0), batch(1, 1, time.Minute)
	in := []*stock.Batch{a, b}
	OrderForAllocation(in)
	assert.Equal(t, []*stock.Batch{a, b}, in)
}

func TestPlanDeduction(t *testing.T) {
	t.Run("recency walk drains newer first", func(t *testing.T) {
		a := batch(10, 3, time.Hour)
		b := batch(10, 10, 0)

		plan := PlanDeduction([]*stock.Batch{a, b}, 5)
		require.Len(t, plan.Movements, 2)
		assert.Equal(t, Movement{BatchID: a.ID, Quantity: 3, UnitCost: a.UnitCost}, plan.Movements[0])
		assert.Equal(t, types.Quantity(2), plan.Movements[1].Quantity)
		assert.Zero(t, plan.Shortfall)
		assert.Equal(t, types.Quantity(5), plan.Total())
	})

	t.Run("stops once satisfied", func(t *testing.T) {
		plan := PlanDeduction([]*stock.Batch{batch(10, 10, 0), batch(10, 10, 0)}, 4)
		assert.Len(t, plan.Movements, 1)
	})

	t.Run("skips empty batches", func(t *testing.T) {
		empty := batch(10, 0, time.Hour)
		full := batch(10, 10, 0)
		plan := PlanDeduction([]*stock.Batch{empty, full}, 2)
		require.Len(t, plan.Movements, 1)
		assert.Equal(t, full.ID, plan.Movements[0].BatchID)
	})

	t.Run("reports shortfall", func(t *testing.T) {
		plan := PlanDeduction([]*stock.Batch{batch(5, 2, 0), batch(5, 3, 0)}, 8)
		assert.Equal(t, types.Quantity(3), plan.Shortfall)
		assert.Equal(t, types.Quantity(5), plan.Total())
	})
}

func TestPlanRestoration(t *testing.T) {
	t.Run("oldest absorbs first", func(t *testing.T) {
		a := batch(10, 4, 0)
		b := batch(10, 10, time.Hour)

		plan := PlanRestoration([]*stock.Batch{a, b}, 6)
		require.Len(t, plan.Movements, 1)
		assert.Equal(t, a.ID, plan.Movements[0].BatchID)
		assert.Equal(t, types.Quantity(6), plan.Movements[0].Quantity)
		assert.Zero(t, plan.Dropped)
	})

	t.Run("excess is dropped", func(t *testing.T) {
		plan := PlanRestoration([]*stock.Batch{batch(10, 8, 0)}, 5)
		assert.Equal(t, types.Quantity(2), plan.Total())
		assert.Equal(t, types.Quantity(3), plan.Dropped)
	})

	t.Run("no candidates drops everything", func(t *testing.T) {
		plan := PlanRestoration(nil, 4)
		assert.Empty(t, plan.Movements)
		assert.Equal(t, types.Quantity(4), plan.Dropped)
	})
}

func TestPlanRecordedRestoration(t *testing.T) {
	older := batch(10, 10, 0)
	newer := batch(10, 7, time.Hour)
	gone := id.New()

	records := []sales.AllocationRecord{
		{Seq: 2, BatchID: gone, Quantity: 2},
		{Seq: 1, BatchID: newer.ID, Quantity: 3},
	}
	recorded := map[id.ID]*stock.Batch{newer.ID: newer}

	t.Run("returns to recorded batch and falls back for vanished ones", func(t *testing.T) {
		older := batch(10, 8, 0)
		plan := PlanRecordedRestoration(records, recorded, []*stock.Batch{older, newer}, 5)

		require.Len(t, plan.Movements, 2)
		assert.Equal(t, Movement{BatchID: newer.ID, Quantity: 3, UnitCost: newer.UnitCost}, plan.Movements[0])
		assert.Equal(t, older.ID, plan.Movements[1].BatchID)
		assert.Equal(t, types.Quantity(2), plan.Movements[1].Quantity)
		assert.Zero(t, plan.Dropped)
	})

	t.Run("shared room is not exceeded", func(t *testing.T) {
		plan := PlanRecordedRestoration(records, recorded, []*stock.Batch{older, newer}, 5)

		assert.Equal(t, types.Quantity(3), plan.Total(), "only newer had room")
		assert.Equal(t, types.Quantity(2), plan.Dropped)
		require.Len(t, plan.Movements, 1)
	})
}

func TestAvailable(t *testing.T) {
	assert.Equal(t, types.Quantity(5), Available([]*stock.Batch{batch(5, 2, 0), batch(5, 3, 0)}))
	assert.Zero(t, Available(nil))

	huge := types.Quantity(math.MaxInt64/2 + 1)
	assert.Equal(t, types.Quantity(math.MaxInt64), Available([]*stock.Batch{batch(huge, huge, 0), batch(huge, huge, 0)}))
}

func TestNormalizeKeys(t *testing.T) {
	assert.Equal(t, []string{"a|1", "b|2"}, NormalizeKeys([]string{"b|2", "a|1", "b|2"}))
}
