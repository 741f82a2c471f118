package allocation

import (
	"cmp"
	"slices"

	"shopstock/internal/core/id"
	"shopstock/internal/core/types"
	"shopstock/internal/domain/sales"
	"shopstock/internal/domain/stock"
)

// Movement is a quantity taken from, or returned to, one batch.
type Movement struct {
	BatchID  id.ID          `json:"batchId"`
	Quantity types.Quantity `json:"quantity"`
	UnitCost types.Money    `json:"unitCost"`
}

// Plan is the outcome of walking candidate batches.
// Shortfall is set by deduction plans, Dropped by restoration plans.
type Plan struct {
	Movements []Movement
	Shortfall types.Quantity
	Dropped   types.Quantity
}

// Total returns the quantity moved by the plan.
func (p Plan) Total() types.Quantity {
	var total types.Quantity
	for _, m := range p.Movements {
		total += m.Quantity
	}
	return total
}

func compareAge(a, b *stock.Batch) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return id.Compare(a.ID, b.ID)
}

// OrderForAllocation returns a copy of batches sorted newest first.
// Ties on creation time are broken by descending ID.
func OrderForAllocation(batches []*stock.Batch) []*stock.Batch {
	ordered := slices.Clone(batches)
	slices.SortStableFunc(ordered, func(a, b *stock.Batch) int {
		return compareAge(b, a)
	})
	return ordered
}

// OrderForReversal returns a copy of batches sorted oldest first.
func OrderForReversal(batches []*stock.Batch) []*stock.Batch {
	ordered := slices.Clone(batches)
	slices.SortStableFunc(ordered, compareAge)
	return ordered
}

// Available sums remaining quantity, saturating instead of wrapping.
func Available(batches []*stock.Batch) types.Quantity {
	var total types.Quantity
	for _, b := range batches {
		total = total.Add(b.RemainingQuantity)
	}
	return total
}

// PlanDeduction takes min(remaining, outstanding) from each batch in order
// until need is met.
func PlanDeduction(ordered []*stock.Batch, need types.Quantity) Plan {
	var plan Plan
	outstanding := need
	for _, b := range ordered {
		if outstanding <= 0 {
			break
		}
		take := b.RemainingQuantity.Min(outstanding)
		if take <= 0 {
			continue
		}
		plan.Movements = append(plan.Movements, Movement{BatchID: b.ID, Quantity: take, UnitCost: b.UnitCost})
		outstanding -= take
	}
	plan.Shortfall = max(outstanding, 0)
	return plan
}

// PlanRestoration gives min(room, outstanding) to each batch in order.
// Whatever no batch has room for is reported as Dropped.
func PlanRestoration(ordered []*stock.Batch, amount types.Quantity) Plan {
	r := newRestorer()
	outstanding := amount
	for _, b := range ordered {
		outstanding = r.give(b, outstanding, outstanding)
	}
	return r.plan(outstanding)
}

// PlanRecordedRestoration returns each record's quantity to the batch it
// came from, capped at that batch's room. Records whose batch no longer
// exists are skipped. Quantity left over is then spread over fallback,
// which callers pass oldest first.
func PlanRecordedRestoration(records []sales.AllocationRecord, recorded map[id.ID]*stock.Batch, fallback []*stock.Batch, amount types.Quantity) Plan {
	r := newRestorer()
	outstanding := amount

	ordered := slices.Clone(records)
	slices.SortStableFunc(ordered, func(a, b sales.AllocationRecord) int {
		return cmp.Compare(a.Seq, b.Seq)
	})
	for _, rec := range ordered {
		b, ok := recorded[rec.BatchID]
		if !ok {
			continue
		}
		outstanding = r.give(b, rec.Quantity, outstanding)
	}

	for _, b := range fallback {
		outstanding = r.give(b, outstanding, outstanding)
	}
	return r.plan(outstanding)
}

// restorer tracks room per batch while a restoration plan is built, so a
// batch reached twice is never filled beyond its initial quantity.
type restorer struct {
	room      map[id.ID]types.Quantity
	index     map[id.ID]int
	movements []Movement
}

func newRestorer() *restorer {
	return &restorer{room: make(map[id.ID]types.Quantity), index: make(map[id.ID]int)}
}

// give restores up to want (bounded by outstanding) to b and returns the
// new outstanding quantity.
func (r *restorer) give(b *stock.Batch, want, outstanding types.Quantity) types.Quantity {
	if outstanding <= 0 || want <= 0 {
		return outstanding
	}
	room, seen := r.room[b.ID]
	if !seen {
		room = max(b.Room(), 0)
	}
	amount := room.Min(want).Min(outstanding)
	if amount <= 0 {
		r.room[b.ID] = room
		return outstanding
	}
	r.room[b.ID] = room - amount

	if i, ok := r.index[b.ID]; ok {
		r.movements[i].Quantity += amount
	} else {
		r.index[b.ID] = len(r.movements)
		r.movements = append(r.movements, Movement{BatchID: b.ID, Quantity: amount, UnitCost: b.UnitCost})
	}
	return outstanding - amount
}

func (r *restorer) plan(outstanding types.Quantity) Plan {
	return Plan{Movements: r.movements, Dropped: max(outstanding, 0)}
}
