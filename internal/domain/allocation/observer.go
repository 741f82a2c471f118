package allocation

import (
	"shopstock/internal/core/types"
	"shopstock/internal/domain/stock"
)

// Operation names used in logs, metrics and incidents.
const (
	OpAllocate   = "allocate"
	OpReallocate = "reallocate"
	OpReverse    = "reverse"
)

// Observer receives engine outcomes. Implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	Allocated(op string, key stock.ProductKey, quantity types.Quantity, toppedUp bool)
	Shortage(key stock.ProductKey, requested, available types.Quantity)
	Reversed(key stock.ProductKey, restored, dropped types.Quantity)
	Compensated(op string, steps int)
	Inconsistent(op string)
}

// NopObserver ignores everything.
type NopObserver struct{}

func (NopObserver) Allocated(string, stock.ProductKey, types.Quantity, bool) {}
func (NopObserver) Shortage(stock.ProductKey, types.Quantity, types.Quantity) {}
func (NopObserver) Reversed(stock.ProductKey, types.Quantity, types.Quantity) {}
func (NopObserver) Compensated(string, int) {}
func (NopObserver) Inconsistent(string) {}
