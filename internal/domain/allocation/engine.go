// Package allocation maps sale quantities onto stock batches. It depletes
// batches newest first when a sale is recorded, refills them oldest first
// when a sale is deleted, and keeps batch and sale data in step across
// create, edit and delete.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"shopstock/internal/core/apperror"
	"shopstock/internal/core/id"
	"shopstock/internal/core/tx"
	"shopstock/internal/core/types"
	"shopstock/internal/domain"
	"shopstock/internal/domain/sales"
	"shopstock/internal/domain/stock"
	"shopstock/pkg/logger"
)

var tracer = otel.Tracer("shopstock/allocation")

const defaultCompensationTimeout = 10 * time.Second

// ReversalPolicy selects how a deleted sale's quantity is returned.
type ReversalPolicy string

const (
	// ReversalRecorded returns quantity to the batches recorded at
	// allocation time, then walks the remaining batches oldest first.
	ReversalRecorded ReversalPolicy = "recorded"
	// ReversalDerived only walks batches oldest first.
	ReversalDerived ReversalPolicy = "derived"
)

// ParseReversalPolicy parses a policy name; empty means ReversalRecorded.
func ParseReversalPolicy(s string) (ReversalPolicy, error) {
	switch ReversalPolicy(s) {
	case "", ReversalRecorded:
		return ReversalRecorded, nil
	case ReversalDerived:
		return ReversalDerived, nil
	}
	return "", fmt.Errorf("unknown reversal policy %q", s)
}

// Deps are the stores the engine writes to.
type Deps struct {
	Batches   stock.Repository
	Sales     sales.Repository
	Records   sales.AllocationRepository
	TxManager tx.Manager
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocker replaces the in-process KeyedMutex.
func WithLocker(l Locker) Option { return func(e *Engine) { e.locker = l } }

// WithObserver sets the outcome observer.
func WithObserver(o Observer) Option { return func(e *Engine) { e.observer = o } }

// WithPublisher sets the domain event publisher.
func WithPublisher(p domain.EventPublisher) Option { return func(e *Engine) { e.publisher = p } }

// WithIncidentRecorder sets where failed compensations are reported.
func WithIncidentRecorder(r IncidentRecorder) Option { return func(e *Engine) { e.incidents = r } }

// WithReversalPolicy sets the reversal policy.
func WithReversalPolicy(p ReversalPolicy) Option { return func(e *Engine) { e.reversal = p } }

// WithCompensationTimeout bounds how long undoing a failed operation may take.
func WithCompensationTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.compensationTimeout = d
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// Engine is the allocation engine.
//
// Every operation runs under a per-product lock and inside one transaction.
// When the transaction manager is not atomic, applied steps are journaled
// and undone in reverse order on failure. If undoing fails the operation
// returns INCONSISTENT_STATE.
type Engine struct {
	batches   stock.Repository
	sales     sales.Repository
	records   sales.AllocationRepository
	txm       tx.Manager
	locker    Locker
	observer  Observer
	publisher domain.EventPublisher
	incidents IncidentRecorder

	reversal            ReversalPolicy
	compensationTimeout time.Duration
	now                 func() time.Time
}

// NewEngine creates an engine. A nil TxManager means tx.Nop.
func NewEngine(deps Deps, opts ...Option) *Engine {
	e := &Engine{
		batches:             deps.Batches,
		sales:               deps.Sales,
		records:             deps.Records,
		txm:                 deps.TxManager,
		locker:              NewKeyedMutex(),
		observer:            NopObserver{},
		publisher:           domain.NopPublisher{},
		reversal:            ReversalRecorded,
		compensationTimeout: defaultCompensationTimeout,
		now:                 time.Now,
	}
	if e.txm == nil {
		e.txm = tx.Nop{}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CheckAvailability reports whether quantity can be allocated for a product
// and, if not, how large a top-up has to be. Nothing is changed.
func (e *Engine) CheckAvailability(ctx context.Context, brand, model string, quantity types.Quantity) (Availability, error) {
	if !quantity.IsPositive() {
		return Availability{}, apperror.NewInvalidQuantity("quantity must be positive").WithDetail("quantity", quantity)
	}
	if quantity > types.MaxQuantity {
		return Availability{}, apperror.NewInvalidQuantity("quantity is too large").
			WithDetail("quantity", quantity).
			WithDetail("max", types.MaxQuantity)
	}
	key := stock.NewProductKey(brand, model)
	if err := key.Validate(); err != nil {
		return Availability{}, err
	}

	batches, err := e.batches.ListByProduct(ctx, key)
	if err != nil {
		return Availability{}, storeErr("list batches", err)
	}

	available := Available(batches)
	return Availability{
		Brand:     key.Brand,
		Model:     key.Model,
		Requested: quantity,
		Available: available,
		Shortage:  max(quantity-available, 0),
	}, nil
}

// Allocate records a new sale and deducts its quantity from the product's
// batches, newest first.
//
// When stock is short and req.TopUp is set, the top-up batch is created
// and consumed first. If stock is still short, or no top-up was offered,
// INSUFFICIENT_STOCK is returned and nothing is changed.
func (e *Engine) Allocate(ctx context.Context, req AllocateRequest) (*AllocationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	o := req.order()

	ctx, span := tracer.Start(ctx, "allocation.Allocate", trace.WithAttributes(
		attribute.String("product", o.key.String()),
		attribute.Int64("quantity", o.quantity.Int64()),
	))
	defer span.End()

	keys := []string{o.key.String()}
	unlock, err := e.lock(ctx, keys...)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var result *AllocationResult
	err = e.run(ctx, OpAllocate, keys, func(ctx context.Context, j *journal) error {
		movements, topUp, err := e.deduct(ctx, j, o)
		if err != nil {
			return err
		}

		sale := &sales.Sale{
			Brand:     o.key.Brand,
			Model:     o.key.Model,
			UnitPrice: o.unitPrice,
			Quantity:  o.quantity,
			Total:     types.Mul(o.unitPrice, o.quantity),
			Date:      o.date,
		}
		if err := e.sales.Create(ctx, sale); err != nil {
			return storeErr("create sale", err)
		}
		saleID := sale.ID
		j.saleID = saleID
		j.add("create sale "+saleID.String(), func(ctx context.Context) error {
			return e.sales.Delete(ctx, saleID)
		})

		if err := e.writeRecords(ctx, j, saleID, movements, nil); err != nil {
			return err
		}
		if err := e.publishAllocation(ctx, domain.EventSaleAllocated, sale, movements, nil, topUp); err != nil {
			return err
		}

		result = &AllocationResult{Sale: sale, Movements: movements, TopUpBatch: topUp}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	e.observer.Allocated(OpAllocate, o.key, o.quantity, result.TopUpBatch != nil)
	logger.Info(ctx, "sale allocated",
		"sale_id", result.Sale.ID,
		"product", o.key.String(),
		"quantity", o.quantity,
		"batches", len(result.Movements),
		"topped_up", result.TopUpBatch != nil,
	)
	return result, nil
}

// Reallocate edits a sale in place. The old consumption is returned to
// stock and the new parameters are allocated from scratch. If the new
// allocation fails, the sale and every batch are left as they were.
func (e *Engine) Reallocate(ctx context.Context, req ReallocateRequest) (*AllocationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	o := req.order()

	ctx, span := tracer.Start(ctx, "allocation.Reallocate", trace.WithAttributes(
		attribute.String("sale_id", req.SaleID.String()),
		attribute.String("product", o.key.String()),
		attribute.Int64("quantity", o.quantity.Int64()),
	))
	defer span.End()

	current, err := e.sales.Get(ctx, req.SaleID)
	if err != nil {
		return nil, storeErr("get sale", err)
	}
	oldKey := current.Key()

	recordKeys, err := e.recordKeys(ctx, req.SaleID)
	if err != nil {
		return nil, err
	}
	keys := NormalizeKeys(append(recordKeys, oldKey.String(), o.key.String()))
	unlock, err := e.lock(ctx, keys...)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		result   *AllocationResult
		restored Plan
	)
	err = e.run(ctx, OpReallocate, keys, func(ctx context.Context, j *journal) error {
		j.saleID = req.SaleID
		existing, err := e.lockedSale(ctx, req.SaleID, oldKey)
		if err != nil {
			return err
		}

		plan, previous, err := e.restore(ctx, j, existing, keys)
		if err != nil {
			return err
		}
		restored = plan

		movements, topUp, err := e.deduct(ctx, j, o)
		if err != nil {
			return err
		}

		updated := existing.Clone()
		updated.Brand = o.key.Brand
		updated.Model = o.key.Model
		updated.UnitPrice = o.unitPrice
		updated.Quantity = o.quantity
		updated.Total = types.Mul(o.unitPrice, o.quantity)
		updated.Date = o.date
		if err := e.sales.Update(ctx, updated); err != nil {
			return storeErr("update sale", err)
		}
		j.add("update sale "+existing.ID.String(), func(ctx context.Context) error {
			return e.sales.Update(ctx, existing.Clone())
		})

		if err := e.writeRecords(ctx, j, existing.ID, movements, previous); err != nil {
			return err
		}
		if err := e.publishAllocation(ctx, domain.EventSaleReallocated, updated, movements, restored.Movements, topUp); err != nil {
			return err
		}

		result = &AllocationResult{
			Sale:       updated,
			Movements:  movements,
			TopUpBatch: topUp,
			Restored:   restored.Movements,
		}
		if restored.Dropped > 0 {
			result.Warning = apperror.NewPartialReversal(existing.ID, existing.Quantity.Int64(), restored.Dropped.Int64())
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if restored.Dropped > 0 {
		logger.Warn(ctx, "edited sale could not be fully restored to stock",
			"sale_id", req.SaleID,
			"product", oldKey.String(),
			"dropped", restored.Dropped,
		)
	}
	e.observer.Reversed(oldKey, restored.Total(), restored.Dropped)
	e.observer.Allocated(OpReallocate, o.key, o.quantity, result.TopUpBatch != nil)
	logger.Info(ctx, "sale reallocated",
		"sale_id", req.SaleID,
		"from_product", oldKey.String(),
		"product", o.key.String(),
		"quantity", o.quantity,
		"topped_up", result.TopUpBatch != nil,
	)
	return result, nil
}

// Reverse deletes a sale and returns its quantity to stock. Quantity no
// batch has room for is dropped and reported as a PARTIAL_REVERSAL warning;
// the sale is deleted regardless.
func (e *Engine) Reverse(ctx context.Context, req ReverseRequest) (*ReversalResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "allocation.Reverse", trace.WithAttributes(
		attribute.String("sale_id", req.SaleID.String()),
	))
	defer span.End()

	current, err := e.sales.Get(ctx, req.SaleID)
	if err != nil {
		return nil, storeErr("get sale", err)
	}
	key := current.Key()

	recordKeys, err := e.recordKeys(ctx, req.SaleID)
	if err != nil {
		return nil, err
	}
	keys := NormalizeKeys(append(recordKeys, key.String()))
	unlock, err := e.lock(ctx, keys...)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var result *ReversalResult
	err = e.run(ctx, OpReverse, keys, func(ctx context.Context, j *journal) error {
		j.saleID = req.SaleID
		sale, err := e.lockedSale(ctx, req.SaleID, key)
		if err != nil {
			return err
		}

		plan, records, err := e.restore(ctx, j, sale, keys)
		if err != nil {
			return err
		}

		if err := e.records.DeleteBySale(ctx, sale.ID); err != nil {
			return storeErr("delete allocation records", err)
		}
		j.add("delete allocation records "+sale.ID.String(), func(ctx context.Context) error {
			return e.records.Replace(ctx, sale.ID, records)
		})

		if err := e.sales.Delete(ctx, sale.ID); err != nil {
			return storeErr("delete sale", err)
		}
		j.add("delete sale "+sale.ID.String(), func(ctx context.Context) error {
			return e.sales.Create(ctx, sale.Clone())
		})

		err = e.publish(ctx, domain.Event{
			AggregateType: domain.AggregateSale,
			AggregateID:   sale.ID,
			EventType:     domain.EventSaleReversed,
			Payload:       newSaleEvent(sale, nil, plan.Movements, plan.Dropped),
		})
		if err != nil {
			return err
		}

		result = &ReversalResult{Sale: sale, Restored: plan.Movements, Dropped: plan.Dropped}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if result.Dropped > 0 {
		result.Warning = apperror.NewPartialReversal(result.Sale.ID, result.Sale.Quantity.Int64(), result.Dropped.Int64())
		logger.Warn(ctx, "sale could not be fully restored to stock",
			"sale_id", result.Sale.ID,
			"product", key.String(),
			"quantity", result.Sale.Quantity,
			"dropped", result.Dropped,
		)
	}
	e.observer.Reversed(key, result.Sale.Quantity-result.Dropped, result.Dropped)
	logger.Info(ctx, "sale reversed",
		"sale_id", result.Sale.ID,
		"product", key.String(),
		"batches", len(result.Restored),
	)
	return result, nil
}

// deduct takes o.quantity from the product's batches, creating the top-up
// batch first when it is needed and offered.
func (e *Engine) deduct(ctx context.Context, j *journal, o order) ([]Movement, *stock.Batch, error) {
	candidates, err := e.batches.ListByProduct(ctx, o.key)
	if err != nil {
		return nil, nil, storeErr("list batches", err)
	}
	ordered := OrderForAllocation(candidates)
	available := Available(candidates)

	var topUp *stock.Batch
	if available < o.quantity {
		if o.topUp == nil || available.Add(o.topUp.Quantity) < o.quantity {
			e.observer.Shortage(o.key, o.quantity, available)
			logger.Warn(ctx, "insufficient stock",
				"product", o.key.String(),
				"requested", o.quantity,
				"available", available,
				"top_up_offered", o.topUp != nil,
			)
			return nil, nil, apperror.NewInsufficientStock(o.key.Brand, o.key.Model, o.quantity.Int64(), available.Int64())
		}

		topUp = &stock.Batch{
			Brand:             o.key.Brand,
			Model:             o.key.Model,
			InitialQuantity:   o.topUp.Quantity,
			RemainingQuantity: o.topUp.Quantity,
			UnitCost:          o.topUp.UnitCost,
		}
		if err := e.batches.Create(ctx, topUp); err != nil {
			return nil, nil, storeErr("create top-up batch", err)
		}
		batchID := topUp.ID
		j.add("create top-up batch "+batchID.String(), func(ctx context.Context) error {
			return e.batches.Delete(ctx, batchID)
		})
		ordered = append([]*stock.Batch{topUp}, ordered...)
	}

	plan := PlanDeduction(ordered, o.quantity)
	if plan.Shortfall > 0 {
		return nil, nil, apperror.NewInsufficientStock(o.key.Brand, o.key.Model, o.quantity.Int64(), Available(ordered).Int64())
	}

	for _, m := range plan.Movements {
		if _, err := e.batches.DecreaseRemaining(ctx, m.BatchID, m.Quantity); err != nil {
			return nil, nil, storeErr("decrease batch", err)
		}
		j.add(fmt.Sprintf("decrease batch %s by %d", m.BatchID, m.Quantity), func(ctx context.Context) error {
			_, err := e.batches.IncreaseRemaining(ctx, m.BatchID, m.Quantity)
			return err
		})
	}

	if topUp != nil {
		topUp.RemainingQuantity -= movedFrom(plan.Movements, topUp.ID)
	}
	return plan.Movements, topUp, nil
}

// restore returns a sale's quantity to stock according to the reversal
// policy. It returns the plan applied and the sale's allocation records.
// Only batches whose product key is in locked receive quantity.
func (e *Engine) restore(ctx context.Context, j *journal, sale *sales.Sale, locked []string) (Plan, []sales.AllocationRecord, error) {
	records, err := e.records.ListBySale(ctx, sale.ID)
	if err != nil {
		return Plan{}, nil, storeErr("list allocation records", err)
	}
	candidates, err := e.batches.ListByProduct(ctx, sale.Key())
	if err != nil {
		return Plan{}, nil, storeErr("list batches", err)
	}

	var plan Plan
	switch e.reversal {
	case ReversalDerived:
		plan = PlanRestoration(OrderForReversal(candidates), sale.Quantity)
	default:
		recorded, err := e.recordedBatches(ctx, records, candidates, locked)
		if err != nil {
			return Plan{}, nil, err
		}
		plan = PlanRecordedRestoration(records, recorded, OrderForReversal(candidates), sale.Quantity)
	}

	for _, m := range plan.Movements {
		if _, err := e.batches.IncreaseRemaining(ctx, m.BatchID, m.Quantity); err != nil {
			return Plan{}, nil, storeErr("increase batch", err)
		}
		j.add(fmt.Sprintf("increase batch %s by %d", m.BatchID, m.Quantity), func(ctx context.Context) error {
			_, err := e.batches.DecreaseRemaining(ctx, m.BatchID, m.Quantity)
			return err
		})
	}
	return plan, records, nil
}

// recordedBatches resolves the batches named by records. Batches that were
// relabeled since are fetched directly. Deleted batches, and batches now
// under a product key that is not locked, are left out.
func (e *Engine) recordedBatches(ctx context.Context, records []sales.AllocationRecord, candidates []*stock.Batch, locked []string) (map[id.ID]*stock.Batch, error) {
	byID := make(map[id.ID]*stock.Batch, len(candidates))
	for _, b := range candidates {
		byID[b.ID] = b
	}

	out := make(map[id.ID]*stock.Batch, len(records))
	for _, r := range records {
		if _, ok := out[r.BatchID]; ok {
			continue
		}
		if b, ok := byID[r.BatchID]; ok {
			out[r.BatchID] = b
			continue
		}
		b, err := e.batches.Get(ctx, r.BatchID)
		if apperror.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, storeErr("get batch", err)
		}
		if !slices.Contains(locked, b.Key().String()) {
			logger.Warn(ctx, "funding batch moved to an unlocked product, skipping it",
				"batch_id", b.ID,
				"product", b.Key().String(),
			)
			continue
		}
		out[r.BatchID] = b
	}
	return out, nil
}

// recordKeys returns the current product keys of the batches that funded a
// sale, so that a relabeled batch is locked along with the sale's product.
func (e *Engine) recordKeys(ctx context.Context, saleID id.ID) ([]string, error) {
	if e.reversal == ReversalDerived {
		return nil, nil
	}
	records, err := e.records.ListBySale(ctx, saleID)
	if err != nil {
		return nil, storeErr("list allocation records", err)
	}
	seen := make(map[id.ID]struct{}, len(records))
	var keys []string
	for _, r := range records {
		if _, ok := seen[r.BatchID]; ok {
			continue
		}
		seen[r.BatchID] = struct{}{}
		b, err := e.batches.Get(ctx, r.BatchID)
		if apperror.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, storeErr("get batch", err)
		}
		keys = append(keys, b.Key().String())
	}
	return keys, nil
}

// lockedSale re-reads a sale after its lock is held and checks that it
// still belongs to the locked product.
func (e *Engine) lockedSale(ctx context.Context, saleID id.ID, locked stock.ProductKey) (*sales.Sale, error) {
	sale, err := e.sales.Get(ctx, saleID)
	if err != nil {
		return nil, storeErr("get sale", err)
	}
	if sale.Key() != locked {
		return nil, apperror.NewConflict("sale was changed concurrently, retry").WithDetail("sale_id", saleID)
	}
	return sale, nil
}

func (e *Engine) writeRecords(ctx context.Context, j *journal, saleID id.ID, movements []Movement, previous []sales.AllocationRecord) error {
	now := e.now().UTC()
	records := make([]sales.AllocationRecord, len(movements))
	for i, m := range movements {
		records[i] = sales.AllocationRecord{
			SaleID:    saleID,
			Seq:       i + 1,
			BatchID:   m.BatchID,
			Quantity:  m.Quantity,
			UnitCost:  m.UnitCost,
			CreatedAt: now,
		}
	}

	if err := e.records.Replace(ctx, saleID, records); err != nil {
		return storeErr("write allocation records", err)
	}
	j.add("write allocation records "+saleID.String(), func(ctx context.Context) error {
		return e.records.Replace(ctx, saleID, previous)
	})
	return nil
}

func (e *Engine) lock(ctx context.Context, keys ...string) (func(), error) {
	unlock, err := e.locker.Lock(ctx, keys...)
	if err != nil {
		return nil, apperror.NewDependencyUnavailable("acquire product lock", err).WithDetail("keys", keys)
	}
	return unlock, nil
}

// run executes fn in a transaction and compensates on failure when the
// transaction manager cannot roll back on its own.
func (e *Engine) run(ctx context.Context, op string, keys []string, fn func(ctx context.Context, j *journal) error) error {
	j := &journal{}
	err := e.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return fn(ctx, j)
	})
	if err == nil {
		return nil
	}
	if !tx.IsAtomic(e.txm) && j.len() > 0 {
		return e.compensate(ctx, op, keys, j, err)
	}
	return storeErr(op, err)
}

func (e *Engine) compensate(ctx context.Context, op string, keys []string, j *journal, cause error) error {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.compensationTimeout)
	defer cancel()

	steps, rbErr := j.rollback(cctx)
	if rbErr == nil {
		e.observer.Compensated(op, len(steps))
		logger.Warn(ctx, "operation failed and was compensated",
			"operation", op,
			"keys", keys,
			"steps", len(steps),
			"error", cause,
		)
		return storeErr(op, cause)
	}

	e.observer.Inconsistent(op)
	logger.Error(ctx, "compensation failed; stock and sales need reconciliation",
		"operation", op,
		"keys", keys,
		"cause", cause,
		"journal", steps,
	)

	if e.incidents != nil {
		incident := Incident{
			Operation:  op,
			Keys:       keys,
			SaleID:     saleIDString(j.saleID),
			Cause:      cause.Error(),
			Steps:      steps,
			OccurredAt: e.now().UTC(),
		}
		if err := e.incidents.Record(cctx, incident); err != nil {
			logger.Error(ctx, "failed to record incident", "operation", op, "error", err)
		}
	}

	return apperror.NewInconsistentState(op, errors.Join(cause, rbErr)).WithDetail("keys", keys)
}

func (e *Engine) publishAllocation(ctx context.Context, eventType string, sale *sales.Sale, movements, restored []Movement, topUp *stock.Batch) error {
	if topUp != nil {
		err := e.publish(ctx, domain.Event{
			AggregateType: domain.AggregateBatch,
			AggregateID:   topUp.ID,
			EventType:     domain.EventBatchToppedUp,
			Payload: TopUpEvent{
				BatchID:  topUp.ID,
				Brand:    topUp.Brand,
				Model:    topUp.Model,
				Quantity: topUp.InitialQuantity,
				UnitCost: topUp.UnitCost,
				SaleID:   sale.ID,
			},
		})
		if err != nil {
			return err
		}
	}
	return e.publish(ctx, domain.Event{
		AggregateType: domain.AggregateSale,
		AggregateID:   sale.ID,
		EventType:     eventType,
		Payload:       newSaleEvent(sale, movements, restored, 0),
	})
}

func (e *Engine) publish(ctx context.Context, event domain.Event) error {
	if err := e.publisher.Publish(ctx, event); err != nil {
		return storeErr("publish "+event.EventType, err)
	}
	return nil
}

// storeErr keeps application errors and wraps anything else coming from a
// store as DEPENDENCY_UNAVAILABLE.
func storeErr(step string, err error) error {
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewDependencyUnavailable(step, err)
}

func saleIDString(saleID id.ID) string {
	if id.IsNil(saleID) {
		return ""
	}
	return saleID.String()
}

func movedFrom(movements []Movement, batchID id.ID) types.Quantity {
	var total types.Quantity
	for _, m := range movements {
		if m.BatchID == batchID {
			total += m.Quantity
		}
	}
	return total
}
