package allocation_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopstock/internal/core/apperror"
	"shopstock/internal/core/id"
	"shopstock/internal/core/types"
	"shopstock/internal/domain"
	"shopstock/internal/domain/allocation"
	"shopstock/internal/domain/sales"
	"shopstock/internal/domain/stock"
	"shopstock/internal/infrastructure/storage/memory"
)

var (
	day   = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	acme  = stock.ProductKey{Brand: "Acme", Model: "X1"}
	other = stock.ProductKey{Brand: "Acme", Model: "X2"}
)

// faultyBatches injects failures into batch mutations.
type faultyBatches struct {
	stock.Repository

	mu            sync.Mutex
	decreaseCalls int
	increaseCalls int
	onDecrease    func(call int) error
	onIncrease    func(call int) error
}

func (f *faultyBatches) DecreaseRemaining(ctx context.Context, batchID id.ID, amount types.Quantity) (*stock.Batch, error) {
	f.mu.Lock()
	f.decreaseCalls++
	call := f.decreaseCalls
	f.mu.Unlock()
	if f.onDecrease != nil {
		if err := f.onDecrease(call); err != nil {
			return nil, err
		}
	}
	return f.Repository.DecreaseRemaining(ctx, batchID, amount)
}

func (f *faultyBatches) IncreaseRemaining(ctx context.Context, batchID id.ID, amount types.Quantity) (*stock.Batch, error) {
	f.mu.Lock()
	f.increaseCalls++
	call := f.increaseCalls
	f.mu.Unlock()
	if f.onIncrease != nil {
		if err := f.onIncrease(call); err != nil {
			return nil, err
		}
	}
	return f.Repository.IncreaseRemaining(ctx, batchID, amount)
}

type recordingObserver struct {
	mu           sync.Mutex
	shortages    int
	compensated  int
	inconsistent int
	dropped      types.Quantity
}

func (o *recordingObserver) Allocated(string, stock.ProductKey, types.Quantity, bool) {}

func (o *recordingObserver) Shortage(stock.ProductKey, types.Quantity, types.Quantity) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.shortages++
}

func (o *recordingObserver) Reversed(_ stock.ProductKey, _ types.Quantity, dropped types.Quantity) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dropped += dropped
}

func (o *recordingObserver) Compensated(string, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.compensated++
}

func (o *recordingObserver) Inconsistent(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inconsistent++
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	fail   error
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType
	}
	return out
}

type recordingIncidents struct {
	incidents []allocation.Incident
}

func (r *recordingIncidents) Record(_ context.Context, incident allocation.Incident) error {
	r.incidents = append(r.incidents, incident)
	return nil
}

type fixture struct {
	store     *memory.Store
	batches   *faultyBatches
	observer  *recordingObserver
	publisher *recordingPublisher
	incidents *recordingIncidents
	engine    *allocation.Engine
}

func newFixture(t *testing.T, opts ...allocation.Option) *fixture {
	t.Helper()
	store := memory.New()
	f := &fixture{
		store:     store,
		batches:   &faultyBatches{Repository: store.Batches()},
		observer:  &recordingObserver{},
		publisher: &recordingPublisher{},
		incidents: &recordingIncidents{},
	}
	opts = append([]allocation.Option{
		allocation.WithObserver(f.observer),
		allocation.WithPublisher(f.publisher),
		allocation.WithIncidentRecorder(f.incidents),
	}, opts...)
	f.engine = allocation.NewEngine(allocation.Deps{
		Batches: f.batches,
		Sales:   store.Sales(),
		Records: store.Allocations(),
	}, opts...)
	return f
}

// addBatch creates a batch aged relative to day; larger age is newer.
func (f *fixture) addBatch(t *testing.T, key stock.ProductKey, initial, remaining types.Quantity, cost string, age time.Duration) *stock.Batch {
	t.Helper()
	b := &stock.Batch{
		Brand:             key.Brand,
		Model:             key.Model,
		InitialQuantity:   initial,
		RemainingQuantity: remaining,
		UnitCost:          types.MustMoney(cost),
		CreatedAt:         day.Add(age),
	}
	require.NoError(t, f.store.Batches().Create(context.Background(), b))
	return b
}

func (f *fixture) remaining(t *testing.T, b *stock.Batch) types.Quantity {
	t.Helper()
	got, err := f.store.Batches().Get(context.Background(), b.ID)
	require.NoError(t, err)
	return got.RemainingQuantity
}

func (f *fixture) batchCount(t *testing.T) int {
	t.Helper()
	all, err := f.store.Batches().List(context.Background(), stock.Filter{})
	require.NoError(t, err)
	return len(all)
}

func (f *fixture) saleCount(t *testing.T) int {
	t.Helper()
	all, err := f.store.Sales().List(context.Background(), sales.Filter{})
	require.NoError(t, err)
	return len(all)
}

func allocate(key stock.ProductKey, qty types.Quantity, price string) allocation.AllocateRequest {
	return allocation.AllocateRequest{
		Brand:     key.Brand,
		Model:     key.Model,
		Quantity:  qty,
		UnitPrice: types.MustMoney(price),
		Date:      day,
	}
}

func TestAllocate_SingleBatch(t *testing.T) {
	f := newFixture(t)
	b := f.addBatch(t, acme, 10, 10, "5", 0)

	res, err := f.engine.Allocate(context.Background(), allocate(acme, 4, "8"))
	require.NoError(t, err)

	assert.Equal(t, types.Quantity(6), f.remaining(t, b))
	assert.True(t, res.Sale.Total.Equal(types.MustMoney("32")), res.Sale.Total.String())
	assert.Nil(t, res.TopUpBatch)
	require.Len(t, res.Movements, 1)
	assert.Equal(t, b.ID, res.Movements[0].BatchID)

	records, err := f.store.Allocations().ListBySale(context.Background(), res.Sale.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, types.Quantity(4), records[0].Quantity)
	assert.True(t, records[0].UnitCost.Equal(types.MustMoney("5")))

	assert.Equal(t, []string{domain.EventSaleAllocated}, f.publisher.types())
}

func TestAllocate_RecencyFirst(t *testing.T) {
	f := newFixture(t)
	older := f.addBatch(t, acme, 10, 10, "5", 0)
	newer := f.addBatch(t, acme, 3, 3, "6", time.Hour)

	_, err := f.engine.Allocate(context.Background(), allocate(acme, 5, "9"))
	require.NoError(t, err)

	assert.Equal(t, types.Quantity(0), f.remaining(t, newer))
	assert.Equal(t, types.Quantity(8), f.remaining(t, older))
}

func TestAllocate_InsufficientWithoutTopUp(t *testing.T) {
	f := newFixture(t)
	a := f.addBatch(t, acme, 5, 2, "5", 0)
	b := f.addBatch(t, acme, 5, 3, "5", time.Hour)

	_, err := f.engine.Allocate(context.Background(), allocate(acme, 8, "9"))
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, int64(3), appErr.Details["shortage"])

	assert.Equal(t, types.Quantity(2), f.remaining(t, a))
	assert.Equal(t, types.Quantity(3), f.remaining(t, b))
	assert.Zero(t, f.saleCount(t))
	assert.Equal(t, 1, f.observer.shortages)
	assert.Empty(t, f.publisher.types())
}

func TestAllocate_TopUp(t *testing.T) {
	t.Run("sufficient top-up is created and consumed first", func(t *testing.T) {
		f := newFixture(t)
		existing := f.addBatch(t, acme, 5, 5, "5", 0)

		req := allocate(acme, 8, "9")
		req.TopUp = &allocation.TopUp{Quantity: 4, UnitCost: types.MustMoney("6")}

		res, err := f.engine.Allocate(context.Background(), req)
		require.NoError(t, err)
		require.NotNil(t, res.TopUpBatch)

		assert.Equal(t, types.Quantity(4), res.TopUpBatch.InitialQuantity)
		assert.Equal(t, types.Quantity(0), f.remaining(t, res.TopUpBatch))
		assert.Equal(t, types.Quantity(1), f.remaining(t, existing))
		assert.Equal(t, res.TopUpBatch.ID, res.Movements[0].BatchID)
		assert.Equal(t, []string{domain.EventBatchToppedUp, domain.EventSaleAllocated}, f.publisher.types())
	})

	t.Run("insufficient top-up creates nothing", func(t *testing.T) {
		f := newFixture(t)
		existing := f.addBatch(t, acme, 5, 5, "5", 0)

		req := allocate(acme, 8, "9")
		req.TopUp = &allocation.TopUp{Quantity: 2, UnitCost: types.MustMoney("6")}

		_, err := f.engine.Allocate(context.Background(), req)
		assert.True(t, apperror.IsInsufficientStock(err))
		assert.Equal(t, 1, f.batchCount(t))
		assert.Equal(t, types.Quantity(5), f.remaining(t, existing))
	})

	t.Run("top-up without shortage is ignored", func(t *testing.T) {
		f := newFixture(t)
		f.addBatch(t, acme, 5, 5, "5", 0)

		req := allocate(acme, 3, "9")
		req.TopUp = &allocation.TopUp{Quantity: 10, UnitCost: types.MustMoney("6")}

		res, err := f.engine.Allocate(context.Background(), req)
		require.NoError(t, err)
		assert.Nil(t, res.TopUpBatch)
		assert.Equal(t, 1, f.batchCount(t))
	})

	t.Run("top-up for a product with no batches", func(t *testing.T) {
		f := newFixture(t)
		req := allocate(acme, 3, "9")
		req.TopUp = &allocation.TopUp{Quantity: 3, UnitCost: types.MustMoney("6")}

		res, err := f.engine.Allocate(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, types.Quantity(0), f.remaining(t, res.TopUpBatch))
	})
}

func TestAllocate_Validation(t *testing.T) {
	f := newFixture(t)
	f.addBatch(t, acme, 5, 5, "5", 0)

	tests := []struct {
		name   string
		mutate func(r *allocation.AllocateRequest)
		check  func(error) bool
	}{
		{"zero quantity", func(r *allocation.AllocateRequest) { r.Quantity = 0 }, apperror.IsInvalidQuantity},
		{"negative quantity", func(r *allocation.AllocateRequest) { r.Quantity = -3 }, apperror.IsInvalidQuantity},
		{"negative price", func(r *allocation.AllocateRequest) { r.UnitPrice = types.MustMoney("-1") }, apperror.IsInvalidQuantity},
		{"negative top-up", func(r *allocation.AllocateRequest) {
			r.TopUp = &allocation.TopUp{Quantity: -1}
		}, apperror.IsInvalidQuantity},
		{"missing brand", func(r *allocation.AllocateRequest) { r.Brand = " " }, func(err error) bool {
			return apperror.HasCode(err, apperror.CodeValidation)
		}},
		{"missing date", func(r *allocation.AllocateRequest) { r.Date = time.Time{} }, func(err error) bool {
			return apperror.HasCode(err, apperror.CodeValidation)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := allocate(acme, 2, "9")
			tt.mutate(&req)
			_, err := f.engine.Allocate(context.Background(), req)
			require.Error(t, err)
			assert.True(t, tt.check(err), err.Error())
		})
	}
	assert.Zero(t, f.saleCount(t))
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)
	f.addBatch(t, acme, 5, 2, "5", 0)
	f.addBatch(t, acme, 5, 3, "5", time.Hour)

	got, err := f.engine.CheckAvailability(context.Background(), "Acme", "X1", 8)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(5), got.Available)
	assert.Equal(t, types.Quantity(3), got.Shortage)
	assert.True(t, got.Short())

	got, err = f.engine.CheckAvailability(context.Background(), "Acme", "X1", 4)
	require.NoError(t, err)
	assert.False(t, got.Short())

	_, err = f.engine.CheckAvailability(context.Background(), "Acme", "X1", 0)
	assert.True(t, apperror.IsInvalidQuantity(err))
}

func TestReverse_DerivedOldestFirst(t *testing.T) {
	f := newFixture(t, allocation.WithReversalPolicy(allocation.ReversalDerived))
	a := f.addBatch(t, acme, 10, 4, "5", 0)
	b := f.addBatch(t, acme, 10, 10, "5", time.Hour)

	sale := &sales.Sale{Brand: "Acme", Model: "X1", Quantity: 6, UnitPrice: types.MustMoney("9"), Total: types.MustMoney("54"), Date: day}
	require.NoError(t, f.store.Sales().Create(context.Background(), sale))

	res, err := f.engine.Reverse(context.Background(), allocation.ReverseRequest{SaleID: sale.ID})
	require.NoError(t, err)

	assert.Equal(t, types.Quantity(10), f.remaining(t, a))
	assert.Equal(t, types.Quantity(10), f.remaining(t, b))
	assert.Nil(t, res.Warning)
	assert.Zero(t, f.saleCount(t))
}

func TestReverse_UnrecordedSaleFallsBackOldestFirst(t *testing.T) {
	f := newFixture(t)
	a := f.addBatch(t, acme, 10, 4, "5", 0)
	b := f.addBatch(t, acme, 10, 10, "5", time.Hour)

	sale := &sales.Sale{Brand: "Acme", Model: "X1", Quantity: 6, UnitPrice: types.MustMoney("9"), Date: day}
	require.NoError(t, f.store.Sales().Create(context.Background(), sale))

	_, err := f.engine.Reverse(context.Background(), allocation.ReverseRequest{SaleID: sale.ID})
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(10), f.remaining(t, a))
	assert.Equal(t, types.Quantity(10), f.remaining(t, b))
}

func TestReverse_RecordedReturnsToFundingBatches(t *testing.T) {
	f := newFixture(t)
	older := f.addBatch(t, acme, 10, 6, "4", 0)
	newer := f.addBatch(t, acme, 3, 3, "6", time.Hour)

	res, err := f.engine.Allocate(context.Background(), allocate(acme, 5, "9"))
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(0), f.remaining(t, newer))
	assert.Equal(t, types.Quantity(4), f.remaining(t, older))

	rev, err := f.engine.Reverse(context.Background(), allocation.ReverseRequest{SaleID: res.Sale.ID})
	require.NoError(t, err)

	// Derived oldest-first would have put 4 into the older batch and 1
	// into the newer one.
	assert.Equal(t, types.Quantity(3), f.remaining(t, newer))
	assert.Equal(t, types.Quantity(6), f.remaining(t, older))
	assert.Zero(t, rev.Dropped)

	records, err := f.store.Allocations().ListBySale(context.Background(), res.Sale.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReverse_PartialReversalWarns(t *testing.T) {
	f := newFixture(t)
	b := f.addBatch(t, acme, 10, 10, "5", 0)

	res, err := f.engine.Allocate(context.Background(), allocate(acme, 6, "9"))
	require.NoError(t, err)

	// The funding batch is deleted and a small one appears instead.
	require.NoError(t, f.store.Batches().Delete(context.Background(), b.ID))
	small := f.addBatch(t, acme, 4, 2, "5", time.Hour)

	rev, err := f.engine.Reverse(context.Background(), allocation.ReverseRequest{SaleID: res.Sale.ID})
	require.NoError(t, err, "partial reversal never blocks the delete")

	assert.Equal(t, types.Quantity(4), f.remaining(t, small))
	assert.Equal(t, types.Quantity(4), rev.Dropped)
	require.NotNil(t, rev.Warning)
	assert.Equal(t, apperror.CodePartialReversal, rev.Warning.Code)
	assert.Zero(t, f.saleCount(t))
	assert.Equal(t, types.Quantity(4), f.observer.dropped)
}

func TestReverse_RelabeledBatchStillReceivesQuantity(t *testing.T) {
	f := newFixture(t)
	b := f.addBatch(t, acme, 10, 10, "5", 0)

	res, err := f.engine.Allocate(context.Background(), allocate(acme, 4, "9"))
	require.NoError(t, err)

	relabeled := b.Clone()
	relabeled.Model = "X1-typo-fixed"
	require.NoError(t, f.store.Batches().Update(context.Background(), relabeled))

	_, err = f.engine.Reverse(context.Background(), allocation.ReverseRequest{SaleID: res.Sale.ID})
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(10), f.remaining(t, b))
}

func TestReverse_UnknownSale(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Reverse(context.Background(), allocation.ReverseRequest{SaleID: id.New()})
	assert.True(t, apperror.IsNotFound(err))
}

func TestReallocate(t *testing.T) {
	t.Run("quantity change on same product", func(t *testing.T) {
		f := newFixture(t)
		b := f.addBatch(t, acme, 10, 10, "5", 0)

		res, err := f.engine.Allocate(context.Background(), allocate(acme, 4, "8"))
		require.NoError(t, err)

		edited, err := f.engine.Reallocate(context.Background(), allocation.ReallocateRequest{
			SaleID: res.Sale.ID, Brand: "Acme", Model: "X1",
			Quantity: 7, UnitPrice: types.MustMoney("8"), Date: day,
		})
		require.NoError(t, err)

		assert.Equal(t, res.Sale.ID, edited.Sale.ID)
		assert.Equal(t, types.Quantity(3), f.remaining(t, b))
		assert.True(t, edited.Sale.Total.Equal(types.MustMoney("56")))
		assert.Equal(t, 1, f.saleCount(t))
		require.Len(t, edited.Restored, 1)
		assert.Equal(t, types.Quantity(4), edited.Restored[0].Quantity)
	})

	t.Run("product change moves stock", func(t *testing.T) {
		f := newFixture(t)
		a := f.addBatch(t, acme, 10, 10, "5", 0)
		o := f.addBatch(t, other, 10, 10, "5", 0)

		res, err := f.engine.Allocate(context.Background(), allocate(acme, 4, "8"))
		require.NoError(t, err)

		_, err = f.engine.Reallocate(context.Background(), allocation.ReallocateRequest{
			SaleID: res.Sale.ID, Brand: other.Brand, Model: other.Model,
			Quantity: 2, UnitPrice: types.MustMoney("8"), Date: day,
		})
		require.NoError(t, err)

		assert.Equal(t, types.Quantity(10), f.remaining(t, a))
		assert.Equal(t, types.Quantity(8), f.remaining(t, o))

		sale, err := f.store.Sales().Get(context.Background(), res.Sale.ID)
		require.NoError(t, err)
		assert.Equal(t, other, sale.Key())
	})

	t.Run("failed edit leaves sale and batches untouched", func(t *testing.T) {
		f := newFixture(t)
		b := f.addBatch(t, acme, 10, 10, "5", 0)

		res, err := f.engine.Allocate(context.Background(), allocate(acme, 4, "8"))
		require.NoError(t, err)

		_, err = f.engine.Reallocate(context.Background(), allocation.ReallocateRequest{
			SaleID: res.Sale.ID, Brand: "Acme", Model: "X1",
			Quantity: 11, UnitPrice: types.MustMoney("8"), Date: day,
		})
		assert.True(t, apperror.IsInsufficientStock(err))

		assert.Equal(t, types.Quantity(6), f.remaining(t, b))
		sale, err := f.store.Sales().Get(context.Background(), res.Sale.ID)
		require.NoError(t, err)
		assert.Equal(t, types.Quantity(4), sale.Quantity)

		records, err := f.store.Allocations().ListBySale(context.Background(), res.Sale.ID)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, types.Quantity(4), records[0].Quantity)
	})

	t.Run("edit may carry a top-up", func(t *testing.T) {
		f := newFixture(t)
		f.addBatch(t, acme, 5, 5, "5", 0)

		res, err := f.engine.Allocate(context.Background(), allocate(acme, 5, "8"))
		require.NoError(t, err)

		edited, err := f.engine.Reallocate(context.Background(), allocation.ReallocateRequest{
			SaleID: res.Sale.ID, Brand: "Acme", Model: "X1",
			Quantity: 8, UnitPrice: types.MustMoney("8"), Date: day,
			TopUp: &allocation.TopUp{Quantity: 3, UnitCost: types.MustMoney("5")},
		})
		require.NoError(t, err)
		require.NotNil(t, edited.TopUpBatch)
		assert.Equal(t, 2, f.batchCount(t))
	})
}

func TestAllocate_CompensatesFailedDeduction(t *testing.T) {
	f := newFixture(t)
	older := f.addBatch(t, acme, 10, 10, "5", 0)
	newer := f.addBatch(t, acme, 3, 3, "5", time.Hour)

	f.batches.onDecrease = func(call int) error {
		if call == 2 {
			return errors.New("connection reset by peer")
		}
		return nil
	}

	_, err := f.engine.Allocate(context.Background(), allocate(acme, 5, "9"))
	require.Error(t, err)
	assert.True(t, apperror.IsDependencyUnavailable(err), err.Error())

	assert.Equal(t, types.Quantity(3), f.remaining(t, newer), "first deduction undone")
	assert.Equal(t, types.Quantity(10), f.remaining(t, older))
	assert.Zero(t, f.saleCount(t))
	assert.Equal(t, 1, f.observer.compensated)
}

func TestAllocate_CompensatesTopUpAndSaleOnPublishFailure(t *testing.T) {
	f := newFixture(t)
	existing := f.addBatch(t, acme, 2, 2, "5", 0)
	f.publisher.fail = errors.New("outbox unavailable")

	req := allocate(acme, 5, "9")
	req.TopUp = &allocation.TopUp{Quantity: 3, UnitCost: types.MustMoney("5")}

	_, err := f.engine.Allocate(context.Background(), req)
	assert.True(t, apperror.IsDependencyUnavailable(err))

	assert.Equal(t, 1, f.batchCount(t), "top-up batch removed")
	assert.Equal(t, types.Quantity(2), f.remaining(t, existing))
	assert.Zero(t, f.saleCount(t))

	all, err := f.store.Allocations().ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestAllocate_CompensatesAfterCallerTimeout(t *testing.T) {
	f := newFixture(t)
	older := f.addBatch(t, acme, 10, 10, "5", 0)
	newer := f.addBatch(t, acme, 3, 3, "5", time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.batches.onDecrease = func(call int) error {
		if call == 2 {
			cancel()
			return context.DeadlineExceeded
		}
		return nil
	}

	_, err := f.engine.Allocate(ctx, allocate(acme, 5, "9"))
	assert.True(t, apperror.IsDependencyUnavailable(err))
	assert.Equal(t, types.Quantity(3), f.remaining(t, newer))
	assert.Equal(t, types.Quantity(10), f.remaining(t, older))
	assert.Equal(t, 1, f.batches.increaseCalls, "one compensating increase")
}

func TestAllocate_FailedCompensationIsInconsistent(t *testing.T) {
	f := newFixture(t)
	f.addBatch(t, acme, 10, 10, "5", 0)
	newer := f.addBatch(t, acme, 3, 3, "5", time.Hour)

	f.batches.onDecrease = func(call int) error {
		if call == 2 {
			return errors.New("write timeout")
		}
		return nil
	}
	f.batches.onIncrease = func(int) error { return errors.New("store down") }

	_, err := f.engine.Allocate(context.Background(), allocate(acme, 5, "9"))
	require.Error(t, err)
	assert.True(t, apperror.IsInconsistentState(err), err.Error())

	assert.Equal(t, types.Quantity(0), f.remaining(t, newer), "deduction could not be undone")
	assert.Equal(t, 1, f.observer.inconsistent)
	require.Len(t, f.incidents.incidents, 1)

	incident := f.incidents.incidents[0]
	assert.Equal(t, allocation.OpAllocate, incident.Operation)
	assert.Equal(t, []string{acme.String()}, incident.Keys)
	require.Len(t, incident.Steps, 1)
	assert.False(t, incident.Steps[0].Undone)
}

func TestReverse_CompensatesFailedRestore(t *testing.T) {
	f := newFixture(t, allocation.WithReversalPolicy(allocation.ReversalDerived))
	a := f.addBatch(t, acme, 10, 7, "5", 0)
	b := f.addBatch(t, acme, 10, 7, "5", time.Hour)

	sale := &sales.Sale{Brand: "Acme", Model: "X1", Quantity: 5, UnitPrice: types.MustMoney("9"), Date: day}
	require.NoError(t, f.store.Sales().Create(context.Background(), sale))

	f.batches.onIncrease = func(call int) error {
		if call == 2 {
			return errors.New("connection refused")
		}
		return nil
	}

	_, err := f.engine.Reverse(context.Background(), allocation.ReverseRequest{SaleID: sale.ID})
	assert.True(t, apperror.IsDependencyUnavailable(err))
	assert.Equal(t, types.Quantity(7), f.remaining(t, a))
	assert.Equal(t, types.Quantity(7), f.remaining(t, b))
	assert.Equal(t, 1, f.saleCount(t))
}

func TestAllocate_ConcurrentNeverOversells(t *testing.T) {
	f := newFixture(t)
	b := f.addBatch(t, acme, 50, 50, "5", 0)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		short     int
	)
	for range 80 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Allocate(context.Background(), allocate(acme, 1, "9"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case apperror.IsInsufficientStock(err):
				short++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, succeeded)
	assert.Equal(t, 30, short)
	assert.Equal(t, types.Quantity(0), f.remaining(t, b))
}

type failingLocker struct{}

func (failingLocker) Lock(context.Context, ...string) (func(), error) {
	return nil, errors.New("redis: connection refused")
}

func TestAllocate_LockUnavailable(t *testing.T) {
	f := newFixture(t, allocation.WithLocker(failingLocker{}))
	b := f.addBatch(t, acme, 10, 10, "5", 0)

	_, err := f.engine.Allocate(context.Background(), allocate(acme, 1, "9"))
	assert.True(t, apperror.IsDependencyUnavailable(err))
	assert.Equal(t, types.Quantity(10), f.remaining(t, b))
}

func TestAllocate_HugeBatchesDoNotWrapAvailability(t *testing.T) {
	f := newFixture(t)
	huge := types.Quantity(math.MaxInt64/2 + 1)
	f.addBatch(t, acme, huge, huge, "1", 0)
	newer := f.addBatch(t, acme, huge, huge, "1", time.Hour)

	got, err := f.engine.CheckAvailability(context.Background(), "Acme", "X1", 1)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(math.MaxInt64), got.Available)
	assert.False(t, got.Short())

	res, err := f.engine.Allocate(context.Background(), allocate(acme, 1, "9"))
	require.NoError(t, err)
	require.Len(t, res.Movements, 1)
	assert.Equal(t, huge-1, f.remaining(t, newer))
}

func TestAllocate_RejectsQuantitiesAboveLimit(t *testing.T) {
	f := newFixture(t)
	f.addBatch(t, acme, 5, 5, "5", 0)
	ctx := context.Background()

	_, err := f.engine.Allocate(ctx, allocate(acme, types.MaxQuantity+1, "9"))
	assert.True(t, apperror.IsInvalidQuantity(err))

	req := allocate(acme, 6, "9")
	req.TopUp = &allocation.TopUp{Quantity: math.MaxInt64, UnitCost: types.MustMoney("1")}
	_, err = f.engine.Allocate(ctx, req)
	assert.True(t, apperror.IsInvalidQuantity(err))

	_, err = f.engine.CheckAvailability(ctx, "Acme", "X1", types.MaxQuantity+1)
	assert.True(t, apperror.IsInvalidQuantity(err))

	assert.Equal(t, 1, f.batchCount(t))
	assert.Zero(t, f.saleCount(t))
}

func TestReverse_FailedCompensationNamesSale(t *testing.T) {
	f := newFixture(t, allocation.WithReversalPolicy(allocation.ReversalDerived))
	f.addBatch(t, acme, 10, 7, "5", 0)
	f.addBatch(t, acme, 10, 7, "5", time.Hour)

	sale := &sales.Sale{Brand: "Acme", Model: "X1", Quantity: 5, UnitPrice: types.MustMoney("9"), Date: day}
	require.NoError(t, f.store.Sales().Create(context.Background(), sale))

	f.batches.onIncrease = func(call int) error {
		if call == 2 {
			return errors.New("connection refused")
		}
		return nil
	}
	f.batches.onDecrease = func(int) error { return errors.New("store down") }

	_, err := f.engine.Reverse(context.Background(), allocation.ReverseRequest{SaleID: sale.ID})
	assert.True(t, apperror.IsInconsistentState(err), err.Error())

	require.Len(t, f.incidents.incidents, 1)
	incident := f.incidents.incidents[0]
	assert.Equal(t, allocation.OpReverse, incident.Operation)
	assert.Equal(t, sale.ID.String(), incident.SaleID)
}

// hookLocker records the keys it is asked for and runs before first.
type hookLocker struct {
	allocation.Locker

	mu     sync.Mutex
	keys   [][]string
	before func()
}

func (l *hookLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	l.mu.Lock()
	l.keys = append(l.keys, keys)
	before := l.before
	l.mu.Unlock()
	if before != nil {
		before()
	}
	return l.Locker.Lock(ctx, keys...)
}

func (l *hookLocker) last() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.keys[len(l.keys)-1]
}

func TestReverse_LocksRelabeledFundingBatch(t *testing.T) {
	locker := &hookLocker{Locker: allocation.NewKeyedMutex()}
	f := newFixture(t, allocation.WithLocker(locker))
	b := f.addBatch(t, acme, 10, 10, "5", 0)

	res, err := f.engine.Allocate(context.Background(), allocate(acme, 4, "9"))
	require.NoError(t, err)

	relabeled := b.Clone()
	relabeled.Model = "X2"
	require.NoError(t, f.store.Batches().Update(context.Background(), relabeled))

	_, err = f.engine.Reverse(context.Background(), allocation.ReverseRequest{SaleID: res.Sale.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{acme.String(), other.String()}, locker.last())
	assert.Equal(t, types.Quantity(10), f.remaining(t, b))
}

func TestReverse_SkipsBatchRelabeledOutsideLock(t *testing.T) {
	locker := &hookLocker{Locker: allocation.NewKeyedMutex()}
	f := newFixture(t, allocation.WithLocker(locker))
	older := f.addBatch(t, acme, 10, 6, "5", 0)
	newer := f.addBatch(t, acme, 10, 10, "5", time.Hour)

	res, err := f.engine.Allocate(context.Background(), allocate(acme, 4, "9"))
	require.NoError(t, err)
	require.Equal(t, types.Quantity(6), f.remaining(t, newer))

	// The funding batch moves to another product after the reversal has
	// chosen which keys to lock.
	locker.before = func() {
		moved := newer.Clone()
		moved.Model = other.Model
		moved.RemainingQuantity = 6
		require.NoError(t, f.store.Batches().Update(context.Background(), moved))
	}

	rev, err := f.engine.Reverse(context.Background(), allocation.ReverseRequest{SaleID: res.Sale.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{acme.String()}, locker.last())
	assert.Equal(t, types.Quantity(6), f.remaining(t, newer), "unlocked product is not written")
	assert.Equal(t, types.Quantity(10), f.remaining(t, older))
	assert.Zero(t, rev.Dropped)
}
