// Package inventory_repo provides PostgreSQL implementations of the batch
// store, the sale ledger and the allocation records.
package inventory_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"shopstock/internal/core/apperror"
	"shopstock/internal/core/id"
	"shopstock/internal/core/types"
	"shopstock/internal/domain/stock"
	"shopstock/internal/infrastructure/storage/postgres"
)

const batchesTable = "stock_batches"

const pgUniqueViolation = "23505"

// BatchRepo implements stock.Repository.
type BatchRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
	columns []string
	now     func() time.Time
}

var _ stock.Repository = (*BatchRepo)(nil)

// NewBatchRepo creates a new batch repository.
func NewBatchRepo(txm *postgres.TxManager) *BatchRepo {
	return &BatchRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns: postgres.ExtractDBColumns[stock.Batch](),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *BatchRepo) List(ctx context.Context, filter stock.Filter) ([]*stock.Batch, error) {
	q := r.builder.Select(r.columns...).From(batchesTable).OrderBy("created_at", "id")
	if filter.Brand != "" {
		q = q.Where(squirrel.Eq{"brand": filter.Brand})
	}
	if filter.Model != "" {
		q = q.Where(squirrel.Eq{"model": filter.Model})
	}
	switch filter.Status {
	case stock.StatusInStock:
		q = q.Where(squirrel.Gt{"remaining_quantity": stock.LowStockThreshold})
	case stock.StatusLowStock:
		q = q.Where(squirrel.Gt{"remaining_quantity": 0}).
			Where(squirrel.LtOrEq{"remaining_quantity": stock.LowStockThreshold})
	case stock.StatusOutOfStock:
		q = q.Where(squirrel.Eq{"remaining_quantity": 0})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var out []*stock.Batch
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select batches: %w", err)
	}
	return out, nil
}

func (r *BatchRepo) ListByProduct(ctx context.Context, key stock.ProductKey) ([]*stock.Batch, error) {
	return r.List(ctx, stock.Filter{Brand: key.Brand, Model: key.Model})
}

func (r *BatchRepo) Get(ctx context.Context, batchID id.ID) (*stock.Batch, error) {
	sql, args, err := r.builder.Select(r.columns...).From(batchesTable).
		Where(squirrel.Eq{"id": batchID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var b stock.Batch
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &b, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("batch", batchID)
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return &b, nil
}

func (r *BatchRepo) Create(ctx context.Context, batch *stock.Batch) error {
	if err := batch.Validate(); err != nil {
		return err
	}
	if id.IsNil(batch.ID) {
		batch.ID = id.New()
	}
	now := r.now()
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = now
	}
	batch.UpdatedAt = now

	sql, args, err := r.builder.Insert(batchesTable).SetMap(postgres.StructToMap(batch)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewConflict("batch already exists").WithDetail("id", batch.ID)
		}
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

func (r *BatchRepo) Update(ctx context.Context, batch *stock.Batch) error {
	sql, args, err := r.builder.Update(batchesTable).
		Set("brand", batch.Brand).
		Set("model", batch.Model).
		Set("unit_cost", batch.UnitCost).
		Set("updated_at", r.now()).
		Where(squirrel.Eq{"id": batch.ID}).
		Suffix(r.returning()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	var updated stock.Batch
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &updated, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return apperror.NewNotFound("batch", batch.ID)
		}
		return fmt.Errorf("update batch: %w", err)
	}
	*batch = updated
	return nil
}

func (r *BatchRepo) Delete(ctx context.Context, batchID id.ID) error {
	sql, args, err := r.builder.Delete(batchesTable).Where(squirrel.Eq{"id": batchID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("batch", batchID)
	}
	return nil
}

// DecreaseRemaining is a single guarded UPDATE; the row is only touched when
// enough stock is left.
func (r *BatchRepo) DecreaseRemaining(ctx context.Context, batchID id.ID, amount types.Quantity) (*stock.Batch, error) {
	return r.adjust(ctx, batchID, amount,
		squirrel.Expr("remaining_quantity - ?", amount),
		squirrel.GtOrEq{"remaining_quantity": amount})
}

// IncreaseRemaining is a single guarded UPDATE that never lifts remaining
// above initial.
func (r *BatchRepo) IncreaseRemaining(ctx context.Context, batchID id.ID, amount types.Quantity) (*stock.Batch, error) {
	return r.adjust(ctx, batchID, amount,
		squirrel.Expr("remaining_quantity + ?", amount),
		squirrel.Expr("remaining_quantity + ? <= initial_quantity", amount))
}

func (r *BatchRepo) adjust(ctx context.Context, batchID id.ID, amount types.Quantity, next squirrel.Sqlizer, guard squirrel.Sqlizer) (*stock.Batch, error) {
	if !amount.IsPositive() {
		return nil, apperror.NewInvalidQuantity("amount must be positive").WithDetail("amount", amount)
	}

	sql, args, err := r.builder.Update(batchesTable).
		Set("remaining_quantity", next).
		Set("updated_at", r.now()).
		Where(squirrel.Eq{"id": batchID}).
		Where(guard).
		Suffix(r.returning()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update: %w", err)
	}

	var b stock.Batch
	err = pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &b, sql, args...)
	if err == nil {
		return &b, nil
	}
	if !pgxscan.NotFound(err) {
		return nil, fmt.Errorf("adjust batch remaining: %w", err)
	}

	// Zero rows: either the batch is gone or the guard rejected the change.
	current, getErr := r.Get(ctx, batchID)
	if getErr != nil {
		return nil, getErr
	}
	return nil, apperror.NewInvalidQuantity("remaining quantity would leave [0, initial]").
		WithDetail("batch_id", batchID).
		WithDetail("remaining", current.RemainingQuantity).
		WithDetail("initial", current.InitialQuantity).
		WithDetail("amount", amount)
}

func (r *BatchRepo) returning() string {
	return "RETURNING " + joinColumns(r.columns)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
