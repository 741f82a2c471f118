package inventory_repo

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"shopstock/internal/core/id"
	"shopstock/internal/domain/sales"
	"shopstock/internal/infrastructure/storage/postgres"
)

const allocationsTable = "sale_allocations"

// listChunkSize keeps IN lists well below the postgres parameter limit.
const listChunkSize = 1000

// AllocationRepo implements sales.AllocationRepository.
type AllocationRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
	columns []string
	now     func() time.Time
}

var _ sales.AllocationRepository = (*AllocationRepo)(nil)

// NewAllocationRepo creates a new allocation record repository.
func NewAllocationRepo(txm *postgres.TxManager) *AllocationRepo {
	return &AllocationRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns: postgres.ExtractDBColumns[sales.AllocationRecord](),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *AllocationRepo) ListBySale(ctx context.Context, saleID id.ID) ([]sales.AllocationRecord, error) {
	return r.selectRecords(ctx, squirrel.Eq{"sale_id": saleID})
}

func (r *AllocationRepo) ListBySales(ctx context.Context, saleIDs []id.ID) (map[id.ID][]sales.AllocationRecord, error) {
	out := make(map[id.ID][]sales.AllocationRecord, len(saleIDs))
	for chunk := range slices.Chunk(saleIDs, listChunkSize) {
		records, err := r.selectRecords(ctx, squirrel.Eq{"sale_id": chunk})
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			out[rec.SaleID] = append(out[rec.SaleID], rec)
		}
	}
	return out, nil
}

func (r *AllocationRepo) ListAll(ctx context.Context) ([]sales.AllocationRecord, error) {
	return r.selectRecords(ctx, nil)
}

func (r *AllocationRepo) selectRecords(ctx context.Context, where squirrel.Sqlizer) ([]sales.AllocationRecord, error) {
	q := r.builder.Select(r.columns...).From(allocationsTable).OrderBy("sale_id", "seq")
	if where != nil {
		q = q.Where(where)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var out []sales.AllocationRecord
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select allocations: %w", err)
	}
	return out, nil
}

// Replace deletes the sale's records and inserts the new set in one statement.
// It joins the caller's transaction or opens its own.
func (r *AllocationRepo) Replace(ctx context.Context, saleID id.ID, records []sales.AllocationRecord) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.DeleteBySale(ctx, saleID); err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}

		q := r.builder.Insert(allocationsTable).
			Columns("sale_id", "seq", "batch_id", "quantity", "unit_cost", "created_at")
		now := r.now()
		for i, rec := range records {
			createdAt := rec.CreatedAt
			if createdAt.IsZero() {
				createdAt = now
			}
			q = q.Values(saleID, i+1, rec.BatchID, rec.Quantity, rec.UnitCost, createdAt)
		}

		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert allocations: %w", err)
		}
		return nil
	})
}

func (r *AllocationRepo) DeleteBySale(ctx context.Context, saleID id.ID) error {
	sql, args, err := r.builder.Delete(allocationsTable).Where(squirrel.Eq{"sale_id": saleID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete allocations: %w", err)
	}
	return nil
}
