package inventory_repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"shopstock/internal/core/apperror"
	"shopstock/internal/core/id"
	"shopstock/internal/domain/sales"
	"shopstock/internal/infrastructure/storage/postgres"
)

const salesTable = "sales"

// SaleRepo implements sales.Repository.
type SaleRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
	columns []string
	now     func() time.Time
}

var _ sales.Repository = (*SaleRepo)(nil)

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txm *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns: postgres.ExtractDBColumns[sales.Sale](),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *SaleRepo) List(ctx context.Context, filter sales.Filter) ([]*sales.Sale, error) {
	q := r.builder.Select(r.columns...).From(salesTable).OrderBy("sale_date", "created_at", "id")
	if filter.Brand != "" {
		q = q.Where(squirrel.Eq{"brand": filter.Brand})
	}
	if filter.Model != "" {
		q = q.Where(squirrel.Eq{"model": filter.Model})
	}
	if filter.From != nil {
		q = q.Where(squirrel.GtOrEq{"sale_date": sales.DateOf(*filter.From)})
	}
	if filter.To != nil {
		q = q.Where(squirrel.LtOrEq{"sale_date": sales.DateOf(*filter.To)})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var out []*sales.Sale
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select sales: %w", err)
	}
	for _, s := range out {
		s.Date = sales.DateOf(s.Date)
	}
	return out, nil
}

func (r *SaleRepo) Get(ctx context.Context, saleID id.ID) (*sales.Sale, error) {
	sql, args, err := r.builder.Select(r.columns...).From(salesTable).
		Where(squirrel.Eq{"id": saleID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var s sales.Sale
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sale", saleID)
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	s.Date = sales.DateOf(s.Date)
	return &s, nil
}

func (r *SaleRepo) Create(ctx context.Context, sale *sales.Sale) error {
	if id.IsNil(sale.ID) {
		sale.ID = id.New()
	}
	now := r.now()
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = now
	}
	sale.UpdatedAt = now
	sale.Date = sales.DateOf(sale.Date)

	sql, args, err := r.builder.Insert(salesTable).SetMap(postgres.StructToMap(sale)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewConflict("sale already exists").WithDetail("id", sale.ID)
		}
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

func (r *SaleRepo) Update(ctx context.Context, sale *sales.Sale) error {
	sale.UpdatedAt = r.now()
	sale.Date = sales.DateOf(sale.Date)

	sql, args, err := r.builder.Update(salesTable).
		SetMap(postgres.StructToMap(sale, "id", "created_at")).
		Where(squirrel.Eq{"id": sale.ID}).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&sale.CreatedAt); err != nil {
		if pgxscan.NotFound(err) {
			return apperror.NewNotFound("sale", sale.ID)
		}
		return fmt.Errorf("update sale: %w", err)
	}
	return nil
}

func (r *SaleRepo) Delete(ctx context.Context, saleID id.ID) error {
	sql, args, err := r.builder.Delete(salesTable).Where(squirrel.Eq{"id": saleID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("sale", saleID)
	}
	return nil
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
