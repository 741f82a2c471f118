package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"shopstock/internal/core/id"
	"shopstock/internal/core/types"
	"shopstock/internal/domain/sales"
	"shopstock/internal/domain/stock"
)

type auditedRecord struct {
	sales.AllocationRecord
	Ignored string `db:"-"`
	Note    string `db:"note"`
}

func TestExtractDBColumns_Batch(t *testing.T) {
	cols := ExtractDBColumns[stock.Batch]()

	assert.Equal(t, []string{
		"id", "brand", "model", "initial_quantity", "remaining_quantity",
		"unit_cost", "created_at", "updated_at",
	}, cols)
}

func TestExtractDBColumns_Embedded(t *testing.T) {
	cols := ExtractDBColumns[auditedRecord]()

	assert.Equal(t, []string{"sale_id", "seq", "batch_id", "quantity", "unit_cost", "created_at", "note"}, cols)
}

func TestStructToMap_Skip(t *testing.T) {
	now := time.Now().UTC()
	sale := &sales.Sale{
		ID:        id.New(),
		Brand:     "Acme",
		Model:     "X1",
		UnitPrice: types.NewMoneyFromInt(10),
		Quantity:  3,
		Total:     types.NewMoneyFromInt(30),
		Date:      now,
		CreatedAt: now,
	}

	m := StructToMap(sale, "id", "created_at")

	assert.NotContains(t, m, "id")
	assert.NotContains(t, m, "created_at")
	assert.Equal(t, "Acme", m["brand"])
	assert.Equal(t, types.Quantity(3), m["quantity"])
	assert.Equal(t, now, m["sale_date"])
}

func TestStructToMap_Embedded(t *testing.T) {
	rec := auditedRecord{
		AllocationRecord: sales.AllocationRecord{Seq: 2, Quantity: 4},
		Ignored:          "x",
		Note:             "n",
	}

	m := StructToMap(rec)

	assert.Equal(t, 2, m["seq"])
	assert.Equal(t, "n", m["note"])
	assert.NotContains(t, m, "-")
	assert.Len(t, m, 7)
}
