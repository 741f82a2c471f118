package stock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopstock/internal/core/apperror"
	"shopstock/internal/core/types"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		remaining types.Quantity
		want      Status
	}{
		{remaining: 0, want: StatusOutOfStock},
		{remaining: 1, want: StatusLowStock},
		{remaining: 6, want: StatusLowStock},
		{remaining: 7, want: StatusInStock},
		{remaining: 120, want: StatusInStock},
	}

	for _, tt := range tests {
		t.Run(tt.remaining.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.remaining))
		})
	}
}

func TestBatch_Validate(t *testing.T) {
	valid := func() *Batch {
		return &Batch{Brand: "Acme", Model: "X1", InitialQuantity: 10, RemainingQuantity: 4, UnitCost: types.MustMoney("2.50")}
	}

	require.NoError(t, valid().Validate())

	b := valid()
	b.RemainingQuantity = 11
	assert.True(t, apperror.IsInvalidQuantity(b.Validate()))

	b = valid()
	b.RemainingQuantity = -1
	assert.True(t, apperror.IsInvalidQuantity(b.Validate()))

	b = valid()
	b.Model = ""
	assert.True(t, apperror.HasCode(b.Validate(), apperror.CodeValidation))

	b = valid()
	b.UnitCost = types.MustMoney("-1")
	assert.Error(t, b.Validate())
}

func TestBatch_Room(t *testing.T) {
	b := &Batch{InitialQuantity: 10, RemainingQuantity: 7}
	assert.Equal(t, types.Quantity(3), b.Room())
}

func TestProductKey(t *testing.T) {
	k := NewProductKey("  Acme ", "X1 ")
	assert.Equal(t, ProductKey{Brand: "Acme", Model: "X1"}, k)
	assert.Equal(t, "Acme|X1", k.String())
	assert.Error(t, NewProductKey("", "X1").Validate())
}

func TestValue(t *testing.T) {
	batches := []*Batch{
		{InitialQuantity: 5, RemainingQuantity: 5, UnitCost: types.MustMoney("3")},
		{InitialQuantity: 10, RemainingQuantity: 2, UnitCost: types.MustMoney("1.5")},
	}

	v := Value(batches)
	assert.Equal(t, 2, v.Batches)
	assert.Equal(t, types.Quantity(15), v.Units)
	assert.Equal(t, types.Quantity(7), v.RemainingUnits)
	assert.True(t, v.GrandTotal.Equal(types.MustMoney("30")), v.GrandTotal.String())
	assert.True(t, v.RemainingValue.Equal(types.MustMoney("18")), v.RemainingValue.String())
}

func TestFilter_Match(t *testing.T) {
	b := &Batch{Brand: "Acme", Model: "X1", InitialQuantity: 3, RemainingQuantity: 3}
	assert.True(t, Filter{}.Match(b))
	assert.True(t, Filter{Brand: "Acme", Status: StatusLowStock}.Match(b))
	assert.False(t, Filter{Model: "X2"}.Match(b))
	assert.False(t, Filter{Status: StatusInStock}.Match(b))
}
