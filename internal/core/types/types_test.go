package types

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantity_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Quantity
		wantErr bool
	}{
		{name: "number", input: `4`, want: 4},
		{name: "string", input: `"12"`, want: 12},
		{name: "trailing zero fraction", input: `4.00`, want: 4},
		{name: "null", input: `null`, want: 0},
		{name: "negative", input: `-3`, want: -3},
		{name: "fraction", input: `4.5`, wantErr: true},
		{name: "garbage", input: `"abc"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q Quantity
			err := json.Unmarshal([]byte(tt.input), &q)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, q)
		})
	}
}

func TestMul(t *testing.T) {
	total := Mul(MustMoney("8"), 4)
	assert.True(t, total.Equal(MustMoney("32")), "got %s", total)

	total = Mul(MustMoney("19.99"), 3)
	assert.True(t, total.Equal(MustMoney("59.97")), "got %s", total)
}

func TestQuantity_Min(t *testing.T) {
	assert.Equal(t, Quantity(3), Quantity(3).Min(10))
	assert.Equal(t, Quantity(2), Quantity(7).Min(2))
}

func TestQuantity_AddSaturates(t *testing.T) {
	assert.Equal(t, Quantity(7), Quantity(3).Add(4))
	assert.Equal(t, Quantity(math.MaxInt64), Quantity(math.MaxInt64/2+1).Add(math.MaxInt64/2+1))
	assert.Equal(t, Quantity(math.MinInt64), Quantity(math.MinInt64+1).Add(-2))
}
