package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSnapshotSubtotal(t *testing.T) {
	tests := []struct {
		name  string
		lines []Line
		want  decimal.Decimal
	}{
		{
			name: "empty",
			want: decimal.Zero,
		},
		{
			name: "single line",
			lines: []Line{
				{ProductID: "p1", UnitPrice: dec("19.99"), Quantity: 2},
			},
			want: dec("39.98"),
		},
		{
			name: "multiple lines",
			lines: []Line{
				{ProductID: "p1", UnitPrice: dec("10.00"), Quantity: 1},
				{ProductID: "p2", UnitPrice: dec("0.99"), Quantity: 3},
			},
			want: dec("12.97"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := NewSnapshot(tt.lines)
			got := snap.Subtotal()
			assert.True(t, tt.want.Equal(got), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestSnapshotMatchingSubtotal(t *testing.T) {
	snap := NewSnapshot([]Line{
		{ProductID: "p1", UnitPrice: dec("10.00"), Quantity: 2},
		{ProductID: "p2", UnitPrice: dec("5.00"), Quantity: 1},
		{ProductID: "p3", UnitPrice: dec("100.00"), Quantity: 1},
	})

	tests := []struct {
		name string
		ids  []string
		want decimal.Decimal
	}{
		{
			name: "empty set means whole cart",
			want: dec("125.00"),
		},
		{
			name: "subset",
			ids:  []string{"p1", "p2"},
			want: dec("25.00"),
		},
		{
			name: "no overlap",
			ids:  []string{"p9"},
			want: decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := snap.MatchingSubtotal(tt.ids)
			assert.True(t, tt.want.Equal(got), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestSnapshotImmutable(t *testing.T) {
	src := []Line{{ProductID: "p1", UnitPrice: dec("10.00"), Quantity: 1}}
	snap := NewSnapshot(src)

	src[0].Quantity = 99

	assert.Equal(t, 1, snap.Lines()[0].Quantity)
	assert.True(t, dec("10.00").Equal(snap.Subtotal()))
}

func TestCartSnapshot(t *testing.T) {
	c := &Cart{
		ID:    "c1",
		Token: "tok",
		Items: []Item{
			{ID: 1, ProductID: "p1", Quantity: 2, UnitPrice: dec("4.50")},
		},
	}

	snap := c.Snapshot()

	assert.False(t, snap.Empty())
	assert.True(t, dec("9.00").Equal(snap.Subtotal()))
}
