package cart

import (
	"github.com/shopspring/decimal"
)

// Line is a single priced line in a cart snapshot. UnitPrice is the product
// price captured at the time the line was added, not the current catalog price.
type Line struct {
	ProductID string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Total returns unit price times quantity for this line.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Snapshot is an immutable view of a cart's lines taken just before pricing.
// Construct one with NewSnapshot; the pricing engine never mutates it.
type Snapshot struct {
	lines []Line
}

// NewSnapshot copies the given lines into an immutable snapshot.
func NewSnapshot(lines []Line) Snapshot {
	cp := make([]Line, len(lines))
	copy(cp, lines)
	return Snapshot{lines: cp}
}

// Lines returns a copy of the snapshot's lines.
func (s Snapshot) Lines() []Line {
	cp := make([]Line, len(s.lines))
	copy(cp, s.lines)
	return cp
}

// Empty reports whether the snapshot has no lines.
func (s Snapshot) Empty() bool {
	return len(s.lines) == 0
}

// Subtotal returns the sum of line totals across the whole snapshot,
// rounded to 2 decimal places.
func (s Snapshot) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range s.lines {
		sum = sum.Add(l.Total())
	}
	return sum.Round(2)
}

// MatchingSubtotal returns the subtotal of lines whose product appears in
// productIDs. An empty set means no restriction, so the full subtotal is
// returned.
func (s Snapshot) MatchingSubtotal(productIDs []string) decimal.Decimal {
	if len(productIDs) == 0 {
		return s.Subtotal()
	}

	allowed := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		allowed[id] = struct{}{}
	}

	sum := decimal.Zero
	for _, l := range s.lines {
		if _, ok := allowed[l.ProductID]; ok {
			sum = sum.Add(l.Total())
		}
	}
	return sum.Round(2)
}
