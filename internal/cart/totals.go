package cart

import (
	"cmp"
	"slices"

	"github.com/Skotchmaster/checkout/internal/models"
	"github.com/shopspring/decimal"
)

type Totals struct {
	ItemCount int             `json:"item_count"`
	Amount    decimal.Decimal `json:"amount"`
}

// ComputeTotals folds quantity and quantity*unit price over lines. Empty input gives zero totals.
func ComputeTotals(lines []models.CartLine) Totals {
	t := Totals{Amount: decimal.Zero}
	for _, l := range lines {
		q := int64(l.Quantity)
		t.ItemCount += int(q)
		t.Amount = t.Amount.Add(l.Product.UnitPrice.Mul(decimal.NewFromInt(q)))
	}
	return t
}

// SortLines orders lines by id ascending, i.e. by creation order.
func SortLines(lines []models.CartLine) {
	slices.SortStableFunc(lines, func(a, b models.CartLine) int {
		return cmp.Compare(a.ID, b.ID)
	})
}
