// Package valuation holds the weighted-average-cost and profit arithmetic shared by the
// purchase, sale and ledger services. Nothing here touches the database.
package valuation

import (
	"errors"

	"github.com/shopspring/decimal"
)

// CostScale is the number of decimal places stored for unit costs.
const CostScale = 4

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidUnitCost = errors.New("unit cost cannot be negative")
)

// Lot is a quantity received at a unit cost.
type Lot struct {
	Quantity int64
	UnitCost decimal.Decimal
}

// Line is the priced result of selling a quantity at a price against a cost snapshot.
type Line struct {
	Subtotal decimal.Decimal
	Cost     decimal.Decimal
	Profit   decimal.Decimal
}

// AddStock folds a received lot into the running average:
//
//	newCost = (oldQty*oldCost + addedQty*addedCost) / (oldQty + addedQty)
//
// When the combined quantity is zero the added cost is used as is.
func AddStock(oldQty int64, oldCost decimal.Decimal, added Lot) (int64, decimal.Decimal, error) {
	if added.Quantity <= 0 {
		return 0, decimal.Zero, ErrInvalidQuantity
	}
	if added.UnitCost.IsNegative() {
		return 0, decimal.Zero, ErrInvalidUnitCost
	}

	newQty := oldQty + added.Quantity
	if newQty == 0 {
		return newQty, added.UnitCost, nil
	}

	oldValue := decimal.NewFromInt(oldQty).Mul(oldCost)
	addedValue := decimal.NewFromInt(added.Quantity).Mul(added.UnitCost)
	newCost := oldValue.Add(addedValue).Div(decimal.NewFromInt(newQty)).Round(CostScale)
	return newQty, newCost, nil
}

// RemoveStock takes quantity out of stock, flooring at zero.
func RemoveStock(stock, removed int64) int64 {
	if removed >= stock {
		return 0
	}
	return stock - removed
}

// AverageCost re-derives the average from scratch over the given lots. It returns zero
// when there is nothing left to average.
func AverageCost(lots []Lot) decimal.Decimal {
	var qty int64
	value := decimal.Zero
	for _, lot := range lots {
		qty += lot.Quantity
		value = value.Add(decimal.NewFromInt(lot.Quantity).Mul(lot.UnitCost))
	}
	if qty <= 0 {
		return decimal.Zero
	}
	return value.Div(decimal.NewFromInt(qty)).Round(CostScale)
}

// PriceLine computes subtotal, cost and profit for qty units sold at unitPrice with the
// product's average cost at the time of sale.
func PriceLine(qty int64, unitPrice, unitCost decimal.Decimal) Line {
	q := decimal.NewFromInt(qty)
	subtotal := q.Mul(unitPrice)
	cost := q.Mul(unitCost)
	return Line{
		Subtotal: subtotal,
		Cost:     cost,
		Profit:   subtotal.Sub(cost),
	}
}

// Balance is what the trader owes the business; negative means the business holds credit.
func Balance(totalSales, totalPayments decimal.Decimal) decimal.Decimal {
	return totalSales.Sub(totalPayments)
}
