// Package strategy defines the pluggable revenue and bonus policies used by
// the aggregation engine.
//
// Both policies are single-method interfaces so callers can substitute their
// own discount or reward rules without touching the engine:
//   - RevenueStrategy computes the net revenue of one line item
//   - BonusStrategy computes a seller's bonus from its rank position
//
// All implementations must be pure: no side effects, same output for the same
// input. The engine calls them from several goroutines in parallel mode.
package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/atmx/sales-analytics/internal/model"
)

// RevenueStrategy computes the net revenue of one line item after discount.
// The product is passed for extensibility; the default policy ignores it.
type RevenueStrategy interface {
	Revenue(item model.LineItem, product model.Product) decimal.Decimal
}

// SellerStat is the finalized, unrounded view of a seller handed to a
// BonusStrategy.
type SellerStat struct {
	ID         string
	Name       string
	Revenue    decimal.Decimal
	Profit     decimal.Decimal
	SalesCount int
}

// BonusStrategy computes a seller's bonus given its zero-based rank index
// (0 = highest profit) and the total number of ranked sellers.
type BonusStrategy interface {
	Bonus(index, total int, seller SellerStat) decimal.Decimal
}

// RevenueFunc adapts an ordinary function to RevenueStrategy.
type RevenueFunc func(item model.LineItem, product model.Product) decimal.Decimal

// Revenue calls f(item, product).
func (f RevenueFunc) Revenue(item model.LineItem, product model.Product) decimal.Decimal {
	return f(item, product)
}

// BonusFunc adapts an ordinary function to BonusStrategy.
type BonusFunc func(index, total int, seller SellerStat) decimal.Decimal

// Bonus calls f(index, total, seller).
func (f BonusFunc) Bonus(index, total int, seller SellerStat) decimal.Decimal {
	return f(index, total, seller)
}

var (
	one = decimal.NewFromInt(1)

	// Bonus rates of the default rank policy.
	TopRate    = decimal.New(15, -2)
	PodiumRate = decimal.New(10, -2)
	BaseRate   = decimal.New(5, -2)
)

// SimpleRevenue is the default revenue policy:
//
//	revenue = sale_price * quantity * (1 - discount/100)
//
// A discount of 0 leaves the line untouched, 100 reduces it to zero.
type SimpleRevenue struct{}

// Revenue implements RevenueStrategy.
func (SimpleRevenue) Revenue(item model.LineItem, _ model.Product) decimal.Decimal {
	factor := one.Sub(item.Discount.Shift(-2))
	return item.SalePrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Mul(factor)
}

// NoDiscountRevenue ignores the line discount: sale_price * quantity.
// Useful to measure how much margin discounts cost a seller.
type NoDiscountRevenue struct{}

// Revenue implements RevenueStrategy.
func (NoDiscountRevenue) Revenue(item model.LineItem, _ model.Product) decimal.Decimal {
	return item.SalePrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// ProfitRankBonus is the default bonus policy. Branches are evaluated in
// this exact order, so with three or fewer sellers the podium rules win
// over the last-place rule:
//
//	index == 0             → 15% of profit
//	index == 1 || index == 2 → 10% of profit
//	index == total-1       → 0
//	otherwise              → 5% of profit
type ProfitRankBonus struct{}

// Bonus implements BonusStrategy.
func (ProfitRankBonus) Bonus(index, total int, seller SellerStat) decimal.Decimal {
	switch {
	case index == 0:
		return seller.Profit.Mul(TopRate)
	case index == 1 || index == 2:
		return seller.Profit.Mul(PodiumRate)
	case index == total-1:
		return decimal.Zero
	default:
		return seller.Profit.Mul(BaseRate)
	}
}

// FlatRateBonus pays every seller the same share of its profit regardless
// of rank.
type FlatRateBonus struct {
	Rate decimal.Decimal
}

// Bonus implements BonusStrategy.
func (b FlatRateBonus) Bonus(_, _ int, seller SellerStat) decimal.Decimal {
	return seller.Profit.Mul(b.Rate)
}
