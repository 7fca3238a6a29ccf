// Package analytics implements the sales aggregation engine: it joins
// purchase records against seller and product reference data, accumulates
// per-seller revenue, profit and sales counts, ranks sellers by profit and
// derives a bonus and a top-products list for each of them.
//
// The engine is a pure batch computation. It performs no I/O, holds no
// package state and never returns a partial result: any validation or
// referential-integrity failure aborts the whole run.
//
// Revenue is accumulated from the receipt-level total_amount while profit is
// accumulated from the per-line RevenueStrategy output minus cost. The two are
// not reconciled and may diverge when total_amount differs from the sum of
// discounted line revenues.
package analytics

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/atmx/sales-analytics/internal/model"
	"github.com/atmx/sales-analytics/internal/strategy"
)

var (
	// ErrInvalidInput is the parent of every validation failure.
	ErrInvalidInput = errors.New("analytics: invalid input")

	ErrNilDataset        = fmt.Errorf("%w: dataset is nil", ErrInvalidInput)
	ErrNoSellers         = fmt.Errorf("%w: sellers is empty", ErrInvalidInput)
	ErrNoProducts        = fmt.Errorf("%w: products is empty", ErrInvalidInput)
	ErrNoPurchaseRecords = fmt.Errorf("%w: purchase_records is empty", ErrInvalidInput)
	ErrMissingStrategy   = fmt.Errorf("%w: revenue and bonus strategies are required", ErrInvalidInput)

	// ErrReferentialIntegrity is the parent of every failed key lookup.
	ErrReferentialIntegrity = errors.New("analytics: referential integrity violation")

	ErrUnknownSeller  = fmt.Errorf("%w: unknown seller", ErrReferentialIntegrity)
	ErrUnknownProduct = fmt.Errorf("%w: unknown product", ErrReferentialIntegrity)
)

// MaxTopProducts caps the length of ReportRow.TopProducts.
const MaxTopProducts = 10

// MoneyScale is the number of decimal places of every monetary output field.
// Rounding is half away from zero (decimal.Round).
const MoneyScale int32 = 2

// Options carries the two pluggable strategies of a run.
type Options struct {
	Revenue strategy.RevenueStrategy
	Bonus   strategy.BonusStrategy
}

// DefaultOptions returns SimpleRevenue and ProfitRankBonus.
func DefaultOptions() Options {
	return Options{
		Revenue: strategy.SimpleRevenue{},
		Bonus:   strategy.ProfitRankBonus{},
	}
}

// Analyze computes one ReportRow per input seller, ordered by profit
// descending. Sellers with equal profit keep their input order.
func Analyze(data *model.Dataset, opts Options) ([]model.ReportRow, error) {
	if err := validate(data, opts); err != nil {
		return nil, err
	}

	idx := buildIndex(data)
	if err := accumulate(data.PurchaseRecords, idx, opts.Revenue, nil); err != nil {
		return nil, err
	}
	return finalize(rank(idx.stats), opts.Bonus), nil
}

// Summarize totals a set of report rows.
func Summarize(rows []model.ReportRow) model.ReportSummary {
	s := model.ReportSummary{Sellers: len(rows)}
	for _, r := range rows {
		s.TotalSales += r.SalesCount
		s.TotalRevenue = s.TotalRevenue.Add(r.Revenue)
		s.TotalProfit = s.TotalProfit.Add(r.Profit)
		s.TotalBonus = s.TotalBonus.Add(r.Bonus)
	}
	return s
}

func validate(data *model.Dataset, opts Options) error {
	switch {
	case data == nil:
		return ErrNilDataset
	case len(data.Sellers) == 0:
		return ErrNoSellers
	case len(data.Products) == 0:
		return ErrNoProducts
	case len(data.PurchaseRecords) == 0:
		return ErrNoPurchaseRecords
	case missing(opts.Revenue) || missing(opts.Bonus):
		return ErrMissingStrategy
	}
	return nil
}

// missing reports whether s is absent, including typed nils such as a nil
// *T or a nil RevenueFunc held in the interface.
func missing(s any) bool {
	if s == nil {
		return true
	}
	v := reflect.ValueOf(s)
	switch v.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// sellerStat is the mutable in-progress accumulator of one seller.
type sellerStat struct {
	id         string
	name       string
	position   int // index in data.Sellers
	revenue    decimal.Decimal
	profit     decimal.Decimal
	salesCount int
	sold       map[string]int
	skuOrder   []string // first-seen order of sold keys
}

func (s *sellerStat) addSale(sku string) {
	if _, ok := s.sold[sku]; !ok {
		s.skuOrder = append(s.skuOrder, sku)
	}
	s.sold[sku]++
}

// index holds the lookup structures built once before accumulation.
type index struct {
	stats    []*sellerStat // input order
	sellers  map[string]*sellerStat
	products map[string]model.Product
}

func buildIndex(data *model.Dataset) *index {
	idx := &index{
		stats:    make([]*sellerStat, len(data.Sellers)),
		sellers:  make(map[string]*sellerStat, len(data.Sellers)),
		products: make(map[string]model.Product, len(data.Products)),
	}
	for i, s := range data.Sellers {
		st := &sellerStat{
			id:       s.ID,
			name:     s.DisplayName(),
			position: i,
			sold:     make(map[string]int),
		}
		idx.stats[i] = st
		idx.sellers[s.ID] = st
	}
	// Last write wins on duplicate SKUs.
	for _, p := range data.Products {
		idx.products[p.SKU] = p
	}
	return idx
}

// accumulate runs the join pass in record order. When owns is non-nil only
// records of sellers it accepts are applied; lookups are still checked for
// every record.
func accumulate(records []model.PurchaseRecord, idx *index, revenue strategy.RevenueStrategy, owns func(*sellerStat) bool) error {
	for i, rec := range records {
		st, ok := idx.sellers[rec.SellerID]
		if !ok {
			return unknownSeller(i, rec)
		}
		apply := owns == nil || owns(st)
		if apply {
			st.salesCount++
			st.revenue = st.revenue.Add(rec.TotalAmount)
		}

		for _, item := range rec.Items {
			product, ok := idx.products[item.SKU]
			if !ok {
				return unknownProduct(i, rec, item)
			}
			if !apply {
				continue
			}
			cost := product.PurchasePrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
			st.profit = st.profit.Add(revenue.Revenue(item, product).Sub(cost))
			// Counts line occurrences, not units.
			st.addSale(item.SKU)
		}
	}
	return nil
}

func unknownSeller(i int, rec model.PurchaseRecord) error {
	return fmt.Errorf("%w: seller_id %q in purchase record %d%s",
		ErrUnknownSeller, rec.SellerID, i, receiptSuffix(rec))
}

func unknownProduct(i int, rec model.PurchaseRecord, item model.LineItem) error {
	return fmt.Errorf("%w: sku %q in purchase record %d%s",
		ErrUnknownProduct, item.SKU, i, receiptSuffix(rec))
}

func receiptSuffix(rec model.PurchaseRecord) string {
	if rec.ReceiptID == "" {
		return ""
	}
	return " (receipt " + rec.ReceiptID + ")"
}

// rank returns the accumulators sorted by profit descending. The sort is
// stable, so ties keep input seller order.
func rank(stats []*sellerStat) []*sellerStat {
	ranked := make([]*sellerStat, len(stats))
	copy(ranked, stats)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].profit.GreaterThan(ranked[j].profit)
	})
	return ranked
}

// finalize computes bonus and top products in ranked order and converts
// each accumulator into an immutable, rounded ReportRow.
func finalize(ranked []*sellerStat, bonus strategy.BonusStrategy) []model.ReportRow {
	total := len(ranked)
	rows := make([]model.ReportRow, 0, total)

	for i, st := range ranked {
		b := bonus.Bonus(i, total, strategy.SellerStat{
			ID:         st.id,
			Name:       st.name,
			Revenue:    st.revenue,
			Profit:     st.profit,
			SalesCount: st.salesCount,
		})

		rows = append(rows, model.ReportRow{
			SellerID:    st.id,
			Name:        st.name,
			Revenue:     st.revenue.Round(MoneyScale),
			Profit:      st.profit.Round(MoneyScale),
			SalesCount:  st.salesCount,
			TopProducts: topProducts(st),
			Bonus:       b.Round(MoneyScale),
		})
	}
	return rows
}

// topProducts sorts sold SKUs by count descending, ties by first
// occurrence, and keeps at most MaxTopProducts.
func topProducts(st *sellerStat) []model.TopProduct {
	top := make([]model.TopProduct, 0, len(st.skuOrder))
	for _, sku := range st.skuOrder {
		top = append(top, model.TopProduct{SKU: sku, Quantity: st.sold[sku]})
	}
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Quantity > top[j].Quantity
	})
	if len(top) > MaxTopProducts {
		top = top[:MaxTopProducts]
	}
	return top
}
