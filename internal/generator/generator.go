// Package generator produces synthetic sales datasets for demos, load runs
// and property tests.
package generator

import (
	"errors"
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"

	"github.com/atmx/sales-analytics/internal/model"
)

// ErrInvalidConfig is returned when a Config cannot produce a valid dataset.
var ErrInvalidConfig = errors.New("generator: invalid configuration")

// Config controls the shape of a generated dataset.
type Config struct {
	Sellers  int
	Products int
	Records  int
	// MaxItems is the upper bound of line items per receipt. Default: 5.
	MaxItems int
	// MaxDiscount is the upper bound of a line discount percent. Default: 30.
	MaxDiscount int
	// Seed makes output reproducible. 0 means random.
	Seed uint64
}

// DefaultConfig returns a small but non-trivial dataset shape.
func DefaultConfig() Config {
	return Config{
		Sellers:     5,
		Products:    40,
		Records:     500,
		MaxItems:    5,
		MaxDiscount: 30,
	}
}

// Generator builds datasets with gofakeit.
type Generator struct {
	faker *gofakeit.Faker
	cfg   Config
}

// New validates cfg and creates a generator.
func New(cfg Config) (*Generator, error) {
	if cfg.Sellers < 1 || cfg.Products < 1 || cfg.Records < 1 {
		return nil, fmt.Errorf("%w: sellers, products and records must be positive", ErrInvalidConfig)
	}
	if cfg.MaxItems < 1 {
		cfg.MaxItems = 5
	}
	if cfg.MaxDiscount < 0 || cfg.MaxDiscount > 100 {
		return nil, fmt.Errorf("%w: max discount %d outside 0-100", ErrInvalidConfig, cfg.MaxDiscount)
	}
	return &Generator{
		faker: gofakeit.New(cfg.Seed),
		cfg:   cfg,
	}, nil
}

// Dataset generates a referentially consistent dataset. Every receipt's
// total_amount equals the sum of its discounted lines rounded to cents.
func (g *Generator) Dataset() *model.Dataset {
	f := g.faker
	ds := &model.Dataset{
		Sellers:         make([]model.Seller, g.cfg.Sellers),
		Products:        make([]model.Product, g.cfg.Products),
		PurchaseRecords: make([]model.PurchaseRecord, g.cfg.Records),
	}

	for i := range ds.Sellers {
		ds.Sellers[i] = model.Seller{
			ID:        fmt.Sprintf("seller_%d", i+1),
			FirstName: f.FirstName(),
			LastName:  f.LastName(),
			StartDate: f.Date().Format("2006-01-02"),
			Position:  f.JobTitle(),
		}
	}

	for i := range ds.Products {
		purchase := decimal.NewFromFloat(f.Price(1, 500)).Round(2)
		markup := decimal.NewFromInt(int64(f.Number(110, 180))).Shift(-2)
		ds.Products[i] = model.Product{
			SKU:           fmt.Sprintf("SKU_%03d", i+1),
			Name:          f.ProductName(),
			Category:      f.ProductCategory(),
			PurchasePrice: purchase,
			SalePrice:     purchase.Mul(markup).Round(2),
		}
	}

	for i := range ds.PurchaseRecords {
		seller := ds.Sellers[f.Number(0, len(ds.Sellers)-1)]
		n := f.Number(1, g.cfg.MaxItems)
		items := make([]model.LineItem, n)
		total := decimal.Zero
		gross := decimal.Zero
		for j := range items {
			p := ds.Products[f.Number(0, len(ds.Products)-1)]
			item := model.LineItem{
				SKU:       p.SKU,
				Quantity:  f.Number(1, 10),
				SalePrice: p.SalePrice,
				Discount:  decimal.NewFromInt(int64(f.Number(0, g.cfg.MaxDiscount))),
			}
			full := item.SalePrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
			net := full.Mul(decimal.NewFromInt(1).Sub(item.Discount.Shift(-2)))
			gross = gross.Add(full)
			total = total.Add(net)
			items[j] = item
		}
		total = total.Round(2)
		ds.PurchaseRecords[i] = model.PurchaseRecord{
			ReceiptID:     fmt.Sprintf("receipt_%d", i+1),
			Date:          f.Date().Format("2006-01-02"),
			SellerID:      seller.ID,
			CustomerID:    "customer_" + f.UUID(),
			TotalAmount:   total,
			TotalDiscount: gross.Round(2).Sub(total),
			Items:         items,
		}
	}
	return ds
}
