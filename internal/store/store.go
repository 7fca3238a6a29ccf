// Package store defines where reporting datasets come from.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache for reference data), and in-memory (JSON files, tests).
package store

import (
	"context"
	"fmt"

	"github.com/atmx/sales-analytics/internal/model"
)

// Store is the dataset source interface. Sellers and products are
// immutable reference data; purchase records are the facts of the run.
type Store interface {
	// Sellers returns every seller in stable order.
	Sellers(ctx context.Context) ([]model.Seller, error)

	// Products returns every product in stable order.
	Products(ctx context.Context) ([]model.Product, error)

	// PurchaseRecords returns every receipt with its line items, in
	// receipt order.
	PurchaseRecords(ctx context.Context) ([]model.PurchaseRecord, error)
}

// LoadDataset reads the three collections of st into one Dataset.
func LoadDataset(ctx context.Context, st Store) (*model.Dataset, error) {
	sellers, err := st.Sellers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sellers: %w", err)
	}
	products, err := st.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	records, err := st.PurchaseRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("load purchase records: %w", err)
	}
	return &model.Dataset{
		Sellers:         sellers,
		Products:        products,
		PurchaseRecords: records,
	}, nil
}
