package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/atmx/sales-analytics/internal/model"
)

// Schema creates the reference and receipt tables if they do not exist.
// All monetary values are stored as NUMERIC for exact decimal precision.
const Schema = `
CREATE TABLE IF NOT EXISTS sellers (
	id         TEXT PRIMARY KEY,
	first_name TEXT NOT NULL,
	last_name  TEXT NOT NULL,
	start_date TEXT NOT NULL DEFAULT '',
	position   TEXT NOT NULL DEFAULT '',
	seq        BIGSERIAL
);
CREATE TABLE IF NOT EXISTS products (
	sku            TEXT PRIMARY KEY,
	name           TEXT NOT NULL DEFAULT '',
	category       TEXT NOT NULL DEFAULT '',
	purchase_price NUMERIC NOT NULL,
	sale_price     NUMERIC NOT NULL DEFAULT 0,
	seq            BIGSERIAL
);
CREATE TABLE IF NOT EXISTS purchase_records (
	receipt_id     TEXT PRIMARY KEY,
	date           TEXT NOT NULL DEFAULT '',
	seller_id      TEXT NOT NULL,
	customer_id    TEXT NOT NULL DEFAULT '',
	total_amount   NUMERIC NOT NULL,
	total_discount NUMERIC NOT NULL DEFAULT 0,
	seq            BIGSERIAL
);
CREATE TABLE IF NOT EXISTS purchase_items (
	receipt_id TEXT NOT NULL REFERENCES purchase_records (receipt_id),
	line_no    INT NOT NULL,
	sku        TEXT NOT NULL,
	quantity   INT NOT NULL,
	sale_price NUMERIC NOT NULL,
	discount   NUMERIC NOT NULL DEFAULT 0,
	PRIMARY KEY (receipt_id, line_no)
);`

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Receipts reference sellers and products without foreign keys; dangling
// keys surface as analytics referential-integrity errors.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema applies Schema.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Sellers(ctx context.Context) ([]model.Seller, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, first_name, last_name, start_date, position
		 FROM sellers ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query sellers: %w", err)
	}
	defer rows.Close()

	var sellers []model.Seller
	for rows.Next() {
		var sl model.Seller
		if err := rows.Scan(&sl.ID, &sl.FirstName, &sl.LastName, &sl.StartDate, &sl.Position); err != nil {
			return nil, err
		}
		sellers = append(sellers, sl)
	}
	return sellers, rows.Err()
}

func (s *PostgresStore) Products(ctx context.Context) ([]model.Product, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT sku, name, category, purchase_price::TEXT, sale_price::TEXT
		 FROM products ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		var purchaseS, saleS string
		if err := rows.Scan(&p.SKU, &p.Name, &p.Category, &purchaseS, &saleS); err != nil {
			return nil, err
		}
		if p.PurchasePrice, err = parseNumeric("purchase_price", purchaseS); err != nil {
			return nil, err
		}
		if p.SalePrice, err = parseNumeric("sale_price", saleS); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *PostgresStore) PurchaseRecords(ctx context.Context) ([]model.PurchaseRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT receipt_id, date, seller_id, customer_id,
		        total_amount::TEXT, total_discount::TEXT
		 FROM purchase_records ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query purchase records: %w", err)
	}
	records, err := scanRecords(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	itemRows, err := s.pool.Query(ctx,
		`SELECT receipt_id, sku, quantity, sale_price::TEXT, discount::TEXT
		 FROM purchase_items ORDER BY receipt_id, line_no`)
	if err != nil {
		return nil, fmt.Errorf("query purchase items: %w", err)
	}
	defer itemRows.Close()

	if err := scanItems(itemRows, records); err != nil {
		return nil, err
	}
	return records, nil
}

// pgxRows is the subset of pgx.Rows used by the scanners.
type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanRecords(rows pgxRows) ([]model.PurchaseRecord, error) {
	var records []model.PurchaseRecord
	for rows.Next() {
		var r model.PurchaseRecord
		var totalS, discountS string

		if err := rows.Scan(&r.ReceiptID, &r.Date, &r.SellerID, &r.CustomerID,
			&totalS, &discountS); err != nil {
			return nil, err
		}

		var err error
		if r.TotalAmount, err = parseNumeric("total_amount", totalS); err != nil {
			return nil, err
		}
		if r.TotalDiscount, err = parseNumeric("total_discount", discountS); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// scanItems attaches line items to records by receipt_id, preserving row
// order. Items whose receipt is not in records are skipped.
func scanItems(rows pgxRows, records []model.PurchaseRecord) error {
	byReceipt := make(map[string]int, len(records))
	for i, r := range records {
		byReceipt[r.ReceiptID] = i
	}
	for rows.Next() {
		var receiptID, priceS, discountS string
		var it model.LineItem
		if err := rows.Scan(&receiptID, &it.SKU, &it.Quantity, &priceS, &discountS); err != nil {
			return err
		}
		var err error
		if it.SalePrice, err = parseNumeric("sale_price", priceS); err != nil {
			return err
		}
		if it.Discount, err = parseNumeric("discount", discountS); err != nil {
			return err
		}
		i, ok := byReceipt[receiptID]
		if !ok {
			continue
		}
		records[i].Items = append(records[i].Items, it)
	}
	return rows.Err()
}

func parseNumeric(column, s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s %q: %w", column, s, err)
	}
	return v, nil
}
