// Package model defines the core domain types shared across the sales analytics
// service. All monetary values use shopspring/decimal, never float64.
package model

import (
	"github.com/shopspring/decimal"
)

// Seller is immutable reference data describing one salesperson.
type Seller struct {
	ID        string `json:"id" db:"id"`
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
	StartDate string `json:"start_date,omitempty" db:"start_date"`
	Position  string `json:"position,omitempty" db:"position"`
}

// DisplayName returns "<first_name> <last_name>".
func (s Seller) DisplayName() string {
	return s.FirstName + " " + s.LastName
}

// Product is immutable reference data keyed by SKU.
type Product struct {
	SKU           string          `json:"sku" db:"sku"`
	Name          string          `json:"name,omitempty" db:"name"`
	Category      string          `json:"category,omitempty" db:"category"`
	PurchasePrice decimal.Decimal `json:"purchase_price" db:"purchase_price"` // cost per unit
	SalePrice     decimal.Decimal `json:"sale_price,omitempty" db:"sale_price"`
}

// LineItem is one SKU sold within a purchase record.
type LineItem struct {
	SKU       string          `json:"sku" db:"sku"`
	Quantity  int             `json:"quantity" db:"quantity"`
	SalePrice decimal.Decimal `json:"sale_price" db:"sale_price"`
	Discount  decimal.Decimal `json:"discount" db:"discount"` // whole percent, 0-100
}

// PurchaseRecord is a receipt belonging to one seller.
type PurchaseRecord struct {
	ReceiptID     string          `json:"receipt_id,omitempty" db:"receipt_id"`
	Date          string          `json:"date,omitempty" db:"date"`
	SellerID      string          `json:"seller_id" db:"seller_id"`
	CustomerID    string          `json:"customer_id,omitempty" db:"customer_id"`
	TotalAmount   decimal.Decimal `json:"total_amount" db:"total_amount"` // already discounted
	TotalDiscount decimal.Decimal `json:"total_discount,omitempty" db:"total_discount"`
	Items         []LineItem      `json:"items"`
}

// Dataset is the complete input of one reporting run.
type Dataset struct {
	Sellers         []Seller         `json:"sellers"`
	Products        []Product        `json:"products"`
	PurchaseRecords []PurchaseRecord `json:"purchase_records"`
}

// TopProduct is one entry of a seller's most frequently sold SKUs.
type TopProduct struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// ReportRow is the finalized, rounded result for one seller.
type ReportRow struct {
	SellerID    string          `json:"seller_id"`
	Name        string          `json:"name"`
	Revenue     decimal.Decimal `json:"revenue"`
	Profit      decimal.Decimal `json:"profit"`
	SalesCount  int             `json:"sales_count"`
	TopProducts []TopProduct    `json:"top_products"`
	Bonus       decimal.Decimal `json:"bonus"`
}

// ReportSummary aggregates the rows of one run.
type ReportSummary struct {
	Sellers      int             `json:"sellers"`
	TotalSales   int             `json:"total_sales"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalProfit  decimal.Decimal `json:"total_profit"`
	TotalBonus   decimal.Decimal `json:"total_bonus"`
}
