package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PriceSource string

const (
	// PriceResolved means the live catalog product supplied selling and cost price.
	PriceResolved PriceSource = "resolved"
	// PriceFallbackSnapshot means the product is gone and the frozen receipt price was used with zero cost.
	PriceFallbackSnapshot PriceSource = "fallback_snapshot"
)

type SaleDetail struct {
	ReceiptID    int64           `json:"receipt_id"`
	ProductName  string          `json:"product_name"`
	Quantity     decimal.Decimal `json:"quantity"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	ItemTotal    decimal.Decimal `json:"item_total"`
	Profit       decimal.Decimal `json:"profit"`
	Source       PriceSource     `json:"source"`
	Description  string          `json:"description"`
	CreatedAt    time.Time       `json:"created_at"`
}

type ProductSummary struct {
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	TotalSales  decimal.Decimal `json:"total_sales"`
	TotalProfit decimal.Decimal `json:"total_profit"`
}

type Aggregate struct {
	Products    []ProductSummary `json:"products"`
	Details     []SaleDetail     `json:"details"`
	TotalSales  decimal.Decimal  `json:"total_sales"`
	TotalProfit decimal.Decimal  `json:"total_profit"`
}

type DashboardResponse struct {
	Date      string    `json:"date"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Today     Aggregate `json:"today"`
	Filtered  Aggregate `json:"filtered"`
}
