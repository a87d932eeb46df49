package dashboard

import (
	"sort"

	"github.com/shopspring/decimal"

	"savdo/backend/internal/domain"
)

// Resolution is the price pair used for one receipt item, tagged with where it came from.
type Resolution struct {
	Source       domain.PriceSource
	SellingPrice decimal.Decimal
	CostPrice    decimal.Decimal
}

func Resolved(selling decimal.Decimal, cost decimal.Decimal) Resolution {
	return Resolution{Source: domain.PriceResolved, SellingPrice: selling, CostPrice: cost}
}

func FallbackSnapshot(price decimal.Decimal) Resolution {
	return Resolution{Source: domain.PriceFallbackSnapshot, SellingPrice: price, CostPrice: decimal.Zero}
}

// Catalog maps live product names to their current prices.
type Catalog struct {
	byName map[string]Resolution
}

func NewCatalog(products []domain.Product) Catalog {
	byName := make(map[string]Resolution, len(products))
	for _, p := range products {
		byName[p.Name] = Resolved(p.SellingPrice, p.CostPrice)
	}
	return Catalog{byName: byName}
}

func (c Catalog) Resolve(item domain.ReceiptItem) Resolution {
	if res, ok := c.byName[item.ProductName]; ok {
		return res
	}
	return FallbackSnapshot(item.Price)
}

// Aggregate rolls receipt items up per product name using current catalog
// prices. Negative quantities (returns) subtract from every running total.
func Aggregate(receipts []domain.Receipt, catalog Catalog) domain.Aggregate {
	out := domain.Aggregate{
		Products:    make([]domain.ProductSummary, 0),
		Details:     make([]domain.SaleDetail, 0),
		TotalSales:  decimal.Zero,
		TotalProfit: decimal.Zero,
	}
	buckets := make(map[string]*domain.ProductSummary)

	for _, receipt := range receipts {
		for _, item := range receipt.Items {
			res := catalog.Resolve(item)
			itemTotal := res.SellingPrice.Mul(item.Quantity)
			profit := res.SellingPrice.Sub(res.CostPrice).Mul(item.Quantity)

			out.TotalSales = out.TotalSales.Add(itemTotal)
			out.TotalProfit = out.TotalProfit.Add(profit)

			bucket, ok := buckets[item.ProductName]
			if !ok {
				bucket = &domain.ProductSummary{
					ProductName: item.ProductName,
					Quantity:    decimal.Zero,
					TotalSales:  decimal.Zero,
					TotalProfit: decimal.Zero,
				}
				buckets[item.ProductName] = bucket
			}
			bucket.Quantity = bucket.Quantity.Add(item.Quantity)
			bucket.TotalSales = bucket.TotalSales.Add(itemTotal)
			bucket.TotalProfit = bucket.TotalProfit.Add(profit)

			out.Details = append(out.Details, domain.SaleDetail{
				ReceiptID:    receipt.ID,
				ProductName:  item.ProductName,
				Quantity:     item.Quantity,
				SellingPrice: res.SellingPrice,
				CostPrice:    res.CostPrice,
				ItemTotal:    itemTotal,
				Profit:       profit,
				Source:       res.Source,
				Description:  receipt.Description,
				CreatedAt:    receipt.CreatedAt,
			})
		}
	}

	for _, bucket := range buckets {
		out.Products = append(out.Products, *bucket)
	}
	sort.Slice(out.Products, func(i, j int) bool {
		return out.Products[i].ProductName < out.Products[j].ProductName
	})
	return out
}
