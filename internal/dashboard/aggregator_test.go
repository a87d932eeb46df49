package dashboard

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"savdo/backend/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func pen() domain.Product {
	return domain.Product{ID: 1, Name: "Pen", CostPrice: dec("5"), SellingPrice: dec("10"), Stock: dec("100")}
}

func receipt(id int64, items ...domain.ReceiptItem) domain.Receipt {
	return domain.Receipt{ID: id, CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), Items: items}
}

func item(name string, price string, qty string) domain.ReceiptItem {
	return domain.ReceiptItem{ProductName: name, Price: dec(price), Quantity: dec(qty)}
}

func TestResolveUsesLiveCatalog(t *testing.T) {
	catalog := NewCatalog([]domain.Product{pen()})

	res := catalog.Resolve(item("Pen", "8", "1"))
	assert.Equal(t, domain.PriceResolved, res.Source)
	assert.True(t, dec("10").Equal(res.SellingPrice))
	assert.True(t, dec("5").Equal(res.CostPrice))
}

func TestResolveFallsBackToSnapshot(t *testing.T) {
	catalog := NewCatalog(nil)

	res := catalog.Resolve(item("Gone", "7.50", "2"))
	assert.Equal(t, domain.PriceFallbackSnapshot, res.Source)
	assert.True(t, dec("7.50").Equal(res.SellingPrice))
	assert.True(t, res.CostPrice.IsZero())
}

func TestAggregateNetsReturns(t *testing.T) {
	catalog := NewCatalog([]domain.Product{pen()})
	receipts := []domain.Receipt{
		receipt(1, item("Pen", "10", "4")),
		receipt(2, item("Pen", "10", "-1")),
	}

	agg := Aggregate(receipts, catalog)

	require.Len(t, agg.Products, 1)
	summary := agg.Products[0]
	assert.True(t, dec("3").Equal(summary.Quantity))
	assert.True(t, dec("30").Equal(summary.TotalSales))
	assert.True(t, dec("15").Equal(summary.TotalProfit))
	assert.True(t, dec("30").Equal(agg.TotalSales))
	assert.True(t, dec("15").Equal(agg.TotalProfit))
	assert.Len(t, agg.Details, 2)
}

func TestAggregateUsesCurrentPricesNotFrozenOnes(t *testing.T) {
	catalog := NewCatalog([]domain.Product{pen()})

	agg := Aggregate([]domain.Receipt{receipt(1, item("Pen", "8", "2"))}, catalog)

	assert.True(t, dec("20").Equal(agg.TotalSales))
	assert.True(t, dec("10").Equal(agg.TotalProfit))
}

func TestAggregateMixesResolvedAndFallbackItems(t *testing.T) {
	catalog := NewCatalog([]domain.Product{pen()})

	agg := Aggregate([]domain.Receipt{
		receipt(1, item("Pen", "10", "1"), item("Eraser", "2.25", "2")),
	}, catalog)

	require.Len(t, agg.Products, 2)
	assert.Equal(t, "Eraser", agg.Products[0].ProductName)
	assert.True(t, dec("4.5").Equal(agg.Products[0].TotalSales))
	assert.True(t, dec("4.5").Equal(agg.Products[0].TotalProfit))
	assert.True(t, dec("14.5").Equal(agg.TotalSales))
	assert.True(t, dec("9.5").Equal(agg.TotalProfit))
	assert.Equal(t, domain.PriceFallbackSnapshot, agg.Details[1].Source)
}

func TestAggregateIsAdditiveOverPartitions(t *testing.T) {
	catalog := NewCatalog([]domain.Product{pen()})
	first := []domain.Receipt{receipt(1, item("Pen", "10", "2.5"))}
	second := []domain.Receipt{receipt(2, item("Pen", "10", "1.5"), item("Gone", "3", "1"))}

	whole := Aggregate(append(append([]domain.Receipt{}, first...), second...), catalog)
	a := Aggregate(first, catalog)
	b := Aggregate(second, catalog)

	assert.True(t, whole.TotalSales.Equal(a.TotalSales.Add(b.TotalSales)))
	assert.True(t, whole.TotalProfit.Equal(a.TotalProfit.Add(b.TotalProfit)))
}

func TestAggregateEmpty(t *testing.T) {
	agg := Aggregate(nil, NewCatalog(nil))

	assert.Empty(t, agg.Products)
	assert.NotNil(t, agg.Details)
	assert.True(t, agg.TotalSales.IsZero())
}
