package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"savdo/backend/internal/domain"
	"savdo/backend/internal/store"
)

func newTenantStore(t *testing.T) (*Store, int64) {
	t.Helper()
	s := New()
	profile, err := s.CreateAccount(context.Background(), domain.UserAccount{Username: "shop", Password: "x"}, domain.Profile{Name: "Shop", Ready: true})
	require.NoError(t, err)
	return s, profile.ID
}

func mustProduct(t *testing.T, s *Store, profileID int64, name string, sell string, stock string, qr string) domain.Product {
	t.Helper()
	p, err := s.CreateProduct(context.Background(), domain.Product{
		ProfileID:    profileID,
		Name:         name,
		CostPrice:    dec("1"),
		SellingPrice: dec(sell),
		Stock:        dec(stock),
		QRCode:       qr,
	})
	require.NoError(t, err)
	return *p
}

func TestCreateProductEnforcesPerTenantUniqueness(t *testing.T) {
	s, profileID := newTenantStore(t)
	ctx := context.Background()
	mustProduct(t, s, profileID, "Pen", "10", "5", "QR-1")

	_, err := s.CreateProduct(ctx, domain.Product{ProfileID: profileID, Name: "pEN"})
	assert.ErrorIs(t, err, store.ErrDuplicateName)

	_, err = s.CreateProduct(ctx, domain.Product{ProfileID: profileID, Name: "Ink", QRCode: "QR-1"})
	assert.ErrorIs(t, err, store.ErrDuplicateQRCode)

	other, err := s.CreateAccount(ctx, domain.UserAccount{Username: "other", Password: "x"}, domain.Profile{})
	require.NoError(t, err)
	_, err = s.CreateProduct(ctx, domain.Product{ProfileID: other.ID, Name: "Pen", QRCode: "QR-1"})
	assert.NoError(t, err)
}

func TestSearchProductsMatchesNameOrExactQRCode(t *testing.T) {
	s, profileID := newTenantStore(t)
	ctx := context.Background()
	pen := mustProduct(t, s, profileID, "Blue Pen", "10", "5", "4780001")
	mustProduct(t, s, profileID, "Notebook", "10", "5", "")

	empty, err := s.SearchProducts(ctx, profileID, "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)

	byName, err := s.SearchProducts(ctx, profileID, "pen", 10)
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, pen.ID, byName[0].ID)

	byQR, err := s.SearchProducts(ctx, profileID, "4780001", 10)
	require.NoError(t, err)
	require.Len(t, byQR, 1)
	assert.Equal(t, pen.ID, byQR[0].ID)

	partialQR, err := s.SearchProducts(ctx, profileID, "478", 10)
	require.NoError(t, err)
	assert.Empty(t, partialQR)
}

func TestSearchProductsCapsResults(t *testing.T) {
	s, profileID := newTenantStore(t)
	for i := 0; i < 15; i++ {
		mustProduct(t, s, profileID, "Item "+string(rune('A'+i)), "1", "1", "")
	}

	results, err := s.SearchProducts(context.Background(), profileID, "item", 10)
	require.NoError(t, err)
	assert.Len(t, results, 10)
}

func TestCreateSaleIsAllOrNothing(t *testing.T) {
	s, profileID := newTenantStore(t)
	ctx := context.Background()
	pen := mustProduct(t, s, profileID, "Pen", "10", "100", "")

	_, err := s.CreateSale(ctx, domain.Sale{
		ProfileID: profileID,
		Lines: []domain.SaleLine{
			{ProductID: pen.ID, Name: "Pen", UnitPrice: dec("10"), Quantity: dec("4")},
			{ProductID: 9999, Name: "Ghost", UnitPrice: dec("1"), Quantity: dec("1")},
		},
	})
	assert.ErrorIs(t, err, store.ErrNotFound)

	after, err := s.GetProduct(ctx, profileID, pen.ID)
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(after.Stock))
	receipts, total, err := s.ListReceipts(ctx, profileID, domain.ReceiptFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, receipts)
}

func TestCreateSaleDecrementsStockAndWritesItems(t *testing.T) {
	s, profileID := newTenantStore(t)
	ctx := context.Background()
	pen := mustProduct(t, s, profileID, "Pen", "10", "100", "")

	receipt, err := s.CreateSale(ctx, domain.Sale{
		ProfileID:   profileID,
		Username:    "shop",
		Description: "walk-in",
		Lines:       []domain.SaleLine{{ProductID: pen.ID, Name: "Pen", UnitPrice: dec("10"), Quantity: dec("4")}},
	})
	require.NoError(t, err)
	assert.False(t, receipt.Ready)
	require.Len(t, receipt.Items, 1)
	assert.Equal(t, "40.00", receipt.Total().StringFixed(2))

	after, _ := s.GetProduct(ctx, profileID, pen.ID)
	assert.True(t, dec("96").Equal(after.Stock))
}

func TestCreateReturnRestocksAndIssuesNegativeReceipt(t *testing.T) {
	s, profileID := newTenantStore(t)
	ctx := context.Background()
	pen := mustProduct(t, s, profileID, "Pen", "10", "96", "")

	ret, receipt, err := s.CreateReturn(ctx, domain.ReturnedProduct{ProfileID: profileID, ProductID: pen.ID, Quantity: dec("1"), Reason: "broken"})
	require.NoError(t, err)
	assert.Equal(t, "Pen", ret.ProductName)
	assert.True(t, receipt.Ready)
	assert.Equal(t, "Return: Pen", receipt.Description)
	require.Len(t, receipt.Items, 1)
	assert.True(t, dec("-1").Equal(receipt.Items[0].Quantity))
	assert.True(t, dec("10").Equal(receipt.Items[0].Price))

	after, _ := s.GetProduct(ctx, profileID, pen.ID)
	assert.True(t, dec("97").Equal(after.Stock))

	_, _, err = s.CreateReturn(ctx, domain.ReturnedProduct{ProfileID: profileID + 100, ProductID: pen.ID, Quantity: dec("1")})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListReceiptsFiltersAndPaginates(t *testing.T) {
	s, profileID := newTenantStore(t)
	ctx := context.Background()
	pen := mustProduct(t, s, profileID, "Pen", "10", "100", "")
	base := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		desc := "regular"
		if i%5 == 0 {
			desc = "Wholesale order"
		}
		_, err := s.CreateSale(ctx, domain.Sale{
			ProfileID:   profileID,
			Description: desc,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
			Lines:       []domain.SaleLine{{ProductID: pen.ID, Name: "Pen", UnitPrice: dec("10"), Quantity: dec("1")}},
		})
		require.NoError(t, err)
	}

	page, total, err := s.ListReceipts(ctx, profileID, domain.ReceiptFilter{Limit: 20, Offset: 20})
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	assert.Len(t, page, 5)

	first, _, err := s.ListReceipts(ctx, profileID, domain.ReceiptFilter{Limit: 1})
	require.NoError(t, err)
	assert.True(t, first[0].CreatedAt.Equal(base.Add(24*time.Hour)), "newest first")

	wholesale, total, err := s.ListReceipts(ctx, profileID, domain.ReceiptFilter{Description: "WHOLESALE"})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, wholesale, 5)

	day, err := domain.ParseDateRange("2026-05-10", "2026-05-10", time.UTC)
	require.NoError(t, err)
	_, total, err = s.ListReceipts(ctx, profileID, domain.ReceiptFilter{Range: day})
	require.NoError(t, err)
	assert.Equal(t, 15, total)

	ready := true
	_, total, err = s.ListReceipts(ctx, profileID, domain.ReceiptFilter{Ready: &ready})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestToggleReceiptReadyIsTenantScoped(t *testing.T) {
	s, profileID := newTenantStore(t)
	ctx := context.Background()
	pen := mustProduct(t, s, profileID, "Pen", "10", "100", "")
	receipt, err := s.CreateSale(ctx, domain.Sale{ProfileID: profileID, Lines: []domain.SaleLine{{ProductID: pen.ID, Name: "Pen", UnitPrice: dec("10"), Quantity: dec("1")}}})
	require.NoError(t, err)

	toggled, err := s.ToggleReceiptReady(ctx, profileID, receipt.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Ready)

	_, err = s.ToggleReceiptReady(ctx, profileID+1, receipt.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestNewSeededHasPaidAndUnpaidTenants(t *testing.T) {
	s := NewSeeded()
	users, err := s.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 3)

	byName := map[string]domain.UserAccount{}
	for _, u := range users {
		byName[u.Username] = u
	}
	demo, err := s.GetProfile(context.Background(), byName["demo"].ProfileID)
	require.NoError(t, err)
	assert.True(t, demo.Ready)
	unpaid, err := s.GetProfile(context.Background(), byName["unpaid"].ProfileID)
	require.NoError(t, err)
	assert.False(t, unpaid.Ready)
	assert.Equal(t, domain.RoleAdmin, byName["admin"].Role)
}
