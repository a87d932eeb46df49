package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"savdo/backend/internal/cart"
	"savdo/backend/internal/domain"
	"savdo/backend/internal/store"
)

const (
	searchLimit     = 10
	maxProductName  = 150
	maxQRCodeLength = 100
	priceScale      = 2
)

// maxPrice is the exclusive upper bound of a price with two decimals in ten digits.
var maxPrice = decimal.New(1, 8)

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	actor, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.ListProducts(ctx, actor.ProfileID)
	return products, storeErr(err)
}

func (s *Service) GetProduct(ctx context.Context, productID int64) (domain.Product, error) {
	actor, err := s.tenant(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	product, err := s.repo.GetProduct(ctx, actor.ProfileID, productID)
	if err != nil {
		return domain.Product{}, storeErr(err)
	}
	return *product, nil
}

// SearchProducts matches a name substring or an exact QR code. A blank query
// returns nothing rather than the whole catalog.
func (s *Service) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	actor, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Product{}, nil
	}
	products, err := s.repo.SearchProducts(ctx, actor.ProfileID, query, searchLimit)
	return products, storeErr(err)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, err := s.tenant(ctx)
	if err != nil {
		return domain.Product{}, err
	}

	name, err := normalizeProductName(req.Name)
	if err != nil {
		return domain.Product{}, err
	}
	qrCode, err := normalizeQRCode(req.QRCode)
	if err != nil {
		return domain.Product{}, err
	}
	cost, err := parsePrice(req.CostPrice)
	if err != nil {
		return domain.Product{}, err
	}
	selling, err := parsePrice(req.SellingPrice)
	if err != nil {
		return domain.Product{}, err
	}
	stock, err := parseStock(req.Stock)
	if err != nil {
		return domain.Product{}, err
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		ProfileID:    actor.ProfileID,
		Name:         name,
		CostPrice:    cost,
		SellingPrice: selling,
		Stock:        stock,
		QRCode:       qrCode,
	})
	if err != nil {
		return domain.Product{}, storeErr(err)
	}

	s.logAudit(ctx, actor.ProfileID, "product_create", "product", strconv.FormatInt(created.ID, 10),
		fmt.Sprintf("name=%s,price=%s,selling_price=%s,stock=%s", created.Name, created.CostPrice, created.SellingPrice, created.Stock))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, productID int64, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, err := s.tenant(ctx)
	if err != nil {
		return domain.Product{}, err
	}

	existing, err := s.repo.GetProduct(ctx, actor.ProfileID, productID)
	if err != nil {
		return domain.Product{}, storeErr(err)
	}

	updated := *existing
	if req.Name != nil {
		if updated.Name, err = normalizeProductName(*req.Name); err != nil {
			return domain.Product{}, err
		}
	}
	if req.QRCode != nil {
		if updated.QRCode, err = normalizeQRCode(*req.QRCode); err != nil {
			return domain.Product{}, err
		}
	}
	if req.CostPrice != nil {
		if updated.CostPrice, err = parsePrice(*req.CostPrice); err != nil {
			return domain.Product{}, err
		}
	}
	if req.SellingPrice != nil {
		if updated.SellingPrice, err = parsePrice(*req.SellingPrice); err != nil {
			return domain.Product{}, err
		}
	}
	if req.Stock != nil {
		if updated.Stock, err = parseStock(*req.Stock); err != nil {
			return domain.Product{}, err
		}
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, storeErr(err)
	}

	s.logAudit(ctx, actor.ProfileID, "product_update", "product", strconv.FormatInt(saved.ID, 10),
		fmt.Sprintf("name=%s,price=%s,selling_price=%s,stock=%s", saved.Name, saved.CostPrice, saved.SellingPrice, saved.Stock))
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, productID int64) error {
	actor, err := s.tenant(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(ctx, actor.ProfileID, productID); err != nil {
		return storeErr(err)
	}
	s.logAudit(ctx, actor.ProfileID, "product_delete", "product", strconv.FormatInt(productID, 10), "")
	return nil
}

func (s *Service) AddStock(ctx context.Context, productID int64, req domain.StockAddRequest) (domain.Product, error) {
	actor, err := s.tenant(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	if strings.TrimSpace(req.Quantity) == "" {
		return domain.Product{}, cart.ErrInvalidQuantity
	}
	qty, err := cart.ParseQuantity(req.Quantity)
	if err != nil {
		return domain.Product{}, err
	}

	product, err := s.repo.AddStock(ctx, actor.ProfileID, productID, qty)
	if err != nil {
		return domain.Product{}, storeErr(err)
	}

	s.logAudit(ctx, actor.ProfileID, "stock_add", "product", strconv.FormatInt(product.ID, 10),
		fmt.Sprintf("qty=%s,stock=%s", qty, product.Stock))
	return *product, nil
}

func normalizeProductName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" || utf8.RuneCountInString(name) > maxProductName {
		return "", fmt.Errorf("%w: product name must be 1-%d characters", store.ErrInvalidInput, maxProductName)
	}
	return name, nil
}

func normalizeQRCode(raw string) (string, error) {
	code := strings.TrimSpace(raw)
	if utf8.RuneCountInString(code) > maxQRCodeLength {
		return "", fmt.Errorf("%w: qr code must be at most %d characters", store.ErrInvalidInput, maxQRCodeLength)
	}
	return code, nil
}

// parsePrice accepts "12.50" or "12,50". Prices are non-negative with at most two decimals.
func parsePrice(raw string) (decimal.Decimal, error) {
	value := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if value == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: price is required", store.ErrInvalidInput)
	}
	price, err := decimal.NewFromString(value)
	if err != nil || price.IsNegative() || !price.Equal(price.Round(priceScale)) {
		return decimal.Decimal{}, fmt.Errorf("%w: price must be a non-negative amount with at most %d decimals", store.ErrInvalidInput, priceScale)
	}
	if price.GreaterThanOrEqual(maxPrice) {
		return decimal.Decimal{}, fmt.Errorf("%w: price must be below %s", store.ErrInvalidInput, maxPrice)
	}
	return price, nil
}

func parseStock(raw string) (decimal.Decimal, error) {
	value := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if value == "" {
		return decimal.Zero, nil
	}
	stock, err := decimal.NewFromString(value)
	if err != nil || stock.IsNegative() || !stock.Equal(stock.Round(cart.QuantityScale)) {
		return decimal.Decimal{}, fmt.Errorf("%w: stock must be a non-negative quantity with at most %d decimals", store.ErrInvalidInput, cart.QuantityScale)
	}
	if stock.GreaterThanOrEqual(cart.MaxQuantity) {
		return decimal.Decimal{}, fmt.Errorf("%w: stock must be below %s", store.ErrInvalidInput, cart.MaxQuantity)
	}
	return stock, nil
}
