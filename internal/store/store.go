package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"savdo/backend/internal/domain"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDuplicateName    = errors.New("a product with this name already exists")
	ErrDuplicateQRCode  = errors.New("a product with this qr code already exists")
	ErrDuplicateUser    = errors.New("username already exists")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Repository is the persistence boundary. Every catalog, receipt and return
// call is scoped to one tenant profile.
type Repository interface {
	CreateAccount(ctx context.Context, user domain.UserAccount, profile domain.Profile) (*domain.Profile, error)
	GetProfile(ctx context.Context, profileID int64) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, profile domain.Profile) (*domain.Profile, error)
	SetProfileReady(ctx context.Context, profileID int64, ready bool) (*domain.Profile, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error

	ListProducts(ctx context.Context, profileID int64) ([]domain.Product, error)
	GetProduct(ctx context.Context, profileID int64, productID int64) (*domain.Product, error)
	FindProductByName(ctx context.Context, profileID int64, name string) (*domain.Product, error)
	SearchProducts(ctx context.Context, profileID int64, query string, limit int) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, profileID int64, productID int64) error
	AddStock(ctx context.Context, profileID int64, productID int64, qty decimal.Decimal) (*domain.Product, error)

	// CreateSale decrements stock for every line and writes the receipt with
	// its items as one unit. Nothing is written when any line fails.
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Receipt, error)
	// CreateReturn restocks the product, records the return and issues a
	// ready receipt with a negative item as one unit.
	CreateReturn(ctx context.Context, ret domain.ReturnedProduct) (*domain.ReturnedProduct, *domain.Receipt, error)

	ListReceipts(ctx context.Context, profileID int64, filter domain.ReceiptFilter) ([]domain.Receipt, int, error)
	ToggleReceiptReady(ctx context.Context, profileID int64, receiptID int64) (*domain.Receipt, error)
	ListReturns(ctx context.Context, profileID int64, dateRange domain.DateRange) ([]domain.ReturnedProduct, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, profileID int64, dateRange domain.DateRange, limit int) ([]domain.AuditLog, error)
}
