package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
)

const (
	DefaultStoreName     = "Store name not set"
	DefaultStoreLocation = "Address not set"
)

type Profile struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	Phone       string    `json:"phone"`
	Payment     int64     `json:"payment"`
	AddedTime   time.Time `json:"added_time"`
	Description string    `json:"description"`
	Ready       bool      `json:"ready"`
}

// DisplayName falls back to a placeholder when the owner never set a store name.
func (p *Profile) DisplayName() string {
	if p == nil || p.Name == "" {
		return DefaultStoreName
	}
	return p.Name
}

func (p *Profile) DisplayLocation() string {
	if p == nil || p.Location == "" {
		return DefaultStoreLocation
	}
	return p.Location
}

type ProfileUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Location    *string `json:"location,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Description *string `json:"description,omitempty"`
}

type ProfileReadyRequest struct {
	Ready bool `json:"ready"`
}

type AccountCreateRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	Location    string `json:"location"`
	Phone       string `json:"phone"`
	Payment     int64  `json:"payment"`
	Description string `json:"description"`
	Ready       bool   `json:"ready"`
}

type Product struct {
	ID           int64           `json:"id"`
	ProfileID    int64           `json:"profile_id"`
	Name         string          `json:"name"`
	CostPrice    decimal.Decimal `json:"price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Stock        decimal.Decimal `json:"stock"`
	QRCode       string          `json:"qrcode,omitempty"`
}

type ProductCreateRequest struct {
	Name         string `json:"name"`
	CostPrice    string `json:"price"`
	SellingPrice string `json:"selling_price"`
	Stock        string `json:"stock"`
	QRCode       string `json:"qrcode"`
}

type ProductUpdateRequest struct {
	Name         *string `json:"name,omitempty"`
	CostPrice    *string `json:"price,omitempty"`
	SellingPrice *string `json:"selling_price,omitempty"`
	Stock        *string `json:"stock,omitempty"`
	QRCode       *string `json:"qrcode,omitempty"`
}

type StockAddRequest struct {
	Quantity string `json:"quantity"`
}

type Receipt struct {
	ID          int64         `json:"id"`
	ProfileID   int64         `json:"profile_id"`
	Username    string        `json:"user"`
	CreatedAt   time.Time     `json:"created_at"`
	Description string        `json:"description"`
	Ready       bool          `json:"ready"`
	Items       []ReceiptItem `json:"items"`
}

// Total sums the frozen line totals, so returns net out automatically.
func (r Receipt) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

type ReceiptItem struct {
	ID          int64           `json:"id"`
	ReceiptID   int64           `json:"receipt_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    decimal.Decimal `json:"quantity"`
}

func (i ReceiptItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(i.Quantity)
}

type ReceiptFilter struct {
	Range       DateRange
	Description string
	Ready       *bool
	Limit       int
	Offset      int
}

type ReceiptListRequest struct {
	StartDate   string
	EndDate     string
	Description string
	Ready       string
	Page        string
}

type ReceiptView struct {
	Receipt
	Total string `json:"total"`
}

type ReceiptPage struct {
	Receipts   []ReceiptView `json:"receipts"`
	Page       int           `json:"page"`
	TotalPages int           `json:"total_pages"`
	TotalCount int           `json:"total_count"`
	Name       string        `json:"name"`
	Location   string        `json:"location"`
}

type ReceiptReadyResponse struct {
	ID    int64 `json:"id"`
	Ready bool  `json:"ready"`
}

// Sale is a checked-out cart handed to the repository as one unit.
type Sale struct {
	ProfileID   int64
	Username    string
	Description string
	CreatedAt   time.Time
	Lines       []SaleLine
}

type SaleLine struct {
	ProductID int64
	Name      string
	UnitPrice decimal.Decimal
	Quantity  decimal.Decimal
}

type CheckoutRequest struct {
	Description string `json:"description"`
}

type CheckoutItem struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
	Total    string `json:"total"`
}

type CheckoutResponse struct {
	ReceiptID int64          `json:"receipt_id"`
	Items     []CheckoutItem `json:"items"`
	Total     string         `json:"total"`
	Name      string         `json:"name"`
	Location  string         `json:"location"`
}

type ReturnedProduct struct {
	ID          int64           `json:"id"`
	ProfileID   int64           `json:"profile_id"`
	Username    string          `json:"user"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Reason      string          `json:"reason,omitempty"`
	Date        time.Time       `json:"date"`
}

type ReturnRequest struct {
	ProductID int64  `json:"product_id"`
	Quantity  string `json:"quantity"`
	Reason    string `json:"reason"`
}

type ReturnResponse struct {
	Return  ReturnedProduct `json:"return"`
	Receipt Receipt         `json:"receipt"`
}

type CartAddRequest struct {
	Quantity string `json:"quantity"`
}

type CartRow struct {
	ProductID int64  `json:"id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Quantity  string `json:"quantity"`
	Total     string `json:"total"`
}

type CartView struct {
	ActiveCart int       `json:"active_cart"`
	Rows       []CartRow `json:"rows"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

// Actor is the authenticated caller. SessionID scopes the cart state.
type Actor struct {
	Username  string `json:"username"`
	Role      string `json:"role"`
	ProfileID int64  `json:"profile_id"`
	SessionID string `json:"session_id"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	ProfileID int64     `json:"profile_id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	ProfileID     int64     `json:"profile_id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

// ReturnReceiptDescription is the description stamped on the receipt a return issues.
func ReturnReceiptDescription(productName string) string {
	return "Return: " + productName
}
