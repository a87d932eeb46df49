package httpapi

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"savdo/backend/internal/domain"
	"savdo/backend/internal/service"
	"savdo/backend/internal/session"
	"savdo/backend/internal/store/memory"
)

const testSecret = "test-secret-that-is-at-least-32-chars"

func newTestAPI(t *testing.T) *API {
	t.Helper()
	return newTestAPIWithOptions(t, Options{AllowedOrigin: "*", RateLimitRPS: 1000, RateLimitBurst: 1000})
}

func newTestAPIWithOptions(t *testing.T, opts Options) *API {
	t.Helper()
	repo := memory.NewSeeded()
	svc := service.New(repo, session.NewMemoryStore(time.Hour), time.UTC)
	auth := NewAuthManager(testSecret, time.Hour, repo)
	return New(svc, auth, NewReadyGate(repo), opts)
}

// doRequest sends body as JSON when it is non-nil. Empty token or csrf leave
// the matching header unset.
func doRequest(t *testing.T, api *API, method string, path string, token string, csrf string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	return res
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.NewDecoder(res.Body).Decode(dest); err != nil {
		t.Fatalf("decode response failed: %v (body: %s)", err, res.Body.String())
	}
}

func expectErrorCode(t *testing.T, res *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if res.Code != status {
		t.Fatalf("expected status %d, got %d (body: %s)", status, res.Code, res.Body.String())
	}
	var payload map[string]string
	decodeBody(t, res, &payload)
	if payload["code"] != code {
		t.Fatalf("expected error code %q, got %q", code, payload["code"])
	}
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	res := doRequest(t, api, http.MethodGet, "/healthz", "", "", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestHandleLogin_Success(t *testing.T) {
	api := newTestAPI(t)
	res := doRequest(t, api, http.MethodPost, "/api/v1/auth/login", "", "", domain.LoginRequest{Username: "Demo", Password: "owner123"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var payload domain.LoginResponse
	decodeBody(t, res, &payload)
	if payload.AccessToken == "" || payload.Role != domain.RoleOwner {
		t.Fatalf("unexpected login payload: %+v", payload)
	}
}

func TestHandleLogin_WrongPassword(t *testing.T) {
	api := newTestAPI(t)
	res := doRequest(t, api, http.MethodPost, "/api/v1/auth/login", "", "", domain.LoginRequest{Username: "demo", Password: "nope"})
	expectErrorCode(t, res, http.StatusUnauthorized, "unauthorized")
}

func TestUnpaidOwnerLoginReturns402(t *testing.T) {
	api := newTestAPI(t)
	res := doRequest(t, api, http.MethodPost, "/api/v1/auth/login", "", "", domain.LoginRequest{Username: "unpaid", Password: "owner123"})
	expectErrorCode(t, res, http.StatusPaymentRequired, "payment_required")
}

func TestCartCheckoutFlow(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "demo", "owner123")
	csrf := fetchCSRFToken(t, api)

	res := doRequest(t, api, http.MethodPost, "/api/v1/cart/items/3", token, csrf, domain.CartAddRequest{Quantity: "1,5"})
	if res.Code != http.StatusOK {
		t.Fatalf("add to cart expected 200, got %d (body: %s)", res.Code, res.Body.String())
	}
	res = doRequest(t, api, http.MethodPost, "/api/v1/cart/items/3", token, csrf, domain.CartAddRequest{Quantity: "2.5"})
	var view domain.CartView
	decodeBody(t, res, &view)
	if view.ActiveCart != 1 || len(view.Rows) != 1 || view.Rows[0].Quantity != "4" || view.Rows[0].Total != "40.00" {
		t.Fatalf("unexpected cart view: %+v", view)
	}

	res = doRequest(t, api, http.MethodPost, "/api/v1/cart/checkout", token, csrf, domain.CheckoutRequest{Description: "walk-in"})
	if res.Code != http.StatusCreated {
		t.Fatalf("checkout expected 201, got %d (body: %s)", res.Code, res.Body.String())
	}
	var receipt domain.CheckoutResponse
	decodeBody(t, res, &receipt)
	if receipt.Total != "40.00" || receipt.Name != "Demo Market" || len(receipt.Items) != 1 {
		t.Fatalf("unexpected checkout response: %+v", receipt)
	}

	res = doRequest(t, api, http.MethodGet, "/api/v1/products/3", token, "", nil)
	var product struct {
		Product domain.Product `json:"product"`
	}
	decodeBody(t, res, &product)
	if product.Product.Stock.String() != "96" {
		t.Fatalf("expected stock 96 after checkout, got %s", product.Product.Stock)
	}

	res = doRequest(t, api, http.MethodGet, "/api/v1/cart", token, "", nil)
	decodeBody(t, res, &view)
	if len(view.Rows) != 0 {
		t.Fatalf("expected active cart cleared, got %+v", view.Rows)
	}
}

func TestCheckoutEmptyCartReturns400(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "demo", "owner123")
	csrf := fetchCSRFToken(t, api)

	res := doRequest(t, api, http.MethodPost, "/api/v1/cart/checkout", token, csrf, nil)
	expectErrorCode(t, res, http.StatusBadRequest, "empty_cart")
}

func TestCartSlotsAreIndependent(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "demo", "owner123")
	csrf := fetchCSRFToken(t, api)

	doRequest(t, api, http.MethodPost, "/api/v1/cart/items/3", token, csrf, nil)
	res := doRequest(t, api, http.MethodPost, "/api/v1/cart/slots/2", token, csrf, nil)
	var view domain.CartView
	decodeBody(t, res, &view)
	if view.ActiveCart != 2 || len(view.Rows) != 0 {
		t.Fatalf("expected empty slot 2, got %+v", view)
	}

	res = doRequest(t, api, http.MethodPost, "/api/v1/cart/slots/4", token, csrf, nil)
	expectErrorCode(t, res, http.StatusBadRequest, "invalid_slot")
	res = doRequest(t, api, http.MethodPost, "/api/v1/cart/slots/abc", token, csrf, nil)
	expectErrorCode(t, res, http.StatusBadRequest, "invalid_slot")

	res = doRequest(t, api, http.MethodPost, "/api/v1/cart/slots/1", token, csrf, nil)
	decodeBody(t, res, &view)
	if len(view.Rows) != 1 || view.Rows[0].Quantity != "1" {
		t.Fatalf("expected slot 1 untouched, got %+v", view)
	}
}

func TestCartIsScopedToLoginSession(t *testing.T) {
	api := newTestAPI(t)
	first := loginAs(t, api, "demo", "owner123")
	second := loginAs(t, api, "demo", "owner123")
	csrf := fetchCSRFToken(t, api)

	doRequest(t, api, http.MethodPost, "/api/v1/cart/items/3", first, csrf, nil)

	res := doRequest(t, api, http.MethodGet, "/api/v1/cart", second, "", nil)
	var view domain.CartView
	decodeBody(t, res, &view)
	if len(view.Rows) != 0 {
		t.Fatalf("expected second session to start empty, got %+v", view.Rows)
	}
}

func TestAddToCartRejectsBadQuantityAndForeignProduct(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "demo", "owner123")
	csrf := fetchCSRFToken(t, api)

	res := doRequest(t, api, http.MethodPost, "/api/v1/cart/items/3", token, csrf, domain.CartAddRequest{Quantity: "0.0001"})
	expectErrorCode(t, res, http.StatusBadRequest, "invalid_quantity")

	// product 7 belongs to the unpaid tenant
	res = doRequest(t, api, http.MethodPost, "/api/v1/cart/items/7", token, csrf, nil)
	expectErrorCode(t, res, http.StatusNotFound, "not_found")

	res = doRequest(t, api, http.MethodDelete, "/api/v1/cart/items/4", token, csrf, nil)
	expectErrorCode(t, res, http.StatusNotFound, "not_found")
}

func TestProductCreateDuplicateReturns409(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "demo", "owner123")
	csrf := fetchCSRFToken(t, api)

	req := domain.ProductCreateRequest{Name: "Stapler", CostPrice: "3", SellingPrice: "4,50", Stock: "10"}
	res := doRequest(t, api, http.MethodPost, "/api/v1/products", token, csrf, req)
	if res.Code != http.StatusCreated {
		t.Fatalf("create product expected 201, got %d (body: %s)", res.Code, res.Body.String())
	}

	req.Name = "stapler"
	res = doRequest(t, api, http.MethodPost, "/api/v1/products", token, csrf, req)
	expectErrorCode(t, res, http.StatusConflict, "duplicate_name")

	res = doRequest(t, api, http.MethodPost, "/api/v1/products", token, csrf, domain.ProductCreateRequest{Name: "Glue", CostPrice: "abc", SellingPrice: "1"})
	expectErrorCode(t, res, http.StatusBadRequest, "invalid_input")
}

func TestProductSearchAndStock(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "demo", "owner123")
	csrf := fetchCSRFToken(t, api)

	res := doRequest(t, api, http.MethodGet, "/api/v1/products/search?q=4780000000011", token, "", nil)
	var found struct {
		Products []domain.Product `json:"products"`
	}
	decodeBody(t, res, &found)
	if len(found.Products) != 1 || found.Products[0].Name != "Pen" {
		t.Fatalf("expected qr search to find Pen, got %+v", found.Products)
	}

	res = doRequest(t, api, http.MethodPost, "/api/v1/products/3/stock", token, csrf, domain.StockAddRequest{Quantity: "0.5"})
	var stocked struct {
		Product domain.Product `json:"product"`
	}
	decodeBody(t, res, &stocked)
	if stocked.Product.Stock.String() != "100.5" {
		t.Fatalf("expected stock 100.5, got %s", stocked.Product.Stock)
	}

	res = doRequest(t, api, http.MethodDelete, "/api/v1/products/3", token, csrf, nil)
	if res.Code != http.StatusNoContent {
		t.Fatalf("delete expected 204, got %d", res.Code)
	}
	res = doRequest(t, api, http.MethodGet, "/api/v1/products/3", token, "", nil)
	expectErrorCode(t, res, http.StatusNotFound, "not_found")
}

func TestReturnCreatesReadyReceipt(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "demo", "owner123")
	csrf := fetchCSRFToken(t, api)

	res := doRequest(t, api, http.MethodPost, "/api/v1/returns", token, csrf, domain.ReturnRequest{ProductID: 3, Quantity: "1", Reason: "broken"})
	if res.Code != http.StatusCreated {
		t.Fatalf("return expected 201, got %d (body: %s)", res.Code, res.Body.String())
	}
	var payload domain.ReturnResponse
	decodeBody(t, res, &payload)
	if !payload.Receipt.Ready || payload.Receipt.Description != "Return: Pen" {
		t.Fatalf("unexpected return receipt: %+v", payload.Receipt)
	}

	res = doRequest(t, api, http.MethodGet, "/api/v1/returns", token, "", nil)
	var listed struct {
		Returns []domain.ReturnedProduct `json:"returns"`
	}
	decodeBody(t, res, &listed)
	if len(listed.Returns) != 1 {
		t.Fatalf("expected one return today, got %d", len(listed.Returns))
	}
}

func TestReceiptsListToggleAndExport(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "demo", "owner123")
	csrf := fetchCSRFToken(t, api)

	doRequest(t, api, http.MethodPost, "/api/v1/cart/items/3", token, csrf, domain.CartAddRequest{Quantity: "2"})
	res := doRequest(t, api, http.MethodPost, "/api/v1/cart/checkout", token, csrf, domain.CheckoutRequest{Description: "wholesale"})
	var receipt domain.CheckoutResponse
	decodeBody(t, res, &receipt)

	res = doRequest(t, api, http.MethodGet, "/api/v1/receipts?description=WHOLE&page=9", token, "", nil)
	var page domain.ReceiptPage
	decodeBody(t, res, &page)
	if page.TotalCount != 1 || page.Page != 1 || len(page.Receipts) != 1 || page.Receipts[0].Total != "20.00" {
		t.Fatalf("unexpected receipt page: %+v", page)
	}

	res = doRequest(t, api, http.MethodPost, "/api/v1/receipts/"+strconv.FormatInt(receipt.ReceiptID, 10)+"/toggle-ready", token, csrf, nil)
	var toggled domain.ReceiptReadyResponse
	decodeBody(t, res, &toggled)
	if !toggled.Ready {
		t.Fatalf("expected receipt to become ready")
	}

	res = doRequest(t, api, http.MethodGet, "/api/v1/receipts/export?ready=true", token, "", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("export expected 200, got %d", res.Code)
	}
	if got := res.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/csv") {
		t.Fatalf("expected csv content type, got %q", got)
	}
	rows, err := csv.NewReader(res.Body).ReadAll()
	if err != nil {
		t.Fatalf("read csv failed: %v", err)
	}
	if len(rows) != 2 || strings.Join(rows[0], ",") != strings.Join(receiptCSVHeader, ",") {
		t.Fatalf("unexpected csv rows: %v", rows)
	}
	if rows[1][3] != "true" || rows[1][4] != "20.00" {
		t.Fatalf("unexpected csv receipt row: %v", rows[1])
	}
}

func TestDashboardRejectsBadDate(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "demo", "owner123")

	res := doRequest(t, api, http.MethodGet, "/api/v1/dashboard?start_date=10-05-2026", token, "", nil)
	expectErrorCode(t, res, http.StatusBadRequest, "invalid_input")

	res = doRequest(t, api, http.MethodGet, "/api/v1/dashboard", token, "", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("dashboard expected 200, got %d", res.Code)
	}
	var payload domain.DashboardResponse
	decodeBody(t, res, &payload)
	if payload.Date != time.Now().UTC().Format("2006-01-02") {
		t.Fatalf("unexpected dashboard date %q", payload.Date)
	}
}

func TestRoleRestrictions(t *testing.T) {
	api := newTestAPI(t)
	owner := loginAs(t, api, "demo", "owner123")
	admin := loginAs(t, api, "admin", "admin123")
	csrf := fetchCSRFToken(t, api)

	res := doRequest(t, api, http.MethodGet, "/api/v1/cart", admin, "", nil)
	expectErrorCode(t, res, http.StatusForbidden, "forbidden")

	res = doRequest(t, api, http.MethodPost, "/api/v1/admin/accounts", owner, csrf, domain.AccountCreateRequest{Username: "shop2", Password: "secret1"})
	expectErrorCode(t, res, http.StatusForbidden, "forbidden")

	res = doRequest(t, api, http.MethodGet, "/api/v1/cart", "", "", nil)
	expectErrorCode(t, res, http.StatusUnauthorized, "unauthorized")

	res = doRequest(t, api, http.MethodGet, "/api/v1/cart", owner+"x", "", nil)
	expectErrorCode(t, res, http.StatusUnauthorized, "unauthorized")
}

func TestAdminManagesAccountsAndReadiness(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAs(t, api, "admin", "admin123")
	csrf := fetchCSRFToken(t, api)

	res := doRequest(t, api, http.MethodPost, "/api/v1/admin/accounts", admin, csrf, domain.AccountCreateRequest{
		Username: "Kiosk",
		Password: "secret1",
		Name:     "Kiosk 12",
		Ready:    true,
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("create account expected 201, got %d (body: %s)", res.Code, res.Body.String())
	}
	var created struct {
		Profile domain.Profile `json:"profile"`
	}
	decodeBody(t, res, &created)

	res = doRequest(t, api, http.MethodPost, "/api/v1/admin/accounts", admin, csrf, domain.AccountCreateRequest{Username: "kiosk", Password: "secret1"})
	expectErrorCode(t, res, http.StatusConflict, "duplicate_user")

	owner := loginAs(t, api, "kiosk", "secret1")
	res = doRequest(t, api, http.MethodGet, "/api/v1/profile", owner, "", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("profile expected 200, got %d", res.Code)
	}

	res = doRequest(t, api, http.MethodPatch, "/api/v1/admin/profiles/"+strconv.FormatInt(created.Profile.ID, 10)+"/ready", admin, csrf, domain.ProfileReadyRequest{Ready: false})
	if res.Code != http.StatusOK {
		t.Fatalf("set ready expected 200, got %d (body: %s)", res.Code, res.Body.String())
	}

	res = doRequest(t, api, http.MethodGet, "/api/v1/profile", owner, "", nil)
	expectErrorCode(t, res, http.StatusPaymentRequired, "payment_required")
}

func TestProfileUpdateAndAuditLog(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "demo", "owner123")
	csrf := fetchCSRFToken(t, api)

	name := "Demo Market 2"
	res := doRequest(t, api, http.MethodPatch, "/api/v1/profile", token, csrf, domain.ProfileUpdateRequest{Name: &name})
	if res.Code != http.StatusOK {
		t.Fatalf("update profile expected 200, got %d (body: %s)", res.Code, res.Body.String())
	}

	res = doRequest(t, api, http.MethodGet, "/api/v1/profile", token, "", nil)
	var payload map[string]any
	decodeBody(t, res, &payload)
	if payload["display_name"] != name {
		t.Fatalf("expected display name %q, got %v", name, payload["display_name"])
	}

	res = doRequest(t, api, http.MethodGet, "/api/v1/audit-logs?limit=5", token, "", nil)
	var logs struct {
		Logs []domain.AuditLog `json:"logs"`
	}
	decodeBody(t, res, &logs)
	if len(logs.Logs) == 0 {
		t.Fatalf("expected audit log entry for profile update")
	}
}
