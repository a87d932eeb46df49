package memory

import (
	"context"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"savdo/backend/internal/domain"
	"savdo/backend/internal/store"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "memory-store").Logger()

type Store struct {
	mu              sync.RWMutex
	seq             int64
	profiles        map[int64]domain.Profile
	usersByUsername map[string]domain.UserAccount
	products        map[int64]domain.Product
	receipts        map[int64]domain.Receipt
	returns         []domain.ReturnedProduct
	auditLogs       []domain.AuditLog
}

func New() *Store {
	return &Store{
		profiles:        make(map[int64]domain.Profile),
		usersByUsername: make(map[string]domain.UserAccount),
		products:        make(map[int64]domain.Product),
		receipts:        make(map[int64]domain.Receipt),
		returns:         make([]domain.ReturnedProduct, 0, 32),
		auditLogs:       make([]domain.AuditLog, 0, 128),
	}
}

// seedUsers hashes the dev/demo credentials. Passwords come from
// SEED_ADMIN_PASSWORD and SEED_OWNER_PASSWORD with hardcoded dev defaults.
// The memory store is never used when DATABASE_URL is set.
func seedUsers() map[string]string {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	ownerPwd := envOr("SEED_OWNER_PASSWORD", "owner123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_OWNER_PASSWORD") == "" {
		logger.Warn().Msg("using default dev credentials, set SEED_ADMIN_PASSWORD and SEED_OWNER_PASSWORD to override")
	}

	hashes := make(map[string]string, 2)
	for role, pwd := range map[string]string{domain.RoleAdmin: adminPwd, domain.RoleOwner: ownerPwd} {
		hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
		if err != nil {
			logger.Fatal().Err(err).Str("role", role).Msg("failed to hash seed password")
		}
		hashes[role] = string(hash)
	}
	return hashes
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewSeeded returns a store with an admin, a paid demo shop and an unpaid shop.
func NewSeeded() *Store {
	s := New()
	hashes := seedUsers()
	now := time.Now().UTC()
	ctx := context.Background()

	_ = s.CreateUser(ctx, domain.UserAccount{
		Username:  "admin",
		Password:  hashes[domain.RoleAdmin],
		Role:      domain.RoleAdmin,
		CreatedAt: now,
	})

	demo, _ := s.CreateAccount(ctx, domain.UserAccount{Username: "demo", Password: hashes[domain.RoleOwner], Role: domain.RoleOwner}, domain.Profile{
		Name:        "Demo Market",
		Location:    "Tashkent, Chilonzor 7",
		Phone:       "+998901234567",
		Payment:     150000,
		AddedTime:   now,
		Description: "demo tenant",
		Ready:       true,
	})
	unpaid, _ := s.CreateAccount(ctx, domain.UserAccount{Username: "unpaid", Password: hashes[domain.RoleOwner], Role: domain.RoleOwner}, domain.Profile{
		Name:      "Unpaid Shop",
		AddedTime: now,
		Ready:     false,
	})

	seed := []domain.Product{
		{ProfileID: demo.ID, Name: "Pen", CostPrice: dec("5"), SellingPrice: dec("10"), Stock: dec("100"), QRCode: "4780000000011"},
		{ProfileID: demo.ID, Name: "Notebook A5", CostPrice: dec("12.50"), SellingPrice: dec("18.00"), Stock: dec("40"), QRCode: "4780000000028"},
		{ProfileID: demo.ID, Name: "Ink Cartridge", CostPrice: dec("30"), SellingPrice: dec("45"), Stock: dec("12")},
		{ProfileID: demo.ID, Name: "Sugar (loose, kg)", CostPrice: dec("9.20"), SellingPrice: dec("11.50"), Stock: dec("25.5")},
		{ProfileID: unpaid.ID, Name: "Pen", CostPrice: dec("4"), SellingPrice: dec("8"), Stock: dec("10")},
	}
	for _, p := range seed {
		_, _ = s.CreateProduct(ctx, p)
	}
	return s
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *Store) CreateAccount(_ context.Context, user domain.UserAccount, profile domain.Profile) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return nil, store.ErrDuplicateUser
	}

	profile.ID = s.nextID()
	profile.Username = username
	if profile.AddedTime.IsZero() {
		profile.AddedTime = time.Now().UTC()
	}
	s.profiles[profile.ID] = profile

	user.Username = username
	user.ProfileID = profile.ID
	if user.Role == "" {
		user.Role = domain.RoleOwner
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[username] = user

	created := profile
	return &created, nil
}

func (s *Store) GetProfile(_ context.Context, profileID int64) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[profileID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &profile, nil
}

func (s *Store) UpdateProfile(_ context.Context, profile domain.Profile) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.profiles[profile.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	existing.Name = profile.Name
	existing.Location = profile.Location
	existing.Phone = profile.Phone
	existing.Description = profile.Description
	s.profiles[profile.ID] = existing
	return &existing, nil
}

func (s *Store) SetProfileReady(_ context.Context, profileID int64, ready bool) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[profileID]
	if !ok {
		return nil, store.ErrNotFound
	}
	profile.Ready = ready
	s.profiles[profileID] = profile
	return &profile, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrDuplicateUser
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleOwner
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) ListProducts(_ context.Context, profileID int64) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.ProfileID == profileID {
			products = append(products, p)
		}
	}
	slices.SortFunc(products, compareProductID)
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, profileID int64, productID int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[productID]
	if !ok || p.ProfileID != profileID {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) FindProductByName(_ context.Context, profileID int64, name string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if p.ProfileID == profileID && strings.EqualFold(p.Name, name) {
			found := p
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) SearchProducts(_ context.Context, profileID int64, query string, limit int) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Product{}, nil
	}
	if limit < 1 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)
	matches := make([]domain.Product, 0, limit)
	for _, p := range s.products {
		if p.ProfileID != profileID {
			continue
		}
		if strings.Contains(strings.ToLower(p.Name), needle) || (p.QRCode != "" && p.QRCode == query) {
			matches = append(matches, p)
		}
	}
	slices.SortFunc(matches, compareProductID)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ProfileID == 0 || strings.TrimSpace(product.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	if err := s.checkUniqueLocked(product); err != nil {
		return nil, err
	}
	product.ID = s.nextID()
	s.products[product.ID] = product

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ID]
	if !ok || existing.ProfileID != product.ProfileID {
		return nil, store.ErrNotFound
	}
	if err := s.checkUniqueLocked(product); err != nil {
		return nil, err
	}
	s.products[product.ID] = product

	updated := product
	return &updated, nil
}

// checkUniqueLocked enforces (profile, lower(name)) and (profile, qrcode) uniqueness.
func (s *Store) checkUniqueLocked(product domain.Product) error {
	for _, other := range s.products {
		if other.ID == product.ID || other.ProfileID != product.ProfileID {
			continue
		}
		if strings.EqualFold(other.Name, product.Name) {
			return store.ErrDuplicateName
		}
		if product.QRCode != "" && other.QRCode == product.QRCode {
			return store.ErrDuplicateQRCode
		}
	}
	return nil
}

func (s *Store) DeleteProduct(_ context.Context, profileID int64, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok || p.ProfileID != profileID {
		return store.ErrNotFound
	}
	delete(s.products, productID)
	return nil
}

func (s *Store) AddStock(_ context.Context, profileID int64, productID int64, qty decimal.Decimal) (*domain.Product, error) {
	if !qty.IsPositive() {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok || p.ProfileID != profileID {
		return nil, store.ErrNotFound
	}
	p.Stock = p.Stock.Add(qty)
	s.products[productID] = p
	return &p, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Receipt, error) {
	if len(sale.Lines) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate every line before touching stock so a failure writes nothing.
	for _, line := range sale.Lines {
		p, ok := s.products[line.ProductID]
		if !ok || p.ProfileID != sale.ProfileID {
			return nil, store.ErrNotFound
		}
		if !line.Quantity.IsPositive() {
			return nil, store.ErrInvalidInput
		}
	}

	createdAt := sale.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	receipt := domain.Receipt{
		ID:          s.nextID(),
		ProfileID:   sale.ProfileID,
		Username:    sale.Username,
		CreatedAt:   createdAt,
		Description: sale.Description,
		Ready:       false,
		Items:       make([]domain.ReceiptItem, 0, len(sale.Lines)),
	}
	for _, line := range sale.Lines {
		p := s.products[line.ProductID]
		p.Stock = p.Stock.Sub(line.Quantity)
		s.products[p.ID] = p

		receipt.Items = append(receipt.Items, domain.ReceiptItem{
			ID:          s.nextID(),
			ReceiptID:   receipt.ID,
			ProductName: line.Name,
			Price:       line.UnitPrice,
			Quantity:    line.Quantity,
		})
	}
	s.receipts[receipt.ID] = receipt

	created := cloneReceipt(receipt)
	return &created, nil
}

func (s *Store) CreateReturn(_ context.Context, ret domain.ReturnedProduct) (*domain.ReturnedProduct, *domain.Receipt, error) {
	if !ret.Quantity.IsPositive() {
		return nil, nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[ret.ProductID]
	if !ok || p.ProfileID != ret.ProfileID {
		return nil, nil, store.ErrNotFound
	}
	p.Stock = p.Stock.Add(ret.Quantity)
	s.products[p.ID] = p

	if ret.Date.IsZero() {
		ret.Date = time.Now().UTC()
	}
	ret.ID = s.nextID()
	ret.ProductName = p.Name
	s.returns = append(s.returns, ret)

	receipt := domain.Receipt{
		ID:          s.nextID(),
		ProfileID:   ret.ProfileID,
		Username:    ret.Username,
		CreatedAt:   ret.Date,
		Description: domain.ReturnReceiptDescription(p.Name),
		Ready:       true,
	}
	receipt.Items = []domain.ReceiptItem{{
		ID:          s.nextID(),
		ReceiptID:   receipt.ID,
		ProductName: p.Name,
		Price:       p.SellingPrice,
		Quantity:    ret.Quantity.Neg(),
	}}
	s.receipts[receipt.ID] = receipt

	createdReturn := ret
	createdReceipt := cloneReceipt(receipt)
	return &createdReturn, &createdReceipt, nil
}

func (s *Store) ListReceipts(_ context.Context, profileID int64, filter domain.ReceiptFilter) ([]domain.Receipt, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(filter.Description))
	matched := make([]domain.Receipt, 0, 64)
	for _, r := range s.receipts {
		if r.ProfileID != profileID || !filter.Range.Contains(r.CreatedAt) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(r.Description), needle) {
			continue
		}
		if filter.Ready != nil && r.Ready != *filter.Ready {
			continue
		}
		matched = append(matched, r)
	}
	slices.SortFunc(matched, func(a, b domain.Receipt) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareInt64(b.ID, a.ID)
	})

	total := len(matched)
	start := min(max(filter.Offset, 0), total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}

	page := make([]domain.Receipt, 0, end-start)
	for _, r := range matched[start:end] {
		page = append(page, cloneReceipt(r))
	}
	return page, total, nil
}

func (s *Store) ToggleReceiptReady(_ context.Context, profileID int64, receiptID int64) (*domain.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.receipts[receiptID]
	if !ok || r.ProfileID != profileID {
		return nil, store.ErrNotFound
	}
	r.Ready = !r.Ready
	s.receipts[receiptID] = r

	updated := cloneReceipt(r)
	return &updated, nil
}

func (s *Store) ListReturns(_ context.Context, profileID int64, dateRange domain.DateRange) ([]domain.ReturnedProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	returns := make([]domain.ReturnedProduct, 0, len(s.returns))
	for _, ret := range s.returns {
		if ret.ProfileID == profileID && dateRange.Contains(ret.Date) {
			returns = append(returns, ret)
		}
	}
	slices.SortFunc(returns, func(a, b domain.ReturnedProduct) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return compareInt64(b.ID, a.ID)
	})
	return returns, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, profileID int64, dateRange domain.DateRange, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]domain.AuditLog, 0, limit)
	for i := len(s.auditLogs) - 1; i >= 0; i-- {
		entry := s.auditLogs[i]
		if entry.ProfileID != profileID || !dateRange.Contains(entry.CreatedAt) {
			continue
		}
		logs = append(logs, entry)
		if len(logs) >= limit {
			break
		}
	}
	return logs, nil
}

func cloneReceipt(src domain.Receipt) domain.Receipt {
	dst := src
	dst.Items = slices.Clone(src.Items)
	if dst.Items == nil {
		dst.Items = []domain.ReceiptItem{}
	}
	return dst
}

func compareProductID(a, b domain.Product) int {
	return compareInt64(a.ID, b.ID)
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
