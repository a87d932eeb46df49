package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"savdo/backend/internal/domain"
	"savdo/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const productColumns = `id, profile_id, name, price, selling_price, stock, COALESCE(qrcode, '')`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.ProfileID, &p.Name, &p.CostPrice, &p.SellingPrice, &p.Stock, &p.QRCode)
	return p, err
}

func (s *Store) CreateAccount(ctx context.Context, user domain.UserAccount, profile domain.Profile) (*domain.Profile, error) {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return nil, store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = domain.RoleOwner
	}
	if profile.AddedTime.IsZero() {
		profile.AddedTime = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,true,now())
	`, username, user.Password, user.Role)
	if err != nil {
		return nil, mapConstraintError(err)
	}

	profile.Username = username
	err = tx.QueryRowContext(ctx, `
		INSERT INTO profiles (username, name, location, phone, payment, added_time, description, ready)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id
	`, username, profile.Name, profile.Location, profile.Phone, profile.Payment, profile.AddedTime, profile.Description, profile.Ready).Scan(&profile.ID)
	if err != nil {
		return nil, mapConstraintError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *Store) GetProfile(ctx context.Context, profileID int64) (*domain.Profile, error) {
	var p domain.Profile
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, name, location, phone, payment, added_time, description, ready
		FROM profiles
		WHERE id = $1
	`, profileID).Scan(&p.ID, &p.Username, &p.Name, &p.Location, &p.Phone, &p.Payment, &p.AddedTime, &p.Description, &p.Ready)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	p.AddedTime = p.AddedTime.UTC()
	return &p, nil
}

func (s *Store) UpdateProfile(ctx context.Context, profile domain.Profile) (*domain.Profile, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE profiles
		SET name = $2, location = $3, phone = $4, description = $5
		WHERE id = $1
	`, profile.ID, profile.Name, profile.Location, profile.Phone, profile.Description)
	if err != nil {
		return nil, err
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, profile.ID)
}

func (s *Store) SetProfileReady(ctx context.Context, profileID int64, ready bool) (*domain.Profile, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE profiles SET ready = $2 WHERE id = $1`, profileID, ready)
	if err != nil {
		return nil, err
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, profileID)
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = domain.RoleOwner
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,true,$4)
	`, username, user.Password, user.Role, user.CreatedAt)
	return mapConstraintError(err)
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.username, u.password, u.role, COALESCE(p.id, 0), u.active, u.created_at
		FROM users u
		LEFT JOIN profiles p ON p.username = u.username
		ORDER BY u.username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.ProfileID, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.CreatedAt = u.CreatedAt.UTC()
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password = $2 WHERE username = $1`, username, password)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) ListProducts(ctx context.Context, profileID int64) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE profile_id = $1
		ORDER BY id
	`, profileID)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

func (s *Store) GetProduct(ctx context.Context, profileID int64, productID int64) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1 AND profile_id = $2
	`, productID, profileID)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) FindProductByName(ctx context.Context, profileID int64, name string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE profile_id = $1 AND lower(name) = lower($2)
	`, profileID, name)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) SearchProducts(ctx context.Context, profileID int64, query string, limit int) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Product{}, nil
	}
	if limit < 1 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE profile_id = $1
		  AND (strpos(lower(name), lower($2)) > 0 OR qrcode = $2)
		ORDER BY id
		LIMIT $3
	`, profileID, query, limit)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ProfileID == 0 || strings.TrimSpace(product.Name) == "" {
		return nil, store.ErrInvalidInput
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO products (profile_id, name, price, selling_price, stock, qrcode)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id
	`, product.ProfileID, product.Name, product.CostPrice, product.SellingPrice, product.Stock, nullIfEmpty(product.QRCode)).Scan(&product.ID)
	if err != nil {
		return nil, mapConstraintError(err)
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $3, price = $4, selling_price = $5, stock = $6, qrcode = $7
		WHERE id = $1 AND profile_id = $2
	`, product.ID, product.ProfileID, product.Name, product.CostPrice, product.SellingPrice, product.Stock, nullIfEmpty(product.QRCode))
	if err != nil {
		return nil, mapConstraintError(err)
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}

	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, profileID int64, productID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1 AND profile_id = $2`, productID, profileID)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) AddStock(ctx context.Context, profileID int64, productID int64, qty decimal.Decimal) (*domain.Product, error) {
	if !qty.IsPositive() {
		return nil, store.ErrInvalidInput
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET stock = stock + $3
		WHERE id = $1 AND profile_id = $2
		RETURNING `+productColumns, productID, profileID, qty)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Receipt, error) {
	if len(sale.Lines) == 0 {
		return nil, store.ErrInvalidInput
	}
	for _, line := range sale.Lines {
		if !line.Quantity.IsPositive() {
			return nil, store.ErrInvalidInput
		}
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// Lock rows in id order so concurrent checkouts sharing products cannot deadlock.
	ordered := slices.Clone(sale.Lines)
	slices.SortStableFunc(ordered, func(a, b domain.SaleLine) int {
		return compareInt64(a.ProductID, b.ProductID)
	})
	for _, line := range ordered {
		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $3
			WHERE id = $1 AND profile_id = $2
		`, line.ProductID, sale.ProfileID, line.Quantity)
		if err != nil {
			return nil, err
		}
		if err := expectAffected(res); err != nil {
			return nil, err
		}
	}

	createdAt := sale.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	receipt := domain.Receipt{
		ProfileID:   sale.ProfileID,
		Username:    sale.Username,
		CreatedAt:   createdAt,
		Description: sale.Description,
		Ready:       false,
		Items:       make([]domain.ReceiptItem, 0, len(sale.Lines)),
	}
	if err := insertReceipt(ctx, tx, &receipt); err != nil {
		return nil, err
	}
	for _, line := range sale.Lines {
		item := domain.ReceiptItem{
			ReceiptID:   receipt.ID,
			ProductName: line.Name,
			Price:       line.UnitPrice,
			Quantity:    line.Quantity,
		}
		if err := insertReceiptItem(ctx, tx, &item); err != nil {
			return nil, err
		}
		receipt.Items = append(receipt.Items, item)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (s *Store) CreateReturn(ctx context.Context, ret domain.ReturnedProduct) (*domain.ReturnedProduct, *domain.Receipt, error) {
	if !ret.Quantity.IsPositive() {
		return nil, nil, store.ErrInvalidInput
	}
	if ret.Date.IsZero() {
		ret.Date = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var sellingPrice decimal.Decimal
	err = tx.QueryRowContext(ctx, `
		UPDATE products
		SET stock = stock + $3
		WHERE id = $1 AND profile_id = $2
		RETURNING name, selling_price
	`, ret.ProductID, ret.ProfileID, ret.Quantity).Scan(&ret.ProductName, &sellingPrice)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, store.ErrNotFound
		}
		return nil, nil, err
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO returned_products (profile_id, username, product_id, product_name, quantity, reason, date)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`, ret.ProfileID, ret.Username, ret.ProductID, ret.ProductName, ret.Quantity, ret.Reason, ret.Date).Scan(&ret.ID)
	if err != nil {
		return nil, nil, err
	}

	receipt := domain.Receipt{
		ProfileID:   ret.ProfileID,
		Username:    ret.Username,
		CreatedAt:   ret.Date,
		Description: domain.ReturnReceiptDescription(ret.ProductName),
		Ready:       true,
	}
	if err := insertReceipt(ctx, tx, &receipt); err != nil {
		return nil, nil, err
	}
	item := domain.ReceiptItem{
		ReceiptID:   receipt.ID,
		ProductName: ret.ProductName,
		Price:       sellingPrice,
		Quantity:    ret.Quantity.Neg(),
	}
	if err := insertReceiptItem(ctx, tx, &item); err != nil {
		return nil, nil, err
	}
	receipt.Items = []domain.ReceiptItem{item}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return &ret, &receipt, nil
}

func insertReceipt(ctx context.Context, tx *sql.Tx, receipt *domain.Receipt) error {
	return tx.QueryRowContext(ctx, `
		INSERT INTO receipts (profile_id, username, created_at, description, ready)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, receipt.ProfileID, receipt.Username, receipt.CreatedAt, receipt.Description, receipt.Ready).Scan(&receipt.ID)
}

func insertReceiptItem(ctx context.Context, tx *sql.Tx, item *domain.ReceiptItem) error {
	return tx.QueryRowContext(ctx, `
		INSERT INTO receipt_items (receipt_id, product_name, price, quantity)
		VALUES ($1,$2,$3,$4)
		RETURNING id
	`, item.ReceiptID, item.ProductName, item.Price, item.Quantity).Scan(&item.ID)
}

func (s *Store) ListReceipts(ctx context.Context, profileID int64, filter domain.ReceiptFilter) ([]domain.Receipt, int, error) {
	where := []string{"profile_id = $1"}
	args := []any{profileID}
	addArg := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if !filter.Range.From.IsZero() {
		addArg("created_at >= $%d", filter.Range.From)
	}
	if !filter.Range.To.IsZero() {
		addArg("created_at < $%d", filter.Range.To)
	}
	if desc := strings.TrimSpace(filter.Description); desc != "" {
		addArg("strpos(lower(description), lower($%d)) > 0", desc)
	}
	if filter.Ready != nil {
		addArg("ready = $%d", *filter.Ready)
	}
	whereSQL := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM receipts WHERE `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	pageSQL := `
		SELECT id, profile_id, username, created_at, description, ready
		FROM receipts
		WHERE ` + whereSQL + `
		ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		pageSQL += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		pageSQL += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, pageSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	receipts := make([]domain.Receipt, 0, 32)
	ids := make([]int64, 0, 32)
	for rows.Next() {
		var r domain.Receipt
		if err := rows.Scan(&r.ID, &r.ProfileID, &r.Username, &r.CreatedAt, &r.Description, &r.Ready); err != nil {
			return nil, 0, err
		}
		r.CreatedAt = r.CreatedAt.UTC()
		r.Items = []domain.ReceiptItem{}
		receipts = append(receipts, r)
		ids = append(ids, r.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(ids) == 0 {
		return receipts, total, nil
	}

	items, err := s.itemsByReceipt(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range receipts {
		if list, ok := items[receipts[i].ID]; ok {
			receipts[i].Items = list
		}
	}
	return receipts, total, nil
}

func (s *Store) itemsByReceipt(ctx context.Context, receiptIDs []int64) (map[int64][]domain.ReceiptItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, receipt_id, product_name, price, quantity
		FROM receipt_items
		WHERE receipt_id = ANY($1)
		ORDER BY id
	`, receiptIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[int64][]domain.ReceiptItem, len(receiptIDs))
	for rows.Next() {
		var item domain.ReceiptItem
		if err := rows.Scan(&item.ID, &item.ReceiptID, &item.ProductName, &item.Price, &item.Quantity); err != nil {
			return nil, err
		}
		items[item.ReceiptID] = append(items[item.ReceiptID], item)
	}
	return items, rows.Err()
}

func (s *Store) ToggleReceiptReady(ctx context.Context, profileID int64, receiptID int64) (*domain.Receipt, error) {
	var r domain.Receipt
	err := s.db.QueryRowContext(ctx, `
		UPDATE receipts
		SET ready = NOT ready
		WHERE id = $1 AND profile_id = $2
		RETURNING id, profile_id, username, created_at, description, ready
	`, receiptID, profileID).Scan(&r.ID, &r.ProfileID, &r.Username, &r.CreatedAt, &r.Description, &r.Ready)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	r.CreatedAt = r.CreatedAt.UTC()

	items, err := s.itemsByReceipt(ctx, []int64{r.ID})
	if err != nil {
		return nil, err
	}
	r.Items = items[r.ID]
	if r.Items == nil {
		r.Items = []domain.ReceiptItem{}
	}
	return &r, nil
}

func (s *Store) ListReturns(ctx context.Context, profileID int64, dateRange domain.DateRange) ([]domain.ReturnedProduct, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, profile_id, username, product_id, product_name, quantity, reason, date
		FROM returned_products
		WHERE profile_id = $1
		  AND ($2::timestamptz IS NULL OR date >= $2)
		  AND ($3::timestamptz IS NULL OR date < $3)
		ORDER BY date DESC, id DESC
	`, profileID, nullTime(dateRange.From), nullTime(dateRange.To))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	returns := make([]domain.ReturnedProduct, 0, 32)
	for rows.Next() {
		var ret domain.ReturnedProduct
		if err := rows.Scan(&ret.ID, &ret.ProfileID, &ret.Username, &ret.ProductID, &ret.ProductName, &ret.Quantity, &ret.Reason, &ret.Date); err != nil {
			return nil, err
		}
		ret.Date = ret.Date.UTC()
		returns = append(returns, ret)
	}
	return returns, rows.Err()
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, profile_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.ProfileID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, profileID int64, dateRange domain.DateRange, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, profile_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE profile_id = $1
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		  AND ($3::timestamptz IS NULL OR created_at < $3)
		ORDER BY created_at DESC
		LIMIT $4
	`, profileID, nullTime(dateRange.From), nullTime(dateRange.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ProfileID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

func collectProducts(rows *sql.Rows) ([]domain.Product, error) {
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// mapConstraintError turns unique violations into the matching store sentinel.
func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case "products_profile_name_key":
		return store.ErrDuplicateName
	case "products_profile_qrcode_key":
		return store.ErrDuplicateQRCode
	case "users_pkey", "profiles_username_key":
		return store.ErrDuplicateUser
	default:
		return fmt.Errorf("%w: %s", store.ErrInvalidInput, pgErr.ConstraintName)
	}
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

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val time.Time) any {
	if val.IsZero() {
		return nil
	}
	return val
}
