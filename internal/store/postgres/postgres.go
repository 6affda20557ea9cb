package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"shoptrack/backend/internal/domain"
	"shoptrack/backend/internal/store"
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

// Migrate creates the schema when absent. Statements are idempotent so boot
// can run it unconditionally.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			brand TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			price NUMERIC(12,2) NOT NULL DEFAULT 0,
			cost NUMERIC(12,2) NOT NULL DEFAULT 0,
			quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
			low_stock_threshold INTEGER NOT NULL DEFAULT 5,
			last_sold TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id TEXT PRIMARY KEY,
			batch_id TEXT NOT NULL DEFAULT '',
			product_id TEXT NOT NULL,
			product_name TEXT NOT NULL,
			brand TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			quantity INTEGER NOT NULL,
			price NUMERIC(12,2) NOT NULL,
			cost NUMERIC(12,2) NOT NULL,
			subtotal NUMERIC(12,2) NOT NULL,
			discount NUMERIC(12,2) NOT NULL DEFAULT 0,
			total NUMERIC(12,2) NOT NULL,
			payment_method TEXT NOT NULL,
			customer_notes TEXT NOT NULL DEFAULT '',
			receipt_number TEXT NOT NULL DEFAULT '',
			sale_date TEXT NOT NULL,
			sale_time TEXT NOT NULL,
			ts TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_ts ON sales (ts DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_batch ON sales (batch_id)`,
		`CREATE TABLE IF NOT EXISTS categories (
			name TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS brands (
			name TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS expenses (
			id TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			amount NUMERIC(12,2) NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			payment_method TEXT NOT NULL DEFAULT 'cash',
			notes TEXT NOT NULL DEFAULT '',
			expense_date TEXT NOT NULL,
			expense_time TEXT NOT NULL,
			ts TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			id TEXT PRIMARY KEY,
			store_name TEXT NOT NULL DEFAULT 'My Store',
			currency TEXT NOT NULL DEFAULT 'NGN',
			tax_rate NUMERIC(5,2) NOT NULL DEFAULT 0,
			low_stock_threshold INTEGER NOT NULL DEFAULT 5,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, brand, category, price, cost, quantity, low_stock_threshold, last_sold, created_at
		FROM products
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
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

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, brand, category, price, cost, quantity, low_stock_threshold, last_sold, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, product.ID, product.Name, product.Brand, product.Category, product.Price, product.Cost,
		product.Quantity, product.LowStockThreshold, product.LastSold, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, brand, category, price, cost, quantity, low_stock_threshold, last_sold, created_at
		FROM products
		WHERE id = $1
	`, id)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, brand = $3, category = $4, price = $5, cost = $6,
			quantity = $7, low_stock_threshold = $8, last_sold = $9
		WHERE id = $1
	`, product.ID, product.Name, product.Brand, product.Category, product.Price, product.Cost,
		product.Quantity, product.LowStockThreshold, product.LastSold)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := product
	return &updated, nil
}

func (s *Store) ListSales(ctx context.Context, batchID string) ([]domain.Sale, error) {
	query := `
		SELECT id, batch_id, product_id, product_name, brand, category, quantity,
			price, cost, subtotal, discount, total, payment_method, customer_notes,
			receipt_number, sale_date, sale_time, ts
		FROM sales`
	args := make([]any, 0, 1)
	if batchID != "" {
		query += ` WHERE batch_id = $1`
		args = append(args, batchID)
	}
	query += ` ORDER BY ts DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 128)
	for rows.Next() {
		var sale domain.Sale
		if err := rows.Scan(&sale.ID, &sale.BatchID, &sale.ProductID, &sale.ProductName,
			&sale.Brand, &sale.Category, &sale.Quantity, &sale.Price, &sale.Cost,
			&sale.Subtotal, &sale.Discount, &sale.Total, &sale.PaymentMethod,
			&sale.CustomerNotes, &sale.ReceiptNumber, &sale.SaleDate, &sale.SaleTime, &sale.Timestamp); err != nil {
			return nil, err
		}
		sale.Timestamp = sale.Timestamp.UTC()
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	created, err := s.CreateSaleBatch(ctx, []domain.Sale{sale})
	if err != nil {
		return nil, err
	}
	return &created[0], nil
}

// CreateSaleBatch writes all sale rows and their stock decrements in one
// serializable transaction. The decrement carries the quantity guard in its
// WHERE clause: zero rows affected means the product is missing or short,
// and the whole batch rolls back.
func (s *Store) CreateSaleBatch(ctx context.Context, sales []domain.Sale) ([]domain.Sale, error) {
	if len(sales) == 0 {
		return nil, store.ErrValidation
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	created := make([]domain.Sale, 0, len(sales))
	for _, sale := range sales {
		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET quantity = quantity - $2, last_sold = $3
			WHERE id = $1 AND quantity >= $2
		`, sale.ProductID, sale.Quantity, sale.Timestamp)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, s.insufficientStock(ctx, tx, sale)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sales (id, batch_id, product_id, product_name, brand, category, quantity,
				price, cost, subtotal, discount, total, payment_method, customer_notes,
				receipt_number, sale_date, sale_time, ts)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		`, sale.ID, sale.BatchID, sale.ProductID, sale.ProductName, sale.Brand, sale.Category,
			sale.Quantity, sale.Price, sale.Cost, sale.Subtotal, sale.Discount, sale.Total,
			sale.PaymentMethod, sale.CustomerNotes, sale.ReceiptNumber, sale.SaleDate, sale.SaleTime, sale.Timestamp); err != nil {
			return nil, err
		}

		created = append(created, sale)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

// insufficientStock builds the typed error for a failed decrement, reading
// the current quantity inside the same transaction.
func (s *Store) insufficientStock(ctx context.Context, tx *sql.Tx, sale domain.Sale) error {
	var name string
	var available int
	err := tx.QueryRowContext(ctx, `SELECT name, quantity FROM products WHERE id = $1`, sale.ProductID).Scan(&name, &available)
	if errors.Is(err, sql.ErrNoRows) {
		return &store.InsufficientStockError{Requested: sale.Quantity}
	}
	if err != nil {
		return err
	}
	return &store.InsufficientStockError{ProductName: name, Requested: sale.Quantity, Available: available}
}

func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	return s.listNames(ctx, `SELECT name FROM categories ORDER BY name ASC`)
}

func (s *Store) CreateCategory(ctx context.Context, name string) error {
	return s.createName(ctx, `INSERT INTO categories (name) VALUES ($1)`, name)
}

func (s *Store) DeleteCategory(ctx context.Context, name string) error {
	return s.deleteName(ctx, `DELETE FROM categories WHERE name = $1`, name)
}

func (s *Store) ListBrands(ctx context.Context) ([]string, error) {
	return s.listNames(ctx, `SELECT name FROM brands ORDER BY name ASC`)
}

func (s *Store) CreateBrand(ctx context.Context, name string) error {
	return s.createName(ctx, `INSERT INTO brands (name) VALUES ($1)`, name)
}

func (s *Store) DeleteBrand(ctx context.Context, name string) error {
	return s.deleteName(ctx, `DELETE FROM brands WHERE name = $1`, name)
}

func (s *Store) listNames(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make([]string, 0, 32)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

func (s *Store) createName(ctx context.Context, query string, name string) error {
	if _, err := s.db.ExecContext(ctx, query, name); err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) deleteName(ctx context.Context, query string, name string) error {
	res, err := s.db.ExecContext(ctx, query, name)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description, amount, category, payment_method, notes, expense_date, expense_time, ts
		FROM expenses
		ORDER BY ts DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, 64)
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(&e.ID, &e.Description, &e.Amount, &e.Category, &e.PaymentMethod,
			&e.Notes, &e.Date, &e.Time, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Timestamp = e.Timestamp.UTC()
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, description, amount, category, payment_method, notes, expense_date, expense_time, ts)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, expense.ID, expense.Description, expense.Amount, expense.Category, expense.PaymentMethod,
		expense.Notes, expense.Date, expense.Time, expense.Timestamp)
	if err != nil {
		return nil, err
	}

	created := expense
	return &created, nil
}

// GetSettings lazily creates the singleton row with a guarded insert so
// concurrent first reads still end up with exactly one row.
func (s *Store) GetSettings(ctx context.Context) (*domain.Settings, error) {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (id) VALUES ($1) ON CONFLICT (id) DO NOTHING
	`, domain.SettingsID); err != nil {
		return nil, err
	}

	var settings domain.Settings
	err := s.db.QueryRowContext(ctx, `
		SELECT id, store_name, currency, tax_rate, low_stock_threshold, updated_at
		FROM settings
		WHERE id = $1
	`, domain.SettingsID).Scan(&settings.ID, &settings.StoreName, &settings.Currency,
		&settings.TaxRate, &settings.LowStockThreshold, &settings.UpdatedAt)
	if err != nil {
		return nil, err
	}
	settings.UpdatedAt = settings.UpdatedAt.UTC()
	return &settings, nil
}

func (s *Store) UpdateSettings(ctx context.Context, settings domain.Settings) (*domain.Settings, error) {
	settings.ID = domain.SettingsID
	settings.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (id, store_name, currency, tax_rate, low_stock_threshold, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET
			store_name = EXCLUDED.store_name,
			currency = EXCLUDED.currency,
			tax_rate = EXCLUDED.tax_rate,
			low_stock_threshold = EXCLUDED.low_stock_threshold,
			updated_at = EXCLUDED.updated_at
	`, settings.ID, settings.StoreName, settings.Currency, settings.TaxRate,
		settings.LowStockThreshold, settings.UpdatedAt)
	if err != nil {
		return nil, err
	}

	updated := settings
	return &updated, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	var lastSold sql.NullTime
	if err := row.Scan(&p.ID, &p.Name, &p.Brand, &p.Category, &p.Price, &p.Cost,
		&p.Quantity, &p.LowStockThreshold, &lastSold, &p.CreatedAt); err != nil {
		return domain.Product{}, err
	}
	if lastSold.Valid {
		t := lastSold.Time.UTC()
		p.LastSold = &t
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
