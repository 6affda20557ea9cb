// Package memory implements store.Repository with mutex-guarded maps. It
// backs tests and dev mode when no DATABASE_URL is configured.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shoptrack/backend/internal/domain"
	"shoptrack/backend/internal/store"
)

type Store struct {
	mu         sync.RWMutex
	products   map[string]domain.Product
	sales      []domain.Sale
	categories map[string]struct{}
	brands     map[string]struct{}
	expenses   []domain.Expense
	settings   *domain.Settings
}

func New() *Store {
	return &Store{
		products:   make(map[string]domain.Product),
		sales:      make([]domain.Sale, 0, 64),
		categories: make(map[string]struct{}),
		brands:     make(map[string]struct{}),
		expenses:   make([]domain.Expense, 0, 32),
	}
}

// NewSeeded returns a store preloaded with demo inventory for dev mode.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	seed := []domain.Product{
		{Name: "Peak Milk 400g", Brand: "Peak", Category: "Dairy", Price: dec("1850"), Cost: dec("1500"), Quantity: 48, LowStockThreshold: 10},
		{Name: "Indomie Chicken 70g", Brand: "Indomie", Category: "Noodles", Price: dec("250"), Cost: dec("190"), Quantity: 200, LowStockThreshold: 40},
		{Name: "Coca-Cola 50cl", Brand: "Coca-Cola", Category: "Drinks", Price: dec("300"), Cost: dec("220"), Quantity: 120, LowStockThreshold: 24},
		{Name: "Golden Penny Semovita 1kg", Brand: "Golden Penny", Category: "Grains", Price: dec("1400"), Cost: dec("1150"), Quantity: 30, LowStockThreshold: 8},
		{Name: "Dettol Soap 110g", Brand: "Dettol", Category: "Toiletries", Price: dec("550"), Cost: dec("430"), Quantity: 60, LowStockThreshold: 12},
		{Name: "Milo Tin 400g", Brand: "Milo", Category: "Beverages", Price: dec("3200"), Cost: dec("2700"), Quantity: 5, LowStockThreshold: 5},
	}
	for i, p := range seed {
		p.ID = uuid.NewString()
		p.CreatedAt = now.Add(time.Duration(i) * time.Second)
		s.products[p.ID] = p
		s.categories[p.Category] = struct{}{}
		s.brands[p.Brand] = struct{}{}
	}

	return s
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return products, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrConflict
	}
	s.products[product.ID] = product

	created := product
	return &created, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := p
	return &found, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[product.ID]; !ok {
		return nil, store.ErrNotFound
	}
	s.products[product.ID] = product

	updated := product
	return &updated, nil
}

func (s *Store) ListSales(_ context.Context, batchID string) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if batchID != "" && sale.BatchID != batchID {
			continue
		}
		sales = append(sales, sale)
	}
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return sales, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	created, err := s.CreateSaleBatch(ctx, []domain.Sale{sale})
	if err != nil {
		return nil, err
	}
	return &created[0], nil
}

// CreateSaleBatch validates every line under the write lock before touching
// anything, so a failed line leaves no sales written and no stock changed.
func (s *Store) CreateSaleBatch(_ context.Context, sales []domain.Sale) ([]domain.Sale, error) {
	if len(sales) == 0 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	needed := make(map[string]int, len(sales))
	for _, sale := range sales {
		needed[sale.ProductID] += sale.Quantity
	}
	for productID, qty := range needed {
		p, ok := s.products[productID]
		if !ok {
			return nil, &store.InsufficientStockError{Requested: qty}
		}
		if p.Quantity < qty {
			return nil, &store.InsufficientStockError{ProductName: p.Name, Requested: qty, Available: p.Quantity}
		}
	}

	created := make([]domain.Sale, 0, len(sales))
	for _, sale := range sales {
		p := s.products[sale.ProductID]
		p.Quantity -= sale.Quantity
		lastSold := sale.Timestamp
		p.LastSold = &lastSold
		s.products[sale.ProductID] = p

		s.sales = append(s.sales, sale)
		created = append(created, sale)
	}
	return created, nil
}

func (s *Store) ListCategories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedNames(s.categories), nil
}

func (s *Store) CreateCategory(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.categories[name]; exists {
		return store.ErrConflict
	}
	s.categories[name] = struct{}{}
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.categories[name]; !exists {
		return store.ErrNotFound
	}
	delete(s.categories, name)
	return nil
}

func (s *Store) ListBrands(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedNames(s.brands), nil
}

func (s *Store) CreateBrand(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.brands[name]; exists {
		return store.ErrConflict
	}
	s.brands[name] = struct{}{}
	return nil
}

func (s *Store) DeleteBrand(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.brands[name]; !exists {
		return store.ErrNotFound
	}
	delete(s.brands, name)
	return nil
}

func (s *Store) ListExpenses(_ context.Context) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expenses := make([]domain.Expense, len(s.expenses))
	copy(expenses, s.expenses)
	slices.SortFunc(expenses, func(a, b domain.Expense) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return expenses, nil
}

func (s *Store) CreateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expenses = append(s.expenses, expense)
	created := expense
	return &created, nil
}

func (s *Store) GetSettings(_ context.Context) (*domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settings == nil {
		s.settings = &domain.Settings{
			ID:                domain.SettingsID,
			StoreName:         domain.DefaultStoreName,
			Currency:          domain.DefaultCurrency,
			TaxRate:           decimal.Zero,
			LowStockThreshold: domain.DefaultLowStockThreshold,
			UpdatedAt:         time.Now().UTC(),
		}
	}
	found := *s.settings
	return &found, nil
}

func (s *Store) UpdateSettings(_ context.Context, settings domain.Settings) (*domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings.ID = domain.SettingsID
	settings.UpdatedAt = time.Now().UTC()
	s.settings = &settings

	updated := settings
	return &updated, nil
}

func sortedNames(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	slices.SortFunc(names, strings.Compare)
	return names
}
