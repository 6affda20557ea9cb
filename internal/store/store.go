package store

import (
	"context"
	"errors"
	"fmt"

	"shoptrack/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
)

// InsufficientStockError reports which product could not cover a requested
// quantity. It unwraps to ErrInsufficientStock so callers can match with
// errors.Is while still reading the details.
type InsufficientStockError struct {
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	name := e.ProductName
	if name == "" {
		name = "product"
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", name, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// Repository is the persistence boundary. CreateSale and CreateSaleBatch
// must apply the sale rows and the matching stock decrements atomically:
// on any failure no rows are written and no quantities change.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)

	ListSales(ctx context.Context, batchID string) ([]domain.Sale, error)
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	CreateSaleBatch(ctx context.Context, sales []domain.Sale) ([]domain.Sale, error)

	ListCategories(ctx context.Context) ([]string, error)
	CreateCategory(ctx context.Context, name string) error
	DeleteCategory(ctx context.Context, name string) error

	ListBrands(ctx context.Context) ([]string, error)
	CreateBrand(ctx context.Context, name string) error
	DeleteBrand(ctx context.Context, name string) error

	ListExpenses(ctx context.Context) ([]domain.Expense, error)
	CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)

	GetSettings(ctx context.Context) (*domain.Settings, error)
	UpdateSettings(ctx context.Context, settings domain.Settings) (*domain.Settings, error)
}
