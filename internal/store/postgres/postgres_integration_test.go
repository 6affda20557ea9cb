package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"shoptrack/backend/internal/domain"
	"shoptrack/backend/internal/store"
)

// newIntegrationStore connects to the database named by
// SHOPTRACK_TEST_DATABASE_URL, or skips the test when it is unset.
func newIntegrationStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("SHOPTRACK_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("SHOPTRACK_TEST_DATABASE_URL not set; skipping postgres integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func integrationProduct(qty int) domain.Product {
	id := fmt.Sprintf("it-%d", time.Now().UnixNano())
	return domain.Product{
		ID:                id,
		Name:              "Integration Milk " + id,
		Brand:             "Peak",
		Category:          "Dairy",
		Price:             decimal.RequireFromString("100.00"),
		Cost:              decimal.RequireFromString("80.00"),
		Quantity:          qty,
		LowStockThreshold: 5,
		CreatedAt:         time.Now().UTC(),
	}
}

func integrationSale(p domain.Product, qty int, batchID string) domain.Sale {
	total := p.Price.Mul(decimal.NewFromInt(int64(qty)))
	now := time.Now().UTC()
	return domain.Sale{
		ID:            fmt.Sprintf("it-sale-%d", time.Now().UnixNano()),
		BatchID:       batchID,
		ProductID:     p.ID,
		ProductName:   p.Name,
		Brand:         p.Brand,
		Category:      p.Category,
		Quantity:      qty,
		Price:         p.Price,
		Cost:          p.Cost,
		Subtotal:      total,
		Discount:      decimal.Zero,
		Total:         total,
		PaymentMethod: domain.PaymentCash,
		SaleDate:      now.Format("2006-01-02"),
		SaleTime:      now.Format("15:04:05"),
		Timestamp:     now,
	}
}

func TestIntegration_SaleDecrementsStock(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	p := integrationProduct(5)
	if _, err := s.CreateProduct(ctx, p); err != nil {
		t.Fatalf("create product: %v", err)
	}

	if _, err := s.CreateSale(ctx, integrationSale(p, 3, "")); err != nil {
		t.Fatalf("create sale: %v", err)
	}

	after, err := s.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Quantity != 2 {
		t.Fatalf("expected quantity 2 after sale, got %d", after.Quantity)
	}
	if after.LastSold == nil {
		t.Fatal("expected lastSold set")
	}
}

func TestIntegration_BatchRollsBackOnShortStock(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	a := integrationProduct(3)
	b := integrationProduct(1)
	if _, err := s.CreateProduct(ctx, a); err != nil {
		t.Fatalf("create product a: %v", err)
	}
	if _, err := s.CreateProduct(ctx, b); err != nil {
		t.Fatalf("create product b: %v", err)
	}

	batchID := fmt.Sprintf("BATCH_it-%d", time.Now().UnixNano())
	_, err := s.CreateSaleBatch(ctx, []domain.Sale{
		integrationSale(a, 2, batchID),
		integrationSale(b, 5, batchID),
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	var stockErr *store.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected typed stock error, got %T", err)
	}
	if stockErr.Requested != 5 || stockErr.Available != 1 {
		t.Fatalf("unexpected stock error details: %+v", stockErr)
	}

	afterA, _ := s.GetProduct(ctx, a.ID)
	afterB, _ := s.GetProduct(ctx, b.ID)
	if afterA.Quantity != 3 || afterB.Quantity != 1 {
		t.Fatalf("expected untouched stock (3, 1), got (%d, %d)", afterA.Quantity, afterB.Quantity)
	}

	sales, err := s.ListSales(ctx, batchID)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 0 {
		t.Fatalf("expected no sales for failed batch, got %d", len(sales))
	}
}

func TestIntegration_SettingsLazyCreate(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	settings, err := s.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if settings.ID != domain.SettingsID {
		t.Fatalf("expected singleton row %q, got %q", domain.SettingsID, settings.ID)
	}

	settings.StoreName = "Integration Store"
	if _, err := s.UpdateSettings(ctx, *settings); err != nil {
		t.Fatalf("update settings: %v", err)
	}

	again, err := s.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get settings again: %v", err)
	}
	if again.StoreName != "Integration Store" {
		t.Fatalf("settings update not persisted: %+v", again)
	}
}
