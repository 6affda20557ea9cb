package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shoptrack/backend/internal/cache"
	"shoptrack/backend/internal/domain"
	"shoptrack/backend/internal/ident"
	"shoptrack/backend/internal/reports"
	"shoptrack/backend/internal/store"
)

const (
	saleDateLayout  = "2006-01-02"
	saleTimeLayout  = "15:04:05"
	summaryCacheKey = "reports:summary"
	topProductLimit = 5

	defaultBatchNotes = "Daily sales batch entry"
)

var oneHundred = decimal.NewFromInt(100)

type Service struct {
	repo       store.Repository
	summaries  cache.SummaryCache
	summaryTTL time.Duration
}

func New(repo store.Repository, summaries cache.SummaryCache, summaryTTL time.Duration) *Service {
	if summaries == nil {
		summaries = cache.NoopSummaryCache{}
	}
	if summaryTTL <= 0 {
		summaryTTL = 30 * time.Second
	}
	return &Service{repo: repo, summaries: summaries, summaryTTL: summaryTTL}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (*domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("product name required: %w", store.ErrValidation)
	}
	if req.Price.IsNegative() || req.Cost.IsNegative() {
		return nil, fmt.Errorf("price and cost must not be negative: %w", store.ErrValidation)
	}
	if req.Quantity < 0 {
		return nil, fmt.Errorf("quantity must not be negative: %w", store.ErrValidation)
	}

	threshold := domain.DefaultLowStockThreshold
	if req.LowStockThreshold != nil {
		if *req.LowStockThreshold < 0 {
			return nil, fmt.Errorf("low stock threshold must not be negative: %w", store.ErrValidation)
		}
		threshold = *req.LowStockThreshold
	} else if settings, err := s.repo.GetSettings(ctx); err == nil {
		threshold = settings.LowStockThreshold
	}

	product := domain.Product{
		ID:                uuid.NewString(),
		Name:              name,
		Brand:             strings.TrimSpace(req.Brand),
		Category:          strings.TrimSpace(req.Category),
		Price:             req.Price,
		Cost:              req.Cost,
		Quantity:          req.Quantity,
		LowStockThreshold: threshold,
		CreatedAt:         time.Now().UTC(),
	}
	return s.repo.CreateProduct(ctx, product)
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (*domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("product id required: %w", store.ErrValidation)
	}

	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, fmt.Errorf("product name required: %w", store.ErrValidation)
		}
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Brand != nil {
		product.Brand = strings.TrimSpace(*req.Brand)
	}
	if req.Category != nil {
		product.Category = strings.TrimSpace(*req.Category)
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, fmt.Errorf("price must not be negative: %w", store.ErrValidation)
		}
		product.Price = *req.Price
	}
	if req.Cost != nil {
		if req.Cost.IsNegative() {
			return nil, fmt.Errorf("cost must not be negative: %w", store.ErrValidation)
		}
		product.Cost = *req.Cost
	}
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			return nil, fmt.Errorf("quantity must not be negative: %w", store.ErrValidation)
		}
		product.Quantity = *req.Quantity
	}
	if req.LowStockThreshold != nil {
		if *req.LowStockThreshold < 0 {
			return nil, fmt.Errorf("low stock threshold must not be negative: %w", store.ErrValidation)
		}
		product.LowStockThreshold = *req.LowStockThreshold
	}

	return s.repo.UpdateProduct(ctx, *product)
}

func (s *Service) ListSales(ctx context.Context, batchID string) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx, batchID)
}

// CreateSale records a single sale. The discount arrives as a percentage of
// the subtotal and is converted to an absolute amount exactly once here;
// the stored sale never remembers the percentage.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (*domain.Sale, error) {
	if strings.TrimSpace(req.ProductID) == "" {
		return nil, fmt.Errorf("productId required: %w", store.ErrValidation)
	}
	if req.Quantity < 1 {
		return nil, fmt.Errorf("quantity must be positive: %w", store.ErrValidation)
	}
	method := req.PaymentMethod
	if method == "" {
		method = domain.PaymentCash
	}
	if !domain.ValidPaymentMethod(method) {
		return nil, fmt.Errorf("unsupported payment method %q: %w", method, store.ErrValidation)
	}
	if req.DiscountPercent.IsNegative() || req.DiscountPercent.GreaterThan(oneHundred) {
		return nil, fmt.Errorf("discountPercent must be between 0 and 100: %w", store.ErrValidation)
	}

	product, err := s.repo.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	subtotal := product.Price.Mul(decimal.NewFromInt(int64(req.Quantity)))
	discount := subtotal.Mul(req.DiscountPercent).Div(oneHundred).Round(2)
	total := subtotal.Sub(discount)

	sale := domain.Sale{
		ID:            uuid.NewString(),
		ProductID:     product.ID,
		ProductName:   product.Name,
		Brand:         product.Brand,
		Category:      product.Category,
		Quantity:      req.Quantity,
		Price:         product.Price,
		Cost:          product.Cost,
		Subtotal:      subtotal,
		Discount:      discount,
		Total:         total,
		PaymentMethod: method,
		CustomerNotes: strings.TrimSpace(req.CustomerNotes),
		ReceiptNumber: ident.Receipt(),
		SaleDate:      now.Format(saleDateLayout),
		SaleTime:      now.Format(saleTimeLayout),
		Timestamp:     now,
	}

	return s.repo.CreateSale(ctx, sale)
}

// CreateSaleBatch records a batch of sale lines under one shared batch id.
// The repository applies the batch all-or-nothing: a missing product or a
// short quantity anywhere rejects every line.
func (s *Service) CreateSaleBatch(ctx context.Context, req domain.BulkSaleRequest) (*domain.BulkSaleResponse, error) {
	if len(req.SalesData) == 0 {
		return nil, fmt.Errorf("salesData must not be empty: %w", store.ErrValidation)
	}
	method := req.PaymentMethod
	if method == "" {
		method = domain.PaymentCash
	}
	if !domain.ValidPaymentMethod(method) {
		return nil, fmt.Errorf("unsupported payment method %q: %w", method, store.ErrValidation)
	}
	notes := strings.TrimSpace(req.BatchNotes)
	if notes == "" {
		notes = defaultBatchNotes
	}

	now := time.Now().UTC()
	batchID := ident.Batch()

	lines := make([]domain.Sale, 0, len(req.SalesData))
	for _, item := range req.SalesData {
		if strings.TrimSpace(item.ProductID) == "" {
			return nil, fmt.Errorf("productId required on every line: %w", store.ErrValidation)
		}
		if item.Quantity < 1 {
			return nil, fmt.Errorf("quantity must be positive on every line: %w", store.ErrValidation)
		}

		product, err := s.repo.GetProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, &store.InsufficientStockError{Requested: item.Quantity}
			}
			return nil, err
		}

		lineTotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		lines = append(lines, domain.Sale{
			ID:            uuid.NewString(),
			BatchID:       batchID,
			ProductID:     product.ID,
			ProductName:   product.Name,
			Brand:         product.Brand,
			Category:      product.Category,
			Quantity:      item.Quantity,
			Price:         product.Price,
			Cost:          product.Cost,
			Subtotal:      lineTotal,
			Discount:      decimal.Zero,
			Total:         lineTotal,
			PaymentMethod: method,
			CustomerNotes: notes,
			ReceiptNumber: ident.Receipt(),
			SaleDate:      now.Format(saleDateLayout),
			SaleTime:      now.Format(saleTimeLayout),
			Timestamp:     now,
		})
	}

	created, err := s.repo.CreateSaleBatch(ctx, lines)
	if err != nil {
		return nil, err
	}
	return &domain.BulkSaleResponse{Count: len(created), Sales: created}, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]string, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) AddCategory(ctx context.Context, name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("category name required: %w", store.ErrValidation)
	}
	return s.repo.CreateCategory(ctx, trimmed)
}

func (s *Service) RemoveCategory(ctx context.Context, name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("category name required: %w", store.ErrValidation)
	}
	return s.repo.DeleteCategory(ctx, trimmed)
}

func (s *Service) ListBrands(ctx context.Context) ([]string, error) {
	return s.repo.ListBrands(ctx)
}

func (s *Service) AddBrand(ctx context.Context, name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("brand name required: %w", store.ErrValidation)
	}
	return s.repo.CreateBrand(ctx, trimmed)
}

func (s *Service) RemoveBrand(ctx context.Context, name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("brand name required: %w", store.ErrValidation)
	}
	return s.repo.DeleteBrand(ctx, trimmed)
}

func (s *Service) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	return s.repo.ListExpenses(ctx)
}

func (s *Service) AddExpense(ctx context.Context, req domain.ExpenseCreateRequest) (*domain.Expense, error) {
	if strings.TrimSpace(req.Description) == "" {
		return nil, fmt.Errorf("description required: %w", store.ErrValidation)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive: %w", store.ErrValidation)
	}
	method := req.PaymentMethod
	if method == "" {
		method = domain.PaymentCash
	}
	if !domain.ValidPaymentMethod(method) {
		return nil, fmt.Errorf("unsupported payment method %q: %w", method, store.ErrValidation)
	}

	now := time.Now().UTC()
	expense := domain.Expense{
		ID:            uuid.NewString(),
		Description:   strings.TrimSpace(req.Description),
		Amount:        req.Amount,
		Category:      strings.TrimSpace(req.Category),
		PaymentMethod: method,
		Notes:         strings.TrimSpace(req.Notes),
		Date:          now.Format(saleDateLayout),
		Time:          now.Format(saleTimeLayout),
		Timestamp:     now,
	}
	return s.repo.CreateExpense(ctx, expense)
}

func (s *Service) Settings(ctx context.Context) (*domain.Settings, error) {
	return s.repo.GetSettings(ctx)
}

func (s *Service) UpdateSettings(ctx context.Context, req domain.SettingsUpdateRequest) (*domain.Settings, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	if req.StoreName != nil {
		if strings.TrimSpace(*req.StoreName) == "" {
			return nil, fmt.Errorf("store name required: %w", store.ErrValidation)
		}
		settings.StoreName = strings.TrimSpace(*req.StoreName)
	}
	if req.Currency != nil {
		if strings.TrimSpace(*req.Currency) == "" {
			return nil, fmt.Errorf("currency required: %w", store.ErrValidation)
		}
		settings.Currency = strings.ToUpper(strings.TrimSpace(*req.Currency))
	}
	if req.TaxRate != nil {
		if req.TaxRate.IsNegative() || req.TaxRate.GreaterThan(oneHundred) {
			return nil, fmt.Errorf("tax rate must be between 0 and 100: %w", store.ErrValidation)
		}
		settings.TaxRate = *req.TaxRate
	}
	if req.LowStockThreshold != nil {
		if *req.LowStockThreshold < 0 {
			return nil, fmt.Errorf("low stock threshold must not be negative: %w", store.ErrValidation)
		}
		settings.LowStockThreshold = *req.LowStockThreshold
	}

	return s.repo.UpdateSettings(ctx, *settings)
}

// ReportSummary assembles the dashboard aggregates, serving from cache when
// a fresh copy exists. Cache failures degrade to recomputation.
func (s *Service) ReportSummary(ctx context.Context) (*domain.ReportSummary, error) {
	cached, ok, err := s.summaries.Get(ctx, summaryCacheKey)
	if err != nil {
		log.Printf("[service] WARN: summary cache read failed: %v", err)
	}
	if ok {
		return cached, nil
	}

	sales, err := s.repo.ListSales(ctx, "")
	if err != nil {
		return nil, err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	expenses, err := s.repo.ListExpenses(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	summary := &domain.ReportSummary{
		GeneratedAt:     now.Format(time.RFC3339),
		TodaysSales:     reports.TodaysSales(sales, now),
		WeeklySales:     reports.WeeklySales(sales, now),
		MonthlySales:    reports.MonthlySales(sales, now),
		TotalRevenue:    reports.TotalRevenue(sales),
		InventoryValue:  reports.InventoryValue(products),
		TodaysExpenses:  reports.TodaysExpenses(expenses, now),
		MonthlyExpenses: reports.MonthlyExpenses(expenses, now),
		TotalExpenses:   reports.TotalExpenses(expenses),
		TopProducts:     reports.TopSellingProducts(sales, topProductLimit),
		SalesByBrand:    reports.SalesByBrand(sales),
		LowStock:        reports.LowStockProducts(products),
	}

	if err := s.summaries.Set(ctx, summaryCacheKey, summary, s.summaryTTL); err != nil {
		log.Printf("[service] WARN: summary cache write failed: %v", err)
	}
	return summary, nil
}
