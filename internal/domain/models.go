package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Brand             string          `json:"brand"`
	Category          string          `json:"category"`
	Price             decimal.Decimal `json:"price"`
	Cost              decimal.Decimal `json:"cost"`
	Quantity          int             `json:"quantity"`
	LowStockThreshold int             `json:"lowStockThreshold"`
	LastSold          *time.Time      `json:"lastSold,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

type ProductCreateRequest struct {
	Name              string          `json:"name"`
	Brand             string          `json:"brand"`
	Category          string          `json:"category"`
	Price             decimal.Decimal `json:"price"`
	Cost              decimal.Decimal `json:"cost"`
	Quantity          int             `json:"quantity"`
	LowStockThreshold *int            `json:"lowStockThreshold,omitempty"`
}

type ProductUpdateRequest struct {
	Name              *string          `json:"name,omitempty"`
	Brand             *string          `json:"brand,omitempty"`
	Category          *string          `json:"category,omitempty"`
	Price             *decimal.Decimal `json:"price,omitempty"`
	Cost              *decimal.Decimal `json:"cost,omitempty"`
	Quantity          *int             `json:"quantity,omitempty"`
	LowStockThreshold *int             `json:"lowStockThreshold,omitempty"`
}

// Sale is an immutable record of one line item sold. Product name, brand,
// category, price and cost are snapshotted at sale time so later product
// edits never rewrite sales history.
type Sale struct {
	ID            string          `json:"id"`
	BatchID       string          `json:"batchId,omitempty"`
	ProductID     string          `json:"productId"`
	ProductName   string          `json:"productName"`
	Brand         string          `json:"brand"`
	Category      string          `json:"category"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	Cost          decimal.Decimal `json:"cost"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"paymentMethod"`
	CustomerNotes string          `json:"customerNotes,omitempty"`
	ReceiptNumber string          `json:"receiptNumber,omitempty"`
	SaleDate      string          `json:"saleDate"`
	SaleTime      string          `json:"saleTime"`
	Timestamp     time.Time       `json:"timestamp"`
}

type SaleCreateRequest struct {
	ProductID       string          `json:"productId"`
	Quantity        int             `json:"quantity"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	PaymentMethod   string          `json:"paymentMethod"`
	CustomerNotes   string          `json:"customerNotes"`
}

type BulkSaleItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type BulkSaleRequest struct {
	SalesData     []BulkSaleItem `json:"salesData"`
	BatchNotes    string         `json:"batchNotes"`
	PaymentMethod string         `json:"paymentMethod"`
}

type BulkSaleResponse struct {
	Count int    `json:"count"`
	Sales []Sale `json:"sales"`
}

type Expense struct {
	ID            string          `json:"id"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	PaymentMethod string          `json:"paymentMethod"`
	Notes         string          `json:"notes,omitempty"`
	Date          string          `json:"date"`
	Time          string          `json:"time"`
	Timestamp     time.Time       `json:"timestamp"`
}

type ExpenseCreateRequest struct {
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	PaymentMethod string          `json:"paymentMethod"`
	Notes         string          `json:"notes"`
}

// Settings is a singleton row keyed by SettingsID.
type Settings struct {
	ID                string          `json:"id"`
	StoreName         string          `json:"storeName"`
	Currency          string          `json:"currency"`
	TaxRate           decimal.Decimal `json:"taxRate"`
	LowStockThreshold int             `json:"lowStockThreshold"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

type SettingsUpdateRequest struct {
	StoreName         *string          `json:"storeName,omitempty"`
	Currency          *string          `json:"currency,omitempty"`
	TaxRate           *decimal.Decimal `json:"taxRate,omitempty"`
	LowStockThreshold *int             `json:"lowStockThreshold,omitempty"`
}

type TopSeller struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	Revenue     string `json:"revenue"`
}

type BrandSales struct {
	Brand    string `json:"brand"`
	Quantity int    `json:"quantity"`
	Revenue  string `json:"revenue"`
}

type ReportSummary struct {
	GeneratedAt     string       `json:"generatedAt"`
	TodaysSales     string       `json:"todaysSales"`
	WeeklySales     string       `json:"weeklySales"`
	MonthlySales    string       `json:"monthlySales"`
	TotalRevenue    string       `json:"totalRevenue"`
	InventoryValue  string       `json:"inventoryValue"`
	TodaysExpenses  string       `json:"todaysExpenses"`
	MonthlyExpenses string       `json:"monthlyExpenses"`
	TotalExpenses   string       `json:"totalExpenses"`
	TopProducts     []TopSeller  `json:"topProducts"`
	SalesByBrand    []BrandSales `json:"salesByBrand"`
	LowStock        []Product    `json:"lowStockProducts"`
}

const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentTransfer = "transfer"
	PaymentMobile   = "mobile"
	PaymentCheck    = "check"
)

const (
	SettingsID               = "default"
	DefaultCurrency          = "NGN"
	DefaultStoreName         = "My Store"
	DefaultLowStockThreshold = 5
)

func ValidPaymentMethod(method string) bool {
	switch method {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentMobile, PaymentCheck:
		return true
	}
	return false
}
