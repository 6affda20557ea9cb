// Package reports holds the pure aggregation functions behind the dashboard.
// Every function takes plain slices, never mutates its input, and tolerates
// empty input by returning "0.00" or an empty slice. Monetary sums accumulate
// with exact decimals and are rounded to two places only for display.
package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"shoptrack/backend/internal/domain"
)

// TodaysSales sums sale totals whose timestamp falls on the same calendar
// day as now, in now's location.
func TodaysSales(sales []domain.Sale, now time.Time) string {
	sum := decimal.Zero
	for _, s := range sales {
		if sameDay(s.Timestamp.In(now.Location()), now) {
			sum = sum.Add(s.Total)
		}
	}
	return sum.StringFixed(2)
}

// TotalRevenue sums all sale totals.
func TotalRevenue(sales []domain.Sale) string {
	sum := decimal.Zero
	for _, s := range sales {
		sum = sum.Add(s.Total)
	}
	return sum.StringFixed(2)
}

// WeeklySales sums sale totals from the last seven days, inclusive of now.
func WeeklySales(sales []domain.Sale, now time.Time) string {
	cutoff := now.AddDate(0, 0, -7)
	sum := decimal.Zero
	for _, s := range sales {
		if !s.Timestamp.Before(cutoff) {
			sum = sum.Add(s.Total)
		}
	}
	return sum.StringFixed(2)
}

// MonthlySales sums sale totals from the same month and year as now.
func MonthlySales(sales []domain.Sale, now time.Time) string {
	sum := decimal.Zero
	for _, s := range sales {
		ts := s.Timestamp.In(now.Location())
		if ts.Month() == now.Month() && ts.Year() == now.Year() {
			sum = sum.Add(s.Total)
		}
	}
	return sum.StringFixed(2)
}

// TopSellingProducts groups sales by product and returns up to limit entries
// ordered by units sold, highest first.
func TopSellingProducts(sales []domain.Sale, limit int) []domain.TopSeller {
	type acc struct {
		name    string
		qty     int
		revenue decimal.Decimal
	}
	byProduct := make(map[string]*acc)
	order := make([]string, 0)
	for _, s := range sales {
		a, ok := byProduct[s.ProductID]
		if !ok {
			a = &acc{name: s.ProductName, revenue: decimal.Zero}
			byProduct[s.ProductID] = a
			order = append(order, s.ProductID)
		}
		a.qty += s.Quantity
		a.revenue = a.revenue.Add(s.Total)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return byProduct[order[i]].qty > byProduct[order[j]].qty
	})
	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}

	top := make([]domain.TopSeller, 0, len(order))
	for _, id := range order {
		a := byProduct[id]
		top = append(top, domain.TopSeller{
			ProductID:   id,
			ProductName: a.name,
			Quantity:    a.qty,
			Revenue:     a.revenue.StringFixed(2),
		})
	}
	return top
}

// LowStockProducts returns products at or below their low-stock threshold.
// The boundary is inclusive: quantity equal to the threshold counts as low.
func LowStockProducts(products []domain.Product) []domain.Product {
	low := make([]domain.Product, 0)
	for _, p := range products {
		if p.Quantity <= p.LowStockThreshold {
			low = append(low, p)
		}
	}
	return low
}

// InventoryValue sums cost times on-hand quantity across all products.
func InventoryValue(products []domain.Product) string {
	sum := decimal.Zero
	for _, p := range products {
		sum = sum.Add(p.Cost.Mul(decimal.NewFromInt(int64(p.Quantity))))
	}
	return sum.StringFixed(2)
}

// SalesByBrand groups sales by brand and returns entries ordered by revenue,
// highest first.
func SalesByBrand(sales []domain.Sale) []domain.BrandSales {
	type acc struct {
		qty     int
		revenue decimal.Decimal
	}
	byBrand := make(map[string]*acc)
	order := make([]string, 0)
	for _, s := range sales {
		a, ok := byBrand[s.Brand]
		if !ok {
			a = &acc{revenue: decimal.Zero}
			byBrand[s.Brand] = a
			order = append(order, s.Brand)
		}
		a.qty += s.Quantity
		a.revenue = a.revenue.Add(s.Total)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return byBrand[order[i]].revenue.GreaterThan(byBrand[order[j]].revenue)
	})

	out := make([]domain.BrandSales, 0, len(order))
	for _, brand := range order {
		a := byBrand[brand]
		out = append(out, domain.BrandSales{
			Brand:    brand,
			Quantity: a.qty,
			Revenue:  a.revenue.StringFixed(2),
		})
	}
	return out
}

// TodaysExpenses sums expense amounts recorded on the same calendar day as now.
func TodaysExpenses(expenses []domain.Expense, now time.Time) string {
	sum := decimal.Zero
	for _, e := range expenses {
		if sameDay(e.Timestamp.In(now.Location()), now) {
			sum = sum.Add(e.Amount)
		}
	}
	return sum.StringFixed(2)
}

// TotalExpenses sums all expense amounts.
func TotalExpenses(expenses []domain.Expense) string {
	sum := decimal.Zero
	for _, e := range expenses {
		sum = sum.Add(e.Amount)
	}
	return sum.StringFixed(2)
}

// MonthlyExpenses sums expense amounts from the same month and year as now.
func MonthlyExpenses(expenses []domain.Expense, now time.Time) string {
	sum := decimal.Zero
	for _, e := range expenses {
		ts := e.Timestamp.In(now.Location())
		if ts.Month() == now.Month() && ts.Year() == now.Year() {
			sum = sum.Add(e.Amount)
		}
	}
	return sum.StringFixed(2)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
