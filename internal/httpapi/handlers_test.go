package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shoptrack/backend/internal/domain"
	"shoptrack/backend/internal/service"
	"shoptrack/backend/internal/store/memory"
)

// newTestAPI builds a full API over an in-memory store and real Service so
// handler tests exercise the complete request path.
func newTestAPI(t *testing.T) (*API, http.Handler) {
	t.Helper()

	repo := memory.New()
	svc := service.New(repo, nil, time.Second)
	api := New(svc, "*")
	return api, api.Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func createProduct(t *testing.T, handler http.Handler, name string, price string, qty int) domain.Product {
	t.Helper()

	rec := doJSON(t, handler, http.MethodPost, "/api/products", map[string]any{
		"name":     name,
		"brand":    "Peak",
		"category": "Dairy",
		"price":    price,
		"cost":     price,
		"quantity": qty,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create product: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var product domain.Product
	if err := json.NewDecoder(rec.Body).Decode(&product); err != nil {
		t.Fatalf("decode product: %v", err)
	}
	return product
}

func TestHandleHealth(t *testing.T) {
	_, handler := newTestAPI(t)

	rec := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestProducts_RoundTrip(t *testing.T) {
	_, handler := newTestAPI(t)

	created := createProduct(t, handler, "Peak Milk", "1850", 10)

	rec := doJSON(t, handler, http.MethodGet, "/api/products", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var products []domain.Product
	if err := json.NewDecoder(rec.Body).Decode(&products); err != nil {
		t.Fatalf("decode products: %v", err)
	}
	if len(products) != 1 || products[0].ID != created.ID {
		t.Fatalf("expected the created product back, got %+v", products)
	}
	if products[0].LowStockThreshold != domain.DefaultLowStockThreshold {
		t.Fatalf("expected default threshold, got %d", products[0].LowStockThreshold)
	}
}

func TestUpdateProduct_NotFound(t *testing.T) {
	_, handler := newTestAPI(t)

	rec := doJSON(t, handler, http.MethodPut, "/api/products/nope", map[string]any{"name": "x"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["code"] != "not_found" {
		t.Fatalf("expected code not_found, got %v", body["code"])
	}
}

func TestCreateSale_InsufficientStockPayload(t *testing.T) {
	_, handler := newTestAPI(t)
	product := createProduct(t, handler, "Milo Tin", "3200", 1)

	rec := doJSON(t, handler, http.MethodPost, "/api/sales", map[string]any{
		"productId": product.ID,
		"quantity":  3,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["code"] != "insufficient_stock" {
		t.Fatalf("expected code insufficient_stock, got %v", body["code"])
	}
}

func TestBulkSales_CreatesBatch(t *testing.T) {
	_, handler := newTestAPI(t)
	a := createProduct(t, handler, "Peak Milk", "100", 10)
	b := createProduct(t, handler, "Indomie", "250", 10)

	rec := doJSON(t, handler, http.MethodPost, "/api/sales/bulk", map[string]any{
		"salesData": []map[string]any{
			{"productId": a.ID, "quantity": 2},
			{"productId": b.ID, "quantity": 1},
		},
		"batchNotes": "evening entry",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var resp domain.BulkSaleResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 2 {
		t.Fatalf("expected count 2, got %d", resp.Count)
	}
	if resp.Sales[0].BatchID == "" || resp.Sales[0].BatchID != resp.Sales[1].BatchID {
		t.Fatal("expected one shared batch id")
	}

	// Batch filter returns exactly the batch rows.
	listRec := doJSON(t, handler, http.MethodGet, "/api/sales?batchId="+resp.Sales[0].BatchID, nil)
	if listRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", listRec.Code)
	}
	var sales []domain.Sale
	if err := json.NewDecoder(listRec.Body).Decode(&sales); err != nil {
		t.Fatalf("decode sales: %v", err)
	}
	if len(sales) != 2 {
		t.Fatalf("expected 2 sales in batch, got %d", len(sales))
	}
}

func TestBulkSales_FailureLeavesNoChanges(t *testing.T) {
	_, handler := newTestAPI(t)
	a := createProduct(t, handler, "Peak Milk", "100", 3)
	b := createProduct(t, handler, "Indomie", "250", 1)

	rec := doJSON(t, handler, http.MethodPost, "/api/sales/bulk", map[string]any{
		"salesData": []map[string]any{
			{"productId": a.ID, "quantity": 2},
			{"productId": b.ID, "quantity": 9},
		},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var listed []domain.Product
	listRec := doJSON(t, handler, http.MethodGet, "/api/products", nil)
	if err := json.NewDecoder(listRec.Body).Decode(&listed); err != nil {
		t.Fatalf("decode products: %v", err)
	}
	for _, p := range listed {
		switch p.ID {
		case a.ID:
			if p.Quantity != 3 {
				t.Fatalf("product A stock changed: %d", p.Quantity)
			}
		case b.ID:
			if p.Quantity != 1 {
				t.Fatalf("product B stock changed: %d", p.Quantity)
			}
		}
	}

	salesRec := doJSON(t, handler, http.MethodGet, "/api/sales", nil)
	var sales []domain.Sale
	if err := json.NewDecoder(salesRec.Body).Decode(&sales); err != nil {
		t.Fatalf("decode sales: %v", err)
	}
	if len(sales) != 0 {
		t.Fatalf("expected no sales after failed batch, got %d", len(sales))
	}
}

func TestCategories_NameArrayAndDelete(t *testing.T) {
	_, handler := newTestAPI(t)

	if rec := doJSON(t, handler, http.MethodPost, "/api/categories", map[string]any{"name": "Drinks"}); rec.Code != http.StatusCreated {
		t.Fatalf("create category: expected 201, got %d", rec.Code)
	}
	if rec := doJSON(t, handler, http.MethodPost, "/api/categories", map[string]any{"name": "Dairy"}); rec.Code != http.StatusCreated {
		t.Fatalf("create category: expected 201, got %d", rec.Code)
	}
	if rec := doJSON(t, handler, http.MethodPost, "/api/categories", map[string]any{"name": "Dairy"}); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate category: expected 409, got %d", rec.Code)
	}

	rec := doJSON(t, handler, http.MethodGet, "/api/categories", nil)
	var names []string
	if err := json.NewDecoder(rec.Body).Decode(&names); err != nil {
		t.Fatalf("decode names: %v", err)
	}
	if len(names) != 2 || names[0] != "Dairy" || names[1] != "Drinks" {
		t.Fatalf("expected sorted name array, got %v", names)
	}

	delRec := doJSON(t, handler, http.MethodDelete, "/api/categories/Drinks", nil)
	if delRec.Code != http.StatusOK {
		t.Fatalf("delete category: expected 200, got %d", delRec.Code)
	}
	var delBody map[string]any
	if err := json.NewDecoder(delRec.Body).Decode(&delBody); err != nil {
		t.Fatalf("decode delete body: %v", err)
	}
	if delBody["success"] != true {
		t.Fatalf("expected success:true, got %v", delBody)
	}

	if rec := doJSON(t, handler, http.MethodDelete, "/api/categories/Drinks", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", rec.Code)
	}
}

func TestSettings_GetAndPut(t *testing.T) {
	_, handler := newTestAPI(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/settings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var settings domain.Settings
	if err := json.NewDecoder(rec.Body).Decode(&settings); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if settings.Currency != domain.DefaultCurrency {
		t.Fatalf("expected lazy default currency, got %s", settings.Currency)
	}

	putRec := doJSON(t, handler, http.MethodPut, "/api/settings", map[string]any{
		"storeName": "Mama Nkechi Stores",
		"currency":  "ngn",
	})
	if putRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", putRec.Code, putRec.Body.String())
	}
	if err := json.NewDecoder(putRec.Body).Decode(&settings); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if settings.StoreName != "Mama Nkechi Stores" || settings.Currency != "NGN" {
		t.Fatalf("unexpected settings after update: %+v", settings)
	}
}

func TestExpenses_CreateAndList(t *testing.T) {
	_, handler := newTestAPI(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/expenses", map[string]any{
		"description": "Generator fuel",
		"amount":      "4500",
		"category":    "Utilities",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	listRec := doJSON(t, handler, http.MethodGet, "/api/expenses", nil)
	var expenses []domain.Expense
	if err := json.NewDecoder(listRec.Body).Decode(&expenses); err != nil {
		t.Fatalf("decode expenses: %v", err)
	}
	if len(expenses) != 1 || expenses[0].Description != "Generator fuel" {
		t.Fatalf("expected the created expense, got %+v", expenses)
	}
}

func TestReportSummary_Endpoint(t *testing.T) {
	_, handler := newTestAPI(t)
	product := createProduct(t, handler, "Peak Milk", "100", 10)

	if rec := doJSON(t, handler, http.MethodPost, "/api/sales", map[string]any{
		"productId": product.ID,
		"quantity":  2,
	}); rec.Code != http.StatusCreated {
		t.Fatalf("create sale: expected 201, got %d", rec.Code)
	}

	rec := doJSON(t, handler, http.MethodGet, "/api/reports/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var summary domain.ReportSummary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.TodaysSales != "200.00" {
		t.Fatalf("expected todays sales 200.00, got %s", summary.TodaysSales)
	}
}

func TestValidationErrorPayload(t *testing.T) {
	_, handler := newTestAPI(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/sales", map[string]any{
		"productId": "",
		"quantity":  0,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["code"] != "validation_error" {
		t.Fatalf("expected code validation_error, got %v", body["code"])
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	_, handler := newTestAPI(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/categories", map[string]any{
		"name":  "Drinks",
		"bogus": true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}
