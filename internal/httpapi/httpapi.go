package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shoptrack/backend/internal/domain"
	"shoptrack/backend/internal/service"
	"shoptrack/backend/internal/store"
)

// Machine-readable error codes carried in every error payload.
const (
	codeValidation        = "validation_error"
	codeNotFound          = "not_found"
	codeInsufficientStock = "insufficient_stock"
	codeConflict          = "conflict"
	codeStore             = "store_error"
)

type API struct {
	service       *service.Service
	allowedOrigin string
}

func New(svc *service.Service, allowedOrigin string) *API {
	return &API{service: svc, allowedOrigin: allowedOrigin}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)

	mux.HandleFunc("/api/products", a.handleProducts)
	mux.HandleFunc("/api/products/", a.handleProductActions)
	mux.HandleFunc("/api/sales", a.handleSales)
	mux.HandleFunc("/api/sales/bulk", a.handleBulkSales)
	mux.HandleFunc("/api/categories", a.handleCategories)
	mux.HandleFunc("/api/categories/", a.handleCategoryActions)
	mux.HandleFunc("/api/brands", a.handleBrands)
	mux.HandleFunc("/api/brands/", a.handleBrandActions)
	mux.HandleFunc("/api/expenses", a.handleExpenses)
	mux.HandleFunc("/api/settings", a.handleSettings)
	mux.HandleFunc("/api/reports/summary", a.handleReportSummary)

	return a.withMiddleware(mux)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		products, err := a.service.ListProducts(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, products)
	case http.MethodPost:
		var req domain.ProductCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeValidation, err)
			return
		}
		product, err := a.service.CreateProduct(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, product)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleProductActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeMethodNotAllowed(w)
		return
	}

	id := pathTail(r.URL.Path, "/api/products/")
	if id == "" {
		writeError(w, http.StatusBadRequest, codeValidation, errors.New("product id required"))
		return
	}

	var req domain.ProductUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, err)
		return
	}

	updated, err := a.service.UpdateProduct(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		batchID := strings.TrimSpace(r.URL.Query().Get("batchId"))
		sales, err := a.service.ListSales(r.Context(), batchID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sales)
	case http.MethodPost:
		var req domain.SaleCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeValidation, err)
			return
		}
		sale, err := a.service.CreateSale(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sale)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleBulkSales(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.BulkSaleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, err)
		return
	}

	resp, err := a.service.CreateSaleBatch(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

type nameRequest struct {
	Name string `json:"name"`
}

func (a *API) handleCategories(w http.ResponseWriter, r *http.Request) {
	a.handleNameCollection(w, r, a.service.ListCategories, a.service.AddCategory)
}

func (a *API) handleCategoryActions(w http.ResponseWriter, r *http.Request) {
	a.handleNameDelete(w, r, "/api/categories/", a.service.RemoveCategory)
}

func (a *API) handleBrands(w http.ResponseWriter, r *http.Request) {
	a.handleNameCollection(w, r, a.service.ListBrands, a.service.AddBrand)
}

func (a *API) handleBrandActions(w http.ResponseWriter, r *http.Request) {
	a.handleNameDelete(w, r, "/api/brands/", a.service.RemoveBrand)
}

// handleNameCollection serves the shared GET/POST shape of categories and
// brands: GET returns a plain array of names, POST takes {"name": ...}.
func (a *API) handleNameCollection(
	w http.ResponseWriter,
	r *http.Request,
	list func(ctx context.Context) ([]string, error),
	add func(ctx context.Context, name string) error,
) {
	switch r.Method {
	case http.MethodGet:
		names, err := list(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, names)
	case http.MethodPost:
		var req nameRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeValidation, err)
			return
		}
		if err := add(r.Context(), req.Name); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, nameRequest{Name: strings.TrimSpace(req.Name)})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleNameDelete(
	w http.ResponseWriter,
	r *http.Request,
	prefix string,
	remove func(ctx context.Context, name string) error,
) {
	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(w)
		return
	}

	name := pathTail(r.URL.Path, prefix)
	if name == "" {
		writeError(w, http.StatusBadRequest, codeValidation, errors.New("name required"))
		return
	}

	if err := remove(r.Context(), name); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		expenses, err := a.service.ListExpenses(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, expenses)
	case http.MethodPost:
		var req domain.ExpenseCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeValidation, err)
			return
		}
		expense, err := a.service.AddExpense(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, expense)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := a.service.Settings(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPut:
		var req domain.SettingsUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeValidation, err)
			return
		}
		settings, err := a.service.UpdateSettings(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleReportSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	summary, err := a.service.ReportSummary(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

// pathTail extracts and URL-decodes the single path segment after prefix.
func pathTail(path string, prefix string) string {
	tail := strings.TrimSpace(strings.Trim(strings.TrimPrefix(path, prefix), "/"))
	if tail == "" || strings.Contains(tail, "/") {
		return ""
	}
	if decoded, err := url.PathUnescape(tail); err == nil {
		return decoded
	}
	return tail
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

// writeServiceError maps store sentinels onto HTTP statuses and error codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrValidation):
		writeError(w, http.StatusBadRequest, codeValidation, err)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err)
	case errors.Is(err, store.ErrInsufficientStock):
		writeError(w, http.StatusConflict, codeInsufficientStock, err)
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, codeConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, codeStore, err)
	}
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, codeValidation, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	// 5xx messages are masked so SQL errors and file paths never reach
	// clients; 4xx messages are user-facing and pass through.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
		"code":  code,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
