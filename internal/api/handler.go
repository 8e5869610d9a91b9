package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kalambet/stockwise/internal/catalog"
	"github.com/kalambet/stockwise/internal/pipeline"
	"github.com/kalambet/stockwise/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// MsgClarify replaces an answer when every handler failed to reach its data.
const MsgClarify = "🙏 No pude responder tu consulta en este momento. ¿Podrías reformularla o intentar de nuevo en unos minutos?"

// Composer answers a question.
type Composer interface {
	Compose(ctx context.Context, question string) pipeline.ComposedAnswer
}

// Store is the storage surface used by the HTTP API.
type Store interface {
	ListProducts(ctx context.Context) ([]catalog.Record, error)
	GetProduct(ctx context.Context, id string) (catalog.Record, error)
	UpsertProduct(ctx context.Context, p catalog.Record) (string, error)
	DeleteProduct(ctx context.Context, id string) error
	AdjustStock(ctx context.Context, id string, delta int) error
	RecordSale(ctx context.Context, s storage.Sale) (string, error)
	RecentAlerts(ctx context.Context, limit int) ([]storage.Alert, error)
	SaveInteraction(ctx context.Context, i storage.Interaction) error
	RecentInteractions(ctx context.Context, limit int) ([]storage.Interaction, error)
	GetInteraction(ctx context.Context, id string) (storage.Interaction, error)
}

type Deps struct {
	Router Composer
	Store  Store
	Token  string
}

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	Question string `json:"question"`
}

// NewHandler returns the HTTP API. /health and /v1/ask are public; the
// catalog, sales, alert and interaction routes require the bearer token.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Post("/v1/ask", handleAsk(deps))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Get("/products", handleListProducts(deps))
		r.Post("/products", handleUpsertProduct(deps))
		r.Get("/products/{id}", handleGetProduct(deps))
		r.Delete("/products/{id}", handleDeleteProduct(deps))
		r.Post("/products/{id}/stock", handleRestock(deps))
		r.Post("/sales", handleRecordSale(deps))
		r.Get("/alerts", handleListAlerts(deps))
		r.Get("/interactions", handleListInteractions(deps))
		r.Get("/interactions/{id}", handleGetInteraction(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleAsk(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		question := strings.TrimSpace(req.Question)
		if question == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "question is required")
			return
		}

		out := deps.Router.Compose(r.Context(), question)
		if out.Degraded {
			out.Text = MsgClarify
		}
		if out.Handlers == nil {
			out.Handlers = []string{}
		}

		if deps.Store != nil {
			logInteraction(r.Context(), deps.Store, question, out)
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func logInteraction(ctx context.Context, store Store, question string, out pipeline.ComposedAnswer) {
	err := store.SaveInteraction(context.WithoutCancel(ctx), storage.Interaction{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Question:  question,
		Answer:    out.Text,
		Intent:    out.Intent.String(),
		Handlers:  out.Handlers,
		LowStock:  out.LowStockDetected,
		Degraded:  out.Degraded,
	})
	if err != nil {
		slog.Warn("saving interaction", "error", err)
	}
}

func handleListProducts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := deps.Store.ListProducts(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list products: %v", err)
			return
		}
		if r.URL.Query().Get("low_stock") == "true" {
			products = catalog.LowStock(products)
		}
		if products == nil {
			products = []catalog.Record{}
		}
		writeJSON(w, http.StatusOK, products)
	}
}

func handleGetProduct(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.Store.GetProduct(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get product: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleUpsertProduct(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var p catalog.Record
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(p.Name) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "name is required")
			return
		}
		if p.Stock < 0 || p.MinStock < 0 || p.Price < 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "stock, min_stock and price must not be negative")
			return
		}

		id, err := deps.Store.UpsertProduct(r.Context(), p)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save product: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": id})
	}
}

func handleDeleteProduct(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := deps.Store.DeleteProduct(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete product: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// RestockRequest is the body of POST /products/{id}/stock.
type RestockRequest struct {
	Units int `json:"units"`
}

func handleRestock(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req RestockRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Units <= 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "units must be positive")
			return
		}

		id := chi.URLParam(r, "id")
		err := deps.Store.AdjustStock(r.Context(), id, req.Units)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to restock: %v", err)
			return
		}
		p, err := deps.Store.GetProduct(r.Context(), id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get product: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// SaleRequest is the body of POST /sales.
type SaleRequest struct {
	ProductID  string     `json:"product_id"`
	Quantity   int        `json:"quantity"`
	ListPrice  float64    `json:"list_price"`
	Discount   float64    `json:"discount"`
	FinalPrice *float64   `json:"final_price,omitempty"`
	SoldAt     *time.Time `json:"sold_at,omitempty"`
}

func handleRecordSale(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req SaleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.ProductID == "" || req.Quantity <= 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "product_id and a positive quantity are required")
			return
		}

		sale := storage.Sale{
			ProductID:  req.ProductID,
			Quantity:   req.Quantity,
			ListPrice:  req.ListPrice,
			Discount:   req.Discount,
			FinalPrice: req.FinalPrice,
		}
		if req.SoldAt != nil {
			sale.SoldAt = *req.SoldAt
		}

		id, err := deps.Store.RecordSale(r.Context(), sale)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		if errors.Is(err, storage.ErrInsufficientStock) {
			httpError(w, http.StatusConflict, "insufficient_stock", "%v", err)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to record sale: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": id})
	}
}

func handleListAlerts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alerts, err := deps.Store.RecentAlerts(r.Context(), parseIntParam(r, "limit", 20, 100))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list alerts: %v", err)
			return
		}
		if alerts == nil {
			alerts = []storage.Alert{}
		}
		writeJSON(w, http.StatusOK, alerts)
	}
}

func handleListInteractions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		interactions, err := deps.Store.RecentInteractions(r.Context(), parseIntParam(r, "limit", 20, 100))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list interactions: %v", err)
			return
		}
		if interactions == nil {
			interactions = []storage.Interaction{}
		}
		writeJSON(w, http.StatusOK, interactions)
	}
}

func handleGetInteraction(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		interaction, err := deps.Store.GetInteraction(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "interaction not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get interaction: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, interaction)
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}
