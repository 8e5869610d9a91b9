package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kalambet/stockwise/internal/catalog"
	"github.com/kalambet/stockwise/internal/intent"
	"github.com/kalambet/stockwise/internal/pipeline"
	"github.com/kalambet/stockwise/internal/storage"
)

const testToken = "secret-token"

type stubComposer struct {
	answer pipeline.ComposedAnswer
	calls  []string
}

func (s *stubComposer) Compose(_ context.Context, q string) pipeline.ComposedAnswer {
	s.calls = append(s.calls, q)
	return s.answer
}

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestServer(t *testing.T, c Composer) (*httptest.Server, *storage.Store) {
	t.Helper()
	store := newTestStore(t)
	srv := httptest.NewServer(NewHandler(Deps{Router: c, Store: store, Token: testToken}))
	t.Cleanup(srv.Close)
	return srv, store
}

func doRequest(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rdr)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &stubComposer{})
	resp := doRequest(t, http.MethodGet, srv.URL+"/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestAsk_ReturnsComposedAnswer(t *testing.T) {
	c := &stubComposer{answer: pipeline.ComposedAnswer{
		Text:             "⚠️ Productos con stock bajo",
		Intent:           intent.Inventory,
		Handlers:         []string{pipeline.HandlerInventory},
		LowStockDetected: true,
	}}
	srv, store := newTestServer(t, c)

	resp := doRequest(t, http.MethodPost, srv.URL+"/v1/ask", "", AskRequest{Question: "  stock bajo  "})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"answer":             "⚠️ Productos con stock bajo",
		"intent":             "inventory",
		"handlers":           []any{"inventory"},
		"low_stock_detected": true,
		"degraded":           false,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"stock bajo"}, c.calls); diff != "" {
		t.Errorf("composer calls mismatch (-want +got):\n%s", diff)
	}

	logged, err := store.RecentInteractions(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(logged) != 1 || logged[0].Question != "stock bajo" || !logged[0].LowStock {
		t.Errorf("interaction not logged as expected: %+v", logged)
	}
}

func TestAsk_DegradedGetsClarification(t *testing.T) {
	c := &stubComposer{answer: pipeline.ComposedAnswer{
		Text:     "raw failure",
		Intent:   intent.Analytics,
		Handlers: []string{pipeline.HandlerAnalytics},
		Degraded: true,
	}}
	srv, _ := newTestServer(t, c)

	resp := doRequest(t, http.MethodPost, srv.URL+"/v1/ask", "", AskRequest{Question: "ventas"})
	var got pipeline.ComposedAnswer
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Text != MsgClarify {
		t.Errorf("answer = %q, want clarification", got.Text)
	}
	if !got.Degraded {
		t.Error("degraded flag lost")
	}
}

func TestAsk_RejectsEmptyQuestion(t *testing.T) {
	c := &stubComposer{}
	srv, _ := newTestServer(t, c)

	for _, body := range []any{AskRequest{Question: "   "}, "not an object"} {
		resp := doRequest(t, http.MethodPost, srv.URL+"/v1/ask", "", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %v: status = %d, want 400", body, resp.StatusCode)
		}
	}
	if len(c.calls) != 0 {
		t.Errorf("composer called %d times for invalid input", len(c.calls))
	}
}

func TestAdmin_RequiresToken(t *testing.T) {
	srv, _ := newTestServer(t, &stubComposer{})

	for _, token := range []string{"", "wrong"} {
		resp := doRequest(t, http.MethodGet, srv.URL+"/products", token, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("token %q: status = %d, want 401", token, resp.StatusCode)
		}
	}
}

func TestBearerAuth_EmptyTokenRejectsAll(t *testing.T) {
	h := BearerAuth("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached with empty configured token")
	}))
	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	req.Header.Set("Authorization", "Bearer ")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAdmin_ProductLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, &stubComposer{})

	resp := doRequest(t, http.MethodPost, srv.URL+"/products", testToken, catalog.Record{
		Name: "Camisa Oxford", Category: "Camisas", Size: "M", Price: 29.9, Stock: 1, MinStock: 3,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var created map[string]string
	json.NewDecoder(resp.Body).Decode(&created)
	id := created["id"]
	if id == "" {
		t.Fatal("no id returned")
	}

	resp = doRequest(t, http.MethodGet, srv.URL+"/products?low_stock=true", testToken, nil)
	var low []catalog.Record
	json.NewDecoder(resp.Body).Decode(&low)
	if len(low) != 1 || low[0].ID != id || !low[0].LowStock {
		t.Fatalf("low stock listing = %+v", low)
	}

	resp = doRequest(t, http.MethodGet, srv.URL+"/products/"+id, testToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodDelete, srv.URL+"/products/"+id, testToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodGet, srv.URL+"/products/"+id, testToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestAdmin_Restock(t *testing.T) {
	srv, store := newTestServer(t, &stubComposer{})
	id, err := store.UpsertProduct(context.Background(), catalog.Record{Name: "Gorra", Stock: 1, MinStock: 3})
	if err != nil {
		t.Fatal(err)
	}

	resp := doRequest(t, http.MethodPost, srv.URL+"/products/"+id+"/stock", testToken, RestockRequest{Units: 5})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var p catalog.Record
	json.NewDecoder(resp.Body).Decode(&p)
	if p.Stock != 6 || p.LowStock {
		t.Errorf("after restock: %+v", p)
	}

	resp = doRequest(t, http.MethodPost, srv.URL+"/products/"+id+"/stock", testToken, RestockRequest{Units: -2})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("negative units status = %d, want 400", resp.StatusCode)
	}
	resp = doRequest(t, http.MethodPost, srv.URL+"/products/missing/stock", testToken, RestockRequest{Units: 1})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown product status = %d, want 404", resp.StatusCode)
	}
}

func TestAdmin_ProductValidation(t *testing.T) {
	srv, _ := newTestServer(t, &stubComposer{})

	for _, p := range []catalog.Record{{Name: ""}, {Name: "Gorra", Stock: -1}} {
		resp := doRequest(t, http.MethodPost, srv.URL+"/products", testToken, p)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%+v: status = %d, want 400", p, resp.StatusCode)
		}
	}
}

func TestAdmin_RecordSale(t *testing.T) {
	srv, store := newTestServer(t, &stubComposer{})
	ctx := context.Background()

	id, err := store.UpsertProduct(ctx, catalog.Record{Name: "Jean Slim", Price: 50, Stock: 5, MinStock: 1})
	if err != nil {
		t.Fatal(err)
	}

	resp := doRequest(t, http.MethodPost, srv.URL+"/sales", testToken, SaleRequest{ProductID: id, Quantity: 2, ListPrice: 50})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	p, err := store.GetProduct(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if p.Stock != 3 {
		t.Errorf("stock = %d, want 3", p.Stock)
	}

	resp = doRequest(t, http.MethodPost, srv.URL+"/sales", testToken, SaleRequest{ProductID: "missing", Quantity: 1})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown product status = %d, want 404", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodPost, srv.URL+"/sales", testToken, SaleRequest{ProductID: id, Quantity: 0})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("zero quantity status = %d, want 400", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodPost, srv.URL+"/sales", testToken, SaleRequest{ProductID: id, Quantity: 4, ListPrice: 50})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("oversold status = %d, want 409", resp.StatusCode)
	}
	if p, err := store.GetProduct(ctx, id); err != nil {
		t.Fatal(err)
	} else if p.Stock != 3 {
		t.Errorf("stock after rejected sale = %d, want 3", p.Stock)
	}
}

func TestAdmin_AlertsAndInteractions(t *testing.T) {
	srv, store := newTestServer(t, &stubComposer{})
	ctx := context.Background()

	if err := store.RecordAlert(ctx, storage.Alert{ID: "a1", Origin: "stockwise", Kind: "stock_alert", Message: "bajo"}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveInteraction(ctx, storage.Interaction{ID: "i1", Question: "hola", Answer: "..."}); err != nil {
		t.Fatal(err)
	}

	resp := doRequest(t, http.MethodGet, srv.URL+"/alerts?limit=5", testToken, nil)
	var alerts []storage.Alert
	json.NewDecoder(resp.Body).Decode(&alerts)
	if len(alerts) != 1 || alerts[0].ID != "a1" {
		t.Errorf("alerts = %+v", alerts)
	}

	resp = doRequest(t, http.MethodGet, srv.URL+"/interactions/i1", testToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("get interaction status = %d", resp.StatusCode)
	}
	resp = doRequest(t, http.MethodGet, srv.URL+"/interactions/nope", testToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing interaction status = %d, want 404", resp.StatusCode)
	}
}

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 20},
		{"limit=5", 5},
		{"limit=abc", 20},
		{"limit=-1", 20},
		{"limit=500", 100},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/alerts?"+tt.query, nil)
		if got := parseIntParam(r, "limit", 20, 100); got != tt.want {
			t.Errorf("parseIntParam(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}

func TestHTTPError_Shape(t *testing.T) {
	rec := httptest.NewRecorder()
	httpError(rec, http.StatusTeapot, "test_error", "bad %s", "thing")
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"message":"bad thing"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}
