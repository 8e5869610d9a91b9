package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/kalambet/stockwise/internal/catalog"
	"github.com/kalambet/stockwise/internal/config"
	"github.com/kalambet/stockwise/internal/proxy"
	"github.com/kalambet/stockwise/internal/storage"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestAsk_Remote(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /v1/ask": `{"answer":"⚠️ Productos con stock bajo","intent":"inventory","handlers":["inventory"],"low_stock_detected":true,"degraded":false}`,
	})

	out, err := ts.client().ask(ctx, "stock bajo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "⚠️ Productos con stock bajo" || !out.LowStockDetected {
		t.Errorf("answer = %+v", out)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if r.Path != "/v1/ask" {
		t.Errorf("path = %q, want /v1/ask", r.Path)
	}
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", r.Auth)
	}
	var body map[string]string
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["question"] != "stock bajo" {
		t.Errorf("body.question = %q", body["question"])
	}
}

func TestAsk_ServerError(t *testing.T) {
	ts := newTestServer(t, map[string]string{})

	_, err := ts.client().ask(ctx, "hola")
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %q, want it to mention 404", err.Error())
	}
}

func TestAskCommand_MissingArgs(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"ask"})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error for missing question")
	}
}

func TestProductsList(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /products": `[{"id":"p-1","name":"Camisa Oxford","size":"M","price":29.9,"stock":1,"min_stock":3,"low_stock":true}]`,
	})

	resp, err := ts.client().get(ctx, "/products?low_stock=true")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var products []catalog.Record
	if err := decodeJSON(resp, &products); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(products) != 1 || !products[0].LowStock {
		t.Fatalf("products = %+v", products)
	}
	if ts.requests[0].Path != "/products?low_stock=true" {
		t.Errorf("path = %q", ts.requests[0].Path)
	}
}

func TestProductLine(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()
	noColor = true

	got := productLine(catalog.Record{ID: "0123456789", Name: "Camisa", Price: 10, Stock: 1, MinStock: 3, LowStock: true})
	want := "01234567  Camisa  talla -  $10.00  stock 1/3  bajo mínimo"
	if got != want {
		t.Errorf("productLine = %q, want %q", got, want)
	}
}

func newFlagCmd(define func(*cobra.Command), args ...string) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	define(cmd)
	cmd.Flags().Parse(args)
	return cmd
}

func productFlags(cmd *cobra.Command) {
	cmd.Flags().String("id", "", "")
	cmd.Flags().String("name", "", "")
	cmd.Flags().String("category", "", "")
	cmd.Flags().String("gender", "", "")
	cmd.Flags().String("size", "", "")
	cmd.Flags().Float64("price", 0, "")
	cmd.Flags().Int("stock", 0, "")
	cmd.Flags().Int("min-stock", 0, "")
}

func TestProductFromFlags(t *testing.T) {
	cmd := newFlagCmd(productFlags, "--name", "Jean Slim", "--size", "32", "--price", "49.5", "--stock", "4", "--min-stock", "2")
	p, err := productFromFlags(cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "Jean Slim" || p.Size != "32" || p.Price != 49.5 || p.Stock != 4 || p.MinStock != 2 {
		t.Errorf("record = %+v", p)
	}

	for _, args := range [][]string{{}, {"--name", "X", "--stock", "-1"}} {
		if _, err := productFromFlags(newFlagCmd(productFlags, args...)); err == nil {
			t.Errorf("args %v: expected error", args)
		}
	}
}

func saleFlags(cmd *cobra.Command) {
	cmd.Flags().Int("qty", 1, "")
	cmd.Flags().Float64("list-price", 0, "")
	cmd.Flags().Float64("discount", 0, "")
	cmd.Flags().Float64("final-price", 0, "")
}

func TestSaleFromFlags(t *testing.T) {
	req, err := saleFromFlags(newFlagCmd(saleFlags, "--qty", "2", "--list-price", "50"), "p-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.FinalPrice != nil {
		t.Errorf("final price set without flag: %v", *req.FinalPrice)
	}

	req, err = saleFromFlags(newFlagCmd(saleFlags, "--final-price", "0"), "p-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.FinalPrice == nil || *req.FinalPrice != 0 {
		t.Errorf("explicit zero final price lost: %+v", req)
	}

	if _, err := saleFromFlags(newFlagCmd(saleFlags, "--qty", "0"), "p-1"); err == nil {
		t.Error("expected error for zero quantity")
	}
}

func TestSalesAdd_Request(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /sales": `{"id":"s-1"}`,
	})

	req, _ := saleFromFlags(newFlagCmd(saleFlags, "--qty", "3"), "p-1")
	resp, err := ts.client().post(ctx, "/sales", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var result map[string]string
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if result["id"] != "s-1" {
		t.Errorf("id = %q", result["id"])
	}
	if !strings.Contains(ts.requests[0].Body, `"quantity":3`) {
		t.Errorf("body = %s", ts.requests[0].Body)
	}
}

func TestStatusCommand_Stopped(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.server.Close()

	_, err := ts.client().get(ctx, "/health")
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestDiagnosticOutput(t *testing.T) {
	oldColor, oldDiag := noColor, diag
	defer func() { noColor, diag = oldColor, oldDiag }()

	var buf bytes.Buffer
	noColor, diag = true, &buf

	printStep("Opening catalog in %s", "/tmp/sw")
	printStatus("Products", "%d (%d below minimum)", 4, 1)
	printError("boom")

	want := "→ Opening catalog in /tmp/sw\n  Products: 4 (1 below minimum)\n✗ boom\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
	if got := statusLabel(storage.AlertFailed); got != storage.AlertFailed {
		t.Errorf("statusLabel = %q, want plain %q", got, storage.AlertFailed)
	}
}

func TestFirstLine(t *testing.T) {
	if got := firstLine("⚠️ Productos con stock bajo\n- Camisa"); got != "⚠️ Productos con stock bajo" {
		t.Errorf("firstLine = %q", got)
	}
	if got := firstLine("solo"); got != "solo" {
		t.Errorf("firstLine = %q", got)
	}
}

func TestNewPolisher_NoKeyIsPassthrough(t *testing.T) {
	cfg := config.Config{Polish: config.PolishConfig{Provider: config.ProviderOpenRouter}}
	p := newPolisher(cfg)
	if got := p.Polish(ctx, "hola", ""); got != "hola" {
		t.Errorf("Polish = %q, want input unchanged", got)
	}
}

func TestHasModel(t *testing.T) {
	models := []proxy.Model{{ID: "openai/gpt-4o-mini"}, {ID: "mistralai/mistral-small"}}
	if !hasModel(models, "openai/gpt-4o-mini") {
		t.Error("expected model to be found")
	}
	if hasModel(models, "openai/gpt-4o") {
		t.Error("prefix must not match")
	}
}
