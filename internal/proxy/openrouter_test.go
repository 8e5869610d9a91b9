package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testMessages() []Message {
	return []Message{{Role: "user", Content: "hola"}}
}

func TestComplete_ReturnsFirstChoice(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"gen-1","choices":[{"message":{"role":"assistant","content":"¡Hola!"}}]}`)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", srv.URL)
	text, err := c.Complete(context.Background(), "openai/gpt-4o-mini", testMessages())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "¡Hola!" {
		t.Errorf("text = %q, want %q", text, "¡Hola!")
	}
	if got.Model != "openai/gpt-4o-mini" || len(got.Messages) != 1 {
		t.Errorf("request = %+v", got)
	}
}

func TestComplete_AuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"id":"gen-1","choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", srv.URL)
	if _, err := c.Complete(context.Background(), "m", testMessages()); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer test-key")
	}
}

func TestComplete_NoKey(t *testing.T) {
	c := NewClientWithBaseURL("", "http://127.0.0.1:1")
	_, err := c.Complete(context.Background(), "m", testMessages())
	if !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("err = %v, want ErrNoAPIKey", err)
	}
	if !IsAuth(err) {
		t.Error("IsAuth(ErrNoAPIKey) = false")
	}
}

func TestComplete_RateLimit_Retry(t *testing.T) {
	var attempt atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempt.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"id":"gen-1","choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", srv.URL)
	if _, err := c.Complete(context.Background(), "m", testMessages()); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got := attempt.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
}

func TestComplete_RateLimit_Exhausted(t *testing.T) {
	var attempt atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", srv.URL).WithMaxRetries(2)
	_, err := c.Complete(context.Background(), "m", testMessages())
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if !IsRateLimit(err) {
		t.Errorf("IsRateLimit(%v) = false", err)
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("error = %q, want it to contain %q", err.Error(), "rate limited")
	}
	if got := attempt.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
}

func TestComplete_StatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad key"}`, IsAuth},
		{"forbidden", http.StatusForbidden, ``, IsAuth},
		{"quota", http.StatusPaymentRequired, `{"error":"insufficient credits"}`, IsQuota},
		{"model 404", http.StatusNotFound, `{"error":"no endpoints"}`, IsUnknownModel},
		{"model 400", http.StatusBadRequest, `{"error":{"message":"foo/bar is not a valid model ID"}}`, IsUnknownModel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			c := NewClientWithBaseURL("test-key", srv.URL)
			_, err := c.Complete(context.Background(), "m", testMessages())
			if err == nil || !tt.check(err) {
				t.Errorf("err = %v, classification failed", err)
			}
		})
	}
}

func TestComplete_ContextCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewClientWithBaseURL("test-key", srv.URL)
	start := time.Now()
	if _, err := c.Complete(ctx, "m", testMessages()); err == nil {
		t.Fatal("expected error after context deadline")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Complete took %v after cancellation", elapsed)
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(ModelList{
			Object: "list",
			Data: []Model{
				{ID: "openai/gpt-4o-mini", Object: "model"},
				{ID: "meta-llama/llama-3.1-8b-instruct", Object: "model"},
			},
		})
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", srv.URL)
	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 || models[0].ID != "openai/gpt-4o-mini" {
		t.Errorf("models = %+v", models)
	}
}

func TestListModels_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ModelList{Object: "list"})
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", srv.URL)
	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 0 {
		t.Errorf("got %d models, want 0", len(models))
	}
}
