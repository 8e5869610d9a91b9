package polish

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/stockwise/internal/proxy"
)

type fakeBackend struct {
	calls  []string
	answer map[string]string
	errs   map[string]error
	delay  time.Duration
}

func (f *fakeBackend) Complete(ctx context.Context, model string, _ []Message) (string, error) {
	f.calls = append(f.calls, model)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := f.errs[model]; err != nil {
		return "", err
	}
	return f.answer[model], nil
}

func TestPolish_ReturnsRewrite(t *testing.T) {
	b := &fakeBackend{answer: map[string]string{"m1": "  Hola, tenemos 3 camisas.  "}}
	c := NewClient(b, "m1", "", time.Second)

	got := c.Polish(context.Background(), "Camisa: 3", HintInventory)
	if got != "Hola, tenemos 3 camisas." {
		t.Errorf("got %q", got)
	}
}

func TestPolish_DegradesOnFailures(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"no key", proxy.ErrNoAPIKey},
		{"rate limit", &proxy.StatusError{Status: http.StatusTooManyRequests}},
		{"quota", &proxy.StatusError{Status: http.StatusPaymentRequired}},
		{"auth", &proxy.StatusError{Status: http.StatusUnauthorized}},
		{"network", errors.New("dial tcp: connection refused")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := &fakeBackend{errs: map[string]error{"m1": tc.err}}
			c := NewClient(b, "m1", "m2", time.Second)
			if got := c.Polish(context.Background(), "original", ""); got != "original" {
				t.Errorf("got %q, want original", got)
			}
			if len(b.calls) != 1 {
				t.Errorf("calls = %v, want exactly one", b.calls)
			}
		})
	}
}

func TestPolish_EmptyOutput(t *testing.T) {
	b := &fakeBackend{answer: map[string]string{"m1": "   "}}
	c := NewClient(b, "m1", "", time.Second)
	if got := c.Polish(context.Background(), "original", ""); got != "original" {
		t.Errorf("got %q", got)
	}
}

func TestPolish_UnknownModelRetriesOnce(t *testing.T) {
	b := &fakeBackend{
		errs:   map[string]error{"bad": fmt.Errorf("%w: bad", ErrUnknownModel)},
		answer: map[string]string{"good": "pulido"},
	}
	c := NewClient(b, "bad", "good", time.Second)

	if got := c.Polish(context.Background(), "original", ""); got != "pulido" {
		t.Errorf("got %q", got)
	}
	if strings.Join(b.calls, ",") != "bad,good" {
		t.Errorf("calls = %v", b.calls)
	}
}

func TestPolish_FallbackAlsoUnknown(t *testing.T) {
	b := &fakeBackend{errs: map[string]error{
		"bad":   ErrUnknownModel,
		"worse": ErrUnknownModel,
	}}
	c := NewClient(b, "bad", "worse", time.Second)

	if got := c.Polish(context.Background(), "original", ""); got != "original" {
		t.Errorf("got %q", got)
	}
	if len(b.calls) != 2 {
		t.Errorf("calls = %v, want two", b.calls)
	}
}

func TestPolish_Timeout(t *testing.T) {
	b := &fakeBackend{delay: time.Second, answer: map[string]string{"m1": "late"}}
	c := NewClient(b, "m1", "", 20*time.Millisecond)
	if got := c.Polish(context.Background(), "original", ""); got != "original" {
		t.Errorf("got %q", got)
	}
}

func TestPolish_EmptyInputSkipsBackend(t *testing.T) {
	b := &fakeBackend{}
	c := NewClient(b, "m1", "", time.Second)
	if got := c.Polish(context.Background(), "", ""); got != "" {
		t.Errorf("got %q", got)
	}
	if len(b.calls) != 0 {
		t.Errorf("backend called for empty input")
	}
}

type panicBackend struct{}

func (panicBackend) Complete(context.Context, string, []Message) (string, error) {
	panic("boom")
}

func TestPolish_RecoversPanic(t *testing.T) {
	c := NewClient(panicBackend{}, "m1", "", time.Second)
	if got := c.Polish(context.Background(), "original", ""); got != "original" {
		t.Errorf("got %q", got)
	}
}

func TestPassthrough(t *testing.T) {
	if got := (Passthrough{}).Polish(context.Background(), "x", "y"); got != "x" {
		t.Errorf("got %q", got)
	}
}

func TestOpenRouterBackend_UnknownModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"message":"model not found"}}`))
	}))
	defer srv.Close()

	b := OpenRouter{Client: proxy.NewClientWithBaseURL("key", srv.URL)}
	_, err := b.Complete(context.Background(), "nope", BuildPrompt("x", ""))
	if !errors.Is(err, ErrUnknownModel) {
		t.Errorf("err = %v, want ErrUnknownModel", err)
	}
}

func TestBuildPrompt(t *testing.T) {
	msgs := BuildPrompt("Camisa Azul", HintAnalytics)
	if len(msgs) != 2 {
		t.Fatalf("len = %d", len(msgs))
	}
	if msgs[0].Role != "system" || !strings.Contains(msgs[0].Content, HintAnalytics) {
		t.Errorf("system message = %+v", msgs[0])
	}
	if msgs[1].Role != "user" || msgs[1].Content != "Camisa Azul" {
		t.Errorf("user message = %+v", msgs[1])
	}
}
