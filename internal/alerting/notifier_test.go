package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestWebhookNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	notifier := NewWebhookNotifier(srv.URL, time.Second, zerolog.Nop())
	if err := notifier.Post(context.Background(), "validator 42 slashed"); err != nil {
		t.Fatalf("Post should succeed: %v", err)
	}

	if received["content"] != "validator 42 slashed" {
		t.Fatalf("unexpected payload: %#v", received)
	}
}

func TestWebhookNotifierHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	notifier := NewWebhookNotifier(srv.URL, time.Second, zerolog.Nop())
	if err := notifier.Post(context.Background(), "hello"); err == nil {
		t.Fatal("HTTP 429 should return an error")
	}
}

func TestWebhookNotifierMissingURL(t *testing.T) {
	notifier := NewWebhookNotifier("", time.Second, zerolog.Nop())
	if err := notifier.Post(context.Background(), "hello"); err == nil {
		t.Fatal("missing url should return an error")
	}
}
