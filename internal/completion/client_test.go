package completion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nubra-ai/nubra-chat/internal/log"
)

func TestHTTPClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}

		var req completionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Message != "outbound message" {
			t.Errorf("message = %q", req.Message)
		}

		_ = json.NewEncoder(w).Encode(completionResponse{Text: "the reply"})
	}))
	defer srv.Close()

	client, err := NewHTTPClient(HTTPConfig{Endpoint: srv.URL, APIKey: "test-key"}, log.NewNop())
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}

	got, err := client.Complete(context.Background(), "outbound message")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "the reply" {
		t.Errorf("Complete = %q, want 'the reply'", got)
	}
}

func TestHTTPClient_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewHTTPClient(HTTPConfig{Endpoint: srv.URL, RetryMax: 1}, log.NewNop())
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}

	_, err = client.Complete(context.Background(), "msg")
	if !errors.Is(err, ErrCompletionFailed) {
		t.Errorf("err = %v, want ErrCompletionFailed", err)
	}
}

func TestHTTPClient_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client, err := NewHTTPClient(HTTPConfig{Endpoint: srv.URL}, log.NewNop())
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}

	_, err = client.Complete(context.Background(), "msg")
	if !errors.Is(err, ErrCompletionFailed) {
		t.Errorf("err = %v, want ErrCompletionFailed", err)
	}
}

func TestNewHTTPClient_RequiresEndpoint(t *testing.T) {
	if _, err := NewHTTPClient(HTTPConfig{}, log.NewNop()); err == nil {
		t.Error("NewHTTPClient with no endpoint should fail")
	}
}
