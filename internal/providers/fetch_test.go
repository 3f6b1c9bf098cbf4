package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"renewshare/pkg/metrics"
)

// Shared across all tests in this package; promauto registers globally.
var testMetrics = metrics.NewCollector("renewshare_fetch_test")

// TestFetchBytes_Success tests the happy path
func TestFetchBytes_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload"))
	}))
	defer server.Close()

	body, err := FetchBytes(context.Background(), server.Client(), "test", server.URL, 1, testMetrics)
	if err != nil {
		t.Fatalf("FetchBytes() error = %v", err)
	}
	if string(body) != "payload" {
		t.Errorf("body = %q, want %q", body, "payload")
	}
}

// TestFetchBytes_ClientError tests that a 4xx fails once, without retries,
// and is not reported as retry-worthy
func TestFetchBytes_ClientError(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := FetchBytes(context.Background(), server.Client(), "test", server.URL, 3, testMetrics)
	if err == nil {
		t.Fatal("FetchBytes() should fail on a 401")
	}

	var permanent *PermanentError
	if !errors.As(err, &permanent) {
		t.Fatalf("error = %T, want *PermanentError", err)
	}
	if permanent.IsTransient() {
		t.Error("a rejected request must not be transient")
	}
	if requests != 1 {
		t.Errorf("requests = %d, want 1 (no retries on 4xx)", requests)
	}
}

// TestFetchBytes_ServerError tests that 5xx responses are retried and come
// back transient
func TestFetchBytes_ServerError(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := FetchBytes(context.Background(), server.Client(), "test", server.URL, 1, testMetrics)
	if err == nil {
		t.Fatal("FetchBytes() should fail on a persistent 5xx")
	}

	var transient *TransientError
	if !errors.As(err, &transient) {
		t.Fatalf("error = %T, want *TransientError", err)
	}
	if requests != 2 {
		t.Errorf("requests = %d, want 2 (one retry)", requests)
	}
}

// TestFetchBytes_RecoversAfterRetry tests that a transient 5xx followed by a
// success returns the body
func TestFetchBytes_RecoversAfterRetry(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer server.Close()

	body, err := FetchBytes(context.Background(), server.Client(), "test", server.URL, 2, testMetrics)
	if err != nil {
		t.Fatalf("FetchBytes() error = %v", err)
	}
	if string(body) != "recovered" {
		t.Errorf("body = %q, want %q", body, "recovered")
	}
}
