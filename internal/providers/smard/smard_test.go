package smard

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"renewshare/internal/models"
	"renewshare/pkg/logging"
	"renewshare/pkg/metrics"
)

// Shared across all tests in this package; promauto registers globally.
var testMetrics = metrics.NewCollector("renewshare_smard_test")

func testLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	return logger
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return New(Config{
		BaseURL:    server.URL,
		MaxRetries: 1,
	}, testLogger(), testMetrics)
}

// TestClient_FetchConsumption tests block selection, range filtering and
// null skipping
func TestClient_FetchConsumption(t *testing.T) {
	day := models.Date(2026, time.March, 10)

	// Three week blocks: one before the window, one overlapping, one
	// after. Only the overlapping block may be downloaded.
	overlapBlock := day.AddDate(0, 0, -2).UnixMilli()
	beforeBlock := day.AddDate(0, 0, -20).UnixMilli()
	afterBlock := day.AddDate(0, 0, 10).UnixMilli()

	var blockRequests []string

	mux := http.NewServeMux()
	mux.HandleFunc("/410/DE/index_hour.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"timestamps":[%d,%d,%d]}`, beforeBlock, overlapBlock, afterBlock)
	})
	mux.HandleFunc("/410/DE/", func(w http.ResponseWriter, r *http.Request) {
		blockRequests = append(blockRequests, r.URL.Path)
		// Two in-range hours, one null hour, one hour before the window.
		fmt.Fprintf(w, `{"series":[[%d,55000],[%d,null],[%d,56000],[%d,40000]]}`,
			day.UnixMilli(),
			day.Add(time.Hour).UnixMilli(),
			day.Add(2*time.Hour).UnixMilli(),
			day.AddDate(0, 0, -1).UnixMilli(),
		)
	})

	client := newTestClient(t, mux)

	series, err := client.FetchConsumption(context.Background(), day, day)
	if err != nil {
		t.Fatalf("FetchConsumption() error = %v", err)
	}

	if len(blockRequests) != 1 {
		t.Fatalf("block downloads = %d (%v), want 1", len(blockRequests), blockRequests)
	}
	wantPath := fmt.Sprintf("/410/DE/410_DE_hour_%d.json", overlapBlock)
	if blockRequests[0] != wantPath {
		t.Errorf("block path = %q, want %q", blockRequests[0], wantPath)
	}

	// The null hour and the out-of-window hour are dropped.
	if len(series.Samples) != 2 {
		t.Fatalf("samples = %d, want 2", len(series.Samples))
	}
	if series.Samples[0].Value != 55000 || series.Samples[1].Value != 56000 {
		t.Errorf("sample values = %v/%v", series.Samples[0].Value, series.Samples[1].Value)
	}
	if !series.Samples[0].Timestamp.Equal(day) {
		t.Errorf("first timestamp = %v, want %v", series.Samples[0].Timestamp, day)
	}
	if !series.LastReported.Equal(day.Add(2 * time.Hour)) {
		t.Errorf("LastReported = %v, want %v", series.LastReported, day.Add(2*time.Hour))
	}
}

// TestClient_FetchConsumption_EmptyIndex tests that a bare index is treated
// as a transient upstream failure
func TestClient_FetchConsumption_EmptyIndex(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/410/DE/index_hour.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"timestamps":[]}`)
	})

	client := newTestClient(t, mux)

	day := models.Date(2026, time.March, 10)
	if _, err := client.FetchConsumption(context.Background(), day, day); err == nil {
		t.Error("FetchConsumption() should fail on an empty index")
	}
}

// TestClient_FetchConsumption_NoOverlap tests that a window nobody covers
// yields an empty series without block downloads
func TestClient_FetchConsumption_NoOverlap(t *testing.T) {
	day := models.Date(2026, time.March, 10)
	blockDownloads := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/410/DE/index_hour.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"timestamps":[%d]}`, day.AddDate(0, 0, -60).UnixMilli())
	})
	mux.HandleFunc("/410/DE/", func(w http.ResponseWriter, r *http.Request) {
		blockDownloads++
		fmt.Fprint(w, `{"series":[]}`)
	})

	client := newTestClient(t, mux)

	series, err := client.FetchConsumption(context.Background(), day, day)
	if err != nil {
		t.Fatalf("FetchConsumption() error = %v", err)
	}
	if blockDownloads != 0 {
		t.Errorf("block downloads = %d, want 0", blockDownloads)
	}
	if !series.Empty() {
		t.Errorf("samples = %d, want 0", len(series.Samples))
	}
}

// TestClient_FetchConsumption_MultiDayWindow tests that a window spanning
// block boundaries collects from every overlapping block
func TestClient_FetchConsumption_MultiDayWindow(t *testing.T) {
	start := models.Date(2026, time.March, 2)
	end := models.Date(2026, time.March, 12)

	blockA := start.UnixMilli()
	blockB := start.AddDate(0, 0, 7).UnixMilli()

	mux := http.NewServeMux()
	mux.HandleFunc("/410/DE/index_hour.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"timestamps":[%d,%d]}`, blockA, blockB)
	})
	mux.HandleFunc(fmt.Sprintf("/410/DE/410_DE_hour_%d.json", blockA), func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"series":[[%d,1000]]}`, start.Add(6*time.Hour).UnixMilli())
	})
	mux.HandleFunc(fmt.Sprintf("/410/DE/410_DE_hour_%d.json", blockB), func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"series":[[%d,2000]]}`, end.Add(3*time.Hour).UnixMilli())
	})

	client := newTestClient(t, mux)

	series, err := client.FetchConsumption(context.Background(), start, end)
	if err != nil {
		t.Fatalf("FetchConsumption() error = %v", err)
	}
	if len(series.Samples) != 2 {
		t.Fatalf("samples = %d, want 2", len(series.Samples))
	}
	if series.Samples[0].Value != 1000 || series.Samples[1].Value != 2000 {
		t.Errorf("sample values = %v/%v", series.Samples[0].Value, series.Samples[1].Value)
	}
}
