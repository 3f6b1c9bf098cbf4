package openmeteo

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
var testMetrics = metrics.NewCollector("renewshare_openmeteo_test")

func testLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	return logger
}

func newTestClient(t *testing.T, cities []City, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{
		BaseURL:    server.URL,
		Cities:     cities,
		MaxRetries: 1,
	}, testLogger(), testMetrics)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

// TestNew_RequiresCities tests constructor validation
func TestNew_RequiresCities(t *testing.T) {
	if _, err := New(Config{}, testLogger(), testMetrics); err == nil {
		t.Error("New() should fail without cities")
	}
}

// TestClient_FetchWeather tests the cross-city average
func TestClient_FetchWeather(t *testing.T) {
	cities := []City{
		{Name: "Hamburg", Latitude: 53.55, Longitude: 10.00},
		{Name: "Munich", Latitude: 48.14, Longitude: 11.58},
	}

	// Hamburg: 2 h of sun (7200 s), 20 km/h. Munich: 6 h, 10 km/h.
	responses := map[string]string{
		"53.55": `{"daily":{"sunshine_duration":[7200],"wind_speed_10m_max":[20]}}`,
		"48.14": `{"daily":{"sunshine_duration":[21600],"wind_speed_10m_max":[10]}}`,
	}

	var gotDates []string

	client := newTestClient(t, cities, func(w http.ResponseWriter, r *http.Request) {
		gotDates = append(gotDates, r.URL.Query().Get("start_date"))
		body, ok := responses[r.URL.Query().Get("latitude")]
		if !ok {
			t.Errorf("unexpected latitude %q", r.URL.Query().Get("latitude"))
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	})

	summary, err := client.FetchWeather(context.Background(), models.Date(2026, time.March, 10))
	if err != nil {
		t.Fatalf("FetchWeather() error = %v", err)
	}

	if summary.SunHours != 4 {
		t.Errorf("SunHours = %v, want 4", summary.SunHours)
	}
	if summary.WindSpeedKmh != 15 {
		t.Errorf("WindSpeedKmh = %v, want 15", summary.WindSpeedKmh)
	}
	for _, d := range gotDates {
		if d != "2026-03-10" {
			t.Errorf("start_date = %q, want 2026-03-10", d)
		}
	}
}

// TestClient_FetchWeather_PartialCities tests that a city with no daily
// block is skipped, not fatal
func TestClient_FetchWeather_PartialCities(t *testing.T) {
	cities := []City{
		{Name: "Hamburg", Latitude: 53.55, Longitude: 10.00},
		{Name: "Munich", Latitude: 48.14, Longitude: 11.58},
	}

	client := newTestClient(t, cities, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("latitude") == "53.55" {
			fmt.Fprint(w, `{"daily":{"sunshine_duration":[],"wind_speed_10m_max":[]}}`)
			return
		}
		fmt.Fprint(w, `{"daily":{"sunshine_duration":[18000],"wind_speed_10m_max":[12]}}`)
	})

	summary, err := client.FetchWeather(context.Background(), models.Date(2026, time.March, 10))
	if err != nil {
		t.Fatalf("FetchWeather() error = %v", err)
	}

	// Only Munich reported; no dilution by the silent city.
	if summary.SunHours != 5 {
		t.Errorf("SunHours = %v, want 5", summary.SunHours)
	}
	if summary.WindSpeedKmh != 12 {
		t.Errorf("WindSpeedKmh = %v, want 12", summary.WindSpeedKmh)
	}
}

// TestClient_FetchWeather_AllCitiesEmpty tests the all-silent failure
func TestClient_FetchWeather_AllCitiesEmpty(t *testing.T) {
	cities := []City{{Name: "Hamburg", Latitude: 53.55, Longitude: 10.00}}

	client := newTestClient(t, cities, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"daily":{"sunshine_duration":[],"wind_speed_10m_max":[]}}`)
	})

	if _, err := client.FetchWeather(context.Background(), models.Date(2026, time.March, 10)); err == nil {
		t.Error("FetchWeather() should fail when no city reports")
	}
}
