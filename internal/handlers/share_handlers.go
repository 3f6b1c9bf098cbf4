package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"renewshare/internal/models"
	"renewshare/internal/providers"
	"renewshare/internal/repository"
	"renewshare/internal/services"
	"renewshare/pkg/logging"
	"renewshare/pkg/metrics"
)

// ShareHandler handles renewable share API endpoints
type ShareHandler struct {
	shareService  *services.ShareService
	yearlyService *services.YearlyService
	stateRepo     repository.StateRepository
	logger        *logging.StructuredLogger
	metrics       *metrics.Collector
}

// NewShareHandler creates a new share handler
func NewShareHandler(
	shareService *services.ShareService,
	yearlyService *services.YearlyService,
	stateRepo repository.StateRepository,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *ShareHandler {
	return &ShareHandler{
		shareService:  shareService,
		yearlyService: yearlyService,
		stateRepo:     stateRepo,
		logger:        logger,
		metrics:       metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// YearlyResponse is the persisted aggregate plus the share value a display
// should use, which falls back to the configured default when no record
// exists yet.
type YearlyResponse struct {
	State               *models.YearlyState `json:"state,omitempty"`
	DisplaySharePercent float64             `json:"display_share_percent"`
}

// UpdateRequest carries optional overrides for an aggregate update run.
type UpdateRequest struct {
	Date    string `json:"date,omitempty"`
	LagDays int    `json:"lag_days,omitempty"`
}

// GetToday handles GET /api/share/today
func (h *ShareHandler) GetToday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/share/today").Observe(duration.Seconds())
	}()

	report, err := h.shareService.BuildComparison(ctx, time.Now().UTC())
	if err != nil {
		h.logger.Error(ctx, "[API_GET_TODAY_ERROR] Failed to build comparison report", logging.Fields{}, err)
		h.sendDomainError(w, r, "/api/share/today", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/share/today", "GET", "200")
	h.sendJSON(w, report, http.StatusOK)
}

// GetShare handles GET /api/share?date=YYYY-MM-DD
func (h *ShareHandler) GetShare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/share").Observe(duration.Seconds())
	}()

	dateStr := r.URL.Query().Get("date")
	date := time.Now().UTC()
	if dateStr != "" {
		parsed, err := models.ParseDate("date", dateStr)
		if err != nil {
			h.sendError(w, r, "invalid date format, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		date = parsed
	}

	dailyShare, err := h.shareService.ComputeDailyShare(ctx, date)
	if err != nil {
		h.logger.Error(ctx, "[API_GET_SHARE_ERROR] Failed to compute daily share", logging.Fields{
			"date": date.Format("2006-01-02"),
		}, err)
		h.sendDomainError(w, r, "/api/share", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/share", "GET", "200")
	h.sendJSON(w, dailyShare, http.StatusOK)
}

// GetYearly handles GET /api/yearly
func (h *ShareHandler) GetYearly(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/yearly").Observe(duration.Seconds())
	}()

	year := time.Now().UTC().Year()
	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		parsed, err := strconv.Atoi(yearStr)
		if err != nil || parsed < 2000 || parsed > 2100 {
			h.sendError(w, r, "invalid year, expected integer between 2000 and 2100", http.StatusBadRequest)
			return
		}
		year = parsed
	}

	state, err := h.yearlyService.GetState(ctx, year)
	if err != nil {
		h.logger.Error(ctx, "[API_GET_YEARLY_ERROR] Failed to load yearly state", logging.Fields{
			"year": year,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/yearly")
		h.sendError(w, r, "failed to retrieve yearly state", http.StatusInternalServerError)
		return
	}

	display, err := h.yearlyService.DisplayShare(ctx, year)
	if err != nil {
		h.metrics.RecordAPIError("internal_error", "/api/yearly")
		h.sendError(w, r, "failed to retrieve yearly state", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/yearly", "GET", "200")
	h.sendJSON(w, YearlyResponse{State: state, DisplaySharePercent: display}, http.StatusOK)
}

// UpdateYearly handles POST /api/yearly/update
func (h *ShareHandler) UpdateYearly(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/yearly/update").Observe(duration.Seconds())
	}()

	var req UpdateRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.sendError(w, r, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	today := time.Now().UTC()
	if req.Date != "" {
		parsed, err := models.ParseDate("date", req.Date)
		if err != nil {
			h.sendError(w, r, "invalid date format, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		today = parsed
	}
	if req.LagDays < 0 {
		h.sendError(w, r, "lag_days must not be negative", http.StatusBadRequest)
		return
	}

	state, err := h.yearlyService.Update(ctx, today, req.LagDays)
	if err != nil {
		h.logger.Error(ctx, "[API_UPDATE_YEARLY_ERROR] Yearly aggregate update failed", logging.Fields{
			"date": today.Format("2006-01-02"),
		}, err)
		h.sendDomainError(w, r, "/api/yearly/update", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/yearly/update", "POST", "200")
	h.sendJSON(w, state, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *ShareHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.stateRepo.HealthCheck(ctx); err != nil {
		h.logger.Error(ctx, "[HEALTH_CHECK_ERROR] Database health check failed", logging.Fields{}, err)
		h.sendJSON(w, map[string]string{
			"status":    "unhealthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}, http.StatusServiceUnavailable)
		return
	}

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

// sendDomainError maps the service error taxonomy to HTTP status codes:
// bad input 400, lost update race 409, implausible result 422, upstream
// trouble 502, anything else 500.
func (h *ShareHandler) sendDomainError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	var (
		validationErr  *models.ValidationError
		conflictErr    *repository.ConflictError
		implausibleErr *services.ImplausibleResultError
		transientErr   *providers.TransientError
		emptyErr       *providers.EmptyDataError
		permanentErr   *providers.PermanentError
	)

	switch {
	case errors.As(err, &validationErr):
		h.metrics.RecordAPIError("validation_error", endpoint)
		h.sendError(w, r, validationErr.Error(), http.StatusBadRequest)
	case errors.As(err, &conflictErr):
		h.metrics.RecordAPIError("conflict", endpoint)
		h.sendError(w, r, conflictErr.Error(), http.StatusConflict)
	case errors.As(err, &implausibleErr):
		h.metrics.RecordAPIError("implausible_result", endpoint)
		h.sendError(w, r, implausibleErr.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &transientErr), errors.As(err, &emptyErr):
		h.metrics.RecordAPIError("upstream_error", endpoint)
		h.sendError(w, r, "upstream data source unavailable", http.StatusBadGateway)
	case errors.As(err, &permanentErr):
		h.metrics.RecordAPIError("upstream_rejected", endpoint)
		h.sendError(w, r, "upstream data source rejected the request", http.StatusBadGateway)
	default:
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, "internal error", http.StatusInternalServerError)
	}
}

// sendJSON sends a JSON response
func (h *ShareHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *ShareHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all share API routes
func (h *ShareHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/share/today", h.GetToday).Methods("GET")
	router.HandleFunc("/api/share", h.GetShare).Methods("GET")
	router.HandleFunc("/api/yearly", h.GetYearly).Methods("GET")
	router.HandleFunc("/api/yearly/update", h.UpdateYearly).Methods("POST")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
