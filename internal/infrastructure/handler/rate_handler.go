package handler

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/coinwatch/ratevault/internal/application/service"
	"github.com/coinwatch/ratevault/internal/domain/entity"
	"github.com/coinwatch/ratevault/internal/domain/repository"
	"github.com/coinwatch/ratevault/internal/infrastructure/logger"
	"github.com/coinwatch/ratevault/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
)

// RateHandler handles HTTP requests for conversion and currency data
type RateHandler struct {
	rates      *service.RateService
	currencies *service.CurrencyService
	store      repository.Store
	logger     logger.Logger
}

// NewRateHandler creates a new rate handler
func NewRateHandler(rates *service.RateService, currencies *service.CurrencyService, store repository.Store, log logger.Logger) *RateHandler {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &RateHandler{
		rates:      rates,
		currencies: currencies,
		store:      store,
		logger:     log,
	}
}

// Convert handles currency conversion requests
func (h *RateHandler) Convert(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	amountParam := r.URL.Query().Get("amount")

	h.logger.Info("Handling convert request", map[string]interface{}{
		"request_id": requestID,
		"from":       from,
		"to":         to,
		"amount":     amountParam,
	})

	if len(from) != 3 || len(to) != 3 {
		sendErrorResponse(w, h.logger, "Invalid currency code",
			"Both 'from' and 'to' must be 3-letter currency codes (e.g., USD, EUR)",
			http.StatusBadRequest, requestID)
		return
	}

	amount := 1.0
	if amountParam != "" {
		parsed, err := strconv.ParseFloat(amountParam, 64)
		if err != nil || parsed < 0 {
			sendErrorResponse(w, h.logger, "Invalid amount",
				"Amount must be a non-negative number", http.StatusBadRequest, requestID)
			return
		}
		amount = parsed
	}

	result, err := h.rates.LoadRate(r.Context(), from, to)
	if err != nil {
		h.sendCacheError(w, err, requestID)
		return
	}

	record := result.Record
	converted := math.Round(amount*record.Rate*100) / 100

	// Remember the working pair so the next catalog load can validate
	// it against the available codes
	if err := h.currencies.SetSelectedPair(r.Context(), record.From, record.To); err != nil {
		h.logger.Warn("Failed to persist selected pair", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
	}

	h.logger.Info("Conversion completed", map[string]interface{}{
		"request_id":       requestID,
		"from":             record.From,
		"to":               record.To,
		"rate":             record.Rate,
		"source":           string(result.Source),
		"converted_amount": converted,
	})

	writeJSON(w, http.StatusOK, ConvertResponse{
		From:            record.From,
		To:              record.To,
		Amount:          amount,
		Rate:            record.Rate,
		ConvertedAmount: converted,
		Provider:        record.Provider,
		Source:          string(result.Source),
		FetchedAt:       record.FetchedAt.Format(timeFormat),
		RateDate:        record.APIDate,
		Stale:           record.IsStale(entity.DefaultRateStaleness),
	})
}

// Currencies handles currency list requests
func (h *RateHandler) Currencies(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	h.logger.Info("Handling currencies request", map[string]interface{}{
		"request_id": requestID,
	})

	result, err := h.currencies.LoadCurrencies(r.Context())
	if err != nil {
		h.sendCacheError(w, err, requestID)
		return
	}

	writeJSON(w, http.StatusOK, CurrenciesResponse{
		Provider:     result.List.Provider,
		Currencies:   result.List.Currencies,
		Source:       string(result.Source),
		FetchedAt:    result.List.FetchedAt.Format(timeFormat),
		Stale:        result.List.IsStale(entity.DefaultCurrencyStaleness),
		SelectedFrom: result.Pair.From,
		SelectedTo:   result.Pair.To,
	})
}

// ClearCache handles the full-cache-clear operation
func (h *RateHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	h.logger.Info("Handling cache clear request", map[string]interface{}{
		"request_id": requestID,
	})

	if err := h.store.Clear(r.Context()); err != nil {
		h.logger.Error("Cache clear failed", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Cache clear failed",
			"The persistent cache could not be cleared", http.StatusInternalServerError, requestID)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: "cleared"})
}

// sendCacheError maps the cache error taxonomy to HTTP responses.
// Credential problems are surfaced distinctly so the caller prompts
// for a key instead of reporting a connectivity problem.
func (h *RateHandler) sendCacheError(w http.ResponseWriter, err error, requestID string) {
	var netErr *entity.NetworkError

	switch {
	case errors.Is(err, entity.ErrCredentialRequired):
		sendErrorResponse(w, h.logger, "Credential required",
			"The active provider requires an API credential; configure one to fetch live data",
			http.StatusUnauthorized, requestID)
	case errors.Is(err, entity.ErrInvalidCredential):
		sendErrorResponse(w, h.logger, "Invalid credential",
			"The provider rejected the configured credential; re-enter it",
			http.StatusForbidden, requestID)
	case errors.Is(err, entity.ErrRateNotFound):
		sendErrorResponse(w, h.logger, "Rate unavailable",
			"The provider response contained no usable rate and no cached copy exists",
			http.StatusBadGateway, requestID)
	case errors.As(err, &netErr):
		sendErrorResponse(w, h.logger, "Provider unavailable",
			"The provider could not be reached and no cached copy exists",
			http.StatusBadGateway, requestID)
	default:
		h.logger.Error("Unexpected error in rate handler", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Provider unavailable",
			"Live data could not be fetched and no cached copy exists",
			http.StatusBadGateway, requestID)
	}
}

// RegisterRoutes registers the rate handler routes
func (h *RateHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/rates/convert", h.Convert).Methods("GET")
	router.HandleFunc("/api/currencies", h.Currencies).Methods("GET")
	router.HandleFunc("/api/cache/clear", h.ClearCache).Methods("POST")

	h.logger.Info("Rate routes registered", map[string]interface{}{
		"routes": []string{
			"GET /api/rates/convert",
			"GET /api/currencies",
			"POST /api/cache/clear",
		},
	})
}

const timeFormat = "2006-01-02T15:04:05Z07:00"

// writeJSON writes a JSON response body with the given status
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// sendErrorResponse sends a standardized error response
func sendErrorResponse(w http.ResponseWriter, log logger.Logger, message, description string, statusCode int, requestID string) {
	log.Debug("Sending error response", map[string]interface{}{
		"request_id":  requestID,
		"status_code": statusCode,
		"message":     message,
	})

	writeJSON(w, statusCode, ErrorResponse{
		Error:       message,
		Status:      statusCode,
		Description: description,
		RequestID:   requestID,
	})
}
