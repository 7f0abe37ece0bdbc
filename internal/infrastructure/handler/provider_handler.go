package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/coinwatch/ratevault/internal/application/service"
	"github.com/coinwatch/ratevault/internal/domain/entity"
	"github.com/coinwatch/ratevault/internal/infrastructure/logger"
	"github.com/coinwatch/ratevault/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
)

// ProviderHandler handles HTTP requests for provider selection and
// credential management
type ProviderHandler struct {
	session *service.Session
	logger  logger.Logger
}

// NewProviderHandler creates a new provider handler
func NewProviderHandler(session *service.Session, log logger.Logger) *ProviderHandler {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &ProviderHandler{
		session: session,
		logger:  log,
	}
}

// List returns the provider catalog with the active one marked
func (h *ProviderHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	active := h.session.Config().Name

	catalog := entity.Providers()
	providers := make([]ProviderResponse, 0, len(catalog))
	for _, p := range catalog {
		providers = append(providers, ProviderResponse{
			Name:        p.Name,
			DisplayName: p.DisplayName,
			RequiresKey: p.RequiresKey,
			Active:      p.Name == active,
		})
	}

	h.logger.Debug("Listed providers", map[string]interface{}{
		"request_id": requestID,
		"active":     active,
	})

	writeJSON(w, http.StatusOK, providers)
}

// Select activates a provider by name. Cached data from previous
// providers is kept.
func (h *ProviderHandler) Select(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	name := mux.Vars(r)["name"]

	h.logger.Info("Handling provider select request", map[string]interface{}{
		"request_id": requestID,
		"provider":   name,
	})

	if err := h.session.SelectProvider(r.Context(), name); err != nil {
		sendErrorResponse(w, h.logger, "Unknown provider",
			"No provider is registered under that name", http.StatusNotFound, requestID)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: "selected"})
}

// SetCredential stores an API credential for the named provider
func (h *ProviderHandler) SetCredential(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	name := mux.Vars(r)["name"]

	if name != h.session.Config().Name {
		sendErrorResponse(w, h.logger, "Provider not active",
			"Credentials can only be set on the active provider; select it first",
			http.StatusConflict, requestID)
		return
	}

	var req CredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, h.logger, "Invalid request body",
			"Expected a JSON body with a 'credential' field", http.StatusBadRequest, requestID)
		return
	}

	credential := strings.TrimSpace(req.Credential)
	if credential == "" {
		sendErrorResponse(w, h.logger, "Empty credential",
			"The 'credential' field must not be empty", http.StatusBadRequest, requestID)
		return
	}

	if err := h.session.SetCredential(r.Context(), credential); err != nil {
		h.logger.Error("Failed to persist credential", map[string]interface{}{
			"request_id": requestID,
			"provider":   name,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Failed to store credential",
			"The credential could not be persisted", http.StatusInternalServerError, requestID)
		return
	}

	// The credential value never reaches the log
	h.logger.Info("Credential stored", map[string]interface{}{
		"request_id": requestID,
		"provider":   name,
	})

	writeJSON(w, http.StatusOK, StatusResponse{Status: "stored"})
}

// ClearCredential removes the stored credential for the named provider
func (h *ProviderHandler) ClearCredential(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	name := mux.Vars(r)["name"]

	if name != h.session.Config().Name {
		sendErrorResponse(w, h.logger, "Provider not active",
			"Credentials can only be cleared on the active provider; select it first",
			http.StatusConflict, requestID)
		return
	}

	if err := h.session.ClearCredential(r.Context()); err != nil {
		h.logger.Error("Failed to clear credential", map[string]interface{}{
			"request_id": requestID,
			"provider":   name,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Failed to clear credential",
			"The stored credential could not be removed", http.StatusInternalServerError, requestID)
		return
	}

	h.logger.Info("Credential cleared", map[string]interface{}{
		"request_id": requestID,
		"provider":   name,
	})

	writeJSON(w, http.StatusOK, StatusResponse{Status: "cleared"})
}

// RegisterRoutes registers the provider handler routes
func (h *ProviderHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/providers", h.List).Methods("GET")
	router.HandleFunc("/api/providers/{name}/select", h.Select).Methods("POST")
	router.HandleFunc("/api/providers/{name}/credential", h.SetCredential).Methods("PUT")
	router.HandleFunc("/api/providers/{name}/credential", h.ClearCredential).Methods("DELETE")

	h.logger.Info("Provider routes registered", map[string]interface{}{
		"routes": []string{
			"GET /api/providers",
			"POST /api/providers/{name}/select",
			"PUT /api/providers/{name}/credential",
			"DELETE /api/providers/{name}/credential",
		},
	})
}
