package handler

import (
	"net/http"

	"github.com/coinwatch/ratevault/internal/infrastructure/agent"
	"github.com/coinwatch/ratevault/internal/infrastructure/bus"
	"github.com/coinwatch/ratevault/internal/infrastructure/logger"
	"github.com/coinwatch/ratevault/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
)

// AgentHandler exposes diagnostics and control for the asset cache
// agent
type AgentHandler struct {
	agent  *agent.Agent
	bus    *bus.Bus
	logger logger.Logger
}

// NewAgentHandler creates a new agent handler
func NewAgentHandler(a *agent.Agent, b *bus.Bus, log logger.Logger) *AgentHandler {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &AgentHandler{
		agent:  a,
		bus:    b,
		logger: log,
	}
}

// Status reports the agent lifecycle state and current generation
func (h *AgentHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, AgentStatusResponse{
		State:      string(h.agent.State()),
		Generation: h.agent.Generation(),
	})
}

// Keys lists every request path held in the active generation
func (h *AgentHandler) Keys(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	keys, err := h.agent.Keys()
	if err != nil {
		h.logger.Error("Failed to enumerate cached assets", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Failed to enumerate cached assets",
			"The asset generation could not be read", http.StatusInternalServerError, requestID)
		return
	}

	writeJSON(w, http.StatusOK, AgentKeysResponse{
		Generation: h.agent.Generation(),
		Keys:       keys,
	})
}

// SkipWaiting broadcasts a forced-promotion request. The agent picks
// it up from the bus, same as any other application instance would.
func (h *AgentHandler) SkipWaiting(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	h.logger.Info("Handling skip-waiting request", map[string]interface{}{
		"request_id": requestID,
		"state":      string(h.agent.State()),
	})

	h.bus.Publish(bus.Message{Type: bus.TypeSkipWaiting})

	writeJSON(w, http.StatusAccepted, StatusResponse{Status: "requested"})
}

// RegisterRoutes registers the agent handler routes
func (h *AgentHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/agent/status", h.Status).Methods("GET")
	router.HandleFunc("/api/agent/keys", h.Keys).Methods("GET")
	router.HandleFunc("/api/agent/skip-waiting", h.SkipWaiting).Methods("POST")

	h.logger.Info("Agent routes registered", map[string]interface{}{
		"routes": []string{
			"GET /api/agent/status",
			"GET /api/agent/keys",
			"POST /api/agent/skip-waiting",
		},
	})
}
