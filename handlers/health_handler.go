package handlers

import (
	_ "embed"
	"net/http"
	"time"

	"github.com/nhsfuk/dharmic-games/realtime"
)

//go:embed openapi.json
var openAPIDocument []byte

type HealthHandler struct {
	hub     *realtime.Hub
	backend string
	started time.Time
}

func NewHealthHandler(hub *realtime.Hub, backend string) *HealthHandler {
	return &HealthHandler{hub: hub, backend: backend, started: time.Now()}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	response := jsonResponse{
		"status":            "ok",
		"store_backend":     h.backend,
		"websocket_clients": h.hub.ClientCount(),
		"uptime":            time.Since(h.started).Round(time.Second).String(),
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// OpenAPI serves the API description consumed by the swagger UI.
func (h *HealthHandler) OpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPIDocument)
}
