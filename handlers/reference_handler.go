package handlers

import (
	"net/http"

	"github.com/nhsfuk/dharmic-games/services"
)

// ReferenceHandler serves the seeded sports and zones.
type ReferenceHandler struct {
	seedService services.SeedService
}

func NewReferenceHandler(ss services.SeedService) *ReferenceHandler {
	return &ReferenceHandler{seedService: ss}
}

func (h *ReferenceHandler) Sports(w http.ResponseWriter, r *http.Request) {
	sports, err := h.seedService.Sports(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	okResponse(w, r, "sports", sports)
}

func (h *ReferenceHandler) Zones(w http.ResponseWriter, r *http.Request) {
	zones, err := h.seedService.Zones(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	okResponse(w, r, "zones", zones)
}
