package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nhsfuk/dharmic-games/services"
)

type StandingsHandler struct {
	standingsService services.StandingsService
}

func NewStandingsHandler(ss services.StandingsService) *StandingsHandler {
	return &StandingsHandler{standingsService: ss}
}

// Leaderboard returns the league table, optionally narrowed to ?zone=.
func (h *StandingsHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	zone := r.URL.Query().Get("zone")
	standings, err := h.standingsService.Leaderboard(r.Context(), zone)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"standings": standings}
	if zone != "" {
		response["zone"] = zone
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *StandingsHandler) ForUniversity(w http.ResponseWriter, r *http.Request) {
	standing, err := h.standingsService.ForUniversity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	okResponse(w, r, "standing", standing)
}
