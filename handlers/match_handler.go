package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nhsfuk/dharmic-games/models"
	"github.com/nhsfuk/dharmic-games/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(ms services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: ms}
}

type cancelInput struct {
	Reason string `json:"reason"`
}

func (h *MatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.Create(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	createdResponse(w, r, "match", match)
}

func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	match, err := h.matchService.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	okResponse(w, r, "match", match)
}

// List supports ?status=, ?sport=, ?zone= and ?university_id= filters.
func (h *MatchHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.MatchFilter{
		Sport:        q.Get("sport"),
		Zone:         q.Get("zone"),
		UniversityID: q.Get("university_id"),
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status := models.MatchStatus(strings.ToLower(raw))
		if !status.Valid() {
			badRequestResponse(w, r, fmt.Errorf("unknown match status %q", raw))
			return
		}
		filter.Status = &status
	}

	matches, err := h.matchService.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	okResponse(w, r, "matches", matches)
}

func (h *MatchHandler) LiveScores(w http.ResponseWriter, r *http.Request) {
	scores, err := h.matchService.LiveScores(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	okResponse(w, r, "live_scores", scores)
}

func (h *MatchHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input services.UpdateMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.Update(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	okResponse(w, r, "match", match)
}

func (h *MatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.matchService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	match, err := h.matchService.Start(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	okResponse(w, r, "match", match)
}

func (h *MatchHandler) UpdateScore(w http.ResponseWriter, r *http.Request) {
	var input services.ScoreInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.UpdateScore(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	okResponse(w, r, "match", match)
}

// Complete finishes a live match. The body may carry the final score; without
// one the last live score stands.
func (h *MatchHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var input services.ScoreInput
	present, err := readOptionalJSON(w, r, &input)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var final *services.ScoreInput
	if present {
		final = &input
	}

	match, err := h.matchService.Complete(r.Context(), chi.URLParam(r, "id"), final)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	okResponse(w, r, "match", match)
}

func (h *MatchHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var input cancelInput
	if _, err := readOptionalJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.Cancel(r.Context(), chi.URLParam(r, "id"), input.Reason)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	okResponse(w, r, "match", match)
}

func (h *MatchHandler) CorrectScore(w http.ResponseWriter, r *http.Request) {
	var input services.ScoreInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.CorrectScore(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	okResponse(w, r, "match", match)
}
