package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nhsfuk/dharmic-games/middleware"
	"github.com/nhsfuk/dharmic-games/models"
	"github.com/nhsfuk/dharmic-games/services"
)

const universityScopeMessage = "university admins can only manage players of their own university"

type PlayerHandler struct {
	playerService services.PlayerService
}

func NewPlayerHandler(ps services.PlayerService) *PlayerHandler {
	return &PlayerHandler{playerService: ps}
}

type checkInInput struct {
	CheckedIn *bool `json:"checked_in"`
}

func (h *PlayerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input services.RegisterPlayerInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if !canManageUniversity(r, input.UniversityID) {
		forbiddenResponse(w, r, universityScopeMessage)
		return
	}

	player, err := h.playerService.Register(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	createdResponse(w, r, "player", player)
}

func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	player, ok := h.scopedPlayer(w, r)
	if !ok {
		return
	}
	okResponse(w, r, "player", player)
}

// List answers with the players list and the degraded flag. University admins
// only see their own university.
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	checkedIn, err := queryBool(r, "checked_in")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	filter := models.PlayerFilter{
		UniversityID: r.URL.Query().Get("university_id"),
		Sport:        r.URL.Query().Get("sport"),
		CheckedIn:    checkedIn,
	}
	if claims, err := middleware.ClaimsFromContext(r.Context()); err == nil && claims.Role == models.RoleUniversityAdmin {
		filter.UniversityID = claims.UniversityID
	}

	list, err := h.playerService.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"players":  list.Players,
		"degraded": list.Degraded,
	}
	if list.Notice != "" {
		response["notice"] = list.Notice
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PlayerHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.scopedPlayer(w, r)
	if !ok {
		return
	}

	var input services.UpdatePlayerInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.UniversityID != nil && !canManageUniversity(r, *input.UniversityID) {
		forbiddenResponse(w, r, universityScopeMessage)
		return
	}

	player, err := h.playerService.Update(r.Context(), existing.ID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	okResponse(w, r, "player", player)
}

func (h *PlayerHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.scopedPlayer(w, r)
	if !ok {
		return
	}

	input := checkInInput{}
	if _, err := readOptionalJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	checkedIn := true
	if input.CheckedIn != nil {
		checkedIn = *input.CheckedIn
	}

	player, err := h.playerService.CheckIn(r.Context(), existing.ID, checkedIn)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	okResponse(w, r, "player", player)
}

func (h *PlayerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.scopedPlayer(w, r)
	if !ok {
		return
	}

	if err := h.playerService.Delete(r.Context(), existing.ID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// scopedPlayer loads the player named in the URL and checks the caller may
// manage it. It writes the error reply itself.
func (h *PlayerHandler) scopedPlayer(w http.ResponseWriter, r *http.Request) (*models.Player, bool) {
	player, err := h.playerService.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return nil, false
	}
	if !canManageUniversity(r, player.UniversityID) {
		forbiddenResponse(w, r, universityScopeMessage)
		return nil, false
	}
	return player, true
}

func canManageUniversity(r *http.Request, universityID string) bool {
	claims, err := middleware.ClaimsFromContext(r.Context())
	if err != nil {
		return false
	}
	if claims.Role != models.RoleUniversityAdmin {
		return true
	}
	return claims.UniversityID != "" && claims.UniversityID == universityID
}
