package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nhsfuk/dharmic-games/middleware"
	"github.com/nhsfuk/dharmic-games/models"
	"github.com/nhsfuk/dharmic-games/services"
)

type AdminHandler struct {
	adminService     services.AdminService
	seedService      services.SeedService
	reconcileService services.ReconcileService
}

func NewAdminHandler(as services.AdminService, ss services.SeedService, rs services.ReconcileService) *AdminHandler {
	return &AdminHandler{
		adminService:     as,
		seedService:      ss,
		reconcileService: rs,
	}
}

type decisionInput struct {
	Note string `json:"note"`
}

// SubmitRequest is public: anyone may ask for admin access.
func (h *AdminHandler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var input services.SubmitAdminRequestInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	req, err := h.adminService.SubmitRequest(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	createdResponse(w, r, "request", req)
}

// Role resolves the caller's current role and university.
func (h *AdminHandler) Role(w http.ResponseWriter, r *http.Request) {
	accountID, err := middleware.GetAccountIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current admin")
		return
	}

	account, err := h.adminService.ResolveRole(r.Context(), accountID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"role":          account.Role,
		"university_id": account.UniversityID,
		"account":       account,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	var status *models.AdminRequestStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		s := models.AdminRequestStatus(strings.ToLower(raw))
		if s != models.AdminRequestPending && !s.Decided() {
			failedValidationResponse(w, r, map[string]string{"status": "must be one of: pending approved rejected"})
			return
		}
		status = &s
	}

	requests, err := h.adminService.ListRequests(r.Context(), status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	okResponse(w, r, "requests", requests)
}

func (h *AdminHandler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	reviewerID, input, okDecision := h.decision(w, r)
	if !okDecision {
		return
	}

	account, err := h.adminService.ApproveRequest(r.Context(), chi.URLParam(r, "id"), reviewerID, input.Note)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	okResponse(w, r, "account", account)
}

func (h *AdminHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	reviewerID, input, okDecision := h.decision(w, r)
	if !okDecision {
		return
	}

	req, err := h.adminService.RejectRequest(r.Context(), chi.URLParam(r, "id"), reviewerID, input.Note)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	okResponse(w, r, "request", req)
}

func (h *AdminHandler) decision(w http.ResponseWriter, r *http.Request) (string, decisionInput, bool) {
	var input decisionInput
	reviewerID, err := middleware.GetAccountIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current admin")
		return "", input, false
	}
	if _, err := readOptionalJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return "", input, false
	}
	return reviewerID, input, true
}

func (h *AdminHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.adminService.ListAccounts(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	okResponse(w, r, "accounts", accounts)
}

func (h *AdminHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var input services.CreateAdminAccountInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	account, err := h.adminService.CreateAccount(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	createdResponse(w, r, "account", account)
}

func (h *AdminHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.GetAccountIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current admin")
		return
	}

	var input services.UpdateAdminAccountInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	account, err := h.adminService.UpdateAccount(r.Context(), actorID, chi.URLParam(r, "id"), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	okResponse(w, r, "account", account)
}

func (h *AdminHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.GetAccountIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current admin")
		return
	}

	if err := h.adminService.DeleteAccount(r.Context(), actorID, chi.URLParam(r, "id")); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) Seed(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.GetAccountIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current admin")
		return
	}

	var input services.SeedInput
	if _, err := readOptionalJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.seedService.Seed(r.Context(), actorID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	status := http.StatusOK
	if result.Seeded {
		status = http.StatusCreated
	}
	if err := writeJSON(w, status, jsonResponse{"seed": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconcileService.Reconcile(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	okResponse(w, r, "report", report)
}

// LastReconcile returns the most recent reconciliation report, if any ran.
func (h *AdminHandler) LastReconcile(w http.ResponseWriter, r *http.Request) {
	okResponse(w, r, "report", h.reconcileService.LastReport())
}
