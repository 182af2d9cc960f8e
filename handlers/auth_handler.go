package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/nhsfuk/dharmic-games/middleware"
	"github.com/nhsfuk/dharmic-games/services"
)

type AuthHandler struct {
	adminService services.AdminService
	jwtSecret    []byte
	now          func() time.Time
}

func NewAuthHandler(adminService services.AdminService, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		adminService: adminService,
		jwtSecret:    []byte(jwtSecret),
		now:          time.Now,
	}
}

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input loginInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if strings.TrimSpace(input.Email) == "" || input.Password == "" {
		badRequestResponse(w, r, errors.New("email and password are required"))
		return
	}

	account, err := h.adminService.Authenticate(r.Context(), input.Email, input.Password)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	token, expires, err := middleware.IssueToken(h.jwtSecret, account, h.now())
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	response := jsonResponse{
		"token":      token,
		"expires_at": expires,
		"account":    account,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
