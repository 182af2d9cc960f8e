package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nhsfuk/dharmic-games/services"
)

const maxLogoBytes = 5 << 20

type UniversityHandler struct {
	universityService services.UniversityService
}

func NewUniversityHandler(us services.UniversityService) *UniversityHandler {
	return &UniversityHandler{universityService: us}
}

func (h *UniversityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateUniversityInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	university, err := h.universityService.Create(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	createdResponse(w, r, "university", university)
}

func (h *UniversityHandler) Get(w http.ResponseWriter, r *http.Request) {
	university, err := h.universityService.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	okResponse(w, r, "university", university)
}

func (h *UniversityHandler) List(w http.ResponseWriter, r *http.Request) {
	universities, err := h.universityService.List(r.Context(), r.URL.Query().Get("zone"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	okResponse(w, r, "universities", universities)
}

func (h *UniversityHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input services.UpdateUniversityInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	university, err := h.universityService.Update(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	okResponse(w, r, "university", university)
}

func (h *UniversityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.universityService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadLogo accepts a multipart form with the image in the "logo" field.
func (h *UniversityHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLogoBytes+1024)
	if err := r.ParseMultipartForm(maxLogoBytes); err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to parse multipart form: %w", err))
		return
	}

	file, header, err := r.FormFile("logo")
	if err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to get logo file from form: %w", err))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		badRequestResponse(w, r, errors.New("content-type header is required for logo"))
		return
	}

	university, err := h.universityService.UploadLogo(r.Context(), chi.URLParam(r, "id"), contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	okResponse(w, r, "university", university)
}
