package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/nhsfuk/dharmic-games/services"
)

// jsonResponse is the body of every API reply. Successful replies carry
// "success": true, failures "success": false and an "error" message.
type jsonResponse map[string]interface{}

const maxBodyBytes = 1_048_576 // 1MB

const degradedNotice = "Some data is temporarily unavailable because the data store refused access. Showing what could be loaded."

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBodyBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.Contains(err.Error(), "unknown field "):
			_, field, _ := strings.Cut(err.Error(), "unknown field ")
			return fmt.Errorf("body contains unknown key %s", field)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBodyBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}

// readOptionalJSON decodes the body into dst unless the body is empty.
func readOptionalJSON(w http.ResponseWriter, r *http.Request, dst interface{}) (bool, error) {
	if r.ContentLength == 0 {
		return false, nil
	}
	if err := readJSON(w, r, dst); err != nil {
		if err.Error() == "body must not be empty" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func writeJSON(w http.ResponseWriter, status int, data jsonResponse, headers http.Header) error {
	if _, ok := data["success"]; !ok {
		data["success"] = status < http.StatusBadRequest
	}
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

// okResponse writes a 200 reply carrying data under key.
func okResponse(w http.ResponseWriter, r *http.Request, key string, data interface{}) {
	if err := writeJSON(w, http.StatusOK, jsonResponse{key: data}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func createdResponse(w http.ResponseWriter, r *http.Request, key string, data interface{}) {
	if err := writeJSON(w, http.StatusCreated, jsonResponse{key: data}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	env := jsonResponse{"success": false, "error": message}
	if err := writeJSON(w, status, env, nil); err != nil {
		slog.Error("failed to write error response", slog.String("path", r.URL.Path), slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	message := "the server encountered a problem and could not process your request"
	errorResponse(w, r, http.StatusInternalServerError, message)
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func failedValidationResponse(w http.ResponseWriter, r *http.Request, fields map[string]string) {
	env := jsonResponse{"success": false, "error": services.ErrValidationFailed.Error(), "fields": fields}
	if err := writeJSON(w, http.StatusUnprocessableEntity, env, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func notFoundResponse(w http.ResponseWriter, r *http.Request, message string) {
	if message == "" {
		message = "the requested resource could not be found"
	}
	errorResponse(w, r, http.StatusNotFound, message)
}

func conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusConflict, message)
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnauthorized, message)
}

func forbiddenResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusForbidden, message)
}

func degradedResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.Warn("store denied access", slog.String("path", r.URL.Path), slog.Any("error", err))
	env := jsonResponse{"success": false, "error": services.ErrStorePermissionDenied.Error(), "degraded": true, "notice": degradedNotice}
	if werr := writeJSON(w, http.StatusServiceUnavailable, env, nil); werr != nil {
		serverErrorResponse(w, r, werr)
	}
}

// mapServiceErrorToHTTP turns service layer errors into HTTP replies.
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		failedValidationResponse(w, r, verr.Fields)
	case errors.Is(err, services.ErrValidationFailed):
		badRequestResponse(w, r, err)

	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrUniversityNotFound),
		errors.Is(err, services.ErrPlayerNotFound),
		errors.Is(err, services.ErrMatchNotFound),
		errors.Is(err, services.ErrAdminRequestNotFound),
		errors.Is(err, services.ErrAdminNotFound):
		notFoundResponse(w, r, err.Error())

	case errors.Is(err, services.ErrUniversityNameConflict),
		errors.Is(err, services.ErrUniversityInUse),
		errors.Is(err, services.ErrAdminEmailConflict),
		errors.Is(err, services.ErrAdminRequestDuplicate),
		errors.Is(err, services.ErrAdminRequestDecided),
		errors.Is(err, services.ErrRosterFull):
		conflictResponse(w, r, err.Error())

	case errors.Is(err, services.ErrMatchInvalidStatusTransition),
		errors.Is(err, services.ErrMatchNotLive),
		errors.Is(err, services.ErrMatchNotCompleted),
		errors.Is(err, services.ErrMatchNotEditable),
		errors.Is(err, services.ErrMatchSameTeams),
		errors.Is(err, services.ErrMatchInPast),
		errors.Is(err, services.ErrPlayerSportNotRegistered),
		errors.Is(err, services.ErrUnsupportedLogoType):
		badRequestResponse(w, r, err)

	case errors.Is(err, services.ErrInvalidCredentials):
		unauthorizedResponse(w, r, err.Error())
	case errors.Is(err, services.ErrForbiddenOperation),
		errors.Is(err, services.ErrCannotDeleteSelf),
		errors.Is(err, services.ErrLastSuperAdmin):
		forbiddenResponse(w, r, err.Error())

	case errors.Is(err, services.ErrLogoUploadDisabled):
		errorResponse(w, r, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, services.ErrStorePermissionDenied):
		degradedResponse(w, r, err)

	default:
		serverErrorResponse(w, r, err)
	}
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, name string) (*bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("query parameter %q must be true or false", name)
	}
	return &v, nil
}
