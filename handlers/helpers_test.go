package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhsfuk/dharmic-games/realtime"
	"github.com/nhsfuk/dharmic-games/services"
)

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body
}

func TestMapServiceErrorToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", fmt.Errorf("load: %w", services.ErrMatchNotFound), http.StatusNotFound},
		{"conflict", services.ErrUniversityNameConflict, http.StatusConflict},
		{"roster full", services.ErrRosterFull, http.StatusConflict},
		{"transition", fmt.Errorf("%w: completed -> live", services.ErrMatchInvalidStatusTransition), http.StatusBadRequest},
		{"credentials", services.ErrInvalidCredentials, http.StatusUnauthorized},
		{"last super admin", services.ErrLastSuperAdmin, http.StatusForbidden},
		{"self delete", services.ErrCannotDeleteSelf, http.StatusForbidden},
		{"uploads off", services.ErrLogoUploadDisabled, http.StatusServiceUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			mapServiceErrorToHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/x", nil), tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			body := decodeBody(t, rr)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestMapServiceErrorToHTTP_ValidationFields(t *testing.T) {
	rr := httptest.NewRecorder()
	err := fmt.Errorf("create: %w", &services.ValidationError{Fields: map[string]string{"name": "is required"}})
	mapServiceErrorToHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/universities", nil), err)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, map[string]any{"name": "is required"}, body["fields"])
}

func TestMapServiceErrorToHTTP_Degraded(t *testing.T) {
	rr := httptest.NewRecorder()
	err := fmt.Errorf("%w: list matches: denied", services.ErrStorePermissionDenied)
	mapServiceErrorToHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/matches", nil), err)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, true, body["degraded"])
	assert.Equal(t, degradedNotice, body["notice"])
}

func TestReadJSON(t *testing.T) {
	type input struct {
		Name string `json:"name"`
	}
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"name":"Leeds"}`, ""},
		{"empty", ``, "body must not be empty"},
		{"malformed", `{"name":`, "badly-formed JSON"},
		{"wrong type", `{"name":3}`, "incorrect JSON type"},
		{"unknown key", `{"colour":"blue"}`, "unknown key"},
		{"two values", `{"name":"a"}{"name":"b"}`, "single JSON value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dst input
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			err := readJSON(httptest.NewRecorder(), req, &dst)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "Leeds", dst.Name)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestReadOptionalJSON(t *testing.T) {
	var dst struct {
		Reason string `json:"reason"`
	}
	present, err := readOptionalJSON(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil), &dst)
	require.NoError(t, err)
	assert.False(t, present)

	present, err = readOptionalJSON(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":"rain"}`)), &dst)
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, "rain", dst.Reason)
}

func TestWriteJSON_SetsSuccessFlag(t *testing.T) {
	rr := httptest.NewRecorder()
	require.NoError(t, writeJSON(rr, http.StatusCreated, jsonResponse{"id": "u1"}, http.Header{"X-Request-Id": {"r1"}}))

	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "r1", rr.Header().Get("X-Request-Id"))
	body := decodeBody(t, rr)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "u1", body["id"])
}

func TestParseComponents(t *testing.T) {
	rooms, err := parseComponents("")
	require.NoError(t, err)
	assert.Equal(t, []string{realtime.Wildcard}, rooms)

	rooms, err = parseComponents(" league-table, scoreboard ,league-table,")
	require.NoError(t, err)
	assert.Equal(t, []string{realtime.ComponentLeagueTable, realtime.ComponentScoreboard}, rooms)

	_, err = parseComponents("league-table,sidebar")
	assert.Error(t, err)
}

func TestOriginChecker(t *testing.T) {
	request := func(origin string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		return req
	}

	check := originChecker([]string{"https://games.nhsf.org.uk/"})
	assert.True(t, check(request("https://games.nhsf.org.uk")))
	assert.True(t, check(request("")))
	assert.False(t, check(request("https://evil.example.com")))

	assert.True(t, originChecker([]string{"*"})(request("https://anything.example.com")))
}
