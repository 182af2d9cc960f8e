package middleware

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhsfuk/dharmic-games/models"
	"github.com/nhsfuk/dharmic-games/services"
)

var testSecret = []byte("test-secret")

type fakeResolver map[string]models.AdminAccount

func (f fakeResolver) ResolveRole(_ context.Context, id string) (*models.AdminAccount, error) {
	a, ok := f[id]
	if !ok {
		return nil, services.ErrAdminNotFound
	}
	return &a, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func protected(resolver AccountResolver, roles ...models.UserRole) http.Handler {
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := GetAccountIDFromContext(r.Context())
		role, _ := GetRoleFromContext(r.Context())
		fmt.Fprintf(w, "%s:%s", id, role)
	})
	return Authenticate(testSecret, resolver, discardLogger())(Authorize(roles...)(final))
}

func request(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/accounts", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestIssueAndParseToken(t *testing.T) {
	now := time.Now()
	account := &models.AdminAccount{ID: "a1", Role: models.RoleUniversityAdmin, UniversityID: "u1"}

	token, expires, err := IssueToken(testSecret, account, now)
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(24*time.Hour), expires, time.Second)

	claims, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "a1", claims.AccountID)
	assert.Equal(t, models.RoleUniversityAdmin, claims.Role)
	assert.Equal(t, "u1", claims.UniversityID)

	_, err = ParseToken([]byte("other-secret"), token)
	assert.Error(t, err)
}

func TestParseToken_RejectsExpiredAndForeignAlgorithms(t *testing.T) {
	expired, _, err := IssueToken(testSecret, &models.AdminAccount{ID: "a1", Role: models.RoleAdmin}, time.Now().Add(-48*time.Hour))
	require.NoError(t, err)
	_, err = ParseToken(testSecret, expired)
	assert.Error(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{AccountID: "a1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseToken(testSecret, unsigned)
	assert.Error(t, err)
}

func TestAuthenticate(t *testing.T) {
	resolver := fakeResolver{
		"a1": {ID: "a1", Role: models.RoleSuperAdmin},
		"a2": {ID: "a2", Role: models.RoleAdmin},
	}
	token := func(id string, role models.UserRole) string {
		s, _, err := IssueToken(testSecret, &models.AdminAccount{ID: id, Role: role}, time.Now())
		require.NoError(t, err)
		return s
	}

	tests := []struct {
		name       string
		token      string
		wantStatus int
		wantBody   string
	}{
		{"missing token", "", http.StatusUnauthorized, ""},
		{"garbage token", "not-a-jwt", http.StatusUnauthorized, ""},
		{"super admin", token("a1", models.RoleSuperAdmin), http.StatusOK, "a1:super_admin"},
		{"role taken from the account, not the token", token("a2", models.RoleSuperAdmin), http.StatusForbidden, ""},
		{"deleted account", token("gone", models.RoleSuperAdmin), http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			protected(resolver, models.RoleSuperAdmin).ServeHTTP(rr, request(tt.token))

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rr.Body.String())
			} else {
				assert.Contains(t, rr.Body.String(), `"success":false`)
			}
		})
	}
}

func TestAuthorize_WithoutClaims(t *testing.T) {
	rr := httptest.NewRecorder()
	handler := Authorize(models.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRateLimitByIP(t *testing.T) {
	handler := RateLimitByIP(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "203.0.113.9:4000"
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}
