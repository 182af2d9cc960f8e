package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/nhsfuk/dharmic-games/models"
	"github.com/nhsfuk/dharmic-games/services"
)

const TokenTTL = 24 * time.Hour

// Claims is the payload of an admin access token.
type Claims struct {
	AccountID    string          `json:"account_id"`
	Role         models.UserRole `json:"role"`
	UniversityID string          `json:"university_id,omitempty"`
	jwt.RegisteredClaims
}

// AccountResolver looks up the current state of an admin account.
type AccountResolver interface {
	ResolveRole(ctx context.Context, accountID string) (*models.AdminAccount, error)
}

// IssueToken signs an HS256 token for account valid until now+TokenTTL.
func IssueToken(secret []byte, account *models.AdminAccount, now time.Time) (string, time.Time, error) {
	expires := now.Add(TokenTTL)
	claims := Claims{
		AccountID:    account.ID,
		Role:         account.Role,
		UniversityID: account.UniversityID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// ParseToken verifies an HS256 token and returns its claims.
func ParseToken(secret []byte, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.AccountID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Authenticate requires a valid bearer token. The account is re-read on every
// request so role changes and deletions apply before the token expires.
func Authenticate(secret []byte, accounts AccountResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(tokenString) == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := ParseToken(secret, strings.TrimSpace(tokenString))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			account, err := accounts.ResolveRole(r.Context(), claims.AccountID)
			switch {
			case errors.Is(err, services.ErrAdminNotFound):
				writeError(w, http.StatusUnauthorized, "account no longer exists")
				return
			case errors.Is(err, services.ErrStorePermissionDenied):
				writeError(w, http.StatusServiceUnavailable, "account store is unavailable")
				return
			case err != nil:
				logger.Error("failed to resolve admin account", slog.String("account_id", claims.AccountID), slog.Any("error", err))
				writeError(w, http.StatusInternalServerError, "failed to resolve account")
				return
			}
			claims.Role = account.Role
			claims.UniversityID = account.UniversityID

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// Authorize allows the request through only for the listed roles.
// It must run after Authenticate.
func Authorize(roles ...models.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, err := GetRoleFromContext(r.Context())
			if err != nil {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !slices.Contains(roles, role) {
				writeError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
