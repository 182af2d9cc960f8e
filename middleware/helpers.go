package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/nhsfuk/dharmic-games/models"
)

type contextKey string

const claimsContextKey contextKey = "claims"

var errNoClaims = errors.New("admin claims not found in context")

func ClaimsFromContext(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	if !ok || claims == nil {
		return nil, errNoClaims
	}
	return claims, nil
}

func GetAccountIDFromContext(ctx context.Context) (string, error) {
	claims, err := ClaimsFromContext(ctx)
	if err != nil {
		return "", err
	}
	return claims.AccountID, nil
}

func GetRoleFromContext(ctx context.Context) (models.UserRole, error) {
	claims, err := ClaimsFromContext(ctx)
	if err != nil {
		return "", err
	}
	if !claims.Role.Valid() {
		return "", errors.New("invalid role in claims: " + string(claims.Role))
	}
	return claims.Role, nil
}

// WithClaims stores claims on ctx the way Authenticate does.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

func writeError(w http.ResponseWriter, status int, message string) {
	body, _ := json.Marshal(map[string]any{"success": false, "error": message})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
