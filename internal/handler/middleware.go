package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/medkart/pharma-backend/internal/auth"
	"github.com/medkart/pharma-backend/internal/domain/user"
)

type claimsKey struct{}

// claimsFrom returns the verified token claims stored by requireAuth.
func claimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	return c
}

// requireAuth verifies the Bearer token and stores its claims in the request
// context.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			h.writeError(w, r, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := h.tokens.Parse(token)
		if err != nil {
			h.writeError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin rejects non-admin callers. It must run after requireAuth.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r.Context())
		if claims == nil || claims.Role != string(user.RoleAdmin) {
			h.writeError(w, r, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
