package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// Claims represents the verified token claims.
type Claims struct {
	Subject string   `json:"sub"`
	Scopes  []string `json:"scopes"`
}

// ContextKey is used for storing claims in request context.
type ContextKey string

// ClaimsKey holds *Claims in an authenticated request context.
const ClaimsKey ContextKey = "claims"

// Scopes understood by the gateway.
const (
	ScopeControl = "control"
	ScopeEvents  = "events"
)

// TokenVerifier verifies a bearer token.
type TokenVerifier interface {
	VerifyToken(token string) (*Claims, error)
}

// Middleware enforces bearer authentication. A Middleware without a
// verifier lets every request through.
type Middleware struct {
	verifier TokenVerifier
}

// NewMiddleware creates a middleware. verifier may be nil.
func NewMiddleware(verifier TokenVerifier) *Middleware {
	return &Middleware{verifier: verifier}
}

// Enabled reports whether requests are checked.
func (m *Middleware) Enabled() bool {
	return m != nil && m.verifier != nil
}

// Require wraps next so it only runs for tokens carrying every scope.
// Pre-flight requests are never checked.
func (m *Middleware) Require(next http.HandlerFunc, scopes ...string) http.HandlerFunc {
	if !m.Enabled() {
		return next
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next(w, r)
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		claims, err := m.verifier.VerifyToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		if !HasScopes(claims, scopes...) {
			writeError(w, http.StatusForbidden, "Insufficient permissions")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		next(w, r.WithContext(ctx))
	}
}

// HasScopes reports whether claims carry all scopes.
func HasScopes(claims *Claims, scopes ...string) bool {
	if claims == nil {
		return false
	}

	for _, required := range scopes {
		found := false
		for _, scope := range claims.Scopes {
			if scope == required {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ClaimsFromContext returns the claims stored by the middleware, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ClaimsKey).(*Claims)
	return claims
}

// SubjectFromContext returns the token subject, or "anonymous".
func SubjectFromContext(ctx context.Context) string {
	if claims := ClaimsFromContext(ctx); claims != nil {
		return claims.Subject
	}
	return "anonymous"
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

// writeError writes an error in the gateway response format.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "error",
		"message": message,
	})
}
