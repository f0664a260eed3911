// Package middleware holds the HTTP middleware of the API: bearer auth,
// request identity and logging, CORS and panic recovery.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jonathan/recruiter-agent/internal/observability"
)

// FieldClient is the log field carrying the authenticated client.
const FieldClient = "client"

// Authenticator resolves a bearer token to the subject of the calling client.
type Authenticator interface {
	Subject(token string) (string, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(token string) (string, error)

// Subject implements Authenticator.
func (f AuthenticatorFunc) Subject(token string) (string, error) { return f(token) }

type subjectKey struct{}

// RequireBearer rejects requests without a valid "Authorization: Bearer" token.
// Accepted requests carry the subject in their context and request logger.
func RequireBearer(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				reject(w, "missing bearer token")
				return
			}
			subject, err := auth.Subject(token)
			if err != nil || subject == "" {
				observability.FromContext(r.Context()).WithError(err).Debug("token rejected")
				reject(w, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey{}, subject)
			ctx = observability.ContextWithFields(ctx, observability.Fields{FieldClient: subject})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectFrom returns the subject stored by RequireBearer.
func SubjectFrom(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectKey{}).(string)
	return subject, ok
}

// bearerToken parses "Bearer <token>" with a case-insensitive scheme.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

func reject(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="recruiter-agent"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized", "message": msg})
}
