// Package auth carries the caller's identity: a request middleware that
// trusts headers set by the upstream proxy, and an observable session for
// clients.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Headers set by the authenticating proxy.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserName  = "X-User-Name"
	HeaderUserEmail = "X-User-Email"
)

// Identity is the signed-in user.
type Identity struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// Name returns the display name, falling back to the email's local part.
func (id Identity) Name() string {
	if id.DisplayName != "" {
		return id.DisplayName
	}
	if local, _, ok := strings.Cut(id.Email, "@"); ok && local != "" {
		return local
	}
	return "User"
}

type ctxKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity attached by Middleware, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// User IDs become shop keys and slug tails, so they must not contain dashes.
var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,128}$`)

// ValidUserID reports whether id is an acceptable user ID.
func ValidUserID(id string) bool {
	return userIDPattern.MatchString(id)
}

// Middleware attaches the identity from the proxy headers when present.
// Requests without an identity pass through anonymously; a malformed user
// ID is rejected.
func Middleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !ValidUserID(userID) {
				logger.Warn("rejecting malformed user id", zap.String("path", r.URL.Path))
				writeError(w, http.StatusUnauthorized, "invalid identity")
				return
			}
			id := Identity{
				UserID:      userID,
				DisplayName: strings.TrimSpace(r.Header.Get(HeaderUserName)),
				Email:       strings.TrimSpace(r.Header.Get(HeaderUserEmail)),
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// Require rejects requests that carry no identity.
func Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, FriendlyError(ErrSignedOut))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
