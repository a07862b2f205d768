package server

import (
	"context"
	"net/http"
	"strconv"
)

// Identity is the caller identity forwarded by the authenticating front
// proxy. A zero UserID means the request is anonymous; the pipeline stages
// decide which operations require an identity.
type Identity struct {
	UserID   int64
	UserName string
}

type identityKey struct{}

// IdentityMiddleware reads the forwarded identity headers into the request
// context. Malformed or absent headers leave the request anonymous rather
// than rejecting it here.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := Identity{UserName: r.Header.Get("X-User-Name")}
		if raw := r.Header.Get("X-User-ID"); raw != "" {
			if userID, err := strconv.ParseInt(raw, 10, 64); err == nil && userID > 0 {
				id.UserID = userID
			}
		}
		ctx := context.WithValue(r.Context(), identityKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFromContext returns the identity attached by IdentityMiddleware.
func IdentityFromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}
