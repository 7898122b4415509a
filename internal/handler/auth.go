package handler

import (
	"context"
	"net/http"
)

// IdentityHeader carries the authenticated caller's email, set by the
// upstream gateway after it has verified the session. This service trusts
// the header; token verification is the gateway's concern.
const IdentityHeader = "X-User-Email"

type contextKey int

const identityKey contextKey = 0

// CallerIdentity extracts the caller's email from the request and stores it
// in the context. An absent header flows through as an empty identity, which
// the workflow rejects as an authorization failure.
func CallerIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), identityKey, r.Header.Get(IdentityHeader))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFromContext(ctx context.Context) string {
	identity, _ := ctx.Value(identityKey).(string)
	return identity
}
