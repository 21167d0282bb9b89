package middleware

import (
	"net/http"
	"strings"

	"go-school-admin/internal/data"
)

// ActorHeader carries the caller's actor reference. Authentication happens in
// front of this service; whatever it puts here is stamped into audit columns.
const ActorHeader = "X-Actor"

// AnonymousActor is used when a request carries no actor.
const AnonymousActor = "anonymous"

// Actor stores the request's actor in the context for the data layer.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := strings.TrimSpace(r.Header.Get(ActorHeader))
		if actor == "" {
			actor = AnonymousActor
		}
		next.ServeHTTP(w, r.WithContext(data.WithActor(r.Context(), actor)))
	})
}
