package httpapi

import (
	"net/http"
	"strings"

	"github.com/rental-hub/rental-hub/internal/domain/booking"
)

// UserHeader carries the user id set by the upstream gateway.
const UserHeader = "X-User-ID"

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserHeader))
		if userID == "" {
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing "+UserHeader)
			return
		}
		if userID == booking.System.UserID {
			respondError(w, http.StatusForbidden, "FORBIDDEN", "reserved user id")
			return
		}
		next.ServeHTTP(w, r.WithContext(withActor(r.Context(), booking.Actor{UserID: userID})))
	})
}

func mustActor(w http.ResponseWriter, r *http.Request) (booking.Actor, bool) {
	a, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth")
	}
	return a, ok
}
