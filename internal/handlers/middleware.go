package handlers

import (
	"net/http"

	"microblog/internal/auth"
)

// RequireAuth redirects unauthenticated requests to the login flow,
// carrying the original destination so login can return there.
func (h *Handler) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := h.sessions.CurrentUserID(r); !ok {
			http.Redirect(w, r, auth.LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	}
}
