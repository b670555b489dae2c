package middleware

import (
	"net/http"
	"strings"

	"github.com/PhilHem/go-dashboard-shell/backend/auth"
	"github.com/PhilHem/go-dashboard-shell/backend/handlers"
)

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/admin/api/")
}

// RequireAuth lets the request through only when the browser session's
// auth store is authenticated. Pages redirect to the login page; API calls
// get 401.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := handlers.CurrentAuth(w, r).Get()
		if !st.IsAuthenticated() {
			if wantsJSON(r) {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// RequireAdmin is RequireAuth restricted to the admin role.
func RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		st := handlers.CurrentAuth(w, r).Get()
		if st.User == nil || st.User.Role != auth.RoleAdmin {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	})
}
