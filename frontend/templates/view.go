// Package templates renders the server-side pages and htmx fragments.
// Components are written in pages.templ; run `templ generate` after editing.
package templates

import "github.com/PhilHem/go-dashboard-shell/backend/auth"

func displayName(s auth.State) string {
	if s.User == nil {
		return "unknown user"
	}
	return s.User.Name
}

func roleName(s auth.State) string {
	if s.User == nil {
		return ""
	}
	return string(s.User.Role)
}

func connectivity(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}
