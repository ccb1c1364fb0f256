package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"cms-admin-gateway/internal/session"
)

// Guard gates page navigation on session cookie presence, before any handler
// runs. It is a pure function of (cookie presence, path class) and holds no
// state across requests.
type Guard struct {
	// LandingPath is where authenticated users land when they hit a
	// public-only page such as /login.
	LandingPath string
}

// publicOnlyPaths are reachable only while logged out.
var publicOnlyPaths = map[string]struct{}{
	"/login":           {},
	"/forgot-password": {},
	"/reset-password":  {},
}

// bypassPrefixes never get redirected: static assets, health, and the API
// namespace, which answers 401s itself instead of redirecting.
var bypassPrefixes = []string{"/api/", "/assets/", "/static/"}

var bypassExact = map[string]struct{}{
	"/health":      {},
	"/favicon.ico": {},
	"/robots.txt":  {},
}

func (g Guard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if g.bypass(path) {
			next.ServeHTTP(w, r)
			return
		}

		_, hasSession := sessionCookie(r)
		_, publicOnly := publicOnlyPaths[path]

		switch {
		case !hasSession && !publicOnly:
			// Preserve the requested page so login can send the user back.
			target := "/login?redirect=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, target, http.StatusSeeOther)
		case hasSession && publicOnly:
			http.Redirect(w, r, g.LandingPath, http.StatusSeeOther)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func (g Guard) bypass(path string) bool {
	if _, ok := bypassExact[path]; ok {
		return true
	}
	for _, prefix := range bypassPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func sessionCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(session.AccessTokenCookie)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return "", false
	}
	return cookie.Value, true
}
