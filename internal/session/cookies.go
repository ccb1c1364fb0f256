package session

import (
	"net/http"
	"time"
)

// Cookie names match the storage keys the dashboard has always used; the
// route guard and any server-side middleware key off auth_token presence.
const (
	AccessTokenCookie  = "auth_token"
	RefreshTokenCookie = "refresh_token"
	SessionIDCookie    = "cms_session"
)

// CookieWriter mirrors session state into browser cookies. All cookies are
// Path=/, SameSite=Lax, HttpOnly.
type CookieWriter struct {
	Domain     string
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (cw CookieWriter) WriteSessionID(w http.ResponseWriter, id string) {
	http.SetCookie(w, cw.cookie(SessionIDCookie, id, cw.RefreshTTL))
}

// WriteTokens mirrors the token pair. When the access token is a JWT with an
// exp claim earlier than the configured TTL, the cookie expires with the
// token instead of outliving it.
func (cw CookieWriter) WriteTokens(w http.ResponseWriter, access string, refresh string) {
	accessTTL := cw.AccessTTL
	if exp, ok := tokenExpiry(access); ok {
		if until := time.Until(exp); until > 0 && until < accessTTL {
			accessTTL = until
		}
	}

	http.SetCookie(w, cw.cookie(AccessTokenCookie, access, accessTTL))
	if refresh != "" {
		http.SetCookie(w, cw.cookie(RefreshTokenCookie, refresh, cw.RefreshTTL))
	}
}

// Clear expires every session cookie unconditionally.
func (cw CookieWriter) Clear(w http.ResponseWriter) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie, SessionIDCookie} {
		cleared := cw.cookie(name, "", 0)
		cleared.MaxAge = -1
		http.SetCookie(w, cleared)
	}
}

func (cw CookieWriter) cookie(name string, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   cw.Domain,
		MaxAge:   int(ttl.Seconds()),
		Secure:   cw.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
