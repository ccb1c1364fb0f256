package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpiry peeks at the exp claim of a JWT access token without verifying
// the signature; the upstream is the verifier, the gateway only needs the
// lifetime for cookie expiry. Opaque tokens return ok=false.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}

	return exp.Time, true
}
