//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"cms-admin-gateway/internal/session"
)

func TestLoginListLogoutRoundTrip(t *testing.T) {
	api := newContentAPI(t)
	gateway, _ := newGateway(t, api.server.URL)
	browser := newBrowser(t)

	loginAs(t, browser, gateway.URL, "admin@example.org")
	require.Equal(t, "AAA", cookieValue(t, browser, gateway.URL, session.AccessTokenCookie))
	require.Equal(t, "BBB", cookieValue(t, browser, gateway.URL, session.RefreshTokenCookie))
	require.NotEmpty(t, cookieValue(t, browser, gateway.URL, session.SessionIDCookie))

	listResp, err := browser.Get(gateway.URL + "/api/v1/news?page=1&limit=20")
	require.NoError(t, err)
	t.Cleanup(func() { _ = listResp.Body.Close() })
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var listBody struct {
		Success bool              `json:"success"`
		Data    []json.RawMessage `json:"data"`
		Meta    struct {
			Total int `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&listBody))
	require.True(t, listBody.Success)
	require.Len(t, listBody.Data, 1)
	require.Equal(t, 1, listBody.Meta.Total)

	logoutResp, err := browser.Post(gateway.URL+"/api/v1/auth/logout", "application/json", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = logoutResp.Body.Close() })
	require.Equal(t, http.StatusOK, logoutResp.StatusCode)

	require.Empty(t, cookieValue(t, browser, gateway.URL, session.AccessTokenCookie))
	require.Empty(t, cookieValue(t, browser, gateway.URL, session.SessionIDCookie))

	afterResp, err := browser.Get(gateway.URL + "/api/v1/news")
	require.NoError(t, err)
	t.Cleanup(func() { _ = afterResp.Body.Close() })
	require.Equal(t, http.StatusUnauthorized, afterResp.StatusCode)
}

func TestExpiredTokenRecoveredTransparently(t *testing.T) {
	api := newContentAPI(t)
	gateway, store := newGateway(t, api.server.URL)
	browser := newBrowser(t)

	loginAs(t, browser, gateway.URL, "editor@example.org")

	// The upstream rotates its signing state; the stored access token AAA is
	// now stale and the next proxied request will hit a 401 internally.
	api.expireAccessToken()

	listResp, err := browser.Get(gateway.URL + "/api/v1/news")
	require.NoError(t, err)
	t.Cleanup(func() { _ = listResp.Body.Close() })
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	require.Equal(t, int32(1), api.refreshCount())

	// Both mirrors moved to the fresh token.
	require.Equal(t, "CCC", cookieValue(t, browser, gateway.URL, session.AccessTokenCookie))

	sessionID := cookieValue(t, browser, gateway.URL, session.SessionIDCookie)
	record, err := store.Load(context.Background(), sessionID)
	require.NoError(t, err)
	require.Equal(t, "CCC", record.AccessToken)
}

func TestDeadRefreshTokenEndsSession(t *testing.T) {
	api := newContentAPI(t)
	gateway, _ := newGateway(t, api.server.URL)
	browser := newBrowser(t)

	loginAs(t, browser, gateway.URL, "editor@example.org")

	api.expireAccessToken()
	api.revokeRefreshToken()

	listResp, err := browser.Get(gateway.URL + "/api/v1/news")
	require.NoError(t, err)
	t.Cleanup(func() { _ = listResp.Body.Close() })
	require.Equal(t, http.StatusUnauthorized, listResp.StatusCode)
	require.Contains(t, readBody(t, listResp), "SESSION_EXPIRED")

	// The purge cleared the cookie mirror; page navigation now redirects.
	require.Empty(t, cookieValue(t, browser, gateway.URL, session.AccessTokenCookie))

	pageResp, err := browser.Get(gateway.URL + "/news")
	require.NoError(t, err)
	t.Cleanup(func() { _ = pageResp.Body.Close() })
	require.Equal(t, http.StatusSeeOther, pageResp.StatusCode)
	require.True(t, strings.HasPrefix(pageResp.Header.Get("Location"), "/login?redirect="))
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}
