//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cms-admin-gateway/internal/config"
	"cms-admin-gateway/internal/handler"
	"cms-admin-gateway/internal/middleware"
	"cms-admin-gateway/internal/router"
	"cms-admin-gateway/internal/session"
	"cms-admin-gateway/internal/upstream"
)

// contentAPI is a scripted stand-in for the upstream content API. Tokens are
// opaque strings; currentAccess rotates when /auth/refresh is hit.
type contentAPI struct {
	mu            sync.Mutex
	currentAccess string
	refreshToken  string
	refreshCalls  int32
	server        *httptest.Server
}

func newContentAPI(t *testing.T) *contentAPI {
	t.Helper()

	api := &contentAPI{currentAccess: "AAA", refreshToken: "BBB"}
	api.server = httptest.NewServer(http.HandlerFunc(api.handle))
	t.Cleanup(api.server.Close)
	return api
}

func (api *contentAPI) expireAccessToken() {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.currentAccess = "CCC"
}

func (api *contentAPI) revokeRefreshToken() {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.refreshToken = "revoked"
}

func (api *contentAPI) currentTokens() (string, string) {
	api.mu.Lock()
	defer api.mu.Unlock()
	return api.currentAccess, api.refreshToken
}

func (api *contentAPI) refreshCount() int32 {
	return atomic.LoadInt32(&api.refreshCalls)
}

func (api *contentAPI) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/auth/login":
		var creds struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "secret123" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"invalid credentials"}`))
			return
		}
		role := strings.SplitN(creds.Email, "@", 2)[0]
		access, refresh := api.currentTokens()
		_, _ = w.Write([]byte(`{"success":true,"data":{"user":{"id":1,"name":"U","email":"` + creds.Email + `","role":"` + role + `"},"access_token":"` + access + `","refresh_token":"` + refresh + `"}}`))

	case r.URL.Path == "/auth/refresh":
		atomic.AddInt32(&api.refreshCalls, 1)
		var payload struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		access, refresh := api.currentTokens()
		if payload.RefreshToken != refresh {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"invalid refresh token"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"access_token":"` + access + `"}}`))

	case r.URL.Path == "/auth/logout":
		_, _ = w.Write([]byte(`{"success":true}`))

	case r.URL.Path == "/news" && r.Method == http.MethodGet:
		if !api.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"items":[{"id":1,"title":"first"}],"pagination":{"page":1,"limit":20,"total":1,"total_pages":1}}}`))

	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"message":"not found"}`))
	}
}

func (api *contentAPI) authorized(r *http.Request) bool {
	api.mu.Lock()
	defer api.mu.Unlock()
	return r.Header.Get("Authorization") == "Bearer "+api.currentAccess
}

// newGateway wires the full router against the scripted upstream and returns
// the running server plus the session store for direct inspection.
func newGateway(t *testing.T, upstreamURL string) (*httptest.Server, *session.MemoryStore) {
	t.Helper()

	cfg := &config.Config{
		RequestTimeout:     5 * time.Second,
		UpstreamAPIURL:     upstreamURL,
		PublicSiteURL:      "https://example.org",
		AccessCookieTTL:    time.Hour,
		RefreshCookieTTL:   2 * time.Hour,
		DefaultLandingPath: "/dashboard",
		CORSOrigins:        []string{"*"},
		RateLimitRPM:       6000,
		AuthRateLimitRPM:   6000,
		MaxUploadSize:      1 << 20,
	}

	store := session.NewMemoryStore()
	client := upstream.NewClient(upstreamURL, 0)
	manager := session.NewManager(store, client, session.CookieWriter{
		AccessTTL:  cfg.AccessCookieTTL,
		RefreshTTL: cfg.RefreshCookieTTL,
	})
	sessionMW := middleware.NewSessionMiddleware(manager)

	appRouter := router.New(cfg, manager, sessionMW, router.Handlers{
		Auth:    handler.NewAuthHandler(manager),
		Media:   handler.NewMediaHandler(manager, cfg.MaxUploadSize),
		Preview: handler.NewPreviewHandler(cfg.PublicSiteURL),
		Health:  handler.NewHealthHandler(store),
	})

	server := httptest.NewServer(appRouter)
	t.Cleanup(server.Close)
	return server, store
}

// newBrowser returns an HTTP client that keeps cookies like a browser and
// never follows redirects, so tests can assert on them.
func newBrowser(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func loginAs(t *testing.T, browser *http.Client, gatewayURL string, email string) {
	t.Helper()

	resp, err := browser.Post(gatewayURL+"/api/v1/auth/login", "application/json",
		strings.NewReader(`{"email":"`+email+`","password":"secret123"}`))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func cookieValue(t *testing.T, browser *http.Client, gatewayURL string, name string) string {
	t.Helper()

	u, err := url.Parse(gatewayURL)
	require.NoError(t, err)
	for _, c := range browser.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}
