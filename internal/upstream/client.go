package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/singleflight"

	"cms-admin-gateway/internal/model"
)

// TokenSource supplies and persists the token pair for one browser session.
// Implementations must keep their durable copy and the cookie mirror in step;
// the client only reads and writes through this interface.
type TokenSource interface {
	// Key identifies the session for refresh de-duplication.
	Key() string
	Tokens(ctx context.Context) (access string, refresh string, err error)
	// SetTokens persists a refreshed pair. An empty refresh token means the
	// upstream did not rotate it and the stored one is kept.
	SetTokens(ctx context.Context, access string, refresh string) error
	// Invalidate purges all session state after a terminal auth failure.
	Invalidate(ctx context.Context) error
}

// Client talks to the upstream content API. It is shared across sessions;
// per-session authentication is bound with WithTokens.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// Concurrent 401s on the same session share one refresh attempt.
	refreshGroup singleflight.Group
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// WithTokens binds the shared client to one session's tokens.
func (c *Client) WithTokens(tokens TokenSource) *Authed {
	return &Authed{client: c, tokens: tokens}
}

// Authed issues bearer-authenticated requests and transparently recovers
// from a single expired-token failure per request.
type Authed struct {
	client *Client
	tokens TokenSource
}

// DoJSON sends a JSON request and returns the raw response body. On a 401 it
// refreshes the access token once and replays the request; a 401 on the
// replay is terminal and surfaces as a session-expired error.
func (a *Authed) DoJSON(ctx context.Context, method string, path string, query url.Values, payload any) ([]byte, error) {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = encoded
	}

	return a.do(ctx, method, path, query, body, "application/json", 1)
}

// DoRaw sends a pre-encoded body (multipart uploads) through the same
// refresh-and-retry path. The payload is buffered so the replay can rebuild
// the request reader.
func (a *Authed) DoRaw(ctx context.Context, method string, path string, query url.Values, payload []byte, contentType string) ([]byte, error) {
	return a.do(ctx, method, path, query, payload, contentType, 1)
}

// do carries the retry budget as an explicit parameter; nothing on the
// request is mutated to mark it as retried.
func (a *Authed) do(ctx context.Context, method string, path string, query url.Values, payload []byte, contentType string, retriesLeft int) ([]byte, error) {
	access, _, err := a.tokens.Tokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session tokens: %w", err)
	}

	status, body, err := a.client.roundTrip(ctx, method, path, query, payload, contentType, access)
	if err != nil {
		slog.Warn("upstream unreachable", "method", method, "path", path, "error", err)
		return nil, networkError(err)
	}

	if status >= 200 && status < 300 {
		return body, nil
	}

	if status == http.StatusUnauthorized {
		if retriesLeft <= 0 {
			// The replay itself came back 401: terminal, never retried again.
			_ = a.tokens.Invalidate(ctx)
			return nil, &Error{Kind: KindUnauthorized, Status: status, Message: "session expired", cause: model.ErrSessionExpired}
		}

		if _, refreshErr := a.refreshAccessToken(ctx, access); refreshErr != nil {
			_ = a.tokens.Invalidate(ctx)
			slog.Info("session terminated after failed token refresh", "session", a.tokens.Key(), "error", refreshErr)
			return nil, &Error{Kind: KindUnauthorized, Status: status, Message: "session expired", cause: model.ErrSessionExpired}
		}

		// Replay once; the fresh token is read back from the token source.
		return a.do(ctx, method, path, query, payload, contentType, retriesLeft-1)
	}

	classified := classify(status, body)
	slog.Warn("upstream request failed",
		"method", method,
		"path", path,
		"status", status,
		"kind", classified.Kind.String(),
	)
	return nil, classified
}

// refreshAccessToken exchanges the refresh token for a new access token.
// Calls for the same session collapse into one in-flight refresh; waiters
// that arrive after a sibling already refreshed reuse the fresh token
// instead of spending the (possibly single-use) refresh token again.
func (a *Authed) refreshAccessToken(ctx context.Context, failedAccess string) (string, error) {
	result, err, _ := a.client.refreshGroup.Do(a.tokens.Key(), func() (any, error) {
		access, refresh, err := a.tokens.Tokens(ctx)
		if err != nil {
			return nil, err
		}
		if access != "" && access != failedAccess {
			return access, nil
		}
		if refresh == "" {
			return nil, model.ErrNoRefreshToken
		}

		status, body, err := a.client.roundTrip(ctx, http.MethodPost, "/auth/refresh", nil,
			mustJSON(map[string]string{"refresh_token": refresh}), "application/json", "")
		if err != nil {
			return nil, networkError(err)
		}
		if status < 200 || status >= 300 {
			return nil, classify(status, body)
		}

		data, err := NormalizeObject(body)
		if err != nil {
			return nil, err
		}

		var parsed struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("decode refresh response: %w", err)
		}
		if parsed.AccessToken == "" {
			return nil, fmt.Errorf("refresh response missing access_token")
		}

		if err := a.tokens.SetTokens(ctx, parsed.AccessToken, parsed.RefreshToken); err != nil {
			return nil, fmt.Errorf("persist refreshed tokens: %w", err)
		}

		slog.Debug("access token refreshed", "session", a.tokens.Key(), "rotated", parsed.RefreshToken != "")
		return parsed.AccessToken, nil
	})
	if err != nil {
		return "", err
	}

	return result.(string), nil
}

// PostUnauthenticated sends a request with no bearer token and no retry.
// Used for login, where a failure must propagate untouched.
func (c *Client) PostUnauthenticated(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	status, respBody, err := c.roundTrip(ctx, http.MethodPost, path, nil, body, "application/json", "")
	if err != nil {
		return nil, networkError(err)
	}
	if status < 200 || status >= 300 {
		return nil, classify(status, respBody)
	}

	return respBody, nil
}

func (c *Client) roundTrip(ctx context.Context, method string, path string, query url.Values, payload []byte, contentType string, accessToken string) (int, []byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build upstream request: %w", err)
	}

	if contentType != "" && payload != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read upstream response: %w", err)
	}

	return resp.StatusCode, body, nil
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
