package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"cms-admin-gateway/internal/model"
)

// LoginResult is the upstream's answer to a successful credential exchange.
type LoginResult struct {
	User         *model.User
	AccessToken  string
	RefreshToken string
}

// Login exchanges credentials for a user record and a token pair. It runs
// unauthenticated and never retries; failures propagate to the caller
// untouched so the handler decides the user-facing message.
func (c *Client) Login(ctx context.Context, email string, password string) (*LoginResult, error) {
	body, err := c.PostUnauthenticated(ctx, "/auth/login", model.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	data, err := NormalizeObject(body)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		User         *model.User `json:"user"`
		AccessToken  string      `json:"access_token"`
		RefreshToken string      `json:"refresh_token"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	if parsed.User == nil || parsed.AccessToken == "" {
		return nil, fmt.Errorf("login response missing user or access_token")
	}

	return &LoginResult{
		User:         parsed.User,
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
	}, nil
}

// Logout notifies the upstream that the session is over. Single attempt, no
// refresh: the caller clears local state regardless of the outcome.
func (a *Authed) Logout(ctx context.Context) error {
	_, err := a.do(ctx, http.MethodPost, "/auth/logout", nil, nil, "", 0)
	return err
}

// Me fetches the current user record for the bound session.
func (a *Authed) Me(ctx context.Context) (*model.User, error) {
	body, err := a.DoJSON(ctx, http.MethodGet, "/auth/me", nil, nil)
	if err != nil {
		return nil, err
	}

	data, err := NormalizeObject(body)
	if err != nil {
		return nil, err
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("decode user record: %w", err)
	}

	return &user, nil
}
