package model

import "time"

type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Session is the in-memory view of a logged-in dashboard user. The persisted
// form is SessionRecord; cookies carry only the two tokens.
type Session struct {
	ID           string
	User         *User
	AccessToken  string
	RefreshToken string
}

// IsAuthenticated reports whether the session carries both a user record and
// an access token. Either one alone is not a usable session.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.User != nil && s.AccessToken != ""
}

type SessionRecord struct {
	ID           string    `json:"id"`
	User         *User     `json:"user,omitempty"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
