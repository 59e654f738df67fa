package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// User represents an account that can join a server
type User struct {
	ID           uuid.UUID       `json:"id"`
	Username     string          `json:"username,omitempty"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"-"`
	Disabled     bool            `json:"disabled"`
	Preferences  json.RawMessage `json:"preferences,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// UserPreferences is the decoded form of User.Preferences
type UserPreferences struct {
	Color string `json:"color,omitempty"`
}

// DisplayName is the name shown above the avatar: the username when set,
// otherwise the email address.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// DecodePreferences returns the user's preferences, or the zero value when
// none are stored or they cannot be decoded.
func (u *User) DecodePreferences() UserPreferences {
	var p UserPreferences
	if len(u.Preferences) == 0 {
		return p
	}
	_ = json.Unmarshal(u.Preferences, &p)
	return p
}
