package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/presence/go/internal/models"
)

// SignUpRequest represents the data needed to create an account
type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username,omitempty"`
	Color    string `json:"color,omitempty"`
}

// LogInRequest represents a login attempt
type LogInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateUserRequest is what the repository needs to insert a user
type CreateUserRequest struct {
	Email        string
	Username     string
	PasswordHash string
	Preferences  models.UserPreferences
}

// UpdatePreferencesRequest changes the stored avatar preferences
type UpdatePreferencesRequest struct {
	Color string `json:"color"`
}

// Session is an issued login
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Profile is the public view of a user
type Profile struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username,omitempty"`
	DisplayName string    `json:"display_name"`
	Color       string    `json:"color,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewProfile builds the public view of u
func NewProfile(u *models.User) Profile {
	return Profile{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		DisplayName: u.DisplayName(),
		Color:       u.DecodePreferences().Color,
		CreatedAt:   u.CreatedAt,
	}
}
