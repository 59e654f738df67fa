package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcdev12/presence/go/internal/models"
	"github.com/mcdev12/presence/go/internal/render"
)

// UsersRepository defines what the app layer needs from the repository
type UsersRepository interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePreferences(ctx context.Context, id uuid.UUID, prefs models.UserPreferences) (*models.User, error)
}

// App handles account and login logic
type App struct {
	repo       UsersRepository
	sessions   SessionStore
	sessionTTL time.Duration
	hashCost   int
	compare    func(hash, password []byte) error

	dummyOnce sync.Once
	dummyHash []byte
}

// NewApp creates a new users App
func NewApp(repo UsersRepository, sessions SessionStore) *App {
	return &App{
		repo:       repo,
		sessions:   sessions,
		sessionTTL: DefaultSessionTTL,
		hashCost:   bcrypt.DefaultCost,
		compare:    bcrypt.CompareHashAndPassword,
	}
}

// unknownUserHash is compared against on logins for unknown emails so they
// take as long as a wrong password
func (a *App) unknownUserHash() []byte {
	a.dummyOnce.Do(func() {
		a.dummyHash, _ = bcrypt.GenerateFromPassword([]byte(uuid.NewString()), a.hashCost)
	})
	return a.dummyHash
}

// WithSessionTTL overrides how long issued logins last
func (a *App) WithSessionTTL(ttl time.Duration) *App {
	a.sessionTTL = ttl
	return a
}

// SignUp creates an account. The email must be valid and unused and the
// password at least MinPasswordLength characters.
func (a *App) SignUp(ctx context.Context, req SignUpRequest) (*models.User, error) {
	email, err := a.validateCredentials(req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if len(req.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	if req.Color != "" && !validColor(req.Color) {
		return nil, ErrInvalidColor
	}

	existing, err := a.repo.GetUserByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, ErrEmailInUse
	}
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), a.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := a.repo.CreateUser(ctx, CreateUserRequest{
		Email:        email,
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: string(hash),
		Preferences:  models.UserPreferences{Color: req.Color},
	})
	if err != nil {
		if errors.Is(err, ErrEmailInUse) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info().Str("user_id", user.ID.String()).Str("email", user.Email).Msg("created user")
	return user, nil
}

// LogIn checks the password and issues a session token. Unknown emails and
// wrong passwords produce the same error.
func (a *App) LogIn(ctx context.Context, req LogInRequest) (*Session, error) {
	email, err := a.validateCredentials(req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	user, err := a.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		_ = a.compare(a.unknownUserHash(), []byte(req.Password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if err := a.compare([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.Disabled {
		return nil, ErrUserDisabled
	}

	token, expiresAt, err := a.sessions.Create(ctx, user.ID, a.sessionTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info().Str("user_id", user.ID.String()).Msg("user logged in")
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// LogOut invalidates token
func (a *App) LogOut(ctx context.Context, token string) error {
	if err := a.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	return nil
}

// Authenticate resolves a token to its user. Disabled users are rejected.
func (a *App) Authenticate(ctx context.Context, token string) (*models.User, error) {
	id, err := a.sessions.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := a.repo.GetUser(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.Disabled {
		return nil, ErrUserDisabled
	}
	return user, nil
}

// GetUser retrieves a user by ID
func (a *App) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return a.repo.GetUser(ctx, id)
}

// GetUserByUsername retrieves a user by username
func (a *App) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return a.repo.GetUserByUsername(ctx, username)
}

// UpdatePreferences stores the avatar colour of a user
func (a *App) UpdatePreferences(ctx context.Context, id uuid.UUID, req UpdatePreferencesRequest) (*models.User, error) {
	if req.Color != "" && !validColor(req.Color) {
		return nil, ErrInvalidColor
	}
	user, err := a.repo.UpdatePreferences(ctx, id, models.UserPreferences{Color: req.Color})
	if err != nil {
		return nil, err
	}
	log.Info().Str("user_id", id.String()).Str("color", req.Color).Msg("updated preferences")
	return user, nil
}

// validateCredentials returns the normalised email
func (a *App) validateCredentials(email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", ErrMissingFields
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(email), nil
}

// validColor accepts the colours the render pass can draw without falling back
func validColor(c string) bool {
	return c == "grey" || c == "gray" || c == "#808080" || render.ParseColor(c) != render.FallbackColor
}
