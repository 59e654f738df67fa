package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"

	"github.com/mcdev12/presence/go/internal/models"
	"github.com/mcdev12/presence/go/internal/sqlutil"
	"github.com/mcdev12/presence/go/internal/users/db"
)

// uniqueViolation is the Postgres error code for a unique constraint failure
const uniqueViolation = "23505"

// Querier defines what the repository needs from the database layer
type Querier interface {
	CreateUser(ctx context.Context, arg db.CreateUserParams) (db.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (db.User, error)
	GetUserByUsername(ctx context.Context, username string) (db.User, error)
	GetUserByEmail(ctx context.Context, email string) (db.User, error)
	UpdateUserPreferences(ctx context.Context, arg db.UpdateUserPreferencesParams) (db.User, error)
	SetUserDisabled(ctx context.Context, arg db.SetUserDisabledParams) error
}

// Repository implements user data access operations
type Repository struct {
	queries Querier
}

// NewRepository creates a new users repository
func NewRepository(querier Querier) *Repository {
	return &Repository{
		queries: querier,
	}
}

// CreateUser inserts a user. A duplicate email maps to ErrEmailInUse.
func (r *Repository) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	prefs, err := encodePreferences(req.Preferences)
	if err != nil {
		return nil, err
	}
	var username *string
	if req.Username != "" {
		username = &req.Username
	}

	user, err := r.queries.CreateUser(ctx, db.CreateUserParams{
		Email:        req.Email,
		Username:     sqlutil.ToSqlString(username),
		PasswordHash: req.PasswordHash,
		Preferences:  prefs,
	})
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return r.dbUserToModel(user), nil
}

// GetUser retrieves a user by ID
func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := r.queries.GetUser(ctx, id)
	if err != nil {
		return nil, notFound(err, "failed to get user")
	}
	return r.dbUserToModel(user), nil
}

// GetUserByUsername retrieves a user by username
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := r.queries.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, notFound(err, "failed to get user by username")
	}
	return r.dbUserToModel(user), nil
}

// GetUserByEmail retrieves a user by email, ignoring case
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := r.queries.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, notFound(err, "failed to get user by email")
	}
	return r.dbUserToModel(user), nil
}

// UpdatePreferences replaces the stored preferences of a user
func (r *Repository) UpdatePreferences(ctx context.Context, id uuid.UUID, prefs models.UserPreferences) (*models.User, error) {
	raw, err := encodePreferences(prefs)
	if err != nil {
		return nil, err
	}
	user, err := r.queries.UpdateUserPreferences(ctx, db.UpdateUserPreferencesParams{
		ID:          id,
		Preferences: raw,
	})
	if err != nil {
		return nil, notFound(err, "failed to update preferences")
	}
	return r.dbUserToModel(user), nil
}

// SetDisabled enables or disables logins for a user
func (r *Repository) SetDisabled(ctx context.Context, id uuid.UUID, disabled bool) error {
	err := r.queries.SetUserDisabled(ctx, db.SetUserDisabledParams{ID: id, Disabled: disabled})
	if err != nil {
		return fmt.Errorf("failed to set disabled: %w", err)
	}
	return nil
}

func notFound(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func encodePreferences(p models.UserPreferences) (pqtype.NullRawMessage, error) {
	if p == (models.UserPreferences{}) {
		return pqtype.NullRawMessage{}, nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return pqtype.NullRawMessage{}, fmt.Errorf("failed to encode preferences: %w", err)
	}
	return pqtype.NullRawMessage{RawMessage: raw, Valid: true}, nil
}

// dbUserToModel converts a database user to domain model
func (r *Repository) dbUserToModel(dbUser db.User) *models.User {
	user := &models.User{
		ID:           dbUser.ID,
		Email:        dbUser.Email,
		Username:     sqlutil.FromSqlString(dbUser.Username, ""),
		PasswordHash: dbUser.PasswordHash,
		Disabled:     dbUser.Disabled,
		CreatedAt:    dbUser.CreatedAt,
	}
	if dbUser.Preferences.Valid {
		user.Preferences = json.RawMessage(dbUser.Preferences.RawMessage)
	}
	return user
}
