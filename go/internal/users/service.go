package users

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/presence/go/internal/apiutil"
	"github.com/mcdev12/presence/go/internal/models"
)

// UsersApp defines what the service layer needs from the users application
type UsersApp interface {
	SignUp(ctx context.Context, req SignUpRequest) (*models.User, error)
	LogIn(ctx context.Context, req LogInRequest) (*Session, error)
	LogOut(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdatePreferences(ctx context.Context, id uuid.UUID, req UpdatePreferencesRequest) (*models.User, error)
}

// Service exposes accounts over JSON HTTP
type Service struct {
	app UsersApp
}

// NewService creates a new users HTTP service
func NewService(app UsersApp) *Service {
	return &Service{
		app: app,
	}
}

// RegisterRoutes mounts the auth and profile endpoints on router
func (s *Service) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/auth/signup", s.SignUp)
	router.POST("/api/auth/login", s.LogIn)
	router.POST("/api/auth/logout", s.LogOut)
	router.GET("/api/me", s.Me)
	router.PUT("/api/me/preferences", s.UpdatePreferences)
	router.GET("/api/users/:username", s.GetUserByUsername)
}

// LogInResponse is returned by the login endpoint
type LogInResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      Profile   `json:"user"`
}

// SignUp creates an account
func (s *Service) SignUp(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req SignUpRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "request/invalid-body", err.Error())
		return
	}
	user, err := s.app.SignUp(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusCreated, NewProfile(user))
}

// LogIn issues a session token
func (s *Service) LogIn(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req LogInRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "request/invalid-body", err.Error())
		return
	}
	sess, err := s.app.LogIn(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, LogInResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt.UTC(),
		User:      NewProfile(sess.User),
	})
}

// LogOut invalidates the bearer token
func (s *Service) LogOut(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	token := apiutil.BearerToken(r)
	if token == "" {
		s.writeError(w, ErrUnauthenticated)
		return
	}
	if err := s.app.LogOut(r.Context(), token); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the profile of the bearer token's user
func (s *Service) Me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user, err := s.app.Authenticate(r.Context(), apiutil.BearerToken(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, NewProfile(user))
}

// UpdatePreferences changes the caller's avatar colour
func (s *Service) UpdatePreferences(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user, err := s.app.Authenticate(r.Context(), apiutil.BearerToken(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req UpdatePreferencesRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "request/invalid-body", err.Error())
		return
	}
	updated, err := s.app.UpdatePreferences(r.Context(), user.ID, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, NewProfile(updated))
}

// GetUserByUsername returns a public profile
func (s *Service) GetUserByUsername(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := s.app.GetUserByUsername(r.Context(), ps.ByName("username"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	profile := NewProfile(user)
	profile.Email = ""
	apiutil.WriteJSON(w, http.StatusOK, profile)
}

func (s *Service) writeError(w http.ResponseWriter, err error) {
	apiutil.WriteError(w, statusFor(err), ErrorCode(err), ErrorMessage(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrMissingFields),
		errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrWeakPassword),
		errors.Is(err, ErrInvalidColor):
		return http.StatusBadRequest
	case errors.Is(err, ErrEmailInUse):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUserDisabled):
		return http.StatusForbidden
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	default:
		log.Error().Err(err).Msg("users request failed")
		return http.StatusInternalServerError
	}
}
