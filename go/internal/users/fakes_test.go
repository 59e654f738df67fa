package users

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcdev12/presence/go/internal/models"
)

type fakeRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: map[uuid.UUID]*models.User{}}
}

func (r *fakeRepo) CreateUser(_ context.Context, req CreateUserRequest) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, req.Email) {
			return nil, ErrEmailInUse
		}
	}
	u := &models.User{
		ID:           uuid.New(),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: req.PasswordHash,
		CreatedAt:    time.Now(),
	}
	if req.Preferences.Color != "" {
		u.Preferences = []byte(`{"color":"` + req.Preferences.Color + `"}`)
	}
	r.users[u.ID] = u
	return u, nil
}

func (r *fakeRepo) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, ErrUserNotFound
}

func (r *fakeRepo) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *fakeRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *fakeRepo) UpdatePreferences(_ context.Context, id uuid.UUID, prefs models.UserPreferences) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u.Preferences = []byte(`{"color":"` + prefs.Color + `"}`)
	cp := *u
	return &cp, nil
}

func (r *fakeRepo) disable(email string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			u.Disabled = true
		}
	}
}

func newTestApp() (*App, *fakeRepo, *clockwork.FakeClock) {
	repo := newFakeRepo()
	clock := clockwork.NewFakeClock()
	app := NewApp(repo, NewMemorySessionStore(clock))
	app.hashCost = bcrypt.MinCost
	return app, repo, clock
}
