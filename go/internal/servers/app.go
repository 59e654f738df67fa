// Package servers is the catalogue of rooms users can join.
package servers

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/presence/go/internal/models"
	"github.com/mcdev12/presence/go/internal/sharedstate"
)

var ErrServerNotFound = errors.New("server not found")

// ServersRepository defines what the app layer needs from the repository
type ServersRepository interface {
	ListServers(ctx context.Context) ([]models.Server, error)
	GetServer(ctx context.Context, id string) (*models.Server, error)
	UpsertServers(ctx context.Context, servers []models.Server) error
}

// App serves the catalogue. When the table is empty, or no repository is
// configured, the configured fallback catalogue is served instead.
type App struct {
	repo     ServersRepository
	fallback []models.Server
}

func NewApp(repo ServersRepository, fallback []models.Server) *App {
	return &App{repo: repo, fallback: fallback}
}

func (a *App) List(ctx context.Context) ([]models.Server, error) {
	if a.repo == nil {
		return a.fallback, nil
	}
	servers, err := a.repo.ListServers(ctx)
	if err != nil {
		return nil, err
	}
	if len(servers) == 0 {
		return a.fallback, nil
	}
	return servers, nil
}

func (a *App) Get(ctx context.Context, id string) (*models.Server, error) {
	if err := sharedstate.ValidateID("server", id); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrServerNotFound, id)
	}
	if a.repo != nil {
		s, err := a.repo.GetServer(ctx, id)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, ErrServerNotFound) {
			return nil, err
		}
	}
	for _, s := range a.fallback {
		if s.ID == id {
			found := s
			return &found, nil
		}
	}
	return nil, ErrServerNotFound
}

// Sync writes the fallback catalogue to the table
func (a *App) Sync(ctx context.Context) error {
	if a.repo == nil || len(a.fallback) == 0 {
		return nil
	}
	for _, s := range a.fallback {
		if err := sharedstate.ValidateID("server", s.ID); err != nil {
			return err
		}
	}
	if err := a.repo.UpsertServers(ctx, a.fallback); err != nil {
		return err
	}
	log.Info().Int("count", len(a.fallback)).Msg("synced server catalogue")
	return nil
}
