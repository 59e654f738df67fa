package servers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mcdev12/presence/go/internal/models"
	"github.com/mcdev12/presence/go/internal/servers/db"
	"github.com/mcdev12/presence/go/internal/sqlutil"
)

// Repository reads and writes the server catalogue table
type Repository struct {
	db      *sql.DB
	queries *db.Queries
}

func NewRepository(database *sql.DB) *Repository {
	return &Repository{
		db:      database,
		queries: db.New(database),
	}
}

func (r *Repository) ListServers(ctx context.Context) ([]models.Server, error) {
	rows, err := r.queries.ListServers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	out := make([]models.Server, 0, len(rows))
	for _, row := range rows {
		out = append(out, dbServerToModel(row))
	}
	return out, nil
}

func (r *Repository) GetServer(ctx context.Context, id string) (*models.Server, error) {
	row, err := r.queries.GetServer(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrServerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get server: %w", err)
	}
	s := dbServerToModel(row)
	return &s, nil
}

// UpsertServers writes every server in one transaction
func (r *Repository) UpsertServers(ctx context.Context, servers []models.Server) error {
	return sqlutil.Run(ctx, r.db, func(tx *sql.Tx) *db.Queries {
		return r.queries.WithTx(tx)
	}, func(q *db.Queries) error {
		for _, s := range servers {
			if err := q.UpsertServer(ctx, db.UpsertServerParams{ID: s.ID, Name: s.Name, Region: s.Region}); err != nil {
				return fmt.Errorf("failed to upsert server %s: %w", s.ID, err)
			}
		}
		return nil
	})
}

func dbServerToModel(s db.Server) models.Server {
	return models.Server{
		ID:        s.ID,
		Name:      s.Name,
		Region:    s.Region,
		CreatedAt: s.CreatedAt,
	}
}
