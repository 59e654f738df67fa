package db

import (
	"context"
	"time"
)

type Server struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Region    string    `json:"region"`
	CreatedAt time.Time `json:"created_at"`
}

const listServers = `-- name: ListServers :many
SELECT id, name, region, created_at FROM servers
ORDER BY name`

func (q *Queries) ListServers(ctx context.Context) ([]Server, error) {
	rows, err := q.db.QueryContext(ctx, listServers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Server
	for rows.Next() {
		var i Server
		if err := rows.Scan(&i.ID, &i.Name, &i.Region, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getServer = `-- name: GetServer :one
SELECT id, name, region, created_at FROM servers
WHERE id = $1`

func (q *Queries) GetServer(ctx context.Context, id string) (Server, error) {
	row := q.db.QueryRowContext(ctx, getServer, id)
	var i Server
	err := row.Scan(&i.ID, &i.Name, &i.Region, &i.CreatedAt)
	return i, err
}

const upsertServer = `-- name: UpsertServer :exec
INSERT INTO servers (id, name, region)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, region = EXCLUDED.region`

type UpsertServerParams struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Region string `json:"region"`
}

func (q *Queries) UpsertServer(ctx context.Context, arg UpsertServerParams) error {
	_, err := q.db.ExecContext(ctx, upsertServer, arg.ID, arg.Name, arg.Region)
	return err
}
