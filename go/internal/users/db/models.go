package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type User struct {
	ID           uuid.UUID             `json:"id"`
	Email        string                `json:"email"`
	Username     sql.NullString        `json:"username"`
	PasswordHash string                `json:"password_hash"`
	Disabled     bool                  `json:"disabled"`
	Preferences  pqtype.NullRawMessage `json:"preferences"`
	CreatedAt    time.Time             `json:"created_at"`
}
