package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var ErrNotLoggedIn = errors.New("not logged in")

var (
	credentialsBucket = []byte("credentials")
	currentKey        = []byte("current")
)

// Credentials is the persisted login of the CLI user
type Credentials struct {
	Token       string    `json:"token"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Color       string    `json:"color,omitempty"`
	APIURL      string    `json:"api_url"`
	SavedAt     time.Time `json:"saved_at"`
}

// CredentialStore keeps the current login in a local bbolt file so it
// survives between CLI invocations
type CredentialStore struct {
	db *bolt.DB
}

func OpenCredentialStore(path string) (*CredentialStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create credential directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(credentialsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialise credential store: %w", err)
	}
	return &CredentialStore{db: db}, nil
}

func (s *CredentialStore) Save(c Credentials) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(credentialsBucket).Put(currentKey, data)
	})
}

func (s *CredentialStore) Load() (*Credentials, error) {
	var c Credentials
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(credentialsBucket).Get(currentKey)
		if data == nil {
			return ErrNotLoggedIn
		}
		return json.Unmarshal(data, &c)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CredentialStore) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(credentialsBucket).Delete(currentKey)
	})
}

func (s *CredentialStore) Close() error {
	return s.db.Close()
}
