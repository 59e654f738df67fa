// Package sharedstate is the boundary to the shared-state backend. A server
// scope holds one entry per actor; writers overwrite or remove their own
// entry and subscribers receive the complete mapping whenever anything in
// the scope changes. Last write wins and there is no ordering guarantee.
package sharedstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/mcdev12/presence/go/internal/models"
)

var (
	ErrInvalidID = errors.New("invalid id")
	ErrClosed    = errors.New("channel closed")
)

// Channel is implemented by every shared-state backend
type Channel interface {
	// Join writes the actor's initial entry. Calling it again overwrites.
	Join(ctx context.Context, serverID, actorID string, st models.ActorState) error
	// Publish overwrites the actor's entry with st
	Publish(ctx context.Context, serverID, actorID string, st models.ActorState) error
	// Leave removes the actor's entry. Removing a missing entry is not an error.
	Leave(ctx context.Context, serverID, actorID string) error
	// Subscribe calls fn with the complete mapping of serverID, once with the
	// current contents and then after every change. fn runs on a backend
	// goroutine and calls for one subscription never overlap.
	Subscribe(ctx context.Context, serverID string, fn func(models.Snapshot)) (Subscription, error)
}

type Subscription interface {
	Unsubscribe() error
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateID checks that id can be used as a key segment on every backend
func ValidateID(kind, id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %s %q", ErrInvalidID, kind, id)
	}
	return nil
}

func validate(serverID, actorID string) error {
	if err := ValidateID("server", serverID); err != nil {
		return err
	}
	return ValidateID("actor", actorID)
}

// EncodeState is the stored form of one actor entry
func EncodeState(st models.ActorState) ([]byte, error) {
	b, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("failed to encode actor state: %w", err)
	}
	return b, nil
}

func DecodeState(b []byte) (models.ActorState, error) {
	var st models.ActorState
	if err := json.Unmarshal(b, &st); err != nil {
		return st, fmt.Errorf("failed to decode actor state: %w", err)
	}
	return st, nil
}
