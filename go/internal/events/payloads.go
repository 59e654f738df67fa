// Package events holds the websocket protocol spoken between the gateway and
// its clients. Every frame is an envelope {"t": type, "p": payload}.
package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcdev12/presence/go/internal/models"
)

type MessageType string

const (
	// client -> gateway
	TypeJoin    MessageType = "join"
	TypePublish MessageType = "publish"
	TypeLeave   MessageType = "leave"

	// gateway -> client
	TypeWelcome  MessageType = "welcome"
	TypeSnapshot MessageType = "snapshot"
	TypeError    MessageType = "error"
)

var (
	ErrEmptyFrame   = errors.New("empty frame")
	ErrEmptyPayload = errors.New("empty payload")
)

// Envelope wraps every frame on the socket
type Envelope struct {
	T MessageType     `json:"t"`
	P json.RawMessage `json:"p,omitempty"`
}

// JoinPayload and PublishPayload carry the full actor state
type JoinPayload struct {
	State models.ActorState `json:"state"`
}

type PublishPayload struct {
	State models.ActorState `json:"state"`
}

// WelcomePayload tells a client which actor id the gateway bound it to
type WelcomePayload struct {
	ActorID string `json:"actorId"`
	Server  string `json:"server"`
}

// SnapshotPayload is the complete state of a server
type SnapshotPayload struct {
	Server string          `json:"server"`
	Actors models.Snapshot `json:"actors"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Encode builds one frame. A nil payload produces an envelope without "p".
func Encode(t MessageType, payload any) ([]byte, error) {
	if t == "" {
		return nil, fmt.Errorf("failed to encode frame: missing type")
	}
	env := Envelope{T: t}
	if payload != nil {
		pb, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", t, err)
		}
		env.P = pb
	}
	return json.Marshal(env)
}

func Decode(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, ErrEmptyFrame
	}
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to decode frame: %w", err)
	}
	return env, nil
}

// DecodePayload unmarshals the payload of env into a T
func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.P) == 0 {
		return out, fmt.Errorf("%w for %q", ErrEmptyPayload, env.T)
	}
	if err := json.Unmarshal(env.P, &out); err != nil {
		return out, fmt.Errorf("failed to decode %s payload: %w", env.T, err)
	}
	return out, nil
}

// ServiceType is the mDNS service gateways advertise themselves under
const ServiceType = "_presence._tcp"
