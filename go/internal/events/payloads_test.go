package events

import (
	"errors"
	"testing"

	"github.com/mcdev12/presence/go/internal/models"
)

func TestEncodeDecodeSnapshot(t *testing.T) {
	b, err := Encode(TypeSnapshot, SnapshotPayload{
		Server: "lobby",
		Actors: models.Snapshot{"u1": {X: 1, Y: 2, DisplayName: "ana", Color: "#f00"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	env, err := Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if env.T != TypeSnapshot {
		t.Fatalf("type = %q", env.T)
	}
	p, err := DecodePayload[SnapshotPayload](env)
	if err != nil {
		t.Fatal(err)
	}
	if p.Server != "lobby" || p.Actors["u1"].DisplayName != "ana" {
		t.Fatalf("payload = %+v", p)
	}
}

func TestEncodeWithoutPayload(t *testing.T) {
	b, err := Encode(TypeLeave, nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"t":"leave"}` {
		t.Fatalf("frame = %s", b)
	}
	env, _ := Decode(b)
	if _, err := DecodePayload[JoinPayload](env); !errors.Is(err, ErrEmptyPayload) {
		t.Fatalf("err = %v, want ErrEmptyPayload", err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode(nil); !errors.Is(err, ErrEmptyFrame) {
		t.Fatalf("err = %v, want ErrEmptyFrame", err)
	}
	if _, err := Decode([]byte("{not json")); err == nil {
		t.Fatal("expected error for malformed frame")
	}
	if _, err := Encode("", nil); err == nil {
		t.Fatal("expected error for missing type")
	}
}
