package sharedstate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/presence/go/internal/models"
)

type NATSConfig struct {
	URL           string
	Bucket        string
	MaxReconnects int
	ReconnectWait time.Duration
	EntryTTL      time.Duration // Entries of crashed clients expire after this
	Replicas      int
}

func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Bucket:        "PRESENCE",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
		EntryTTL:      10 * time.Minute,
		Replicas:      1,
	}
}

// NATSChannel stores every actor entry in a JetStream key-value bucket under
// the key <server>.<actor>. Subscriptions are KV watches on <server>.*.
type NATSChannel struct {
	nc     *nats.Conn
	kv     jetstream.KeyValue
	config NATSConfig
}

func NewNATSChannel(ctx context.Context, cfg NATSConfig) (*NATSChannel, error) {
	opts := []nats.Option{
		nats.Name("presence"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: "Actor state per server",
		History:     1,
		TTL:         cfg.EntryTTL,
		Storage:     jetstream.MemoryStorage,
		Replicas:    cfg.Replicas,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure key-value bucket: %w", err)
	}

	log.Info().
		Str("url", nc.ConnectedUrl()).
		Str("bucket", cfg.Bucket).
		Msg("connected to NATS key-value store")

	return &NATSChannel{nc: nc, kv: kv, config: cfg}, nil
}

func natsKey(serverID, actorID string) string {
	return serverID + "." + actorID
}

func (c *NATSChannel) Join(ctx context.Context, serverID, actorID string, st models.ActorState) error {
	return c.Publish(ctx, serverID, actorID, st)
}

func (c *NATSChannel) Publish(ctx context.Context, serverID, actorID string, st models.ActorState) error {
	if err := validate(serverID, actorID); err != nil {
		return err
	}
	data, err := EncodeState(st)
	if err != nil {
		return err
	}
	if _, err := c.kv.Put(ctx, natsKey(serverID, actorID), data); err != nil {
		return fmt.Errorf("put actor state: %w", err)
	}
	return nil
}

func (c *NATSChannel) Leave(ctx context.Context, serverID, actorID string) error {
	if err := validate(serverID, actorID); err != nil {
		return err
	}
	err := c.kv.Delete(ctx, natsKey(serverID, actorID))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("delete actor state: %w", err)
	}
	return nil
}

func (c *NATSChannel) Subscribe(ctx context.Context, serverID string, fn func(models.Snapshot)) (Subscription, error) {
	if err := ValidateID("server", serverID); err != nil {
		return nil, err
	}
	watchCtx, cancel := context.WithCancel(context.Background())
	w, err := c.kv.Watch(watchCtx, serverID+".*")
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch server %s: %w", serverID, err)
	}

	sub := &natsSubscription{watcher: w, cancel: cancel}
	sub.wg.Add(1)
	go sub.run(serverID, fn)
	return sub, nil
}

// Ping reports whether the NATS connection is usable
func (c *NATSChannel) Ping(ctx context.Context) error {
	if status := c.nc.Status(); status != nats.CONNECTED {
		return fmt.Errorf("NATS connection %s", status)
	}
	return nil
}

func (c *NATSChannel) Close() error {
	if c.nc != nil {
		c.nc.Close()
	}
	return nil
}

type natsSubscription struct {
	watcher jetstream.KeyWatcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	once    sync.Once
}

func (s *natsSubscription) run(serverID string, fn func(models.Snapshot)) {
	defer s.wg.Done()

	prefix := serverID + "."
	state := models.Snapshot{}
	// The watcher sends a nil entry once the current values have been replayed
	initialized := false

	for entry := range s.watcher.Updates() {
		if entry == nil {
			initialized = true
			fn(state.Clone())
			continue
		}

		actorID := strings.TrimPrefix(entry.Key(), prefix)
		switch entry.Operation() {
		case jetstream.KeyValuePut:
			st, err := DecodeState(entry.Value())
			if err != nil {
				log.Warn().Err(err).
					Str("server_id", serverID).
					Str("actor_id", actorID).
					Msg("dropping undecodable actor entry")
				delete(state, actorID)
				break
			}
			state[actorID] = st
		case jetstream.KeyValueDelete, jetstream.KeyValuePurge:
			delete(state, actorID)
		}

		if initialized {
			fn(state.Clone())
		}
	}
}

func (s *natsSubscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		err = s.watcher.Stop()
		s.cancel()
		s.wg.Wait()
	})
	return err
}
