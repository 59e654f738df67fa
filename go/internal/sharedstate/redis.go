package sharedstate

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/presence/go/internal/models"
)

// RedisChannel keeps each server scope in the hash <prefix>:<server> and
// announces changes on the pub/sub channel <prefix>:<server>:changed.
// Subscribers reload the whole hash on every announcement.
type RedisChannel struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisChannel(rdb *redis.Client, prefix string) *RedisChannel {
	if prefix == "" {
		prefix = "presence"
	}
	return &RedisChannel{rdb: rdb, prefix: prefix}
}

func (c *RedisChannel) hashKey(serverID string) string {
	return c.prefix + ":" + serverID
}

func (c *RedisChannel) changedChannel(serverID string) string {
	return c.hashKey(serverID) + ":changed"
}

func (c *RedisChannel) Join(ctx context.Context, serverID, actorID string, st models.ActorState) error {
	return c.Publish(ctx, serverID, actorID, st)
}

func (c *RedisChannel) Publish(ctx context.Context, serverID, actorID string, st models.ActorState) error {
	if err := validate(serverID, actorID); err != nil {
		return err
	}
	data, err := EncodeState(st)
	if err != nil {
		return err
	}
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, c.hashKey(serverID), actorID, data)
		pipe.Publish(ctx, c.changedChannel(serverID), actorID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write actor state: %w", err)
	}
	return nil
}

func (c *RedisChannel) Leave(ctx context.Context, serverID, actorID string) error {
	if err := validate(serverID, actorID); err != nil {
		return err
	}
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, c.hashKey(serverID), actorID)
		pipe.Publish(ctx, c.changedChannel(serverID), actorID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove actor state: %w", err)
	}
	return nil
}

func (c *RedisChannel) Subscribe(ctx context.Context, serverID string, fn func(models.Snapshot)) (Subscription, error) {
	if err := ValidateID("server", serverID); err != nil {
		return nil, err
	}
	pubsub := c.rdb.Subscribe(ctx, c.changedChannel(serverID))
	// Wait for the subscription to be confirmed so no change is missed
	// between the initial load and the first notification
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to server %s: %w", serverID, err)
	}

	loadCtx, cancel := context.WithCancel(context.Background())
	sub := &redisSubscription{pubsub: pubsub, cancel: cancel}
	sub.wg.Add(1)
	go func() {
		defer sub.wg.Done()
		fn(c.load(loadCtx, serverID))
		for range pubsub.Channel() {
			fn(c.load(loadCtx, serverID))
		}
	}()
	return sub, nil
}

// load reads the whole scope. Read failures and undecodable entries leave
// those actors out of the snapshot.
func (c *RedisChannel) load(ctx context.Context, serverID string) models.Snapshot {
	raw, err := c.rdb.HGetAll(ctx, c.hashKey(serverID)).Result()
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Str("server_id", serverID).Msg("failed to load server state")
		}
		return nil
	}
	snap := make(models.Snapshot, len(raw))
	for actorID, v := range raw {
		st, err := DecodeState([]byte(v))
		if err != nil {
			log.Warn().Err(err).
				Str("server_id", serverID).
				Str("actor_id", actorID).
				Msg("dropping undecodable actor entry")
			continue
		}
		snap[actorID] = st
	}
	return snap
}

func (c *RedisChannel) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

type redisSubscription struct {
	pubsub *redis.PubSub
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func (s *redisSubscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.pubsub.Close()
		s.wg.Wait()
	})
	return err
}
