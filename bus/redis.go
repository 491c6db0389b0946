// Package bus fans room broadcasts out across relay instances over redis
// pub/sub. Targeted relays stay instance-local; only presence and speaking
// events cross instances.
package bus

import (
	"context"
	"encoding/json"

	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type envelope struct {
	RoomID  string          `json:"roomId"`
	Exclude string          `json:"exclude,omitempty"`
	Payload json.RawMessage `json:"payload"`
	Origin  string          `json:"origin"`
}

type Redis struct {
	rdb    *redis.Client
	origin string
}

// NewRedis connects to redis and verifies connectivity. Each instance gets
// a random origin tag so it can skip its own published messages.
func NewRedis(ctx context.Context, addr string, db int) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Redis{rdb: rdb, origin: uuid.New().String()}, nil
}

// Publish sends a room broadcast to the channel for roomID.
func (b *Redis) Publish(ctx context.Context, roomID, exclude string, payload []byte) error {
	raw, err := json.Marshal(envelope{
		RoomID:  roomID,
		Exclude: exclude,
		Payload: payload,
		Origin:  b.origin,
	})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, channel(roomID), raw).Err()
}

// Subscribe listens to all room channels and invokes fn for each message
// published by another instance. Blocks until ctx is cancelled.
func (b *Redis) Subscribe(ctx context.Context, fn func(roomID, exclude string, payload []byte)) {
	pubsub := b.rdb.PSubscribe(ctx, channel("*"))
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			_ = pubsub.Close()
			return
		case msg := <-ch:
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				slog.Warn("bus decode failed", "error", err)
				continue
			}
			if env.RoomID == "" || env.Origin == b.origin {
				continue
			}
			fn(env.RoomID, env.Exclude, env.Payload)
		}
	}
}

// Close shuts down the redis connection.
func (b *Redis) Close() { _ = b.rdb.Close() }

// channel namespacing for room pub/sub.
func channel(roomID string) string { return "room:" + roomID }
