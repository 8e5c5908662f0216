package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// leaveScript decrements a user's connection count only when an entry
// exists, clearing it at zero. Returns -1 for an absent entry so a stray
// leave never fabricates an offline transition.
var leaveScript = redis.NewScript(`
local n = redis.call("HGET", KEYS[1], ARGV[1])
if not n then
  return -1
end
n = redis.call("HINCRBY", KEYS[1], ARGV[1], -1)
if n <= 0 then
  redis.call("HDEL", KEYS[1], ARGV[1])
  return 0
end
return n
`)

// RedisRegistry backs the online set with a Redis hash of per-user
// connection counts, so several gateway processes share one view of
// presence. HINCRBY serializes mutations per field on the Redis side;
// transitions travel between processes over a pub/sub channel.
type RedisRegistry struct {
	rdb     *redis.Client
	key     string
	channel string
	logger  *zap.Logger
}

func NewRedisRegistry(rdb *redis.Client, key string, logger *zap.Logger) *RedisRegistry {
	if key == "" {
		key = "chatline:presence"
	}
	return &RedisRegistry{rdb: rdb, key: key, channel: key + ":deltas", logger: logger}
}

func (r *RedisRegistry) Join(ctx context.Context, userID string) (bool, error) {
	n, err := r.rdb.HIncrBy(ctx, r.key, userID, 1).Result()
	if err != nil {
		return false, fmt.Errorf("presence join: %w", err)
	}
	return n == 1, nil
}

func (r *RedisRegistry) Leave(ctx context.Context, userID string) (bool, error) {
	n, err := leaveScript.Run(ctx, r.rdb, []string{r.key}, userID).Int64()
	if err != nil {
		return false, fmt.Errorf("presence leave: %w", err)
	}
	if n < 0 {
		// no entry: the user was never counted online here
		return false, nil
	}
	return n == 0, nil
}

func (r *RedisRegistry) IsOnline(ctx context.Context, userID string) (bool, error) {
	val, err := r.rdb.HGet(ctx, r.key, userID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("presence lookup: %w", err)
	}
	n, _ := strconv.Atoi(val)
	return n > 0, nil
}

func (r *RedisRegistry) Snapshot(ctx context.Context) ([]string, error) {
	entries, err := r.rdb.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("presence snapshot: %w", err)
	}

	online := make([]string, 0, len(entries))
	for id, val := range entries {
		if n, _ := strconv.Atoi(val); n > 0 {
			online = append(online, id)
		}
	}
	sort.Strings(online)
	return online, nil
}

type presenceDelta struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// Announce publishes one transition to every subscribed gateway, the
// announcing one included.
func (r *RedisRegistry) Announce(ctx context.Context, added, removed []string) error {
	payload, err := json.Marshal(presenceDelta{Added: added, Removed: removed})
	if err != nil {
		return err
	}
	if err := r.rdb.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("presence announce: %w", err)
	}
	return nil
}

// Listen subscribes to the delta channel and invokes fn for every
// announced transition until ctx ends.
func (r *RedisRegistry) Listen(ctx context.Context, fn func(added, removed []string)) {
	sub := r.rdb.Subscribe(ctx, r.channel)

	go func() {
		defer sub.Close()
		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var d presenceDelta
				if err := json.Unmarshal([]byte(msg.Payload), &d); err != nil {
					r.logger.Warn("malformed presence delta", zap.Error(err))
					continue
				}
				fn(d.Added, d.Removed)
			}
		}
	}()
}
