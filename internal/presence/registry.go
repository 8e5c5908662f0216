package presence

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"sort"
	"sync"
)

const shardCount = 32

// Registry is the process-wide source of truth for who is online. One
// logical user may hold several simultaneous connections; a user is online
// while their reference count is above zero. Mutations for the same user
// key are serialized, different keys proceed independently.
type Registry interface {
	// Join increments the user's connection count and reports whether the
	// user just came online (0 -> 1).
	Join(ctx context.Context, userID string) (bool, error)

	// Leave decrements the user's connection count and reports whether the
	// user just went offline (1 -> 0).
	Leave(ctx context.Context, userID string) (bool, error)

	IsOnline(ctx context.Context, userID string) (bool, error)

	// Snapshot returns the current online set, sorted.
	Snapshot(ctx context.Context) ([]string, error)
}

// Announcer mirrors presence transitions between gateway processes. A
// registry implementing it owns delta distribution: the hub announces
// each transition and delivers to its local clients only what comes back
// through Listen.
type Announcer interface {
	// Announce publishes one transition to every listening gateway,
	// including the announcing one.
	Announce(ctx context.Context, added, removed []string) error

	// Listen invokes fn for every announced transition until ctx ends.
	Listen(ctx context.Context, fn func(added, removed []string))
}

type bucket struct {
	sync.Mutex
	refs map[string]int
}

// LocalRegistry keeps reference counts in sharded in-process buckets. For
// a horizontally scaled gateway use RedisRegistry instead.
type LocalRegistry struct {
	shards [shardCount]*bucket
}

func NewLocalRegistry() *LocalRegistry {
	r := &LocalRegistry{}
	for i := 0; i < shardCount; i++ {
		r.shards[i] = &bucket{refs: make(map[string]int)}
	}
	return r
}

func (r *LocalRegistry) shardFor(userID string) *bucket {
	h := sha1.Sum([]byte(userID))
	return r.shards[binary.BigEndian.Uint32(h[:4])%shardCount]
}

func (r *LocalRegistry) Join(_ context.Context, userID string) (bool, error) {
	b := r.shardFor(userID)
	b.Lock()
	defer b.Unlock()

	b.refs[userID]++
	return b.refs[userID] == 1, nil
}

func (r *LocalRegistry) Leave(_ context.Context, userID string) (bool, error) {
	b := r.shardFor(userID)
	b.Lock()
	defer b.Unlock()

	n, ok := b.refs[userID]
	if !ok {
		return false, nil
	}
	if n <= 1 {
		delete(b.refs, userID)
		return true, nil
	}
	b.refs[userID] = n - 1
	return false, nil
}

func (r *LocalRegistry) IsOnline(_ context.Context, userID string) (bool, error) {
	b := r.shardFor(userID)
	b.Lock()
	defer b.Unlock()
	return b.refs[userID] > 0, nil
}

func (r *LocalRegistry) Snapshot(_ context.Context) ([]string, error) {
	online := make([]string, 0)
	for _, b := range r.shards {
		b.Lock()
		for id := range b.refs {
			online = append(online, id)
		}
		b.Unlock()
	}
	sort.Strings(online)
	return online, nil
}
