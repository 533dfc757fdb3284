package relay

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type staticErr string

func (e staticErr) Error() string { return string(e) }

const (
	ErrFull        staticErr = "match already has two players"
	ErrInvalidArgs staticErr = "invalid slot arguments"
)

// Slot is a player position in a match.
type Slot int

const (
	Player1 Slot = 1
	Player2 Slot = 2
)

func (s Slot) String() string {
	switch s {
	case Player1:
		return "p1"
	case Player2:
		return "p2"
	default:
		return "none"
	}
}

func (s Slot) other() Slot {
	if s == Player1 {
		return Player2
	}
	return Player1
}

// SlotStore hands out the two player slots of a match. Holders are opaque
// ids; Release only frees a slot still owned by the given holder.
type SlotStore interface {
	Claim(ctx context.Context, match, holder string) (Slot, error)
	Release(ctx context.Context, match string, slot Slot, holder string) error
	Occupied(ctx context.Context, match string) (int, error)
	Reset(ctx context.Context, match string) error
}

// MemoryStore keeps slots in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	matches map[string]*[2]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{matches: make(map[string]*[2]string)}
}

func (m *MemoryStore) Claim(_ context.Context, match, holder string) (Slot, error) {
	if strings.TrimSpace(holder) == "" {
		return 0, ErrInvalidArgs
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	slots, ok := m.matches[match]
	if !ok {
		slots = &[2]string{}
		m.matches[match] = slots
	}
	for i := range slots {
		if slots[i] == "" {
			slots[i] = holder
			return Slot(i + 1), nil
		}
	}
	return 0, ErrFull
}

func (m *MemoryStore) Release(_ context.Context, match string, slot Slot, holder string) error {
	if slot != Player1 && slot != Player2 {
		return ErrInvalidArgs
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if slots, ok := m.matches[match]; ok && slots[slot-1] == holder {
		slots[slot-1] = ""
	}
	return nil
}

func (m *MemoryStore) Occupied(_ context.Context, match string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	if slots, ok := m.matches[match]; ok {
		for _, h := range slots {
			if h != "" {
				n++
			}
		}
	}
	return n, nil
}

func (m *MemoryStore) Reset(_ context.Context, match string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.matches, match)
	return nil
}

const (
	ttlMatch     = 24 * time.Hour
	claimRetries = 5
)

// RedisStore keeps slots in a Redis hash ("relay:match:<id>" with fields
// p1/p2), so occupancy survives relay restarts and can be inspected from
// outside. One relay process serves a given match id.
type RedisStore struct{ rdb *redis.Client }

func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

// NewRedisStoreFromURL connects to a redis:// or rediss:// URL and pings it.
func NewRedisStoreFromURL(ctx context.Context, raw string) (*RedisStore, error) {
	opts, err := parseRedisURL(raw)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStore(rdb), nil
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func (s *RedisStore) keyMatch(match string) string { return "relay:match:" + strings.TrimSpace(match) }

func (s *RedisStore) Claim(ctx context.Context, match, holder string) (Slot, error) {
	if strings.TrimSpace(holder) == "" {
		return 0, ErrInvalidArgs
	}
	key := s.keyMatch(match)
	var claimed Slot
	for attempt := 0; attempt < claimRetries; attempt++ {
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			cur, err := tx.HGetAll(ctx, key).Result()
			if err != nil && err != redis.Nil {
				return err
			}
			claimed = 0
			for _, sl := range []Slot{Player1, Player2} {
				if cur[sl.String()] == "" {
					claimed = sl
					break
				}
			}
			if claimed == 0 {
				return ErrFull
			}
			pipe := tx.TxPipeline()
			pipe.HSet(ctx, key, claimed.String(), holder)
			pipe.Expire(ctx, key, ttlMatch)
			_, pErr := pipe.Exec(ctx)
			return pErr
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return 0, err
		}
		return claimed, nil
	}
	return 0, fmt.Errorf("claim slot in %s: %w", match, redis.TxFailedErr)
}

func (s *RedisStore) Release(ctx context.Context, match string, slot Slot, holder string) error {
	if slot != Player1 && slot != Player2 {
		return ErrInvalidArgs
	}
	key := s.keyMatch(match)
	for attempt := 0; attempt < claimRetries; attempt++ {
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			cur, err := tx.HGet(ctx, key, slot.String()).Result()
			if err == redis.Nil {
				return nil
			}
			if err != nil {
				return err
			}
			if cur != holder {
				return nil
			}
			_, pErr := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HDel(ctx, key, slot.String())
				return nil
			})
			return pErr
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("release slot in %s: %w", match, redis.TxFailedErr)
}

func (s *RedisStore) Occupied(ctx context.Context, match string) (int, error) {
	n, err := s.rdb.HLen(ctx, s.keyMatch(match)).Result()
	if err != nil && err != redis.Nil {
		return 0, err
	}
	return int(n), nil
}

func (s *RedisStore) Reset(ctx context.Context, match string) error {
	return s.rdb.Del(ctx, s.keyMatch(match)).Err()
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
