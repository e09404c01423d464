package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("booking session not found")

// ErrSessionBusy is returned by Lock while another request holds the
// session.
var ErrSessionBusy = errors.New("booking session is busy")

// LockTTL bounds how long a crashed holder can keep a session locked.
const LockTTL = 5 * time.Minute

// Store keeps in-progress flows between HTTP requests.  Entries expire
// after the configured TTL; nothing outlives a patron's dialog.
//
// Lock does not wait: a held session yields ErrSessionBusy.  The returned
// release func is safe to call more than once.
type Store interface {
	Save(ctx context.Context, id string, f Flow) error
	Load(ctx context.Context, id string) (Flow, error)
	Delete(ctx context.Context, id string) error
	Lock(ctx context.Context, id string) (release func(), err error)
}

// NewSessionID returns a random session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// RedisStore stores flows as JSON strings under prefix:id.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore returns a Store backed by rdb.
func NewRedisStore(rdb *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "booking:session"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + ":" + id
}

// Save writes the flow and refreshes its TTL.
func (s *RedisStore) Save(ctx context.Context, id string, f Flow) error {
	b, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode flow: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(id), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

// Load reads a flow, returning ErrSessionNotFound when absent.
func (s *RedisStore) Load(ctx context.Context, id string) (Flow, error) {
	b, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Flow{}, ErrSessionNotFound
	}
	if err != nil {
		return Flow{}, fmt.Errorf("load session %s: %w", id, err)
	}
	var f Flow
	if err := json.Unmarshal(b, &f); err != nil {
		return Flow{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return f, nil
}

// Delete removes a flow.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// releaseLock deletes the lock key only while it still holds our token, so
// an expired lock taken over by another request is left alone.
var releaseLock = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// Lock takes prefix:id:lock with SET NX and LockTTL.
func (s *RedisStore) Lock(ctx context.Context, id string) (func(), error) {
	key := s.key(id) + ":lock"
	token := NewSessionID()
	ok, err := s.rdb.SetNX(ctx, key, token, LockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("lock session %s: %w", id, err)
	}
	if !ok {
		return nil, ErrSessionBusy
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			// The request context may already be cancelled.
			_ = releaseLock.Run(context.Background(), s.rdb, []string{key}, token).Err()
		})
	}, nil
}

type memEntry struct {
	flow    Flow
	expires time.Time
}

// MemoryStore is the in-process Store used when Redis is unavailable.
type MemoryStore struct {
	mu     sync.Mutex
	items  map[string]memEntry
	locked map[string]bool
	ttl    time.Duration
	now    func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{items: map[string]memEntry{}, locked: map[string]bool{}, ttl: ttl, now: time.Now}
}

// Lock marks id as held until release is called.
func (s *MemoryStore) Lock(_ context.Context, id string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked[id] {
		return nil, ErrSessionBusy
	}
	s.locked[id] = true
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.locked, id)
			s.mu.Unlock()
		})
	}, nil
}

// Save stores the flow and refreshes its expiry.  Expired entries are
// swept on the way.
func (s *MemoryStore) Save(_ context.Context, id string, f Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.items {
		if now.After(e.expires) {
			delete(s.items, k)
		}
	}
	s.items[id] = memEntry{flow: f, expires: now.Add(s.ttl)}
	return nil
}

// Load returns the flow or ErrSessionNotFound when absent or expired.
func (s *MemoryStore) Load(_ context.Context, id string) (Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok || s.now().After(e.expires) {
		delete(s.items, id)
		return Flow{}, ErrSessionNotFound
	}
	return e.flow, nil
}

// Delete removes a flow.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}
