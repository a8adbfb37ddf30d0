package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by Backend.Get when the key does not exist.
var ErrNotFound = errors.New("cache: key not found")

// Backend is the interface to the Redis-shaped key/value store the cache
// layer runs against. A go-redis implementation is used in production; an
// in-memory implementation backs tests and single-process deployments.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) (int64, error)

	// Set (tag) bookkeeping operations.
	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SRem(ctx context.Context, key string, members ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// ScanKeys returns all keys matching the glob pattern.
	ScanKeys(ctx context.Context, pattern string) ([]string, error)

	Ping(ctx context.Context) error
	KeyCount(ctx context.Context) (int64, error)
	Close() error
}

// MemoryBackend is an in-memory Backend implementation. It honors TTLs
// lazily: expired entries are dropped on access.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	sets    map[string]map[string]struct{}
	setExp  map[string]time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]memoryEntry),
		sets:    make(map[string]map[string]struct{}),
		setExp:  make(map[string]time.Time),
	}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	return entry.value, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Del(_ context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for _, key := range keys {
		if _, ok := m.entries[key]; ok {
			delete(m.entries, key)
			removed++
			continue
		}
		if _, ok := m.sets[key]; ok {
			expired := m.setExpiredLocked(key)
			delete(m.sets, key)
			delete(m.setExp, key)
			if !expired {
				removed++
			}
		}
	}
	return removed, nil
}

// setExpiredLocked reports whether a set key's expiry has passed. Caller must
// hold m.mu.
func (m *MemoryBackend) setExpiredLocked(key string) bool {
	exp, ok := m.setExp[key]
	return ok && !exp.IsZero() && time.Now().After(exp)
}

func (m *MemoryBackend) SAdd(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]struct{})
		m.sets[key] = set
	}
	for _, member := range members {
		set[member] = struct{}{}
	}
	return nil
}

func (m *MemoryBackend) SMembers(_ context.Context, key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.setExpiredLocked(key) {
		return nil, nil
	}
	members := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		members = append(members, member)
	}
	return members, nil
}

func (m *MemoryBackend) SRem(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[key]
	if !ok {
		return nil
	}
	for _, member := range members {
		delete(set, member)
	}
	return nil
}

func (m *MemoryBackend) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.entries[key]; ok {
		entry.expiresAt = time.Now().Add(ttl)
		m.entries[key] = entry
	}
	if _, ok := m.sets[key]; ok {
		m.setExp[key] = time.Now().Add(ttl)
	}
	return nil
}

func (m *MemoryBackend) ScanKeys(_ context.Context, pattern string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for key := range m.entries {
		if globMatch(pattern, key) {
			keys = append(keys, key)
		}
	}
	for key := range m.sets {
		if !m.setExpiredLocked(key) && globMatch(pattern, key) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (m *MemoryBackend) Ping(_ context.Context) error {
	return nil
}

func (m *MemoryBackend) KeyCount(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := int64(len(m.entries))
	for key := range m.sets {
		if !m.setExpiredLocked(key) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryBackend) Close() error {
	return nil
}

// globMatch matches a key against a pattern where '*' matches any run of
// characters. Only '*' wildcards are supported, matching the subset of Redis
// glob syntax the cache layer uses.
func globMatch(pattern, key string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == key
	}
	if !strings.HasPrefix(key, parts[0]) {
		return false
	}
	key = key[len(parts[0]):]
	for _, part := range parts[1 : len(parts)-1] {
		idx := strings.Index(key, part)
		if idx < 0 {
			return false
		}
		key = key[idx+len(part):]
	}
	return strings.HasSuffix(key, parts[len(parts)-1])
}

// FailingBackend is a Backend whose every operation fails. The cache layer
// degrades to a permanent miss over it; it stands in when no real backend is
// reachable and in degraded-path tests.
type FailingBackend struct {
	Err error
}

// NewFailingBackend creates a backend that fails every call with err.
func NewFailingBackend(err error) *FailingBackend {
	if err == nil {
		err = errors.New("cache: backend unavailable")
	}
	return &FailingBackend{Err: err}
}

func (f *FailingBackend) Get(context.Context, string) ([]byte, error) { return nil, f.Err }
func (f *FailingBackend) Set(context.Context, string, []byte, time.Duration) error {
	return f.Err
}
func (f *FailingBackend) Del(context.Context, ...string) (int64, error)  { return 0, f.Err }
func (f *FailingBackend) SAdd(context.Context, string, ...string) error  { return f.Err }
func (f *FailingBackend) SMembers(context.Context, string) ([]string, error) {
	return nil, f.Err
}
func (f *FailingBackend) SRem(context.Context, string, ...string) error { return f.Err }
func (f *FailingBackend) Expire(context.Context, string, time.Duration) error {
	return f.Err
}
func (f *FailingBackend) ScanKeys(context.Context, string) ([]string, error) { return nil, f.Err }
func (f *FailingBackend) Ping(context.Context) error                         { return f.Err }
func (f *FailingBackend) KeyCount(context.Context) (int64, error)            { return 0, f.Err }
func (f *FailingBackend) Close() error                                       { return nil }
