// Package distlock hands out named locks that keep two dispatcher
// processes from sending the same campaign.
package distlock

import (
	"context"
	"database/sql"
	"hash/fnv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lock is a single named lock.
// Implementations must be safe for use from a single goroutine;
// concurrent use across goroutines requires separate lock instances.
type Lock interface {
	// Acquire tries to acquire the lock without blocking. Returns true if successful.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
}

// Locker creates locks by key.
type Locker interface {
	NewLock(key string, ttl time.Duration) Lock
}

// LockerFunc adapts a function to Locker.
type LockerFunc func(key string, ttl time.Duration) Lock

func (f LockerFunc) NewLock(key string, ttl time.Duration) Lock { return f(key, ttl) }

// New picks the best available backend: Redis when a client is given
// (cross-host, TTL bound), PostgreSQL advisory locks when only a database
// is, and a process-local table otherwise.
func New(redisClient *redis.Client, db *sql.DB) Locker {
	switch {
	case redisClient != nil:
		return LockerFunc(func(key string, ttl time.Duration) Lock {
			return NewRedisLock(redisClient, key, ttl)
		})
	case db != nil:
		return LockerFunc(func(key string, _ time.Duration) Lock {
			return NewPGAdvisoryLock(db, key)
		})
	default:
		return NewLocalLocker()
	}
}

// =============================================================================
// PostgreSQL Advisory Lock (fallback when Redis is unavailable)
// =============================================================================
// pg_try_advisory_lock / pg_advisory_unlock are session scoped, so the lock
// must be taken and released on the same pooled connection. The lock holds
// that connection until Release and is dropped with it if the process dies.

// PGAdvisoryLock implements Lock using PostgreSQL advisory locks.
type PGAdvisoryLock struct {
	db     *sql.DB
	lockID int64
	conn   *sql.Conn
}

// NewPGAdvisoryLock creates a PG advisory lock with a deterministic lock ID
// derived from the given key string.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{
		db:     db,
		lockID: int64(h.Sum64()),
	}
}

// Acquire tries to acquire the advisory lock. Returns true if successful.
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, err
	}
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, err
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

// Release releases the advisory lock and returns its connection to the pool.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	defer func() {
		l.conn.Close()
		l.conn = nil
	}()
	_, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}

// =============================================================================
// Process-local locks (development mode without Redis or Postgres)
// =============================================================================

// LocalLocker keeps held keys in memory. Expired entries are taken over.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

// NewLocalLocker creates an empty process-local locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]time.Time), now: time.Now}
}

func (l *LocalLocker) NewLock(key string, ttl time.Duration) Lock {
	return &localLock{parent: l, key: key, ttl: ttl}
}

type localLock struct {
	parent *LocalLocker
	key    string
	ttl    time.Duration
	owned  bool
}

func (l *localLock) Acquire(_ context.Context) (bool, error) {
	p := l.parent
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	if exp, ok := p.held[l.key]; ok && now.Before(exp) {
		return false, nil
	}
	p.held[l.key] = now.Add(l.ttl)
	l.owned = true
	return true, nil
}

func (l *localLock) Release(_ context.Context) error {
	if !l.owned {
		return nil
	}
	p := l.parent
	p.mu.Lock()
	delete(p.held, l.key)
	p.mu.Unlock()
	l.owned = false
	return nil
}
