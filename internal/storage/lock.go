package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockTimeout = errors.New("lock not acquired in time")

const (
	DefaultLockTTL  = 45 * time.Second
	DefaultLockWait = 10 * time.Second
	lockRetryEvery  = 25 * time.Millisecond
)

// Locker sérialise les lectures-modifications-écritures d'une même clé.
// unlock doit être appelé exactement une fois.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

func lockKey(key string) string {
	return "lock:" + key
}

// acquire réessaie try jusqu'au succès, à l'expiration de wait ou du contexte
func acquire(ctx context.Context, wait time.Duration, try func(context.Context) (bool, error)) error {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	ticker := time.NewTicker(lockRetryEvery)
	defer ticker.Stop()

	for {
		ok, err := try(ctx)
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ErrLockTimeout
		case <-ticker.C:
		}
	}
}

// KeyedMutex verrouille par clé dans le processus (drivers memory et tests)
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	sem  chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{sem: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		k.release(key, e, false)
		return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
	}

	var once sync.Once
	return func() { once.Do(func() { k.release(key, e, true) }) }, nil
}

func (k *KeyedMutex) release(key string, e *keyedEntry, held bool) {
	if held {
		<-e.sem
	}
	k.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}

// la clé n'est supprimée que si elle porte encore notre jeton
var redisUnlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker : SET NX PX avec jeton, partagé entre toutes les instances
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
}

func NewRedisLocker(client *redis.Client, ttl, wait time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	if wait <= 0 {
		wait = DefaultLockWait
	}
	return &RedisLocker{client: client, ttl: ttl, wait: wait}
}

func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	k := lockKey(key)

	err := acquire(ctx, r.wait, func(ctx context.Context) (bool, error) {
		return r.client.SetNX(ctx, k, token, r.ttl).Result()
	})
	if err != nil {
		return nil, fmt.Errorf("redis lock %s: %w", key, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// contexte détaché : la requête a pu être annulée entre-temps
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = redisUnlockScript.Run(ctx, r.client, []string{k}, token).Err()
		})
	}, nil
}

const scyllaLockSchema = `CREATE TABLE IF NOT EXISTS locks (
	key text PRIMARY KEY,
	owner text
)`

// ScyllaLocker : transactions légères (IF NOT EXISTS / IF owner = ?)
type ScyllaLocker struct {
	session *gocql.Session
	ttl     time.Duration
	wait    time.Duration
}

func NewScyllaLocker(session *gocql.Session, ttl, wait time.Duration) (*ScyllaLocker, error) {
	if err := session.Query(scyllaLockSchema).Exec(); err != nil {
		return nil, fmt.Errorf("create locks table: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	if wait <= 0 {
		wait = DefaultLockWait
	}
	return &ScyllaLocker{session: session, ttl: ttl, wait: wait}, nil
}

func (s *ScyllaLocker) Lock(ctx context.Context, key string) (func(), error) {
	owner := uuid.NewString()
	seconds := int(s.ttl / time.Second)

	err := acquire(ctx, s.wait, func(ctx context.Context) (bool, error) {
		return s.session.Query(`INSERT INTO locks (key, owner) VALUES (?, ?) IF NOT EXISTS USING TTL ?`,
			key, owner, seconds).
			WithContext(ctx).
			SerialConsistency(gocql.LocalSerial).
			MapScanCAS(map[string]interface{}{})
	})
	if err != nil {
		return nil, fmt.Errorf("scylla lock %s: %w", key, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_, _ = s.session.Query(`DELETE FROM locks WHERE key = ? IF owner = ?`, key, owner).
				WithContext(ctx).
				SerialConsistency(gocql.LocalSerial).
				MapScanCAS(map[string]interface{}{})
		})
	}, nil
}
