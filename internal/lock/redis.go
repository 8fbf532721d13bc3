// Package lock provides a Redis backed application.DateLocker for
// deployments that run more than one API instance against the same store.
package lock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/example/meeting-room-reservation/internal/application"
)

const (
	defaultPrefix = "reservation_lock:"
	defaultTTL    = 5 * time.Second
	defaultRetry  = 25 * time.Millisecond
)

// unlockScript deletes the key only while it still carries our token, so a
// holder whose TTL lapsed never frees someone else's lock.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Client is the subset of the go-redis API used by RedisLocker.
type Client interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	redis.Scripter
}

// RedisLocker implements application.DateLocker with SET NX PX keys, one per
// reservation date.
type RedisLocker struct {
	client Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
	logger *slog.Logger
	token  func() string
}

// Option configures a RedisLocker.
type Option func(*RedisLocker)

// WithPrefix sets the key prefix. The default is "reservation_lock:".
func WithPrefix(prefix string) Option {
	return func(l *RedisLocker) { l.prefix = prefix }
}

// WithTTL sets how long a lock survives a crashed holder.
func WithTTL(ttl time.Duration) Option {
	return func(l *RedisLocker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithRetryInterval sets the polling interval while a date is contended.
func WithRetryInterval(interval time.Duration) Option {
	return func(l *RedisLocker) {
		if interval > 0 {
			l.retry = interval
		}
	}
}

// WithLogger sets the logger used for release failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *RedisLocker) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewRedisLocker builds a locker on client.
func NewRedisLocker(client Client, opts ...Option) *RedisLocker {
	l := &RedisLocker{
		client: client,
		prefix: defaultPrefix,
		ttl:    defaultTTL,
		retry:  defaultRetry,
		logger: slog.Default(),
		token:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "date_lock", "backend", "redis")
	return l
}

// NewClient parses a redis:// URL and returns a connected client.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("lock: parse redis url: %w", err)
	}
	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("lock: ping redis: %w", err)
	}
	return client, nil
}

var _ application.DateLocker = (*RedisLocker)(nil)

// Lock acquires every distinct date in ascending key order. It polls while a
// date is held elsewhere and gives up when ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, dates ...time.Time) (func(), error) {
	keys := application.SortedDateKeys(dates)
	token := l.token()
	held := make([]string, 0, len(keys))

	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.release(held[i], token)
		}
	}

	for _, key := range keys {
		full := l.prefix + key
		if err := l.acquire(ctx, full, token); err != nil {
			release()
			return nil, err
		}
		held = append(held, full)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (l *RedisLocker) acquire(ctx context.Context, key, token string) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("lock: acquire %s: %w", key, ctx.Err())
		case <-timer.C:
		}

		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("lock: acquire %s: %w", key, err)
		}
		if ok {
			return nil
		}
		timer.Reset(l.retry)
	}
}

func (l *RedisLocker) release(key, token string) {
	// The request context may already be cancelled; the key still has to go.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	deleted, err := unlockScript.Run(ctx, l.client, []string{key}, token).Int64()
	if err != nil {
		l.logger.WarnContext(ctx, "date lock release failed", "key", key, "error", err)
		return
	}
	if deleted == 0 {
		l.logger.WarnContext(ctx, "date lock expired before release", "key", key, "ttl", l.ttl)
	}
}
