package exchange

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/altmarkt/altmarkt-backend/internal/platform/logger"
	"github.com/google/uuid"
)

// MarkerName is the sentinel directory inside a tenant folder whose existence
// means a run is in flight. It is protocol-visible: the uploading client can
// observe it and hold off re-submitting the feed.
const MarkerName = "progress"

// FolderLock is the per-tenant run lock, expressed as the sentinel marker.
// Crash recovery: a marker older than the TTL is considered orphaned by a
// dead run and reclaimed.
type FolderLock struct {
	ttl time.Duration
	log *logger.Logger
}

func NewFolderLock(ttl time.Duration, baseLog *logger.Logger) *FolderLock {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &FolderLock{ttl: ttl, log: baseLog.With("service", "ExchangeFolderLock")}
}

// Acquire creates the sentinel marker inside dir. It returns false when
// another run already holds the lock; marker creation is the acquire, so a
// lost creation race also reports contention.
func (l *FolderLock) Acquire(dir string) (bool, error) {
	marker := filepath.Join(dir, MarkerName)
	for attempt := 0; attempt < 2; attempt++ {
		err := os.Mkdir(marker, 0o755)
		if err == nil {
			return true, nil
		}
		if !os.IsExist(err) {
			return false, &RunError{Kind: KindDiscovery, Err: fmt.Errorf("create marker %q: %w", marker, err)}
		}
		info, statErr := os.Stat(marker)
		if statErr != nil {
			// Marker vanished between Mkdir and Stat; retry once.
			continue
		}
		if time.Since(info.ModTime()) < l.ttl {
			return false, nil
		}
		l.log.Warn("Reclaiming stale exchange run marker", "marker", marker, "age", time.Since(info.ModTime()).String())
		if rmErr := os.RemoveAll(marker); rmErr != nil {
			return false, &RunError{Kind: KindDiscovery, Err: fmt.Errorf("reclaim stale marker %q: %w", marker, rmErr)}
		}
	}
	return false, nil
}

// Held reports whether the sentinel marker currently exists.
func (l *FolderLock) Held(dir string) (bool, error) {
	_, err := os.Stat(filepath.Join(dir, MarkerName))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, &RunError{Kind: KindDiscovery, Err: err}
}

// Release removes the sentinel marker. The coordinator normally deletes the
// whole tenant folder instead; Release exists for the contention paths that
// never reach cleanup.
func (l *FolderLock) Release(dir string) error {
	return os.RemoveAll(filepath.Join(dir, MarkerName))
}

// SweepLock guards the whole-store sweep so overlapping scheduler ticks or
// replicas never double-sweep. Acquire returns false on contention.
type SweepLock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type redisSweepLock struct {
	log   *logger.Logger
	rdb   *goredis.Client
	key   string
	ttl   time.Duration
	token string
}

// NewRedisSweepLock builds a SETNX+TTL advisory lock from REDIS_ADDR. The TTL
// bounds how long a crashed sweep can block the next one.
func NewRedisSweepLock(baseLog *logger.Logger, ttl time.Duration) (SweepLock, error) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisSweepLock{
		log:   baseLog.With("service", "ExchangeSweepLock"),
		rdb:   rdb,
		key:   "exchange:sweep",
		ttl:   ttl,
		token: uuid.New().String(),
	}, nil
}

func (l *redisSweepLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire sweep lock: %w", err)
	}
	return ok, nil
}

func (l *redisSweepLock) Release(ctx context.Context) error {
	// Only the holder may release; a lock claimed by a later sweep after
	// our TTL expired stays put.
	held, err := l.rdb.Get(ctx, l.key).Result()
	if err == goredis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("release sweep lock: %w", err)
	}
	if held != l.token {
		l.log.Warn("Sweep lock held by another sweep, not releasing", "key", l.key)
		return nil
	}
	return l.rdb.Del(ctx, l.key).Err()
}
