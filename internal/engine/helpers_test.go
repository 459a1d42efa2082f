package engine_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/cache"
	"github.com/oggyb/muzz-match/internal/db/dbtest"
	"github.com/oggyb/muzz-match/internal/engine"
	"github.com/oggyb/muzz-match/internal/logger"
	"github.com/oggyb/muzz-match/internal/repository"
	"github.com/oggyb/muzz-match/internal/storage"
)

// Noon in Tokyo on 2026-10-15.
var testNow = time.Date(2026, 10, 15, 3, 0, 0, 0, time.UTC)

// fakeClock is a settable clock for tests that move across days.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixedRand float64

func (r fixedRand) Float64() float64 { return float64(r) }

type harness struct {
	eng   *engine.Engine
	db    *gorm.DB
	repos *repository.Repositories
	cache *cache.RedisCache
	mr    *miniredis.Miniredis
	clock *fakeClock
}

type harnessOption func(*engine.Deps)

func withRand(r engine.RandSource) harnessOption {
	return func(d *engine.Deps) { d.Rand = r }
}

func withLog(l *slog.Logger) harnessOption {
	return func(d *engine.Deps) { d.Log = l }
}

func withClock(c engine.Clock) harnessOption {
	return func(d *engine.Deps) { d.Clock = c }
}

// newHarness wires an engine over in-memory sqlite, miniredis and a mem:// bucket.
func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	database := dbtest.New(t)
	mr := miniredis.RunT(t)
	rc := &cache.RedisCache{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = rc.Close() })

	photos, err := storage.Open(context.Background(), "mem://", "http://test/photos")
	require.NoError(t, err)
	t.Cleanup(func() { _ = photos.Close() })

	clock := &fakeClock{now: testNow}
	repos := repository.New(database)
	deps := engine.Deps{
		Repos:   repos,
		Cache:   rc,
		Photos:  photos,
		Log:     logger.Discard(),
		Clock:   clock,
		Rand:    fixedRand(0),
		Options: engine.DefaultOptions(),
	}
	for _, o := range opts {
		o(&deps)
	}

	return &harness{
		eng:   engine.New(deps),
		db:    database,
		repos: repos,
		cache: rc,
		mr:    mr,
		clock: clock,
	}
}

func (h *harness) users(t *testing.T, fixtures ...dbtest.Fixture) {
	t.Helper()
	dbtest.CreateUsers(t, h.db, fixtures...)
}

func (h *harness) like(t *testing.T, from, to uint64) engine.LikeResult {
	t.Helper()
	res, err := h.eng.Matches.RecordLike(context.Background(), from, to)
	require.NoError(t, err)
	return res
}

func (h *harness) match(t *testing.T, a, b uint64) {
	t.Helper()
	h.like(t, a, b)
	h.like(t, b, a)
}
