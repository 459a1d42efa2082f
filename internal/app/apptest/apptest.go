// Package apptest wires a complete AppContext over in-memory backends:
// sqlite, miniredis and a mem:// photo bucket.
package apptest

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/oggyb/muzz-match/internal/app"
	"github.com/oggyb/muzz-match/internal/auth"
	"github.com/oggyb/muzz-match/internal/cache"
	"github.com/oggyb/muzz-match/internal/config"
	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/db/dbtest"
	"github.com/oggyb/muzz-match/internal/engine"
	"github.com/oggyb/muzz-match/internal/logger"
	"github.com/oggyb/muzz-match/internal/repository"
	"github.com/oggyb/muzz-match/internal/storage"
)

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

// Now is the instant every apptest engine sees.
var Now = time.Date(2026, 10, 15, 3, 0, 0, 0, time.UTC)

// New returns an AppContext seeded with db.SeedMinimalTestData.
func New(t testing.TB) *app.AppContext {
	t.Helper()

	cfg := config.Defaults()
	cfg.Auth.Secret = "apptest-secret"
	cfg.Photos.PublicBaseURL = "http://localhost:8080/photos"

	database := dbtest.New(t)
	if err := db.SeedMinimalTestData(database); err != nil {
		t.Fatalf("seed: %v", err)
	}

	mr := miniredis.RunT(t)
	rc := &cache.RedisCache{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = rc.Close() })

	photos, err := storage.Open(context.Background(), "mem://", cfg.Photos.PublicBaseURL)
	if err != nil {
		t.Fatalf("photo store: %v", err)
	}
	t.Cleanup(func() { _ = photos.Close() })

	tokens, err := auth.NewTokenService(cfg)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}

	opts, err := engine.OptionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("engine options: %v", err)
	}
	log := logger.Discard()
	eng := engine.New(engine.Deps{
		Repos:   repository.New(database),
		Cache:   rc,
		Photos:  photos,
		Log:     log,
		Clock:   fixedClock(Now),
		Options: opts,
	})

	return app.New(cfg, database, rc, log, photos, tokens, eng)
}

// Token mints a bearer token for userID.
func Token(t testing.TB, appCtx *app.AppContext, userID uint64) string {
	t.Helper()
	token, err := appCtx.Tokens.Issue(userID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}
