// Package engine holds the matching and visibility rules: likes and matches,
// blocking, messaging, contact disclosure, proximity search and the daily pick.
//
// Every operation is request-scoped. Invariants that must survive concurrent
// callers are enforced by storage (primary keys, unique indexes, transactions),
// never by in-process state.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oggyb/muzz-match/internal/cache"
	"github.com/oggyb/muzz-match/internal/config"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/logger"
	"github.com/oggyb/muzz-match/internal/repository"
	"github.com/oggyb/muzz-match/internal/utils/pagination"
)

// BlobStore is where photo bytes live.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (url string, err error)
	Delete(ctx context.Context, key string) error
}

// Options are the tunables of the engine.
type Options struct {
	Location         *time.Location // day boundary of the daily pick
	NearbyLimit      int
	MaxNearbyKm      float64
	RecommendWindow  int // days a pick stays excluded
	PageSize         int
	DiscoverPageSize int
	MaxPhotoBytes    int64
}

// DefaultOptions mirrors config.Defaults.
func DefaultOptions() Options {
	return Options{
		Location:         tokyo(),
		NearbyLimit:      50,
		MaxNearbyKm:      500,
		RecommendWindow:  30,
		PageSize:         20,
		DiscoverPageSize: 20,
		MaxPhotoBytes:    5 << 20,
	}
}

// OptionsFromConfig builds Options from the engine and photos sections.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	opts := DefaultOptions()
	if cfg.Engine.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Engine.Timezone)
		if err != nil {
			return opts, err
		}
		opts.Location = loc
	}
	if cfg.Engine.NearbyLimit > 0 {
		opts.NearbyLimit = cfg.Engine.NearbyLimit
	}
	if cfg.Engine.MaxNearbyKm > 0 {
		opts.MaxNearbyKm = cfg.Engine.MaxNearbyKm
	}
	if cfg.Engine.RecommendWindow > 0 {
		opts.RecommendWindow = cfg.Engine.RecommendWindow
	}
	if cfg.Engine.PageSize > 0 {
		opts.PageSize = cfg.Engine.PageSize
	}
	if cfg.Engine.DiscoverPageSize > 0 {
		opts.DiscoverPageSize = cfg.Engine.DiscoverPageSize
	}
	if cfg.Photos.MaxBytes > 0 {
		opts.MaxPhotoBytes = cfg.Photos.MaxBytes
	}
	return opts, nil
}

// withDefaults fills zero fields from DefaultOptions.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Location == nil {
		o.Location = def.Location
	}
	if o.NearbyLimit <= 0 {
		o.NearbyLimit = def.NearbyLimit
	}
	if o.MaxNearbyKm <= 0 {
		o.MaxNearbyKm = def.MaxNearbyKm
	}
	if o.RecommendWindow <= 0 {
		o.RecommendWindow = def.RecommendWindow
	}
	if o.PageSize <= 0 {
		o.PageSize = def.PageSize
	}
	if o.DiscoverPageSize <= 0 {
		o.DiscoverPageSize = def.DiscoverPageSize
	}
	if o.MaxPhotoBytes <= 0 {
		o.MaxPhotoBytes = def.MaxPhotoBytes
	}
	return o
}

func tokyo() *time.Location {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		// JST has no DST
		return time.FixedZone("JST", 9*60*60)
	}
	return loc
}

// Deps are the collaborators of the engine. Cache and Photos may be nil.
type Deps struct {
	Repos   *repository.Repositories
	Cache   *cache.RedisCache
	Photos  BlobStore
	Log     *slog.Logger
	Clock   Clock
	Rand    RandSource
	Options Options
}

// Engine groups the components. They share one set of dependencies.
type Engine struct {
	Blocks     *BlockFilter
	Matches    *MatchResolver
	Messaging  *MessagingGate
	Visibility *VisibilityGate
	Proximity  *ProximityIndex
	Daily      *DailyScorer
	Profiles   *ProfileDirectory
}

// core is embedded by every component.
type core struct {
	repos  *repository.Repositories
	cache  *cache.RedisCache
	photos BlobStore
	log    *slog.Logger
	clock  Clock
	rand   RandSource
	opts   Options
}

// New wires all components.
func New(d Deps) *Engine {
	c := &core{
		repos:  d.Repos,
		cache:  d.Cache,
		photos: d.Photos,
		log:    d.Log,
		clock:  d.Clock,
		rand:   d.Rand,
		opts:   d.Options,
	}
	if c.log == nil {
		c.log = logger.L()
	}
	if c.clock == nil {
		c.clock = SystemClock()
	}
	if c.rand == nil {
		c.rand = DefaultRand()
	}
	c.opts = c.opts.withDefaults()

	blocks := &BlockFilter{core: c}
	matches := &MatchResolver{core: c, blocks: blocks}
	visibility := &VisibilityGate{core: c, blocks: blocks, matches: matches}
	return &Engine{
		Blocks:     blocks,
		Matches:    matches,
		Messaging:  &MessagingGate{core: c, blocks: blocks, matches: matches},
		Visibility: visibility,
		Proximity:  &ProximityIndex{core: c, blocks: blocks},
		Daily:      &DailyScorer{core: c, blocks: blocks},
		Profiles:   &ProfileDirectory{core: c, blocks: blocks, matches: matches, visibility: visibility},
	}
}

// requireUser fails with NotFound when id has no user row.
func (c *core) requireUser(ctx context.Context, id uint64, msg string) error {
	ok, err := c.repos.Users.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return svcErr.NotFound(msg)
	}
	return nil
}

// invalidateLikeCounts drops cached received-like counters. Cache errors are logged only.
func (c *core) invalidateLikeCounts(ctx context.Context, userIDs ...uint64) {
	if c.cache == nil {
		return
	}
	if err := c.cache.InvalidateLikeCount(ctx, userIDs...); err != nil {
		c.log.Warn("like count invalidation failed", "users", userIDs, "err", err)
	}
}

// pageError classifies a bad page token as caller input.
func pageError(err error) error {
	if errors.Is(err, pagination.ErrInvalidToken) {
		return svcErr.InvalidInput("invalid pagination token")
	}
	return err
}
