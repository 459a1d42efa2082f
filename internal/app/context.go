package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/auth"
	"github.com/oggyb/muzz-match/internal/cache"
	"github.com/oggyb/muzz-match/internal/config"
	"github.com/oggyb/muzz-match/internal/engine"
	"github.com/oggyb/muzz-match/internal/storage"
)

// AppContext holds shared dependencies (config, DB, Redis, logger, photo
// bucket, tokens) and the engine built on top of them.
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Photos     *storage.PhotoStore
	Tokens     *auth.TokenService
	Engine     *engine.Engine
}

// New creates a new AppContext
func New(
	cfg *config.Config,
	db *gorm.DB,
	rdb *cache.RedisCache,
	logger *slog.Logger,
	photos *storage.PhotoStore,
	tokens *auth.TokenService,
	eng *engine.Engine,
) *AppContext {
	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Photos:     photos,
		Tokens:     tokens,
		Engine:     eng,
	}
}
