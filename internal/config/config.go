package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// sections lists the top-level config keys an env var may target.
// LOG_LEVEL → log.level, DB_REPLICA_DSNS → db.replica_dsns, ...
var sections = []string{"app", "log", "db", "redis", "grpc", "http", "auth", "engine", "photos"}

type Config struct {
	App struct {
		ENV string `koanf:"env"`
	} `koanf:"app"`

	Log struct {
		Level     string `koanf:"level"`
		Format    string `koanf:"format"`
		Component string `koanf:"component"`
		Source    bool   `koanf:"source"`
	} `koanf:"log"`

	DB struct {
		Driver      string   `koanf:"driver"` // mysql | postgres | sqlite
		DSN         string   `koanf:"dsn"`
		Host        string   `koanf:"host"`
		Port        string   `koanf:"port"`
		User        string   `koanf:"user"`
		Password    string   `koanf:"password"`
		Name        string   `koanf:"name"`
		ReplicaDSNs []string `koanf:"replica_dsns"`
		Debug       bool     `koanf:"debug"`
	} `koanf:"db"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	GRPC struct {
		Host string `koanf:"host"`
		Port string `koanf:"port"`
	} `koanf:"grpc"`

	HTTP struct {
		Host            string        `koanf:"host"`
		Port            string        `koanf:"port"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	} `koanf:"http"`

	Auth struct {
		Secret   string        `koanf:"secret"`
		Issuer   string        `koanf:"issuer"`
		TokenTTL time.Duration `koanf:"token_ttl"`
	} `koanf:"auth"`

	Engine struct {
		Timezone         string  `koanf:"timezone"`
		NearbyLimit      int     `koanf:"nearby_limit"`
		MaxNearbyKm      float64 `koanf:"max_nearby_km"`
		RecommendWindow  int     `koanf:"recommend_window_days"`
		DiscoverPageSize int     `koanf:"discover_page_size"`
		PageSize         int     `koanf:"page_size"`
	} `koanf:"engine"`

	Photos struct {
		BucketURL     string `koanf:"bucket_url"`
		PublicBaseURL string `koanf:"public_base_url"`
		MaxBytes      int64  `koanf:"max_bytes"`
	} `koanf:"photos"`
}

// New loads configuration from defaults, an optional .env file, an optional
// config.yaml (path overridable with CONFIG_FILE) and the environment, in
// that order of precedence.
func New() *Config {
	cfg, err := Load(getEnvDefault("CONFIG_FILE", "config.yaml"))
	if err != nil {
		// use Load directly to surface the error
		return Defaults()
	}
	return cfg
}

// Load is New with an explicit yaml path and error reporting.
func Load(path string) (*Config, error) {
	// .env is a developer convenience; missing file is fine
	_ = godotenv.Load()

	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, errors.Wrapf(err, "read config file %s", path)
			}
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{TransformFunc: envKey}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables")
	}

	cfg := Defaults()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	if cfg.DB.DSN == "" {
		cfg.DB.DSN = buildDSN(cfg)
	}

	return cfg, nil
}

// Defaults returns the compiled-in configuration.
func Defaults() *Config {
	cfg := &Config{}

	cfg.App.ENV = "development"

	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Log.Component = "match_server"

	cfg.DB.Driver = "mysql"
	cfg.DB.Host = "localhost"
	cfg.DB.Port = "3306"
	cfg.DB.User = "root"
	cfg.DB.Password = "root"
	cfg.DB.Name = "muzz"

	cfg.Redis.Addr = "localhost:6379"

	cfg.GRPC.Host = "127.0.0.1"
	cfg.GRPC.Port = "50051"

	cfg.HTTP.Host = "0.0.0.0"
	cfg.HTTP.Port = "8080"
	cfg.HTTP.ShutdownTimeout = 10 * time.Second

	cfg.Auth.Secret = "dev-secret-change-me"
	cfg.Auth.Issuer = "muzz-match"
	cfg.Auth.TokenTTL = 24 * time.Hour

	cfg.Engine.Timezone = "Asia/Tokyo"
	cfg.Engine.NearbyLimit = 50
	cfg.Engine.MaxNearbyKm = 500
	cfg.Engine.RecommendWindow = 30
	cfg.Engine.DiscoverPageSize = 20
	cfg.Engine.PageSize = 20

	cfg.Photos.BucketURL = "file:///tmp/muzz-photos?create_dir=true"
	cfg.Photos.PublicBaseURL = "http://localhost:8080/photos"
	cfg.Photos.MaxBytes = 5 << 20

	return cfg
}

func buildDSN(cfg *Config) string {
	switch cfg.DB.Driver {
	case "postgres":
		return "host=" + cfg.DB.Host + " user=" + cfg.DB.User + " password=" + cfg.DB.Password +
			" dbname=" + cfg.DB.Name + " port=" + cfg.DB.Port + " sslmode=disable TimeZone=UTC"
	case "sqlite":
		return cfg.DB.Name + ".db"
	default:
		return cfg.DB.User + ":" + cfg.DB.Password + "@tcp(" + cfg.DB.Host + ":" + cfg.DB.Port + ")/" +
			cfg.DB.Name + "?parseTime=true&charset=utf8mb4&loc=UTC"
	}
}

// envKey maps SECTION_REST to section.rest and drops everything that does not
// belong to a known section. Comma separated values become lists.
func envKey(k, v string) (string, any) {
	key := strings.ToLower(k)
	section, rest, ok := strings.Cut(key, "_")
	if !ok || rest == "" || !isSection(section) {
		return "", nil
	}
	if strings.Contains(v, ",") {
		return section + "." + rest, strings.Split(v, ",")
	}
	return section + "." + rest, v
}

func isSection(s string) bool {
	for _, sec := range sections {
		if sec == s {
			return true
		}
	}
	return false
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}
