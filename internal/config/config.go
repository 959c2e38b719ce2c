package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"timesync/internal/domain"
)

// Config holds all runtime configuration. Vendor credentials are lifted out
// of the clients and injected at construction, so adapters stay testable
// without touching process environment.
type Config struct {
	Toggl struct {
		Token   string
		BaseURL string // default: https://api.track.toggl.com
	}
	Tempo struct {
		Token   string
		BaseURL string // default: https://api.tempo.io
	}
	MySQL struct {
		DSN string // e.g., user:pass@tcp(host:3306)/dbname?parseTime=true&multiStatements=true
	}
	HTTP struct {
		Addr string // default: :8080
	}
	Cache struct {
		Dir string // default: ./cache
		TTL time.Duration
	}
	Sync struct {
		Policy domain.BatchPolicy
	}
}

// Load reads configuration from TIMESYNC_-prefixed environment variables
// (e.g. TIMESYNC_TOGGL_TOKEN, TIMESYNC_MYSQL_DSN, TIMESYNC_SYNC_POLICY).
func Load() (Config, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider("TIMESYNC_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "TIMESYNC_")), "_", ".")
	}), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	cfg.Toggl.Token = k.String("toggl.token")
	cfg.Toggl.BaseURL = stringOr(k, "toggl.baseurl", "https://api.track.toggl.com")
	cfg.Tempo.Token = k.String("tempo.token")
	cfg.Tempo.BaseURL = stringOr(k, "tempo.baseurl", "https://api.tempo.io")
	cfg.MySQL.DSN = k.String("mysql.dsn")
	cfg.HTTP.Addr = stringOr(k, "http.addr", ":8080")
	cfg.Cache.Dir = stringOr(k, "cache.dir", "cache")

	cfg.Cache.TTL = 10 * time.Minute
	if ttl := k.String("cache.ttl"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return cfg, fmt.Errorf("TIMESYNC_CACHE_TTL: %w", err)
		}
		cfg.Cache.TTL = d
	}

	policy, err := domain.ParseBatchPolicy(k.String("sync.policy"))
	if err != nil {
		return cfg, fmt.Errorf("TIMESYNC_SYNC_POLICY: %w", err)
	}
	cfg.Sync.Policy = policy

	if cfg.MySQL.DSN == "" {
		return cfg, errors.New("TIMESYNC_MYSQL_DSN is required")
	}
	if cfg.Toggl.Token == "" && cfg.Tempo.Token == "" {
		return cfg, errors.New("at least one provider token is required (TIMESYNC_TOGGL_TOKEN or TIMESYNC_TEMPO_TOKEN)")
	}
	return cfg, nil
}

func stringOr(k *koanf.Koanf, key, fallback string) string {
	if v := k.String(key); v != "" {
		return v
	}
	return fallback
}
