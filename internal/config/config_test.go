package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timesync/internal/domain"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TIMESYNC_MYSQL_DSN", "user:pass@tcp(localhost:3306)/timesync?parseTime=true")
	t.Setenv("TIMESYNC_TOGGL_TOKEN", "toggl-secret")
	t.Setenv("TIMESYNC_TEMPO_TOKEN", "tempo-secret")
	t.Setenv("TIMESYNC_CACHE_TTL", "5m")
	t.Setenv("TIMESYNC_SYNC_POLICY", "all_or_nothing")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "toggl-secret", cfg.Toggl.Token)
	assert.Equal(t, "tempo-secret", cfg.Tempo.Token)
	assert.Equal(t, "https://api.track.toggl.com", cfg.Toggl.BaseURL, "default base URL applies")
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, domain.AllOrNothing, cfg.Sync.Policy)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoadDefaultsTTLAndPolicy(t *testing.T) {
	t.Setenv("TIMESYNC_MYSQL_DSN", "dsn")
	t.Setenv("TIMESYNC_TOGGL_TOKEN", "tok")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, domain.BestEffort, cfg.Sync.Policy)
}

func TestLoadRequiresDSN(t *testing.T) {
	t.Setenv("TIMESYNC_MYSQL_DSN", "")
	t.Setenv("TIMESYNC_TOGGL_TOKEN", "tok")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRequiresAProviderToken(t *testing.T) {
	t.Setenv("TIMESYNC_MYSQL_DSN", "dsn")
	t.Setenv("TIMESYNC_TOGGL_TOKEN", "")
	t.Setenv("TIMESYNC_TEMPO_TOKEN", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadPolicy(t *testing.T) {
	t.Setenv("TIMESYNC_MYSQL_DSN", "dsn")
	t.Setenv("TIMESYNC_TOGGL_TOKEN", "tok")
	t.Setenv("TIMESYNC_SYNC_POLICY", "sometimes")

	_, err := Load()
	assert.Error(t, err)
}
