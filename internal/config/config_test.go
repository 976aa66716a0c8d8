package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"personalens/internal/snapshot"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("CAMOFOX_URL", "")
	t.Setenv("NITTER_INSTANCE", "")
	t.Setenv("METRICS_ADDR", "")

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Account.Username = "karpathy"
	cfg.Fetch.PostCount = 50
	cfg.Parser.StatsLayout = map[int][]string{4: {"replies", "retweets", "likes", "views"}}
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, got)
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	t.Setenv("CAMOFOX_URL", "")
	t.Setenv("NITTER_INSTANCE", "")
	t.Setenv("METRICS_ADDR", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account:\n  username: jane\nfetch:\n  mode: click\n  timeout: 5s\n"), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "jane", cfg.Account.Username)
	require.Equal(t, ModeClick, cfg.Fetch.Mode)
	require.Equal(t, 5*time.Second, cfg.Fetch.Timeout)
	require.Equal(t, 20, cfg.Fetch.PostCount)
	require.Equal(t, "persona-lens", cfg.Fetch.SessionID)
	require.Equal(t, 1.0, cfg.Fetch.RequestsPerSecond)
	require.Equal(t, 3, cfg.Fetch.Burst)
}

func TestResolveEnv(t *testing.T) {
	t.Setenv("CAMOFOX_URL", "http://camofox:9377")
	t.Setenv("NITTER_INSTANCE", "https://nitter.example")
	t.Setenv("METRICS_ADDR", ":9102")

	cfg := Default()
	cfg.ResolveEnv()
	require.Equal(t, "http://camofox:9377", cfg.Fetch.CamofoxURL)
	require.Equal(t, "https://nitter.example", cfg.Fetch.NitterInstance)
	require.Equal(t, ":9102", cfg.Metrics.Addr)

	cfg = Default()
	cfg.Fetch.NitterInstance = "https://pinned.example"
	cfg.ResolveEnv()
	require.Equal(t, "https://pinned.example", cfg.Fetch.NitterInstance)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Fetch.Mode = "scroll"
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Parser.StatsLayout = map[int][]string{2: {"likes"}}
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Fetch.Burst = -1
	require.Error(t, cfg.Validate())
}

func TestConfigStatsLayout(t *testing.T) {
	cfg := Default()
	cfg.Parser.StatsLayout = map[int][]string{4: {"replies", "retweets", "likes", "views"}}
	l, err := cfg.StatsLayout()
	require.NoError(t, err)
	require.Equal(t, []snapshot.Role{snapshot.RoleReplies, snapshot.RoleRetweets, snapshot.RoleLikes, snapshot.RoleViews}, l[4])
	require.Equal(t, []snapshot.Role{snapshot.RoleLikes}, l[1])
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	t.Setenv("CAMOFOX_URL", "")
	t.Setenv("NITTER_INSTANCE", "")
	t.Setenv("METRICS_ADDR", "")
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}
