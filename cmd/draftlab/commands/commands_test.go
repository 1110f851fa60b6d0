package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ramonehamilton/draftlab/internal/config"
)

var storeEnv = []string{
	"DRAFTLAB_STORE_DRIVER", "DRAFTLAB_DB_PATH", "DATABASE_URL",
	"SUPABASE_URL", "VITE_SUPABASE_URL", "SUPABASE_KEY", "VITE_SUPABASE_KEY",
	"DRAFTLAB_LOG_LEVEL", "DRAFTLAB_LOG_MODE", "DRAFTLAB_MIN_LIFT", "DRAFTLAB_WORKERS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range storeEnv {
		if value, ok := os.LookupEnv(key); ok {
			require.NoError(t, os.Unsetenv(key))
			t.Cleanup(func() { _ = os.Setenv(key, value) })
		}
	}
}

func parseOverrides(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addOverrideFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestApplyFlags(t *testing.T) {
	cfg := config.DefaultConfig()
	flags := parseOverrides(t,
		"--sets", "blb, dsk",
		"--formats", "PremierDraft",
		"--colors", "wu,ub",
		"--min-lift", "1.5",
		"--workers", "8",
		"--date", "2024-08-10",
	)

	window, err := applyFlags(flags, cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"BLB", "DSK"}, cfg.Targets.Sets)
	assert.Equal(t, []string{"PremierDraft"}, cfg.Targets.Formats)
	assert.Equal(t, []string{"WU", "UB"}, cfg.Targets.Colors)
	assert.Equal(t, 1.5, cfg.Synergy.MinLift)
	assert.Equal(t, 8, cfg.Skeleton.Workers)
	assert.True(t, window.Start.Equal(time.Date(2024, 8, 10, 0, 0, 0, 0, time.UTC)))
	assert.True(t, window.End.Equal(time.Date(2024, 8, 11, 0, 0, 0, 0, time.UTC)))
}

func TestApplyFlags_Unset(t *testing.T) {
	cfg := config.DefaultConfig()
	window, err := applyFlags(parseOverrides(t), cfg)
	require.NoError(t, err)

	assert.Equal(t, config.DefaultConfig(), cfg)
	assert.True(t, window.Start.IsZero())
}

func TestApplyFlags_InvalidDate(t *testing.T) {
	_, err := applyFlags(parseOverrides(t, "--date", "10/08/2024"), config.DefaultConfig())
	assert.Error(t, err)
}

func TestOpenStore_SQLite(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Store.Path = filepath.Join(t.TempDir(), "draftlab.db")

	store, err := openStore(cfg, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	sets, err := store.ListSets(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, sets)
}

func TestOpenStore_PostgREST(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Store.Driver = config.DriverPostgREST
	cfg.Store.URL = "http://localhost:54321"
	cfg.Store.APIKey = "service-key"

	store, err := openStore(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Store.Driver = "mysql"

	_, err := openStore(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestSetsCommands(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	configFile := filepath.Join(dir, "draftlab.toml")
	content := fmt.Sprintf("[app]\nlog_level = \"error\"\n\n[store]\ndriver = \"sqlite\"\npath = %q\nauto_migrate = true\n",
		filepath.ToSlash(filepath.Join(dir, "draftlab.db")))
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	t.Cleanup(func() { rootCmd.SetOut(nil); rootCmd.SetArgs(nil) })

	rootCmd.SetArgs([]string{"--config", configFile, "sets", "add", "blb", "--start", "2024-07-30"})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.Nil(t, current)

	rootCmd.SetArgs([]string{"--config", configFile, "sets", "list"})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	assert.Contains(t, out.String(), "BLB")
	assert.Contains(t, out.String(), "2024-07-30")
	assert.Contains(t, out.String(), "true")
}

func writeSQLiteConfig(t *testing.T, autoMigrate bool) string {
	t.Helper()
	dir := t.TempDir()
	configFile := filepath.Join(dir, "draftlab.toml")
	content := fmt.Sprintf("[app]\nlog_level = \"error\"\n\n[store]\ndriver = \"sqlite\"\npath = %q\nauto_migrate = %t\n",
		filepath.ToSlash(filepath.Join(dir, "data", "draftlab.db")), autoMigrate)
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0o644))
	return configFile
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	t.Cleanup(func() { rootCmd.SetOut(nil); rootCmd.SetArgs(nil) })
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateCommands(t *testing.T) {
	clearEnv(t)
	configFile := writeSQLiteConfig(t, false)

	out, err := runRoot(t, "--config", configFile, "migrate", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 0 (clean)")
	assert.Nil(t, migrator)

	out, err = runRoot(t, "--config", configFile, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 1 (clean)")

	// The migrated schema serves the regular commands without auto-migrate.
	_, err = runRoot(t, "--config", configFile, "sets", "add", "blb")
	require.NoError(t, err)

	_, err = runRoot(t, "--config", configFile, "migrate", "down")
	assert.ErrorContains(t, err, "--yes")

	out, err = runRoot(t, "--config", configFile, "migrate", "down", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 0 (clean)")

	_, err = runRoot(t, "--config", configFile, "sets", "list")
	assert.Error(t, err)
}

func TestMigrateCommands_PostgRESTRejected(t *testing.T) {
	clearEnv(t)
	configFile := filepath.Join(t.TempDir(), "draftlab.toml")
	content := "[app]\nlog_level = \"error\"\n\n[store]\ndriver = \"postgrest\"\nurl = \"http://localhost:54321\"\napi_key = \"service-key\"\n"
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0o644))

	_, err := runRoot(t, "--config", configFile, "migrate", "version")
	assert.ErrorContains(t, err, "no migrations")
	assert.Nil(t, migrator)
}
