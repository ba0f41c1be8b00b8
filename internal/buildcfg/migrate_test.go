package buildcfg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCfg(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func fixedClock(t *testing.T) time.Time {
	t.Helper()
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	prev := now
	now = func() time.Time { return ts }
	t.Cleanup(func() { now = prev })
	return ts
}

func TestMigrateWithoutLegacyKeysIsByteIdentical(t *testing.T) {
	dir := t.TempDir()
	original := `{"copy_resources": [{"from": "res", "to": ""}],   "custom": 1}`
	path := writeCfg(t, dir, original)

	res, err := Migrate(path, "win32")
	require.NoError(t, err)
	assert.False(t, res.Migrated)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no backup should be written")
}

func TestMigrateConvertsLegacyKeys(t *testing.T) {
	ts := fixedClock(t)
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "res"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "fonts"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{}"), 0644))

	original := `{
  "copy_to_assets": ["res/", "fonts"],
  "must_copy_to_assets": ["config.json"],
  "key_store": "release.keystore",
  "ndk_module_path": ["cocos"]
}`
	path := writeCfg(t, dir, original)

	res, err := Migrate(path, "android")
	require.NoError(t, err)
	require.True(t, res.Migrated)
	assert.Equal(t, []string{"copy_to_assets", "must_copy_to_assets"}, res.Keys)
	assert.Equal(t, filepath.Join(dir, BackupName(ts)), res.BackupPath)

	backup, err := os.ReadFile(res.BackupPath)
	require.NoError(t, err)
	assert.Equal(t, original, string(backup))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Has("copy_to_assets"))
	assert.False(t, cfg.Has("must_copy_to_assets"))

	copyRules, err := cfg.RulesFor(KeyCopy)
	require.NoError(t, err)
	assert.Equal(t, []CopyRule{{From: "res", To: ""}, {From: "fonts", To: "fonts"}}, copyRules)

	mustRules, err := cfg.RulesFor(KeyMustCopy)
	require.NoError(t, err)
	assert.Equal(t, []CopyRule{{From: "config.json", To: ""}}, mustRules)

	store, ok := cfg.String("key_store")
	assert.True(t, ok)
	assert.Equal(t, "release.keystore", store)

	migrated, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(migrated), "{\n    \"copy_resources\""), "keys sorted, four-space indent:\n%s", migrated)

	info, err := os.Stat(path)
	require.NoError(t, err)
	if info.Mode().Perm()&0044 == 0 {
		t.Errorf("migrated file should be world readable, got %o", info.Mode().Perm())
	}
}

func TestMigrateTwiceIsIdempotent(t *testing.T) {
	fixedClock(t)
	dir := t.TempDir()
	path := writeCfg(t, dir, `{"copy_files": ["res/"], "must_copy_files": []}`)

	first, err := Migrate(path, "win32")
	require.NoError(t, err)
	require.True(t, first.Migrated)

	after, err := os.ReadFile(path)
	require.NoError(t, err)

	second, err := Migrate(path, "win32")
	require.NoError(t, err)
	assert.False(t, second.Migrated)

	again, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(after), string(again))
}

func TestMigrateMissingFileIsNoop(t *testing.T) {
	res, err := Migrate(filepath.Join(t.TempDir(), FileName), "android")
	require.NoError(t, err)
	assert.False(t, res.Migrated)
}

func TestMigrateIgnoresPlatformsWithoutLegacyKeys(t *testing.T) {
	dir := t.TempDir()
	original := `{"copy_files": ["res/"]}`
	path := writeCfg(t, dir, original)

	res, err := Migrate(path, "linux")
	require.NoError(t, err)
	assert.False(t, res.Migrated)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, string(data))
}

func TestMigrateRejectsMalformedJSON(t *testing.T) {
	path := writeCfg(t, t.TempDir(), `{"copy_files": [`)
	_, err := Migrate(path, "win32")
	assert.Error(t, err)
}

func TestLegacyKeys(t *testing.T) {
	assert.Equal(t, []string{"copy_files", "must_copy_files"}, LegacyKeys("win32"))
	assert.Empty(t, LegacyKeys("ios"))
}
