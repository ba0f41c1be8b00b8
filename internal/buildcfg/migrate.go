package buildcfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// legacyKeys maps, per platform name, each legacy key to its canonical key.
var legacyKeys = map[string]map[string]string{
	"android": {
		"copy_to_assets":      KeyCopy,
		"must_copy_to_assets": KeyMustCopy,
	},
	"win32": {
		"copy_files":      KeyCopy,
		"must_copy_files": KeyMustCopy,
	},
}

// now is replaced in tests.
var now = time.Now

// LegacyKeys returns the legacy keys recognized for a platform, sorted.
func LegacyKeys(platformName string) []string {
	var keys []string
	for k := range legacyKeys[platformName] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MigrateResult describes what Migrate did.
type MigrateResult struct {
	Migrated   bool
	BackupPath string
	Keys       []string // legacy keys that were converted
}

// Migrate rewrites legacy copy-rule keys in the build configuration at path
// into canonical keys. The original file is kept under a timestamped backup
// name. A missing file, or one without legacy keys, is left alone.
func Migrate(path, platformName string) (*MigrateResult, error) {
	res := &MigrateResult{}
	aliases := legacyKeys[platformName]
	if len(aliases) == 0 {
		return res, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return res, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading build config %s: %w", path, err)
	}

	cfg, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("parsing build config %s: %w", path, err)
	}
	cfg.Path = path

	for _, legacy := range LegacyKeys(platformName) {
		if !cfg.Has(legacy) {
			continue
		}
		rules, err := cfg.RulesFor(legacy)
		if err != nil {
			return nil, fmt.Errorf("converting %s in %s: %w", legacy, path, err)
		}
		cfg.SetRules(aliases[legacy], rules)
		cfg.Delete(legacy)
		res.Keys = append(res.Keys, legacy)
	}
	if len(res.Keys) == 0 {
		return res, nil
	}

	backup, err := replaceWithBackup(cfg)
	if err != nil {
		return nil, err
	}
	res.Migrated = true
	res.BackupPath = backup
	return res, nil
}

// BackupName returns the backup file name used for a migration at t.
func BackupName(t time.Time) string {
	return fmt.Sprintf("build-cfg-for-v0.1.%s.json", t.Format("20060102150405"))
}

// replaceWithBackup writes the new content to a temp file, moves the original
// aside, then moves the temp file into place. If the final rename fails the
// original is put back.
func replaceWithBackup(cfg *Config) (string, error) {
	data, err := cfg.Marshal()
	if err != nil {
		return "", fmt.Errorf("encoding build config: %w", err)
	}

	dir := filepath.Dir(cfg.Path)
	tmp, err := writeTemp(dir, data)
	if err != nil {
		return "", err
	}

	backup := filepath.Join(dir, BackupName(now()))
	if err := os.Rename(cfg.Path, backup); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("backing up %s: %w", cfg.Path, err)
	}

	if err := os.Rename(tmp, cfg.Path); err != nil {
		if rbErr := os.Rename(backup, cfg.Path); rbErr != nil {
			return "", fmt.Errorf("installing migrated config: %w (rollback failed: %v)", err, rbErr)
		}
		os.Remove(tmp)
		return "", fmt.Errorf("installing migrated config: %w", err)
	}
	return backup, nil
}
