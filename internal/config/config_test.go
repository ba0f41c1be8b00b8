package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestDirHonorsHomeOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CCBUILD_HOME", dir)

	if got := Dir(); got != dir {
		t.Errorf("Dir() = %q, want %q", got, dir)
	}
	if got := FilePath(); got != filepath.Join(dir, "config.yaml") {
		t.Errorf("FilePath() = %q", got)
	}
}

func TestSetThenGet(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	t.Setenv("CCBUILD_HOME", dir)
	Load()

	if err := Set(KeyJobs, "6"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := GetInt(KeyJobs); got != 6 {
		t.Errorf("GetInt(jobs) = %d, want 6", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("config file not written: %v", err)
	}
}

func TestEnvOverride(t *testing.T) {
	viper.Reset()
	t.Setenv("CCBUILD_HOME", t.TempDir())
	t.Setenv("CCBUILD_WEB_TOOLS_DIR", "/opt/closure")
	Load()

	if got := Get(KeyWebToolsDir); got != "/opt/closure" {
		t.Errorf("Get(web.tools_dir) = %q, want /opt/closure", got)
	}
	if got := Get(KeyScriptCompiler); got != "cocos" {
		t.Errorf("default script_compiler = %q, want cocos", got)
	}
}

func TestIsKnown(t *testing.T) {
	if !IsKnown(KeyLogFile) {
		t.Error("log_file should be known")
	}
	if IsKnown("nope") {
		t.Error("unexpected key reported as known")
	}
}
