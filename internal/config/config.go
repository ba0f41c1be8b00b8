package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gamekit-labs/ccbuild/internal/branding"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Known configuration keys. Environment overrides use the branding prefix,
// e.g. CCBUILD_JOBS or CCBUILD_WEB_TOOLS_DIR.
const (
	KeyJobs            = "jobs"
	KeyVSVersion       = "vs"
	KeyAndroidPlatform = "android.platform"
	KeyScriptCompiler  = "script_compiler"
	KeyWebToolsDir     = "web.tools_dir"
	KeyLogFile         = "log_file"
	KeyVerbose         = "verbose"
)

// Keys lists every key understood by `config get`/`config set`.
var Keys = []string{
	KeyJobs,
	KeyVSVersion,
	KeyAndroidPlatform,
	KeyScriptCompiler,
	KeyWebToolsDir,
	KeyLogFile,
	KeyVerbose,
}

// Dir returns the path to the config directory (~/.ccbuild/).
// The CCBUILD_HOME environment variable overrides it.
func Dir() string {
	if dir := os.Getenv(branding.EnvVar("HOME")); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.ccbuild/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
func Load() {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.SetEnvKeyReplacer(envReplacer)
	viper.AutomaticEnv()

	viper.SetDefault(KeyScriptCompiler, branding.EngineTools())
	viper.SetDefault(KeyVerbose, false)

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// GetInt returns an integer config value, zero when unset or malformed.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a boolean config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// IsKnown reports whether key is one of Keys.
func IsKnown(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
