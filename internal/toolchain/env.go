package toolchain

import (
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// EnvVarError reports a required environment variable that is not set.
type EnvVarError struct {
	Name string
}

func (e *EnvVarError) Error() string {
	return fmt.Sprintf("environment variable %s is not set; point it at the matching toolchain and retry", e.Name)
}

// RequireEnv returns the value of an environment variable, with a leading
// "~" expanded, or an *EnvVarError when it is unset or empty.
func RequireEnv(name string) (string, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return "", &EnvVarError{Name: name}
	}
	return ExpandPath(v), nil
}

// ExpandPath expands a leading "~" to the user's home directory. Paths that
// cannot be expanded are returned unchanged.
func ExpandPath(p string) string {
	expanded, err := homedir.Expand(p)
	if err != nil {
		return p
	}
	return expanded
}

// SetEnv sets or replaces an environment variable in the env slice.
func SetEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}

// ParseEnvFile reads KEY=VALUE lines, skipping blanks and # comments, and
// applies them to env.
func ParseEnvFile(env []string, data []byte) []string {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key != "" {
			env = SetEnv(env, key, strings.TrimSpace(value))
		}
	}
	return env
}
