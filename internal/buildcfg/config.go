package buildcfg

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gamekit-labs/ccbuild/internal/platform"
)

// FileName is the build configuration file name.
const FileName = "build-cfg.json"

// Canonical keys.
const (
	KeyCopy      = "copy_resources"
	KeyMustCopy  = "must_copy_resources"
	KeyRemoveRes = "remove_res"
)

// ErrInvalid is returned when a build configuration fails schema validation.
var ErrInvalid = errors.New("invalid build configuration")

// Config is a parsed build-cfg.json. Keys not understood by this package are
// kept so that rewriting the file preserves them.
type Config struct {
	Path string
	Dir  string
	raw  map[string]any
}

// Load reads, validates and parses the build configuration at path.
// A missing file yields an error wrapping fs.ErrNotExist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading build config %s: %w", path, err)
	}

	result, err := Validate(data)
	if err != nil {
		return nil, fmt.Errorf("validating build config %s: %w", path, err)
	}
	if !result.Valid {
		return nil, fmt.Errorf("%s: %w: %s", path, ErrInvalid, result.Summary())
	}

	cfg, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("parsing build config %s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Parse decodes a build configuration. String rule entries are expanded
// relative to dir.
func Parse(data []byte, dir string) (*Config, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return &Config{Dir: dir, raw: raw}, nil
}

// Has reports whether key is present.
func (c *Config) Has(key string) bool {
	_, ok := c.raw[key]
	return ok
}

// String returns a string value for key.
func (c *Config) String(key string) (string, bool) {
	s, ok := c.raw[key].(string)
	return s, ok
}

// Delete removes key.
func (c *Config) Delete(key string) {
	delete(c.raw, key)
}

// Keys returns the top-level keys in sorted order.
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.raw))
	for k := range c.raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RulesFor decodes the rule list stored under key.
func (c *Config) RulesFor(key string) ([]CopyRule, error) {
	return decodeRules(key, c.raw[key], c.Dir)
}

// SetRules stores rules under key in object form.
func (c *Config) SetRules(key string, rules []CopyRule) {
	items := make([]any, len(rules))
	for i, r := range rules {
		items[i] = encodeRule(r)
	}
	c.raw[key] = items
}

// Rules selects the rules to stage: only the mandatory ones when noRes is
// set, otherwise optional rules followed by mandatory ones.
func (c *Config) Rules(noRes bool) ([]CopyRule, error) {
	must, err := c.RulesFor(KeyMustCopy)
	if err != nil {
		return nil, err
	}
	if noRes {
		return must, nil
	}
	opt, err := c.RulesFor(KeyCopy)
	if err != nil {
		return nil, err
	}
	return append(opt, must...), nil
}

// RemoveRes returns the entries removed from the output in no-res mode.
func (c *Config) RemoveRes() []string {
	items, ok := c.raw[KeyRemoveRes].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Marshal renders the configuration with sorted keys and four-space indent.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(c.raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save atomically rewrites the file at c.Path.
func (c *Config) Save() error {
	data, err := c.Marshal()
	if err != nil {
		return fmt.Errorf("encoding build config: %w", err)
	}
	tmp, err := writeTemp(filepath.Dir(c.Path), data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, c.Path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", c.Path, err)
	}
	return nil
}

func writeTemp(dir string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, ".build-cfg-*.json")
	if err != nil {
		return "", fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing %s: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("closing %s: %w", f.Name(), err)
	}
	// CreateTemp uses 0600; the rewritten file must stay readable by the build tools.
	if err := platform.Chmod(f.Name(), 0644); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("setting permissions on %s: %w", f.Name(), err)
	}
	return f.Name(), nil
}
