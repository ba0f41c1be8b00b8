package buildcfg

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CopyRule describes one resource copy: From is relative to the build-config
// directory, To is relative to the destination (empty means the destination
// root). Include and Exclude hold simple wildcard patterns matched against
// slash-separated paths below From.
type CopyRule struct {
	From    string   `json:"from"`
	To      string   `json:"to"`
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

// ConvertEntry expands a bare path entry into a CopyRule.
//
// "res/" merges the contents of res into the destination root. A path naming
// an existing file is copied into the destination root. Anything else is a
// directory copied under its own basename.
func ConvertEntry(cfgDir, entry string) CopyRule {
	if hasDirSuffix(entry) {
		return CopyRule{From: entry[:len(entry)-1], To: ""}
	}

	full := filepath.Join(cfgDir, filepath.FromSlash(entry))
	if info, err := os.Stat(full); err == nil && info.Mode().IsRegular() {
		return CopyRule{From: entry, To: ""}
	}
	return CopyRule{From: entry, To: filepath.Base(filepath.FromSlash(entry))}
}

func hasDirSuffix(entry string) bool {
	return strings.HasSuffix(entry, "/") || strings.HasSuffix(entry, `\`)
}

// decodeRules turns a raw JSON list into rules, expanding string entries
// relative to cfgDir.
func decodeRules(key string, v any, cfgDir string) ([]CopyRule, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected a list, got %T", key, v)
	}

	rules := make([]CopyRule, 0, len(items))
	for i, item := range items {
		switch val := item.(type) {
		case string:
			rules = append(rules, ConvertEntry(cfgDir, val))
		case map[string]any:
			data, err := json.Marshal(val)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
			}
			var r CopyRule
			if err := json.Unmarshal(data, &r); err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
			}
			if r.From == "" {
				return nil, fmt.Errorf("%s[%d]: missing \"from\"", key, i)
			}
			rules = append(rules, r)
		default:
			return nil, fmt.Errorf("%s[%d]: unsupported entry type %T", key, i, item)
		}
	}
	return rules, nil
}

// encodeRule converts a rule into the generic form stored in the file.
func encodeRule(r CopyRule) map[string]any {
	m := map[string]any{"from": r.From, "to": r.To}
	if len(r.Include) > 0 {
		m["include"] = toAnySlice(r.Include)
	}
	if len(r.Exclude) > 0 {
		m["exclude"] = toAnySlice(r.Exclude)
	}
	return m
}

func toAnySlice(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

// DecodeRules converts a raw rule list (as found in project platform blocks)
// into CopyRules relative to dir.
func DecodeRules(key string, v any, dir string) ([]CopyRule, error) {
	return decodeRules(key, v, dir)
}
