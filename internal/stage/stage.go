package stage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gamekit-labs/ccbuild/internal/buildcfg"
	cp "github.com/otiai10/copy"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Report summarizes a staging run.
type Report struct {
	Rules int
	Files int
}

func (r Report) String() string {
	return printer.Sprintf("staged %d files from %d rules", r.Files, r.Rules)
}

// Resources selects the rules of cfg for the no-res mode and applies them
// into dst, relative to the config directory.
func Resources(cfg *buildcfg.Config, dst string, noRes bool) (Report, error) {
	rules, err := cfg.Rules(noRes)
	if err != nil {
		return Report{}, fmt.Errorf("reading copy rules from %s: %w", cfg.Path, err)
	}
	return Apply(rules, cfg.Dir, dst)
}

// Apply copies every rule from cfgDir into dst. Running it again with the
// same inputs produces the same tree.
func Apply(rules []buildcfg.CopyRule, cfgDir, dst string) (Report, error) {
	rep := Report{}
	for _, r := range rules {
		n, err := ApplyRule(r, cfgDir, dst)
		if err != nil {
			return rep, err
		}
		rep.Rules++
		rep.Files += n
	}
	logrus.Debugf("%s into %s", rep, dst)
	return rep, nil
}

// ApplyRule copies one rule and returns the number of files copied.
// A file source lands in dst/<to>; a directory source is merged into
// dst/<to>, filtered by the rule's include or exclude patterns.
func ApplyRule(r buildcfg.CopyRule, cfgDir, dst string) (int, error) {
	src := filepath.Join(cfgDir, filepath.FromSlash(r.From))
	to := filepath.Join(dst, filepath.FromSlash(r.To))

	info, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("copy source %s: %w", src, err)
	}

	if !info.IsDir() {
		if err := os.MkdirAll(to, 0755); err != nil {
			return 0, fmt.Errorf("creating %s: %w", to, err)
		}
		if err := CopyFile(src, filepath.Join(to, filepath.Base(src))); err != nil {
			return 0, err
		}
		return 1, nil
	}

	filter, err := newFilter(r.Include, r.Exclude)
	if err != nil {
		return 0, fmt.Errorf("rule %s: %w", r.From, err)
	}

	count := 0
	opts := cp.Options{
		OnSymlink: func(string) cp.SymlinkAction { return cp.Deep },
		Skip: func(fi os.FileInfo, path, _ string) (bool, error) {
			if fi.IsDir() {
				return false, nil
			}
			rel, err := filepath.Rel(src, path)
			if err != nil {
				return true, err
			}
			if !filter.keep(filepath.ToSlash(rel)) {
				return true, nil
			}
			count++
			return false, nil
		},
	}
	if err := cp.Copy(src, to, opts); err != nil {
		return count, fmt.Errorf("copying %s to %s: %w", src, to, err)
	}
	return count, nil
}

// filter implements include/exclude wildcard rules. Patterns are matched
// from the start of the slash-separated path; "*" matches any run of
// characters. Include takes precedence over exclude.
type filter struct {
	include []*regexp.Regexp
	exclude []*regexp.Regexp
}

func newFilter(include, exclude []string) (*filter, error) {
	var f filter
	var err error
	if f.include, err = compileRules(include); err != nil {
		return nil, err
	}
	if f.exclude, err = compileRules(exclude); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *filter) keep(rel string) bool {
	if len(f.include) > 0 {
		return matchAny(f.include, rel)
	}
	if len(f.exclude) > 0 {
		return !matchAny(f.exclude, rel)
	}
	return true
}

func compileRules(rules []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(rules))
	for _, rule := range rules {
		expr := strings.ReplaceAll(rule, ".", `\.`)
		expr = strings.ReplaceAll(expr, "*", ".*")
		re, err := regexp.Compile("^" + expr)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", rule, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
