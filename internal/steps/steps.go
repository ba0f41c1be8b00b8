package steps

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/gamekit-labs/ccbuild/internal/branding"
	"github.com/gamekit-labs/ccbuild/internal/platform"
	"github.com/gamekit-labs/ccbuild/internal/toolchain"
	"github.com/jinzhu/copier"
	"github.com/mattn/go-shellwords"
	"github.com/sirupsen/logrus"
	"go.yaml.in/yaml/v3"
)

// Event names a point in the build where hooks fire.
type Event string

const (
	PreBuild       Event = "pre-build"
	PostBuild      Event = "post-build"
	PreNDKBuild    Event = "pre-ndk-build"
	PostNDKBuild   Event = "post-ndk-build"
	PreCopyAssets  Event = "pre-copy-assets"
	PostCopyAssets Event = "post-copy-assets"
)

// Events lists every known event.
var Events = []Event{PreBuild, PostBuild, PreNDKBuild, PostNDKBuild, PreCopyAssets, PostCopyAssets}

// Argument names passed to hooks.
const (
	ArgProjectPath         = "project-path"
	ArgPlatformProjectPath = "platform-project-path"
	ArgBuildMode           = "build-mode"
	ArgOutputDir           = "output-dir"
	ArgNDKBuildType        = "ndk-build-type"
	ArgAssetsDir           = "assets-dir"
)

// Args are the named values available to a hook.
type Args map[string]string

// With returns a deep copy of a with key set to value. a is not modified.
func (a Args) With(key, value string) (Args, error) {
	out := Args{}
	if err := copier.CopyWithOption(&out, &a, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("copying step args: %w", err)
	}
	out[key] = value
	return out, nil
}

// Hooks is a loaded hooks file. A nil *Hooks fires nothing.
type Hooks struct {
	Path   string
	Dir    string
	Runner toolchain.Runner

	events map[Event][]string
}

// Load reads the hooks file at path. Commands run in dir. A missing file is
// logged and yields nil hooks.
func Load(path, dir string, r toolchain.Runner) (*Hooks, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logrus.Warnf("custom step file %s not found", path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading custom steps: %w", err)
	}
	h, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	h.Path = path
	h.Dir = dir
	h.Runner = r
	logrus.Infof("Found custom step file %s", path)
	return h, nil
}

// Parse decodes hooks file content. Unknown events are rejected.
func Parse(data []byte) (*Hooks, error) {
	raw := map[string][]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing custom steps: %w", err)
	}
	h := &Hooks{events: make(map[Event][]string, len(raw))}
	var unknown []string
	for name, lines := range raw {
		ev := Event(name)
		if !known(ev) {
			unknown = append(unknown, name)
			continue
		}
		h.events[ev] = lines
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown custom step events %v", unknown)
	}
	return h, nil
}

func known(ev Event) bool {
	for _, e := range Events {
		if e == ev {
			return true
		}
	}
	return false
}

// Commands returns the expanded commands registered for ev.
func (h *Hooks) Commands(ev Event, pl platform.Platform, args Args) ([]toolchain.Command, error) {
	if h == nil {
		return nil, nil
	}
	lookup := func(name string) string {
		if name == "platform" {
			return pl.String()
		}
		if v, ok := args[name]; ok {
			return v
		}
		return os.Getenv(name)
	}

	env := map[string]string{
		branding.EnvVar("STEP_EVENT"): string(ev),
		branding.EnvVar("PLATFORM"):   pl.String(),
	}
	for k, v := range args {
		env[branding.EnvVar(k)] = v
	}

	var cmds []toolchain.Command
	for _, line := range h.events[ev] {
		words, err := shellwords.Parse(line)
		if err != nil {
			return nil, fmt.Errorf("%s step %q: %w", ev, line, err)
		}
		if len(words) == 0 {
			continue
		}
		for i, w := range words {
			words[i] = os.Expand(w, lookup)
		}
		name := words[0]
		if !filepath.IsAbs(name) && filepath.Base(name) != name {
			name = filepath.Join(h.Dir, name)
		}
		cmds = append(cmds, toolchain.Command{Name: name, Args: words[1:], Dir: h.Dir, Env: env})
	}
	return cmds, nil
}

// Fire runs the hooks for ev in order and stops at the first failure.
func (h *Hooks) Fire(ctx context.Context, ev Event, pl platform.Platform, args Args) error {
	cmds, err := h.Commands(ev, pl, args)
	if err != nil {
		return err
	}
	for _, c := range cmds {
		logrus.Debugf("custom step %s: %s", ev, c)
		if err := h.Runner.Run(ctx, c); err != nil {
			logrus.Warnf("custom step %s failed: %v", ev, err)
			return fmt.Errorf("custom step %s: %w", ev, err)
		}
	}
	return nil
}
