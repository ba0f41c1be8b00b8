package builder

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gamekit-labs/ccbuild/internal/project"
	"github.com/gamekit-labs/ccbuild/internal/toolchain"
	"github.com/stretchr/testify/require"
)

// fakeRunner records commands. outputs answers Output calls keyed by the
// command line prefix; effect runs for every Run call and may fail it.
type fakeRunner struct {
	mu      sync.Mutex
	cmds    []toolchain.Command
	outputs map[string]string
	effect  func(c toolchain.Command) error
}

func (f *fakeRunner) Run(_ context.Context, c toolchain.Command) error {
	f.mu.Lock()
	f.cmds = append(f.cmds, c)
	effect := f.effect
	f.mu.Unlock()
	if effect != nil {
		return effect(c)
	}
	return nil
}

func (f *fakeRunner) Output(_ context.Context, c toolchain.Command) (string, error) {
	f.mu.Lock()
	f.cmds = append(f.cmds, c)
	f.mu.Unlock()
	line := c.String()
	for prefix, out := range f.outputs {
		if strings.HasPrefix(line, prefix) {
			return out, nil
		}
	}
	return "", &toolchain.ExitError{Command: line, Code: 1}
}

func (f *fakeRunner) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.cmds))
	for _, c := range f.cmds {
		out = append(out, filepath.Base(c.Name))
	}
	return out
}

func (f *fakeRunner) find(name string) (toolchain.Command, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cmds {
		if filepath.Base(c.Name) == name {
			return c, true
		}
	}
	return toolchain.Command{}, false
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

// newProject writes a project tree with the given manifest and loads it.
func newProject(t *testing.T, manifest string, files map[string]string) *project.Project {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, files)
	writeFiles(t, root, map[string]string{project.FileName: manifest})
	p, err := project.Load(root)
	require.NoError(t, err)
	return p
}

func newTestBuilder(r toolchain.Runner) *Builder {
	return &Builder{
		Runner:    r,
		VS:        &toolchain.VisualStudio{Registry: fakeRegistry{}, Exists: func(string) bool { return false }},
		Prompt:    strings.NewReader(""),
		PromptOut: &strings.Builder{},
		HasTool:   func(string) bool { return false },
	}
}

// fakeRegistry maps internal VS versions to install dirs.
type fakeRegistry struct {
	devenv  map[string]string
	msbuild map[string]string
}

func (r fakeRegistry) Versions() []string {
	var out []string
	for v := range r.devenv {
		out = append(out, v)
	}
	for v := range r.msbuild {
		if _, ok := r.devenv[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}

func (r fakeRegistry) DevenvDir(v string) (string, bool) {
	d, ok := r.devenv[v]
	return d, ok
}

func (r fakeRegistry) MSBuildDir(v string) (string, bool) {
	d, ok := r.msbuild[v]
	return d, ok
}

func boolPtr(v bool) *bool { return &v }
