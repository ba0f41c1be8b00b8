package stage

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/gamekit-labs/ccbuild/internal/buildcfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// listTree returns every file below root as slash-separated relative paths.
func listTree(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(root, path)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(files)
	return files
}

func TestLegacyDirectoryMergesIntoDestination(t *testing.T) {
	proj := t.TempDir()
	writeFile(t, filepath.Join(proj, "res", "hero.png"), "png")
	writeFile(t, filepath.Join(proj, "res", "fonts", "arial.ttf"), "ttf")
	writeFile(t, filepath.Join(proj, buildcfg.FileName), `{"copy_files": ["res/"]}`)

	cfgPath := filepath.Join(proj, buildcfg.FileName)
	_, err := buildcfg.Migrate(cfgPath, "win32")
	require.NoError(t, err)
	cfg, err := buildcfg.Load(cfgPath)
	require.NoError(t, err)

	dst := t.TempDir()
	rep, err := Resources(cfg, dst, false)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Files)

	assert.Equal(t, []string{"fonts/arial.ttf", "hero.png"}, listTree(t, dst))
	assert.NoDirExists(t, filepath.Join(dst, "res"))
}

func TestNoResStagesOnlyMandatoryRules(t *testing.T) {
	proj := t.TempDir()
	writeFile(t, filepath.Join(proj, "data.bin"), "bin")
	writeFile(t, filepath.Join(proj, "extra", "level1.json"), "{}")
	writeFile(t, filepath.Join(proj, buildcfg.FileName), `{
  "must_copy_resources": ["data.bin"],
  "copy_resources": ["extra/"]
}`)
	cfg, err := buildcfg.Load(filepath.Join(proj, buildcfg.FileName))
	require.NoError(t, err)

	noRes := t.TempDir()
	_, err = Resources(cfg, noRes, true)
	require.NoError(t, err)

	full := t.TempDir()
	_, err = Resources(cfg, full, false)
	require.NoError(t, err)

	minimal := listTree(t, noRes)
	everything := listTree(t, full)
	assert.Equal(t, []string{"data.bin"}, minimal)
	assert.Equal(t, []string{"data.bin", "level1.json"}, everything)
	assert.Subset(t, everything, minimal)
	assert.Less(t, len(minimal), len(everything))
}

func TestApplyIsIdempotent(t *testing.T) {
	proj := t.TempDir()
	writeFile(t, filepath.Join(proj, "res", "a.txt"), "a")
	writeFile(t, filepath.Join(proj, "scripts", "main.lua"), "print(1)")
	rules := []buildcfg.CopyRule{
		{From: "res", To: ""},
		{From: "scripts", To: "src"},
	}

	dst := t.TempDir()
	_, err := Apply(rules, proj, dst)
	require.NoError(t, err)
	first := listTree(t, dst)

	_, err = Apply(rules, proj, dst)
	require.NoError(t, err)
	assert.Equal(t, first, listTree(t, dst))
	assert.Equal(t, []string{"a.txt", "src/main.lua"}, first)
}

func TestApplyFileRuleCopiesIntoDestination(t *testing.T) {
	proj := t.TempDir()
	writeFile(t, filepath.Join(proj, "config", "game.json"), `{"level": 1}`)

	dst := t.TempDir()
	n, err := ApplyRule(buildcfg.CopyRule{From: "config/game.json", To: "cfg"}, proj, dst)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(filepath.Join(dst, "cfg", "game.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"level": 1}`, string(data))
}

func TestApplyRuleFilters(t *testing.T) {
	proj := t.TempDir()
	writeFile(t, filepath.Join(proj, "res", "ui", "button.png"), "png")
	writeFile(t, filepath.Join(proj, "res", "ui", "button.psd"), "psd")
	writeFile(t, filepath.Join(proj, "res", "sound.mp3"), "mp3")

	tests := []struct {
		name string
		rule buildcfg.CopyRule
		want []string
	}{
		{
			name: "include",
			rule: buildcfg.CopyRule{From: "res", Include: []string{"*.png", "sound.mp3"}},
			want: []string{"sound.mp3", "ui/button.png"},
		},
		{
			name: "exclude",
			rule: buildcfg.CopyRule{From: "res", Exclude: []string{"*.psd"}},
			want: []string{"sound.mp3", "ui/button.png"},
		},
		{
			name: "prefix anchored",
			rule: buildcfg.CopyRule{From: "res", Include: []string{"ui/"}},
			want: []string{"ui/button.png", "ui/button.psd"},
		},
		{
			name: "include wins over exclude",
			rule: buildcfg.CopyRule{From: "res", Include: []string{"*.psd"}, Exclude: []string{"*.psd"}},
			want: []string{"ui/button.psd"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := t.TempDir()
			n, err := ApplyRule(tt.rule, proj, dst)
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), n)
			assert.Equal(t, tt.want, listTree(t, dst))
		})
	}
}

func TestApplyMissingSource(t *testing.T) {
	_, err := ApplyRule(buildcfg.CopyRule{From: "nope"}, t.TempDir(), t.TempDir())
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestReportString(t *testing.T) {
	assert.Equal(t, "staged 1,204 files from 3 rules", Report{Rules: 3, Files: 1204}.String())
}
