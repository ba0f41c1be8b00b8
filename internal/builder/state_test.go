package builder

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/gamekit-labs/ccbuild/internal/platform"
	"github.com/gamekit-labs/ccbuild/internal/steps"
	"github.com/gamekit-labs/ccbuild/internal/toolchain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStateDefaults(t *testing.T) {
	p := newProject(t, `{"project_type": "cpp"}`, map[string]string{
		"proj.linux/.keep": "",
	})

	st, err := NewState(Options{Platform: "linux"}, p, "linux")
	require.NoError(t, err)
	assert.Equal(t, platform.Linux, st.Platform)
	assert.Equal(t, Debug, st.Mode)
	assert.Equal(t, toolchain.CPUCount(), st.Jobs)
	assert.False(t, st.CompileScript)
	assert.Equal(t, filepath.Join(p.Dir, "bin", "debug", "linux"), st.OutputDir)
	assert.Equal(t, NDKUnknown, st.NDK)
}

func TestNewStateSinglePlatformNeedsNoFlag(t *testing.T) {
	p := newProject(t, `{"project_type": "cpp"}`, map[string]string{"proj.linux/.keep": ""})
	st, err := NewState(Options{}, p, "linux")
	require.NoError(t, err)
	assert.Equal(t, platform.Linux, st.Platform)
}

func TestNewStateScriptOutputDirs(t *testing.T) {
	p := newProject(t, `{"project_type": "js"}`, map[string]string{"index.html": "<html></html>"})

	st, err := NewState(Options{Platform: "web"}, p, "linux")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(p.Dir, "simulator", "html5"), st.OutputDir)

	st, err = NewState(Options{Platform: "web", Mode: "release"}, p, "linux")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(p.Dir, "publish", "html5"), st.OutputDir)
	assert.True(t, st.CompileScript, "release compiles scripts by default")

	st, err = NewState(Options{Platform: "web", Mode: "release", CompileScript: boolPtr(false)}, p, "linux")
	require.NoError(t, err)
	assert.False(t, st.CompileScript)
}

func TestNewStateOutputDirFlag(t *testing.T) {
	p := newProject(t, `{"project_type": "cpp"}`, map[string]string{"proj.linux/.keep": ""})
	out := filepath.Join(t.TempDir(), "out")
	st, err := NewState(Options{OutputDir: out, Jobs: 3}, p, "linux")
	require.NoError(t, err)
	assert.Equal(t, out, st.OutputDir)
	assert.Equal(t, 3, st.Jobs)
}

func TestNewStateErrors(t *testing.T) {
	p := newProject(t, `{"project_type": "cpp"}`, map[string]string{
		"proj.linux/.keep":   "",
		"proj.android/.keep": "",
	})

	_, err := NewState(Options{}, p, "linux")
	assert.Equal(t, int(WrongArgs), ExitCode(err), "two platforms need -p")

	_, err = NewState(Options{Platform: "ios"}, p, "linux")
	assert.Equal(t, int(WrongArgs), ExitCode(err))

	_, err = NewState(Options{Mode: "fast"}, p, "linux")
	assert.Equal(t, int(WrongArgs), ExitCode(err))

	empty := newProject(t, `{"project_type": "cpp"}`, nil)
	_, err = NewState(Options{}, empty, "linux")
	assert.Equal(t, int(WrongConfig), ExitCode(err))
	assert.True(t, errors.Is(err, platform.ErrNoPlatforms))
}

func TestNDKSupportFromEngineVersion(t *testing.T) {
	tests := []struct {
		version string
		want    NDKSupport
	}{
		{"", NDKUnknown},
		{"cocos2d-x-3.17.2", NDKSupported},
		{"cocos2d-x-3.15", NDKSupported},
		{"cocos2d-x-3.13.1", NDKUnsupported},
		{"garbage", NDKUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			manifest := `{"project_type": "cpp"}`
			if tt.version != "" {
				manifest = `{"project_type": "cpp", "engine_version": "` + tt.version + `"}`
			}
			p := newProject(t, manifest, map[string]string{"proj.android/.keep": ""})
			st, err := NewState(Options{Platform: "android"}, p, "linux")
			require.NoError(t, err)
			assert.Equal(t, tt.want, st.NDK)
			assert.Equal(t, tt.want == NDKSupported, st.NDK.Supported())
		})
	}
}

func TestStateBuildCfgDir(t *testing.T) {
	p := newProject(t, `{"project_type": "cpp", "win32_cfg": {"build_cfg_path": "cfg/win"}}`, map[string]string{
		"proj.win32/.keep":   "",
		"proj.ios_mac/.keep": "",
		"proj.android/.keep": "",
	})

	st, err := NewState(Options{Platform: "win32"}, p, "windows")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(p.Dir, "cfg", "win"), st.BuildCfgDir())

	st, err = NewState(Options{Platform: "ios"}, p, "darwin")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(p.Dir, "proj.ios_mac", "ios"), st.BuildCfgDir())

	st, err = NewState(Options{Platform: "mac"}, p, "darwin")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(p.Dir, "proj.ios_mac", "mac", "build-cfg.json"), st.BuildCfgPath())

	st, err = NewState(Options{Platform: "android"}, p, "darwin")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(p.Dir, "proj.android"), st.BuildCfgDir())
}

func TestStateStepArgs(t *testing.T) {
	p := newProject(t, `{"project_type": "cpp"}`, map[string]string{
		"proj.android/.keep": "",
		"proj.linux/.keep":   "",
	})
	st, err := NewState(Options{Platform: "android", Mode: "release", BuildType: "none"}, p, "linux")
	require.NoError(t, err)
	args := st.StepArgs()
	assert.Equal(t, p.Dir, args[steps.ArgProjectPath])
	assert.Equal(t, filepath.Join(p.Dir, "proj.android"), args[steps.ArgPlatformProjectPath])
	assert.Equal(t, "release", args[steps.ArgBuildMode])
	assert.Equal(t, "none", args[steps.ArgNDKBuildType])

	st, err = NewState(Options{Platform: "linux"}, p, "linux")
	require.NoError(t, err)
	_, ok := st.StepArgs()[steps.ArgNDKBuildType]
	assert.False(t, ok)
	assert.Equal(t, "cocos", st.ScriptTool())
}
