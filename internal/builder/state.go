package builder

import (
	"path/filepath"

	"github.com/gamekit-labs/ccbuild/internal/buildcfg"
	"github.com/gamekit-labs/ccbuild/internal/platform"
	"github.com/gamekit-labs/ccbuild/internal/project"
	"github.com/gamekit-labs/ccbuild/internal/steps"
	"github.com/gamekit-labs/ccbuild/internal/toolchain"
)

// Output directory layout.
const (
	nativeOutputDir        = "bin"
	scriptDebugOutputDir   = "simulator"
	scriptReleaseOutputDir = "publish"
	webFolderName          = "html5"
)

// NDKSupport tells whether the android gradle project drives ndk-build
// itself.
type NDKSupport int

const (
	NDKUnknown NDKSupport = iota
	NDKSupported
	NDKUnsupported
)

func (n NDKSupport) String() string {
	switch n {
	case NDKSupported:
		return "supported"
	case NDKUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Supported reports whether gradle builds native code. Unknown counts as no.
func (n NDKSupport) Supported() bool { return n == NDKSupported }

// State is the resolved, read-only description of one build.
type State struct {
	Options  Options
	Project  *project.Project
	Platform platform.Platform
	Target   *platform.Target

	Mode          string
	Jobs          int
	OutputDir     string
	CompileScript bool
	NDK           NDKSupport
	GOOS          string
}

// NewState selects the platform and resolves every default of opts.
func NewState(opts Options, proj *project.Project, goos string) (*State, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.Normalize()

	available, targets, err := proj.Available(goos, opts.ProjDir)
	if err != nil {
		return nil, wrap("reading platform config", err)
	}
	pl, err := platform.Select(available, opts.Platform)
	if err != nil {
		return nil, wrap("selecting platform", err)
	}

	st := &State{
		Options:  opts,
		Project:  proj,
		Platform: pl,
		Target:   targets[pl],
		Mode:     opts.Mode,
		Jobs:     opts.Jobs,
		GOOS:     goos,
	}
	if st.Mode == "" {
		st.Mode = Debug
	}
	if st.Jobs == 0 {
		st.Jobs = toolchain.CPUCount()
	}
	if opts.CompileScript != nil {
		st.CompileScript = *opts.CompileScript
	} else {
		st.CompileScript = st.Mode == Release
	}

	if opts.OutputDir != "" {
		out, err := filepath.Abs(toolchain.ExpandPath(opts.OutputDir))
		if err != nil {
			return nil, wrap("resolving output dir", err)
		}
		st.OutputDir = out
	} else {
		st.OutputDir = st.defaultOutputDir()
	}

	if pl == platform.Android {
		st.NDK = ndkSupport(proj)
	}
	return st, nil
}

func ndkSupport(proj *project.Project) NDKSupport {
	ok, known := proj.EngineAtLeast(3, 15)
	switch {
	case !known:
		return NDKUnknown
	case ok:
		return NDKSupported
	default:
		return NDKUnsupported
	}
}

func (s *State) defaultOutputDir() string {
	name := s.Platform.String()
	if !s.Project.IsScript() {
		return filepath.Join(s.Project.Dir, nativeOutputDir, s.Mode, name)
	}
	if s.Project.Language == project.JS && s.Platform == platform.Web {
		name = webFolderName
	}
	if s.Debug() {
		return filepath.Join(s.Project.Dir, scriptDebugOutputDir, name)
	}
	return filepath.Join(s.Project.Dir, scriptReleaseOutputDir, name)
}

// Debug reports whether this is a debug build.
func (s *State) Debug() bool { return s.Mode == Debug }

// ModeTitle returns "Debug" or "Release".
func (s *State) ModeTitle() string {
	if s.Debug() {
		return "Debug"
	}
	return "Release"
}

// BuildCfgDir returns the directory holding the platform's build-cfg.json.
func (s *State) BuildCfgDir() string {
	switch s.Platform {
	case platform.Win32:
		if p := s.Target.Windows.BuildCfgPath; p != "" {
			return filepath.Join(s.Project.Dir, p)
		}
	case platform.IOS:
		return filepath.Join(s.Target.Dir, "ios")
	case platform.Mac:
		return filepath.Join(s.Target.Dir, "mac")
	}
	return s.Target.Dir
}

// BuildCfgPath returns the platform's build-cfg.json path.
func (s *State) BuildCfgPath() string {
	return filepath.Join(s.BuildCfgDir(), buildcfg.FileName)
}

// StepArgs returns the arguments passed to custom step hooks.
func (s *State) StepArgs() steps.Args {
	args := steps.Args{
		steps.ArgProjectPath:         s.Project.Dir,
		steps.ArgPlatformProjectPath: s.Target.Dir,
		steps.ArgBuildMode:           s.Mode,
		steps.ArgOutputDir:           s.OutputDir,
	}
	if s.Platform == platform.Android {
		args[steps.ArgNDKBuildType] = s.NDKBuildType()
	}
	return args
}

// ScriptTool returns the engine console used to compile scripts.
func (s *State) ScriptTool() string {
	if s.Options.ScriptCompiler != "" {
		return s.Options.ScriptCompiler
	}
	return "cocos"
}

// NDKBuildType returns the android build type, defaulting to ndk-build.
func (s *State) NDKBuildType() string {
	if s.Options.BuildType == "" {
		return BuildTypeNDK
	}
	return s.Options.BuildType
}
