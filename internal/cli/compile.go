package cli

import (
	"fmt"
	"runtime"
	"strconv"

	"github.com/gamekit-labs/ccbuild/internal/builder"
	"github.com/gamekit-labs/ccbuild/internal/config"
	"github.com/gamekit-labs/ccbuild/internal/project"
	"github.com/gamekit-labs/ccbuild/internal/steps"
	"github.com/gamekit-labs/ccbuild/internal/toolchain"
	"github.com/spf13/cobra"
)

// compileFlags holds the raw compile flags.
type compileFlags struct {
	platform  string
	source    string
	projDir   string
	mode      string
	jobs      int
	outputDir string

	androidPlatform string
	buildType       string
	appABI          string
	ndkToolchain    string
	ndkCppFlags     string
	noAPK           bool
	noSign          bool

	vs int

	sourceMap bool
	advanced  bool

	target       string
	signIdentity string

	noRes          bool
	compileScript  string
	luaEncrypt     bool
	luaEncryptKey  string
	luaEncryptSign string
}

func newCompileCmd(a *app) *cobra.Command {
	f := &compileFlags{}
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Build the project for one platform",
		Long: `Build the project found in --src (or a parent directory) for one platform.

Resources are staged according to build-cfg.json in the platform project,
scripts are compiled when requested, and the native toolchain is invoked.
Values not given as flags are taken from the user config (jobs, vs,
android.platform, script_compiler, web.tools_dir).`,
		Example: `  ccbuild compile -p android -m release --app-abi armeabi-v7a:arm64-v8a
  ccbuild compile -p ios --sign-identity "iPhone Distribution: Example"
  ccbuild compile -p web -m release --advanced --source-map`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, a, f)
		},
	}
	f.bind(cmd)
	return cmd
}

// bind registers the compile flags on cmd.
func (f *compileFlags) bind(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.platform, "platform", "p", "", "Target platform (android, ios, mac, win32, metro, linux, web)")
	fl.StringVarP(&f.source, "src", "s", ".", "Project directory or any directory below it")
	fl.StringVar(&f.projDir, "proj-dir", "", "Native project directory, relative to the project root")
	fl.StringVarP(&f.mode, "mode", "m", builder.Debug, "Build mode (debug, release)")
	fl.IntVarP(&f.jobs, "jobs", "j", 0, "Parallel jobs for native builds (default: number of CPUs)")
	fl.StringVarP(&f.outputDir, "output-dir", "o", "", "Output directory")

	fl.StringVar(&f.androidPlatform, "ap", "", "Android API level to build against, e.g. 19 or android-19")
	fl.StringVar(&f.buildType, "build-type", "", "Android native build type (ndk-build, none)")
	fl.StringVar(&f.appABI, "app-abi", "", "Android ABIs, colon separated")
	fl.StringVar(&f.ndkToolchain, "ndk-toolchain", "", "NDK_TOOLCHAIN passed to ndk-build")
	fl.StringVar(&f.ndkCppFlags, "ndk-cppflags", "", "Extra APP_CPPFLAGS for ndk-build")
	fl.BoolVar(&f.noAPK, "no-apk", false, "Skip building the apk")
	fl.BoolVar(&f.noSign, "no-sign", false, "Build an unsigned release apk")

	fl.IntVar(&f.vs, "vs", 0, "Visual Studio version year, e.g. 2015")

	fl.BoolVar(&f.sourceMap, "source-map", false, "Generate a source map for web builds")
	fl.BoolVar(&f.advanced, "advanced", false, "Use advanced closure compilation for web builds")

	fl.StringVarP(&f.target, "target", "t", "", "Xcode target name")
	fl.StringVar(&f.signIdentity, "sign-identity", "", "iOS code sign identity; builds an ipa")

	fl.BoolVar(&f.noRes, "no-res", false, "Stage only mandatory resources")
	fl.StringVar(&f.compileScript, "compile-script", "", "Compile scripts to bytecode (0 or 1; default: 1 in release)")
	fl.BoolVar(&f.luaEncrypt, "lua-encrypt", false, "Encrypt lua scripts")
	fl.StringVar(&f.luaEncryptKey, "lua-encrypt-key", "", "Lua encryption key")
	fl.StringVar(&f.luaEncryptSign, "lua-encrypt-sign", "", "Lua encryption signature")
}

// options turns the flags into builder options, filling unset values from
// the user config.
func (f *compileFlags) options(cmd *cobra.Command) (builder.Options, error) {
	opts := builder.Options{
		Platform:        f.platform,
		SourceDir:       f.source,
		ProjDir:         f.projDir,
		Mode:            f.mode,
		Jobs:            f.jobs,
		OutputDir:       f.outputDir,
		AndroidPlatform: f.androidPlatform,
		BuildType:       f.buildType,
		AppABI:          f.appABI,
		NDKToolchain:    f.ndkToolchain,
		NDKCppFlags:     f.ndkCppFlags,
		NoAPK:           f.noAPK,
		NoSign:          f.noSign,
		VSVersion:       f.vs,
		SourceMap:       f.sourceMap,
		Advanced:        f.advanced,
		TargetName:      f.target,
		SignIdentity:    f.signIdentity,
		NoRes:           f.noRes,
		LuaEncrypt:      f.luaEncrypt,
		LuaEncryptKey:   f.luaEncryptKey,
		LuaEncryptSign:  f.luaEncryptSign,
		ScriptCompiler:  config.Get(config.KeyScriptCompiler),
		WebToolsDir:     config.Get(config.KeyWebToolsDir),
	}

	changed := cmd.Flags().Changed
	if !changed("jobs") {
		opts.Jobs = config.GetInt(config.KeyJobs)
	}
	if !changed("vs") {
		opts.VSVersion = config.GetInt(config.KeyVSVersion)
	}
	if !changed("ap") {
		opts.AndroidPlatform = config.Get(config.KeyAndroidPlatform)
	}

	cs, err := parseCompileScript(f.compileScript)
	if err != nil {
		return opts, err
	}
	opts.CompileScript = cs
	return opts, nil
}

// parseCompileScript reads --compile-script. Empty means "decide by mode".
func parseCompileScript(s string) (*bool, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, &builder.Error{Kind: builder.WrongArgs, Op: "options",
			Err: fmt.Errorf("--compile-script %q must be 0 or 1", s)}
	}
	return &v, nil
}

func runCompile(cmd *cobra.Command, a *app, f *compileFlags) error {
	opts, err := f.options(cmd)
	if err != nil {
		return err
	}
	proj, err := project.Find(toolchain.ExpandPath(opts.SourceDir))
	if err != nil {
		return err
	}

	st, err := builder.NewState(opts, proj, runtime.GOOS)
	if err != nil {
		return err
	}

	r := a.runner(cmd)
	hooks, err := steps.Load(proj.CustomStepFile(), proj.Dir, r)
	if err != nil {
		return &builder.Error{Kind: builder.ParseFile, Op: "custom steps", Err: err}
	}

	b := builder.New(r, hooks)
	b.PromptOut = cmd.ErrOrStderr()
	b.Prompt = cmd.InOrStdin()

	res, err := b.Compile(cmd.Context(), st)
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), res)
	return nil
}
