package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/gamekit-labs/ccbuild/internal/buildcfg"
	"github.com/gamekit-labs/ccbuild/internal/platform"
	"github.com/gamekit-labs/ccbuild/internal/project"
	"github.com/gamekit-labs/ccbuild/internal/script"
	"github.com/gamekit-labs/ccbuild/internal/stage"
	"github.com/gamekit-labs/ccbuild/internal/steps"
	"github.com/gamekit-labs/ccbuild/internal/toolchain"
	"github.com/sirupsen/logrus"
)

// Builder runs platform builds. The zero value is not usable; see New.
type Builder struct {
	Runner toolchain.Runner
	VS     *toolchain.VisualStudio
	Hooks  *steps.Hooks

	// Prompt and PromptOut are used to ask for android signing info.
	Prompt    io.Reader
	PromptOut io.Writer

	// HasTool reports whether an optional executable is installed.
	HasTool func(name string) bool
}

// New returns a Builder backed by real processes.
func New(r toolchain.Runner, hooks *steps.Hooks) *Builder {
	return &Builder{
		Runner:    r,
		VS:        toolchain.NewVisualStudio(),
		Hooks:     hooks,
		Prompt:    os.Stdin,
		PromptOut: os.Stderr,
		HasTool:   toolchain.HasTool,
	}
}

// Result describes what a build produced.
type Result struct {
	Platform  platform.Platform
	OutputDir string
	Artifact  string // apk, ipa, app bundle or exe
	RunRoot   string
	SubURL    string

	AndroidPackage  string
	AndroidActivity string

	Staged   stage.Report
	Warnings []string
}

func (r *Result) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logrus.Warn(msg)
	r.Warnings = append(r.Warnings, msg)
}

type handler func(b *Builder, ctx context.Context, st *State, res *Result) error

var handlers = map[platform.Platform]handler{
	platform.Android: (*Builder).buildAndroid,
	platform.IOS:     (*Builder).buildIOS,
	platform.Mac:     (*Builder).buildMac,
	platform.Win32:   (*Builder).buildWin32,
	platform.Metro:   (*Builder).buildMetro,
	platform.Web:     (*Builder).buildWeb,
	platform.Linux:   (*Builder).buildLinux,
}

// Compile runs the whole build: migrate the build config, pre-build hooks,
// the platform routine, post-build hooks.
func (b *Builder) Compile(ctx context.Context, st *State) (*Result, error) {
	logrus.Infof("Building mode: %s", st.Mode)
	if err := b.migrate(st); err != nil {
		return nil, err
	}

	args := st.StepArgs()
	if err := b.Hooks.Fire(ctx, steps.PreBuild, st.Platform, args); err != nil {
		return nil, wrap("pre-build step", err)
	}
	res, err := b.Dispatch(ctx, st)
	if err != nil {
		return res, err
	}
	if err := b.Hooks.Fire(ctx, steps.PostBuild, st.Platform, args); err != nil {
		return res, wrap("post-build step", err)
	}

	if len(res.Warnings) > 0 {
		logrus.Warn(strings.Join(res.Warnings, "\n"))
	}
	return res, nil
}

// Dispatch runs the one routine registered for st.Platform.
func (b *Builder) Dispatch(ctx context.Context, st *State) (*Result, error) {
	h, ok := handlers[st.Platform]
	if !ok {
		return nil, newError(WrongArgs, "dispatch", "no build routine for platform %s", st.Platform)
	}
	res := &Result{Platform: st.Platform, OutputDir: st.OutputDir}
	if err := h(b, ctx, st, res); err != nil {
		return res, wrap(st.Platform.String()+" build", err)
	}
	logrus.Infof("Build succeeded: %s", st.OutputDir)
	return res, nil
}

func (b *Builder) migrate(st *State) error {
	r, err := buildcfg.Migrate(st.BuildCfgPath(), st.Platform.String())
	if err != nil {
		return wrap("migrating "+buildcfg.FileName, err)
	}
	if r.Migrated {
		logrus.Infof("Migrated %s (%s), previous version saved as %s",
			st.BuildCfgPath(), strings.Join(r.Keys, ", "), r.BackupPath)
	}
	return nil
}

// buildCfg loads the platform's build-cfg.json; it must exist.
func (b *Builder) buildCfg(st *State) (*buildcfg.Config, error) {
	cfg, err := buildcfg.Load(st.BuildCfgPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, newError(PathNotFound, "build config", "%s not found", st.BuildCfgPath())
	}
	if err != nil {
		return nil, &Error{Kind: ParseFile, Op: "build config", Err: err}
	}
	return cfg, nil
}

// copyResources stages the build config's copy rules into dst.
func (b *Builder) copyResources(st *State, res *Result, dst string) error {
	cfg, err := b.buildCfg(st)
	if err != nil {
		return err
	}
	rep, err := stage.Resources(cfg, dst, st.Options.NoRes)
	if err != nil {
		return wrap("copying resources", err)
	}
	res.Staged = rep
	logrus.Info(rep.String())
	return nil
}

// removeRes applies remove_res below target. A missing build config means
// nothing to remove.
func (b *Builder) removeRes(st *State, target string) error {
	cfg, err := buildcfg.Load(st.BuildCfgPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &Error{Kind: ParseFile, Op: "build config", Err: err}
	}
	return wrap("removing resources", stage.RemoveRes(cfg.RemoveRes(), target))
}

func (b *Builder) compiler(st *State) *script.Compiler {
	return &script.Compiler{
		Runner:     b.Runner,
		Tool:       st.ScriptTool(),
		Compile:    st.CompileScript,
		LuaEncrypt: st.Options.LuaEncrypt,
		LuaKey:     st.Options.LuaEncryptKey,
		LuaSign:    st.Options.LuaEncryptSign,
	}
}

// compileOutputScripts compiles scripts in place in a staged output dir.
func (b *Builder) compileOutputScripts(ctx context.Context, st *State, dir string, bytecode64 bool) error {
	c := b.compiler(st)
	var err error
	switch st.Project.Language {
	case project.JS:
		_, err = c.JS(ctx, dir, dir)
	case project.Lua:
		_, err = c.Lua(ctx, dir, dir, bytecode64)
	}
	return err
}

func (b *Builder) hasTool(name string) bool {
	if b.HasTool == nil {
		return toolchain.HasTool(name)
	}
	return b.HasTool(name)
}

func (b *Builder) run(ctx context.Context, c toolchain.Command) error {
	return b.Runner.Run(ctx, c)
}
