package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gamekit-labs/ccbuild/internal/platform"
	"github.com/gamekit-labs/ccbuild/internal/stage"
	"github.com/gamekit-labs/ccbuild/internal/toolchain"
	"github.com/sirupsen/logrus"
)

// Minimum Visual Studio per platform.
const (
	minVSWin32 = 2012
	minVSMetro = 2013
)

// VSRequest returns the Visual Studio versions the build accepts.
func VSRequest(st *State) toolchain.VSRequest {
	req := toolchain.VSRequest{Minimum: minVSWin32, Specified: st.Options.VSVersion}
	if st.Platform == platform.Metro {
		req.Minimum = minVSMetro
	}
	if ok, known := st.Project.EngineAtLeast(3, 7); known {
		if ok {
			req.Required = []int{2013, 2015, 2017}
		} else {
			req.Required = []int{2012, 2013}
		}
	}
	return req
}

// solution returns the .sln file name and the project to build in it.
func solution(st *State) (sln, name string, err error) {
	cfg := st.Target.Windows
	if cfg.SlnFile != "" {
		if cfg.ProjectName == "" {
			return "", "", newError(WrongConfig, "solution",
				"project_name must be set in %s_cfg when sln_file is set", st.Platform)
		}
		return cfg.SlnFile, cfg.ProjectName, nil
	}
	matches, _ := filepath.Glob(filepath.Join(st.Target.Dir, "*.sln"))
	if len(matches) == 0 {
		return "", "", newError(PathNotFound, "solution", "no .sln file in %s", st.Target.Dir)
	}
	sln = filepath.Base(matches[0])
	name = strings.TrimSuffix(sln, ".sln")
	if st.Platform == platform.Metro {
		name += ".Windows"
	}
	return sln, name, nil
}

// buildVSProject builds one project of a solution with devenv, falling back
// to MSBuild when no devenv is installed.
func (b *Builder) buildVSProject(ctx context.Context, st *State, sln, project string) error {
	req := VSRequest(st)
	if len(req.Required) > 0 {
		logrus.Infof("Required Visual Studio: %v", req.Required)
	} else {
		logrus.Infof("Required Visual Studio: %d or newer", req.Minimum)
	}
	mode := st.ModeTitle()

	devenv, upgrade, err := b.VS.Devenv(req)
	switch {
	case err == nil:
		if upgrade {
			if err := b.run(ctx, toolchain.Command{Name: devenv, Args: []string{sln, "/Upgrade"}}); err != nil {
				return &Error{Kind: BuildFailed, Op: "upgrading solution", Err: err}
			}
		}
		c := toolchain.Command{Name: devenv, Args: []string{sln, "/Build", mode, "/Project", project}}
		if err := b.run(ctx, c); err != nil {
			return &Error{Kind: BuildFailed, Op: "devenv", Err: err}
		}
		return nil
	case errors.Is(err, toolchain.ErrVSNotFound):
		logrus.Info("devenv not found, looking for MSBuild")
	default:
		return err
	}

	msbuild, err := b.VS.MSBuild(req)
	if err != nil {
		return &Error{Kind: ToolsNotFound, Op: "msbuild", Err: err}
	}
	logrus.Infof("Using %s", msbuild)
	c := toolchain.Command{Name: msbuild, Args: []string{
		sln,
		"/target:" + project,
		"/property:Configuration=" + mode,
		fmt.Sprintf("/maxcpucount:%d", st.Jobs),
	}}
	if err := b.run(ctx, c); err != nil {
		return &Error{Kind: BuildFailed, Op: "msbuild", Err: err}
	}
	return nil
}

func (b *Builder) buildWin32(ctx context.Context, st *State, res *Result) error {
	if st.GOOS != "windows" {
		return newError(WrongArgs, "win32", "win32 projects can only be built on Windows")
	}
	logrus.Info("Building")
	sln, name, err := solution(st)
	if err != nil {
		return err
	}
	if err := b.buildVSProject(ctx, st, filepath.Join(st.Target.Dir, sln), name); err != nil {
		return err
	}

	buildDir := filepath.Join(st.Target.Dir, st.ModeTitle()+".win32")
	if !platform.IsDir(buildDir) {
		return newError(PathNotFound, "win32", "build output %s not found", buildDir)
	}

	out := st.OutputDir
	if platform.IsDir(out) {
		if err := stage.KeepOnlyExt(out, ".exe"); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(out, 0755); err != nil {
		return err
	}

	exeDir := buildDir
	if d := st.Target.Windows.ExeOutDir; d != "" {
		exeDir = filepath.Join(buildDir, d)
	}
	exe := filepath.Join(exeDir, name+".exe")
	if platform.IsFile(exe) {
		logrus.Infof("Copying %s", filepath.Base(exe))
		if err := stage.CopyFile(exe, filepath.Join(out, filepath.Base(exe))); err != nil {
			return err
		}
		res.Artifact = filepath.Join(out, filepath.Base(exe))
	}
	n, err := stage.CopyGlob(buildDir, "*.dll", out)
	if err != nil {
		return err
	}
	logrus.Debugf("copied %d dlls", n)

	if err := b.copyResources(st, res, out); err != nil {
		return err
	}
	// windows only runs 32-bit lua bytecode
	if err := b.compileOutputScripts(ctx, st, out, false); err != nil {
		return err
	}
	res.RunRoot = out
	return nil
}

func (b *Builder) buildMetro(ctx context.Context, st *State, res *Result) error {
	logrus.Info("Building")
	sln, name, err := solution(st)
	if err != nil {
		return err
	}
	return b.buildVSProject(ctx, st, filepath.Join(st.Target.Dir, sln), name)
}
