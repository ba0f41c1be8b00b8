package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gamekit-labs/ccbuild/internal/stage"
	"github.com/gamekit-labs/ccbuild/internal/toolchain"
	"github.com/sirupsen/logrus"
)

const defaultLinuxBuildDir = "linux-build"

var (
	setAppNameRe = regexp.MustCompile(`(?i)\s*set\s*\(\s*APP_NAME`)
	appNameRe    = regexp.MustCompile(`(?i)APP_NAME ([^)]+)\)`)
)

// CMakeAppName reads the set(APP_NAME x) line of a CMakeLists.txt.
func CMakeAppName(content string) (string, bool) {
	for _, line := range strings.Split(content, "\n") {
		if !setAppNameRe.MatchString(line) {
			continue
		}
		if m := appNameRe.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}

// CMakeCommands returns the configure and build invocations, both run in
// buildDir.
func CMakeCommands(st *State, cmakeDir, buildDir string) (configure, build toolchain.Command, err error) {
	rel, err := filepath.Rel(buildDir, cmakeDir)
	if err != nil {
		return configure, build, err
	}
	debug := "OFF"
	if st.Debug() {
		debug = "ON"
	}
	configure = toolchain.Command{
		Name: "cmake",
		Args: []string{"-DCMAKE_BUILD_TYPE=" + st.ModeTitle(), "-DDEBUG_MODE=" + debug, rel},
		Dir:  buildDir,
	}
	build = toolchain.Command{Name: "make", Args: []string{fmt.Sprintf("-j%d", st.Jobs)}, Dir: buildDir}
	return configure, build, nil
}

func (b *Builder) buildLinux(ctx context.Context, st *State, res *Result) error {
	cfg := st.Target.Linux
	projDir := st.Project.Dir

	cmakeDir := projDir
	if cfg.CMakePath != "" {
		cmakeDir = filepath.Join(projDir, cfg.CMakePath)
	}

	name := cfg.ProjectName
	if name == "" {
		data, err := os.ReadFile(filepath.Join(cmakeDir, "CMakeLists.txt"))
		if err != nil {
			return &Error{Kind: PathNotFound, Op: "linux", Err: err}
		}
		var ok bool
		if name, ok = CMakeAppName(string(data)); !ok {
			return newError(ParseFile, "linux", "couldn't find APP_NAME in %s", filepath.Join(cmakeDir, "CMakeLists.txt"))
		}
	}

	buildDir := filepath.Join(projDir, defaultLinuxBuildDir)
	if cfg.BuildDir != "" {
		buildDir = filepath.Join(projDir, cfg.BuildDir)
	}
	if err := os.MkdirAll(buildDir, 0755); err != nil {
		return err
	}

	configure, build, err := CMakeCommands(st, cmakeDir, buildDir)
	if err != nil {
		return err
	}
	if err := b.run(ctx, configure); err != nil {
		return &Error{Kind: BuildFailed, Op: "cmake", Err: err}
	}
	if err := b.run(ctx, build); err != nil {
		return &Error{Kind: BuildFailed, Op: "make", Err: err}
	}

	out := st.OutputDir
	if err := stage.Recreate(out); err != nil {
		return err
	}
	resultDir := filepath.Join(buildDir, "bin", st.ModeTitle(), name)
	if cfg.BuildResultDir != "" {
		resultDir = filepath.Join(buildDir, "bin", cfg.BuildResultDir, st.ModeTitle(), name)
	}
	if err := stage.CopyDirContents(resultDir, out); err != nil {
		return &Error{Kind: PathNotFound, Op: "linux", Err: err}
	}
	res.RunRoot = out
	res.Artifact = filepath.Join(out, name)

	if st.Options.NoRes {
		if err := b.removeRes(st, filepath.Join(out, "Resources")); err != nil {
			return err
		}
	}
	if st.Project.IsScript() && st.CompileScript {
		res.warn("Script compilation is not supported on linux; scripts were copied as-is")
	}
	logrus.Debugf("linux output in %s", out)
	return nil
}
