package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/gamekit-labs/ccbuild/internal/platform"
	"github.com/gamekit-labs/ccbuild/internal/project"
	"github.com/gamekit-labs/ccbuild/internal/script"
	"github.com/gamekit-labs/ccbuild/internal/stage"
	"github.com/gamekit-labs/ccbuild/internal/toolchain"
	"github.com/sirupsen/logrus"
)

var (
	pbxProjectSectionRe = regexp.MustCompile(`(?s)Begin PBXProject section.*End PBXProject section`)
	pbxTargetsRe        = regexp.MustCompile(`(?s)targets = \((.*?)\);`)
	pbxCommentRe        = regexp.MustCompile(`/\*\s*(.*?)\s*\*/`)

	xcodeArchive = semver.MustParse("8.3")
	xcodeScheme  = semver.MustParse("9")
)

// Target name hints per platform.
var (
	iosTargetHints = []string{"iOS", "-mobile"}
	macTargetHints = []string{"Mac", "-desktop"}
)

// exportOptionsDirs are searched for exportOptions.plist, relative to the
// project root.
var exportOptionsDirs = []string{
	"proj.ios",
	filepath.Join("proj.ios_mac", "ios"),
	filepath.Join("frameworks", "runtime-src", "proj.ios_mac", "ios"),
}

// PBXTargets lists the target names of a project.pbxproj.
func PBXTargets(content string) ([]string, error) {
	section := pbxProjectSectionRe.FindString(content)
	if section == "" {
		return nil, fmt.Errorf("no PBXProject section")
	}
	m := pbxTargetsRe.FindStringSubmatch(section)
	if m == nil {
		return nil, fmt.Errorf("no targets in PBXProject section")
	}
	var names []string
	for _, c := range pbxCommentRe.FindAllStringSubmatch(m[1], -1) {
		names = append(names, c[1])
	}
	return names, nil
}

// FindPBXTarget returns the first target containing one of hints.
func FindPBXTarget(content string, hints []string) (string, error) {
	names, err := PBXTargets(content)
	if err != nil {
		return "", err
	}
	for _, n := range names {
		for _, h := range hints {
			if strings.Contains(n, h) {
				return n, nil
			}
		}
	}
	return "", fmt.Errorf("no target matching %v among %v", hints, names)
}

type appleBuild struct {
	*Builder
	st  *State
	res *Result

	xcode     *semver.Version
	name      string
	project   string // path of the .xcodeproj
	workspace string
	cocoapods bool
	target    string
	sdk       string // ios only
}

func (b *Builder) prepareApple(ctx context.Context, st *State, res *Result) (*appleBuild, error) {
	if st.GOOS != "darwin" {
		return nil, newError(WrongArgs, st.Platform.String(), "%s projects can only be built on macOS", st.Platform)
	}
	xcode, err := toolchain.XcodeVersion(ctx, b.Runner)
	if err != nil {
		return nil, &Error{Kind: ToolsNotFound, Op: "xcode", Err: err}
	}
	if xcode.Major() <= 5 {
		return nil, newError(ToolsNotFound, "xcode", "Xcode %s is too old, please update Xcode", xcode)
	}

	a := &appleBuild{Builder: b, st: st, res: res, xcode: xcode}
	dir := st.Target.Dir
	if pf := st.Target.Apple.ProjectFile; pf != "" {
		a.project = filepath.Join(dir, pf)
		a.name = strings.TrimSuffix(filepath.Base(pf), filepath.Ext(pf))
	} else {
		matches, _ := filepath.Glob(filepath.Join(dir, "*.xcodeproj"))
		if len(matches) == 0 {
			return nil, newError(ParseFile, "xcode", "no .xcodeproj found in %s", dir)
		}
		a.project = matches[0]
		a.name = strings.TrimSuffix(filepath.Base(matches[0]), ".xcodeproj")
	}

	a.workspace = filepath.Join(dir, a.name+".xcworkspace")
	a.cocoapods = platform.Exists(a.workspace) && platform.Exists(filepath.Join(dir, "Podfile"))
	if a.cocoapods {
		logrus.Info("Using cocoapods workspace")
	}

	hints := macTargetHints
	if st.Platform == platform.IOS {
		hints = iosTargetHints
	}
	if a.target, err = a.targetName(hints); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *appleBuild) targetName(hints []string) (string, error) {
	if t := a.st.Options.TargetName; t != "" {
		return t, nil
	}
	if t := a.st.Target.Apple.TargetName; t != "" {
		return t, nil
	}
	pbx := filepath.Join(a.project, "project.pbxproj")
	data, err := os.ReadFile(pbx)
	if err != nil {
		return "", &Error{Kind: ParseFile, Op: "xcode", Err: err}
	}
	t, err := FindPBXTarget(string(data), hints)
	if err != nil {
		return "", &Error{Kind: ParseFile, Op: pbx, Err: err}
	}
	return t, nil
}

func (a *appleBuild) appPath() string {
	return filepath.Join(a.st.OutputDir, a.target+".app")
}

func (a *appleBuild) simulator() bool { return a.sdk == "iphonesimulator" }

// xcodebuildCommand returns the build invocation.
func (a *appleBuild) xcodebuildCommand() toolchain.Command {
	var args []string
	if a.cocoapods {
		args = append(args, "-workspace", a.workspace)
	} else {
		args = append(args, "-project", a.project)
	}
	args = append(args, "-configuration", a.st.ModeTitle())

	useScheme := a.cocoapods
	ios := a.st.Platform == platform.IOS
	sign := a.st.Options.SignIdentity
	if ios && sign != "" && !a.xcode.LessThan(xcodeScheme) {
		useScheme = true
	}
	if useScheme {
		args = append(args, "-scheme", a.target)
	} else {
		args = append(args, "-target", a.target)
	}

	if ios {
		if a.simulator() {
			args = append(args, "-arch", "x86_64")
		}
		args = append(args, "-sdk", a.sdk)
	}
	args = append(args, "CONFIGURATION_BUILD_DIR="+a.st.OutputDir)
	if ios && a.simulator() {
		args = append(args, "VALID_ARCHS=i386 x86_64")
	}
	if ios && sign != "" {
		args = append(args, "CODE_SIGN_IDENTITY="+sign)
		if !a.xcode.LessThan(xcodeArchive) {
			args = append(args, "-archivePath", a.archivePath(), "archive")
		}
	}

	c := toolchain.Command{Name: "xcodebuild", Args: args}
	if a.hasTool("xcpretty") {
		c.Pipe = &toolchain.Command{Name: "xcpretty"}
	}
	return c
}

func (a *appleBuild) archivePath() string {
	return filepath.Join(a.st.OutputDir, a.target+".xcarchive")
}

// scriptDirs returns the trees compiled in place for this build.
func (a *appleBuild) scriptDirs() []string {
	p := a.st.Project
	src := filepath.Join(p.Dir, "src")
	switch {
	case p.Language == project.JS && a.st.CompileScript:
		return []string{src, p.EngineJSDir()}
	case p.Language == project.Lua:
		return []string{src}
	}
	return nil
}

func (a *appleBuild) compileScripts(ctx context.Context, backups []*script.Backup) error {
	if len(backups) == 0 {
		return nil
	}
	c := a.compiler(a.st)
	for _, bk := range backups {
		var err error
		switch a.st.Project.Language {
		case project.JS:
			_, err = c.JS(ctx, bk.Dir, bk.Dir)
		case project.Lua:
			// 64-bit first: the 32-bit pass removes the sources.
			if _, err = c.Lua(ctx, bk.Dir, filepath.Join(bk.Dir, "64bit"), true); err == nil && a.st.Platform == platform.IOS {
				_, err = c.Lua(ctx, bk.Dir, bk.Dir, false)
			}
		}
		if err != nil {
			return err
		}
		if err := bk.MarkCompiled(); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) buildIOS(ctx context.Context, st *State, res *Result) error {
	a, err := b.prepareApple(ctx, st, res)
	if err != nil {
		return err
	}
	a.sdk = "iphonesimulator"
	if st.Options.SignIdentity != "" {
		logrus.Infof("Code sign identity: %s", st.Options.SignIdentity)
		a.sdk = "iphoneos"
	}
	return a.build(ctx, func() error {
		if st.Options.NoRes {
			if err := b.removeRes(st, a.appPath()); err != nil {
				return err
			}
		}
		if st.Options.SignIdentity == "" {
			res.Artifact = a.appPath()
			return nil
		}
		return a.exportIPA(ctx)
	})
}

func (b *Builder) buildMac(ctx context.Context, st *State, res *Result) error {
	a, err := b.prepareApple(ctx, st, res)
	if err != nil {
		return err
	}
	return a.build(ctx, func() error {
		if st.Options.NoRes {
			if err := b.removeRes(st, filepath.Join(a.appPath(), "Contents", "Resources")); err != nil {
				return err
			}
		}
		res.Artifact = a.appPath()
		return nil
	})
}

// build compiles scripts under backup, runs xcodebuild and then finish.
// Script trees are restored on every path.
func (a *appleBuild) build(ctx context.Context, finish func() error) error {
	if err := platform.RemovePath(a.appPath()); err != nil {
		return err
	}
	if err := os.MkdirAll(a.st.OutputDir, 0755); err != nil {
		return err
	}

	return script.WithBackup(a.scriptDirs(), func(backups []*script.Backup) error {
		if err := a.compileScripts(ctx, backups); err != nil {
			return err
		}
		logrus.Info("Building")
		if err := a.run(ctx, a.xcodebuildCommand()); err != nil {
			return &Error{Kind: BuildFailed, Op: "xcodebuild", Err: err}
		}
		if err := stage.RemoveFilesWithExt(a.st.OutputDir, ".a"); err != nil {
			return err
		}
		return finish()
	})
}

func (a *appleBuild) exportIPA(ctx context.Context) error {
	ipa := filepath.Join(a.st.OutputDir, a.target+".ipa")
	var c toolchain.Command
	if !a.xcode.LessThan(xcodeArchive) {
		plist := ""
		for _, rel := range exportOptionsDirs {
			if dir := filepath.Join(a.st.Project.Dir, rel); platform.Exists(dir) {
				plist = filepath.Join(dir, "exportOptions.plist")
				break
			}
		}
		if plist == "" {
			return newError(PathNotFound, "ipa", "can not find exportOptions.plist")
		}
		c = toolchain.Command{Name: "xcodebuild", Args: []string{
			"-exportArchive", "-archivePath", a.archivePath(),
			"-exportPath", a.st.OutputDir, "-exportOptionsPlist", plist,
		}}
	} else {
		c = toolchain.Command{Name: "xcrun", Args: []string{
			"-sdk", a.sdk, "PackageApplication", "-v", a.appPath(), "-o", ipa,
		}}
	}
	if err := a.run(ctx, c); err != nil {
		return &Error{Kind: BuildFailed, Op: "exporting ipa", Err: err}
	}
	a.res.Artifact = ipa
	return nil
}
