package builder

import (
	"bufio"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gamekit-labs/ccbuild/internal/buildcfg"
	"github.com/gamekit-labs/ccbuild/internal/platform"
	"github.com/gamekit-labs/ccbuild/internal/project"
	"github.com/gamekit-labs/ccbuild/internal/stage"
	"github.com/gamekit-labs/ccbuild/internal/steps"
	"github.com/gamekit-labs/ccbuild/internal/toolchain"
	"github.com/sirupsen/logrus"
)

const defaultNDKToolchainVersion = "4.9"

// Signing keys in build-cfg.json and their gradle.properties names.
var signingKeys = []struct{ cfg, gradle string }{
	{"key_store", "RELEASE_STORE_FILE"},
	{"key_store_pass", "RELEASE_STORE_PASSWORD"},
	{"alias", "RELEASE_KEY_ALIAS"},
	{"alias_pass", "RELEASE_KEY_PASSWORD"},
}

// Gradle project properties passed when gradle drives ndk-build.
const (
	propBuildType      = "PROP_BUILD_TYPE"
	propTargetSDK      = "PROP_TARGET_SDK_VERSION"
	propAppABI         = "PROP_APP_ABI"
	propCompileScript  = "PROP_COMPILE_SCRIPT"
	propLuaEncrypt     = "PROP_LUA_ENCRYPT"
	propLuaEncryptKey  = "PROP_LUA_ENCRYPT_KEY"
	propLuaEncryptSign = "PROP_LUA_ENCRYPT_SIGN"
)

var (
	targetLineRe    = regexp.MustCompile(`^target=(.+)`)
	apiLevelRe      = regexp.MustCompile(`^android-(\d+)`)
	keystoreLineRe  = regexp.MustCompile(`^RELEASE_STORE_FILE=(.+)`)
	compileSDKRe    = regexp.MustCompile(`^compileSdkVersion[ \t]+(\d+)`)
	buildToolsRe    = regexp.MustCompile(`^buildToolsVersion[ \t]+"(.+)"`)
	settingsNameRe  = regexp.MustCompile(`project\(':(.*)'\)\.projectDir[ \t]*=[ \t]*new[ \t]*File\(settingsDir, 'app'\)`)
	applicationIDRe = regexp.MustCompile(`^applicationId[ \t]+"(.*)"`)
)

// LuaArch is the set of bytecode architectures an android build needs.
type LuaArch int

const (
	LuaArchUnknown LuaArch = iota
	LuaArchOnly64
	LuaArchOnly32
	LuaArchBoth
)

// ParseLuaArch inspects an APP_ABI value. Text after '#' is ignored.
func ParseLuaArch(s string) LuaArch {
	s, _, _ = strings.Cut(s, "#")
	has64 := strings.Contains(s, "arm64-v8a")
	has32 := strings.Contains(s, "armeabi-v7a") || strings.Contains(s, "x86")
	switch {
	case has64 && has32:
		return LuaArchBoth
	case has64:
		return LuaArchOnly64
	case has32:
		return LuaArchOnly32
	default:
		return LuaArchUnknown
	}
}

type androidBuild struct {
	*Builder
	st   *State
	res  *Result
	root string // android studio project
	app  string // root/app
	sdk  string

	rules []buildcfg.CopyRule
	cfg   string // dir the rules are relative to
}

func (b *Builder) buildAndroid(ctx context.Context, st *State, res *Result) error {
	sdk, err := toolchain.RequireEnv("ANDROID_SDK_ROOT")
	if err != nil {
		return err
	}
	a := &androidBuild{
		Builder: b,
		st:      st,
		res:     res,
		root:    st.Target.Dir,
		app:     filepath.Join(st.Target.Dir, "app"),
		sdk:     sdk,
	}
	logrus.Infof("Android Studio project: %s", a.root)

	switch st.NDK {
	case NDKUnknown:
		res.warn("Could not determine the engine version; assuming gradle does not run ndk-build")
	case NDKSupported:
		logrus.Debug("gradle builds native code")
	}

	if !st.NDK.Supported() {
		if err := a.loadLegacyConfig(); err != nil {
			return err
		}
	}
	if err := a.updateProject(); err != nil {
		return err
	}

	if st.Project.IsNativeBuild() && st.NDKBuildType() != BuildTypeNone && !st.NDK.Supported() {
		if err := a.ndkBuild(ctx); err != nil {
			return err
		}
	}
	if err := a.buildAPK(ctx); err != nil {
		return err
	}

	pkg, activity, err := a.apkInfo()
	if err != nil {
		logrus.Debugf("reading apk info: %v", err)
	} else {
		res.AndroidPackage, res.AndroidActivity = pkg, activity
	}
	return nil
}

// loadLegacyConfig reads build-cfg.json in the android root, moves signing
// keys into gradle.properties and selects the resource rules.
func (a *androidBuild) loadLegacyConfig() error {
	path := filepath.Join(a.root, buildcfg.FileName)
	cfg, err := buildcfg.Load(path)
	if err != nil {
		return &Error{Kind: ParseFile, Op: "reading " + path, Err: err}
	}
	rules, err := cfg.Rules(a.st.Options.NoRes)
	if err != nil {
		return &Error{Kind: ParseFile, Op: "reading " + path, Err: err}
	}
	a.rules, a.cfg = rules, cfg.Dir

	moved := map[string]string{}
	for _, k := range signingKeys {
		if v, ok := cfg.String(k.cfg); ok {
			moved[k.gradle] = v
			cfg.Delete(k.cfg)
		}
	}
	if len(moved) == 0 {
		return nil
	}
	if !a.hasKeystore() {
		if err := a.writeSigningProps(moved); err != nil {
			return err
		}
	}
	return wrap("saving "+path, cfg.Save())
}

func (a *androidBuild) signPropsPath() string {
	return filepath.Join(a.app, "gradle.properties")
}

// hasKeystore reports whether gradle.properties already names a keystore.
func (a *androidBuild) hasKeystore() bool {
	data, err := os.ReadFile(a.signPropsPath())
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.NewReplacer(" ", "", "\t", "").Replace(line)
		if keystoreLineRe.MatchString(line) {
			return true
		}
	}
	return false
}

func (a *androidBuild) writeSigningProps(props map[string]string) error {
	f, err := os.OpenFile(a.signPropsPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening gradle.properties: %w", err)
	}
	defer f.Close()
	for _, k := range sortedKeys(props) {
		if _, err := fmt.Fprintf(f, "%s=%s\n", k, props[k]); err != nil {
			return fmt.Errorf("writing gradle.properties: %w", err)
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (a *androidBuild) updateProject() error {
	if a.st.NDK.Supported() {
		return a.writeLocalProperties(a.root)
	}

	target, err := a.apiTarget(a.app)
	if err != nil {
		return err
	}
	if err := a.writeLocalProperties(a.app); err != nil {
		return err
	}
	if err := updateTargetLine(filepath.Join(a.app, "project.properties"), target); err != nil {
		return err
	}
	src := filepath.Join(a.app, "local.properties")
	dst := filepath.Join(a.root, "local.properties")
	if filepath.Clean(src) == filepath.Clean(dst) {
		return nil
	}
	return wrap("copying local.properties", stage.CopyFile(src, dst))
}

// apiTarget returns the android platform to build against: --ap, or the
// target= line of project.properties in dir. The platform must be installed.
func (a *androidBuild) apiTarget(dir string) (string, error) {
	target := a.st.Options.APITarget()
	if target == "" {
		level, err := readTargetLevel(filepath.Join(dir, "project.properties"))
		if err != nil {
			return "", err
		}
		target = fmt.Sprintf("android-%d", level)
	}
	if !platform.IsDir(filepath.Join(a.sdk, "platforms", target)) {
		return "", newError(PathNotFound, "android platform", "%s is not installed in %s", target, filepath.Join(a.sdk, "platforms"))
	}
	return target, nil
}

func readTargetLevel(path string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, newError(PathNotFound, "android target", "%s not found", path)
	}
	if err != nil {
		return 0, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.NewReplacer(" ", "", "\t", "").Replace(strings.TrimSpace(line))
		m := targetLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		level := apiLevelRe.FindStringSubmatch(m[1])
		if level == nil {
			return 0, newError(ParseFile, "android target", "%q in %s is not a valid android platform", m[1], path)
		}
		if n, _ := strconv.Atoi(level[1]); n > 0 {
			return n, nil
		}
	}
	return 0, newError(ParseFile, "android target", "no target= line in %s", path)
}

func updateTargetLine(path, target string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return wrap("updating project.properties", err)
	}
	lines := strings.SplitAfter(string(data), "\n")
	newLine := "target=" + target + "\n"
	matched := false
	for i, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "target=") {
			lines[i] = newLine
			matched = true
		}
	}
	if !matched {
		lines = append(lines, "\n", newLine)
	}
	return wrap("updating project.properties", os.WriteFile(path, []byte(strings.Join(lines, "")), 0644))
}

func (a *androidBuild) writeLocalProperties(dir string) error {
	ndk, err := toolchain.RequireEnv("NDK_ROOT")
	if err != nil {
		return err
	}
	sdk := a.sdk
	if a.st.GOOS == "windows" {
		sdk = strings.ReplaceAll(sdk, `\`, `\\`)
		ndk = strings.ReplaceAll(ndk, `\`, `\\`)
	}
	content := fmt.Sprintf("sdk.dir=%s\nndk.dir=%s\n", sdk, ndk)
	return wrap("writing local.properties", os.WriteFile(filepath.Join(dir, "local.properties"), []byte(content), 0644))
}

// NDKBuildCommand returns the ndk-build invocation.
func NDKBuildCommand(st *State, ndkRoot, appDir, toolchainVersion string) toolchain.Command {
	name := filepath.Join(ndkRoot, "ndk-build")
	if st.GOOS == "windows" {
		name += ".cmd"
	}
	args := []string{"-C", appDir, fmt.Sprintf("-j%d", st.Jobs)}
	if abis := st.Options.ABIs(); len(abis) > 0 {
		args = append(args, "APP_ABI="+strings.Join(abis, " "))
	}
	if st.Options.NDKToolchain != "" {
		args = append(args, "NDK_TOOLCHAIN="+st.Options.NDKToolchain)
	}
	args = append(args, "NDK_TOOLCHAIN_VERSION="+toolchainVersion)
	if st.Debug() {
		args = append(args, "NDK_DEBUG=1")
	}
	return toolchain.Command{Name: name, Args: args}
}

func (a *androidBuild) ndkBuild(ctx context.Context) error {
	logrus.Infof("Building native code with %s", a.st.NDKBuildType())
	ndk, err := toolchain.RequireEnv("NDK_ROOT")
	if err != nil {
		return err
	}
	tcVersion := os.Getenv("NDK_TOOLCHAIN_VERSION")
	if tcVersion == "" {
		tcVersion = defaultNDKToolchainVersion
	}

	args := a.st.StepArgs()
	if err := a.Hooks.Fire(ctx, steps.PreNDKBuild, platform.Android, args); err != nil {
		return err
	}

	restore, err := a.appendCppFlags()
	if err != nil {
		return err
	}
	defer restore()

	if err := removeStaleLibs(filepath.Join(a.app, "obj", "local")); err != nil {
		return err
	}
	if err := a.run(ctx, NDKBuildCommand(a.st, ndk, a.app, tcVersion)); err != nil {
		return &Error{Kind: BuildFailed, Op: "ndk-build", Err: err}
	}
	return a.Hooks.Fire(ctx, steps.PostNDKBuild, platform.Android, args)
}

// appendCppFlags adds --ndk-cppflags to Application.mk. The returned func
// puts the original content back.
func (a *androidBuild) appendCppFlags() (restore func(), err error) {
	noop := func() {}
	flags := a.st.Options.NDKCppFlags
	mk := filepath.Join(a.app, "jni", "Application.mk")
	if flags == "" || !platform.IsFile(mk) {
		return noop, nil
	}
	orig, err := os.ReadFile(mk)
	if err != nil {
		return noop, fmt.Errorf("reading Application.mk: %w", err)
	}
	updated := append(append([]byte{}, orig...), []byte("\nAPP_CPPFLAGS += "+flags)...)
	if err := os.WriteFile(mk, updated, 0644); err != nil {
		return noop, fmt.Errorf("writing Application.mk: %w", err)
	}
	return func() {
		if err := os.WriteFile(mk, orig, 0644); err != nil {
			logrus.Errorf("restoring Application.mk: %v", err)
		}
	}, nil
}

func removeStaleLibs(objLocal string) error {
	entries, err := os.ReadDir(objLocal)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(objLocal, e.Name())
		for _, ext := range []string{".a", ".so"} {
			if err := stage.RemoveFilesWithExt(dir, ext); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *androidBuild) projectName() string {
	data, err := os.ReadFile(filepath.Join(a.root, "settings.gradle"))
	if err != nil {
		return "app"
	}
	for _, line := range strings.Split(string(data), "\n") {
		if m := settingsNameRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			return m[1]
		}
	}
	return "app"
}

func (a *androidBuild) buildAPK(ctx context.Context) error {
	if !a.st.NDK.Supported() {
		if err := a.stageAssets(ctx); err != nil {
			return err
		}
	}
	if a.st.Options.NoAPK {
		return nil
	}
	logrus.Info("Building apk")

	release := !a.st.Debug()
	if release && !a.st.Options.NoSign && !a.hasKeystore() {
		if err := a.gatherSignInfo(); err != nil {
			return err
		}
	}
	if err := a.gradle(ctx); err != nil {
		return err
	}

	name := a.projectName()
	apk := fmt.Sprintf("%s-%s.apk", name, a.st.Mode)
	if release && a.st.Options.NoSign {
		apk = fmt.Sprintf("%s-%s-unsigned.apk", name, a.st.Mode)
	}
	src := filepath.Join(a.app, "build", "outputs", "apk", a.st.Mode, apk)
	if err := os.MkdirAll(a.st.OutputDir, 0755); err != nil {
		return err
	}
	dst := filepath.Join(a.st.OutputDir, apk)
	if err := stage.CopyFile(src, dst); err != nil {
		return wrap("copying apk", err)
	}
	if release && !a.st.Options.NoSign {
		signed := filepath.Join(a.st.OutputDir, fmt.Sprintf("%s-%s-signed.apk", name, a.st.Mode))
		if err := platform.RemovePath(signed); err != nil {
			return err
		}
		if err := os.Rename(dst, signed); err != nil {
			return err
		}
		dst = signed
	}
	logrus.Infof("Moved apk to %s", a.st.OutputDir)
	a.res.Artifact = dst
	return nil
}

// stageAssets recreates app/assets, copies resources into it and compiles
// the scripts there.
func (a *androidBuild) stageAssets(ctx context.Context) error {
	assets := filepath.Join(a.app, "assets")
	if err := stage.Recreate(assets); err != nil {
		return err
	}
	args, err := a.st.StepArgs().With(steps.ArgAssetsDir, assets)
	if err != nil {
		return wrap("copy-assets steps", err)
	}
	if err := a.Hooks.Fire(ctx, steps.PreCopyAssets, platform.Android, args); err != nil {
		return err
	}
	rep, err := stage.Apply(a.rules, a.cfg, assets)
	if err != nil {
		return wrap("copying assets", err)
	}
	a.res.Staged = rep
	if err := a.Hooks.Fire(ctx, steps.PostCopyAssets, platform.Android, args); err != nil {
		return err
	}

	c := a.compiler(a.st)
	switch a.st.Project.Language {
	case project.Lua:
		src := filepath.Join(assets, "src")
		src64 := filepath.Join(src, "64bit")
		switch a.luaArch() {
		case LuaArchOnly64:
			compiled, err := c.Lua(ctx, src, src64, true)
			if err != nil {
				return err
			}
			if compiled {
				if err := stage.RemoveTreeFilesWithExt(src, ".lua"); err != nil {
					return err
				}
				return platform.RemovePath(filepath.Join(src, "cocos"))
			}
		case LuaArchBoth:
			if _, err := c.Lua(ctx, src, src64, true); err != nil {
				return err
			}
			_, err := c.Lua(ctx, src, src, false)
			return err
		default:
			_, err := c.Lua(ctx, src, src, false)
			return err
		}
	case project.JS:
		_, err := c.JS(ctx, assets, assets)
		return err
	}
	return nil
}

// luaArch decides from --app-abi, else the APP_ABI lines of Application.mk.
func (a *androidBuild) luaArch() LuaArch {
	if abis := a.st.Options.ABIs(); len(abis) > 0 {
		return ParseLuaArch(strings.Join(abis, " "))
	}
	f, err := os.Open(filepath.Join(a.app, "jni", "Application.mk"))
	if err != nil {
		return LuaArchUnknown
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if !strings.Contains(line, "APP_ABI") {
			continue
		}
		if arch := ParseLuaArch(line); arch != LuaArchUnknown {
			return arch
		}
	}
	return LuaArchUnknown
}

// gatherSignInfo asks for keystore details and appends them to
// gradle.properties.
func (a *androidBuild) gatherSignInfo() error {
	in := bufio.NewReader(a.Prompt)
	ask := func(msg string) (string, error) {
		fmt.Fprint(a.PromptOut, msg)
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return "", newError(WrongArgs, "signing", "no answer for %q: %v", strings.TrimSpace(msg), err)
		}
		return strings.TrimSpace(line), nil
	}

	props := map[string]string{}
	for {
		path, err := ask("Please input the absolute/relative path of \".keystore\" file: ")
		if err != nil {
			return err
		}
		abs := path
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(a.app, path)
		}
		if platform.IsFile(abs) {
			props["RELEASE_STORE_FILE"] = strings.ReplaceAll(path, `\`, "/")
			break
		}
		fmt.Fprintln(a.PromptOut, "The input path is not a file!")
	}
	prompts := []struct{ key, msg string }{
		{"RELEASE_KEY_ALIAS", "Please input the alias: "},
		{"RELEASE_STORE_PASSWORD", "Please input the password of key store: "},
		{"RELEASE_KEY_PASSWORD", "Please input the password of alias: "},
	}
	for _, p := range prompts {
		v, err := ask(p.msg)
		if err != nil {
			return err
		}
		props[p.key] = v
	}
	return a.writeSigningProps(props)
}

// GradleProps returns the -P properties passed when gradle builds native
// code. apiLevel is 0 when no --ap was given.
func GradleProps(st *State, apiLevel int) map[string]string {
	props := map[string]string{propBuildType: st.NDKBuildType()}
	if apiLevel > 0 {
		props[propTargetSDK] = fmt.Sprint(apiLevel)
	}
	if abis := st.Options.ABIs(); len(abis) > 0 {
		props[propAppABI] = strings.Join(abis, ":")
	}
	if st.Project.IsScript() {
		props[propCompileScript] = boolProp(st.CompileScript)
	}
	if st.Project.Language == project.Lua && st.Options.LuaEncrypt {
		props[propLuaEncrypt] = "1"
		props[propLuaEncryptKey] = st.Options.LuaEncryptKey
		props[propLuaEncryptSign] = st.Options.LuaEncryptSign
	}
	return props
}

func boolProp(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// GradleCommand returns the gradlew invocation for the build.
func GradleCommand(st *State, gradlew string, props map[string]string) toolchain.Command {
	args := []string{"--parallel", "--info", "assemble" + st.ModeTitle()}
	for _, k := range sortedKeys(props) {
		args = append(args, fmt.Sprintf("-P%s=%s", k, props[k]))
	}
	return toolchain.Command{Name: gradlew, Args: args, Dir: st.Target.Dir}
}

func (a *androidBuild) gradle(ctx context.Context) error {
	a.checkGradleVersions()

	gradlew := filepath.Join(a.root, "gradlew")
	if a.st.GOOS == "windows" {
		gradlew += ".bat"
	}
	if !platform.IsFile(gradlew) {
		return newError(PathNotFound, "gradle", "%s does not exist", gradlew)
	}
	if a.st.GOOS != "windows" {
		if err := platform.MakeExecutable(gradlew); err != nil {
			return wrap("gradle", err)
		}
	}

	var props map[string]string
	if a.st.NDK.Supported() {
		level := 0
		if a.st.Options.AndroidPlatform != "" {
			target, err := a.apiTarget("")
			if err != nil {
				return err
			}
			level, _ = strconv.Atoi(strings.TrimPrefix(target, "android-"))
		}
		props = GradleProps(a.st, level)
	}
	if err := a.run(ctx, GradleCommand(a.st, gradlew, props)); err != nil {
		return &Error{Kind: BuildFailed, Op: "gradle", Err: err}
	}
	return nil
}

// checkGradleVersions warns when app/build.gradle asks for SDK parts that
// are not installed.
func (a *androidBuild) checkGradleVersions() {
	data, err := os.ReadFile(filepath.Join(a.app, "build.gradle"))
	if err != nil {
		return
	}
	var compileSDK, buildTools string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if m := compileSDKRe.FindStringSubmatch(line); m != nil {
			compileSDK = m[1]
		}
		if m := buildToolsRe.FindStringSubmatch(line); m != nil {
			buildTools = m[1]
		}
	}
	if compileSDK != "" {
		dir := filepath.Join(a.sdk, "platforms", "android-"+compileSDK)
		if !platform.IsDir(dir) {
			a.res.warn("compileSdkVersion %s is set in build.gradle but %s is missing", compileSDK, dir)
		}
	}
	if buildTools != "" {
		dir := filepath.Join(a.sdk, "build-tools", buildTools)
		if !platform.IsDir(dir) {
			a.res.warn("buildToolsVersion %s is set in build.gradle but %s is missing", buildTools, dir)
		}
	}
}

type androidManifest struct {
	Package     string `xml:"package,attr"`
	Application struct {
		Activities []struct {
			Name string `xml:"http://schemas.android.com/apk/res/android name,attr"`
		} `xml:"activity"`
	} `xml:"application"`
}

// apkInfo returns the application id and the launch activity.
func (a *androidBuild) apkInfo() (pkg, activity string, err error) {
	if data, err := os.ReadFile(filepath.Join(a.app, "build.gradle")); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			if m := applicationIDRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
				pkg = m[1]
				break
			}
		}
	}

	data, err := os.ReadFile(filepath.Join(a.app, "AndroidManifest.xml"))
	if err != nil {
		return "", "", err
	}
	var m androidManifest
	if err := xml.Unmarshal(data, &m); err != nil {
		return "", "", fmt.Errorf("parsing AndroidManifest.xml: %w", err)
	}
	if pkg == "" {
		pkg = m.Package
	}
	if len(m.Application.Activities) == 0 {
		return pkg, "", errors.New("no activity in AndroidManifest.xml")
	}
	activity = m.Application.Activities[0].Name
	if strings.HasPrefix(activity, ".") {
		activity = pkg + activity
	}
	return pkg, activity, nil
}
