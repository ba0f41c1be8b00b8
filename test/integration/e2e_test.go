//go:build integration

package integration_test

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// TestCompileLinuxWithStubToolchain drives a full linux build through real
// subprocesses: cmake and make are shell stubs that lay out the build tree
// the way the real tools would.
func TestCompileLinuxWithStubToolchain(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux builds only run on linux hosts")
	}
	env := setupTestEnv(t)

	writeFile(t, filepath.Join(env.ProjectDir, ".cocos-project.json"), `{"project_type": "cpp"}`)
	writeFile(t, filepath.Join(env.ProjectDir, "CMakeLists.txt"), "set(APP_NAME StubGame)\n")
	writeFile(t, filepath.Join(env.ProjectDir, "proj.linux", "main.cpp"), "int main() {}\n")

	writeStub(t, env.BinDir, "cmake", `echo "$@" > cmake.args
`)
	writeStub(t, env.BinDir, "make", `mkdir -p bin/Debug/StubGame/Resources
echo elf > bin/Debug/StubGame/StubGame
echo png > bin/Debug/StubGame/Resources/icon.png
`)

	out, code := ccbuild(t, "compile", "-p", "linux", "-s", env.ProjectDir, "-j", "2")
	if code != 0 {
		t.Fatalf("compile exit %d:\n%s", code, out)
	}

	buildDir := filepath.Join(env.ProjectDir, "linux-build")
	assertFileContains(t, filepath.Join(buildDir, "cmake.args"), "-DCMAKE_BUILD_TYPE=Debug -DDEBUG_MODE=ON ..")

	outDir := filepath.Join(env.ProjectDir, "bin", "debug", "linux")
	assertFileExists(t, filepath.Join(outDir, "StubGame"))
	assertFileExists(t, filepath.Join(outDir, "Resources", "icon.png"))
	if !strings.Contains(out, "linux build succeeded") {
		t.Errorf("missing success report:\n%s", out)
	}
}

// TestCompileFailureExitCode checks that a failing native tool surfaces as
// the build-failed exit status.
func TestCompileFailureExitCode(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux builds only run on linux hosts")
	}
	env := setupTestEnv(t)

	writeFile(t, filepath.Join(env.ProjectDir, ".cocos-project.json"), `{"project_type": "cpp"}`)
	writeFile(t, filepath.Join(env.ProjectDir, "CMakeLists.txt"), "set(APP_NAME StubGame)\n")
	writeFile(t, filepath.Join(env.ProjectDir, "proj.linux", "main.cpp"), "int main() {}\n")
	writeStub(t, env.BinDir, "cmake", "exit 0\n")
	writeStub(t, env.BinDir, "make", "echo 'error: boom' >&2\nexit 2\n")

	out, code := ccbuild(t, "compile", "-p", "linux", "-s", env.ProjectDir)
	if code != 13 {
		t.Fatalf("exit code = %d, want 13:\n%s", code, out)
	}
}

func TestCompileUnknownPlatformExitCode(t *testing.T) {
	env := setupTestEnv(t)
	writeFile(t, filepath.Join(env.ProjectDir, ".cocos-project.json"), `{"project_type": "cpp"}`)
	writeFile(t, filepath.Join(env.ProjectDir, "proj.android", "AndroidManifest.xml"), "<manifest/>")

	out, code := ccbuild(t, "compile", "-p", "amiga", "-s", env.ProjectDir)
	if code != 11 {
		t.Fatalf("exit code = %d, want 11:\n%s", code, out)
	}
}

func TestMissingProjectExitCode(t *testing.T) {
	env := setupTestEnv(t)
	_, code := ccbuild(t, "compile", "-p", "android", "-s", env.ProjectDir)
	if code != 12 {
		t.Fatalf("exit code = %d, want 12", code)
	}
}

func TestCfgMigrateKeepsBackup(t *testing.T) {
	env := setupTestEnv(t)
	cfgDir := filepath.Join(env.ProjectDir, "proj.win32")
	writeFile(t, filepath.Join(cfgDir, "build-cfg.json"), `{"copy_files": ["../Resources/"], "must_copy_files": ["../config.json"]}`)

	out, code := ccbuild(t, "cfg", "migrate", cfgDir, "-p", "win32")
	if code != 0 {
		t.Fatalf("migrate exit %d:\n%s", code, out)
	}
	assertFileContains(t, filepath.Join(cfgDir, "build-cfg.json"), "must_copy_resources")

	backups, err := filepath.Glob(filepath.Join(cfgDir, "build-cfg-for-v0.1.*.json"))
	if err != nil || len(backups) != 1 {
		t.Fatalf("backups = %v (%v), want exactly one", backups, err)
	}
	assertFileContains(t, backups[0], "copy_files")

	out, code = ccbuild(t, "cfg", "validate", cfgDir)
	if code != 0 {
		t.Fatalf("validate exit %d:\n%s", code, out)
	}
}

func TestCfgValidateRejectsBadRules(t *testing.T) {
	env := setupTestEnv(t)
	path := filepath.Join(env.ProjectDir, "build-cfg.json")
	writeFile(t, path, `{"copy_resources": [{"to": "res"}]}`)

	out, code := ccbuild(t, "cfg", "validate", path)
	if code != 18 {
		t.Fatalf("exit code = %d, want 18:\n%s", code, out)
	}
	if !strings.Contains(out, "[FAIL]") {
		t.Errorf("missing failure report:\n%s", out)
	}
}

func TestConfigRoundTripThroughHome(t *testing.T) {
	env := setupTestEnv(t)

	if out, code := ccbuild(t, "config", "set", "web.tools_dir", "/opt/closure"); code != 0 {
		t.Fatalf("set exit %d:\n%s", code, out)
	}
	assertFileContains(t, filepath.Join(env.HomeDir, "config.yaml"), "/opt/closure")

	out, code := ccbuild(t, "config", "get", "web.tools_dir")
	if code != 0 || strings.TrimSpace(out) != "/opt/closure" {
		t.Fatalf("get = %q (exit %d)", out, code)
	}
}

func TestTestEnvPassesExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	env := setupTestEnv(t)
	writeStub(t, env.BinDir, "probe", `[ "$GAME_MODE" = "smoke" ] || exit 9
exit 4
`)

	_, code := ccbuild(t, "test-env", "--env", "GAME_MODE=smoke", "--", "probe")
	if code != 4 {
		t.Fatalf("exit code = %d, want 4", code)
	}
	assertFileNotExists(t, filepath.Join(env.BinDir, "Xvfb.log"))
}
