package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/gamekit-labs/ccbuild/internal/builder"
	"github.com/gamekit-labs/ccbuild/internal/config"
	"github.com/gamekit-labs/ccbuild/internal/toolchain"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the host for the tools each platform build needs",
		Long: `Run diagnostic checks on the build host: native toolchains, the script
compiler, the SDK environment variables and the web tools directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := &doctor{
				out:      cmd.OutOrStdout(),
				goos:     runtime.GOOS,
				lookPath: toolchain.LookPath,
				getenv:   os.Getenv,
				vs:       toolchain.NewVisualStudio(),
			}
			return d.run()
		},
	}
}

// doctor holds the host probes so they can be replaced in tests.
type doctor struct {
	out      io.Writer
	goos     string
	lookPath func(name, hint string) (string, error)
	getenv   func(string) string
	vs       *toolchain.VisualStudio

	missing []string
}

func (d *doctor) run() error {
	d.toolsCheck()
	d.envCheck()
	d.configCheck()
	if len(d.missing) > 0 {
		return &builder.Error{
			Kind: builder.ToolsNotFound,
			Op:   "doctor",
			Err:  fmt.Errorf("missing: %s", strings.Join(d.missing, ", ")),
		}
	}
	return nil
}

func (d *doctor) toolsCheck() {
	fmt.Fprintln(d.out, "Toolchain check:")
	d.binary("java", true)
	d.binary(config.Get(config.KeyScriptCompiler), false)
	switch d.goos {
	case "linux":
		d.binary("cmake", true)
		d.binary("make", true)
	case "darwin":
		d.binary("xcodebuild", true)
		d.binary("xcpretty", false)
		d.binary("pod", false)
	case "windows":
		d.visualStudio()
	}
}

// toolHints tell the user how to get a missing tool.
var toolHints = map[string]string{
	"java":       "install a JDK and put java on PATH",
	"cmake":      "install cmake from your package manager",
	"make":       "install build-essential or your distribution's make",
	"xcodebuild": "install Xcode and run xcode-select --install",
	"xcpretty":   "gem install xcpretty",
	"pod":        "gem install cocoapods",
}

func (d *doctor) binary(name string, required bool) {
	if name == "" {
		return
	}
	path, err := d.lookPath(name, toolHints[name])
	if err == nil {
		fmt.Fprintf(d.out, "  [ OK ] %s found at %s\n", name, path)
		return
	}
	if required {
		fmt.Fprintf(d.out, "  [MISS] %v\n", err)
		d.missing = append(d.missing, name)
		return
	}
	fmt.Fprintf(d.out, "  [WARN] %v (optional)\n", err)
}

func (d *doctor) visualStudio() {
	versions := d.vs.Registry.Versions()
	if len(versions) == 0 {
		fmt.Fprintln(d.out, "  [MISS] no Visual Studio installation in the registry")
		d.missing = append(d.missing, "Visual Studio")
		return
	}
	fmt.Fprintf(d.out, "  [ OK ] Visual Studio versions: %s\n", strings.Join(versions, ", "))
	path, _, err := d.vs.Devenv(toolchain.VSRequest{Minimum: 2013})
	if err != nil {
		fmt.Fprintf(d.out, "  [WARN] devenv: %v\n", err)
		return
	}
	fmt.Fprintf(d.out, "  [ OK ] devenv at %s\n", path)
}

func (d *doctor) envCheck() {
	fmt.Fprintln(d.out, "Environment check:")
	for _, name := range []string{"ANDROID_SDK_ROOT", "NDK_ROOT", "ANT_ROOT"} {
		if v := d.getenv(name); v != "" {
			fmt.Fprintf(d.out, "  [ OK ] %s=%s\n", name, v)
			continue
		}
		fmt.Fprintf(d.out, "  [WARN] %s is not set\n", name)
	}
}

func (d *doctor) configCheck() {
	fmt.Fprintln(d.out, "Config check:")
	fmt.Fprintf(d.out, "  [ OK ] config file %s\n", config.FilePath())
	if dir := config.Get(config.KeyWebToolsDir); dir != "" {
		fmt.Fprintf(d.out, "  [ OK ] %s=%s\n", config.KeyWebToolsDir, dir)
	} else {
		fmt.Fprintf(d.out, "  [WARN] %s is not set; web release builds will fail\n", config.KeyWebToolsDir)
	}
}
