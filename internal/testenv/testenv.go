package testenv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gamekit-labs/ccbuild/internal/toolchain"
	"github.com/sirupsen/logrus"
)

// Exit codes reported by the wrapper itself.
const (
	ExitUsage     = 2
	ExitNoDisplay = 3
)

// Display is the X display the virtual server is started on.
const Display = ":9"

// Launcher starts background processes.
type Launcher interface {
	Start(ctx context.Context, c toolchain.Command) (stop func(), err error)
}

// Options describe one wrapped run.
type Options struct {
	Command  []string
	Xvfb     bool
	BuildDir string   // holds the xdisplaycheck helper
	Env      []string // KEY=VALUE overrides
	EnvFile  string
}

// UsageError reports invalid wrapper arguments.
type UsageError struct{ Msg string }

func (e *UsageError) Error() string { return e.Msg }

// Wrapper runs test commands.
type Wrapper struct {
	Runner   toolchain.Runner
	Launcher Launcher
	GOOS     string
}

// Run executes the command and returns its exit code. A non-nil error is
// returned only when the command could not be started or the wrapper failed;
// the code is then ExitUsage, ExitNoDisplay or 1.
func (w *Wrapper) Run(ctx context.Context, opts Options) (int, error) {
	if len(opts.Command) == 0 {
		return ExitUsage, &UsageError{Msg: "no command given"}
	}
	env, err := buildEnv(opts)
	if err != nil {
		return ExitUsage, err
	}

	if opts.Xvfb && w.GOOS == "linux" {
		if opts.BuildDir == "" {
			return ExitUsage, &UsageError{Msg: "--xvfb needs --build-dir"}
		}
		stop, err := w.Launcher.Start(ctx, toolchain.Command{
			Name: "Xvfb",
			Args: []string{Display, "-screen", "0", "1024x768x24", "-ac"},
		})
		if err != nil {
			return ExitNoDisplay, fmt.Errorf("starting Xvfb: %w", err)
		}
		defer stop()
		env["DISPLAY"] = Display

		check := toolchain.Command{Name: filepath.Join(opts.BuildDir, "xdisplaycheck"), Env: env}
		if _, err := w.Runner.Output(ctx, check); err != nil {
			return ExitNoDisplay, fmt.Errorf("virtual display did not come up: %w", err)
		}

		// Some tests need a window manager; it is optional.
		if stopWM, err := w.Launcher.Start(ctx, toolchain.Command{Name: "icewm", Env: env}); err != nil {
			logrus.Debugf("icewm not started: %v", err)
		} else {
			defer stopWM()
		}
	}

	c := toolchain.Command{Name: opts.Command[0], Args: opts.Command[1:], Env: env}
	err = w.Runner.Run(ctx, c)
	var exitErr *toolchain.ExitError
	switch {
	case err == nil:
		return 0, nil
	case errors.As(err, &exitErr):
		return exitErr.Code, nil
	default:
		return 1, err
	}
}

func buildEnv(opts Options) (map[string]string, error) {
	var list []string
	if opts.EnvFile != "" {
		data, err := os.ReadFile(opts.EnvFile)
		if err != nil {
			return nil, &UsageError{Msg: fmt.Sprintf("reading env file: %v", err)}
		}
		list = toolchain.ParseEnvFile(list, data)
	}
	for _, kv := range opts.Env {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, &UsageError{Msg: fmt.Sprintf("invalid --env %q, want KEY=VALUE", kv)}
		}
		list = toolchain.SetEnv(list, key, value)
	}

	env := make(map[string]string, len(list))
	for _, kv := range list {
		key, value, _ := strings.Cut(kv, "=")
		env[key] = value
	}
	return env, nil
}
