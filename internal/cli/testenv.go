package cli

import (
	"runtime"

	"github.com/gamekit-labs/ccbuild/internal/testenv"
	"github.com/spf13/cobra"
)

func newTestEnvCmd(a *app) *cobra.Command {
	opts := testenv.Options{}
	cmd := &cobra.Command{
		Use:   "test-env [flags] -- command [args...]",
		Short: "Run a test command with extra environment and an optional virtual display",
		Long: `Run a command with additional environment variables. With --xvfb on linux,
an Xvfb server and the icewm window manager are started first and DISPLAY is
exported; <build-dir>/xdisplaycheck must succeed before the command runs.

The exit status is the command's own. 2 means bad arguments and 3 means the
virtual display did not come up.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Command = args
			r := a.runner(cmd)
			w := &testenv.Wrapper{Runner: r, Launcher: r, GOOS: runtime.GOOS}
			code, err := w.Run(cmd.Context(), opts)
			if err != nil {
				return &ExitError{Code: code, Err: err}
			}
			if code != 0 {
				return &ExitError{Code: code}
			}
			return nil
		},
	}
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().BoolVar(&opts.Xvfb, "xvfb", false, "Start a virtual X display (linux only)")
	cmd.Flags().StringVar(&opts.BuildDir, "build-dir", "", "Directory holding the xdisplaycheck helper")
	cmd.Flags().StringArrayVar(&opts.Env, "env", nil, "Environment override KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&opts.EnvFile, "env-file", "", "File of KEY=VALUE lines to add to the environment")
	return cmd
}
