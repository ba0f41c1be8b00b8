package cli

import (
	"context"

	"github.com/gamekit-labs/ccbuild/internal/branding"
	"github.com/gamekit-labs/ccbuild/internal/config"
	"github.com/gamekit-labs/ccbuild/internal/logging"
	"github.com/gamekit-labs/ccbuild/internal/toolchain"
	"github.com/spf13/cobra"
)

// BuildInfo is injected via ldflags at build time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// app is the state shared by the commands of one invocation.
type app struct {
	info    BuildInfo
	verbose bool
	logFile string
	session *logging.Session
}

// runner returns a subprocess runner whose output is mirrored into the build
// log when one is configured.
func (a *app) runner(cmd *cobra.Command) *toolchain.ExecRunner {
	return &toolchain.ExecRunner{
		Stdout: a.session.ToolOutput(cmd.OutOrStdout()),
		Stderr: a.session.ToolOutput(cmd.ErrOrStderr()),
	}
}

func (a *app) close() {
	_ = a.session.Close()
	a.session = nil
}

func newRoot(info BuildInfo) (*cobra.Command, *app) {
	a := &app{info: info}
	root := &cobra.Command{
		Use:   branding.CLIName(),
		Short: branding.Description(),
		Long: branding.DisplayName() + ` compiles cocos2d-x projects for android, ios, mac, win32, metro,
linux and web. It stages resources, compiles lua/js scripts and drives the
native toolchains (gradle, ndk-build, xcodebuild, Visual Studio, cmake, ant).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.Load()
			logFile := a.logFile
			if logFile == "" {
				logFile = config.Get(config.KeyLogFile)
			}
			if logFile != "" {
				logFile = toolchain.ExpandPath(logFile)
			}
			s, err := logging.Setup(logging.Options{
				Verbose: a.verbose || config.GetBool(config.KeyVerbose),
				LogFile: logFile,
				Output:  cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			a.session = s
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "Print debug output")
	root.PersistentFlags().StringVar(&a.logFile, "log-file", "", "Also write the build log to this file")

	root.AddCommand(
		newCompileCmd(a),
		newCfgCmd(),
		newPlatformsCmd(),
		newTestEnvCmd(a),
		newDoctorCmd(),
		newConfigCmd(),
		newVersionCmd(a),
	)
	a.closeAfterRun(root)
	return root, a
}

// closeAfterRun wraps every RunE in the tree so the session opened by the
// persistent pre-run is closed whether or not the command fails.
func (a *app) closeAfterRun(cmd *cobra.Command) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(c *cobra.Command, args []string) error {
			defer a.close()
			return run(c, args)
		}
	}
	for _, sub := range cmd.Commands() {
		a.closeAfterRun(sub)
	}
}

// NewRootCmd returns a fresh command tree.
func NewRootCmd(info BuildInfo) *cobra.Command {
	root, _ := newRoot(info)
	return root
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	root, a := newRoot(BuildInfo{Version: version, Commit: commit, Date: date})
	defer a.close()
	return root.ExecuteContext(context.Background())
}
