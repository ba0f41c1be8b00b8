package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gamekit-labs/ccbuild/internal/buildcfg"
	"github.com/gamekit-labs/ccbuild/internal/builder"
	"github.com/gamekit-labs/ccbuild/internal/platform"
	"github.com/spf13/cobra"
)

func newCfgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cfg",
		Short: "Inspect and upgrade build-cfg.json files",
	}
	cmd.AddCommand(newCfgMigrateCmd(), newCfgValidateCmd())
	return cmd
}

func newCfgMigrateCmd() *cobra.Command {
	var pl string
	cmd := &cobra.Command{
		Use:   "migrate [dir|file]",
		Short: "Rewrite legacy copy keys into copy_resources / must_copy_resources",
		Long: `Rewrite the legacy android (copy_to_assets) and win32 (copy_files) keys of a
build-cfg.json into the canonical keys. The previous file is kept next to it
under a timestamped name. Files without legacy keys are left untouched.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := platform.Parse(pl)
			if err != nil {
				return &builder.Error{Kind: builder.WrongArgs, Op: "cfg migrate", Err: err}
			}
			target := "."
			if len(args) == 1 {
				target = args[0]
			}
			path := target
			if platform.IsDir(target) {
				path = filepath.Join(target, buildcfg.FileName)
			}

			res, err := buildcfg.Migrate(path, p.String())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !res.Migrated {
				fmt.Fprintf(out, "%s: nothing to migrate\n", path)
				return nil
			}
			fmt.Fprintf(out, "%s Migrated %s (%s)\n", okMark, path, strings.Join(res.Keys, ", "))
			fmt.Fprintf(out, "  previous version saved as %s\n", res.BackupPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&pl, "platform", "p", "", "Platform whose legacy keys to convert (android, win32)")
	_ = cmd.MarkFlagRequired("platform")
	return cmd
}

func newCfgValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a build-cfg.json against the schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if platform.IsDir(path) {
				path = filepath.Join(path, buildcfg.FileName)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Build config validation: %s\n", path)

			result, err := buildcfg.ValidateFile(path)
			if err != nil {
				fmt.Fprintf(out, "  [FAIL] %v\n", err)
				return err
			}
			if result.Valid {
				fmt.Fprintln(out, "  [ OK ] Valid build config")
				return nil
			}

			fmt.Fprintf(out, "  [FAIL] %d validation issue(s):\n", len(result.Issues))
			for _, issue := range result.Issues {
				if issue.Path != "" {
					fmt.Fprintf(out, "    - %s: %s\n", issue.Path, issue.Message)
				} else {
					fmt.Fprintf(out, "    - %s\n", issue.Message)
				}
			}
			return fmt.Errorf("%s: %w: %d issue(s)", path, buildcfg.ErrInvalid, len(result.Issues))
		},
	}
}
