package cli

import (
	"encoding/json"
	"fmt"
	"runtime"
	"text/tabwriter"

	"github.com/gamekit-labs/ccbuild/internal/project"
	"github.com/gamekit-labs/ccbuild/internal/toolchain"
	"github.com/spf13/cobra"
)

// platformEntry is one buildable platform for display.
type platformEntry struct {
	Platform string `json:"platform"`
	Project  string `json:"project"`
}

func newPlatformsCmd() *cobra.Command {
	var (
		source  string
		projDir string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "platforms",
		Short: "List the platforms this project can be built for on this host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := project.Find(toolchain.ExpandPath(source))
			if err != nil {
				return err
			}
			available, targets, err := proj.Available(runtime.GOOS, projDir)
			if err != nil {
				return err
			}

			entries := make([]platformEntry, 0, len(available))
			for _, pl := range available {
				entries = append(entries, platformEntry{Platform: pl.String(), Project: targets[pl].Dir})
			}

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := json.MarshalIndent(entries, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintf(out, "No platform of this %s project can be built on %s.\n", proj.Language, runtime.GOOS)
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "PLATFORM\tPROJECT")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\n", e.Platform, e.Project)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&source, "src", "s", ".", "Project directory or any directory below it")
	cmd.Flags().StringVar(&projDir, "proj-dir", "", "Native project directory, relative to the project root")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}
