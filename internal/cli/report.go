package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gamekit-labs/ccbuild/internal/builder"
)

var (
	okMark   = color.New(color.FgGreen, color.Bold).Sprint("✓")
	failMark = color.New(color.FgRed, color.Bold).Sprint("✗")
	warnText = color.New(color.FgYellow).SprintFunc()
	keyText  = color.New(color.Faint).SprintFunc()
)

// printReport writes the end-of-build summary.
func printReport(w io.Writer, res *builder.Result) {
	fmt.Fprintf(w, "%s %s build succeeded\n", okMark, res.Platform)
	line := func(key, value string) {
		if value != "" {
			fmt.Fprintf(w, "  %s %s\n", keyText(fmt.Sprintf("%-10s", key+":")), value)
		}
	}
	line("output", res.OutputDir)
	line("artifact", res.Artifact)
	line("run root", res.RunRoot)
	line("url path", res.SubURL)
	line("package", res.AndroidPackage)
	line("activity", res.AndroidActivity)
	if res.Staged.Rules > 0 {
		line("resources", res.Staged.String())
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "  %s\n", warnText("warning: "+warn))
	}
}

// PrintError reports err once. Errors carrying only an exit code print
// nothing.
func PrintError(w io.Writer, err error) {
	var ee *ExitError
	if errors.As(err, &ee) && ee.Err == nil {
		return
	}
	var be *builder.Error
	if errors.As(err, &be) {
		fmt.Fprintf(w, "%s %s (%s)\n", failMark, err, be.Kind)
		return
	}
	fmt.Fprintf(w, "%s %s\n", failMark, err)
}

// ExitError carries an explicit process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return builder.ExitCode(err)
}
