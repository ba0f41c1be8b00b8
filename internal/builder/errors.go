package builder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"

	"github.com/gamekit-labs/ccbuild/internal/buildcfg"
	"github.com/gamekit-labs/ccbuild/internal/platform"
	"github.com/gamekit-labs/ccbuild/internal/project"
	"github.com/gamekit-labs/ccbuild/internal/toolchain"
)

// Kind classifies a failure. Its value is the process exit code.
type Kind int

const (
	WrongArgs      Kind = 11
	PathNotFound   Kind = 12
	BuildFailed    Kind = 13
	RunningCmd     Kind = 14
	CmdNotFound    Kind = 15
	EnvVarNotFound Kind = 16
	ToolsNotFound  Kind = 17
	ParseFile      Kind = 18
	WrongConfig    Kind = 19
	Other          Kind = 101
)

var kindNames = map[Kind]string{
	WrongArgs:      "wrong arguments",
	PathNotFound:   "path not found",
	BuildFailed:    "build failed",
	RunningCmd:     "command failed",
	CmdNotFound:    "command not found",
	EnvVarNotFound: "environment variable not set",
	ToolsNotFound:  "tools not found",
	ParseFile:      "parse error",
	WrongConfig:    "wrong configuration",
	Other:          "error",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is a classified build failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// wrap classifies err for op. An err that already carries a Kind keeps it.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return err
	}
	return &Error{Kind: classify(err), Op: op, Err: err}
}

func classify(err error) Kind {
	var (
		exitErr *toolchain.ExitError
		toolErr *toolchain.ToolError
		envErr  *toolchain.EnvVarError
		vsErr   *toolchain.VSVersionError
		selErr  *platform.SelectionError
		execErr *exec.Error
		synErr  *json.SyntaxError
		typeErr *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &exitErr):
		return BuildFailed
	case errors.As(err, &toolErr), errors.Is(err, toolchain.ErrVSNotFound):
		return ToolsNotFound
	case errors.As(err, &execErr):
		return CmdNotFound
	case errors.As(err, &envErr):
		return EnvVarNotFound
	case errors.As(err, &vsErr), errors.As(err, &selErr):
		return WrongArgs
	case errors.Is(err, platform.ErrNoPlatforms):
		return WrongConfig
	case errors.Is(err, buildcfg.ErrInvalid), errors.Is(err, project.ErrInvalid),
		errors.As(err, &synErr), errors.As(err, &typeErr):
		return ParseFile
	case errors.Is(err, project.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return PathNotFound
	default:
		return Other
	}
}

// ExitCode maps err to a process exit code: 0 for nil, the Kind of a
// builder error, or the classification of any other error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var be *Error
	if errors.As(err, &be) {
		return int(be.Kind)
	}
	return int(classify(err))
}
