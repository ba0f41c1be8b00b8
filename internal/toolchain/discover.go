package toolchain

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"github.com/shirou/gopsutil/v3/cpu"
)

// ToolError reports a required tool that could not be found.
type ToolError struct {
	Tool string
	Hint string
}

func (e *ToolError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s not found: %s", e.Tool, e.Hint)
	}
	return fmt.Sprintf("%s not found", e.Tool)
}

// LookPath finds an executable on PATH, returning a *ToolError when absent.
func LookPath(name, hint string) (string, error) {
	p, err := exec.LookPath(name)
	if err != nil {
		return "", &ToolError{Tool: name, Hint: hint}
	}
	return p, nil
}

// HasTool reports whether name is on PATH.
func HasTool(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// CPUCount returns the number of logical CPUs, at least 1.
func CPUCount() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

var (
	xcodeVersionRe = regexp.MustCompile(`Xcode\s+(\d+(?:\.\d+)*)`)
	javaVersionRe  = regexp.MustCompile(`version\s+"(\d+)(?:\.(\d+))?`)
)

// ParseXcodeVersion extracts the version from `xcodebuild -version` output.
func ParseXcodeVersion(out string) (*semver.Version, error) {
	m := xcodeVersionRe.FindStringSubmatch(out)
	if m == nil {
		return nil, fmt.Errorf("unexpected xcodebuild -version output %q", out)
	}
	return semver.NewVersion(m[1])
}

// XcodeVersion runs `xcodebuild -version` and parses its output.
func XcodeVersion(ctx context.Context, r Runner) (*semver.Version, error) {
	out, err := r.Output(ctx, Command{Name: "xcodebuild", Args: []string{"-version"}})
	if err != nil {
		return nil, fmt.Errorf("querying Xcode version: %w", err)
	}
	return ParseXcodeVersion(out)
}

// ParseJavaVersion extracts major.minor from `java -version` output. Legacy
// JDKs report "1.6.0_65"; newer ones report "17.0.2".
func ParseJavaVersion(out string) (*semver.Version, error) {
	m := javaVersionRe.FindStringSubmatch(out)
	if m == nil {
		return nil, fmt.Errorf("unexpected java -version output %q", out)
	}
	minor := m[2]
	if minor == "" {
		minor = "0"
	}
	return semver.NewVersion(m[1] + "." + minor)
}

// JavaVersion runs `java -version` and parses its output.
func JavaVersion(ctx context.Context, r Runner) (*semver.Version, error) {
	out, err := r.Output(ctx, Command{Name: "java", Args: []string{"-version"}})
	if err != nil {
		return nil, fmt.Errorf("querying java version: %w", err)
	}
	return ParseJavaVersion(out)
}
