package platform

import (
	"errors"
	"fmt"
	"strings"
)

// Platform is a build target.
type Platform int

const (
	Unknown Platform = iota
	Android
	IOS
	Mac
	Win32
	Web
	Linux
	Metro
)

// All lists every platform in display order.
var All = []Platform{Android, IOS, Mac, Win32, Web, Linux, Metro}

var names = map[Platform]string{
	Android: "android",
	IOS:     "ios",
	Mac:     "mac",
	Win32:   "win32",
	Web:     "web",
	Linux:   "linux",
	Metro:   "metro",
}

// String returns the command-line name of the platform.
func (p Platform) String() string {
	if n, ok := names[p]; ok {
		return n
	}
	return "unknown"
}

// Parse resolves a platform name case-insensitively.
func Parse(name string) (Platform, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for p, n := range names {
		if n == name {
			return p, nil
		}
	}
	return Unknown, fmt.Errorf("unknown platform %q (valid: %s)", name, strings.Join(Names(All), ", "))
}

// Names returns the names of ps.
func Names(ps []Platform) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.String()
	}
	return out
}

// IsApple reports whether p builds through Xcode.
func (p Platform) IsApple() bool { return p == IOS || p == Mac }

// IsWindows reports whether p builds through Visual Studio.
func (p Platform) IsWindows() bool { return p == Win32 || p == Metro }

// hostPlatforms lists, per GOOS, which platforms the host can build.
var hostPlatforms = map[string][]Platform{
	"linux":   {Web, Linux, Android},
	"darwin":  {Web, IOS, Mac, Android},
	"windows": {Web, Win32, Android, Metro},
}

// HostSupports reports whether a host with the given GOOS can build p.
func HostSupports(goos string, p Platform) bool {
	for _, hp := range hostPlatforms[goos] {
		if hp == p {
			return true
		}
	}
	return false
}

// ErrNoPlatforms is returned by Select when nothing can be built.
var ErrNoPlatforms = errors.New("no platform can be built from this project on this host")

// SelectionError is returned by Select for an unusable platform request.
type SelectionError struct {
	Requested string
	Available []Platform
}

func (e *SelectionError) Error() string {
	avail := strings.Join(Names(e.Available), ", ")
	if e.Requested == "" {
		return fmt.Sprintf("please specify a platform with -p (available: %s)", avail)
	}
	return fmt.Sprintf("platform %q is not available (available: %s)", e.Requested, avail)
}

// Select picks the platform to build. An empty name is accepted only when a
// single platform is available.
func Select(available []Platform, name string) (Platform, error) {
	if len(available) == 0 {
		return Unknown, ErrNoPlatforms
	}
	if name == "" {
		if len(available) == 1 {
			return available[0], nil
		}
		return Unknown, &SelectionError{Available: available}
	}

	p, err := Parse(name)
	if err != nil {
		return Unknown, &SelectionError{Requested: name, Available: available}
	}
	for _, a := range available {
		if a == p {
			return p, nil
		}
	}
	return Unknown, &SelectionError{Requested: name, Available: available}
}
