//go:build !windows

package toolchain

type noRegistry struct{}

// SystemRegistry returns a reader with no Visual Studio installs on
// non-Windows hosts.
func SystemRegistry() VSRegistry { return noRegistry{} }

func (noRegistry) Versions() []string { return nil }

func (noRegistry) DevenvDir(string) (string, bool) { return "", false }

func (noRegistry) MSBuildDir(string) (string, bool) { return "", false }
