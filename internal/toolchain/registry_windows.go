//go:build windows

package toolchain

import (
	"regexp"

	"golang.org/x/sys/windows/registry"
)

var registryVersionRe = regexp.MustCompile(`^(\d+)\.(\d+)`)

// views are searched in order: the 64-bit hive, then the WOW64 32-bit hive.
var views = []uint32{registry.WOW64_64KEY, registry.WOW64_32KEY}

type windowsRegistry struct{}

// SystemRegistry returns the Windows registry reader.
func SystemRegistry() VSRegistry { return windowsRegistry{} }

func (windowsRegistry) Versions() []string {
	seen := map[string]bool{}
	var out []string
	for _, view := range views {
		k, err := registry.OpenKey(registry.LOCAL_MACHINE, `SOFTWARE\Microsoft\VisualStudio`, registry.ENUMERATE_SUB_KEYS|view)
		if err != nil {
			continue
		}
		names, _ := k.ReadSubKeyNames(-1)
		k.Close()
		for _, name := range names {
			m := registryVersionRe.FindStringSubmatch(name)
			if m == nil {
				continue
			}
			v := m[1] + "." + m[2]
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

func (windowsRegistry) DevenvDir(version string) (string, bool) {
	return readString(`SOFTWARE\Microsoft\VisualStudio\SxS\VS7`, version)
}

func (windowsRegistry) MSBuildDir(version string) (string, bool) {
	return readString(`SOFTWARE\Microsoft\MSBuild\ToolsVersions\`+version, "MSBuildToolsPath")
}

func readString(path, value string) (string, bool) {
	for _, view := range views {
		k, err := registry.OpenKey(registry.LOCAL_MACHINE, path, registry.QUERY_VALUE|view)
		if err != nil {
			continue
		}
		s, _, err := k.GetStringValue(value)
		k.Close()
		if err == nil && s != "" {
			return s, true
		}
	}
	return "", false
}
