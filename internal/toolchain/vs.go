package toolchain

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/gamekit-labs/ccbuild/internal/platform"
)

// vsToolsVersions maps Visual Studio product years to internal versions.
var vsToolsVersions = map[int]string{
	2012: "11.0",
	2013: "12.0",
	2015: "14.0",
	2017: "15.0",
}

// VSToolsVersion returns the internal version ("14.0") of a product year.
func VSToolsVersion(year int) (string, bool) {
	v, ok := vsToolsVersions[year]
	return v, ok
}

// VSRegistry exposes the registry values used to locate Visual Studio.
type VSRegistry interface {
	// Versions lists installed internal versions such as "12.0".
	Versions() []string
	// DevenvDir returns the install directory recorded under SxS\VS7.
	DevenvDir(version string) (string, bool)
	// MSBuildDir returns MSBuildToolsPath for a tools version.
	MSBuildDir(version string) (string, bool)
}

// ErrVSNotFound is returned when no usable Visual Studio install exists.
var ErrVSNotFound = errors.New("Visual Studio not found")

// VSVersionError reports a --vs value the project cannot use.
type VSVersionError struct {
	Specified int
	Minimum   int
	Required  []int
}

func (e *VSVersionError) Error() string {
	if len(e.Required) > 0 {
		return fmt.Sprintf("Visual Studio %d is not supported by this engine (supported: %v)", e.Specified, e.Required)
	}
	return fmt.Sprintf("Visual Studio %d is older than the minimum %d", e.Specified, e.Minimum)
}

// VSRequest describes which Visual Studio a build accepts.
type VSRequest struct {
	Required  []int // product years accepted by the engine, in preference order
	Minimum   int   // lowest year when Required is empty
	Specified int   // --vs value, 0 when not given
}

// VisualStudio locates devenv and MSBuild.
type VisualStudio struct {
	Registry VSRegistry
	Exists   func(string) bool
}

// NewVisualStudio returns a locator backed by the system registry.
func NewVisualStudio() *VisualStudio {
	return &VisualStudio{Registry: SystemRegistry(), Exists: platform.IsFile}
}

func (vs *VisualStudio) devenvPath(version string) (string, bool) {
	dir, ok := vs.Registry.DevenvDir(version)
	if !ok {
		return "", false
	}
	p := filepath.Join(dir, "Common7", "IDE", "devenv.com")
	return p, vs.Exists(p)
}

func (vs *VisualStudio) msbuildPath(version string) (string, bool) {
	dir, ok := vs.Registry.MSBuildDir(version)
	if !ok {
		return "", false
	}
	p := filepath.Join(dir, "MSBuild.exe")
	return p, vs.Exists(p)
}

// Devenv returns the devenv.com to build with and whether the solution must
// be upgraded first (the chosen install is newer than the minimum).
func (vs *VisualStudio) Devenv(req VSRequest) (string, bool, error) {
	return vs.find(req, vs.devenvPath, true)
}

// MSBuild returns the MSBuild.exe to build with.
func (vs *VisualStudio) MSBuild(req VSRequest) (string, error) {
	p, _, err := vs.find(req, vs.msbuildPath, false)
	return p, err
}

func (vs *VisualStudio) find(req VSRequest, lookup func(string) (string, bool), allowUpgrade bool) (string, bool, error) {
	if len(req.Required) == 0 {
		if req.Specified == 0 {
			return vs.newest(req.Minimum, lookup, allowUpgrade)
		}
		if req.Specified < req.Minimum {
			return "", false, &VSVersionError{Specified: req.Specified, Minimum: req.Minimum}
		}
		ver, ok := VSToolsVersion(req.Specified)
		if !ok {
			return "", false, &VSVersionError{Specified: req.Specified, Minimum: req.Minimum}
		}
		p, found := lookup(ver)
		if !found {
			return "", false, ErrVSNotFound
		}
		return p, allowUpgrade && req.Specified > req.Minimum, nil
	}

	if req.Specified != 0 {
		if !containsInt(req.Required, req.Specified) {
			return "", false, &VSVersionError{Specified: req.Specified, Required: req.Required}
		}
		ver, _ := VSToolsVersion(req.Specified)
		p, found := lookup(ver)
		if !found {
			return "", false, ErrVSNotFound
		}
		return p, false, nil
	}

	for _, year := range req.Required {
		ver, ok := VSToolsVersion(year)
		if !ok {
			continue
		}
		if p, found := lookup(ver); found {
			return p, false, nil
		}
	}
	return "", false, ErrVSNotFound
}

// newest picks the highest installed version not older than minimum.
func (vs *VisualStudio) newest(minimum int, lookup func(string) (string, bool), allowUpgrade bool) (string, bool, error) {
	var floor *semver.Version
	if ver, ok := VSToolsVersion(minimum); ok {
		floor, _ = semver.NewVersion(ver)
	}

	versions := vs.Registry.Versions()
	sort.Strings(versions)

	var bestVer *semver.Version
	bestPath := ""
	for _, raw := range versions {
		v, err := semver.NewVersion(raw)
		if err != nil {
			continue
		}
		if floor != nil && v.LessThan(floor) {
			continue
		}
		p, found := lookup(raw)
		if !found {
			continue
		}
		if bestVer == nil || v.GreaterThan(bestVer) {
			bestVer, bestPath = v, p
		}
	}
	if bestVer == nil {
		return "", false, ErrVSNotFound
	}
	upgrade := allowUpgrade && floor != nil && bestVer.GreaterThan(floor)
	return bestPath, upgrade, nil
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
