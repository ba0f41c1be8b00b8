package project

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"github.com/gamekit-labs/ccbuild/internal/platform"
)

var (
	versionInSource = regexp.MustCompile(`.*return[ \t]+"(.*)";`)
	engineVersionRe = regexp.MustCompile(`^cocos2d-x[^0-9]*(\d+)\.(\d+)`)
)

// EngineDir returns the engine root used by the project.
//
// A configured engine_dir wins. Otherwise js projects use
// frameworks/cocos2d-x when present (else the project root), lua projects use
// frameworks/cocos2d-x and cpp projects use cocos2d.
func (p *Project) EngineDir() string {
	if dir := p.String(keyEngineDir); dir != "" {
		if filepath.IsAbs(dir) {
			return dir
		}
		return filepath.Join(p.Dir, dir)
	}
	switch p.Language {
	case JS:
		dir := filepath.Join(p.Dir, "frameworks", "cocos2d-x")
		if platform.IsDir(dir) {
			return dir
		}
		return p.Dir
	case Lua:
		return filepath.Join(p.Dir, "frameworks", "cocos2d-x")
	default:
		return filepath.Join(p.Dir, "cocos2d")
	}
}

// EngineVersion returns the engine version string, e.g. "cocos2d-x-3.17.2".
// It comes from engine_version in the manifest or from cocos/cocos2d.cpp in
// the engine directory. An empty string means the version is unknown.
func (p *Project) EngineVersion() string {
	if v := p.String(keyEngineVersion); v != "" {
		return v
	}
	data, err := os.ReadFile(filepath.Join(p.EngineDir(), "cocos", "cocos2d.cpp"))
	if err != nil {
		return ""
	}
	m := versionInSource.FindSubmatch(data)
	if m == nil {
		return ""
	}
	return string(m[1])
}

// ParseEngineVersion extracts major.minor from an engine version string.
func ParseEngineVersion(s string) (*semver.Version, error) {
	m := engineVersionRe.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("unrecognized engine version %q", s)
	}
	return semver.NewVersion(m[1] + "." + m[2])
}

// EngineAtLeast compares the engine version with major.minor. known is false
// when the version could not be determined.
func (p *Project) EngineAtLeast(major, minor uint64) (ok, known bool) {
	v, err := ParseEngineVersion(p.EngineVersion())
	if err != nil {
		return false, false
	}
	floor := semver.New(major, minor, 0, "", "")
	return !v.LessThan(floor), true
}

// engineJSDirs are the engine-relative locations of the js bindings scripts.
var engineJSDirs = []string{
	filepath.Join("frameworks", "js-bindings", "bindings", "script"),
	filepath.Join("cocos", "scripting", "js-bindings", "script"),
}

// EngineJSDir returns the directory of the engine's js binding scripts, or
// "" when none exists. A script/ directory in the project takes precedence.
func (p *Project) EngineJSDir() string {
	if dir := filepath.Join(p.Dir, "script"); platform.IsDir(dir) {
		return dir
	}
	for _, rel := range engineJSDirs {
		if dir := filepath.Join(p.EngineDir(), rel); platform.IsDir(dir) {
			return dir
		}
	}
	return ""
}
