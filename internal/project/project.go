package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gamekit-labs/ccbuild/internal/platform"
)

// FileName is the project manifest file name.
const FileName = ".cocos-project.json"

// Language is the project's programming language.
type Language string

const (
	CPP Language = "cpp"
	Lua Language = "lua"
	JS  Language = "js"
)

// Manifest keys.
const (
	keyProjectType    = "project_type"
	keyHasNative      = "has_native"
	keyEngineDir      = "engine_dir"
	keyEngineVersion  = "engine_version"
	keyCustomStepFile = "custom_step_script"
)

// ErrNotFound is returned when no manifest exists in the directory or any of
// its parents.
var ErrNotFound = errors.New("project manifest not found")

// ErrInvalid is returned for a manifest with missing or bad required values.
var ErrInvalid = errors.New("invalid project manifest")

// Project is a parsed manifest.
type Project struct {
	Dir       string
	Language  Language
	HasNative bool

	raw map[string]any
}

// Find walks up from start until it finds a directory containing the
// manifest and loads it.
func Find(start string) (*Project, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", start, err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if platform.IsFile(candidate) {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, fmt.Errorf("%w in %s or its parents", ErrNotFound, start)
		}
		dir = parent
	}
}

// Load parses the manifest in dir.
func Load(dir string) (*Project, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	p, err := Parse(data, dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes manifest content for a project rooted at dir.
func Parse(data []byte, dir string) (*Project, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: empty manifest", ErrInvalid)
	}

	typ, ok := raw[keyProjectType].(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", ErrInvalid, keyProjectType)
	}
	lang := Language(strings.ToLower(typ))
	switch lang {
	case CPP, Lua, JS:
	default:
		return nil, fmt.Errorf("%w: %q must be one of cpp, lua, js", ErrInvalid, keyProjectType)
	}

	p := &Project{Dir: dir, Language: lang, raw: raw}
	if p.IsScript() {
		p.HasNative, _ = raw[keyHasNative].(bool)
	}
	return p, nil
}

// IsScript reports whether the game logic is written in lua or js.
func (p *Project) IsScript() bool { return p.Language == Lua || p.Language == JS }

// IsNativeBuild reports whether C++ sources must be compiled.
func (p *Project) IsNativeBuild() bool { return !p.IsScript() || p.HasNative }

// String returns a string value from the manifest.
func (p *Project) String(key string) string {
	s, _ := p.raw[key].(string)
	return s
}

// Block returns the raw <platform>_cfg object, or nil.
func (p *Project) Block(pl platform.Platform) map[string]any {
	m, _ := p.raw[pl.String()+"_cfg"].(map[string]any)
	return m
}

// CustomStepFile returns the absolute path of the custom step file, or "".
func (p *Project) CustomStepFile() string {
	path := p.String(keyCustomStepFile)
	if path == "" {
		return ""
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.Dir, path)
	}
	return path
}

// HasAndroidLibs reports whether a prebuilt android libs directory exists.
func (p *Project) HasAndroidLibs() bool {
	return platform.IsDir(filepath.Join(p.Dir, platform.ProjectDirName(platform.Android, p.IsScript()), "libs"))
}

// LanguagePlatforms lists the platforms the project's language can target.
func (p *Project) LanguagePlatforms() []platform.Platform {
	switch p.Language {
	case Lua:
		if p.HasNative {
			return []platform.Platform{platform.Android, platform.Win32, platform.IOS, platform.Mac, platform.Linux}
		}
		if p.HasAndroidLibs() {
			return []platform.Platform{platform.Android}
		}
		return nil
	case JS:
		if p.HasNative {
			return []platform.Platform{platform.Android, platform.Win32, platform.IOS, platform.Mac, platform.Web, platform.Linux, platform.Metro}
		}
		if p.HasAndroidLibs() {
			return []platform.Platform{platform.Android, platform.Web}
		}
		return []platform.Platform{platform.Web}
	default:
		return []platform.Platform{platform.Android, platform.Win32, platform.IOS, platform.Mac, platform.Linux, platform.Metro}
	}
}

// Target resolves the native project of pl. projDir, when set, overrides
// both the default location and the manifest's project_path.
func (p *Project) Target(pl platform.Platform, projDir string) (*platform.Target, error) {
	t, err := platform.NewTarget(p.Dir, p.IsScript(), pl, p.Block(pl))
	if err != nil {
		return nil, err
	}
	if projDir != "" {
		t.Dir = filepath.Join(p.Dir, projDir)
	}
	return t, nil
}

// Available returns the platforms that can be built on host goos, each with
// its resolved target.
func (p *Project) Available(goos, projDir string) ([]platform.Platform, map[platform.Platform]*platform.Target, error) {
	var list []platform.Platform
	targets := make(map[platform.Platform]*platform.Target)
	for _, pl := range p.LanguagePlatforms() {
		if !platform.HostSupports(goos, pl) {
			continue
		}
		t, err := p.Target(pl, projDir)
		if err != nil {
			return nil, nil, err
		}
		if !t.Exists() {
			continue
		}
		list = append(list, pl)
		targets[pl] = t
	}
	return list, targets, nil
}
