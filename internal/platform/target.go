package platform

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// AppleConfig holds the ios_cfg / mac_cfg block.
type AppleConfig struct {
	ProjectFile string `json:"project_file"`
	TargetName  string `json:"target_name"`
}

// WindowsConfig holds the win32_cfg / metro_cfg block.
type WindowsConfig struct {
	SlnFile      string `json:"sln_file"`
	ProjectName  string `json:"project_name"`
	BuildCfgPath string `json:"build_cfg_path"`
	ExeOutDir    string `json:"exe_out_dir"`
}

// LinuxConfig holds the linux_cfg block.
type LinuxConfig struct {
	CMakePath      string `json:"cmake_path"`
	BuildDir       string `json:"build_dir"`
	ProjectName    string `json:"project_name"`
	BuildResultDir string `json:"build_result_dir"`
}

// WebConfig holds the web_cfg block. CopyResources is kept raw and decoded
// into copy rules by the web builder.
type WebConfig struct {
	SubURL        string `json:"sub_url"`
	RunRootDir    string `json:"run_root_dir"`
	CopyResources []any  `json:"copy_resources"`
}

// Target locates one platform's native project. Exactly one of the config
// pointers matching Platform is set; Android has no extra settings.
type Target struct {
	Platform Platform
	Dir      string

	Apple   *AppleConfig
	Windows *WindowsConfig
	Linux   *LinuxConfig
	Web     *WebConfig
}

// ProjectDirName returns the default native project directory for p,
// relative to the project root.
func ProjectDirName(p Platform, scripting bool) string {
	var name string
	switch p {
	case IOS, Mac:
		name = "proj.ios_mac"
	case Metro:
		name = "proj.win8.1-universal"
	case Web:
		return ""
	default:
		name = "proj." + p.String()
	}
	if scripting {
		return filepath.Join("frameworks", "runtime-src", name)
	}
	return name
}

// NewTarget resolves p's native project inside projectDir. block is the raw
// <platform>_cfg object from the project manifest and may be nil; a
// project_path key in it overrides the default directory.
func NewTarget(projectDir string, scripting bool, p Platform, block map[string]any) (*Target, error) {
	t := &Target{Platform: p}

	var common struct {
		ProjectPath string `json:"project_path"`
	}
	if err := decodeBlock(block, &common); err != nil {
		return nil, fmt.Errorf("%s_cfg: %w", p, err)
	}
	if common.ProjectPath != "" {
		t.Dir = filepath.Join(projectDir, common.ProjectPath)
	} else {
		t.Dir = filepath.Join(projectDir, ProjectDirName(p, scripting))
	}

	var err error
	switch p {
	case IOS, Mac:
		t.Apple = &AppleConfig{}
		err = decodeBlock(block, t.Apple)
	case Win32, Metro:
		t.Windows = &WindowsConfig{}
		err = decodeBlock(block, t.Windows)
	case Linux:
		t.Linux = &LinuxConfig{}
		err = decodeBlock(block, t.Linux)
	case Web:
		t.Web = &WebConfig{}
		err = decodeBlock(block, t.Web)
	}
	if err != nil {
		return nil, fmt.Errorf("%s_cfg: %w", p, err)
	}
	return t, nil
}

// Exists reports whether the native project is present on disk. The web
// target additionally needs an index.html.
func (t *Target) Exists() bool {
	info, err := os.Stat(t.Dir)
	if err != nil || !info.IsDir() {
		return false
	}
	if t.Platform == Web {
		if _, err := os.Stat(filepath.Join(t.Dir, "index.html")); err != nil {
			return false
		}
	}
	return true
}

func decodeBlock(block map[string]any, v any) error {
	if block == nil {
		return nil
	}
	data, err := json.Marshal(block)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
