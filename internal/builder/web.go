package builder

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/gamekit-labs/ccbuild/internal/buildcfg"
	"github.com/gamekit-labs/ccbuild/internal/platform"
	"github.com/gamekit-labs/ccbuild/internal/stage"
	"github.com/gamekit-labs/ccbuild/internal/toolchain"
	"github.com/sirupsen/logrus"
)

//go:embed templates/build.xml.tmpl
var templatesFS embed.FS

var buildXML = template.Must(template.ParseFS(templatesFS, "templates/build.xml.tmpl"))

const webOutputFile = "game.min.js"

var bootScriptRe = regexp.MustCompile(`<script\s+src\s*=\s*("|')[^"']*CCBoot\.js("|')\s*></script>`)

// BuildXMLParams fills the closure compiler ant template.
type BuildXMLParams struct {
	ProjectDir       string
	EngineDir        string
	PublishDir       string
	ToolsDir         string
	Compiler         string
	OutputFileName   string
	CompilationLevel string
	Debug            bool
	SourceMap        bool
	EngineFiles      []string
	UserFiles        []string
}

// RenderBuildXML renders the ant build file.
func RenderBuildXML(p BuildXMLParams) ([]byte, error) {
	var buf bytes.Buffer
	if err := buildXML.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("rendering build.xml: %w", err)
	}
	return buf.Bytes(), nil
}

// moduleConfig is the engine's moduleConfig.json.
type moduleConfig struct {
	Module   map[string][]string `json:"module"`
	BootFile string              `json:"bootFile"`
}

// EngineJSList expands the project's modules into engine js files, boot
// file first. Module entries without an extension name other modules.
func EngineJSList(cfg moduleConfig, modules []string, renderMode int) []string {
	if renderMode != 1 && !contains(modules, "base4webgl") {
		modules = append([]string{"base4webgl"}, modules...)
	}
	list := []string{cfg.BootFile}
	seen := map[string]bool{}
	var expand func(name string)
	expand = func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		for _, item := range cfg.Module[name] {
			if seen[item] {
				continue
			}
			switch filepath.Ext(item) {
			case "":
				expand(item)
			case ".js":
				list = append(list, item)
			}
			seen[item] = true
		}
	}
	for _, m := range modules {
		expand(m)
	}
	return list
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// projectJSON is the subset of the web project.json the build reads. The
// raw map is kept to write a trimmed copy.
type projectJSON struct {
	raw map[string]any
}

func (p projectJSON) str(key, def string) string {
	if s, ok := p.raw[key].(string); ok && s != "" {
		return s
	}
	return def
}

func (p projectJSON) strings(key string) []string {
	list, _ := p.raw[key].([]any)
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (p projectJSON) renderMode() int {
	switch v := p.raw["renderMode"].(type) {
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	case float64:
		return int(v)
	}
	return 0
}

func readProjectJSON(path string) (projectJSON, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return projectJSON{}, &Error{Kind: PathNotFound, Op: "web", Err: err}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return projectJSON{}, &Error{Kind: ParseFile, Op: path, Err: err}
	}
	if _, ok := raw["engineDir"].(string); !ok {
		return projectJSON{}, newError(ParseFile, path, "engineDir is missing")
	}
	return projectJSON{raw: raw}, nil
}

// FixSourceMap rewrites absolute paths in a source map relative to the
// publish dir and normalizes separators.
func FixSourceMap(content, projectDir, engineDir, publishDir string, windows bool) string {
	relProj, _ := filepath.Rel(publishDir, projectDir)
	relEngine, _ := filepath.Rel(publishDir, engineDir)
	from := projectDir
	if windows {
		from = strings.ReplaceAll(projectDir, `\`, `\\`)
	}
	content = strings.ReplaceAll(content, from, relProj)
	content = strings.ReplaceAll(content, engineDir, relEngine)
	content = strings.ReplaceAll(content, `\\`, "/")
	return strings.ReplaceAll(content, `\`, "/")
}

// RewriteIndexHTML drops the CCBoot.js script tag and points the page at the
// compiled bundle.
func RewriteIndexHTML(content, mainJS string) string {
	content = bootScriptRe.ReplaceAllString(content, "")
	return strings.ReplaceAll(content, mainJS, webOutputFile)
}

func (b *Builder) buildWeb(ctx context.Context, st *State, res *Result) error {
	projDir := st.Target.Dir
	cfg := st.Target.Web
	if cfg == nil {
		cfg = &platform.WebConfig{}
	}

	res.RunRoot = projDir
	if cfg.RunRootDir != "" {
		res.RunRoot = cfg.RunRootDir
	}
	subURL := "/"
	if cfg.SubURL != "" {
		subURL = cfg.SubURL
	}

	outName := scriptReleaseOutputDir
	if st.Debug() {
		outName = scriptDebugOutputDir
		if !st.Options.Advanced {
			res.SubURL = subURL
			return nil
		}
	}
	res.SubURL = fmt.Sprintf("%s%s/%s/", subURL, outName, webFolderName)

	pj, err := readProjectJSON(filepath.Join(projDir, "project.json"))
	if err != nil {
		return err
	}
	engineDir := filepath.Clean(filepath.Join(projDir, pj.str("engineDir", "")))
	publishDir := filepath.Join(projDir, outName, webFolderName)

	if err := stage.Recreate(publishDir); err != nil {
		return err
	}
	if err := b.writeBuildXML(ctx, st, pj, projDir, engineDir, publishDir); err != nil {
		return err
	}

	antRoot, err := toolchain.RequireEnv("ANT_ROOT")
	if err != nil {
		return err
	}
	ant := toolchain.Command{Name: filepath.Join(antRoot, "ant"), Args: []string{"-f", filepath.Join(publishDir, "build.xml")}}
	if err := b.run(ctx, ant); err != nil {
		return &Error{Kind: BuildFailed, Op: "closure compiler", Err: err}
	}

	smPath := filepath.Join(publishDir, "sourcemap")
	if data, err := os.ReadFile(smPath); err == nil {
		fixed := FixSourceMap(string(data), projDir, engineDir, publishDir, st.GOOS == "windows")
		if err := os.WriteFile(smPath, []byte(fixed), 0644); err != nil {
			return err
		}
	}

	mainJS := pj.str("main", "main.js")
	trimmed := map[string]any{}
	for k, v := range pj.raw {
		switch k {
		case "engineDir", "modules", "jsList":
			continue
		}
		trimmed[k] = v
	}
	data, err := json.Marshal(trimmed)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(publishDir, "project.json"), data, 0644); err != nil {
		return err
	}

	index, err := os.ReadFile(filepath.Join(projDir, "index.html"))
	if err != nil {
		return &Error{Kind: PathNotFound, Op: "web", Err: err}
	}
	rewritten := RewriteIndexHTML(string(index), mainJS)
	if err := os.WriteFile(filepath.Join(publishDir, "index.html"), []byte(rewritten), 0644); err != nil {
		return err
	}

	if err := b.copyWebResources(st, res, projDir, publishDir); err != nil {
		return err
	}

	if filepath.Clean(publishDir) != filepath.Clean(st.OutputDir) {
		if err := stage.CopyDirContents(publishDir, st.OutputDir); err != nil {
			return err
		}
	}
	res.Artifact = filepath.Join(st.OutputDir, webOutputFile)
	return nil
}

func (b *Builder) writeBuildXML(ctx context.Context, st *State, pj projectJSON, projDir, engineDir, publishDir string) error {
	if st.Options.WebToolsDir == "" {
		return newError(WrongConfig, "web", "web.tools_dir is not configured; point it at the closure compiler tools")
	}
	data, err := os.ReadFile(filepath.Join(engineDir, "moduleConfig.json"))
	if err != nil {
		return &Error{Kind: PathNotFound, Op: "web", Err: err}
	}
	var mc moduleConfig
	if err := json.Unmarshal(data, &mc); err != nil {
		return &Error{Kind: ParseFile, Op: "moduleConfig.json", Err: err}
	}

	java, err := toolchain.JavaVersion(ctx, b.Runner)
	if err != nil {
		return &Error{Kind: ToolsNotFound, Op: "jdk", Err: err}
	}
	compiler := "compiler-1.7.jar"
	sourceMap := st.Options.SourceMap
	if java.Major() == 1 && java.Minor() == 6 {
		compiler = "compiler-1.6.jar"
		sourceMap = false
	}

	modules := pj.strings("modules")
	if len(modules) == 0 {
		modules = []string{"core"}
	}
	level := "simple"
	if st.Options.Advanced {
		level = "advanced"
	}
	xml, err := RenderBuildXML(BuildXMLParams{
		ProjectDir:       projDir,
		EngineDir:        engineDir,
		PublishDir:       publishDir,
		ToolsDir:         toolchain.ExpandPath(st.Options.WebToolsDir),
		Compiler:         compiler,
		OutputFileName:   webOutputFile,
		CompilationLevel: level,
		Debug:            st.Debug(),
		SourceMap:        sourceMap,
		EngineFiles:      EngineJSList(mc, modules, pj.renderMode()),
		UserFiles:        append(pj.strings("jsList"), pj.str("main", "main.js")),
	})
	if err != nil {
		return err
	}
	logrus.Debugf("writing %s", filepath.Join(publishDir, "build.xml"))
	return os.WriteFile(filepath.Join(publishDir, "build.xml"), xml, 0644)
}

// copyWebResources copies res/ or the web_cfg copy_resources rules.
func (b *Builder) copyWebResources(st *State, res *Result, projDir, publishDir string) error {
	if st.Target.Web == nil || st.Target.Web.CopyResources == nil {
		dst := filepath.Join(publishDir, "res")
		if err := platform.RemovePath(dst); err != nil {
			return err
		}
		return stage.CopyDirContents(filepath.Join(projDir, "res"), dst)
	}
	rules, err := buildcfg.DecodeRules(buildcfg.KeyCopy, st.Target.Web.CopyResources, projDir)
	if err != nil {
		return &Error{Kind: WrongConfig, Op: "web_cfg", Err: err}
	}
	rep, err := stage.Apply(rules, projDir, publishDir)
	if err != nil {
		return err
	}
	res.Staged = rep
	return nil
}
