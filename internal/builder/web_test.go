package builder

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gamekit-labs/ccbuild/internal/project"
	"github.com/gamekit-labs/ccbuild/internal/toolchain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineJSList(t *testing.T) {
	cfg := moduleConfig{
		BootFile: "CCBoot.js",
		Module: map[string][]string{
			"core":       {"cocos2d/core/a.js", "cocos2d/core/b.js"},
			"base4webgl": {"cocos2d/webgl/gl.js"},
			"actions":    {"core", "cocos2d/actions/act.js", "cocos2d/core/a.js"},
			"cocos2d":    {"core", "actions", "cocos2d/extra.json"},
		},
	}

	assert.Equal(t, []string{"CCBoot.js", "cocos2d/webgl/gl.js", "cocos2d/core/a.js", "cocos2d/core/b.js", "cocos2d/actions/act.js"},
		EngineJSList(cfg, []string{"cocos2d"}, 0))
	assert.Equal(t, []string{"CCBoot.js", "cocos2d/core/a.js", "cocos2d/core/b.js"},
		EngineJSList(cfg, []string{"core"}, 1), "canvas mode skips webgl")
}

func TestRenderBuildXML(t *testing.T) {
	out, err := RenderBuildXML(BuildXMLParams{
		ProjectDir:       "/game",
		EngineDir:        "/game/frameworks/cocos2d-html5",
		PublishDir:       "/game/publish/html5",
		ToolsDir:         "/tools",
		Compiler:         "compiler-1.7.jar",
		OutputFileName:   "game.min.js",
		CompilationLevel: "advanced",
		SourceMap:        true,
		EngineFiles:      []string{"CCBoot.js", "a&b.js"},
		UserFiles:        []string{"src/app.js", "main.js"},
	})
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, `classpath="/tools/bin/compiler-1.7.jar"`)
	assert.Contains(t, s, `compilationLevel="advanced"`)
	assert.Contains(t, s, `debug="false"`)
	assert.Contains(t, s, `sourceMapOutputFile="/game/publish/html5/sourcemap" sourceMapFormat="V3"`)
	assert.Contains(t, s, `<file name="a&amp;b.js"/>`)
	assert.Less(t, strings.Index(s, "src/app.js"), strings.Index(s, "main.js"))

	out, err = RenderBuildXML(BuildXMLParams{Compiler: "compiler-1.6.jar"})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "sourceMapOutputFile")
}

func TestRewriteIndexHTML(t *testing.T) {
	in := `<html><body>
<script src="frameworks/cocos2d-html5/CCBoot.js"></script>
<script src='CCBoot.js' ></script>
<script src="main.js"></script>
</body></html>`
	out := RewriteIndexHTML(in, "main.js")
	assert.NotContains(t, out, "CCBoot.js")
	assert.Contains(t, out, `<script src="game.min.js"></script>`)
}

func TestFixSourceMap(t *testing.T) {
	sm := `{"sources":["/game/src/app.js","/game/frameworks/cocos2d-html5/CCBoot.js"]}`
	out := FixSourceMap(sm, "/game", "/game/frameworks/cocos2d-html5", "/game/publish/html5", false)
	assert.Equal(t, `{"sources":["../../src/app.js","../../frameworks/cocos2d-html5/CCBoot.js"]}`, out)
}

func webProject(t *testing.T, webCfg string) *project.Project {
	t.Helper()
	manifest := `{"project_type": "js"}`
	if webCfg != "" {
		manifest = `{"project_type": "js", "web_cfg": ` + webCfg + `}`
	}
	return newProject(t, manifest, map[string]string{
		"index.html":   `<script src="frameworks/cocos2d-html5/CCBoot.js"></script><script src="main.js"></script>`,
		"main.js":      "cc.game.run();",
		"src/app.js":   "var App = {};",
		"res/bg.png":   "png",
		"project.json": `{"engineDir": "frameworks/cocos2d-html5", "modules": ["core"], "jsList": ["src/app.js"], "showFPS": true}`,
		"frameworks/cocos2d-html5/moduleConfig.json": `{"bootFile": "CCBoot.js", "module": {"core": ["cocos2d/core/a.js"], "base4webgl": []}}`,
	})
}

func TestBuildWebDebugIsServedInPlace(t *testing.T) {
	p := webProject(t, `{"sub_url": "/game/"}`)
	dir := p.Dir
	st, err := NewState(Options{Platform: "web"}, p, "linux")
	require.NoError(t, err)

	r := &fakeRunner{}
	res, err := newTestBuilder(r).Dispatch(context.Background(), st)
	require.NoError(t, err)
	assert.Empty(t, r.names())
	assert.Equal(t, dir, res.RunRoot)
	assert.Equal(t, "/game/", res.SubURL)
}

func TestBuildWebRelease(t *testing.T) {
	p := webProject(t, "")
	dir := p.Dir
	st, err := NewState(Options{Platform: "web", Mode: "release", SourceMap: true, WebToolsDir: "/tools"}, p, "linux")
	require.NoError(t, err)
	t.Setenv("ANT_ROOT", "/opt/ant/bin")

	publish := filepath.Join(dir, "publish", "html5")
	r := &fakeRunner{outputs: map[string]string{"java -version": `java version "1.8.0_202"`}}
	r.effect = func(c toolchain.Command) error {
		writeFiles(t, publish, map[string]string{
			"game.min.js": "min",
			"sourcemap":   `{"sources":["` + dir + `/src/app.js"]}`,
		})
		return nil
	}
	res, err := newTestBuilder(r).Dispatch(context.Background(), st)
	require.NoError(t, err)

	ant, ok := r.find("ant")
	require.True(t, ok)
	assert.Equal(t, filepath.Join("/opt/ant/bin", "ant"), ant.Name)
	assert.Equal(t, []string{"-f", filepath.Join(publish, "build.xml")}, ant.Args)

	xml, err := os.ReadFile(filepath.Join(publish, "build.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(xml), `<file name="cocos2d/core/a.js"/>`)
	assert.Contains(t, string(xml), `<file name="src/app.js"/>`)
	assert.Contains(t, string(xml), "compiler-1.7.jar")
	assert.Contains(t, string(xml), `compilationLevel="simple"`)

	sm, _ := os.ReadFile(filepath.Join(publish, "sourcemap"))
	assert.Equal(t, `{"sources":["../../src/app.js"]}`, string(sm))

	var pj map[string]any
	data, err := os.ReadFile(filepath.Join(publish, "project.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &pj))
	assert.Equal(t, map[string]any{"showFPS": true}, pj)

	index, _ := os.ReadFile(filepath.Join(publish, "index.html"))
	assert.Equal(t, `<script src="game.min.js"></script>`, string(index))

	assert.FileExists(t, filepath.Join(publish, "res", "bg.png"))
	assert.Equal(t, "/publish/html5/", res.SubURL)
	assert.Equal(t, filepath.Join(publish, "game.min.js"), res.Artifact)
}

func TestBuildWebCopyRulesAndOldJDK(t *testing.T) {
	p := webProject(t, `{"copy_resources": [{"from": "res", "to": "assets"}]}`)
	out := filepath.Join(t.TempDir(), "site")
	st, err := NewState(Options{Platform: "web", Mode: "release", SourceMap: true, WebToolsDir: "/tools", OutputDir: out}, p, "linux")
	require.NoError(t, err)
	t.Setenv("ANT_ROOT", "/opt/ant/bin")

	r := &fakeRunner{outputs: map[string]string{"java -version": `java version "1.6.0_65"`}}
	_, err = newTestBuilder(r).Dispatch(context.Background(), st)
	require.NoError(t, err)

	xml, _ := os.ReadFile(filepath.Join(out, "build.xml"))
	assert.Contains(t, string(xml), "compiler-1.6.jar")
	assert.NotContains(t, string(xml), "sourceMapOutputFile", "jdk 1.6 has no source maps")
	assert.FileExists(t, filepath.Join(out, "assets", "bg.png"))
	assert.NoDirExists(t, filepath.Join(out, "res"))
}

func TestBuildWebMissingTools(t *testing.T) {
	p := webProject(t, "")
	st, err := NewState(Options{Platform: "web", Mode: "release"}, p, "linux")
	require.NoError(t, err)
	_, err = newTestBuilder(&fakeRunner{}).Dispatch(context.Background(), st)
	assert.Equal(t, int(WrongConfig), ExitCode(err))

	st.Options.WebToolsDir = "/tools"
	t.Setenv("ANT_ROOT", "")
	r := &fakeRunner{outputs: map[string]string{"java -version": `java version "11.0.2"`}}
	_, err = newTestBuilder(r).Dispatch(context.Background(), st)
	assert.Equal(t, int(EnvVarNotFound), ExitCode(err))
}
