package toolchain

import (
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireEnv(t *testing.T) {
	t.Setenv("ANT_ROOT", "")
	_, err := RequireEnv("ANT_ROOT")
	var envErr *EnvVarError
	require.ErrorAs(t, err, &envErr)
	assert.Equal(t, "ANT_ROOT", envErr.Name)

	t.Setenv("ANT_ROOT", "/opt/ant/bin")
	v, err := RequireEnv("ANT_ROOT")
	require.NoError(t, err)
	assert.Equal(t, "/opt/ant/bin", v)
}

func TestExpandPath(t *testing.T) {
	home, err := homedir.Dir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "sdk"), ExpandPath("~/sdk"))
	assert.Equal(t, "/abs/path", ExpandPath("/abs/path"))
}

func TestSetEnv(t *testing.T) {
	env := []string{"A=1", "DISPLAY=:0"}
	env = SetEnv(env, "DISPLAY", ":9")
	env = SetEnv(env, "B", "2")
	assert.Equal(t, []string{"A=1", "DISPLAY=:9", "B=2"}, env)
}

func TestParseEnvFile(t *testing.T) {
	data := []byte("# test env\nGTEST_FILTER = Foo.*\n\nINVALID\nEMPTY=\n")
	env := ParseEnvFile(nil, data)
	assert.Equal(t, []string{"GTEST_FILTER=Foo.*", "EMPTY="}, env)
}
