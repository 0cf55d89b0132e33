package cache

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeBuildCommand(input, output CacheFile) string {
	return "fake-compiler " + input.Path + " -o " + output.Path + "\n"
}

// fakeCompile is a test double standing in for the external compiler child
// process: it parses the output path back out of cmd and writes a
// placeholder artifact there, exercising Resolve's generate/validate logic
// without depending on a real compiler binary being present.
func fakeCompile(writes *int) func(string) error {
	return func(cmd string) error {
		*writes++
		_, outPath, ok := strings.Cut(strings.TrimRight(cmd, "\n"), " -o ")
		if !ok {
			return errors.New("malformed compile command: " + cmd)
		}
		return os.WriteFile(outPath, []byte("compiled-artifact"), 0o644)
	}
}

func TestResolveMissThenHit(t *testing.T) {
	root := t.TempDir()
	c := New(root)

	var writes int
	res, err := Resolve(c, "graph_a", "asm-v1", fakeBuildCommand, fakeCompile(&writes), false)
	require.NoError(t, err)
	assert.True(t, res.Recompiled)
	assert.Equal(t, 1, writes)

	data, err := os.ReadFile(res.Assets.Output.Path)
	require.NoError(t, err)
	assert.Equal(t, "compiled-artifact", string(data))

	res2, err := Resolve(c, "graph_a", "asm-v1", fakeBuildCommand, fakeCompile(&writes), false)
	require.NoError(t, err)
	assert.False(t, res2.Recompiled)
	assert.Equal(t, 1, writes, "a cache hit must not invoke the compiler again")
}

func TestResolveMissOnChangedAssembly(t *testing.T) {
	root := t.TempDir()
	c := New(root)

	var writes int
	_, err := Resolve(c, "graph_b", "asm-v1", fakeBuildCommand, fakeCompile(&writes), false)
	require.NoError(t, err)

	res, err := Resolve(c, "graph_b", "asm-v2", fakeBuildCommand, fakeCompile(&writes), false)
	require.NoError(t, err)
	assert.True(t, res.Recompiled)
	assert.Equal(t, 2, writes)
}

func TestResolvePropagatesCompileFailure(t *testing.T) {
	root := t.TempDir()
	c := New(root)

	failing := func(cmd string) error { return os.ErrPermission }
	_, err := Resolve(c, "graph_c", "asm", fakeBuildCommand, failing, false)
	require.Error(t, err)
}

func TestCachedAssetsRemoveHonorsAutoRemoveFlag(t *testing.T) {
	root := t.TempDir()
	c := New(root)

	var writes int
	res, err := Resolve(c, "graph_d", "asm", fakeBuildCommand, fakeCompile(&writes), true)
	require.NoError(t, err)

	res.Assets.Remove()
	_, statErr := os.Stat(res.Assets.Output.Path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestNewAssetsPathsAreGraphScoped(t *testing.T) {
	root := t.TempDir()
	a := newAssets(root, "g1", false)
	b := newAssets(root, "g2", false)
	assert.NotEqual(t, a.Input.Path, b.Input.Path)
	assert.Equal(t, filepath.Join(root, "g1", inputFileName), a.Input.Path)
}
