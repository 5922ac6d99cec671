package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	writeFile(t, path, `
paths = ["src", "/abs/lib"]
std_root = "vendor/std"

[capabilities]
deny = ["Net"]
seed = 42
clock = 1700000000000
dotenv = [".env"]
fs_root = "data"
args = ["one", "two"]

[lint]
unused_marker = "unused_"

[test]
property_runs = 10
`)

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, dir, config.Dir)
	assert.Equal(t, []string{"src", "/abs/lib"}, config.Paths)

	loader := config.Loader()
	assert.Equal(t, []string{filepath.Join(dir, "src"), "/abs/lib", dir}, loader.Paths)
	assert.Equal(t, filepath.Join(dir, "vendor/std"), loader.StdRoot)

	opts := config.EffectOptions()
	assert.Equal(t, []string{"Net"}, opts.Deny)
	require.NotNil(t, opts.Seed)
	assert.Equal(t, uint64(42), *opts.Seed)
	require.NotNil(t, opts.FixedClock)
	assert.Equal(t, int64(1700000000000), *opts.FixedClock)
	assert.Equal(t, []string{filepath.Join(dir, ".env")}, opts.Dotenv)
	assert.Equal(t, filepath.Join(dir, "data"), opts.FsRoot)
	assert.Equal(t, []string{"one", "two"}, opts.Args)

	assert.Equal(t, "unused_", config.Checker().UnusedMarker)
	assert.Equal(t, 10, config.EvalOptions(nil).PropertyRuns)
}

func TestLoadErrors(t *testing.T) {
	for _, tc := range []struct {
		name     string
		contents string
		contains string
	}{
		{"bad toml", `paths = [`, "parsing"},
		{"unknown effect", "[capabilities]\ndeny = [\"Log\"]\n", `cannot deny "Log"`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			writeFile(t, path, tc.contents)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, FileName), "paths = [\"lib\"]\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	path, config, err := Find(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, FileName), path)
	assert.Equal(t, []string{"lib"}, config.Paths)

	t.Run("stops at git boundary", func(t *testing.T) {
		repo := filepath.Join(root, "repo")
		require.NoError(t, os.MkdirAll(filepath.Join(repo, ".git"), 0o755))
		path, config, err := Find(filepath.Join(repo))
		require.NoError(t, err)
		assert.Empty(t, path)
		assert.Nil(t, config)
	})
}

func TestForFileDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	file := filepath.Join(dir, "main.ast.yaml")

	config, err := ForFile(file)
	require.NoError(t, err)
	assert.Equal(t, dir, config.Dir)
	assert.Equal(t, "_", config.Checker().UnusedMarker)
	assert.Equal(t, []string{dir}, config.Loader().Paths)
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("WARDEN_DATA", "/srv/data")
	config := Default("/proj")
	config.Capabilities.FsRoot = "${WARDEN_DATA}/files"
	assert.Equal(t, "/srv/data/files", config.EffectOptions().FsRoot)
}
