package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestNewLoader(t *testing.T) {
	assert.Equal(t, []string{"plugins"}, NewLoader().Paths())
}

func TestNewLoaderWithPaths(t *testing.T) {
	loader := NewLoader(WithPaths("/a", "/b"))
	assert.Equal(t, []string{"/a", "/b"}, loader.Paths())
}

func TestLoaderDiscoverEmpty(t *testing.T) {
	loader := NewLoader(WithPaths(t.TempDir()))

	plugins, err := loader.Discover()
	require.NoError(t, err)
	assert.Empty(t, plugins)
}

func TestLoaderDiscoverMissingPath(t *testing.T) {
	loader := NewLoader(WithPaths(filepath.Join(t.TempDir(), "absent")))

	plugins, err := loader.Discover()
	require.NoError(t, err, "missing paths are skipped")
	assert.Empty(t, plugins)
}

func TestLoaderDiscoverKinds(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "with-manifest", ManifestFile), "name = \"renamed\"\nversion = \"1.0.0\"")
	writeFile(t, filepath.Join(dir, "with-manifest", "init.lua"), "-- plugin")
	writeFile(t, filepath.Join(dir, "bare", "plugin.lua"), "-- plugin")
	writeFile(t, filepath.Join(dir, "single.lua"), "-- plugin")
	writeFile(t, filepath.Join(dir, "README.md"), "not a plugin")

	loader := NewLoader(WithPaths(dir))
	plugins, err := loader.Discover()
	require.NoError(t, err)

	var names []string
	for _, info := range plugins {
		names = append(names, info.Name)
		assert.NotNil(t, info.Manifest, info.Name)
	}
	assert.Equal(t, []string{"bare", "renamed", "single"}, names)

	bare, _ := loader.Get("bare")
	assert.Equal(t, "plugin.lua", bare.Manifest.Main)
	single, _ := loader.Get("single")
	assert.Equal(t, filepath.Join(dir, "single.lua"), single.Manifest.MainPath())
}

func TestLoaderDiscoverErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "empty", "notes.txt"), "")
	writeFile(t, filepath.Join(dir, "broken", ManifestFile), "version = \"1.0.0\"")

	loader := NewLoader(WithPaths(dir))
	_, err := loader.Discover()
	require.NoError(t, err)

	errored := loader.Errors()
	require.Len(t, errored, 2)
	assert.Equal(t, "broken", errored[0].Name)
	assert.ErrorIs(t, errored[0].Error, ErrMissingName)
	assert.Equal(t, "empty", errored[1].Name)
	assert.ErrorIs(t, errored[1].Error, ErrNoEntryPoint)

	_, err = loader.FindPlugin("empty")
	assert.ErrorIs(t, err, ErrNoEntryPoint)
}

func TestLoaderFirstPathWins(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeFile(t, filepath.Join(first, "dup.lua"), "-- first")
	writeFile(t, filepath.Join(second, "dup.lua"), "-- second")

	loader := NewLoader(WithPaths(first, second))
	plugins, err := loader.Discover()
	require.NoError(t, err)
	require.Len(t, plugins, 1)
	assert.Equal(t, first, plugins[0].Path)
}

func TestLoaderFindPlugin(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "late", "init.lua"), "-- plugin")
	writeFile(t, filepath.Join(dir, "solo.lua"), "-- plugin")

	loader := NewLoader(WithPaths(dir))

	info, err := loader.FindPlugin("late")
	require.NoError(t, err)
	assert.Equal(t, "late", info.Manifest.Name)

	_, err = loader.FindPlugin("solo")
	assert.NoError(t, err)

	_, err = loader.FindPlugin("absent")
	assert.ErrorIs(t, err, ErrPluginNotFound)

	assert.Equal(t, []string{"late", "solo"}, loader.ListNames())

	loader.Forget("late")
	_, ok := loader.Get("late")
	assert.False(t, ok, "forgotten plugins are not cached")
}

func TestDefaultPluginPaths(t *testing.T) {
	assert.NotEmpty(t, DefaultPluginPaths())
}
