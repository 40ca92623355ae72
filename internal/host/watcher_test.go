package host

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPluginName(t *testing.T) {
	root := filepath.FromSlash("/srv/plugins")

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"/srv/plugins/greeter.lua", "greeter", true},
		{"/srv/plugins/admin", "admin", true},
		{"/srv/plugins/admin/init.lua", "admin", true},
		{"/srv/plugins/admin/lib/util.lua", "admin", true},
		{"/srv/plugins/admin/plugin.toml", "admin", true},
		{"/srv/plugins/admin/README.md", "", false},
		{"/srv/plugins/notes.txt", "", false},
		{"/srv/plugins/.lua", "", false},
		{"/srv/plugins/.git/config", "", false},
		{"/srv/plugins", "", false},
		{"/srv/other/x.lua", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := PluginName(root, filepath.FromSlash(tt.path))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// waitName returns the next name reported on ch, failing after a timeout.
func waitName(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case name := <-ch:
		return name
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change")
		return ""
	}
}

func TestWatcherReportsChanges(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "admin"), 0755))

	changes := make(chan string, 64)
	w, err := NewWatcher([]string{dir, filepath.Join(dir, "missing")}, func(name string) {
		changes <- name
	}, zerolog.Nop())
	require.NoError(t, err)
	defer w.Close()

	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{abs}, w.Roots())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeter.lua"), []byte("-- v1"), 0644))
	assert.Equal(t, "greeter", waitName(t, changes))

	// Drain duplicates from the create and write events.
	time.Sleep(50 * time.Millisecond)
	for len(changes) > 0 {
		<-changes
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "admin", "init.lua"), []byte("-- v1"), 0644))
	assert.Equal(t, "admin", waitName(t, changes))
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	w, err := NewWatcher([]string{t.TempDir()}, func(string) {}, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
