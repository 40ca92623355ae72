package host

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reports changes to plugin sources under a set of plugin
// directories. It runs its own goroutine; onChange must be safe to call
// from it.
type Watcher struct {
	watcher  *fsnotify.Watcher
	roots    []string
	onChange func(name string)
	logger   zerolog.Logger

	closeOnce sync.Once
	closeCh   chan struct{}
	closedWg  sync.WaitGroup
}

// NewWatcher watches every existing directory in paths and its immediate
// plugin subdirectories. Missing paths are skipped.
func NewWatcher(paths []string, onChange func(name string), logger zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsw,
		onChange: onChange,
		logger:   logger.With().Str("component", "watcher").Logger(),
		closeCh:  make(chan struct{}),
	}

	for _, p := range paths {
		root, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			w.logger.Debug().Str("path", p).Msg("plugin path not watched")
			continue
		}
		if err := w.watchRoot(root); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}

	w.closedWg.Add(1)
	go w.processLoop()

	return w, nil
}

func (w *Watcher) watchRoot(root string) error {
	if err := w.watcher.Add(root); err != nil {
		return err
	}
	w.roots = append(w.roots, root)

	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			if err := w.watcher.Add(filepath.Join(root, e.Name())); err != nil {
				w.logger.Warn().Err(err).Str("dir", e.Name()).Msg("cannot watch plugin directory")
			}
		}
	}
	return nil
}

// Roots returns the watched plugin directories.
func (w *Watcher) Roots() []string {
	return append([]string(nil), w.roots...)
}

// Close stops the watcher and waits for its goroutine.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closeCh)
		w.closedWg.Wait()
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) processLoop() {
	defer w.closedWg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod {
		return
	}

	// New plugin directories are watched so their files report too.
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if w.isRoot(filepath.Dir(ev.Name)) {
				_ = w.watcher.Add(ev.Name)
			}
		}
	}

	for _, root := range w.roots {
		if name, ok := PluginName(root, ev.Name); ok {
			w.logger.Debug().Str("plugin", name).Str("op", ev.Op.String()).Msg("plugin source changed")
			w.onChange(name)
			return
		}
	}
}

func (w *Watcher) isRoot(dir string) bool {
	for _, r := range w.roots {
		if r == dir {
			return true
		}
	}
	return false
}

// PluginName maps a changed path under root to the plugin it belongs to.
// root/name.lua is the single-file plugin name; root/name/... is the
// directory plugin name when the file is Lua source or plugin.toml, or the
// directory itself.
func PluginName(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	if strings.HasPrefix(parts[0], ".") {
		return "", false
	}

	if len(parts) == 1 {
		if name, ok := strings.CutSuffix(parts[0], ".lua"); ok {
			return name, name != ""
		}
		if filepath.Ext(parts[0]) == "" {
			return parts[0], true
		}
		return "", false
	}

	base := parts[len(parts)-1]
	if base == "plugin.toml" || strings.HasSuffix(base, ".lua") {
		return parts[0], true
	}
	return "", false
}
