package cli

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/matzehuels/texbake/pkg/config"
)

// defaultDebounce is the quiet period after the last change before a rebake.
const defaultDebounce = 300 * time.Millisecond

var errWatcherClosed = stderrors.New("file watcher closed")

// fileWatcher reports debounced changes to a set of files. Directories are
// watched rather than the files themselves so that editors which save by
// renaming a temporary file are still seen.
type fileWatcher struct {
	fw       *fsnotify.Watcher
	files    map[string]bool
	dirs     map[string]bool
	debounce time.Duration
	logger   *log.Logger
}

func newFileWatcher(debounce time.Duration, logger *log.Logger) (*fileWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &fileWatcher{
		fw:       fw,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		debounce: debounce,
		logger:   logger,
	}, nil
}

// add starts watching path. Adding a file twice is a no-op.
func (w *fileWatcher) add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w.files[abs] = true
	dir := filepath.Dir(abs)
	if w.dirs[dir] {
		return nil
	}
	if err := w.fw.Add(dir); err != nil {
		return err
	}
	w.dirs[dir] = true
	return nil
}

func (w *fileWatcher) close() error {
	return w.fw.Close()
}

func (w *fileWatcher) relevant(ev fsnotify.Event) bool {
	if !w.files[filepath.Clean(ev.Name)] {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove)
}

// wait blocks until a watched file changed and then stayed quiet for the
// debounce period, returning the last file seen.
func (w *fileWatcher) wait(ctx context.Context) (string, error) {
	var (
		timer *time.Timer
		fire  <-chan time.Time
		last  string
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()

		case ev, ok := <-w.fw.Events:
			if !ok {
				return "", errWatcherClosed
			}
			if !w.relevant(ev) {
				continue
			}
			last = ev.Name
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			return last, nil

		case err, ok := <-w.fw.Errors:
			if !ok {
				return "", errWatcherClosed
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}

// watchBake bakes once and then again after every change to the config or
// the scene it names, until ctx is canceled. Failed bakes are reported and
// watching continues.
func (c *CLI) watchBake(ctx context.Context, path string, opts *bakeOpts) error {
	w, err := newFileWatcher(opts.debounce, c.Logger)
	if err != nil {
		return err
	}
	defer w.close()

	if err := w.add(path); err != nil {
		return err
	}

	for {
		_, err := c.runBake(ctx, path, opts)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			printError("%v", err)
		}
		if scene := sceneFile(path); scene != "" {
			if err := w.add(scene); err != nil {
				c.Logger.Warn("cannot watch scene", "path", scene, "err", err)
			}
		}

		printInfo("Watching %s for changes (Ctrl+C to stop)", path)
		changed, err := w.wait(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		printNewline()
		printInfo("%s changed, rebaking", filepath.Base(changed))
	}
}

// sceneFile returns the scene named by the config at path, or "" when the
// config cannot be loaded.
func sceneFile(path string) string {
	cfg, err := config.Load(path)
	if err != nil {
		return ""
	}
	return cfg.SceneFile
}
