package shader

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// Watcher observes a SPIR-V directory and calls notify whenever a .spv file is written or
// replaced. notify runs on the watcher goroutine and must only record the request; the
// render loop performs the reload.
type Watcher struct {
	watcher *fsnotify.Watcher
	notify  func()
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewWatcher starts watching dir.
//
// Parameters:
//   - dir: the SPIR-V directory
//   - notify: called once per relevant file event
//   - logger: the base logger, may be nil
//
// Returns:
//   - *Watcher: the running watcher; call Close to stop it
//   - error: error if the directory cannot be watched
func NewWatcher(dir string, notify func(), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating shader watcher")
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "watching %s", dir)
	}
	w := &Watcher{
		watcher: fw,
		notify:  notify,
		logger:  logger.With(slog.String("component", "shader")),
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Ext(ev.Name) != ".spv" || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			w.logger.Debug("shader changed", slog.String("file", ev.Name), slog.String("op", ev.Op.String()))
			w.notify()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("shader watcher error", slog.String("error", err.Error()))
		}
	}
}

// Close stops watching and waits for the watcher goroutine to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
