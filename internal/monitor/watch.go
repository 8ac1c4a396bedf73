package monitor

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/thiagokokada/gitmon-go/internal/debounce"
)

// configWatcher calls onChange, debounced, after the configuration file is
// written or replaced.
type configWatcher struct {
	file     string
	watcher  *fsnotify.Watcher
	debounce *debounce.Debouncer
	done     chan struct{}
	once     sync.Once
}

func watchConfig(file string, delay time.Duration, onChange func()) (*configWatcher, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	// Editors often replace the file, so watch its directory.
	dir := filepath.Dir(abs)
	slog.Debug("adding path to FS watcher", slog.String("path", dir))
	if err := watcher.Add(dir); err != nil {
		err := errors.Join(err, watcher.Close())
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	w := &configWatcher{
		file:     abs,
		watcher:  watcher,
		debounce: debounce.New(delay, onChange),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *configWatcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(ev.Name) != w.file {
				continue
			}
			slog.Debug("fsnotify event",
				slog.String("op", ev.Op.String()),
				slog.String("path", ev.Name),
				slog.Bool("pending", w.debounce.Pending()),
			)
			w.debounce.Trigger()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("fsnotify error", slog.Any("error", err))
		}
	}
}

func (w *configWatcher) Close() error {
	var err error
	w.once.Do(func() {
		w.debounce.Stop()
		err = w.watcher.Close()
		<-w.done
	})
	return err
}
