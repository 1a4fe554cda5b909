package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dshills/relay/internal/logging"
)

// UpdateHandler is called with each successfully reloaded configuration.
type UpdateHandler func(*Config)

// Watcher reloads a configuration file when it changes on disk.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	handler UpdateHandler
	logger  logrus.FieldLogger
}

// NewWatcher creates a watcher for path. Call Start to begin watching.
func NewWatcher(path string, handler UpdateHandler) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", path)
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create file watcher")
	}

	return &Watcher{
		path:    abs,
		watcher: fsWatcher,
		handler: handler,
		logger:  logging.Default().WithField("config", abs),
	}, nil
}

// Start watches the file's directory, so editors that replace the file are
// handled, and returns once the watch is registered. Watching stops when ctx
// is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return errors.Wrapf(err, "watch %s", filepath.Dir(w.path))
	}
	w.logger.Info("watching configuration file")

	go w.watchLoop(ctx)
	return nil
}

// Stop stops watching.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// watchLoop dispatches file system events until ctx is done.
func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			_ = w.watcher.Close()
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.reload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Error("file watcher error")
		}
	}
}

// reload loads the file and hands it to the handler. Invalid files are
// logged and the previous configuration stays in effect.
func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.WithError(err).Warn("ignoring invalid configuration change")
		return
	}

	w.logger.Info("configuration reloaded")
	if w.handler != nil {
		w.handler(cfg)
	}
}
