package noteservice

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/starford/zettelnav/internal/apperr"
)

// DefaultDebounce is used when Watch is given a non-positive debounce.
const DefaultDebounce = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the directory holding the corpus file
// and reloads the index after the file settles, until ctx is cancelled.
//
// Atomic saves replace the file through a rename, so the directory is
// watched rather than the file and events are filtered by name.
func (s *Service) Watch(ctx context.Context, debounce time.Duration) error {
	if s.store == nil {
		return errors.New("noteservice: watch: no corpus configured")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := s.store.Abs(s.corpus)
	if err != nil {
		return err
	}
	dir, name := filepath.Dir(abs), filepath.Base(abs)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}
	s.logger.Info("watcher: started", slog.String("corpus", abs))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(debounce)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			s.logger.Info("watcher: stopped")
			return nil

		case <-reloadCh:
			s.reloadFromWatcher(ctx)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				scheduleReload()
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// The index keeps the last successful build.
				s.logger.Warn("watcher: corpus removed", slog.String("corpus", abs))
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (s *Service) reloadFromWatcher(ctx context.Context) {
	res, changed, err := s.Reload(ctx)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		s.logger.Debug("watcher: corpus missing")
	case err != nil:
		// Already reported through the rebuild hook.
		s.logger.Debug("watcher: reload failed", slog.String("error", err.Error()))
	case changed:
		s.logger.Info("watcher: reloaded",
			slog.Int("notes", res.Notes),
			slog.Int("links", res.Links))
	}
}
