package registry

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watch re-reads path whenever it changes and hands every valid parse to
// apply. Invalid or transiently unreadable files are logged and skipped, so
// the daemon keeps serving the last good registry. Watch blocks until ctx is
// canceled.
//
// The parent directory is watched rather than the file itself: atomic
// replaces (temp file + rename, which is how Save writes) would otherwise
// drop the watch.
func Watch(ctx context.Context, path string, log zerolog.Logger, apply func(*File)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(path)

	// Debounce: editors and atomic renames fire bursts of events.
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(200 * time.Millisecond)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("model config watcher error")
		case <-pending:
			pending = nil
			f, err := Load(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("ignoring invalid model config update")
				continue
			}
			log.Info().Str("path", path).Int("models", len(f.Models)).Msg("model config reloaded")
			apply(f)
		}
	}
}
