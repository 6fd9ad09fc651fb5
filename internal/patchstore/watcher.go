package patchstore

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Change kinds reported by Watch.
const (
	ChangeSaved   = "saved"
	ChangeDeleted = "deleted"
)

// ChangeCallback is called for every patch file change seen by Watch.
type ChangeCallback func(kind, id string)

// Watch observes the FS backend directory and reports patch files created,
// written, removed or renamed away by any process, until ctx is cancelled.
// Temporary files from atomic writes are ignored; their rename surfaces as a
// Create of the final name.
func Watch(ctx context.Context, dir string, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("patch watcher: started", slog.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			logger.Info("patch watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			id, ok := idFromPath(ev.Name)
			if !ok {
				continue
			}

			var kind string
			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				kind = ChangeSaved
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				kind = ChangeDeleted
			default:
				continue
			}

			logger.Debug("patch watcher: change", slog.String("id", id), slog.String("kind", kind))
			if cb != nil {
				cb(kind, id)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("patch watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
