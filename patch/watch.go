package patch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch calls fn with the freshly loaded patch every time the file at path
// is written or replaced. Load errors are passed to fn and watching
// continues. Watch blocks until ctx is done or the watcher fails.
//
// The parent directory is watched so editors that save by renaming a
// temporary file are picked up.
func Watch(ctx context.Context, path string, fn func(*Patch, error)) error {
	path = filepath.Clean(path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("patch: watch: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("patch: watch %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(ev.Name) != path {
				continue
			}

			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			fn(Load(path))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}

			return fmt.Errorf("patch: watch %s: %w", path, err)
		}
	}
}
