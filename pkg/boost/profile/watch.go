package profile

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/boost/pkg/boost/logging"
)

// Watch calls onChange with the profile name whenever a profile file in the
// store directory is written, created, removed or renamed. It blocks until
// ctx is cancelled.
func (s *Store) Watch(ctx context.Context, onChange func(name string)) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(s.dir); err != nil {
		return err
	}

	log := logging.Get("profile")
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			base := filepath.Base(event.Name)
			if !strings.HasSuffix(base, ext) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			log.Debug("profile changed", "file", base, "op", event.Op)
			onChange(strings.TrimSuffix(base, ext))

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Error("watcher error", "error", err)
		}
	}
}
