package contents

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeDebounce is how long Watch waits for writes to settle.
const ChangeDebounce = 200 * time.Millisecond

// Watch reports writes to the file rel until ctx is cancelled. cb receives
// the file's modification time once changes have settled; the caller
// compares it with the record's last save to tell its own writes apart.
//
// The parent directory is watched rather than the file itself because
// atomic saves replace the file under a new inode.
func (s *Store) Watch(ctx context.Context, rel string, cb func(modTime time.Time)) error {
	abs, err := s.safePath(rel)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	s.logger.Debug().Str("path", rel).Msg("watcher: started")

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			s.logger.Debug().Str("path", rel).Msg("watcher: stopped")
			return nil

		case <-fire:
			fire = nil
			fi, err := os.Stat(abs)
			if err != nil {
				s.logger.Debug().Err(err).Str("path", rel).Msg("watcher: stat after change")
				continue
			}
			cb(fi.ModTime())

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(ChangeDebounce)
			} else {
				timer.Reset(ChangeDebounce)
			}
			fire = timer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn().Err(err).Str("path", rel).Msg("watcher: error")
		}
	}
}
