package global

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultWatchDebounce = 200 * time.Millisecond

// Watch reloads config.toml whenever it changes and hands the parsed
// settings to onChange. The directory is watched rather than the file
// because Save replaces the file by rename. A file that fails to parse
// goes to onError and the previous settings stay in effect. Watch blocks
// until ctx is done.
func (s *ConfigStore) Watch(ctx context.Context, debounce time.Duration, onChange func(BridgeConfig), onError func(error)) error {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(s.dir); err != nil {
		return err
	}

	target := filepath.Clean(s.Path())
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
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
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(err)
			}
		case <-timer.C:
			cfg, err := s.load()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if onChange != nil {
				onChange(cfg)
			}
		}
	}
}
