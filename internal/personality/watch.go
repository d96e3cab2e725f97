package personality

import (
	"context"
	"path/filepath"

	"docbrain-go/pkg/log"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads path into r whenever it is written or recreated, until ctx
// is done. The directory is watched so editors that replace the file are
// handled. onReload, if set, runs after every successful reload.
func (r *Registry) Watch(ctx context.Context, path string, onReload func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return err
	}

	target := filepath.Clean(path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
					continue
				}
				if err := r.LoadFile(path); err != nil {
					log.Warnf("[Personality] reload of %s failed: %v", path, err)
					continue
				}
				if onReload != nil {
					onReload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warnf("[Personality] watcher error: %v", err)
			}
		}
	}()
	return nil
}
