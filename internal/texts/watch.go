// Package texts loads the fallback typing texts used when generation fails.
package texts

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceDelay = 100 * time.Millisecond

// Watch reloads path into b whenever the file is written or created, until
// ctx is cancelled. A file that fails to parse leaves the previous texts in
// place and is reported through onErr. onReload runs after each successful
// reload. Both callbacks may be nil and run on a timer goroutine.
func (b *Bank) Watch(ctx context.Context, path string, onReload func(n int), onErr func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	// Watch the directory so editors that replace the file are seen.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		if cerr := watcher.Close(); cerr != nil {
			// Best-effort close on add failure.
			_ = cerr
		}
		return fmt.Errorf("failed to watch texts directory: %w", err)
	}

	reload := func() {
		texts, err := readFile(path)
		if err != nil {
			if onErr != nil {
				onErr(fmt.Errorf("reload texts: %w", err))
			}
			return
		}
		b.Replace(texts)
		if onReload != nil {
			onReload(b.Len())
		}
	}

	go func() {
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
			if cerr := watcher.Close(); cerr != nil {
				// Best-effort watcher close.
				_ = cerr
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != filepath.Base(path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounceDelay, reload)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if onErr != nil {
					onErr(err)
				}
			}
		}
	}()
	return nil
}
