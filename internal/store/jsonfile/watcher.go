package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const (
	debounceDelay   = 50 * time.Millisecond
	eventBufferSize = 100
)

// KeyEvent reports that the file for Key was rewritten.
type KeyEvent struct {
	Key       string
	Timestamp time.Time
}

// Watcher watches a Store directory for key files changed on disk.
type Watcher struct {
	dir     string
	watcher *fsnotify.Watcher
	logger  zerolog.Logger

	mu          sync.RWMutex
	subscribers map[string][]chan<- KeyEvent // pattern -> channels
	debounce    map[string]*time.Timer       // key -> debounce timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a watcher for dir. The directory is created if it
// doesn't exist.
func NewWatcher(dir string, logger zerolog.Logger) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		dir:         dir,
		watcher:     watcher,
		logger:      logger,
		subscribers: make(map[string][]chan<- KeyEvent),
		debounce:    make(map[string]*time.Timer),
		ctx:         ctx,
		cancel:      cancel,
	}

	w.wg.Add(1)
	go w.run()

	return w, nil
}

// Watch returns a channel that receives events for keys matching pattern.
// Patterns use doublestar syntax ("notifications:*"); empty matches every key.
// The channel is closed when ctx is done or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context, pattern string) (<-chan KeyEvent, error) {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, doublestar.ErrBadPattern
	}

	ch := make(chan KeyEvent, eventBufferSize)

	w.mu.Lock()
	w.subscribers[pattern] = append(w.subscribers[pattern], ch)
	w.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			w.unsubscribe(pattern, ch)
		case <-w.ctx.Done():
			// Close() owns the channel now.
		}
	}()

	return ch, nil
}

// Close stops watching and closes all subscriber channels.
func (w *Watcher) Close() error {
	w.cancel()

	w.mu.Lock()
	for _, timer := range w.debounce {
		timer.Stop()
	}

	for _, subs := range w.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	w.subscribers = make(map[string][]chan<- KeyEvent)
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) unsubscribe(pattern string, ch chan<- KeyEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	subs := w.subscribers[pattern]
	for i, sub := range subs {
		if sub == ch {
			w.subscribers[pattern] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}
	if len(w.subscribers[pattern]) == 0 {
		delete(w.subscribers, pattern)
	}
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Str("dir", w.dir).Msg("file watcher error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	key, ok := keyFromFilename(filepath.Base(event.Name))
	if !ok {
		return
	}

	w.mu.Lock()
	if timer, exists := w.debounce[key]; exists {
		timer.Stop()
	}
	w.debounce[key] = time.AfterFunc(debounceDelay, func() {
		w.notifySubscribers(key)
	})
	w.mu.Unlock()
}

func (w *Watcher) notifySubscribers(key string) {
	event := KeyEvent{
		Key:       key,
		Timestamp: time.Now(),
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// Close() may have raced the timer.
	if w.ctx.Err() != nil {
		return
	}

	for pattern, subs := range w.subscribers {
		if !matchesPattern(pattern, key) {
			continue
		}
		for _, ch := range subs {
			select {
			case ch <- event:
			default:
				w.logger.Debug().Str("key", key).Msg("watch subscriber full, dropping event")
			}
		}
	}

	delete(w.debounce, key)
}

func matchesPattern(pattern, key string) bool {
	if pattern == "" {
		return true
	}
	ok, err := doublestar.Match(pattern, key)
	return err == nil && ok
}
