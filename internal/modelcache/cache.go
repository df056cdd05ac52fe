// Package modelcache keeps recently loaded model pipelines in memory and drops
// an entry as soon as its file changes on disk.
package modelcache

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/YuminosukeSato/automl/experiment"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
)

// Cache is an LRU of pipelines keyed by absolute model path.
type Cache struct {
	entries *lru.Cache[string, *experiment.Pipeline]
	watcher *fsnotify.Watcher
	logger  log.Logger

	mu      sync.Mutex
	watched map[string]bool // directories
	loads   int

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a cache holding at most size pipelines.
func New(size int) (*Cache, error) {
	entries, err := lru.New[string, *experiment.Pipeline](size)
	if err != nil {
		return nil, errors.NewValidationError("size", "must be positive", size)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}
	c := &Cache{
		entries: entries,
		watcher: w,
		logger:  log.GetLoggerWithName("modelcache"),
		watched: make(map[string]bool),
		done:    make(chan struct{}),
	}
	c.wg.Add(1)
	go c.watch()
	return c, nil
}

// Get returns the pipeline stored at path, loading it on a miss.
func (c *Cache) Get(path string) (*experiment.Pipeline, error) {
	key, err := filepath.Abs(experiment.ModelPath(path))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid model path %s", path)
	}
	if p, ok := c.entries.Get(key); ok {
		return p, nil
	}

	// watch before loading so a write racing with the load still invalidates
	if err := c.watchDir(filepath.Dir(key)); err != nil {
		return nil, err
	}
	p, err := experiment.LoadModel(key)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.loads++
	c.mu.Unlock()
	c.entries.Add(key, p)
	c.logger.Debug("Model cached", log.PathKey, key, log.ModelIDKey, p.ModelID)
	return p, nil
}

// Invalidate drops the entry for path.
func (c *Cache) Invalidate(path string) {
	if key, err := filepath.Abs(experiment.ModelPath(path)); err == nil {
		c.entries.Remove(key)
	}
}

// Len returns the number of cached pipelines.
func (c *Cache) Len() int { return c.entries.Len() }

// Loads returns how many times a pipeline was read from disk.
func (c *Cache) Loads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads
}

// Close stops the watcher.
func (c *Cache) Close() error {
	close(c.done)
	err := c.watcher.Close()
	c.wg.Wait()
	return err
}

func (c *Cache) watchDir(dir string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watched[dir] {
		return nil
	}
	if err := c.watcher.Add(dir); err != nil {
		return errors.Wrapf(err, "failed to watch %s", dir)
	}
	c.watched[dir] = true
	return nil
}

func (c *Cache) watch() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			key, err := filepath.Abs(ev.Name)
			if err != nil {
				continue
			}
			if c.entries.Remove(key) {
				c.logger.Info("Model file changed, cache entry dropped", log.PathKey, key, "op", ev.Op.String())
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn("File watcher error", err)
		}
	}
}
