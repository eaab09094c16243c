package forge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	json "github.com/goccy/go-json"

	"forgewatch/pkg/logx"
)

// Item is one catalog entry from forge_items.json.
type Item struct {
	Name       string `json:"name"`
	DurationMS int64  `json:"duration"`
}

// Catalog maps item IDs to their display name and base craft duration.
// Reads vastly outnumber reloads, so a plain RWMutex is enough.
type Catalog struct {
	mu    sync.RWMutex
	items map[string]Item
}

// NewCatalog builds a catalog from already-validated entries.
func NewCatalog(items map[string]Item) *Catalog {
	if items == nil {
		items = map[string]Item{}
	}
	return &Catalog{items: items}
}

// LoadCatalog reads the item catalog. A missing or unreadable file yields
// an empty catalog with a warning; readiness simply cannot be computed for
// unknown items, which callers handle per slot.
func LoadCatalog(path string, log logx.Logger) *Catalog {
	c := &Catalog{items: map[string]Item{}}
	c.reload(path, log)
	return c
}

func (c *Catalog) reload(path string, log logx.Logger) {
	b, err := os.ReadFile(path)
	if err != nil {
		log.Warn("item catalog unavailable; durations unknown", logx.String("path", path), logx.Err(err))
		return
	}

	var raw map[string]Item
	if err := json.Unmarshal(b, &raw); err != nil {
		log.Warn("item catalog malformed; keeping previous entries", logx.String("path", path), logx.Err(err))
		return
	}

	items := make(map[string]Item, len(raw))
	for id, it := range raw {
		if it.DurationMS <= 0 {
			log.Warn("item catalog entry missing duration", logx.String("item", id))
			continue
		}
		if it.Name == "" {
			it.Name = id
		}
		items[id] = it
	}

	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
	log.Info("item catalog loaded", logx.Int("items", len(items)))
}

// Lookup returns the catalog entry for an item ID.
func (c *Catalog) Lookup(id string) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[id]
	return it, ok
}

// Len reports the number of known items.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Watch reloads the catalog when its file changes, so item durations can
// be corrected without a restart. Blocks until ctx is done; watcher
// setup failure is logged and the startup snapshot stays in effect.
func (c *Catalog) Watch(ctx context.Context, path string, log logx.Logger) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("catalog watch unavailable", logx.Err(err))
		return
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(path)); err != nil {
		log.Warn("catalog watch unavailable", logx.String("path", path), logx.Err(err))
		return
	}
	base := filepath.Base(path)

	// Debounce editor write bursts so we reload a settled file once.
	var pending *time.Timer
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !strings.EqualFold(filepath.Base(ev.Name), base) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(250*time.Millisecond, func() {
				c.reload(path, log)
			})
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			if err != nil {
				log.Warn("catalog watch error", logx.Err(err))
			}
		}
	}
}
