package rates

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// refreshTimeout bounds one scheduled reload of all cached tables.
const refreshTimeout = time.Minute

// Cache keeps loaded tables in memory and reloads them on a cron schedule.
// Books handed out are shared and must be treated as read-only.
type Cache struct {
	src Source

	mu    sync.RWMutex
	books map[string]Book
	specs map[string]TableSpec

	cron *cron.Cron
}

// NewCache wraps src.
func NewCache(src Source) *Cache {
	return &Cache{
		src:   src,
		books: make(map[string]Book),
		specs: make(map[string]TableSpec),
	}
}

// Load returns the cached table, reading it from the source on first use.
func (c *Cache) Load(ctx context.Context, spec TableSpec) (Book, error) {
	c.mu.RLock()
	book, ok := c.books[spec.Name]
	c.mu.RUnlock()
	if ok {
		return book, nil
	}

	book, err := c.src.Load(ctx, spec)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.books[spec.Name] = book
	c.specs[spec.Name] = spec
	c.mu.Unlock()

	return book, nil
}

// Refresh reloads every table loaded so far. A table that fails to load
// keeps its previous contents; the first failure is returned.
func (c *Cache) Refresh(ctx context.Context) error {
	c.mu.RLock()
	specs := make([]TableSpec, 0, len(c.specs))
	for _, spec := range c.specs {
		specs = append(specs, spec)
	}
	c.mu.RUnlock()

	var firstErr error
	for _, spec := range specs {
		book, err := c.src.Load(ctx, spec)
		if err != nil {
			slog.Warn("rate table refresh failed", "table", spec.Name, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("refresh %s: %w", spec.Name, err)
			}
			continue
		}
		c.mu.Lock()
		c.books[spec.Name] = book
		c.mu.Unlock()
	}

	if firstErr == nil && len(specs) > 0 {
		slog.Debug("rate tables refreshed", "tables", len(specs))
	}
	return firstErr
}

// Start schedules Refresh with a cron spec such as "@every 5m".
func (c *Cache) Start(schedule string) error {
	sched := cron.New()
	_, err := sched.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		_ = c.Refresh(ctx)
	})
	if err != nil {
		return fmt.Errorf("rate refresh schedule %q: %w", schedule, err)
	}

	c.cron = sched
	sched.Start()
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish.
func (c *Cache) Stop() {
	if c.cron == nil {
		return
	}
	<-c.cron.Stop().Done()
}
