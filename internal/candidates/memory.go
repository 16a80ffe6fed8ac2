package candidates

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aa87864763/wanyongzhi/internal/models"
)

type MemoryCache struct {
	mu    sync.Mutex
	items map[string]models.CandidateSession
	now   func() time.Time
	log   *zap.Logger
}

func NewMemoryCache(log *zap.Logger) *MemoryCache {
	return &MemoryCache{
		items: make(map[string]models.CandidateSession),
		now:   time.Now,
		log:   log,
	}
}

func (c *MemoryCache) Put(ctx context.Context, s models.CandidateSession) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[s.ID] = s
	return nil
}

func (c *MemoryCache) Get(ctx context.Context, id string) (*models.CandidateSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.items[id]
	if !ok || !c.now().Before(s.ExpiresAt) {
		return nil, fmt.Errorf("get session %s: %w", id, ErrSessionNotFound)
	}
	return &s, nil
}

func (c *MemoryCache) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Sweep removes expired sessions and returns how many it removed.
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for id, s := range c.items {
		if !now.Before(s.ExpiresAt) {
			delete(c.items, id)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps expired sessions every interval until ctx is done.
func (c *MemoryCache) StartJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.log.Info("candidate janitor started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			c.log.Info("candidate janitor shutting down")
			return
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				c.log.Debug("expired candidate sessions removed", zap.Int("count", n))
			}
		}
	}
}
