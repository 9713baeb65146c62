package calendar

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DecisionCache memoizes per-date business-day answers.
// When full it is flushed entirely rather than evicting single entries.
type DecisionCache struct {
	capacity  int
	logger    *zap.Logger
	decisions map[time.Time]bool
	mu        sync.RWMutex
}

// NewDecisionCache creates a cache holding at most capacity entries
func NewDecisionCache(capacity int, logger *zap.Logger) *DecisionCache {
	if capacity <= 0 {
		capacity = defaultDecisionCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DecisionCache{
		capacity:  capacity,
		logger:    logger,
		decisions: make(map[time.Time]bool, capacity),
	}
}

// Get returns the memoized answer for a truncated date
func (c *DecisionCache) Get(date time.Time) (isBusinessDay bool, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	isBusinessDay, ok = c.decisions[date]
	return isBusinessDay, ok
}

// Put stores an answer, flushing first if the cache is full
func (c *DecisionCache) Put(date time.Time, isBusinessDay bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.decisions[date]; !exists && len(c.decisions) >= c.capacity {
		c.logger.Debug("Decision cache full, flushing",
			zap.Int("capacity", c.capacity))
		clear(c.decisions)
	}
	c.decisions[date] = isBusinessDay
}

// Len returns the number of memoized answers
func (c *DecisionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.decisions)
}

// Clear drops every memoized answer
func (c *DecisionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.decisions)
}
