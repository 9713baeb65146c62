package calendar

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Fetcher performs the expensive holiday download
type Fetcher interface {
	Fetch() (HolidaySet, error)
}

type fetchCacheEntry struct {
	value     HolidaySet
	fetchedAt time.Time
}

// FetchCache keeps the last fetched holiday set for a TTL
type FetchCache struct {
	fetcher Fetcher
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger

	mu    sync.Mutex
	entry *fetchCacheEntry
}

// NewFetchCache wraps fetcher. now defaults to time.Now.
func NewFetchCache(fetcher Fetcher, ttl time.Duration, now func() time.Time, logger *zap.Logger) *FetchCache {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FetchCache{
		fetcher: fetcher,
		ttl:     ttl,
		now:     now,
		logger:  logger,
	}
}

// Get returns the cached set, fetching when there is none or it expired.
// A failed refresh leaves the previous entry in place.
func (c *FetchCache) Get() (HolidaySet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.validLocked(now) {
		c.logger.Debug("Using cached holidays",
			zap.Time("fetched_at", c.entry.fetchedAt))
		return c.entry.value, nil
	}

	value, err := c.fetcher.Fetch()
	if err != nil {
		return nil, err
	}

	c.entry = &fetchCacheEntry{
		value:     value,
		fetchedAt: now,
	}

	return value, nil
}

// HolidaysFor makes FetchCache a HolidaySource; the year is ignored
func (c *FetchCache) HolidaysFor(int) (HolidaySet, error) {
	return c.Get()
}

// Fresh reports whether Get would be served without fetching
func (c *FetchCache) Fresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.validLocked(c.now())
}

// ClearCache drops the cached entry
func (c *FetchCache) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entry = nil
	c.logger.Info("Holiday fetch cache cleared")
}

func (c *FetchCache) validLocked(now time.Time) bool {
	if c.entry == nil {
		return false
	}
	if c.ttl == TTLDisabled {
		return true
	}
	return now.Sub(c.entry.fetchedAt) < c.ttl
}
