package analytics

import (
	"log/slog"
	"sort"
	"sync"

	"retailbot/internal/domain"
)

// Bounds for the fallback cache. The hour histogram needs no cap (24 buckets);
// categories are capped here even though the durable store leaves them open,
// since the cache is the path that must survive unbounded input.
const (
	MaxStores       = 100
	MaxFAQKeys      = 50
	MaxCategoryKeys = 100
)

// FallbackCache is the process-local, size-bounded substitute for the durable
// aggregate store. Writes never fail; this is the last-resort path. Eviction
// runs deterministically after every write, so the bounds hold after any
// completed call. Counts evicted here are lost, not merged elsewhere, and the
// cache is never reconciled back into the durable store after an outage.
type FallbackCache struct {
	mu         sync.Mutex
	stores     map[string]*fallbackEntry
	order      []string // store ids in first-seen order, oldest first
	maxStores  int
	maxFAQKeys int
	logger     *slog.Logger
}

type fallbackEntry struct {
	record   *domain.AggregateRecord
	faqOrder []string // faq keys in insertion order, for deterministic tie-breaks
	catOrder []string
}

func NewFallbackCache(logger *slog.Logger) *FallbackCache {
	return NewFallbackCacheWithBounds(MaxStores, MaxFAQKeys, logger)
}

// NewFallbackCacheWithBounds overrides the default store and FAQ caps, for
// deployments that tune them in config.
func NewFallbackCacheWithBounds(maxStores, maxFAQKeys int, logger *slog.Logger) *FallbackCache {
	if maxStores <= 0 {
		maxStores = MaxStores
	}
	if maxFAQKeys <= 0 {
		maxFAQKeys = MaxFAQKeys
	}
	return &FallbackCache{
		stores:     make(map[string]*fallbackEntry),
		maxStores:  maxStores,
		maxFAQKeys: maxFAQKeys,
		logger:     logger,
	}
}

// RecordEvent folds the event into the store's aggregate record and then
// enforces the cache bounds.
func (c *FallbackCache) RecordEvent(event domain.QueryEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.stores[event.StoreID]
	if !ok {
		entry = &fallbackEntry{record: domain.NewAggregateRecord()}
		c.stores[event.StoreID] = entry
		c.order = append(c.order, event.StoreID)
	}

	faqKey := domain.FAQKey(event.Query)
	if _, exists := entry.record.FAQs[faqKey]; !exists {
		entry.faqOrder = append(entry.faqOrder, faqKey)
	}
	if event.Category != "" {
		if _, exists := entry.record.Categories[event.Category]; !exists {
			entry.catOrder = append(entry.catOrder, event.Category)
		}
	}

	entry.record.Apply(event)
	c.evictLocked()
}

// ReadAggregate returns a deep copy of the store's record, or nil when the
// store is not resident (never written, or evicted).
func (c *FallbackCache) ReadAggregate(storeID string) *domain.AggregateRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.stores[storeID]
	if !ok {
		return nil
	}
	return entry.record.Clone()
}

// StoreCount reports how many store ids are resident.
func (c *FallbackCache) StoreCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.stores)
}

// Evict re-applies all bounds. RecordEvent already calls this after every
// write; it is exported for callers that want to reclaim memory explicitly.
func (c *FallbackCache) Evict() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictLocked()
}

func (c *FallbackCache) evictLocked() {
	// Oldest-inserted stores go first, by first-seen order, not write recency.
	for len(c.order) > c.maxStores {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.stores, oldest)
		c.logger.Debug("fallback cache evicted store", "store", oldest)
	}

	for _, entry := range c.stores {
		entry.faqOrder = trimTopN(entry.record.FAQs, entry.faqOrder, c.maxFAQKeys)
		entry.catOrder = trimTopN(entry.record.Categories, entry.catOrder, MaxCategoryKeys)
	}
}

// trimTopN keeps the max highest-count keys of counts, breaking count ties by
// insertion order. Dropped counts are discarded. Returns the surviving
// insertion-order list.
func trimTopN(counts map[string]int64, insertion []string, max int) []string {
	if len(counts) <= max {
		return insertion
	}

	ranked := append([]string(nil), insertion...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return counts[ranked[i]] > counts[ranked[j]]
	})

	for _, key := range ranked[max:] {
		delete(counts, key)
	}

	keep := make(map[string]bool, max)
	for _, key := range ranked[:max] {
		keep[key] = true
	}
	survivors := insertion[:0]
	for _, key := range insertion {
		if keep[key] {
			survivors = append(survivors, key)
		}
	}
	return survivors
}
