// Package cache holds recently computed totals snapshots in process memory.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/garyjia/legal-aid-claims/internal/application/port"
	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
)

// TotalsCache is an LRU of totals snapshots keyed by claim id, each entry expiring after ttl
type TotalsCache struct {
	lru *expirable.LRU[string, entity.ClaimTotals]
}

var _ port.TotalsCache = (*TotalsCache)(nil)

// NewTotalsCache creates a cache holding at most size snapshots
func NewTotalsCache(size int, ttl time.Duration) *TotalsCache {
	return &TotalsCache{lru: expirable.NewLRU[string, entity.ClaimTotals](size, nil, ttl)}
}

// Get returns the cached snapshot for claimID
func (c *TotalsCache) Get(claimID string) (entity.ClaimTotals, bool) {
	return c.lru.Get(claimID)
}

// Set stores or replaces the snapshot for claimID
func (c *TotalsCache) Set(claimID string, totals entity.ClaimTotals) {
	c.lru.Add(claimID, totals)
}

// Invalidate drops the snapshot for claimID
func (c *TotalsCache) Invalidate(claimID string) {
	c.lru.Remove(claimID)
}

// Len reports how many snapshots are cached
func (c *TotalsCache) Len() int {
	return c.lru.Len()
}
