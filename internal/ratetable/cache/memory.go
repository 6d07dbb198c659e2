package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/railzwaylabs/ratebook/internal/metrics"
	ratetabledomain "github.com/railzwaylabs/ratebook/internal/ratetable/domain"
)

const backendMemory = "memory"

type Memory struct {
	lru *expirable.LRU[string, *ratetabledomain.Snapshot]
}

// NewMemory returns an in-process LRU. Expired entries are purged in the
// background. A ttl of zero keeps entries until they are invalidated or
// pushed out, and a size of zero removes the entry cap.
func NewMemory(ttl time.Duration, size int) *Memory {
	return &Memory{lru: expirable.NewLRU[string, *ratetabledomain.Snapshot](size, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, productType string, version int) (*ratetabledomain.Snapshot, bool, error) {
	snap, ok := m.lru.Get(key(productType, version))
	if !ok {
		observe(backendMemory, "miss")
		return nil, false, nil
	}
	observe(backendMemory, "hit")
	return snap, true, nil
}

func (m *Memory) Set(_ context.Context, snap *ratetabledomain.Snapshot) error {
	m.lru.Add(key(snap.Table.ProductType, snap.Table.Version), snap)
	return nil
}

func (m *Memory) Invalidate(_ context.Context, productType string, version int) error {
	m.lru.Remove(key(productType, version))
	metrics.SnapshotCacheInvalidations.WithLabelValues(backendMemory).Inc()
	return nil
}

// Len reports how many snapshots are held, expired ones included until the
// next purge.
func (m *Memory) Len() int {
	return m.lru.Len()
}
