package scheduler

import (
	"context"
)

// WarmCacheJob loads the snapshot of every active table into the cache so
// the first rating after a deploy or eviction does not pay for the load.
func (s *Scheduler) WarmCacheJob(ctx context.Context) (int, error) {
	return s.rateTables.WarmCache(ctx)
}

// ExpireTablesJob deactivates active tables whose expiration date has
// passed. Their rows are kept; only is_active changes.
func (s *Scheduler) ExpireTablesJob(ctx context.Context) (int, error) {
	return s.rateTables.ExpireTables(ctx)
}
