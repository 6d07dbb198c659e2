package domain

import (
	"context"
)

type ResolveRequest struct {
	ProductType string
	Version     *int
	Carrier     string
}

type PublishOptions struct {
	Activate  bool
	Supersede bool
	Source    string
}

type Service interface {
	// ResolveActive selects the table a rating would use right now.
	ResolveActive(ctx context.Context, req ResolveRequest) (*RateTable, error)
	LoadSnapshot(ctx context.Context, table *RateTable) (*Snapshot, error)
	Options(ctx context.Context, req ResolveRequest) (*Options, error)

	Publish(ctx context.Context, doc *Document, opts PublishOptions) (*RateTable, error)
	Activate(ctx context.Context, id string, supersede bool) (*RateTable, error)
	Deactivate(ctx context.Context, id string) (*RateTable, error)
	List(ctx context.Context, req ListRequest) ([]RateTable, error)

	WarmCache(ctx context.Context) (int, error)
	ExpireTables(ctx context.Context) (int, error)
}
