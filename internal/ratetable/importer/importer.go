package importer

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/railzwaylabs/ratebook/internal/ratetable/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Service domain.Service
}

type Importer struct {
	log *zap.Logger
	svc domain.Service
}

func New(p Params) *Importer {
	return &Importer{
		log: p.Log.Named("ratetable.importer"),
		svc: p.Service,
	}
}

// ImportFile decodes the document at path and publishes it as a new version.
func (i *Importer) ImportFile(ctx context.Context, path string, opts domain.PublishOptions) (*domain.RateTable, error) {
	doc, err := DecodeFile(path)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if opts.Source == "" {
		opts.Source = "file"
	}
	table, err := i.svc.Publish(ctx, doc, opts)
	if err != nil {
		return nil, fmt.Errorf("publish %s: %w", filepath.Base(path), err)
	}
	i.log.Info("rate table imported",
		zap.String("path", path),
		zap.String("product_type", table.ProductType),
		zap.Int("version", table.Version),
		zap.Bool("active", table.IsActive),
	)
	return table, nil
}
