// Package seed publishes the bundled sample rate tables and scenarios.
package seed

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"github.com/railzwaylabs/ratebook/internal/ratetable/domain"
	"github.com/railzwaylabs/ratebook/internal/ratetable/importer"
	scenariodomain "github.com/railzwaylabs/ratebook/internal/scenario/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

//go:embed tables/*.yaml scenarios/*.json
var samples embed.FS

// Tables decodes the bundled rate table documents, sorted by file name.
func Tables() ([]*domain.Document, error) {
	entries, err := fs.ReadDir(samples, "tables")
	if err != nil {
		return nil, fmt.Errorf("list sample tables: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	docs := make([]*domain.Document, 0, len(names))
	for _, name := range names {
		raw, err := samples.ReadFile(path.Join("tables", name))
		if err != nil {
			return nil, err
		}
		format, err := importer.FormatFromPath(name)
		if err != nil {
			return nil, err
		}
		doc, err := importer.Decode(bytes.NewReader(raw), format)
		if err != nil {
			return nil, fmt.Errorf("decode sample table %s: %w", name, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Scenarios returns the sample scenarios. Their IDs are fixed so seeding
// twice overwrites rather than duplicates.
func Scenarios() ([]*scenariodomain.Scenario, error) {
	raw, err := samples.ReadFile("scenarios/samples.json")
	if err != nil {
		return nil, err
	}
	var out []*scenariodomain.Scenario
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode sample scenarios: %w", err)
	}
	return out, nil
}

type Params struct {
	fx.In

	Log       *zap.Logger
	Tables    domain.Service
	Scenarios scenariodomain.Service
}

type Seeder struct {
	log       *zap.Logger
	tables    domain.Service
	scenarios scenariodomain.Service
}

func New(p Params) *Seeder {
	return &Seeder{log: p.Log.Named("seed"), tables: p.Tables, scenarios: p.Scenarios}
}

type Summary struct {
	TablesPublished int
	TablesSkipped   int
	Scenarios       int
}

// Run publishes and activates each sample table whose product type has no
// table yet, then upserts the sample scenarios.
func (s *Seeder) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	if s.tables == nil || s.scenarios == nil {
		return summary, errors.New("seeder requires rate table and scenario services")
	}

	docs, err := Tables()
	if err != nil {
		return summary, err
	}
	for _, doc := range docs {
		existing, err := s.tables.List(ctx, domain.ListRequest{ProductType: doc.ProductType})
		if err != nil {
			return summary, err
		}
		if len(existing) > 0 {
			summary.TablesSkipped++
			continue
		}
		table, err := s.tables.Publish(ctx, doc, domain.PublishOptions{Activate: true, Source: "seed"})
		if err != nil {
			return summary, fmt.Errorf("publish sample %s table: %w", doc.ProductType, err)
		}
		summary.TablesPublished++
		s.log.Info("sample rate table published",
			zap.String("product_type", table.ProductType),
			zap.Int("version", table.Version),
		)
	}

	scenarios, err := Scenarios()
	if err != nil {
		return summary, err
	}
	for _, sc := range scenarios {
		if err := s.scenarios.Save(ctx, sc); err != nil {
			return summary, fmt.Errorf("save sample scenario %s: %w", sc.ID, err)
		}
		summary.Scenarios++
	}
	return summary, nil
}
