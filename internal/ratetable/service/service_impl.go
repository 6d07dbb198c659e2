package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"github.com/railzwaylabs/ratebook/internal/clock"
	"github.com/railzwaylabs/ratebook/internal/metrics"
	"github.com/railzwaylabs/ratebook/internal/ratetable/cache"
	"github.com/railzwaylabs/ratebook/internal/ratetable/domain"
	"github.com/railzwaylabs/ratebook/internal/resolver"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Cache cache.Cache
	Clock clock.Clock
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	cache    cache.Cache
	clock    clock.Clock
	validate *validator.Validate
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("ratetable.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		cache:    p.Cache,
		clock:    p.Clock,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *Service) ResolveActive(ctx context.Context, req domain.ResolveRequest) (*domain.RateTable, error) {
	pt, err := resolver.ParseProductType(req.ProductType)
	if err != nil {
		return nil, domain.ErrInvalidProductType
	}
	carrier := strings.TrimSpace(req.Carrier)

	if req.Version != nil {
		table, err := s.repo.FindByVersion(ctx, s.db, string(pt), *req.Version)
		if err != nil {
			return nil, err
		}
		if table == nil || !table.IsActive || (carrier != "" && table.Carrier != carrier) {
			return nil, fmt.Errorf("%w: %s v%d", domain.ErrNoActiveRateTable, pt, *req.Version)
		}
		return table, nil
	}

	table, err := s.repo.FindActive(ctx, s.db, domain.ActiveQuery{
		ProductType: string(pt),
		Carrier:     carrier,
		At:          s.clock.Now(ctx),
	})
	if err != nil {
		return nil, err
	}
	if table == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoActiveRateTable, pt)
	}
	return table, nil
}

func (s *Service) LoadSnapshot(ctx context.Context, table *domain.RateTable) (*domain.Snapshot, error) {
	if table == nil {
		return nil, domain.ErrRateTableNotFound
	}

	snap, ok, err := s.cache.Get(ctx, table.ProductType, table.Version)
	if err != nil {
		s.log.Warn("snapshot cache read failed", zap.String("product_type", table.ProductType), zap.Int("version", table.Version), zap.Error(err))
	}
	if ok && snap.Table.ID == table.ID {
		return snap, nil
	}

	children, err := s.repo.LoadChildren(ctx, s.db, table.ID)
	if err != nil {
		return nil, err
	}
	snap = domain.NewSnapshot(*table, *children)
	if err := s.cache.Set(ctx, snap); err != nil {
		s.log.Warn("snapshot cache write failed", zap.String("product_type", table.ProductType), zap.Int("version", table.Version), zap.Error(err))
	}
	return snap, nil
}

func (s *Service) Options(ctx context.Context, req domain.ResolveRequest) (*domain.Options, error) {
	table, err := s.ResolveActive(ctx, req)
	if err != nil {
		return nil, err
	}
	snap, err := s.LoadSnapshot(ctx, table)
	if err != nil {
		return nil, err
	}
	return snap.Options(), nil
}

// Publish stores doc as a new inactive version, then activates it in a
// separate transaction when requested. A failure in the first step leaves
// every live table untouched.
func (s *Service) Publish(ctx context.Context, doc *domain.Document, opts domain.PublishOptions) (*domain.RateTable, error) {
	source := opts.Source
	if source == "" {
		source = "api"
	}
	table, err := s.publishDraft(ctx, doc)
	if err != nil {
		metrics.RateTableImports.WithLabelValues(source, "failed").Inc()
		return nil, err
	}
	metrics.RateTableImports.WithLabelValues(source, "published").Inc()

	s.log.Info("rate table published",
		zap.String("product_type", table.ProductType),
		zap.Int("version", table.Version),
		zap.String("carrier", table.Carrier),
		zap.String("source", source),
	)

	if !opts.Activate {
		return table, nil
	}
	return s.Activate(ctx, table.ID.String(), opts.Supersede)
}

func (s *Service) publishDraft(ctx context.Context, doc *domain.Document) (*domain.RateTable, error) {
	if doc == nil {
		return nil, domain.ErrInvalidDocument
	}
	if err := s.validate.Struct(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDocument, err)
	}
	pt, err := resolver.ParseProductType(doc.ProductType)
	if err != nil {
		return nil, domain.ErrInvalidProductType
	}

	now := time.Now().UTC()
	table, children, err := buildTable(doc, s.genID, now)
	if err != nil {
		return nil, err
	}
	table.ProductType = string(pt)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if doc.Version > 0 {
			existing, err := s.repo.FindByVersion(ctx, tx, table.ProductType, doc.Version)
			if err != nil {
				return err
			}
			if existing != nil {
				return fmt.Errorf("%w: %s v%d", domain.ErrVersionExists, table.ProductType, doc.Version)
			}
			table.Version = doc.Version
		} else {
			maxVersion, err := s.repo.MaxVersion(ctx, tx, table.ProductType)
			if err != nil {
				return err
			}
			table.Version = maxVersion + 1
		}

		if err := s.repo.Insert(ctx, tx, table); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: %s v%d", domain.ErrVersionExists, table.ProductType, table.Version)
			}
			return err
		}
		return s.repo.InsertChildren(ctx, tx, children)
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

func (s *Service) Activate(ctx context.Context, id string, supersede bool) (*domain.RateTable, error) {
	tableID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	var (
		table      *domain.RateTable
		superseded []domain.RateTable
	)
	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.FindByID(ctx, tx, tableID)
		if err != nil {
			return err
		}
		if found == nil {
			return domain.ErrRateTableNotFound
		}
		table = found

		if supersede {
			superseded, err = s.repo.ListActiveSiblings(ctx, tx, table)
			if err != nil {
				return err
			}
			for _, sibling := range superseded {
				if err := s.repo.SetActive(ctx, tx, sibling.ID, false, now); err != nil {
					return err
				}
			}
		}
		return s.repo.SetActive(ctx, tx, table.ID, true, now)
	})
	if err != nil {
		return nil, err
	}

	table.IsActive = true
	table.UpdatedAt = now
	s.invalidate(ctx, *table)
	for _, sibling := range superseded {
		s.invalidate(ctx, sibling)
	}

	s.log.Info("rate table activated",
		zap.String("product_type", table.ProductType),
		zap.Int("version", table.Version),
		zap.Int("superseded", len(superseded)),
	)
	return table, nil
}

func (s *Service) Deactivate(ctx context.Context, id string) (*domain.RateTable, error) {
	tableID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	table, err := s.repo.FindByID(ctx, s.db, tableID)
	if err != nil {
		return nil, err
	}
	if table == nil {
		return nil, domain.ErrRateTableNotFound
	}

	now := time.Now().UTC()
	if err := s.repo.SetActive(ctx, s.db, table.ID, false, now); err != nil {
		return nil, err
	}
	table.IsActive = false
	table.UpdatedAt = now
	s.invalidate(ctx, *table)

	s.log.Info("rate table deactivated",
		zap.String("product_type", table.ProductType),
		zap.Int("version", table.Version),
	)
	return table, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.RateTable, error) {
	req.ProductType = strings.ToLower(strings.TrimSpace(req.ProductType))
	req.Carrier = strings.TrimSpace(req.Carrier)
	return s.repo.List(ctx, s.db, req)
}

// WarmCache loads the snapshot of every active table into the cache.
func (s *Service) WarmCache(ctx context.Context) (int, error) {
	active := true
	tables, err := s.repo.List(ctx, s.db, domain.ListRequest{Active: &active})
	if err != nil {
		return 0, err
	}

	warmed := 0
	for i := range tables {
		if _, err := s.LoadSnapshot(ctx, &tables[i]); err != nil {
			s.log.Warn("warm snapshot failed",
				zap.String("product_type", tables[i].ProductType),
				zap.Int("version", tables[i].Version),
				zap.Error(err),
			)
			continue
		}
		warmed++
	}
	return warmed, nil
}

// ExpireTables deactivates active tables whose expiration date has passed.
func (s *Service) ExpireTables(ctx context.Context) (int, error) {
	now := s.clock.Now(ctx)
	tables, err := s.repo.ListExpiredActive(ctx, s.db, now)
	if err != nil {
		return 0, err
	}

	for _, table := range tables {
		if err := s.repo.SetActive(ctx, s.db, table.ID, false, now); err != nil {
			return 0, err
		}
		s.invalidate(ctx, table)
		s.log.Info("rate table expired",
			zap.String("product_type", table.ProductType),
			zap.Int("version", table.Version),
		)
	}
	return len(tables), nil
}

func (s *Service) invalidate(ctx context.Context, table domain.RateTable) {
	if err := s.cache.Invalidate(ctx, table.ProductType, table.Version); err != nil {
		s.log.Warn("snapshot cache invalidation failed",
			zap.String("product_type", table.ProductType),
			zap.Int("version", table.Version),
			zap.Error(err),
		)
	}
}
