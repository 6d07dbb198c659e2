package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/railzwaylabs/ratebook/internal/resolver"
	"github.com/railzwaylabs/ratebook/internal/scenario/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("scenario.service"),
		repo: p.Repo,
	}
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Scenario, error) {
	scenarioID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidScenarioID
	}

	record, err := s.repo.FindByID(ctx, s.db, scenarioID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrScenarioNotFound
	}
	return fromRecord(record)
}

func (s *Service) Save(ctx context.Context, scenario *domain.Scenario) error {
	if scenario == nil {
		return domain.ErrScenarioNotFound
	}
	pt, err := resolver.ParseProductType(scenario.ProductType)
	if err != nil {
		return domain.ErrInvalidProductType
	}
	scenario.ProductType = string(pt)
	if scenario.ID == uuid.Nil {
		scenario.ID = uuid.New()
	}

	record, err := toRecord(scenario)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	if err := s.repo.Upsert(ctx, s.db, record); err != nil {
		return err
	}
	scenario.UpdatedAt = now
	return nil
}

func toRecord(sc *domain.Scenario) (*domain.Record, error) {
	attrs, err := marshalJSON(sc.Attributes, "{}")
	if err != nil {
		return nil, fmt.Errorf("encode attributes: %w", err)
	}
	objects, err := marshalJSON(sc.InsuredObjects, "[]")
	if err != nil {
		return nil, fmt.Errorf("encode insured objects: %w", err)
	}
	coverages, err := marshalJSON(sc.Coverages, "[]")
	if err != nil {
		return nil, fmt.Errorf("encode coverages: %w", err)
	}
	return &domain.Record{
		ID:             sc.ID,
		ProductType:    sc.ProductType,
		Attributes:     attrs,
		InsuredObjects: objects,
		Coverages:      coverages,
	}, nil
}

func marshalJSON(v any, empty string) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		raw = []byte(empty)
	}
	return datatypes.JSON(raw), nil
}

// fromRecord decodes with UseNumber so numeric attributes keep their exact
// decimal representation.
func fromRecord(record *domain.Record) (*domain.Scenario, error) {
	sc := &domain.Scenario{
		ID:          record.ID,
		ProductType: record.ProductType,
		UpdatedAt:   record.UpdatedAt,
	}
	if err := decodeJSON(record.Attributes, &sc.Attributes); err != nil {
		return nil, fmt.Errorf("decode scenario attributes: %w", err)
	}
	if err := decodeJSON(record.InsuredObjects, &sc.InsuredObjects); err != nil {
		return nil, fmt.Errorf("decode insured objects: %w", err)
	}
	if err := decodeJSON(record.Coverages, &sc.Coverages); err != nil {
		return nil, fmt.Errorf("decode coverages: %w", err)
	}
	return sc, nil
}

func decodeJSON(raw datatypes.JSON, out any) error {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(out)
}
