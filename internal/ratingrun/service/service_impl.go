package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/railzwaylabs/ratebook/internal/ratingrun/domain"
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
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ratingrun.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Append(ctx context.Context, run *domain.RatingRun) error {
	if run.ID == 0 {
		run.ID = s.genID.Generate()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	return s.repo.Append(ctx, s.db, run)
}

func (s *Service) ListByScenario(ctx context.Context, scenarioID string) ([]domain.RatingRun, error) {
	id, err := uuid.Parse(strings.TrimSpace(scenarioID))
	if err != nil {
		return nil, domain.ErrInvalidScenario
	}
	runs, err := s.repo.ListByScenario(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []domain.RatingRun{}
	}
	return runs, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.RatingRun, error) {
	runID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidRunID
	}
	run, err := s.repo.FindByID(ctx, s.db, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, domain.ErrRunNotFound
	}
	return run, nil
}
