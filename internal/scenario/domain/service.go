package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrScenarioNotFound   = errors.New("scenario_not_found")
	ErrInvalidScenarioID  = errors.New("invalid_scenario_id")
	ErrInvalidProductType = errors.New("invalid_product_type")
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Record, error)
	Upsert(ctx context.Context, db *gorm.DB, record *Record) error
}

type Service interface {
	Get(ctx context.Context, id string) (*Scenario, error)
	Save(ctx context.Context, scenario *Scenario) error
}
