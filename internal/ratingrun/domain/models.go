// Package domain contains the append-only audit record of rating runs.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Status string

const (
	StatusSuccess    Status = "success"
	StatusIneligible Status = "ineligible"
	StatusError      Status = "error"
)

var (
	ErrRunAlreadyExists = errors.New("rating_run_already_exists")
	ErrRunNotFound      = errors.New("rating_run_not_found")
	ErrInvalidRunID     = errors.New("invalid_rating_run_id")
	ErrInvalidScenario  = errors.New("invalid_scenario_id")
	ErrInvalidRange     = errors.New("invalid_export_range")
)

// RatingRun is written once and never updated or deleted.
type RatingRun struct {
	ID               snowflake.ID   `gorm:"primaryKey" json:"id"`
	ScenarioID       uuid.UUID      `gorm:"type:varchar(36);not null;index:ix_rating_runs_scenario_created,priority:1" json:"scenario_id"`
	UserID           string         `gorm:"type:varchar(128);not null;default:''" json:"user_id,omitempty"`
	ProductType      string         `gorm:"type:varchar(32);not null" json:"product_type"`
	RateTableVersion *int           `json:"rate_table_version,omitempty"`
	EngineVersion    string         `gorm:"type:varchar(32);not null" json:"engine_version"`
	InputHash        string         `gorm:"type:varchar(64);not null;index" json:"input_hash"`
	InputSnapshot    datatypes.JSON `gorm:"not null" json:"input_snapshot"`
	OutputSnapshot   datatypes.JSON `json:"output_snapshot,omitempty"`
	Status           Status         `gorm:"type:varchar(16);not null" json:"status"`
	ErrorMessage     *string        `gorm:"type:text" json:"error_message,omitempty"`
	DurationMs       int64          `gorm:"not null" json:"duration_ms"`
	CreatedAt        time.Time      `gorm:"not null;index:ix_rating_runs_scenario_created,priority:2;index" json:"created_at"`
}

func (RatingRun) TableName() string { return "rating_runs" }

// Repository has no update or delete path.
type Repository interface {
	Append(ctx context.Context, db *gorm.DB, run *RatingRun) error
	ListByScenario(ctx context.Context, db *gorm.DB, scenarioID uuid.UUID) ([]RatingRun, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*RatingRun, error)
	ListRange(ctx context.Context, db *gorm.DB, req ExportRequest) ([]RatingRun, error)
}

type Service interface {
	Append(ctx context.Context, run *RatingRun) error
	ListByScenario(ctx context.Context, scenarioID string) ([]RatingRun, error)
	GetByID(ctx context.Context, id string) (*RatingRun, error)
	Export(ctx context.Context, req ExportRequest) (*ExportResult, error)
}
