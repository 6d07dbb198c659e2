package bootstrap

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	StatusInitializing = "initializing"
	StatusActive       = "active"
)

var ErrBootstrapStateNotFound = errors.New("system bootstrap state not found")

// State is the single row the migrator writes after a successful migrate.
type State struct {
	ID            bool `gorm:"primaryKey"`
	Status        string
	SchemaVersion string
	Checksum      *string
	EngineVersion *string
	ResolverSet   *string
	ActivatedAt   *time.Time
	CreatedAt     time.Time
}

func (State) TableName() string { return "system_bootstrap_state" }

func loadState(ctx context.Context, db *gorm.DB) (*State, error) {
	var state State
	err := db.WithContext(ctx).Where("id = ?", true).Take(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBootstrapStateNotFound
	}
	if err != nil {
		return nil, err
	}
	state.Status = strings.ToLower(strings.TrimSpace(state.Status))
	state.SchemaVersion = strings.TrimSpace(state.SchemaVersion)
	return &state, nil
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
