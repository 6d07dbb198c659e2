package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/railzwaylabs/ratebook/internal/config"
	"github.com/railzwaylabs/ratebook/internal/migration"
	"github.com/railzwaylabs/ratebook/internal/resolver"
	"gorm.io/gorm"
)

var (
	ErrBootstrapStateInactive = errors.New("system bootstrap state is not active")
	ErrSchemaVersionMismatch  = errors.New("schema version mismatch")
	ErrSchemaChecksumMismatch = errors.New("schema checksum mismatch")
	ErrEngineVersionMismatch  = errors.New("engine version mismatch")
	ErrResolverSetMismatch    = errors.New("resolver set mismatch")
)

type SchemaGate interface {
	MustBeActive(ctx context.Context) error
}

type schemaGate struct {
	db       *gorm.DB
	expected migration.Manifest
}

// NewSchemaGate admits a binary only when the migrator recorded the same
// schema, engine version and resolver set that the binary carries. Drivers
// other than postgres are auto-migrated and have no bootstrap state, so they
// get a gate that always passes.
func NewSchemaGate(db *gorm.DB, cfg config.Config, registry *resolver.Registry) (SchemaGate, error) {
	if db == nil {
		return nil, errors.New("schema gate requires database handle")
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return openGate{}, nil
	}

	expected, err := migration.BuildManifest(registry.List())
	if err != nil {
		return nil, err
	}
	return &schemaGate{db: db, expected: expected}, nil
}

func (g *schemaGate) MustBeActive(ctx context.Context) error {
	state, err := loadState(ctx, g.db)
	if err != nil {
		return err
	}

	if state.Status != StatusActive {
		return fmt.Errorf("%w: status=%s", ErrBootstrapStateInactive, state.Status)
	}
	if want := g.expected.SchemaVersionString(); state.SchemaVersion != want {
		return fmt.Errorf("%w: state=%s expected=%s", ErrSchemaVersionMismatch, state.SchemaVersion, want)
	}
	if got := trimmed(state.Checksum); got != g.expected.Checksum {
		return fmt.Errorf("%w: state=%s expected=%s", ErrSchemaChecksumMismatch, got, g.expected.Checksum)
	}
	// migrate must be rerun after an engine upgrade
	if got := trimmed(state.EngineVersion); got != g.expected.EngineVersion {
		return fmt.Errorf("%w: state=%q binary=%q", ErrEngineVersionMismatch, got, g.expected.EngineVersion)
	}
	if got := trimmed(state.ResolverSet); got != g.expected.ResolverSet {
		return fmt.Errorf("%w: state=%q binary=%q", ErrResolverSetMismatch, got, g.expected.ResolverSet)
	}
	return nil
}

type openGate struct{}

func (openGate) MustBeActive(context.Context) error { return nil }
