package bootstrap

import (
	"context"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/railzwaylabs/ratebook/internal/config"
	"github.com/railzwaylabs/ratebook/internal/migration"
	"github.com/railzwaylabs/ratebook/internal/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var postgresCfg = config.Config{Database: config.DatabaseConfig{Driver: config.DriverPostgres}}

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+strings.ReplaceAll(t.Name(), "/", "_")+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&State{}))
	return db
}

func ptr(s string) *string { return &s }

// migratedState mirrors what the migrator records for the current binary.
func migratedState(t *testing.T) State {
	t.Helper()
	m, err := migration.BuildManifest(resolver.NewRegistry().List())
	require.NoError(t, err)
	return State{
		ID:            true,
		Status:        StatusActive,
		SchemaVersion: m.SchemaVersionString(),
		Checksum:      ptr(m.Checksum),
		EngineVersion: ptr(m.EngineVersion),
		ResolverSet:   ptr(m.ResolverSet),
	}
}

func TestSchemaGateOpenForNonPostgres(t *testing.T) {
	gate, err := NewSchemaGate(openSQLite(t),
		config.Config{Database: config.DatabaseConfig{Driver: config.DriverSQLite}},
		resolver.NewRegistry())
	require.NoError(t, err)
	assert.NoError(t, gate.MustBeActive(context.Background()))
}

func TestSchemaGateMissingState(t *testing.T) {
	gate, err := NewSchemaGate(openSQLite(t), postgresCfg, resolver.NewRegistry())
	require.NoError(t, err)
	assert.ErrorIs(t, gate.MustBeActive(context.Background()), ErrBootstrapStateNotFound)
}

func TestSchemaGateComparesManifest(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*State)
		want   error
	}{
		{name: "matching", mutate: func(*State) {}},
		{name: "initializing", mutate: func(s *State) { s.Status = StatusInitializing }, want: ErrBootstrapStateInactive},
		{name: "older schema", mutate: func(s *State) { s.SchemaVersion = "0" }, want: ErrSchemaVersionMismatch},
		{name: "edited migration", mutate: func(s *State) { s.Checksum = ptr("deadbeef") }, want: ErrSchemaChecksumMismatch},
		{name: "missing checksum", mutate: func(s *State) { s.Checksum = nil }, want: ErrSchemaChecksumMismatch},
		{name: "other engine", mutate: func(s *State) { s.EngineVersion = ptr("0.9.0") }, want: ErrEngineVersionMismatch},
		{name: "pre manifest row", mutate: func(s *State) { s.EngineVersion = nil }, want: ErrEngineVersionMismatch},
		{
			name:   "resolver removed",
			mutate: func(s *State) { s.ResolverSet = ptr("auto=auto.per_vehicle.v1,home=home.per_thousand.v1") },
			want:   ErrResolverSetMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := openSQLite(t)
			state := migratedState(t)
			tt.mutate(&state)
			require.NoError(t, db.Create(&state).Error)

			gate, err := NewSchemaGate(db, postgresCfg, resolver.NewRegistry())
			require.NoError(t, err)

			err = gate.MustBeActive(context.Background())
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
