package migration

import (
	"context"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	ratingdomain "github.com/railzwaylabs/ratebook/internal/rating/domain"
	"github.com/railzwaylabs/ratebook/internal/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestBuildManifest(t *testing.T) {
	m, err := BuildManifest(resolver.NewRegistry().List())
	require.NoError(t, err)
	assert.Equal(t, uint(1), m.SchemaVersion)
	assert.Equal(t, "1", m.SchemaVersionString())
	assert.Len(t, m.Checksum, 64)
	assert.Equal(t, ratingdomain.EngineVersion, m.EngineVersion)
	assert.Equal(t,
		"auto=auto.per_vehicle.v1,disability=disability.benefit_based.v1,home=home.per_thousand.v1",
		m.ResolverSet)

	again, err := BuildManifest(resolver.NewRegistry().List())
	require.NoError(t, err)
	assert.Equal(t, m, again)
}

func TestResolverFingerprintIgnoresOrder(t *testing.T) {
	forward := []resolver.Registration{
		{ProductType: resolver.ProductAuto, ResolverIdentifier: "auto.per_vehicle.v1"},
		{ProductType: resolver.ProductHome, ResolverIdentifier: "home.per_thousand.v1"},
	}
	reversed := []resolver.Registration{forward[1], forward[0]}
	assert.Equal(t, ResolverFingerprint(forward), ResolverFingerprint(reversed))
	assert.Empty(t, ResolverFingerprint(nil))

	bumped := []resolver.Registration{forward[0], {ProductType: resolver.ProductHome, ResolverIdentifier: "home.per_thousand.v2"}}
	assert.NotEqual(t, ResolverFingerprint(forward), ResolverFingerprint(bumped))
}

func TestParseMigrationVersion(t *testing.T) {
	v, ok := parseMigrationVersion("000012_add_index.up.sql")
	assert.True(t, ok)
	assert.Equal(t, uint(12), v)

	_, ok = parseMigrationVersion("init.up.sql")
	assert.False(t, ok)

	_, ok = parseMigrationVersion("000000_zero.up.sql")
	assert.False(t, ok)
}

func TestInitMigrationDeclaresAppendOnlyTrigger(t *testing.T) {
	raw, err := embeddedMigrations.ReadFile(migrationsDir + "/000001_init.up.sql")
	require.NoError(t, err)
	sql := string(raw)
	assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS rating_runs")
	assert.True(t, strings.Contains(sql, "BEFORE UPDATE OR DELETE ON rating_runs"))
}

func TestAutoMigrateSeedsProductTypes(t *testing.T) {
	ctx := context.Background()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	registry := resolver.NewRegistry()
	require.NoError(t, AutoMigrate(ctx, conn, registry.List()))
	// Re-running is a no-op upsert.
	require.NoError(t, AutoMigrate(ctx, conn, registry.List()))

	var rows []ProductTypeRecord
	require.NoError(t, conn.Order("code").Find(&rows).Error)
	require.Len(t, rows, 3)
	assert.Equal(t, "auto", rows[0].Code)
	assert.Equal(t, "auto.per_vehicle.v1", rows[0].ResolverIdentifier)

	for _, table := range []string{"scenarios", "rate_tables", "rate_table_entries", "rating_runs"} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
}
