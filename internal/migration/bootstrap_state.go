package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const bootstrapStatusActive = "active"

// recordManifest marks the schema active for the given manifest. Rerunning
// migrate after an engine upgrade only rewrites this row.
func recordManifest(ctx context.Context, db *sql.DB, m Manifest) error {
	if db == nil {
		return errors.New("bootstrap state requires database handle")
	}
	if m.EngineVersion == "" {
		return errors.New("engine version is required for bootstrap state")
	}

	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, `
		INSERT INTO system_bootstrap_state
			(id, status, schema_version, checksum, engine_version, resolver_set, activated_at, created_at)
		VALUES (TRUE, $1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    schema_version = EXCLUDED.schema_version,
		    checksum = EXCLUDED.checksum,
		    engine_version = EXCLUDED.engine_version,
		    resolver_set = EXCLUDED.resolver_set,
		    activated_at = EXCLUDED.activated_at
	`, bootstrapStatusActive, m.SchemaVersionString(), m.Checksum, m.EngineVersion, m.ResolverSet, now)
	if err != nil {
		return fmt.Errorf("record bootstrap manifest: %w", err)
	}
	return nil
}
