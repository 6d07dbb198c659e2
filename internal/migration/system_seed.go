package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/railzwaylabs/ratebook/internal/resolver"
)

// seedSystemImmutableData upserts one product_types row per registered
// resolver. Scenarios and rate tables reference these rows.
func seedSystemImmutableData(ctx context.Context, db *sql.DB, products []resolver.Registration) error {
	if db == nil {
		return errors.New("system seed requires database handle")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if len(products) == 0 {
		return errors.New("system seed requires at least one product type")
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin system seed transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := seedProductTypes(ctx, tx, products); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit system seed transaction: %w", err)
	}
	return nil
}

func seedProductTypes(ctx context.Context, tx *sql.Tx, products []resolver.Registration) error {
	const stmt = `
		INSERT INTO product_types (code, resolver_identifier, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE
		SET resolver_identifier = EXCLUDED.resolver_identifier,
		    updated_at = EXCLUDED.updated_at
	`

	now := time.Now().UTC()
	for _, p := range products {
		if _, err := tx.ExecContext(ctx, stmt, string(p.ProductType), p.ResolverIdentifier, now); err != nil {
			return fmt.Errorf("seed product type %s: %w", p.ProductType, err)
		}
	}
	return nil
}
