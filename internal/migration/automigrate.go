package migration

import (
	"context"
	"errors"
	"fmt"
	"time"

	ratetabledomain "github.com/railzwaylabs/ratebook/internal/ratetable/domain"
	ratingrundomain "github.com/railzwaylabs/ratebook/internal/ratingrun/domain"
	"github.com/railzwaylabs/ratebook/internal/resolver"
	scenariodomain "github.com/railzwaylabs/ratebook/internal/scenario/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductTypeRecord is the persisted registration of a product type.
type ProductTypeRecord struct {
	Code               string    `gorm:"type:varchar(32);primaryKey"`
	ResolverIdentifier string    `gorm:"type:varchar(128);not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

func (ProductTypeRecord) TableName() string { return "product_types" }

// Models lists every table the engine owns, in creation order.
func Models() []any {
	models := []any{&ProductTypeRecord{}, &scenariodomain.Record{}}
	models = append(models, ratetabledomain.Models()...)
	return append(models, &ratingrundomain.RatingRun{})
}

// AutoMigrate builds the schema from the gorm models. It serves the sqlite
// and mysql drivers, which the SQL migrations do not target. The audit
// table's append-only trigger exists only on postgres.
func AutoMigrate(ctx context.Context, conn *gorm.DB, products []resolver.Registration) error {
	if conn == nil {
		return errors.New("auto migrate requires database handle")
	}
	db := conn.WithContext(ctx)
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	now := time.Now().UTC()
	rows := make([]ProductTypeRecord, 0, len(products))
	for _, p := range products {
		rows = append(rows, ProductTypeRecord{
			Code:               string(p.ProductType),
			ResolverIdentifier: p.ResolverIdentifier,
			UpdatedAt:          now,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"resolver_identifier", "updated_at"}),
	}).Create(&rows).Error
}
