package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	scenariodomain "github.com/railzwaylabs/ratebook/internal/scenario/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() scenariodomain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*scenariodomain.Record, error) {
	var record scenariodomain.Record
	err := db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, record *scenariodomain.Record) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"product_type", "attributes", "insured_objects", "coverages", "updated_at"}),
	}).Create(record).Error
}
