package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/railzwaylabs/ratebook/internal/ratingrun/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Append inserts run. Writing an id that already exists fails with
// ErrRunAlreadyExists.
func (r *repo) Append(ctx context.Context, db *gorm.DB, run *domain.RatingRun) error {
	err := db.WithContext(ctx).Create(run).Error
	if err != nil && isUniqueViolation(err) {
		return domain.ErrRunAlreadyExists
	}
	return err
}

func (r *repo) ListByScenario(ctx context.Context, db *gorm.DB, scenarioID uuid.UUID) ([]domain.RatingRun, error) {
	var runs []domain.RatingRun
	err := db.WithContext(ctx).
		Where("scenario_id = ?", scenarioID).
		Order("created_at DESC").Order("id DESC").
		Find(&runs).Error
	return runs, err
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.RatingRun, error) {
	var run domain.RatingRun
	err := db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

func (r *repo) ListRange(ctx context.Context, db *gorm.DB, req domain.ExportRequest) ([]domain.RatingRun, error) {
	query := db.WithContext(ctx).Model(&domain.RatingRun{}).
		Where("created_at >= ? AND created_at < ?", req.StartDate.UTC(), req.EndDate.UTC())
	if req.ProductType != "" {
		query = query.Where("product_type = ?", req.ProductType)
	}
	if len(req.Statuses) > 0 {
		query = query.Where("status IN ?", req.Statuses)
	}

	var runs []domain.RatingRun
	err := query.Order("created_at ASC").Order("id ASC").Find(&runs).Error
	return runs, err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key value")
}
