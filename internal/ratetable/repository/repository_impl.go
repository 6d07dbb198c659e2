package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	ratetabledomain "github.com/railzwaylabs/ratebook/internal/ratetable/domain"
	"gorm.io/gorm"
)

const insertBatchSize = 500

type repo struct{}

func Provide() ratetabledomain.Repository {
	return &repo{}
}

func (r *repo) FindActive(ctx context.Context, db *gorm.DB, q ratetabledomain.ActiveQuery) (*ratetabledomain.RateTable, error) {
	at := q.At.UTC()
	query := db.WithContext(ctx).Model(&ratetabledomain.RateTable{}).
		Where("product_type = ? AND is_active = ?", q.ProductType, true).
		Where("effective_date <= ?", at).
		Where("expiration_date IS NULL OR expiration_date >= ?", at)
	if q.Carrier != "" {
		query = query.Where("carrier = ?", q.Carrier)
	}

	var table ratetabledomain.RateTable
	err := query.Order("effective_date DESC").Order("version DESC").First(&table).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &table, nil
}

func (r *repo) FindByVersion(ctx context.Context, db *gorm.DB, productType string, version int) (*ratetabledomain.RateTable, error) {
	var table ratetabledomain.RateTable
	err := db.WithContext(ctx).
		Where("product_type = ? AND version = ?", productType, version).
		First(&table).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &table, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ratetabledomain.RateTable, error) {
	var table ratetabledomain.RateTable
	err := db.WithContext(ctx).Where("id = ?", id).First(&table).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &table, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, req ratetabledomain.ListRequest) ([]ratetabledomain.RateTable, error) {
	query := db.WithContext(ctx).Model(&ratetabledomain.RateTable{})
	if req.ProductType != "" {
		query = query.Where("product_type = ?", req.ProductType)
	}
	if req.Carrier != "" {
		query = query.Where("carrier = ?", req.Carrier)
	}
	if req.Active != nil {
		query = query.Where("is_active = ?", *req.Active)
	}

	var tables []ratetabledomain.RateTable
	err := query.Order("product_type ASC").Order("version DESC").Find(&tables).Error
	return tables, err
}

func (r *repo) ListExpiredActive(ctx context.Context, db *gorm.DB, at time.Time) ([]ratetabledomain.RateTable, error) {
	var tables []ratetabledomain.RateTable
	err := db.WithContext(ctx).
		Where("is_active = ? AND expiration_date IS NOT NULL AND expiration_date < ?", true, at.UTC()).
		Order("id ASC").
		Find(&tables).Error
	return tables, err
}

func (r *repo) MaxVersion(ctx context.Context, db *gorm.DB, productType string) (int, error) {
	var version int
	err := db.WithContext(ctx).Model(&ratetabledomain.RateTable{}).
		Select("COALESCE(MAX(version), 0)").
		Where("product_type = ?", productType).
		Scan(&version).Error
	return version, err
}

func (r *repo) LoadChildren(ctx context.Context, db *gorm.DB, tableID snowflake.ID) (*ratetabledomain.Children, error) {
	var children ratetabledomain.Children
	tx := db.WithContext(ctx)

	if err := tx.Where("rate_table_id = ?", tableID).Order("rate_key ASC").Find(&children.Entries).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("rate_table_id = ?", tableID).
		Order("sort_order ASC").Order("factor_code ASC").Order("option_value ASC").
		Find(&children.Factors).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("rate_table_id = ?", tableID).
		Order("sort_order ASC").Order("rider_code ASC").
		Find(&children.Riders).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("rate_table_id = ?", tableID).
		Order("sort_order ASC").Order("fee_code ASC").
		Find(&children.Fees).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("rate_table_id = ?", tableID).Find(&children.ModalFactors).Error; err != nil {
		return nil, err
	}
	return &children, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, table *ratetabledomain.RateTable) error {
	return db.WithContext(ctx).Create(table).Error
}

func (r *repo) InsertChildren(ctx context.Context, db *gorm.DB, children *ratetabledomain.Children) error {
	if children == nil {
		return nil
	}
	tx := db.WithContext(ctx)
	if len(children.Entries) > 0 {
		if err := tx.CreateInBatches(children.Entries, insertBatchSize).Error; err != nil {
			return err
		}
	}
	if len(children.Factors) > 0 {
		if err := tx.CreateInBatches(children.Factors, insertBatchSize).Error; err != nil {
			return err
		}
	}
	if len(children.Riders) > 0 {
		if err := tx.CreateInBatches(children.Riders, insertBatchSize).Error; err != nil {
			return err
		}
	}
	if len(children.Fees) > 0 {
		if err := tx.CreateInBatches(children.Fees, insertBatchSize).Error; err != nil {
			return err
		}
	}
	if len(children.ModalFactors) > 0 {
		if err := tx.CreateInBatches(children.ModalFactors, insertBatchSize).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) SetActive(ctx context.Context, db *gorm.DB, id snowflake.ID, active bool, at time.Time) error {
	return db.WithContext(ctx).Model(&ratetabledomain.RateTable{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_active":  active,
			"updated_at": at.UTC(),
		}).Error
}

// ListActiveSiblings returns the other active tables of the same product type
// and carrier.
func (r *repo) ListActiveSiblings(ctx context.Context, db *gorm.DB, table *ratetabledomain.RateTable) ([]ratetabledomain.RateTable, error) {
	var tables []ratetabledomain.RateTable
	err := db.WithContext(ctx).
		Where("product_type = ? AND carrier = ? AND is_active = ? AND id <> ?", table.ProductType, table.Carrier, true, table.ID).
		Order("version ASC").
		Find(&tables).Error
	return tables, err
}
