package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ActiveQuery struct {
	ProductType string
	Carrier     string
	At          time.Time
}

type ListRequest struct {
	ProductType string `form:"product_type"`
	Carrier     string `form:"carrier"`
	Active      *bool  `form:"active"`
}

// Repository reads and writes rate tables. Every method takes the handle to
// run on so callers can compose calls inside one transaction.
type Repository interface {
	FindActive(ctx context.Context, db *gorm.DB, q ActiveQuery) (*RateTable, error)
	FindByVersion(ctx context.Context, db *gorm.DB, productType string, version int) (*RateTable, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*RateTable, error)
	List(ctx context.Context, db *gorm.DB, req ListRequest) ([]RateTable, error)
	ListExpiredActive(ctx context.Context, db *gorm.DB, at time.Time) ([]RateTable, error)
	MaxVersion(ctx context.Context, db *gorm.DB, productType string) (int, error)
	LoadChildren(ctx context.Context, db *gorm.DB, tableID snowflake.ID) (*Children, error)

	Insert(ctx context.Context, db *gorm.DB, table *RateTable) error
	InsertChildren(ctx context.Context, db *gorm.DB, children *Children) error
	SetActive(ctx context.Context, db *gorm.DB, id snowflake.ID, active bool, at time.Time) error
	ListActiveSiblings(ctx context.Context, db *gorm.DB, table *RateTable) ([]RateTable, error)
}
