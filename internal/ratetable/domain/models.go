// Package domain contains the versioned rate table models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type ApplyMode string

const (
	ApplyMultiply ApplyMode = "multiply"
	ApplyAdd      ApplyMode = "add"
	ApplySubtract ApplyMode = "subtract"
	ApplyPercent  ApplyMode = "percent"
)

type FeeType string

const (
	FeeTypeFee    FeeType = "fee"
	FeeTypeCredit FeeType = "credit"
)

type PaymentMode string

const (
	PaymentMonthly    PaymentMode = "monthly"
	PaymentQuarterly  PaymentMode = "quarterly"
	PaymentSemiannual PaymentMode = "semiannual"
	PaymentAnnual     PaymentMode = "annual"
)

// PaymentModes lists the supported modes in display order.
var PaymentModes = []PaymentMode{PaymentMonthly, PaymentQuarterly, PaymentSemiannual, PaymentAnnual}

func (m PaymentMode) Valid() bool {
	for _, known := range PaymentModes {
		if m == known {
			return true
		}
	}
	return false
}

// RateTable is one immutable version of a product's rates. Only IsActive
// changes once a table has been published.
type RateTable struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	ProductType    string            `gorm:"type:varchar(32);not null;uniqueIndex:ux_rate_tables_product_version,priority:1" json:"product_type"`
	Version        int               `gorm:"not null;uniqueIndex:ux_rate_tables_product_version,priority:2" json:"version"`
	Carrier        string            `gorm:"type:varchar(64);not null;default:''" json:"carrier,omitempty"`
	Code           string            `gorm:"type:varchar(128);not null" json:"code"`
	Name           string            `gorm:"type:varchar(255);not null" json:"name"`
	EffectiveDate  time.Time         `gorm:"not null" json:"effective_date"`
	ExpirationDate *time.Time        `json:"expiration_date,omitempty"`
	IsActive       bool              `gorm:"not null;default:false;index" json:"is_active"`
	Metadata       datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt      time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"not null" json:"updated_at"`
}

func (RateTable) TableName() string { return "rate_tables" }

type RateTableEntry struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	RateTableID snowflake.ID      `gorm:"not null;uniqueIndex:ux_rate_table_entries_key,priority:1" json:"rate_table_id"`
	RateKey     string            `gorm:"type:varchar(255);not null;uniqueIndex:ux_rate_table_entries_key,priority:2" json:"rate_key"`
	Dimensions  datatypes.JSONMap `json:"dimensions,omitempty"`
	RateValue   decimal.Decimal   `gorm:"type:numeric(20,8);not null" json:"rate_value"`
}

func (RateTableEntry) TableName() string { return "rate_table_entries" }

type RateFactor struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	RateTableID snowflake.ID    `gorm:"not null;index" json:"rate_table_id"`
	FactorCode  string          `gorm:"type:varchar(64);not null" json:"factor_code"`
	FactorLabel string          `gorm:"type:varchar(255);not null;default:''" json:"factor_label"`
	OptionValue string          `gorm:"type:varchar(64);not null" json:"option_value"`
	OptionLabel string          `gorm:"type:varchar(255);not null;default:''" json:"option_label"`
	FactorValue decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"factor_value"`
	ApplyMode   ApplyMode       `gorm:"type:varchar(16);not null" json:"apply_mode"`
	SortOrder   int             `gorm:"not null;default:0" json:"sort_order"`
}

func (RateFactor) TableName() string { return "rate_factors" }

type RateRider struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	RateTableID    snowflake.ID    `gorm:"not null;index" json:"rate_table_id"`
	RiderCode      string          `gorm:"type:varchar(64);not null" json:"rider_code"`
	Label          string          `gorm:"type:varchar(255);not null;default:''" json:"label"`
	RiderValue     decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"rider_value"`
	ApplyMode      ApplyMode       `gorm:"type:varchar(16);not null" json:"apply_mode"`
	IsDefault      bool            `gorm:"not null;default:false" json:"is_default"`
	RateKeyPattern *string         `gorm:"type:varchar(255)" json:"rate_key_pattern,omitempty"`
	SortOrder      int             `gorm:"not null;default:0" json:"sort_order"`
}

func (RateRider) TableName() string { return "rate_riders" }

type RateFee struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	RateTableID snowflake.ID    `gorm:"not null;index" json:"rate_table_id"`
	FeeCode     string          `gorm:"type:varchar(64);not null" json:"fee_code"`
	Label       string          `gorm:"type:varchar(255);not null;default:''" json:"label"`
	FeeType     FeeType         `gorm:"type:varchar(16);not null" json:"fee_type"`
	ApplyMode   ApplyMode       `gorm:"type:varchar(16);not null" json:"apply_mode"`
	FeeValue    decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"fee_value"`
	SortOrder   int             `gorm:"not null;default:0" json:"sort_order"`
}

func (RateFee) TableName() string { return "rate_fees" }

// ModalFactorScale is the number of decimal places a modal factor keeps.
// At this scale a 1/12 monthly factor lands on the same cent as dividing
// the annual premium by twelve, exact half cents aside.
const ModalFactorScale = 16

type RateModalFactor struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	RateTableID snowflake.ID    `gorm:"not null;uniqueIndex:ux_rate_modal_factors_mode,priority:1" json:"rate_table_id"`
	PaymentMode PaymentMode     `gorm:"type:varchar(16);not null;uniqueIndex:ux_rate_modal_factors_mode,priority:2" json:"payment_mode"`
	Factor      decimal.Decimal `gorm:"type:numeric(24,16);not null" json:"factor"`
	FlatFee     decimal.Decimal `gorm:"type:numeric(20,8);not null;default:0" json:"flat_fee"`
}

func (RateModalFactor) TableName() string { return "rate_modal_factors" }

// Children groups the rows owned by one table.
type Children struct {
	Entries      []RateTableEntry
	Factors      []RateFactor
	Riders       []RateRider
	Fees         []RateFee
	ModalFactors []RateModalFactor
}

// Models lists every persisted rate table model, parents first.
func Models() []any {
	return []any{
		&RateTable{},
		&RateTableEntry{},
		&RateFactor{},
		&RateRider{},
		&RateFee{},
		&RateModalFactor{},
	}
}
