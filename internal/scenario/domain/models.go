// Package domain describes coverage scenarios as read by the rating engine.
// Scenarios are owned by the quoting system; the engine only reads them.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type InsuredObject struct {
	Type       string         `json:"type"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type Coverage struct {
	Code       string          `json:"code"`
	Amount     decimal.Decimal `json:"amount"`
	Attributes map[string]any  `json:"attributes,omitempty"`
}

// Scenario is one coverage request to be rated.
type Scenario struct {
	ID             uuid.UUID       `json:"id"`
	ProductType    string          `json:"product_type"`
	Attributes     map[string]any  `json:"attributes,omitempty"`
	InsuredObjects []InsuredObject `json:"insured_objects"`
	Coverages      []Coverage      `json:"coverages"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ObjectsOfType returns insured objects with the given type, in input order.
func (s *Scenario) ObjectsOfType(kind string) []InsuredObject {
	out := make([]InsuredObject, 0, len(s.InsuredObjects))
	for _, obj := range s.InsuredObjects {
		if obj.Type == kind {
			out = append(out, obj)
		}
	}
	return out
}

func (s *Scenario) Coverage(code string) (Coverage, bool) {
	for _, c := range s.Coverages {
		if c.Code == code {
			return c, true
		}
	}
	return Coverage{}, false
}

// Record is the persisted row of a scenario.
type Record struct {
	ID             uuid.UUID      `gorm:"type:varchar(36);primaryKey"`
	ProductType    string         `gorm:"type:varchar(32);not null;index"`
	Attributes     datatypes.JSON `gorm:"not null"`
	InsuredObjects datatypes.JSON `gorm:"not null"`
	Coverages      datatypes.JSON `gorm:"not null"`
	CreatedAt      time.Time      `gorm:"not null"`
	UpdatedAt      time.Time      `gorm:"not null"`
}

func (Record) TableName() string { return "scenarios" }
