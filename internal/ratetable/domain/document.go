package domain

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"
)

// Number holds the literal text of a numeric field so rates are parsed into
// decimals without passing through float64.
type Number string

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number(strings.TrimSpace(string(bytes.Trim(b, `"`))))
	return nil
}

func (n *Number) UnmarshalYAML(value *yaml.Node) error {
	*n = Number(strings.TrimSpace(value.Value))
	return nil
}

func (n Number) String() string { return strings.TrimSpace(string(n)) }

// Document is the administrator-authored form of a rate table version as it
// arrives from YAML, JSON or XLSX imports.
type Document struct {
	ProductType    string         `json:"product_type" yaml:"product_type" validate:"required"`
	Carrier        string         `json:"carrier" yaml:"carrier" validate:"max=64"`
	Code           string         `json:"code" yaml:"code" validate:"max=128"`
	Name           string         `json:"name" yaml:"name" validate:"required,max=255"`
	Version        int            `json:"version" yaml:"version" validate:"gte=0"`
	EffectiveDate  string         `json:"effective_date" yaml:"effective_date" validate:"required,datetime=2006-01-02"`
	ExpirationDate string         `json:"expiration_date" yaml:"expiration_date" validate:"omitempty,datetime=2006-01-02"`
	Metadata       map[string]any `json:"metadata" yaml:"metadata"`

	Entries      []EntryDocument       `json:"entries" yaml:"entries" validate:"required,min=1,dive"`
	Factors      []FactorDocument      `json:"factors" yaml:"factors" validate:"dive"`
	Riders       []RiderDocument       `json:"riders" yaml:"riders" validate:"dive"`
	Fees         []FeeDocument         `json:"fees" yaml:"fees" validate:"dive"`
	ModalFactors []ModalFactorDocument `json:"modal_factors" yaml:"modal_factors" validate:"required,min=1,dive"`
}

type EntryDocument struct {
	RateKey    string         `json:"rate_key" yaml:"rate_key" validate:"required,max=255"`
	Dimensions map[string]any `json:"dimensions" yaml:"dimensions"`
	RateValue  Number         `json:"rate_value" yaml:"rate_value" validate:"required,numeric"`
}

type FactorDocument struct {
	FactorCode  string `json:"factor_code" yaml:"factor_code" validate:"required,max=64"`
	FactorLabel string `json:"factor_label" yaml:"factor_label"`
	OptionValue string `json:"option_value" yaml:"option_value" validate:"required,max=64"`
	OptionLabel string `json:"option_label" yaml:"option_label"`
	FactorValue Number `json:"factor_value" yaml:"factor_value" validate:"required,numeric"`
	ApplyMode   string `json:"apply_mode" yaml:"apply_mode" validate:"required,oneof=multiply add subtract"`
	SortOrder   int    `json:"sort_order" yaml:"sort_order"`
}

type RiderDocument struct {
	RiderCode      string `json:"rider_code" yaml:"rider_code" validate:"required,max=64"`
	Label          string `json:"label" yaml:"label"`
	RiderValue     Number `json:"rider_value" yaml:"rider_value" validate:"required,numeric"`
	ApplyMode      string `json:"apply_mode" yaml:"apply_mode" validate:"required,oneof=add multiply"`
	IsDefault      bool   `json:"is_default" yaml:"is_default"`
	RateKeyPattern string `json:"rate_key_pattern" yaml:"rate_key_pattern" validate:"max=255"`
	SortOrder      int    `json:"sort_order" yaml:"sort_order"`
}

type FeeDocument struct {
	FeeCode   string `json:"fee_code" yaml:"fee_code" validate:"required,max=64"`
	Label     string `json:"label" yaml:"label"`
	FeeType   string `json:"fee_type" yaml:"fee_type" validate:"required,oneof=fee credit"`
	ApplyMode string `json:"apply_mode" yaml:"apply_mode" validate:"required,oneof=add percent"`
	FeeValue  Number `json:"fee_value" yaml:"fee_value" validate:"required,numeric"`
	SortOrder int    `json:"sort_order" yaml:"sort_order"`
}

type ModalFactorDocument struct {
	PaymentMode string `json:"payment_mode" yaml:"payment_mode" validate:"required,oneof=monthly quarterly semiannual annual"`
	Factor      Number `json:"factor" yaml:"factor" validate:"required,numeric"`
	FlatFee     Number `json:"flat_fee" yaml:"flat_fee" validate:"omitempty,numeric"`
}
