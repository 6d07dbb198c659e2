// Package resolver turns a scenario into the rate key, exposure and
// eligibility verdict the calculator needs. There is one resolver per
// product type and the set of product types is closed.
package resolver

import (
	"context"
	"errors"
	"strings"
	"time"

	ratetabledomain "github.com/railzwaylabs/ratebook/internal/ratetable/domain"
	scenariodomain "github.com/railzwaylabs/ratebook/internal/scenario/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrUnsupportedProductType = errors.New("unsupported_product_type")
	// ErrMalformedScenario marks insured data that cannot be rated at all.
	// It is an error, not an ineligible verdict.
	ErrMalformedScenario = errors.New("malformed_scenario")
	// ErrInvalidRateMetadata marks a resolver override in rate table
	// metadata that cannot be used.
	ErrInvalidRateMetadata = errors.New("invalid_rate_metadata")
)

type ProductType string

const (
	ProductAuto       ProductType = "auto"
	ProductHome       ProductType = "home"
	ProductDisability ProductType = "disability"
)

// ProductTypes is the closed set of rateable product types.
var ProductTypes = []ProductType{ProductAuto, ProductDisability, ProductHome}

func ParseProductType(value string) (ProductType, error) {
	pt := ProductType(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range ProductTypes {
		if pt == known {
			return pt, nil
		}
	}
	return "", ErrUnsupportedProductType
}

type Input struct {
	Scenario *scenariodomain.Scenario
	Table    *ratetabledomain.RateTable
	// AsOf is the rating date; ages derived from dates of birth use it.
	AsOf time.Time
}

type Resolution struct {
	RateKey          string
	Exposure         decimal.Decimal
	Eligible         bool
	IneligibleReason string
	Extensions       map[string]any
}

func eligible(rateKey string, exposure decimal.Decimal, ext map[string]any) *Resolution {
	return &Resolution{RateKey: rateKey, Exposure: exposure, Eligible: true, Extensions: ext}
}

func ineligible(reason string, ext map[string]any) *Resolution {
	return &Resolution{Eligible: false, IneligibleReason: reason, Extensions: ext}
}

type Resolver interface {
	Identifier() string
	Resolve(ctx context.Context, in Input) (*Resolution, error)
}
