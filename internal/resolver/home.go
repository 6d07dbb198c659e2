package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	defaultHomeMinCoverage = decimal.NewFromInt(50_000)
	defaultHomeMaxCoverage = decimal.NewFromInt(2_000_000)
	thousand               = decimal.NewFromInt(1000)
)

// HomeResolver prices per 1,000 of dwelling coverage with the rate key
// "{state}|{construction}|{protection_class}".
type HomeResolver struct{}

func (HomeResolver) Identifier() string { return "home.per_thousand.v1" }

func (HomeResolver) Resolve(_ context.Context, in Input) (*Resolution, error) {
	sc := in.Scenario
	if sc == nil {
		return nil, fmt.Errorf("%w: scenario is required", ErrMalformedScenario)
	}

	dwellings := sc.ObjectsOfType("dwelling")
	if len(dwellings) == 0 {
		return nil, fmt.Errorf("%w: a dwelling is required", ErrMalformedScenario)
	}
	attrs := dwellings[0].Attributes

	state, ok := stringAttr(attrs, "state")
	if !ok {
		state, ok = stringAttr(sc.Attributes, "state")
	}
	if !ok {
		return nil, fmt.Errorf("%w: state is required", ErrMalformedScenario)
	}

	construction, ok := stringAttr(attrs, "construction")
	if !ok {
		return nil, fmt.Errorf("%w: construction is required", ErrMalformedScenario)
	}

	protection, ok, err := intAttr(attrs, "protection_class")
	if err != nil {
		return nil, err
	}
	if !ok || protection < 1 || protection > 10 {
		return nil, fmt.Errorf("%w: protection_class must be between 1 and 10", ErrMalformedScenario)
	}

	coverage, ok := sc.Coverage("dwelling")
	if !ok || !coverage.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: a positive dwelling coverage amount is required", ErrMalformedScenario)
	}

	var meta map[string]any
	if in.Table != nil {
		meta = in.Table.Metadata
	}
	minCoverage, err := metaDecimal(meta, "min_coverage_amount", defaultHomeMinCoverage)
	if err != nil {
		return nil, err
	}
	maxCoverage, err := metaDecimal(meta, "max_coverage_amount", defaultHomeMaxCoverage)
	if err != nil {
		return nil, err
	}

	ext := map[string]any{"coverage_amount": coverage.Amount}
	if coverage.Amount.LessThan(minCoverage) || coverage.Amount.GreaterThan(maxCoverage) {
		return ineligible("coverage_amount_out_of_range", ext), nil
	}

	rateKey := fmt.Sprintf("%s|%s|%d", strings.ToUpper(state), strings.ToLower(construction), protection)
	return eligible(rateKey, coverage.Amount.Div(thousand), ext), nil
}
