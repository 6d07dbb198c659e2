package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const disabilityCoverageCode = "disability_income"

var (
	defaultMaxMonthlyBenefit   = decimal.NewFromInt(15_000)
	defaultMaxReplacementRatio = decimal.RequireFromString("0.60")
	defaultMaxCoverableClass   = decimal.NewFromInt(4)
	twelve                     = decimal.NewFromInt(12)
	hundred                    = decimal.NewFromInt(100)
)

var disabilityAgeBands = []ageBand{
	{min: 18, max: 29, label: "18-29"},
	{min: 30, max: 39, label: "30-39"},
	{min: 40, max: 49, label: "40-49"},
	{min: 50, max: 59, label: "50-59"},
	{min: 60, max: 64, label: "60-64"},
}

// occupationClasses maps occupations to underwriting classes, 1 being the
// lowest risk. Tables may extend or override it through the
// "occupation_classes" metadata key.
var occupationClasses = map[string]int{
	"accountant":        1,
	"actuary":           1,
	"architect":         1,
	"attorney":          1,
	"software_engineer": 1,
	"physician":         1,
	"dentist":           1,
	"pharmacist":        1,
	"teacher":           2,
	"nurse":             2,
	"office_manager":    2,
	"sales_manager":     2,
	"real_estate_agent": 2,
	"dental_hygienist":  2,
	"electrician":       3,
	"plumber":           3,
	"mechanic":          3,
	"chef":              3,
	"hvac_technician":   3,
	"truck_driver":      4,
	"carpenter":         4,
	"landscaper":        4,
	"roofer":            5,
	"commercial_fisher": 5,
	"logger":            5,
	"stunt_performer":   5,
}

// DisabilityResolver rates monthly income benefits. It applies benefit
// capping and income-replacement and occupation gating before producing the
// rate key "{class}|{age_band}|{elimination_days}|{benefit_period}".
type DisabilityResolver struct{}

func (DisabilityResolver) Identifier() string { return "disability.benefit_based.v1" }

func (DisabilityResolver) Resolve(_ context.Context, in Input) (*Resolution, error) {
	sc := in.Scenario
	if sc == nil {
		return nil, fmt.Errorf("%w: scenario is required", ErrMalformedScenario)
	}

	people := sc.ObjectsOfType("person")
	if len(people) == 0 {
		return nil, fmt.Errorf("%w: an insured person is required", ErrMalformedScenario)
	}
	person := people[0].Attributes

	var meta map[string]any
	if in.Table != nil {
		meta = in.Table.Metadata
	}

	class, err := occupationClass(person, meta)
	if err != nil {
		return nil, err
	}

	age, err := ageAt(person, in.AsOf)
	if err != nil {
		return nil, err
	}

	income, ok, err := decimalAttr(person, "annual_income")
	if err != nil {
		return nil, err
	}
	if !ok || income.IsNegative() {
		return nil, fmt.Errorf("%w: annual_income is required", ErrMalformedScenario)
	}

	coverage, ok := sc.Coverage(disabilityCoverageCode)
	if !ok || !coverage.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: a positive %s monthly benefit is required", ErrMalformedScenario, disabilityCoverageCode)
	}
	requested := coverage.Amount

	elimination, ok, err := intAttr(coverage.Attributes, "elimination_days")
	if err != nil {
		return nil, err
	}
	if !ok {
		elimination = 90
	}
	benefitPeriod, ok := stringAttr(coverage.Attributes, "benefit_period")
	if !ok {
		benefitPeriod = "5y"
	}

	maxBenefit, err := metaDecimal(meta, "max_monthly_benefit", defaultMaxMonthlyBenefit)
	if err != nil {
		return nil, err
	}
	maxRatio, err := metaDecimal(meta, "max_income_replacement_ratio", defaultMaxReplacementRatio)
	if err != nil {
		return nil, err
	}
	maxClass, err := metaDecimal(meta, "max_coverable_class", defaultMaxCoverableClass)
	if err != nil {
		return nil, err
	}

	approved := decimal.Min(requested, maxBenefit)
	ext := map[string]any{
		"monthly_benefit_requested": requested,
		"monthly_benefit_approved":  approved,
		"occupation_class":          class,
	}
	if income.IsPositive() {
		ext["income_replacement_ratio"] = approved.Mul(twelve).Div(income).Round(4)
	}

	if decimal.NewFromInt(int64(class)).GreaterThan(maxClass) {
		return ineligible("occupation_not_coverable", ext), nil
	}

	band, ok := bandFor(age, disabilityAgeBands)
	if !ok {
		return ineligible("age_outside_issue_limits", ext), nil
	}

	allowed := income.Div(twelve).Mul(maxRatio)
	if approved.GreaterThan(allowed) {
		return ineligible("income_insufficient_for_requested_benefit", ext), nil
	}

	rateKey := fmt.Sprintf("%d|%s|%d|%s", class, band, elimination, strings.ToLower(benefitPeriod))
	return eligible(rateKey, approved.Div(hundred), ext), nil
}

func occupationClass(person map[string]any, meta map[string]any) (int, error) {
	class, ok, err := intAttr(person, "occupation_class")
	if err != nil {
		return 0, err
	}
	if ok {
		if class < 1 {
			return 0, fmt.Errorf("%w: occupation_class must be positive", ErrMalformedScenario)
		}
		return class, nil
	}

	occupation, ok := stringAttr(person, "occupation")
	if !ok {
		return 0, fmt.Errorf("%w: occupation or occupation_class is required", ErrMalformedScenario)
	}
	occupation = strings.ToLower(strings.ReplaceAll(occupation, " ", "_"))

	if overrides, ok := meta["occupation_classes"].(map[string]any); ok {
		if raw, ok := overrides[occupation]; ok {
			d, err := toDecimal(raw)
			if err != nil || !d.Equal(d.Truncate(0)) || d.LessThan(decimal.NewFromInt(1)) {
				return 0, fmt.Errorf("%w: occupation_classes.%s must be a whole number of at least 1, got %v",
					ErrInvalidRateMetadata, occupation, raw)
			}
			return int(d.IntPart()), nil
		}
	}
	if class, ok := occupationClasses[occupation]; ok {
		return class, nil
	}
	return 0, fmt.Errorf("%w: unknown occupation %q", ErrMalformedScenario, occupation)
}
