package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var autoAgeBands = []ageBand{
	{min: 16, max: 24, label: "16-24"},
	{min: 25, max: 34, label: "25-34"},
	{min: 35, max: 49, label: "35-49"},
	{min: 50, max: 64, label: "50-64"},
	{min: 65, label: "65+"},
}

// AutoResolver prices per vehicle. The rate key is "{state}|{age_band}|{tier}"
// where the age band comes from the youngest listed driver.
type AutoResolver struct{}

func (AutoResolver) Identifier() string { return "auto.per_vehicle.v1" }

func (AutoResolver) Resolve(_ context.Context, in Input) (*Resolution, error) {
	sc := in.Scenario
	if sc == nil {
		return nil, fmt.Errorf("%w: scenario is required", ErrMalformedScenario)
	}

	vehicles := sc.ObjectsOfType("vehicle")
	if len(vehicles) == 0 {
		return nil, fmt.Errorf("%w: at least one vehicle is required", ErrMalformedScenario)
	}
	drivers := sc.ObjectsOfType("driver")
	if len(drivers) == 0 {
		return nil, fmt.Errorf("%w: at least one driver is required", ErrMalformedScenario)
	}

	state, ok := stringAttr(sc.Attributes, "state")
	if !ok {
		state, ok = stringAttr(vehicles[0].Attributes, "garaging_state")
	}
	if !ok {
		return nil, fmt.Errorf("%w: state is required", ErrMalformedScenario)
	}
	state = strings.ToUpper(state)

	tier, ok := stringAttr(sc.Attributes, "tier")
	if !ok {
		tier = "standard"
	}
	tier = strings.ToLower(tier)

	youngest := -1
	for _, d := range drivers {
		age, err := ageAt(d.Attributes, in.AsOf)
		if err != nil {
			return nil, err
		}
		if youngest < 0 || age < youngest {
			youngest = age
		}
	}

	var meta map[string]any
	if in.Table != nil {
		meta = in.Table.Metadata
	}
	minAge, err := metaDecimal(meta, "min_driver_age", decimal.NewFromInt(16))
	if err != nil {
		return nil, err
	}

	ext := map[string]any{
		"vehicle_count":      len(vehicles),
		"primary_driver_age": youngest,
	}
	if decimal.NewFromInt(int64(youngest)).LessThan(minAge) {
		return ineligible("driver_under_minimum_age", ext), nil
	}

	band, ok := bandFor(youngest, autoAgeBands)
	if !ok {
		return ineligible("driver_under_minimum_age", ext), nil
	}

	rateKey := fmt.Sprintf("%s|%s|%s", state, band, tier)
	return eligible(rateKey, decimal.NewFromInt(int64(len(vehicles))), ext), nil
}
