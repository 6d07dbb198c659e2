package resolver

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func stringAttr(attrs map[string]any, key string) (string, bool) {
	raw, ok := attrs[key]
	if !ok || raw == nil {
		return "", false
	}
	switch v := raw.(type) {
	case string:
		s := strings.TrimSpace(v)
		return s, s != ""
	case json.Number:
		return v.String(), true
	case float64:
		return decimal.NewFromFloat(v).String(), true
	case int:
		return fmt.Sprintf("%d", v), true
	case int64:
		return fmt.Sprintf("%d", v), true
	default:
		return "", false
	}
}

// decimalAttr reads a numeric attribute. ok is false when the key is absent;
// a present but non-numeric value is an error.
func decimalAttr(attrs map[string]any, key string) (decimal.Decimal, bool, error) {
	raw, ok := attrs[key]
	if !ok || raw == nil {
		return decimal.Zero, false, nil
	}
	d, err := toDecimal(raw)
	if err != nil {
		return decimal.Zero, true, fmt.Errorf("%w: attribute %s: %v", ErrMalformedScenario, key, err)
	}
	return d, true, nil
}

func toDecimal(raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case decimal.Decimal:
		return v, nil
	case json.Number:
		return decimal.NewFromString(v.String())
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	default:
		return decimal.Zero, fmt.Errorf("unsupported numeric type %T", raw)
	}
}

func intAttr(attrs map[string]any, key string) (int, bool, error) {
	d, ok, err := decimalAttr(attrs, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, true, fmt.Errorf("%w: attribute %s must be a whole number", ErrMalformedScenario, key)
	}
	return int(d.IntPart()), true, nil
}

// metaDecimal reads a numeric override from rate table metadata.
func metaDecimal(meta map[string]any, key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	raw, ok := meta[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	d, err := toDecimal(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrInvalidRateMetadata, key, err)
	}
	return d, nil
}

// ageAt reads "age" or derives it from "date_of_birth" (YYYY-MM-DD).
func ageAt(attrs map[string]any, asOf time.Time) (int, error) {
	age, ok, err := intAttr(attrs, "age")
	if err != nil {
		return 0, err
	}
	if ok {
		if age < 0 {
			return 0, fmt.Errorf("%w: negative age", ErrMalformedScenario)
		}
		return age, nil
	}

	dob, ok := stringAttr(attrs, "date_of_birth")
	if !ok {
		return 0, fmt.Errorf("%w: age or date_of_birth is required", ErrMalformedScenario)
	}
	born, err := time.Parse("2006-01-02", dob)
	if err != nil {
		return 0, fmt.Errorf("%w: date_of_birth: %v", ErrMalformedScenario, err)
	}
	if born.After(asOf) {
		return 0, fmt.Errorf("%w: date_of_birth after rating date", ErrMalformedScenario)
	}
	years := asOf.Year() - born.Year()
	if asOf.Month() < born.Month() || (asOf.Month() == born.Month() && asOf.Day() < born.Day()) {
		years--
	}
	return years, nil
}

type ageBand struct {
	min   int
	max   int
	label string
}

func bandFor(age int, bands []ageBand) (string, bool) {
	for _, b := range bands {
		if age >= b.min && (b.max == 0 || age <= b.max) {
			return b.label, true
		}
	}
	return "", false
}
