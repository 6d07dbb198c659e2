package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/railzwaylabs/ratebook/internal/ratetable/domain"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// buildTable converts a validated document into an inactive table and its
// children. Version is assigned later inside the publish transaction.
func buildTable(doc *domain.Document, genID *snowflake.Node, now time.Time) (*domain.RateTable, *domain.Children, error) {
	effective, err := time.ParseInLocation(dateLayout, doc.EffectiveDate, time.UTC)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: effective_date: %v", domain.ErrInvalidDocument, err)
	}
	var expiration *time.Time
	if doc.ExpirationDate != "" {
		t, err := time.ParseInLocation(dateLayout, doc.ExpirationDate, time.UTC)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: expiration_date: %v", domain.ErrInvalidDocument, err)
		}
		// the expiration date is inclusive
		t = t.Add(24*time.Hour - time.Nanosecond)
		if t.Before(effective) {
			return nil, nil, fmt.Errorf("%w: expiration_date precedes effective_date", domain.ErrInvalidDocument)
		}
		expiration = &t
	}

	code := strings.TrimSpace(doc.Code)
	if code == "" {
		code = slug.Make(doc.Name)
	}

	table := &domain.RateTable{
		ID:             genID.Generate(),
		Carrier:        strings.TrimSpace(doc.Carrier),
		Code:           code,
		Name:           strings.TrimSpace(doc.Name),
		EffectiveDate:  effective,
		ExpirationDate: expiration,
		IsActive:       false,
		Metadata:       doc.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	children := &domain.Children{}
	seenKeys := make(map[string]struct{}, len(doc.Entries))
	for i, e := range doc.Entries {
		key := strings.TrimSpace(e.RateKey)
		if _, dup := seenKeys[key]; dup {
			return nil, nil, fmt.Errorf("%w: duplicate rate_key %q", domain.ErrInvalidDocument, key)
		}
		seenKeys[key] = struct{}{}
		value, err := parseDecimal(e.RateValue, fmt.Sprintf("entries[%d].rate_value", i))
		if err != nil {
			return nil, nil, err
		}
		children.Entries = append(children.Entries, domain.RateTableEntry{
			ID:          genID.Generate(),
			RateTableID: table.ID,
			RateKey:     key,
			Dimensions:  e.Dimensions,
			RateValue:   value,
		})
	}

	seenOptions := make(map[string]struct{}, len(doc.Factors))
	for i, f := range doc.Factors {
		optKey := f.FactorCode + "\x00" + f.OptionValue
		if _, dup := seenOptions[optKey]; dup {
			return nil, nil, fmt.Errorf("%w: duplicate option %s=%s", domain.ErrInvalidDocument, f.FactorCode, f.OptionValue)
		}
		seenOptions[optKey] = struct{}{}
		value, err := parseDecimal(f.FactorValue, fmt.Sprintf("factors[%d].factor_value", i))
		if err != nil {
			return nil, nil, err
		}
		children.Factors = append(children.Factors, domain.RateFactor{
			ID:          genID.Generate(),
			RateTableID: table.ID,
			FactorCode:  f.FactorCode,
			FactorLabel: f.FactorLabel,
			OptionValue: f.OptionValue,
			OptionLabel: f.OptionLabel,
			FactorValue: value,
			ApplyMode:   domain.ApplyMode(f.ApplyMode),
			SortOrder:   f.SortOrder,
		})
	}

	seenRiders := make(map[string]struct{}, len(doc.Riders))
	for i, r := range doc.Riders {
		if _, dup := seenRiders[r.RiderCode]; dup {
			return nil, nil, fmt.Errorf("%w: duplicate rider %s", domain.ErrInvalidDocument, r.RiderCode)
		}
		seenRiders[r.RiderCode] = struct{}{}
		value, err := parseDecimal(r.RiderValue, fmt.Sprintf("riders[%d].rider_value", i))
		if err != nil {
			return nil, nil, err
		}
		var pattern *string
		if p := strings.TrimSpace(r.RateKeyPattern); p != "" {
			pattern = &p
		}
		children.Riders = append(children.Riders, domain.RateRider{
			ID:             genID.Generate(),
			RateTableID:    table.ID,
			RiderCode:      r.RiderCode,
			Label:          r.Label,
			RiderValue:     value,
			ApplyMode:      domain.ApplyMode(r.ApplyMode),
			IsDefault:      r.IsDefault,
			RateKeyPattern: pattern,
			SortOrder:      r.SortOrder,
		})
	}

	for i, f := range doc.Fees {
		value, err := parseDecimal(f.FeeValue, fmt.Sprintf("fees[%d].fee_value", i))
		if err != nil {
			return nil, nil, err
		}
		children.Fees = append(children.Fees, domain.RateFee{
			ID:          genID.Generate(),
			RateTableID: table.ID,
			FeeCode:     f.FeeCode,
			Label:       f.Label,
			FeeType:     domain.FeeType(f.FeeType),
			ApplyMode:   domain.ApplyMode(f.ApplyMode),
			FeeValue:    value,
			SortOrder:   f.SortOrder,
		})
	}

	seenModes := make(map[string]struct{}, len(doc.ModalFactors))
	for i, m := range doc.ModalFactors {
		if _, dup := seenModes[m.PaymentMode]; dup {
			return nil, nil, fmt.Errorf("%w: duplicate payment_mode %s", domain.ErrInvalidDocument, m.PaymentMode)
		}
		seenModes[m.PaymentMode] = struct{}{}
		factor, err := parseDecimal(m.Factor, fmt.Sprintf("modal_factors[%d].factor", i))
		if err != nil {
			return nil, nil, err
		}
		flat := decimal.Zero
		if m.FlatFee != "" {
			flat, err = parseDecimal(m.FlatFee, fmt.Sprintf("modal_factors[%d].flat_fee", i))
			if err != nil {
				return nil, nil, err
			}
		}
		children.ModalFactors = append(children.ModalFactors, domain.RateModalFactor{
			ID:          genID.Generate(),
			RateTableID: table.ID,
			PaymentMode: domain.PaymentMode(m.PaymentMode),
			Factor:      factor.Round(domain.ModalFactorScale),
			FlatFee:     flat,
		})
	}

	return table, children, nil
}

func parseDecimal(n domain.Number, field string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", domain.ErrInvalidDocument, field, err)
	}
	return d, nil
}
