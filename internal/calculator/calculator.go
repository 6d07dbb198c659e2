// Package calculator implements the premium pipeline:
// base rate × exposure, factors, riders, fees, then modal conversion.
//
// Calculate is pure. It does no rounding until the annual and modal premiums
// are produced, so the same inputs always give the same decimal output.
package calculator

import (
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	ratetabledomain "github.com/railzwaylabs/ratebook/internal/ratetable/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownPaymentMode = errors.New("unknown_payment_mode")
	ErrInvalidSelection   = errors.New("invalid_selection")
	ErrInvalidApplyMode   = errors.New("invalid_apply_mode")
)

const DefaultPaymentMode = ratetabledomain.PaymentMonthly

type Input struct {
	Snapshot         *ratetabledomain.Snapshot
	RateKey          string
	BaseRate         decimal.Decimal
	Exposure         decimal.Decimal
	FactorSelections map[string]string
	RiderSelections  map[string]bool
	PaymentMode      string
}

type FactorApplication struct {
	FactorCode    string                    `json:"factor_code"`
	OptionValue   string                    `json:"option_value"`
	ApplyMode     ratetabledomain.ApplyMode `json:"apply_mode"`
	Value         decimal.Decimal           `json:"value"`
	PremiumBefore decimal.Decimal           `json:"premium_before"`
	PremiumAfter  decimal.Decimal           `json:"premium_after"`
}

type RiderApplication struct {
	RiderCode string                    `json:"rider_code"`
	Label     string                    `json:"label,omitempty"`
	ApplyMode ratetabledomain.ApplyMode `json:"apply_mode"`
	Value     decimal.Decimal           `json:"value"`
	// Amount is the marginal premium the rider added.
	Amount  decimal.Decimal `json:"amount"`
	Default bool            `json:"default"`
}

type FeeApplication struct {
	FeeCode   string                    `json:"fee_code"`
	Label     string                    `json:"label,omitempty"`
	FeeType   ratetabledomain.FeeType   `json:"fee_type"`
	ApplyMode ratetabledomain.ApplyMode `json:"apply_mode"`
	Value     decimal.Decimal           `json:"value"`
	// Amount is signed: credits are negative.
	Amount decimal.Decimal `json:"amount"`
}

type Result struct {
	BaseRateKey       string              `json:"base_rate_key"`
	BaseRateValue     decimal.Decimal     `json:"base_rate_value"`
	Exposure          decimal.Decimal     `json:"exposure"`
	BasePremium       decimal.Decimal     `json:"base_premium"`
	FactorsApplied    []FactorApplication `json:"factors_applied"`
	PremiumFactored   decimal.Decimal     `json:"premium_factored"`
	RidersApplied     []RiderApplication  `json:"riders_applied"`
	PremiumWithRiders decimal.Decimal     `json:"premium_with_riders"`
	FeesApplied       []FeeApplication    `json:"fees_applied"`
	PremiumAnnual     decimal.Decimal     `json:"premium_annual"`
	ModalMode         string              `json:"modal_mode"`
	ModalFactor       decimal.Decimal     `json:"modal_factor"`
	ModalFee          decimal.Decimal     `json:"modal_fee"`
	PremiumModal      decimal.Decimal     `json:"premium_modal"`
}

func Calculate(in Input) (*Result, error) {
	snap := in.Snapshot
	if snap == nil {
		return nil, errors.New("calculator: snapshot is required")
	}

	res := &Result{
		BaseRateKey:    in.RateKey,
		BaseRateValue:  in.BaseRate,
		Exposure:       in.Exposure,
		FactorsApplied: []FactorApplication{},
		RidersApplied:  []RiderApplication{},
		FeesApplied:    []FeeApplication{},
	}

	premium := in.BaseRate.Mul(in.Exposure)
	res.BasePremium = premium

	for _, group := range snap.FactorGroups {
		selected := in.FactorSelections[group.FactorCode]
		if selected == "" {
			continue
		}
		opt, ok := group.Option(selected)
		if !ok {
			return nil, fmt.Errorf("%w: factor %s has no option %q", ErrInvalidSelection, group.FactorCode, selected)
		}
		before := premium
		switch opt.ApplyMode {
		case ratetabledomain.ApplyMultiply:
			premium = premium.Mul(opt.FactorValue)
		case ratetabledomain.ApplyAdd:
			premium = premium.Add(opt.FactorValue)
		case ratetabledomain.ApplySubtract:
			premium = premium.Sub(opt.FactorValue)
		default:
			return nil, fmt.Errorf("%w: factor %s uses %q", ErrInvalidApplyMode, group.FactorCode, opt.ApplyMode)
		}
		res.FactorsApplied = append(res.FactorsApplied, FactorApplication{
			FactorCode:    group.FactorCode,
			OptionValue:   opt.OptionValue,
			ApplyMode:     opt.ApplyMode,
			Value:         opt.FactorValue,
			PremiumBefore: before,
			PremiumAfter:  premium,
		})
	}
	res.PremiumFactored = premium

	for _, rider := range snap.Riders {
		on, explicit := in.RiderSelections[rider.RiderCode]
		if !explicit {
			on = rider.IsDefault
		}
		if !on || !riderApplies(rider, in.RateKey) {
			continue
		}
		var delta decimal.Decimal
		switch rider.ApplyMode {
		case ratetabledomain.ApplyAdd:
			delta = rider.RiderValue
		case ratetabledomain.ApplyMultiply:
			delta = premium.Mul(rider.RiderValue.Sub(decimal.NewFromInt(1)))
		default:
			return nil, fmt.Errorf("%w: rider %s uses %q", ErrInvalidApplyMode, rider.RiderCode, rider.ApplyMode)
		}
		premium = premium.Add(delta)
		res.RidersApplied = append(res.RidersApplied, RiderApplication{
			RiderCode: rider.RiderCode,
			Label:     rider.Label,
			ApplyMode: rider.ApplyMode,
			Value:     rider.RiderValue,
			Amount:    delta,
			Default:   !explicit,
		})
	}
	res.PremiumWithRiders = premium

	for _, fee := range snap.Fees {
		var amount decimal.Decimal
		switch fee.ApplyMode {
		case ratetabledomain.ApplyAdd:
			amount = fee.FeeValue
		case ratetabledomain.ApplyPercent:
			amount = res.PremiumWithRiders.Mul(fee.FeeValue)
		default:
			return nil, fmt.Errorf("%w: fee %s uses %q", ErrInvalidApplyMode, fee.FeeCode, fee.ApplyMode)
		}
		if fee.FeeType == ratetabledomain.FeeTypeCredit {
			amount = amount.Abs().Neg()
		}
		premium = premium.Add(amount)
		res.FeesApplied = append(res.FeesApplied, FeeApplication{
			FeeCode:   fee.FeeCode,
			Label:     fee.Label,
			FeeType:   fee.FeeType,
			ApplyMode: fee.ApplyMode,
			Value:     fee.FeeValue,
			Amount:    amount,
		})
	}
	if premium.IsNegative() {
		premium = decimal.Zero
	}

	mode := ratetabledomain.PaymentMode(in.PaymentMode)
	if mode == "" {
		mode = DefaultPaymentMode
	}
	modal, ok := snap.ModalFactors[mode]
	if !mode.Valid() || !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPaymentMode, in.PaymentMode)
	}

	res.PremiumAnnual = RoundHalfUp(premium)
	res.ModalMode = string(mode)
	res.ModalFactor = modal.Factor
	res.ModalFee = modal.FlatFee
	res.PremiumModal = RoundHalfUp(premium.Mul(modal.Factor).Add(modal.FlatFee))
	return res, nil
}

func riderApplies(rider ratetabledomain.RateRider, rateKey string) bool {
	if rider.RateKeyPattern == nil || *rider.RateKeyPattern == "" {
		return true
	}
	ok, err := doublestar.Match(*rider.RateKeyPattern, rateKey)
	return err == nil && ok
}

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.RequireFromString("0.5")
)

// RoundHalfUp rounds to cents, halves going up.
func RoundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Mul(hundred).Add(half).Floor().Div(hundred).Round(2)
}
