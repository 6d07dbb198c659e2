package domain

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// FactorGroup is the set of options sharing one factor_code. At most one
// option of a group is applied per rating.
type FactorGroup struct {
	FactorCode  string       `json:"factor_code"`
	FactorLabel string       `json:"factor_label"`
	SortOrder   int          `json:"sort_order"`
	Options     []RateFactor `json:"options"`
}

func (g FactorGroup) Option(value string) (RateFactor, bool) {
	for _, opt := range g.Options {
		if opt.OptionValue == value {
			return opt, true
		}
	}
	return RateFactor{}, false
}

// Snapshot is a read-only, denormalized copy of a table and its children.
// Snapshots are shared across concurrent ratings and must not be mutated.
type Snapshot struct {
	Table        RateTable                       `json:"table"`
	Entries      map[string]RateTableEntry       `json:"entries,omitempty"`
	FactorGroups []FactorGroup                   `json:"factor_groups"`
	Riders       []RateRider                     `json:"riders"`
	Fees         []RateFee                       `json:"fees"`
	ModalFactors map[PaymentMode]RateModalFactor `json:"modal_factors"`
}

// NewSnapshot indexes and orders children for rating.
func NewSnapshot(table RateTable, children Children) *Snapshot {
	snap := &Snapshot{
		Table:        table,
		Entries:      make(map[string]RateTableEntry, len(children.Entries)),
		FactorGroups: groupFactors(children.Factors),
		Riders:       append([]RateRider(nil), children.Riders...),
		Fees:         append([]RateFee(nil), children.Fees...),
		ModalFactors: make(map[PaymentMode]RateModalFactor, len(children.ModalFactors)),
	}
	for _, e := range children.Entries {
		snap.Entries[e.RateKey] = e
	}
	sort.SliceStable(snap.Riders, func(i, j int) bool {
		if snap.Riders[i].SortOrder != snap.Riders[j].SortOrder {
			return snap.Riders[i].SortOrder < snap.Riders[j].SortOrder
		}
		return snap.Riders[i].RiderCode < snap.Riders[j].RiderCode
	})
	sort.SliceStable(snap.Fees, func(i, j int) bool {
		if snap.Fees[i].SortOrder != snap.Fees[j].SortOrder {
			return snap.Fees[i].SortOrder < snap.Fees[j].SortOrder
		}
		return snap.Fees[i].FeeCode < snap.Fees[j].FeeCode
	})
	for _, m := range children.ModalFactors {
		snap.ModalFactors[m.PaymentMode] = m
	}
	return snap
}

func groupFactors(factors []RateFactor) []FactorGroup {
	byCode := make(map[string]*FactorGroup)
	order := make([]string, 0)
	for _, f := range factors {
		g, ok := byCode[f.FactorCode]
		if !ok {
			g = &FactorGroup{FactorCode: f.FactorCode, FactorLabel: f.FactorLabel, SortOrder: f.SortOrder}
			byCode[f.FactorCode] = g
			order = append(order, f.FactorCode)
		}
		if f.SortOrder < g.SortOrder {
			g.SortOrder = f.SortOrder
		}
		if g.FactorLabel == "" {
			g.FactorLabel = f.FactorLabel
		}
		g.Options = append(g.Options, f)
	}

	groups := make([]FactorGroup, 0, len(order))
	for _, code := range order {
		g := byCode[code]
		sort.SliceStable(g.Options, func(i, j int) bool {
			if g.Options[i].SortOrder != g.Options[j].SortOrder {
				return g.Options[i].SortOrder < g.Options[j].SortOrder
			}
			return g.Options[i].OptionValue < g.Options[j].OptionValue
		})
		groups = append(groups, *g)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].SortOrder != groups[j].SortOrder {
			return groups[i].SortOrder < groups[j].SortOrder
		}
		return groups[i].FactorCode < groups[j].FactorCode
	})
	return groups
}

// Rate returns the base rate for key. A missing key is an authoring fault,
// never a zero rate.
func (s *Snapshot) Rate(key string) (decimal.Decimal, error) {
	entry, ok := s.Entries[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q in %s v%d", ErrMissingRateEntry, key, s.Table.ProductType, s.Table.Version)
	}
	return entry.RateValue, nil
}

func (s *Snapshot) FactorGroup(code string) (FactorGroup, bool) {
	for _, g := range s.FactorGroups {
		if g.FactorCode == code {
			return g, true
		}
	}
	return FactorGroup{}, false
}

func (s *Snapshot) Rider(code string) (RateRider, bool) {
	for _, r := range s.Riders {
		if r.RiderCode == code {
			return r, true
		}
	}
	return RateRider{}, false
}

// ForAudit copies the snapshot keeping only the entry that priced the run.
// Factors, riders, fees and modal factors are kept whole.
func (s *Snapshot) ForAudit(rateKey string) *Snapshot {
	out := *s
	out.Entries = nil
	if entry, ok := s.Entries[rateKey]; ok {
		out.Entries = map[string]RateTableEntry{rateKey: entry}
	}
	return &out
}

// Options is the selectable surface of one table version.
type Options struct {
	ProductType   string            `json:"product_type"`
	Version       int               `json:"version"`
	Carrier       string            `json:"carrier,omitempty"`
	Name          string            `json:"name"`
	EffectiveDate string            `json:"effective_date"`
	Factors       []FactorGroup     `json:"factors"`
	Riders        []RateRider       `json:"riders"`
	Fees          []RateFee         `json:"fees"`
	ModalFactors  []RateModalFactor `json:"modal_factors"`
}

func (s *Snapshot) Options() *Options {
	modal := make([]RateModalFactor, 0, len(s.ModalFactors))
	for _, mode := range PaymentModes {
		if m, ok := s.ModalFactors[mode]; ok {
			modal = append(modal, m)
		}
	}
	return &Options{
		ProductType:   s.Table.ProductType,
		Version:       s.Table.Version,
		Carrier:       s.Table.Carrier,
		Name:          s.Table.Name,
		EffectiveDate: s.Table.EffectiveDate.Format("2006-01-02"),
		Factors:       s.FactorGroups,
		Riders:        s.Riders,
		Fees:          s.Fees,
		ModalFactors:  modal,
	}
}
