// Package domain describes one rating request and its audited outcome.
package domain

import (
	"github.com/railzwaylabs/ratebook/internal/calculator"
	ratetabledomain "github.com/railzwaylabs/ratebook/internal/ratetable/domain"
	scenariodomain "github.com/railzwaylabs/ratebook/internal/scenario/domain"
)

// EngineVersion is stamped on every result and audit record. Bump it when a
// change could alter the premium produced for the same inputs.
const EngineVersion = "1.0.0"

// RateRequest carries the caller's selections for one run.
type RateRequest struct {
	PaymentMode      string            `json:"payment_mode,omitempty"`
	FactorSelections map[string]string `json:"factor_selections,omitempty"`
	RiderSelections  map[string]bool   `json:"rider_selections,omitempty"`
	RateTableVersion *int              `json:"rate_table_version,omitempty" binding:"omitempty,gte=1"`
	Carrier          string            `json:"carrier,omitempty"`
	// AsOf rates the scenario against the tables live on that date (YYYY-MM-DD).
	AsOf string `json:"as_of,omitempty" binding:"omitempty,datetime=2006-01-02"`

	UserID string `json:"-"`
}

// RatingResult is the engine's answer. Premium fields are present only when
// the scenario is eligible.
type RatingResult struct {
	Eligible         bool   `json:"eligible"`
	IneligibleReason string `json:"ineligible_reason,omitempty"`
	ProductType      string `json:"product_type"`
	EngineVersion    string `json:"engine_version"`
	RateTableVersion int    `json:"rate_table_version"`
	Carrier          string `json:"carrier,omitempty"`

	*calculator.Result

	Extensions map[string]any `json:"extensions,omitempty"`
}

// RateOutcome pairs a result with the audit record written for it. RunID is
// empty when the audit write failed.
type RateOutcome struct {
	RunID   string        `json:"rating_run_id,omitempty"`
	Audited bool          `json:"audited"`
	Result  *RatingResult `json:"result"`
}

// InputSnapshot is what the run was computed from. Its canonical JSON is
// hashed into the run's input_hash.
type InputSnapshot struct {
	Scenario         *scenariodomain.Scenario `json:"scenario"`
	Payload          RateRequest              `json:"payload"`
	ProductType      string                   `json:"product_type"`
	RateTableVersion *int                     `json:"rate_table_version,omitempty"`
	EngineVersion    string                   `json:"engine_version"`
	RatingDate       string                   `json:"rating_date"`
}

// OutputSnapshot keeps the result together with the rate data that priced
// it, so a run stays interpretable after its table is retired.
type OutputSnapshot struct {
	Result    *RatingResult             `json:"result,omitempty"`
	RateTable *ratetabledomain.Snapshot `json:"rate_table,omitempty"`
	Error     *ErrorDetail              `json:"error,omitempty"`
}

type ErrorDetail struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}
