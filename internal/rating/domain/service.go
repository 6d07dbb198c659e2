package domain

import (
	"context"

	ratetabledomain "github.com/railzwaylabs/ratebook/internal/ratetable/domain"
	ratingrundomain "github.com/railzwaylabs/ratebook/internal/ratingrun/domain"
	"github.com/railzwaylabs/ratebook/internal/resolver"
)

//go:generate mockgen -source=service.go -destination=mock/mock_service.go -package=mock

type OptionsRequest struct {
	ProductType string `form:"product_type" binding:"required"`
	Version     *int   `form:"version" binding:"omitempty,gte=1"`
	Carrier     string `form:"carrier"`
}

type Service interface {
	// RateScenario rates a stored scenario and records the run. An
	// ineligible verdict comes back as a normal outcome. Configuration
	// outcomes (no_active_rate_table, missing_rate_entry,
	// unknown_payment_mode and the other codes classified as
	// KindConfiguration) are returned as a *RatingError carrying the
	// code and the id of the run recorded with status error, never as a
	// RatingResult. Scenario lookup failures return before any run is
	// recorded.
	RateScenario(ctx context.Context, scenarioID string, req RateRequest) (*RateOutcome, error)
	GetOptions(ctx context.Context, req OptionsRequest) (*ratetabledomain.Options, error)
	GetHistory(ctx context.Context, scenarioID string) ([]ratingrundomain.RatingRun, error)
	GetAudit(ctx context.Context, runID string) (*ratingrundomain.RatingRun, error)
	GetWorksheet(ctx context.Context, runID string) ([]byte, error)
	ListRegisteredProductTypes() []resolver.Registration
}
