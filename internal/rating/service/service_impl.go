package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/ratebook/internal/calculator"
	"github.com/railzwaylabs/ratebook/internal/clock"
	"github.com/railzwaylabs/ratebook/internal/metrics"
	ratingdomain "github.com/railzwaylabs/ratebook/internal/rating/domain"
	"github.com/railzwaylabs/ratebook/internal/rating/worksheet"
	ratetabledomain "github.com/railzwaylabs/ratebook/internal/ratetable/domain"
	ratingrundomain "github.com/railzwaylabs/ratebook/internal/ratingrun/domain"
	"github.com/railzwaylabs/ratebook/internal/resolver"
	scenariodomain "github.com/railzwaylabs/ratebook/internal/scenario/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const dateLayout = "2006-01-02"

// configurationErrors are authoring faults in rate data, selections or
// scenario data. Everything else that fails a run is internal.
var configurationErrors = []error{
	ratetabledomain.ErrNoActiveRateTable,
	ratetabledomain.ErrMissingRateEntry,
	ratetabledomain.ErrInvalidProductType,
	calculator.ErrUnknownPaymentMode,
	calculator.ErrInvalidSelection,
	calculator.ErrInvalidApplyMode,
	resolver.ErrUnsupportedProductType,
	resolver.ErrMalformedScenario,
	resolver.ErrInvalidRateMetadata,
}

type Params struct {
	fx.In

	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Registry    *resolver.Registry
	Scenarios   scenariodomain.Service
	RateTables  ratetabledomain.Service
	Runs        ratingrundomain.Service
	ResultCache ResultCache
}

type Service struct {
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	registry    *resolver.Registry
	scenarios   scenariodomain.Service
	rateTables  ratetabledomain.Service
	runs        ratingrundomain.Service
	resultCache ResultCache

	tracer      trace.Tracer
	runCounter  metric.Int64Counter
	runDuration metric.Float64Histogram
}

func New(p Params) ratingdomain.Service {
	svc := &Service{
		log:         p.Log.Named("rating.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		registry:    p.Registry,
		scenarios:   p.Scenarios,
		rateTables:  p.RateTables,
		runs:        p.Runs,
		resultCache: p.ResultCache,
		tracer:      otel.Tracer("ratebook/rating"),
	}
	if svc.resultCache == nil {
		svc.resultCache = noopResultCache{}
	}

	meter := otel.Meter("ratebook/rating")
	var err error
	if svc.runCounter, err = meter.Int64Counter("rating.runs",
		metric.WithDescription("Rating runs by product type and status")); err != nil {
		svc.log.Warn("create rating.runs counter", zap.Error(err))
	}
	if svc.runDuration, err = meter.Float64Histogram("rating.duration",
		metric.WithDescription("Rating run wall time"),
		metric.WithUnit("ms")); err != nil {
		svc.log.Warn("create rating.duration histogram", zap.Error(err))
	}
	return svc
}

// evaluation carries everything one run produced, successful or not.
type evaluation struct {
	input  ratingdomain.InputSnapshot
	hash   string
	snap   *ratetabledomain.Snapshot
	result *ratingdomain.RatingResult
	cached bool
	err    error
}

// RateScenario implements ratingdomain.Service. Configuration and internal
// failures surface as *ratingdomain.RatingError, not inside the result.
func (s *Service) RateScenario(ctx context.Context, scenarioID string, req ratingdomain.RateRequest) (*ratingdomain.RateOutcome, error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "rating.RateScenario",
		trace.WithAttributes(attribute.String("scenario.id", scenarioID)))
	defer span.End()

	payload := normalizeRequest(req)
	if payload.AsOf != "" {
		at, err := time.ParseInLocation(dateLayout, payload.AsOf, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ratingdomain.ErrInvalidAsOf, payload.AsOf)
		}
		ctx = clock.WithAsOf(ctx, at)
	}

	// A scenario that cannot be loaded has nothing to audit against.
	sc, err := s.scenarios.Get(ctx, scenarioID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("product.type", sc.ProductType))

	ev := s.evaluate(ctx, sc, payload, s.clock.Now(ctx))
	duration := time.Since(started)

	run := s.buildRun(sc, payload, ev, duration)
	outcome := &ratingdomain.RateOutcome{Result: ev.result}
	if err := s.runs.Append(ctx, run); err != nil {
		metrics.AuditWriteFailures.Inc()
		s.log.Error("failed to append rating run",
			zap.String("scenario_id", sc.ID.String()),
			zap.String("run_id", run.ID.String()),
			zap.String("input_hash", ev.hash),
			zap.Error(err),
		)
	} else {
		outcome.RunID = run.ID.String()
		outcome.Audited = true
	}
	s.observe(ctx, sc.ProductType, run.Status, duration)
	span.SetAttributes(
		attribute.String("rating.status", string(run.Status)),
		attribute.Bool("rating.cached", ev.cached),
	)

	if ev.err != nil {
		kind, code := classify(ev.err)
		span.RecordError(ev.err)
		span.SetStatus(codes.Error, code)
		fields := []zap.Field{
			zap.String("scenario_id", sc.ID.String()),
			zap.String("run_id", outcome.RunID),
			zap.String("code", code),
			zap.Error(ev.err),
		}
		if kind == ratingdomain.KindInternal {
			s.log.Error("rating failed", fields...)
		} else {
			s.log.Warn("rating rejected by configuration", fields...)
		}
		return nil, &ratingdomain.RatingError{Kind: kind, Code: code, RunID: outcome.RunID, Err: ev.err}
	}

	s.log.Debug("rated scenario",
		zap.String("scenario_id", sc.ID.String()),
		zap.String("run_id", outcome.RunID),
		zap.String("status", string(run.Status)),
		zap.Bool("cached", ev.cached),
		zap.Duration("duration", duration),
	)
	return outcome, nil
}

// evaluate runs resolve and calculate. Failures, panics included, are
// returned in ev.err so the caller can still audit the attempt.
func (s *Service) evaluate(ctx context.Context, sc *scenariodomain.Scenario, payload ratingdomain.RateRequest, ratingDate time.Time) (ev evaluation) {
	ev.input = ratingdomain.InputSnapshot{
		Scenario:      sc,
		Payload:       payload,
		ProductType:   sc.ProductType,
		EngineVersion: ratingdomain.EngineVersion,
		RatingDate:    ratingDate.Format(dateLayout),
	}
	defer func() {
		if r := recover(); r != nil {
			ev.result = nil
			ev.err = fmt.Errorf("panic during rating: %v", r)
		}
		if ev.hash == "" {
			ev.hash, _ = inputHash(ev.input)
		}
	}()

	res, err := s.registry.Lookup(sc.ProductType)
	if err != nil {
		ev.err = err
		return ev
	}

	table, err := s.rateTables.ResolveActive(ctx, ratetabledomain.ResolveRequest{
		ProductType: sc.ProductType,
		Version:     payload.RateTableVersion,
		Carrier:     payload.Carrier,
	})
	if err != nil {
		ev.err = err
		return ev
	}
	version := table.Version
	ev.input.RateTableVersion = &version

	snap, err := s.rateTables.LoadSnapshot(ctx, table)
	if err != nil {
		ev.err = err
		return ev
	}
	ev.snap = snap

	if ev.hash, err = inputHash(ev.input); err != nil {
		ev.err = fmt.Errorf("hash rating input: %w", err)
		return ev
	}
	if cached, ok := s.cachedResult(ctx, ev.hash); ok {
		ev.result = cached
		ev.cached = true
		return ev
	}

	if err := calculator.ValidateSelections(snap, payload.FactorSelections, payload.RiderSelections); err != nil {
		ev.err = err
		return ev
	}

	resolution, err := res.Resolve(ctx, resolver.Input{Scenario: sc, Table: &snap.Table, AsOf: ratingDate})
	if err != nil {
		ev.err = err
		return ev
	}

	result := &ratingdomain.RatingResult{
		Eligible:         resolution.Eligible,
		IneligibleReason: resolution.IneligibleReason,
		ProductType:      sc.ProductType,
		EngineVersion:    ratingdomain.EngineVersion,
		RateTableVersion: table.Version,
		Carrier:          table.Carrier,
		Extensions:       resolution.Extensions,
	}
	if !resolution.Eligible {
		ev.result = result
		s.storeResult(ctx, ev.hash, result)
		return ev
	}

	baseRate, err := snap.Rate(resolution.RateKey)
	if err != nil {
		ev.err = err
		return ev
	}
	calc, err := calculator.Calculate(calculator.Input{
		Snapshot:         snap,
		RateKey:          resolution.RateKey,
		BaseRate:         baseRate,
		Exposure:         resolution.Exposure,
		FactorSelections: payload.FactorSelections,
		RiderSelections:  payload.RiderSelections,
		PaymentMode:      payload.PaymentMode,
	})
	if err != nil {
		ev.err = err
		return ev
	}
	result.Result = calc
	ev.result = result
	s.storeResult(ctx, ev.hash, result)
	return ev
}

func (s *Service) cachedResult(ctx context.Context, hash string) (*ratingdomain.RatingResult, bool) {
	result, ok, err := s.resultCache.Get(ctx, hash)
	if err != nil {
		s.log.Warn("result cache get failed", zap.String("input_hash", hash), zap.Error(err))
		return nil, false
	}
	return result, ok
}

func (s *Service) storeResult(ctx context.Context, hash string, result *ratingdomain.RatingResult) {
	if err := s.resultCache.Set(ctx, hash, result); err != nil {
		s.log.Warn("result cache set failed", zap.String("input_hash", hash), zap.Error(err))
	}
}

func (s *Service) buildRun(sc *scenariodomain.Scenario, payload ratingdomain.RateRequest, ev evaluation, duration time.Duration) *ratingrundomain.RatingRun {
	run := &ratingrundomain.RatingRun{
		ID:               s.genID.Generate(),
		ScenarioID:       sc.ID,
		UserID:           payload.UserID,
		ProductType:      sc.ProductType,
		RateTableVersion: ev.input.RateTableVersion,
		EngineVersion:    ratingdomain.EngineVersion,
		InputHash:        ev.hash,
		DurationMs:       duration.Milliseconds(),
	}

	output := ratingdomain.OutputSnapshot{Result: ev.result}
	if ev.snap != nil {
		rateKey := ""
		if ev.result != nil && ev.result.Result != nil {
			rateKey = ev.result.BaseRateKey
		}
		output.RateTable = ev.snap.ForAudit(rateKey)
	}

	switch {
	case ev.err != nil:
		run.Status = ratingrundomain.StatusError
		kind, code := classify(ev.err)
		msg := ev.err.Error()
		run.ErrorMessage = &msg
		output.Result = nil
		output.Error = &ratingdomain.ErrorDetail{Kind: kind, Code: code, Message: msg}
	case ev.result != nil && !ev.result.Eligible:
		run.Status = ratingrundomain.StatusIneligible
	default:
		run.Status = ratingrundomain.StatusSuccess
	}

	run.InputSnapshot = s.marshalSnapshot("input", ev.input)
	run.OutputSnapshot = s.marshalSnapshot("output", output)
	return run
}

func (s *Service) marshalSnapshot(name string, v any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		s.log.Error("marshal rating snapshot", zap.String("snapshot", name), zap.Error(err))
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(raw)
}

func (s *Service) observe(ctx context.Context, productType string, status ratingrundomain.Status, duration time.Duration) {
	metrics.RatingRuns.WithLabelValues(productType, string(status)).Inc()
	metrics.RatingDuration.WithLabelValues(productType).Observe(duration.Seconds())

	attrs := metric.WithAttributes(
		attribute.String("product_type", productType),
		attribute.String("status", string(status)),
	)
	if s.runCounter != nil {
		s.runCounter.Add(ctx, 1, attrs)
	}
	if s.runDuration != nil {
		s.runDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	}
}

func classify(err error) (ratingdomain.ErrorKind, string) {
	for _, target := range configurationErrors {
		if errors.Is(err, target) {
			return ratingdomain.KindConfiguration, target.Error()
		}
	}
	return ratingdomain.KindInternal, "internal_error"
}

func (s *Service) GetOptions(ctx context.Context, req ratingdomain.OptionsRequest) (*ratetabledomain.Options, error) {
	if _, err := s.registry.Lookup(req.ProductType); err != nil {
		return nil, err
	}
	return s.rateTables.Options(ctx, ratetabledomain.ResolveRequest{
		ProductType: req.ProductType,
		Version:     req.Version,
		Carrier:     req.Carrier,
	})
}

func (s *Service) GetHistory(ctx context.Context, scenarioID string) ([]ratingrundomain.RatingRun, error) {
	return s.runs.ListByScenario(ctx, scenarioID)
}

func (s *Service) GetAudit(ctx context.Context, runID string) (*ratingrundomain.RatingRun, error) {
	return s.runs.GetByID(ctx, runID)
}

// GetWorksheet renders the stored run as a PDF. It reads only the audit
// record, so it works for runs priced by retired tables.
func (s *Service) GetWorksheet(ctx context.Context, runID string) ([]byte, error) {
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}

	var input ratingdomain.InputSnapshot
	if err := json.Unmarshal(run.InputSnapshot, &input); err != nil {
		return nil, fmt.Errorf("decode input snapshot: %w", err)
	}
	var output ratingdomain.OutputSnapshot
	if len(run.OutputSnapshot) > 0 {
		if err := json.Unmarshal(run.OutputSnapshot, &output); err != nil {
			return nil, fmt.Errorf("decode output snapshot: %w", err)
		}
	}
	return worksheet.Render(worksheet.Run{Record: run, Input: &input, Output: &output})
}

func (s *Service) ListRegisteredProductTypes() []resolver.Registration {
	return s.registry.List()
}
