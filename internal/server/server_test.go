package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/railzwaylabs/ratebook/internal/calculator"
	"github.com/railzwaylabs/ratebook/internal/clock"
	"github.com/railzwaylabs/ratebook/internal/config"
	ratingdomain "github.com/railzwaylabs/ratebook/internal/rating/domain"
	"github.com/railzwaylabs/ratebook/internal/rating/domain/mock"
	"github.com/railzwaylabs/ratebook/internal/ratetable/cache"
	ratetabledomain "github.com/railzwaylabs/ratebook/internal/ratetable/domain"
	ratetablerepo "github.com/railzwaylabs/ratebook/internal/ratetable/repository"
	ratetableservice "github.com/railzwaylabs/ratebook/internal/ratetable/service"
	ratingrundomain "github.com/railzwaylabs/ratebook/internal/ratingrun/domain"
	ratingrunrepo "github.com/railzwaylabs/ratebook/internal/ratingrun/repository"
	ratingrunservice "github.com/railzwaylabs/ratebook/internal/ratingrun/service"
	"github.com/railzwaylabs/ratebook/internal/resolver"
	scenariodomain "github.com/railzwaylabs/ratebook/internal/scenario/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type stubGate struct{ err error }

func (g stubGate) MustBeActive(context.Context) error { return g.err }

type testServer struct {
	srv    *Server
	rating *mock.MockService
	runs   ratingrundomain.Service
	node   *snowflake.Node
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(append(ratetabledomain.Models(), &ratingrundomain.RatingRun{})...))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()

	rating := mock.NewMockService(gomock.NewController(t))
	rateTables := ratetableservice.New(ratetableservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  ratetablerepo.Provide(),
		Cache: cache.NewMemory(0, 0),
		Clock: clock.Fixed{At: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
	})
	runs := ratingrunservice.New(ratingrunservice.Params{DB: db, Log: log, GenID: node, Repo: ratingrunrepo.Provide()})

	srv := NewServer(Params{
		Cfg:          config.Config{Version: "test"},
		Log:          log,
		Engine:       NewEngine(config.Config{}, log),
		DB:           db,
		SchemaGate:   stubGate{},
		RatingSvc:    rating,
		RateTableSvc: rateTables,
		RatingRunSvc: runs,
	})
	srv.RegisterAPIRoutes()
	return testServer{srv: srv, rating: rating, runs: runs, node: node}
}

func (ts testServer) do(method, target string, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	ts.srv.Engine().ServeHTTP(resp, req)
	return resp
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var out ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return out.Error
}

func TestRateScenarioReturnsResult(t *testing.T) {
	ts := newTestServer(t)
	scenarioID := uuid.NewString()

	ts.rating.EXPECT().
		RateScenario(gomock.Any(), scenarioID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, req ratingdomain.RateRequest) (*ratingdomain.RateOutcome, error) {
			assert.Equal(t, "underwriter-7", req.UserID)
			assert.Equal(t, "monthly", req.PaymentMode)
			assert.Equal(t, "yes", req.FactorSelections["good_driver"])
			return &ratingdomain.RateOutcome{
				RunID:   "1234",
				Audited: true,
				Result: &ratingdomain.RatingResult{
					Eligible:         true,
					ProductType:      "auto",
					EngineVersion:    ratingdomain.EngineVersion,
					RateTableVersion: 1,
					Result:           &calculator.Result{PremiumModal: decimal.RequireFromString("17.25")},
				},
			}, nil
		})

	resp := ts.do(http.MethodPost, "/api/v1/scenarios/"+scenarioID+"/rate",
		`{"payment_mode":"monthly","factor_selections":{"good_driver":"yes"}}`,
		map[string]string{userIDHeader: "underwriter-7"})

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "1234", resp.Header().Get(ratingRunIDHeader))
	assert.Equal(t, "true", resp.Header().Get(ratingAuditedHeader))
	assert.NotEmpty(t, resp.Header().Get(requestIDHeader))

	var out struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(t, true, out.Data["eligible"])
	assert.Equal(t, "17.25", out.Data["premium_modal"])
}

func TestRateScenarioAcceptsEmptyBody(t *testing.T) {
	ts := newTestServer(t)
	scenarioID := uuid.NewString()

	ts.rating.EXPECT().
		RateScenario(gomock.Any(), scenarioID, gomock.Any()).
		Return(&ratingdomain.RateOutcome{Result: &ratingdomain.RatingResult{Eligible: false, IneligibleReason: "driver_under_minimum_age"}}, nil)

	resp := ts.do(http.MethodPost, "/api/v1/scenarios/"+scenarioID+"/rate", "", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "false", resp.Header().Get(ratingAuditedHeader))
	assert.Empty(t, resp.Header().Get(ratingRunIDHeader))
}

func TestRateScenarioErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		status   int
		code     string
		runID    string
		hideText bool
	}{
		{
			name:   "configuration",
			err:    &ratingdomain.RatingError{Kind: ratingdomain.KindConfiguration, Code: "missing_rate_entry", RunID: "77", Err: ratetabledomain.ErrMissingRateEntry},
			status: http.StatusUnprocessableEntity,
			code:   "missing_rate_entry",
			runID:  "77",
		},
		{
			name:     "internal",
			err:      &ratingdomain.RatingError{Kind: ratingdomain.KindInternal, Code: "internal_error", RunID: "78", Err: errors.New("connection reset by peer")},
			status:   http.StatusInternalServerError,
			code:     "internal_error",
			runID:    "78",
			hideText: true,
		},
		{
			name:   "scenario not found",
			err:    scenariodomain.ErrScenarioNotFound,
			status: http.StatusNotFound,
			code:   "scenario_not_found",
		},
		{
			name:   "invalid as_of",
			err:    ratingdomain.ErrInvalidAsOf,
			status: http.StatusBadRequest,
			code:   "invalid_as_of_date",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.rating.EXPECT().RateScenario(gomock.Any(), "sc-1", gomock.Any()).Return(nil, tc.err)

			resp := ts.do(http.MethodPost, "/api/v1/scenarios/sc-1/rate", `{}`, nil)
			require.Equal(t, tc.status, resp.Code)

			body := decodeError(t, resp)
			assert.Equal(t, tc.code, body.Code)
			assert.Equal(t, tc.runID, body.RatingRunID)
			assert.Equal(t, tc.runID, resp.Header().Get(ratingRunIDHeader))
			assert.NotEmpty(t, body.RequestID)
			if tc.hideText {
				assert.NotContains(t, body.Message, "connection reset")
			}
		})
	}
}

func TestRateScenarioRejectsMalformedBody(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodPost, "/api/v1/scenarios/sc-1/rate", `{"as_of":"June 1st"}`, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_rate_request", decodeError(t, resp).Code)

	resp = ts.do(http.MethodPost, "/api/v1/scenarios/sc-1/rate", `{"factor_selections":`, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetRatingOptions(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodGet, "/api/v1/rating/options", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	version := 2
	ts.rating.EXPECT().
		GetOptions(gomock.Any(), ratingdomain.OptionsRequest{ProductType: "home", Version: &version}).
		Return(&ratetabledomain.Options{ProductType: "home", Version: 2}, nil)

	resp = ts.do(http.MethodGet, "/api/v1/rating/options?product_type=home&version=2", "", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), `"version":2`)
}

func TestRatingRunEndpoints(t *testing.T) {
	ts := newTestServer(t)
	scenarioID := uuid.New()
	run := ratingrundomain.RatingRun{ID: 42, ScenarioID: scenarioID, ProductType: "auto", Status: ratingrundomain.StatusSuccess}

	ts.rating.EXPECT().GetHistory(gomock.Any(), scenarioID.String()).Return([]ratingrundomain.RatingRun{run}, nil)
	ts.rating.EXPECT().GetAudit(gomock.Any(), "42").Return(&run, nil)
	ts.rating.EXPECT().GetAudit(gomock.Any(), "43").Return(nil, ratingrundomain.ErrRunNotFound)
	ts.rating.EXPECT().GetWorksheet(gomock.Any(), "42").Return([]byte("%PDF-1.3"), nil)

	resp := ts.do(http.MethodGet, "/api/v1/scenarios/"+scenarioID.String()+"/rating-runs", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"count":1`)

	resp = ts.do(http.MethodGet, "/api/v1/rating-runs/42", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"success"`)

	resp = ts.do(http.MethodGet, "/api/v1/rating-runs/43", "", nil)
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "rating_run_not_found", decodeError(t, resp).Code)

	resp = ts.do(http.MethodGet, "/api/v1/rating-runs/42/worksheet", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/pdf", resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Header().Get("Content-Disposition"), "rating_worksheet_42.pdf")
}

func TestListProductTypes(t *testing.T) {
	ts := newTestServer(t)
	ts.rating.EXPECT().ListRegisteredProductTypes().Return(resolver.NewRegistry().List())

	resp := ts.do(http.MethodGet, "/api/v1/product-types", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"product_type":"disability"`)
	assert.Contains(t, resp.Body.String(), `"count":3`)
}

const autoDocument = `{
	"product_type": "auto",
	"name": "Auto Standard 2025",
	"effective_date": "2025-01-01",
	"entries": [{"rate_key": "TX|25-34|standard", "rate_value": "120.00"}],
	"modal_factors": [{"payment_mode": "annual", "factor": "1"}]
}`

func TestRateTableAdministration(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodPost, "/api/v1/rate-tables?activate=true", autoDocument, nil)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var created struct {
		Data ratetabledomain.RateTable `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.Equal(t, 1, created.Data.Version)
	assert.True(t, created.Data.IsActive)

	withVersion := strings.Replace(autoDocument, `"name"`, `"version": 1, "name"`, 1)
	resp = ts.do(http.MethodPost, "/api/v1/rate-tables", withVersion, nil)
	require.Equal(t, http.StatusConflict, resp.Code, resp.Body.String())
	assert.Equal(t, "rate_table_version_exists", decodeError(t, resp).Code)

	resp = ts.do(http.MethodGet, "/api/v1/rate-tables?product_type=auto&active=true", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"count":1`)

	id := created.Data.ID.String()
	resp = ts.do(http.MethodPost, "/api/v1/rate-tables/"+id+"/deactivate", "", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), `"is_active":false`)

	resp = ts.do(http.MethodPost, "/api/v1/rate-tables/"+id+"/activate?supersede=true", "", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), `"is_active":true`)

	resp = ts.do(http.MethodPost, "/api/v1/rate-tables/not-an-id/activate", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestImportRateTableRejectsBadDocuments(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodPost, "/api/v1/rate-tables", `{"product_type":"auto"}`, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_rate_table_document", decodeError(t, resp).Code)

	resp = ts.do(http.MethodPost, "/api/v1/rate-tables?format=toml", autoDocument, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "unsupported_document_format", decodeError(t, resp).Code)

	resp = ts.do(http.MethodPost, "/api/v1/rate-tables?activate=maybe", autoDocument, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "activate", decodeError(t, resp).Field)
}

func TestExportRatingRuns(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	for i, status := range []ratingrundomain.Status{ratingrundomain.StatusSuccess, ratingrundomain.StatusError} {
		require.NoError(t, ts.runs.Append(ctx, &ratingrundomain.RatingRun{
			ScenarioID:     uuid.New(),
			ProductType:    "auto",
			EngineVersion:  ratingdomain.EngineVersion,
			InputHash:      strings.Repeat("a", 64),
			InputSnapshot:  datatypes.JSON(`{"payload":{}}`),
			OutputSnapshot: datatypes.JSON(`{}`),
			Status:         status,
			CreatedAt:      time.Date(2025, 3, 10+i, 9, 0, 0, 0, time.UTC),
		}))
	}

	resp := ts.do(http.MethodGet, "/api/v1/rating-runs/export?start_date=2025-03-01&end_date=2025-03-31", "", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "2", resp.Header().Get("X-Rating-Export-Count"))
	assert.Len(t, resp.Header().Get("X-Rating-Export-Checksum"), 64)
	assert.Contains(t, resp.Header().Get("Content-Disposition"), "rating_runs_2025-03-01_2025-03-31.csv")
	assert.True(t, strings.HasPrefix(resp.Body.String(), "created_at,id,scenario_id"))

	resp = ts.do(http.MethodGet, "/api/v1/rating-runs/export?start_date=2025-03-01&end_date=2025-03-31&format=json&statuses=error", "", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "1", resp.Header().Get("X-Rating-Export-Count"))

	resp = ts.do(http.MethodGet, "/api/v1/rating-runs/export?start_date=2025-01-01&end_date=2025-12-31", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "range_too_large", decodeError(t, resp).Code)

	resp = ts.do(http.MethodGet, "/api/v1/rating-runs/export?start_date=2025-03-31&end_date=2025-03-01", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = ts.do(http.MethodGet, "/api/v1/rating-runs/export?start_date=2025-03-01&end_date=2025-03-31&statuses=pending", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSystemEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.do(http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var ready ReadinessResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &ready))
	assert.Equal(t, ReadinessStateReady, ready.SystemState)
	require.Len(t, ready.Issues, 3)
	assert.Equal(t, ReadinessStateOptional, ready.Issues[2].Status)

	ts.srv.schemaGate = stubGate{err: errors.New("schema version mismatch")}
	resp = ts.do(http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)

	resp = ts.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.do(http.MethodGet, "/api/v1/unknown", "", map[string]string{requestIDHeader: "req-1"})
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "req-1", resp.Header().Get(requestIDHeader))
	assert.Equal(t, "req-1", decodeError(t, resp).RequestID)
}

func TestRecoveryReturnsInternalError(t *testing.T) {
	ts := newTestServer(t)
	ts.rating.EXPECT().ListRegisteredProductTypes().DoAndReturn(func() []resolver.Registration {
		panic("registry exploded")
	})

	resp := ts.do(http.MethodGet, "/api/v1/product-types", "", nil)
	require.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, "internal_error", decodeError(t, resp).Code)
}
