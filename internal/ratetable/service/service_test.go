package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/railzwaylabs/ratebook/internal/clock"
	"github.com/railzwaylabs/ratebook/internal/ratetable/cache"
	"github.com/railzwaylabs/ratebook/internal/ratetable/domain"
	"github.com/railzwaylabs/ratebook/internal/ratetable/repository"
	"github.com/railzwaylabs/ratebook/internal/ratetable/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db    *gorm.DB
	cache *cache.Memory
	svc   domain.Service
}

func setup(t *testing.T) fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.Models()...))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	mem := cache.NewMemory(0, 0)
	svc := service.New(service.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Cache: mem,
		Clock: clock.Fixed{At: now},
	})
	return fixture{db: db, cache: mem, svc: svc}
}

func autoDocument(name, effective string) *domain.Document {
	return &domain.Document{
		ProductType:   "auto",
		Name:          name,
		EffectiveDate: effective,
		Metadata:      map[string]any{"min_driver_age": 16},
		Entries: []domain.EntryDocument{
			{RateKey: "TX|25-34|standard", RateValue: "120.00", Dimensions: map[string]any{"state": "TX"}},
			{RateKey: "TX|16-24|standard", RateValue: "210.00"},
		},
		Factors: []domain.FactorDocument{
			{FactorCode: "good_driver", OptionValue: "yes", FactorValue: "0.90", ApplyMode: "multiply", SortOrder: 10},
			{FactorCode: "good_driver", OptionValue: "no", FactorValue: "1", ApplyMode: "multiply", SortOrder: 10},
			{FactorCode: "garage", OptionValue: "street", FactorValue: "10", ApplyMode: "add", SortOrder: 5},
		},
		Riders: []domain.RiderDocument{
			{RiderCode: "roadside", RiderValue: "25.00", ApplyMode: "add", IsDefault: true, SortOrder: 1},
		},
		Fees: []domain.FeeDocument{
			{FeeCode: "policy_fee", FeeType: "fee", ApplyMode: "add", FeeValue: "50.00", SortOrder: 1},
		},
		ModalFactors: []domain.ModalFactorDocument{
			{PaymentMode: "monthly", Factor: "0.0833333333", FlatFee: "2.00"},
			{PaymentMode: "annual", Factor: "1"},
		},
	}
}

func TestPublishDraftIsNotServed(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	table, err := f.svc.Publish(ctx, autoDocument("Auto 2025", "2025-01-01"), domain.PublishOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, table.Version)
	assert.False(t, table.IsActive)
	assert.Equal(t, "auto-2025", table.Code)

	_, err = f.svc.ResolveActive(ctx, domain.ResolveRequest{ProductType: "auto"})
	assert.ErrorIs(t, err, domain.ErrNoActiveRateTable)
}

func TestPublishActivateAndSupersede(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	v1, err := f.svc.Publish(ctx, autoDocument("Auto 2025", "2025-01-01"), domain.PublishOptions{Activate: true})
	require.NoError(t, err)
	assert.True(t, v1.IsActive)

	resolved, err := f.svc.ResolveActive(ctx, domain.ResolveRequest{ProductType: "auto"})
	require.NoError(t, err)
	assert.Equal(t, 1, resolved.Version)

	v2, err := f.svc.Publish(ctx, autoDocument("Auto 2025 rev", "2025-03-01"), domain.PublishOptions{Activate: true, Supersede: true})
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)

	active := true
	tables, err := f.svc.List(ctx, domain.ListRequest{ProductType: "auto", Active: &active})
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, 2, tables[0].Version)

	_, err = f.svc.ResolveActive(ctx, domain.ResolveRequest{ProductType: "auto", Version: intPtr(1)})
	assert.ErrorIs(t, err, domain.ErrNoActiveRateTable)
}

func TestResolveActiveNewestEffectiveDateWins(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.Publish(ctx, autoDocument("Later", "2025-05-01"), domain.PublishOptions{Activate: true})
	require.NoError(t, err)
	_, err = f.svc.Publish(ctx, autoDocument("Earlier", "2025-02-01"), domain.PublishOptions{Activate: true})
	require.NoError(t, err)
	_, err = f.svc.Publish(ctx, autoDocument("Future", "2025-09-01"), domain.PublishOptions{Activate: true})
	require.NoError(t, err)

	table, err := f.svc.ResolveActive(ctx, domain.ResolveRequest{ProductType: "auto"})
	require.NoError(t, err)
	assert.Equal(t, "Later", table.Name)

	asOf := clock.WithAsOf(ctx, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC))
	table, err = f.svc.ResolveActive(asOf, domain.ResolveRequest{ProductType: "auto"})
	require.NoError(t, err)
	assert.Equal(t, "Future", table.Name)

	asOf = clock.WithAsOf(ctx, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	table, err = f.svc.ResolveActive(asOf, domain.ResolveRequest{ProductType: "auto"})
	require.NoError(t, err)
	assert.Equal(t, "Earlier", table.Name)
}

func TestResolveActiveCarrierFilter(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	doc := autoDocument("Acme auto", "2025-01-01")
	doc.Carrier = "acme"
	_, err := f.svc.Publish(ctx, doc, domain.PublishOptions{Activate: true})
	require.NoError(t, err)

	_, err = f.svc.ResolveActive(ctx, domain.ResolveRequest{ProductType: "auto", Carrier: "globex"})
	assert.ErrorIs(t, err, domain.ErrNoActiveRateTable)

	table, err := f.svc.ResolveActive(ctx, domain.ResolveRequest{ProductType: "auto", Carrier: "acme"})
	require.NoError(t, err)
	assert.Equal(t, "acme", table.Carrier)
}

func TestPublishRejectsInvalidDocument(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	doc := autoDocument("Broken", "2025-01-01")
	doc.Factors[0].ApplyMode = "divide"
	_, err := f.svc.Publish(ctx, doc, domain.PublishOptions{Activate: true})
	assert.ErrorIs(t, err, domain.ErrInvalidDocument)

	doc = autoDocument("Duplicate", "2025-01-01")
	doc.Entries = append(doc.Entries, domain.EntryDocument{RateKey: "TX|25-34|standard", RateValue: "1"})
	_, err = f.svc.Publish(ctx, doc, domain.PublishOptions{Activate: true})
	assert.ErrorIs(t, err, domain.ErrInvalidDocument)

	doc = autoDocument("Marine", "2025-01-01")
	doc.ProductType = "marine"
	_, err = f.svc.Publish(ctx, doc, domain.PublishOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidProductType)

	var count int64
	require.NoError(t, f.db.Model(&domain.RateTable{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPublishExplicitVersionConflict(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	doc := autoDocument("Auto", "2025-01-01")
	doc.Version = 7
	table, err := f.svc.Publish(ctx, doc, domain.PublishOptions{})
	require.NoError(t, err)
	assert.Equal(t, 7, table.Version)

	_, err = f.svc.Publish(ctx, doc, domain.PublishOptions{})
	assert.ErrorIs(t, err, domain.ErrVersionExists)
}

func TestLoadSnapshotAndOptions(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	table, err := f.svc.Publish(ctx, autoDocument("Auto 2025", "2025-01-01"), domain.PublishOptions{Activate: true})
	require.NoError(t, err)

	snap, err := f.svc.LoadSnapshot(ctx, table)
	require.NoError(t, err)
	rate, err := snap.Rate("TX|25-34|standard")
	require.NoError(t, err)
	assert.Equal(t, "120", rate.String())

	_, err = snap.Rate("CA|25-34|standard")
	assert.ErrorIs(t, err, domain.ErrMissingRateEntry)

	_, cached, err := f.cache.Get(ctx, "auto", table.Version)
	require.NoError(t, err)
	assert.True(t, cached)

	opts, err := f.svc.Options(ctx, domain.ResolveRequest{ProductType: "auto"})
	require.NoError(t, err)
	assert.Equal(t, table.Version, opts.Version)
	require.Len(t, opts.Factors, 2)
	assert.Equal(t, "garage", opts.Factors[0].FactorCode)
	assert.Equal(t, "good_driver", opts.Factors[1].FactorCode)
	assert.Len(t, opts.Factors[1].Options, 2)
	require.Len(t, opts.ModalFactors, 2)
	assert.Equal(t, domain.PaymentMonthly, opts.ModalFactors[0].PaymentMode)
}

func TestDeactivateInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	table, err := f.svc.Publish(ctx, autoDocument("Auto 2025", "2025-01-01"), domain.PublishOptions{Activate: true})
	require.NoError(t, err)
	_, err = f.svc.LoadSnapshot(ctx, table)
	require.NoError(t, err)

	_, err = f.svc.Deactivate(ctx, table.ID.String())
	require.NoError(t, err)

	_, cached, err := f.cache.Get(ctx, "auto", table.Version)
	require.NoError(t, err)
	assert.False(t, cached)

	_, err = f.svc.ResolveActive(ctx, domain.ResolveRequest{ProductType: "auto"})
	assert.ErrorIs(t, err, domain.ErrNoActiveRateTable)

	_, err = f.svc.Deactivate(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
	_, err = f.svc.Activate(ctx, "12345", false)
	assert.ErrorIs(t, err, domain.ErrRateTableNotFound)
}

func TestWarmCacheAndExpireTables(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	doc := autoDocument("Expired", "2024-01-01")
	doc.ExpirationDate = "2024-12-31"
	_, err := f.svc.Publish(ctx, doc, domain.PublishOptions{Activate: true})
	require.NoError(t, err)
	_, err = f.svc.Publish(ctx, autoDocument("Current", "2025-01-01"), domain.PublishOptions{Activate: true})
	require.NoError(t, err)

	warmed, err := f.svc.WarmCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, warmed)

	expired, err := f.svc.ExpireTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	active := true
	tables, err := f.svc.List(ctx, domain.ListRequest{Active: &active})
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "Current", tables[0].Name)
}

func intPtr(v int) *int { return &v }
