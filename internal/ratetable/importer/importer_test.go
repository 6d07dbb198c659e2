package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/railzwaylabs/ratebook/internal/ratetable/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type MockService struct {
	domain.Service
	mock.Mock
}

func (m *MockService) Publish(ctx context.Context, doc *domain.Document, opts domain.PublishOptions) (*domain.RateTable, error) {
	args := m.Called(ctx, doc, opts)
	table, _ := args.Get(0).(*domain.RateTable)
	return table, args.Error(1)
}

func TestDecodeYAML(t *testing.T) {
	doc, err := DecodeFile(filepath.Join("testdata", "auto.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "auto", doc.ProductType)
	assert.Equal(t, "2025-01-01", doc.EffectiveDate)
	require.Len(t, doc.Entries, 2)
	assert.Equal(t, domain.Number("120.00"), doc.Entries[0].RateValue)
	assert.Equal(t, domain.Number("210.50"), doc.Entries[1].RateValue)
	assert.Equal(t, "yes", doc.Factors[0].OptionValue)
	assert.True(t, doc.Riders[0].IsDefault)
	assert.Equal(t, domain.Number("0.08333333"), doc.ModalFactors[0].Factor)
}

func TestDecodeJSON(t *testing.T) {
	raw := `{
		"product_type": "home",
		"name": "Home 2025",
		"effective_date": "2025-01-01",
		"metadata": {"max_coverage_amount": 1500000},
		"entries": [{"rate_key": "FL|masonry|3", "rate_value": 4.125}],
		"modal_factors": [{"payment_mode": "annual", "factor": "1"}]
	}`
	doc, err := Decode(strings.NewReader(raw), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, domain.Number("4.125"), doc.Entries[0].RateValue)
	assert.Equal(t, domain.Number("1"), doc.ModalFactors[0].Factor)
	assert.Equal(t, json.Number("1500000"), doc.Metadata["max_coverage_amount"])
}

func TestDecodeXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "table"))
	tableRows := [][]any{
		{"product_type", "disability"},
		{"name", "DI 2025"},
		{"effective_date", "2025-01-01"},
		{"metadata.max_monthly_benefit", "12000"},
	}
	for i, row := range tableRows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow("table", cell, &row))
	}

	sheets := map[string][][]any{
		"entries": {
			{"rate_key", "rate_value", "occupation_class"},
			{"1|30-39|90|5y", "1.85", "1"},
		},
		"riders": {
			{"rider_code", "rider_value", "apply_mode", "is_default", "rate_key_pattern"},
			{"cola", "1.12", "multiply", "TRUE", "*|*|90|*"},
		},
		"modal_factors": {
			{"payment_mode", "factor", "flat_fee"},
			{"Monthly", "0.0875", ""},
		},
	}
	for name, rows := range sheets {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for i, row := range rows {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	doc, err := Decode(bytes.NewReader(buf.Bytes()), FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, "disability", doc.ProductType)
	assert.Equal(t, "12000", doc.Metadata["max_monthly_benefit"])
	require.Len(t, doc.Entries, 1)
	assert.Equal(t, "1", doc.Entries[0].Dimensions["occupation_class"])
	require.Len(t, doc.Riders, 1)
	assert.True(t, doc.Riders[0].IsDefault)
	assert.Equal(t, "*|*|90|*", doc.Riders[0].RateKeyPattern)
	assert.Equal(t, "monthly", doc.ModalFactors[0].PaymentMode)
}

func TestDecodeXLSXWithoutTableSheet(t *testing.T) {
	f := excelize.NewFile()
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	_, err = Decode(bytes.NewReader(buf.Bytes()), FormatXLSX)
	assert.ErrorIs(t, err, domain.ErrInvalidDocument)
}

func TestFormatFromPath(t *testing.T) {
	format, err := FormatFromPath("rates/AUTO.YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, format)

	_, err = FormatFromPath("rates/auto.csv")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestImportFile(t *testing.T) {
	svc := &MockService{}
	svc.On("Publish", mock.Anything, mock.MatchedBy(func(doc *domain.Document) bool {
		return doc.Name == "Auto Standard 2025"
	}), domain.PublishOptions{Activate: true, Source: "file"}).
		Return(&domain.RateTable{ProductType: "auto", Version: 4, IsActive: true}, nil)

	imp := New(Params{Log: zap.NewNop(), Service: svc})
	table, err := imp.ImportFile(context.Background(), filepath.Join("testdata", "auto.yaml"), domain.PublishOptions{Activate: true})
	require.NoError(t, err)
	assert.Equal(t, 4, table.Version)
	svc.AssertExpectations(t)
}

func TestWatcherPublishesOncePerContent(t *testing.T) {
	dir := t.TempDir()
	raw, err := os.ReadFile(filepath.Join("testdata", "auto.yaml"))
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		calls int
	)
	svc := &MockService{}
	svc.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			mu.Lock()
			calls++
			mu.Unlock()
		}).
		Return(&domain.RateTable{ProductType: "auto", Version: 1}, nil)

	imp := New(Params{Log: zap.NewNop(), Service: svc})
	w := NewWatcher(imp, zap.NewNop(), dir, 50*time.Millisecond, domain.PublishOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	target := filepath.Join(dir, "auto.yaml")
	require.NoError(t, os.WriteFile(target, raw, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	}, 2*time.Second, 20*time.Millisecond)

	// same bytes again: skipped
	require.NoError(t, os.WriteFile(target, raw, 0o644))
	time.Sleep(200 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()

	cancel()
	require.NoError(t, <-done)
}

func TestDebouncerCoalesces(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var (
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < 5; i++ {
		n := i
		d.Trigger("a", func() {
			mu.Lock()
			got = append(got, n)
			mu.Unlock()
		})
	}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 10*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []int{4}, got)
	mu.Unlock()
}
