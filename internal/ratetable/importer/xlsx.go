package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/railzwaylabs/ratebook/internal/ratetable/domain"
	"github.com/xuri/excelize/v2"
)

const (
	sheetTable        = "table"
	sheetEntries      = "entries"
	sheetFactors      = "factors"
	sheetRiders       = "riders"
	sheetFees         = "fees"
	sheetModalFactors = "modal_factors"
)

// decodeXLSX reads a workbook with one sheet per section. The "table" sheet
// holds key/value rows; the others have a header row. Entry columns other
// than rate_key and rate_value become dimensions, and "metadata.<key>" rows
// of the table sheet become metadata.
func decodeXLSX(r io.Reader) (*domain.Document, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDocument, err)
	}
	defer f.Close()

	sheets := make(map[string]string)
	for _, name := range f.GetSheetList() {
		sheets[strings.ToLower(strings.TrimSpace(name))] = name
	}
	tableSheet, ok := sheets[sheetTable]
	if !ok {
		return nil, fmt.Errorf("%w: workbook has no %q sheet", domain.ErrInvalidDocument, sheetTable)
	}

	doc := &domain.Document{}
	rows, err := f.GetRows(tableSheet)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(row[0]))
		value := strings.TrimSpace(row[1])
		switch {
		case key == "product_type":
			doc.ProductType = value
		case key == "carrier":
			doc.Carrier = value
		case key == "code":
			doc.Code = value
		case key == "name":
			doc.Name = value
		case key == "version":
			if value != "" {
				v, err := strconv.Atoi(value)
				if err != nil {
					return nil, fmt.Errorf("%w: version: %v", domain.ErrInvalidDocument, err)
				}
				doc.Version = v
			}
		case key == "effective_date":
			doc.EffectiveDate = value
		case key == "expiration_date":
			doc.ExpirationDate = value
		case strings.HasPrefix(key, "metadata."):
			if doc.Metadata == nil {
				doc.Metadata = map[string]any{}
			}
			doc.Metadata[strings.TrimPrefix(key, "metadata.")] = value
		}
	}

	if err := eachRecord(f, sheets[sheetEntries], func(rec record) error {
		entry := domain.EntryDocument{
			RateKey:   rec.get("rate_key"),
			RateValue: domain.Number(rec.get("rate_value")),
		}
		for col, v := range rec {
			if col == "rate_key" || col == "rate_value" || v == "" {
				continue
			}
			if entry.Dimensions == nil {
				entry.Dimensions = map[string]any{}
			}
			entry.Dimensions[col] = v
		}
		doc.Entries = append(doc.Entries, entry)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := eachRecord(f, sheets[sheetFactors], func(rec record) error {
		sortOrder, err := rec.int("sort_order")
		if err != nil {
			return err
		}
		doc.Factors = append(doc.Factors, domain.FactorDocument{
			FactorCode:  rec.get("factor_code"),
			FactorLabel: rec.get("factor_label"),
			OptionValue: rec.get("option_value"),
			OptionLabel: rec.get("option_label"),
			FactorValue: domain.Number(rec.get("factor_value")),
			ApplyMode:   strings.ToLower(rec.get("apply_mode")),
			SortOrder:   sortOrder,
		})
		return nil
	}); err != nil {
		return nil, err
	}

	if err := eachRecord(f, sheets[sheetRiders], func(rec record) error {
		sortOrder, err := rec.int("sort_order")
		if err != nil {
			return err
		}
		isDefault, err := rec.bool("is_default")
		if err != nil {
			return err
		}
		doc.Riders = append(doc.Riders, domain.RiderDocument{
			RiderCode:      rec.get("rider_code"),
			Label:          rec.get("label"),
			RiderValue:     domain.Number(rec.get("rider_value")),
			ApplyMode:      strings.ToLower(rec.get("apply_mode")),
			IsDefault:      isDefault,
			RateKeyPattern: rec.get("rate_key_pattern"),
			SortOrder:      sortOrder,
		})
		return nil
	}); err != nil {
		return nil, err
	}

	if err := eachRecord(f, sheets[sheetFees], func(rec record) error {
		sortOrder, err := rec.int("sort_order")
		if err != nil {
			return err
		}
		doc.Fees = append(doc.Fees, domain.FeeDocument{
			FeeCode:   rec.get("fee_code"),
			Label:     rec.get("label"),
			FeeType:   strings.ToLower(rec.get("fee_type")),
			ApplyMode: strings.ToLower(rec.get("apply_mode")),
			FeeValue:  domain.Number(rec.get("fee_value")),
			SortOrder: sortOrder,
		})
		return nil
	}); err != nil {
		return nil, err
	}

	if err := eachRecord(f, sheets[sheetModalFactors], func(rec record) error {
		doc.ModalFactors = append(doc.ModalFactors, domain.ModalFactorDocument{
			PaymentMode: strings.ToLower(rec.get("payment_mode")),
			Factor:      domain.Number(rec.get("factor")),
			FlatFee:     domain.Number(rec.get("flat_fee")),
		})
		return nil
	}); err != nil {
		return nil, err
	}

	return doc, nil
}

type record map[string]string

func (r record) get(col string) string { return r[col] }

func (r record) int(col string) (int, error) {
	v := r[col]
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrInvalidDocument, col, err)
	}
	return n, nil
}

func (r record) bool(col string) (bool, error) {
	v := r[col]
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", domain.ErrInvalidDocument, col, err)
	}
	return b, nil
}

// eachRecord walks the data rows of sheet keyed by its header row. A missing
// sheet yields no records.
func eachRecord(f *excelize.File, sheet string, fn func(record) error) error {
	if sheet == "" {
		return nil
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}
	for _, row := range rows[1:] {
		rec := make(record, len(header))
		empty := true
		for i, col := range header {
			if col == "" || i >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[i])
			if v != "" {
				empty = false
			}
			rec[col] = v
		}
		if empty {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}
