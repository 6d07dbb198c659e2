package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/railzwaylabs/ratebook/internal/ratingrun/domain"
)

func (s *Service) Export(ctx context.Context, req domain.ExportRequest) (*domain.ExportResult, error) {
	if req.StartDate.IsZero() || req.EndDate.IsZero() || !req.EndDate.After(req.StartDate) {
		return nil, domain.ErrInvalidRange
	}

	runs, err := s.repo.ListRange(ctx, s.db, req)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch req.Format {
	case domain.ExportFormatCSV:
		data, err = formatCSV(runs)
	case domain.ExportFormatJSON:
		data, err = formatJSON(runs)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", req.Format)
	}
	if err != nil {
		return nil, err
	}

	return &domain.ExportResult{
		Data:     data,
		Checksum: calculateChecksum(data),
		Format:   req.Format,
		Count:    len(runs),
	}, nil
}

func formatCSV(runs []domain.RatingRun) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"created_at",
		"id",
		"scenario_id",
		"user_id",
		"product_type",
		"rate_table_version",
		"engine_version",
		"status",
		"duration_ms",
		"input_hash",
		"error_message",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, run := range runs {
		row := []string{
			run.CreatedAt.UTC().Format(time.RFC3339Nano),
			run.ID.String(),
			run.ScenarioID.String(),
			run.UserID,
			run.ProductType,
			formatIntPtr(run.RateTableVersion),
			run.EngineVersion,
			string(run.Status),
			strconv.FormatInt(run.DurationMs, 10),
			run.InputHash,
			formatStringPtr(run.ErrorMessage),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatJSON(runs []domain.RatingRun) ([]byte, error) {
	type exportRecord struct {
		CreatedAt        string          `json:"created_at"`
		ID               string          `json:"id"`
		ScenarioID       string          `json:"scenario_id"`
		UserID           string          `json:"user_id,omitempty"`
		ProductType      string          `json:"product_type"`
		RateTableVersion *int            `json:"rate_table_version,omitempty"`
		EngineVersion    string          `json:"engine_version"`
		Status           domain.Status   `json:"status"`
		DurationMs       int64           `json:"duration_ms"`
		InputHash        string          `json:"input_hash"`
		ErrorMessage     string          `json:"error_message,omitempty"`
		Output           json.RawMessage `json:"output,omitempty"`
	}

	records := make([]exportRecord, 0, len(runs))
	for _, run := range runs {
		rec := exportRecord{
			CreatedAt:        run.CreatedAt.UTC().Format(time.RFC3339Nano),
			ID:               run.ID.String(),
			ScenarioID:       run.ScenarioID.String(),
			UserID:           run.UserID,
			ProductType:      run.ProductType,
			RateTableVersion: run.RateTableVersion,
			EngineVersion:    run.EngineVersion,
			Status:           run.Status,
			DurationMs:       run.DurationMs,
			InputHash:        run.InputHash,
			ErrorMessage:     formatStringPtr(run.ErrorMessage),
		}
		if len(run.OutputSnapshot) > 0 {
			rec.Output = json.RawMessage(run.OutputSnapshot)
		}
		records = append(records, rec)
	}

	return json.MarshalIndent(records, "", "  ")
}

func formatIntPtr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatStringPtr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func calculateChecksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
