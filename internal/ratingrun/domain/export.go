package domain

import (
	"time"
)

// ExportFormat represents the output format for rating run exports.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatJSON ExportFormat = "json"
)

// ExportRequest selects runs created in [StartDate, EndDate).
type ExportRequest struct {
	StartDate   time.Time
	EndDate     time.Time
	Format      ExportFormat
	ProductType string
	Statuses    []Status
}

// ExportResult contains the exported data and metadata.
type ExportResult struct {
	Data     []byte
	Checksum string
	Format   ExportFormat
	Count    int
}
