package domain

import "errors"

var (
	ErrNoActiveRateTable  = errors.New("no_active_rate_table")
	ErrMissingRateEntry   = errors.New("missing_rate_entry")
	ErrRateTableNotFound  = errors.New("rate_table_not_found")
	ErrInvalidProductType = errors.New("invalid_product_type")
	ErrInvalidDocument    = errors.New("invalid_rate_table_document")
	ErrVersionExists      = errors.New("rate_table_version_exists")
	ErrInvalidID          = errors.New("invalid_id")
)
