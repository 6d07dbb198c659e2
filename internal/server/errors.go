package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	ratingdomain "github.com/railzwaylabs/ratebook/internal/rating/domain"
	ratetabledomain "github.com/railzwaylabs/ratebook/internal/ratetable/domain"
	"github.com/railzwaylabs/ratebook/internal/ratetable/importer"
	ratingrundomain "github.com/railzwaylabs/ratebook/internal/ratingrun/domain"
	"github.com/railzwaylabs/ratebook/internal/resolver"
	scenariodomain "github.com/railzwaylabs/ratebook/internal/scenario/domain"
)

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrNotFound       = errors.New("not_found")
	ErrInternal       = errors.New("internal_error")

	errDatabaseNotConfigured = errors.New("database not configured")
)

type ErrorBody struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	Message     string `json:"message"`
	Field       string `json:"field,omitempty"`
	RatingRunID string `json:"rating_run_id,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// validationError is a request error that points at one input field.
type validationError struct {
	field   string
	code    string
	message string
}

func (e *validationError) Error() string { return e.message }

func (e *validationError) Unwrap() error { return ErrInvalidRequest }

func newValidationError(field, code, message string) error {
	return &validationError{field: field, code: code, message: message}
}

func invalidRequestError() error {
	return ErrInvalidRequest
}

var badRequestErrors = []error{
	ErrInvalidRequest,
	ratingdomain.ErrInvalidAsOf,
	scenariodomain.ErrInvalidScenarioID,
	ratingrundomain.ErrInvalidRunID,
	ratingrundomain.ErrInvalidScenario,
	ratingrundomain.ErrInvalidRange,
	ratetabledomain.ErrInvalidID,
	ratetabledomain.ErrInvalidProductType,
	ratetabledomain.ErrInvalidDocument,
	importer.ErrUnsupportedFormat,
	resolver.ErrUnsupportedProductType,
}

var notFoundErrors = []error{
	ErrNotFound,
	scenariodomain.ErrScenarioNotFound,
	ratingrundomain.ErrRunNotFound,
	ratetabledomain.ErrRateTableNotFound,
	ratetabledomain.ErrNoActiveRateTable,
}

// AbortWithError writes the error envelope for err and stops the handler
// chain. Internal failures never leak their message to the caller.
func AbortWithError(c *gin.Context, err error) {
	status, body := errorResponse(err)
	body.RequestID = requestIDFrom(c)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: body})
}

func errorResponse(err error) (int, ErrorBody) {
	var ratingErr *ratingdomain.RatingError
	if errors.As(err, &ratingErr) {
		if ratingErr.Kind == ratingdomain.KindConfiguration {
			return http.StatusUnprocessableEntity, ErrorBody{
				Type:        "configuration_error",
				Code:        ratingErr.Code,
				Message:     ratingErr.Error(),
				RatingRunID: ratingErr.RunID,
			}
		}
		return http.StatusInternalServerError, ErrorBody{
			Type:        "internal_error",
			Code:        ErrInternal.Error(),
			Message:     "internal error",
			RatingRunID: ratingErr.RunID,
		}
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, ErrorBody{
			Type:    "invalid_request",
			Code:    "document_too_large",
			Message: "document exceeds the upload limit",
		}
	}

	var vErr *validationError
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, ErrorBody{
			Type:    "invalid_request",
			Code:    vErr.code,
			Message: vErr.message,
			Field:   vErr.field,
		}
	}

	if errors.Is(err, ratetabledomain.ErrVersionExists) {
		return http.StatusConflict, ErrorBody{
			Type:    "conflict",
			Code:    ratetabledomain.ErrVersionExists.Error(),
			Message: err.Error(),
		}
	}

	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest, ErrorBody{
				Type:    "invalid_request",
				Code:    target.Error(),
				Message: err.Error(),
			}
		}
	}
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return http.StatusNotFound, ErrorBody{
				Type:    "not_found",
				Code:    target.Error(),
				Message: err.Error(),
			}
		}
	}

	return http.StatusInternalServerError, ErrorBody{
		Type:    "internal_error",
		Code:    ErrInternal.Error(),
		Message: "internal error",
	}
}
