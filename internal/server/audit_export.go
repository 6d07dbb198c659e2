package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	ratingrundomain "github.com/railzwaylabs/ratebook/internal/ratingrun/domain"
)

const maxExportRange = 90 * 24 * time.Hour

// @Summary      Export Rating Runs
// @Description  CSV or JSON export of audited rating runs with a SHA-256 checksum header
// @Tags         rating
// @Produce      text/csv
// @Param        start_date    query  string  true   "First day, YYYY-MM-DD"
// @Param        end_date      query  string  true   "Last day, YYYY-MM-DD"
// @Param        format        query  string  false  "csv or json"
// @Param        product_type  query  string  false  "Product type"
// @Param        statuses      query  string  false  "Comma separated statuses"
// @Router       /rating-runs/export [get]
func (s *Server) ExportRatingRuns(c *gin.Context) {
	startDateStr := strings.TrimSpace(c.Query("start_date"))
	endDateStr := strings.TrimSpace(c.Query("end_date"))
	formatStr := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "csv")))
	statusesStr := strings.TrimSpace(c.Query("statuses"))

	if startDateStr == "" || endDateStr == "" {
		AbortWithError(c, newValidationError("query", "missing_params", "start_date and end_date are required"))
		return
	}

	startDate, err := time.Parse("2006-01-02", startDateStr)
	if err != nil {
		AbortWithError(c, newValidationError("start_date", "invalid_start_date", "start_date must be YYYY-MM-DD"))
		return
	}
	endDate, err := time.Parse("2006-01-02", endDateStr)
	if err != nil {
		AbortWithError(c, newValidationError("end_date", "invalid_end_date", "end_date must be YYYY-MM-DD"))
		return
	}

	// end_date is inclusive
	endDate = endDate.Add(24 * time.Hour)
	if !endDate.After(startDate) {
		AbortWithError(c, ratingrundomain.ErrInvalidRange)
		return
	}
	if endDate.Sub(startDate) > maxExportRange {
		AbortWithError(c, newValidationError("end_date", "range_too_large", "export range is limited to 90 days"))
		return
	}

	var format ratingrundomain.ExportFormat
	switch formatStr {
	case "csv":
		format = ratingrundomain.ExportFormatCSV
	case "json":
		format = ratingrundomain.ExportFormatJSON
	default:
		AbortWithError(c, newValidationError("format", "invalid_format", "format must be csv or json"))
		return
	}

	var statuses []ratingrundomain.Status
	if statusesStr != "" {
		for _, raw := range strings.Split(statusesStr, ",") {
			status := ratingrundomain.Status(strings.ToLower(strings.TrimSpace(raw)))
			switch status {
			case ratingrundomain.StatusSuccess, ratingrundomain.StatusIneligible, ratingrundomain.StatusError:
				statuses = append(statuses, status)
			case "":
			default:
				AbortWithError(c, newValidationError("statuses", "invalid_status", "unknown status "+string(status)))
				return
			}
		}
	}

	result, err := s.ratingRunSvc.Export(c.Request.Context(), ratingrundomain.ExportRequest{
		StartDate:   startDate,
		EndDate:     endDate,
		Format:      format,
		ProductType: strings.ToLower(strings.TrimSpace(c.Query("product_type"))),
		Statuses:    statuses,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("X-Rating-Export-Checksum", result.Checksum)
	c.Header("X-Rating-Export-Count", strconv.Itoa(result.Count))

	var contentType, filename string
	switch result.Format {
	case ratingrundomain.ExportFormatCSV:
		contentType = "text/csv"
		filename = "rating_runs_" + startDateStr + "_" + endDateStr + ".csv"
	case ratingrundomain.ExportFormatJSON:
		contentType = "application/json"
		filename = "rating_runs_" + startDateStr + "_" + endDateStr + ".json"
	}

	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Data(http.StatusOK, contentType, result.Data)
}
