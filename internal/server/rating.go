package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ratingdomain "github.com/railzwaylabs/ratebook/internal/rating/domain"
)

const (
	ratingRunIDHeader   = "X-Rating-Run-ID"
	ratingAuditedHeader = "X-Rating-Audited"
)

// @Summary      Rate Scenario
// @Description  Price a stored scenario against the active rate table
// @Tags         rating
// @Accept       json
// @Produce      json
// @Param        id       path    string  true   "Scenario ID"
// @Param        X-User-ID  header  string  false  "Requesting user"
// @Param        request  body    ratingdomain.RateRequest  false  "Selections"
// @Success      200  {object}  DataResponse
// @Failure      422  {object}  ErrorResponse
// @Router       /scenarios/{id}/rate [post]
func (s *Server) RateScenario(c *gin.Context) {
	var req ratingdomain.RateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, newValidationError("body", "invalid_rate_request", err.Error()))
		return
	}
	req.UserID = strings.TrimSpace(c.GetHeader(userIDHeader))

	outcome, err := s.ratingSvc.RateScenario(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		var ratingErr *ratingdomain.RatingError
		if errors.As(err, &ratingErr) && ratingErr.RunID != "" {
			c.Header(ratingRunIDHeader, ratingErr.RunID)
		}
		AbortWithError(c, err)
		return
	}

	if outcome.RunID != "" {
		c.Header(ratingRunIDHeader, outcome.RunID)
	}
	if outcome.Audited {
		c.Header(ratingAuditedHeader, "true")
	} else {
		c.Header(ratingAuditedHeader, "false")
	}
	respondData(c, outcome.Result)
}

// @Summary      Rating Options
// @Description  Factors, riders, fees and payment modes offered by a rate table
// @Tags         rating
// @Produce      json
// @Param        product_type  query  string  true   "Product type"
// @Param        version       query  int     false  "Rate table version"
// @Param        carrier       query  string  false  "Carrier"
// @Success      200  {object}  DataResponse
// @Router       /rating/options [get]
func (s *Server) GetRatingOptions(c *gin.Context) {
	var req ratingdomain.OptionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, newValidationError("query", "invalid_options_request", "product_type is required and version must be positive"))
		return
	}

	options, err := s.ratingSvc.GetOptions(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, options)
}

// @Summary      Scenario Rating History
// @Tags         rating
// @Produce      json
// @Param        id  path  string  true  "Scenario ID"
// @Success      200  {object}  ListResponse
// @Router       /scenarios/{id}/rating-runs [get]
func (s *Server) ListScenarioRatingRuns(c *gin.Context) {
	runs, err := s.ratingSvc.GetHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, runs, len(runs))
}

// @Summary      Get Rating Run
// @Tags         rating
// @Produce      json
// @Param        id  path  string  true  "Rating run ID"
// @Success      200  {object}  DataResponse
// @Router       /rating-runs/{id} [get]
func (s *Server) GetRatingRun(c *gin.Context) {
	run, err := s.ratingSvc.GetAudit(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, run)
}

// @Summary      Rating Worksheet
// @Description  PDF walk-through of an audited rating run
// @Tags         rating
// @Produce      application/pdf
// @Param        id  path  string  true  "Rating run ID"
// @Router       /rating-runs/{id}/worksheet [get]
func (s *Server) GetRatingWorksheet(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	pdf, err := s.ratingSvc.GetWorksheet(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", "inline; filename=\"rating_worksheet_"+id+".pdf\"")
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// @Summary      List Product Types
// @Tags         rating
// @Produce      json
// @Success      200  {object}  ListResponse
// @Router       /product-types [get]
func (s *Server) ListProductTypes(c *gin.Context) {
	registrations := s.ratingSvc.ListRegisteredProductTypes()
	respondList(c, registrations, len(registrations))
}
