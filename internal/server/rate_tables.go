package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	ratetabledomain "github.com/railzwaylabs/ratebook/internal/ratetable/domain"
	"github.com/railzwaylabs/ratebook/internal/ratetable/importer"
)

// maxDocumentBytes bounds the size of an uploaded rate table document.
const maxDocumentBytes = 32 << 20

// @Summary      List Rate Tables
// @Tags         rate-tables
// @Produce      json
// @Param        product_type  query  string  false  "Product type"
// @Param        carrier       query  string  false  "Carrier"
// @Param        active        query  bool    false  "Active"
// @Success      200  {object}  ListResponse
// @Router       /rate-tables [get]
func (s *Server) ListRateTables(c *gin.Context) {
	var query struct {
		ProductType string `form:"product_type"`
		Carrier     string `form:"carrier"`
		Active      string `form:"active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	active, err := parseOptionalBool(query.Active)
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	tables, err := s.rateTableSvc.List(c.Request.Context(), ratetabledomain.ListRequest{
		ProductType: strings.TrimSpace(query.ProductType),
		Carrier:     strings.TrimSpace(query.Carrier),
		Active:      active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, tables, len(tables))
}

// @Summary      Import Rate Table
// @Description  Publish a rate table document (JSON, YAML or XLSX) as a new version
// @Tags         rate-tables
// @Accept       json
// @Produce      json
// @Param        activate   query  bool    false  "Activate after publishing"
// @Param        supersede  query  bool    false  "Deactivate other live versions"
// @Param        format     query  string  false  "Document format, defaults to the Content-Type"
// @Success      201  {object}  DataResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /rate-tables [post]
func (s *Server) ImportRateTable(c *gin.Context) {
	activate, err := parseOptionalBool(c.Query("activate"))
	if err != nil {
		AbortWithError(c, newValidationError("activate", "invalid_activate", "invalid activate"))
		return
	}
	supersede, err := parseOptionalBool(c.Query("supersede"))
	if err != nil {
		AbortWithError(c, newValidationError("supersede", "invalid_supersede", "invalid supersede"))
		return
	}

	formatHint := c.Query("format")
	if formatHint == "" {
		formatHint = c.GetHeader("Content-Type")
	}
	format, err := importer.ParseFormat(formatHint)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxDocumentBytes)
	doc, err := importer.Decode(body, format)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	table, err := s.rateTableSvc.Publish(c.Request.Context(), doc, ratetabledomain.PublishOptions{
		Activate:  activate != nil && *activate,
		Supersede: supersede != nil && *supersede,
		Source:    "api",
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, table)
}

// @Summary      Activate Rate Table
// @Tags         rate-tables
// @Produce      json
// @Param        id         path   string  true   "Rate table ID"
// @Param        supersede  query  bool    false  "Deactivate other live versions"
// @Success      200  {object}  DataResponse
// @Router       /rate-tables/{id}/activate [post]
func (s *Server) ActivateRateTable(c *gin.Context) {
	supersede, err := parseOptionalBool(c.Query("supersede"))
	if err != nil {
		AbortWithError(c, newValidationError("supersede", "invalid_supersede", "invalid supersede"))
		return
	}

	table, err := s.rateTableSvc.Activate(c.Request.Context(), c.Param("id"), supersede != nil && *supersede)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, table)
}

// @Summary      Deactivate Rate Table
// @Tags         rate-tables
// @Produce      json
// @Param        id  path  string  true  "Rate table ID"
// @Success      200  {object}  DataResponse
// @Router       /rate-tables/{id}/deactivate [post]
func (s *Server) DeactivateRateTable(c *gin.Context) {
	table, err := s.rateTableSvc.Deactivate(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, table)
}

func parseOptionalBool(value string) (*bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
