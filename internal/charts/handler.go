package charts

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	httperr "github.com/meterdash-lab/project-meterdash/internal/core/errors"
)

// RegisterRoutes registers the chart read and refresh routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/charts/broadband", s.BroadbandHandler)
	r.GET("/v1/charts/downloads", s.DownloadsHandler)

	r.POST("/v1/refresh/broadband", s.RefreshBroadbandHandler)
	r.POST("/v1/refresh/downloads", s.RefreshDownloadsHandler)
}

// BroadbandHandler handles GET /v1/charts/broadband.
// Query parameters: records (alias: limit), defaulting from config.
func (s *Service) BroadbandHandler(c *gin.Context) {
	records, ok := s.recordsParam(c)
	if !ok {
		return
	}

	charts, err := s.Broadband(c.Request.Context(), records)
	if err != nil {
		writeChartError(c, err)
		return
	}

	c.JSON(http.StatusOK, charts)
}

// DownloadsHandler handles GET /v1/charts/downloads.
func (s *Service) DownloadsHandler(c *gin.Context) {
	records, ok := s.recordsParam(c)
	if !ok {
		return
	}

	charts, err := s.Downloads(c.Request.Context(), records)
	if err != nil {
		writeChartError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"packages": charts})
}

// RefreshBroadbandHandler handles POST /v1/refresh/broadband.
func (s *Service) RefreshBroadbandHandler(c *gin.Context) {
	records, ok := s.recordsParam(c)
	if !ok {
		return
	}

	charts, err := s.RefreshBroadband(c.Request.Context(), records)
	if err != nil {
		writeChartError(c, err)
		return
	}

	c.JSON(http.StatusOK, charts)
}

// RefreshDownloadsHandler handles POST /v1/refresh/downloads.
func (s *Service) RefreshDownloadsHandler(c *gin.Context) {
	records, ok := s.recordsParam(c)
	if !ok {
		return
	}

	charts, err := s.RefreshDownloads(c.Request.Context(), records)
	if err != nil {
		writeChartError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"packages": charts})
}

// recordsParam resolves the display window size from the records or limit
// query parameter, falling back to the configured default. On an invalid
// value it writes a 400 response and reports !ok.
func (s *Service) recordsParam(c *gin.Context) (int, bool) {
	raw := c.Query("records")
	if raw == "" {
		raw = c.Query("limit")
	}
	if raw == "" {
		return s.cfg.DefaultRecords, true
	}

	records, err := strconv.Atoi(raw)
	if err != nil || records <= 0 {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid records parameter",
			Details:   fmt.Sprintf("records must be a positive integer, got %q", raw),
		})
		return 0, false
	}

	return records, true
}

func writeChartError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
		ErrorType: httperr.HttpInternalError,
		Message:   "Failed to load chart data",
		Details:   err.Error(),
	})
}
