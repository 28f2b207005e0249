package ingestion

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	httperr "github.com/meterdash-lab/project-meterdash/internal/core/errors"
)

// RegisterRoutes registers the ingestion trigger routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/ingest/broadband", s.IngestBroadbandHandler)
	r.POST("/v1/ingest/downloads", s.IngestDownloadsHandler)
}

// IngestBroadbandHandler handles POST /v1/ingest/broadband.
// The "message" query flag additionally announces the sample to the chat
// channel, matching the feed's manual-trigger contract.
func (s *Service) IngestBroadbandHandler(c *gin.Context) {
	announce := c.Query("message") != ""

	snap, err := s.IngestBroadband(c.Request.Context(), announce)
	if err != nil {
		writeIngestError(c, err)
		return
	}

	if snap == nil {
		// Empty upstream payload: nothing written, nothing announced.
		c.JSON(http.StatusOK, gin.H{"status": "skipped"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"day":    snap.DayKey(),
		"usage":  snap.Display,
	})
}

// IngestDownloadsHandler handles POST /v1/ingest/downloads.
func (s *Service) IngestDownloadsHandler(c *gin.Context) {
	announce := c.Query("message") != ""

	snaps, err := s.IngestDownloads(c.Request.Context(), announce)
	if err != nil {
		writeIngestError(c, err)
		return
	}

	payload := make([]gin.H, 0, len(snaps))
	for _, snap := range snaps {
		payload = append(payload, gin.H{
			"series":    snap.Series,
			"day":       snap.DayKey(),
			"downloads": snap.Fields,
		})
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "packages": payload})
}

func writeIngestError(c *gin.Context, err error) {
	if errors.Is(err, ErrFeedUnavailable) {
		c.JSON(http.StatusBadGateway, httperr.ErrorResponse{
			ErrorType: httperr.HttpFeedUnavailableError,
			Message:   "Upstream feed unavailable",
			Details:   err.Error(),
		})
		return
	}

	slog.Error("Ingestion failed", "error", err)
	c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
		ErrorType: httperr.HttpInternalError,
		Message:   "Failed to ingest sample",
		Details:   err.Error(),
	})
}
