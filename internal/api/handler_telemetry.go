package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"hydrowangi-backend/internal/ingest"
	"hydrowangi-backend/internal/model"
	"hydrowangi-backend/internal/parse"
	"hydrowangi-backend/internal/store"
)

const missingFields = "Missing required fields (ph, ppm, temp)"

// PostTelemetry ingests one device reading.
func (h *Handler) PostTelemetry(c *gin.Context) {
	var in ingest.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, missingFields)
		return
	}

	out, err := h.ingest.Ingest(c.Request.Context(), in)
	if errors.Is(err, ingest.ErrInvalidInput) {
		fail(c, http.StatusBadRequest, missingFields)
		return
	}
	if err != nil {
		log.Printf("Error ingesting telemetry: %v", err)
		fail(c, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	switch out.Action {
	case ingest.ActionSaved:
		c.JSON(http.StatusCreated, gin.H{
			"ok":     true,
			"id":     out.ID,
			"ts":     out.Live.TS,
			"action": out.Action,
			"danger": out.Danger,
			"alert":  out.Alert,
		})
	case ingest.ActionSkipped:
		c.JSON(http.StatusOK, gin.H{
			"ok":     true,
			"action": out.Action,
			"live":   out.Live,
			"danger": out.Danger,
			"alert":  out.Alert,
		})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"ok":      false,
			"message": "Failed to store telemetry",
			"action":  out.Action,
			"live":    out.Live,
		})
	}
}

// GetPPM tells the device the target concentration of the active cycle,
// zero when nothing is planted.
func (h *Handler) GetPPM(c *gin.Context) {
	cycle, err := h.store.ActivePlanted(c.Request.Context())
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "ppm": 0})
		return
	}
	if err != nil {
		storeFail(c, err, "", "Error fetching ppm")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "ppm": cycle.Plant.TDS})
}

// GetLatestTelemetry prefers the live snapshot and falls back to the most
// recent stored reading.
func (h *Handler) GetLatestTelemetry(c *gin.Context) {
	if live, ok := h.ingest.Live(); ok {
		c.JSON(http.StatusOK, gin.H{"ok": true, "source": "live", "data": live})
		return
	}
	latest, err := h.store.LatestTelemetry(c.Request.Context())
	if err != nil {
		storeFail(c, err, "No telemetry found", "Internal Server Error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "source": "stored", "data": latest})
}

// ListTelemetries returns one page of stored readings, newest first.
func (h *Handler) ListTelemetries(c *gin.Context) {
	page, err := parse.Pagination(c.Query("page"), c.Query("limit"), h.pageLimit)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	rows, total, err := h.store.ListTelemetry(c.Request.Context(), page.Offset(), page.Limit)
	if err != nil {
		storeFail(c, err, "", "Internal Server Error")
		return
	}
	if rows == nil {
		rows = []model.Telemetry{}
	}

	totalPages := parse.TotalPages(total, page.Limit)
	c.JSON(http.StatusOK, gin.H{
		"ok":   true,
		"data": rows,
		"pagination": gin.H{
			"currentPage": page.Page,
			"totalPages":  totalPages,
			"totalCount":  total,
			"hasNext":     int64(page.Page) < totalPages,
			"hasPrev":     page.Page > 1,
		},
	})
}

// DownloadTelemetries returns every stored reading, newest first.
func (h *Handler) DownloadTelemetries(c *gin.Context) {
	rows, err := h.store.AllTelemetry(c.Request.Context())
	if err != nil {
		storeFail(c, err, "", "Internal Server Error")
		return
	}
	if rows == nil {
		rows = []model.Telemetry{}
	}
	log.Printf("Downloading %d telemetry records", len(rows))
	c.JSON(http.StatusOK, gin.H{"ok": true, "count": len(rows), "data": rows})
}

// DeleteTelemetries clears the stored readings, typically after a cycle.
func (h *Handler) DeleteTelemetries(c *gin.Context) {
	n, err := h.store.DeleteAllTelemetry(c.Request.Context())
	if err != nil {
		storeFail(c, err, "", "Failed to delete telemetry data")
		return
	}
	log.Printf("Deleted %d telemetry records", n)
	c.JSON(http.StatusOK, gin.H{
		"ok":           true,
		"message":      "Successfully deleted all telemetry data",
		"deletedCount": n,
		"timestamp":    h.now(),
	})
}
