package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"hydrowangi-backend/internal/actuator"
	"hydrowangi-backend/internal/ingest"
	"hydrowangi-backend/internal/metrics"
	"hydrowangi-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	ingest    *ingest.Service
	actuators *actuator.Controller
	metrics   *metrics.Metrics
	webpush   *webpush.Options
	pageLimit int
	now       func() time.Time
}

// Deps are the collaborators of a Handler.
type Deps struct {
	Store     store.Store
	Ingest    *ingest.Service
	Actuators *actuator.Controller
	Metrics   *metrics.Metrics
	// WebPush is nil when push alerts are disabled.
	WebPush   *webpush.Options
	PageLimit int
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	limit := d.PageLimit
	if limit <= 0 {
		limit = 50
	}
	m := d.Metrics
	if m == nil {
		m = metrics.New()
	}
	return &Handler{
		store:     d.Store,
		ingest:    d.Ingest,
		actuators: d.Actuators,
		metrics:   m,
		webpush:   d.WebPush,
		pageLimit: limit,
		now:       time.Now,
	}
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"ok": false, "message": message})
}

// storeFail maps a store error onto the response: 404 for missing records,
// 500 for everything else.
func storeFail(c *gin.Context, err error, notFoundMsg, failMsg string) {
	if errors.Is(err, store.ErrNotFound) {
		fail(c, http.StatusNotFound, notFoundMsg)
		return
	}
	log.Printf("Error: %s: %v", failMsg, err)
	fail(c, http.StatusInternalServerError, failMsg)
}

// Health answers the root path.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Hydrowangi backend is running"})
}
