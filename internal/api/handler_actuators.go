package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hydrowangi-backend/internal/actuator"
)

// actuatorMessages are the user-facing texts per actuator.
var actuatorMessages = map[actuator.Name]struct{ done, failed, flag string }{
	actuator.Pesticide: {"Selesai disemprot ✅", "Error semprot pesticide ❌", "pesticideOn"},
	actuator.Nutrient:  {"Selesai Dinyalakan ✅", "Error pompa nutrisi ❌", "nutritionOn"},
}

// Activate returns a handler that runs the actuator's full ON -> OFF
// sequence and responds only once it is off again.
func (h *Handler) Activate(name actuator.Name) gin.HandlerFunc {
	msg := actuatorMessages[name]
	return func(c *gin.Context) {
		res, err := h.actuators.Activate(c.Request.Context(), name)
		h.metrics.Actuation(string(name), err == nil)
		switch {
		case errors.Is(err, actuator.ErrConflict):
			fail(c, http.StatusConflict, "Aktuator sedang berjalan")
			return
		case err != nil:
			log.Printf("Error activating %s: %v", name, err)
			fail(c, http.StatusInternalServerError, msg.failed)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"ok":       true,
			"message":  msg.done,
			"result":   res,
			"duration": res.Duration.Seconds(),
		})
	}
}

// ActuatorStatus returns a handler the device polls for the actuator state.
func (h *Handler) ActuatorStatus(name actuator.Name) gin.HandlerFunc {
	msg := actuatorMessages[name]
	return func(c *gin.Context) {
		st, err := h.actuators.Status(c.Request.Context(), name)
		if err != nil {
			log.Printf("Error fetching control: %v", err)
			fail(c, http.StatusInternalServerError, "Error fetching control")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"ok":        true,
			"on":        st.On,
			msg.flag:    st.On,
			"updatedAt": st.UpdatedAt,
		})
	}
}

type pumpDurationRequest struct {
	Type     string  `json:"type" binding:"required"`
	Duration float64 `json:"duration" binding:"required"`
}

// SetPumpDuration changes the ON duration, in seconds, of later activations.
func (h *Handler) SetPumpDuration(c *gin.Context) {
	var req pumpDurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	name, err := actuator.ParseName(req.Type)
	if err != nil {
		fail(c, http.StatusBadRequest, "Jenis pompa tidak valid")
		return
	}
	// Range-check in seconds; the conversion overflows for huge values.
	if req.Duration <= 0 {
		fail(c, http.StatusBadRequest, "Durasi harus lebih dari 0")
		return
	}
	if limit := actuator.MaxDuration.Seconds(); req.Duration > limit {
		fail(c, http.StatusBadRequest, fmt.Sprintf("Durasi maksimal %g detik", limit))
		return
	}
	if err := h.actuators.SetDuration(name, time.Duration(req.Duration*float64(time.Second))); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"type": name, "duration": req.Duration})
}
