package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hydrowangi-backend/internal/model"
	"hydrowangi-backend/internal/parse"
	"hydrowangi-backend/internal/store"
)

type plantedRequest struct {
	// Slot defaults to 1 when omitted.
	Slot int `json:"slot"`
	// PlantID copies a catalog entry; otherwise Plant supplies the data.
	PlantID int64         `json:"plantId"`
	Plant   *plantRequest `json:"plant"`
}

// CreatePlanted starts a cycle in a free slot. The harvest time is
// computed here from the plant's harvest days.
func (h *Handler) CreatePlanted(c *gin.Context) {
	var req plantedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	ctx := c.Request.Context()

	var info model.PlantInfo
	switch {
	case req.PlantID > 0:
		p, err := h.store.GetPlant(ctx, req.PlantID)
		if err != nil {
			storeFail(c, err, "Plant not found", "Failed to fetch plant")
			return
		}
		info = p.Info()
	case req.Plant != nil && req.Plant.Name != "":
		p := req.Plant.toModel()
		info = p.Info()
	default:
		fail(c, http.StatusBadRequest, "plant or plantId is required")
		return
	}

	slot := req.Slot
	if slot == 0 {
		slot = 1
	}
	now := h.now()
	cycle := model.Planted{
		Slot:      slot,
		Plant:     info,
		PlantedAt: now,
		HarvestAt: now.Add(time.Duration(info.HarvestDays) * 24 * time.Hour),
	}

	err := h.store.CreatePlanted(ctx, &cycle)
	switch {
	case errors.Is(err, store.ErrInvalidSlot):
		fail(c, http.StatusBadRequest, "Slot harus 1 atau 2")
		return
	case errors.Is(err, store.ErrSlotOccupied):
		fail(c, http.StatusBadRequest, "Slot sudah terisi, panen dulu ya!")
		return
	case err != nil:
		storeFail(c, err, "", "Failed to create planted")
		return
	}
	c.JSON(http.StatusCreated, cycle)
}

// GetPlanted lists the active cycles ordered by slot.
func (h *Handler) GetPlanted(c *gin.Context) {
	cycles, err := h.store.ListPlanted(c.Request.Context())
	if err != nil {
		storeFail(c, err, "", "Failed to fetch planted")
		return
	}
	if len(cycles) == 0 {
		fail(c, http.StatusNotFound, "No planted cycle found")
		return
	}
	c.JSON(http.StatusOK, cycles)
}

func (h *Handler) GetPlantedByID(c *gin.Context) {
	id, err := parse.ID(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid planted id")
		return
	}
	cycle, err := h.store.GetPlanted(c.Request.Context(), id)
	if err != nil {
		storeFail(c, err, "Planted not found", "Failed to fetch planted by ID")
		return
	}
	c.JSON(http.StatusOK, cycle)
}

func (h *Handler) GetPlantedBySlot(c *gin.Context) {
	slot, err := parse.Slot(c.Param("slot"), model.MaxSlots)
	if err != nil {
		fail(c, http.StatusBadRequest, "Slot harus 1 atau 2")
		return
	}
	cycle, err := h.store.GetPlantedBySlot(c.Request.Context(), slot)
	if err != nil {
		storeFail(c, err, "Planted not found", "Failed to fetch planted")
		return
	}
	c.JSON(http.StatusOK, cycle)
}

type updatePlantedRequest struct {
	HarvestTime *time.Time `json:"harvestTime" binding:"required"`
}

// UpdatePlanted edits the harvest time of a cycle.
func (h *Handler) UpdatePlanted(c *gin.Context) {
	id, err := parse.ID(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid planted id")
		return
	}
	var req updatePlantedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	cycle, err := h.store.UpdateHarvestTime(c.Request.Context(), id, *req.HarvestTime)
	if err != nil {
		storeFail(c, err, "Planted not found", "Failed to update planted")
		return
	}
	c.JSON(http.StatusOK, cycle)
}

func (h *Handler) DeletePlanted(c *gin.Context) {
	id, err := parse.ID(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid planted id")
		return
	}
	if err := h.store.DeletePlanted(c.Request.Context(), id); err != nil {
		storeFail(c, err, "Planted not found", "Failed to delete planted")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Planted deleted successfully"})
}

// Harvest removes a ready cycle. With a slot it harvests that slot; the
// bare /harvest route harvests the lowest ready slot.
func (h *Handler) Harvest(c *gin.Context) {
	ctx := c.Request.Context()
	now := h.now()

	var cycle *model.Planted
	if raw := c.Param("slot"); raw != "" {
		slot, err := parse.Slot(raw, model.MaxSlots)
		if err != nil {
			fail(c, http.StatusBadRequest, "Slot harus 1 atau 2")
			return
		}
		cycle, err = h.store.GetPlantedBySlot(ctx, slot)
		if err != nil {
			storeFail(c, err, "Tidak ada tanaman yang ditanam", "Server error")
			return
		}
	} else {
		cycles, err := h.store.ListPlanted(ctx)
		if err != nil {
			storeFail(c, err, "Tidak ada tanaman yang ditanam", "Server error")
			return
		}
		if len(cycles) == 0 {
			fail(c, http.StatusNotFound, "Tidak ada tanaman yang ditanam")
			return
		}
		// Cycles come ordered by slot; fall back to the one closest to ready.
		cycle = &cycles[0]
		for i := range cycles {
			if cycles[i].StatusAt(now) == model.CycleReady {
				cycle = &cycles[i]
				break
			}
			if cycles[i].Remaining(now) < cycle.Remaining(now) {
				cycle = &cycles[i]
			}
		}
	}

	if cycle.StatusAt(now) != model.CycleReady {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"ok":        false,
			"message":   "Belum waktunya panen",
			"remaining": cycle.Remaining(now).Milliseconds(),
		})
		return
	}

	if err := h.store.DeletePlanted(ctx, cycle.ID); err != nil {
		storeFail(c, err, "Tidak ada tanaman yang ditanam", "Server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":             true,
		"message":        "Panen berhasil!",
		"harvestedPlant": cycle.Plant,
		"slot":           cycle.Slot,
	})
}
