package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hydrowangi-backend/internal/model"
	"hydrowangi-backend/internal/parse"
)

type plantRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	TDS         float64 `json:"tds" binding:"gte=0"`
	HarvestDays int     `json:"harvestDays" binding:"gte=0"`
	Image       string  `json:"image"`
}

func (r plantRequest) toModel() model.Plant {
	return model.Plant{
		Name:        r.Name,
		Description: r.Description,
		TDS:         r.TDS,
		HarvestDays: r.HarvestDays,
		Image:       r.Image,
	}
}

// GetPlants lists the catalog, newest first.
func (h *Handler) GetPlants(c *gin.Context) {
	plants, err := h.store.ListPlants(c.Request.Context())
	if err != nil {
		storeFail(c, err, "", "Failed to fetch plants")
		return
	}
	if plants == nil {
		plants = []model.Plant{}
	}
	c.JSON(http.StatusOK, plants)
}

func (h *Handler) GetPlant(c *gin.Context) {
	id, err := parse.ID(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid plant id")
		return
	}
	p, err := h.store.GetPlant(c.Request.Context(), id)
	if err != nil {
		storeFail(c, err, "Plant not found", "Failed to fetch plant")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) CreatePlant(c *gin.Context) {
	var req plantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	p := req.toModel()
	if err := h.store.CreatePlant(c.Request.Context(), &p); err != nil {
		storeFail(c, err, "", "Failed to create plant")
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) UpdatePlant(c *gin.Context) {
	id, err := parse.ID(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid plant id")
		return
	}
	var req plantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	p := req.toModel()
	p.ID = id
	if err := h.store.UpdatePlant(c.Request.Context(), &p); err != nil {
		storeFail(c, err, "Plant not found", "Failed to update plant")
		return
	}
	updated, err := h.store.GetPlant(c.Request.Context(), id)
	if err != nil {
		storeFail(c, err, "Plant not found", "Failed to fetch plant")
		return
	}
	c.JSON(http.StatusOK, updated)
}

type deletePlantRequest struct {
	Name string `json:"name" binding:"required"`
}

// DeletePlant removes a catalog entry by name.
func (h *Handler) DeletePlant(c *gin.Context) {
	var req deletePlantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.store.DeletePlantByName(c.Request.Context(), req.Name); err != nil {
		storeFail(c, err, "Plant not found", "Failed to delete plant")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Plant deleted successfully"})
}
