package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const statusAccepted = "accepted"

// SimDistanceRequest sets the simulated ultrasonic reading. Negative means no echo.
type SimDistanceRequest struct {
	DistanceCM *int `json:"distance_cm" binding:"required" example:"12"`
}

// SimClimateRequest sets the next simulated climate sample.
type SimClimateRequest struct {
	TemperatureC *float64 `json:"temperature_c" binding:"required" example:"26.5"`
	HumidityPct  *float64 `json:"humidity_pct" binding:"required" example:"55"`
}

// SimCardRequest presents a card to the simulated reader.
type SimCardRequest struct {
	UID string `json:"uid" binding:"required" example:"cf:db:c5:c4"`
}

// @Summary      Set simulated distance
// @Tags         simulation
// @Accept       json
// @Produce      json
// @Param        body  body   SimDistanceRequest  true  "Distance in cm"
// @Success      202   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /api/v1/sim/distance [post]
// @Security     BearerAuth
func (h *Handler) simDistance(c *gin.Context) {
	var req SimDistanceRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	h.services.Simulation.SetDistance(*req.DistanceCM)
	c.JSON(http.StatusAccepted, gin.H{"status": statusAccepted})
}

// @Summary      Set simulated climate
// @Tags         simulation
// @Accept       json
// @Produce      json
// @Param        body  body   SimClimateRequest  true  "Temperature and humidity"
// @Success      202   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /api/v1/sim/climate [post]
// @Security     BearerAuth
func (h *Handler) simClimate(c *gin.Context) {
	var req SimClimateRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	if err := h.services.Simulation.SetClimate(*req.TemperatureC, *req.HumidityPct); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": statusAccepted})
}

// @Summary      Present a simulated card
// @Tags         simulation
// @Accept       json
// @Produce      json
// @Param        body  body   SimCardRequest  true  "Card UID in hex"
// @Success      202   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /api/v1/sim/card [post]
// @Security     BearerAuth
func (h *Handler) simCard(c *gin.Context) {
	var req SimCardRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	if err := h.services.Simulation.PresentCard(req.UID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": statusAccepted})
}
