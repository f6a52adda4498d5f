package handlers

import (
	"errors"
	"net/http"

	"room_controller/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK       = "ok"
	statusApplied  = "applied"
	statusRejected = "rejected"

	errGetState        = "failed to load state"
	errExecute         = "failed to execute command"
	errBusy            = "controller busy, try again"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...any) {
	if h.log != nil && err != nil {
		fields := append([]any{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// CommandRequest is the payload of POST /api/v1/room/commands.
type CommandRequest struct {
	// One of light:on, light:off, fan_manual:on, fan_manual:off
	Command string `json:"command" binding:"required" example:"light:on"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Get room state
// @Description  Last published snapshot. Does not consume the system message.
// @Tags         room
// @Produce      json
// @Success      200  {object}  models.RoomState
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/room/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	st, err := h.services.Monitoring.GetState(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "room_get_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Send a manual command
// @Description  Turning the light or the manual fan on is rejected while the room is empty; the response still carries 200 with status "rejected".
// @Tags         room
// @Accept       json
// @Produce      json
// @Param        body  body   CommandRequest  true  "Command payload"
// @Success      200   {object}  map[string]interface{}  "status, notice, kind, state"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/room/commands [post]
// @Security     BearerAuth
func (h *Handler) postCommand(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	cmd, err := service.ParseCommand(req.Command)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.services.Controller.Execute(c.Request.Context(), cmd)
	if err != nil {
		h.commandError(c, cmd, err)
		return
	}

	status := statusApplied
	if res.Rejected {
		status = statusRejected
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"command": res.Command,
		"notice":  res.Notice,
		"kind":    res.Kind,
		"state":   res.State,
	})
}

func (h *Handler) commandError(c *gin.Context, cmd service.Command, err error) {
	if errors.Is(err, service.ErrControllerBusy) {
		h.logAndJSONError(c, http.StatusServiceUnavailable, errBusy, "room_command_busy", err, "command", cmd.String())
		return
	}
	h.logAndJSONError(c, http.StatusInternalServerError, errExecute, "room_command_failed", err, "command", cmd.String())
}
