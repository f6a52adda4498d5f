package handlers

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"room_controller/internal/models"
	"room_controller/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	panelTemplateName = "panel.html"
	panelRefreshSec   = 10
	apiPrefix         = "/api/"
	panelBusyPath     = "/?busy=1"
)

var panelTemplate = template.Must(template.New(panelTemplateName).Funcs(template.FuncMap{
	"onOff": func(on bool) string {
		if on {
			return "ON"
		}
		return "OFF"
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
<title>Room Control</title>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="{{.Refresh}}">
<style>
html{font-family:Helvetica,Arial,sans-serif;text-align:center}
body{background-color:#f4f4f4;max-width:600px;margin:0 auto}
h3{color:#555;border-top:2px solid #ccc;padding-top:15px;margin-top:20px}
.button{background-color:#4CAF50;border:none;color:white;padding:14px 30px;text-decoration:none;font-size:22px;margin:2px;border-radius:8px}
.off{background-color:#f44336}
p{font-size:18px}
.status{font-weight:bold}
.msg{color:blue;font-weight:bold;background-color:#e0e0ff;padding:10px;border-radius:5px}
</style>
</head>
<body>
<h1>Room Control</h1>
{{with .State.Message}}<p class="msg">{{.}}</p>{{end}}
{{if .Busy}}<p class="msg">Controller busy, showing the last known state.</p>{{end}}
<p><b>Temperature:</b> {{.State.TemperatureC}}&deg;C</p>
<p><b>Humidity:</b> {{printf "%.1f" .State.HumidityPct}}%</p>
<p><b>Room:</b> <span class="status">{{if .State.Occupied}}OCCUPIED{{else}}EMPTY{{end}}</span></p>
<p><b>Door:</b> <span class="status">{{.State.Door}}</span>{{with .State.DoorHolder}} ({{.}}){{end}}</p>
<h3>Light</h3>
<p>State: <span class="status">{{onOff .State.LightOn}}</span></p>
{{if .State.LightOn}}<a class="button off" href="/light/off">Turn off</a>{{else}}<a class="button" href="/light/on">Turn on</a>{{end}}
<h3>Fan (automatic)</h3>
<p>Turns on at: {{.State.FanOnThresholdC}}&deg;C</p>
<p>State: <span class="status">{{onOff .State.FanAutoOn}}</span></p>
<h3>Fan (manual)</h3>
<p>State: <span class="status">{{onOff .State.FanManualOn}}</span></p>
{{if .State.FanManualOn}}<a class="button off" href="/fan_manual/off">Turn off</a>{{else}}<a class="button" href="/fan_manual/on">Turn on</a>{{end}}
</body>
</html>
`))

type panelView struct {
	State   models.RoomState
	Busy    bool
	Refresh int
}

// panelPath is the link that applies cmd, e.g. /light/on.
func panelPath(cmd service.Command) string {
	return "/" + strings.Replace(cmd.String(), ":", "/", 1)
}

// panel renders the status page. Rendering consumes the system message, so
// each message is shown once.
func (h *Handler) panel(c *gin.Context) {
	ctx := c.Request.Context()
	view := panelView{Refresh: panelRefreshSec, Busy: c.Query("busy") == "1"}

	st, err := h.services.Controller.Status(ctx)
	if err != nil {
		if h.log != nil {
			h.log.Warnw("panel_status_failed", "err", err)
		}
		st, err = h.services.Monitoring.GetState(ctx)
		if err != nil {
			h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "panel_get_state_failed", err)
			return
		}
		st.Message = ""
		view.Busy = true
	}
	view.State = st
	c.HTML(http.StatusOK, panelTemplateName, view)
}

// panelCommand applies cmd and sends the browser back to the status page,
// where the resulting message is shown. A command the controller had no time
// for lands on panelBusyPath.
func (h *Handler) panelCommand(cmd service.Command) gin.HandlerFunc {
	return func(c *gin.Context) {
		target := "/"
		if _, err := h.services.Controller.Execute(c.Request.Context(), cmd); err != nil {
			if h.log != nil {
				h.log.Warnw("panel_command_failed", "command", cmd.String(), "err", err)
			}
			if errors.Is(err, service.ErrControllerBusy) {
				target = panelBusyPath
			}
		}
		c.Redirect(http.StatusFound, target)
	}
}

// notFound renders the status page for unknown browser paths and a JSON 404
// for the API.
func (h *Handler) notFound(c *gin.Context) {
	if c.Request.Method != http.MethodGet || strings.HasPrefix(c.Request.URL.Path, apiPrefix) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	h.panel(c)
}
