package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"room_controller/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12 // 4 KB
	defaultInterval  = 1 * time.Second
	maxInterval      = 10 * time.Second
	maxIntervalMilli = 10_000
	// snapshots are sent on change, but at least this often
	keepAliveSnapshots = 10
)

// wsEnvelope is the frame written to stream clients.
type wsEnvelope struct {
	Type  string            `json:"type"`
	Data  *models.RoomState `json:"data,omitempty"`
	Error string            `json:"error,omitempty"`
}

// The stream is read-only and served on the panel's own origin or to local tools.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// stateStream writes room snapshots to one websocket client.
type stateStream struct {
	h       *Handler
	conn    *websocket.Conn
	last    models.RoomState
	skipped int
}

// @Summary      Room state stream
// @Description  WebSocket. Sends {"type":"state","data":RoomState} on connect and whenever the room changes. Poll rate via ?interval=500ms or ?interval_ms=500.
// @Tags         room
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	interval := h.parseInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go h.startReader(conn, done)

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	ctx := c.Request.Context()
	stream := &stateStream{h: h, conn: conn}
	if err := stream.send(ctx, true); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "err", err)
		}
		return
	}

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case <-ticker.C:
			if err := stream.send(ctx, false); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err)
				}
				return
			}
		}
	}
}

// parseInterval reads ?interval=2s or ?interval_ms=2000 with bounds.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}
	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && v <= maxIntervalMilli {
			return time.Duration(v) * time.Millisecond
		}
	}
	return defaultInterval
}

// startReader drains incoming messages to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
	}
}

// send writes the current snapshot unless it matches the last one sent.
// The system message is never consumed here.
func (s *stateStream) send(ctx context.Context, force bool) error {
	st, err := s.h.services.Monitoring.GetState(ctx)
	if err != nil {
		if s.h.log != nil {
			s.h.log.Errorw("ws_get_state_failed", "err", err)
		}
		return err
	}
	if !force && sameRoom(st, s.last) && s.skipped < keepAliveSnapshots {
		s.skipped++
		return nil
	}
	s.last, s.skipped = st, 0
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(wsEnvelope{Type: "state", Data: &st})
}

// sameRoom compares snapshots ignoring the publish time.
func sameRoom(a, b models.RoomState) bool {
	a.UpdatedAt, b.UpdatedAt = time.Time{}, time.Time{}
	return a == b
}
