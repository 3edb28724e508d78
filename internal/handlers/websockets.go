package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

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
	maxIntervalMilli = 10_000 // 10s in ms
	replyBuffer      = 8
)

// Envelope used for WebSocket messages in both directions of the stream.
type wsEnvelope struct {
	Type  string      `json:"type"` // state | ack | error
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// wsCommand is a client message on the command channel.
type wsCommand struct {
	Action  string   `json:"action"` // start | pause | resume | stop | load | unload | set_temp | reset
	Program string   `json:"program,omitempty"`
	TargetC *float64 `json:"target_c,omitempty"`
	Segment *uint16  `json:"segment,omitempty"`
	Offset  string   `json:"offset,omitempty"`
}

var (
	errWSReadOnly      = errors.New("commands require a valid token")
	errWSUnknownAction = errors.New("unknown action")
)

// Upgrader for HTTP -> WebSocket. The furnace UI is served from other origins
// on the bench network.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// @Summary      State stream and command channel
// @Description  Streams {"type":"state"} envelopes every interval. With a valid token (?token= or Bearer header) the socket also accepts {"action":"start|pause|resume|stop|load|unload|set_temp|reset"} messages.
// @Tags         furnace
// @Param        interval     query  string  false  "Stream interval, e.g. 500ms (max 10s)"
// @Param        interval_ms  query  int     false  "Stream interval in milliseconds"
// @Param        token        query  string  false  "Bearer token enabling commands"
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	interval := h.parseInterval(c)

	canCommand, ok := h.wsAuthorize(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errBadToken})
		return
	}

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

	ctx := c.Request.Context()

	// Only this goroutine writes; the reader hands replies over.
	done := make(chan struct{})
	quit := make(chan struct{})
	defer close(quit)
	replies := make(chan wsEnvelope, replyBuffer)
	go h.startReader(ctx, conn, canCommand, replies, done, quit)

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	if err := h.sendState(ctx, conn); err != nil {
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
		case env := <-replies:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(env); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err)
				}
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case <-ticker.C:
			if err := h.sendState(ctx, conn); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err)
				}
				return
			}
		}
	}
}

// wsAuthorize reports whether the socket may send commands. A presented but
// invalid token fails the handshake; no token gives a read-only stream.
func (h *Handler) wsAuthorize(c *gin.Context) (canCommand, ok bool) {
	token := c.Query("token")
	if token == "" {
		if hdr := c.GetHeader("Authorization"); hdr != "" {
			var msg string
			if token, msg = bearerToken(hdr); msg != "" {
				return false, false
			}
		}
	}
	if token == "" {
		return false, true
	}
	if h.services.Authorization == nil {
		return false, false
	}
	if _, err := h.services.ParseToken(token); err != nil {
		return false, false
	}
	return true, true
}

// parseInterval reads ?interval=2s or ?interval_ms=2000 with bounds.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	interval := defaultInterval

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

	return interval
}

// startReader handles control frames, detects closure and turns text
// messages into controller commands.
func (h *Handler) startReader(ctx context.Context, conn *websocket.Conn, canCommand bool, replies chan<- wsEnvelope, done chan<- struct{}, quit <-chan struct{}) {
	defer close(done)
	for {
		typ, msg, err := conn.ReadMessage()
		if err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
		if typ != websocket.TextMessage {
			continue
		}

		reply := h.handleWSMessage(ctx, canCommand, msg)
		select {
		case replies <- reply:
		case <-quit:
			return
		}
	}
}

func (h *Handler) handleWSMessage(ctx context.Context, canCommand bool, msg []byte) wsEnvelope {
	var cmd wsCommand
	if err := json.Unmarshal(msg, &cmd); err != nil {
		return wsEnvelope{Type: "error", Error: "invalid command: " + err.Error()}
	}
	if !canCommand {
		return wsEnvelope{Type: "error", Error: errWSReadOnly.Error()}
	}
	if err := h.runWSCommand(ctx, cmd); err != nil {
		if h.log != nil {
			h.log.Infow("ws_command_failed", "action", cmd.Action, "err", err)
		}
		return wsEnvelope{Type: "error", Error: err.Error()}
	}
	return wsEnvelope{Type: "ack", Data: gin.H{"action": cmd.Action}}
}

// runWSCommand maps the UI's socket vocabulary onto controller calls.
func (h *Handler) runWSCommand(ctx context.Context, cmd wsCommand) error {
	f := h.services.Furnace
	switch cmd.Action {
	case "start":
		off, err := parseOffset(cmd.Offset)
		if err != nil {
			return err
		}
		if cmd.Segment != nil || off > 0 {
			var seg uint16
			if cmd.Segment != nil {
				seg = *cmd.Segment
			}
			return f.StartAt(ctx, seg, off)
		}
		return f.Start(ctx)
	case "pause":
		return f.Pause(ctx)
	case "resume":
		return f.Resume(ctx)
	case "stop":
		return f.Cancel(ctx)
	case "load":
		if cmd.Program == "" {
			return errors.New("load requires program")
		}
		return f.LoadProgram(ctx, cmd.Program)
	case "unload":
		return f.ClearProgram(ctx)
	case "set_temp":
		if cmd.TargetC == nil {
			return errors.New("set_temp requires target_c")
		}
		return f.SetManualTemp(ctx, *cmd.TargetC)
	case "reset":
		return f.Reset(ctx)
	}
	return fmt.Errorf("%w %q", errWSUnknownAction, cmd.Action)
}

// sendState fetches and writes the current state with a write deadline.
func (h *Handler) sendState(ctx context.Context, conn *websocket.Conn) error {
	st, err := h.services.Monitoring.GetState(ctx)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_get_state_failed", "err", err)
		}
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(wsEnvelope{Type: "state", Data: st})
}
