package handlers

import (
	"net/http"
	"strconv"
	"time"

	"diagnostic_assistant/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	feedWriteTimeout = 10 * time.Second
	feedIdleTimeout  = 60 * time.Second
	feedPingEvery    = feedIdleTimeout * 9 / 10
	feedMaxInbound   = 4 << 10

	statusEvery    = time.Second
	maxStatusEvery = 10 * time.Second
)

// Message types pushed on /ws.
const (
	wsTypeStatus  = "status"
	wsTypeSensors = "sensors"
	wsTypeEvent   = "event"
)

type feedMessage struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origins once the shop UI host is configurable
}

// liveFeed is one connected /ws client.
type liveFeed struct {
	conn *websocket.Conn
	log  *logger.Logger
}

// @Summary      Live session feed
// @Description  WebSocket. Pushes "status" every interval, "sensors" for each stream frame and "event" for each state change.
// @Tags         stream
// @Param        interval     query  string  false  "Status interval (Go duration, up to 10s)"  example(1s)
// @Param        interval_ms  query  int     false  "Status interval in milliseconds"
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	every := statusInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	feed := &liveFeed{conn: conn, log: logger.OrNop(h.log)}
	defer feed.conn.Close()

	closed := feed.watchInbound()

	events := h.services.SubscribeEvents()
	defer events.Close()
	frames := h.services.SubscribeSensors()
	defer frames.Close()

	status := time.NewTicker(every)
	defer status.Stop()
	keepalive := time.NewTicker(feedPingEvery)
	defer keepalive.Stop()

	err = feed.push(wsTypeStatus, h.services.Status())
	for err == nil {
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case <-keepalive.C:
			err = feed.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(feedWriteTimeout))
		case <-status.C:
			err = feed.push(wsTypeStatus, h.services.Status())
		case frame, ok := <-frames.C:
			if !ok {
				return
			}
			err = feed.push(wsTypeSensors, frame)
		case ev, ok := <-events.C:
			if !ok {
				feed.goingAway()
				return
			}
			err = feed.push(wsTypeEvent, ev)
		}
	}
	feed.log.Infow("ws_write_failed", "err", err)
}

// statusInterval picks the status period from ?interval (Go duration) or,
// failing that, ?interval_ms. Out-of-range values fall back to the default.
func statusInterval(c *gin.Context) time.Duration {
	if d, err := time.ParseDuration(c.Query("interval")); err == nil && d > 0 && d <= maxStatusEvery {
		return d
	}
	if ms, err := strconv.Atoi(c.Query("interval_ms")); err == nil {
		if d := time.Duration(ms) * time.Millisecond; d > 0 && d <= maxStatusEvery {
			return d
		}
	}
	return statusEvery
}

// watchInbound keeps reading so pongs and close frames are processed. The
// returned channel closes once the client goes away.
func (f *liveFeed) watchInbound() <-chan struct{} {
	f.conn.SetReadLimit(feedMaxInbound)
	_ = f.conn.SetReadDeadline(time.Now().Add(feedIdleTimeout))
	f.conn.SetPongHandler(func(string) error {
		return f.conn.SetReadDeadline(time.Now().Add(feedIdleTimeout))
	})

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := f.conn.NextReader(); err != nil {
				f.log.Debugw("ws_client_gone", "err", err)
				return
			}
		}
	}()
	return closed
}

func (f *liveFeed) push(typ string, data interface{}) error {
	_ = f.conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
	return f.conn.WriteJSON(feedMessage{Type: typ, Data: data})
}

// goingAway tells the client the session engine has shut down.
func (f *liveFeed) goingAway() {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed")
	_ = f.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(feedWriteTimeout))
}
