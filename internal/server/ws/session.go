// Package ws serves live editing sessions over WebSocket.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/optionscalc/internal/book"
	"github.com/alanyoungcy/optionscalc/internal/codec"
	"github.com/alanyoungcy/optionscalc/internal/domain"
	"github.com/alanyoungcy/optionscalc/internal/service"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds one action frame; set-state carries a full book.
	maxMessageSize = 256 * 1024

	frameBuffer = 16
)

// StateResolver resolves entry parameters and fetches shared states.
type StateResolver interface {
	service.StateGetter
	Load(ctx context.Context, p service.LoadParams) (domain.State, service.Source)
}

// Config tunes the session handler.
type Config struct {
	AllowedOrigins []string
	PriceBuckets   int
	DateBuckets    int
	Now            func() time.Time
}

// SessionHandler upgrades connections and runs one service.Session each.
type SessionHandler struct {
	market   service.MarketLoader
	states   StateResolver
	cfg      Config
	upgrader websocket.Upgrader
	active   atomic.Int64
	logger   *slog.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(market service.MarketLoader, states StateResolver, cfg Config, logger *slog.Logger) *SessionHandler {
	h := &SessionHandler{market: market, states: states, cfg: cfg, logger: logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *SessionHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range h.cfg.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// Active returns the number of open sessions.
func (h *SessionHandler) Active() int64 {
	return h.active.Load()
}

// outMsg is the envelope of every server frame.
type outMsg struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// HandleWS upgrades the request and serves a session until either side
// closes. ?state= seeds the session from a token; ?code= from a shared
// state fetched in the background.
// GET /ws/session
func (h *SessionHandler) HandleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cfg := service.SessionConfig{
		Initial:      domain.DefaultState(),
		PriceBuckets: h.cfg.PriceBuckets,
		DateBuckets:  h.cfg.DateBuckets,
		Now:          h.cfg.Now,
	}
	if token := q.Get("state"); token != "" {
		if h.states != nil {
			cfg.Initial, _ = h.states.Load(r.Context(), service.LoadParams{Token: token})
		} else {
			cfg.Initial = codec.DecodeOrDefault(token, h.logger)
		}
	} else {
		cfg.Code = strings.TrimSpace(q.Get("code"))
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	n := h.active.Add(1)
	defer h.active.Add(-1)
	h.logger.Info("ws: session opened", slog.Int64("active", n))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	actions := make(chan book.Action)
	frames := make(chan service.Frame, frameBuffer)
	errs := make(chan string, frameBuffer)

	go h.readPump(ctx, cancel, conn, actions, errs)
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(ctx, cancel, conn, frames, errs)
	}()

	var states service.StateGetter
	if h.states != nil {
		states = h.states
	}
	sess := service.NewSession(h.market, states, cfg, h.logger.With(slog.String("component", "session")))
	if err := sess.Run(ctx, actions, frames); err != nil && ctx.Err() == nil {
		h.logger.Warn("ws: session ended", slog.String("error", err.Error()))
	}
	cancel()
	<-done
	h.logger.Info("ws: session closed", slog.Int64("active", h.active.Load()-1))
}

// readPump decodes action envelopes from the client. Malformed frames are
// reported back and skipped.
func (h *SessionHandler) readPump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, actions chan<- book.Action, errs chan<- string) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("ws: unexpected close error", slog.String("error", err.Error()))
			}
			return
		}

		action, err := book.DecodeAction(message)
		if err != nil {
			select {
			case errs <- err.Error():
			default:
			}
			continue
		}
		select {
		case actions <- action:
		case <-ctx.Done():
			return
		}
	}
}

// writePump sends frames, errors and keepalive pings. It owns every write
// on conn.
func (h *SessionHandler) writePump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, frames <-chan service.Frame, errs <-chan string) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	defer cancel()

	write := func(msg outMsg) bool {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(msg) == nil
	}

	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case f := <-frames:
			if !write(outMsg{Type: "snapshot", Payload: f}) {
				return
			}

		case e := <-errs:
			if !write(outMsg{Type: "error", Payload: map[string]string{"error": e}}) {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
