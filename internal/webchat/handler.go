package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wolfman30/urbanhaven-leadbot/internal/conversation"
	httpmiddleware "github.com/wolfman30/urbanhaven-leadbot/internal/http/middleware"
	"github.com/wolfman30/urbanhaven-leadbot/pkg/logging"
)

const (
	FrameMessage = "message"
	FrameReply   = "reply"
	FramePing    = "ping"
	FramePong    = "pong"
	FrameError   = "error"

	defaultIdleTimeout  = 2 * time.Minute
	defaultWriteTimeout = 10 * time.Second
	maxFrameBytes       = 64 * 1024
)

var errConnClosed = errors.New("webchat: connection closed")

// TurnHandler runs one chat turn. *conversation.Engine satisfies it.
type TurnHandler interface {
	HandleTurn(ctx context.Context, req conversation.TurnRequest) (*conversation.TurnResult, error)
}

// InboundFrame is what the browser sends.
type InboundFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message,omitempty"`
}

// OutboundFrame is what the server sends. Reply frames carry the same
// fields as the POST /chat response.
type OutboundFrame struct {
	Type  string `json:"type"`
	Error string `json:"error,omitempty"`
	*conversation.TurnResult
}

// Limiter spends one token per message frame. *middleware.RateLimiter
// satisfies it.
type Limiter interface {
	Allow(key string) (bool, time.Duration)
}

// Options tune connection handling. A nil Limiter leaves message frames
// unthrottled.
type Options struct {
	AllowedOrigins []string
	IdleTimeout    time.Duration
	WriteTimeout   time.Duration
	Limiter        Limiter
}

// Handler upgrades GET /chat/ws and runs chat turns over the socket.
type Handler struct {
	turns        TurnHandler
	limiter      Limiter
	logger       *logging.Logger
	upgrader     websocket.Upgrader
	idleTimeout  time.Duration
	writeTimeout time.Duration
	active       atomic.Int64
}

// NewHandler creates a websocket chat handler.
func NewHandler(turns TurnHandler, opts Options, logger *logging.Logger) *Handler {
	if turns == nil {
		panic("webchat: turn handler required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaultIdleTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	return &Handler{
		turns:   turns,
		limiter: opts.Limiter,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin(opts.AllowedOrigins),
		},
		idleTimeout:  opts.IdleTimeout,
		writeTimeout: opts.WriteTimeout,
	}
}

// ActiveConnections reports how many sockets are currently open.
func (h *Handler) ActiveConnections() int64 {
	return h.active.Load()
}

// ServeHTTP upgrades the request. An optional ?sessionId= resumes a session.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("webchat: upgrade failed", "error", err, "remote_ip", r.RemoteAddr)
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	out := newReplyWriter(conn, h.writeTimeout)
	h.active.Add(1)
	defer func() {
		h.active.Add(-1)
		_ = out.close(websocket.CloseNormalClosure, "")
	}()

	sessionID := strings.TrimSpace(r.URL.Query().Get("sessionId"))
	clientKey := httpmiddleware.ClientKey(r)
	h.logger.Info("webchat: connection opened", "remote_ip", r.RemoteAddr, "session_id", sessionID)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(h.idleTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("webchat: client closed connection", "session_id", sessionID)
			} else {
				h.logger.Debug("webchat: read ended", "session_id", sessionID, "error", err)
			}
			return
		}

		var in InboundFrame
		if err := json.Unmarshal(data, &in); err != nil {
			if sendErr := out.send(errorFrame("Invalid message frame")); sendErr != nil {
				return
			}
			continue
		}

		if in.Type == FrameMessage && h.limiter != nil {
			if ok, _ := h.limiter.Allow(clientKey); !ok {
				h.logger.Warn("webchat: rate limited", "remote_ip", clientKey, "session_id", sessionID)
				if sendErr := out.send(errorFrame("Too many requests")); sendErr != nil {
					return
				}
				continue
			}
		}

		reply, next := h.handleFrame(r.Context(), in, sessionID)
		sessionID = next
		if err := out.send(reply); err != nil {
			h.logger.Debug("webchat: write failed", "session_id", sessionID, "error", err)
			return
		}
	}
}

// handleFrame returns the frame to send back and the session id the
// connection continues with.
func (h *Handler) handleFrame(ctx context.Context, in InboundFrame, sessionID string) (OutboundFrame, string) {
	switch in.Type {
	case FramePing:
		return OutboundFrame{Type: FramePong}, sessionID
	case FrameMessage:
	default:
		return errorFrame("Unsupported frame type"), sessionID
	}

	if id := strings.TrimSpace(in.SessionID); id != "" {
		sessionID = id
	}
	result, err := h.turns.HandleTurn(ctx, conversation.TurnRequest{
		Message:   in.Message,
		SessionID: sessionID,
	})
	if err != nil {
		if errors.Is(err, conversation.ErrEmptyMessage) {
			return errorFrame("Message is required"), sessionID
		}
		h.logger.Error("webchat: turn failed", "session_id", sessionID, "error", err)
		return errorFrame("Internal server error"), sessionID
	}
	return OutboundFrame{Type: FrameReply, TurnResult: result}, result.SessionID
}

func errorFrame(msg string) OutboundFrame {
	return OutboundFrame{Type: FrameError, Error: msg}
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			a = strings.TrimRight(strings.TrimSpace(a), "/")
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}
