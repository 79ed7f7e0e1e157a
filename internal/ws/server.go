// Package ws serves the call platform's websocket and turns its frames into
// session notifications.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/voiceagent/internal/agent"
	"github.com/xiaot623/gogo/voiceagent/internal/config"
	"github.com/xiaot623/gogo/voiceagent/internal/domain"
	"github.com/xiaot623/gogo/voiceagent/internal/hub"
	"github.com/xiaot623/gogo/voiceagent/internal/protocol"
	"github.com/xiaot623/gogo/voiceagent/internal/session"
)

// Handler reacts to the notifications of a call session. Calls for one
// session never overlap.
type Handler interface {
	Handle(ctx context.Context, sess *session.Session, n domain.Notification)
}

// Server handles call websocket connections.
type Server struct {
	ctx      context.Context
	cfg      *config.Config
	hub      *hub.Hub
	handler  Handler
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a new websocket server. ctx bounds every call session
// started by the server.
func NewServer(ctx context.Context, cfg *config.Config, h *hub.Hub, handler Handler, logger *slog.Logger) *Server {
	return &Server{
		ctx:     ctx,
		cfg:     cfg,
		hub:     h,
		handler: handler,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			Subprotocols:    []string{protocol.Subprotocol},
			CheckOrigin: func(r *http.Request) bool {
				// The platform is not a browser.
				return true
			},
		},
	}
}

// HandleWebSocket handles the websocket upgrade and connection lifecycle.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("failed to upgrade websocket", "error", err)
		return err
	}
	if ws.Subprotocol() != protocol.Subprotocol {
		s.logger.Warn("client did not negotiate subprotocol", "requested", websocket.Subprotocols(c.Request()))
	}

	conn := s.hub.NewConnection(ws)
	s.hub.Register(conn)

	ws.SetReadLimit(s.cfg.MaxMessageSize)

	go s.writePump(conn)
	go s.readPump(conn, c.Request().URL.Path)

	return nil
}

// call is the per-connection state owned by readPump.
type call struct {
	conn *hub.Connection
	path string
	sess *session.Session
}

// readPump reads frames from the connection and delivers them, in order,
// to the handler.
func (s *Server) readPump(conn *hub.Connection, path string) {
	c := &call{conn: conn, path: path}
	defer func() {
		if c.sess != nil {
			c.sess.Close()
		}
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, data, err := conn.Conn.ReadMessage()
		if err != nil {
			s.deliver(c, closeNotification(err))
			return
		}
		s.handleMessage(c, data)
	}
}

// closeNotification maps a socket read error to the notification that ends
// the session.
func closeNotification(err error) domain.Notification {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return domain.Closed{Code: closeErr.Code, Reason: closeErr.Text}
	}
	return domain.Failed{Err: err}
}

// writePump writes queued frames to the connection.
func (s *Server) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Warn("failed to write message", "conn_id", conn.ID, "error", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage decodes one platform frame.
func (s *Server) handleMessage(c *call, data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Warn("invalid frame", "conn_id", c.conn.ID, "error", err)
		return
	}

	if msg.Type == protocol.TypeSessionNew {
		s.startSession(c, msg)
		return
	}
	if c.sess == nil {
		s.logger.Warn("frame before session:new", "conn_id", c.conn.ID, "type", msg.Type)
		return
	}

	switch msg.Type {
	case protocol.TypeVerbHook:
		s.deliver(c, hookNotification(msg))
	case protocol.TypeLLMEvent:
		s.deliver(c, domain.AgentEvent{Payload: msg.Data})
	case protocol.TypeLLMToolCall:
		var tc protocol.ToolCallData
		if err := json.Unmarshal(msg.Data, &tc); err != nil {
			c.sess.Logger.Warn("invalid tool call", "error", err)
			return
		}
		s.deliver(c, domain.ToolCallRequest{Invocation: domain.ToolInvocation{
			Name:       tc.Name,
			ToolCallID: tc.ToolCallID,
			Args:       tc.Args,
		}})
	case protocol.TypeError:
		var e protocol.ErrorData
		_ = json.Unmarshal(msg.Data, &e)
		s.deliver(c, domain.Failed{Err: fmt.Errorf("platform error: %s", e.Error)})
	case protocol.TypeCallStatus, protocol.TypeVerbStatus:
		c.sess.Logger.Debug("status", "type", msg.Type, "data", msg.Data)
	case protocol.TypeSessionReconnect, protocol.TypeSessionRedirect:
		c.sess.Logger.Info("session moved", "type", msg.Type)
	default:
		c.sess.Logger.Warn("unknown message type", "type", msg.Type)
	}
}

func (s *Server) startSession(c *call, msg protocol.Message) {
	var info protocol.CallInfo
	_ = json.Unmarshal(msg.Data, &info)
	callSID := msg.CallSID
	if callSID == "" {
		callSID = info.CallSID
	}

	if c.sess != nil {
		c.sess.Logger.Warn("duplicate session:new ignored", "msgid", msg.MsgID)
		return
	}

	c.sess = session.New(s.ctx, callSID, c.path, c.conn, s.logger)
	s.hub.BindCall(c.conn, callSID)
	s.deliver(c, domain.SessionNew{
		MsgID:   msg.MsgID,
		CallSID: callSID,
		Path:    c.path,
		Payload: msg.Data,
	})
}

func hookNotification(msg protocol.Message) domain.Notification {
	if msg.Hook != agent.HookFinal {
		return domain.UnknownHook{MsgID: msg.MsgID, Hook: msg.Hook, Payload: msg.Data}
	}
	var data protocol.CompletionData
	_ = json.Unmarshal(msg.Data, &data)
	evt := domain.CompletionEvent{Reason: data.CompletionReason}
	if data.Error != nil {
		evt.Error = &domain.CompletionError{Code: data.Error.Code, Message: data.Error.Message}
	}
	return domain.Final{MsgID: msg.MsgID, Completion: evt, Payload: msg.Data}
}

func (s *Server) deliver(c *call, n domain.Notification) {
	if c.sess == nil {
		return
	}
	// Records of a call must still be written while the server shuts down.
	s.handler.Handle(context.WithoutCancel(s.ctx), c.sess, n)
}
