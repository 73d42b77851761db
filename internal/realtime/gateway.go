package realtime

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"marketplace/internal/auth"
	"marketplace/internal/domain"
	"marketplace/internal/logger"
)

const (
	// bearerProtocol is offered by browsers as
	// Sec-WebSocket-Protocol: bearer, <token>
	bearerProtocol = "bearer"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

type GatewayOptions struct {
	// Buffer is the per-session outbox size.
	Buffer int
	// Origins allowed to connect; empty or "*" allows any.
	Origins []string
}

// Gateway upgrades authenticated HTTP requests to WebSocket sessions.
type Gateway struct {
	registry *Registry
	verifier *auth.Verifier
	upgrader websocket.Upgrader
	buffer   int
	log      *logrus.Entry
}

func NewGateway(registry *Registry, verifier *auth.Verifier, opts GatewayOptions, log logrus.FieldLogger) *Gateway {
	g := &Gateway{
		registry: registry,
		verifier: verifier,
		buffer:   opts.Buffer,
		log:      logger.Component(log, "gateway"),
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		Subprotocols:    []string{bearerProtocol},
		CheckOrigin:     originChecker(opts.Origins),
	}
	return g
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal, err := g.verifier.Verify(bearerToken(r))
	if err != nil {
		g.log.WithError(err).WithField("remote", r.RemoteAddr).Info("connection rejected")
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		g.log.WithError(err).Warn("upgrade failed")
		return
	}

	s := NewSession(principal, g.buffer)
	s.enqueue(domain.Message{
		Event: domain.EventConnected,
		Data:  ConnectedPayload{PrincipalID: principal.ID, Message: "connected to notifications"},
	})
	g.registry.Register(s)

	go g.writePump(conn, s)
	g.readPump(conn, s)
}

// bearerToken looks in the subprotocol list, then the token query parameter,
// then the Authorization header.
func bearerToken(r *http.Request) string {
	protocols := websocket.Subprotocols(r)
	if len(protocols) >= 2 && strings.EqualFold(protocols[0], bearerProtocol) {
		return auth.StripBearer(protocols[1])
	}
	if t := r.URL.Query().Get("token"); t != "" {
		return auth.StripBearer(t)
	}
	return auth.StripBearer(r.Header.Get("Authorization"))
}

func (g *Gateway) readPump(conn *websocket.Conn, s *Session) {
	defer g.registry.Deregister(s)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.log.WithError(err).WithField("session_id", s.id).Warn("connection closed unexpectedly")
			}
			return
		}
		g.handle(s, data)
	}
}

func (g *Gateway) handle(s *Session, data []byte) {
	var in inbound
	if err := json.Unmarshal(data, &in); err != nil {
		g.reply(s, domain.EventError, ErrorPayload{Message: "malformed message"})
		return
	}

	switch in.Event {
	case EventJoinChannel, EventLeaveChannel:
		var req ChannelPayload
		if err := json.Unmarshal(in.Data, &req); err != nil || req.ChannelID == "" {
			g.reply(s, domain.EventError, ErrorPayload{Message: "channelId is required"})
			return
		}
		if in.Event == EventLeaveChannel {
			g.registry.Leave(s, req.ChannelID)
			g.reply(s, domain.EventLeft, req)
			return
		}
		if err := g.registry.Join(s, req.ChannelID); err != nil {
			var derr *domain.Error
			msg := err.Error()
			if errors.As(err, &derr) {
				msg = derr.Message
			}
			g.reply(s, domain.EventError, ErrorPayload{Message: msg})
			return
		}
		g.reply(s, domain.EventJoined, req)
	default:
		g.reply(s, domain.EventError, ErrorPayload{Message: "unknown event " + in.Event})
	}
}

func (g *Gateway) reply(s *Session, event string, data any) {
	if !s.enqueue(domain.Message{Event: event, Data: data}) {
		g.log.WithFields(logrus.Fields{"session_id": s.id, "event": event}).Warn("reply dropped")
	}
}

// writePump is the only goroutine writing to conn.
func (g *Gateway) writePump(conn *websocket.Conn, s *Session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case <-s.done:
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait),
			)
			return
		case msg := <-s.outbox:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				g.log.WithError(err).WithField("session_id", s.id).Debug("write failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func originChecker(origins []string) func(*http.Request) bool {
	if len(origins) == 0 || slices.Contains(origins, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return slices.Contains(origins, u.Scheme+"://"+u.Host)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": err})
}
