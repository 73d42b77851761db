package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/auth"
	"marketplace/internal/domain"
	"marketplace/internal/logger"
)

const gatewaySecret = "gateway-secret"

type wireMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type gatewayFixture struct {
	registry *Registry
	verifier *auth.Verifier
	server   *httptest.Server
	wsURL    string
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	registry := NewRegistry(logger.Discard())
	verifier := auth.NewVerifier(gatewaySecret)
	gw := NewGateway(registry, verifier, GatewayOptions{Buffer: 16}, logger.Discard())

	server := httptest.NewServer(gw)
	t.Cleanup(func() {
		registry.CloseAll()
		server.Close()
	})
	return &gatewayFixture{
		registry: registry,
		verifier: verifier,
		server:   server,
		wsURL:    "ws" + strings.TrimPrefix(server.URL, "http"),
	}
}

func (f *gatewayFixture) token(t *testing.T, principal string) string {
	t.Helper()
	token, err := f.verifier.Sign(auth.Principal{ID: principal, Role: auth.RoleClient}, time.Hour)
	require.NoError(t, err)
	return token
}

func (f *gatewayFixture) dial(t *testing.T, principal string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(f.wsURL+"?token="+f.token(t, principal), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wireMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func send(t *testing.T, conn *websocket.Conn, event, channel string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{
		"event": event,
		"data":  ChannelPayload{ChannelID: channel},
	}))
}

func TestGateway_ConnectedEvent(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t, "A")

	msg := read(t, conn)
	assert.Equal(t, domain.EventConnected, msg.Event)
	var payload ConnectedPayload
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	assert.Equal(t, "A", payload.PrincipalID)
}

func TestGateway_TokenSources(t *testing.T) {
	f := newGatewayFixture(t)
	token := f.token(t, "A")

	t.Run("subprotocol", func(t *testing.T) {
		dialer := websocket.Dialer{Subprotocols: []string{"bearer", token}}
		conn, resp, err := dialer.Dial(f.wsURL, nil)
		require.NoError(t, err)
		defer conn.Close()
		assert.Equal(t, "bearer", resp.Header.Get("Sec-WebSocket-Protocol"))
		assert.Equal(t, domain.EventConnected, read(t, conn).Event)
	})

	t.Run("authorization header", func(t *testing.T) {
		header := http.Header{"Authorization": []string{"Bearer " + token}}
		conn, _, err := websocket.DefaultDialer.Dial(f.wsURL, header)
		require.NoError(t, err)
		defer conn.Close()
		assert.Equal(t, domain.EventConnected, read(t, conn).Event)
	})

	t.Run("subprotocol wins over header", func(t *testing.T) {
		dialer := websocket.Dialer{Subprotocols: []string{"bearer", f.token(t, "B")}}
		header := http.Header{"Authorization": []string{"Bearer " + token}}
		conn, _, err := dialer.Dial(f.wsURL, header)
		require.NoError(t, err)
		defer conn.Close()

		var payload ConnectedPayload
		require.NoError(t, json.Unmarshal(read(t, conn).Data, &payload))
		assert.Equal(t, "B", payload.PrincipalID)
	})
}

func TestGateway_RejectsUnauthenticated(t *testing.T) {
	f := newGatewayFixture(t)

	for name, url := range map[string]string{
		"no token":      f.wsURL,
		"invalid token": f.wsURL + "?token=garbage",
	} {
		t.Run(name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(url, nil)
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
	assert.Empty(t, f.registry.Sessions())
}

func TestGateway_JoinForeignChannel(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t, "A")
	read(t, conn) // connected

	send(t, conn, EventJoinChannel, "B")

	msg := read(t, conn)
	assert.Equal(t, domain.EventError, msg.Event)

	sessions := f.registry.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, []string{"A"}, sessions[0].Channels)

	// the connection stays usable
	send(t, conn, EventJoinChannel, "A")
	assert.Equal(t, domain.EventJoined, read(t, conn).Event)
}

func TestGateway_LeaveAndPublish(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t, "A")
	read(t, conn)

	f.registry.Publish("A", domain.Message{Event: domain.EventCustom, Data: domain.CustomPayload{Message: "hi"}})
	msg := read(t, conn)
	assert.Equal(t, domain.EventCustom, msg.Event)

	send(t, conn, EventLeaveChannel, "A")
	left := read(t, conn)
	assert.Equal(t, domain.EventLeft, left.Event)
	var payload ChannelPayload
	require.NoError(t, json.Unmarshal(left.Data, &payload))
	assert.Equal(t, "A", payload.ChannelID)

	assert.Equal(t, 0, f.registry.Publish("A", domain.Message{Event: domain.EventCustom}))
}

func TestGateway_UnknownEvent(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t, "A")
	read(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"dance"}`)))
	assert.Equal(t, domain.EventError, read(t, conn).Event)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	assert.Equal(t, domain.EventError, read(t, conn).Event)
}

func TestGateway_DisconnectRemovesSession(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t, "A")
	read(t, conn)
	require.Len(t, f.registry.Sessions(), 1)

	require.NoError(t, conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	))
	_ = conn.Close()

	require.Eventually(t, func() bool {
		return len(f.registry.Sessions()) == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, f.registry.Publish("A", domain.Message{Event: domain.EventCustom}))
}
