package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaconchat/beacon/internal/hub"
	"github.com/beaconchat/beacon/internal/protocol"
	"github.com/beaconchat/beacon/internal/telemetry"
)

func newTestServer(t *testing.T) (*httptest.Server, *Gateway) {
	t.Helper()

	SetConfig(&Config{AllowedOrigins: []string{"*"}})
	t.Cleanup(func() { SetConfig(nil) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dispatch := hub.NewDispatcher(logger)
	coord := hub.NewCoordinator(logger, hub.NewRegistry(), hub.NewRoomDirectory(), dispatch,
		telemetry.StaticSampler{CPU: 1}, hub.DefaultOptions())
	gateway := NewGateway(coord, dispatch, logger)

	ts := httptest.NewServer(SetupRoutes(gateway))
	t.Cleanup(ts.Close)
	return ts, gateway
}

func dialChat(t *testing.T, ts *httptest.Server, user string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + HubPath
	if user != "" {
		url += "?user=" + user
	}

	header := http.Header{"Origin": []string{"http://localhost:8080"}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	env, err := protocol.Decode(frame)
	require.NoError(t, err)
	return env
}

func writeEnvelope(t *testing.T, conn *websocket.Conn, typ protocol.Type, payload any) {
	t.Helper()

	frame, err := protocol.Encode(typ, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

func TestConnectReceivesWelcome(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dialChat(t, ts, "alice")

	env := readEnvelope(t, conn)
	require.Equal(t, protocol.TypeReceiveNotification, env.Type)

	var note protocol.SystemNotification
	require.NoError(t, protocol.DecodePayload(env, &note))
	assert.Equal(t, protocol.NotificationSuccess, note.Type)
	assert.Contains(t, note.Content, "alice")
}

func TestPresenceAndBroadcastOverWire(t *testing.T) {
	ts, _ := newTestServer(t)

	alice := dialChat(t, ts, "alice")
	readEnvelope(t, alice) // welcome

	bob := dialChat(t, ts, "bob")
	readEnvelope(t, bob) // welcome

	env := readEnvelope(t, alice)
	require.Equal(t, protocol.TypeUserJoined, env.Type)
	var status protocol.ConnectionStatus
	require.NoError(t, protocol.DecodePayload(env, &status))
	assert.Equal(t, "bob", status.UserName)

	writeEnvelope(t, bob, protocol.TypeSendMessage, protocol.SendMessagePayload{User: "bob", Message: "hello"})

	for _, conn := range []*websocket.Conn{alice, bob} {
		env := readEnvelope(t, conn)
		require.Equal(t, protocol.TypeReceiveMessage, env.Type)
		var msg protocol.ChatMessage
		require.NoError(t, protocol.DecodePayload(env, &msg))
		assert.Equal(t, "hello", msg.Message)
	}
}

func TestGetRoomsOverWire(t *testing.T) {
	ts, _ := newTestServer(t)

	conn := dialChat(t, ts, "alice")
	readEnvelope(t, conn) // welcome

	writeEnvelope(t, conn, protocol.TypeGetRooms, nil)

	env := readEnvelope(t, conn)
	require.Equal(t, protocol.TypeRooms, env.Type)

	var payload protocol.RoomsPayload
	require.NoError(t, protocol.DecodePayload(env, &payload))
	require.Len(t, payload.Rooms, len(hub.DefaultRooms))
	for _, info := range payload.Rooms {
		assert.Contains(t, hub.DefaultRooms, info.RoomName)
	}
}

func TestDisconnectNotifiesPeersOverWire(t *testing.T) {
	ts, _ := newTestServer(t)

	alice := dialChat(t, ts, "alice")
	readEnvelope(t, alice) // welcome

	bob := dialChat(t, ts, "bob")
	readEnvelope(t, bob)   // welcome
	readEnvelope(t, alice) // bob joined

	require.NoError(t, bob.Close())

	env := readEnvelope(t, alice)
	require.Equal(t, protocol.TypeUserLeft, env.Type)
	var status protocol.ConnectionStatus
	require.NoError(t, protocol.DecodePayload(env, &status))
	assert.Equal(t, "bob", status.UserName)
	assert.False(t, status.IsConnected)
}

func TestInstantCloseLeavesNoGhostUsers(t *testing.T) {
	ts, gateway := newTestServer(t)

	// Close each connection as soon as the dial returns, without reading a
	// single frame. Every registration must still be torn down.
	for i := 0; i < 25; i++ {
		conn := dialChat(t, ts, fmt.Sprintf("user%d", i))
		require.NoError(t, conn.Close())
	}

	require.Eventually(t, func() bool {
		return len(gateway.coord.OnlineUsers()) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestImmediateInvocationSeesRegisteredCaller(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dialChat(t, ts, "carol")

	// Invoke before reading anything: registration completes before the
	// read pump starts, so the reply must already include the caller and
	// the welcome must still arrive first.
	writeEnvelope(t, conn, protocol.TypeGetOnlineUsers, nil)

	env := readEnvelope(t, conn)
	require.Equal(t, protocol.TypeReceiveNotification, env.Type)

	env = readEnvelope(t, conn)
	require.Equal(t, protocol.TypeOnlineUsers, env.Type)
	var payload protocol.OnlineUsersPayload
	require.NoError(t, protocol.DecodePayload(env, &payload))
	require.Len(t, payload.Users, 1)
	assert.Equal(t, "carol", payload.Users[0].UserName)
}

func TestUpgradeRejectsDisallowedOrigin(t *testing.T) {
	SetConfig(&Config{AllowedOrigins: []string{"http://trusted.example.com"}})
	t.Cleanup(func() { SetConfig(nil) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dispatch := hub.NewDispatcher(logger)
	coord := hub.NewCoordinator(logger, hub.NewRegistry(), hub.NewRoomDirectory(), dispatch,
		telemetry.StaticSampler{}, hub.DefaultOptions())
	ts := httptest.NewServer(SetupRoutes(NewGateway(coord, dispatch, logger)))
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + HubPath
	header := http.Header{"Origin": []string{"http://evil.example.com"}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if conn != nil {
		conn.Close()
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	assert.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestGatewayShutdownClosesConnections(t *testing.T) {
	ts, gateway := newTestServer(t)

	conn := dialChat(t, ts, "alice")
	readEnvelope(t, conn) // welcome

	require.NoError(t, gateway.Shutdown(2*time.Second))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
