package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gigflow/contexts/marketplace/hiring-service/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

type serverFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
	PostingID string `json:"posting_id"`
	Code      string `json:"code"`
}

func startHub(t *testing.T, cfg HubConfig) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(NewRegistry(), cfg)
	server := httptest.NewServer(hub)
	t.Cleanup(server.Close)
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, origin string, header http.Header) *websocket.Conn {
	t.Helper()
	cfg, err := websocket.NewConfig("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", origin)
	require.NoError(t, err)
	for key, values := range header {
		for _, value := range values {
			cfg.Header.Add(key, value)
		}
	}
	conn, err := websocket.DialConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func receive(t *testing.T, conn *websocket.Conn) serverFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame serverFrame
	require.NoError(t, websocket.JSON.Receive(conn, &frame))
	return frame
}

func TestHubRegistersFromFrameAndPushes(t *testing.T) {
	hub, server := startHub(t, HubConfig{AllowFrameRegister: true})
	conn := dial(t, server, "http://localhost/", nil)

	require.NoError(t, websocket.JSON.Send(conn, map[string]string{"type": "register", "user_id": "bidder-1"}))
	ack := receive(t, conn)
	assert.Equal(t, "registered", ack.Type)
	assert.Equal(t, "bidder-1", ack.UserID)

	sessionID, ok := hub.Registry().Lookup("bidder-1")
	require.True(t, ok)
	assert.Equal(t, ack.SessionID, sessionID)

	require.NoError(t, hub.Push(sessionID, ports.Notification{
		Type:      "hired",
		Message:   `You have been hired for "Logo"!`,
		PostingID: "posting-1",
	}))
	frame := receive(t, conn)
	assert.Equal(t, "hired", frame.Type)
	assert.Equal(t, "posting-1", frame.PostingID)
	assert.Equal(t, `You have been hired for "Logo"!`, frame.Message)
}

func TestHubRegistersFromHeader(t *testing.T) {
	hub, server := startHub(t, HubConfig{})
	conn := dial(t, server, "http://localhost/", http.Header{"X-User-Id": []string{"bidder-2"}})

	ack := receive(t, conn)
	assert.Equal(t, "bidder-2", ack.UserID)
	_, ok := hub.Registry().Lookup("bidder-2")
	assert.True(t, ok)
}

func TestHubHeaderBoundSessionCannotSwitchIdentity(t *testing.T) {
	hub, server := startHub(t, HubConfig{AllowFrameRegister: true})
	victim := dial(t, server, "http://localhost/", http.Header{"X-User-Id": []string{"bidder-2"}})
	victimAck := receive(t, victim)

	intruder := dial(t, server, "http://localhost/", http.Header{"X-User-Id": []string{"bidder-1"}})
	intruderAck := receive(t, intruder)
	require.Equal(t, "bidder-1", intruderAck.UserID)

	require.NoError(t, websocket.JSON.Send(intruder, map[string]string{"type": "register", "user_id": "bidder-2"}))
	rejected := receive(t, intruder)
	assert.Equal(t, "error", rejected.Type)
	assert.Equal(t, "identity_mismatch", rejected.Code)

	sessionID, ok := hub.Registry().Lookup("bidder-2")
	require.True(t, ok)
	assert.Equal(t, victimAck.SessionID, sessionID)
	sessionID, ok = hub.Registry().Lookup("bidder-1")
	require.True(t, ok)
	assert.Equal(t, intruderAck.SessionID, sessionID)

	// Re-registering as the verified user is harmless.
	require.NoError(t, websocket.JSON.Send(intruder, map[string]string{"type": "register", "user_id": "bidder-1"}))
	again := receive(t, intruder)
	assert.Equal(t, "registered", again.Type)
	assert.Equal(t, "bidder-1", again.UserID)
}

func TestHubRejectsFrameRegisterWhenDisabled(t *testing.T) {
	hub, server := startHub(t, HubConfig{})
	conn := dial(t, server, "http://localhost/", nil)

	require.NoError(t, websocket.JSON.Send(conn, map[string]string{"type": "register", "user_id": "bidder-1"}))
	rejected := receive(t, conn)
	assert.Equal(t, "error", rejected.Type)
	assert.Equal(t, "register_disabled", rejected.Code)

	_, ok := hub.Registry().Lookup("bidder-1")
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Registry().Len())
}

func TestHubReleasesSessionOnDisconnect(t *testing.T) {
	hub, server := startHub(t, HubConfig{})
	conn := dial(t, server, "http://localhost/", http.Header{"X-User-Id": []string{"bidder-3"}})
	ack := receive(t, conn)
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		_, ok := hub.Registry().Lookup("bidder-3")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, hub.Push(ack.SessionID, ports.Notification{Type: "hired"}), ErrSessionNotFound)
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	_, server := startHub(t, HubConfig{AllowedOrigin: "https://app.gigflow.test"})

	cfg, err := websocket.NewConfig("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", "https://evil.example")
	require.NoError(t, err)
	_, err = websocket.DialConfig(cfg)
	assert.Error(t, err)

	conn := dial(t, server, "https://app.gigflow.test", nil)
	assert.NotNil(t, conn)
}

func TestHubPushDropsWhenQueueIsFull(t *testing.T) {
	hub := NewHub(NewRegistry(), HubConfig{QueueSize: 1})
	sess := &session{id: "session-x", send: make(chan any, 1), done: make(chan struct{})}
	hub.sessions[sess.id] = sess

	require.NoError(t, hub.Push("session-x", ports.Notification{Type: "hired"}))
	assert.ErrorIs(t, hub.Push("session-x", ports.Notification{Type: "hired"}), ErrSessionBackedUp)

	sess.close()
	assert.ErrorIs(t, hub.Push("session-x", ports.Notification{Type: "hired"}), ErrSessionClosed)
}
