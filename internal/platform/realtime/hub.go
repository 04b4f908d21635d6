package realtime

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"gigflow/contexts/marketplace/hiring-service/ports"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"
)

const defaultQueueSize = 16

var (
	ErrSessionNotFound = errors.New("realtime session not found")
	ErrSessionClosed   = errors.New("realtime session closed")
	ErrSessionBackedUp = errors.New("realtime session outbound queue full")
	errOriginRejected  = errors.New("websocket origin not allowed")
)

// clientFrame is what a browser sends after connecting.
type clientFrame struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

type registeredFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

type errorFrame struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

type session struct {
	id     string
	send   chan any
	done   chan struct{}
	closed sync.Once

	// userID and verified are only touched by the session's read goroutine.
	userID   string
	verified bool
}

func (s *session) close() {
	s.closed.Do(func() { close(s.done) })
}

// Hub owns the websocket sessions of this process. It registers users in the
// Registry and implements ports.SessionPusher for the notification router.
type Hub struct {
	registry           *Registry
	allowedOrigin      string
	allowFrameRegister bool
	queueSize          int
	logger             *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

type HubConfig struct {
	AllowedOrigin string
	// AllowFrameRegister lets a session without a gateway-verified X-User-Id
	// header claim an identity with a register frame. Header-bound sessions
	// can never switch identity.
	AllowFrameRegister bool
	QueueSize          int
	Logger             *slog.Logger
}

func NewHub(registry *Registry, cfg HubConfig) *Hub {
	if registry == nil {
		registry = NewRegistry()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Hub{
		registry:           registry,
		allowedOrigin:      strings.TrimSpace(cfg.AllowedOrigin),
		allowFrameRegister: cfg.AllowFrameRegister,
		queueSize:          queueSize,
		logger:             logger,
		sessions:           make(map[string]*session),
	}
}

func (h *Hub) Registry() *Registry {
	return h.registry
}

// ServeHTTP upgrades the request to a websocket session.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	server := websocket.Server{
		Handshake: h.handshake,
		Handler:   h.serve,
	}
	server.ServeHTTP(w, r)
}

// Push enqueues event for sessionID without waiting for the client.
func (h *Hub) Push(sessionID string, event ports.Notification) error {
	h.mu.RLock()
	sess, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}
	return h.enqueue(sess, event)
}

func (h *Hub) enqueue(sess *session, frame any) error {
	select {
	case <-sess.done:
		return ErrSessionClosed
	default:
	}
	select {
	case sess.send <- frame:
		return nil
	default:
		return fmt.Errorf("%w: session %s", ErrSessionBackedUp, sess.id)
	}
}

func (h *Hub) handshake(config *websocket.Config, r *http.Request) error {
	origin := r.Header.Get("Origin")
	if h.allowedOrigin != "" && origin != "" && origin != h.allowedOrigin {
		return errOriginRejected
	}
	return nil
}

func (h *Hub) serve(conn *websocket.Conn) {
	sess := &session{
		id:   uuid.NewString(),
		send: make(chan any, h.queueSize),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.sessions[sess.id] = sess
	h.mu.Unlock()
	defer h.release(sess)

	h.logger.Info("websocket session opened",
		"event", "realtime_session_opened",
		"module", "internal/platform/realtime",
		"layer", "platform",
		"session_id", sess.id,
	)

	if userID := strings.TrimSpace(conn.Request().Header.Get("X-User-Id")); userID != "" {
		sess.verified = true
		h.bind(sess, userID)
	}

	go h.writeLoop(conn, sess)
	h.readLoop(conn, sess)
}

func (h *Hub) readLoop(conn *websocket.Conn, sess *session) {
	for {
		var frame clientFrame
		if err := websocket.JSON.Receive(conn, &frame); err != nil {
			if !errors.Is(err, io.EOF) {
				h.logger.Debug("websocket read ended",
					"event", "realtime_read_ended",
					"module", "internal/platform/realtime",
					"layer", "platform",
					"session_id", sess.id,
					"error", err.Error(),
				)
			}
			return
		}
		switch frame.Type {
		case "register":
			h.registerFromFrame(sess, strings.TrimSpace(frame.UserID))
		default:
			h.logger.Debug("websocket frame ignored",
				"event", "realtime_frame_ignored",
				"module", "internal/platform/realtime",
				"layer", "platform",
				"session_id", sess.id,
				"frame_type", frame.Type,
			)
		}
	}
}

func (h *Hub) writeLoop(conn *websocket.Conn, sess *session) {
	defer conn.Close()
	for {
		select {
		case <-sess.done:
			return
		case frame := <-sess.send:
			if err := websocket.JSON.Send(conn, frame); err != nil {
				h.logger.Warn("websocket write failed",
					"event", "realtime_write_failed",
					"module", "internal/platform/realtime",
					"layer", "platform",
					"session_id", sess.id,
					"error", err.Error(),
				)
				return
			}
		}
	}
}

func (h *Hub) registerFromFrame(sess *session, userID string) {
	var code string
	switch {
	case userID == "":
		code = "missing_user"
	case sess.verified && userID != sess.userID:
		code = "identity_mismatch"
	case !sess.verified && !h.allowFrameRegister:
		code = "register_disabled"
	}
	if code == "" {
		h.bind(sess, userID)
		return
	}

	h.logger.Warn("websocket register frame rejected",
		"event", "realtime_register_rejected",
		"module", "internal/platform/realtime",
		"layer", "platform",
		"session_id", sess.id,
		"bound_user_id", sess.userID,
		"claimed_user_id", userID,
		"reason", code,
	)
	_ = h.enqueue(sess, errorFrame{Type: "error", Code: code})
}

func (h *Hub) bind(sess *session, userID string) {
	sess.userID = userID
	h.registry.Register(userID, sess.id)
	_ = h.enqueue(sess, registeredFrame{
		Type:      "registered",
		SessionID: sess.id,
		UserID:    userID,
	})
	h.logger.Info("websocket session registered",
		"event", "realtime_session_registered",
		"module", "internal/platform/realtime",
		"layer", "platform",
		"session_id", sess.id,
		"user_id", userID,
	)
}

func (h *Hub) release(sess *session) {
	sess.close()
	h.mu.Lock()
	delete(h.sessions, sess.id)
	h.mu.Unlock()
	h.registry.Unregister(sess.id)

	h.logger.Info("websocket session released",
		"event", "realtime_session_released",
		"module", "internal/platform/realtime",
		"layer", "platform",
		"session_id", sess.id,
	)
}
