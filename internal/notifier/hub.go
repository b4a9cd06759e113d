package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/medverify-api/pkg/config"
)

// Broadcaster is the engine-facing side of the hub. Services call it
// explicitly after their store mutation commits; delivery is fire-and-forget
// and never delays or fails the request that produced the event.
type Broadcaster interface {
	Broadcast(event Event)
}

// Conn is the subset of a websocket connection the hub needs. It is
// satisfied by *websocket.Conn from gorilla/websocket.
type Conn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// SampleFunc produces the "recent activity" event sent to a freshly
// authenticated session.
type SampleFunc func(ctx context.Context) Event

// Stats receives hub gauge updates. Implemented by the metrics service.
type Stats interface {
	SetAdminSessions(n int)
	IncEventsBroadcast()
}

// Hub owns the set of connected, admin-authenticated realtime sessions and
// fans domain events out to all of them. It is created at startup, injected
// into the engines, and drained at shutdown; there is no global state.
type Hub struct {
	logger       *zap.Logger
	sample       SampleFunc
	stats        Stats
	sampleDelay  time.Duration
	sendBuffer   int
	writeTimeout time.Duration

	mu       sync.RWMutex
	sessions map[*Session]struct{}
	closed   bool
}

// NewHub constructs a hub. sample may be nil, in which case the built-in
// sample event is used. stats may be nil.
func NewHub(cfg config.NotifierConfig, sample SampleFunc, stats Stats, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sample == nil {
		sample = func(context.Context) Event { return SampleEvent() }
	}
	sendBuffer := cfg.SendBuffer
	if sendBuffer <= 0 {
		sendBuffer = 16
	}
	sampleDelay := cfg.SampleEventDelay
	if sampleDelay <= 0 {
		sampleDelay = time.Second
	}

	return &Hub{
		logger:       logger,
		sample:       sample,
		stats:        stats,
		sampleDelay:  sampleDelay,
		sendBuffer:   sendBuffer,
		writeTimeout: cfg.WriteTimeout,
		sessions:     make(map[*Session]struct{}),
	}
}

// Session is one long-lived admin connection. Events are delivered through a
// buffered channel consumed by a single writer goroutine, so emission order
// is preserved within a session.
type Session struct {
	hub       *Hub
	conn      Conn
	send      chan interface{}
	closeOnce sync.Once
}

type clientMessage struct {
	Type string `json:"type"`
	Role string `json:"role"`
}

type authAck struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Broadcast delivers the event to every registered session. Sessions whose
// buffer is full or whose connection has gone away are skipped silently;
// cleanup happens on disconnect, not here.
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for session := range h.sessions {
		session.enqueue(event)
	}
	if h.stats != nil {
		h.stats.IncEventsBroadcast()
	}
}

// SessionCount reports the number of registered admin sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// ServeConn drives one websocket connection until it disconnects. The
// connection is not registered for broadcasts until the client completes the
// auth handshake; a connection that never authenticates receives nothing.
func (h *Hub) ServeConn(ctx context.Context, conn Conn) {
	session := &Session{
		hub:  h,
		conn: conn,
		send: make(chan interface{}, h.sendBuffer),
	}
	go session.writePump(h.writeTimeout)

	registered := false
	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if isDecodeError(err) {
				h.logger.Debug("ignoring malformed realtime message", zap.Error(err))
				continue
			}
			break
		}

		if msg.Type == "auth" && msg.Role == "admin" && !registered {
			registered = true
			h.register(session)
			session.enqueue(authAck{Type: "auth_success", Message: "Admin authentication successful"})
			h.scheduleSample(ctx, session)
		}
	}

	if registered {
		h.unregister(session)
	}
	session.close()
}

// Shutdown drops every session and closes the underlying connections.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for session := range h.sessions {
		sessions = append(sessions, session)
	}
	h.sessions = make(map[*Session]struct{})
	h.closed = true
	h.mu.Unlock()

	for _, session := range sessions {
		session.close()
	}
	h.publishSessionCount(0)
}

func (h *Hub) register(session *Session) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		session.close()
		return
	}
	h.sessions[session] = struct{}{}
	count := len(h.sessions)
	h.mu.Unlock()

	h.logger.Info("admin session connected", zap.Int("sessions", count))
	h.publishSessionCount(count)
}

func (h *Hub) unregister(session *Session) {
	h.mu.Lock()
	_, ok := h.sessions[session]
	if ok {
		delete(h.sessions, session)
	}
	count := len(h.sessions)
	h.mu.Unlock()

	if ok {
		h.logger.Info("admin session disconnected", zap.Int("sessions", count))
		h.publishSessionCount(count)
	}
}

// scheduleSample pushes one recent-activity event shortly after the
// handshake so a new dashboard does not start empty.
func (h *Hub) scheduleSample(ctx context.Context, session *Session) {
	time.AfterFunc(h.sampleDelay, func() {
		h.mu.RLock()
		_, ok := h.sessions[session]
		h.mu.RUnlock()
		if !ok {
			return
		}
		session.enqueue(h.sample(ctx))
	})
}

func (h *Hub) publishSessionCount(count int) {
	if h.stats != nil {
		h.stats.SetAdminSessions(count)
	}
}

func (s *Session) enqueue(msg interface{}) {
	defer func() {
		// enqueue may race with close; a send on the closed channel is
		// equivalent to the connection having gone away.
		_ = recover()
	}()
	select {
	case s.send <- msg:
	default:
	}
}

func (s *Session) writePump(writeTimeout time.Duration) {
	for msg := range s.send {
		if writeTimeout > 0 {
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		}
		if err := s.conn.WriteJSON(msg); err != nil {
			break
		}
	}
	_ = s.conn.Close()
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.send)
	})
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
