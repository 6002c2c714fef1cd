package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"taskboard/internal/models"
	"taskboard/pkg/logger"

	"github.com/gorilla/websocket"
)

var (
	ErrNotConnected    = errors.New("socket not connected")
	ErrReconnectFailed = errors.New("gave up reconnecting")
	ErrClosed          = errors.New("socket closed")
)

const writeWait = 10 * time.Second

// Options controls dialing and reconnection.
type Options struct {
	// Attempts bounds consecutive dial attempts, both initially and after a
	// dropped connection.
	Attempts int
	Delay    time.Duration
	Dialer   *websocket.Dialer
	Header   http.Header
}

func DefaultOptions() Options {
	return Options{
		Attempts: 5,
		Delay:    time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Attempts <= 0 {
		o.Attempts = d.Attempts
	}
	if o.Delay <= 0 {
		o.Delay = d.Delay
	}
	if o.Dialer == nil {
		o.Dialer = websocket.DefaultDialer
	}
	return o
}

// Socket is a client WebSocket session with bounded automatic reconnection.
// After every (re)connect it announces the user and runs OnConnect hooks.
// Events emitted while disconnected are lost; missed events are not replayed.
type Socket struct {
	url    string
	userID int
	opts   Options

	mu        sync.Mutex
	conn      *websocket.Conn
	closed    bool
	err       error
	nextID    int
	handlers  map[models.EventName]map[int]func(json.RawMessage)
	onConnect map[int]func()

	writeMu sync.Mutex
	done    chan struct{}
}

func NewSocket(url string, userID int, opts Options) *Socket {
	return &Socket{
		url:       url,
		userID:    userID,
		opts:      opts.withDefaults(),
		handlers:  make(map[models.EventName]map[int]func(json.RawMessage)),
		onConnect: make(map[int]func()),
		done:      make(chan struct{}),
	}
}

// Connect dials the server, retrying up to Attempts times.
func (s *Socket) Connect(ctx context.Context) error {
	conn, err := s.dial(ctx)
	if err != nil {
		return err
	}
	s.attach(conn)
	return nil
}

// On registers fn for event. Handlers run on the socket's read goroutine in
// arrival order. The returned func removes the handler.
func (s *Socket) On(event models.EventName, fn func(json.RawMessage)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	if s.handlers[event] == nil {
		s.handlers[event] = make(map[int]func(json.RawMessage))
	}
	s.handlers[event][id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers[event], id)
	}
}

// OnConnect registers fn to run after every successful (re)connect.
func (s *Socket) OnConnect(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.onConnect[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.onConnect, id)
	}
}

func (s *Socket) Emit(event models.EventName, data interface{}) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	frame, err := models.Encode(event, data)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	return nil
}

func (s *Socket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Done is closed once the socket is closed or has given up reconnecting.
func (s *Socket) Done() <-chan struct{} {
	return s.done
}

// Err reports why Done was closed.
func (s *Socket) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	s.finish(ErrClosed)
	if conn == nil {
		return nil
	}

	s.writeMu.Lock()
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	s.writeMu.Unlock()
	return conn.Close()
}

func (s *Socket) dial(ctx context.Context) (*websocket.Conn, error) {
	var lastErr error
	for attempt := 1; attempt <= s.opts.Attempts; attempt++ {
		if s.isClosed() {
			return nil, ErrClosed
		}

		conn, _, err := s.opts.Dialer.DialContext(ctx, s.url, s.opts.Header)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		logger.Warn("Connection attempt %d/%d failed: %v", attempt, s.opts.Attempts, err)

		if attempt == s.opts.Attempts {
			break
		}
		select {
		case <-time.After(s.opts.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.done:
			return nil, ErrClosed
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrReconnectFailed, lastErr)
}

// attach installs conn, announces the user and starts the read loop.
func (s *Socket) attach(conn *websocket.Conn) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conn = conn
	hooks := make([]func(), 0, len(s.onConnect))
	for _, fn := range s.onConnect {
		hooks = append(hooks, fn)
	}
	s.mu.Unlock()

	if s.userID > 0 {
		if err := s.Emit(models.EventUserConnected, s.userID); err != nil {
			logger.Warn("Error announcing user %d: %v", s.userID, err)
		}
	}
	for _, fn := range hooks {
		fn()
	}

	go s.readLoop(conn)
}

func (s *Socket) readLoop(conn *websocket.Conn) {
	for {
		var env models.Envelope
		_, message, err := conn.ReadMessage()
		if err != nil {
			s.dropped(conn, err)
			return
		}
		if err := json.Unmarshal(message, &env); err != nil {
			logger.Warn("Dropping malformed frame: %v", err)
			continue
		}
		s.deliver(env)
	}
}

func (s *Socket) deliver(env models.Envelope) {
	s.mu.Lock()
	fns := make([]func(json.RawMessage), 0, len(s.handlers[env.Event]))
	for _, fn := range s.handlers[env.Event] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(env.Data)
	}
}

// dropped handles a broken connection by reconnecting with the bounded
// policy, or finishing the socket once attempts are exhausted.
func (s *Socket) dropped(conn *websocket.Conn, cause error) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	closed := s.closed
	s.mu.Unlock()

	conn.Close()
	if closed {
		return
	}
	logger.Warn("Connection lost: %v", cause)

	next, err := s.dial(context.Background())
	if err != nil {
		logger.Error("Reconnection failed: %v", err)
		s.finish(err)
		return
	}
	logger.Info("Reconnected to %s", s.url)
	s.attach(next)
}

func (s *Socket) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	s.err = err
	close(s.done)
}

func (s *Socket) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
