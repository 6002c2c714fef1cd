package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"taskboard/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer accepts sockets, records every frame and can drop connections.
type echoServer struct {
	*httptest.Server
	frames chan models.Envelope

	mu    sync.Mutex
	conns []*websocket.Conn
}

func newEchoServer(t *testing.T) *echoServer {
	t.Helper()
	s := &echoServer{frames: make(chan models.Envelope, 64)}
	upgrader := websocket.Upgrader{}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var env models.Envelope
			if json.Unmarshal(msg, &env) == nil {
				s.frames <- env
			}
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *echoServer) url() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *echoServer) push(t *testing.T, event models.EventName, data interface{}) {
	t.Helper()
	frame, err := models.Encode(event, data)
	require.NoError(t, err)
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.conns)
	require.NoError(t, s.conns[len(s.conns)-1].WriteMessage(websocket.TextMessage, frame))
}

func (s *echoServer) dropAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		c.Close()
	}
	s.conns = nil
}

func (s *echoServer) next(t *testing.T) models.Envelope {
	t.Helper()
	select {
	case env := <-s.frames:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return models.Envelope{}
	}
}

func fastOptions() Options {
	return Options{Attempts: 3, Delay: 10 * time.Millisecond}
}

func TestSocket_AnnouncesUserOnConnect(t *testing.T) {
	srv := newEchoServer(t)
	s := NewSocket(srv.url(), 7, fastOptions())
	defer s.Close()

	connected := make(chan struct{}, 1)
	s.OnConnect(func() { connected <- struct{}{} })

	require.NoError(t, s.Connect(context.Background()))
	assert.True(t, s.Connected())

	env := srv.next(t)
	assert.Equal(t, models.EventUserConnected, env.Event)
	assert.JSONEq(t, `7`, string(env.Data))
	<-connected

	require.NoError(t, s.Emit(models.EventJoinProject, 42))
	env = srv.next(t)
	assert.Equal(t, models.EventJoinProject, env.Event)
	assert.JSONEq(t, `42`, string(env.Data))
}

func TestSocket_DeliversToHandlers(t *testing.T) {
	srv := newEchoServer(t)
	s := NewSocket(srv.url(), 1, fastOptions())
	defer s.Close()

	got := make(chan models.UserStatusChanged, 2)
	unsub := s.On(models.EventUserStatusChanged, func(data json.RawMessage) {
		var ev models.UserStatusChanged
		assert.NoError(t, json.Unmarshal(data, &ev))
		got <- ev
	})
	require.NoError(t, s.Connect(context.Background()))
	srv.next(t)

	srv.push(t, models.EventUserStatusChanged, models.UserStatusChanged{UserID: 3, Status: models.UserOnline})
	select {
	case ev := <-got:
		assert.Equal(t, models.UserStatusChanged{UserID: 3, Status: models.UserOnline}, ev)
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called")
	}

	unsub()
	srv.push(t, models.EventUserStatusChanged, models.UserStatusChanged{UserID: 4, Status: models.UserOnline})
	// a later frame proves the previous one was processed
	done := make(chan struct{})
	s.On(models.EventUserJoinedProject, func(json.RawMessage) { close(done) })
	srv.push(t, models.EventUserJoinedProject, models.UserJoinedProject{UserID: 4, ProjectID: 1})
	<-done
	assert.Empty(t, got)
}

func TestSocket_ReconnectsAndReannounces(t *testing.T) {
	srv := newEchoServer(t)
	s := NewSocket(srv.url(), 9, fastOptions())
	defer s.Close()

	var mu sync.Mutex
	connects := 0
	s.OnConnect(func() {
		mu.Lock()
		connects++
		mu.Unlock()
	})

	require.NoError(t, s.Connect(context.Background()))
	assert.Equal(t, models.EventUserConnected, srv.next(t).Event)

	srv.dropAll()

	env := srv.next(t)
	assert.Equal(t, models.EventUserConnected, env.Event)
	assert.JSONEq(t, `9`, string(env.Data))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return connects == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSocket_GivesUpAfterBoundedAttempts(t *testing.T) {
	srv := newEchoServer(t)
	s := NewSocket(srv.url(), 1, fastOptions())
	defer s.Close()

	require.NoError(t, s.Connect(context.Background()))
	srv.next(t)

	srv.Server.Close()
	srv.dropAll()

	select {
	case <-s.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("socket kept retrying")
	}
	assert.ErrorIs(t, s.Err(), ErrReconnectFailed)
	assert.False(t, s.Connected())
	assert.ErrorIs(t, s.Emit(models.EventJoinProject, 1), ErrNotConnected)
}

func TestSocket_ConnectFailsWhenUnreachable(t *testing.T) {
	srv := newEchoServer(t)
	url := srv.url()
	srv.Close()

	s := NewSocket(url, 1, fastOptions())
	err := s.Connect(context.Background())
	assert.ErrorIs(t, err, ErrReconnectFailed)
}

func TestSocket_CloseStopsReconnecting(t *testing.T) {
	srv := newEchoServer(t)
	s := NewSocket(srv.url(), 1, fastOptions())

	require.NoError(t, s.Connect(context.Background()))
	srv.next(t)

	require.NoError(t, s.Close())
	<-s.Done()
	assert.ErrorIs(t, s.Err(), ErrClosed)
	assert.ErrorIs(t, s.Emit(models.EventJoinProject, 1), ErrNotConnected)

	select {
	case env := <-srv.frames:
		t.Fatalf("unexpected frame after close: %s", env.Event)
	case <-time.After(50 * time.Millisecond):
	}
}
