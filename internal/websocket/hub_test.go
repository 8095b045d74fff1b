package websocket

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compfinder/internal/config"
	"compfinder/internal/infrastructure"
	"compfinder/pkg/contracts/domain"
	"compfinder/pkg/contracts/events"
)

// fakeConn records writes and blocks reads until closed.
type fakeConn struct {
	mu      sync.Mutex
	written [][]byte
	closed  chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if messageType == websocket.TextMessage {
		f.written = append(f.written, append([]byte(nil), data...))
	}
	return nil
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, errors.New("closed")
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetReadLimit(int64)                {}
func (f *fakeConn) SetPongHandler(func(string) error) {}
func (f *fakeConn) RemoteAddr() string                { return "127.0.0.1:1234" }

func (f *fakeConn) messages(t *testing.T) []events.Message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]events.Message, 0, len(f.written))
	for _, raw := range f.written {
		var m events.Message
		require.NoError(t, json.Unmarshal(raw, &m))
		out = append(out, m)
	}
	return out
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(infrastructure.DiscardLogger())
	hub.Start()
	t.Cleanup(hub.Stop)
	return hub
}

func connect(t *testing.T, hub *Hub) (*Client, *fakeConn) {
	t.Helper()
	conn := newFakeConn()
	client := NewClient(hub, conn, "trace-1", infrastructure.DiscardLogger())
	hub.Register(client)
	go client.WritePump()
	go client.ReadPump()
	return client, conn
}

func TestHub_ConnectionMessage(t *testing.T) {
	hub := startHub(t)
	client, conn := connect(t, hub)

	require.Eventually(t, func() bool { return len(conn.messages(t)) == 1 }, time.Second, 5*time.Millisecond)
	msg := conn.messages(t)[0]
	assert.Equal(t, events.MessageTypeConnection, msg.Type)
	data := msg.Data.(map[string]interface{})
	assert.Equal(t, client.ID(), data["client_id"])
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHub_PublishSnapshot(t *testing.T) {
	hub := startHub(t)
	_, first := connect(t, hub)
	_, second := connect(t, hub)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	hub.PublishSnapshot(domain.DisplaySnapshot{
		State:  domain.StateIdle,
		Status: domain.StatusDone,
		Rows:   []domain.DisplayRow{{Symbol: "AAPL", MarketCap: "$1", ROE: "1", ROA: "2"}},
	})

	for _, conn := range []*fakeConn{first, second} {
		require.Eventually(t, func() bool { return len(conn.messages(t)) == 2 }, time.Second, 5*time.Millisecond)
		update := conn.messages(t)[1]
		assert.Equal(t, events.MessageTypeDisplayUpdate, update.Type)
		data := update.Data.(map[string]interface{})
		assert.Equal(t, domain.StatusDone, data["status"])
		assert.Len(t, data["rows"], 1)
	}
}

func TestHub_ReplaysLatestSnapshot(t *testing.T) {
	hub := startHub(t)
	hub.PublishSnapshot(domain.DisplaySnapshot{State: domain.StateFetching, Status: domain.StatusFetching})
	// the loop handles one event at a time, so an empty queue means the broadcast is done
	require.Eventually(t, func() bool { return len(hub.broadcast) == 0 }, time.Second, time.Millisecond)

	_, conn := connect(t, hub)
	require.Eventually(t, func() bool { return len(conn.messages(t)) == 2 }, time.Second, 5*time.Millisecond)

	msgs := conn.messages(t)
	assert.Equal(t, events.MessageTypeConnection, msgs[0].Type)
	assert.Equal(t, events.MessageTypeDisplayUpdate, msgs[1].Type)
}

func TestHub_Unregister(t *testing.T) {
	hub := startHub(t)
	_, conn := connect(t, hub)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_BroadcastWithoutRunningLoopDoesNotBlock(t *testing.T) {
	hub := NewHub(infrastructure.DiscardLogger())

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer*2; i++ {
			hub.Broadcast(events.MessageTypeError, "x")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked")
	}
}

func TestHub_StopIsIdempotent(t *testing.T) {
	hub := NewHub(infrastructure.DiscardLogger())
	hub.Start()
	hub.Start()
	hub.Stop()
	hub.Stop()

	// Register after stop returns instead of blocking
	hub.Register(NewClient(hub, newFakeConn(), "", infrastructure.DiscardLogger()))
}

func TestHandler_EndToEnd(t *testing.T) {
	hub := startHub(t)
	srv := httptest.NewServer(NewHandler(hub, config.WebSocketConfig{}, nil, infrastructure.DiscardLogger()))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var hello events.Message
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, events.MessageTypeConnection, hello.Type)

	hub.PublishSnapshot(domain.DisplaySnapshot{State: domain.StateIdle, Status: domain.StatusDone})

	var update events.Message
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, events.MessageTypeDisplayUpdate, update.Type)
}

func TestHandler_RejectsForeignOrigin(t *testing.T) {
	hub := startHub(t)
	srv := httptest.NewServer(NewHandler(hub, config.WebSocketConfig{}, []string{"http://localhost:8080"}, infrastructure.DiscardLogger()))
	defer srv.Close()

	header := http.Header{"Origin": []string{"http://evil.example"}}

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
