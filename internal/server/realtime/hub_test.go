package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/bazaar/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger = logging.Nop

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(NewMemoryBroker(), nopLogger{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(done)
	}()
	// let Run subscribe before anything is published
	time.Sleep(20 * time.Millisecond)

	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub, cancel
}

func newTestClient(hub *Hub, userID string, buf int) *Client {
	return &Client{UserID: userID, hub: hub, send: make(chan []byte, buf), logger: nopLogger{}}
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var ev Event
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("no frame received")
	}
	return Event{}
}

func assertNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected frame %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_SendToUsersTargetsOnlyThoseUsers(t *testing.T) {
	hub, _ := startHub(t)

	alice := newTestClient(hub, "alice", 4)
	aliceTab := newTestClient(hub, "alice", 4)
	bob := newTestClient(hub, "bob", 4)
	hub.Register(alice)
	hub.Register(aliceTab)
	hub.Register(bob)

	require.NoError(t, hub.SendToUsers(context.Background(), Event{Type: EventTyping, From: "bob", To: "alice"}, "alice"))

	assert.Equal(t, EventTyping, receive(t, alice).Type)
	assert.Equal(t, "bob", receive(t, aliceTab).From)
	assertNothing(t, bob)
}

func TestHub_BroadcastReachesEveryone(t *testing.T) {
	hub, _ := startHub(t)

	a := newTestClient(hub, "a", 1)
	b := newTestClient(hub, "b", 1)
	hub.Register(a)
	hub.Register(b)

	require.NoError(t, hub.Broadcast(context.Background(), Event{Type: EventMessage, Payload: map[string]string{"text": "hi"}}))

	assert.Equal(t, EventMessage, receive(t, a).Type)
	assert.Equal(t, EventMessage, receive(t, b).Type)
}

func TestHub_DuplicateTargetDeliveredOnce(t *testing.T) {
	hub, _ := startHub(t)

	a := newTestClient(hub, "a", 4)
	hub.Register(a)

	require.NoError(t, hub.SendToUsers(context.Background(), Event{Type: EventMessage}, "a", "a"))
	receive(t, a)
	assertNothing(t, a)
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	hub, _ := startHub(t)

	slow := newTestClient(hub, "slow", 1)
	hub.Register(slow)
	require.True(t, hub.Online("slow"))

	ctx := context.Background()
	require.NoError(t, hub.SendToUsers(ctx, Event{Type: EventMessage}, "slow"))
	require.NoError(t, hub.SendToUsers(ctx, Event{Type: EventMessage}, "slow"))

	require.Eventually(t, func() bool { return !hub.Online("slow") }, time.Second, 10*time.Millisecond)

	// buffered frame is still readable, then the channel is closed
	<-slow.send
	_, ok := <-slow.send
	assert.False(t, ok)

	// unregistering an already dropped client must not panic
	hub.Unregister(slow)
}

func TestHub_RunClosesClientsOnShutdown(t *testing.T) {
	hub := NewHub(NewMemoryBroker(), nopLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(done)
	}()

	c := newTestClient(hub, "u", 1)
	hub.Register(c)
	cancel()
	<-done

	_, ok := <-c.send
	assert.False(t, ok)
	assert.False(t, hub.Online("u"))
}

func TestHub_SendToNoUsersIsNoop(t *testing.T) {
	hub := NewHub(NewMemoryBroker(), nopLogger{})
	assert.NoError(t, hub.SendToUsers(context.Background(), Event{Type: EventMessage}))
}

type fakeConn struct {
	mu      sync.Mutex
	frames  [][]byte
	written [][]byte
	closed  bool
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return 0, nil, errors.New("eof")
	}
	data := f.frames[0]
	f.frames = f.frames[1:]
	return 1, data, nil
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, data)
	return nil
}

func (f *fakeConn) SetReadLimit(int64) {}
func (f *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}
func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type recordingHandler struct {
	frames []Frame
}

func (r *recordingHandler) HandleFrame(_ context.Context, userID string, f Frame) {
	f.To = userID + "->" + f.To
	r.frames = append(r.frames, f)
}

func TestClient_ReadPumpDispatchesFramesAndUnregisters(t *testing.T) {
	hub := NewHub(NewMemoryBroker(), nopLogger{})
	conn := &fakeConn{frames: [][]byte{
		[]byte(`{"type":"typing","to":"bob"}`),
		[]byte(`not json`),
		[]byte(`{"type":"read","to":"carol"}`),
	}}
	c := NewClient(hub, conn, "alice")
	hub.Register(c)

	h := &recordingHandler{}
	c.ReadPump(context.Background(), h)

	require.Len(t, h.frames, 2)
	assert.Equal(t, Frame{Type: "typing", To: "alice->bob"}, h.frames[0])
	assert.Equal(t, "read", h.frames[1].Type)
	assert.False(t, hub.Online("alice"))
	assert.True(t, conn.closed)
}

func TestClient_WritePumpFlushesAndStopsOnClose(t *testing.T) {
	hub := NewHub(NewMemoryBroker(), nopLogger{})
	conn := &fakeConn{}
	c := NewClient(hub, conn, "alice")
	hub.Register(c)

	c.send <- []byte(`{"type":"message"}`)
	hub.Unregister(c)

	c.WritePump()

	conn.mu.Lock()
	defer conn.mu.Unlock()
	require.Len(t, conn.written, 2)
	assert.JSONEq(t, `{"type":"message"}`, string(conn.written[0]))
	assert.Empty(t, conn.written[1])
	assert.True(t, conn.closed)
}
