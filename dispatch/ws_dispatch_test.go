package dispatch

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilnhq/kiln/wsconn"
	"github.com/kilnhq/kiln/wsroute"
)

type fakeFrame struct {
	frameType wsconn.FrameType
	data      []byte
}

type fakeRawConn struct {
	mu     sync.Mutex
	frames []fakeFrame
	pos    int
	sent   []fakeFrame
	closed bool
}

func (c *fakeRawConn) ReadFrame() (wsconn.FrameType, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pos >= len(c.frames) {
		return wsconn.TextFrame, nil, io.EOF
	}
	f := c.frames[c.pos]
	c.pos++
	return f.frameType, f.data, nil
}

func (c *fakeRawConn) WriteFrame(t wsconn.FrameType, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, fakeFrame{frameType: t, data: data})
	return nil
}

func (c *fakeRawConn) Close(code int, reason string) error {
	c.closed = true
	return nil
}

func (c *fakeRawConn) BufferedAmount() int { return 0 }

type fakeUpgrader struct {
	conn wsconn.RawConn
	err  error
}

func (u fakeUpgrader) Upgrade(w http.ResponseWriter, r *http.Request, opts wsconn.UpgradeOptions) (wsconn.RawConn, error) {
	return u.conn, u.err
}

type wsChatMessage struct {
	Body string `json:"body"`
}

func newTestDispatcher(reg *wsroute.Registry, conn wsconn.RawConn, upgradeErr error) *WSDispatcher {
	d := NewWSDispatcher(reg)
	d.Upgrader = fakeUpgrader{conn: conn, err: upgradeErr}
	return d
}

func TestWSDispatcherRouteMiss(t *testing.T) {
	d := newTestDispatcher(wsroute.NewRegistry(), &fakeRawConn{}, nil)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/ws/nope", nil)
	d.ServeHTTP(w, r)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWSDispatcherAuthFailure(t *testing.T) {
	reg := wsroute.NewRegistry()
	reg.WS("/ws/chat").Auth(func(r wsroute.UpgradeRequest) (any, error) {
		return nil, errors.New("nope")
	}).Build()

	d := newTestDispatcher(reg, &fakeRawConn{}, nil)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/ws/chat", nil)
	d.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWSDispatcherAuthNilUserRejectsUpgrade(t *testing.T) {
	reg := wsroute.NewRegistry()
	reg.WS("/ws/chat").Auth(func(r wsroute.UpgradeRequest) (any, error) {
		return nil, nil
	}).Build()

	d := newTestDispatcher(reg, &fakeRawConn{}, nil)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/ws/chat", nil)
	d.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
}

func TestWSDispatcherUpgradeFailure(t *testing.T) {
	reg := wsroute.NewRegistry()
	reg.WS("/ws/chat").Build()

	d := newTestDispatcher(reg, nil, errors.New("boom"))
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/ws/chat", nil)
	d.ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWSDispatcherDispatchesMessageByType(t *testing.T) {
	var received wsChatMessage
	reg := wsroute.NewRegistry()
	reg.WS("/ws/chat").
		On("chat", wsChatMessage{}, func(conn wsroute.Conn, data any) {
			received = data.(wsChatMessage)
		}).
		Build()

	frame, _ := json.Marshal(map[string]string{"type": "chat", "body": "hi"})
	conn := &fakeRawConn{frames: []fakeFrame{{frameType: wsconn.TextFrame, data: frame}}}
	d := newTestDispatcher(reg, conn, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/ws/chat", nil)
	d.ServeHTTP(w, r)

	assert.Equal(t, "hi", received.Body)
}

func TestWSDispatcherUnknownTypeRoutesToOnError(t *testing.T) {
	var gotErr error
	reg := wsroute.NewRegistry()
	reg.WS("/ws/chat").
		On("chat", wsChatMessage{}, func(conn wsroute.Conn, data any) {}).
		Error(func(conn wsroute.Conn, err error) { gotErr = err }).
		Build()

	frame, _ := json.Marshal(map[string]string{"type": "unknown"})
	conn := &fakeRawConn{frames: []fakeFrame{{frameType: wsconn.TextFrame, data: frame}}}
	d := newTestDispatcher(reg, conn, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/ws/chat", nil)
	d.ServeHTTP(w, r)

	require.Error(t, gotErr)
}

func TestWSDispatcherBinaryHandler(t *testing.T) {
	var gotData []byte
	reg := wsroute.NewRegistry()
	reg.WS("/ws/upload").
		Binary(func(conn wsroute.Conn, data []byte) { gotData = data }).
		Build()

	conn := &fakeRawConn{frames: []fakeFrame{{frameType: wsconn.BinaryFrame, data: []byte{1, 2, 3}}}}
	d := newTestDispatcher(reg, conn, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/ws/upload", nil)
	d.ServeHTTP(w, r)

	assert.Equal(t, []byte{1, 2, 3}, gotData)
}

func TestWSDispatcherPanicRecoveredViaOnError(t *testing.T) {
	var gotErr error
	reg := wsroute.NewRegistry()
	reg.WS("/ws/chat").
		On("chat", wsChatMessage{}, func(conn wsroute.Conn, data any) { panic("boom") }).
		Error(func(conn wsroute.Conn, err error) { gotErr = err }).
		Build()

	frame, _ := json.Marshal(map[string]string{"type": "chat", "body": "hi"})
	conn := &fakeRawConn{frames: []fakeFrame{{frameType: wsconn.TextFrame, data: frame}}}
	d := newTestDispatcher(reg, conn, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/ws/chat", nil)
	d.ServeHTTP(w, r)

	require.Error(t, gotErr)
	assert.Contains(t, gotErr.Error(), "boom")
}

func TestWSDispatcherConnectAndCloseLifecycle(t *testing.T) {
	var connected, closed bool
	reg := wsroute.NewRegistry()
	reg.WS("/ws/chat").
		Connect(func(conn wsroute.Conn) { connected = true }).
		Close(func(conn wsroute.Conn) { closed = true }).
		Build()

	d := newTestDispatcher(reg, &fakeRawConn{}, nil)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/ws/chat", nil)
	d.ServeHTTP(w, r)

	assert.True(t, connected)
	assert.True(t, closed)
}
