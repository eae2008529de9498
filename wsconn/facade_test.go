package wsconn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	frames  []struct {
		t    FrameType
		data []byte
	}
	closed     bool
	buffered   int
	subscribed map[string]bool
	published  map[string][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{subscribed: map[string]bool{}, published: map[string][]byte{}}
}

func (c *fakeConn) ReadFrame() (FrameType, []byte, error) { return TextFrame, nil, nil }

func (c *fakeConn) WriteFrame(t FrameType, data []byte) error {
	c.frames = append(c.frames, struct {
		t    FrameType
		data []byte
	}{t, data})
	return nil
}

func (c *fakeConn) Close(code int, reason string) error { c.closed = true; return nil }

func (c *fakeConn) BufferedAmount() int { return c.buffered }

func (c *fakeConn) Subscribe(topic string) error   { c.subscribed[topic] = true; return nil }
func (c *fakeConn) Unsubscribe(topic string) error { delete(c.subscribed, topic); return nil }
func (c *fakeConn) IsSubscribed(topic string) bool { return c.subscribed[topic] }
func (c *fakeConn) Publish(topic string, data []byte) error {
	c.published[topic] = data
	return nil
}

type msg struct {
	Body string `json:"body"`
}

func TestFacadeSendEncodesJSON(t *testing.T) {
	conn := newFakeConn()
	state := StateOpen
	f := NewFacade(NewContext("c1", nil, nil), conn, &state)

	require.NoError(t, f.Send(msg{Body: "hi"}))
	require.Len(t, conn.frames, 1)
	assert.Equal(t, TextFrame, conn.frames[0].t)
	assert.JSONEq(t, `{"body":"hi"}`, string(conn.frames[0].data))
}

func TestFacadeSendPassesBytesAndStringsVerbatim(t *testing.T) {
	conn := newFakeConn()
	state := StateOpen
	f := NewFacade(NewContext("c1", nil, nil), conn, &state)

	require.NoError(t, f.Send([]byte("raw")))
	require.NoError(t, f.Send("plain"))
	assert.Equal(t, "raw", string(conn.frames[0].data))
	assert.Equal(t, "plain", string(conn.frames[1].data))
}

func TestFacadeSendFailsWhenNotOpen(t *testing.T) {
	conn := newFakeConn()
	state := StateClosed
	f := NewFacade(NewContext("c1", nil, nil), conn, &state)

	err := f.Send(msg{Body: "hi"})
	require.Error(t, err)
	assert.Empty(t, conn.frames)
}

func TestFacadeSendBinary(t *testing.T) {
	conn := newFakeConn()
	state := StateOpen
	f := NewFacade(NewContext("c1", nil, nil), conn, &state)

	require.NoError(t, f.SendBinary([]byte{1, 2, 3}))
	assert.Equal(t, BinaryFrame, conn.frames[0].t)
}

func TestFacadePubSubForwardsWhenSupported(t *testing.T) {
	conn := newFakeConn()
	state := StateOpen
	f := NewFacade(NewContext("c1", nil, nil), conn, &state)

	require.NoError(t, f.Subscribe("room"))
	assert.True(t, f.IsSubscribed("room"))
	require.NoError(t, f.Publish("room", msg{Body: "hi"}))
	assert.JSONEq(t, `{"body":"hi"}`, string(conn.published["room"]))
	require.NoError(t, f.Unsubscribe("room"))
	assert.False(t, f.IsSubscribed("room"))
}

func TestFacadePubSubErrorsWhenUnsupported(t *testing.T) {
	conn := &bareConn{}
	state := StateOpen
	f := NewFacade(NewContext("c1", nil, nil), conn, &state)

	assert.False(t, f.IsSubscribed("room"))
	assert.True(t, errors.Is(f.Subscribe("room"), errNoPubSub))
	assert.True(t, errors.Is(f.Publish("room", msg{Body: "hi"}), errNoPubSub))
}

// bareConn implements RawConn without PubSub, to exercise the
// unsupported-transport error paths.
type bareConn struct{}

func (c *bareConn) ReadFrame() (FrameType, []byte, error) { return TextFrame, nil, nil }
func (c *bareConn) WriteFrame(FrameType, []byte) error    { return nil }
func (c *bareConn) Close(int, string) error                { return nil }
func (c *bareConn) BufferedAmount() int                     { return 0 }
