package wsconn

import (
	"net/http"

	"github.com/tiredkangaroo/websocket"
)

// TiredKangarooUpgrader implements Upgrader over the teacher's transport
// library. Its exported surface (Message, MessageText/MessageBinary,
// Conn.Read/Write/Close) is the same shape puff's own tests exercise.
type TiredKangarooUpgrader struct{}

// NewTiredKangarooUpgrader builds the default transport adapter.
func NewTiredKangarooUpgrader() *TiredKangarooUpgrader { return &TiredKangarooUpgrader{} }

func (TiredKangarooUpgrader) Upgrade(w http.ResponseWriter, r *http.Request, opts UpgradeOptions) (RawConn, error) {
	conn, err := websocket.Upgrade(w, r, &websocket.Options{
		MaxPayloadLength: opts.MaxPayloadLength,
		IdleTimeout:      opts.IdleTimeout,
		Compression:      opts.Compression,
	})
	if err != nil {
		return nil, err
	}
	return &tiredKangarooConn{conn: conn}, nil
}

type tiredKangarooConn struct {
	conn *websocket.Conn
}

func (c *tiredKangarooConn) ReadFrame() (FrameType, []byte, error) {
	msg, err := c.conn.Read()
	if err != nil {
		return TextFrame, nil, err
	}
	if msg.Type == websocket.MessageBinary {
		return BinaryFrame, msg.Data, nil
	}
	return TextFrame, msg.Data, nil
}

func (c *tiredKangarooConn) WriteFrame(t FrameType, data []byte) error {
	msgType := websocket.MessageText
	if t == BinaryFrame {
		msgType = websocket.MessageBinary
	}
	return c.conn.Write(&websocket.Message{Type: msgType, Data: data})
}

func (c *tiredKangarooConn) Close(code int, reason string) error {
	return c.conn.Close(code, reason)
}

func (c *tiredKangarooConn) BufferedAmount() int {
	return c.conn.BufferedAmount()
}
