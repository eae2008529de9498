// Package wsconn adapts the raw WebSocket transport — the TCP/TLS
// listener and frame codec the spec treats as an external collaborator
// ("assumed provided by the host runtime") — behind a small interface the
// dispatch core can depend on without importing a concrete transport
// library. The default adapter wraps the teacher's own transport
// dependency, github.com/tiredkangaroo/websocket.
package wsconn

import (
	"net/http"
	"time"
)

// FrameType distinguishes text and binary WebSocket frames.
type FrameType int

const (
	TextFrame FrameType = iota
	BinaryFrame
)

// RawConn is the minimal per-connection surface the dispatch core needs
// from the transport: read/write frames, close, and an observational
// buffered-bytes indicator (spec §4.9's getBufferedAmount — accuracy is
// the transport's responsibility, the core takes no backpressure action
// on it per spec §1 Non-goals).
type RawConn interface {
	ReadFrame() (FrameType, []byte, error)
	WriteFrame(FrameType, []byte) error
	Close(code int, reason string) error
	BufferedAmount() int
}

// UpgradeOptions carries the server's WebSocket tunables (spec §6) down
// to the transport at upgrade time.
type UpgradeOptions struct {
	MaxPayloadLength int64
	IdleTimeout      time.Duration
	Compression      bool
}

// Upgrader accepts an HTTP upgrade request and returns a RawConn, or an
// error if the transport refused the upgrade (spec §4.9 step 4: any
// failure here becomes 400/UPGRADE_FAILED).
type Upgrader interface {
	Upgrade(w http.ResponseWriter, r *http.Request, opts UpgradeOptions) (RawConn, error)
}
