package wsconn

import "encoding/json"

// State is the per-connection lifecycle state (spec §4.9).
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateRejected
	StateClosed
)

// PubSub is the topic fan-out capability delegated to the transport
// (spec §4.10: "topic pub/sub is delegated to the underlying WebSocket
// runtime"). The default RawConn does not need to implement it; when it
// does (by also satisfying this interface), Facade.Publish/Subscribe
// forward to it, otherwise they report an error rather than panicking.
type PubSub interface {
	Subscribe(topic string) error
	Unsubscribe(topic string) error
	IsSubscribed(topic string) bool
	Publish(topic string, data []byte) error
}

// Facade is the per-connection typed façade handlers interact with
// (spec §4.9): JSON-serializing send/publish, subscribe/unsubscribe,
// binary send, close, buffered-amount, and a raw escape hatch.
type Facade struct {
	Context *Context
	raw     RawConn
	state   *State
}

// NewFacade wraps raw for a connection whose lifecycle state is tracked
// at state (owned by the dispatch core, shared so Facade can check it).
func NewFacade(ctx *Context, raw RawConn, state *State) *Facade {
	return &Facade{Context: ctx, raw: raw, state: state}
}

// Raw returns the underlying transport connection, for applications that
// need transport-specific behavior the façade doesn't expose.
func (f *Facade) Raw() RawConn { return f.raw }

// Send serializes msg as JSON (unless it is already a []byte or string,
// which are sent verbatim) and writes it as a text frame. Only valid
// while the connection is Open.
func (f *Facade) Send(msg any) error {
	if *f.state != StateOpen {
		return errNotOpen
	}
	data, err := encode(msg)
	if err != nil {
		return err
	}
	return f.raw.WriteFrame(TextFrame, data)
}

// SendBinary writes a raw binary frame. Only valid while Open.
func (f *Facade) SendBinary(data []byte) error {
	if *f.state != StateOpen {
		return errNotOpen
	}
	return f.raw.WriteFrame(BinaryFrame, data)
}

// Publish forwards to the transport's topic fan-out, if supported.
func (f *Facade) Publish(topic string, msg any) error {
	ps, ok := f.raw.(PubSub)
	if !ok {
		return errNoPubSub
	}
	data, err := encode(msg)
	if err != nil {
		return err
	}
	return ps.Publish(topic, data)
}

// Subscribe forwards to the transport's topic fan-out, if supported.
func (f *Facade) Subscribe(topic string) error {
	ps, ok := f.raw.(PubSub)
	if !ok {
		return errNoPubSub
	}
	return ps.Subscribe(topic)
}

// Unsubscribe forwards to the transport's topic fan-out, if supported.
func (f *Facade) Unsubscribe(topic string) error {
	ps, ok := f.raw.(PubSub)
	if !ok {
		return errNoPubSub
	}
	return ps.Unsubscribe(topic)
}

// IsSubscribed reports subscription status, if the transport supports it.
func (f *Facade) IsSubscribed(topic string) bool {
	ps, ok := f.raw.(PubSub)
	if !ok {
		return false
	}
	return ps.IsSubscribed(topic)
}

// Close closes the underlying connection.
func (f *Facade) Close(code int, reason string) error {
	return f.raw.Close(code, reason)
}

// GetBufferedAmount returns the transport's observational buffered-bytes
// indicator. The core takes no backpressure action on this value.
func (f *Facade) GetBufferedAmount() int {
	return f.raw.BufferedAmount()
}

func encode(msg any) ([]byte, error) {
	switch v := msg.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return json.Marshal(v)
	}
}

var (
	errNotOpen  = notOpenError{}
	errNoPubSub = noPubSubError{}
)

type notOpenError struct{}

func (notOpenError) Error() string { return "wsconn: connection is not open" }

type noPubSubError struct{}

func (noPubSubError) Error() string { return "wsconn: transport does not support topic pub/sub" }
