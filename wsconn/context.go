package wsconn

import (
	"sync"
	"time"
)

// Context is the per-connection state owned by a live WebSocket for its
// lifetime (spec §3). It is single-owner: the framework imposes no lock
// around Data beyond what's needed to make concurrent handler
// invocations (which the spec allows — see §5) not race the map itself;
// applications that need finer-grained serialization implement it
// themselves, typically with a queue stored in Data.
type Context struct {
	ConnectionID string
	ConnectedAt  time.Time
	User         any
	Params       map[string]string

	mu   sync.Mutex
	data map[string]any
}

// NewContext builds a Context with an empty data bag.
func NewContext(id string, user any, params map[string]string) *Context {
	return &Context{
		ConnectionID: id,
		ConnectedAt:  time.Now(),
		User:         user,
		Params:       params,
		data:         map[string]any{},
	}
}

// Get reads a value from the data bag.
func (c *Context) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

// Set writes a value into the data bag.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}
