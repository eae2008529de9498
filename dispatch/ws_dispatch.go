package dispatch

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/kilnhq/kiln/schema"
	"github.com/kilnhq/kiln/wsconn"
	"github.com/kilnhq/kiln/wsroute"
)

// typeEnvelope extracts the discriminator field used to route an
// incoming text frame to a registered MessageHandler.
type typeEnvelope struct {
	Type string `json:"type"`
}

// WSDispatcher implements the WebSocket Dispatch Core (spec §4.9):
// upgrade gating, per-connection context lifecycle, and message routing.
type WSDispatcher struct {
	Registry *wsroute.Registry
	Upgrader wsconn.Upgrader
	Conns    *ConnRegistry
	Schema   *schema.Adapter
	Options  wsconn.UpgradeOptions
	Logger   *slog.Logger
}

// NewWSDispatcher builds a WSDispatcher with the framework defaults.
func NewWSDispatcher(reg *wsroute.Registry) *WSDispatcher {
	return &WSDispatcher{
		Registry: reg,
		Upgrader: wsconn.NewTiredKangarooUpgrader(),
		Conns:    NewConnRegistry(),
		Schema:   schema.Default(),
		Options:  wsconn.UpgradeOptions{MaxPayloadLength: DefaultMaxBodyBytes},
		Logger:   slog.Default(),
	}
}

// httpUpgradeRequest adapts *http.Request to wsroute.UpgradeRequest.
type httpUpgradeRequest struct{ r *http.Request }

func (u httpUpgradeRequest) Header(key string) string { return u.r.Header.Get(key) }
func (u httpUpgradeRequest) URL() string               { return u.r.URL.String() }

// ServeHTTP runs the upgrade flow for a matched WebSocket route: match,
// auth, upgrade, then the connection's read loop until it closes.
func (d *WSDispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	matched := d.Registry.Match(r.URL.Path)
	if matched == nil {
		writeJSONError(w, http.StatusNotFound, "Route not found", "NOT_FOUND")
		return
	}
	def := matched.Definition

	var user any
	if def.Auth != nil {
		u, err := def.Auth(httpUpgradeRequest{r: r})
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "Authentication failed", "AUTH_ERROR")
			return
		}
		if u == nil {
			writeJSONError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
			return
		}
		user = u
	}

	raw, err := d.Upgrader.Upgrade(w, r, d.Options)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "WebSocket upgrade failed", "UPGRADE_FAILED")
		return
	}

	id := uuid.NewString()
	ctx := wsconn.NewContext(id, user, matched.Params)
	state := wsconn.StateOpen
	facade := wsconn.NewFacade(ctx, raw, &state)

	d.Conns.Add(facade)
	defer d.Conns.Remove(facade)

	if def.OnConnect != nil {
		d.safeCall(def, facade, func() { def.OnConnect(facade) })
	}

	for {
		frameType, data, err := raw.ReadFrame()
		if err != nil {
			break
		}
		if state != wsconn.StateOpen {
			break
		}
		if frameType == wsconn.BinaryFrame {
			if def.Binary != nil {
				d.safeCall(def, facade, func() { def.Binary(facade, data) })
			}
			continue
		}
		d.dispatchText(def, facade, data)
	}

	state = wsconn.StateClosed
	if def.OnClose != nil {
		d.safeCall(def, facade, func() { def.OnClose(facade) })
	}
}

func (d *WSDispatcher) dispatchText(def *wsroute.Definition, facade *wsconn.Facade, data []byte) {
	var env typeEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		d.reportError(def, facade, fmt.Errorf("invalid message: %w", err))
		return
	}
	handler, ok := def.HandlerFor(env.Type)
	if !ok {
		d.reportError(def, facade, fmt.Errorf("unknown message type %q", env.Type))
		return
	}

	var payload any = data
	if handler.Schema != nil {
		res := d.Schema.Validate(handler.Schema, data)
		if res.IsErr() {
			d.reportError(def, facade, res.Error())
			return
		}
		payload = res.Value()
	}

	d.safeCall(def, facade, func() { handler.Handle(facade, payload) })
}

func (d *WSDispatcher) reportError(def *wsroute.Definition, facade *wsconn.Facade, err error) {
	if def.OnError != nil {
		d.safeCall(def, facade, func() { def.OnError(facade, err) })
		return
	}
	d.Logger.Error("unhandled websocket dispatch error", "connection_id", facade.Context.ConnectionID, "error", err)
}

// safeCall recovers a panicking handler and routes it to the route's
// error handler; dispatch never lets one bad message kill the
// connection's read loop.
func (d *WSDispatcher) safeCall(def *wsroute.Definition, facade *wsconn.Facade, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("panic in websocket handler: %v", rec)
			if def.OnError != nil {
				def.OnError(facade, err)
			} else {
				d.Logger.Error("recovered panic in websocket handler", "connection_id", facade.Context.ConnectionID, "error", err)
			}
		}
	}()
	fn()
}

func writeJSONError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}{Message: message, Code: code})
}
