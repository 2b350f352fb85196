// Package hub is the connection and session relay at the core of the
// coordinator. It accepts bidirectional streaming connections,
// classifies inbound frames, tees audio to the active session and the
// recognition engine, ingests telemetry, and fans status, transcript
// and alert events back out to every connected endpoint.
//
// All routing runs on a single goroutine, so frames from one
// connection are processed in arrival order and session state needs no
// locking in the hot path. Per-connection write pumps decouple slow
// receivers: a send that cannot be queued is dropped, never blocking
// the loop.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/guardpost/guardpost/pkg/alert"
	"github.com/guardpost/guardpost/pkg/jsontime"
	"github.com/guardpost/guardpost/pkg/recognizer"
	"github.com/guardpost/guardpost/pkg/session"
	"github.com/guardpost/guardpost/pkg/telemetry"
)

// sendQueueSize bounds each connection's outbound queue.
const sendQueueSize = 256

// Options configures a Hub.
type Options struct {
	// Sessions is the session manager. Required.
	Sessions *session.Manager

	// Engine is the recognition engine; its lines drive transcripts
	// and alerts. Optional.
	Engine recognizer.Engine

	// Gate decides which recognized lines raise alerts.
	// Defaults to alert.NewGate(nil).
	Gate *alert.Gate

	// Notify receives emergency notifications. Optional.
	Notify alert.Sink

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// outFrame is one queued outbound frame.
type outFrame struct {
	data   []byte
	binary bool
}

// inboundFrame is one frame read off a connection, tagged with origin.
type inboundFrame struct {
	from   *client
	data   []byte
	binary bool
}

// client is the hub's bookkeeping for one connection.
type client struct {
	id   string
	conn Conn
	send chan outFrame
}

// Hub owns the set of live connections and routes every frame.
type Hub struct {
	opts Options
	tee  *Tee
	gate *alert.Gate

	register   chan *client
	unregister chan *client
	inbound    chan inboundFrame
	lines      chan string

	runCtx context.Context
	done   chan struct{}
}

// New creates a Hub. Call Run to start routing.
func New(opts Options) (*Hub, error) {
	if opts.Sessions == nil {
		return nil, fmt.Errorf("hub: Options.Sessions is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	gate := opts.Gate
	if gate == nil {
		gate = alert.NewGate(nil)
	}
	return &Hub{
		opts:       opts,
		tee:        NewTee(opts.Sessions, opts.Engine, opts.Logger),
		gate:       gate,
		register:   make(chan *client),
		unregister: make(chan *client, 16),
		inbound:    make(chan inboundFrame, 64),
		lines:      make(chan string, 32),
		done:       make(chan struct{}),
	}, nil
}

// Run routes frames until ctx is cancelled, then closes every
// connection and finalizes any active session.
func (h *Hub) Run(ctx context.Context) {
	h.runCtx = ctx
	defer close(h.done)

	if h.opts.Engine != nil {
		go h.pumpLines()
	}

	clients := make(map[*client]bool)
	lines := h.lines

	for {
		select {
		case <-ctx.Done():
			for c := range clients {
				close(c.send)
				c.conn.Close()
			}
			if err := h.opts.Sessions.Stop(context.Background()); err != nil {
				h.opts.Logger.Error("hub: finalize session on shutdown", "error", err)
			}
			return

		case c := <-h.register:
			clients[c] = true
			h.opts.Logger.Info("hub: connected", "conn", c.id)
			h.trySend(c, outFrame{data: marshalStatus("connected")})

		case c := <-h.unregister:
			if clients[c] {
				delete(clients, c)
				close(c.send)
				c.conn.Close()
				h.opts.Logger.Info("hub: disconnected", "conn", c.id)
			}

		case f := <-h.inbound:
			h.handleFrame(clients, f)

		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			h.handleLine(clients, line)
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Accept hands a new connection to the hub and starts its pumps.
func (h *Hub) Accept(conn Conn) {
	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan outFrame, sendQueueSize),
	}
	go h.writePump(c)
	go h.readPump(c)

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
	}
}

// readPump feeds the hub loop with this connection's frames, in order.
func (h *Hub) readPump(c *client) {
	defer h.requestUnregister(c)
	for {
		data, binary, err := c.conn.Read()
		if err != nil {
			return
		}
		select {
		case h.inbound <- inboundFrame{from: c, data: data, binary: binary}:
		case <-h.done:
			return
		}
	}
}

// writePump drains the connection's send queue. A write failure marks
// the connection for removal; pending frames are discarded.
func (h *Hub) writePump(c *client) {
	for f := range c.send {
		var err error
		if f.binary {
			err = c.conn.WriteBinary(f.data)
		} else {
			err = c.conn.WriteText(f.data)
		}
		if err != nil {
			h.requestUnregister(c)
			return
		}
	}
}

func (h *Hub) requestUnregister(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// trySend queues a frame without blocking; a full or closing
// connection drops the frame.
func (h *Hub) trySend(c *client, f outFrame) {
	select {
	case c.send <- f:
	default:
		h.opts.Logger.Warn("hub: send queue full, dropping frame", "conn", c.id)
	}
}

// broadcast queues a frame to every connection except the originator.
func (h *Hub) broadcast(clients map[*client]bool, f outFrame, except *client) {
	for c := range clients {
		if c == except {
			continue
		}
		h.trySend(c, f)
	}
}

// handleFrame classifies and routes one inbound frame.
func (h *Hub) handleFrame(clients map[*client]bool, f inboundFrame) {
	if f.binary {
		h.tee.Feed(f.data)
		h.broadcast(clients, outFrame{data: f.data, binary: true}, f.from)
		return
	}

	var env envelope
	if err := json.Unmarshal(f.data, &env); err != nil {
		h.opts.Logger.Warn("hub: malformed message dropped",
			"conn", f.from.id, "error", err)
		return
	}

	switch env.Type {
	case kindStart:
		if _, err := h.opts.Sessions.Start(h.runCtx); err != nil {
			h.opts.Logger.Error("hub: start session", "error", err)
		}

	case kindStop:
		if err := h.opts.Sessions.Stop(h.runCtx); err != nil {
			h.opts.Logger.Error("hub: stop session", "error", err)
		}

	case kindSensor:
		rec := telemetry.Record{
			Time:     jsontime.NowEpochMilli(),
			Temp:     env.Temp,
			Humidity: env.Hum,
			MicPeak:  env.MicPeak,
		}
		if err := h.opts.Sessions.AppendTelemetry(rec); err != nil {
			h.opts.Logger.Error("hub: append telemetry", "error", err)
		}
		// Observers get the sender's message verbatim.
		h.broadcast(clients, outFrame{data: f.data}, f.from)

	case kindStatus:
		h.broadcast(clients, outFrame{data: marshalStatus(env.Value)}, f.from)

	default:
		h.opts.Logger.Debug("hub: ignoring unknown message kind",
			"conn", f.from.id, "kind", env.Type)
	}
}

// handleLine relays one recognized line and runs it through the gate.
func (h *Hub) handleLine(clients map[*client]bool, line string) {
	h.broadcast(clients, outFrame{data: marshalTranscript(line)}, nil)

	a, ok := h.gate.Observe(line)
	if !ok {
		return
	}
	h.opts.Logger.Info("hub: emergency keyword detected",
		"keyword", a.Keyword, "line", a.Text)
	if h.opts.Notify != nil {
		text := fmt.Sprintf("Emergency keyword detected! %q at %s",
			a.Text, a.At.Format(time.RFC1123))
		h.opts.Notify.Dispatch(text)
	}
	h.broadcast(clients, outFrame{data: marshalAlert(line)}, nil)
}

// pumpLines forwards recognition engine output into the hub loop.
func (h *Hub) pumpLines() {
	defer close(h.lines)
	for line, err := range h.opts.Engine.Lines() {
		if err != nil {
			h.opts.Logger.Error("hub: recognition stream error", "error", err)
			continue
		}
		select {
		case h.lines <- line:
		case <-h.done:
			return
		}
	}
}
