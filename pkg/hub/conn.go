package hub

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

// ErrConnClosed is returned by pipe connections after Close.
var ErrConnClosed = errors.New("hub: connection closed")

// Conn is one live bidirectional stream endpoint. A frame is either
// raw binary audio or a structured text message; the transport's own
// framing delimits them.
type Conn interface {
	// Read blocks for the next inbound frame. binary reports whether
	// the frame is raw audio.
	Read() (data []byte, binary bool, err error)

	// WriteText sends one structured frame.
	WriteText(p []byte) error

	// WriteBinary sends one audio frame.
	WriteBinary(p []byte) error

	// Close tears the connection down. Further reads fail.
	Close() error
}

// WSConn adapts a gorilla websocket connection to Conn.
// Writes are serialized; gorilla allows one concurrent writer only.
type WSConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

// NewWSConn wraps an upgraded websocket connection.
func NewWSConn(ws *websocket.Conn) *WSConn {
	return &WSConn{ws: ws}
}

// Read returns the next text or binary frame. Control frames are
// handled by the library.
func (c *WSConn) Read() ([]byte, bool, error) {
	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			return nil, false, err
		}
		switch mt {
		case websocket.BinaryMessage:
			return data, true, nil
		case websocket.TextMessage:
			return data, false, nil
		}
	}
}

func (c *WSConn) WriteText(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, p)
}

func (c *WSConn) WriteBinary(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.BinaryMessage, p)
}

func (c *WSConn) Close() error {
	return c.ws.Close()
}

// pipeFrame is one frame in flight on a pipe connection.
type pipeFrame struct {
	data   []byte
	binary bool
}

// NewPipe creates a connected in-process pair: the server side is
// handed to the hub, the client side simulates a device or observer.
// Useful for tests and in-process clients.
func NewPipe() (*PipeServerConn, *PipeClientConn) {
	up := make(chan pipeFrame, 256)
	down := make(chan pipeFrame, 256)
	closed := make(chan struct{})

	server := &PipeServerConn{up: up, down: down, closed: closed}
	client := &PipeClientConn{up: up, down: down, closed: closed}
	return server, client
}

// PipeServerConn is the hub side of an in-process connection.
type PipeServerConn struct {
	up   chan pipeFrame
	down chan pipeFrame

	closed    chan struct{}
	closeOnce sync.Once
}

func (c *PipeServerConn) Read() ([]byte, bool, error) {
	select {
	case f, ok := <-c.up:
		if !ok {
			return nil, false, ErrConnClosed
		}
		return f.data, f.binary, nil
	case <-c.closed:
		return nil, false, ErrConnClosed
	}
}

func (c *PipeServerConn) write(f pipeFrame) error {
	select {
	case c.down <- f:
		return nil
	case <-c.closed:
		return ErrConnClosed
	}
}

func (c *PipeServerConn) WriteText(p []byte) error {
	return c.write(pipeFrame{data: p})
}

func (c *PipeServerConn) WriteBinary(p []byte) error {
	return c.write(pipeFrame{data: p, binary: true})
}

func (c *PipeServerConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// PipeClientConn is the device/observer side of an in-process
// connection.
type PipeClientConn struct {
	up   chan pipeFrame
	down chan pipeFrame

	closed    chan struct{}
	closeOnce sync.Once
}

// SendText delivers one structured frame to the hub.
func (c *PipeClientConn) SendText(p []byte) error {
	select {
	case c.up <- pipeFrame{data: p}:
		return nil
	case <-c.closed:
		return ErrConnClosed
	}
}

// SendBinary delivers one audio frame to the hub.
func (c *PipeClientConn) SendBinary(p []byte) error {
	select {
	case c.up <- pipeFrame{data: p, binary: true}:
		return nil
	case <-c.closed:
		return ErrConnClosed
	}
}

// Receive blocks for the next frame sent by the hub.
func (c *PipeClientConn) Receive() (data []byte, binary bool, err error) {
	select {
	case f, ok := <-c.down:
		if !ok {
			return nil, false, ErrConnClosed
		}
		return f.data, f.binary, nil
	case <-c.closed:
		return nil, false, ErrConnClosed
	}
}

// TryReceive returns the next pending frame without blocking;
// ok is false when nothing is queued.
func (c *PipeClientConn) TryReceive() (data []byte, binary bool, ok bool) {
	select {
	case f := <-c.down:
		return f.data, f.binary, true
	default:
		return nil, false, false
	}
}

// Close tears down both directions.
func (c *PipeClientConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// Compile-time interface checks.
var (
	_ Conn = (*WSConn)(nil)
	_ Conn = (*PipeServerConn)(nil)
)
