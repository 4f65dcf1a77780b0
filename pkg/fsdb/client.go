package fsdb

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/RealistikOsu/FastStreamDB/internal/protocol"
)

// ErrUnexpectedResponse reports a response frame of the wrong type for the
// pending request.
var ErrUnexpectedResponse = errors.New("fsdb: unexpected response packet")

// Config configures a FastStreamDB client connection.
type Config struct {
	// Network is "unix" or "tcp". If empty, it is inferred from Addr: an
	// address containing a path separator dials a unix socket.
	Network string

	// Addr is the socket path or host:port to dial.
	Addr string

	// Timeout bounds dialing and each query's response wait. Defaults to 5s.
	Timeout time.Duration
}

// Client is a FastStreamDB connection. Methods serialize on an internal
// mutex, matching the protocol's strict per-connection request ordering.
type Client struct {
	mu      sync.Mutex
	conn    net.Conn
	pending []byte
	chunk   []byte
	wbuf    []byte
	timeout time.Duration
}

// Dial connects to a FastStreamDB server.
func Dial(cfg Config) (*Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("fsdb: Addr is required")
	}
	network := cfg.Network
	if network == "" {
		if strings.Contains(cfg.Addr, "/") {
			network = "unix"
		} else {
			network = "tcp"
		}
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	conn, err := net.DialTimeout(network, cfg.Addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("fsdb: dialing %s %s: %w", network, cfg.Addr, err)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(true)
	}

	return &Client{
		conn:    conn,
		chunk:   make([]byte, 4096),
		timeout: timeout,
	}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}

// Ping round-trips a Ping/Pong pair.
func (c *Client) Ping() error {
	resp, err := c.roundTrip(protocol.Ping{})
	if err != nil {
		return err
	}
	if _, ok := resp.(protocol.Pong); !ok {
		return fmt.Errorf("%w: %T to ping", ErrUnexpectedResponse, resp)
	}
	return nil
}

// CreateStream materializes an empty stream. Creating an existing stream is
// a no-op on the server.
func (c *Client) CreateStream(id uint32) error {
	return c.send(protocol.CreateStream{StreamID: id})
}

// DeleteStream removes a stream. Deleting a missing stream is a no-op.
func (c *Client) DeleteStream(id uint32) error {
	return c.send(protocol.DeleteStream{StreamID: id})
}

// EnqueueSingle appends data to one stream's buffer.
func (c *Client) EnqueueSingle(id uint32, data []byte) error {
	return c.send(protocol.EnqueueSingle{StreamID: id, Data: data})
}

// EnqueueMultiple appends data to every listed stream that exists.
func (c *Client) EnqueueMultiple(ids []uint32, data []byte) error {
	return c.send(protocol.EnqueueMultiple{StreamIDs: ids, Data: data})
}

// EnqueueAll appends data to every live stream.
func (c *Client) EnqueueAll(data []byte) error {
	return c.send(protocol.EnqueueAll{Data: data})
}

// EnqueueAllExcept appends data to every live stream not listed in
// excludeIDs. Excluded ids need not exist.
func (c *Client) EnqueueAllExcept(excludeIDs []uint32, data []byte) error {
	return c.send(protocol.EnqueueAllExcept{ExcludeIDs: excludeIDs, Data: data})
}

// Drain atomically reads and clears a stream's buffer. A missing stream
// yields an empty result.
func (c *Client) Drain(id uint32) ([]byte, error) {
	resp, err := c.roundTrip(protocol.DrainStream{StreamID: id})
	if err != nil {
		return nil, err
	}
	contents, ok := resp.(protocol.StreamContents)
	if !ok {
		return nil, fmt.Errorf("%w: %T to drain", ErrUnexpectedResponse, resp)
	}
	return contents.Data, nil
}

// Peek reads a stream's buffer without clearing it.
func (c *Client) Peek(id uint32) ([]byte, error) {
	resp, err := c.roundTrip(protocol.PeekStream{StreamID: id})
	if err != nil {
		return nil, err
	}
	contents, ok := resp.(protocol.StreamContents)
	if !ok {
		return nil, fmt.Errorf("%w: %T to peek", ErrUnexpectedResponse, resp)
	}
	return contents.Data, nil
}

// CheckState reports whether a stream currently exists on the server.
func (c *Client) CheckState(id uint32) (bool, error) {
	resp, err := c.roundTrip(protocol.CheckState{StreamID: id})
	if err != nil {
		return false, err
	}
	state, ok := resp.(protocol.StreamState)
	if !ok {
		return false, fmt.Errorf("%w: %T to check state", ErrUnexpectedResponse, resp)
	}
	return state.Valid, nil
}

// send writes a fire-and-forget request.
func (c *Client) send(req protocol.Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(req)
}

// roundTrip writes a query request and waits for its response. The protocol
// answers queries strictly in order, so the next response frame on the wire
// belongs to this request.
func (c *Client) roundTrip(req protocol.Request) (protocol.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.write(req); err != nil {
		return nil, err
	}
	return c.readResponse()
}

func (c *Client) write(req protocol.Request) error {
	c.wbuf = protocol.AppendRequest(c.wbuf[:0], req)
	c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if _, err := c.conn.Write(c.wbuf); err != nil {
		return fmt.Errorf("fsdb: writing request: %w", err)
	}
	return nil
}

func (c *Client) readResponse() (protocol.Response, error) {
	deadline := time.Now().Add(c.timeout)
	for {
		resp, consumed, err := protocol.DecodeResponse(c.pending)
		if err != nil {
			return nil, fmt.Errorf("fsdb: decoding response: %w", err)
		}
		if resp != nil {
			c.pending = append(c.pending[:0], c.pending[consumed:]...)
			return resp, nil
		}

		c.conn.SetReadDeadline(deadline)
		n, err := c.conn.Read(c.chunk)
		if n > 0 {
			c.pending = append(c.pending, c.chunk[:n]...)
		}
		if err != nil && n == 0 {
			return nil, fmt.Errorf("fsdb: reading response: %w", err)
		}
	}
}
