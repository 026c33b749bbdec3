package ipc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/ironic-emu/cronic/go/models/cpu"
)

type State int

const (
	StateNew State = iota
	StateConnected
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Access describes one completed single-address transaction.
type Access struct {
	Op    Opcode
	Addr  uint32
	Size  int
	Value uint32
	Err   error
}

type Option func(*Client)

// WithTimeout bounds every round trip. Expiry is a sticky short I/O failure.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithObserver is called after every single-address read or write.
func WithObserver(fn func(Access)) Option {
	return func(c *Client) { c.observers = append(c.observers, fn) }
}

// WithLog receives setup notes.
func WithLog(w io.Writer) Option {
	return func(c *Client) { c.log = w }
}

// Client is the one connection to ironic's PPC socket.
// The first transport failure is sticky: every later call returns it without touching the socket.
type Client struct {
	mu sync.Mutex

	path      string
	conn      *net.UnixConn
	state     State
	err       error
	timeout   time.Duration
	order     binary.ByteOrder
	observers []func(Access)
	log       io.Writer
}

func NewClient(path string, opts ...Option) *Client {
	c := &Client{
		path:  path,
		order: binary.BigEndian,
		log:   ioutil.Discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init connects to the socket. It may only be called once, even after a failure.
func (c *Client) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateNew || c.err != nil {
		return ErrAlreadyInitialized
	}

	ignoreSigpipe()
	d := net.Dialer{Timeout: c.timeout}
	conn, err := d.Dial("unix", c.path)
	if err != nil {
		c.state = StateFailed
		c.err = &ConnectionError{Path: c.path, Err: err}
		return c.err
	}
	uconn, ok := conn.(*net.UnixConn)
	if !ok {
		conn.Close()
		c.state = StateFailed
		c.err = &ConnectionError{Path: c.path, Err: errors.Errorf("unexpected connection type %T", conn)}
		return c.err
	}
	if err := setNoSigpipe(uconn); err != nil {
		fmt.Fprintf(c.log, "%s - note that a dead ironic is reported as a transport error\n", err)
	}
	c.conn = uconn
	c.state = StateConnected
	return nil
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the sticky error, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Client) ready() error {
	if c.err != nil {
		return c.err
	}
	if c.state != StateConnected {
		return ErrNotConnected
	}
	return nil
}

func (c *Client) fail(err error) error {
	if c.err == nil {
		c.err = err
		c.state = StateFailed
	}
	return err
}

// roundTrip sends one frame with a single write and reads exactly len(resp) bytes.
func (c *Client) roundTrip(frame, resp []byte) error {
	if c.timeout > 0 {
		c.conn.SetDeadline(time.Now().Add(c.timeout))
		defer c.conn.SetDeadline(time.Time{})
	}
	n, err := c.conn.Write(frame)
	if err != nil || n != len(frame) {
		return c.fail(errors.Wrapf(ErrShortIO, "wrote %d/%d bytes: %v", n, len(frame), err))
	}
	if n, err := io.ReadFull(c.conn, resp); err != nil {
		return c.fail(errors.Wrapf(ErrShortIO, "read %d/%d bytes: %v", n, len(resp), err))
	}
	return nil
}

func (c *Client) expectOK(frame []byte) error {
	var resp [2]byte
	if err := c.roundTrip(frame, resp[:]); err != nil {
		return err
	}
	if !bytes.Equal(resp[:], ackOK) {
		return c.fail(errors.Wrapf(ErrProtocolMismatch, "expected OK, got %q", resp[:]))
	}
	return nil
}

func (c *Client) notify(a Access) {
	for _, fn := range c.observers {
		fn(a)
	}
}

func (c *Client) read(op Opcode, size int, addr uint32) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return 0, err
	}
	frame, err := PackFrame(op, addr, 0, nil)
	if err != nil {
		return 0, err
	}
	var resp [4]byte
	if err := c.roundTrip(frame, resp[:size]); err != nil {
		return 0, err
	}
	val, err := cpu.UnpackUint(c.order, size, resp[:size])
	return uint32(val), err
}

// Read fetches a 1, 2 or 4 byte big-endian value from the bus.
func (c *Client) Read(size int, addr uint32) (uint32, error) {
	op, ok := readOps[size]
	if !ok {
		return 0, errors.Wrapf(ErrUnsupportedSize, "read of %d bytes", size)
	}
	val, err := c.read(op, size, addr)
	c.notify(Access{Op: op, Addr: addr, Size: size, Value: val, Err: err})
	return val, err
}

func (c *Client) write(op Opcode, size int, addr, val uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return err
	}
	var payload [4]byte
	if _, err := cpu.PackUint(c.order, size, payload[:], uint64(val)); err != nil {
		return err
	}
	frame, err := PackFrame(op, addr, 0, payload[:size])
	if err != nil {
		return err
	}
	return c.expectOK(frame)
}

// Write stores a 1, 2 or 4 byte value on the bus. val is truncated to size.
func (c *Client) Write(size int, addr, val uint32) error {
	op, ok := writeOps[size]
	if !ok {
		return errors.Wrapf(ErrUnsupportedSize, "write of %d bytes", size)
	}
	val = uint32(cpu.MaskUint(size, uint64(val)))
	err := c.write(op, size, addr, val)
	c.notify(Access{Op: op, Addr: addr, Size: size, Value: val, Err: err})
	return err
}

// GuestRead reads a block of physical memory with bulk READ requests.
func (c *Client) GuestRead(addr uint32, size int) ([]byte, error) {
	if size <= 0 {
		return nil, errors.Errorf("invalid read size %d", size)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return nil, err
	}
	out := make([]byte, size)
	for pos := 0; pos < size; {
		n := size - pos
		if n > WriteLimit {
			n = WriteLimit
		}
		frame, err := PackFrame(READ, addr+uint32(pos), uint32(n), nil)
		if err != nil {
			return nil, err
		}
		if err := c.roundTrip(frame, out[pos:pos+n]); err != nil {
			return nil, err
		}
		pos += n
	}
	return out, nil
}

// GuestWrite writes a block of physical memory, split to fit ironic's request buffer.
func (c *Client) GuestWrite(addr uint32, p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return err
	}
	for pos := 0; pos < len(p); {
		n := len(p) - pos
		if n > WriteLimit {
			n = WriteLimit
		}
		frame, err := PackFrame(WRITE, addr+uint32(pos), uint32(n), p[pos:pos+n])
		if err != nil {
			return err
		}
		if err := c.expectOK(frame); err != nil {
			return err
		}
		pos += n
	}
	return nil
}

// Close sends QUIT on a healthy session and closes the socket.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		c.state = StateClosed
		return nil
	}
	if c.err == nil {
		if frame, err := PackFrame(QUIT, 0, 0, nil); err == nil {
			c.conn.Write(frame)
		}
	}
	err := c.conn.Close()
	c.conn = nil
	c.state = StateClosed
	return err
}
