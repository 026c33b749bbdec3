// Package ipctest provides an in-process stand-in for ironic's PPC socket.
package ipctest

import (
	"encoding/binary"
	"io"
	"io/ioutil"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/ironic-emu/cronic/go/ipc"
)

// Server answers bridge requests from a sparse byte-addressed memory.
// It serves one connection at a time and records every request frame.
type Server struct {
	Path string

	dir string
	ln  *net.UnixListener
	wg  sync.WaitGroup

	mu       sync.Mutex
	mem      map[uint32]byte
	frames   [][]byte
	answered int
	// -1 means unlimited
	remaining  int
	badAck     bool
	shortReply bool
	stall      bool
	conn       net.Conn
	quit       bool
}

// NewServer listens on a fresh socket in a temporary directory.
func NewServer() (*Server, error) {
	dir, err := ioutil.TempDir("", "ipctest")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create socket dir")
	}
	path := filepath.Join(dir, "ironic-ppc.sock")
	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		os.RemoveAll(dir)
		return nil, errors.Wrap(err, "failed to listen")
	}
	s := &Server{
		Path:      path,
		dir:       dir,
		ln:        ln,
		mem:       make(map[uint32]byte),
		remaining: -1,
	}
	s.wg.Add(1)
	go s.serve()
	return s, nil
}

// CloseAfter answers n more requests, then drops the connection on the next one.
func (s *Server) CloseAfter(n int) {
	s.mu.Lock()
	s.remaining = n
	s.mu.Unlock()
}

// BadAck makes writes answer "NO" instead of "OK".
func (s *Server) BadAck() {
	s.mu.Lock()
	s.badAck = true
	s.mu.Unlock()
}

// ShortReply makes the next read answer a single byte short, then hang up.
func (s *Server) ShortReply() {
	s.mu.Lock()
	s.shortReply = true
	s.mu.Unlock()
}

// Stall records requests but never answers them.
func (s *Server) Stall() {
	s.mu.Lock()
	s.stall = true
	s.mu.Unlock()
}

// Poke stores p at addr in the backing memory.
func (s *Server) Poke(addr uint32, p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range p {
		s.mem[addr+uint32(i)] = b
	}
}

// Poke32 stores a big-endian word.
func (s *Server) Poke32(addr, val uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], val)
	s.Poke(addr, tmp[:])
}

// Peek returns n bytes of backing memory. Unwritten bytes read as zero.
func (s *Server) Peek(addr uint32, n int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peek(addr, n)
}

func (s *Server) peek(addr uint32, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = s.mem[addr+uint32(i)]
	}
	return out
}

// Frames returns a copy of every raw request received so far.
func (s *Server) Frames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.frames))
	copy(out, s.frames)
	return out
}

// Answered is the number of requests that got a full response.
func (s *Server) Answered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answered
}

// Quit reports whether a client sent QUIT.
func (s *Server) Quit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quit
}

func (s *Server) Close() error {
	err := s.ln.Close()
	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	os.RemoveAll(s.dir)
	return err
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()
		s.handle(conn)
		conn.Close()
	}
}

func (s *Server) handle(conn net.Conn) {
	for {
		var hdr [ipc.HeaderSize]byte
		if _, err := io.ReadFull(conn, hdr[:]); err != nil {
			return
		}
		h, err := ipc.UnpackHeader(hdr[:])
		if err != nil {
			return
		}
		op := ipc.Opcode(h.Op)
		payload := make([]byte, op.PayloadSize(h.Arg))
		if _, err := io.ReadFull(conn, payload); err != nil {
			return
		}
		if !s.respond(conn, op, h, append(hdr[:], payload...), payload) {
			return
		}
	}
}

// respond returns false when the connection should be dropped.
func (s *Server) respond(conn net.Conn, op ipc.Opcode, h *ipc.Header, frame, payload []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frame)
	if s.stall {
		return true
	}
	if s.remaining == 0 {
		return false
	}
	if s.remaining > 0 {
		s.remaining--
	}

	var resp []byte
	switch op {
	case ipc.READ8, ipc.READ16, ipc.READ32:
		resp = s.peek(h.Addr, ipc.SizeOf(op))
		if s.shortReply {
			conn.Write(resp[:len(resp)-1])
			return false
		}
	case ipc.READ:
		resp = s.peek(h.Addr, int(h.Arg))
	case ipc.WRITE8, ipc.WRITE16, ipc.WRITE32, ipc.WRITE:
		for i, b := range payload {
			s.mem[h.Addr+uint32(i)] = b
		}
		resp = []byte("OK")
		if s.badAck {
			resp = []byte("NO")
		}
	case ipc.QUIT:
		s.quit = true
		return false
	default:
		// ironic drops the client on anything it doesn't implement
		return false
	}
	if _, err := conn.Write(resp); err != nil {
		return false
	}
	s.answered++
	return true
}
