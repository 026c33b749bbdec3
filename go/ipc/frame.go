package ipc

import (
	"bytes"
	"fmt"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

type Opcode uint32

const (
	READ     Opcode = 1
	WRITE    Opcode = 2
	MSG      Opcode = 3
	ACK      Opcode = 4
	MSGNORET Opcode = 5
	READ8    Opcode = 6
	READ16   Opcode = 7
	READ32   Opcode = 8
	WRITE8   Opcode = 9
	WRITE16  Opcode = 10
	WRITE32  Opcode = 11
	QUIT     Opcode = 255
)

var opNames = map[Opcode]string{
	READ:     "READ",
	WRITE:    "WRITE",
	MSG:      "MSG",
	ACK:      "ACK",
	MSGNORET: "MSGNORET",
	READ8:    "READ8",
	READ16:   "READ16",
	READ32:   "READ32",
	WRITE8:   "WRITE8",
	WRITE16:  "WRITE16",
	WRITE32:  "WRITE32",
	QUIT:     "QUIT",
}

func (o Opcode) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("OP(%d)", uint32(o))
}

// PayloadSize is the number of bytes following the header of a request.
// arg is the third header word, which carries the length for bulk writes.
func (o Opcode) PayloadSize(arg uint32) int {
	switch o {
	case WRITE8:
		return 1
	case WRITE16:
		return 2
	case WRITE32:
		return 4
	case WRITE:
		return int(arg)
	}
	return 0
}

// IsWrite reports whether the request carries data toward ironic.
func (o Opcode) IsWrite() bool {
	switch o {
	case WRITE, WRITE8, WRITE16, WRITE32:
		return true
	}
	return false
}

var readOps = map[int]Opcode{1: READ8, 2: READ16, 4: READ32}
var writeOps = map[int]Opcode{1: WRITE8, 2: WRITE16, 4: WRITE32}

// SizeOf returns the access width of a single-address opcode.
func SizeOf(op Opcode) int {
	switch op {
	case READ8, WRITE8:
		return 1
	case READ16, WRITE16:
		return 2
	case READ32, WRITE32:
		return 4
	}
	return 0
}

const (
	HeaderSize = 12
	// ironic's request buffer is 0x10000 bytes including the header
	WriteLimit = 0x10000 - HeaderSize
)

var ackOK = []byte("OK")

// Header words are little-endian regardless of host or guest order.
type Header struct {
	Op   uint32 `struc:"uint32,little"`
	Addr uint32 `struc:"uint32,little"`
	Arg  uint32 `struc:"uint32,little"`
}

// PackFrame builds a request: header followed by payload.
func PackFrame(op Opcode, addr, arg uint32, payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(HeaderSize + len(payload))
	if err := struc.Pack(&buf, &Header{Op: uint32(op), Addr: addr, Arg: arg}); err != nil {
		return nil, errors.Wrap(err, "failed to pack header")
	}
	buf.Write(payload)
	return buf.Bytes(), nil
}

func UnpackHeader(p []byte) (*Header, error) {
	if len(p) < HeaderSize {
		return nil, errors.Errorf("short header: %d bytes", len(p))
	}
	var h Header
	if err := struc.Unpack(bytes.NewReader(p[:HeaderSize]), &h); err != nil {
		return nil, errors.Wrap(err, "failed to unpack header")
	}
	return &h, nil
}
