package trace

import (
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

var TRACE_MAGIC = "CRTR"

const TRACE_VERSION = 1

type TraceHeader struct {
	// MAGIC ("CRTR")
	Magic string `struc:"[4]byte"`
	// file format version
	Version uint32
	// Emulated architecture, right-null-padded.
	Arch string `struc:"[32]byte"`
}

// TraceWriter records bus transactions to a snappy-compressed stream.
type TraceWriter struct {
	w  io.WriteCloser
	zw *snappy.Writer

	Count uint64
}

func NewWriter(w io.WriteCloser, arch string) (*TraceWriter, error) {
	header := &TraceHeader{
		Magic:   TRACE_MAGIC,
		Version: TRACE_VERSION,
		Arch:    arch,
	}
	if err := struc.Pack(w, header); err != nil {
		return nil, errors.Wrap(err, "failed to pack header")
	}
	zw := snappy.NewBufferedWriter(w)
	return &TraceWriter{w: w, zw: zw}, nil
}

func (t *TraceWriter) Pack(rec *Record) error {
	if err := struc.Pack(t.zw, rec); err != nil {
		return errors.Wrap(err, "failed to pack record")
	}
	t.Count++
	return nil
}

func (t *TraceWriter) Close() error {
	err := t.zw.Close()
	if cerr := t.w.Close(); err == nil {
		err = cerr
	}
	return err
}

type TraceReader struct {
	r      io.ReadCloser
	zr     *snappy.Reader
	Header TraceHeader
}

func NewReader(r io.ReadCloser) (*TraceReader, error) {
	t := &TraceReader{r: r}
	if err := struc.Unpack(r, &t.Header); err != nil {
		return nil, errors.Wrap(err, "failed to unpack header")
	}
	if t.Header.Magic != TRACE_MAGIC {
		return nil, errors.New("invalid trace file magic")
	}
	if t.Header.Version != TRACE_VERSION {
		return nil, errors.Errorf("unsupported trace version %d", t.Header.Version)
	}
	t.Header.Arch = strings.TrimRight(t.Header.Arch, "\x00")
	t.zr = snappy.NewReader(r)
	return t, nil
}

// Next returns io.EOF after the last record.
func (t *TraceReader) Next() (*Record, error) {
	var rec Record
	if err := struc.Unpack(t.zr, &rec); err != nil {
		if errors.Cause(err) == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrap(err, "failed to unpack record")
	}
	return &rec, nil
}

func (t *TraceReader) Close() error {
	t.zr.Reset(nil)
	return t.r.Close()
}
