package trace

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironic-emu/cronic/go/ipc"
	"github.com/ironic-emu/cronic/go/models/trace"
)

func TestPrint(t *testing.T) {
	dir, err := ioutil.TempDir("", "cronic-trace")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "bus.trace")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	tw, err := trace.NewWriter(f, "ppc")
	if err != nil {
		t.Fatal(err)
	}
	tw.Pack(&trace.Record{Op: uint8(ipc.READ32), Size: 4, Ok: true, Addr: 0x0d806840, Value: 0x48000000})
	tw.Pack(&trace.Record{Op: uint8(ipc.WRITE8), Size: 1, Ok: false, Addr: 0x0d800000, Value: 0x7f, Step: 12})
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := Print(&buf, r); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"# ppc transcript, version 1",
		"       0 READ32   0x0d806840 -> 0x48000000",
		"      12 WRITE8   0x0d800000 <- 0x7f FAILED",
		"# 2 records",
	}
	if len(lines) != len(want) {
		t.Fatalf("got:\n%s", buf.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestPrintBadMagic(t *testing.T) {
	r := ioutil.NopCloser(strings.NewReader("NOPE\x00\x00\x00\x01"))
	if err := Print(ioutil.Discard, r); err == nil {
		t.Fatal("bad magic accepted")
	}
}
