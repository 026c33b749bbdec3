// Package trace prints bus transcripts written by run -to.
package trace

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/ironic-emu/cronic/go/cmd"
	"github.com/ironic-emu/cronic/go/ipc"
	"github.com/ironic-emu/cronic/go/models/trace"
)

func Print(w io.Writer, r io.ReadCloser) error {
	tf, err := trace.NewReader(r)
	if err != nil {
		return err
	}
	defer tf.Close()
	fmt.Fprintf(w, "# %s transcript, version %d\n", tf.Header.Arch, tf.Header.Version)
	var count int
	for {
		rec, err := tf.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return errors.Wrapf(err, "record %d", count)
		}
		status := ""
		if !rec.Ok {
			status = " FAILED"
		}
		op := ipc.Opcode(rec.Op)
		if op.IsWrite() {
			fmt.Fprintf(w, "%8d %-8s 0x%08x <- 0x%0*x%s\n", rec.Step, op, rec.Addr, int(rec.Size)*2, rec.Value, status)
		} else {
			fmt.Fprintf(w, "%8d %-8s 0x%08x -> 0x%0*x%s\n", rec.Step, op, rec.Addr, int(rec.Size)*2, rec.Value, status)
		}
		count++
	}
	fmt.Fprintf(w, "# %d records\n", count)
	return nil
}

func Main(args []string) {
	if len(args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <transcript>\n", args[0])
		os.Exit(1)
	}
	f, err := os.Open(args[1])
	if err != nil {
		cmd.PrintError(os.Stderr, err)
		os.Exit(1)
	}
	if err := Print(os.Stdout, f); err != nil {
		cmd.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func init() { cmd.Register("trace", "print a bus transcript", Main) }
