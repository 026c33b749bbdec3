// Package peek dumps guest memory straight off the bus, without an engine.
package peek

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ironic-emu/cronic/go/cmd"
	"github.com/ironic-emu/cronic/go/ipc"
	"github.com/ironic-emu/cronic/go/models"
)

// Peek writes size bytes at addr to w. With words set, it issues one READ32
// per word like the engine would, otherwise a bulk READ rendered as a hexdump.
func Peek(w io.Writer, c *ipc.Client, addr uint32, size int, words bool) error {
	if size <= 0 {
		return errors.Errorf("invalid size %d", size)
	}
	if words {
		for off := 0; off < size; off += 4 {
			val, err := c.Read(4, addr+uint32(off))
			if err != nil {
				return errors.Wrapf(err, "READ32 @ 0x%08x", addr+uint32(off))
			}
			fmt.Fprintf(w, "0x%08x: 0x%08x\n", addr+uint32(off), val)
		}
		return nil
	}
	mem, err := c.GuestRead(addr, size)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, strings.Join(models.HexDump(uint64(addr), mem, 32), "\n"))
	return nil
}

func Main(args []string) {
	fs := flag.NewFlagSet(args[0], flag.ExitOnError)
	socket := fs.String("socket", models.DefaultSocketPath(), "path of ironic's PPC socket")
	timeout := fs.Duration("timeout", 5*time.Second, "per-transaction timeout")
	addr := fs.Uint64("addr", 0, "bus address to read")
	size := fs.Int("size", 0x100, "number of bytes to read")
	words := fs.Bool("word", false, "read word by word with READ32 instead of one bulk READ")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\nOptions:\n", args[0])
		var flags []*flag.Flag
		fs.VisitAll(func(f *flag.Flag) { flags = append(flags, f) })
		models.PrintFlags(os.Stderr, flags)
	}
	fs.Parse(args[1:])
	if *size <= 0 {
		fmt.Fprintf(os.Stderr, "-size must be positive, got %d\n", *size)
		os.Exit(2)
	}

	client := ipc.NewClient(*socket, ipc.WithTimeout(*timeout))
	defer client.Close()
	if err := client.Init(); err != nil {
		cmd.PrintError(os.Stderr, err)
		os.Exit(1)
	}
	if err := Peek(os.Stdout, client, uint32(*addr), *size, *words); err != nil {
		client.Close()
		cmd.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func init() { cmd.Register("peek", "dump guest memory over the bus", Main) }
