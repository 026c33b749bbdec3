package models

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const DefaultSocketName = "ironic-ppc.sock"

// DefaultSocketPath is where ironic listens for the PPC bridge.
func DefaultSocketPath() string {
	return filepath.Join(os.TempDir(), DefaultSocketName)
}

type Config struct {
	Output io.Writer

	Color bool
	// IntrPause is how long to wait after an interrupt dump. Zero means no
	// pause; only a nil Config defaults it to one second.
	IntrPause time.Duration
	MaxSteps  uint64
	Socket    string
	Timeout   time.Duration
	TraceExec bool
	TraceMem  bool
	TraceReg  bool
	Verbose   bool
}

func (c *Config) Init() *Config {
	if c == nil {
		c = &Config{IntrPause: time.Second}
	}
	if c.Output == nil {
		c.Output = os.Stderr
	}
	if c.Socket == "" {
		c.Socket = DefaultSocketPath()
	}
	return c
}

func (c *Config) Printf(f string, args ...interface{}) {
	fmt.Fprintf(c.Output, f, args...)
}

func (c *Config) Println(s ...interface{}) {
	fmt.Fprintln(c.Output, s...)
}
