package cmd

import (
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
	"github.com/pkg/errors"
	"github.com/shibukawa/configdir"

	cronic "github.com/ironic-emu/cronic/go"
	"github.com/ironic-emu/cronic/go/ipc"
	"github.com/ironic-emu/cronic/go/models"
	"github.com/ironic-emu/cronic/go/models/trace"
)

const RcName = "cronicrc"

type CronicCmd struct {
	Config *models.Config

	Arch  *models.Arch
	Board *models.Board

	Cronic *cronic.Cronic
	Client *ipc.Client
	Flags  *flag.FlagSet

	// Stderr receives usage and error reports.
	Stderr io.Writer
	// RcDirs are searched for cronicrc; nil means the user config dirs.
	RcDirs []string
}

func NewCronicCmd(arch *models.Arch, board *models.Board) *CronicCmd {
	return &CronicCmd{
		Arch:   arch,
		Board:  board,
		Flags:  flag.NewFlagSet("cli", flag.ContinueOnError),
		Stderr: os.Stderr,
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// PrintError prints an error, and a stacktrace if one is attached.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 40))
	fmt.Fprintf(w, "Error: %s\n", err)
	st, ok := err.(stackTracer)
	if !ok {
		return
	}
	// parse full path and method name for each stack frame
	var frames [][]string
	for _, f := range st.StackTrace() {
		fullpath := ""
		fileline := fmt.Sprintf("%s:%d", f, f)
		method := fmt.Sprintf("%n", f)

		frame := fmt.Sprintf("%+s", f)
		tmp := strings.SplitN(frame, "\n", 3)
		if len(tmp) == 2 {
			pathsplit := strings.Split(tmp[0], "/")
			method = pathsplit[len(pathsplit)-1]
			fullpath = strings.TrimSpace(tmp[1])
		}
		frames = append(frames, []string{fullpath, fileline, method})
		if method == "main.main" {
			break
		}
	}
	widths := make([]int, 2)
	for _, f := range frames {
		for i := range widths {
			if len(f[i]) > widths[i] {
				widths[i] = len(f[i])
			}
		}
	}
	for _, f := range frames {
		for i := range widths {
			if widths[i] > 0 {
				pad := strings.Repeat(" ", widths[i]-len(f[i]))
				fmt.Fprintf(w, "%s%s | ", f[i], pad)
			}
		}
		fmt.Fprintf(w, "%s()\n", f[2])
	}
}

// RcArgs returns the default flags stored in the first cronicrc found.
// Blank lines and lines starting with # are skipped.
func RcArgs(dirs []string) ([]string, error) {
	if dirs == nil {
		for _, folder := range configdir.New("cronic", "run").QueryFolders(configdir.All) {
			dirs = append(dirs, folder.Path)
		}
	}
	for _, dir := range dirs {
		path := filepath.Join(dir, RcName)
		data, err := ioutil.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		} else if err != nil {
			return nil, errors.Wrapf(err, "reading %s", path)
		}
		var args []string
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			words, err := shellwords.Parse(line)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing %s", path)
			}
			args = append(args, words...)
		}
		return args, nil
	}
	return nil, nil
}

// transcript records every bridged access with the step it happened on.
type transcript struct {
	tw    *trace.TraceWriter
	steps func() uint64
	err   error
}

func (t *transcript) observe(a ipc.Access) {
	if t.err != nil {
		return
	}
	rec := &trace.Record{
		Op:    uint8(a.Op),
		Size:  uint8(a.Size),
		Ok:    a.Err == nil,
		Addr:  a.Addr,
		Value: a.Value,
		Step:  t.steps(),
	}
	t.err = t.tw.Pack(rec)
}

// Run parses argv (argv[0] is the command name) and emulates until the
// harness stops. It returns the process exit code.
func (c *CronicCmd) Run(argv []string) int {
	fs := c.Flags
	fs.SetOutput(c.Stderr)

	socket := fs.String("socket", models.DefaultSocketPath(), "path of ironic's PPC socket")
	timeout := fs.Duration("timeout", 0, "fail a bus transaction that takes longer than this (0 waits forever)")
	steps := fs.Uint64("steps", 0, "stop cleanly after this many instructions (0 runs until an error)")
	intrPause := fs.Duration("intr-pause", time.Second, "pause after an interrupt dump")
	verbose := fs.Bool("v", false, "verbose output")
	outfile := fs.String("o", "", "redirect debugging output to file (default stderr)")
	color := fs.Bool("color", false, "highlight changed registers")

	traceAll := fs.Bool("trace", false, "recommended tracing options: -mtrace -etrace -rtrace")
	mtrace := fs.Bool("mtrace", false, "trace bridged memory accesses")
	etrace := fs.Bool("etrace", false, "trace execution")
	rtrace := fs.Bool("rtrace", false, "trace register modification")
	tracefile := fs.String("to", "", "binary bus transcript output file")
	// used for Usage grouping
	tnames := []string{"trace", "mtrace", "etrace", "rtrace", "to"}

	cpuprofile := fs.String("cpuprofile", "", "write cpu profile to <file>")

	fs.Usage = func() {
		fmt.Fprintf(c.Stderr, "Usage: %s [options]\n\nOptions:\n", argv[0])
		var flags, tflags []*flag.Flag
		fs.VisitAll(func(f *flag.Flag) {
			for _, name := range tnames {
				if name == f.Name {
					tflags = append(tflags, f)
					return
				}
			}
			flags = append(flags, f)
		})
		models.PrintFlags(c.Stderr, flags)
		fmt.Fprintf(c.Stderr, "\nTrace Options:\n")
		models.PrintFlags(c.Stderr, tflags)
		fmt.Fprintf(c.Stderr, "\nDefault options are read from %s in the user config directory.\n", RcName)
	}

	rc, err := RcArgs(c.RcDirs)
	if err != nil {
		PrintError(c.Stderr, err)
		return 1
	}
	if err := fs.Parse(append(rc, argv[1:]...)); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return 2
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			PrintError(c.Stderr, errors.Wrap(err, "cpuprofile"))
			return 1
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	config := &models.Config{
		Color:     *color,
		IntrPause: *intrPause,
		MaxSteps:  *steps,
		Socket:    *socket,
		Timeout:   *timeout,
		TraceExec: *etrace || *traceAll,
		TraceMem:  *mtrace || *traceAll,
		TraceReg:  *rtrace || *traceAll,
		Verbose:   *verbose,
	}
	if *outfile != "" {
		out, err := os.OpenFile(*outfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			PrintError(c.Stderr, errors.Wrap(err, "opening output"))
			return 1
		}
		defer out.Close()
		config.Output = out
	}
	c.Config = config.Init()

	opts := []ipc.Option{ipc.WithTimeout(config.Timeout)}
	if config.Verbose {
		opts = append(opts, ipc.WithLog(config.Output))
	}
	var tr *transcript
	if *tracefile != "" {
		f, err := os.Create(*tracefile)
		if err != nil {
			PrintError(c.Stderr, errors.Wrap(err, "creating transcript"))
			return 1
		}
		tw, err := trace.NewWriter(f, c.Arch.Name)
		if err != nil {
			f.Close()
			PrintError(c.Stderr, err)
			return 1
		}
		tr = &transcript{tw: tw, steps: func() uint64 { return c.Cronic.Steps() }}
		opts = append(opts, ipc.WithObserver(tr.observe))
	}

	c.Client = ipc.NewClient(config.Socket, opts...)
	c.Cronic = cronic.New(config, c.Arch, c.Board, c.Client)

	err = c.Cronic.Run()
	c.Cronic.Close()
	c.Client.Close()
	if tr != nil {
		if cerr := tr.tw.Close(); tr.err == nil {
			tr.err = cerr
		}
		if tr.err != nil {
			PrintError(c.Stderr, errors.Wrap(tr.err, "writing transcript"))
		}
	}
	// the harness already reported the error on Output
	if err != nil && config.Verbose {
		if _, ok := err.(models.ExitStatus); !ok {
			PrintError(c.Stderr, err)
		}
	}
	return models.ExitCode(err)
}
