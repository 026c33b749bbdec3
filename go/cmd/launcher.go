package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultCommand runs when cronic is started without a subcommand, or with
// only flags, so the bare binary behaves like the old single-purpose one.
const DefaultCommand = "run"

type command struct {
	name, desc string
	main       func(args []string)
}

var commands = make(map[string]*command)
var order []string
var pad int

func Register(name, desc string, main func(args []string)) {
	if len(name) > pad {
		pad = len(name)
	}
	commands[name] = &command{name, desc, main}
	order = append(order, name)
}

func usage(w io.Writer, prog string) {
	fmt.Fprintln(w, "Commands:")
	fstr := fmt.Sprintf("%%-%ds | %%s\n", pad)
	for _, name := range order {
		cmd, ok := commands[name]
		if !ok {
			continue
		}
		fmt.Fprintf(w, fstr, cmd.name, cmd.desc)
	}
	fmt.Fprintf(w, "\nExample: %s run -socket /tmp/ironic-ppc.sock -etrace\n\n", prog)
}

// lookup picks the command for argv and rewrites argv for it.
func lookup(argv []string) (*command, []string, bool) {
	name := DefaultCommand
	rest := argv[1:]
	if len(argv) > 1 && !strings.HasPrefix(argv[1], "-") {
		name, rest = argv[1], argv[2:]
	}
	cmd, ok := commands[name]
	if !ok {
		return nil, nil, false
	}
	args := append([]string{argv[0] + " " + name}, rest...)
	return cmd, args, true
}

func Main() {
	if len(os.Args) > 1 && (os.Args[1] == "help" || os.Args[1] == "-h") {
		usage(os.Stderr, os.Args[0])
		os.Exit(0)
	}
	cmd, args, ok := lookup(os.Args)
	if !ok {
		fmt.Fprintf(os.Stderr, "Command '%s' not found.\n\n", os.Args[1])
		usage(os.Stderr, os.Args[0])
		os.Exit(1)
	}
	cmd.main(args)
}
