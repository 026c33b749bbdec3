package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestLookup(t *testing.T) {
	var got []string
	Register("lookup-test", "test command", func(args []string) { got = args })
	defer delete(commands, "lookup-test")

	cmd, args, ok := lookup([]string{"cronic", "lookup-test", "-v"})
	if !ok {
		t.Fatal("registered command not found")
	}
	cmd.main(args)
	if strings.Join(got, "|") != "cronic lookup-test|-v" {
		t.Fatalf("args = %q", got)
	}
	if _, _, ok := lookup([]string{"cronic", "nope"}); ok {
		t.Fatal("unknown command found")
	}
}

func TestLookupDefault(t *testing.T) {
	Register(DefaultCommand, "default", func([]string) {})
	defer delete(commands, DefaultCommand)
	for _, argv := range [][]string{{"cronic"}, {"cronic", "-socket", "x"}} {
		cmd, args, ok := lookup(argv)
		if !ok || cmd.name != DefaultCommand {
			t.Fatalf("%q did not select %s", argv, DefaultCommand)
		}
		if args[0] != "cronic "+DefaultCommand || len(args) != len(argv) {
			t.Fatalf("%q rewritten to %q", argv, args)
		}
	}
}

func TestUsage(t *testing.T) {
	Register("usage-test", "shows up in usage", func([]string) {})
	defer delete(commands, "usage-test")
	var buf bytes.Buffer
	usage(&buf, "cronic")
	if !strings.Contains(buf.String(), "usage-test") || !strings.Contains(buf.String(), "shows up in usage") {
		t.Fatalf("usage:\n%s", buf.String())
	}
}
