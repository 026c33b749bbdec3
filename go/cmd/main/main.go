package main

import (
	"github.com/ironic-emu/cronic/go/cmd"

	_ "github.com/ironic-emu/cronic/go/cmd/peek"
	_ "github.com/ironic-emu/cronic/go/cmd/run"
	_ "github.com/ironic-emu/cronic/go/cmd/trace"
)

func main() { cmd.Main() }
