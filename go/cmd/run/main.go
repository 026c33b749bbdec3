package run

import (
	"os"

	"github.com/ironic-emu/cronic/go/arch/ppc"
	"github.com/ironic-emu/cronic/go/arch/ppc/hollywood"
	"github.com/ironic-emu/cronic/go/cmd"
)

func Main(args []string) {
	os.Exit(cmd.NewCronicCmd(ppc.Arch, hollywood.Board).Run(args))
}

func init() { cmd.Register("run", "emulate Broadway against a running ironic", Main) }
