package models

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Disassembler turns guest code bytes into instructions.
type Disassembler interface {
	Dis(mem []byte, addr uint64) ([]Ins, error)
}

// FormatIns renders instructions one per line, with bytes right-aligned to pad bytes.
func FormatIns(asm []Ins, pad int) string {
	width := pad
	for _, ins := range asm {
		if len(ins.Bytes()) > width {
			width = len(ins.Bytes())
		}
	}
	var out []string
	for _, ins := range asm {
		pad := strings.Repeat(" ", (width-len(ins.Bytes()))*2)
		data := pad + hex.EncodeToString(ins.Bytes())
		out = append(out, fmt.Sprintf("0x%08x: %s %s %s", ins.Addr(), data, ins.Mnemonic(), ins.OpStr()))
	}
	return strings.Join(out, "\n")
}

// Words renders mem as big-endian words, used when no disassembler is available.
func Words(base uint64, mem []byte) string {
	var out []string
	for i := 0; i+4 <= len(mem); i += 4 {
		out = append(out, fmt.Sprintf("0x%08x: %s", base+uint64(i), hex.EncodeToString(mem[i:i+4])))
	}
	return strings.Join(out, "\n")
}

func HexDump(base uint64, mem []byte, bits int) []string {
	var clean = func(p []byte) string {
		o := make([]byte, len(p))
		for i, c := range p {
			if c >= 0x20 && c <= 0x7e {
				o[i] = c
			} else {
				o[i] = '.'
			}
		}
		return string(o)
	}
	bsz := bits / 8
	hexFmt := fmt.Sprintf("0x%%0%dx:", bsz*2)
	padBlock := strings.Repeat(" ", bsz*2)
	padTail := strings.Repeat(" ", bsz)

	width := 80
	addrSize := bsz*2 + 4
	blockCount := ((width - addrSize) * 3 / 4) / ((bsz + 1) * 2)
	lineSize := blockCount * bsz
	var out []string
	blocks := make([]string, blockCount)
	tail := make([]string, blockCount)
	for i := 0; i < len(mem); i += lineSize {
		memLine := mem[i:]
		for j := 0; j < blockCount; j++ {
			if j*bsz < len(memLine) {
				end := (j + 1) * bsz
				var block []byte
				if end > len(memLine) {
					block = memLine[j*bsz:]
				} else {
					block = memLine[j*bsz : end]
				}
				blocks[j] = hex.EncodeToString(block)
				tail[j] = clean(block)
				// if block was too short, pad with spaces
				if end > len(memLine) {
					pad := end - len(memLine)
					blocks[j] += strings.Repeat("  ", pad)
					tail[j] += strings.Repeat(" ", pad)
				}
			} else {
				blocks[j] = padBlock
				tail[j] = padTail
			}
		}
		line := []string{fmt.Sprintf(hexFmt, base+uint64(i))}
		line = append(line, strings.Join(blocks, " "))
		line = append(line, fmt.Sprintf("[%s]", strings.Join(tail, " ")))
		out = append(out, strings.Join(line, " "))
	}
	return out
}
