package models_test

import (
	"strings"
	"testing"

	"github.com/ironic-emu/cronic/go/models"
	"github.com/ironic-emu/cronic/go/models/mock"
)

func TestStatusDiff(t *testing.T) {
	c, err := mock.Arch.Cpu.New()
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	s := &models.StatusDiff{Arch: mock.Arch, Cpu: c}

	all, err := s.Changes(true)
	if err != nil {
		t.Fatal(err)
	}
	if len(all.Changes) != len(mock.Arch.Regs) {
		t.Fatalf("first diff has %d registers, want %d", len(all.Changes), len(mock.Arch.Regs))
	}

	if err := c.RegWrite(mock.R3, 0x1234); err != nil {
		t.Fatal(err)
	}
	if err := c.RegWrite(mock.PC, 0xfff00100); err != nil {
		t.Fatal(err)
	}
	diff, err := s.Changes(true)
	if err != nil {
		t.Fatal(err)
	}
	if len(diff.Changes) != 2 {
		t.Fatalf("got %d changes, want 2", len(diff.Changes))
	}
	out := diff.String(false)
	if !strings.Contains(out, "  pc 0xfff00100") || !strings.Contains(out, "  r3 0x00001234") {
		t.Fatalf("bad diff output: %q", out)
	}
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("expected one line: %q", out)
	}

	diff, err = s.Changes(true)
	if err != nil {
		t.Fatal(err)
	}
	if diff.String(false) != "" {
		t.Fatalf("unchanged registers reported: %q", diff.String(false))
	}
	full, err := s.Changes(false)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(full.String(false), "\n"); lines != (len(mock.Arch.Regs)+3)/4 {
		t.Fatalf("full dump has %d lines", lines)
	}
}

func TestChangeColor(t *testing.T) {
	cs := &models.Changes{Width: 8, Changes: []*models.Change{
		{Name: "r3", Old: 0x1000, New: 0x1004},
		{Name: "r4", Old: 7, New: 7},
	}}
	out := cs.String(true)
	// only the last digit of r3 differs
	if !strings.Contains(out, "0x0000100\x1b[") {
		t.Fatalf("changed digit not highlighted: %q", out)
	}
	if !strings.Contains(out, "  r4 0x00000007") {
		t.Fatalf("unchanged register was highlighted: %q", out)
	}
	if plain := cs.String(false); strings.Contains(plain, "\x1b[") {
		t.Fatalf("color codes without color: %q", plain)
	}
}
