package rotsim_test

import (
	"testing"

	rs "github.com/db47h/rotsim"
	"github.com/pkg/errors"
)

func TestMux(t *testing.T) {
	d0, m0, _ := newTestDevice(t)
	d1, _, r1 := newTestDevice(t)
	var polls []string
	d0.OnPoll(func() { polls = append(polls, "d0") })
	d1.OnPoll(func() { polls = append(polls, "d1") })

	m := rs.NewMux()
	if err := m.Mount("d0", 0x1000_0000, 0x14, d0); err != nil {
		t.Fatal(err)
	}
	if err := m.Mount("d1", 0x2000_0000, 0x14, d1); err != nil {
		t.Fatal(err)
	}
	if err := m.Mount("bad", 0x1000_0010, 0x10, d1); err == nil {
		t.Fatal("overlapping mount accepted")
	}
	if err := m.Mount("empty", 0x3000_0000, 0, d1); err == nil {
		t.Fatal("empty mount accepted")
	}

	if err := m.Write(rs.Word, 0x1000_0004, 0x04030201); err != nil {
		t.Fatal(err)
	}
	if m0.Data()[4] != 1 || m0.Data()[7] != 4 {
		t.Fatalf("write not forwarded with a relative address: % x", m0.Data())
	}
	if err := m.Write(rs.Word, 0x2000_0010, 42); err != nil {
		t.Fatal(err)
	}
	if v, err := m.Read(rs.Word, 0x2000_0010); err != nil || v != 42 || r1.Get() != 42 {
		t.Fatalf("read back %d, %v", v, err)
	}

	err := m.Write(rs.Word, 0x3000_0000, 0)
	if errors.Cause(err) != rs.StoreAccessFault {
		t.Fatalf("expected store access fault for unmapped address, got %v", err)
	}
	_, err = m.Read(rs.Byte, 0x2000_0010)
	if errors.Cause(err) != rs.LoadAccessFault {
		t.Fatalf("expected device fault to propagate, got %v", err)
	}

	clk := rs.NewClock()
	clk.Attach(m)
	clk.Advance(1)
	clk.Advance(1)
	if len(polls) != 4 || polls[0] != "d0" || polls[1] != "d1" || polls[2] != "d0" {
		t.Fatalf("bad poll order %v", polls)
	}
	if len(m.Mappings()) != 2 {
		t.Fatalf("expected 2 mappings, got %d", len(m.Mappings()))
	}
}

func TestMux_topOfAddressSpace(t *testing.T) {
	d, _, _ := newTestDevice(t)
	m := rs.NewMux()
	if err := m.Mount("top", 0xffff_ff00, 0x100, d); err != nil {
		t.Fatal(err)
	}
	if err := m.Write(rs.Word, 0xffff_ff10, 1); err != nil {
		t.Fatal(err)
	}
}
