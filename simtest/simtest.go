// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package simtest provides utility functions for testing peripherals.
//
package simtest

import (
	"encoding/binary"
	"testing"

	"github.com/db47h/rotsim"
)

// MakeWord returns the little-endian word at b[i:i+4].
//
func MakeWord(b []byte, i int) uint32 {
	return binary.LittleEndian.Uint32(b[i:])
}

// WriteBlock writes data word by word starting at addr. The test fails if any
// write fails. len(data) must be a multiple of 4.
//
func WriteBlock(t testing.TB, b rotsim.Bus, addr uint32, data []byte) {
	t.Helper()
	for i := 0; i < len(data); i += 4 {
		if err := b.Write(rotsim.Word, addr+uint32(i), MakeWord(data, i)); err != nil {
			t.Fatalf("write at %#08x: %v", addr+uint32(i), err)
		}
	}
}

// ReadWord reads a word at addr. The test fails if the read fails.
//
func ReadWord(t testing.TB, b rotsim.Bus, addr uint32) uint32 {
	t.Helper()
	v, err := b.Read(rotsim.Word, addr)
	if err != nil {
		t.Fatalf("read at %#08x: %v", addr, err)
	}
	return v
}

// StepUntil advances clk one tick at a time, polling b after each tick, until
// done returns true. It returns the number of ticks elapsed. The test fails if
// done is still false after limit ticks.
//
func StepUntil(t testing.TB, clk *rotsim.Clock, b rotsim.Poller, limit uint64, done func() bool) uint64 {
	t.Helper()
	var n uint64
	for !done() {
		if n >= limit {
			t.Fatalf("condition not met after %d ticks", limit)
		}
		clk.IncrementAndPoll(1, b)
		n++
	}
	return n
}

// FlagSet returns a condition for StepUntil that reads the register at addr
// and checks field f.
//
func FlagSet(t testing.TB, b rotsim.Bus, addr uint32, f rotsim.Field) func() bool {
	return func() bool {
		t.Helper()
		return rotsim.NewRegister(nil, ReadWord(t, b, addr)).IsSet(f)
	}
}
