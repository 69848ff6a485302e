/*
Package rotsim provides the building blocks of a register-level emulator for
memory-mapped security peripherals: a virtual clock with one-shot timers, an
address-decoding bus, and typed bitfield views over 32 bit registers.

Nothing runs in the background. Time only moves when the driver (a test or an
instruction stepping CPU loop) calls Clock.Advance, and peripherals observe
the passage of time through their Poll hook:

	clk := rotsim.NewClock()
	dev := periph.NewDOE(clk, kv, soc)
	clk.Attach(dev)
	dev.Write(rotsim.Word, 0x10, ctl)
	for !done() {
		clk.Advance(1)
	}

Peripherals are assembled from Regions registered on a Device. A Region covers
a range of offsets, the access sizes it accepts and the handlers called for
reads and writes. Malformed accesses are rejected by the Device before any
handler runs, so peripheral logic can assume well-formed input.
*/
package rotsim
