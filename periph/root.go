// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package periph provides emulated security peripherals built on rotsim and
// the collaborators they share: the key vault and the SoC secret storage.
//
package periph

import (
	"github.com/db47h/rotsim"
)

// System addresses.
//
const (
	DOEBase = 0x1000_0000
)

// NewRoot builds the root-of-trust address map with the deobfuscation engine
// mounted at DOEBase. The map is attached to clk so that Advance polls it.
//
func NewRoot(clk *rotsim.Clock, kv *KeyVault, soc *SocRegisters) (*rotsim.Mux, *DOE) {
	doe := NewDOE(clk, kv, soc)
	m := rotsim.NewMux()
	if err := m.Mount("DOE", DOEBase, DOESize, doe); err != nil {
		panic(err)
	}
	clk.Attach(m)
	return m, doe
}
