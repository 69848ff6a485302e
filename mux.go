// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package rotsim

import (
	"github.com/pkg/errors"
)

// A Mapping places a Bus in a system address map.
//
type Mapping struct {
	Name string
	Base uint32
	Len  uint32
	Bus  Bus
}

func (m *Mapping) contains(addr uint32) bool {
	return addr >= m.Base && addr-m.Base < m.Len
}

// Mux is a system address map. It forwards accesses to the Bus mounted at the
// decoded address, with the address made relative to the mount base, and
// polls every mounted Bus in mount order.
//
type Mux struct {
	mappings []Mapping
}

// NewMux returns an empty address map.
//
func NewMux() *Mux {
	return &Mux{}
}

// Mount maps b at [base, base+n). It fails if the range is empty or overlaps a
// previous mapping.
//
func (m *Mux) Mount(name string, base, n uint32, b Bus) error {
	if n == 0 || base+n < base && base+n != 0 {
		return errors.Errorf("invalid range for %s: base %#08x, length %#x", name, base, n)
	}
	for i := range m.mappings {
		o := &m.mappings[i]
		if base <= o.Base+o.Len-1 && o.Base <= base+n-1 {
			return errors.Errorf("%s at %#08x overlaps %s at %#08x", name, base, o.Name, o.Base)
		}
	}
	m.mappings = append(m.mappings, Mapping{name, base, n, b})
	return nil
}

// Mappings returns the mounted buses in mount order.
//
func (m *Mux) Mappings() []Mapping {
	return m.mappings
}

func (m *Mux) find(addr uint32) *Mapping {
	for i := range m.mappings {
		if m.mappings[i].contains(addr) {
			return &m.mappings[i]
		}
	}
	return nil
}

// Read implements Bus.
//
func (m *Mux) Read(size Size, addr uint32) (uint32, error) {
	mp := m.find(addr)
	if mp == nil {
		return 0, fault(LoadAccessFault, size, addr)
	}
	v, err := mp.Bus.Read(size, addr-mp.Base)
	return v, errors.Wrap(err, mp.Name)
}

// Write implements Bus.
//
func (m *Mux) Write(size Size, addr uint32, val uint32) error {
	mp := m.find(addr)
	if mp == nil {
		return fault(StoreAccessFault, size, addr)
	}
	return errors.Wrap(mp.Bus.Write(size, addr-mp.Base, val), mp.Name)
}

// Poll polls all mounted buses in mount order.
//
func (m *Mux) Poll() {
	for i := range m.mappings {
		m.mappings[i].Bus.Poll()
	}
}
