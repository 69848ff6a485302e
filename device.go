// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package rotsim

import (
	"sort"

	"github.com/pkg/errors"
)

// ReadFn handles a read of size bytes at offset off within its Region.
//
type ReadFn func(size Size, off uint32) uint32

// WriteFn handles a write of size bytes at offset off within its Region.
//
type WriteFn func(size Size, off uint32, val uint32) error

// A Region binds a range of device offsets to access handlers.
//
// A nil Read or Write handler makes the region write-only or read-only. Sizes
// lists the access sizes the region accepts.
//
// For example, a word-only control register can be declared like this:
//
//	Region{
//		Name:   "CONTROL",
//		Offset: 0x10,
//		Len:    4,
//		Sizes:  rotsim.WordOnly,
//		Read:   func(rotsim.Size, uint32) uint32 { return ctl.Get() },
//		Write:  p.onWriteControl,
//	}
//
type Region struct {
	Name   string
	Offset uint32
	Len    uint32
	Sizes  SizeMask
	Read   ReadFn
	Write  WriteFn
}

func (r *Region) contains(addr uint32) bool {
	return addr >= r.Offset && addr-r.Offset < r.Len
}

// RegisterRegion returns a word-only region for a single 32 bits register. If
// write is nil, writes replace the register contents.
//
func RegisterRegion(name string, off uint32, r *Register, write WriteFn) Region {
	if write == nil {
		write = func(_ Size, _ uint32, val uint32) error {
			r.Set(val)
			return nil
		}
	}
	return Region{
		Name:   name,
		Offset: off,
		Len:    4,
		Sizes:  WordOnly,
		Read:   func(Size, uint32) uint32 { return r.Get() },
		Write:  write,
	}
}

// MemoryRegion returns a region backed by m. Accesses are limited to sizes.
//
func MemoryRegion(name string, off uint32, m *Memory, sizes SizeMask) Region {
	return Region{
		Name:   name,
		Offset: off,
		Len:    uint32(len(m.data)),
		Sizes:  sizes,
		Read:   m.Read,
		Write:  m.Write,
	}
}

// Device is an address decoder for the registers and buffers of a single
// peripheral. Offsets are relative to the peripheral base.
//
// Device implements Bus. Embed it into a peripheral struct and register the
// peripheral's regions at construction time.
//
type Device struct {
	name    string
	regions []Region // sorted by offset
	poll    func()
}

// NewDevice returns an empty Device.
//
func NewDevice(name string) *Device {
	return &Device{name: name}
}

// Name returns the device name.
//
func (d *Device) Name() string {
	return d.name
}

// Map registers region r. It fails if r is empty or overlaps an already
// registered region.
//
func (d *Device) Map(r Region) error {
	if r.Len == 0 {
		return errors.Errorf("%s: region %s has zero length", d.name, r.Name)
	}
	if r.Offset+r.Len < r.Offset {
		return errors.Errorf("%s: region %s wraps around the address space", d.name, r.Name)
	}
	if r.Sizes == 0 {
		return errors.Errorf("%s: region %s accepts no access size", d.name, r.Name)
	}
	for i := range d.regions {
		o := &d.regions[i]
		if r.Offset < o.Offset+o.Len && o.Offset < r.Offset+r.Len {
			return errors.Errorf("%s: region %s [%#x, %#x) overlaps %s [%#x, %#x)",
				d.name, r.Name, r.Offset, r.Offset+r.Len, o.Name, o.Offset, o.Offset+o.Len)
		}
	}
	d.regions = append(d.regions, r)
	sort.Slice(d.regions, func(i, j int) bool { return d.regions[i].Offset < d.regions[j].Offset })
	return nil
}

// MustMap is like Map but panics on error.
//
func (d *Device) MustMap(rs ...Region) {
	for _, r := range rs {
		if err := d.Map(r); err != nil {
			panic(err)
		}
	}
}

// OnPoll sets the function called by Poll.
//
func (d *Device) OnPoll(fn func()) {
	d.poll = fn
}

// Poll calls the poll hook, if any.
//
func (d *Device) Poll() {
	if d.poll != nil {
		d.poll()
	}
}

func (d *Device) lookup(addr uint32) *Region {
	i := sort.Search(len(d.regions), func(i int) bool {
		r := &d.regions[i]
		return r.Offset+r.Len > addr
	})
	if i < len(d.regions) && d.regions[i].contains(addr) {
		return &d.regions[i]
	}
	return nil
}

// decode returns the region owning addr after checking that an access of the
// given size is acceptable.
//
func (d *Device) decode(size Size, addr uint32, accessFault, misaligned BusError) (*Region, error) {
	r := d.lookup(addr)
	if r == nil || !size.valid() {
		return nil, fault(accessFault, size, addr)
	}
	if addr%uint32(size) != 0 {
		return nil, fault(misaligned, size, addr)
	}
	if !r.Sizes.Has(size) || addr-r.Offset+uint32(size) > r.Len {
		return nil, fault(accessFault, size, addr)
	}
	return r, nil
}

// Read implements Bus.
//
func (d *Device) Read(size Size, addr uint32) (uint32, error) {
	r, err := d.decode(size, addr, LoadAccessFault, LoadAddrMisaligned)
	if err != nil {
		return 0, err
	}
	if r.Read == nil {
		return 0, fault(LoadAccessFault, size, addr)
	}
	return r.Read(size, addr-r.Offset), nil
}

// Write implements Bus.
//
func (d *Device) Write(size Size, addr uint32, val uint32) error {
	r, err := d.decode(size, addr, StoreAccessFault, StoreAddrMisaligned)
	if err != nil {
		return err
	}
	if r.Write == nil {
		return fault(StoreAccessFault, size, addr)
	}
	return r.Write(size, addr-r.Offset, val)
}
