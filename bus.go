// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package rotsim

import (
	"strconv"

	"github.com/pkg/errors"
)

// Size is the width in bytes of a bus access.
//
type Size uint32

// Access sizes.
//
const (
	Byte     Size = 1
	HalfWord Size = 2
	Word     Size = 4
)

func (s Size) String() string {
	switch s {
	case Byte:
		return "byte"
	case HalfWord:
		return "halfword"
	case Word:
		return "word"
	}
	return "size(" + strconv.Itoa(int(s)) + ")"
}

func (s Size) valid() bool {
	return s == Byte || s == HalfWord || s == Word
}

// SizeMask is a set of access sizes.
//
type SizeMask uint8

// Common size masks.
//
const (
	AnySize  = SizeMask(Byte | HalfWord | Word)
	WordOnly = SizeMask(Word)
)

// Has reports whether s is in the set.
//
func (m SizeMask) Has(s Size) bool {
	return s.valid() && m&SizeMask(s) != 0
}

// BusError is the exception raised by a faulted bus access.
//
type BusError int

// Bus exceptions.
//
const (
	LoadAccessFault BusError = iota + 1
	LoadAddrMisaligned
	StoreAccessFault
	StoreAddrMisaligned
)

var busErrorNames = [...]string{
	LoadAccessFault:     "load access fault",
	LoadAddrMisaligned:  "load address misaligned",
	StoreAccessFault:    "store access fault",
	StoreAddrMisaligned: "store address misaligned",
}

func (e BusError) Error() string {
	if e > 0 && int(e) < len(busErrorNames) {
		return busErrorNames[e]
	}
	return "bus error " + strconv.Itoa(int(e))
}

// IsAccessFault reports whether err is caused by a load or store access fault.
//
func IsAccessFault(err error) bool {
	e, ok := errors.Cause(err).(BusError)
	return ok && (e == LoadAccessFault || e == StoreAccessFault)
}

// IsMisaligned reports whether err is caused by a misaligned load or store.
//
func IsMisaligned(err error) bool {
	e, ok := errors.Cause(err).(BusError)
	return ok && (e == LoadAddrMisaligned || e == StoreAddrMisaligned)
}

// fault wraps e with the access that raised it.
//
func fault(e BusError, size Size, addr uint32) error {
	return errors.Wrapf(e, "%s access at %#08x", size, addr)
}

// Bus is implemented by anything that can be read, written and polled: single
// peripherals as well as system address maps.
//
// Read and Write return an error whose cause is a BusError when the access is
// rejected. A rejected Write must not change any state.
//
type Bus interface {
	Read(size Size, addr uint32) (uint32, error)
	Write(size Size, addr uint32, val uint32) error
	Poller
}
