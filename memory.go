// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package rotsim

import "encoding/binary"

// Memory is a fixed size, little-endian, byte addressable buffer.
//
type Memory struct {
	data []byte
}

// NewMemory returns a zeroed Memory of n bytes.
//
func NewMemory(n int) *Memory {
	return &Memory{data: make([]byte, n)}
}

// Data returns the live contents of m.
//
func (m *Memory) Data() []byte {
	return m.data
}

// Read returns size bytes at offset off. The caller is responsible for bounds
// and alignment checks; Device does them before calling Read.
//
func (m *Memory) Read(size Size, off uint32) uint32 {
	switch size {
	case Byte:
		return uint32(m.data[off])
	case HalfWord:
		return uint32(binary.LittleEndian.Uint16(m.data[off:]))
	default:
		return binary.LittleEndian.Uint32(m.data[off:])
	}
}

// Write stores the low size bytes of val at offset off.
//
func (m *Memory) Write(size Size, off uint32, val uint32) error {
	switch size {
	case Byte:
		m.data[off] = byte(val)
	case HalfWord:
		binary.LittleEndian.PutUint16(m.data[off:], uint16(val))
	default:
		binary.LittleEndian.PutUint32(m.data[off:], val)
	}
	return nil
}
