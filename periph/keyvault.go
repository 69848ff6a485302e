// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package periph

import (
	"github.com/pkg/errors"
)

// Key vault geometry.
//
const (
	KeyCount = 8  // number of key slots
	KeySize  = 64 // slot size in bytes
)

// KeyVault is an indexed store of key material shared by the security
// peripherals. Slots are written by peripherals such as the DOE and read only
// by trusted consumers.
//
// A KeyVault is shared by pointer; it does no locking since the emulator is
// single-threaded.
//
type KeyVault struct {
	keys   [KeyCount][KeySize]byte
	locked [KeyCount]bool
}

// NewKeyVault returns a key vault with all slots zeroed and unlocked.
//
func NewKeyVault() *KeyVault {
	return &KeyVault{}
}

func checkKeyID(id uint32) error {
	if id >= KeyCount {
		return errors.Errorf("invalid key id %d", id)
	}
	return nil
}

// WriteKey stores key into slot id. Keys shorter than KeySize are zero padded.
// It fails if id is out of range, the key is too large or the slot is write
// locked.
//
func (kv *KeyVault) WriteKey(id uint32, key []byte) error {
	if err := checkKeyID(id); err != nil {
		return err
	}
	if len(key) > KeySize {
		return errors.Errorf("key for slot %d too large: %d bytes", id, len(key))
	}
	if kv.locked[id] {
		return errors.Errorf("key slot %d is write locked", id)
	}
	var k [KeySize]byte
	copy(k[:], key)
	kv.keys[id] = k
	return nil
}

// ReadKey returns the contents of slot id.
//
func (kv *KeyVault) ReadKey(id uint32) ([KeySize]byte, error) {
	if err := checkKeyID(id); err != nil {
		return [KeySize]byte{}, err
	}
	return kv.keys[id], nil
}

// LockWrite prevents further writes to slot id until the vault is recreated.
//
func (kv *KeyVault) LockWrite(id uint32) error {
	if err := checkKeyID(id); err != nil {
		return err
	}
	kv.locked[id] = true
	return nil
}

// IsLocked reports whether slot id is write locked.
//
func (kv *KeyVault) IsLocked(id uint32) bool {
	return id < KeyCount && kv.locked[id]
}

// ClearKey zeroes slot id. Locked slots cannot be cleared.
//
func (kv *KeyVault) ClearKey(id uint32) error {
	return errors.Wrap(kv.WriteKey(id, nil), "clear")
}
