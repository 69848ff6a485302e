// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package periph

import (
	"github.com/pkg/errors"
)

// Secret sizes in bytes.
//
const (
	UDSSize          = 48
	FieldEntropySize = 64
	DOEKeySize       = 32
)

// Default obfuscated secrets. The DOE key and UDS are the CBC-AES256 vector
// of NIST SP 800-38A F.2.5. The field entropy decrypts to 0x80..0xbf with an
// all-zero IV.
var (
	defaultDOEKey = [DOEKeySize]byte{
		0x60, 0x3d, 0xeb, 0x10, 0x15, 0xca, 0x71, 0xbe, 0x2b, 0x73, 0xae, 0xf0, 0x85, 0x7d, 0x77, 0x81,
		0x1f, 0x35, 0x2c, 0x07, 0x3b, 0x61, 0x08, 0xd7, 0x2d, 0x98, 0x10, 0xa3, 0x09, 0x14, 0xdf, 0xf4,
	}
	defaultUDS = [UDSSize]byte{
		0xf5, 0x8c, 0x4c, 0x04, 0xd6, 0xe5, 0xf1, 0xba, 0x77, 0x9e, 0xab, 0xfb, 0x5f, 0x7b, 0xfb, 0xd6,
		0x9c, 0xfc, 0x4e, 0x96, 0x7e, 0xdb, 0x80, 0x8d, 0x67, 0x9f, 0x77, 0x7b, 0xc6, 0x70, 0x2c, 0x7d,
		0x39, 0xf2, 0x33, 0x69, 0xa9, 0xd9, 0xba, 0xcf, 0xa5, 0x30, 0xe2, 0x63, 0x04, 0x23, 0x14, 0x61,
	}
	defaultFieldEntropy = [FieldEntropySize]byte{
		0xb7, 0xa1, 0xd6, 0x86, 0x43, 0x40, 0x5d, 0x5b, 0x3c, 0xdc, 0x76, 0x61, 0x43, 0xfa, 0x48, 0x9c,
		0x0b, 0xc9, 0x9d, 0x6b, 0x5a, 0x00, 0x27, 0x57, 0xe6, 0x54, 0xd7, 0xca, 0xa8, 0x07, 0xea, 0x93,
		0xe1, 0x01, 0x77, 0x2e, 0x9d, 0x48, 0x09, 0xe6, 0x51, 0xe4, 0x53, 0x22, 0x69, 0x79, 0xef, 0x69,
		0x27, 0x9c, 0x55, 0x04, 0x57, 0x67, 0x39, 0xbc, 0x46, 0xf9, 0x39, 0x68, 0xdc, 0xdf, 0xc0, 0x35,
	}
)

// SocRegisters holds the secrets provisioned by the SoC: the obfuscated unique
// device secret, the obfuscated field entropy and the deobfuscation key.
//
// Like KeyVault, a SocRegisters is shared by pointer between the peripherals
// and the test harness.
//
type SocRegisters struct {
	uds    [UDSSize]byte
	fe     [FieldEntropySize]byte
	doeKey [DOEKeySize]byte
}

// NewSocRegisters returns secret storage loaded with the default obfuscated
// secrets.
//
func NewSocRegisters() *SocRegisters {
	return &SocRegisters{
		uds:    defaultUDS,
		fe:     defaultFieldEntropy,
		doeKey: defaultDOEKey,
	}
}

// UDS returns the obfuscated unique device secret.
//
func (s *SocRegisters) UDS() [UDSSize]byte { return s.uds }

// FieldEntropy returns the obfuscated field entropy.
//
func (s *SocRegisters) FieldEntropy() [FieldEntropySize]byte { return s.fe }

// DOEKey returns the deobfuscation key.
//
func (s *SocRegisters) DOEKey() [DOEKeySize]byte { return s.doeKey }

// SetUDS programs the obfuscated unique device secret.
//
func (s *SocRegisters) SetUDS(b []byte) error {
	return set(s.uds[:], b, "UDS")
}

// SetFieldEntropy programs the obfuscated field entropy.
//
func (s *SocRegisters) SetFieldEntropy(b []byte) error {
	return set(s.fe[:], b, "field entropy")
}

// SetDOEKey programs the deobfuscation key.
//
func (s *SocRegisters) SetDOEKey(b []byte) error {
	return set(s.doeKey[:], b, "DOE key")
}

func set(dst, src []byte, what string) error {
	if len(src) != len(dst) {
		return errors.Errorf("bad %s size: expected %d bytes, got %d", what, len(dst), len(src))
	}
	copy(dst, src)
	return nil
}

// ClearSecrets zeroes the UDS, the field entropy and the deobfuscation key.
//
func (s *SocRegisters) ClearSecrets() {
	s.uds = [UDSSize]byte{}
	s.fe = [FieldEntropySize]byte{}
	s.doeKey = [DOEKeySize]byte{}
}
