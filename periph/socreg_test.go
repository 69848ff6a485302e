package periph_test

import (
	"testing"

	"github.com/db47h/rotsim/periph"
)

func TestSocRegisters_provision(t *testing.T) {
	r := newRig()
	fe := plainTextFE()
	// the default field entropy decrypts to a known value with a zero IV: its
	// first three blocks make a UDS with a known plaintext.
	def := r.soc.FieldEntropy()
	if err := r.soc.SetUDS(def[:periph.UDSSize]); err != nil {
		t.Fatal(err)
	}
	r.issue(t, periph.CmdDeobfuscateUDS, 4)
	r.waitDone(t)
	checkBytes(t, "key slot 4", fe[:periph.UDSSize], r.key(t, 4)[:periph.UDSSize])

	td := []struct {
		name string
		fn   func([]byte) error
		size int
	}{
		{"UDS", r.soc.SetUDS, periph.UDSSize},
		{"FE", r.soc.SetFieldEntropy, periph.FieldEntropySize},
		{"DOE key", r.soc.SetDOEKey, periph.DOEKeySize},
	}
	for _, d := range td {
		if err := d.fn(make([]byte, d.size-1)); err == nil {
			t.Errorf("%s: short value accepted", d.name)
		}
		if err := d.fn(make([]byte, d.size)); err != nil {
			t.Errorf("%s: %v", d.name, err)
		}
	}
	var z [periph.DOEKeySize]byte
	if r.soc.DOEKey() != z {
		t.Fatal("SetDOEKey did not program the key")
	}
}

func TestSocRegisters_accessorsReturnCopies(t *testing.T) {
	soc := periph.NewSocRegisters()
	uds := soc.UDS()
	uds[0] ^= 0xff
	if soc.UDS() == uds {
		t.Fatal("UDS accessor exposes internal storage")
	}
}
