// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package periph

import (
	"github.com/db47h/rotsim"
	"github.com/pkg/errors"
)

// DOE register offsets.
//
const (
	DOEIVOffset      = 0x0000
	DOEControlOffset = 0x0010
	DOESize          = 0x0014
)

// DOEIVSize is the size of the IV buffer in bytes.
const DOEIVSize = 16

// DOEOpTicks is the number of ticks between a command being accepted and its
// completion.
const DOEOpTicks = 1000

// DOE commands (values of the CMD field of the CONTROL register).
//
const (
	CmdIdle uint32 = iota
	CmdDeobfuscateUDS
	CmdDeobfuscateFE
	CmdClearSecrets
)

// DOEControl is the layout of the DOE CONTROL register.
//
var DOEControl = rotsim.MustLayout("CONTROL",
	"CMD[2]{IDLE, DEOBFUSCATE_UDS, DEOBFUSCATE_FE, CLEAR_SECRETS}, DEST[3], FLOW_DONE")

// CONTROL fields.
//
var (
	DOECmd      = DOEControl.Field("CMD")
	DOEDest     = DOEControl.Field("DEST")
	DOEFlowDone = DOEControl.Field("FLOW_DONE")
)

// DOE is the deobfuscation engine. It decrypts the obfuscated UDS and field
// entropy held by the SoC into key vault slots and can clear those secrets.
//
// Commands are issued by writing CONTROL. The operation completes DOEOpTicks
// later, during a Poll, and FLOW_DONE is then set in CONTROL.
//
type DOE struct {
	*rotsim.Device

	iv      *rotsim.Memory
	control *rotsim.Register
	timer   *rotsim.Timer
	kv      *KeyVault
	soc     *SocRegisters

	opComplete *rotsim.TimerAction
}

// NewDOE returns a new deobfuscation engine using clock clk and the given key
// vault and SoC secrets.
//
func NewDOE(clk *rotsim.Clock, kv *KeyVault, soc *SocRegisters) *DOE {
	d := &DOE{
		Device:  rotsim.NewDevice("DOE"),
		iv:      rotsim.NewMemory(DOEIVSize),
		control: rotsim.NewRegister(DOEControl, 0),
		timer:   rotsim.NewTimer(clk),
		kv:      kv,
		soc:     soc,
	}
	d.MustMap(
		rotsim.MemoryRegion("IV", DOEIVOffset, d.iv, rotsim.WordOnly),
		rotsim.RegisterRegion("CONTROL", DOEControlOffset, d.control, d.onWriteControl),
	)
	d.OnPoll(d.poll)
	return d
}

// Control returns the raw value of the CONTROL register.
//
func (d *DOE) Control() uint32 {
	return d.control.Get()
}

// Pending reports whether a command is in flight.
//
func (d *DOE) Pending() bool {
	return d.opComplete != nil
}

func (d *DOE) String() string {
	return "DOE{" + d.control.String() + "}"
}

// onWriteControl is only reached for word writes; the Device rejects other
// sizes with a store access fault.
//
func (d *DOE) onWriteControl(_ rotsim.Size, _ uint32, val uint32) error {
	d.control.Set(val)

	if d.control.Read(DOECmd) != CmdIdle {
		d.control.Modify(DOEFlowDone.Clear())
		d.opComplete = d.timer.SchedulePollIn(DOEOpTicks)
	} else if d.opComplete == nil {
		// nothing to run: an idle engine is done.
		d.control.Modify(DOEFlowDone.Set())
	}
	return nil
}

func (d *DOE) poll() {
	if !d.timer.Fired(&d.opComplete) {
		return
	}
	id := d.control.Read(DOEDest)
	cmd, _ := d.control.ReadEnum(DOECmd)
	switch cmd {
	case CmdDeobfuscateUDS:
		d.unscrambleUDS(id)
	case CmdDeobfuscateFE:
		d.unscrambleFE(id)
	case CmdClearSecrets:
		d.soc.ClearSecrets()
	}
	d.control.Write(DOEFlowDone.Set())
}

// unscrambleUDS decrypts the UDS and stores it in key slot id, zero padded to
// the slot size.
//
func (d *DOE) unscrambleUDS(id uint32) {
	uds := d.soc.UDS()
	var plain [KeySize]byte
	d.decrypt(plain[:len(uds)], uds[:])
	d.store(id, plain[:])
}

// unscrambleFE decrypts the field entropy and stores it in key slot id.
//
func (d *DOE) unscrambleFE(id uint32) {
	fe := d.soc.FieldEntropy()
	var plain [KeySize]byte
	d.decrypt(plain[:], fe[:KeySize])
	d.store(id, plain[:])
}

// decrypt uses the IV as it is now, not as it was when the command was issued.
//
func (d *DOE) decrypt(dst, src []byte) {
	key := d.soc.DOEKey()
	if err := aes256CBCDecrypt(key[:], d.iv.Data(), dst, src); err != nil {
		panic(errors.Wrap(err, "DOE decrypt"))
	}
}

func (d *DOE) store(id uint32, key []byte) {
	if err := d.kv.WriteKey(id, key); err != nil {
		panic(errors.Wrap(err, "DOE key vault write"))
	}
}
