package periph_test

import (
	"bytes"
	"testing"
	"testing/quick"

	"github.com/davecgh/go-spew/spew"
	rs "github.com/db47h/rotsim"
	"github.com/db47h/rotsim/periph"
	"github.com/db47h/rotsim/simtest"
	"github.com/pkg/errors"
)

var testIV = []byte{
	0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f,
}

// NIST SP 800-38A F.2.5 plaintext, first three blocks.
var plainTextUDS = []byte{
	0x6b, 0xc1, 0xbe, 0xe2, 0x2e, 0x40, 0x9f, 0x96, 0xe9, 0x3d, 0x7e, 0x11, 0x73, 0x93, 0x17, 0x2a,
	0xae, 0x2d, 0x8a, 0x57, 0x1e, 0x03, 0xac, 0x9c, 0x9e, 0xb7, 0x6f, 0xac, 0x45, 0xaf, 0x8e, 0x51,
	0x30, 0xc8, 0x1c, 0x46, 0xa3, 0x5c, 0xe4, 0x11, 0xe5, 0xfb, 0xc1, 0x19, 0x1a, 0x0a, 0x52, 0xef,
}

func plainTextFE() []byte {
	b := make([]byte, periph.FieldEntropySize)
	for i := range b {
		b[i] = byte(0x80 + i)
	}
	return b
}

type rig struct {
	clk *rs.Clock
	kv  *periph.KeyVault
	soc *periph.SocRegisters
	doe *periph.DOE
}

func newRig() *rig {
	r := &rig{clk: rs.NewClock(), kv: periph.NewKeyVault(), soc: periph.NewSocRegisters()}
	r.doe = periph.NewDOE(r.clk, r.kv, r.soc)
	return r
}

func control(t *testing.T, cmd, dest uint32) uint32 {
	t.Helper()
	c, err := periph.DOECmd.Enum(cmd)
	if err != nil {
		t.Fatal(err)
	}
	d, err := periph.DOEDest.Enum(dest)
	if err != nil {
		t.Fatal(err)
	}
	return c.Plus(d).Value
}

func (r *rig) issue(t *testing.T, cmd, dest uint32) {
	t.Helper()
	if err := r.doe.Write(rs.Word, periph.DOEControlOffset, control(t, cmd, dest)); err != nil {
		t.Fatal(err)
	}
}

func (r *rig) waitDone(t *testing.T) uint64 {
	t.Helper()
	return simtest.StepUntil(t, r.clk, r.doe, 10*periph.DOEOpTicks,
		simtest.FlagSet(t, r.doe, periph.DOEControlOffset, periph.DOEFlowDone))
}

func (r *rig) key(t *testing.T, id uint32) []byte {
	t.Helper()
	k, err := r.kv.ReadKey(id)
	if err != nil {
		t.Fatal(err)
	}
	return k[:]
}

func checkBytes(t *testing.T, what string, exp, got []byte) {
	t.Helper()
	if !bytes.Equal(exp, got) {
		t.Errorf("%s mismatch:\nexpected %s\ngot      %s", what, spew.Sdump(exp), spew.Sdump(got))
	}
}

func TestDOE_controlLayout(t *testing.T) {
	td := []struct {
		cmd, dest uint32
		val       uint32
	}{
		{periph.CmdIdle, 0, 0x00},
		{periph.CmdDeobfuscateUDS, 2, 0x09},
		{periph.CmdDeobfuscateFE, 3, 0x0e},
		{periph.CmdClearSecrets, 7, 0x1f},
	}
	for _, d := range td {
		if v := control(t, d.cmd, d.dest); v != d.val {
			t.Errorf("CMD=%d DEST=%d: expected %#x, got %#x", d.cmd, d.dest, d.val, v)
		}
	}
	if periph.DOEFlowDone.Mask() != 1<<5 {
		t.Fatalf("FLOW_DONE must be bit 5, mask is %#x", periph.DOEFlowDone.Mask())
	}
}

func TestDOE_deobfuscateUDS(t *testing.T) {
	r := newRig()
	simtest.WriteBlock(t, r.doe, periph.DOEIVOffset, testIV)
	r.issue(t, periph.CmdDeobfuscateUDS, 2)

	if n := r.waitDone(t); n != periph.DOEOpTicks {
		t.Fatalf("expected completion after %d ticks, got %d", periph.DOEOpTicks, n)
	}
	k := r.key(t, 2)
	checkBytes(t, "key slot 2", plainTextUDS, k[:periph.UDSSize])
	checkBytes(t, "key slot 2 padding", make([]byte, periph.KeySize-periph.UDSSize), k[periph.UDSSize:])
	for id := uint32(0); id < periph.KeyCount; id++ {
		if id != 2 {
			checkBytes(t, "untouched key slot", make([]byte, periph.KeySize), r.key(t, id))
		}
	}
	// completion rewrites CONTROL with only FLOW_DONE set.
	if c := r.doe.Control(); c != 0x20 {
		t.Fatalf("expected CONTROL = 0x20 after completion, got %#x (%v)", c, r.doe)
	}
}

func TestDOE_deobfuscateFE(t *testing.T) {
	r := newRig()
	simtest.WriteBlock(t, r.doe, periph.DOEIVOffset, make([]byte, periph.DOEIVSize))
	r.issue(t, periph.CmdDeobfuscateFE, 3)
	r.waitDone(t)
	checkBytes(t, "key slot 3", plainTextFE(), r.key(t, 3))
}

func TestDOE_clearSecrets(t *testing.T) {
	r := newRig()
	var (
		zUDS [periph.UDSSize]byte
		zFE  [periph.FieldEntropySize]byte
		zKey [periph.DOEKeySize]byte
	)
	if r.soc.UDS() == zUDS || r.soc.FieldEntropy() == zFE || r.soc.DOEKey() == zKey {
		t.Fatal("default secrets should not be zero")
	}
	for i := 0; i < 2; i++ {
		r.issue(t, periph.CmdClearSecrets, 0)
		r.waitDone(t)
		if r.soc.UDS() != zUDS || r.soc.FieldEntropy() != zFE || r.soc.DOEKey() != zKey {
			t.Fatalf("pass %d: secrets not cleared:\n%s", i, spew.Sdump(r.soc))
		}
	}
}

func TestDOE_controlAlignment(t *testing.T) {
	r := newRig()
	r.issue(t, periph.CmdDeobfuscateUDS, 1)
	before := r.doe.Control()

	for _, sz := range []rs.Size{rs.Byte, rs.HalfWord} {
		for off := uint32(0); off < 4; off += uint32(sz) {
			err := r.doe.Write(sz, periph.DOEControlOffset+off, 0xff)
			if errors.Cause(err) != rs.StoreAccessFault {
				t.Fatalf("%v write at +%d: expected store access fault, got %v", sz, off, err)
			}
			if r.doe.Control() != before {
				t.Fatalf("faulted write changed CONTROL to %#x", r.doe.Control())
			}
		}
	}
	if err := r.doe.Write(rs.Word, periph.DOEIVOffset+2, 0); !rs.IsMisaligned(err) {
		t.Fatalf("expected misaligned IV write to fault, got %v", err)
	}
	if err := r.doe.Write(rs.Byte, periph.DOEIVOffset, 0); !rs.IsAccessFault(err) {
		t.Fatalf("expected byte IV write to fault, got %v", err)
	}
	if err := r.doe.Write(rs.Word, periph.DOESize, 0); !rs.IsAccessFault(err) {
		t.Fatalf("expected write past CONTROL to fault, got %v", err)
	}
	if !r.doe.Pending() {
		t.Fatal("faulted writes must not cancel the pending command")
	}
}

// Advancing the clock by arbitrary steps never completes a command before
// DOEOpTicks, and always completes it eventually.
func TestDOE_completion(t *testing.T) {
	f := func(cmd uint8, steps []uint16) bool {
		r := newRig()
		clk := r.clk
		clk.Attach(r.doe)
		if err := r.doe.Write(rs.Word, periph.DOEControlOffset, uint32(cmd%3+1)); err != nil {
			return false
		}
		var total uint64
		for _, s := range steps {
			n := uint64(s%300) + 1
			clk.Advance(n)
			total += n
			done := r.doe.Control()&periph.DOEFlowDone.Mask() != 0
			if done != (total >= periph.DOEOpTicks) {
				return false
			}
		}
		for r.doe.Control()&periph.DOEFlowDone.Mask() == 0 {
			clk.Advance(7)
			total += 7
			if total > 2*periph.DOEOpTicks {
				return false
			}
		}
		return true
	}
	if err := quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}
}

func TestDOE_idle(t *testing.T) {
	r := newRig()
	soc := *r.soc
	r.issue(t, periph.CmdIdle, 4)
	r.waitDone(t)
	if *r.soc != soc {
		t.Fatal("idle command changed the SoC secrets")
	}
	for id := uint32(0); id < periph.KeyCount; id++ {
		checkBytes(t, "key slot", make([]byte, periph.KeySize), r.key(t, id))
	}
	if r.doe.Pending() {
		t.Fatal("idle command left an operation pending")
	}
}

// FLOW_DONE cannot be cleared by an Idle write once the engine is idle.
func TestDOE_idleKeepsFlowDone(t *testing.T) {
	r := newRig()
	r.issue(t, periph.CmdClearSecrets, 0)
	r.waitDone(t)
	if err := r.doe.Write(rs.Word, periph.DOEControlOffset, 0); err != nil {
		t.Fatal(err)
	}
	if c := r.doe.Control(); c != 0x20 {
		t.Fatalf("expected CONTROL = 0x20 after writing 0 to an idle engine, got %#x", c)
	}
	if r.doe.Pending() {
		t.Fatal("idle write scheduled an operation")
	}
}

// Overwriting CMD with Idle while a command is in flight turns it into a
// no-op that still completes on schedule.
func TestDOE_idleWhilePending(t *testing.T) {
	r := newRig()
	r.issue(t, periph.CmdClearSecrets, 0)
	r.clk.IncrementAndPoll(400, r.doe)
	r.issue(t, periph.CmdIdle, 0)
	if r.doe.Control()&periph.DOEFlowDone.Mask() != 0 {
		t.Fatal("FLOW_DONE set before the pending operation completed")
	}
	if n := r.waitDone(t); n != periph.DOEOpTicks-400 {
		t.Fatalf("expected completion at the original deadline, got %d more ticks", n)
	}
	if r.soc.DOEKey() == ([periph.DOEKeySize]byte{}) {
		t.Fatal("secrets cleared by an overwritten command")
	}
}

// A second command replaces the first and restarts the wait.
func TestDOE_lastWriteWins(t *testing.T) {
	r := newRig()
	simtest.WriteBlock(t, r.doe, periph.DOEIVOffset, testIV)
	r.issue(t, periph.CmdDeobfuscateUDS, 1)
	r.clk.IncrementAndPoll(600, r.doe)
	r.issue(t, periph.CmdDeobfuscateUDS, 5)
	if n := r.waitDone(t); n != periph.DOEOpTicks {
		t.Fatalf("expected a full restart, completed after %d ticks", n)
	}
	checkBytes(t, "key slot 1", make([]byte, periph.KeySize), r.key(t, 1))
	checkBytes(t, "key slot 5", plainTextUDS, r.key(t, 5)[:periph.UDSSize])
}

// The IV is sampled when the operation completes, not when it is issued.
func TestDOE_lateIV(t *testing.T) {
	r := newRig()
	simtest.WriteBlock(t, r.doe, periph.DOEIVOffset, make([]byte, periph.DOEIVSize))
	r.issue(t, periph.CmdDeobfuscateUDS, 0)
	r.clk.IncrementAndPoll(10, r.doe)
	simtest.WriteBlock(t, r.doe, periph.DOEIVOffset, testIV)
	r.waitDone(t)
	checkBytes(t, "key slot 0", plainTextUDS, r.key(t, 0)[:periph.UDSSize])
}

func TestDOE_readIV(t *testing.T) {
	r := newRig()
	simtest.WriteBlock(t, r.doe, periph.DOEIVOffset, testIV)
	for i := 0; i < len(testIV); i += 4 {
		if v := simtest.ReadWord(t, r.doe, uint32(i)); v != simtest.MakeWord(testIV, i) {
			t.Fatalf("IV word %d: expected %#x, got %#x", i/4, simtest.MakeWord(testIV, i), v)
		}
	}
}

func TestDOE_lockedSlotPanics(t *testing.T) {
	r := newRig()
	if err := r.kv.LockWrite(6); err != nil {
		t.Fatal(err)
	}
	r.issue(t, periph.CmdDeobfuscateFE, 6)
	defer func() {
		if recover() == nil {
			t.Fatal("expected a key vault failure to panic")
		}
	}()
	r.clk.IncrementAndPoll(periph.DOEOpTicks, r.doe)
}

func TestRoot(t *testing.T) {
	clk := rs.NewClock()
	kv := periph.NewKeyVault()
	bus, doe := periph.NewRoot(clk, kv, periph.NewSocRegisters())

	simtest.WriteBlock(t, bus, periph.DOEBase+periph.DOEIVOffset, testIV)
	if err := bus.Write(rs.Word, periph.DOEBase+periph.DOEControlOffset, control(t, periph.CmdDeobfuscateUDS, 2)); err != nil {
		t.Fatal(err)
	}
	if err := bus.Write(rs.HalfWord, periph.DOEBase+periph.DOEControlOffset, 0); !rs.IsAccessFault(err) {
		t.Fatalf("expected access fault through the system map, got %v", err)
	}
	done := simtest.FlagSet(t, bus, periph.DOEBase+periph.DOEControlOffset, periph.DOEFlowDone)
	var ticks uint64
	for !done() {
		clk.Advance(1)
		ticks++
		if ticks > periph.DOEOpTicks {
			t.Fatalf("not done after %d ticks: %v", ticks, doe)
		}
	}
	k, _ := kv.ReadKey(2)
	checkBytes(t, "key slot 2", plainTextUDS, k[:periph.UDSSize])
}
