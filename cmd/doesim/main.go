// Command doesim runs a deobfuscation engine command on the emulated
// root-of-trust and reports the result.
//
// With -i, the clock is stepped from the terminal: space advances the clock by
// -step ticks, q quits.
//
package main

import (
	"encoding/hex"
	"flag"
	"log"

	"github.com/db47h/rotsim"
	"github.com/db47h/rotsim/periph"
	"github.com/mattn/go-tty"
	"github.com/pkg/errors"
)

var commands = map[string]uint32{
	"idle":  periph.CmdIdle,
	"uds":   periph.CmdDeobfuscateUDS,
	"fe":    periph.CmdDeobfuscateFE,
	"clear": periph.CmdClearSecrets,
}

func main() {
	var (
		cmdName     = flag.String("cmd", "uds", "command to run: idle, uds, fe or clear")
		dest        = flag.Uint("dest", 0, "destination key slot")
		iv          = flag.String("iv", "000102030405060708090a0b0c0d0e0f", "IV as 32 hex digits")
		step        = flag.Uint64("step", 100, "ticks per step")
		interactive = flag.Bool("i", false, "step the clock from the terminal")
	)
	flag.Parse()
	log.SetFlags(0)

	cmd := commands[*cmdName]
	ctl, err := controlWord(*cmdName, *dest)
	if err != nil {
		log.Fatal(err)
	}
	ivb, err := hex.DecodeString(*iv)
	if err != nil || len(ivb) != periph.DOEIVSize {
		log.Fatalf("bad IV %q", *iv)
	}
	if *step == 0 {
		*step = 1
	}

	clk := rotsim.NewClock()
	kv := periph.NewKeyVault()
	soc := periph.NewSocRegisters()
	bus, doe := periph.NewRoot(clk, kv, soc)

	if err = run(bus, ivb, ctl); err != nil {
		log.Fatal(err)
	}
	log.Printf("tick %d: %v", clk.Now(), doe)

	advance := func() bool { clk.Advance(*step); return true }
	if *interactive {
		t, err := tty.Open()
		if err != nil {
			log.Fatal(err)
		}
		defer t.Close()
		advance = func() bool {
			for {
				r, err := t.ReadRune()
				if err != nil {
					log.Print(err)
					return false
				}
				switch r {
				case ' ':
					clk.Advance(*step)
					return true
				case 'q':
					return false
				}
			}
		}
	}

	for doe.Pending() {
		if !advance() {
			return
		}
		log.Printf("tick %d: %v", clk.Now(), doe)
	}

	switch cmd {
	case periph.CmdDeobfuscateUDS, periph.CmdDeobfuscateFE:
		k, err := kv.ReadKey(uint32(*dest))
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("key slot %d: %x", *dest, k)
	case periph.CmdClearSecrets:
		uds, fe, key := soc.UDS(), soc.FieldEntropy(), soc.DOEKey()
		log.Printf("UDS: %x\nfield entropy: %x\nDOE key: %x", uds, fe, key)
	}
}

// controlWord builds the CONTROL value for the named command and key slot.
//
func controlWord(name string, dest uint) (uint32, error) {
	cmd, ok := commands[name]
	if !ok {
		return 0, errors.Errorf("unknown command %q", name)
	}
	if dest >= periph.KeyCount {
		return 0, errors.Errorf("destination key slot %d out of range [0, %d)", dest, periph.KeyCount)
	}
	cv, err := periph.DOECmd.Enum(cmd)
	if err != nil {
		return 0, err
	}
	dv, err := periph.DOEDest.Enum(uint32(dest))
	if err != nil {
		return 0, err
	}
	return cv.Plus(dv).Value, nil
}

func run(bus rotsim.Bus, iv []byte, ctl uint32) error {
	for i := 0; i < len(iv); i += 4 {
		w := uint32(iv[i]) | uint32(iv[i+1])<<8 | uint32(iv[i+2])<<16 | uint32(iv[i+3])<<24
		if err := bus.Write(rotsim.Word, periph.DOEBase+periph.DOEIVOffset+uint32(i), w); err != nil {
			return errors.Wrap(err, "write IV")
		}
	}
	return errors.Wrap(bus.Write(rotsim.Word, periph.DOEBase+periph.DOEControlOffset, ctl), "write CONTROL")
}
