package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/bus"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/cpu"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/disasm"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/display"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/keypad"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/rom"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/termui"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/timer"
)

type traceEntry struct {
	pc, op uint16
	i      uint16
	sp     byte
	v      [16]byte
}

func (te traceEntry) String() string {
	return fmt.Sprintf("PC=%03X OP=%04X %-16s I=%03X SP=%d V=% 02X",
		te.pc, te.op, disasm.Mnemonic(te.op), te.i, te.sp, te.v[:])
}

func main() {
	romPath := flag.String("rom", "", "path to program (.ch8)")
	steps := flag.Int("steps", 100_000, "max CPU steps to run")
	ips := flag.Int("ips", 700, "instructions per second; timers tick every ips/60 steps")
	seed := flag.Uint64("seed", 1, "RND seed")
	trace := flag.Bool("trace", false, "print every executed instruction")
	dis := flag.Bool("dis", false, "print a disassembly listing and exit")
	key := flag.String("key", "", "hex keypad key to press whenever the program waits for one")
	screen := flag.Bool("screen", true, "print the display when done")
	timeout := flag.Duration("timeout", 0, "optional wall-clock timeout (e.g. 30s, 2m); 0 disables")
	traceOnFail := flag.Bool("traceOnFail", true, "on fault, print a recent trace window")
	traceWindow := flag.Int("traceWindow", 32, "number of recent instructions to include in 'traceOnFail' dump")
	flag.Parse()

	if *romPath == "" {
		log.Fatal("-rom is required")
	}
	program, err := rom.Load(*romPath)
	if err != nil {
		log.Fatal(err)
	}
	if *dis {
		for _, l := range disasm.Listing(program, bus.ProgramStart) {
			fmt.Println(l)
		}
		return
	}

	autoKey := -1
	if *key != "" {
		k, err := strconv.ParseUint(*key, 16, 4)
		if err != nil {
			log.Fatalf("-key: %v", err)
		}
		autoKey = int(k)
	}

	b := bus.New()
	if err := b.Load(program); err != nil {
		log.Fatal(err)
	}
	disp := display.New()
	timers := &timer.Timers{}
	keys := keypad.New()
	c := cpu.New(b, disp, timers, keys, *seed)
	c.Trace = false // traced here with richer context

	perTick := max(*ips/timer.Hz, 1)
	ring := make([]traceEntry, max(*traceWindow, 1))
	ringIdx, ringFill := 0, 0

	start := time.Now()
	var deadline time.Time
	if *timeout > 0 {
		deadline = start.Add(*timeout)
	}
	exit := func(code int, i int) {
		fmt.Printf("\nDone: steps=%d elapsed=%s\n", i, time.Since(start).Truncate(time.Millisecond))
		if *screen {
			f := disp.Snapshot()
			fmt.Print(termui.Render(&f))
		}
		os.Exit(code)
	}

	for i := 0; i < *steps; i++ {
		te := traceEntry{pc: c.PC}
		te.op, _ = b.Read16(c.PC)

		err := c.Step()
		switch {
		case err == nil:
		case errors.Is(err, cpu.ErrAwaitKey):
			if autoKey < 0 {
				fmt.Printf("\nProgram waits for a key at %03X (use -key).\n", c.PC)
				exit(3, i)
			}
			if c.AwaitingKey() {
				keys.Release(byte(autoKey))
				keys.Press(byte(autoKey))
			}
		default:
			fmt.Printf("\n%v\n%s\n", err, c)
			if *traceOnFail && ringFill > 0 {
				fmt.Printf("\n--- recent trace (last %d instructions) ---\n", ringFill)
				// print in chronological order
				startIdx := (ringIdx - ringFill + len(ring)) % len(ring)
				for j := 0; j < ringFill; j++ {
					fmt.Println(ring[(startIdx+j)%len(ring)])
				}
				fmt.Printf("--- end trace ---\n")
			}
			exit(1, i)
		}

		te.i, te.sp, te.v = c.I, c.SP, c.V
		if *trace {
			fmt.Println(te)
		}
		ring[ringIdx] = te
		ringIdx = (ringIdx + 1) % len(ring)
		if ringFill < len(ring) {
			ringFill++
		}

		if (i+1)%perTick == 0 {
			timers.Tick()
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			fmt.Printf("\nTimeout after %s.\n", time.Since(start).Truncate(time.Millisecond))
			exit(2, i+1)
		}
	}
	exit(0, *steps)
}
