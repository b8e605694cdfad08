// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/k0kubun/pp/v3"

	"github.com/ezrec/c6461/cpu"
	"github.com/ezrec/c6461/emulator"
)

const usage = `usage:
  c6461 assemble <source> [--out-list <path>] [--out-load <path>] [--debug] [-v]
  c6461 run <loadimage> [--trap-file <path>] [--max-cycles <n>] [--debug] [-v]`

func main() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)

	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	switch os.Args[1] {
	case "assemble":
		cmdAssemble(os.Args[2:])
	case "run":
		cmdRun(os.Args[2:])
	default:
		log.Fatalf("unknown command %q\n%s", os.Args[1], usage)
	}
}

// splitTarget pulls a leading positional argument off the list so
// flags may appear after it.
func splitTarget(args []string) (target string, rest []string) {
	rest = args
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		target = args[0]
		rest = args[1:]
	}

	return
}

func cmdAssemble(args []string) {
	fs := flag.NewFlagSet("assemble", flag.ExitOnError)
	outList := fs.String("out-list", "ListingFile.txt", "listing file path")
	outLoad := fs.String("out-load", "LoadFile.txt", "load image path")
	debug := fs.Bool("debug", false, "dump the symbol table after assembly")
	verbose := fs.Bool("v", false, "verbose mode")

	source, rest := splitTarget(args)
	fs.Parse(rest)
	if source == "" && fs.NArg() > 0 {
		source = fs.Arg(0)
	}
	if source == "" {
		log.Fatal(usage)
	}

	inf, err := os.Open(source)
	if err != nil {
		log.Fatalf("%v: %v", source, err)
	}
	defer inf.Close()

	asm := &cpu.Assembler{Verbose: *verbose}
	for name, value := range emulator.New().Defines() {
		asm.Predefine(name, value)
	}

	prog, err := asm.Assemble(inf)
	if err != nil {
		log.Fatalf("%v: %v", source, err)
	}

	if *debug {
		pp.Fprintf(os.Stderr, "symbols: %v\n", asm.Symbols)
	}

	writeOutput(*outList, prog.WriteListing)
	writeOutput(*outLoad, prog.WriteLoad)
}

func writeOutput(path string, write func(w io.Writer) error) {
	ouf, err := os.Create(path)
	if err != nil {
		log.Fatalf("%v: %v", path, err)
	}
	if err = write(ouf); err != nil {
		log.Fatalf("%v: %v", path, err)
	}
	if err = ouf.Close(); err != nil {
		log.Fatalf("%v: %v", path, err)
	}
}

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	trapFile := fs.String("trap-file", "", "file served by the load-file trap")
	maxCycles := fs.Int("max-cycles", 200000, "instruction bound")
	debug := fs.Bool("debug", false, "dump machine state after the run")
	verbose := fs.Bool("v", false, "verbose mode")

	load, rest := splitTarget(args)
	fs.Parse(rest)
	if load == "" && fs.NArg() > 0 {
		load = fs.Arg(0)
	}
	if load == "" {
		log.Fatal(usage)
	}

	ma := emulator.New()
	ma.Verbose = *verbose
	ma.Printer.Output = os.Stdout

	if *trapFile != "" {
		data, err := os.ReadFile(*trapFile)
		if err != nil {
			log.Fatalf("%v: %v", *trapFile, err)
		}
		ma.Cpu.TrapFile = data
	}

	inf, err := os.Open(load)
	if err != nil {
		log.Fatalf("%v: %v", load, err)
	}
	if err = ma.IPL(inf); err != nil {
		inf.Close()
		log.Fatalf("%v: %v", load, err)
	}
	inf.Close()

	enterRawTerm()
	defer exitRawTerm()

	status := 0
	remaining := *maxCycles
	for remaining > 0 {
		cycles, err := ma.Run(remaining)
		remaining -= cycles
		if err == nil {
			break
		}

		if errors.Is(err, cpu.ErrInputPending) {
			var one [1]byte
			n, rerr := os.Stdin.Read(one[:])
			if n == 0 || rerr != nil {
				log.Printf("input exhausted while machine awaits the keyboard")
				status = 1
				break
			}
			ma.DepositInput(string(one[:n]))
			continue
		}

		// Fault diagnostics were already emitted by the machine.
		status = 1
		break
	}

	if *debug {
		pp.Fprintf(os.Stderr, "cycles: %v\n", ma.Cycles)
		fmt.Fprint(os.Stderr, ma.Cpu.Reg.String())
		fmt.Fprint(os.Stderr, ma.Mem.Cache().StateString())
	}

	exitRawTerm()
	os.Exit(status)
}
