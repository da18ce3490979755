// Command cueldbg is an interactive terminal debugger for .cuby files.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rmay/cuel/internal/debugger"
	"github.com/rmay/cuel/pkg/bytecode"
	"github.com/rmay/cuel/pkg/vm"
)

func main() {
	flag.Parse()

	if len(flag.Args()) != 1 {
		fmt.Println("Usage: cueldbg FILE")
		return
	}

	data, err := os.ReadFile(flag.Args()[0])
	if err != nil {
		fmt.Println("File not found.")
		return
	}

	words, err := bytecode.Decode(data)
	if err != nil {
		fmt.Println(err.Error())
		return
	}

	machine := vm.New(words)
	d := debugger.NewDebugger(machine)

	cfg, err := debugger.LoadConfig(debugger.ConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "cueldbg: config: %v\n", err)
		os.Exit(1)
	}
	d.Config = cfg

	bpFile := debugger.BreakpointFile(flag.Args()[0])
	if cfg.Debugger.PersistBreakpoints {
		if err := debugger.LoadBreakpoints(d.Breakpoints, bpFile); err != nil {
			fmt.Fprintf(os.Stderr, "cueldbg: breakpoints: %v\n", err)
		}
	}

	tui := debugger.NewTUI(d)
	runErr := tui.Run()

	if cfg.Debugger.PersistBreakpoints {
		if err := debugger.SaveBreakpoints(d.Breakpoints, bpFile); err != nil {
			fmt.Fprintf(os.Stderr, "cueldbg: breakpoints: %v\n", err)
		}
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "cueldbg: %v\n", runErr)
		os.Exit(1)
	}
}
