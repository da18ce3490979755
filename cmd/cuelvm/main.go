// Command cuelvm executes a .cuby bytecode file.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"

	"github.com/rmay/cuel/pkg/bytecode"
	"github.com/rmay/cuel/pkg/vm"
)

var (
	traceFlag      = flag.Bool("trace", false, "print the IP, each instruction word and both stacks to stderr")
	debugFlag      = flag.Bool("debug", false, "drop into a line-stepping prompt")
	cpuProfileFlag = flag.String("cpuprofile", "", "write a CPU profile of the run to this file")
)

func main() {
	flag.Parse()

	if len(flag.Args()) != 1 {
		fmt.Println("Usage: cuelvm FILE")
		return
	}

	path := flag.Args()[0]
	if _, err := os.Stat(path); err != nil {
		fmt.Println("File not found.")
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Println("File not found.")
		return
	}

	words, err := bytecode.Decode(data)
	if err != nil {
		fmt.Println(err.Error())
		return
	}

	if *cpuProfileFlag != "" {
		f, err := os.Create(*cpuProfileFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cpuprofile: %v\n", err)
			return
		}
		defer f.Close()
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	machine := vm.New(words)
	machine.SetTrace(*traceFlag)

	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, os.Interrupt)
	go func() {
		<-interrupted
		fmt.Println("Program terminated.")
		os.Exit(0)
	}()

	if *debugFlag {
		runDebug(machine)
		return
	}

	if err := machine.Run(); err != nil {
		fmt.Println(err.Error())
	}
}

// runDebug is a minimal line-stepping prompt: Enter steps one
// instruction, 'c' runs to completion, 'q' quits.
func runDebug(machine *vm.VM) {
	in := bufio.NewReader(os.Stdin)
	for machine.Running() && machine.IP() > 0 {
		fmt.Printf("IP=%d data=%v calls=%v\n> ", machine.IP(), machine.DataStack(), machine.CallStack())
		line, _ := in.ReadString('\n')
		switch line {
		case "q\n":
			return
		case "c\n":
			if err := machine.Run(); err != nil {
				fmt.Println(err.Error())
			}
			return
		default:
			if err := machine.Step(); err != nil {
				fmt.Println(err.Error())
				return
			}
		}
	}
	if len(machine.CallStack()) > 0 {
		fmt.Println((&vm.AbnormalTermination{}).Error())
	}
}
