// Package debugger drives a CUEL VM one instruction at a time under
// operator control, grounded on the corpus's terminal-UI debugger
// pattern: a breakpoint manager keyed by address, a step-mode state
// machine, and a command dispatcher that never mutates VM state itself
// beyond the single-step entry point the VM already exposes.
package debugger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rmay/cuel/pkg/disasm"
	"github.com/rmay/cuel/pkg/vm"
)

// StepMode is the debugger's current execution granularity.
type StepMode int

const (
	StepNone StepMode = iota
	StepSingle
)

// Debugger wraps a *vm.VM with breakpoints, run control, and a scrolling
// output log of everything putn/puts have written.
type Debugger struct {
	VM          *vm.VM
	Breakpoints *BreakpointManager
	Running     bool
	StepMode    StepMode
	LastCommand string
	Config      *Config

	Output strings.Builder
}

func NewDebugger(machine *vm.VM) *Debugger {
	d := &Debugger{
		VM:          machine,
		Breakpoints: NewBreakpointManager(),
		Running:     false,
		StepMode:    StepNone,
		Config:      DefaultConfig(),
	}
	machine.SetOutput(&d.Output)
	return d
}

func (d *Debugger) Printf(format string, args ...interface{}) {
	fmt.Fprintf(&d.Output, format, args...)
}

func (d *Debugger) Println(s string) {
	d.Output.WriteString(s)
	d.Output.WriteByte('\n')
}

// ShouldBreak reports whether the VM should stop before fetching its
// next instruction, and why.
func (d *Debugger) ShouldBreak() (bool, string) {
	if d.StepMode == StepSingle {
		return true, "single-step"
	}
	if d.Breakpoints.Has(d.VM.IP()) {
		return true, fmt.Sprintf("breakpoint at 0x%08X", uint32(d.VM.IP()))
	}
	return false, ""
}

// ExecuteCommand parses and runs one debugger command line, writing any
// resulting output to d.Output. An empty line repeats the last command.
func (d *Debugger) ExecuteCommand(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		line = d.LastCommand
	}
	if line == "" {
		return nil
	}
	d.LastCommand = line

	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "step", "s":
		return d.Step()
	case "continue", "c":
		return d.Continue()
	case "break", "b":
		return d.setBreak(args)
	case "clear":
		return d.clearBreak(args)
	case "print", "p":
		d.print()
		return nil
	case "list", "l":
		d.list()
		return nil
	case "help", "h":
		d.help()
		return nil
	case "quit", "q":
		d.Running = false
		return nil
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

// Step executes exactly one instruction via the VM's own Step, keeping
// cueldbg incapable of diverging from cuelvm's semantics.
func (d *Debugger) Step() error {
	if d.VM.IP() <= 0 {
		d.Println("program has halted")
		return nil
	}
	return d.VM.Step()
}

// Continue runs until a breakpoint fires or the program halts.
func (d *Debugger) Continue() error {
	d.StepMode = StepNone
	for d.VM.IP() > 0 {
		if stop, reason := d.ShouldBreak(); stop && d.StepMode != StepSingle {
			d.Println(reason)
			return nil
		}
		if err := d.VM.Step(); err != nil {
			return err
		}
	}
	if len(d.VM.CallStack()) > 0 {
		d.Println((&vm.AbnormalTermination{}).Error())
	}
	return nil
}

func (d *Debugger) setBreak(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: break <addr>")
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	d.Breakpoints.Set(addr)
	d.Printf("breakpoint set at 0x%08X\n", uint32(addr))
	return nil
}

func (d *Debugger) clearBreak(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: clear <addr>")
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	if !d.Breakpoints.Clear(addr) {
		return fmt.Errorf("no breakpoint at 0x%08X", uint32(addr))
	}
	return nil
}

func (d *Debugger) print() {
	d.Printf("IP=0x%08X data=%v calls=%v\n", uint32(d.VM.IP()), d.VM.DataStack(), d.VM.CallStack())
}

// list renders a disassembly window centered on the current IP, sized
// by Config.Debugger.DisasmContext words on either side.
func (d *Debugger) list() {
	words := d.VM.Words()
	ip := d.VM.IP()
	ctx := int64(d.Config.Debugger.DisasmContext)
	lo, hi := ip-ctx, ip+ctx
	if lo < 0 {
		lo = 0
	}
	if hi >= int64(len(words)) {
		hi = int64(len(words)) - 1
	}
	targets := map[int64]bool{}
	for i := lo; i <= hi; i++ {
		marker := "  "
		if i == ip {
			marker = "->"
		}
		d.Printf("%s %s\n", marker, disasm.Line(uint32(i), words[i], targets[i]))
	}
}

func (d *Debugger) help() {
	d.Println("step|s, continue|c, break|b <addr>, clear <addr>, print|p, list|l, quit|q")
}

func parseAddr(s string) (int64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	n, err := strconv.ParseInt(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address: %s", s)
	}
	return n, nil
}
