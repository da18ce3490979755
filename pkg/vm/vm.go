// Package vm implements the CUEL virtual machine: a fetch-decode-execute
// loop over a little-endian 32-bit word stream, driving two independent
// stacks (data and call) through a fixed opcode table.
package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxStackDepth caps the data stack for the pushes made by dup, the
// arithmetic opcodes and getn: a push there past this depth is reported
// as a MemoryError rather than a normal stack error. Data words pushed
// straight from the bytecode and call-stack pushes (cal and the
// conditional calls) are not checked against it.
const MaxStackDepth = 1 << 20

// VM holds the full runtime state of one execution: the word buffer
// loaded from a .cuby file, the instruction pointer, and the data and
// call stacks.
type VM struct {
	words []uint32
	ip    int64

	data  *Stack
	calls *Stack

	running bool
	trace   bool

	out io.Writer
	in  *bufio.Reader
}

// New constructs a VM ready to execute words, which must already include
// the leading magic word at index 0. IP starts at 1, and the call stack
// is seeded with the sentinel -1 used to detect a clean top-level return.
func New(words []uint32) *VM {
	m := &VM{
		words:   words,
		ip:      1,
		data:    newStack("data stack access out of bounds"),
		calls:   newStack("call stack access out of bounds"),
		running: true,
		out:     os.Stdout,
		in:      bufio.NewReader(os.Stdin),
	}
	m.calls.Push(-1)
	return m
}

// SetTrace toggles per-instruction tracing to stderr.
func (m *VM) SetTrace(trace bool) {
	m.trace = trace
}

// SetOutput redirects putn/puts output, for embedding the VM in the
// debugger's output pane instead of writing directly to stdout.
func (m *VM) SetOutput(w io.Writer) {
	m.out = w
}

// IP returns the current instruction pointer.
func (m *VM) IP() int64 { return m.ip }

// Running reports whether the dispatch loop has not yet exited.
func (m *VM) Running() bool { return m.running }

// DataStack returns a snapshot of the data stack, bottom first.
func (m *VM) DataStack() []int64 { return m.data.Snapshot() }

// CallStack returns a snapshot of the call stack, bottom first.
func (m *VM) CallStack() []int64 { return m.calls.Snapshot() }

// Words returns the loaded word buffer, for the disassembler and
// debugger to render without re-reading the file.
func (m *VM) Words() []uint32 { return m.words }

// Run executes instructions until the instruction pointer reaches the
// sentinel (≤ 0) or an error occurs. A non-nil *AbnormalTermination is
// returned (after printing nothing itself; the caller decides how to
// report it) when the loop exits cleanly but the call stack still holds
// entries beyond the sentinel.
func (m *VM) Run() error {
	for m.running && m.ip > 0 {
		if err := m.Step(); err != nil {
			m.running = false
			return err
		}
	}
	m.running = false
	if m.calls.Size() > 0 {
		return &AbnormalTermination{}
	}
	return nil
}

// Step executes exactly one fetch-decode-execute cycle. It is the single
// entry point both cuelvm's own -trace/-debug loops and cueldbg use, so
// neither tool can diverge from cuelvm's own semantics.
func (m *VM) Step() error {
	if m.ip < 0 || m.ip >= int64(len(m.words)) {
		return &IndexError{Msg: "IP out of bounds"}
	}
	word := m.words[m.ip]

	if m.trace {
		fmt.Fprintf(os.Stderr, "IP=%s word=%s data=%v calls=%v\n",
			hexWord(uint32(m.ip)), hexWord(word), m.data.Snapshot(), m.calls.Snapshot())
	}

	if word < DataLimit {
		m.data.Push(int64(word))
		m.ip++
		return nil
	}

	jumped, err := m.dispatch(word)
	if err != nil {
		return err
	}
	if !jumped {
		m.ip++
	}
	return nil
}

// dispatch executes a single opcode word, returning true when it has
// already set m.ip to its target (so Step must not auto-advance).
func (m *VM) dispatch(word uint32) (bool, error) {
	switch word {
	case OpRet:
		target, err := m.calls.Pop()
		if err != nil {
			return false, err
		}
		m.ip = target
		return false, nil

	case OpCal:
		target, err := m.data.Pop()
		if err != nil {
			return false, err
		}
		m.calls.Push(m.ip)
		m.ip = target
		return true, nil

	case OpCaz, OpCnz, OpCgz, OpClz:
		target, err := m.data.Pop()
		if err != nil {
			return false, err
		}
		cond, err := m.data.Pop()
		if err != nil {
			return false, err
		}
		if conditionHolds(word, cond) {
			m.calls.Push(m.ip)
			m.ip = target
			return true, nil
		}
		return false, nil

	case OpSwp:
		b, err := m.data.Pop()
		if err != nil {
			return false, err
		}
		a, err := m.data.Pop()
		if err != nil {
			return false, err
		}
		m.data.Push(b)
		m.data.Push(a)
		return false, nil

	case OpSwx:
		c, err := m.data.Pop()
		if err != nil {
			return false, err
		}
		b, err := m.data.Pop()
		if err != nil {
			return false, err
		}
		a, err := m.data.Pop()
		if err != nil {
			return false, err
		}
		m.data.Push(c)
		m.data.Push(b)
		m.data.Push(a)
		return false, nil

	case OpRcw:
		return false, m.data.RotateCW()

	case OpRcc:
		return false, m.data.RotateCCW()

	case OpPop:
		_, err := m.data.Pop()
		return false, err

	case OpDup:
		top, err := m.data.Top()
		if err != nil {
			return false, err
		}
		if m.data.Size() >= MaxStackDepth {
			return false, &MemoryError{Msg: "data stack exhausted"}
		}
		m.data.Push(top)
		return false, nil

	case OpNeg:
		a, err := m.data.Pop()
		if err != nil {
			return false, err
		}
		m.data.Push(-a)
		return false, nil

	case OpAdd:
		return false, m.binary(func(a, b int64) (int64, error) { return a + b, nil })
	case OpMul:
		return false, m.binary(func(a, b int64) (int64, error) { return a * b, nil })
	case OpDiv:
		return false, m.binary(func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, &IndexError{Msg: "division by zero"}
			}
			return a / b, nil
		})
	case OpSub:
		return false, m.binary(func(a, b int64) (int64, error) { return a - b, nil })
	case OpMod:
		return false, m.binary(func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, &IndexError{Msg: "division by zero"}
			}
			return a % b, nil
		})

	case OpGetn:
		return false, m.getn()

	case OpPutn:
		n, err := m.data.Pop()
		if err != nil {
			return false, err
		}
		fmt.Fprintf(m.out, "%d", n)
		return false, nil

	case OpPuts:
		return false, m.puts()

	default:
		return false, &KeyError{Word: word, IP: m.ip}
	}
}

func conditionHolds(op uint32, cond int64) bool {
	switch op {
	case OpCaz:
		return cond == 0
	case OpCnz:
		return cond != 0
	case OpCgz:
		return cond > 0
	case OpClz:
		return cond < 0
	default:
		return false
	}
}

func (m *VM) binary(f func(a, b int64) (int64, error)) error {
	b, err := m.data.Pop()
	if err != nil {
		return err
	}
	a, err := m.data.Pop()
	if err != nil {
		return err
	}
	r, err := f(a, b)
	if err != nil {
		return err
	}
	if m.data.Size() >= MaxStackDepth {
		return &MemoryError{Msg: "data stack exhausted"}
	}
	m.data.Push(r)
	return nil
}

// getn reads one line from stdin and parses it as a signed decimal
// integer, pushing the result.
func (m *VM) getn() error {
	line, err := m.in.ReadString('\n')
	if err != nil && line == "" {
		return &InputError{Word: OpGetn, IP: m.ip}
	}
	line = strings.TrimSpace(line)
	n, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		return &InputError{Word: OpGetn, IP: m.ip}
	}
	if m.data.Size() >= MaxStackDepth {
		return &MemoryError{Msg: "data stack exhausted"}
	}
	m.data.Push(n)
	return nil
}

// puts pops code points and writes them as runes until it pops the
// 0x00000000 terminator emitted by the compiler's reversed string
// encoding.
func (m *VM) puts() error {
	for {
		c, err := m.data.Pop()
		if err != nil {
			return err
		}
		if c == 0 {
			return nil
		}
		if c < 0 || c > utf8.MaxRune || !utf8.ValidRune(rune(c)) {
			return &ValueError{Word: OpPuts, IP: m.ip}
		}
		fmt.Fprintf(m.out, "%c", rune(c))
	}
}
