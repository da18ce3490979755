// Package cuel implements the CUEL compiler's lexer, single-pass code
// generator, and linker: the front half of the toolchain described by
// the canonical token table and patch pass.
package cuel

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/rmay/cuel/pkg/vm"
)

// callSite records where a call-class opcode's placeholder word lives
// in the output buffer, and the source line it came from (for the
// "call to undefined function" diagnostic).
type callSite struct {
	offset int
	line   int
}

// compiler holds all state threaded through a single compilation: the
// running word buffer, the function definition table, and the
// not-yet-resolved call sites, keyed by callee name.
type compiler struct {
	line  int
	prev  tokenType
	defs  map[string]int
	calls map[string][]callSite
	words []uint32
}

func newCompiler() *compiler {
	return &compiler{
		line:  1,
		prev:  tokBegin,
		defs:  map[string]int{},
		calls: map[string][]callSite{},
		words: []uint32{vm.Magic},
	}
}

func emitWord(word uint32) action {
	return func(c *compiler, _ []string) error {
		c.words = append(c.words, word)
		return nil
	}
}

func emitCall(op uint32) action {
	return func(c *compiler, m []string) error {
		name := m[1]
		c.calls[name] = append(c.calls[name], callSite{offset: len(c.words), line: c.line})
		c.words = append(c.words, 0x00000000, op)
		return nil
	}
}

func emitNumber(c *compiler, m []string) error {
	n, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil || n >= uint64(vm.DataLimit) {
		return &SyntaxError{Msg: "number is out of range"}
	}
	c.words = append(c.words, uint32(n))
	return nil
}

// unescape decodes the three backslash escapes the string rule
// recognizes: \\, \n, and \r. Any other character following a backslash
// is taken literally, and the backslash is kept in front of it.
func unescape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i < len(s)-1 {
			switch s[i+1] {
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case 'r':
				b.WriteByte('\r')
				i++
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// emitString decodes escapes, then stores a 0x00000000 terminator
// followed by the string's runes in reverse order — puts pops from the
// top, so the first character printed must be the last one pushed.
func emitString(c *compiler, m []string) error {
	s := unescape(m[1])
	runes := []rune(s)
	c.words = append(c.words, 0x00000000)
	for i := len(runes) - 1; i >= 0; i-- {
		c.words = append(c.words, uint32(runes[i]))
	}
	return nil
}

func defineMain(c *compiler, _ []string) error {
	c.defs["MAIN"] = len(c.words)
	return nil
}

func defineFunc(c *compiler, m []string) error {
	name := m[1]
	if _, exists := c.defs[name]; exists {
		return &SyntaxError{Msg: "function redefinition"}
	}
	c.defs[name] = len(c.words)
	return nil
}

// Compile reads CUEL source and produces a linked, linearized word
// buffer ready for the bytecode container: the magic word, every
// instruction in source order, and the synthetic trailing ret, with all
// call-site placeholders patched to their callees' addresses.
func Compile(r io.Reader) ([]uint32, error) {
	c := newCompiler()
	tbl := rules()
	br := bufio.NewReader(r)

	for {
		line, readErr := br.ReadString('\n')
		if line != "" {
			if err := c.parseLine(tbl, line); err != nil {
				return nil, err
			}
		}
		if readErr != nil {
			break
		}
	}

	end := endRule()
	if !end.admiss.allows(c.prev) {
		return nil, &SyntaxError{Msg: end.errMsg}
	}
	if err := end.action(c, nil); err != nil {
		return nil, err
	}

	if err := c.checkUnused(); err != nil {
		return nil, err
	}
	if err := c.patch(); err != nil {
		return nil, err
	}

	return c.words, nil
}

func (c *compiler) parseLine(tbl []*rule, line string) error {
	var matched *rule
	var groups []string
	for _, r := range tbl {
		if m := r.re.FindStringSubmatch(line); m != nil {
			matched = r
			groups = m
			break
		}
	}
	if matched == nil {
		return &SyntaxError{Msg: "unknown token", Line: c.line}
	}
	if !matched.admiss.allows(c.prev) {
		return &SyntaxError{Msg: matched.errMsg, Line: c.line}
	}
	if err := matched.action(c, groups); err != nil {
		if se, ok := err.(*SyntaxError); ok && se.Line == 0 {
			se.Line = c.line
			return se
		}
		return err
	}
	c.prev = matched.typ
	c.line++
	return nil
}

// checkUnused enforces that every defined function other than MAIN is
// the target of at least one call site.
func (c *compiler) checkUnused() error {
	var unused []string
	for name := range c.defs {
		if name == "MAIN" {
			continue
		}
		if _, called := c.calls[name]; called {
			continue
		}
		unused = append(unused, name)
	}
	if len(unused) == 0 {
		return nil
	}
	sort.Strings(unused)
	return &SyntaxError{Msg: "unused functions - " + strings.Join(unused, ", ")}
}

// patch resolves every call site's placeholder word to its callee's
// address, failing on the first undefined callee (the diagnostic names
// the line of its first call site).
func (c *compiler) patch() error {
	names := make([]string, 0, len(c.calls))
	for name := range c.calls {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sites := c.calls[name]
		addr, ok := c.defs[name]
		if !ok {
			return &SyntaxError{Msg: "call to undefined function", Line: sites[0].line}
		}
		for _, site := range sites {
			c.words[site.offset] = uint32(addr)
		}
	}
	return nil
}
